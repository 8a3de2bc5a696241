package session

import (
	"math"
	"slices"
	"strings"

	"github.com/hay-kot/pulse/internal/core/activity"
)

const topApplications = 5

// unknownApp labels activities without an application name.
const unknownApp = "unknown"

var categoryWeights = map[activity.Category]float64{
	activity.CategoryProductive:    1.0,
	activity.CategoryLearning:      0.9,
	activity.CategoryCommunication: 0.7,
	activity.CategoryNeutral:       0.5,
	activity.CategoryBreak:         0.4,
	activity.CategoryEntertainment: 0.2,
	activity.CategoryDistracting:   0.0,
}

// Summarize folds a session record into its summary. Every activity's
// duration, zero when absent, lands in exactly one type bucket and one
// category bucket.
func Summarize(rec Record) Summary {
	s := Summary{
		SessionID:         rec.SessionID,
		DeviceID:          rec.DeviceID,
		StartTime:         rec.StartTime,
		EndTime:           rec.EndTime,
		ActivityCount:     len(rec.Activities),
		TypeBreakdown:     map[activity.Type]int64{},
		CategoryBreakdown: map[activity.Category]int64{},
	}

	if !rec.EndTime.IsZero() && rec.EndTime.After(rec.StartTime) {
		s.TotalDuration = rec.EndTime.Sub(rec.StartTime).Milliseconds()
	}

	type appAcc struct {
		usage      AppUsage
		categories map[activity.Category]int
		first      int
	}
	apps := map[string]*appAcc{}

	for i, a := range rec.Activities {
		d := a.DurationMillis()

		if a.Type != activity.TypeIdle {
			s.ActiveDuration += d
		}
		s.TypeBreakdown[a.Type] += d
		s.CategoryBreakdown[a.Category] += d

		name := strings.TrimSpace(a.Application)
		if name == "" {
			name = unknownApp
		}
		acc, ok := apps[name]
		if !ok {
			acc = &appAcc{usage: AppUsage{Name: name}, categories: map[activity.Category]int{}, first: i}
			apps[name] = acc
		}
		acc.usage.Duration += d
		acc.usage.Count++
		acc.categories[a.Category]++
	}

	s.IdleDuration = max(0, s.TotalDuration-s.ActiveDuration)

	ranked := make([]*appAcc, 0, len(apps))
	for _, acc := range apps {
		acc.usage.Category = dominantCategory(acc.categories)
		ranked = append(ranked, acc)
	}
	slices.SortFunc(ranked, func(a, b *appAcc) int {
		switch {
		case a.usage.Duration != b.usage.Duration:
			if a.usage.Duration > b.usage.Duration {
				return -1
			}
			return 1
		case a.usage.Count != b.usage.Count:
			return b.usage.Count - a.usage.Count
		default:
			return a.first - b.first
		}
	})
	for i, acc := range ranked {
		if i == topApplications {
			break
		}
		s.TopApplications = append(s.TopApplications, acc.usage)
	}

	s.ProductivityScore = ProductivityScore(s.CategoryBreakdown, s.ActiveDuration, s.TotalDuration)
	return s
}

// dominantCategory returns the most frequent category. Ties go to the
// category listed first in activity.Categories.
func dominantCategory(counts map[activity.Category]int) activity.Category {
	var (
		best      activity.Category
		bestCount int
	)
	for _, c := range activity.Categories {
		if n := counts[c]; n > bestCount {
			best, bestCount = c, n
		}
	}
	if best == "" {
		return activity.CategoryNeutral
	}
	return best
}

// ProductivityScore blends category weighted time into a 0-100 score. The
// result is raised 10% when more than 80% of the session was active and
// lowered 10% when less than half was, then clamped and rounded to one
// decimal place.
func ProductivityScore(byCategory map[activity.Category]int64, active, total int64) float64 {
	var sum, weighted float64
	for _, c := range activity.Categories {
		d := float64(byCategory[c])
		sum += d
		weighted += d * categoryWeights[c]
	}
	if sum == 0 {
		return 0
	}

	score := weighted / sum * 100
	if total > 0 {
		ratio := float64(active) / float64(total)
		switch {
		case ratio > 0.8:
			score *= 1.1
		case ratio < 0.5:
			score *= 0.9
		}
	}

	score = min(100, max(0, score))
	return math.Round(score*10) / 10
}
