// Package session aggregates classified activities into per-session records
// and derives running summaries from them.
package session

import (
	"time"

	"github.com/hay-kot/pulse/internal/core/activity"
)

// Record is the aggregate state of one session. Activities are kept in
// arrival order.
type Record struct {
	SessionID  string                    `json:"session_id"`
	DeviceID   string                    `json:"device_id"`
	StartTime  time.Time                 `json:"start_time"`
	EndTime    time.Time                 `json:"end_time"`
	Activities []activity.ParsedActivity `json:"activities"`
}

// LastSeen returns the end time, or the start time when no end time is set.
func (r *Record) LastSeen() time.Time {
	if r.EndTime.IsZero() {
		return r.StartTime
	}
	return r.EndTime
}

// AppUsage is the time spent in one application during a session.
type AppUsage struct {
	Name     string            `json:"name"`
	Duration int64             `json:"duration"`
	Count    int               `json:"count"`
	Category activity.Category `json:"category"`
}

// Summary is derived from a Record. Durations are in milliseconds.
type Summary struct {
	SessionID         string                      `json:"session_id"`
	DeviceID          string                      `json:"device_id"`
	StartTime         time.Time                   `json:"start_time"`
	EndTime           time.Time                   `json:"end_time"`
	ActivityCount     int                         `json:"activity_count"`
	TotalDuration     int64                       `json:"total_duration"`
	ActiveDuration    int64                       `json:"active_duration"`
	IdleDuration      int64                       `json:"idle_duration"`
	TypeBreakdown     map[activity.Type]int64     `json:"type_breakdown"`
	CategoryBreakdown map[activity.Category]int64 `json:"category_breakdown"`
	TopApplications   []AppUsage                  `json:"top_applications"`
	ProductivityScore float64                     `json:"productivity_score"`
}

// LastSeen mirrors Record.LastSeen for stored summaries.
func (s *Summary) LastSeen() time.Time {
	if s.EndTime.IsZero() {
		return s.StartTime
	}
	return s.EndTime
}

// RecordFrom rebuilds a session record from logged activities, keeping only
// those belonging to sessionID. The record is empty when none match.
func RecordFrom(sessionID string, acts []activity.ParsedActivity) Record {
	rec := Record{SessionID: sessionID}
	for _, a := range acts {
		if a.SessionID != sessionID {
			continue
		}
		if len(rec.Activities) == 0 {
			rec.DeviceID = a.DeviceID
			rec.StartTime = a.Timestamp
			rec.EndTime = a.Timestamp
		}
		if a.Timestamp.After(rec.EndTime) {
			rec.EndTime = a.Timestamp
		}
		rec.Activities = append(rec.Activities, a)
	}
	return rec
}

// Live returns the activities of sessions last seen at or after cutoff, in
// their original order. A session is kept or dropped as a whole.
func Live(acts []activity.ParsedActivity, cutoff time.Time) []activity.ParsedActivity {
	keep := Retained(acts, cutoff)

	live := make([]activity.ParsedActivity, 0, len(acts))
	for _, a := range acts {
		if keep(a) {
			live = append(live, a)
		}
	}
	return live
}

// Retained reports, for any activity in acts, whether its session was last
// seen at or after cutoff. Activities without a session fall back to their
// own timestamp.
func Retained(acts []activity.ParsedActivity, cutoff time.Time) func(activity.ParsedActivity) bool {
	lastSeen := make(map[string]time.Time)
	for _, a := range acts {
		if a.SessionID != "" && a.Timestamp.After(lastSeen[a.SessionID]) {
			lastSeen[a.SessionID] = a.Timestamp
		}
	}

	return func(a activity.ParsedActivity) bool {
		seen := a.Timestamp
		if a.SessionID != "" {
			seen = lastSeen[a.SessionID]
		}
		return !seen.Before(cutoff)
	}
}
