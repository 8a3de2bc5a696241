// Package quality scores how trustworthy and complete a raw record is.
package quality

import (
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/hay-kot/pulse/internal/core/activity"
	"github.com/hay-kot/pulse/internal/core/config"
)

// Sub-score weights. A sub-score whose input is absent is left out and its
// weight is excluded from normalisation.
const (
	weightCompleteness = 0.2
	weightText         = 0.3
	weightContext      = 0.2
	weightTemporal     = 0.2
	weightAnomaly      = 0.1
)

// Anomaly names reported in Report.Anomalies.
const (
	AnomalyPassword        = "password"
	AnomalySSN             = "ssn"
	AnomalyEmail           = "email"
	AnomalyCreditCard      = "credit_card"
	AnomalyPrivateKey      = "private_key"
	AnomalyKeystrokeRate   = "keystroke_rate"
	AnomalyMouseWithText   = "mouse_with_text"
	AnomalyMissingIdentity = "missing_identity"
)

var sensitivePatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{AnomalyPassword, regexp.MustCompile(`(?i)\b(password|passwd|pwd|secret|api[_-]?key|token)\s*[:=]\s*\S+`)},
	{AnomalySSN, regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{AnomalyEmail, regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)},
	{AnomalyCreditCard, regexp.MustCompile(`\b(?:\d{4}[- ]?){3}\d{4}\b`)},
	{AnomalyPrivateKey, regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----`)},
}

var (
	consonantRun = regexp.MustCompile(`(?i)[bcdfghjklmnpqrstvwxz]{6,}`)
	sentenceLike = regexp.MustCompile(`^\p{Lu}.*[.!?。！？]$`)
)

// keystroke rate payload keys, in keys per minute.
var rateKeys = []string{"keys_per_minute", "keystrokes_per_minute", "kpm"}

// Components holds the individual sub-scores. Nil means the sub-score was
// omitted because its input was absent.
type Components struct {
	Completeness float64  `json:"completeness"`
	Text         *float64 `json:"text,omitempty"`
	Context      *float64 `json:"context,omitempty"`
	Temporal     *float64 `json:"temporal,omitempty"`
	AnomalyFree  float64  `json:"anomaly_free"`
}

// Report is the full result of analysing one record.
type Report struct {
	Score      float64    `json:"score"`
	Components Components `json:"components"`
	Anomalies  []string   `json:"anomalies,omitempty"`
}

// Analyzer computes quality scores. It never fails: absent or malformed
// fields only lower the score.
type Analyzer struct {
	cfg     config.QualityConfig
	history *History
	now     func() time.Time
}

// NewAnalyzer creates an analyzer. history may be shared across analyzers so
// the rolling average survives configuration swaps; nil disables recording.
func NewAnalyzer(cfg config.QualityConfig, history *History) *Analyzer {
	return &Analyzer{cfg: cfg, history: history, now: time.Now}
}

// WithClock overrides the time source used for temporal checks.
func (a *Analyzer) WithClock(now func() time.Time) *Analyzer {
	a.now = now
	return a
}

// Score returns the quality score for raw in [0,1].
func (a *Analyzer) Score(raw activity.RawRecord) float64 {
	return a.Analyze(raw).Score
}

// Analyze scores raw and records the score in the rolling history.
func (a *Analyzer) Analyze(raw activity.RawRecord) Report {
	var (
		rep         Report
		weighted    float64
		totalWeight float64
	)

	add := func(score, weight float64) {
		weighted += score * weight
		totalWeight += weight
	}

	rep.Components.Completeness = completeness(raw)
	add(rep.Components.Completeness, weightCompleteness)

	if raw.Text != "" {
		s := a.textQuality(raw.Text)
		rep.Components.Text = &s
		add(s, weightText)
	}

	if raw.Context != nil {
		s := contextQuality(raw.Context)
		rep.Components.Context = &s
		add(s, weightContext)
	}

	if raw.Timestamp > 0 {
		s := a.temporal(raw.Timestamp)
		rep.Components.Temporal = &s
		add(s, weightTemporal)
	}

	rep.Anomalies = a.anomalies(raw)
	rep.Components.AnomalyFree = anomalyScore(len(rep.Anomalies))
	add(rep.Components.AnomalyFree, weightAnomaly)

	score := weighted / totalWeight

	// Records missing identity fields cannot be attributed to a device or
	// session, so the average is scaled by the identity fraction present.
	if identity := identityFraction(raw); identity < 1 {
		score *= identity
		rep.Anomalies = append(rep.Anomalies, AnomalyMissingIdentity)
	}

	rep.Score = clamp01(score)

	if a.history != nil {
		a.history.Record(rep.Score)
	}

	return rep
}

func identityFraction(raw activity.RawRecord) float64 {
	present := 0
	for _, ok := range []bool{
		raw.ID != "",
		raw.Timestamp > 0,
		raw.DeviceID != "",
		raw.SessionID != "",
		raw.Type.Valid(),
	} {
		if ok {
			present++
		}
	}
	return float64(present) / 5
}

// completeness counts identity fields fully and optional fields at half weight.
func completeness(raw activity.RawRecord) float64 {
	var have float64
	const total = 5 + 3*0.5

	have += identityFraction(raw) * 5
	if len(raw.Data) > 0 {
		have += 0.5
	}
	if raw.Text != "" {
		have += 0.5
	}
	if raw.Context != nil {
		have += 0.5
	}
	return have / total
}

func (a *Analyzer) textQuality(text string) float64 {
	score := 0.8
	trimmed := strings.TrimSpace(text)

	if len([]rune(trimmed)) < a.cfg.MinTextLength {
		score -= 0.5
	}
	if isRepetitive(trimmed) {
		score -= 0.3
	}
	if isGibberish(trimmed) {
		score -= 0.4
	}
	if sentenceLike.MatchString(trimmed) {
		score += 0.2
	}
	return clamp01(score)
}

// isRepetitive reports a run of five identical characters or more than half
// of the words being repeats.
func isRepetitive(text string) bool {
	var (
		prev rune
		run  int
	)
	for _, r := range text {
		if r == prev && !unicode.IsSpace(r) {
			run++
			if run >= 5 {
				return true
			}
		} else {
			prev, run = r, 1
		}
	}

	words := strings.Fields(strings.ToLower(text))
	if len(words) < 4 {
		return false
	}
	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[w] = struct{}{}
	}
	duplicates := len(words) - len(unique)
	return float64(duplicates)/float64(len(words)) > 0.5
}

// isGibberish flags long consonant runs or a vowel ratio under 10% among
// Latin letters. Text without Latin letters is never gibberish here.
func isGibberish(text string) bool {
	if consonantRun.MatchString(text) {
		return true
	}

	var letters, vowels int
	for _, r := range strings.ToLower(text) {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			continue
		}
		letters++
		if strings.ContainsRune("aeiouy", r) {
			vowels++
		}
	}
	if letters < 5 {
		return false
	}
	return float64(vowels)/float64(letters) < 0.1
}

func contextQuality(ctx *activity.AppContext) float64 {
	score := 0.5
	if ctx.Application != "" {
		score += 0.25
	}
	if ctx.WindowTitle != "" {
		score += 0.25
	}
	if ctx.URL != "" && !validURL(ctx.URL) {
		score -= 0.3
	}
	return clamp01(score)
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}

func (a *Analyzer) temporal(ts int64) float64 {
	now := a.now()
	at := time.UnixMilli(ts)

	switch {
	case at.After(now):
		return 0.3
	case now.Sub(at) > 24*time.Hour:
		return 0.7
	default:
		return 1.0
	}
}

func (a *Analyzer) anomalies(raw activity.RawRecord) []string {
	var found []string

	if raw.Text != "" {
		for _, p := range sensitivePatterns {
			if p.re.MatchString(raw.Text) {
				found = append(found, p.name)
			}
		}
	}

	if a.cfg.MaxKeysPerMinute > 0 {
		for _, key := range rateKeys {
			if v, ok := number(raw.Data[key]); ok && v > float64(a.cfg.MaxKeysPerMinute) {
				found = append(found, AnomalyKeystrokeRate)
				break
			}
		}
	}

	if raw.Type == activity.RecordMouse && raw.Text != "" {
		found = append(found, AnomalyMouseWithText)
	}

	return found
}

func anomalyScore(count int) float64 {
	if count == 0 {
		return 1.0
	}
	return max(0.3, 1-0.2*float64(count))
}

func clamp01(v float64) float64 {
	return min(1, max(0, v))
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}
