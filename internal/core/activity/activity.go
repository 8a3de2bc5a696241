// Package activity defines the raw telemetry record consumed by the parser and
// the classified activity it produces.
package activity

import "time"

// RecordType is the kind of raw input event delivered by the capture layer.
type RecordType string

const (
	RecordKeyboard    RecordType = "keyboard"
	RecordMouse       RecordType = "mouse"
	RecordWindow      RecordType = "window"
	RecordApplication RecordType = "application"
)

// Valid reports whether t is one of the known record types.
func (t RecordType) Valid() bool {
	switch t {
	case RecordKeyboard, RecordMouse, RecordWindow, RecordApplication:
		return true
	default:
		return false
	}
}

// AppContext describes the foreground application when the event was captured.
type AppContext struct {
	Application string `json:"application,omitempty" yaml:"application,omitempty"`
	WindowTitle string `json:"window_title,omitempty" yaml:"window_title,omitempty"`
	ProcessName string `json:"process_name,omitempty" yaml:"process_name,omitempty"`
	URL         string `json:"url,omitempty" yaml:"url,omitempty"`
}

// RawRecord is a single unit of upstream telemetry. Timestamp is epoch
// milliseconds. Data is the type specific payload as decoded from JSON.
type RawRecord struct {
	ID        string         `json:"id"`
	Timestamp int64          `json:"timestamp"`
	DeviceID  string         `json:"device_id"`
	SessionID string         `json:"session_id"`
	Type      RecordType     `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
	Text      string         `json:"text,omitempty"`
	Context   *AppContext    `json:"context,omitempty"`
}

// Time returns the record timestamp as a time.Time in UTC.
func (r RawRecord) Time() time.Time {
	return time.UnixMilli(r.Timestamp).UTC()
}

// Application returns the application name or an empty string.
func (r RawRecord) Application() string {
	if r.Context == nil {
		return ""
	}
	return r.Context.Application
}

// WindowTitle returns the window title or an empty string.
func (r RawRecord) WindowTitle() string {
	if r.Context == nil {
		return ""
	}
	return r.Context.WindowTitle
}

// URL returns the context URL or an empty string.
func (r RawRecord) URL() string {
	if r.Context == nil {
		return ""
	}
	return r.Context.URL
}

// Type is the behavioural kind of a classified activity.
type Type string

const (
	TypeTyping        Type = "typing"
	TypeClicking      Type = "clicking"
	TypeScrolling     Type = "scrolling"
	TypeReading       Type = "reading"
	TypeCoding        Type = "coding"
	TypeBrowsing      Type = "browsing"
	TypeCommunicating Type = "communicating"
	TypeDocumenting   Type = "documenting"
	TypeIdle          Type = "idle"
)

// Types lists every activity type.
var Types = []Type{
	TypeTyping, TypeClicking, TypeScrolling, TypeReading, TypeCoding,
	TypeBrowsing, TypeCommunicating, TypeDocumenting, TypeIdle,
}

// Valid reports whether t is a known activity type.
func (t Type) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// Category is the productivity classification of an activity.
type Category string

const (
	CategoryProductive    Category = "productive"
	CategoryNeutral       Category = "neutral"
	CategoryDistracting   Category = "distracting"
	CategoryBreak         Category = "break"
	CategoryCommunication Category = "communication"
	CategoryLearning      Category = "learning"
	CategoryEntertainment Category = "entertainment"
)

// Categories lists every category in dominance priority order, highest first.
var Categories = []Category{
	CategoryProductive,
	CategoryLearning,
	CategoryCommunication,
	CategoryNeutral,
	CategoryEntertainment,
	CategoryDistracting,
	CategoryBreak,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c.Rank() >= 0
}

// Rank returns the position of c in Categories, or -1 when unknown. Lower
// ranks win ties when picking a dominant category.
func (c Category) Rank() int {
	for i, known := range Categories {
		if c == known {
			return i
		}
	}
	return -1
}

// Content is the structured content derived from a record.
type Content struct {
	Text      string            `json:"text,omitempty"`
	Language  string            `json:"language,omitempty"`
	Keywords  []string          `json:"keywords,omitempty"`
	Actions   []string          `json:"actions,omitempty"`
	Files     []string          `json:"files,omitempty"`
	URLs      []string          `json:"urls,omitempty"`
	Extracted map[string]string `json:"extracted,omitempty"`
}

// Metadata carries classification diagnostics.
type Metadata struct {
	QualityScore float64  `json:"quality_score"`
	RulesApplied []string `json:"rules_applied,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Anomalies    []string `json:"anomalies,omitempty"`
}

// ParsedActivity is a classified activity. Duration is in milliseconds and is
// nil when no duration could be inferred.
type ParsedActivity struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	DeviceID     string    `json:"device_id"`
	SessionID    string    `json:"session_id"`
	Type         Type      `json:"type"`
	Category     Category  `json:"category"`
	Duration     *int64    `json:"duration,omitempty"`
	Application  string    `json:"application,omitempty"`
	WindowTitle  string    `json:"window_title,omitempty"`
	Content      Content   `json:"content"`
	Metadata     Metadata  `json:"metadata"`
	QualityScore float64   `json:"quality_score"`
}

// DurationMillis returns the inferred duration or zero when absent.
func (a ParsedActivity) DurationMillis() int64 {
	if a.Duration == nil {
		return 0
	}
	return *a.Duration
}

// WithDuration returns a copy of a carrying the given duration.
func (a ParsedActivity) WithDuration(ms int64) ParsedActivity {
	a.Duration = &ms
	return a
}
