// Package history records parse and watch runs so past ingestion can be
// inspected after the fact.
package history

import (
	"fmt"
	"strings"
	"time"
)

// Status summarizes how a run ended.
type Status string

const (
	StatusOK      Status = "ok"
	StatusPartial Status = "partial" // some records failed classification
	StatusError   Status = "error"
)

// Entry records one ingestion run.
type Entry struct {
	ID        string        `json:"id"`
	Command   string        `json:"command"`
	Sources   []string      `json:"sources,omitempty"` // input files or spool dir, "-" for stdin
	Records   int           `json:"records"`
	Accepted  int           `json:"accepted"`
	Rejected  int           `json:"rejected"`
	Failed    int           `json:"failed"`
	Sessions  int           `json:"sessions"`
	LogFile   string        `json:"log_file,omitempty"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Elapsed   time.Duration `json:"elapsed"`
}

func (e *Entry) Status() Status {
	switch {
	case e.Error != "":
		return StatusError
	case e.Failed > 0:
		return StatusPartial
	default:
		return StatusOK
	}
}

// CommandString returns the command with its sources.
func (e *Entry) CommandString() string {
	if len(e.Sources) == 0 {
		return e.Command
	}
	return e.Command + " " + strings.Join(e.Sources, " ")
}

// AcceptRate returns the accepted share of records as a percentage string.
func (e *Entry) AcceptRate() string {
	if e.Records == 0 {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", float64(e.Accepted)/float64(e.Records)*100)
}

// Query narrows a history listing. The zero value matches every entry.
type Query struct {
	Command string // "parse" or "watch"; empty matches both
	Status  Status // empty matches any status
	Limit   int    // 0 means no limit
}

// Match reports whether e satisfies the query filters. Limit is applied by
// the store.
func (q Query) Match(e Entry) bool {
	if q.Command != "" && e.Command != q.Command {
		return false
	}
	if q.Status != "" && e.Status() != q.Status {
		return false
	}
	return true
}
