// Package doctor runs health checks over the pulse configuration and data
// directory. Checks that find repairable problems can optionally fix them.
package doctor

import (
	"context"
	"fmt"
)

// Status is the outcome of a single check item.
type Status int

const (
	StatusPass Status = iota
	StatusWarn
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// MarshalText renders the status by name in JSON output.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CheckItem is one finding reported by a check.
type CheckItem struct {
	Label   string `json:"label"`
	Status  Status `json:"status"`
	Detail  string `json:"detail,omitempty"`
	Fixable bool   `json:"fixable,omitempty"`
}

// Result groups the findings of one check.
type Result struct {
	Name  string      `json:"name"`
	Items []CheckItem `json:"items"`
}

func (r *Result) add(status Status, label, detail string) {
	r.Items = append(r.Items, CheckItem{Label: label, Status: status, Detail: detail})
}

func (r *Result) fail(label string, err error) {
	r.add(StatusFail, label, err.Error())
}

// repair reports a problem at label. Without fix the problem is recorded as a
// fixable warning. With fix, apply runs and the item records whether it
// succeeded.
func (r *Result) repair(ctx context.Context, fix bool, label, problem, fixed string, apply func(context.Context) error) {
	if !fix {
		r.Items = append(r.Items, CheckItem{
			Label:   label,
			Status:  StatusWarn,
			Detail:  problem,
			Fixable: true,
		})
		return
	}

	if err := apply(ctx); err != nil {
		r.add(StatusFail, label, fmt.Sprintf("%s: %v", problem, err))
		return
	}
	r.add(StatusPass, label, fixed)
}

// Check is a single diagnostic.
type Check interface {
	Name() string
	Run(ctx context.Context) Result
}

// RunAll runs the checks in order. A check that panics is reported as a
// failed result and the remaining checks still run.
func RunAll(ctx context.Context, checks []Check) []Result {
	results := make([]Result, 0, len(checks))
	for _, check := range checks {
		results = append(results, run(ctx, check))
	}
	return results
}

func run(ctx context.Context, check Check) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Name: check.Name()}
			res.add(StatusFail, "check crashed", fmt.Sprint(r))
		}
	}()
	return check.Run(ctx)
}

// Tally counts check items by status. Fixable counts only items that are
// still warning or failing.
type Tally struct {
	Passed  int `json:"passed"`
	Warned  int `json:"warned"`
	Failed  int `json:"failed"`
	Fixable int `json:"fixable"`
}

// Healthy reports whether no item failed.
func (t Tally) Healthy() bool {
	return t.Failed == 0
}

// Count tallies every item across results.
func Count(results []Result) Tally {
	var t Tally
	for _, r := range results {
		for _, item := range r.Items {
			switch item.Status {
			case StatusPass:
				t.Passed++
				continue
			case StatusWarn:
				t.Warned++
			case StatusFail:
				t.Failed++
			}
			if item.Fixable {
				t.Fixable++
			}
		}
	}
	return t
}
