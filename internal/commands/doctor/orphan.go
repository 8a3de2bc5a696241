package doctor

import (
	"context"
	"fmt"
	"slices"

	"github.com/hay-kot/pulse/internal/core/session"
)

// OrphanCheck detects stored session summaries whose activities are no longer
// in the activity log. Such summaries cannot be rebuilt and are left behind
// when the log is pruned or trimmed separately.
type OrphanCheck struct {
	sessions   session.Store
	activities session.ActivityLog
	fix        bool
}

// NewOrphanCheck creates a new orphan summary check.
// If fix is true, orphaned summaries will be deleted.
func NewOrphanCheck(sessions session.Store, activities session.ActivityLog, fix bool) *OrphanCheck {
	return &OrphanCheck{
		sessions:   sessions,
		activities: activities,
		fix:        fix,
	}
}

func (c *OrphanCheck) Name() string {
	return "Orphan Sessions"
}

func (c *OrphanCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	sums, err := c.sessions.List(ctx)
	if err != nil {
		result.fail("List sessions", err)
		return result
	}

	acts, err := c.activities.List(ctx, "")
	if err != nil {
		result.fail("Read activity log", err)
		return result
	}

	logged := make(map[string]bool)
	for _, a := range acts {
		logged[a.SessionID] = true
	}

	var orphans []string
	for _, s := range sums {
		if !logged[s.SessionID] {
			orphans = append(orphans, s.SessionID)
		}
	}
	slices.Sort(orphans)

	if len(orphans) == 0 {
		result.add(StatusPass, "No orphans", fmt.Sprintf("%d session(s) backed by the activity log", len(sums)))
		return result
	}

	for _, id := range orphans {
		result.repair(ctx, c.fix, id, "summary has no logged activities", "deleted orphaned summary",
			func(ctx context.Context) error { return c.sessions.Delete(ctx, id) })
	}

	return result
}
