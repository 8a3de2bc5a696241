package doctor

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
)

// Checkpoints is the subset of the checkpoint store the doctor needs.
type Checkpoints interface {
	Offsets(ctx context.Context) (map[string]int64, error)
	Forget(ctx context.Context, file string) error
}

// CheckpointCheck detects spool checkpoints pointing at files that were
// removed or truncated below the recorded offset.
type CheckpointCheck struct {
	checkpoints Checkpoints
	fix         bool
}

// NewCheckpointCheck creates a new spool checkpoint check.
// If fix is true, stale checkpoints are forgotten.
func NewCheckpointCheck(cp Checkpoints, fix bool) *CheckpointCheck {
	return &CheckpointCheck{checkpoints: cp, fix: fix}
}

func (c *CheckpointCheck) Name() string {
	return "Spool Checkpoints"
}

func (c *CheckpointCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	offsets, err := c.checkpoints.Offsets(ctx)
	if err != nil {
		result.fail("Read checkpoints", err)
		return result
	}

	stale := map[string]string{}
	for file, off := range offsets {
		info, err := os.Stat(file)
		switch {
		case os.IsNotExist(err):
			stale[file] = "file no longer exists"
		case err != nil:
			stale[file] = err.Error()
		case info.Size() < off:
			stale[file] = fmt.Sprintf("file is %d bytes, checkpoint at %d", info.Size(), off)
		}
	}

	if len(stale) == 0 {
		result.add(StatusPass, "Checkpoints current", fmt.Sprintf("%d file(s) tracked", len(offsets)))
		return result
	}

	for _, file := range slices.Sorted(maps.Keys(stale)) {
		result.repair(ctx, c.fix, filepath.Base(file), stale[file], "forgot stale checkpoint",
			func(ctx context.Context) error { return c.checkpoints.Forget(ctx, file) })
	}

	return result
}
