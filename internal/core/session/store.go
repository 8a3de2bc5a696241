package session

import (
	"context"
	"errors"
	"time"

	"github.com/hay-kot/pulse/internal/core/activity"
)

// Sentinel errors for session operations.
var ErrNotFound = errors.New("session not found")

// Store defines persistence operations for session summaries.
type Store interface {
	// List returns all stored summaries.
	List(ctx context.Context) ([]Summary, error)
	// Get returns a summary by session ID. Returns ErrNotFound if not found.
	Get(ctx context.Context, sessionID string) (Summary, error)
	// Save creates or replaces the summary for its session.
	Save(ctx context.Context, s Summary) error
	// Delete removes a summary by session ID. Returns ErrNotFound if not found.
	Delete(ctx context.Context, sessionID string) error
	// DeleteOlderThan removes summaries last seen before cutoff and returns
	// their session IDs.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, error)
}

// ActivityLog is an append-only log of classified activities.
type ActivityLog interface {
	// Append adds activities to the log in order.
	Append(ctx context.Context, acts ...activity.ParsedActivity) error
	// List returns logged activities, oldest first. An empty sessionID
	// returns every session.
	List(ctx context.Context, sessionID string) ([]activity.ParsedActivity, error)
	// Prune removes activities older than cutoff and returns how many were
	// removed.
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}
