package history

import (
	"context"
	"errors"
)

var (
	ErrNotFound  = errors.New("history entry not found")
	ErrAmbiguous = errors.New("history id prefix matches more than one run")
)

// Store persists run history, newest first.
type Store interface {
	// List returns entries matching q, newest first.
	List(ctx context.Context, q Query) ([]Entry, error)
	// Get returns the entry whose ID equals id or, failing that, the single
	// entry whose ID starts with id.
	Get(ctx context.Context, id string) (Entry, error)
	// Save prepends entry, dropping the oldest entries past the store's cap.
	Save(ctx context.Context, entry Entry) error
	// Clear removes every entry.
	Clear(ctx context.Context) error
}
