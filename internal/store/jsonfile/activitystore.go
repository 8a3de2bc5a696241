package jsonfile

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/hay-kot/pulse/internal/core/activity"
	"github.com/hay-kot/pulse/internal/core/session"
)

const (
	defaultMaxActivities = 10000
	activityFilename     = "activities.jsonl"
)

// LogEntry is one line of the activity log.
type LogEntry struct {
	ID         string                  `json:"id"`
	RecordedAt time.Time               `json:"recorded_at"`
	Activity   activity.ParsedActivity `json:"activity"`
}

// ActivityStore implements session.ActivityLog using a JSONL file. The file
// is guarded by an flock so several pulse processes can share it.
type ActivityStore struct {
	dir           string
	maxActivities int
	mu            sync.Mutex
	now           func() time.Time
}

// NewActivityStore creates a new activity store at the given directory.
func NewActivityStore(dir string) *ActivityStore {
	return &ActivityStore{
		dir:           dir,
		maxActivities: defaultMaxActivities,
		now:           time.Now,
	}
}

// WithMaxActivities sets the maximum number of activities to retain. Zero
// keeps everything.
func (s *ActivityStore) WithMaxActivities(limit int) *ActivityStore {
	s.maxActivities = limit
	return s
}

func (s *ActivityStore) filePath() string {
	return filepath.Join(s.dir, activityFilename)
}

func (s *ActivityStore) lockPath() string {
	return s.filePath() + ".lock"
}

// withExclusiveLock executes fn while holding an exclusive file lock.
func (s *ActivityStore) withExclusiveLock(fn func() error) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create activity directory: %w", err)
	}

	f, err := os.OpenFile(s.lockPath(), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("acquire file lock: %w", err)
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN) //nolint:errcheck

	return fn()
}

// Append adds activities to the log, dropping the oldest entries beyond the
// retention limit.
func (s *ActivityStore) Append(ctx context.Context, acts ...activity.ParsedActivity) error {
	if len(acts) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withExclusiveLock(func() error {
		entries, err := s.readEntriesUnsafe()
		if err != nil {
			return err
		}

		now := s.now()
		for _, a := range acts {
			entries = append(entries, LogEntry{
				ID:         uuid.NewString(),
				RecordedAt: now,
				Activity:   a,
			})
		}

		if s.maxActivities > 0 && len(entries) > s.maxActivities {
			entries = entries[len(entries)-s.maxActivities:]
		}

		return s.writeEntriesUnsafe(entries)
	})
}

// List returns logged activities oldest first, optionally filtered to one
// session.
func (s *ActivityStore) List(ctx context.Context, sessionID string) ([]activity.ParsedActivity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []activity.ParsedActivity
	err := s.withExclusiveLock(func() error {
		entries, err := s.readEntriesUnsafe()
		if err != nil {
			return err
		}

		for _, e := range entries {
			if sessionID == "" || e.Activity.SessionID == sessionID {
				result = append(result, e.Activity)
			}
		}
		return nil
	})
	return result, err
}

// Prune removes the activities of sessions last seen before cutoff. Sessions
// still active at cutoff keep all of their activities.
func (s *ActivityStore) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	err := s.withExclusiveLock(func() error {
		entries, err := s.readEntriesUnsafe()
		if err != nil {
			return err
		}

		acts := make([]activity.ParsedActivity, len(entries))
		for i, e := range entries {
			acts[i] = e.Activity
		}

		keep := session.Retained(acts, cutoff)

		kept := entries[:0]
		for _, e := range entries {
			if !keep(e.Activity) {
				removed++
				continue
			}
			kept = append(kept, e)
		}

		if removed == 0 {
			return nil
		}
		return s.writeEntriesUnsafe(kept)
	})
	return removed, err
}

// readEntriesUnsafe reads all entries from the file.
// Caller must hold lock.
func (s *ActivityStore) readEntriesUnsafe() ([]LogEntry, error) {
	f, err := os.Open(s.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open activity file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	var entries []LogEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)
	for scanner.Scan() {
		var e LogEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			// Skip malformed lines
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read activity file: %w", err)
	}

	return entries, nil
}

// writeEntriesUnsafe writes all entries to the file.
// Caller must hold lock.
func (s *ActivityStore) writeEntriesUnsafe(entries []LogEntry) error {
	tmpPath := s.filePath() + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			f.Close() //nolint:errcheck
			_ = os.Remove(tmpPath)
			return fmt.Errorf("write activity: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		f.Close() //nolint:errcheck
		_ = os.Remove(tmpPath)
		return fmt.Errorf("flush activities: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.filePath()); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}
