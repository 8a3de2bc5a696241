// Package jsonfile provides JSON file-based stores for session summaries,
// the parsed activity log, run history and spool checkpoints.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/hay-kot/pulse/internal/core/session"
)

// SessionFile is the root JSON structure stored on disk.
type SessionFile struct {
	Sessions []session.Summary `json:"sessions"`
}

// Store implements session.Store using a JSON file for persistence.
type Store struct {
	path string
	mu   sync.RWMutex
}

// New creates a new JSON file store at the given path.
func New(path string) *Store {
	return &Store{path: path}
}

// List returns all summaries, most recently active first.
func (s *Store) List(ctx context.Context) ([]session.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.load()
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(file.Sessions, func(a, b session.Summary) int {
		return b.LastSeen().Compare(a.LastSeen())
	})
	return file.Sessions, nil
}

// Get returns a summary by session ID. Returns ErrNotFound if not found.
func (s *Store) Get(ctx context.Context, sessionID string) (session.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.load()
	if err != nil {
		return session.Summary{}, err
	}

	for _, sum := range file.Sessions {
		if sum.SessionID == sessionID {
			return sum, nil
		}
	}

	return session.Summary{}, session.ErrNotFound
}

// Save creates or replaces the summary for its session.
func (s *Store) Save(ctx context.Context, sum session.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return err
	}

	idx := slices.IndexFunc(file.Sessions, func(existing session.Summary) bool {
		return existing.SessionID == sum.SessionID
	})
	if idx >= 0 {
		file.Sessions[idx] = sum
	} else {
		file.Sessions = append(file.Sessions, sum)
	}

	return s.save(file)
}

// Delete removes a summary by session ID. Returns ErrNotFound if not found.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return err
	}

	for i, sum := range file.Sessions {
		if sum.SessionID == sessionID {
			file.Sessions = append(file.Sessions[:i], file.Sessions[i+1:]...)
			return s.save(file)
		}
	}

	return session.ErrNotFound
}

// DeleteOlderThan removes summaries last seen before cutoff.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return nil, err
	}

	var removed []string
	file.Sessions = slices.DeleteFunc(file.Sessions, func(sum session.Summary) bool {
		if sum.LastSeen().Before(cutoff) {
			removed = append(removed, sum.SessionID)
			return true
		}
		return false
	})

	if len(removed) == 0 {
		return nil, nil
	}
	return removed, s.save(file)
}

// load reads the session file from disk.
// Returns empty SessionFile if file doesn't exist.
func (s *Store) load() (SessionFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return SessionFile{}, nil
		}
		return SessionFile{}, fmt.Errorf("read sessions file: %w", err)
	}

	if len(data) == 0 {
		return SessionFile{}, nil
	}

	var file SessionFile
	if err := json.Unmarshal(data, &file); err != nil {
		return SessionFile{}, fmt.Errorf("parse sessions file: %w", err)
	}

	return file, nil
}

// save writes the session file to disk atomically.
// Uses write-to-temp-then-rename to prevent corruption from interrupted writes.
func (s *Store) save(file SessionFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create sessions directory: %w", err)
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sessions: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
