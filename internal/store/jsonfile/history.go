package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hay-kot/pulse/internal/core/history"
)

type historyFile struct {
	Entries []history.Entry `json:"entries"`
}

// HistoryStore implements history.Store on a single JSON file. Entries are
// kept newest first and capped at maxEntries.
type HistoryStore struct {
	path       string
	maxEntries int
	mu         sync.RWMutex
}

// NewHistoryStore creates a history store at path. A maxEntries of 0 keeps
// every entry.
func NewHistoryStore(path string, maxEntries int) *HistoryStore {
	return &HistoryStore{path: path, maxEntries: maxEntries}
}

func (s *HistoryStore) List(ctx context.Context, q history.Query) ([]history.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := s.load()
	if err != nil {
		return nil, err
	}

	out := make([]history.Entry, 0, len(f.Entries))
	for _, e := range f.Entries {
		if !q.Match(e) {
			continue
		}
		out = append(out, e)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (s *HistoryStore) Get(ctx context.Context, id string) (history.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := s.load()
	if err != nil {
		return history.Entry{}, err
	}

	for _, e := range f.Entries {
		if e.ID == id {
			return e, nil
		}
	}

	var match *history.Entry
	for i := range f.Entries {
		if id == "" || !strings.HasPrefix(f.Entries[i].ID, id) {
			continue
		}
		if match != nil {
			return history.Entry{}, fmt.Errorf("%q: %w", id, history.ErrAmbiguous)
		}
		match = &f.Entries[i]
	}

	if match == nil {
		return history.Entry{}, fmt.Errorf("%q: %w", id, history.ErrNotFound)
	}
	return *match, nil
}

func (s *HistoryStore) Save(ctx context.Context, entry history.Entry) error {
	return s.update(func(f *historyFile) {
		f.Entries = append([]history.Entry{entry}, f.Entries...)
		if s.maxEntries > 0 && len(f.Entries) > s.maxEntries {
			f.Entries = f.Entries[:s.maxEntries]
		}
	})
}

func (s *HistoryStore) Clear(ctx context.Context) error {
	return s.update(func(f *historyFile) {
		f.Entries = []history.Entry{}
	})
}

func (s *HistoryStore) update(fn func(*historyFile)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return err
	}
	fn(&f)
	return s.save(f)
}

func (s *HistoryStore) load() (historyFile, error) {
	data, err := os.ReadFile(s.path)
	switch {
	case os.IsNotExist(err):
		return historyFile{}, nil
	case err != nil:
		return historyFile{}, fmt.Errorf("read history file: %w", err)
	case len(data) == 0:
		return historyFile{}, nil
	}

	var f historyFile
	if err := json.Unmarshal(data, &f); err != nil {
		return historyFile{}, fmt.Errorf("history file corrupted (run 'pulse history --clear' to reset): %w", err)
	}
	return f, nil
}

func (s *HistoryStore) save(f historyFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write history temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename history file: %w", err)
	}
	return nil
}
