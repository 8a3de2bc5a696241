package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"
)

// Checkpoint is the consumed byte offset of one spool file.
type Checkpoint struct {
	File      string    `json:"file"`
	Offset    int64     `json:"offset"`
	UpdatedAt time.Time `json:"updated_at"`
}

// checkpointFile is the root JSON structure stored on disk.
type checkpointFile struct {
	Checkpoints map[string]Checkpoint `json:"checkpoints"`
}

// CheckpointStore persists spool offsets so a restarted watcher resumes where
// the previous one stopped.
type CheckpointStore struct {
	path string
	mu   sync.RWMutex
}

// NewCheckpointStore creates a new checkpoint store at the given path.
func NewCheckpointStore(path string) *CheckpointStore {
	return &CheckpointStore{path: path}
}

func (s *CheckpointStore) lockPath() string {
	return s.path + ".lock"
}

// withFileLock acquires a file lock, executes fn, then releases the lock.
func (s *CheckpointStore) withFileLock(lockType int, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	f, err := os.OpenFile(s.lockPath(), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	if err := syscall.Flock(int(f.Fd()), lockType); err != nil {
		return fmt.Errorf("acquire file lock: %w", err)
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN) //nolint:errcheck

	return fn()
}

// Offsets returns the stored offset per file.
func (s *CheckpointStore) Offsets(ctx context.Context) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := map[string]int64{}
	err := s.withFileLock(syscall.LOCK_SH, func() error {
		file, err := s.load()
		if err != nil {
			return err
		}
		for k, cp := range file.Checkpoints {
			out[k] = cp.Offset
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetOffset records the consumed offset of a file.
func (s *CheckpointStore) SetOffset(ctx context.Context, file string, offset int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withFileLock(syscall.LOCK_EX, func() error {
		f, err := s.load()
		if err != nil {
			return err
		}
		f.Checkpoints[file] = Checkpoint{File: file, Offset: offset, UpdatedAt: time.Now()}
		return s.save(f)
	})
}

// Forget removes the checkpoint of a file. Unknown files are ignored.
func (s *CheckpointStore) Forget(ctx context.Context, file string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withFileLock(syscall.LOCK_EX, func() error {
		f, err := s.load()
		if err != nil {
			return err
		}
		if _, ok := f.Checkpoints[file]; !ok {
			return nil
		}
		delete(f.Checkpoints, file)
		return s.save(f)
	})
}

// load reads the checkpoint file from disk.
// Returns an empty file if it doesn't exist.
func (s *CheckpointStore) load() (checkpointFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return checkpointFile{Checkpoints: map[string]Checkpoint{}}, nil
		}
		return checkpointFile{}, err
	}

	if len(data) == 0 {
		return checkpointFile{Checkpoints: map[string]Checkpoint{}}, nil
	}

	var file checkpointFile
	if err := json.Unmarshal(data, &file); err != nil {
		return checkpointFile{}, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if file.Checkpoints == nil {
		file.Checkpoints = map[string]Checkpoint{}
	}
	return file, nil
}

// save writes the checkpoint file to disk atomically.
func (s *CheckpointStore) save(file checkpointFile) error {
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}

	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
