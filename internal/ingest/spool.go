package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/hay-kot/pulse/internal/core/activity"
)

const spoolExt = ".jsonl"

// Handler receives the records decoded from one read of a spool file.
type Handler func(ctx context.Context, file string, records []activity.RawRecord) error

// Checkpoints persists consumed offsets across runs.
type Checkpoints interface {
	Offsets(ctx context.Context) (map[string]int64, error)
	SetOffset(ctx context.Context, file string, offset int64) error
	Forget(ctx context.Context, file string) error
}

// Spool tails every *.jsonl file in a directory. Only complete lines are
// consumed; a partially written trailing line is read once its newline lands.
type Spool struct {
	dir         string
	log         zerolog.Logger
	offsets     map[string]int64
	checkpoints Checkpoints
	restored    bool
}

// NewSpool creates a tailer for dir.
func NewSpool(dir string, log zerolog.Logger) *Spool {
	return &Spool{dir: filepath.Clean(dir), log: log, offsets: map[string]int64{}}
}

// WithCheckpoints makes the spool resume from and record consumed offsets.
func (s *Spool) WithCheckpoints(cp Checkpoints) *Spool {
	s.checkpoints = cp
	return s
}

func (s *Spool) restore(ctx context.Context) error {
	if s.restored || s.checkpoints == nil {
		return nil
	}
	offsets, err := s.checkpoints.Offsets(ctx)
	if err != nil {
		return fmt.Errorf("load checkpoints: %w", err)
	}
	for k, v := range offsets {
		s.offsets[k] = v
	}
	s.restored = true
	s.log.Debug().Int("files", len(offsets)).Msg("restored spool checkpoints")
	return nil
}

// Offsets returns the byte offset consumed so far per file.
func (s *Spool) Offsets() map[string]int64 {
	out := make(map[string]int64, len(s.offsets))
	for k, v := range s.offsets {
		out[k] = v
	}
	return out
}

// Drain reads all complete lines not yet consumed from every spool file.
func (s *Spool) Drain(ctx context.Context, handle Handler) error {
	if err := s.restore(ctx); err != nil {
		return err
	}

	files, err := filepath.Glob(filepath.Join(s.dir, "*"+spoolExt))
	if err != nil {
		return fmt.Errorf("list spool files: %w", err)
	}
	slices.Sort(files)

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.readFile(ctx, f, handle); err != nil {
			return err
		}
	}
	return nil
}

// Run drains the spool and then follows it until ctx is cancelled. Handler
// errors stop the tailer.
func (s *Spool) Run(ctx context.Context, handle Handler) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create spool directory: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	if err := fsw.Add(s.dir); err != nil {
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}

	if err := s.Drain(ctx, handle); err != nil {
		return stopped(ctx, err)
	}

	s.log.Info().Str("dir", s.dir).Msg("watching spool")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if err := s.handleEvent(ctx, event, handle); err != nil {
				return stopped(ctx, err)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			s.log.Warn().Err(err).Msg("watcher error")
		}
	}
}

// stopped maps an error caused by ctx being canceled to a clean stop. The
// interrupted batch keeps its offset and is read again on the next run.
func stopped(ctx context.Context, err error) error {
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Spool) handleEvent(ctx context.Context, event fsnotify.Event, handle Handler) error {
	if !strings.HasSuffix(event.Name, spoolExt) {
		return nil
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		delete(s.offsets, event.Name)
		s.log.Debug().Str("file", event.Name).Msg("spool file removed")
		if s.checkpoints != nil {
			return s.checkpoints.Forget(ctx, event.Name)
		}
		return nil
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		return s.readFile(ctx, event.Name, handle)
	default:
		return nil
	}
}

func (s *Spool) readFile(ctx context.Context, path string, handle Handler) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open spool file: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat spool file: %w", err)
	}

	offset := s.offsets[path]
	if info.Size() < offset {
		// truncated, start over
		s.log.Debug().Str("file", path).Msg("spool file truncated")
		offset = 0
	}

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek spool file: %w", err)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read spool file: %w", err)
	}

	end := bytes.LastIndexByte(data, '\n')
	if end < 0 {
		s.offsets[path] = offset
		return nil
	}
	data = data[:end+1]

	var records []activity.RawRecord
	for line := range bytes.SplitSeq(data, []byte{'\n'}) {
		rec, ok, err := DecodeLine(line)
		if err != nil {
			s.log.Warn().Err(err).Str("file", path).Msg("skipping malformed line")
			continue
		}
		if ok {
			records = append(records, rec)
		}
	}

	next := offset + int64(len(data))
	if len(records) > 0 {
		if err := handle(ctx, path, records); err != nil {
			return err
		}
	}
	s.offsets[path] = next

	if s.checkpoints != nil {
		if err := s.checkpoints.SetOffset(ctx, path, next); err != nil {
			return fmt.Errorf("save checkpoint: %w", err)
		}
	}
	return nil
}
