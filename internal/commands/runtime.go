package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/hay-kot/pulse/internal/core/activity"
	"github.com/hay-kot/pulse/internal/core/history"
	"github.com/hay-kot/pulse/internal/core/session"
	"github.com/hay-kot/pulse/internal/parser"
)

// MaxHistoryEntries bounds the run history file.
const MaxHistoryEntries = 200

// newParser builds a parser from the loaded config and replays the activity
// log so sessions continue across runs.
func (f *Flags) newParser(ctx context.Context, log zerolog.Logger) (*parser.Parser, error) {
	p, err := parser.New(f.Config, log)
	if err != nil {
		return nil, err
	}

	logged, err := f.Activities.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("load activity log: %w", err)
	}

	// sessions last seen beyond the retention age are not revived
	live := session.Live(logged, time.Now().Add(-f.Config.Session.MaxAge))
	p.Replay(live)

	log.Debug().Int("replayed", len(live)).Int("sessions", p.Sessions().Count()).Msg("restored sessions")
	return p, nil
}

// persist appends acts to the activity log and saves the summaries of every
// session they touched.
func (f *Flags) persist(ctx context.Context, p *parser.Parser, acts []activity.ParsedActivity) error {
	if len(acts) == 0 {
		return nil
	}

	if err := f.Activities.Append(ctx, acts...); err != nil {
		return fmt.Errorf("append activities: %w", err)
	}

	seen := map[string]bool{}
	for _, a := range acts {
		if a.SessionID == "" || seen[a.SessionID] {
			continue
		}
		seen[a.SessionID] = true

		sum, ok := p.Sessions().Summary(a.SessionID)
		if !ok {
			continue
		}
		if err := f.Sessions.Save(ctx, sum); err != nil {
			return fmt.Errorf("save session %s: %w", a.SessionID, err)
		}
	}
	return nil
}

// recordRun saves a history entry. Failures are logged, not returned, so a
// broken history file never fails an ingestion run.
func (f *Flags) recordRun(ctx context.Context, log zerolog.Logger, entry history.Entry) {
	if err := f.History.Save(ctx, entry); err != nil {
		log.Warn().Err(err).Str("run_id", entry.ID).Msg("failed to record run history")
	}
}

// runLogger creates a JSON logger writing to logs/<kind>-<id>.log.
func (f *Flags) runLogger(kind, id string) (zerolog.Logger, *os.File, string, error) {
	logsDir := f.Config.LogsDir()
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return zerolog.Logger{}, nil, "", fmt.Errorf("create logs dir: %w", err)
	}

	logPath := filepath.Join(logsDir, fmt.Sprintf("%s-%s.log", kind, id))
	file, err := os.Create(logPath)
	if err != nil {
		return zerolog.Logger{}, nil, "", fmt.Errorf("create log file: %w", err)
	}

	logger := zerolog.New(file).With().Timestamp().Str("run_id", id).Logger()
	return logger, file, logPath, nil
}
