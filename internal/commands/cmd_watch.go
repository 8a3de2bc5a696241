package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/pulse/internal/core/activity"
	"github.com/hay-kot/pulse/internal/core/config"
	"github.com/hay-kot/pulse/internal/core/history"
	"github.com/hay-kot/pulse/internal/ingest"
	"github.com/hay-kot/pulse/internal/parser"
	"github.com/hay-kot/pulse/internal/printer"
	"github.com/hay-kot/pulse/pkg/randid"
)

type WatchCmd struct {
	flags *Flags

	dir             string
	cleanupInterval time.Duration
	once            bool
	noReload        bool
}

// NewWatchCmd creates a new watch command
func NewWatchCmd(flags *Flags) *WatchCmd {
	return &WatchCmd{flags: flags}
}

// Register adds the watch command to the application
func (cmd *WatchCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "watch",
		Usage:     "Classify records appended to spool files",
		UsageText: "pulse watch [--dir <spool>] [--once]",
		Description: `Tails *.jsonl files in the spool directory and classifies every complete
line appended to them. Read offsets are checkpointed so a restarted watcher
continues where it stopped.

Sessions idle for longer than session.max_age are evicted from memory every
--cleanup-interval. Stop with Ctrl-C; the run is recorded in history.

Changes to the quality, content, categories and rules sections of the config
file are applied without a restart unless --no-reload is set. Session and
store settings only apply at startup.

Use --once to drain the spool and exit without following it.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "dir",
				Usage:       "spool directory (default: <data-dir>/spool)",
				Destination: &cmd.dir,
			},
			&cli.DurationFlag{
				Name:        "cleanup-interval",
				Usage:       "how often idle sessions are evicted from memory",
				Value:       10 * time.Minute,
				Destination: &cmd.cleanupInterval,
			},
			&cli.BoolFlag{
				Name:        "no-reload",
				Usage:       "do not reload the config file when it changes",
				Destination: &cmd.noReload,
			},
			&cli.BoolFlag{
				Name:        "once",
				Usage:       "drain the spool and exit",
				Destination: &cmd.once,
			},
		},
		Action: cmd.run,
	})

	return app
}

// watchTotals accumulates counts across spool batches.
type watchTotals struct {
	records  atomic.Int64
	accepted atomic.Int64
	batches  atomic.Int64
}

func (cmd *WatchCmd) run(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)
	runID := randid.Generate(6)
	started := time.Now()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, logFile, logPath, err := cmd.flags.runLogger("watch", runID)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer func() {
		if err := logFile.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to close log file: %v\n", err)
		}
	}()

	dir := cmd.dir
	if dir == "" {
		dir = cmd.flags.Config.SpoolDir()
	}

	prs, err := cmd.flags.newParser(ctx, logger)
	if err != nil {
		return err
	}

	spool := ingest.NewSpool(dir, logger).WithCheckpoints(cmd.flags.Checkpoints)
	totals := &watchTotals{}
	handle := cmd.handler(prs, logger, totals)

	if cmd.once {
		p.Infof("Draining %s", dir)
		err = spool.Drain(ctx, handle)
	} else {
		p.Infof("Watching %s (log: %s)", dir, logPath)
		go cmd.cleanupLoop(ctx, prs, logger)
		if !cmd.noReload && cmd.flags.ConfigPath != "" {
			go cmd.reloadLoop(ctx, prs, logger)
		}
		err = spool.Run(ctx, handle)
	}

	stats := prs.Statistics()
	entry := history.Entry{
		ID:        runID,
		Command:   "watch",
		Sources:   []string{dir},
		Records:   int(totals.records.Load()),
		Accepted:  int(totals.accepted.Load()),
		Rejected:  int(stats.Rejected),
		Failed:    int(stats.Failed),
		Sessions:  stats.SessionCount,
		LogFile:   logPath,
		Timestamp: started,
		Elapsed:   time.Since(started),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	// the signal context is done by now
	cmd.flags.recordRun(context.WithoutCancel(ctx), logger, entry)

	if err != nil {
		logger.Error().Err(err).Msg("watch stopped")
		return err
	}

	p.Success(
		fmt.Sprintf("Processed %d batch(es), %d of %d record(s) accepted", totals.batches.Load(), entry.Accepted, entry.Records),
		fmt.Sprintf("rejected %d, failed %d, sessions %d", stats.Rejected, stats.Failed, stats.SessionCount),
	)
	return nil
}

func (cmd *WatchCmd) handler(prs *parser.Parser, logger zerolog.Logger, totals *watchTotals) ingest.Handler {
	return func(ctx context.Context, file string, records []activity.RawRecord) error {
		acts, err := prs.BatchParse(ctx, records)
		if err != nil {
			return err
		}
		if err := cmd.flags.persist(ctx, prs, acts); err != nil {
			return err
		}

		totals.records.Add(int64(len(records)))
		totals.accepted.Add(int64(len(acts)))
		totals.batches.Add(1)

		logger.Info().
			Str("file", file).
			Int("records", len(records)).
			Int("accepted", len(acts)).
			Msg("batch classified")
		return nil
	}
}

func (cmd *WatchCmd) cleanupLoop(ctx context.Context, prs *parser.Parser, logger zerolog.Logger) {
	if cmd.cleanupInterval <= 0 {
		return
	}

	ticker := time.NewTicker(cmd.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := prs.Sessions().CleanupOldSessions(cmd.flags.Config.Session.MaxAge); n > 0 {
				logger.Info().Int("evicted", n).Msg("evicted idle sessions")
			}
		}
	}
}

func (cmd *WatchCmd) reloadLoop(ctx context.Context, prs *parser.Parser, logger zerolog.Logger) {
	apply := func(cfg *config.Config) error {
		return prs.UpdateConfig(cfg.Reloadable())
	}
	if err := config.Watch(ctx, cmd.flags.ConfigPath, cmd.flags.DataDir, logger, apply); err != nil {
		logger.Warn().Err(err).Msg("config reload disabled")
	}
}
