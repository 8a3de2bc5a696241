package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/pulse/internal/printer"
)

type PruneCmd struct {
	flags  *Flags
	maxAge time.Duration
	dryRun bool
}

// NewPruneCmd creates a new prune command
func NewPruneCmd(flags *Flags) *PruneCmd {
	return &PruneCmd{flags: flags}
}

// Register adds the prune command to the application
func (cmd *PruneCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "prune",
		Usage:     "Remove sessions and activities older than the retention age",
		UsageText: "pulse prune [--max-age 72h] [--dry-run]",
		Description: `Removes stored session summaries last active before the cutoff and
activities older than it from the activity log.

The cutoff is now minus --max-age, which defaults to session.max_age from the
configuration.`,
		Action: cmd.run,
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:        "max-age",
				Usage:       "retention age (default: session.max_age)",
				Destination: &cmd.maxAge,
			},
			&cli.BoolFlag{
				Name:        "dry-run",
				Aliases:     []string{"n"},
				Usage:       "list sessions that would be removed",
				Destination: &cmd.dryRun,
			},
		},
	})

	return app
}

func (cmd *PruneCmd) run(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	maxAge := cmd.maxAge
	if maxAge <= 0 {
		maxAge = cmd.flags.Config.Session.MaxAge
	}
	cutoff := time.Now().Add(-maxAge)

	if cmd.dryRun {
		return cmd.preview(ctx, p, cutoff)
	}

	removed, err := cmd.flags.Sessions.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune sessions: %w", err)
	}

	acts, err := cmd.flags.Activities.Prune(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune activities: %w", err)
	}

	if len(removed) == 0 && acts == 0 {
		p.Infof("Nothing older than %s", maxAge)
		return nil
	}

	p.Successf("Pruned %d session(s) and %d activit(ies) older than %s", len(removed), acts, maxAge)
	return nil
}

func (cmd *PruneCmd) preview(ctx context.Context, p *printer.Printer, cutoff time.Time) error {
	sums, err := cmd.flags.Sessions.List(ctx)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	count := 0
	for _, s := range sums {
		if s.LastSeen().Before(cutoff) {
			p.Printf("  %s (last seen %s)", s.SessionID, s.LastSeen().Local().Format("2006-01-02 15:04"))
			count++
		}
	}

	if count == 0 {
		p.Infof("No sessions would be pruned")
		return nil
	}
	p.Warnf("dry run: %d session(s) would be pruned", count)
	return nil
}
