package commands

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/pulse/internal/core/activity"
	"github.com/hay-kot/pulse/internal/core/session"
	"github.com/hay-kot/pulse/internal/printer"
	"github.com/hay-kot/pulse/internal/styles"
)

type SummaryCmd struct {
	flags   *Flags
	format  string
	rebuild bool
}

// NewSummaryCmd creates a new summary command
func NewSummaryCmd(flags *Flags) *SummaryCmd {
	return &SummaryCmd{flags: flags}
}

// Register adds the summary command to the application
func (cmd *SummaryCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "summary",
		Usage:     "Show the summary of one session",
		UsageText: "pulse summary [--rebuild] [--format json] <session-id>",
		Description: `Shows durations, type and category breakdowns, top applications and the
productivity score of a session.

The stored summary is used when present. With --rebuild, or when no summary
is stored, it is recomputed from the activity log.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (text, json)",
				Value:       "text",
				Destination: &cmd.format,
			},
			&cli.BoolFlag{
				Name:        "rebuild",
				Usage:       "recompute the summary from the activity log",
				Destination: &cmd.rebuild,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *SummaryCmd) run(ctx context.Context, c *cli.Command) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one session id")
	}
	id := c.Args().First()

	sum, err := cmd.load(ctx, id)
	if err != nil {
		return err
	}

	out := c.Root().Writer
	if cmd.format == "json" {
		return writeJSON(out, sum)
	}

	printSummary(printer.Ctx(ctx), out, sum)
	return nil
}

func (cmd *SummaryCmd) load(ctx context.Context, id string) (session.Summary, error) {
	if !cmd.rebuild {
		sum, err := cmd.flags.Sessions.Get(ctx, id)
		if err == nil {
			return sum, nil
		}
		if !errors.Is(err, session.ErrNotFound) {
			return session.Summary{}, fmt.Errorf("get session: %w", err)
		}
	}

	acts, err := cmd.flags.Activities.List(ctx, id)
	if err != nil {
		return session.Summary{}, fmt.Errorf("load activity log: %w", err)
	}
	if len(acts) == 0 {
		return session.Summary{}, fmt.Errorf("session %q: %w", id, session.ErrNotFound)
	}

	return session.Summarize(session.RecordFrom(id, acts)), nil
}

func printSummary(p *printer.Printer, out io.Writer, s session.Summary) {
	section(out, p, "Session "+s.SessionID)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "  Device\t%s\n", orDash(s.DeviceID))
	_, _ = fmt.Fprintf(w, "  Start\t%s\n", s.StartTime.Local().Format("2006-01-02 15:04:05"))
	_, _ = fmt.Fprintf(w, "  End\t%s\n", s.EndTime.Local().Format("2006-01-02 15:04:05"))
	_, _ = fmt.Fprintf(w, "  Activities\t%d\n", s.ActivityCount)
	_, _ = fmt.Fprintf(w, "  Total\t%s\n", formatMillis(s.TotalDuration))
	_, _ = fmt.Fprintf(w, "  Active\t%s\n", formatMillis(s.ActiveDuration))
	_, _ = fmt.Fprintf(w, "  Idle\t%s\n", formatMillis(s.IdleDuration))
	_, _ = fmt.Fprintf(w, "  Productivity\t%s\n", styles.Score(s.ProductivityScore, fmt.Sprintf("%.1f", s.ProductivityScore)))
	_ = w.Flush()

	section(out, p, "Types")
	printBreakdown(out, s.TypeBreakdown, s.TotalDuration, func(activity.Type) lipgloss.Color { return styles.ColorBlue })

	section(out, p, "Categories")
	printBreakdown(out, s.CategoryBreakdown, s.TotalDuration, styles.CategoryColor)

	if len(s.TopApplications) > 0 {
		section(out, p, "Top applications")
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, app := range s.TopApplications {
			_, _ = fmt.Fprintf(w, "  %s\t%s\t%d\t%s\n", app.Name, formatMillis(app.Duration), app.Count, app.Category)
		}
		_ = w.Flush()
	}
}

func section(out io.Writer, p *printer.Printer, title string) {
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, p.Bold(title))
}

// barWidth is the width of breakdown bars in cells.
const barWidth = 24

// printBreakdown prints non-zero buckets, largest first, with a bar showing
// each bucket's share of total.
func printBreakdown[K ~string](out io.Writer, m map[K]int64, total int64, color func(K) lipgloss.Color) {
	keys := slices.SortedFunc(maps.Keys(m), func(a, b K) int {
		if c := cmp.Compare(m[b], m[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	printed := 0
	for _, k := range keys {
		if m[k] == 0 {
			continue
		}
		share := 0.0
		if total > 0 {
			share = float64(m[k]) / float64(total)
		}
		_, _ = fmt.Fprintf(w, "  %s\t%s\t%s\n", k, formatMillis(m[k]), styles.Bar(share, barWidth, color(k)))
		printed++
	}
	if printed == 0 {
		_, _ = fmt.Fprintln(w, "  -")
	}
	_ = w.Flush()
}
