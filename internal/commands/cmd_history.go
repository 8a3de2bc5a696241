package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/pulse/internal/core/history"
	"github.com/hay-kot/pulse/internal/printer"
)

type HistoryCmd struct {
	flags *Flags

	clear   bool
	command string
	errors  bool
	limit   int
	format  string
}

func NewHistoryCmd(flags *Flags) *HistoryCmd {
	return &HistoryCmd{flags: flags}
}

func (cmd *HistoryCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "history",
		Usage:     "View or manage run history",
		UsageText: "pulse history [options]\npulse history show <id>",
		Description: `Lists recent 'parse' and 'watch' runs with record counts, accept rate
and status. A run is "partial" when some records failed classification.

Use 'pulse history show <id>' for the full entry, including the run's log
file. Any unique id prefix is accepted.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "clear",
				Aliases:     []string{"c"},
				Usage:       "clear all run history",
				Destination: &cmd.clear,
			},
			&cli.StringFlag{
				Name:        "command",
				Usage:       "only show runs of this command (parse, watch)",
				Destination: &cmd.command,
			},
			&cli.BoolFlag{
				Name:        "errors",
				Usage:       "only show runs that stopped with an error",
				Destination: &cmd.errors,
			},
			&cli.IntFlag{
				Name:        "limit",
				Aliases:     []string{"n"},
				Usage:       "maximum number of runs to show (0 for all)",
				Value:       20,
				Destination: &cmd.limit,
			},
			formatFlag(&cmd.format),
		},
		Action: cmd.run,
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Show one run in detail",
				UsageText: "pulse history show <id>",
				Flags:     []cli.Flag{formatFlag(&cmd.format)},
				Action:    cmd.runShow,
			},
		},
	})

	return app
}

func (cmd *HistoryCmd) run(ctx context.Context, c *cli.Command) error {
	if cmd.clear {
		if err := cmd.flags.History.Clear(ctx); err != nil {
			return fmt.Errorf("clear history: %w", err)
		}
		printer.Ctx(ctx).Successf("Run history cleared")
		return nil
	}

	if cmd.command != "" && cmd.command != "parse" && cmd.command != "watch" {
		return fmt.Errorf("unknown command %q: want parse or watch", cmd.command)
	}

	q := history.Query{Command: cmd.command, Limit: cmd.limit}
	if cmd.errors {
		q.Status = history.StatusError
	}

	entries, err := cmd.flags.History.List(ctx, q)
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}

	out := c.Root().Writer
	if cmd.format == "json" {
		return writeJSON(out, entries)
	}

	if len(entries) == 0 {
		printer.Ctx(ctx).Infof("No run history")
		return nil
	}

	p := printer.New(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCOMMAND\tRECORDS\tACCEPTED\tSTATUS\tTIME")

	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
			e.ID,
			truncate(e.CommandString(), 50),
			e.Records,
			e.AcceptRate(),
			statusCell(p, e),
			e.Timestamp.Format("2006-01-02 15:04:05"),
		)
	}

	return w.Flush()
}

func (cmd *HistoryCmd) runShow(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one run id")
	}

	e, err := cmd.flags.History.Get(ctx, c.Args().First())
	if err != nil {
		return err
	}

	out := c.Root().Writer
	if cmd.format == "json" {
		return writeJSON(out, e)
	}

	p := printer.New(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"Run", e.ID},
		{"Command", e.CommandString()},
		{"Started", e.Timestamp.Format(time.RFC3339)},
		{"Elapsed", e.Elapsed.Round(time.Millisecond).String()},
		{"Status", statusCell(p, e)},
		{"Records", fmt.Sprintf("%d (%s accepted)", e.Records, e.AcceptRate())},
		{"Rejected", fmt.Sprint(e.Rejected)},
		{"Failed", fmt.Sprint(e.Failed)},
		{"Sessions", fmt.Sprint(e.Sessions)},
		{"Log", orDash(e.LogFile)},
	}
	for _, r := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", r[0], r[1])
	}
	return w.Flush()
}

func statusCell(p *printer.Printer, e history.Entry) string {
	switch e.Status() {
	case history.StatusError:
		return p.StatusFailed(truncate(e.Error, 40))
	case history.StatusPartial:
		return p.StatusWarn(fmt.Sprintf("%d failed", e.Failed))
	default:
		return p.StatusOK()
	}
}
