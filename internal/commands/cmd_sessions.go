package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/pulse/internal/printer"
	"github.com/hay-kot/pulse/pkg/tmpl"
)

type SessionsCmd struct {
	flags    *Flags
	format   string
	template string
}

// NewSessionsCmd creates a new sessions command
func NewSessionsCmd(flags *Flags) *SessionsCmd {
	return &SessionsCmd{flags: flags}
}

// Register adds the sessions command to the application
func (cmd *SessionsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "sessions",
		Aliases:     []string{"ls"},
		Usage:       "List stored session summaries",
		UsageText:   "pulse sessions [--format json] [--template '<go template>']",
		Description: `Displays stored session summaries, most recently active first.

--template renders each summary with a Go template, one per line:

  pulse sessions --template '{{.SessionID}}\t{{ms .ActiveDuration}}\t{{.ProductivityScore}}'

Template functions: ms, json, date, upper, join.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (text, json)",
				Value:       "text",
				Destination: &cmd.format,
			},
			&cli.StringFlag{
				Name:        "template",
				Aliases:     []string{"t"},
				Usage:       "render each session with a Go template",
				Destination: &cmd.template,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *SessionsCmd) run(ctx context.Context, c *cli.Command) error {
	sums, err := cmd.flags.Sessions.List(ctx)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	out := c.Root().Writer

	if cmd.format == "json" {
		return writeJSON(out, sums)
	}

	if cmd.template != "" {
		t, err := tmpl.Parse(cmd.template)
		if err != nil {
			return err
		}
		for _, s := range sums {
			if err := t.Execute(out, s); err != nil {
				return fmt.Errorf("render %s: %w", s.SessionID, err)
			}
			_, _ = fmt.Fprintln(out)
		}
		return nil
	}

	if len(sums) == 0 {
		printer.Ctx(ctx).Infof("No sessions found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SESSION\tDEVICE\tSTART\tACTIVITIES\tACTIVE\tIDLE\tSCORE")

	for _, s := range sums {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%.1f\n",
			s.SessionID,
			orDash(s.DeviceID),
			s.StartTime.Local().Format("2006-01-02 15:04"),
			s.ActivityCount,
			formatMillis(s.ActiveDuration),
			formatMillis(s.IdleDuration),
			s.ProductivityScore,
		)
	}

	return w.Flush()
}
