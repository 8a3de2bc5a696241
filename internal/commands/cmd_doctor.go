package commands

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/pulse/internal/commands/doctor"
	"github.com/hay-kot/pulse/internal/printer"
)

type DoctorCmd struct {
	flags  *Flags
	format string
	fix    bool
	only   []string
}

func NewDoctorCmd(flags *Flags) *DoctorCmd {
	return &DoctorCmd{flags: flags}
}

func (cmd *DoctorCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "doctor",
		Usage:       "Run health checks on your pulse setup",
		UsageText:   "pulse doctor [options]",
		Description: "Runs diagnostic checks on configuration, stored sessions and spool checkpoints. Use --fix to remove orphaned summaries and stale checkpoints.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (text, json)",
				Value:       "text",
				Destination: &cmd.format,
			},
			&cli.BoolFlag{
				Name:        "fix",
				Usage:       "repair fixable issues",
				Destination: &cmd.fix,
			},
			&cli.StringSliceFlag{
				Name:        "check",
				Usage:       "run only the named checks (config, orphans, checkpoints)",
				Destination: &cmd.only,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *DoctorCmd) run(ctx context.Context, c *cli.Command) error {
	checks, err := cmd.checks()
	if err != nil {
		return err
	}

	results := doctor.RunAll(ctx, checks)

	if cmd.format == "json" {
		return cmd.outputJSON(c, results)
	}

	return cmd.outputText(ctx, results)
}

// checks returns the checks selected by --check, in a fixed order.
func (cmd *DoctorCmd) checks() ([]doctor.Check, error) {
	keys := []string{"config", "orphans", "checkpoints"}
	all := map[string]doctor.Check{
		"config":      doctor.NewConfigCheck(cmd.flags.Config),
		"orphans":     doctor.NewOrphanCheck(cmd.flags.Sessions, cmd.flags.Activities, cmd.fix),
		"checkpoints": doctor.NewCheckpointCheck(cmd.flags.Checkpoints, cmd.fix),
	}

	for _, name := range cmd.only {
		if _, ok := all[name]; !ok {
			return nil, fmt.Errorf("unknown check %q: want one of %s", name, strings.Join(keys, ", "))
		}
	}

	selected := make([]doctor.Check, 0, len(keys))
	for _, key := range keys {
		if len(cmd.only) == 0 || slices.Contains(cmd.only, key) {
			selected = append(selected, all[key])
		}
	}
	return selected, nil
}

func (cmd *DoctorCmd) outputJSON(c *cli.Command, results []doctor.Result) error {
	tally := doctor.Count(results)

	out := struct {
		Healthy bool            `json:"healthy"`
		Summary doctor.Tally    `json:"summary"`
		Checks  []doctor.Result `json:"checks"`
	}{
		Healthy: tally.Healthy(),
		Summary: tally,
		Checks:  results,
	}

	if err := writeJSON(c.Root().Writer, out); err != nil {
		return err
	}

	if !tally.Healthy() {
		return cli.Exit("", 1)
	}
	return nil
}

func (cmd *DoctorCmd) outputText(ctx context.Context, results []doctor.Result) error {
	p := printer.Ctx(ctx)

	for _, result := range results {
		p.Section(result.Name)

		for _, item := range result.Items {
			switch item.Status {
			case doctor.StatusPass:
				p.CheckItem(item.Label, item.Detail)
			case doctor.StatusWarn:
				p.WarnItem(item.Label, item.Detail)
			case doctor.StatusFail:
				p.FailItem(item.Label, item.Detail)
			}
		}

		p.Printf("")
	}

	tally := doctor.Count(results)
	p.Printf("Summary: %d passed, %d warnings, %d failed", tally.Passed, tally.Warned, tally.Failed)

	if tally.Fixable > 0 {
		p.Infof("%d issue(s) can be repaired with 'pulse doctor --fix'", tally.Fixable)
	}

	if !tally.Healthy() {
		return cli.Exit("", 1)
	}

	return nil
}
