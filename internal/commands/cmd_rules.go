package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/pulse/internal/core/config"
	"github.com/hay-kot/pulse/internal/core/rules"
	"github.com/hay-kot/pulse/internal/ingest"
	"github.com/hay-kot/pulse/internal/parser"
	"github.com/hay-kot/pulse/internal/printer"
)

type RulesCmd struct {
	flags  *Flags
	format string
}

// NewRulesCmd creates a new rules command
func NewRulesCmd(flags *Flags) *RulesCmd {
	return &RulesCmd{flags: flags}
}

// Register adds the rules command to the application
func (cmd *RulesCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "rules",
		Usage: "Inspect and test classification rules",
		Commands: []*cli.Command{
			{
				Name:        "list",
				Usage:       "List rules in evaluation order",
				UsageText:   "pulse rules list [--format json]",
				Description: "Lists the configured rules, highest priority first. Exclusive rules stop evaluation of lower priority rules when they fire.",
				Flags:       []cli.Flag{formatFlag(&cmd.format)},
				Action:      cmd.runList,
			},
			{
				Name:      "validate",
				Usage:     "Validate a rules file",
				UsageText: "pulse rules validate [file]",
				Description: `Validates the rules in a standalone rules file, or the configured rules
when no file is given. A rules file has a top level "rules" key.`,
				Action: cmd.runValidate,
			},
			{
				Name:      "test",
				Usage:     "Classify records without saving anything",
				UsageText: `pulse rules test '{"type":"window","context":{"application":"code"}}'`,
				Description: `Classifies the given record, or records read from stdin, and shows the
resulting type, category and the rules that fired. Nothing is saved and no
session state is used.`,
				Flags:  []cli.Flag{formatFlag(&cmd.format)},
				Action: cmd.runTest,
			},
		},
	})

	return app
}

func (cmd *RulesCmd) runList(ctx context.Context, c *cli.Command) error {
	ordered := rules.NewEngine(cmd.flags.Config.Rules, log.Logger).Rules()

	out := c.Root().Writer
	if cmd.format == "json" {
		return writeJSON(out, ordered)
	}

	if len(ordered) == 0 {
		printer.Ctx(ctx).Infof("No rules configured")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PRIORITY\tID\tNAME\tENABLED\tEXCLUSIVE\tACTIONS")
	for _, r := range ordered {
		actions := make([]string, 0, len(r.Actions))
		for _, a := range r.Actions {
			if a.Value != "" {
				actions = append(actions, string(a.Type)+"="+a.Value)
			} else {
				actions = append(actions, string(a.Type))
			}
		}

		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			r.Priority,
			r.ID,
			truncate(orDash(r.Name), 30),
			yesNo(r.IsEnabled()),
			yesNo(r.Exclusive()),
			strings.Join(actions, ", "),
		)
	}
	return w.Flush()
}

func (cmd *RulesCmd) runValidate(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	set := cmd.flags.Config.Rules
	source := "configured rules"
	if c.NArg() > 0 {
		source = c.Args().First()
		loaded, err := config.LoadRules(source)
		if err != nil {
			return err
		}
		set = loaded
	}

	err := rules.Validate(set)
	if err == nil {
		p.Successf("%d rule(s) in %s are valid", len(set), source)
		return nil
	}

	fieldErrs := fieldErrors(err)
	p.Section("Errors")
	for _, fe := range fieldErrs {
		p.FailItem(orDash(fe.Field), fe.Err.Error())
	}
	p.Printf("")
	p.Errorf("%d error(s) in %s", len(fieldErrs), source)
	return cli.Exit("", 1)
}

func (cmd *RulesCmd) runTest(ctx context.Context, c *cli.Command) error {
	var input io.Reader
	if c.NArg() > 0 {
		input = strings.NewReader(strings.Join(c.Args().Slice(), "\n"))
	} else {
		input = os.Stdin
	}

	records, err := ingest.Decode(input)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no records provided")
	}

	prs, err := parser.New(cmd.flags.Config, log.Logger)
	if err != nil {
		return err
	}

	type testResult struct {
		ID       string   `json:"id"`
		Type     string   `json:"type,omitempty"`
		Category string   `json:"category,omitempty"`
		Quality  float64  `json:"quality"`
		Rules    []string `json:"rules,omitempty"`
		Tags     []string `json:"tags,omitempty"`
		Error    string   `json:"error,omitempty"`
	}

	results := make([]testResult, 0, len(records))
	for _, raw := range records {
		pa, err := prs.Classify(raw)
		if err != nil {
			res := testResult{ID: raw.ID, Error: err.Error()}
			if errors.Is(err, parser.ErrLowQuality) {
				res.Error = "rejected by quality gate"
			}
			results = append(results, res)
			continue
		}
		results = append(results, testResult{
			ID:       pa.ID,
			Type:     string(pa.Type),
			Category: string(pa.Category),
			Quality:  pa.QualityScore,
			Rules:    pa.Metadata.RulesApplied,
			Tags:     pa.Metadata.Tags,
		})
	}

	out := c.Root().Writer
	if cmd.format == "json" {
		return writeJSON(out, results)
	}

	p := printer.New(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTYPE\tCATEGORY\tQUALITY\tRULES\tTAGS")
	for _, r := range results {
		if r.Error != "" {
			_, _ = fmt.Fprintf(w, "%s\t%s\n", truncate(r.ID, 12), p.StatusFailed(r.Error))
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\t%s\n",
			truncate(r.ID, 12),
			r.Type,
			r.Category,
			r.Quality,
			orDash(strings.Join(r.Rules, ",")),
			orDash(strings.Join(r.Tags, ",")),
		)
	}
	return w.Flush()
}

func formatFlag(dest *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "format",
		Usage:       "output format (text, json)",
		Value:       "text",
		Destination: dest,
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
