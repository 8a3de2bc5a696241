package commands

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/hay-kot/pulse/internal/core/activity"
	"github.com/hay-kot/pulse/internal/core/history"
	"github.com/hay-kot/pulse/internal/core/session"
	"github.com/hay-kot/pulse/internal/ingest"
	"github.com/hay-kot/pulse/internal/parser"
	"github.com/hay-kot/pulse/internal/printer"
	"github.com/hay-kot/pulse/pkg/randid"
)

// ParseOutput is the JSON output of a parse run. Sessions holds the summaries
// of every live session after the run, replayed ones included.
type ParseOutput struct {
	RunID      string                    `json:"run_id"`
	LogFile    string                    `json:"log_file"`
	Activities []activity.ParsedActivity `json:"activities"`
	Sessions   []session.Summary         `json:"sessions"`
	Statistics parser.Statistics         `json:"statistics"`
}

type parseRun struct {
	acts     []activity.ParsedActivity
	stats    parser.Statistics
	records  int
	sessions []session.Summary
}

type ParseCmd struct {
	flags  *Flags
	format string
	dryRun bool
}

// NewParseCmd creates a new parse command
func NewParseCmd(flags *Flags) *ParseCmd {
	return &ParseCmd{flags: flags}
}

// Register adds the parse command to the application
func (cmd *ParseCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "parse",
		Usage: "Classify raw activity records",
		UsageText: `pulse parse [options] [file...]

Read from stdin:
  cat records.jsonl | pulse parse

Read from files:
  pulse parse monday.jsonl tuesday.json`,
		Description: `Classifies raw activity records and folds them into sessions.

Input is a JSON array of records or JSON lines, one record per line. Records
that fail the quality gate are dropped. Accepted activities are appended to
the activity log and the summaries of touched sessions are saved.

Sessions continue across runs: the activity log is replayed before parsing so
durations are inferred from the last activity of a previous run.

Record schema:
  {
    "id": "optional, generated if empty",
    "timestamp": 1760000000000,
    "device_id": "laptop",
    "session_id": "2026-03-02-am",
    "type": "keyboard | mouse | window | application",
    "data": {"key": "s", "modifiers": ["ctrl"]},
    "text": "reconstructed text",
    "context": {"application": "code", "window_title": "main.go", "url": ""}
  }`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (text, json, jsonl)",
				Value:       "text",
				Destination: &cmd.format,
			},
			&cli.BoolFlag{
				Name:        "dry-run",
				Aliases:     []string{"n"},
				Usage:       "classify without saving activities, sessions or history",
				Destination: &cmd.dryRun,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ParseCmd) run(ctx context.Context, c *cli.Command) error {
	runID := randid.Generate(6)
	started := time.Now()

	logger, logFile, logPath, err := cmd.flags.runLogger("parse", runID)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer func() {
		if err := logFile.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to close log file: %v\n", err)
		}
	}()

	logger.Info().Bool("dry_run", cmd.dryRun).Msg("starting parse run")

	sources := c.Args().Slice()
	entry := history.Entry{
		ID:        runID,
		Command:   "parse",
		Sources:   sources,
		LogFile:   logPath,
		Timestamp: started,
	}

	res, err := cmd.parse(ctx, sources, logger)
	entry.Records = res.records
	entry.Accepted = len(res.acts)
	entry.Rejected = int(res.stats.Rejected)
	entry.Failed = int(res.stats.Failed)
	entry.Sessions = res.stats.SessionCount
	entry.Elapsed = time.Since(started)
	if err != nil {
		entry.Error = err.Error()
	}

	if !cmd.dryRun {
		cmd.flags.recordRun(ctx, logger, entry)
	}
	if err != nil {
		logger.Error().Err(err).Msg("parse run failed")
		return err
	}

	logger.Info().
		Int("records", res.records).
		Int("accepted", len(res.acts)).
		Int64("rejected", res.stats.Rejected).
		Int64("failed", res.stats.Failed).
		Msg("parse run complete")

	log.Debug().Str("run_id", runID).Str("log_file", logPath).Msg("parse run complete")

	out := ParseOutput{
		RunID:      runID,
		LogFile:    logPath,
		Activities: res.acts,
		Sessions:   res.sessions,
		Statistics: res.stats,
	}
	return cmd.write(ctx, c.Root().Writer, out, res.records)
}

func (cmd *ParseCmd) parse(ctx context.Context, sources []string, logger zerolog.Logger) (parseRun, error) {
	raws, err := readRecords(sources)
	if err != nil {
		return parseRun{}, err
	}

	p, err := cmd.flags.newParser(ctx, logger)
	if err != nil {
		return parseRun{records: len(raws)}, err
	}

	acts, err := p.BatchParse(ctx, raws)
	res := parseRun{acts: acts, stats: p.Statistics(), records: len(raws)}
	if err != nil && !errors.Is(err, context.Canceled) {
		return res, fmt.Errorf("parse records: %w", err)
	}

	if !cmd.dryRun {
		if perr := cmd.flags.persist(ctx, p, acts); perr != nil {
			return res, perr
		}
	}

	res.sessions = p.SessionSummaries()
	return res, err
}

// readRecords decodes records from the given files, or stdin when none are
// given or a file is "-".
func readRecords(sources []string) ([]activity.RawRecord, error) {
	if len(sources) == 0 {
		sources = []string{"-"}
	}

	var all []activity.RawRecord
	for _, src := range sources {
		var reader io.Reader
		if src == "-" {
			if term.IsTerminal(int(os.Stdin.Fd())) {
				return nil, fmt.Errorf("no input provided (stdin is a terminal); pass files or pipe records")
			}
			reader = os.Stdin
		} else {
			f, err := os.Open(src)
			if err != nil {
				return nil, fmt.Errorf("open %s: %w", src, err)
			}
			defer func() { _ = f.Close() }()
			reader = f
		}

		records, err := ingest.Decode(reader)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", src, err)
		}
		all = append(all, records...)
	}
	return all, nil
}

func (cmd *ParseCmd) write(ctx context.Context, w io.Writer, out ParseOutput, records int) error {
	switch cmd.format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "jsonl":
		enc := json.NewEncoder(w)
		for _, a := range out.Activities {
			if err := enc.Encode(a); err != nil {
				return err
			}
		}
		return nil
	}

	p := printer.Ctx(ctx)

	if len(out.Activities) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "ID\tSESSION\tTYPE\tCATEGORY\tAPPLICATION\tDURATION\tQUALITY")
		for _, a := range out.Activities {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%.2f\n",
				truncate(a.ID, 12),
				a.SessionID,
				a.Type,
				a.Category,
				truncate(orDash(a.Application), 24),
				formatMillis(a.DurationMillis()),
				a.QualityScore,
			)
		}
		_ = tw.Flush()
		p.Printf("")
	}

	s := out.Statistics
	p.Success(
		fmt.Sprintf("Parsed %d of %d record(s) [run %s]", len(out.Activities), records, out.RunID),
		fmt.Sprintf("rejected %d, failed %d, sessions %d, average quality %.2f", s.Rejected, s.Failed, s.SessionCount, s.AverageQuality),
	)

	if hits := firedRules(s.RuleHits); len(hits) > 0 {
		p.Infof("rules fired: %s", hits)
	}
	if cmd.dryRun {
		p.Warnf("dry run: nothing was saved")
	}
	return nil
}

// firedRules renders rule hits as "id=n" pairs, most hits first.
func firedRules(hits map[string]int64) string {
	type hit struct {
		id string
		n  int64
	}
	var list []hit
	for id, n := range hits {
		if n > 0 {
			list = append(list, hit{id, n})
		}
	}
	slices.SortFunc(list, func(a, b hit) int {
		if c := cmp.Compare(b.n, a.n); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})

	out := ""
	for i, h := range list {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s=%d", h.id, h.n)
	}
	return out
}
