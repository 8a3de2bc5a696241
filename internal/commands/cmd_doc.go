package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/hay-kot/pulse/internal/core/activity"
	"github.com/hay-kot/pulse/internal/core/rules"
	"github.com/hay-kot/pulse/internal/styles"
)

// docWidth is the wrap width used when rendering guides for a terminal.
const docWidth = 100

type DocCmd struct {
	flags *Flags
}

func NewDocCmd(flags *Flags) *DocCmd {
	return &DocCmd{flags: flags}
}

func (cmd *DocCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "doc",
		Usage: "Reference guides for records and rules",
		Description: `Prints reference documentation for pulse.

Use 'pulse doc records' for the raw record format accepted by parse and watch.
Use 'pulse doc rules' for the rule syntax used in config and rules files.`,
		Commands: []*cli.Command{
			{
				Name:  "records",
				Usage: "Show the raw record format",
				Action: func(_ context.Context, c *cli.Command) error {
					writeGuide(c.Root().Writer, recordsGuide())
					return nil
				},
			},
			{
				Name:  "rules",
				Usage: "Show the rule syntax",
				Action: func(_ context.Context, c *cli.Command) error {
					writeGuide(c.Root().Writer, rulesGuide())
					return nil
				},
			},
		},
	})
	return app
}

// writeGuide renders markdown when stdout is a terminal and writes it raw
// otherwise.
func writeGuide(w io.Writer, guide string) {
	if w == os.Stdout && term.IsTerminal(int(os.Stdout.Fd())) {
		guide = styles.RenderMarkdown(guide, docWidth)
	}
	_, _ = fmt.Fprint(w, guide)
}

func recordsGuide() string {
	return `# Raw Records

pulse reads a JSON array of records, or JSON objects one per line.

` + "```json" + `
{
  "id": "evt-1",
  "timestamp": 1760000000000,
  "device_id": "laptop",
  "session_id": "2026-03-02-am",
  "type": "keyboard",
  "data": {"key": "s", "modifiers": ["ctrl"], "keys_per_minute": 240},
  "text": "func main() {",
  "context": {
    "application": "Visual Studio Code",
    "window_title": "main.go - pulse",
    "process_name": "code",
    "url": ""
  }
}
` + "```" + `

- ` + "`timestamp`" + ` is epoch milliseconds.
- ` + "`id`" + ` is generated when empty.
- Records without ` + "`session_id`" + ` are classified but not aggregated.

## Record types

` + bulletList(recordTypes()) + `

## Activity types

` + bulletList(toStrings(activity.Types)) + `

## Categories

Listed in the order used to break ties for a session's dominant category.

` + bulletList(toStrings(activity.Categories)) + `

## Spool

` + "`pulse watch`" + ` tails every ` + "`*.jsonl`" + ` file in the spool directory. Producers
append complete lines; partial lines are read once the newline arrives.
`
}

func rulesGuide() string {
	return `# Rules

Rules override the heuristic classification. They are evaluated highest
priority first; rules with equal priority keep their file order. A rule fires
when all of its conditions match. A rule that sets the type or category is
exclusive: once it fires, lower priority rules are skipped.

` + "```yaml" + `
rules:
  - id: ide-coding
    name: Coding in an IDE
    priority: 100
    conditions:
      - field: context.application
        operator: matches
        value: "(?i)code|goland|vim"
    actions:
      - type: set_type
        value: coding
      - type: set_category
        value: productive
      - type: extract_content
        field: context.window_title
        pattern: "([\\w.-]+\\.go)"
        target: file
` + "```" + `

Place rules under ` + "`rules:`" + ` in config.yaml, or point ` + "`rules_file:`" + ` at a file
with the same layout. Check them with ` + "`pulse rules validate`" + ` and try them
with ` + "`pulse rules test`" + `.

## Fields

Dot paths into the raw record: ` + "`type`" + `, ` + "`text`" + `, ` + "`device_id`" + `,
` + "`session_id`" + `, ` + "`context.application`" + `, ` + "`context.window_title`" + `,
` + "`context.url`" + `, ` + "`data.<key>`" + `. A missing field never matches.

## Operators

` + bulletList([]string{
		string(rules.OpEquals) + ": string or number equality, case-insensitive unless case_sensitive",
		string(rules.OpContains) + ": substring, or element of a list",
		string(rules.OpMatches) + ": regular expression",
		string(rules.OpGreaterThan) + ": numeric comparison",
		string(rules.OpLessThan) + ": numeric comparison",
	}) + `
## Actions

` + bulletList([]string{
		string(rules.ActionSetType) + ": value is an activity type",
		string(rules.ActionSetCategory) + ": value is a category",
		string(rules.ActionAddTag) + ": value is the tag",
		string(rules.ActionExtractContent) + ": pattern runs against field; the first group is stored under target",
		string(rules.ActionCalculateDuration) + ": accepted and ignored; durations come from session gaps",
	})
}

func recordTypes() []string {
	return []string{
		string(activity.RecordKeyboard),
		string(activity.RecordMouse),
		string(activity.RecordWindow),
		string(activity.RecordApplication),
	}
}

func toStrings[S ~string](in []S) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

func bulletList(items []string) string {
	var b strings.Builder
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}
	return b.String()
}
