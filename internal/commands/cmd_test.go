package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/pulse/internal/core/activity"
	"github.com/hay-kot/pulse/internal/core/history"
	"github.com/hay-kot/pulse/internal/core/session"
	"github.com/hay-kot/pulse/internal/printer"
)

// runApp runs the pulse command tree against flags and returns stdout.
func runApp(t *testing.T, flags *Flags, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	app := &cli.Command{
		Name:      "pulse",
		Writer:    &out,
		ErrWriter: io.Discard,
		// keep cli.Exit from terminating the test binary
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}
	app = NewParseCmd(flags).Register(app)
	app = NewSessionsCmd(flags).Register(app)
	app = NewSummaryCmd(flags).Register(app)
	app = NewRulesCmd(flags).Register(app)
	app = NewHistoryCmd(flags).Register(app)
	app = NewPruneCmd(flags).Register(app)
	app = NewDocCmd(flags).Register(app)
	app = NewConfigCmd(flags).Register(app)
	app = NewDoctorCmd(flags).Register(app)

	ctx := printer.NewContext(context.Background(), printer.New(io.Discard))
	err := app.Run(ctx, append([]string{"pulse"}, args...))
	return out.String(), err
}

// seed parses two coding records into sess-1 and persists them.
func seed(t *testing.T, flags *Flags) {
	t.Helper()
	ctx := context.Background()
	start := time.Now().Add(-10 * time.Minute)

	p, err := flags.newParser(ctx, zerolog.Nop())
	require.NoError(t, err)
	acts, err := p.BatchParse(ctx, []activity.RawRecord{
		codingRecord("r1", start),
		codingRecord("r2", start.Add(time.Minute)),
	})
	require.NoError(t, err)
	require.NoError(t, flags.persist(ctx, p, acts))
}

func TestParseCmd_JSONIncludesLiveSessions(t *testing.T) {
	flags := newTestFlags(t)
	seed(t, flags)

	data, err := json.Marshal(codingRecord("r3", time.Now().Add(-5*time.Minute)))
	require.NoError(t, err)
	input := filepath.Join(t.TempDir(), "records.jsonl")
	require.NoError(t, os.WriteFile(input, append(data, '\n'), 0o644))

	out, err := runApp(t, flags, "parse", "--format", "json", input)
	require.NoError(t, err)

	var got ParseOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Activities, 1)
	require.Len(t, got.Sessions, 1)
	assert.Equal(t, "sess-1", got.Sessions[0].SessionID)
	assert.Equal(t, 3, got.Sessions[0].ActivityCount, "replayed activities are included")
}

func TestSessionsCmd(t *testing.T) {
	flags := newTestFlags(t)
	seed(t, flags)

	out, err := runApp(t, flags, "sessions")
	require.NoError(t, err)
	assert.Contains(t, out, "SESSION")
	assert.Contains(t, out, "sess-1")

	out, err = runApp(t, flags, "sessions", "--template", `{{.SessionID}}\t{{.ActivityCount}}`)
	require.NoError(t, err)
	assert.Equal(t, "sess-1\t2\n", out)

	out, err = runApp(t, flags, "sessions", "--format", "json")
	require.NoError(t, err)
	var sums []session.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &sums))
	require.Len(t, sums, 1)
	assert.Equal(t, int64(60_000), sums[0].ActiveDuration)
}

func TestSummaryCmd(t *testing.T) {
	flags := newTestFlags(t)
	seed(t, flags)

	out, err := runApp(t, flags, "summary", "--format", "json", "sess-1")
	require.NoError(t, err)
	var stored session.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &stored))
	assert.Equal(t, 2, stored.ActivityCount)

	out, err = runApp(t, flags, "summary", "--rebuild", "--format", "json", "sess-1")
	require.NoError(t, err)
	var rebuilt session.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &rebuilt))
	assert.Equal(t, stored.ActiveDuration, rebuilt.ActiveDuration)
	assert.InDelta(t, stored.ProductivityScore, rebuilt.ProductivityScore, 1e-9)

	out, err = runApp(t, flags, "summary", "sess-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Session sess-1")
	assert.Contains(t, out, "coding")
	assert.Contains(t, out, "vscode")

	_, err = runApp(t, flags, "summary", "missing")
	require.ErrorIs(t, err, session.ErrNotFound)

	_, err = runApp(t, flags, "summary")
	require.Error(t, err)
}

func TestPruneCmd(t *testing.T) {
	flags := newTestFlags(t)
	seed(t, flags)

	_, err := runApp(t, flags, "prune", "--max-age", "1h")
	require.NoError(t, err)
	sums, err := flags.Sessions.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, sums, 1, "recent sessions are kept")

	_, err = runApp(t, flags, "prune", "--max-age", "1m", "--dry-run")
	require.NoError(t, err)
	sums, err = flags.Sessions.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, sums, 1, "dry run removes nothing")

	_, err = runApp(t, flags, "prune", "--max-age", "1m")
	require.NoError(t, err)
	sums, err = flags.Sessions.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sums)

	acts, err := flags.Activities.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, acts)
}

func TestRulesCmd(t *testing.T) {
	flags := newTestFlags(t)

	out, err := runApp(t, flags, "rules", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "idle-detection")
	assert.Less(t, bytes.Index([]byte(out), []byte("idle-detection")), bytes.Index([]byte(out), []byte("ide-coding")),
		"higher priority rules are listed first")

	out, err = runApp(t, flags, "rules", "test", "--format", "json",
		`{"id":"t1","device_id":"laptop","session_id":"s","timestamp":`+jsonMillis(time.Now().Add(-time.Minute))+`,"type":"keyboard","text":"function calculateSum(a,b){return a+b;}","context":{"application":"vscode"}}`)
	require.NoError(t, err)

	var results []struct {
		ID    string   `json:"id"`
		Type  string   `json:"type"`
		Rules []string `json:"rules"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "coding", results[0].Type)
	assert.Equal(t, []string{"ide-coding"}, results[0].Rules)

	_, err = runApp(t, flags, "rules", "validate")
	require.NoError(t, err)
}

func TestHistoryCmd(t *testing.T) {
	flags := newTestFlags(t)
	ctx := context.Background()

	require.NoError(t, flags.History.Save(ctx, history.Entry{
		ID: "abc123", Command: "parse", Sources: []string{"day.jsonl"},
		Records: 10, Accepted: 8, LogFile: "/tmp/parse-abc123.log", Timestamp: time.Now(),
	}))
	require.NoError(t, flags.History.Save(ctx, history.Entry{
		ID: "w9x8y7", Command: "watch", Error: "spool dir removed", Timestamp: time.Now(),
	}))

	out, err := runApp(t, flags, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "abc123")
	assert.Contains(t, out, "parse day.jsonl")
	assert.Contains(t, out, "80%")
	assert.Contains(t, out, "spool dir removed")

	out, err = runApp(t, flags, "history", "--errors")
	require.NoError(t, err)
	assert.Contains(t, out, "w9x8y7")
	assert.NotContains(t, out, "abc123")

	out, err = runApp(t, flags, "history", "--command", "parse", "--format", "json")
	require.NoError(t, err)
	var listed []history.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "abc123", listed[0].ID)

	_, err = runApp(t, flags, "history", "--command", "tui")
	require.ErrorContains(t, err, "unknown command")

	out, err = runApp(t, flags, "history", "show", "abc")
	require.NoError(t, err)
	assert.Contains(t, out, "/tmp/parse-abc123.log")
	assert.Contains(t, out, "10 (80% accepted)")

	_, err = runApp(t, flags, "history", "show", "zzz")
	require.ErrorIs(t, err, history.ErrNotFound)

	_, err = runApp(t, flags, "history", "--clear")
	require.NoError(t, err)
	entries, err := flags.History.List(ctx, history.Query{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestConfigCmd(t *testing.T) {
	flags := newTestFlags(t)

	out, err := runApp(t, flags, "config", "validate", "--format", "json")
	require.NoError(t, err)
	var report configReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.True(t, report.Valid)
	assert.Equal(t, 4, report.Rules)

	out, err = runApp(t, flags, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "min_confidence: 0.5")
	assert.Contains(t, out, "max_idle: 5m0s")
	assert.Contains(t, out, "ide-coding")

	flags.Config.Quality.MinConfidence = 3
	out, err = runApp(t, flags, "config", "validate", "--format", "json")
	require.Error(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.False(t, report.Valid)
	require.NotEmpty(t, report.Errors)
	assert.Equal(t, "quality.min_confidence", report.Errors[0].Field)
}

func TestDoctorCmd(t *testing.T) {
	flags := newTestFlags(t)
	seed(t, flags)
	ctx := context.Background()

	orphan := session.Summary{SessionID: "ghost", DeviceID: "laptop", StartTime: time.Now(), EndTime: time.Now()}
	require.NoError(t, flags.Sessions.Save(ctx, orphan))

	out, err := runApp(t, flags, "doctor", "--format", "json")
	require.NoError(t, err, "warnings alone do not fail the run")

	var report struct {
		Healthy bool `json:"healthy"`
		Summary struct {
			Warned  int `json:"warned"`
			Fixable int `json:"fixable"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.True(t, report.Healthy)
	assert.Equal(t, 1, report.Summary.Warned)
	assert.Equal(t, 1, report.Summary.Fixable)

	_, err = runApp(t, flags, "doctor", "--fix")
	require.NoError(t, err)

	_, err = flags.Sessions.Get(ctx, "ghost")
	require.ErrorIs(t, err, session.ErrNotFound)
	_, err = flags.Sessions.Get(ctx, "sess-1")
	require.NoError(t, err)

	out, err = runApp(t, flags, "doctor", "--check", "config", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"Configuration"`)
	assert.NotContains(t, out, `"Orphan Sessions"`)

	_, err = runApp(t, flags, "doctor", "--check", "disk")
	require.ErrorContains(t, err, `unknown check "disk"`)
}

func TestDocCmd(t *testing.T) {
	flags := newTestFlags(t)

	out, err := runApp(t, flags, "doc", "rules")
	require.NoError(t, err)
	for _, want := range []string{"equals", "greater_than", "set_category", "extract_content"} {
		assert.Contains(t, out, want)
	}

	out, err = runApp(t, flags, "doc", "records")
	require.NoError(t, err)
	for _, c := range activity.Categories {
		assert.Contains(t, out, string(c))
	}
}

func TestWatchHandler(t *testing.T) {
	flags := newTestFlags(t)
	ctx := context.Background()

	prs, err := flags.newParser(ctx, zerolog.Nop())
	require.NoError(t, err)

	totals := &watchTotals{}
	handle := NewWatchCmd(flags).handler(prs, zerolog.Nop(), totals)

	start := time.Now().Add(-5 * time.Minute)
	low := activity.RawRecord{ID: "bad", Type: "bogus"}
	require.NoError(t, handle(ctx, "a.jsonl", []activity.RawRecord{
		codingRecord("r1", start),
		low,
		codingRecord("r2", start.Add(30*time.Second)),
	}))

	assert.Equal(t, int64(3), totals.records.Load())
	assert.Equal(t, int64(2), totals.accepted.Load())
	assert.Equal(t, int64(1), totals.batches.Load())

	sum, err := flags.Sessions.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, int64(30_000), sum.ActiveDuration)
}

func jsonMillis(t time.Time) string {
	b, _ := json.Marshal(t.UnixMilli())
	return string(b)
}
