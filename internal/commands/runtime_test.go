package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/pulse/internal/core/activity"
	"github.com/hay-kot/pulse/internal/core/config"
)

func newTestFlags(t *testing.T) *Flags {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()

	flags := &Flags{DataDir: cfg.DataDir}
	flags.Open(&cfg)
	return flags
}

func codingRecord(id string, at time.Time) activity.RawRecord {
	return activity.RawRecord{
		ID:        id,
		Timestamp: at.UnixMilli(),
		DeviceID:  "laptop",
		SessionID: "sess-1",
		Type:      activity.RecordKeyboard,
		Text:      "function calculateSum(a,b){return a+b;}",
		Context:   &activity.AppContext{Application: "vscode", WindowTitle: "main.ts"},
	}
}

func TestPersistAndReplay(t *testing.T) {
	ctx := context.Background()
	flags := newTestFlags(t)
	start := time.Now().Add(-10 * time.Minute)

	p, err := flags.newParser(ctx, zerolog.Nop())
	require.NoError(t, err)

	acts, err := p.BatchParse(ctx, []activity.RawRecord{
		codingRecord("r1", start),
		codingRecord("r2", start.Add(time.Minute)),
	})
	require.NoError(t, err)
	require.Len(t, acts, 2)
	require.NoError(t, flags.persist(ctx, p, acts))

	sum, err := flags.Sessions.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 2, sum.ActivityCount)

	logged, err := flags.Activities.List(ctx, "sess-1")
	require.NoError(t, err)
	assert.Len(t, logged, 2)

	// a second run continues the session from the log
	p2, err := flags.newParser(ctx, zerolog.Nop())
	require.NoError(t, err)

	rec, ok := p2.Sessions().Session("sess-1")
	require.True(t, ok)
	assert.Len(t, rec.Activities, 2)

	next, err := p2.Parse(codingRecord("r3", start.Add(2*time.Minute)))
	require.NoError(t, err)
	require.NotNil(t, next.Duration)
	assert.Equal(t, int64(60_000), *next.Duration)
}

func TestNewParser_SkipsExpiredActivities(t *testing.T) {
	ctx := context.Background()
	flags := newTestFlags(t)

	old := activity.ParsedActivity{
		ID:        "old",
		SessionID: "stale",
		Timestamp: time.Now().Add(-2 * flags.Config.Session.MaxAge),
		Type:      activity.TypeCoding,
		Category:  activity.CategoryProductive,
	}
	fresh := old
	fresh.ID = "fresh"
	fresh.SessionID = "live"
	fresh.Timestamp = time.Now().Add(-time.Minute)
	require.NoError(t, flags.Activities.Append(ctx, old, fresh))

	p, err := flags.newParser(ctx, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, []string{"live"}, p.Sessions().SessionIDs())
}

func TestNewParser_KeepsSessionSpanningCutoff(t *testing.T) {
	ctx := context.Background()
	flags := newTestFlags(t)
	now := time.Now()
	maxAge := flags.Config.Session.MaxAge

	p, err := flags.newParser(ctx, zerolog.Nop())
	require.NoError(t, err)

	acts, err := p.BatchParse(ctx, []activity.RawRecord{
		codingRecord("r1", now.Add(-maxAge-time.Hour)),
		codingRecord("r2", now.Add(-time.Hour)),
	})
	require.NoError(t, err)
	require.NoError(t, flags.persist(ctx, p, acts))

	before, err := flags.Sessions.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.Equal(t, 2, before.ActivityCount)

	p2, err := flags.newParser(ctx, zerolog.Nop())
	require.NoError(t, err)

	rec, ok := p2.Sessions().Session("sess-1")
	require.True(t, ok)
	assert.Len(t, rec.Activities, 2, "early activities of a live session are replayed")

	next, err := p2.BatchParse(ctx, []activity.RawRecord{codingRecord("r3", now.Add(-30*time.Minute))})
	require.NoError(t, err)
	require.NoError(t, flags.persist(ctx, p2, next))

	after, err := flags.Sessions.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 3, after.ActivityCount)
	assert.True(t, before.StartTime.Equal(after.StartTime), "start time is preserved")
	assert.Greater(t, after.TotalDuration, before.TotalDuration)
}

func TestPersist_Empty(t *testing.T) {
	flags := newTestFlags(t)

	p, err := flags.newParser(context.Background(), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, flags.persist(context.Background(), p, nil))

	sums, err := flags.Sessions.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sums)
}

func TestRunLogger(t *testing.T) {
	flags := newTestFlags(t)

	logger, file, path, err := flags.runLogger("parse", "abc123")
	require.NoError(t, err)

	logger.Info().Msg("hello")
	require.NoError(t, file.Close())

	assert.Equal(t, filepath.Join(flags.Config.LogsDir(), "parse-abc123.log"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run_id":"abc123"`)
	assert.Contains(t, string(data), `"message":"hello"`)
}

func TestReadRecords_Files(t *testing.T) {
	dir := t.TempDir()

	arr := filepath.Join(dir, "a.json")
	require.NoError(t, os.WriteFile(arr, []byte(`[{"id":"a1","type":"window"},{"id":"a2","type":"mouse"}]`), 0o644))

	lines := filepath.Join(dir, "b.jsonl")
	require.NoError(t, os.WriteFile(lines, []byte("{\"id\":\"b1\",\"type\":\"keyboard\"}\n{\"type\":\"window\"}\n"), 0o644))

	records, err := readRecords([]string{arr, lines})
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "a1", records[0].ID)
	assert.Equal(t, "b1", records[2].ID)
	assert.NotEmpty(t, records[3].ID, "missing ids are generated")
}

func TestReadRecords_MissingFile(t *testing.T) {
	_, err := readRecords([]string{filepath.Join(t.TempDir(), "nope.jsonl")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open")
}
