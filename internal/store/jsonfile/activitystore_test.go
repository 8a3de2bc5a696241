package jsonfile

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/pulse/internal/core/activity"
)

func parsed(id, sessionID string, ts time.Time) activity.ParsedActivity {
	return activity.ParsedActivity{
		ID:        id,
		SessionID: sessionID,
		Timestamp: ts,
		Type:      activity.TypeCoding,
		Category:  activity.CategoryProductive,
	}.WithDuration(1500)
}

func TestActivityStore_AppendAndList(t *testing.T) {
	ctx := context.Background()
	store := NewActivityStore(t.TempDir())
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(ctx,
		parsed("a", "s1", base),
		parsed("b", "s2", base.Add(time.Second)),
	))
	require.NoError(t, store.Append(ctx, parsed("c", "s1", base.Add(2*time.Second))))

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "c", all[2].ID)
	require.NotNil(t, all[0].Duration)
	assert.Equal(t, int64(1500), *all[0].Duration)
	assert.True(t, base.Equal(all[0].Timestamp))

	s1, err := store.List(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, s1, 2)
}

func TestActivityStore_EntriesHaveIDs(t *testing.T) {
	ctx := context.Background()
	store := NewActivityStore(t.TempDir())

	require.NoError(t, store.Append(ctx, parsed("a", "s1", time.Now())))

	store.mu.Lock()
	entries, err := store.readEntriesUnsafe()
	store.mu.Unlock()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	_, err = uuid.Parse(entries[0].ID)
	assert.NoError(t, err)
	assert.False(t, entries[0].RecordedAt.IsZero())
}

func TestActivityStore_Retention(t *testing.T) {
	ctx := context.Background()
	store := NewActivityStore(t.TempDir()).WithMaxActivities(3)
	base := time.Now()

	for i := range 5 {
		require.NoError(t, store.Append(ctx, parsed(fmt.Sprintf("a%d", i), "s", base.Add(time.Duration(i)*time.Second))))
	}

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a2", all[0].ID)
	assert.Equal(t, "a4", all[2].ID)
}

func TestActivityStore_Prune(t *testing.T) {
	ctx := context.Background()
	store := NewActivityStore(t.TempDir())
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(ctx,
		parsed("old", "s", base.Add(-48*time.Hour)),
		parsed("new", "s", base),
	))

	removed, err := store.Prune(ctx, base.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "new", all[0].ID)

	removed, err = store.Prune(ctx, base.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestActivityStore_PruneKeepsActiveSessions(t *testing.T) {
	ctx := context.Background()
	store := NewActivityStore(t.TempDir())
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(ctx,
		parsed("span-start", "span", base.Add(-25*time.Hour)),
		parsed("stale", "stale", base.Add(-30*time.Hour)),
		parsed("span-end", "span", base.Add(-time.Hour)),
	))

	removed, err := store.Prune(ctx, base.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	span, err := store.List(ctx, "span")
	require.NoError(t, err)
	require.Len(t, span, 2)
	assert.Equal(t, "span-start", span[0].ID)
}

func TestActivityStore_SkipsMalformedLines(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewActivityStore(dir)

	require.NoError(t, store.Append(ctx, parsed("a", "s", time.Now())))

	f, err := os.OpenFile(store.filePath(), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestActivityStore_ConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	store := NewActivityStore(t.TempDir())

	var wg sync.WaitGroup
	for g := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 10 {
				assert.NoError(t, store.Append(ctx, parsed(fmt.Sprintf("g%d-%d", g, i), "s", time.Now())))
			}
		}()
	}
	wg.Wait()

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 40)
}
