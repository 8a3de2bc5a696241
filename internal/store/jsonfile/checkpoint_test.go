package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "spool", "checkpoints.json")
	store := NewCheckpointStore(path)

	offsets, err := store.Offsets(ctx)
	require.NoError(t, err)
	assert.Empty(t, offsets)

	require.NoError(t, store.SetOffset(ctx, "/spool/a.jsonl", 42))
	require.NoError(t, store.SetOffset(ctx, "/spool/b.jsonl", 7))
	require.NoError(t, store.SetOffset(ctx, "/spool/a.jsonl", 84))

	offsets, err = NewCheckpointStore(path).Offsets(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"/spool/a.jsonl": 84, "/spool/b.jsonl": 7}, offsets)

	require.NoError(t, store.Forget(ctx, "/spool/b.jsonl"))
	require.NoError(t, store.Forget(ctx, "/spool/missing.jsonl"))

	offsets, err = store.Offsets(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"/spool/a.jsonl": 84}, offsets)
}

func TestCheckpointStore_CorruptedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoints.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewCheckpointStore(path).Offsets(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}
