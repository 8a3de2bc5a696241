package config

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_ReloadsValidChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "quality:\n  min_confidence: 0.5\n")

	var (
		mu     sync.Mutex
		loaded []float64
	)
	apply := func(cfg *Config) error {
		mu.Lock()
		defer mu.Unlock()
		loaded = append(loaded, cfg.Quality.MinConfidence)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, dir, zerolog.Nop(), apply) }()

	last := func() float64 {
		mu.Lock()
		defer mu.Unlock()
		if len(loaded) == 0 {
			return -1
		}
		return loaded[len(loaded)-1]
	}

	// the watcher may not be registered yet; keep rewriting until it is seen
	require.Eventually(t, func() bool {
		writeFile(t, path, "quality:\n  min_confidence: 0.7\n")
		return last() == 0.7
	}, 5*time.Second, 50*time.Millisecond)

	// invalid configs never reach apply
	writeFile(t, path, "quality:\n  min_confidence: 3\n")
	writeFile(t, filepath.Join(dir, "other.yaml"), "quality:\n  min_confidence: 0.9\n")
	time.Sleep(200 * time.Millisecond)
	assert.InDelta(t, 0.7, last(), 1e-9)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestReloadable(t *testing.T) {
	cfg := DefaultConfig()
	p := cfg.Reloadable()

	require.NotNil(t, p.Quality)
	require.NotNil(t, p.Rules)
	assert.Len(t, *p.Rules, len(cfg.Rules))

	// the rule slice does not alias the source
	(*p.Rules)[0].ID = "changed"
	assert.NotEqual(t, "changed", cfg.Rules[0].ID)

	merged := DefaultConfig().Merge(p)
	assert.Equal(t, "changed", merged.Rules[0].ID)
}
