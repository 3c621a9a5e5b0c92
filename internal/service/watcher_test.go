package service

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/eduroute/backend/internal/logging"
)

func TestWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "network.geojson")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	w := NewWatcher(logging.Discard(), path, func(context.Context) { calls.Add(1) }).
		WithDebounce(50 * time.Millisecond)
	require.NoError(t, w.Start(ctx))

	// unrelated files in the same directory are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o600))
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte(`{"type":"FeatureCollection"}`), 0o600))
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	cancel()
	w.Wait()
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w := NewWatcher(logging.Discard(), filepath.Join(t.TempDir(), "nope", "graph.geojson"), func(context.Context) {})
	assert.Error(t, w.Start(context.Background()))
}
