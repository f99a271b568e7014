package watchdog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWatchDogForwardsFilteredFiles(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notify := make(chan string, 8)
	onlyCrashes := func(path string) bool {
		return strings.HasPrefix(filepath.Base(path), "crash-")
	}
	wd, err := NewWatchDogFactory(zap.NewNop()).New(ctx, notify, onlyCrashes)
	require.NoError(t, err)
	require.NoError(t, wd.AddDir(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "crash-1"), []byte("x"), 0o644))

	select {
	case got := <-notify:
		assert.Equal(t, "crash-1", filepath.Base(got))
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
	}

	cancel()
	select {
	case <-wd.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("watchdog did not stop")
	}
	for range notify {
		// drain until closed
	}
}

func TestWatchDogMissingDir(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wd, err := NewWatchDogFactory(zap.NewNop()).New(ctx, make(chan string), nil)
	require.NoError(t, err)
	assert.Error(t, wd.AddDir(filepath.Join(t.TempDir(), "missing")))
}
