package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, DefaultConfig().Save(path))

	reloaded := make(chan *Config, 4)
	w, err := NewWatcher(path, func(c *Config) { reloaded <- c }, zap.NewNop())
	require.NoError(t, err)
	w.debounceDur = 50 * time.Millisecond

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	cfg := DefaultConfig()
	cfg.Limits.DailyCap = 3
	require.NoError(t, cfg.Save(path))

	select {
	case got := <-reloaded:
		require.Equal(t, 3, got.Limits.DailyCap)
	case <-time.After(3 * time.Second):
		t.Fatal("reload callback never fired")
	}
}

func TestWatcherKeepsPreviousConfigOnBadFile(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, DefaultConfig().Save(path))

	reloaded := make(chan *Config, 4)
	w, err := NewWatcher(path, func(c *Config) { reloaded <- c }, zap.NewNop())
	require.NoError(t, err)
	w.debounceDur = 50 * time.Millisecond

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte(":: not yaml ::"), 0o644))

	select {
	case <-reloaded:
		t.Fatal("invalid config must not reach the callback")
	case <-time.After(time.Second):
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, DefaultConfig().Save(path))

	reloaded := make(chan *Config, 4)
	w, err := NewWatcher(path, func(c *Config) { reloaded <- c }, zap.NewNop())
	require.NoError(t, err)
	w.debounceDur = 50 * time.Millisecond

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1"), 0o644))

	select {
	case <-reloaded:
		t.Fatal("unrelated file must not trigger a reload")
	case <-time.After(time.Second):
	}
}
