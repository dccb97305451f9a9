package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatchReloadsOnRewrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := GetDefaultConfig()
	require.NoError(t, SaveConfig(cfg, path))

	stop := make(chan struct{})
	defer close(stop)

	reloaded := make(chan *Config, 1)
	err := Watch(path, stop, func(c *Config) {
		select {
		case reloaded <- c:
		default:
		}
	})
	require.NoError(t, err)

	cfg.Logging.Level = "DEBUG"
	require.NoError(t, SaveConfig(cfg, path))

	select {
	case c := <-reloaded:
		require.Equal(t, "DEBUG", c.Logging.Level)
	case <-time.After(5 * time.Second):
		t.Fatal("config change was not observed")
	}
}

func TestWatchKeepsPreviousConfigOnInvalidRewrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	require.NoError(t, SaveConfig(GetDefaultConfig(), path))

	stop := make(chan struct{})
	defer close(stop)

	reloaded := make(chan *Config, 1)
	err := Watch(path, stop, func(c *Config) { reloaded <- c })
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: NOPE\n"), 0600))

	select {
	case c := <-reloaded:
		t.Fatalf("invalid config was applied: %+v", c)
	case <-time.After(time.Second):
	}
}

func TestWatchMissingDirectory(t *testing.T) {
	stop := make(chan struct{})
	defer close(stop)

	err := Watch("/nonexistent/dir/config.yaml", stop, func(*Config) {})
	require.Error(t, err)
}
