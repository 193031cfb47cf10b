package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:8780", cfg.Proxy.Listen)
	require.Equal(t, "https://www.neopets.com", cfg.Proxy.Upstream)
	require.Equal(t, "sqlite", cfg.Store.Backend)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.Proxy.Listen = "127.0.0.1:9000"
	cfg.Store.Backend = "redis"
	cfg.Store.Redis.Address = "redis.local:6379"
	require.NoError(t, Save(cfg))
	require.True(t, Exists())

	loaded, err := Load()
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
}

func TestLoadMalformedReportsError(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "iglootrack"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "iglootrack", "config.toml"), []byte("[[["), 0o600))

	_, err := Load()
	require.Error(t, err)
}
