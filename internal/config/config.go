// Package config loads and saves the iglootrack TOML configuration.
// Runtime preferences (reminder opt-in, minimized panel) are not here:
// they live in the KV store under the userscript's key names so they
// travel with the ledger.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/safeira/iglootrack/internal/store"
)

// Config holds all iglootrack configuration.
type Config struct {
	Proxy ProxyConfig `toml:"proxy"`
	Store StoreConfig `toml:"store"`
}

// ProxyConfig holds the interception and control API addresses.
type ProxyConfig struct {
	Listen   string `toml:"listen"`
	API      string `toml:"api"`
	Upstream string `toml:"upstream"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	// Backend is "sqlite" (default) or "redis".
	Backend string            `toml:"backend"`
	Redis   store.RedisConfig `toml:"redis,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Proxy: ProxyConfig{
			Listen:   "127.0.0.1:8780",
			API:      "127.0.0.1:8781",
			Upstream: "https://www.neopets.com",
		},
		Store: StoreConfig{
			Backend: "sqlite",
			Redis:   store.RedisConfig{Address: "localhost:6379"},
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "iglootrack")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "iglootrack")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DataDir returns the XDG-compliant data directory holding the SQLite store.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "iglootrack")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "iglootrack")
}

// DBPath returns the default SQLite database path.
func DBPath() string {
	return filepath.Join(DataDir(), "iglootrack.db")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}
