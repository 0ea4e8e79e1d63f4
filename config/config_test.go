package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/calehh/hac-dao/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndLoadConfig(t *testing.T) {
	home := t.TempDir()
	cfg := DefaultConfig(home)
	cfg.Network = string(types.NetworkRemote)
	cfg.API.ListenAddress = "0.0.0.0:9000"
	cfg.Rail.URL = "http://rail:8089"
	cfg.Rail.Treasury = "0x000000000000000000000000000000000000dA00"
	cfg.Rail.Backoff.Attempts = 5
	cfg.Rail.Backoff.InitialDelay = 50 * time.Millisecond
	cfg.Indexer.Enable = false
	require.NoError(t, WriteConfigFile(cfg))

	loaded, err := LoadConfig(home)
	require.NoError(t, err)
	assert.Equal(t, home, loaded.RootDir)
	assert.Equal(t, types.NetworkRemote, loaded.NetworkMode())
	assert.Equal(t, "0.0.0.0:9000", loaded.API.ListenAddress)
	assert.Equal(t, "http://rail:8089", loaded.Rail.URL)
	assert.Equal(t, 10*time.Second, loaded.Rail.Timeout)
	assert.Equal(t, cfg.Rail.Treasury, loaded.Rail.Treasury)
	assert.Equal(t, 5, loaded.Rail.Backoff.Attempts)
	assert.Equal(t, 50*time.Millisecond, loaded.Rail.Backoff.InitialDelay)
	assert.Equal(t, 2*time.Second, loaded.Rail.Backoff.MaxDelay)
	assert.Equal(t, float64(2), loaded.Rail.Backoff.Multiplier)
	assert.True(t, loaded.Rail.Backoff.Jitter)
	assert.False(t, loaded.Indexer.Enable)
	assert.Equal(t, filepath.Join(home, "data", "indexer.db"), loaded.IndexerDBFile())
}

func TestWriteInvalidConfig(t *testing.T) {
	cfg := DefaultConfig(t.TempDir())
	cfg.Network = "moon"
	require.ErrorIs(t, WriteConfigFile(cfg), types.ErrInvalidConfig)
	_, err := os.Stat(cfg.ConfigFile())
	assert.True(t, os.IsNotExist(err))
}

func TestLoadConfigMissing(t *testing.T) {
	_, err := LoadConfig(t.TempDir())
	require.Error(t, err)
}

func TestValidateBasic(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(c *Config) {}, false},
		{"unknown network", func(c *Config) { c.Network = "moon" }, true},
		{"no api address", func(c *Config) { c.API.ListenAddress = "" }, true},
		{"remote without url", func(c *Config) { c.Network = "remote"; c.Rail.URL = "" }, true},
		{"local without url", func(c *Config) { c.Rail.URL = "" }, false},
		{"zero attempts", func(c *Config) { c.Rail.Backoff.Attempts = 0 }, true},
		{"shrinking backoff", func(c *Config) { c.Rail.Backoff.Multiplier = 0.5 }, true},
		{"no indexer section", func(c *Config) { c.Indexer = nil }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig(t.TempDir())
			tt.mutate(cfg)
			err := cfg.ValidateBasic()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestPaths(t *testing.T) {
	cfg := DefaultConfig("/srv/dao")
	assert.Equal(t, "/srv/dao/config/config.toml", cfg.ConfigFile())
	assert.Equal(t, "/srv/dao/config/genesis.json", cfg.GenesisFile())
	assert.Equal(t, "/srv/dao/config/owner_priv_key", cfg.OwnerKeyFile())
	assert.Equal(t, "/srv/dao/data/state", cfg.StateDir())
	assert.Equal(t, "/srv/dao/data/rail", cfg.RailDir())
	cfg.Indexer.DBPath = "/var/lib/dao.db"
	assert.Equal(t, "/var/lib/dao.db", cfg.IndexerDBFile())

	assert.Equal(t, os.ExpandEnv("$HOME/.dao"), DefaultConfig("").RootDir)
}
