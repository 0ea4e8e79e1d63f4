package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/calehh/hac-dao/gateway"
	"github.com/calehh/hac-dao/types"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel   = "info"
	DefaultHomeName   = ".dao"
	DefaultConfigDir  = "config"
	DefaultDataDir    = "data"
	DefaultOwnerKey   = "owner_priv_key"
	DefaultGenesis    = "genesis.json"
	DefaultConfigFile = "config.toml"
)

type APIConfig struct {
	ListenAddress string `mapstructure:"listen_address"`
}

// RailConfig selects and tunes the payment rail. On the local network the
// node keeps the token ledger itself and may serve it to other nodes on
// ListenAddress; on the remote network it calls URL.
type RailConfig struct {
	URL           string                `mapstructure:"url"`
	Timeout       time.Duration         `mapstructure:"timeout"`
	ListenAddress string                `mapstructure:"listen_address"`
	Treasury      string                `mapstructure:"treasury"`
	Backoff       gateway.BackoffConfig `mapstructure:"backoff"`
}

type IndexerConfig struct {
	Enable bool   `mapstructure:"enable"`
	DBPath string `mapstructure:"db_path"`
}

type Config struct {
	RootDir  string         `mapstructure:"-"`
	LogLevel string         `mapstructure:"log_level"`
	Network  string         `mapstructure:"network"`
	API      *APIConfig     `mapstructure:"api"`
	Rail     *RailConfig    `mapstructure:"rail"`
	Indexer  *IndexerConfig `mapstructure:"indexer"`
}

func DefaultHome() string {
	return os.ExpandEnv("$HOME/" + DefaultHomeName)
}

func DefaultConfig(home string) *Config {
	if len(home) == 0 {
		home = DefaultHome()
	}
	return &Config{
		RootDir:  home,
		LogLevel: DefaultLogLevel,
		Network:  string(types.NetworkLocal),
		API: &APIConfig{
			ListenAddress: "127.0.0.1:8088",
		},
		Rail: &RailConfig{
			URL:     "http://127.0.0.1:8089",
			Timeout: 10 * time.Second,
			Backoff: gateway.DefaultBackoffConfig(),
		},
		Indexer: &IndexerConfig{
			Enable: true,
			DBPath: "indexer.db",
		},
	}
}

// LoadConfig reads config/config.toml under home over the defaults.
func LoadConfig(home string) (*Config, error) {
	cfg := DefaultConfig(home)
	v := viper.New()
	v.SetConfigFile(cfg.ConfigFile())
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("invalid configuration data: %w", err)
	}
	return cfg, nil
}

func (c *Config) ValidateBasic() error {
	network, err := types.ParseNetwork(c.Network)
	if err != nil {
		return err
	}
	if c.API == nil || c.API.ListenAddress == "" {
		return errors.New("api.listen_address is required")
	}
	if c.Rail == nil {
		return errors.New("rail section is required")
	}
	if network == types.NetworkRemote && c.Rail.URL == "" {
		return errors.New("rail.url is required on the remote network")
	}
	if c.Rail.Timeout < 0 {
		return errors.New("rail.timeout cannot be negative")
	}
	if c.Rail.Backoff.Attempts < 1 {
		return errors.New("rail.backoff.attempts must be at least 1")
	}
	if c.Rail.Backoff.Multiplier < 1 {
		return errors.New("rail.backoff.multiplier must be at least 1")
	}
	if c.Indexer == nil {
		c.Indexer = &IndexerConfig{}
	}
	return nil
}

func (c *Config) NetworkMode() types.Network {
	n, _ := types.ParseNetwork(c.Network)
	return n
}

func (c *Config) rootify(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.RootDir, path)
}

func (c *Config) ConfigFile() string {
	return c.rootify(filepath.Join(DefaultConfigDir, DefaultConfigFile))
}

func (c *Config) GenesisFile() string {
	return c.rootify(filepath.Join(DefaultConfigDir, DefaultGenesis))
}

func (c *Config) OwnerKeyFile() string {
	return c.rootify(filepath.Join(DefaultConfigDir, DefaultOwnerKey))
}

func (c *Config) StateDir() string {
	return c.rootify(filepath.Join(DefaultDataDir, "state"))
}

func (c *Config) RailDir() string {
	return c.rootify(filepath.Join(DefaultDataDir, "rail"))
}

func (c *Config) IndexerDBFile() string {
	return c.rootify(filepath.Join(DefaultDataDir, c.Indexer.DBPath))
}

// EnsureRoot creates the config and data directories under the root.
func (c *Config) EnsureRoot() error {
	for _, dir := range []string{DefaultConfigDir, DefaultDataDir} {
		if err := os.MkdirAll(c.rootify(dir), DefaultDirPerm); err != nil {
			return fmt.Errorf("could not create directory %q: %w", dir, err)
		}
	}
	return nil
}
