package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"bidvault/native/escrow"
)

type Config struct {
	RPCAddress    string `toml:"RPCAddress"`
	DataDir       string `toml:"DataDir"`
	NetworkName   string `toml:"NetworkName"`
	BidderPolicy  string `toml:"BidderPolicy"`
	FaucetEnabled bool   `toml:"FaucetEnabled"`
}

// Load loads the configuration from the given path, writing a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fills defaults and rejects values the daemon cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RPCAddress) == "" {
		return fmt.Errorf("config: RPCAddress is required")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: DataDir is required")
	}
	if _, err := escrow.ParseBidderPolicy(c.BidderPolicy); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Policy returns the parsed bidder policy. Validate must have accepted the
// config first.
func (c *Config) Policy() escrow.BidderPolicy {
	policy, _ := escrow.ParseBidderPolicy(c.BidderPolicy)
	return policy
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{
		RPCAddress:    "127.0.0.1:8546",
		DataDir:       "./bidvault-data",
		NetworkName:   "bidvault-local",
		BidderPolicy:  "any",
		FaucetEnabled: false,
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
