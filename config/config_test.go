package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"bidvault/native/escrow"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:8546", cfg.RPCAddress)
	require.Equal(t, escrow.PolicyAnyBidder, cfg.Policy())
	require.False(t, cfg.FaucetEnabled)
	require.FileExists(t, path)

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, reloaded)
}

func TestLoadRejectsUnknownPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := "RPCAddress = \"127.0.0.1:8546\"\nDataDir = \"./data\"\nBidderPolicy = \"mediator\"\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadOwnerPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := "RPCAddress = \"127.0.0.1:9000\"\nDataDir = \"./data\"\nBidderPolicy = \"owner\"\nFaucetEnabled = true\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, escrow.PolicyOwnerOnly, cfg.Policy())
	require.True(t, cfg.FaucetEnabled)
}
