package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"questchain/crypto"
)

func testAddress(t *testing.T, fill byte) string {
	t.Helper()
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return crypto.FormatAddress(addr)
}

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadWithoutPassphraseFailsToCreateDefault(t *testing.T) {
	t.Setenv(AdminPassphraseEnv, "")
	_, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	require.Error(t, err)
}

func TestLoadCreatesDefaultWithAdminKeystore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path, WithKeystorePassphrase("strong-passphrase"))
	require.NoError(t, err)

	key, err := crypto.LoadFromKeystore(cfg.Node.AdminKeystorePath, "strong-passphrase")
	require.NoError(t, err)
	require.Equal(t, key.Address().String(), cfg.Genesis.Admin)

	// The persisted file loads back to the same configuration.
	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, reloaded)
	require.True(t, reloaded.Genesis.Staking.Enabled)
	require.False(t, reloaded.Genesis.Bridge.Enabled)
}

func TestLoadParsesSections(t *testing.T) {
	admin := testAddress(t, 0x01)
	validator := testAddress(t, 0x02)
	path := writeConfig(t, `
[node]
data_dir = "/var/lib/questd"
query_address = "127.0.0.1:9000"
environment = "test"
log_level = "debug"

[telemetry]
otlp_endpoint = "collector:4318"
insecure = true
traces = true

[ratelimit]
rate_per_second = 5.5
burst = 11

[genesis]
admin = "`+admin+`"
timestamp = 1700000000

[genesis.reward_token]
name = "Quest"
symbol = "QST"
decimals = 6
allocations = [{ address = "`+admin+`", amount = "1000000" }]

[genesis.bridge]
enabled = true
required_signatures = 1
chain_id = 7
fee_collector = "`+admin+`"
validators = ["`+validator+`"]

[genesis.puzzle]
enabled = true
[genesis.puzzle.puzzles]
"3" = "0x0101010101010101010101010101010101010101010101010101010101010101"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9000", cfg.Node.QueryAddress)
	require.Equal(t, uint64(5), cfg.Node.CommitIntervalSeconds)
	require.Equal(t, "collector:4318", cfg.Telemetry.Endpoint)
	require.Equal(t, 5.5, cfg.RateLimit.RatePerSecond)
	require.Equal(t, 11, cfg.RateLimit.Burst)
	require.Equal(t, int64(1_700_000_000), cfg.Genesis.Timestamp)
	require.Len(t, cfg.Genesis.RewardToken.Allocations, 1)
	require.Equal(t, uint32(7), cfg.Genesis.Bridge.ChainID)
	require.Equal(t, []string{validator}, cfg.Genesis.Bridge.Validators)
	require.Contains(t, cfg.Genesis.Puzzle.Puzzles, "3")
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
[node]
query_address = ":8080"
listen_p2p = ":6001"
`)
	_, err := Load(path)
	require.ErrorContains(t, err, "unknown key")
}

func TestValidateGenesis(t *testing.T) {
	admin := testAddress(t, 0x01)
	base := func() *Config {
		cfg := Default()
		cfg.Genesis.Admin = admin
		return cfg
	}
	require.NoError(t, Validate(base()))

	cases := map[string]func(*Config){
		"bad admin":            func(c *Config) { c.Genesis.Admin = "nhb1xyz" },
		"zero allocation":      func(c *Config) { c.Genesis.RewardToken.Allocations = []Allocation{{Address: admin, Amount: "0"}} },
		"descending tiers":     func(c *Config) { c.Genesis.Staking.TierThresholds = []string{"10", "5", "20"} },
		"penalty over 100%":    func(c *Config) { c.Genesis.Staking.EarlyPenaltyBps = 10_001 },
		"zero max energy":      func(c *Config) { c.Genesis.Energy.DefaultMaxEnergy = 0 },
		"negative refill cost": func(c *Config) { c.Genesis.Energy.RefillTokenCost = "-1" },
		"chain id too large": func(c *Config) {
			c.Genesis.Bridge = BridgeGenesis{Enabled: true, ChainID: 1_001, RequiredSignatures: 1, FeeCollector: admin, Validators: []string{admin}}
		},
		"threshold above validators": func(c *Config) {
			c.Genesis.Bridge = BridgeGenesis{Enabled: true, ChainID: 7, RequiredSignatures: 2, FeeCollector: admin, Validators: []string{admin}}
		},
		"duplicate validator": func(c *Config) {
			c.Genesis.Bridge = BridgeGenesis{Enabled: true, ChainID: 7, RequiredSignatures: 1, FeeCollector: admin, Validators: []string{admin, admin}}
		},
		"unnamed guild":   func(c *Config) { c.Genesis.Guild = GuildGenesis{Enabled: true} },
		"short puzzle":    func(c *Config) { c.Genesis.Puzzle.Puzzles = map[string]string{"1": "0xabcd"} },
		"bad puzzle id":   func(c *Config) { c.Genesis.Puzzle.Puzzles = map[string]string{"one": ""} },
		"zero rate limit": func(c *Config) { c.RateLimit.RatePerSecond = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base()
			mutate(cfg)
			require.Error(t, Validate(cfg))
		})
	}
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount("")
	require.NoError(t, err)
	require.Zero(t, v.Sign())
	v, err = ParseAmount(" 1000000000000000000000 ")
	require.NoError(t, err)
	require.Equal(t, "1000000000000000000000", v.String())
	_, err = ParseAmount("1e6")
	require.Error(t, err)
}
