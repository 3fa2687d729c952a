package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"questchain/crypto"
)

const (
	// AdminPassphraseEnv supplies the passphrase for a generated admin keystore.
	AdminPassphraseEnv = "QUESTCHAIN_ADMIN_PASSPHRASE"
	// DefaultJWTSecretEnv holds the query API signing secret.
	DefaultJWTSecretEnv = "QUESTCHAIN_QUERY_JWT_SECRET"
)

type loadOptions struct {
	passphrase func() (string, error)
}

// Option customises Load.
type Option func(*loadOptions)

// WithKeystorePassphrase sets the passphrase used when Load has to create
// the admin keystore.
func WithKeystorePassphrase(passphrase string) Option {
	return func(o *loadOptions) {
		o.passphrase = func() (string, error) { return passphrase, nil }
	}
}

// WithKeystorePassphraseSource defers resolving the passphrase until Load
// actually creates a keystore, so existing nodes never prompt.
func WithKeystorePassphraseSource(source func() (string, error)) Option {
	return func(o *loadOptions) { o.passphrase = source }
}

// Load loads the configuration from path. A missing file is replaced by a
// default configuration whose genesis admin is a freshly generated key.
func Load(path string, opts ...Option) (*Config, error) {
	options := loadOptions{passphrase: func() (string, error) { return os.Getenv(AdminPassphraseEnv), nil }}
	for _, opt := range opts {
		opt(&options)
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		passphrase, err := options.passphrase()
		if err != nil {
			return nil, fmt.Errorf("config: admin passphrase: %w", err)
		}
		return createDefault(path, passphrase)
	} else if err != nil {
		return nil, err
	}

	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config: unknown key %q in %s", undecoded[0].String(), path)
	}
	applyDefaults(cfg)
	if err := mergePuzzlePack(&cfg.Genesis.Puzzle, filepath.Dir(path)); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration without a genesis admin.
func Default() *Config {
	return &Config{
		Node: Node{
			DataDir:               "./questchain-data",
			QueryAddress:          ":8080",
			HealthAddress:         ":9090",
			Environment:           "local",
			LogLevel:              "info",
			CommitIntervalSeconds: 5,
			EventFeedSize:         1024,
		},
		RateLimit: RateLimit{RatePerSecond: 20, Burst: 40},
		QueryAuth: QueryAuth{SecretEnv: DefaultJWTSecretEnv},
		Archive: Archive{
			Driver:               "sqlite",
			DSN:                  "./questchain-data/events.db",
			BatchSize:            256,
			FlushIntervalSeconds: 2,
		},
		Genesis: Genesis{
			RewardToken: TokenGenesis{Name: "Quest Token", Symbol: "QST", Decimals: 6},
			Staking:     StakingGenesis{Enabled: true, BaseAPY: 500, MinLockPeriod: 7 * 86_400},
			Energy: EnergyGenesis{
				Enabled:          true,
				BaseRegenRate:    1,
				DefaultMaxEnergy: 100,
				PuzzleEnergyCost: 10,
				RefillTokenCost:  "1000000",
			},
			Leaderboard: LeaderboardGenesis{Enabled: true, MaxTopEntries: 100},
			TimeAttack:  ToggleGenesis{Enabled: true},
			Achievement: ToggleGenesis{Enabled: true},
			Puzzle:      PuzzleGenesis{Enabled: true},
		},
	}
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Node.DataDir) == "" {
		cfg.Node.DataDir = "./questchain-data"
	}
	if cfg.Node.CommitIntervalSeconds == 0 {
		cfg.Node.CommitIntervalSeconds = 5
	}
	if cfg.Node.EventFeedSize <= 0 {
		cfg.Node.EventFeedSize = 1024
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 1
	}
	if strings.TrimSpace(cfg.QueryAuth.SecretEnv) == "" {
		cfg.QueryAuth.SecretEnv = DefaultJWTSecretEnv
	}
	if cfg.Archive.BatchSize <= 0 {
		cfg.Archive.BatchSize = 256
	}
	if cfg.Archive.FlushIntervalSeconds == 0 {
		cfg.Archive.FlushIntervalSeconds = 2
	}
}

// createDefault writes a default configuration and a passphrase protected
// admin keystore next to path.
func createDefault(path, passphrase string) (*Config, error) {
	if strings.TrimSpace(passphrase) == "" {
		return nil, fmt.Errorf("config: %s must be set to create the admin keystore", AdminPassphraseEnv)
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	keystorePath := defaultKeystorePath(path)
	if err := crypto.SaveToKeystore(keystorePath, key, passphrase); err != nil {
		return nil, err
	}

	cfg := Default()
	cfg.Node.AdminKeystorePath = keystorePath
	cfg.Genesis.Admin = key.Address().String()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), "admin.keystore")
}
