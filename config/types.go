package config

// Config is the questd node configuration.
type Config struct {
	Node      Node      `toml:"node"`
	Telemetry Telemetry `toml:"telemetry"`
	RateLimit RateLimit `toml:"ratelimit"`
	QueryAuth QueryAuth `toml:"query_auth"`
	Archive   Archive   `toml:"archive"`
	Genesis   Genesis   `toml:"genesis"`
}

// Node holds storage and process settings.
type Node struct {
	DataDir               string `toml:"data_dir"`
	QueryAddress          string `toml:"query_address"`
	HealthAddress         string `toml:"health_address,omitempty"`
	Environment           string `toml:"environment"`
	LogLevel              string `toml:"log_level"`
	LogFile               string `toml:"log_file,omitempty"`
	AdminKeystorePath     string `toml:"admin_keystore"`
	CommitIntervalSeconds uint64 `toml:"commit_interval_seconds"`
	EventFeedSize         int    `toml:"event_feed_size"`
}

// Telemetry configures the OTLP exporters. An empty endpoint disables them.
type Telemetry struct {
	Endpoint string `toml:"otlp_endpoint,omitempty"`
	Insecure bool   `toml:"insecure"`
	Headers  string `toml:"headers,omitempty"`
	Traces   bool   `toml:"traces"`
	Metrics  bool   `toml:"metrics"`
	// SampleRatio traces that fraction of invocations; 0 traces all.
	SampleRatio           float64 `toml:"sample_ratio,omitempty"`
	MetricIntervalSeconds uint64  `toml:"metric_interval_seconds,omitempty"`
}

// RateLimit bounds query API traffic per client.
type RateLimit struct {
	RatePerSecond float64 `toml:"rate_per_second"`
	Burst         int     `toml:"burst"`
}

// QueryAuth requires HS256 bearer tokens on the query API. The signing
// secret is read from the SecretEnv environment variable, never the file.
type QueryAuth struct {
	Enabled          bool   `toml:"enabled"`
	SecretEnv        string `toml:"secret_env"`
	Issuer           string `toml:"issuer,omitempty"`
	Audience         string `toml:"audience,omitempty"`
	ClockSkewSeconds uint64 `toml:"clock_skew_seconds,omitempty"`
}

// Archive mirrors the event feed into a SQL database.
type Archive struct {
	Enabled              bool   `toml:"enabled"`
	Driver               string `toml:"driver"`
	DSN                  string `toml:"dsn"`
	BatchSize            int    `toml:"batch_size"`
	FlushIntervalSeconds uint64 `toml:"flush_interval_seconds"`
}

// Genesis lists the contracts initialized on an empty ledger. Addresses are
// qst1... or 0x strings; amounts are base-10 integers. Only sections with
// enabled = true are initialized.
type Genesis struct {
	Admin       string             `toml:"admin"`
	Timestamp   int64              `toml:"timestamp"`
	RewardToken TokenGenesis       `toml:"reward_token"`
	Staking     StakingGenesis     `toml:"staking"`
	Energy      EnergyGenesis      `toml:"energy"`
	Leaderboard LeaderboardGenesis `toml:"leaderboard"`
	TimeAttack  ToggleGenesis      `toml:"timeattack"`
	Bridge      BridgeGenesis      `toml:"bridge"`
	Guild       GuildGenesis       `toml:"guild"`
	Tournament  TournamentGenesis  `toml:"tournament"`
	Achievement ToggleGenesis      `toml:"achievement"`
	Puzzle      PuzzleGenesis      `toml:"puzzle"`
}

// ToggleGenesis enables a contract that takes no parameters beyond its admin.
type ToggleGenesis struct {
	Enabled bool `toml:"enabled"`
}

// Allocation mints Amount of the reward token to Address at genesis.
type Allocation struct {
	Address string `toml:"address"`
	Amount  string `toml:"amount"`
}

type TokenGenesis struct {
	Name        string       `toml:"name"`
	Symbol      string       `toml:"symbol"`
	Decimals    uint8        `toml:"decimals"`
	Allocations []Allocation `toml:"allocations,omitempty"`
}

type StakingGenesis struct {
	Enabled             bool     `toml:"enabled"`
	BaseAPY             uint64   `toml:"base_apy_bps"`
	MinLockPeriod       uint64   `toml:"min_lock_period"`
	RewardPool          string   `toml:"reward_pool,omitempty"`
	TierThresholds      []string `toml:"tier_thresholds,omitempty"`
	EarlyPenaltyBps     uint64   `toml:"early_penalty_bps,omitempty"`
	EmergencyPenaltyBps uint64   `toml:"emergency_penalty_bps,omitempty"`
}

type EnergyGenesis struct {
	Enabled          bool   `toml:"enabled"`
	BaseRegenRate    uint64 `toml:"base_regen_rate"`
	DefaultMaxEnergy uint64 `toml:"default_max_energy"`
	PuzzleEnergyCost uint64 `toml:"puzzle_energy_cost"`
	RefillTokenCost  string `toml:"refill_token_cost"`
}

type LeaderboardGenesis struct {
	Enabled       bool     `toml:"enabled"`
	MaxTopEntries uint32   `toml:"max_top_entries"`
	Verifiers     []string `toml:"verifiers,omitempty"`
}

type BridgeGenesis struct {
	Enabled            bool     `toml:"enabled"`
	RequiredSignatures uint32   `toml:"required_signatures"`
	ChainID            uint32   `toml:"chain_id"`
	FeeCollector       string   `toml:"fee_collector"`
	Validators         []string `toml:"validators,omitempty"`
	BaseFeeBps         uint64   `toml:"base_fee_bps,omitempty"`
}

type GuildGenesis struct {
	Enabled bool   `toml:"enabled"`
	Name    string `toml:"name"`
}

type TournamentGenesis struct {
	Enabled  bool   `toml:"enabled"`
	EntryFee string `toml:"entry_fee"`
}

// Puzzles maps puzzle ids to hex-encoded canonical solution hashes. Pack
// names a YAML puzzle pack, relative to the config file, merged into Puzzles
// on load.
type PuzzleGenesis struct {
	Enabled bool              `toml:"enabled"`
	Pack    string            `toml:"pack,omitempty"`
	Puzzles map[string]string `toml:"puzzles,omitempty"`
}
