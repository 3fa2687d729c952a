package staking

import "math/big"

// Tier is the yield bucket derived from a staked amount.
type Tier uint8

const (
	TierNone Tier = iota
	TierBronze
	TierSilver
	TierGold
)

func (t Tier) String() string {
	switch t {
	case TierBronze:
		return "bronze"
	case TierSilver:
		return "silver"
	case TierGold:
		return "gold"
	default:
		return "none"
	}
}

// Default tier bonuses and thresholds.
const (
	DefaultBronzeBonus            uint64 = 100
	DefaultSilverBonus            uint64 = 250
	DefaultGoldBonus              uint64 = 500
	DefaultEarlyUnstakePenaltyBps uint64 = 1_000
	DefaultEmergencyPenaltyBps    uint64 = 2_000
)

var (
	DefaultBronzeThreshold = big.NewInt(1_000_000_000)
	DefaultSilverThreshold = big.NewInt(10_000_000_000)
	DefaultGoldThreshold   = big.NewInt(100_000_000_000)
)

// Config holds the staking contract parameters.
type Config struct {
	Admin                  [20]byte
	StakingToken           [20]byte
	RewardToken            [20]byte
	BaseAPY                uint64
	BronzeBonus            uint64
	SilverBonus            uint64
	GoldBonus              uint64
	BronzeThreshold        *big.Int
	SilverThreshold        *big.Int
	GoldThreshold          *big.Int
	MinLockPeriod          uint64
	EarlyUnstakePenaltyBps uint64
	EmergencyPenaltyBps    uint64
	Paused                 bool
}

// IsPaused implements common.PauseView.
func (c *Config) IsPaused() bool { return c != nil && c.Paused }

// TierFor derives the tier of amount from the configured thresholds.
func (c *Config) TierFor(amount *big.Int) Tier {
	if amount == nil || amount.Sign() <= 0 {
		return TierNone
	}
	switch {
	case c.GoldThreshold != nil && amount.Cmp(c.GoldThreshold) >= 0:
		return TierGold
	case c.SilverThreshold != nil && amount.Cmp(c.SilverThreshold) >= 0:
		return TierSilver
	case c.BronzeThreshold != nil && amount.Cmp(c.BronzeThreshold) >= 0:
		return TierBronze
	default:
		return TierNone
	}
}

// APYFor returns the yield of tier in basis points.
func (c *Config) APYFor(t Tier) uint64 {
	switch t {
	case TierBronze:
		return c.BaseAPY + c.BronzeBonus
	case TierSilver:
		return c.BaseAPY + c.SilverBonus
	case TierGold:
		return c.BaseAPY + c.GoldBonus
	default:
		return c.BaseAPY
	}
}

// Clone returns a deep copy of the config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	clone.BronzeThreshold = cloneBig(c.BronzeThreshold)
	clone.SilverThreshold = cloneBig(c.SilverThreshold)
	clone.GoldThreshold = cloneBig(c.GoldThreshold)
	return &clone
}

// StakerInfo is the per-address staking position. Tier is recomputed from
// StakedAmount whenever the amount changes and is never set on its own.
type StakerInfo struct {
	StakedAmount       *big.Int
	StakeTimestamp     uint64
	LastRewardClaim    uint64
	AccumulatedRewards *big.Int
	Tier               Tier
}

// Clone returns a deep copy of the staker info.
func (s *StakerInfo) Clone() *StakerInfo {
	if s == nil {
		return nil
	}
	clone := *s
	clone.StakedAmount = cloneBig(s.StakedAmount)
	clone.AccumulatedRewards = cloneBig(s.AccumulatedRewards)
	return &clone
}

func (s *StakerInfo) normalize() {
	if s.StakedAmount == nil {
		s.StakedAmount = big.NewInt(0)
	}
	if s.AccumulatedRewards == nil {
		s.AccumulatedRewards = big.NewInt(0)
	}
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
