package energy

import (
	"math/big"

	"questchain/native/common"
)

// BoostType selects a regeneration multiplier.
type BoostType uint8

const (
	BoostNone BoostType = iota
	BoostDoubleRegen
	BoostTripleRegen
	BoostQuintupleRegen
)

// Multiplier returns the regeneration factor of the boost.
func (b BoostType) Multiplier() uint64 {
	switch b {
	case BoostDoubleRegen:
		return 2
	case BoostTripleRegen:
		return 3
	case BoostQuintupleRegen:
		return 5
	default:
		return 1
	}
}

func (b BoostType) String() string {
	switch b {
	case BoostDoubleRegen:
		return "double"
	case BoostTripleRegen:
		return "triple"
	case BoostQuintupleRegen:
		return "quintuple"
	default:
		return "none"
	}
}

// Valid reports whether b names an applicable boost.
func (b BoostType) Valid() bool {
	return b >= BoostDoubleRegen && b <= BoostQuintupleRegen
}

// DefaultMaxGiftPerDay caps the energy a player can give away per day.
const DefaultMaxGiftPerDay uint64 = 20

// Config holds the energy contract parameters.
type Config struct {
	Admin            [20]byte
	RewardToken      [20]byte
	BaseRegenRate    uint64
	DefaultMaxEnergy uint64
	PuzzleEnergyCost uint64
	RefillTokenCost  *big.Int
	MaxGiftPerDay    uint64
	Paused           bool
}

// IsPaused implements common.PauseView.
func (c *Config) IsPaused() bool { return c != nil && c.Paused }

func (c *Config) giftQuota() common.Quota {
	return common.Quota{Limit: c.MaxGiftPerDay, WindowSeconds: common.SecondsPerDay}
}

// ConfigUpdate carries optional replacements for UpdateConfig.
type ConfigUpdate struct {
	BaseRegenRate    *uint64
	DefaultMaxEnergy *uint64
	PuzzleEnergyCost *uint64
	RefillTokenCost  *big.Int
	MaxGiftPerDay    *uint64
}

// PlayerEnergy is a player's stamina record. CurrentEnergy never exceeds
// MaxEnergy.
type PlayerEnergy struct {
	CurrentEnergy  uint64
	MaxEnergy      uint64
	LastUpdate     uint64
	ActiveBoost    BoostType
	BoostExpiresAt uint64
	GiftedToday    uint64
	LastGiftReset  uint64
}

// Clone returns a copy of the record.
func (p *PlayerEnergy) Clone() *PlayerEnergy {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// BoostActive reports whether the boost applies at now.
func (p *PlayerEnergy) BoostActive(now uint64) bool {
	return p.ActiveBoost != BoostNone && p.BoostExpiresAt > now
}
