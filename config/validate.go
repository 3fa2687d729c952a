package config

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"questchain/crypto"
)

const (
	maxBasisPoints = 10_000
	maxChainID     = 1_000
	maxValidators  = 50
	maxDecimals    = 18
)

// ParseAmount parses a non-negative base-10 integer. Empty means zero.
func ParseAmount(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return amount, nil
}

// ParsePuzzleID parses a puzzle id key from the genesis puzzle table.
func ParsePuzzleID(value string) (uint32, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(value), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid puzzle id %q", value)
	}
	return uint32(id), nil
}

// ParseHash32 decodes a 32-byte hex string with optional 0x prefix.
func ParseHash32(value string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(value), "0x"))
	if err != nil {
		return out, fmt.Errorf("invalid hash %q: %w", value, err)
	}
	if len(raw) != len(out) {
		return out, fmt.Errorf("hash %q must be 32 bytes", value)
	}
	copy(out[:], raw)
	return out, nil
}

// Validate checks every section for values the node cannot run with.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil config")
	}
	if strings.TrimSpace(cfg.Node.QueryAddress) == "" {
		return fmt.Errorf("node: query_address must be set")
	}
	if r := cfg.Telemetry.SampleRatio; r < 0 || r > 1 {
		return fmt.Errorf("telemetry: sample_ratio must be within [0, 1]")
	}
	if cfg.RateLimit.RatePerSecond <= 0 {
		return fmt.Errorf("ratelimit: rate_per_second must be positive")
	}
	if cfg.RateLimit.Burst <= 0 {
		return fmt.Errorf("ratelimit: burst must be positive")
	}
	if a := cfg.Archive; a.Enabled {
		switch strings.ToLower(strings.TrimSpace(a.Driver)) {
		case "sqlite", "postgres":
		default:
			return fmt.Errorf("archive: driver must be sqlite or postgres, got %q", a.Driver)
		}
		if strings.TrimSpace(a.DSN) == "" {
			return fmt.Errorf("archive: dsn must be set")
		}
	}
	if err := validateGenesis(&cfg.Genesis); err != nil {
		return fmt.Errorf("genesis: %w", err)
	}
	return nil
}

func validateAddresses(field string, values []string) error {
	seen := make(map[[20]byte]struct{}, len(values))
	for _, value := range values {
		addr, err := crypto.ParseAddress(value)
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		if _, dup := seen[addr]; dup {
			return fmt.Errorf("%s: duplicate address %s", field, value)
		}
		seen[addr] = struct{}{}
	}
	return nil
}

func validateGenesis(g *Genesis) error {
	if strings.TrimSpace(g.Admin) == "" {
		// No admin means the ledger starts without any contract initialized.
		return nil
	}
	if _, err := crypto.ParseAddress(g.Admin); err != nil {
		return fmt.Errorf("admin: %w", err)
	}
	if g.Timestamp < 0 {
		return fmt.Errorf("timestamp must not be negative")
	}
	if strings.TrimSpace(g.RewardToken.Symbol) == "" {
		return fmt.Errorf("reward_token: symbol must be provided")
	}
	if g.RewardToken.Decimals > maxDecimals {
		return fmt.Errorf("reward_token: decimals must be %d or fewer", maxDecimals)
	}
	for i, alloc := range g.RewardToken.Allocations {
		if _, err := crypto.ParseAddress(alloc.Address); err != nil {
			return fmt.Errorf("reward_token.allocations[%d]: %w", i, err)
		}
		amount, err := ParseAmount(alloc.Amount)
		if err != nil {
			return fmt.Errorf("reward_token.allocations[%d]: %w", i, err)
		}
		if amount.Sign() == 0 {
			return fmt.Errorf("reward_token.allocations[%d]: amount must be positive", i)
		}
	}

	if s := g.Staking; s.Enabled {
		if _, err := ParseAmount(s.RewardPool); err != nil {
			return fmt.Errorf("staking.reward_pool: %w", err)
		}
		if len(s.TierThresholds) != 0 && len(s.TierThresholds) != 3 {
			return fmt.Errorf("staking.tier_thresholds: want bronze, silver and gold")
		}
		var prev *big.Int
		for i, raw := range s.TierThresholds {
			v, err := ParseAmount(raw)
			if err != nil {
				return fmt.Errorf("staking.tier_thresholds[%d]: %w", i, err)
			}
			if prev != nil && v.Cmp(prev) <= 0 {
				return fmt.Errorf("staking.tier_thresholds: must be strictly ascending")
			}
			prev = v
		}
		if s.EarlyPenaltyBps > maxBasisPoints || s.EmergencyPenaltyBps > maxBasisPoints {
			return fmt.Errorf("staking: penalties must be %d bps or fewer", maxBasisPoints)
		}
	}

	if e := g.Energy; e.Enabled {
		if e.DefaultMaxEnergy == 0 {
			return fmt.Errorf("energy.default_max_energy must be positive")
		}
		if _, err := ParseAmount(e.RefillTokenCost); err != nil {
			return fmt.Errorf("energy.refill_token_cost: %w", err)
		}
	}

	if l := g.Leaderboard; l.Enabled {
		if err := validateAddresses("leaderboard.verifiers", l.Verifiers); err != nil {
			return err
		}
	}

	if b := g.Bridge; b.Enabled {
		if b.ChainID == 0 || b.ChainID > maxChainID {
			return fmt.Errorf("bridge.chain_id must be in 1..%d", maxChainID)
		}
		if b.RequiredSignatures == 0 || b.RequiredSignatures > maxValidators {
			return fmt.Errorf("bridge.required_signatures must be in 1..%d", maxValidators)
		}
		if len(b.Validators) > maxValidators {
			return fmt.Errorf("bridge.validators: at most %d", maxValidators)
		}
		if int(b.RequiredSignatures) > len(b.Validators) {
			return fmt.Errorf("bridge.required_signatures exceeds validator count %d", len(b.Validators))
		}
		if err := validateAddresses("bridge.validators", b.Validators); err != nil {
			return err
		}
		if _, err := crypto.ParseAddress(b.FeeCollector); err != nil {
			return fmt.Errorf("bridge.fee_collector: %w", err)
		}
		if b.BaseFeeBps > maxBasisPoints {
			return fmt.Errorf("bridge.base_fee_bps must be %d or fewer", maxBasisPoints)
		}
	}

	if gd := g.Guild; gd.Enabled && strings.TrimSpace(gd.Name) == "" {
		return fmt.Errorf("guild.name must be provided")
	}

	if t := g.Tournament; t.Enabled {
		if _, err := ParseAmount(t.EntryFee); err != nil {
			return fmt.Errorf("tournament.entry_fee: %w", err)
		}
	}

	if p := g.Puzzle; p.Enabled {
		for id, hash := range p.Puzzles {
			if _, err := ParsePuzzleID(id); err != nil {
				return fmt.Errorf("puzzle.puzzles: %w", err)
			}
			if _, err := ParseHash32(hash); err != nil {
				return fmt.Errorf("puzzle.puzzles[%s]: %w", id, err)
			}
		}
	}
	return nil
}
