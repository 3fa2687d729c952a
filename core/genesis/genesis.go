// Package genesis seeds a fresh ledger with the contracts configured in the
// node's genesis section.
package genesis

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"questchain/config"
	"questchain/core"
	"questchain/crypto"
)

// Apply initializes every enabled contract in a single invocation. It
// returns false without touching the ledger when no admin is configured or
// the reward token already exists.
func Apply(ctx context.Context, rt *core.Runtime, g config.Genesis) (bool, error) {
	if rt == nil {
		return false, fmt.Errorf("genesis: runtime must not be nil")
	}
	if g.Admin == "" {
		return false, nil
	}
	admin, err := crypto.ParseAddress(g.Admin)
	if err != nil {
		return false, fmt.Errorf("genesis: admin: %w", err)
	}
	applied := false
	if err := rt.View(func(c *core.Contracts) error {
		if _, err := c.RewardToken.Metadata(); err == nil {
			applied = true
		}
		return nil
	}); err != nil {
		return false, err
	}
	if applied {
		return false, nil
	}

	plan, err := newPlan(admin, g)
	if err != nil {
		return false, err
	}
	tx := core.Tx{Contract: "genesis", Method: "apply", Signers: [][20]byte{admin}, Timestamp: g.Timestamp}
	if err := rt.Invoke(ctx, tx, plan.run); err != nil {
		return false, fmt.Errorf("genesis: %w", err)
	}
	return true, nil
}

type allocation struct {
	to     [20]byte
	amount *big.Int
}

type puzzleEntry struct {
	id   uint32
	hash [32]byte
}

// plan is the genesis section with every string field decoded, so the
// invocation itself only fails on contract rules.
type plan struct {
	g            config.Genesis
	admin        [20]byte
	allocations  []allocation
	rewardPool   *big.Int
	tiers        []*big.Int
	refillCost   *big.Int
	verifiers    [][20]byte
	validators   [][20]byte
	feeCollector [20]byte
	entryFee     *big.Int
	puzzles      []puzzleEntry
}

func newPlan(admin [20]byte, g config.Genesis) (*plan, error) {
	p := &plan{g: g, admin: admin}
	for i, a := range g.RewardToken.Allocations {
		to, err := crypto.ParseAddress(a.Address)
		if err != nil {
			return nil, fmt.Errorf("genesis: allocations[%d]: %w", i, err)
		}
		amount, err := config.ParseAmount(a.Amount)
		if err != nil {
			return nil, fmt.Errorf("genesis: allocations[%d]: %w", i, err)
		}
		p.allocations = append(p.allocations, allocation{to: to, amount: amount})
	}
	var err error
	if p.rewardPool, err = config.ParseAmount(g.Staking.RewardPool); err != nil {
		return nil, fmt.Errorf("genesis: staking reward pool: %w", err)
	}
	for _, raw := range g.Staking.TierThresholds {
		v, err := config.ParseAmount(raw)
		if err != nil {
			return nil, fmt.Errorf("genesis: staking tiers: %w", err)
		}
		p.tiers = append(p.tiers, v)
	}
	if len(p.tiers) != 0 && len(p.tiers) != 3 {
		return nil, fmt.Errorf("genesis: staking tiers: want 3 thresholds, got %d", len(p.tiers))
	}
	if p.refillCost, err = config.ParseAmount(g.Energy.RefillTokenCost); err != nil {
		return nil, fmt.Errorf("genesis: energy refill cost: %w", err)
	}
	if p.verifiers, err = parseAddresses(g.Leaderboard.Verifiers); err != nil {
		return nil, fmt.Errorf("genesis: leaderboard verifiers: %w", err)
	}
	if p.validators, err = parseAddresses(g.Bridge.Validators); err != nil {
		return nil, fmt.Errorf("genesis: bridge validators: %w", err)
	}
	if g.Bridge.Enabled {
		if p.feeCollector, err = crypto.ParseAddress(g.Bridge.FeeCollector); err != nil {
			return nil, fmt.Errorf("genesis: bridge fee collector: %w", err)
		}
	}
	if p.entryFee, err = config.ParseAmount(g.Tournament.EntryFee); err != nil {
		return nil, fmt.Errorf("genesis: tournament entry fee: %w", err)
	}
	for rawID, rawHash := range g.Puzzle.Puzzles {
		id, err := config.ParsePuzzleID(rawID)
		if err != nil {
			return nil, fmt.Errorf("genesis: puzzles: %w", err)
		}
		hash, err := config.ParseHash32(rawHash)
		if err != nil {
			return nil, fmt.Errorf("genesis: puzzles[%s]: %w", rawID, err)
		}
		p.puzzles = append(p.puzzles, puzzleEntry{id: id, hash: hash})
	}
	// Map order is random; sort so every node writes the same events.
	sort.Slice(p.puzzles, func(i, j int) bool { return p.puzzles[i].id < p.puzzles[j].id })
	return p, nil
}

func parseAddresses(values []string) ([][20]byte, error) {
	out := make([][20]byte, 0, len(values))
	for _, v := range values {
		addr, err := crypto.ParseAddress(v)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

func (p *plan) run(c *core.Contracts) error {
	g, admin := p.g, p.admin
	tokenAddr := c.RewardToken.Address()

	rt := g.RewardToken
	if err := c.RewardToken.Initialize(admin, rt.Name, rt.Symbol, rt.Decimals); err != nil {
		return fmt.Errorf("reward token: %w", err)
	}
	for _, a := range p.allocations {
		if err := c.RewardToken.Mint(admin, a.to, a.amount); err != nil {
			return fmt.Errorf("reward token allocation %s: %w", crypto.FormatAddress(a.to), err)
		}
	}

	if s := g.Staking; s.Enabled {
		if err := c.Staking.Initialize(admin, tokenAddr, tokenAddr, s.BaseAPY, s.MinLockPeriod); err != nil {
			return fmt.Errorf("staking: %w", err)
		}
		if p.rewardPool.Sign() > 0 {
			if err := c.RewardToken.Mint(admin, admin, p.rewardPool); err != nil {
				return fmt.Errorf("staking reward pool: %w", err)
			}
			if err := c.Staking.AddRewards(admin, p.rewardPool); err != nil {
				return fmt.Errorf("staking reward pool: %w", err)
			}
		}
		if len(p.tiers) == 3 {
			if err := c.Staking.UpdateTierThresholds(admin, p.tiers[0], p.tiers[1], p.tiers[2]); err != nil {
				return fmt.Errorf("staking tiers: %w", err)
			}
		}
		if s.EarlyPenaltyBps != 0 || s.EmergencyPenaltyBps != 0 {
			if err := c.Staking.UpdateStakingParams(admin, s.MinLockPeriod, s.EarlyPenaltyBps, s.EmergencyPenaltyBps); err != nil {
				return fmt.Errorf("staking penalties: %w", err)
			}
		}
	}

	if e := g.Energy; e.Enabled {
		if err := c.Energy.Initialize(admin, tokenAddr, e.BaseRegenRate, e.DefaultMaxEnergy, e.PuzzleEnergyCost, p.refillCost); err != nil {
			return fmt.Errorf("energy: %w", err)
		}
	}

	if l := g.Leaderboard; l.Enabled {
		if err := c.Leaderboard.Initialize(admin, l.MaxTopEntries); err != nil {
			return fmt.Errorf("leaderboard: %w", err)
		}
		for _, v := range p.verifiers {
			if err := c.Leaderboard.AddVerifier(admin, v); err != nil {
				return fmt.Errorf("leaderboard verifier: %w", err)
			}
		}
	}

	if g.TimeAttack.Enabled {
		if err := c.TimeAttack.Initialize(admin); err != nil {
			return fmt.Errorf("timeattack: %w", err)
		}
	}

	if b := g.Bridge; b.Enabled {
		if err := c.Bridge.Initialize(admin, b.RequiredSignatures, b.ChainID, p.feeCollector); err != nil {
			return fmt.Errorf("bridge: %w", err)
		}
		for _, v := range p.validators {
			if err := c.Bridge.AddValidator(admin, v); err != nil {
				return fmt.Errorf("bridge validator: %w", err)
			}
		}
		if b.BaseFeeBps != 0 {
			cfg, err := c.Bridge.Config()
			if err != nil {
				return fmt.Errorf("bridge fees: %w", err)
			}
			if err := c.Bridge.UpdateFees(admin, b.BaseFeeBps, cfg.MinFee, cfg.MaxFee); err != nil {
				return fmt.Errorf("bridge fees: %w", err)
			}
		}
	}

	if gd := g.Guild; gd.Enabled {
		if err := c.Guild.Initialize(admin, gd.Name, tokenAddr); err != nil {
			return fmt.Errorf("guild: %w", err)
		}
	}

	if g.Tournament.Enabled {
		if err := c.Tournament.Initialize(admin, tokenAddr, p.entryFee); err != nil {
			return fmt.Errorf("tournament: %w", err)
		}
	}

	if g.Achievement.Enabled {
		if err := c.Achievement.Initialize(admin); err != nil {
			return fmt.Errorf("achievement: %w", err)
		}
	}

	if g.Puzzle.Enabled {
		if err := c.Puzzle.Initialize(admin); err != nil {
			return fmt.Errorf("puzzle: %w", err)
		}
		for _, pz := range p.puzzles {
			if err := c.Puzzle.SetPuzzle(admin, pz.id, pz.hash); err != nil {
				return fmt.Errorf("puzzle %d: %w", pz.id, err)
			}
		}
	}
	return nil
}
