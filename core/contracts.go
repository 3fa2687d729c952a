package core

import (
	"questchain/core/events"
	"questchain/core/state"
	"questchain/native/achievement"
	"questchain/native/bridge"
	"questchain/native/common"
	"questchain/native/energy"
	"questchain/native/guild"
	"questchain/native/leaderboard"
	"questchain/native/puzzle"
	"questchain/native/staking"
	"questchain/native/timeattack"
	"questchain/native/token"
	"questchain/native/tournament"
)

// Contract names. Each name owns the matching key prefix and derives the
// contract's custody address.
const (
	ContractRewardToken = "reward-token"
	ContractStaking     = "staking"
	ContractEnergy      = "energy"
	ContractLeaderboard = "leaderboard"
	ContractTimeAttack  = "timeattack"
	ContractBridge      = "bridge"
	ContractGuild       = "guild"
	ContractTournament  = "tournament"
	ContractAchievement = "achievement"
	ContractPuzzle      = "puzzle"
)

// Contracts is the set of native contracts sharing one ledger.
type Contracts struct {
	Tokens      *token.Registry
	RewardToken *token.Engine
	Staking     *staking.Engine
	Energy      *energy.Engine
	Leaderboard *leaderboard.Engine
	TimeAttack  *timeattack.Engine
	Bridge      *bridge.Engine
	Guild       *guild.Engine
	Tournament  *tournament.Engine
	Achievement *achievement.Engine
	Puzzle      *puzzle.Engine
}

// host is what the runtime lends every engine for the current invocation.
type host interface {
	common.Authorizer
	events.Emitter
	Now() int64
}

func newContracts(mgr *state.Manager, h host) (*Contracts, error) {
	c := &Contracts{
		Tokens:      token.NewRegistry(),
		RewardToken: token.NewEngine(common.ContractAddress(ContractRewardToken)),
		Staking:     staking.NewEngine(),
		Energy:      energy.NewEngine(),
		Leaderboard: leaderboard.NewEngine(),
		TimeAttack:  timeattack.NewEngine(),
		Bridge:      bridge.NewEngine(),
		Guild:       guild.NewEngine(),
		Tournament:  tournament.NewEngine(),
		Achievement: achievement.NewEngine(),
		Puzzle:      puzzle.NewEngine(),
	}
	c.RewardToken.SetState(mgr)
	c.RewardToken.SetAuthorizer(h)
	c.RewardToken.SetEmitter(h)
	if err := c.Tokens.Register(c.RewardToken); err != nil {
		return nil, err
	}

	c.Staking.SetState(mgr)
	c.Staking.SetBank(c.Tokens.Bank(common.ContractAddress(ContractStaking)))
	c.Staking.SetAuthorizer(h)
	c.Staking.SetEmitter(h)
	c.Staking.SetNowFunc(h.Now)

	c.Energy.SetState(mgr)
	c.Energy.SetBank(c.Tokens.Bank(common.ContractAddress(ContractEnergy)))
	c.Energy.SetAuthorizer(h)
	c.Energy.SetEmitter(h)
	c.Energy.SetNowFunc(h.Now)

	c.Leaderboard.SetState(mgr)
	c.Leaderboard.SetAuthorizer(h)
	c.Leaderboard.SetEmitter(h)
	c.Leaderboard.SetNowFunc(h.Now)

	c.TimeAttack.SetState(mgr)
	c.TimeAttack.SetAuthorizer(h)
	c.TimeAttack.SetEmitter(h)
	c.TimeAttack.SetNowFunc(h.Now)

	c.Bridge.SetState(mgr)
	c.Bridge.SetBank(c.Tokens.Bank(common.ContractAddress(ContractBridge)))
	c.Bridge.SetAuthorizer(h)
	c.Bridge.SetEmitter(h)
	c.Bridge.SetNowFunc(h.Now)

	c.Guild.SetState(mgr)
	c.Guild.SetBank(c.Tokens.Bank(common.ContractAddress(ContractGuild)))
	c.Guild.SetAuthorizer(h)
	c.Guild.SetEmitter(h)
	c.Guild.SetNowFunc(h.Now)

	c.Tournament.SetState(mgr)
	c.Tournament.SetBank(c.Tokens.Bank(common.ContractAddress(ContractTournament)))
	c.Tournament.SetAuthorizer(h)
	c.Tournament.SetEmitter(h)

	c.Achievement.SetState(mgr)
	c.Achievement.SetAuthorizer(h)
	c.Achievement.SetEmitter(h)
	c.Achievement.SetNowFunc(h.Now)

	c.Puzzle.SetState(mgr)
	c.Puzzle.SetAuthorizer(h)
	c.Puzzle.SetEmitter(h)
	return c, nil
}
