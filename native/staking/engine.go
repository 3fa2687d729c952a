package staking

import (
	"math/big"
	"time"

	"questchain/core/events"
	"questchain/core/types"
	"questchain/native/common"
)

type engineState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

type tokenBank interface {
	Contract() [20]byte
	Balance(token, holder [20]byte) (*big.Int, error)
	Transfer(token, from, to [20]byte, amount *big.Int) error
}

var (
	configKey      = []byte("staking/config")
	totalStakedKey = []byte("staking/total-staked")
	rewardPoolKey  = []byte("staking/reward-pool")
	stakersKey     = []byte("staking/stakers")
)

func stakerKey(addr [20]byte) []byte {
	return []byte("staking/staker/" + common.AddrHex(addr))
}

// Engine implements tiered staking with linear reward accrual.
type Engine struct {
	state   engineState
	bank    tokenBank
	emitter events.Emitter
	auth    common.Authorizer
	nowFn   func() int64
}

// NewEngine creates a staking engine with default collaborators.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetBank configures the token capability used for custody.
func (e *Engine) SetBank(bank tokenBank) { e.bank = bank }

// SetAuthorizer configures the invocation authorization oracle.
func (e *Engine) SetAuthorizer(auth common.Authorizer) { e.auth = auth }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(events.Wrap(evt))
}

func (e *Engine) now() uint64 {
	var ts int64
	if e == nil || e.nowFn == nil {
		ts = time.Now().Unix()
	} else {
		ts = e.nowFn()
	}
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

func (e *Engine) contract() [20]byte {
	if e.bank == nil {
		return [20]byte{}
	}
	return e.bank.Contract()
}

// Initialize creates the staking config with default tiers and penalties.
func (e *Engine) Initialize(admin, stakingToken, rewardToken [20]byte, baseAPY, minLockPeriod uint64) error {
	if err := common.RequireAuth(e.auth, admin); err != nil {
		return ErrUnauthorized
	}
	ok, err := e.state.KVGet(configKey, nil)
	if err != nil {
		return err
	}
	if ok {
		return ErrAlreadyInitialized
	}
	cfg := &Config{
		Admin:                  admin,
		StakingToken:           stakingToken,
		RewardToken:            rewardToken,
		BaseAPY:                baseAPY,
		BronzeBonus:            DefaultBronzeBonus,
		SilverBonus:            DefaultSilverBonus,
		GoldBonus:              DefaultGoldBonus,
		BronzeThreshold:        new(big.Int).Set(DefaultBronzeThreshold),
		SilverThreshold:        new(big.Int).Set(DefaultSilverThreshold),
		GoldThreshold:          new(big.Int).Set(DefaultGoldThreshold),
		MinLockPeriod:          minLockPeriod,
		EarlyUnstakePenaltyBps: DefaultEarlyUnstakePenaltyBps,
		EmergencyPenaltyBps:    DefaultEmergencyPenaltyBps,
	}
	if err := e.state.KVPut(configKey, cfg); err != nil {
		return err
	}
	if err := e.state.KVPut(totalStakedKey, big.NewInt(0)); err != nil {
		return err
	}
	return e.state.KVPut(rewardPoolKey, big.NewInt(0))
}

// Config returns a copy of the stored config.
func (e *Engine) Config() (*Config, error) {
	cfg := new(Config)
	ok, err := e.state.KVGet(configKey, cfg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	return cfg, nil
}

func (e *Engine) adminConfig(admin [20]byte) (*Config, error) {
	cfg, err := e.Config()
	if err != nil {
		return nil, err
	}
	if err := common.RequireAdmin(e.auth, cfg.Admin, admin); err != nil {
		return nil, ErrUnauthorized
	}
	return cfg, nil
}

func (e *Engine) activeConfig(staker [20]byte) (*Config, error) {
	cfg, err := e.Config()
	if err != nil {
		return nil, err
	}
	if err := common.RequireAuth(e.auth, staker); err != nil {
		return nil, ErrUnauthorized
	}
	if err := common.Guard(cfg); err != nil {
		return nil, ErrPaused
	}
	if e.bank == nil {
		return nil, ErrBankNotConfigured
	}
	return cfg, nil
}

// UpdateAPYConfig replaces the base APY and tier bonuses.
func (e *Engine) UpdateAPYConfig(admin [20]byte, baseAPY, bronze, silver, gold uint64) error {
	cfg, err := e.adminConfig(admin)
	if err != nil {
		return err
	}
	cfg.BaseAPY, cfg.BronzeBonus, cfg.SilverBonus, cfg.GoldBonus = baseAPY, bronze, silver, gold
	return e.putConfig(cfg, "apy")
}

// UpdateTierThresholds replaces the tier thresholds. Existing positions keep
// their tier until their staked amount next changes.
func (e *Engine) UpdateTierThresholds(admin [20]byte, bronze, silver, gold *big.Int) error {
	cfg, err := e.adminConfig(admin)
	if err != nil {
		return err
	}
	if !common.IsPositive(bronze) || silver == nil || gold == nil ||
		bronze.Cmp(silver) >= 0 || silver.Cmp(gold) >= 0 {
		return ErrInvalidThresholds
	}
	cfg.BronzeThreshold = new(big.Int).Set(bronze)
	cfg.SilverThreshold = new(big.Int).Set(silver)
	cfg.GoldThreshold = new(big.Int).Set(gold)
	return e.putConfig(cfg, "thresholds")
}

// UpdateStakingParams replaces the lock period and penalty rates.
func (e *Engine) UpdateStakingParams(admin [20]byte, minLockPeriod, earlyPenaltyBps, emergencyPenaltyBps uint64) error {
	cfg, err := e.adminConfig(admin)
	if err != nil {
		return err
	}
	if earlyPenaltyBps > common.MaxBasisPoints || emergencyPenaltyBps > common.MaxBasisPoints {
		return ErrInvalidPenalty
	}
	cfg.MinLockPeriod = minLockPeriod
	cfg.EarlyUnstakePenaltyBps = earlyPenaltyBps
	cfg.EmergencyPenaltyBps = emergencyPenaltyBps
	return e.putConfig(cfg, "params")
}

// SetPaused toggles the emergency pause.
func (e *Engine) SetPaused(admin [20]byte, paused bool) error {
	cfg, err := e.adminConfig(admin)
	if err != nil {
		return err
	}
	cfg.Paused = paused
	return e.putConfig(cfg, "paused")
}

func (e *Engine) putConfig(cfg *Config, field string) error {
	if err := e.state.KVPut(configKey, cfg); err != nil {
		return err
	}
	e.emit(ConfigUpdatedEvent(field, cfg.Paused))
	return nil
}

// AddRewards moves amount of the reward token from admin into the pool.
func (e *Engine) AddRewards(admin [20]byte, amount *big.Int) error {
	cfg, err := e.adminConfig(admin)
	if err != nil {
		return err
	}
	if !common.IsPositive(amount) {
		return ErrInvalidAmount
	}
	if e.bank == nil {
		return ErrBankNotConfigured
	}
	if err := e.bank.Transfer(cfg.RewardToken, admin, e.contract(), amount); err != nil {
		return err
	}
	pool, err := e.RewardPool()
	if err != nil {
		return err
	}
	pool.Add(pool, amount)
	if err := e.state.KVPut(rewardPoolKey, pool); err != nil {
		return err
	}
	e.emit(RewardsAddedEvent(amount, pool))
	return nil
}

// Stake locks amount of the staking token. Rewards pending under the current
// tier are folded into the accumulated bucket before the tier is recomputed.
func (e *Engine) Stake(staker [20]byte, amount *big.Int) error {
	cfg, err := e.activeConfig(staker)
	if err != nil {
		return err
	}
	if !common.IsPositive(amount) {
		return ErrInvalidAmount
	}
	if err := e.bank.Transfer(cfg.StakingToken, staker, e.contract(), amount); err != nil {
		return err
	}
	now := e.now()
	info, _, err := e.loadStaker(staker)
	if err != nil {
		return err
	}
	if info.StakedAmount.Sign() > 0 {
		info.AccumulatedRewards.Add(info.AccumulatedRewards, pendingFor(info, cfg, now))
	}
	info.StakedAmount.Add(info.StakedAmount, amount)
	info.StakeTimestamp = now
	info.LastRewardClaim = now
	info.Tier = cfg.TierFor(info.StakedAmount)
	if err := e.state.KVPut(stakerKey(staker), info); err != nil {
		return err
	}
	if err := e.addStaker(staker); err != nil {
		return err
	}
	if err := e.adjustTotal(amount); err != nil {
		return err
	}
	e.emit(StakedEvent(staker, amount, info.StakedAmount, info.Tier))
	return nil
}

// Unstake withdraws amount, applying the early-unstake penalty inside the
// lock period. It returns the amount handed back to the staker.
func (e *Engine) Unstake(staker [20]byte, amount *big.Int) (*big.Int, error) {
	cfg, err := e.activeConfig(staker)
	if err != nil {
		return nil, err
	}
	if !common.IsPositive(amount) {
		return nil, ErrInvalidAmount
	}
	info, ok, err := e.loadStaker(staker)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotStaked
	}
	if info.StakedAmount.Cmp(amount) < 0 {
		return nil, ErrInsufficientStake
	}
	now := e.now()
	info.AccumulatedRewards.Add(info.AccumulatedRewards, pendingFor(info, cfg, now))

	penalty := big.NewInt(0)
	returned := new(big.Int).Set(amount)
	if common.Elapsed(now, info.StakeTimestamp) < cfg.MinLockPeriod {
		penalty, returned = penaltyFor(amount, cfg.EarlyUnstakePenaltyBps)
	}

	info.StakedAmount.Sub(info.StakedAmount, amount)
	info.LastRewardClaim = now
	info.Tier = cfg.TierFor(info.StakedAmount)
	if err := e.state.KVPut(stakerKey(staker), info); err != nil {
		return nil, err
	}
	if returned.Sign() > 0 {
		if err := e.bank.Transfer(cfg.StakingToken, e.contract(), staker, returned); err != nil {
			return nil, err
		}
	}
	if err := e.adjustTotal(new(big.Int).Neg(amount)); err != nil {
		return nil, err
	}
	if info.StakedAmount.Sign() == 0 {
		if err := e.removeStaker(staker); err != nil {
			return nil, err
		}
	}
	e.emit(UnstakedEvent(staker, amount, penalty, info.Tier))
	return returned, nil
}

// ClaimRewards pays accumulated plus pending rewards from the pool.
func (e *Engine) ClaimRewards(staker [20]byte) (*big.Int, error) {
	cfg, err := e.activeConfig(staker)
	if err != nil {
		return nil, err
	}
	info, ok, err := e.loadStaker(staker)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotStaked
	}
	now := e.now()
	total := new(big.Int).Add(info.AccumulatedRewards, pendingFor(info, cfg, now))
	if total.Sign() <= 0 {
		return nil, ErrNoRewards
	}
	pool, err := e.RewardPool()
	if err != nil {
		return nil, err
	}
	if pool.Cmp(total) < 0 {
		return nil, ErrPoolEmpty
	}
	info.AccumulatedRewards = big.NewInt(0)
	info.LastRewardClaim = now
	if err := e.state.KVPut(stakerKey(staker), info); err != nil {
		return nil, err
	}
	if err := e.state.KVPut(rewardPoolKey, pool.Sub(pool, total)); err != nil {
		return nil, err
	}
	if err := e.bank.Transfer(cfg.RewardToken, e.contract(), staker, total); err != nil {
		return nil, err
	}
	e.emit(RewardsClaimedEvent(staker, total))
	return total, nil
}

// EmergencyWithdraw returns the whole position minus the emergency penalty.
// It ignores the pause flag and the lock period, and forfeits unclaimed
// rewards.
func (e *Engine) EmergencyWithdraw(staker [20]byte) (*big.Int, error) {
	if err := common.RequireAuth(e.auth, staker); err != nil {
		return nil, ErrUnauthorized
	}
	cfg, err := e.Config()
	if err != nil {
		return nil, err
	}
	if e.bank == nil {
		return nil, ErrBankNotConfigured
	}
	info, ok, err := e.loadStaker(staker)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotStaked
	}
	if info.StakedAmount.Sign() <= 0 {
		return nil, ErrNothingStaked
	}
	staked := new(big.Int).Set(info.StakedAmount)
	penalty, returned := penaltyFor(staked, cfg.EmergencyPenaltyBps)
	empty := &StakerInfo{StakedAmount: big.NewInt(0), AccumulatedRewards: big.NewInt(0), Tier: TierNone}
	if err := e.state.KVPut(stakerKey(staker), empty); err != nil {
		return nil, err
	}
	if returned.Sign() > 0 {
		if err := e.bank.Transfer(cfg.StakingToken, e.contract(), staker, returned); err != nil {
			return nil, err
		}
	}
	if err := e.adjustTotal(new(big.Int).Neg(staked)); err != nil {
		return nil, err
	}
	if err := e.removeStaker(staker); err != nil {
		return nil, err
	}
	e.emit(EmergencyWithdrawEvent(staker, returned, penalty))
	return returned, nil
}

func (e *Engine) loadStaker(staker [20]byte) (*StakerInfo, bool, error) {
	info := new(StakerInfo)
	ok, err := e.state.KVGet(stakerKey(staker), info)
	if err != nil {
		return nil, false, err
	}
	info.normalize()
	return info, ok, nil
}

func (e *Engine) adjustTotal(delta *big.Int) error {
	total, err := e.TotalStaked()
	if err != nil {
		return err
	}
	total.Add(total, delta)
	if total.Sign() < 0 {
		total.SetInt64(0)
	}
	return e.state.KVPut(totalStakedKey, total)
}

func (e *Engine) addStaker(staker [20]byte) error {
	list, err := e.AllStakers()
	if err != nil {
		return err
	}
	if common.IndexOf(list, func(a [20]byte) bool { return a == staker }) >= 0 {
		return nil
	}
	return e.state.KVPut(stakersKey, append(list, staker))
}

func (e *Engine) removeStaker(staker [20]byte) error {
	list, err := e.AllStakers()
	if err != nil {
		return err
	}
	idx := common.IndexOf(list, func(a [20]byte) bool { return a == staker })
	if idx < 0 {
		return nil
	}
	return e.state.KVPut(stakersKey, common.RemoveAt(list, idx))
}

// StakerInfo returns the position of staker, or nil when none exists.
func (e *Engine) StakerInfo(staker [20]byte) (*StakerInfo, error) {
	info, ok, err := e.loadStaker(staker)
	if err != nil || !ok {
		return nil, err
	}
	return info, nil
}

// PendingRewards returns accumulated plus pending rewards at the current time
// without modifying state.
func (e *Engine) PendingRewards(staker [20]byte) (*big.Int, error) {
	cfg, err := e.Config()
	if err != nil {
		return nil, err
	}
	info, ok, err := e.loadStaker(staker)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).Add(info.AccumulatedRewards, pendingFor(info, cfg, e.now())), nil
}

// TotalStaked returns the sum of all positions.
func (e *Engine) TotalStaked() (*big.Int, error) {
	out := new(big.Int)
	if _, err := e.state.KVGet(totalStakedKey, out); err != nil {
		return nil, err
	}
	return out, nil
}

// RewardPool returns the unallocated reward balance.
func (e *Engine) RewardPool() (*big.Int, error) {
	out := new(big.Int)
	if _, err := e.state.KVGet(rewardPoolKey, out); err != nil {
		return nil, err
	}
	return out, nil
}

// CurrentAPY returns the APY of staker's tier, or the base APY without a
// position.
func (e *Engine) CurrentAPY(staker [20]byte) (uint64, error) {
	cfg, err := e.Config()
	if err != nil {
		return 0, err
	}
	info, ok, err := e.loadStaker(staker)
	if err != nil {
		return 0, err
	}
	if !ok {
		return cfg.BaseAPY, nil
	}
	return cfg.APYFor(info.Tier), nil
}

// TimeUntilUnlock returns the seconds left in staker's lock period.
func (e *Engine) TimeUntilUnlock(staker [20]byte) (uint64, error) {
	cfg, err := e.Config()
	if err != nil {
		return 0, err
	}
	info, ok, err := e.loadStaker(staker)
	if err != nil || !ok {
		return 0, err
	}
	unlock := common.SaturatingAdd(info.StakeTimestamp, cfg.MinLockPeriod)
	return common.SaturatingSub(unlock, e.now()), nil
}

// CanUnstakeWithoutPenalty reports whether the lock period has elapsed.
func (e *Engine) CanUnstakeWithoutPenalty(staker [20]byte) (bool, error) {
	remaining, err := e.TimeUntilUnlock(staker)
	if err != nil {
		return false, err
	}
	return remaining == 0, nil
}

// AllStakers lists addresses with an open position in stake order.
func (e *Engine) AllStakers() ([][20]byte, error) {
	var list [][20]byte
	if _, err := e.state.KVGet(stakersKey, &list); err != nil {
		return nil, err
	}
	return list, nil
}
