package energy

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
}

type tokenBank interface {
	Contract() [20]byte
	Balance(token, holder [20]byte) (*big.Int, error)
	Transfer(token, from, to [20]byte, amount *big.Int) error
}

var (
	configKey       = []byte("energy/config")
	totalPlayersKey = []byte("energy/total-players")
)

func playerKey(addr [20]byte) []byte {
	return []byte("energy/player/" + common.AddrHex(addr))
}

// Engine implements the stamina economy. Regeneration is computed lazily from
// the stored checkpoint whenever a player is touched.
type Engine struct {
	state   engineState
	bank    tokenBank
	emitter events.Emitter
	auth    common.Authorizer
	nowFn   func() int64
}

// NewEngine creates an energy engine with default collaborators.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetBank configures the token capability used for refills.
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
	ts := time.Now().Unix()
	if e != nil && e.nowFn != nil {
		ts = e.nowFn()
	}
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

// Initialize creates the energy config.
func (e *Engine) Initialize(admin, rewardToken [20]byte, baseRegenRate, defaultMaxEnergy, puzzleEnergyCost uint64, refillTokenCost *big.Int) error {
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
	if refillTokenCost == nil || refillTokenCost.Sign() < 0 {
		return ErrInvalidAmount
	}
	cfg := &Config{
		Admin:            admin,
		RewardToken:      rewardToken,
		BaseRegenRate:    baseRegenRate,
		DefaultMaxEnergy: defaultMaxEnergy,
		PuzzleEnergyCost: puzzleEnergyCost,
		RefillTokenCost:  new(big.Int).Set(refillTokenCost),
		MaxGiftPerDay:    DefaultMaxGiftPerDay,
	}
	return e.state.KVPut(configKey, cfg)
}

// Config returns the stored config.
func (e *Engine) Config() (*Config, error) {
	cfg := new(Config)
	ok, err := e.state.KVGet(configKey, cfg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	if cfg.RefillTokenCost == nil {
		cfg.RefillTokenCost = big.NewInt(0)
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

func (e *Engine) playerConfig(player [20]byte) (*Config, error) {
	cfg, err := e.Config()
	if err != nil {
		return nil, err
	}
	if err := common.RequireAuth(e.auth, player); err != nil {
		return nil, ErrUnauthorized
	}
	if err := common.Guard(cfg); err != nil {
		return nil, ErrPaused
	}
	return cfg, nil
}

// UpdateConfig applies the non-nil fields of update.
func (e *Engine) UpdateConfig(admin [20]byte, update ConfigUpdate) error {
	cfg, err := e.adminConfig(admin)
	if err != nil {
		return err
	}
	if update.BaseRegenRate != nil {
		cfg.BaseRegenRate = *update.BaseRegenRate
	}
	if update.DefaultMaxEnergy != nil {
		cfg.DefaultMaxEnergy = *update.DefaultMaxEnergy
	}
	if update.PuzzleEnergyCost != nil {
		cfg.PuzzleEnergyCost = *update.PuzzleEnergyCost
	}
	if update.RefillTokenCost != nil {
		if update.RefillTokenCost.Sign() < 0 {
			return ErrInvalidAmount
		}
		cfg.RefillTokenCost = new(big.Int).Set(update.RefillTokenCost)
	}
	if update.MaxGiftPerDay != nil {
		cfg.MaxGiftPerDay = *update.MaxGiftPerDay
	}
	if err := e.state.KVPut(configKey, cfg); err != nil {
		return err
	}
	e.emit(ConfigUpdatedEvent("params", cfg.Paused))
	return nil
}

// SetPaused toggles the emergency pause.
func (e *Engine) SetPaused(admin [20]byte, paused bool) error {
	cfg, err := e.adminConfig(admin)
	if err != nil {
		return err
	}
	cfg.Paused = paused
	if err := e.state.KVPut(configKey, cfg); err != nil {
		return err
	}
	e.emit(ConfigUpdatedEvent("paused", paused))
	return nil
}

// loadPlayer returns the stored record or a fresh full-energy record. The
// boolean reports whether the record already existed.
func (e *Engine) loadPlayer(cfg *Config, player [20]byte, now uint64) (*PlayerEnergy, bool, error) {
	rec := new(PlayerEnergy)
	ok, err := e.state.KVGet(playerKey(player), rec)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		rec = &PlayerEnergy{
			CurrentEnergy: cfg.DefaultMaxEnergy,
			MaxEnergy:     cfg.DefaultMaxEnergy,
			LastUpdate:    now,
			LastGiftReset: now,
		}
	}
	return rec, ok, nil
}

// touch loads player with regeneration and the gift window applied.
func (e *Engine) touch(cfg *Config, player [20]byte, now uint64) (*PlayerEnergy, bool, error) {
	rec, existed, err := e.loadPlayer(cfg, player, now)
	if err != nil {
		return nil, false, err
	}
	regenerate(rec, cfg.BaseRegenRate, now)
	rollGifts(rec, cfg, now)
	return rec, existed, nil
}

func (e *Engine) storePlayer(player [20]byte, rec *PlayerEnergy, existed bool) error {
	if err := e.state.KVPut(playerKey(player), rec); err != nil {
		return err
	}
	if existed {
		return nil
	}
	total, err := e.TotalPlayers()
	if err != nil {
		return err
	}
	return e.state.KVPut(totalPlayersKey, total+1)
}

// ConsumeEnergyForPuzzle spends the puzzle cost from player's energy.
func (e *Engine) ConsumeEnergyForPuzzle(player [20]byte) error {
	cfg, err := e.playerConfig(player)
	if err != nil {
		return err
	}
	now := e.now()
	rec, existed, err := e.touch(cfg, player, now)
	if err != nil {
		return err
	}
	if rec.CurrentEnergy < cfg.PuzzleEnergyCost {
		return ErrInsufficientEnergy
	}
	rec.CurrentEnergy -= cfg.PuzzleEnergyCost
	if err := e.storePlayer(player, rec, existed); err != nil {
		return err
	}
	e.emit(ConsumedEvent(player, cfg.PuzzleEnergyCost, rec.CurrentEnergy))
	return nil
}

// InstantRefill charges the refill cost in reward tokens and fills player's
// energy to the maximum. It returns the amount of energy added.
func (e *Engine) InstantRefill(player [20]byte) (uint64, error) {
	cfg, err := e.playerConfig(player)
	if err != nil {
		return 0, err
	}
	if e.bank == nil {
		return 0, ErrBankNotConfigured
	}
	if cfg.RefillTokenCost.Sign() > 0 {
		balance, err := e.bank.Balance(cfg.RewardToken, player)
		if err != nil {
			return 0, err
		}
		if balance.Cmp(cfg.RefillTokenCost) < 0 {
			return 0, ErrInsufficientTokens
		}
		if err := e.bank.Transfer(cfg.RewardToken, player, e.bank.Contract(), cfg.RefillTokenCost); err != nil {
			return 0, err
		}
	}
	now := e.now()
	rec, existed, err := e.touch(cfg, player, now)
	if err != nil {
		return 0, err
	}
	refilled := rec.MaxEnergy - rec.CurrentEnergy
	rec.CurrentEnergy = rec.MaxEnergy
	if err := e.storePlayer(player, rec, existed); err != nil {
		return 0, err
	}
	e.emit(RefilledEvent(player, refilled, cfg.RefillTokenCost.String()))
	return refilled, nil
}

// GiftEnergy moves amount of energy from from to to. Both players are
// regenerated first; the sender needs enough energy and daily gift budget
// and the receiver must stay within their maximum.
func (e *Engine) GiftEnergy(from, to [20]byte, amount uint64) error {
	cfg, err := e.playerConfig(from)
	if err != nil {
		return err
	}
	if from == to {
		return ErrSelfGift
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	now := e.now()
	sender, senderExisted, err := e.touch(cfg, from, now)
	if err != nil {
		return err
	}
	if sender.CurrentEnergy < amount {
		return ErrInsufficientEnergy
	}
	budget, err := common.CheckQuota(cfg.giftQuota(), now,
		common.QuotaNow{Used: sender.GiftedToday, WindowStart: sender.LastGiftReset}, amount)
	if err != nil {
		return ErrGiftLimitExceeded
	}
	receiver, receiverExisted, err := e.touch(cfg, to, now)
	if err != nil {
		return err
	}
	if receiver.CurrentEnergy+amount < amount || receiver.CurrentEnergy+amount > receiver.MaxEnergy {
		return ErrMaxEnergyExceeded
	}

	sender.CurrentEnergy -= amount
	sender.GiftedToday = budget.Used
	sender.LastGiftReset = budget.WindowStart
	receiver.CurrentEnergy += amount
	if err := e.storePlayer(from, sender, senderExisted); err != nil {
		return err
	}
	if err := e.storePlayer(to, receiver, receiverExisted); err != nil {
		return err
	}
	e.emit(GiftedEvent(from, to, amount))
	return nil
}

// ApplyBoost starts a regeneration boost lasting duration seconds.
func (e *Engine) ApplyBoost(player [20]byte, boost BoostType, duration uint64) error {
	cfg, err := e.playerConfig(player)
	if err != nil {
		return err
	}
	if !boost.Valid() {
		return ErrInvalidBoostType
	}
	if duration == 0 {
		return ErrInvalidDuration
	}
	now := e.now()
	rec, existed, err := e.touch(cfg, player, now)
	if err != nil {
		return err
	}
	if rec.BoostActive(now) {
		return ErrBoostAlreadyActive
	}
	rec.ActiveBoost = boost
	rec.BoostExpiresAt = common.SaturatingAdd(now, duration)
	if err := e.storePlayer(player, rec, existed); err != nil {
		return err
	}
	e.emit(BoostAppliedEvent(player, boost, duration, rec.BoostExpiresAt))
	return nil
}

// CurrentEnergy returns player's energy with regeneration applied at the
// current time. It never writes state.
func (e *Engine) CurrentEnergy(player [20]byte) (uint64, error) {
	info, err := e.PlayerEnergyView(player)
	if err != nil {
		return 0, err
	}
	return info.CurrentEnergy, nil
}

// PlayerEnergyView returns player's record with regeneration applied at the
// current time, without persisting it.
func (e *Engine) PlayerEnergyView(player [20]byte) (*PlayerEnergy, error) {
	cfg, err := e.Config()
	if err != nil {
		return nil, err
	}
	rec, _, err := e.touch(cfg, player, e.now())
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// PlayerEnergyInfo returns the stored record as last checkpointed, or nil for
// unknown players.
func (e *Engine) PlayerEnergyInfo(player [20]byte) (*PlayerEnergy, error) {
	rec := new(PlayerEnergy)
	ok, err := e.state.KVGet(playerKey(player), rec)
	if err != nil || !ok {
		return nil, err
	}
	return rec, nil
}

// TotalPlayers returns how many players have a stored record.
func (e *Engine) TotalPlayers() (uint64, error) {
	var total uint64
	if _, err := e.state.KVGet(totalPlayersKey, &total); err != nil {
		return 0, err
	}
	return total, nil
}
