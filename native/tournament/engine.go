package tournament

import (
	"math/big"

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
	Transfer(token, from, to [20]byte, amount *big.Int) error
}

var (
	configKey       = []byte("tournament/config")
	stateKey        = []byte("tournament/state")
	participantsKey = []byte("tournament/participants")
	prizePoolKey    = []byte("tournament/prize-pool")
)

// Engine runs a single-elimination style prize tournament where the admin
// declares the final winner.
type Engine struct {
	state   engineState
	bank    tokenBank
	emitter events.Emitter
	auth    common.Authorizer
}

// NewEngine creates a tournament engine with default collaborators.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetBank configures the token capability holding entry fees.
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

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(events.Wrap(evt))
}

// Initialize opens registration with the given entry fee.
func (e *Engine) Initialize(admin, token [20]byte, entryFee *big.Int) error {
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
	if entryFee == nil || entryFee.Sign() < 0 {
		return ErrInvalidEntryFee
	}
	cfg := &Config{Admin: admin, Token: token, EntryFee: new(big.Int).Set(entryFee)}
	if err := e.state.KVPut(configKey, cfg); err != nil {
		return err
	}
	if err := e.state.KVPut(stateKey, StateOpen); err != nil {
		return err
	}
	if err := e.state.KVPut(prizePoolKey, big.NewInt(0)); err != nil {
		return err
	}
	return e.state.KVPut(participantsKey, [][20]byte{})
}

// Config returns the tournament configuration.
func (e *Engine) Config() (*Config, error) {
	cfg := new(Config)
	ok, err := e.state.KVGet(configKey, cfg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	if cfg.EntryFee == nil {
		cfg.EntryFee = big.NewInt(0)
	}
	return cfg, nil
}

func (e *Engine) adminConfig(caller [20]byte) (*Config, error) {
	cfg, err := e.Config()
	if err != nil {
		return nil, err
	}
	if err := common.RequireAdmin(e.auth, cfg.Admin, caller); err != nil {
		return nil, ErrUnauthorized
	}
	return cfg, nil
}

func (e *Engine) requireBank() error {
	if e.bank == nil {
		return ErrBankNotConfigured
	}
	return nil
}

func (e *Engine) setState(s State) error {
	if err := e.state.KVPut(stateKey, s); err != nil {
		return err
	}
	e.emit(StateEvent(s))
	return nil
}

func (e *Engine) setPrizePool(amount *big.Int) error {
	return e.state.KVPut(prizePoolKey, amount)
}

func participantIndex(list [][20]byte, addr [20]byte) int {
	return common.IndexOf(list, func(p [20]byte) bool { return p == addr })
}

// Register pays the entry fee into the prize pool and enrolls player.
func (e *Engine) Register(player [20]byte) error {
	cfg, err := e.Config()
	if err != nil {
		return err
	}
	if err := common.RequireAuth(e.auth, player); err != nil {
		return ErrUnauthorized
	}
	state, err := e.State()
	if err != nil {
		return err
	}
	if state != StateOpen {
		return ErrNotOpen
	}
	participants, err := e.Participants()
	if err != nil {
		return err
	}
	if participantIndex(participants, player) >= 0 {
		return ErrAlreadyRegistered
	}
	if cfg.EntryFee.Sign() > 0 {
		if err := e.requireBank(); err != nil {
			return err
		}
		if err := e.bank.Transfer(cfg.Token, player, e.bank.Contract(), cfg.EntryFee); err != nil {
			return err
		}
	}
	pool, err := e.PrizePool()
	if err != nil {
		return err
	}
	if err := e.setPrizePool(pool.Add(pool, cfg.EntryFee)); err != nil {
		return err
	}
	if err := e.state.KVPut(participantsKey, append(participants, player)); err != nil {
		return err
	}
	e.emit(RegisteredEvent(player, cfg.EntryFee))
	return nil
}

// StartTournament closes registration.
func (e *Engine) StartTournament(admin [20]byte) error {
	if _, err := e.adminConfig(admin); err != nil {
		return err
	}
	state, err := e.State()
	if err != nil {
		return err
	}
	if state != StateOpen {
		return ErrNotOpen
	}
	participants, err := e.Participants()
	if err != nil {
		return err
	}
	if len(participants) < MinParticipants {
		return ErrTooFewParticipants
	}
	return e.setState(StateStarted)
}

// RecordResult declares winner, pays out the whole prize pool and ends the
// tournament.
func (e *Engine) RecordResult(admin, winner [20]byte) error {
	cfg, err := e.adminConfig(admin)
	if err != nil {
		return err
	}
	state, err := e.State()
	if err != nil {
		return err
	}
	if state != StateStarted {
		return ErrNotStarted
	}
	participants, err := e.Participants()
	if err != nil {
		return err
	}
	if participantIndex(participants, winner) < 0 {
		return ErrNotParticipant
	}
	prize, err := e.PrizePool()
	if err != nil {
		return err
	}
	if prize.Sign() > 0 {
		if err := e.requireBank(); err != nil {
			return err
		}
		if err := e.bank.Transfer(cfg.Token, e.bank.Contract(), winner, prize); err != nil {
			return err
		}
	}
	if err := e.setPrizePool(big.NewInt(0)); err != nil {
		return err
	}
	if err := e.setState(StateEnded); err != nil {
		return err
	}
	e.emit(WinnerEvent(winner, prize))
	return nil
}

// CancelTournament stops an open or running tournament so participants can
// pull their refunds.
func (e *Engine) CancelTournament(admin [20]byte) error {
	if _, err := e.adminConfig(admin); err != nil {
		return err
	}
	state, err := e.State()
	if err != nil {
		return err
	}
	if state.Final() {
		return ErrAlreadyFinal
	}
	return e.setState(StateCancelled)
}

// WithdrawRefund returns player's entry fee after a cancellation and
// removes them from the participant list.
func (e *Engine) WithdrawRefund(player [20]byte) error {
	cfg, err := e.Config()
	if err != nil {
		return err
	}
	if err := common.RequireAuth(e.auth, player); err != nil {
		return ErrUnauthorized
	}
	state, err := e.State()
	if err != nil {
		return err
	}
	if state != StateCancelled {
		return ErrNotCancelled
	}
	participants, err := e.Participants()
	if err != nil {
		return err
	}
	idx := participantIndex(participants, player)
	if idx < 0 {
		return ErrNotParticipant
	}
	if cfg.EntryFee.Sign() > 0 {
		if err := e.requireBank(); err != nil {
			return err
		}
		if err := e.bank.Transfer(cfg.Token, e.bank.Contract(), player, cfg.EntryFee); err != nil {
			return err
		}
	}
	pool, err := e.PrizePool()
	if err != nil {
		return err
	}
	if err := e.setPrizePool(pool.Sub(pool, cfg.EntryFee)); err != nil {
		return err
	}
	if err := e.state.KVPut(participantsKey, common.RemoveAt(participants, idx)); err != nil {
		return err
	}
	e.emit(RefundedEvent(player, cfg.EntryFee))
	return nil
}

// State returns the lifecycle state.
func (e *Engine) State() (State, error) {
	var state State
	ok, err := e.state.KVGet(stateKey, &state)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNotInitialized
	}
	return state, nil
}

// Participants returns the enrolled players in registration order.
func (e *Engine) Participants() ([][20]byte, error) {
	participants := [][20]byte{}
	if _, err := e.state.KVGet(participantsKey, &participants); err != nil {
		return nil, err
	}
	return participants, nil
}

// PrizePool returns the entry fees currently held for the winner.
func (e *Engine) PrizePool() (*big.Int, error) {
	pool := new(big.Int)
	if _, err := e.state.KVGet(prizePoolKey, pool); err != nil {
		return nil, err
	}
	return pool, nil
}
