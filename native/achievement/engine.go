package achievement

import (
	"fmt"
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

var (
	configKey      = []byte("achievement/config")
	nextTokenIDKey = []byte("achievement/next-token-id")
	totalSupplyKey = []byte("achievement/total-supply")
)

func tokenKey(id uint64) []byte { return []byte(fmt.Sprintf("achievement/token/%d", id)) }

func ownerKey(owner [20]byte) []byte {
	return []byte("achievement/owner/" + common.AddrHex(owner))
}

func completedKey(player [20]byte, puzzleID uint32) []byte {
	return []byte(fmt.Sprintf("achievement/completed/%s/%d", common.AddrHex(player), puzzleID))
}

// Engine mints achievement tokens for completed puzzles. Every token's
// owner field and the owner's token list are updated together.
type Engine struct {
	state   engineState
	emitter events.Emitter
	auth    common.Authorizer
	nowFn   func() int64
}

// NewEngine creates an achievement engine with default collaborators.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

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
	ts := e.nowFn()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

// Initialize records the admin allowed to mark puzzles completed.
func (e *Engine) Initialize(admin [20]byte) error {
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
	if err := e.state.KVPut(configKey, &Config{Admin: admin}); err != nil {
		return err
	}
	return e.state.KVPut(nextTokenIDKey, uint64(1))
}

// Config returns the collection configuration.
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

// SetPuzzleCompleted marks puzzleID as solved by player, enabling one mint.
func (e *Engine) SetPuzzleCompleted(admin, player [20]byte, puzzleID uint32) error {
	cfg, err := e.Config()
	if err != nil {
		return err
	}
	if err := common.RequireAdmin(e.auth, cfg.Admin, admin); err != nil {
		return ErrUnauthorized
	}
	return e.state.KVPut(completedKey(player, puzzleID), true)
}

// IsPuzzleCompleted reports whether player holds an unused completion flag.
func (e *Engine) IsPuzzleCompleted(player [20]byte, puzzleID uint32) (bool, error) {
	return e.state.KVGet(completedKey(player, puzzleID), nil)
}

// Mint issues an achievement for a completed puzzle and consumes the
// completion flag.
func (e *Engine) Mint(to [20]byte, puzzleID uint32, metadata string) (uint64, error) {
	if _, err := e.Config(); err != nil {
		return 0, err
	}
	if err := common.RequireAuth(e.auth, to); err != nil {
		return 0, ErrUnauthorized
	}
	if len(metadata) > MaxMetadataLength {
		return 0, ErrMetadataTooLong
	}
	done, err := e.IsPuzzleCompleted(to, puzzleID)
	if err != nil {
		return 0, err
	}
	if !done {
		return 0, ErrPuzzleNotCompleted
	}
	var id uint64
	if _, err := e.state.KVGet(nextTokenIDKey, &id); err != nil {
		return 0, err
	}
	a := &Achievement{TokenID: id, Owner: to, PuzzleID: puzzleID, Metadata: metadata, Timestamp: e.now()}
	if err := e.state.KVPut(tokenKey(id), a); err != nil {
		return 0, err
	}
	if err := e.state.KVPut(nextTokenIDKey, id+1); err != nil {
		return 0, err
	}
	if err := e.addToOwner(to, id); err != nil {
		return 0, err
	}
	if err := e.adjustSupply(1); err != nil {
		return 0, err
	}
	if err := e.state.KVDelete(completedKey(to, puzzleID)); err != nil {
		return 0, err
	}
	e.emit(MintedEvent(a))
	return id, nil
}

// Transfer moves tokenID from its owner to another address.
func (e *Engine) Transfer(from, to [20]byte, tokenID uint64) error {
	if _, err := e.Config(); err != nil {
		return err
	}
	if err := common.RequireAuth(e.auth, from); err != nil {
		return ErrUnauthorized
	}
	if common.IsZeroAddress(to) || to == from {
		return ErrInvalidRecipient
	}
	a, err := e.ownedBy(from, tokenID)
	if err != nil {
		return err
	}
	a.Owner = to
	if err := e.state.KVPut(tokenKey(tokenID), a); err != nil {
		return err
	}
	if err := e.removeFromOwner(from, tokenID); err != nil {
		return err
	}
	if err := e.addToOwner(to, tokenID); err != nil {
		return err
	}
	e.emit(TransferredEvent(tokenID, from, to))
	return nil
}

// Burn destroys tokenID.
func (e *Engine) Burn(owner [20]byte, tokenID uint64) error {
	if _, err := e.Config(); err != nil {
		return err
	}
	if err := common.RequireAuth(e.auth, owner); err != nil {
		return ErrUnauthorized
	}
	if _, err := e.ownedBy(owner, tokenID); err != nil {
		return err
	}
	if err := e.state.KVDelete(tokenKey(tokenID)); err != nil {
		return err
	}
	if err := e.removeFromOwner(owner, tokenID); err != nil {
		return err
	}
	if err := e.adjustSupply(-1); err != nil {
		return err
	}
	e.emit(BurnedEvent(tokenID, owner))
	return nil
}

func (e *Engine) ownedBy(owner [20]byte, tokenID uint64) (*Achievement, error) {
	a, err := e.Achievement(tokenID)
	if err != nil {
		return nil, err
	}
	if a.Owner != owner {
		return nil, ErrNotOwner
	}
	return a, nil
}

func (e *Engine) addToOwner(owner [20]byte, tokenID uint64) error {
	ids, err := e.TokensOf(owner)
	if err != nil {
		return err
	}
	return e.state.KVPut(ownerKey(owner), append(ids, tokenID))
}

func (e *Engine) removeFromOwner(owner [20]byte, tokenID uint64) error {
	ids, err := e.TokensOf(owner)
	if err != nil {
		return err
	}
	idx := common.IndexOf(ids, func(id uint64) bool { return id == tokenID })
	if idx < 0 {
		return nil
	}
	ids = common.RemoveAt(ids, idx)
	if len(ids) == 0 {
		return e.state.KVDelete(ownerKey(owner))
	}
	return e.state.KVPut(ownerKey(owner), ids)
}

func (e *Engine) adjustSupply(delta int) error {
	supply, err := e.TotalSupply()
	if err != nil {
		return err
	}
	if delta < 0 {
		supply = common.SaturatingSub(supply, uint64(-delta))
	} else {
		supply = common.SaturatingAdd(supply, uint64(delta))
	}
	return e.state.KVPut(totalSupplyKey, supply)
}

// Achievement returns the token record.
func (e *Engine) Achievement(tokenID uint64) (*Achievement, error) {
	a := new(Achievement)
	ok, err := e.state.KVGet(tokenKey(tokenID), a)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTokenNotFound
	}
	return a, nil
}

// OwnerOf returns the owner of tokenID.
func (e *Engine) OwnerOf(tokenID uint64) ([20]byte, error) {
	a, err := e.Achievement(tokenID)
	if err != nil {
		return [20]byte{}, err
	}
	return a.Owner, nil
}

// TokensOf lists the tokens held by owner in acquisition order.
func (e *Engine) TokensOf(owner [20]byte) ([]uint64, error) {
	ids := []uint64{}
	if _, err := e.state.KVGet(ownerKey(owner), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// TotalSupply returns the number of live tokens.
func (e *Engine) TotalSupply() (uint64, error) {
	var supply uint64
	if _, err := e.state.KVGet(totalSupplyKey, &supply); err != nil {
		return 0, err
	}
	return supply, nil
}
