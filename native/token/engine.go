package token

import (
	"fmt"
	"math/big"
	"strings"

	"questchain/core/events"
	"questchain/core/types"
	"questchain/native/common"
)

type engineState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

// Engine implements a fungible token ledger living at a fixed contract
// address. The reward token and any game currency share this implementation.
type Engine struct {
	address [20]byte
	state   engineState
	emitter events.Emitter
	auth    common.Authorizer
}

// NewEngine creates a token engine for the contract at address.
func NewEngine(address [20]byte) *Engine {
	return &Engine{address: address, emitter: events.NoopEmitter{}}
}

// Address returns the token contract address.
func (e *Engine) Address() [20]byte { return e.address }

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetAuthorizer configures the invocation authorization oracle.
func (e *Engine) SetAuthorizer(auth common.Authorizer) { e.auth = auth }

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(events.Wrap(evt))
}

func (e *Engine) key(parts ...string) []byte {
	return []byte("token/" + common.AddrHex(e.address) + "/" + strings.Join(parts, "/"))
}

func (e *Engine) metaKey() []byte              { return e.key("meta") }
func (e *Engine) supplyKey() []byte            { return e.key("supply") }
func (e *Engine) balanceKey(a [20]byte) []byte { return e.key("balance", common.AddrHex(a)) }
func (e *Engine) minterKey(a [20]byte) []byte  { return e.key("minter", common.AddrHex(a)) }
func (e *Engine) allowanceKey(owner, spender [20]byte) []byte {
	return e.key("allowance", common.AddrHex(owner), common.AddrHex(spender))
}

func (e *Engine) requireState() error {
	if e == nil || e.state == nil {
		return fmt.Errorf("token: state not configured")
	}
	return nil
}

// Initialize stores the token metadata. Blank name and symbol fall back to
// the reward token defaults.
func (e *Engine) Initialize(admin [20]byte, name, symbol string, decimals uint8) error {
	if err := e.requireState(); err != nil {
		return err
	}
	ok, err := e.state.KVGet(e.metaKey(), nil)
	if err != nil {
		return err
	}
	if ok {
		return ErrAlreadyInitialized
	}
	if err := common.RequireAuth(e.auth, admin); err != nil {
		return ErrUnauthorized
	}
	meta := &Metadata{
		Admin:    admin,
		Name:     strings.TrimSpace(name),
		Symbol:   strings.ToUpper(strings.TrimSpace(symbol)),
		Decimals: decimals,
	}
	if meta.Name == "" {
		meta.Name = DefaultName
	}
	if meta.Symbol == "" {
		meta.Symbol = DefaultSymbol
	}
	if err := e.state.KVPut(e.metaKey(), meta); err != nil {
		return err
	}
	return e.state.KVPut(e.supplyKey(), big.NewInt(0))
}

// Metadata returns the stored token metadata.
func (e *Engine) Metadata() (*Metadata, error) {
	if err := e.requireState(); err != nil {
		return nil, err
	}
	meta := new(Metadata)
	ok, err := e.state.KVGet(e.metaKey(), meta)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	return meta, nil
}

// Admin returns the token administrator.
func (e *Engine) Admin() ([20]byte, error) {
	meta, err := e.Metadata()
	if err != nil {
		return [20]byte{}, err
	}
	return meta.Admin, nil
}

func (e *Engine) requireAdmin(caller [20]byte) (*Metadata, error) {
	meta, err := e.Metadata()
	if err != nil {
		return nil, err
	}
	if err := common.RequireAdmin(e.auth, meta.Admin, caller); err != nil {
		return nil, ErrUnauthorized
	}
	return meta, nil
}

// AuthorizeMinter lets minter create supply.
func (e *Engine) AuthorizeMinter(admin, minter [20]byte) error {
	if _, err := e.requireAdmin(admin); err != nil {
		return err
	}
	if err := e.state.KVPut(e.minterKey(minter), true); err != nil {
		return err
	}
	e.emit(MinterUpdatedEvent(e.address, minter, true))
	return nil
}

// RevokeMinter removes a minter authorization.
func (e *Engine) RevokeMinter(admin, minter [20]byte) error {
	if _, err := e.requireAdmin(admin); err != nil {
		return err
	}
	if err := e.state.KVDelete(e.minterKey(minter)); err != nil {
		return err
	}
	e.emit(MinterUpdatedEvent(e.address, minter, false))
	return nil
}

// IsAuthorizedMinter reports whether minter may mint. The admin always can.
func (e *Engine) IsAuthorizedMinter(minter [20]byte) (bool, error) {
	meta, err := e.Metadata()
	if err != nil {
		return false, err
	}
	if meta.Admin == minter {
		return true, nil
	}
	var allowed bool
	if _, err := e.state.KVGet(e.minterKey(minter), &allowed); err != nil {
		return false, err
	}
	return allowed, nil
}

// Mint creates amount new tokens for to. The minter must sign and be the
// admin or an authorized minter.
func (e *Engine) Mint(minter, to [20]byte, amount *big.Int) error {
	if !common.IsPositive(amount) {
		return ErrInvalidAmount
	}
	allowed, err := e.IsAuthorizedMinter(minter)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrUnauthorized
	}
	if err := common.RequireAuth(e.auth, minter); err != nil {
		return ErrUnauthorized
	}
	return e.credit(to, amount)
}

// DistributeRewards mints amounts[i] to recipients[i]. Non-positive amounts
// are skipped.
func (e *Engine) DistributeRewards(admin [20]byte, recipients [][20]byte, amounts []*big.Int) error {
	if _, err := e.requireAdmin(admin); err != nil {
		return err
	}
	if len(recipients) != len(amounts) {
		return ErrLengthMismatch
	}
	for i, recipient := range recipients {
		if !common.IsPositive(amounts[i]) {
			continue
		}
		if err := e.credit(recipient, amounts[i]); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) credit(to [20]byte, amount *big.Int) error {
	balance, err := e.BalanceOf(to)
	if err != nil {
		return err
	}
	supply, err := e.TotalSupply()
	if err != nil {
		return err
	}
	if err := e.state.KVPut(e.balanceKey(to), balance.Add(balance, amount)); err != nil {
		return err
	}
	if err := e.state.KVPut(e.supplyKey(), supply.Add(supply, amount)); err != nil {
		return err
	}
	e.emit(MintEvent(e.address, to, amount))
	return nil
}

// Transfer moves amount from from to to on from's authorization.
func (e *Engine) Transfer(from, to [20]byte, amount *big.Int) error {
	if err := common.RequireAuth(e.auth, from); err != nil {
		return ErrUnauthorized
	}
	return e.move(from, to, amount)
}

// move transfers without an authorization check. Callers establish authority.
func (e *Engine) move(from, to [20]byte, amount *big.Int) error {
	if !common.IsPositive(amount) {
		return ErrInvalidAmount
	}
	if _, err := e.Metadata(); err != nil {
		return err
	}
	fromBal, err := e.BalanceOf(from)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	if from != to {
		toBal, err := e.BalanceOf(to)
		if err != nil {
			return err
		}
		if err := e.putBalance(from, fromBal.Sub(fromBal, amount)); err != nil {
			return err
		}
		if err := e.putBalance(to, toBal.Add(toBal, amount)); err != nil {
			return err
		}
	}
	e.emit(TransferEvent(e.address, from, to, amount))
	return nil
}

func (e *Engine) putBalance(holder [20]byte, amount *big.Int) error {
	if amount.Sign() == 0 {
		return e.state.KVDelete(e.balanceKey(holder))
	}
	return e.state.KVPut(e.balanceKey(holder), amount)
}

// Approve sets the amount spender may move on owner's behalf.
func (e *Engine) Approve(owner, spender [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrNegativeAllowance
	}
	if _, err := e.Metadata(); err != nil {
		return err
	}
	if err := common.RequireAuth(e.auth, owner); err != nil {
		return ErrUnauthorized
	}
	key := e.allowanceKey(owner, spender)
	var err error
	if amount.Sign() == 0 {
		err = e.state.KVDelete(key)
	} else {
		err = e.state.KVPut(key, amount)
	}
	if err != nil {
		return err
	}
	e.emit(ApprovalEvent(e.address, owner, spender, amount))
	return nil
}

// Allowance returns the remaining amount spender may move for owner.
func (e *Engine) Allowance(owner, spender [20]byte) (*big.Int, error) {
	if err := e.requireState(); err != nil {
		return nil, err
	}
	out := new(big.Int)
	if _, err := e.state.KVGet(e.allowanceKey(owner, spender), out); err != nil {
		return nil, err
	}
	return out, nil
}

// TransferFrom moves amount from from to to using spender's allowance.
func (e *Engine) TransferFrom(spender, from, to [20]byte, amount *big.Int) error {
	if !common.IsPositive(amount) {
		return ErrInvalidAmount
	}
	if err := common.RequireAuth(e.auth, spender); err != nil {
		return ErrUnauthorized
	}
	allowance, err := e.Allowance(from, spender)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllow
	}
	if err := e.move(from, to, amount); err != nil {
		return err
	}
	remaining := allowance.Sub(allowance, amount)
	if remaining.Sign() == 0 {
		return e.state.KVDelete(e.allowanceKey(from, spender))
	}
	return e.state.KVPut(e.allowanceKey(from, spender), remaining)
}

// SpendForUnlock burns amount from spender in exchange for an in-game unlock.
func (e *Engine) SpendForUnlock(spender [20]byte, amount *big.Int, unlockType string) error {
	return e.burn(spender, amount, "unlock:"+strings.TrimSpace(unlockType))
}

// Burn destroys amount of from's balance.
func (e *Engine) Burn(from [20]byte, amount *big.Int) error {
	return e.burn(from, amount, "")
}

func (e *Engine) burn(from [20]byte, amount *big.Int, reason string) error {
	if !common.IsPositive(amount) {
		return ErrInvalidAmount
	}
	if _, err := e.Metadata(); err != nil {
		return err
	}
	if err := common.RequireAuth(e.auth, from); err != nil {
		return ErrUnauthorized
	}
	balance, err := e.BalanceOf(from)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	supply, err := e.TotalSupply()
	if err != nil {
		return err
	}
	if err := e.putBalance(from, balance.Sub(balance, amount)); err != nil {
		return err
	}
	if err := e.state.KVPut(e.supplyKey(), supply.Sub(supply, amount)); err != nil {
		return err
	}
	e.emit(BurnEvent(e.address, from, amount, reason))
	return nil
}

// BalanceOf returns holder's balance. Unknown holders have a zero balance.
func (e *Engine) BalanceOf(holder [20]byte) (*big.Int, error) {
	if err := e.requireState(); err != nil {
		return nil, err
	}
	out := new(big.Int)
	if _, err := e.state.KVGet(e.balanceKey(holder), out); err != nil {
		return nil, err
	}
	return out, nil
}

// TotalSupply returns the outstanding supply.
func (e *Engine) TotalSupply() (*big.Int, error) {
	if err := e.requireState(); err != nil {
		return nil, err
	}
	out := new(big.Int)
	if _, err := e.state.KVGet(e.supplyKey(), out); err != nil {
		return nil, err
	}
	return out, nil
}
