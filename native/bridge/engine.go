package bridge

import (
	"encoding/hex"
	"math/big"
	"time"

	"questchain/core/events"
	"questchain/core/types"
	"questchain/crypto"
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
	configKey           = []byte("bridge/config")
	validatorsKey       = []byte("bridge/validators")
	validatorVersionKey = []byte("bridge/validator-version")
	bridgeNonceKey      = []byte("bridge/nonce")
)

func idKey(prefix string, id [32]byte) []byte {
	return []byte("bridge/" + prefix + "/" + hex.EncodeToString(id[:]))
}

func statusKey(id [32]byte) []byte     { return idKey("status", id) }
func messageKey(id [32]byte) []byte    { return idKey("message", id) }
func lockedKey(id [32]byte) []byte     { return idKey("locked", id) }
func signaturesKey(id [32]byte) []byte { return idKey("signatures", id) }
func wrappedKey(id [32]byte) []byte    { return idKey("wrapped", id) }

func userNonceKey(user [20]byte) []byte {
	return []byte("bridge/user-nonce/" + common.AddrHex(user))
}

// Engine locks assets for outbound messages and releases them for inbound
// messages signed by a quorum of validators.
type Engine struct {
	state   engineState
	bank    tokenBank
	emitter events.Emitter
	auth    common.Authorizer
	nowFn   func() int64
}

// NewEngine creates a bridge engine with default collaborators.
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
	ts := time.Now().Unix()
	if e != nil && e.nowFn != nil {
		ts = e.nowFn()
	}
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

// Initialize creates the bridge config with the default fee schedule and an
// empty validator set at version 1.
func (e *Engine) Initialize(admin [20]byte, requiredSignatures, chainID uint32, feeCollector [20]byte) error {
	ok, err := e.state.KVGet(configKey, nil)
	if err != nil {
		return err
	}
	if ok {
		return ErrAlreadyInitialized
	}
	if requiredSignatures == 0 || requiredSignatures > MaxValidators {
		return ErrInvalidSignatureCfg
	}
	if chainID > MaxChainID {
		return ErrInvalidChainID
	}
	if err := common.RequireAuth(e.auth, admin); err != nil {
		return ErrUnauthorized
	}
	cfg := &Config{
		Admin:              admin,
		RequiredSignatures: requiredSignatures,
		MaxValidators:      MaxValidators,
		BaseFeeBps:         DefaultBaseFeeBps,
		FeeCollector:       feeCollector,
		MinFee:             big.NewInt(defaultMinFeeUnits),
		MaxFee:             big.NewInt(defaultMaxFeeUnits),
		ChainID:            chainID,
	}
	if err := e.state.KVPut(configKey, cfg); err != nil {
		return err
	}
	if err := e.state.KVPut(validatorsKey, [][20]byte{}); err != nil {
		return err
	}
	if err := e.state.KVPut(validatorVersionKey, InitialValidatorEpoch); err != nil {
		return err
	}
	return e.state.KVPut(bridgeNonceKey, uint64(0))
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
	cfg.normalize()
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

func (e *Engine) callerConfig(caller [20]byte) (*Config, error) {
	cfg, err := e.Config()
	if err != nil {
		return nil, err
	}
	if err := common.RequireAuth(e.auth, caller); err != nil {
		return nil, ErrUnauthorized
	}
	if err := common.Guard(cfg); err != nil {
		return nil, ErrPaused
	}
	return cfg, nil
}

// Validators returns the current validator set in insertion order.
func (e *Engine) Validators() ([][20]byte, error) {
	validators := [][20]byte{}
	if _, err := e.state.KVGet(validatorsKey, &validators); err != nil {
		return nil, err
	}
	return validators, nil
}

// ValidatorSetVersion returns the counter bumped on every set change.
func (e *Engine) ValidatorSetVersion() (uint32, error) {
	version := InitialValidatorEpoch
	if _, err := e.state.KVGet(validatorVersionKey, &version); err != nil {
		return 0, err
	}
	return version, nil
}

func (e *Engine) storeValidators(validators [][20]byte) (uint32, error) {
	if err := e.state.KVPut(validatorsKey, validators); err != nil {
		return 0, err
	}
	version, err := e.ValidatorSetVersion()
	if err != nil {
		return 0, err
	}
	version++
	return version, e.state.KVPut(validatorVersionKey, version)
}

func isValidator(validators [][20]byte, addr [20]byte) bool {
	return common.IndexOf(validators, func(v [20]byte) bool { return v == addr }) >= 0
}

// AddValidator appends validator to the set.
func (e *Engine) AddValidator(admin, validator [20]byte) error {
	cfg, err := e.adminConfig(admin)
	if err != nil {
		return err
	}
	validators, err := e.Validators()
	if err != nil {
		return err
	}
	if isValidator(validators, validator) {
		return ErrValidatorExists
	}
	if uint32(len(validators)) >= cfg.MaxValidators {
		return ErrTooManyValidators
	}
	version, err := e.storeValidators(append(validators, validator))
	if err != nil {
		return err
	}
	e.emit(ValidatorEvent(EventTypeValidatorAdded, validator, version))
	return nil
}

// RemoveValidator drops validator from the set.
func (e *Engine) RemoveValidator(admin, validator [20]byte) error {
	if _, err := e.adminConfig(admin); err != nil {
		return err
	}
	validators, err := e.Validators()
	if err != nil {
		return err
	}
	idx := common.IndexOf(validators, func(v [20]byte) bool { return v == validator })
	if idx < 0 {
		return ErrValidatorNotFound
	}
	version, err := e.storeValidators(common.RemoveAt(validators, idx))
	if err != nil {
		return err
	}
	e.emit(ValidatorEvent(EventTypeValidatorRemoved, validator, version))
	return nil
}

// UpdateFees replaces the fee schedule.
func (e *Engine) UpdateFees(admin [20]byte, baseFeeBps uint64, minFee, maxFee *big.Int) error {
	cfg, err := e.adminConfig(admin)
	if err != nil {
		return err
	}
	if baseFeeBps > common.MaxBasisPoints || minFee == nil || maxFee == nil || minFee.Sign() < 0 || maxFee.Sign() < 0 {
		return ErrInvalidFeeConfig
	}
	cfg.BaseFeeBps = baseFeeBps
	cfg.MinFee = new(big.Int).Set(minFee)
	cfg.MaxFee = new(big.Int).Set(maxFee)
	if err := e.state.KVPut(configKey, cfg); err != nil {
		return err
	}
	e.emit(FeesUpdatedEvent(cfg))
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
	e.emit(PausedEvent(paused, e.now()))
	return nil
}

// QuoteFee returns the fee BridgeAssets would record for amount.
func (e *Engine) QuoteFee(amount *big.Int) (*big.Int, error) {
	cfg, err := e.Config()
	if err != nil {
		return nil, err
	}
	return cfg.QuoteFee(amount)
}

func (e *Engine) nextNonce(key []byte) (uint64, error) {
	var nonce uint64
	if _, err := e.state.KVGet(key, &nonce); err != nil {
		return 0, err
	}
	nonce++
	return nonce, e.state.KVPut(key, nonce)
}

// UserNonce returns the number of messages user has initiated.
func (e *Engine) UserNonce(user [20]byte) (uint64, error) {
	var nonce uint64
	if _, err := e.state.KVGet(userNonceKey(user), &nonce); err != nil {
		return 0, err
	}
	return nonce, nil
}

func validDestination(chain uint32) bool {
	return chain != 0 && chain <= MaxChainID
}

func validRecipient(recipient []byte) bool {
	return len(recipient) > 0 && len(recipient) <= MaxRecipientLength
}

// BridgeAssets locks amount of asset from sender and records a pending
// outbound message. Token custody moves to the bridge; NFT locks are
// recorded without custody. It returns the message id.
func (e *Engine) BridgeAssets(sender, asset [20]byte, assetType AssetType, amount *big.Int, destChain uint32, recipient []byte) ([32]byte, error) {
	var id [32]byte
	cfg, err := e.callerConfig(sender)
	if err != nil {
		return id, err
	}
	if !common.IsPositive(amount) {
		return id, ErrInvalidAmount
	}
	if !validDestination(destChain) {
		return id, ErrInvalidChainID
	}
	if !validRecipient(recipient) {
		return id, ErrInvalidRecipient
	}
	switch assetType {
	case AssetToken:
		if e.bank == nil {
			return id, ErrBankNotConfigured
		}
		balance, err := e.bank.Balance(asset, sender)
		if err != nil {
			return id, err
		}
		if balance.Cmp(amount) < 0 {
			return id, ErrInsufficientBalance
		}
	case AssetNFT:
	default:
		return id, ErrInvalidAssetType
	}
	fee, err := cfg.QuoteFee(amount)
	if err != nil {
		return id, err
	}

	now := e.now()
	userNonce, err := e.nextNonce(userNonceKey(sender))
	if err != nil {
		return id, err
	}
	id = messageID(now, sender, assetType, amount, destChain, userNonce)
	if _, known, err := e.MessageStatus(id); err != nil {
		return id, err
	} else if known {
		return id, ErrAlreadyProcessed
	}

	if assetType == AssetToken {
		if err := e.bank.Transfer(asset, sender, e.bank.Contract(), amount); err != nil {
			return id, err
		}
	}
	locked := &LockedAsset{
		Owner:     sender,
		Asset:     asset,
		AssetType: assetType,
		Amount:    new(big.Int).Set(amount),
		LockedAt:  now,
		MessageID: id,
		DestChain: destChain,
		Recipient: append([]byte(nil), recipient...),
	}
	if err := e.state.KVPut(lockedKey(id), locked); err != nil {
		return id, err
	}
	bridgeNonce, err := e.nextNonce(bridgeNonceKey)
	if err != nil {
		return id, err
	}
	msg := &Message{
		ID:          id,
		SourceChain: cfg.ChainID,
		DestChain:   destChain,
		Action:      ActionLock,
		AssetType:   assetType,
		Asset:       asset,
		Amount:      new(big.Int).Set(amount),
		Sender:      sender,
		Recipient:   locked.Recipient,
		Fee:         fee,
		Timestamp:   now,
		Nonce:       bridgeNonce,
	}
	if err := e.state.KVPut(messageKey(id), msg); err != nil {
		return id, err
	}
	if err := e.state.KVPut(statusKey(id), StatusPending); err != nil {
		return id, err
	}
	e.emit(InitiatedEvent(msg))
	return id, nil
}

// CompleteBridge releases the assets of an inbound unlock message once it
// carries signatures from at least RequiredSignatures distinct validators.
func (e *Engine) CompleteBridge(validator [20]byte, msg *Message, signatures []ValidatorSignature) error {
	cfg, err := e.callerConfig(validator)
	if err != nil {
		return err
	}
	if msg == nil {
		return ErrInvalidMessage
	}
	validators, err := e.Validators()
	if err != nil {
		return err
	}
	if !isValidator(validators, validator) {
		return ErrNotValidator
	}
	if status, known, err := e.MessageStatus(msg.ID); err != nil {
		return err
	} else if known && status != StatusPending {
		return ErrAlreadyProcessed
	}
	if msg.Action != ActionUnlock {
		return ErrInvalidMessage
	}
	if msg.DestChain != cfg.ChainID {
		return ErrInvalidChainID
	}
	if err := verifySignatures(msg, signatures, validators, cfg.RequiredSignatures); err != nil {
		return err
	}

	switch msg.AssetType {
	case AssetToken:
		if !common.IsPositive(msg.Amount) {
			return ErrInvalidAmount
		}
		recipient, err := ResolveRecipient(msg.Recipient)
		if err != nil {
			return err
		}
		if e.bank == nil {
			return ErrBankNotConfigured
		}
		if err := e.bank.Transfer(msg.Asset, e.bank.Contract(), recipient, msg.Amount); err != nil {
			return err
		}
	case AssetNFT:
	default:
		return ErrInvalidAssetType
	}

	if err := e.state.KVPut(statusKey(msg.ID), StatusCompleted); err != nil {
		return err
	}
	// A settled local lock no longer holds custody; the completing unlock
	// message becomes the record of the id.
	if err := e.state.KVDelete(lockedKey(msg.ID)); err != nil {
		return err
	}
	if err := e.state.KVPut(messageKey(msg.ID), msg); err != nil {
		return err
	}
	if err := e.state.KVPut(signaturesKey(msg.ID), signatures); err != nil {
		return err
	}
	e.emit(CompletedEvent(msg, len(signatures)))
	return nil
}

// verifySignatures counts signatures that recover to their claimed
// validator, belong to the current set and are the first from that
// validator.
func verifySignatures(msg *Message, signatures []ValidatorSignature, validators [][20]byte, required uint32) error {
	if uint32(len(signatures)) < required {
		return ErrInsufficientSigs
	}
	digest := msg.SigningHash()
	seen := make(map[[20]byte]struct{}, len(signatures))
	var valid uint32
	for _, sig := range signatures {
		if _, dup := seen[sig.Validator]; dup {
			continue
		}
		if !isValidator(validators, sig.Validator) {
			continue
		}
		signer, err := crypto.RecoverAddress(digest, sig.Signature)
		if err != nil || signer != sig.Validator {
			continue
		}
		seen[sig.Validator] = struct{}{}
		valid++
	}
	if valid < required {
		return ErrInvalidSignature
	}
	return nil
}

// CancelBridge refunds a pending lock to its owner. The owner or the admin
// may cancel.
func (e *Engine) CancelBridge(caller [20]byte, id [32]byte) error {
	cfg, err := e.Config()
	if err != nil {
		return err
	}
	if err := common.RequireAuth(e.auth, caller); err != nil {
		return ErrUnauthorized
	}
	if status, known, err := e.MessageStatus(id); err != nil {
		return err
	} else if known && status != StatusPending {
		return ErrAlreadyProcessed
	}
	locked, err := e.LockedAsset(id)
	if err != nil {
		return err
	}
	if locked == nil {
		return ErrAssetNotLocked
	}
	if caller != locked.Owner && caller != cfg.Admin {
		return ErrUnauthorized
	}
	if locked.AssetType == AssetToken {
		if e.bank == nil {
			return ErrBankNotConfigured
		}
		if err := e.bank.Transfer(locked.Asset, e.bank.Contract(), locked.Owner, locked.Amount); err != nil {
			return err
		}
	}
	if err := e.state.KVPut(statusKey(id), StatusCancelled); err != nil {
		return err
	}
	if err := e.state.KVDelete(lockedKey(id)); err != nil {
		return err
	}
	e.emit(CancelledEvent(id, caller, locked.Amount))
	return nil
}

// WrapNFT records tokenID of contract as wrapped for destChain and returns
// the wrapped id.
func (e *Engine) WrapNFT(owner, contract [20]byte, tokenID uint64, destChain uint32, recipient []byte) ([32]byte, error) {
	var id [32]byte
	cfg, err := e.callerConfig(owner)
	if err != nil {
		return id, err
	}
	if !validDestination(destChain) {
		return id, ErrInvalidChainID
	}
	if !validRecipient(recipient) {
		return id, ErrInvalidRecipient
	}
	now := e.now()
	id = wrappedID(contract, tokenID, destChain, now)
	if ok, err := e.state.KVGet(wrappedKey(id), nil); err != nil {
		return id, err
	} else if ok {
		return id, ErrAlreadyProcessed
	}
	nft := &WrappedNFT{
		WrappedID:        id,
		OriginalTokenID:  tokenID,
		OriginalChain:    cfg.ChainID,
		OriginalContract: contract,
		DestChain:        destChain,
		Recipient:        append([]byte(nil), recipient...),
		Owner:            owner,
		WrappedAt:        now,
	}
	if err := e.state.KVPut(wrappedKey(id), nft); err != nil {
		return id, err
	}
	e.emit(NFTEvent(EventTypeNFTWrapped, nft))
	return id, nil
}

// UnwrapNFT releases a wrapped NFT to its owner and returns the original
// contract and token id.
func (e *Engine) UnwrapNFT(owner [20]byte, id [32]byte) ([20]byte, uint64, error) {
	if _, err := e.callerConfig(owner); err != nil {
		return [20]byte{}, 0, err
	}
	nft, err := e.WrappedNFT(id)
	if err != nil {
		return [20]byte{}, 0, err
	}
	if nft == nil {
		return [20]byte{}, 0, ErrNFTNotWrapped
	}
	if nft.Owner != owner {
		return [20]byte{}, 0, ErrUnauthorized
	}
	if err := e.state.KVDelete(wrappedKey(id)); err != nil {
		return [20]byte{}, 0, err
	}
	e.emit(NFTEvent(EventTypeNFTUnwrapped, nft))
	return nft.OriginalContract, nft.OriginalTokenID, nil
}

// MessageStatus returns the status of id and whether it is known.
func (e *Engine) MessageStatus(id [32]byte) (Status, bool, error) {
	var status Status
	ok, err := e.state.KVGet(statusKey(id), &status)
	return status, ok, err
}

// Message returns the stored message, or nil.
func (e *Engine) Message(id [32]byte) (*Message, error) {
	msg := new(Message)
	ok, err := e.state.KVGet(messageKey(id), msg)
	if err != nil || !ok {
		return nil, err
	}
	return msg, nil
}

// LockedAsset returns the custody record of a pending lock, or nil.
func (e *Engine) LockedAsset(id [32]byte) (*LockedAsset, error) {
	locked := new(LockedAsset)
	ok, err := e.state.KVGet(lockedKey(id), locked)
	if err != nil || !ok {
		return nil, err
	}
	return locked, nil
}

// MessageSignatures returns the signatures that completed id.
func (e *Engine) MessageSignatures(id [32]byte) ([]ValidatorSignature, error) {
	var sigs []ValidatorSignature
	if _, err := e.state.KVGet(signaturesKey(id), &sigs); err != nil {
		return nil, err
	}
	return sigs, nil
}

// WrappedNFT returns a wrapped NFT record, or nil.
func (e *Engine) WrappedNFT(id [32]byte) (*WrappedNFT, error) {
	nft := new(WrappedNFT)
	ok, err := e.state.KVGet(wrappedKey(id), nft)
	if err != nil || !ok {
		return nil, err
	}
	return nft, nil
}
