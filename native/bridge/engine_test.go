package bridge

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"questchain/core/events"
	"questchain/core/state"
	"questchain/crypto"
	"questchain/native/common"
	"questchain/native/token"
	"questchain/storage"
	"questchain/storage/trie"
)

const localChain uint32 = 7

type recordingEmitter struct {
	events []events.Event
}

func (r *recordingEmitter) Emit(evt events.Event) { r.events = append(r.events, evt) }

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

type fixture struct {
	engine     *Engine
	token      *token.Engine
	admin      [20]byte
	user       [20]byte
	validators []*crypto.PrivateKey
	clock      int64
	emitter    *recordingEmitter
}

func validatorAddr(key *crypto.PrivateKey) [20]byte {
	return key.Address().Array()
}

func newFixture(t *testing.T, required uint32) *fixture {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	tr, err := trie.Open(db, nil)
	require.NoError(t, err)
	mgr := state.NewManager(tr)

	f := &fixture{
		admin:   newTestAddress(0x01),
		user:    newTestAddress(0x02),
		clock:   1_700_000_000,
		emitter: &recordingEmitter{},
	}
	signers := common.NewSigners(f.admin, f.user)
	for i := 0; i < 3; i++ {
		key, err := crypto.GeneratePrivateKey()
		require.NoError(t, err)
		f.validators = append(f.validators, key)
		signers[validatorAddr(key)] = struct{}{}
	}

	f.token = token.NewEngine(common.ContractAddress("wrapped-asset"))
	f.token.SetState(mgr)
	f.token.SetAuthorizer(signers)
	require.NoError(t, f.token.Initialize(f.admin, "Wrapped", "WRP", 6))
	registry := token.NewRegistry()
	require.NoError(t, registry.Register(f.token))

	f.engine = NewEngine()
	f.engine.SetState(mgr)
	f.engine.SetAuthorizer(signers)
	f.engine.SetBank(registry.Bank(common.ContractAddress("bridge")))
	f.engine.SetEmitter(f.emitter)
	f.engine.SetNowFunc(func() int64 { return f.clock })
	require.NoError(t, f.engine.Initialize(f.admin, required, localChain, newTestAddress(0x0f)))
	for _, key := range f.validators {
		require.NoError(t, f.engine.AddValidator(f.admin, validatorAddr(key)))
	}

	require.NoError(t, f.token.Mint(f.admin, f.user, big.NewInt(1_000_000)))
	return f
}

func (f *fixture) balance(t *testing.T, addr [20]byte) int64 {
	t.Helper()
	bal, err := f.token.BalanceOf(addr)
	require.NoError(t, err)
	return bal.Int64()
}

func recipientWord(fill byte) []byte {
	word := make([]byte, 32)
	addr := newTestAddress(fill)
	copy(word[12:], addr[:])
	return word
}

func (f *fixture) unlockMessage(amount int64, recipient []byte) *Message {
	msg := &Message{
		SourceChain: 1,
		DestChain:   localChain,
		Action:      ActionUnlock,
		AssetType:   AssetToken,
		Asset:       f.token.Address(),
		Amount:      big.NewInt(amount),
		Sender:      newTestAddress(0x44),
		Recipient:   recipient,
		Fee:         big.NewInt(0),
		Timestamp:   uint64(f.clock),
		Nonce:       9,
	}
	msg.ID[0] = 0xab
	msg.ID[31] = byte(amount)
	return msg
}

func sign(t *testing.T, msg *Message, keys ...*crypto.PrivateKey) []ValidatorSignature {
	t.Helper()
	sigs := make([]ValidatorSignature, 0, len(keys))
	for _, key := range keys {
		sig, err := key.Sign(msg.SigningHash())
		require.NoError(t, err)
		sigs = append(sigs, ValidatorSignature{Validator: validatorAddr(key), Signature: sig})
	}
	return sigs
}

func TestInitializeValidation(t *testing.T) {
	f := newFixture(t, 2)
	require.ErrorIs(t, f.engine.Initialize(f.admin, 2, 1, f.admin), common.ErrAlreadyInitialized)

	fresh := NewEngine()
	fresh.SetState(state.NewManager(mustTrie(t)))
	fresh.SetAuthorizer(common.NewSigners(f.admin))
	require.ErrorIs(t, fresh.Initialize(f.admin, 0, 1, f.admin), ErrInvalidSignatureCfg)
	require.ErrorIs(t, fresh.Initialize(f.admin, MaxValidators+1, 1, f.admin), common.ErrInvalidInput)
	require.ErrorIs(t, fresh.Initialize(f.admin, 1, MaxChainID+1, f.admin), common.ErrInvalidChainID)
	require.NoError(t, fresh.Initialize(f.admin, 1, MaxChainID, f.admin))

	version, err := fresh.ValidatorSetVersion()
	require.NoError(t, err)
	require.Equal(t, InitialValidatorEpoch, version)
}

func mustTrie(t *testing.T) *trie.Trie {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	tr, err := trie.Open(db, nil)
	require.NoError(t, err)
	return tr
}

func TestValidatorSetVersioning(t *testing.T) {
	f := newFixture(t, 2)
	version, err := f.engine.ValidatorSetVersion()
	require.NoError(t, err)
	require.Equal(t, uint32(4), version)

	v := validatorAddr(f.validators[0])
	require.ErrorIs(t, f.engine.AddValidator(f.admin, v), ErrValidatorExists)
	require.ErrorIs(t, f.engine.AddValidator(f.user, newTestAddress(0x70)), common.ErrUnauthorized)
	require.NoError(t, f.engine.RemoveValidator(f.admin, v))
	require.ErrorIs(t, f.engine.RemoveValidator(f.admin, v), common.ErrNotFound)

	validators, err := f.engine.Validators()
	require.NoError(t, err)
	require.Len(t, validators, 2)
	version, err = f.engine.ValidatorSetVersion()
	require.NoError(t, err)
	require.Equal(t, uint32(5), version)
}

func TestValidatorCap(t *testing.T) {
	f := newFixture(t, 1)
	for i := 3; i < int(MaxValidators); i++ {
		require.NoError(t, f.engine.AddValidator(f.admin, newTestAddress(byte(0x80+i))))
	}
	require.ErrorIs(t, f.engine.AddValidator(f.admin, newTestAddress(0x7f)), common.ErrLimitExceeded)
}

func TestBridgeAssetsLocksAndDerivesUniqueIDs(t *testing.T) {
	f := newFixture(t, 2)
	recipient := bytes.Repeat([]byte{0x5a}, 32)

	id, err := f.engine.BridgeAssets(f.user, f.token.Address(), AssetToken, big.NewInt(500), 1, recipient)
	require.NoError(t, err)
	require.Len(t, id, 32)

	locked, err := f.engine.LockedAsset(id)
	require.NoError(t, err)
	require.Equal(t, int64(500), locked.Amount.Int64())
	require.Equal(t, f.user, locked.Owner)
	require.Equal(t, int64(500), f.balance(t, common.ContractAddress("bridge")))

	second, err := f.engine.BridgeAssets(f.user, f.token.Address(), AssetToken, big.NewInt(500), 1, recipient)
	require.NoError(t, err)
	require.NotEqual(t, id, second)

	msg, err := f.engine.Message(second)
	require.NoError(t, err)
	require.Equal(t, uint64(2), msg.Nonce)
	require.Equal(t, localChain, msg.SourceChain)
	require.Equal(t, int64(1_000_000), msg.Fee.Int64(), "fee is clamped up to the minimum")
	status, known, err := f.engine.MessageStatus(second)
	require.NoError(t, err)
	require.True(t, known)
	require.Equal(t, StatusPending, status)

	nonce, err := f.engine.UserNonce(f.user)
	require.NoError(t, err)
	require.Equal(t, uint64(2), nonce)
}

func TestBridgeAssetsValidation(t *testing.T) {
	f := newFixture(t, 2)
	asset := f.token.Address()
	to := []byte{1}
	_, err := f.engine.BridgeAssets(f.user, asset, AssetToken, big.NewInt(0), 1, to)
	require.ErrorIs(t, err, common.ErrInvalidAmount)
	_, err = f.engine.BridgeAssets(f.user, asset, AssetToken, big.NewInt(1), 0, to)
	require.ErrorIs(t, err, common.ErrInvalidChainID)
	_, err = f.engine.BridgeAssets(f.user, asset, AssetToken, big.NewInt(1), MaxChainID+1, to)
	require.ErrorIs(t, err, ErrInvalidChainID)
	_, err = f.engine.BridgeAssets(f.user, asset, AssetToken, big.NewInt(1), 1, nil)
	require.ErrorIs(t, err, common.ErrInvalidRecipient)
	_, err = f.engine.BridgeAssets(f.user, asset, AssetToken, big.NewInt(2_000_000), 1, to)
	require.ErrorIs(t, err, common.ErrInsufficientBalance)
	_, err = f.engine.BridgeAssets(f.admin, asset, AssetToken, big.NewInt(1), 1, to)
	require.ErrorIs(t, err, ErrInsufficientBalance)

	require.NoError(t, f.engine.SetPaused(f.admin, true))
	_, err = f.engine.BridgeAssets(f.user, asset, AssetToken, big.NewInt(1), 1, to)
	require.ErrorIs(t, err, common.ErrContractPaused)
}

func TestFeeBoundsAreHard(t *testing.T) {
	f := newFixture(t, 2)
	require.NoError(t, f.engine.UpdateFees(f.admin, 100, big.NewInt(5), big.NewInt(50)))
	fee, err := f.engine.QuoteFee(big.NewInt(1_000))
	require.NoError(t, err)
	require.Equal(t, int64(10), fee.Int64())
	fee, err = f.engine.QuoteFee(big.NewInt(1_000_000))
	require.NoError(t, err)
	require.Equal(t, int64(50), fee.Int64())

	require.NoError(t, f.engine.UpdateFees(f.admin, 100, big.NewInt(60), big.NewInt(50)))
	_, err = f.engine.QuoteFee(big.NewInt(1_000))
	require.ErrorIs(t, err, ErrFeeTooLow)
	require.ErrorIs(t, f.engine.UpdateFees(f.admin, 10_001, big.NewInt(0), big.NewInt(1)), ErrInvalidFeeConfig)
}

func TestCancelRefundsOnce(t *testing.T) {
	f := newFixture(t, 2)
	start := f.balance(t, f.user)
	id, err := f.engine.BridgeAssets(f.user, f.token.Address(), AssetToken, big.NewInt(700), 3, []byte{9})
	require.NoError(t, err)

	require.ErrorIs(t, f.engine.CancelBridge(newTestAddress(0x66), id), common.ErrUnauthorized)
	require.NoError(t, f.engine.CancelBridge(f.user, id))
	require.Equal(t, start, f.balance(t, f.user))

	status, _, err := f.engine.MessageStatus(id)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, status)
	require.ErrorIs(t, f.engine.CancelBridge(f.user, id), ErrAlreadyProcessed)
	require.ErrorIs(t, f.engine.CancelBridge(f.admin, [32]byte{1}), ErrAssetNotLocked)

	other, err := f.engine.BridgeAssets(f.user, f.token.Address(), AssetToken, big.NewInt(5), 3, []byte{9})
	require.NoError(t, err)
	require.NoError(t, f.engine.CancelBridge(f.admin, other), "admin may cancel any pending lock")
}

func TestCompleteBridgeReleasesOnQuorum(t *testing.T) {
	f := newFixture(t, 2)
	bridgeAddr := common.ContractAddress("bridge")
	require.NoError(t, f.token.Mint(f.admin, bridgeAddr, big.NewInt(10_000)))
	relayer := validatorAddr(f.validators[0])

	msg := f.unlockMessage(4_000, recipientWord(0x31))
	one := sign(t, msg, f.validators[0])
	require.ErrorIs(t, f.engine.CompleteBridge(relayer, msg, one), ErrInsufficientSigs)

	dup := append(one, one...)
	require.ErrorIs(t, f.engine.CompleteBridge(relayer, msg, dup), ErrInvalidSignature, "duplicates count once")

	outsider, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	mixed := append(sign(t, msg, f.validators[0]), sign(t, msg, outsider)...)
	require.ErrorIs(t, f.engine.CompleteBridge(relayer, msg, mixed), common.ErrInsufficientSignatures)

	forged := sign(t, msg, f.validators[0], f.validators[1])
	forged[1].Signature = forged[0].Signature
	require.ErrorIs(t, f.engine.CompleteBridge(relayer, msg, forged), ErrInvalidSignature)

	require.ErrorIs(t, f.engine.CompleteBridge(f.user, msg, sign(t, msg, f.validators...)), ErrNotValidator)

	sigs := sign(t, msg, f.validators[1], f.validators[2])
	require.NoError(t, f.engine.CompleteBridge(relayer, msg, sigs))
	require.Equal(t, int64(4_000), f.balance(t, newTestAddress(0x31)))
	require.Equal(t, int64(6_000), f.balance(t, bridgeAddr))

	stored, err := f.engine.MessageSignatures(msg.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	require.ErrorIs(t, f.engine.CompleteBridge(relayer, msg, sigs), common.ErrAlreadyProcessed)
}

func TestCompleteBridgeRejectsForeignOrLockMessages(t *testing.T) {
	f := newFixture(t, 1)
	relayer := validatorAddr(f.validators[0])

	lock := f.unlockMessage(10, recipientWord(0x31))
	lock.Action = ActionLock
	require.ErrorIs(t, f.engine.CompleteBridge(relayer, lock, sign(t, lock, f.validators[0])), ErrInvalidMessage)

	foreign := f.unlockMessage(11, recipientWord(0x31))
	foreign.DestChain = localChain + 1
	require.ErrorIs(t, f.engine.CompleteBridge(relayer, foreign, sign(t, foreign, f.validators[0])), ErrInvalidChainID)

	bad := f.unlockMessage(12, []byte{1, 2, 3})
	require.ErrorIs(t, f.engine.CompleteBridge(relayer, bad, sign(t, bad, f.validators[0])), ErrInvalidRecipient)

	tampered := f.unlockMessage(13, recipientWord(0x31))
	sigs := sign(t, tampered, f.validators[0])
	tampered.Amount = big.NewInt(1_000_000)
	require.ErrorIs(t, f.engine.CompleteBridge(relayer, tampered, sigs), ErrInvalidSignature)
}

func TestCompletedLockCannotBeCancelled(t *testing.T) {
	f := newFixture(t, 1)
	id, err := f.engine.BridgeAssets(f.user, f.token.Address(), AssetToken, big.NewInt(100), 3, []byte{1})
	require.NoError(t, err)

	msg := f.unlockMessage(100, recipientWord(0x31))
	msg.ID = id
	require.NoError(t, f.engine.CompleteBridge(validatorAddr(f.validators[0]), msg, sign(t, msg, f.validators[0])))
	require.ErrorIs(t, f.engine.CancelBridge(f.user, id), ErrAlreadyProcessed)

	locked, err := f.engine.LockedAsset(id)
	require.NoError(t, err)
	require.Nil(t, locked)
	stored, err := f.engine.Message(id)
	require.NoError(t, err)
	require.Equal(t, ActionUnlock, stored.Action)
}

func TestResolveRecipient(t *testing.T) {
	addr := newTestAddress(0x31)
	got, err := ResolveRecipient(addr[:])
	require.NoError(t, err)
	require.Equal(t, addr, got)
	got, err = ResolveRecipient(recipientWord(0x31))
	require.NoError(t, err)
	require.Equal(t, addr, got)

	_, err = ResolveRecipient(bytes.Repeat([]byte{1}, 32))
	require.ErrorIs(t, err, ErrInvalidRecipient)
	_, err = ResolveRecipient(make([]byte, 20))
	require.ErrorIs(t, err, ErrInvalidRecipient)
}

func TestWrapAndUnwrapNFT(t *testing.T) {
	f := newFixture(t, 1)
	collection := newTestAddress(0x77)
	id, err := f.engine.WrapNFT(f.user, collection, 42, 5, []byte{0xbe, 0xef})
	require.NoError(t, err)

	nft, err := f.engine.WrappedNFT(id)
	require.NoError(t, err)
	require.Equal(t, uint64(42), nft.OriginalTokenID)
	require.Equal(t, localChain, nft.OriginalChain)

	_, err = f.engine.WrapNFT(f.user, collection, 42, 5, []byte{0xbe, 0xef})
	require.ErrorIs(t, err, ErrAlreadyProcessed)

	_, _, err = f.engine.UnwrapNFT(f.admin, id)
	require.ErrorIs(t, err, common.ErrUnauthorized)
	contract, tokenID, err := f.engine.UnwrapNFT(f.user, id)
	require.NoError(t, err)
	require.Equal(t, collection, contract)
	require.Equal(t, uint64(42), tokenID)

	_, _, err = f.engine.UnwrapNFT(f.user, id)
	require.ErrorIs(t, err, ErrNFTNotWrapped)
}

func TestSigningBytesCoverEveryField(t *testing.T) {
	base := &Message{Amount: big.NewInt(1), Fee: big.NewInt(0), Recipient: []byte{1}}
	mutations := []func(m *Message){
		func(m *Message) { m.ID[0] = 1 },
		func(m *Message) { m.SourceChain = 1 },
		func(m *Message) { m.DestChain = 1 },
		func(m *Message) { m.Action = ActionUnlock },
		func(m *Message) { m.AssetType = AssetNFT },
		func(m *Message) { m.Asset[0] = 1 },
		func(m *Message) { m.Amount = big.NewInt(2) },
		func(m *Message) { m.Sender[0] = 1 },
		func(m *Message) { m.Recipient = []byte{1, 0} },
		func(m *Message) { m.Fee = big.NewInt(1) },
		func(m *Message) { m.Timestamp = 1 },
		func(m *Message) { m.Nonce = 1 },
	}
	for i, mutate := range mutations {
		clone := *base
		clone.Recipient = append([]byte(nil), base.Recipient...)
		mutate(&clone)
		require.NotEqual(t, base.SigningHash(), clone.SigningHash(), "mutation %d", i)
	}
}
