package token

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"questchain/core/events"
	"questchain/core/state"
	"questchain/native/common"
	"questchain/storage"
	"questchain/storage/trie"
)

type recordingEmitter struct {
	events []events.Event
}

func (r *recordingEmitter) Emit(evt events.Event) { r.events = append(r.events, evt) }

func (r *recordingEmitter) count(kind string) int {
	n := 0
	for _, evt := range r.events {
		if evt.EventType() == kind {
			n++
		}
	}
	return n
}

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func newTestState(t *testing.T) *state.Manager {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	tr, err := trie.Open(db, nil)
	require.NoError(t, err)
	return state.NewManager(tr)
}

func newTestToken(t *testing.T, admin [20]byte, signers common.Signers) (*Engine, *recordingEmitter) {
	t.Helper()
	engine := NewEngine(common.ContractAddress("reward-token"))
	engine.SetState(newTestState(t))
	emitter := &recordingEmitter{}
	engine.SetEmitter(emitter)
	engine.SetAuthorizer(signers)
	require.NoError(t, engine.Initialize(admin, "", "", DefaultDecimals))
	return engine, emitter
}

func TestInitializeOnce(t *testing.T) {
	admin := newTestAddress(0x01)
	engine, _ := newTestToken(t, admin, common.NewSigners(admin))

	meta, err := engine.Metadata()
	require.NoError(t, err)
	require.Equal(t, DefaultName, meta.Name)
	require.Equal(t, DefaultSymbol, meta.Symbol)
	require.ErrorIs(t, engine.Initialize(admin, "x", "y", 2), common.ErrAlreadyInitialized)

	fresh := NewEngine(newTestAddress(0x09))
	fresh.SetState(newTestState(t))
	_, err = fresh.BalanceOf(admin)
	require.NoError(t, err)
	require.ErrorIs(t, fresh.Mint(admin, admin, big.NewInt(1)), common.ErrNotInitialized)
}

func TestMintRequiresAuthorizedMinter(t *testing.T) {
	admin := newTestAddress(0x01)
	minter := newTestAddress(0x02)
	player := newTestAddress(0x03)
	signers := common.NewSigners(admin, minter)
	engine, emitter := newTestToken(t, admin, signers)

	require.ErrorIs(t, engine.Mint(minter, player, big.NewInt(10)), common.ErrUnauthorized)
	require.NoError(t, engine.AuthorizeMinter(admin, minter))
	require.NoError(t, engine.Mint(minter, player, big.NewInt(10)))
	require.ErrorIs(t, engine.Mint(minter, player, big.NewInt(0)), common.ErrInvalidAmount)

	ok, err := engine.IsAuthorizedMinter(admin)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, engine.RevokeMinter(admin, minter))
	require.ErrorIs(t, engine.Mint(minter, player, big.NewInt(1)), common.ErrUnauthorized)
	require.ErrorIs(t, engine.AuthorizeMinter(minter, minter), common.ErrUnauthorized)
	require.Equal(t, 1, emitter.count(EventTypeMint))
	require.Equal(t, 2, emitter.count(EventTypeMinterUpdated))
}

func TestTransferApproveAndTransferFrom(t *testing.T) {
	admin := newTestAddress(0x01)
	alice := newTestAddress(0x0A)
	bob := newTestAddress(0x0B)
	carol := newTestAddress(0x0C)
	signers := common.NewSigners(admin, alice, bob)
	engine, _ := newTestToken(t, admin, signers)
	require.NoError(t, engine.Mint(admin, alice, big.NewInt(100)))

	require.ErrorIs(t, engine.Transfer(carol, alice, big.NewInt(1)), common.ErrUnauthorized)
	require.ErrorIs(t, engine.Transfer(alice, bob, big.NewInt(101)), common.ErrInsufficientBalance)
	require.NoError(t, engine.Transfer(alice, bob, big.NewInt(40)))

	require.ErrorIs(t, engine.Approve(alice, bob, big.NewInt(-1)), common.ErrInvalidAmount)
	require.NoError(t, engine.Approve(alice, bob, big.NewInt(25)))
	require.ErrorIs(t, engine.TransferFrom(bob, alice, carol, big.NewInt(26)), common.ErrInsufficientBalance)
	require.NoError(t, engine.TransferFrom(bob, alice, carol, big.NewInt(25)))

	allowance, err := engine.Allowance(alice, bob)
	require.NoError(t, err)
	require.Zero(t, allowance.Sign())

	for holder, want := range map[[20]byte]int64{alice: 35, bob: 40, carol: 25} {
		bal, err := engine.BalanceOf(holder)
		require.NoError(t, err)
		require.Equal(t, want, bal.Int64())
	}
}

func TestSupplyConservation(t *testing.T) {
	admin := newTestAddress(0x01)
	holders := [][20]byte{newTestAddress(0x10), newTestAddress(0x11), newTestAddress(0x12)}
	signers := common.NewSigners(append([][20]byte{admin}, holders...)...)
	engine, _ := newTestToken(t, admin, signers)

	require.ErrorIs(t, engine.DistributeRewards(admin, holders, []*big.Int{big.NewInt(1)}), common.ErrInvalidInput)
	require.NoError(t, engine.DistributeRewards(admin, holders, []*big.Int{big.NewInt(500), big.NewInt(0), big.NewInt(300)}))
	require.NoError(t, engine.Transfer(holders[0], holders[1], big.NewInt(120)))
	require.NoError(t, engine.Burn(holders[2], big.NewInt(50)))
	require.NoError(t, engine.SpendForUnlock(holders[1], big.NewInt(20), "skin"))
	require.ErrorIs(t, engine.Burn(holders[2], big.NewInt(1_000)), common.ErrInsufficientBalance)

	sum := new(big.Int)
	for _, holder := range holders {
		bal, err := engine.BalanceOf(holder)
		require.NoError(t, err)
		require.GreaterOrEqual(t, bal.Sign(), 0)
		sum.Add(sum, bal)
	}
	supply, err := engine.TotalSupply()
	require.NoError(t, err)
	require.Equal(t, 0, sum.Cmp(supply))
	require.Equal(t, int64(800-50-20), supply.Int64())
}

func TestBankAuthorizesContractCustody(t *testing.T) {
	admin := newTestAddress(0x01)
	player := newTestAddress(0x02)
	stranger := newTestAddress(0x03)
	engine, _ := newTestToken(t, admin, common.NewSigners(admin, player))
	registry := NewRegistry()
	require.NoError(t, registry.Register(engine))
	require.ErrorIs(t, registry.Register(engine), common.ErrAlreadyRegistered)

	contract := common.ContractAddress("staking")
	bank := registry.Bank(contract)
	require.NoError(t, engine.Mint(admin, player, big.NewInt(50)))
	require.NoError(t, engine.Mint(admin, stranger, big.NewInt(50)))

	require.NoError(t, bank.Transfer(engine.Address(), player, contract, big.NewInt(30)))
	require.ErrorIs(t, bank.Transfer(engine.Address(), stranger, contract, big.NewInt(1)), common.ErrUnauthorized)
	require.NoError(t, bank.Transfer(engine.Address(), contract, stranger, big.NewInt(10)))

	bal, err := bank.Balance(engine.Address(), contract)
	require.NoError(t, err)
	require.Equal(t, int64(20), bal.Int64())

	_, err = bank.Balance(newTestAddress(0xEE), contract)
	require.ErrorIs(t, err, common.ErrNotFound)
	require.Len(t, registry.Addresses(), 1)
}
