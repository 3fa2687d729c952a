package tournament

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"questchain/core/events"
	"questchain/core/state"
	"questchain/native/common"
	"questchain/native/token"
	"questchain/storage"
	"questchain/storage/trie"
)

type recordingEmitter struct {
	events []events.Event
}

func (r *recordingEmitter) Emit(evt events.Event) { r.events = append(r.events, evt) }

func (r *recordingEmitter) types() []string {
	out := make([]string, 0, len(r.events))
	for _, evt := range r.events {
		out = append(out, evt.EventType())
	}
	return out
}

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

type fixture struct {
	engine  *Engine
	token   *token.Engine
	admin   [20]byte
	alice   [20]byte
	bob     [20]byte
	carol   [20]byte
	emitter *recordingEmitter
}

func newManager(t *testing.T) *state.Manager {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	tr, err := trie.Open(db, nil)
	require.NoError(t, err)
	return state.NewManager(tr)
}

func newFixture(t *testing.T, entryFee int64) *fixture {
	t.Helper()
	mgr := newManager(t)

	f := &fixture{
		admin:   newTestAddress(0x01),
		alice:   newTestAddress(0x02),
		bob:     newTestAddress(0x03),
		carol:   newTestAddress(0x04),
		emitter: &recordingEmitter{},
	}
	signers := common.NewSigners(f.admin, f.alice, f.bob, f.carol)

	f.token = token.NewEngine(common.ContractAddress("entry-token"))
	f.token.SetState(mgr)
	f.token.SetAuthorizer(signers)
	require.NoError(t, f.token.Initialize(f.admin, "Entry", "ENT", 6))
	for _, player := range [][20]byte{f.alice, f.bob, f.carol} {
		require.NoError(t, f.token.Mint(f.admin, player, big.NewInt(1_000)))
	}
	registry := token.NewRegistry()
	require.NoError(t, registry.Register(f.token))

	f.engine = NewEngine()
	f.engine.SetState(mgr)
	f.engine.SetAuthorizer(signers)
	f.engine.SetBank(registry.Bank(common.ContractAddress("tournament")))
	f.engine.SetEmitter(f.emitter)
	require.NoError(t, f.engine.Initialize(f.admin, f.token.Address(), big.NewInt(entryFee)))
	return f
}

func (f *fixture) balance(t *testing.T, holder [20]byte) int64 {
	t.Helper()
	bal, err := f.token.BalanceOf(holder)
	require.NoError(t, err)
	return bal.Int64()
}

func (f *fixture) pool(t *testing.T) int64 {
	t.Helper()
	pool, err := f.engine.PrizePool()
	require.NoError(t, err)
	return pool.Int64()
}

func TestInitialize(t *testing.T) {
	f := newFixture(t, 100)
	require.ErrorIs(t, f.engine.Initialize(f.admin, f.token.Address(), big.NewInt(1)), ErrAlreadyInitialized)

	state, err := f.engine.State()
	require.NoError(t, err)
	require.Equal(t, StateOpen, state)
	require.Zero(t, f.pool(t))

	fresh := NewEngine()
	fresh.SetState(newManager(t))
	fresh.SetAuthorizer(common.NewSigners(f.admin))
	require.ErrorIs(t, fresh.Initialize(f.admin, f.token.Address(), big.NewInt(-1)), ErrInvalidEntryFee)
	_, err = fresh.State()
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestRegisterCollectsEntryFees(t *testing.T) {
	f := newFixture(t, 100)
	require.NoError(t, f.engine.Register(f.alice))
	require.ErrorIs(t, f.engine.Register(f.alice), ErrAlreadyRegistered)
	require.NoError(t, f.engine.Register(f.bob))

	require.Equal(t, int64(200), f.pool(t))
	require.Equal(t, int64(900), f.balance(t, f.alice))
	participants, err := f.engine.Participants()
	require.NoError(t, err)
	require.Equal(t, [][20]byte{f.alice, f.bob}, participants)
}

func TestRegisterFailsWithoutFunds(t *testing.T) {
	f := newFixture(t, 5_000)
	require.Error(t, f.engine.Register(f.alice))
	participants, err := f.engine.Participants()
	require.NoError(t, err)
	require.Empty(t, participants)
}

func TestStartRequiresTwoPlayers(t *testing.T) {
	f := newFixture(t, 100)
	require.NoError(t, f.engine.Register(f.alice))
	require.ErrorIs(t, f.engine.StartTournament(f.alice), ErrUnauthorized)
	require.ErrorIs(t, f.engine.StartTournament(f.admin), ErrTooFewParticipants)

	require.NoError(t, f.engine.Register(f.bob))
	require.NoError(t, f.engine.StartTournament(f.admin))
	require.ErrorIs(t, f.engine.StartTournament(f.admin), ErrNotOpen)
	require.ErrorIs(t, f.engine.Register(f.carol), ErrNotOpen)
}

func TestRecordResultPaysWholePool(t *testing.T) {
	f := newFixture(t, 100)
	require.NoError(t, f.engine.Register(f.alice))
	require.NoError(t, f.engine.Register(f.bob))
	require.NoError(t, f.engine.Register(f.carol))

	require.ErrorIs(t, f.engine.RecordResult(f.admin, f.alice), ErrNotStarted)
	require.NoError(t, f.engine.StartTournament(f.admin))
	require.ErrorIs(t, f.engine.RecordResult(f.admin, f.admin), ErrNotParticipant)
	require.NoError(t, f.engine.RecordResult(f.admin, f.bob))

	require.Equal(t, int64(1_200), f.balance(t, f.bob))
	require.Zero(t, f.pool(t))
	state, err := f.engine.State()
	require.NoError(t, err)
	require.Equal(t, StateEnded, state)

	require.ErrorIs(t, f.engine.CancelTournament(f.admin), ErrAlreadyFinal)
	require.ErrorIs(t, f.engine.RecordResult(f.admin, f.bob), ErrNotStarted)
	require.Contains(t, f.emitter.types(), EventTypeWinner)
}

func TestCancelAndRefundOnce(t *testing.T) {
	f := newFixture(t, 100)
	require.NoError(t, f.engine.Register(f.alice))
	require.NoError(t, f.engine.Register(f.bob))
	require.ErrorIs(t, f.engine.WithdrawRefund(f.alice), ErrNotCancelled)

	require.NoError(t, f.engine.StartTournament(f.admin))
	require.NoError(t, f.engine.CancelTournament(f.admin))
	require.ErrorIs(t, f.engine.CancelTournament(f.admin), ErrAlreadyFinal)

	require.NoError(t, f.engine.WithdrawRefund(f.alice))
	require.ErrorIs(t, f.engine.WithdrawRefund(f.alice), ErrNotParticipant)
	require.ErrorIs(t, f.engine.WithdrawRefund(f.carol), ErrNotParticipant)

	require.Equal(t, int64(1_000), f.balance(t, f.alice))
	require.Equal(t, int64(100), f.pool(t))
	participants, err := f.engine.Participants()
	require.NoError(t, err)
	require.Equal(t, [][20]byte{f.bob}, participants)
}

func TestFreeTournamentSkipsTransfers(t *testing.T) {
	f := newFixture(t, 0)
	f.engine.SetBank(nil)
	require.NoError(t, f.engine.Register(f.alice))
	require.NoError(t, f.engine.Register(f.bob))
	require.NoError(t, f.engine.StartTournament(f.admin))
	require.NoError(t, f.engine.RecordResult(f.admin, f.alice))
	require.Equal(t, int64(1_000), f.balance(t, f.alice))
}
