package energy

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
	clock   int64
	emitter *recordingEmitter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	tr, err := trie.Open(db, nil)
	require.NoError(t, err)
	mgr := state.NewManager(tr)

	f := &fixture{
		admin:   newTestAddress(0x01),
		alice:   newTestAddress(0x02),
		bob:     newTestAddress(0x03),
		clock:   1_000,
		emitter: &recordingEmitter{},
	}
	signers := common.NewSigners(f.admin, f.alice, f.bob)

	f.token = token.NewEngine(common.ContractAddress("reward-token"))
	f.token.SetState(mgr)
	f.token.SetAuthorizer(signers)
	require.NoError(t, f.token.Initialize(f.admin, "Reward Token", "RWD", 6))
	registry := token.NewRegistry()
	require.NoError(t, registry.Register(f.token))

	f.engine = NewEngine()
	f.engine.SetState(mgr)
	f.engine.SetAuthorizer(signers)
	f.engine.SetBank(registry.Bank(common.ContractAddress("energy")))
	f.engine.SetEmitter(f.emitter)
	f.engine.SetNowFunc(func() int64 { return f.clock })
	require.NoError(t, f.engine.Initialize(f.admin, f.token.Address(), 1, 100, 10, big.NewInt(500)))
	return f
}

func (f *fixture) consume(t *testing.T, player [20]byte, times int) {
	t.Helper()
	for i := 0; i < times; i++ {
		require.NoError(t, f.engine.ConsumeEnergyForPuzzle(player))
	}
}

func (f *fixture) energy(t *testing.T, player [20]byte) uint64 {
	t.Helper()
	current, err := f.engine.CurrentEnergy(player)
	require.NoError(t, err)
	return current
}

func TestInitialize(t *testing.T) {
	f := newFixture(t)
	err := f.engine.Initialize(f.admin, f.token.Address(), 1, 100, 10, big.NewInt(1))
	require.ErrorIs(t, err, common.ErrAlreadyInitialized)

	cfg, err := f.engine.Config()
	require.NoError(t, err)
	require.Equal(t, DefaultMaxGiftPerDay, cfg.MaxGiftPerDay)
	require.Equal(t, int64(500), cfg.RefillTokenCost.Int64())

	fresh := NewEngine()
	fresh.SetState(f.engine.state)
	_, err = fresh.CurrentEnergy(f.alice)
	require.NoError(t, err)
	require.ErrorIs(t, fresh.ConsumeEnergyForPuzzle(f.alice), common.ErrUnauthorized)
}

func TestNewPlayerStartsFull(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, uint64(100), f.energy(t, f.alice))

	total, err := f.engine.TotalPlayers()
	require.NoError(t, err)
	require.Zero(t, total, "reads must not register players")

	f.consume(t, f.alice, 1)
	require.Equal(t, uint64(90), f.energy(t, f.alice))
	total, err = f.engine.TotalPlayers()
	require.NoError(t, err)
	require.Equal(t, uint64(1), total)
	require.Len(t, f.emitter.events, 1)
	require.Equal(t, EventTypeConsumed, f.emitter.events[0].EventType())
}

func TestConsumeRequiresEnergy(t *testing.T) {
	f := newFixture(t)
	f.consume(t, f.alice, 10)
	require.ErrorIs(t, f.engine.ConsumeEnergyForPuzzle(f.alice), common.ErrInsufficientEnergy)

	f.clock += 9
	require.ErrorIs(t, f.engine.ConsumeEnergyForPuzzle(f.alice), ErrInsufficientEnergy)
	f.clock++
	require.NoError(t, f.engine.ConsumeEnergyForPuzzle(f.alice))
	require.Zero(t, f.energy(t, f.alice))
}

func TestRegenerationCapsAtMax(t *testing.T) {
	f := newFixture(t)
	f.consume(t, f.alice, 5)
	f.clock += 1_000_000
	require.Equal(t, uint64(100), f.energy(t, f.alice))

	info, err := f.engine.PlayerEnergyInfo(f.alice)
	require.NoError(t, err)
	require.Equal(t, uint64(50), info.CurrentEnergy, "view must not checkpoint")
}

func TestGiftToFullReceiverFails(t *testing.T) {
	f := newFixture(t)
	err := f.engine.GiftEnergy(f.alice, f.bob, 10)
	require.ErrorIs(t, err, ErrMaxEnergyExceeded)
	require.Equal(t, uint64(100), f.energy(t, f.alice))
}

func TestGiftMovesEnergy(t *testing.T) {
	f := newFixture(t)
	f.consume(t, f.bob, 5)
	require.NoError(t, f.engine.GiftEnergy(f.alice, f.bob, 20))

	require.Equal(t, uint64(70), f.energy(t, f.bob))
	sender, err := f.engine.PlayerEnergyInfo(f.alice)
	require.NoError(t, err)
	require.Equal(t, uint64(80), sender.CurrentEnergy)
	require.Equal(t, uint64(20), sender.GiftedToday)
}

func TestGiftDailyLimit(t *testing.T) {
	f := newFixture(t)
	f.consume(t, f.bob, 5)
	require.NoError(t, f.engine.GiftEnergy(f.alice, f.bob, 15))
	require.ErrorIs(t, f.engine.GiftEnergy(f.alice, f.bob, 6), ErrGiftLimitExceeded)
	require.NoError(t, f.engine.GiftEnergy(f.alice, f.bob, 5))

	f.clock += int64(common.SecondsPerDay)
	f.consume(t, f.bob, 10)
	require.NoError(t, f.engine.GiftEnergy(f.alice, f.bob, 20))
}

func TestGiftValidation(t *testing.T) {
	f := newFixture(t)
	require.ErrorIs(t, f.engine.GiftEnergy(f.alice, f.alice, 1), ErrSelfGift)
	require.ErrorIs(t, f.engine.GiftEnergy(f.alice, f.bob, 0), common.ErrInvalidAmount)

	f.consume(t, f.alice, 9)
	f.consume(t, f.bob, 5)
	require.ErrorIs(t, f.engine.GiftEnergy(f.alice, f.bob, 11), ErrInsufficientEnergy)
}

func TestInstantRefillChargesTokens(t *testing.T) {
	f := newFixture(t)
	f.consume(t, f.alice, 3)
	_, err := f.engine.InstantRefill(f.alice)
	require.ErrorIs(t, err, ErrInsufficientTokens)

	require.NoError(t, f.token.Mint(f.admin, f.alice, big.NewInt(1_000)))
	refilled, err := f.engine.InstantRefill(f.alice)
	require.NoError(t, err)
	require.Equal(t, uint64(30), refilled)
	require.Equal(t, uint64(100), f.energy(t, f.alice))

	bal, err := f.token.BalanceOf(f.alice)
	require.NoError(t, err)
	require.Equal(t, int64(500), bal.Int64())
	held, err := f.token.BalanceOf(common.ContractAddress("energy"))
	require.NoError(t, err)
	require.Equal(t, int64(500), held.Int64())
}

func TestBoostAcceleratesThenExpires(t *testing.T) {
	f := newFixture(t)
	f.consume(t, f.alice, 10)
	require.ErrorIs(t, f.engine.ApplyBoost(f.alice, BoostNone, 10), ErrInvalidBoostType)
	require.ErrorIs(t, f.engine.ApplyBoost(f.alice, BoostTripleRegen, 0), ErrInvalidDuration)

	require.NoError(t, f.engine.ApplyBoost(f.alice, BoostTripleRegen, 10))
	require.ErrorIs(t, f.engine.ApplyBoost(f.alice, BoostDoubleRegen, 10), ErrBoostAlreadyActive)

	f.clock += 5
	require.Equal(t, uint64(15), f.energy(t, f.alice))
	f.clock += 15
	// The boost has expired by now, so all 20 seconds accrue at the base rate.
	require.Equal(t, uint64(20), f.energy(t, f.alice))

	view, err := f.engine.PlayerEnergyView(f.alice)
	require.NoError(t, err)
	require.Equal(t, BoostNone, view.ActiveBoost)
	require.NoError(t, f.engine.ApplyBoost(f.alice, BoostQuintupleRegen, 2))
	f.clock++
	require.Equal(t, uint64(25), f.energy(t, f.alice))
	// At the expiry instant the boost no longer applies to any of the interval.
	f.clock++
	require.Equal(t, uint64(22), f.energy(t, f.alice))
}

func TestPauseAndConfigUpdate(t *testing.T) {
	f := newFixture(t)
	require.ErrorIs(t, f.engine.SetPaused(f.alice, true), common.ErrUnauthorized)
	require.NoError(t, f.engine.SetPaused(f.admin, true))
	require.ErrorIs(t, f.engine.ConsumeEnergyForPuzzle(f.alice), common.ErrContractPaused)
	require.NoError(t, f.engine.SetPaused(f.admin, false))

	cost := uint64(25)
	require.NoError(t, f.engine.UpdateConfig(f.admin, ConfigUpdate{PuzzleEnergyCost: &cost}))
	f.consume(t, f.alice, 4)
	require.ErrorIs(t, f.engine.ConsumeEnergyForPuzzle(f.alice), ErrInsufficientEnergy)
	require.ErrorIs(t, f.engine.UpdateConfig(f.admin, ConfigUpdate{RefillTokenCost: big.NewInt(-1)}), ErrInvalidAmount)
}
