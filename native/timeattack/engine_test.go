package timeattack

import (
	"bytes"
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

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func replay(n byte) [32]byte {
	var h [32]byte
	h[0] = n
	h[31] = 0xaa
	return h
}

type fixture struct {
	engine  *Engine
	mgr     *state.Manager
	admin   [20]byte
	clock   int64
	emitter *recordingEmitter
}

func newFixture(t *testing.T, players ...[20]byte) *fixture {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	tr, err := trie.Open(db, nil)
	require.NoError(t, err)

	f := &fixture{admin: newTestAddress(0x01), clock: 10_000, emitter: &recordingEmitter{}}
	f.mgr = state.NewManager(tr)
	f.engine = NewEngine()
	f.engine.SetState(f.mgr)
	f.engine.SetAuthorizer(common.NewSigners(append(players, f.admin)...))
	f.engine.SetEmitter(f.emitter)
	f.engine.SetNowFunc(func() int64 { return f.clock })
	require.NoError(t, f.engine.Initialize(f.admin))
	return f
}

func TestInitializeAndAuth(t *testing.T) {
	f := newFixture(t)
	require.ErrorIs(t, f.engine.Initialize(f.admin), common.ErrAlreadyInitialized)
	admin, err := f.engine.Admin()
	require.NoError(t, err)
	require.Equal(t, f.admin, admin)

	err = f.engine.SubmitTime(newTestAddress(0x50), 1, 120_000, replay(1))
	require.ErrorIs(t, err, common.ErrUnauthorized)

	fresh := NewEngine()
	fresh.SetState(state.NewManager(mustTrie(t)))
	require.ErrorIs(t, fresh.SubmitTime(f.admin, 1, 120_000, replay(1)), ErrNotInitialized)
}

func mustTrie(t *testing.T) *trie.Trie {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	tr, err := trie.Open(db, nil)
	require.NoError(t, err)
	return tr
}

func TestSubmitTimeRecordsBest(t *testing.T) {
	player := newTestAddress(0x10)
	f := newFixture(t, player)
	require.NoError(t, f.engine.SubmitTime(player, 1, 120_000, replay(1)))

	best, err := f.engine.BestTime(1)
	require.NoError(t, err)
	require.NotNil(t, best)
	require.Equal(t, uint64(120_000), best.CompletionMs)

	global, err := f.engine.BestTime(0)
	require.NoError(t, err)
	require.Nil(t, global, "puzzle scopes are independent of the global scope")

	f.clock += 10
	require.NoError(t, f.engine.SubmitTime(player, 1, 130_000, replay(2)))
	best, err = f.engine.BestTime(1)
	require.NoError(t, err)
	require.Equal(t, uint64(120_000), best.CompletionMs, "slower times never replace the best")

	board, err := f.engine.Leaderboard(1, common.PeriodAllTime)
	require.NoError(t, err)
	require.Len(t, board, 2)
	require.Equal(t, uint64(120_000), board[0].CompletionMs)
}

func TestSubmissionBounds(t *testing.T) {
	player := newTestAddress(0x10)
	f := newFixture(t, player)
	require.ErrorIs(t, f.engine.SubmitTime(player, 1, 500, replay(1)), common.ErrInvalidTime)
	require.ErrorIs(t, f.engine.SubmitTime(player, 1, MaxCompletionMs+1, replay(1)), ErrInvalidTime)
	require.NoError(t, f.engine.SubmitTime(player, 1, MinCompletionMs, replay(1)))
}

func TestRateLimitExpires(t *testing.T) {
	player := newTestAddress(0x10)
	f := newFixture(t, player)
	require.NoError(t, f.engine.SubmitTime(player, 1, 120_000, replay(1)))

	f.clock += 4
	require.ErrorIs(t, f.engine.SubmitTime(player, 1, 110_000, replay(2)), ErrTooFrequent)
	f.clock++
	require.NoError(t, f.engine.SubmitTime(player, 1, 110_000, replay(2)))
}

func TestReplayHashRejectedWithinWindow(t *testing.T) {
	a, b := newTestAddress(0x10), newTestAddress(0x11)
	f := newFixture(t, a, b)
	require.NoError(t, f.engine.SubmitTime(a, 1, 120_000, replay(7)))
	require.ErrorIs(t, f.engine.SubmitTime(b, 1, 100_000, replay(7)), common.ErrDuplicateReplay)

	f.clock += int64(ReplayTTL)
	pruned, err := f.mgr.TempPrune(uint64(f.clock))
	require.NoError(t, err)
	require.Equal(t, 2, pruned)
	require.NoError(t, f.engine.SubmitTime(b, 1, 100_000, replay(7)))
}

func TestBoardBoundedAndAscending(t *testing.T) {
	players := make([][20]byte, 0, 15)
	for i := 0; i < 15; i++ {
		players = append(players, newTestAddress(byte(0x20+i)))
	}
	f := newFixture(t, players...)
	times := []uint64{50_000, 20_000, 90_000, 20_000, 70_000, 10_000, 30_000, 80_000, 60_000, 40_000, 100_000, 5_000, 45_000, 20_000, 95_000}
	for i, ms := range times {
		require.NoError(t, f.engine.SubmitTime(players[i], 0, ms, replay(byte(i))))

		board, err := f.engine.Leaderboard(0, common.PeriodWeekly)
		require.NoError(t, err)
		require.LessOrEqual(t, len(board), BoardSize)
		for j := 1; j < len(board); j++ {
			require.LessOrEqual(t, board[j-1].CompletionMs, board[j].CompletionMs)
		}
	}
	board, err := f.engine.Leaderboard(0, common.PeriodWeekly)
	require.NoError(t, err)
	require.Len(t, board, BoardSize)
	require.Equal(t, uint64(5_000), board[0].CompletionMs)
	// Equal times keep submission order.
	require.Equal(t, players[1], board[2].Player)
	require.Equal(t, players[3], board[3].Player)
	require.Equal(t, players[13], board[4].Player)
}

func TestDailyBoardResets(t *testing.T) {
	player := newTestAddress(0x10)
	f := newFixture(t, player)
	require.NoError(t, f.engine.SubmitTime(player, 3, 120_000, replay(1)))

	f.clock += int64(common.SecondsPerDay)
	require.NoError(t, f.engine.SubmitTime(player, 3, 150_000, replay(2)))

	daily, err := f.engine.Leaderboard(3, common.PeriodDaily)
	require.NoError(t, err)
	require.Len(t, daily, 1)
	require.Equal(t, uint64(150_000), daily[0].CompletionMs)
	dailyBest, err := f.engine.PeriodBest(3, common.PeriodDaily)
	require.NoError(t, err)
	require.Equal(t, uint64(150_000), dailyBest.CompletionMs)

	weekly, err := f.engine.Leaderboard(3, common.PeriodWeekly)
	require.NoError(t, err)
	require.Len(t, weekly, 2)
	best, err := f.engine.BestTime(3)
	require.NoError(t, err)
	require.Equal(t, uint64(120_000), best.CompletionMs)
}

func TestTimeBracket(t *testing.T) {
	require.Equal(t, BracketBeginner, TimeBracket(300_000))
	require.Equal(t, BracketIntermediate, TimeBracket(300_001))
	require.Equal(t, BracketAdvanced, TimeBracket(900_000))
	require.Equal(t, BracketExpert, TimeBracket(900_001))
	require.Equal(t, "expert", BracketExpert.String())
}
