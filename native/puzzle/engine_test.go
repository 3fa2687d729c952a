package puzzle

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"questchain/core/events"
	"questchain/core/state"
	"questchain/crypto"
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

func newEngine(t *testing.T, signers ...[20]byte) (*Engine, *recordingEmitter) {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	tr, err := trie.Open(db, nil)
	require.NoError(t, err)
	rec := &recordingEmitter{}
	engine := NewEngine()
	engine.SetState(state.NewManager(tr))
	engine.SetAuthorizer(common.NewSigners(signers...))
	engine.SetEmitter(rec)
	return engine, rec
}

func TestSolutionHashIsStable(t *testing.T) {
	a := SolutionHash([]byte("up,up,down,down"))
	b := SolutionHash([]byte("up,up,down,down"))
	c := SolutionHash([]byte("up,down"))
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.NotEqual(t, [32]byte{}, a)
}

func TestVerifySolution(t *testing.T) {
	admin, player := newTestAddress(0x01), newTestAddress(0x02)
	engine, rec := newEngine(t, admin, player)

	_, err := engine.VerifySolution(player, 1, SolutionHash([]byte("x")))
	require.ErrorIs(t, err, ErrNotInitialized)
	require.NoError(t, engine.Initialize(admin))
	require.ErrorIs(t, engine.Initialize(admin), ErrAlreadyInitialized)

	solution := SolutionHash([]byte("42"))
	require.ErrorIs(t, engine.SetPuzzle(player, 1, solution), ErrUnauthorized)
	require.ErrorIs(t, engine.SetPuzzle(admin, 1, [32]byte{}), ErrEmptyHash)
	require.NoError(t, engine.SetPuzzle(admin, 1, solution))

	_, err = engine.VerifySolution(player, 2, solution)
	require.ErrorIs(t, err, ErrPuzzleNotFound)

	ok, err := engine.VerifySolution(player, 1, SolutionHash([]byte("41")))
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, rec.events)

	ok, err = engine.VerifySolution(player, 1, solution)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, rec.events, 1)
	require.Equal(t, EventTypeSolved, rec.events[0].EventType())
	solved := events.Render(rec.events[0])
	require.Equal(t, "1", solved.Attr("puzzleId"))
	require.Equal(t, crypto.FormatAddress(player), solved.Attr("player"))

	done, err := engine.IsCompleted(player, 1)
	require.NoError(t, err)
	require.True(t, done)

	// A repeat fails no matter which hash is sent.
	_, err = engine.VerifySolution(player, 1, solution)
	require.ErrorIs(t, err, ErrAlreadyCompleted)
	_, err = engine.VerifySolution(player, 1, SolutionHash([]byte("41")))
	require.ErrorIs(t, err, ErrAlreadyCompleted)
}
