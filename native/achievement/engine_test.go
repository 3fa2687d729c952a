package achievement

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"questchain/core/state"
	"questchain/native/common"
	"questchain/storage"
	"questchain/storage/trie"
)

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

type fixture struct {
	engine *Engine
	admin  [20]byte
	alice  [20]byte
	bob    [20]byte
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	tr, err := trie.Open(db, nil)
	require.NoError(t, err)

	f := &fixture{
		admin: newTestAddress(0x01),
		alice: newTestAddress(0x02),
		bob:   newTestAddress(0x03),
	}
	f.engine = NewEngine()
	f.engine.SetState(state.NewManager(tr))
	f.engine.SetAuthorizer(common.NewSigners(f.admin, f.alice, f.bob))
	f.engine.SetNowFunc(func() int64 { return 5_000 })
	require.NoError(t, f.engine.Initialize(f.admin))
	return f
}

func (f *fixture) mint(t *testing.T, to [20]byte, puzzleID uint32) uint64 {
	t.Helper()
	require.NoError(t, f.engine.SetPuzzleCompleted(f.admin, to, puzzleID))
	id, err := f.engine.Mint(to, puzzleID, "solved")
	require.NoError(t, err)
	return id
}

func TestMintRequiresCompletedPuzzle(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Mint(f.alice, 7, "early")
	require.ErrorIs(t, err, ErrPuzzleNotCompleted)

	require.ErrorIs(t, f.engine.SetPuzzleCompleted(f.alice, f.alice, 7), ErrUnauthorized)
	require.NoError(t, f.engine.SetPuzzleCompleted(f.admin, f.alice, 7))
	done, err := f.engine.IsPuzzleCompleted(f.alice, 7)
	require.NoError(t, err)
	require.True(t, done)

	id, err := f.engine.Mint(f.alice, 7, "First Puzzle Completed")
	require.NoError(t, err)
	require.Equal(t, uint64(1), id)

	// The flag is consumed so the same completion cannot mint twice.
	_, err = f.engine.Mint(f.alice, 7, "again")
	require.ErrorIs(t, err, ErrPuzzleNotCompleted)

	a, err := f.engine.Achievement(id)
	require.NoError(t, err)
	require.Equal(t, uint32(7), a.PuzzleID)
	require.Equal(t, uint64(5_000), a.Timestamp)
	require.Equal(t, f.alice, a.Owner)
}

func TestMintRejectsLongMetadata(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.SetPuzzleCompleted(f.admin, f.alice, 1))
	_, err := f.engine.Mint(f.alice, 1, strings.Repeat("x", MaxMetadataLength+1))
	require.ErrorIs(t, err, ErrMetadataTooLong)
}

func TestTransferKeepsOwnerIndexInSync(t *testing.T) {
	f := newFixture(t)
	first := f.mint(t, f.alice, 1)
	second := f.mint(t, f.alice, 2)

	require.ErrorIs(t, f.engine.Transfer(f.bob, f.alice, first), ErrNotOwner)
	require.ErrorIs(t, f.engine.Transfer(f.alice, [20]byte{}, first), ErrInvalidRecipient)
	require.NoError(t, f.engine.Transfer(f.alice, f.bob, first))

	owner, err := f.engine.OwnerOf(first)
	require.NoError(t, err)
	require.Equal(t, f.bob, owner)

	aliceTokens, err := f.engine.TokensOf(f.alice)
	require.NoError(t, err)
	require.Equal(t, []uint64{second}, aliceTokens)
	bobTokens, err := f.engine.TokensOf(f.bob)
	require.NoError(t, err)
	require.Equal(t, []uint64{first}, bobTokens)
}

func TestBurnRemovesToken(t *testing.T) {
	f := newFixture(t)
	id := f.mint(t, f.alice, 3)
	supply, err := f.engine.TotalSupply()
	require.NoError(t, err)
	require.Equal(t, uint64(1), supply)

	require.ErrorIs(t, f.engine.Burn(f.bob, id), ErrNotOwner)
	require.NoError(t, f.engine.Burn(f.alice, id))

	_, err = f.engine.OwnerOf(id)
	require.ErrorIs(t, err, ErrTokenNotFound)
	tokens, err := f.engine.TokensOf(f.alice)
	require.NoError(t, err)
	require.Empty(t, tokens)
	supply, err = f.engine.TotalSupply()
	require.NoError(t, err)
	require.Zero(t, supply)

	// Ids are never reused after a burn.
	require.Equal(t, uint64(2), f.mint(t, f.alice, 4))
}
