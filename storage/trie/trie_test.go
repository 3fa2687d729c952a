package trie

import (
	"testing"

	"github.com/stretchr/testify/require"

	"questchain/storage"
)

func TestCommitPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	db1, err := storage.NewLevelDB(dir)
	require.NoError(t, err)

	tr, err := Open(db1, nil)
	require.NoError(t, err)
	require.NoError(t, tr.Put([]byte("staking/config"), []byte("value")))
	root, err := tr.Commit(1)
	require.NoError(t, err)
	require.Equal(t, root, tr.CommittedRoot())
	db1.Close()

	db2, err := storage.NewLevelDB(dir)
	require.NoError(t, err)
	defer db2.Close()
	restored, err := Open(db2, root.Bytes())
	require.NoError(t, err)
	got, err := restored.Get([]byte("staking/config"))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), got)
}

func TestDeleteRestoresRoot(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()
	tr, err := Open(db, nil)
	require.NoError(t, err)
	empty := tr.PendingRoot()

	require.NoError(t, tr.Put([]byte("energy/player"), []byte{0x01}))
	require.NotEqual(t, empty, tr.PendingRoot())
	require.Equal(t, empty, tr.CommittedRoot(), "writes stay pending until commit")

	require.NoError(t, tr.Delete([]byte("energy/player")))
	require.Equal(t, empty, tr.PendingRoot())

	require.NoError(t, tr.Put([]byte("energy/player"), []byte{0x02}))
	require.NoError(t, tr.Put([]byte("energy/player"), nil))
	got, err := tr.Get([]byte("energy/player"))
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestCommitWithoutWritesKeepsRoot(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()
	tr, err := Open(db, nil)
	require.NoError(t, err)
	require.NoError(t, tr.Put([]byte("a"), []byte("1")))
	first, err := tr.Commit(1)
	require.NoError(t, err)
	second, err := tr.Commit(2)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestOpenUnknownRootFails(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()
	_, err := Open(db, []byte{0xde, 0xad, 0xbe, 0xef})
	require.Error(t, err)
}
