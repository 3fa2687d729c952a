package signlog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecordIsIdempotentAndDetectsConflicts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signed.db")
	log, err := Open(path)
	require.NoError(t, err)

	id := [32]byte{0x01}
	hash := [32]byte{0xaa}
	first := time.Unix(1_700_000_000, 0)
	entry, err := log.Record(id, hash, "qst1validator", first)
	require.NoError(t, err)
	require.Equal(t, hash[:], entry.SigningHash)

	again, err := log.Record(id, hash, "qst1validator", first.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, again.SignedAt.Equal(first), "re-recording keeps the original entry")

	_, err = log.Record(id, [32]byte{0xbb}, "qst1validator", first)
	require.ErrorIs(t, err, ErrConflict)
	require.NoError(t, log.Close())

	// Entries survive reopening.
	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	got, found, err := reopened.Lookup(id)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "qst1validator", got.Validator)

	_, found, err = reopened.Lookup([32]byte{0x02})
	require.NoError(t, err)
	require.False(t, found)
}
