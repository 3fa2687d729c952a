package passphrase

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSourcePrefersEnvironment(t *testing.T) {
	t.Setenv("QUESTCHAIN_TEST_PASS", "hunter2")
	src := NewSource("QUESTCHAIN_TEST_PASS", "admin keystore")
	value, err := src.Get()
	require.NoError(t, err)
	require.Equal(t, "hunter2", value)

	// Cached after the first call.
	t.Setenv("QUESTCHAIN_TEST_PASS", "changed")
	value, err = src.Get()
	require.NoError(t, err)
	require.Equal(t, "hunter2", value)
}

func TestSourceRejectsBlankEnvironment(t *testing.T) {
	t.Setenv("QUESTCHAIN_TEST_PASS", "   ")
	_, err := NewSource("QUESTCHAIN_TEST_PASS", "").Get()
	require.ErrorContains(t, err, "set but empty")
}
