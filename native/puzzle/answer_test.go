package puzzle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalAnswerFoldsEquivalentSpellings(t *testing.T) {
	require.Equal(t, "up up down", string(CanonicalAnswer("  Up\tUP  down ")))
	// Fullwidth letters fold to ASCII under NFKC.
	require.Equal(t, AnswerHash("abc"), AnswerHash("ＡＢＣ"))
	require.NotEqual(t, AnswerHash("abc"), AnswerHash("abd"))
	require.Equal(t, SolutionHash([]byte("42")), AnswerHash(" 42 "))
}
