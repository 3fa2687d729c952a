package puzzle

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CanonicalAnswer folds a typed answer so that equivalent spellings hash
// identically: NFKC normalised, lower-cased, with runs of whitespace
// collapsed to one space.
func CanonicalAnswer(answer string) []byte {
	folded := norm.NFKC.String(strings.ToLower(answer))
	return []byte(strings.Join(strings.Fields(folded), " "))
}

// AnswerHash is SolutionHash over the canonical form of a typed answer.
func AnswerHash(answer string) [32]byte {
	return SolutionHash(CanonicalAnswer(answer))
}
