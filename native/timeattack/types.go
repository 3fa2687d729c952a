package timeattack

// Submission bounds.
const (
	MinCompletionMs uint64 = 1_000
	MaxCompletionMs uint64 = 60 * 60 * 1_000

	// MinSubmitInterval is the minimum gap between two submissions of a player.
	MinSubmitInterval uint64 = 5
	// LastSubmitTTL is how long a rate-limit marker lives.
	LastSubmitTTL uint64 = 300
	// ReplayTTL is how long a consumed replay hash stays rejected.
	ReplayTTL uint64 = 86_400

	// BoardSize caps every board.
	BoardSize = 10
)

// Record is one accepted completion.
type Record struct {
	Player       [20]byte
	CompletionMs uint64
	Timestamp    uint64
	ReplayHash   [32]byte
}

func faster(a, b Record) bool { return a.CompletionMs < b.CompletionMs }

// Bracket classifies a completion time.
type Bracket uint8

const (
	BracketBeginner Bracket = iota
	BracketIntermediate
	BracketAdvanced
	BracketExpert
)

func (b Bracket) String() string {
	switch b {
	case BracketBeginner:
		return "beginner"
	case BracketIntermediate:
		return "intermediate"
	case BracketAdvanced:
		return "advanced"
	default:
		return "expert"
	}
}

// TimeBracket maps a completion time to its bracket.
func TimeBracket(ms uint64) Bracket {
	switch {
	case ms <= 300_000:
		return BracketBeginner
	case ms <= 600_000:
		return BracketIntermediate
	case ms <= 900_000:
		return BracketAdvanced
	default:
		return BracketExpert
	}
}
