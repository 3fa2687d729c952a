package achievement

// MaxMetadataLength bounds the free-form metadata stored with a token.
const MaxMetadataLength = 256

// Achievement is a non-fungible token minted for a solved puzzle.
type Achievement struct {
	TokenID   uint64
	Owner     [20]byte
	PuzzleID  uint32
	Metadata  string
	Timestamp uint64
}

// Config is the collection singleton.
type Config struct {
	Admin [20]byte
}
