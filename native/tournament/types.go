package tournament

import "math/big"

// MinParticipants is the smallest field a tournament can start with.
const MinParticipants = 2

// State is the tournament lifecycle. Ended and Cancelled are final.
type State uint8

const (
	StateOpen State = iota
	StateStarted
	StateEnded
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateStarted:
		return "started"
	case StateEnded:
		return "ended"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Final reports whether no further transition is allowed.
func (s State) Final() bool { return s == StateEnded || s == StateCancelled }

// Config is the tournament singleton.
type Config struct {
	Admin    [20]byte
	Token    [20]byte
	EntryFee *big.Int
}

// Match pairs two participants in a bracket round. Results are declared
// directly through RecordResult, so brackets are not stored yet.
type Match struct {
	ID     uint32
	P1     [20]byte
	P2     [20]byte
	Winner [20]byte
	Played bool
}
