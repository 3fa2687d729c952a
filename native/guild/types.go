package guild

import "math/big"

// Role orders guild permissions.
type Role uint8

const (
	RoleMember Role = iota
	RoleOfficer
	RoleLeader
)

func (r Role) String() string {
	switch r {
	case RoleMember:
		return "member"
	case RoleOfficer:
		return "officer"
	case RoleLeader:
		return "leader"
	default:
		return "unknown"
	}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r <= RoleLeader }

// AtLeast reports whether r grants min's permissions.
func (r Role) AtLeast(min Role) bool { return r >= min }

// Config is the guild singleton. Disbanded never reverts.
type Config struct {
	Name      string
	Token     [20]byte
	Disbanded bool
}

// Info summarizes the guild for queries.
type Info struct {
	Name      string
	Token     [20]byte
	Disbanded bool
	Members   int
	Treasury  *big.Int
}

// Proposal is a yes/no vote open until Deadline.
type Proposal struct {
	ID       uint64
	Creator  [20]byte
	Yes      uint64
	No       uint64
	Deadline uint64
	Executed bool
	Passed   bool
}

// Competition records a match against another guild.
type Competition struct {
	ID         uint64
	Opponent   [20]byte
	Reward     *big.Int
	Won        bool
	RecordedAt uint64
}
