package guild

import (
	"math/big"
	"strconv"

	"questchain/core/types"
	"questchain/crypto"
)

const (
	EventTypeJoined           = "guild.member.joined"
	EventTypeRoleChanged      = "guild.member.role_changed"
	EventTypeDeposited        = "guild.treasury.deposited"
	EventTypeWithdrawn        = "guild.treasury.withdrawn"
	EventTypeProposalCreated  = "guild.proposal.created"
	EventTypeVoted            = "guild.proposal.voted"
	EventTypeProposalExecuted = "guild.proposal.executed"
	EventTypeCompetition      = "guild.competition.recorded"
	EventTypeDisbanded        = "guild.disbanded"
)

func memberEvent(eventType string, member [20]byte, role Role) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"member": crypto.FormatAddress(member),
			"role":   role.String(),
		},
	}
}

func treasuryEvent(eventType string, actor [20]byte, amount *big.Int) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"actor":  crypto.FormatAddress(actor),
			"amount": amount.String(),
		},
	}
}

func proposalEvent(eventType string, p *Proposal) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"id":       strconv.FormatUint(p.ID, 10),
			"yes":      strconv.FormatUint(p.Yes, 10),
			"no":       strconv.FormatUint(p.No, 10),
			"deadline": strconv.FormatUint(p.Deadline, 10),
			"passed":   strconv.FormatBool(p.Passed),
		},
	}
}

func competitionEvent(c *Competition) *types.Event {
	return &types.Event{
		Type: EventTypeCompetition,
		Attributes: map[string]string{
			"id":       strconv.FormatUint(c.ID, 10),
			"opponent": crypto.FormatAddress(c.Opponent),
			"reward":   c.Reward.String(),
			"won":      strconv.FormatBool(c.Won),
		},
	}
}

func disbandedEvent(members int, share *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeDisbanded,
		Attributes: map[string]string{
			"members": strconv.Itoa(members),
			"share":   share.String(),
		},
	}
}
