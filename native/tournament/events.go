package tournament

import (
	"math/big"

	"questchain/core/types"
	"questchain/crypto"
)

const (
	EventTypeRegistered = "tournament.registered"
	EventTypeState      = "tournament.state"
	EventTypeWinner     = "tournament.winner"
	EventTypeRefunded   = "tournament.refunded"
)

// RegisteredEvent reports a paid entry.
func RegisteredEvent(player [20]byte, fee *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeRegistered,
		Attributes: map[string]string{
			"player": crypto.FormatAddress(player),
			"fee":    fee.String(),
		},
	}
}

// StateEvent reports a lifecycle transition.
func StateEvent(state State) *types.Event {
	return &types.Event{
		Type:       EventTypeState,
		Attributes: map[string]string{"state": state.String()},
	}
}

// WinnerEvent reports the declared winner and the prize paid out.
func WinnerEvent(winner [20]byte, prize *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeWinner,
		Attributes: map[string]string{
			"winner": crypto.FormatAddress(winner),
			"prize":  prize.String(),
		},
	}
}

// RefundedEvent reports a returned entry fee.
func RefundedEvent(player [20]byte, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeRefunded,
		Attributes: map[string]string{
			"player": crypto.FormatAddress(player),
			"amount": amount.String(),
		},
	}
}
