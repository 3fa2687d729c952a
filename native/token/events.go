package token

import (
	"math/big"

	"questchain/core/types"
	"questchain/crypto"
)

const (
	// EventTypeTransfer is emitted when tokens move between holders.
	EventTypeTransfer = "token.transfer"
	// EventTypeMint is emitted when new supply is created.
	EventTypeMint = "token.mint"
	// EventTypeBurn is emitted when supply is destroyed.
	EventTypeBurn = "token.burn"
	// EventTypeApproval is emitted when an allowance is set.
	EventTypeApproval = "token.approval"
	// EventTypeMinterUpdated is emitted when a minter is authorized or revoked.
	EventTypeMinterUpdated = "token.minter.updated"
)

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// TransferEvent describes a balance movement.
func TransferEvent(token, from, to [20]byte, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeTransfer,
		Attributes: map[string]string{
			"token":  crypto.FormatAddress(token),
			"from":   crypto.FormatAddress(from),
			"to":     crypto.FormatAddress(to),
			"amount": amountString(amount),
		},
	}
}

// MintEvent describes newly created supply.
func MintEvent(token, to [20]byte, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeMint,
		Attributes: map[string]string{
			"token":  crypto.FormatAddress(token),
			"to":     crypto.FormatAddress(to),
			"amount": amountString(amount),
		},
	}
}

// BurnEvent describes destroyed supply. reason is empty for plain burns.
func BurnEvent(token, from [20]byte, amount *big.Int, reason string) *types.Event {
	attrs := map[string]string{
		"token":  crypto.FormatAddress(token),
		"from":   crypto.FormatAddress(from),
		"amount": amountString(amount),
	}
	if reason != "" {
		attrs["reason"] = reason
	}
	return &types.Event{Type: EventTypeBurn, Attributes: attrs}
}

// ApprovalEvent describes an allowance update.
func ApprovalEvent(token, owner, spender [20]byte, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeApproval,
		Attributes: map[string]string{
			"token":   crypto.FormatAddress(token),
			"owner":   crypto.FormatAddress(owner),
			"spender": crypto.FormatAddress(spender),
			"amount":  amountString(amount),
		},
	}
}

// MinterUpdatedEvent describes a change to the minter set.
func MinterUpdatedEvent(token, minter [20]byte, authorized bool) *types.Event {
	status := "revoked"
	if authorized {
		status = "authorized"
	}
	return &types.Event{
		Type: EventTypeMinterUpdated,
		Attributes: map[string]string{
			"token":  crypto.FormatAddress(token),
			"minter": crypto.FormatAddress(minter),
			"status": status,
		},
	}
}
