package achievement

import (
	"strconv"

	"questchain/core/types"
	"questchain/crypto"
)

const (
	EventTypeMinted      = "achievement.minted"
	EventTypeTransferred = "achievement.transferred"
	EventTypeBurned      = "achievement.burned"
)

func tokenEvent(eventType string, tokenID uint64, attrs map[string]string) *types.Event {
	attrs["tokenId"] = strconv.FormatUint(tokenID, 10)
	return &types.Event{Type: eventType, Attributes: attrs}
}

// MintedEvent reports a newly minted achievement.
func MintedEvent(a *Achievement) *types.Event {
	return tokenEvent(EventTypeMinted, a.TokenID, map[string]string{
		"owner":    crypto.FormatAddress(a.Owner),
		"puzzleId": strconv.FormatUint(uint64(a.PuzzleID), 10),
	})
}

// TransferredEvent reports an ownership change.
func TransferredEvent(tokenID uint64, from, to [20]byte) *types.Event {
	return tokenEvent(EventTypeTransferred, tokenID, map[string]string{
		"from": crypto.FormatAddress(from),
		"to":   crypto.FormatAddress(to),
	})
}

// BurnedEvent reports a destroyed achievement.
func BurnedEvent(tokenID uint64, owner [20]byte) *types.Event {
	return tokenEvent(EventTypeBurned, tokenID, map[string]string{
		"owner": crypto.FormatAddress(owner),
	})
}
