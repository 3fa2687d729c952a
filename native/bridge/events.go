package bridge

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"questchain/core/types"
	"questchain/crypto"
)

const (
	// EventTypeInitiated is emitted when assets are locked for an outbound message.
	EventTypeInitiated = "bridge.initiated"
	// EventTypeCompleted is emitted when an inbound message releases assets.
	EventTypeCompleted = "bridge.completed"
	// EventTypeCancelled is emitted when a pending lock is refunded.
	EventTypeCancelled = "bridge.cancelled"
	// EventTypeValidatorAdded is emitted when the validator set grows.
	EventTypeValidatorAdded = "bridge.validator.added"
	// EventTypeValidatorRemoved is emitted when the validator set shrinks.
	EventTypeValidatorRemoved = "bridge.validator.removed"
	// EventTypePaused is emitted when the pause flag changes.
	EventTypePaused = "bridge.paused"
	// EventTypeFeesUpdated is emitted when the fee schedule changes.
	EventTypeFeesUpdated = "bridge.fees.updated"
	// EventTypeNFTWrapped is emitted when an NFT is wrapped for another chain.
	EventTypeNFTWrapped = "bridge.nft.wrapped"
	// EventTypeNFTUnwrapped is emitted when a wrapped NFT is released.
	EventTypeNFTUnwrapped = "bridge.nft.unwrapped"
)

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// InitiatedEvent records an outbound lock.
func InitiatedEvent(msg *Message) *types.Event {
	return &types.Event{
		Type: EventTypeInitiated,
		Attributes: map[string]string{
			"id":        hex.EncodeToString(msg.ID[:]),
			"sender":    crypto.FormatAddress(msg.Sender),
			"assetType": msg.AssetType.String(),
			"amount":    amountString(msg.Amount),
			"fee":       amountString(msg.Fee),
			"destChain": strconv.FormatUint(uint64(msg.DestChain), 10),
		},
	}
}

// CompletedEvent records an inbound release.
func CompletedEvent(msg *Message, signatures int) *types.Event {
	return &types.Event{
		Type: EventTypeCompleted,
		Attributes: map[string]string{
			"id":         hex.EncodeToString(msg.ID[:]),
			"action":     msg.Action.String(),
			"amount":     amountString(msg.Amount),
			"signatures": strconv.Itoa(signatures),
		},
	}
}

// CancelledEvent records a refunded lock.
func CancelledEvent(id [32]byte, caller [20]byte, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeCancelled,
		Attributes: map[string]string{
			"id":     hex.EncodeToString(id[:]),
			"caller": crypto.FormatAddress(caller),
			"amount": amountString(amount),
		},
	}
}

// ValidatorEvent records a validator set change and the new version.
func ValidatorEvent(eventType string, validator [20]byte, version uint32) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"validator": crypto.FormatAddress(validator),
			"version":   strconv.FormatUint(uint64(version), 10),
		},
	}
}

// PausedEvent records a pause toggle.
func PausedEvent(paused bool, ts uint64) *types.Event {
	return &types.Event{
		Type: EventTypePaused,
		Attributes: map[string]string{
			"paused":    strconv.FormatBool(paused),
			"timestamp": strconv.FormatUint(ts, 10),
		},
	}
}

// FeesUpdatedEvent records a fee schedule change.
func FeesUpdatedEvent(cfg *Config) *types.Event {
	return &types.Event{
		Type: EventTypeFeesUpdated,
		Attributes: map[string]string{
			"baseFeeBps": strconv.FormatUint(cfg.BaseFeeBps, 10),
			"minFee":     amountString(cfg.MinFee),
			"maxFee":     amountString(cfg.MaxFee),
		},
	}
}

// NFTEvent records a wrap or unwrap.
func NFTEvent(eventType string, nft *WrappedNFT) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"wrappedId": hex.EncodeToString(nft.WrappedID[:]),
			"owner":     crypto.FormatAddress(nft.Owner),
			"contract":  crypto.FormatAddress(nft.OriginalContract),
			"tokenId":   strconv.FormatUint(nft.OriginalTokenID, 10),
			"destChain": strconv.FormatUint(uint64(nft.DestChain), 10),
		},
	}
}
