package energy

import (
	"strconv"

	"questchain/core/types"
	"questchain/crypto"
)

const (
	// EventTypeConsumed is emitted when a puzzle attempt spends energy.
	EventTypeConsumed = "energy.consumed"
	// EventTypeRefilled is emitted when a player buys a full refill.
	EventTypeRefilled = "energy.refilled"
	// EventTypeGifted is emitted when energy moves between players.
	EventTypeGifted = "energy.gifted"
	// EventTypeBoostApplied is emitted when a regeneration boost starts.
	EventTypeBoostApplied = "energy.boost.applied"
	// EventTypeConfigUpdated is emitted when an admin setter changes parameters.
	EventTypeConfigUpdated = "energy.config.updated"
)

func u64(v uint64) string { return strconv.FormatUint(v, 10) }

// ConsumedEvent records energy spent on a puzzle attempt.
func ConsumedEvent(player [20]byte, cost, remaining uint64) *types.Event {
	return &types.Event{
		Type: EventTypeConsumed,
		Attributes: map[string]string{
			"player":    crypto.FormatAddress(player),
			"cost":      u64(cost),
			"remaining": u64(remaining),
		},
	}
}

// RefilledEvent records a paid refill.
func RefilledEvent(player [20]byte, refilled uint64, cost string) *types.Event {
	return &types.Event{
		Type: EventTypeRefilled,
		Attributes: map[string]string{
			"player":   crypto.FormatAddress(player),
			"refilled": u64(refilled),
			"cost":     cost,
		},
	}
}

// GiftedEvent records a gift between players.
func GiftedEvent(from, to [20]byte, amount uint64) *types.Event {
	return &types.Event{
		Type: EventTypeGifted,
		Attributes: map[string]string{
			"from":   crypto.FormatAddress(from),
			"to":     crypto.FormatAddress(to),
			"amount": u64(amount),
		},
	}
}

// BoostAppliedEvent records a started boost.
func BoostAppliedEvent(player [20]byte, boost BoostType, duration, expiresAt uint64) *types.Event {
	return &types.Event{
		Type: EventTypeBoostApplied,
		Attributes: map[string]string{
			"player":    crypto.FormatAddress(player),
			"boost":     boost.String(),
			"duration":  u64(duration),
			"expiresAt": u64(expiresAt),
		},
	}
}

// ConfigUpdatedEvent records an admin change.
func ConfigUpdatedEvent(field string, paused bool) *types.Event {
	return &types.Event{
		Type: EventTypeConfigUpdated,
		Attributes: map[string]string{
			"field":  field,
			"paused": strconv.FormatBool(paused),
		},
	}
}
