package timeattack

import (
	"encoding/hex"
	"strconv"

	"questchain/core/types"
	"questchain/crypto"
	"questchain/native/common"
)

const (
	// EventTypeSubmitted is emitted for every accepted completion.
	EventTypeSubmitted = "timeattack.submitted"
	// EventTypeNewBest is emitted when a scope's record improves.
	EventTypeNewBest = "timeattack.new_best"
	// EventTypeBoardReset is emitted when a periodic board is cleared.
	EventTypeBoardReset = "timeattack.board_reset"
)

// SubmittedEvent records an accepted completion.
func SubmittedEvent(puzzleID uint32, rec Record) *types.Event {
	return &types.Event{
		Type: EventTypeSubmitted,
		Attributes: map[string]string{
			"player":     crypto.FormatAddress(rec.Player),
			"puzzle":     strconv.FormatUint(uint64(puzzleID), 10),
			"timeMs":     strconv.FormatUint(rec.CompletionMs, 10),
			"timestamp":  strconv.FormatUint(rec.Timestamp, 10),
			"replayHash": hex.EncodeToString(rec.ReplayHash[:]),
		},
	}
}

// NewBestEvent records an improved best time.
func NewBestEvent(puzzleID uint32, period common.Period, rec Record) *types.Event {
	return &types.Event{
		Type: EventTypeNewBest,
		Attributes: map[string]string{
			"player": crypto.FormatAddress(rec.Player),
			"puzzle": strconv.FormatUint(uint64(puzzleID), 10),
			"period": period.String(),
			"timeMs": strconv.FormatUint(rec.CompletionMs, 10),
		},
	}
}

// BoardResetEvent records a periodic board reset.
func BoardResetEvent(puzzleID uint32, period common.Period, ts uint64) *types.Event {
	return &types.Event{
		Type: EventTypeBoardReset,
		Attributes: map[string]string{
			"puzzle":    strconv.FormatUint(uint64(puzzleID), 10),
			"period":    period.String(),
			"timestamp": strconv.FormatUint(ts, 10),
		},
	}
}
