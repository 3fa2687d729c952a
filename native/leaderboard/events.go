package leaderboard

import (
	"strconv"

	"questchain/core/types"
	"questchain/crypto"
	"questchain/native/common"
)

const (
	// EventTypeScoreSubmitted is emitted for every accepted submission.
	EventTypeScoreSubmitted = "leaderboard.score_submitted"
	// EventTypeHighScore is emitted when a period's record score rises.
	EventTypeHighScore = "leaderboard.high_score"
	// EventTypeRankChanged is emitted when a player's top-list rank moves.
	EventTypeRankChanged = "leaderboard.rank_changed"
	// EventTypeVerifierUpdated is emitted when the verifier set changes.
	EventTypeVerifierUpdated = "leaderboard.verifier.updated"
	// EventTypeConfigUpdated is emitted when an admin setter changes parameters.
	EventTypeConfigUpdated = "leaderboard.config.updated"
)

// ScoreSubmittedEvent records a submission.
func ScoreSubmittedEvent(player [20]byte, score, ts uint64) *types.Event {
	return &types.Event{
		Type: EventTypeScoreSubmitted,
		Attributes: map[string]string{
			"player":    crypto.FormatAddress(player),
			"score":     strconv.FormatUint(score, 10),
			"timestamp": strconv.FormatUint(ts, 10),
		},
	}
}

// HighScoreEvent records a new period high score.
func HighScoreEvent(period common.Period, player [20]byte, score uint64) *types.Event {
	return &types.Event{
		Type: EventTypeHighScore,
		Attributes: map[string]string{
			"period": period.String(),
			"player": crypto.FormatAddress(player),
			"score":  strconv.FormatUint(score, 10),
		},
	}
}

// RankChangedEvent records a rank move. An old rank of 0 means the player
// was not listed before.
func RankChangedEvent(period common.Period, player [20]byte, oldRank, newRank int) *types.Event {
	return &types.Event{
		Type: EventTypeRankChanged,
		Attributes: map[string]string{
			"period":  period.String(),
			"player":  crypto.FormatAddress(player),
			"oldRank": strconv.Itoa(oldRank),
			"newRank": strconv.Itoa(newRank),
		},
	}
}

// VerifierUpdatedEvent records a verifier grant or removal.
func VerifierUpdatedEvent(verifier [20]byte, active bool) *types.Event {
	return &types.Event{
		Type: EventTypeVerifierUpdated,
		Attributes: map[string]string{
			"verifier": crypto.FormatAddress(verifier),
			"active":   strconv.FormatBool(active),
		},
	}
}

// ConfigUpdatedEvent records an admin change.
func ConfigUpdatedEvent(field string) *types.Event {
	return &types.Event{
		Type:       EventTypeConfigUpdated,
		Attributes: map[string]string{"field": field},
	}
}
