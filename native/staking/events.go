package staking

import (
	"math/big"
	"strconv"

	"questchain/core/types"
	"questchain/crypto"
)

const (
	// EventTypeStaked is emitted when a staker adds to their position.
	EventTypeStaked = "staking.position.staked"
	// EventTypeUnstaked is emitted when a staker withdraws part of their position.
	EventTypeUnstaked = "staking.position.unstaked"
	// EventTypeEmergencyWithdraw is emitted when a staker exits through the emergency path.
	EventTypeEmergencyWithdraw = "staking.position.emergency_withdrawn"
	// EventTypeRewardsClaimed is emitted when accrued rewards are paid out.
	EventTypeRewardsClaimed = "staking.rewards.claimed"
	// EventTypeRewardsAdded is emitted when the admin funds the reward pool.
	EventTypeRewardsAdded = "staking.rewards.added"
	// EventTypeConfigUpdated is emitted when an admin setter changes parameters.
	EventTypeConfigUpdated = "staking.config.updated"
)

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// StakedEvent describes a stake addition and the resulting tier.
func StakedEvent(staker [20]byte, amount, total *big.Int, tier Tier) *types.Event {
	return &types.Event{
		Type: EventTypeStaked,
		Attributes: map[string]string{
			"staker": crypto.FormatAddress(staker),
			"amount": amountString(amount),
			"total":  amountString(total),
			"tier":   tier.String(),
		},
	}
}

// UnstakedEvent describes a withdrawal and any early-exit penalty.
func UnstakedEvent(staker [20]byte, amount, penalty *big.Int, tier Tier) *types.Event {
	return &types.Event{
		Type: EventTypeUnstaked,
		Attributes: map[string]string{
			"staker":  crypto.FormatAddress(staker),
			"amount":  amountString(amount),
			"penalty": amountString(penalty),
			"tier":    tier.String(),
		},
	}
}

// EmergencyWithdrawEvent describes a full emergency exit.
func EmergencyWithdrawEvent(staker [20]byte, returned, penalty *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeEmergencyWithdraw,
		Attributes: map[string]string{
			"staker":   crypto.FormatAddress(staker),
			"returned": amountString(returned),
			"penalty":  amountString(penalty),
		},
	}
}

// RewardsClaimedEvent describes a reward payout.
func RewardsClaimedEvent(staker [20]byte, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeRewardsClaimed,
		Attributes: map[string]string{
			"staker": crypto.FormatAddress(staker),
			"amount": amountString(amount),
		},
	}
}

// RewardsAddedEvent describes a reward pool top-up.
func RewardsAddedEvent(amount, pool *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeRewardsAdded,
		Attributes: map[string]string{
			"amount": amountString(amount),
			"pool":   amountString(pool),
		},
	}
}

// ConfigUpdatedEvent records which parameter group changed.
func ConfigUpdatedEvent(field string, paused bool) *types.Event {
	return &types.Event{
		Type: EventTypeConfigUpdated,
		Attributes: map[string]string{
			"field":  field,
			"paused": strconv.FormatBool(paused),
		},
	}
}
