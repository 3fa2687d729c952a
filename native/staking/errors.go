package staking

import (
	"fmt"

	"questchain/native/common"
)

var (
	ErrAlreadyInitialized = fmt.Errorf("staking: %w", common.ErrAlreadyInitialized)
	ErrNotInitialized     = fmt.Errorf("staking: %w", common.ErrNotInitialized)
	ErrUnauthorized       = fmt.Errorf("staking: %w", common.ErrUnauthorized)
	ErrPaused             = fmt.Errorf("staking: %w", common.ErrContractPaused)
	ErrInvalidAmount      = fmt.Errorf("staking: amount must be positive: %w", common.ErrInvalidAmount)
	ErrNotStaked          = fmt.Errorf("staking: staker not found: %w", common.ErrNotFound)
	ErrInsufficientStake  = fmt.Errorf("staking: insufficient staked balance: %w", common.ErrInsufficientBalance)
	ErrNoRewards          = fmt.Errorf("staking: no rewards to claim: %w", common.ErrInvalidAmount)
	ErrPoolEmpty          = fmt.Errorf("staking: reward pool exhausted: %w", common.ErrInsufficientPool)
	ErrNothingStaked      = fmt.Errorf("staking: nothing to withdraw: %w", common.ErrInvalidAmount)
	ErrInvalidThresholds  = fmt.Errorf("staking: tier thresholds must be positive and ascending: %w", common.ErrInvalidInput)
	ErrInvalidPenalty     = fmt.Errorf("staking: penalty exceeds 10000 bps: %w", common.ErrInvalidInput)
	ErrBankNotConfigured  = fmt.Errorf("staking: token bank not configured: %w", common.ErrInvalidState)
)
