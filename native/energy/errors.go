package energy

import (
	"fmt"

	"questchain/native/common"
)

var (
	ErrAlreadyInitialized = fmt.Errorf("energy: %w", common.ErrAlreadyInitialized)
	ErrNotInitialized     = fmt.Errorf("energy: %w", common.ErrNotInitialized)
	ErrUnauthorized       = fmt.Errorf("energy: %w", common.ErrUnauthorized)
	ErrPaused             = fmt.Errorf("energy: %w", common.ErrContractPaused)
	ErrInvalidAmount      = fmt.Errorf("energy: %w", common.ErrInvalidAmount)
	ErrSelfGift           = fmt.Errorf("energy: cannot gift to self: %w", common.ErrInvalidAmount)
	ErrInsufficientEnergy = fmt.Errorf("energy: %w", common.ErrInsufficientEnergy)
	ErrInsufficientTokens = fmt.Errorf("energy: insufficient token balance for refill: %w", common.ErrInsufficientBalance)
	ErrMaxEnergyExceeded  = fmt.Errorf("energy: receiver would exceed max energy: %w", common.ErrLimitExceeded)
	ErrGiftLimitExceeded  = fmt.Errorf("energy: daily gift limit exceeded: %w", common.ErrLimitExceeded)
	ErrInvalidBoostType   = fmt.Errorf("energy: invalid boost type: %w", common.ErrInvalidInput)
	ErrBoostAlreadyActive = fmt.Errorf("energy: boost already active: %w", common.ErrInvalidState)
	ErrInvalidDuration    = fmt.Errorf("energy: boost duration must be positive: %w", common.ErrInvalidTime)
	ErrBankNotConfigured  = fmt.Errorf("energy: token bank not configured: %w", common.ErrInvalidState)
)
