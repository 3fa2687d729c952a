package bridge

import (
	"fmt"

	"questchain/native/common"
)

var (
	ErrAlreadyInitialized  = fmt.Errorf("bridge: %w", common.ErrAlreadyInitialized)
	ErrNotInitialized      = fmt.Errorf("bridge: %w", common.ErrNotInitialized)
	ErrUnauthorized        = fmt.Errorf("bridge: %w", common.ErrUnauthorized)
	ErrNotValidator        = fmt.Errorf("bridge: caller is not a validator: %w", common.ErrUnauthorized)
	ErrPaused              = fmt.Errorf("bridge: %w", common.ErrContractPaused)
	ErrInvalidAmount       = fmt.Errorf("bridge: asset amount must be positive: %w", common.ErrInvalidAmount)
	ErrInvalidChainID      = fmt.Errorf("bridge: %w", common.ErrInvalidChainID)
	ErrInvalidRecipient    = fmt.Errorf("bridge: %w", common.ErrInvalidRecipient)
	ErrInvalidSignatureCfg = fmt.Errorf("bridge: required signatures out of range: %w", common.ErrInvalidInput)
	ErrInvalidFeeConfig    = fmt.Errorf("bridge: invalid fee configuration: %w", common.ErrInvalidInput)
	ErrInvalidMessage      = fmt.Errorf("bridge: invalid message: %w", common.ErrInvalidInput)
	ErrInvalidAssetType    = fmt.Errorf("bridge: unknown asset type: %w", common.ErrInvalidInput)
	ErrInsufficientBalance = fmt.Errorf("bridge: %w", common.ErrInsufficientBalance)
	ErrInsufficientSigs    = fmt.Errorf("bridge: %w", common.ErrInsufficientSignatures)
	ErrInvalidSignature    = fmt.Errorf("bridge: not enough valid validator signatures: %w", common.ErrInsufficientSignatures)
	ErrFeeTooHigh          = fmt.Errorf("bridge: fee above maximum: %w", common.ErrLimitExceeded)
	ErrFeeTooLow           = fmt.Errorf("bridge: fee below minimum: %w", common.ErrInvalidAmount)
	ErrAlreadyProcessed    = fmt.Errorf("bridge: message already processed: %w", common.ErrAlreadyProcessed)
	ErrAssetNotLocked      = fmt.Errorf("bridge: asset not locked: %w", common.ErrNotFound)
	ErrMessageNotFound     = fmt.Errorf("bridge: message not found: %w", common.ErrNotFound)
	ErrNFTNotWrapped       = fmt.Errorf("bridge: nft not wrapped: %w", common.ErrNotFound)
	ErrValidatorExists     = fmt.Errorf("bridge: validator already registered: %w", common.ErrAlreadyRegistered)
	ErrValidatorNotFound   = fmt.Errorf("bridge: validator not found: %w", common.ErrNotFound)
	ErrTooManyValidators   = fmt.Errorf("bridge: validator set full: %w", common.ErrLimitExceeded)
	ErrBankNotConfigured   = fmt.Errorf("bridge: token bank not configured: %w", common.ErrInvalidState)
)
