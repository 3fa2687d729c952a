package token

import (
	"fmt"

	"questchain/native/common"
)

var (
	ErrAlreadyInitialized  = fmt.Errorf("token: %w", common.ErrAlreadyInitialized)
	ErrNotInitialized      = fmt.Errorf("token: %w", common.ErrNotInitialized)
	ErrUnauthorized        = fmt.Errorf("token: %w", common.ErrUnauthorized)
	ErrInvalidAmount       = fmt.Errorf("token: amount must be positive: %w", common.ErrInvalidAmount)
	ErrNegativeAllowance   = fmt.Errorf("token: allowance cannot be negative: %w", common.ErrInvalidAmount)
	ErrInsufficientBalance = fmt.Errorf("token: %w", common.ErrInsufficientBalance)
	ErrInsufficientAllow   = fmt.Errorf("token: insufficient allowance: %w", common.ErrInsufficientBalance)
	ErrLengthMismatch      = fmt.Errorf("token: recipients and amounts length mismatch: %w", common.ErrInvalidInput)
	ErrUnknownToken        = fmt.Errorf("token: unknown token: %w", common.ErrNotFound)
	ErrTokenRegistered     = fmt.Errorf("token: token already registered: %w", common.ErrAlreadyRegistered)
)
