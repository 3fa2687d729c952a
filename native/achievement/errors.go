package achievement

import (
	"fmt"

	"questchain/native/common"
)

var (
	ErrAlreadyInitialized = fmt.Errorf("achievement: %w", common.ErrAlreadyInitialized)
	ErrNotInitialized     = fmt.Errorf("achievement: %w", common.ErrNotInitialized)
	ErrUnauthorized       = fmt.Errorf("achievement: %w", common.ErrUnauthorized)
	ErrPuzzleNotCompleted = fmt.Errorf("achievement: puzzle not completed: %w", common.ErrInvalidState)
	ErrTokenNotFound      = fmt.Errorf("achievement: token not found: %w", common.ErrNotFound)
	ErrNotOwner           = fmt.Errorf("achievement: caller does not own token: %w", common.ErrUnauthorized)
	ErrInvalidRecipient   = fmt.Errorf("achievement: %w", common.ErrInvalidRecipient)
	ErrMetadataTooLong    = fmt.Errorf("achievement: metadata exceeds %d bytes: %w", MaxMetadataLength, common.ErrInvalidInput)
)
