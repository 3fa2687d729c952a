package timeattack

import (
	"fmt"

	"questchain/native/common"
)

var (
	ErrAlreadyInitialized = fmt.Errorf("timeattack: %w", common.ErrAlreadyInitialized)
	ErrNotInitialized     = fmt.Errorf("timeattack: %w", common.ErrNotInitialized)
	ErrUnauthorized       = fmt.Errorf("timeattack: %w", common.ErrUnauthorized)
	ErrInvalidTime        = fmt.Errorf("timeattack: completion time out of range: %w", common.ErrInvalidTime)
	ErrInvalidPeriod      = fmt.Errorf("timeattack: unknown period: %w", common.ErrInvalidInput)
	ErrTooFrequent        = fmt.Errorf("timeattack: submissions too frequent: %w", common.ErrLimitExceeded)
	ErrDuplicateReplay    = fmt.Errorf("timeattack: replay hash already used: %w", common.ErrDuplicateReplay)
)
