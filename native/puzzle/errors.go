package puzzle

import (
	"fmt"

	"questchain/native/common"
)

var (
	ErrAlreadyInitialized = fmt.Errorf("puzzle: %w", common.ErrAlreadyInitialized)
	ErrNotInitialized     = fmt.Errorf("puzzle: %w", common.ErrNotInitialized)
	ErrUnauthorized       = fmt.Errorf("puzzle: %w", common.ErrUnauthorized)
	ErrPuzzleNotFound     = fmt.Errorf("puzzle: puzzle not found: %w", common.ErrNotFound)
	ErrAlreadyCompleted   = fmt.Errorf("puzzle: %w", common.ErrAlreadyCompleted)
	ErrEmptyHash          = fmt.Errorf("puzzle: solution hash must be non-zero: %w", common.ErrInvalidInput)
)
