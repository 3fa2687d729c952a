package leaderboard

import (
	"fmt"

	"questchain/native/common"
)

var (
	ErrAlreadyInitialized = fmt.Errorf("leaderboard: %w", common.ErrAlreadyInitialized)
	ErrNotInitialized     = fmt.Errorf("leaderboard: %w", common.ErrNotInitialized)
	ErrUnauthorized       = fmt.Errorf("leaderboard: %w", common.ErrUnauthorized)
	ErrNotVerifier        = fmt.Errorf("leaderboard: submitter is not a verifier: %w", common.ErrUnauthorized)
	ErrPaused             = fmt.Errorf("leaderboard: %w", common.ErrContractPaused)
	ErrInvalidPeriod      = fmt.Errorf("leaderboard: unknown period: %w", common.ErrInvalidInput)
	ErrInvalidPeriodLen   = fmt.Errorf("leaderboard: period length must be positive: %w", common.ErrInvalidTime)
	ErrInvalidMaxEntries  = fmt.Errorf("leaderboard: max entries must be positive: %w", common.ErrInvalidInput)
)
