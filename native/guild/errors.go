package guild

import (
	"fmt"

	"questchain/native/common"
)

var (
	ErrAlreadyInitialized = fmt.Errorf("guild: %w", common.ErrAlreadyInitialized)
	ErrNotInitialized     = fmt.Errorf("guild: %w", common.ErrNotInitialized)
	ErrUnauthorized       = fmt.Errorf("guild: %w", common.ErrUnauthorized)
	ErrLeaderOnly         = fmt.Errorf("guild: leader only: %w", common.ErrUnauthorized)
	ErrOfficerOnly        = fmt.Errorf("guild: officer or leader only: %w", common.ErrUnauthorized)
	ErrNotMember          = fmt.Errorf("guild: not a member: %w", common.ErrUnauthorized)
	ErrDisbanded          = fmt.Errorf("guild: disbanded: %w", common.ErrInvalidState)
	ErrAlreadyMember      = fmt.Errorf("guild: already a member: %w", common.ErrAlreadyRegistered)
	ErrInvalidAmount      = fmt.Errorf("guild: amount must be positive: %w", common.ErrInvalidAmount)
	ErrInvalidRole        = fmt.Errorf("guild: invalid role: %w", common.ErrInvalidInput)
	ErrSelfRoleChange     = fmt.Errorf("guild: leader cannot change own role: %w", common.ErrInvalidInput)
	ErrInvalidSymbol      = fmt.Errorf("guild: symbol must be non-empty: %w", common.ErrInvalidInput)
	ErrInsufficientFunds  = fmt.Errorf("guild: treasury too small: %w", common.ErrInsufficientBalance)
	ErrProposalNotFound   = fmt.Errorf("guild: proposal not found: %w", common.ErrNotFound)
	ErrVotingClosed       = fmt.Errorf("guild: voting closed: %w", common.ErrInvalidTime)
	ErrVotingOpen         = fmt.Errorf("guild: voting still open: %w", common.ErrInvalidTime)
	ErrInvalidDeadline    = fmt.Errorf("guild: deadline must be in the future: %w", common.ErrInvalidTime)
	ErrAlreadyVoted       = fmt.Errorf("guild: already voted: %w", common.ErrAlreadyProcessed)
	ErrAlreadyExecuted    = fmt.Errorf("guild: proposal already executed: %w", common.ErrAlreadyProcessed)
	ErrBankNotConfigured  = fmt.Errorf("guild: token bank not configured: %w", common.ErrInvalidState)
)
