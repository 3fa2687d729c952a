package tournament

import (
	"fmt"

	"questchain/native/common"
)

var (
	ErrAlreadyInitialized = fmt.Errorf("tournament: %w", common.ErrAlreadyInitialized)
	ErrNotInitialized     = fmt.Errorf("tournament: %w", common.ErrNotInitialized)
	ErrUnauthorized       = fmt.Errorf("tournament: %w", common.ErrUnauthorized)
	ErrInvalidEntryFee    = fmt.Errorf("tournament: entry fee must not be negative: %w", common.ErrInvalidAmount)
	ErrNotOpen            = fmt.Errorf("tournament: registration closed: %w", common.ErrInvalidState)
	ErrNotStarted         = fmt.Errorf("tournament: not in progress: %w", common.ErrInvalidState)
	ErrAlreadyFinal       = fmt.Errorf("tournament: already ended or cancelled: %w", common.ErrInvalidState)
	ErrNotCancelled       = fmt.Errorf("tournament: not cancelled: %w", common.ErrInvalidState)
	ErrAlreadyRegistered  = fmt.Errorf("tournament: %w", common.ErrAlreadyRegistered)
	ErrNotParticipant     = fmt.Errorf("tournament: not a participant: %w", common.ErrNotFound)
	ErrTooFewParticipants = fmt.Errorf("tournament: at least %d participants required: %w", MinParticipants, common.ErrInvalidState)
	ErrBankNotConfigured  = fmt.Errorf("tournament: token bank not configured: %w", common.ErrInvalidState)
)
