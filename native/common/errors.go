package common

import "errors"

// Failure kinds shared by every contract. Module errors wrap one of these so
// callers can classify a failure with errors.Is without knowing the module.
var (
	ErrAlreadyInitialized = errors.New("already initialized")
	ErrNotInitialized     = errors.New("not initialized")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrContractPaused     = errors.New("contract paused")

	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidTime      = errors.New("invalid time")
	ErrInvalidChainID   = errors.New("invalid chain id")
	ErrInvalidRecipient = errors.New("invalid recipient")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidState     = errors.New("invalid state")

	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrInsufficientEnergy     = errors.New("insufficient energy")
	ErrInsufficientSignatures = errors.New("insufficient signatures")
	ErrInsufficientPool       = errors.New("insufficient pool")

	ErrAlreadyProcessed  = errors.New("already processed")
	ErrAlreadyCompleted  = errors.New("already completed")
	ErrDuplicateReplay   = errors.New("duplicate replay")
	ErrAlreadyRegistered = errors.New("already registered")

	ErrNotFound      = errors.New("not found")
	ErrLimitExceeded = errors.New("limit exceeded")
)

// Kind returns the shared failure kind wrapped by err, or nil when err does
// not belong to the taxonomy.
func Kind(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

var kinds = []error{
	ErrAlreadyInitialized, ErrNotInitialized, ErrUnauthorized, ErrContractPaused,
	ErrInvalidAmount, ErrInvalidTime, ErrInvalidChainID, ErrInvalidRecipient,
	ErrInvalidInput, ErrInvalidState,
	ErrInsufficientBalance, ErrInsufficientEnergy, ErrInsufficientSignatures, ErrInsufficientPool,
	ErrAlreadyProcessed, ErrAlreadyCompleted, ErrDuplicateReplay, ErrAlreadyRegistered,
	ErrNotFound, ErrLimitExceeded,
}
