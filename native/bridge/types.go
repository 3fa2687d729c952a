package bridge

import (
	"math/big"

	"questchain/native/common"
)

// Bridge limits and defaults.
const (
	MaxValidators         uint32 = 50
	MaxChainID            uint32 = 1000
	MaxRecipientLength           = 1024
	DefaultBaseFeeBps     uint64 = 30
	defaultMinFeeUnits           = 1_000_000
	defaultMaxFeeUnits           = 1_000_000_000_000
	InitialValidatorEpoch uint32 = 1
)

// AssetType distinguishes fungible from non-fungible transfers.
type AssetType uint8

const (
	AssetToken AssetType = iota
	AssetNFT
)

func (a AssetType) String() string {
	switch a {
	case AssetToken:
		return "token"
	case AssetNFT:
		return "nft"
	default:
		return "unknown"
	}
}

// Action is the direction of a bridge message.
type Action uint8

const (
	ActionLock Action = iota
	ActionUnlock
)

func (a Action) String() string {
	if a == ActionUnlock {
		return "unlock"
	}
	return "lock"
}

// Status tracks a message through its lifecycle. Confirmed and Failed are
// reserved for a validator confirmation round that no entry point drives yet.
type Status uint8

const (
	StatusPending Status = iota
	StatusConfirmed
	StatusCompleted
	StatusFailed
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusConfirmed:
		return "confirmed"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusFailed
}

// Config holds the bridge parameters.
type Config struct {
	Admin              [20]byte
	RequiredSignatures uint32
	MaxValidators      uint32
	BaseFeeBps         uint64
	FeeCollector       [20]byte
	MinFee             *big.Int
	MaxFee             *big.Int
	Paused             bool
	ChainID            uint32
}

// IsPaused implements common.PauseView.
func (c *Config) IsPaused() bool { return c != nil && c.Paused }

func (c *Config) normalize() {
	if c.MinFee == nil {
		c.MinFee = big.NewInt(0)
	}
	if c.MaxFee == nil {
		c.MaxFee = big.NewInt(0)
	}
}

// QuoteFee returns amount*BaseFeeBps/10000 clamped to [MinFee, MaxFee]. The
// bounds are hard limits: an inverted range rejects every quote.
func (c *Config) QuoteFee(amount *big.Int) (*big.Int, error) {
	fee := common.Clamp(common.MulBps(amount, c.BaseFeeBps), c.MinFee, c.MaxFee)
	if fee.Cmp(c.MaxFee) > 0 {
		return nil, ErrFeeTooHigh
	}
	if fee.Cmp(c.MinFee) < 0 {
		return nil, ErrFeeTooLow
	}
	return fee, nil
}

// LockedAsset is custody held for a pending outbound message.
type LockedAsset struct {
	Owner     [20]byte
	Asset     [20]byte
	AssetType AssetType
	Amount    *big.Int
	LockedAt  uint64
	MessageID [32]byte
	DestChain uint32
	Recipient []byte
}

// ValidatorSignature is a recoverable secp256k1 signature over a message's
// signing hash, claimed by Validator.
type ValidatorSignature struct {
	Validator [20]byte
	Signature []byte
}

// WrappedNFT records an NFT represented on another chain.
type WrappedNFT struct {
	WrappedID        [32]byte
	OriginalTokenID  uint64
	OriginalChain    uint32
	OriginalContract [20]byte
	DestChain        uint32
	Recipient        []byte
	Owner            [20]byte
	WrappedAt        uint64
}
