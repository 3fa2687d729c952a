package token

import "math/big"

const (
	DefaultName     = "Reward Token"
	DefaultSymbol   = "RWD"
	DefaultDecimals = 6
)

// Metadata describes a fungible token instance.
type Metadata struct {
	Admin    [20]byte
	Name     string
	Symbol   string
	Decimals uint8
}

// Clone returns a copy of the metadata.
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return nil
	}
	clone := *m
	return &clone
}

// Balance is a holder's balance as reported by the query API.
type Balance struct {
	Holder [20]byte
	Amount *big.Int
}
