package token

import (
	"math/big"
	"sort"

	"questchain/native/common"
)

// Registry resolves token contract addresses to their engines so other
// contracts can move custody without touching token storage directly.
type Registry struct {
	tokens map[[20]byte]*Engine
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tokens: make(map[[20]byte]*Engine)}
}

// Register adds engine under its contract address.
func (r *Registry) Register(engine *Engine) error {
	if engine == nil {
		return ErrUnknownToken
	}
	if _, exists := r.tokens[engine.Address()]; exists {
		return ErrTokenRegistered
	}
	r.tokens[engine.Address()] = engine
	return nil
}

// Token returns the engine registered at addr.
func (r *Registry) Token(addr [20]byte) (*Engine, error) {
	engine, ok := r.tokens[addr]
	if !ok {
		return nil, ErrUnknownToken
	}
	return engine, nil
}

// Addresses lists the registered token addresses in byte order.
func (r *Registry) Addresses() [][20]byte {
	out := make([][20]byte, 0, len(r.tokens))
	for addr := range r.tokens {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool {
		for k := 0; k < 20; k++ {
			if out[i][k] != out[j][k] {
				return out[i][k] < out[j][k]
			}
		}
		return false
	})
	return out
}

// Bank returns the token capability handed to the contract at contract.
func (r *Registry) Bank(contract [20]byte) *Bank {
	return &Bank{registry: r, contract: contract}
}

// Bank is the token capability of a single calling contract. Transfers out of
// the contract's own address are authorized by the contract itself; any other
// source must have signed the invocation.
type Bank struct {
	registry *Registry
	contract [20]byte
}

// Contract returns the address of the contract holding this capability.
func (b *Bank) Contract() [20]byte { return b.contract }

// Balance returns holder's balance of token.
func (b *Bank) Balance(token, holder [20]byte) (*big.Int, error) {
	engine, err := b.registry.Token(token)
	if err != nil {
		return nil, err
	}
	return engine.BalanceOf(holder)
}

// Transfer moves amount of token from from to to.
func (b *Bank) Transfer(token, from, to [20]byte, amount *big.Int) error {
	engine, err := b.registry.Token(token)
	if err != nil {
		return err
	}
	if from != b.contract {
		if err := common.RequireAuth(engine.auth, from); err != nil {
			return ErrUnauthorized
		}
	}
	return engine.move(from, to, amount)
}
