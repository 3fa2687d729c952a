package common

// Authorizer answers whether the current invocation carries authorization from
// addr. The host implements it from the transaction's signer set.
type Authorizer interface {
	RequireAuth(addr [20]byte) error
}

// PauseView exposes a contract's emergency pause flag.
type PauseView interface {
	IsPaused() bool
}

// Guard fails with ErrContractPaused when the contract is paused.
func Guard(p PauseView) error {
	if p == nil {
		return nil
	}
	if p.IsPaused() {
		return ErrContractPaused
	}
	return nil
}

// RequireAuth consults auth for addr. A missing authorizer denies everything.
func RequireAuth(auth Authorizer, addr [20]byte) error {
	if auth == nil {
		return ErrUnauthorized
	}
	return auth.RequireAuth(addr)
}

// RequireAdmin checks that caller authorized the call and is the admin.
func RequireAdmin(auth Authorizer, admin, caller [20]byte) error {
	if err := RequireAuth(auth, caller); err != nil {
		return err
	}
	if admin != caller {
		return ErrUnauthorized
	}
	return nil
}

// Signers is the set of addresses that signed an invocation.
type Signers map[[20]byte]struct{}

// NewSigners builds a signer set from addrs.
func NewSigners(addrs ...[20]byte) Signers {
	set := make(Signers, len(addrs))
	for _, addr := range addrs {
		set[addr] = struct{}{}
	}
	return set
}

// RequireAuth implements Authorizer.
func (s Signers) RequireAuth(addr [20]byte) error {
	if _, ok := s[addr]; !ok {
		return ErrUnauthorized
	}
	return nil
}

// Has reports whether addr signed.
func (s Signers) Has(addr [20]byte) bool {
	_, ok := s[addr]
	return ok
}

// IsZeroAddress reports whether addr is all zero bytes.
func IsZeroAddress(addr [20]byte) bool {
	return addr == [20]byte{}
}
