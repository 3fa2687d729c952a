package crypto

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	gethcommon "github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// AddressHRP is the bech32 human-readable part of every questchain address.
const AddressHRP = "qst"

var (
	ErrAddressLength = errors.New("crypto: address must be 20 bytes")
	ErrAddressHRP    = errors.New("crypto: unexpected address prefix")
	ErrDigestLength  = errors.New("crypto: digest must be 32 bytes")
)

// Address is a raw account address. It prints in its qst1... form.
type Address [20]byte

// AddressFromBytes copies b into an Address.
func AddressFromBytes(b []byte) (Address, error) {
	var out Address
	if len(b) != len(out) {
		return out, ErrAddressLength
	}
	copy(out[:], b)
	return out, nil
}

// Array returns the address as a plain byte array.
func (a Address) Array() [20]byte { return [20]byte(a) }

func (a Address) String() string {
	s, err := encodeBech32(AddressHRP, a[:])
	if err != nil {
		// ConvertBits only fails on bad input widths, which a fixed array rules out.
		panic(err)
	}
	return s
}

func encodeBech32(hrp string, raw []byte) (string, error) {
	words, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(hrp, words)
}

func decodeBech32(s string) (string, []byte, error) {
	hrp, words, err := bech32.Decode(s)
	if err != nil {
		return "", nil, fmt.Errorf("crypto: bech32 decode: %w", err)
	}
	raw, err := bech32.ConvertBits(words, 5, 8, false)
	if err != nil {
		return "", nil, fmt.Errorf("crypto: bech32 payload: %w", err)
	}
	return hrp, raw, nil
}

// FormatAddress renders a raw address in its qst1... form.
func FormatAddress(addr [20]byte) string { return Address(addr).String() }

// ParseAddress accepts either a qst1... bech32 string or a 0x-prefixed hex
// address.
func ParseAddress(value string) ([20]byte, error) {
	value = strings.TrimSpace(value)
	if gethcommon.IsHexAddress(value) {
		return gethcommon.HexToAddress(value), nil
	}
	hrp, raw, err := decodeBech32(value)
	if err != nil {
		return [20]byte{}, err
	}
	if hrp != AddressHRP {
		return [20]byte{}, fmt.Errorf("%w %q", ErrAddressHRP, hrp)
	}
	addr, err := AddressFromBytes(raw)
	return [20]byte(addr), err
}

// PrivateKey is a secp256k1 signing key.
type PrivateKey struct {
	ecdsa *ecdsa.PrivateKey
}

// GeneratePrivateKey returns a fresh random key.
func GeneratePrivateKey() (*PrivateKey, error) {
	k, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("crypto: generate key: %w", err)
	}
	return &PrivateKey{ecdsa: k}, nil
}

// Bytes returns the 32-byte scalar.
func (k *PrivateKey) Bytes() []byte { return ethcrypto.FromECDSA(k.ecdsa) }

// Address derives the account address controlled by k.
func (k *PrivateKey) Address() Address {
	return Address(ethcrypto.PubkeyToAddress(k.ecdsa.PublicKey))
}

// Sign produces a 65-byte recoverable signature over a 32-byte digest.
func (k *PrivateKey) Sign(digest []byte) ([]byte, error) {
	if len(digest) != 32 {
		return nil, ErrDigestLength
	}
	return ethcrypto.Sign(digest, k.ecdsa)
}

// RecoverAddress returns the address whose key produced sig over digest.
func RecoverAddress(digest, sig []byte) ([20]byte, error) {
	if len(digest) != 32 {
		return [20]byte{}, ErrDigestLength
	}
	if len(sig) != ethcrypto.SignatureLength {
		return [20]byte{}, fmt.Errorf("crypto: signature must be %d bytes", ethcrypto.SignatureLength)
	}
	pub, err := ethcrypto.SigToPub(digest, sig)
	if err != nil {
		return [20]byte{}, fmt.Errorf("crypto: recover: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}
