package common

import (
	"encoding/hex"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// ContractAddress derives the ledger address of a named native contract.
func ContractAddress(name string) [20]byte {
	var addr [20]byte
	copy(addr[:], ethcrypto.Keccak256([]byte("contract/" + name))[12:])
	return addr
}

// AddrHex renders addr as lowercase hex for storage keys.
func AddrHex(addr [20]byte) string {
	return hex.EncodeToString(addr[:])
}
