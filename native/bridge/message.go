package bridge

import (
	"crypto/sha256"
	"encoding/binary"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Message is a cross-chain transfer intent.
type Message struct {
	ID          [32]byte
	SourceChain uint32
	DestChain   uint32
	Action      Action
	AssetType   AssetType
	Asset       [20]byte
	Amount      *big.Int
	Sender      [20]byte
	Recipient   []byte
	Fee         *big.Int
	Timestamp   uint64
	Nonce       uint64
}

type encoder struct{ buf []byte }

func (e *encoder) u32(v uint32) { e.buf = binary.BigEndian.AppendUint32(e.buf, v) }
func (e *encoder) u64(v uint64) { e.buf = binary.BigEndian.AppendUint64(e.buf, v) }
func (e *encoder) word(b []byte) {
	e.buf = append(e.buf, ethcommon.LeftPadBytes(b, 32)...)
}
func (e *encoder) amount(v *big.Int) {
	if v == nil {
		v = new(big.Int)
	}
	e.word(v.Bytes())
}

// SigningBytes is the canonical encoding validators sign. Fixed-width fields
// are big-endian; addresses and amounts are left-padded 32-byte words and the
// recipient is length-prefixed.
func (m *Message) SigningBytes() []byte {
	enc := &encoder{buf: make([]byte, 0, 32*5+4*5+16+len(m.Recipient))}
	enc.buf = append(enc.buf, m.ID[:]...)
	enc.u32(m.SourceChain)
	enc.u32(m.DestChain)
	enc.u32(uint32(m.Action))
	enc.u32(uint32(m.AssetType))
	enc.word(m.Asset[:])
	enc.amount(m.Amount)
	enc.word(m.Sender[:])
	enc.u32(uint32(len(m.Recipient)))
	enc.buf = append(enc.buf, m.Recipient...)
	enc.amount(m.Fee)
	enc.u64(m.Timestamp)
	enc.u64(m.Nonce)
	return enc.buf
}

// SigningHash returns keccak256 of SigningBytes.
func (m *Message) SigningHash() []byte {
	return ethcrypto.Keccak256(m.SigningBytes())
}

// messageID derives the id of an outbound message. The per-user nonce keeps
// otherwise identical submissions apart.
func messageID(ts uint64, sender [20]byte, assetType AssetType, amount *big.Int, destChain uint32, nonce uint64) [32]byte {
	enc := &encoder{}
	enc.u64(ts)
	enc.word(sender[:])
	enc.u32(uint32(assetType))
	enc.amount(amount)
	enc.u32(destChain)
	enc.u64(nonce)
	return sha256.Sum256(enc.buf)
}

// wrappedID derives the id of a wrapped NFT.
func wrappedID(contract [20]byte, tokenID uint64, destChain uint32, ts uint64) [32]byte {
	enc := &encoder{}
	enc.word(contract[:])
	enc.u64(tokenID)
	enc.u32(destChain)
	enc.u64(ts)
	return sha256.Sum256(enc.buf)
}

// ResolveRecipient maps recipient bytes to a ledger address. It accepts 20
// raw bytes or a 32-byte word whose first 12 bytes are zero.
func ResolveRecipient(recipient []byte) ([20]byte, error) {
	var addr [20]byte
	switch len(recipient) {
	case 20:
		copy(addr[:], recipient)
	case 32:
		for _, b := range recipient[:12] {
			if b != 0 {
				return addr, ErrInvalidRecipient
			}
		}
		copy(addr[:], recipient[12:])
	default:
		return addr, ErrInvalidRecipient
	}
	if addr == ([20]byte{}) {
		return addr, ErrInvalidRecipient
	}
	return addr, nil
}
