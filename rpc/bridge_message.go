package rpc

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"questchain/crypto"
	"questchain/native/bridge"
)

// SignatureResponse is a validator attestation over a bridge message.
type SignatureResponse struct {
	MessageID string `json:"messageId"`
	Validator string `json:"validator"`
	Signature string `json:"signature"`
}

// Message decodes the response back into the message validators sign.
func (r BridgeMessageResponse) Message() (*bridge.Message, error) {
	msg := &bridge.Message{
		SourceChain: r.SourceChain,
		DestChain:   r.DestChain,
		Timestamp:   r.Timestamp,
		Nonce:       r.Nonce,
	}
	id, err := decodeHex(r.ID)
	if err != nil || len(id) != len(msg.ID) {
		return nil, fmt.Errorf("bridge message: invalid id %q", r.ID)
	}
	copy(msg.ID[:], id)

	switch strings.ToLower(r.Action) {
	case bridge.ActionLock.String():
		msg.Action = bridge.ActionLock
	case bridge.ActionUnlock.String():
		msg.Action = bridge.ActionUnlock
	default:
		return nil, fmt.Errorf("bridge message: unknown action %q", r.Action)
	}
	switch strings.ToLower(r.AssetType) {
	case bridge.AssetToken.String():
		msg.AssetType = bridge.AssetToken
	case bridge.AssetNFT.String():
		msg.AssetType = bridge.AssetNFT
	default:
		return nil, fmt.Errorf("bridge message: unknown asset type %q", r.AssetType)
	}

	if msg.Asset, err = crypto.ParseAddress(r.Asset); err != nil {
		return nil, fmt.Errorf("bridge message: asset: %w", err)
	}
	if msg.Sender, err = crypto.ParseAddress(r.Sender); err != nil {
		return nil, fmt.Errorf("bridge message: sender: %w", err)
	}
	if msg.Recipient, err = decodeHex(r.Recipient); err != nil {
		return nil, fmt.Errorf("bridge message: recipient: %w", err)
	}
	if msg.Amount, err = decodeAmount(r.Amount); err != nil {
		return nil, fmt.Errorf("bridge message: amount: %w", err)
	}
	if msg.Fee, err = decodeAmount(r.Fee); err != nil {
		return nil, fmt.Errorf("bridge message: fee: %w", err)
	}
	return msg, nil
}

func decodeHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
}

func decodeAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}
