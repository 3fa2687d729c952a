package rpc

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"questchain/core"
	"questchain/native/bridge"
)

func TestBridgeMessageRoundTripsForSigning(t *testing.T) {
	f := newFixture(t, Config{})
	rt := f.server.runtime
	nft := testAddress(0x0a)
	var id [32]byte
	tx := core.Tx{Contract: core.ContractBridge, Method: "bridge_assets", Signers: [][20]byte{f.admin, f.alice}, Timestamp: 200}
	require.NoError(t, rt.Invoke(context.Background(), tx, func(c *core.Contracts) error {
		if err := c.Bridge.Initialize(f.admin, 1, 7, f.admin); err != nil {
			return err
		}
		var err error
		id, err = c.Bridge.BridgeAssets(f.alice, nft, bridge.AssetNFT, big.NewInt(42), 9, []byte{0xbe, 0xef})
		return err
	}))

	rec := f.get(t, "/v1/bridge/messages/0x"+hex.EncodeToString(id[:]))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body BridgeMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "pending", body.Status)
	require.Equal(t, "nft", body.AssetType)

	decoded, err := body.Message()
	require.NoError(t, err)
	require.NoError(t, rt.View(func(c *core.Contracts) error {
		stored, err := c.Bridge.Message(id)
		require.NoError(t, err)
		require.Equal(t, stored.SigningHash(), decoded.SigningHash())
		return nil
	}))
}

func TestBridgeMessageRejectsUnknownAction(t *testing.T) {
	resp := BridgeMessageResponse{ID: "0x" + hex.EncodeToString(make([]byte, 32)), Action: "burn", AssetType: "token"}
	_, err := resp.Message()
	require.ErrorContains(t, err, "unknown action")
}
