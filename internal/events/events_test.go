package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEncodeEnvelopeShape(t *testing.T) {
	at := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	frame, err := Encode(DealConfirmed{AuctionID: "a1", BuyerID: "b1"}, at)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(frame, &raw))
	require.Equal(t, "deal_confirmed", raw["type"])
	require.Equal(t, "2026-05-01T09:30:00Z", raw["timestamp"])
	require.Equal(t, map[string]any{"auctionId": "a1", "buyerId": "b1"}, raw["data"])
}

func TestDecodeTyped(t *testing.T) {
	frame, err := Encode(NewBid{AuctionID: "a1", BidID: "b1", Amount: 7200, BidCount: 2}, time.Now())
	require.NoError(t, err)

	evt, ok, err := Decode(frame)
	require.NoError(t, err)
	require.True(t, ok)
	nb, isNewBid := evt.(*NewBid)
	require.True(t, isNewBid)
	require.Equal(t, int64(7200), nb.Amount)
}

func TestDecodeUnknownIsIgnorable(t *testing.T) {
	evt, ok, err := Decode([]byte(`{"type":"auction_teleported","data":{},"timestamp":"2026-01-01T00:00:00Z"}`))
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, evt)
}
