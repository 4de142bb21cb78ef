package ws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motortrade/internal/events"
)

type countingPresence map[string]int

func (p countingPresence) Online(id string)  { p[id]++ }
func (p countingPresence) Offline(id string) { p[id]-- }

func frameType(t *testing.T, c *clientConn) events.Type {
	t.Helper()
	select {
	case frame := <-c.send:
		evt, ok, err := events.Decode(frame)
		require.NoError(t, err)
		require.True(t, ok)
		return evt.Type()
	default:
		return ""
	}
}

func connected(h *Hub, buffer int) *clientConn {
	c := newClientConn(nil, buffer)
	h.add(c)
	return c
}

func TestSendToUserUsesPrimarySocket(t *testing.T) {
	h := NewHub()
	evt := events.NewBid{AuctionID: "a1", Amount: 100, PlacedAt: time.Now()}

	h.SendToUser("nobody", evt)

	c1 := connected(h, 4)
	h.identify(c1, "u1")
	h.SendToUser("u1", evt)
	assert.Equal(t, events.TypeNewBid, frameType(t, c1))

	c2 := connected(h, 4)
	h.identify(c2, "u1")
	h.SendToUser("u1", evt)
	assert.Equal(t, events.Type(""), frameType(t, c1))
	assert.Equal(t, events.TypeNewBid, frameType(t, c2))
}

func TestBroadcastSkipsExcludedUser(t *testing.T) {
	h := NewHub()
	seller := connected(h, 4)
	h.identify(seller, "seller")
	other := connected(h, 4)
	h.identify(other, "other")
	anon := connected(h, 4)

	h.Broadcast(events.AuctionCreated{AuctionID: "a1", SellerID: "seller"}, "seller")

	assert.Equal(t, events.Type(""), frameType(t, seller))
	assert.Equal(t, events.TypeAuctionCreated, frameType(t, other))
	assert.Equal(t, events.TypeAuctionCreated, frameType(t, anon))
}

func TestCloseDropsUserRegardlessOfSocket(t *testing.T) {
	h := NewHub()
	p := countingPresence{}
	h.presence = p

	old := connected(h, 4)
	h.identify(old, "u1")
	fresh := connected(h, 4)
	h.identify(fresh, "u1")
	require.True(t, h.Online("u1"))
	assert.Equal(t, 2, p["u1"])

	h.remove(old)
	assert.False(t, h.Online("u1"))
	assert.Equal(t, 1, p["u1"])
	assert.Equal(t, 1, h.Len())

	h.remove(old)
	assert.Equal(t, 1, p["u1"])

	// A removed socket cannot come back through identify.
	h.identify(old, "u2")
	assert.False(t, h.Online("u2"))
}

func TestFullQueueClosesSlowConsumer(t *testing.T) {
	h := NewHub()
	slow := connected(h, 1)
	h.identify(slow, "slow")

	evt := events.DealConfirmed{AuctionID: "a1", BuyerID: "b"}
	h.SendToUser("slow", evt)
	h.SendToUser("slow", evt)

	assert.True(t, slow.closed())
	assert.False(t, h.Online("slow"))
	assert.Equal(t, 0, h.Len())
	assert.False(t, slow.enqueue([]byte("{}")))
}
