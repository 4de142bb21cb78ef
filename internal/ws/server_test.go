package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motortrade/internal/domain"
	"motortrade/internal/events"
	"motortrade/internal/lock"
	"motortrade/internal/services/auction"
	"motortrade/internal/services/notification"
	"motortrade/internal/store"
	"motortrade/internal/store/memstore"
)

type tokens struct{}

func (tokens) Verify(raw string) (string, error) {
	if raw == "" || raw == "bad" {
		return "", errors.New("bad token")
	}
	return raw, nil
}

type fixture struct {
	url       string
	hub       *Hub
	auctionID string
}

func start(t *testing.T) fixture {
	t.Helper()
	return startWith(t, Options{PongWait: 5 * time.Second, SendBuffer: 16})
}

func startWith(t *testing.T, opts Options) fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	s := memstore.New()
	require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
		return tx.PutMotorcycle(ctx, &domain.Motorcycle{ID: "m1", DealerID: "seller", Make: "BMW", Model: "R1250GS", Year: 2021, Status: domain.MotorcycleAvailable})
	}))
	hub := NewHub()
	svc := auction.NewAuctionService(s, lock.NewLocal(), notification.NewRecorder(s, nil, nil), hub, nil, auction.Options{})
	a, err := svc.CreateAuction(ctx, "seller", auction.CreateAuctionInput{MotorcycleID: "m1", EndTime: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	srv := NewWsServer(hub, tokens{}, svc, opts)
	r := gin.New()
	r.GET("/ws", srv.Handle)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	return fixture{url: "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws", hub: hub, auctionID: a.ID}
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msgType string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(events.Envelope{Type: msgType, Data: raw, Timestamp: time.Now()}))
}

func next(t *testing.T, conn *websocket.Conn) events.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var env events.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func TestPingAndUnknownMessages(t *testing.T) {
	f := start(t)
	conn := dial(t, f.url)

	send(t, conn, "something_new", map[string]any{"x": 1})
	send(t, conn, msgPing, nil)
	assert.Equal(t, msgPong, next(t, conn).Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{nope")))
	env := next(t, conn)
	assert.Equal(t, msgError, env.Type)
}

func TestBadTokenRejectedAtUpgrade(t *testing.T) {
	f := start(t)
	_, resp, err := websocket.DefaultDialer.Dial(f.url+"?token=bad", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPlaceBidOverSocketNotifiesSeller(t *testing.T) {
	f := start(t)

	seller := dial(t, f.url+"?token=seller")
	env := next(t, seller)
	require.Equal(t, msgIdentified, env.Type)

	bidder := dial(t, f.url)
	send(t, bidder, msgPlaceBid, PlaceBidRequest{AuctionID: f.auctionID, Amount: 5000})
	env = next(t, bidder)
	require.Equal(t, msgError, env.Type)
	var eb ErrorBody
	require.NoError(t, json.Unmarshal(env.Data, &eb))
	assert.Equal(t, errIdentifyFirst.Error(), eb.Error)
	assert.Equal(t, msgPlaceBid, eb.Request)

	send(t, bidder, msgIdentify, IdentifyRequest{Token: "bad"})
	assert.Equal(t, msgError, next(t, bidder).Type)
	send(t, bidder, msgRegister, IdentifyRequest{Token: "bidder"})
	assert.Equal(t, msgIdentified, next(t, bidder).Type)
	assert.True(t, f.hub.Online("bidder"))

	send(t, bidder, msgPlaceBid, PlaceBidRequest{AuctionID: f.auctionID, Amount: 0})
	env = next(t, bidder)
	require.Equal(t, msgError, env.Type)

	send(t, bidder, msgPlaceBid, PlaceBidRequest{AuctionID: f.auctionID, Amount: 5000})
	env = next(t, bidder)
	require.Equal(t, msgAck, env.Type)
	var ack AckBody
	require.NoError(t, json.Unmarshal(env.Data, &ack))
	assert.Equal(t, int64(5000), ack.Amount)
	assert.NotEmpty(t, ack.BidID)

	frame, err := json.Marshal(next(t, seller))
	require.NoError(t, err)
	evt, ok, err := events.Decode(frame)
	require.NoError(t, err)
	require.True(t, ok)
	nb, isBid := evt.(*events.NewBid)
	require.True(t, isBid)
	assert.Equal(t, f.auctionID, nb.AuctionID)
	assert.Equal(t, "bidder", nb.BidderID)
	assert.Equal(t, 1, nb.BidCount)
}

func TestClosedSocketLeavesRegistry(t *testing.T) {
	f := start(t)
	conn := dial(t, f.url+"?token=u1")
	require.Equal(t, msgIdentified, next(t, conn).Type)
	require.True(t, f.hub.Online("u1"))

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return !f.hub.Online("u1") && f.hub.Len() == 0 }, 3*time.Second, 20*time.Millisecond)
}

func TestSilentClientDroppedAfterPongWait(t *testing.T) {
	f := startWith(t, Options{PingPeriod: 50 * time.Millisecond, PongWait: 200 * time.Millisecond, SendBuffer: 16})
	conn := dial(t, f.url+"?token=u1")
	require.Equal(t, msgIdentified, next(t, conn).Type)
	require.True(t, f.hub.Online("u1"))

	// Control frames are only answered while reading, so from here on the
	// server's pings go unanswered.
	require.Eventually(t, func() bool { return !f.hub.Online("u1") && f.hub.Len() == 0 }, 3*time.Second, 20*time.Millisecond)
}

func TestCheckOrigin(t *testing.T) {
	s := &WsServer{opts: Options{AllowedOrigins: []string{"https://dealers.example"}}}
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, s.checkOrigin(req))
	req.Header.Set("Origin", "https://dealers.example")
	assert.True(t, s.checkOrigin(req))
	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, s.checkOrigin(req))
}
