package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"motortrade/internal/events"
)

const (
	userChannelPrefix = "mt:user:"
	broadcastChannel  = "mt:broadcast"
	publishTimeout    = 2 * time.Second
)

func userChannel(userID string) string { return userChannelPrefix + userID }

type broadcastMsg struct {
	Exclude string          `json:"exclude,omitempty"`
	Frame   json.RawMessage `json:"frame"`
}

// RedisFanout is the dispatcher used when several instances share one Redis.
// Events are published once and every instance delivers to its own sockets.
type RedisFanout struct {
	rdb redis.UniversalClient
	hub *Hub
	now func() time.Time
}

// NewRedisFanout also hooks the hub so that each identified dealer gets a
// subscription to their own channel.
func NewRedisFanout(rdb redis.UniversalClient, hub *Hub) *RedisFanout {
	hub.mu.Lock()
	hub.presence = newSubscriptionManager(rdb, hub)
	hub.mu.Unlock()
	return &RedisFanout{rdb: rdb, hub: hub, now: time.Now}
}

func (f *RedisFanout) SendToUser(userID string, evt events.Event) {
	frame, err := events.Encode(evt, f.now())
	if err != nil {
		zap.L().Warn("ws.encode", zap.Error(err))
		return
	}
	f.publish(userChannel(userID), string(frame))
}

func (f *RedisFanout) Broadcast(evt events.Event, excludeUserID string) {
	frame, err := events.Encode(evt, f.now())
	if err != nil {
		zap.L().Warn("ws.encode", zap.Error(err))
		return
	}
	payload, err := json.Marshal(broadcastMsg{Exclude: excludeUserID, Frame: frame})
	if err != nil {
		zap.L().Warn("ws.encode", zap.Error(err))
		return
	}
	f.publish(broadcastChannel, string(payload))
}

func (f *RedisFanout) publish(channel, payload string) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := f.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		zap.L().Warn("ws.publish", zap.String("channel", channel), zap.Error(err))
	}
}

// Run relays broadcasts from any instance to the local hub until ctx is done.
func (f *RedisFanout) Run(ctx context.Context) {
	ps := f.rdb.Subscribe(ctx, broadcastChannel)
	defer ps.Close()
	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			f.relay(m.Payload)
		}
	}
}

func (f *RedisFanout) relay(payload string) {
	var msg broadcastMsg
	if err := json.Unmarshal([]byte(payload), &msg); err != nil || len(msg.Frame) == 0 {
		zap.L().Warn("ws.bad_broadcast", zap.Error(err))
		return
	}
	f.hub.broadcast(msg.Frame, msg.Exclude)
}

var _ events.Dispatcher = (*RedisFanout)(nil)
