package ws

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// subscriptionManager keeps exactly one Redis subscription per
// "mt:user:<id>" channel, no matter how many local sockets identify as the
// same dealer.
type subscriptionManager struct {
	rdb  redis.UniversalClient
	hub  *Hub
	mu   sync.Mutex
	subs map[string]*subEntry // userID -> subscription data
}

type subEntry struct {
	refCnt int
	cancel context.CancelFunc
}

func newSubscriptionManager(rdb redis.UniversalClient, hub *Hub) *subscriptionManager {
	return &subscriptionManager{
		rdb:  rdb,
		hub:  hub,
		subs: make(map[string]*subEntry),
	}
}

// Online ensures the process listens on the dealer's channel; later calls
// for the same dealer only bump the counter. The subscription itself is
// opened by the forwarding goroutine so this never waits on Redis.
func (sm *subscriptionManager) Online(userID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if e, ok := sm.subs[userID]; ok {
		e.refCnt++
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	sm.subs[userID] = &subEntry{refCnt: 1, cancel: cancel}
	go sm.forward(ctx, userID)
}

// Offline tears the subscription down with the last local socket.
func (sm *subscriptionManager) Offline(userID string) {
	sm.mu.Lock()
	e, ok := sm.subs[userID]
	if !ok {
		sm.mu.Unlock()
		return
	}
	e.refCnt--
	if e.refCnt > 0 {
		sm.mu.Unlock()
		return
	}
	delete(sm.subs, userID)
	sm.mu.Unlock()

	e.cancel()
}

func (sm *subscriptionManager) forward(ctx context.Context, userID string) {
	ps := sm.rdb.Subscribe(ctx, userChannel(userID))
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
			sm.hub.deliver(userID, []byte(m.Payload))
		}
	}
}

func (sm *subscriptionManager) refs(userID string) int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if e, ok := sm.subs[userID]; ok {
		return e.refCnt
	}
	return 0
}
