package ws

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"motortrade/internal/events"
)

// Presence is told when a dealer gains or loses an identified socket on this
// instance. Calls are made under the hub lock and must not block.
type Presence interface {
	Online(userID string)
	Offline(userID string)
}

// Hub is the in-process connection registry. It maps each dealer to one
// primary socket and delivers events without blocking the caller.
type Hub struct {
	mu    sync.RWMutex
	conns map[*clientConn]struct{}
	users map[string]*clientConn

	presence Presence
	now      func() time.Time
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[*clientConn]struct{}),
		users: make(map[string]*clientConn),
		now:   time.Now,
	}
}

func (h *Hub) add(c *clientConn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
}

// identify makes c the primary socket of userID, replacing any earlier one.
func (h *Hub) identify(c *clientConn, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c]; !ok {
		return
	}
	prev := c.setUser(userID)
	if prev != "" && prev != userID && h.users[prev] == c {
		delete(h.users, prev)
	}
	h.users[userID] = c

	if h.presence == nil || prev == userID {
		return
	}
	if prev != "" {
		h.presence.Offline(prev)
	}
	h.presence.Online(userID)
}

// remove drops c. The user mapping goes with it even when a newer socket
// holds it, so a reconnect race never leaves a stale entry behind.
func (h *Hub) remove(c *clientConn) {
	h.mu.Lock()
	uid := c.user()
	if _, ok := h.conns[c]; ok {
		delete(h.conns, c)
		if uid != "" {
			delete(h.users, uid)
			if h.presence != nil {
				h.presence.Offline(uid)
			}
		}
	}
	h.mu.Unlock()

	c.close()
}

// Online reports whether userID has a primary socket here.
func (h *Hub) Online(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.users[userID]
	return ok && !c.closed()
}

// Len is the number of open sockets.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) SendToUser(userID string, evt events.Event) {
	frame, err := events.Encode(evt, h.now())
	if err != nil {
		zap.L().Warn("ws.encode", zap.Error(err))
		return
	}
	h.deliver(userID, frame)
}

func (h *Hub) Broadcast(evt events.Event, excludeUserID string) {
	frame, err := events.Encode(evt, h.now())
	if err != nil {
		zap.L().Warn("ws.encode", zap.Error(err))
		return
	}
	h.broadcast(frame, excludeUserID)
}

func (h *Hub) deliver(userID string, frame []byte) {
	h.mu.RLock()
	c := h.users[userID]
	h.mu.RUnlock()
	if c == nil {
		return
	}
	if !c.enqueue(frame) {
		zap.L().Warn("ws.deliver_dropped", zap.String("user_id", userID))
		h.remove(c)
	}
}

func (h *Hub) broadcast(frame []byte, excludeUserID string) {
	// Snapshot under the lock, enqueue outside it.
	h.mu.RLock()
	targets := make([]*clientConn, 0, len(h.conns))
	for c := range h.conns {
		if excludeUserID != "" && c.user() == excludeUserID {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	var failed []*clientConn
	for _, c := range targets {
		if !c.enqueue(frame) {
			failed = append(failed, c)
		}
	}
	for _, c := range failed {
		h.remove(c)
	}
}

var _ events.Dispatcher = (*Hub)(nil)
