package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// clientConn is one upgraded socket. Only writePump writes to rawConn;
// everyone else goes through enqueue.
type clientConn struct {
	rawConn *websocket.Conn
	send    chan []byte
	done    chan struct{}

	mu     sync.Mutex
	userID string

	closeOnce sync.Once
}

func newClientConn(raw *websocket.Conn, buffer int) *clientConn {
	if buffer < 1 {
		buffer = 1
	}
	return &clientConn{
		rawConn: raw,
		send:    make(chan []byte, buffer),
		done:    make(chan struct{}),
	}
}

func (c *clientConn) user() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

func (c *clientConn) setUser(id string) (previous string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	previous, c.userID = c.userID, id
	return previous
}

// enqueue never blocks. A connection whose queue is full is closed.
func (c *clientConn) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		c.close()
		return false
	}
}

func (c *clientConn) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *clientConn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.rawConn != nil {
			_ = c.rawConn.Close()
		}
	})
}

// writePump drains the send queue and keeps the peer alive with pings.
func (c *clientConn) writePump(pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			_ = c.rawConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.rawConn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.rawConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.rawConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
