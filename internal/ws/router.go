package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

var errUnknownMessage = errors.New("unknown_message")

// ConnContext is what a handler knows about the socket that sent a message.
type ConnContext struct {
	conn   *clientConn
	Server *WsServer
}

// UserID is empty until the socket identifies.
func (cc *ConnContext) UserID() string { return cc.conn.user() }

type rawHandler func(ctx context.Context, c *ConnContext, body json.RawMessage) (any, error)

type route struct {
	reply string
	h     rawHandler
}

// Router keeps a map[type]handler, à-la gin.Engine.
type Router struct {
	mu     sync.RWMutex
	routes map[string]route
}

func NewRouter() *Router { return &Router{routes: make(map[string]route)} }

// Register binds a message type to a strongly-typed handler whose result is
// sent back under the reply type.
func Register[Req any, Res any](
	r *Router,
	msgType, reply string,
	h func(ctx context.Context, c *ConnContext, req Req) (Res, error),
) {
	if msgType == "" || reply == "" {
		panic("ws router: empty message type")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.routes[msgType] = route{reply: reply, h: func(ctx context.Context, c *ConnContext, body json.RawMessage) (any, error) {
		var req Req
		if len(body) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				return nil, err
			}
		}
		return h(ctx, c, req)
	}}
}

// dispatch is called by the server's reader loop.
func (r *Router) dispatch(ctx context.Context, c *ConnContext, msgType string, body json.RawMessage) (string, any, error) {
	r.mu.RLock()
	rt, ok := r.routes[msgType]
	r.mu.RUnlock()
	if !ok {
		return "", nil, errUnknownMessage
	}
	res, err := rt.h(ctx, c, body)
	return rt.reply, res, err
}
