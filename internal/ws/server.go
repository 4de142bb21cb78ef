package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"motortrade/internal/domain"
	"motortrade/internal/events"
	"motortrade/internal/services/auction"
)

const (
	writeWait      = 10 * time.Second
	readLimit      = 4096
	handlerTimeout = 5 * time.Second
)

var (
	errIdentifyFirst = errors.New("identify first")
	errInvalidToken  = errors.New("invalid token")
)

// Verifier resolves an identify token to a dealer id.
type Verifier interface {
	Verify(raw string) (string, error)
}

type Options struct {
	PingPeriod time.Duration // must be < PongWait
	PongWait   time.Duration
	SendBuffer int
	// AllowedOrigins empty or containing "*" accepts any origin.
	AllowedOrigins []string
}

func (o *Options) defaults() {
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = o.PongWait * 9 / 10
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
}

type WsServer struct {
	hub        *Hub
	router     *Router
	verifier   Verifier
	auctionSvc auction.IAuctionService
	upgrader   websocket.Upgrader
	opts       Options
}

func NewWsServer(h *Hub, verifier Verifier, auctionSvc auction.IAuctionService, opts Options) *WsServer {
	opts.defaults()
	srv := &WsServer{
		hub:        h,
		router:     NewRouter(),
		verifier:   verifier,
		auctionSvc: auctionSvc,
		opts:       opts,
	}
	srv.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     srv.checkOrigin,
	}
	srv.registerHandlers()
	return srv
}

// Handle is the gin entry point for GET /ws. A token query parameter
// identifies the socket straight away.
func (s *WsServer) Handle(ginCtx *gin.Context) {
	var userID string
	if token := ginCtx.Query("token"); token != "" {
		id, err := s.verifier.Verify(token)
		if err != nil {
			ginCtx.JSON(http.StatusUnauthorized, ErrorBody{Error: errInvalidToken.Error()})
			return
		}
		userID = id
	}

	rawConn, err := s.upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.upgrade", zap.Error(err))
		return
	}
	rawConn.SetReadLimit(readLimit)

	conn := newClientConn(rawConn, s.opts.SendBuffer)
	s.hub.add(conn)
	if userID != "" {
		s.hub.identify(conn, userID)
		s.reply(conn, msgIdentified, IdentifiedBody{UserID: userID})
	}

	go conn.writePump(s.opts.PingPeriod)
	go s.reader(conn)
}

func (s *WsServer) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.opts.AllowedOrigins) == 0 || slices.Contains(s.opts.AllowedOrigins, "*") {
		return true
	}
	return slices.Contains(s.opts.AllowedOrigins, origin)
}

func (s *WsServer) registerHandlers() {
	identify := func(ctx context.Context, cc *ConnContext, req IdentifyRequest) (IdentifiedBody, error) {
		id, err := s.verifier.Verify(req.Token)
		if err != nil {
			return IdentifiedBody{}, errInvalidToken
		}
		s.hub.identify(cc.conn, id)
		return IdentifiedBody{UserID: id}, nil
	}
	Register(s.router, msgIdentify, msgIdentified, identify)
	Register(s.router, msgRegister, msgIdentified, identify)

	Register(s.router, msgPing, msgPong, func(context.Context, *ConnContext, empty) (empty, error) {
		return empty{}, nil
	})

	Register(s.router, msgPlaceBid, msgAck,
		func(ctx context.Context, cc *ConnContext, req PlaceBidRequest) (AckBody, error) {
			bidder := cc.UserID()
			if bidder == "" {
				return AckBody{}, errIdentifyFirst
			}
			if req.AuctionID == "" {
				return AckBody{}, domain.Validationf("auctionId is required")
			}
			bid, err := s.auctionSvc.PlaceBid(ctx, req.AuctionID, bidder, req.Amount)
			if err != nil {
				return AckBody{}, err
			}
			return AckBody{AuctionID: bid.AuctionID, BidID: bid.ID, Amount: bid.Amount}, nil
		},
	)
}

func (s *WsServer) reader(conn *clientConn) {
	defer s.hub.remove(conn)

	raw := conn.rawConn
	_ = raw.SetReadDeadline(time.Now().Add(s.opts.PongWait))
	raw.SetPongHandler(func(string) error {
		return raw.SetReadDeadline(time.Now().Add(s.opts.PongWait))
	})

	cc := &ConnContext{conn: conn, Server: s}
	for {
		_, data, err := raw.ReadMessage()
		if err != nil {
			return // client closed, errored or missed its pong
		}
		_ = raw.SetReadDeadline(time.Now().Add(s.opts.PongWait))

		var env events.Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
			s.reply(conn, msgError, ErrorBody{Error: "malformed message"})
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		replyType, res, err := s.router.dispatch(ctx, cc, env.Type, env.Data)
		cancel()

		switch {
		case errors.Is(err, errUnknownMessage):
			zap.L().Debug("ws.unknown_message", zap.String("type", env.Type))
		case err != nil:
			s.reply(conn, msgError, ErrorBody{Error: clientError(err), Request: env.Type})
		default:
			s.reply(conn, replyType, res)
		}
	}
}

func (s *WsServer) reply(conn *clientConn, msgType string, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		zap.L().Warn("ws.encode_reply", zap.Error(err))
		return
	}
	frame, err := json.Marshal(events.Envelope{Type: msgType, Data: data, Timestamp: s.hub.now().UTC()})
	if err != nil {
		zap.L().Warn("ws.encode_reply", zap.Error(err))
		return
	}
	if !conn.enqueue(frame) {
		s.hub.remove(conn)
	}
}

// clientError hides anything that is not a domain error.
func clientError(err error) string {
	for _, kind := range []error{domain.ErrNotFound, domain.ErrUnauthorized, domain.ErrInvalidState, domain.ErrValidation} {
		if errors.Is(err, kind) {
			return err.Error()
		}
	}
	var syntax *json.SyntaxError
	var typ *json.UnmarshalTypeError
	if errors.As(err, &syntax) || errors.As(err, &typ) {
		return "malformed message"
	}
	if errors.Is(err, errIdentifyFirst) || errors.Is(err, errInvalidToken) {
		return err.Error()
	}
	zap.L().Error("ws.handler", zap.Error(err))
	return "internal error"
}
