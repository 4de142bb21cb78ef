package http_server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abrar71/swaggerfilesv2" // swagger embed files

	"motortrade/internal/http/auctionhandler"
	"motortrade/internal/http/dealerhandler"
	"motortrade/internal/http/middleware"
	"motortrade/internal/http/notificationhandler"
	"motortrade/internal/services/auction"
	"motortrade/internal/services/dealer"
	"motortrade/internal/services/notification"
	"motortrade/internal/ws"
)

// Deps is everything the router mounts.
type Deps struct {
	Auctions      auction.IAuctionService
	Dealers       dealer.IDealerService
	Notifications *notification.Recorder
	Verifier      middleware.Verifier
	BidLimiter    *middleware.RateLimiter
	WsServer      *ws.WsServer
	// AllowedOrigins empty or "*" allows any origin.
	AllowedOrigins []string
}

type httpServer struct {
	listenPort uint16
	srv        http.Server
	ln         net.Listener
	deps       Deps
	ctx        context.Context
}

func NewHttpServer(ctx context.Context, listenPort uint16, deps Deps) *httpServer {
	return &httpServer{
		listenPort: listenPort,
		deps:       deps,
		ctx:        ctx,
	}
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(d Deps) *gin.Engine {
	routerEngine := gin.New()
	routerEngine.Use(ginzap.Ginzap(zap.L(), time.RFC3339, true))
	routerEngine.Use(ginzap.RecoveryWithZap(zap.L(), true))
	routerEngine.Use(cors.New(corsConfig(d.AllowedOrigins)))

	// Swagger UI and API specs
	routerEngine.StaticFS("/swagger-apis", http.FS(swaggerfilesv2.FS))
	routerEngine.Static("/api-specs", "api_specs")

	routerEngine.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if d.WsServer != nil {
		routerEngine.GET("/ws", d.WsServer.Handle)
	}

	optional := middleware.OptionalAuth(d.Verifier)
	required := middleware.AuthRequired(d.Verifier)
	bidLimit := func(c *gin.Context) { c.Next() }
	if d.BidLimiter != nil {
		bidLimit = d.BidLimiter.Middleware()
	}

	auctionhandler.New(d.Auctions).Register(routerEngine, optional, required, bidLimit)
	dealerhandler.New(d.Dealers).Register(routerEngine, required)
	notificationhandler.New(d.Notifications).Register(routerEngine, required)
	return routerEngine
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization")
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

func (h *httpServer) Start() error {
	var err error
	listenAddr := fmt.Sprintf(":%d", h.listenPort)
	h.ln, err = net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}

	h.srv = http.Server{
		Handler:           NewRouter(h.deps),
		ReadHeaderTimeout: 10 * time.Second,
	}
	zap.L().Info("http_listen", zap.String("addr", listenAddr))

	if err := h.srv.Serve(h.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Dispose gracefully shuts the HTTP server down.
// It waits up to 10 s for in-flight requests to finish.
func (h *httpServer) Dispose() error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(h.ctx), 10*time.Second)
	defer cancel()

	if err := h.srv.Shutdown(ctx); err != nil {
		zap.L().Error("http_dispose", zap.Error(err))
		return err
	}
	return nil
}
