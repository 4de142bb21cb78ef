package main

//go:generate go tool swag init -g main.go -o api_specs -ot json,yaml

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"motortrade/internal/auth"
	"motortrade/internal/config"
	"motortrade/internal/database/db_client"
	"motortrade/internal/database/migrations"
	"motortrade/internal/events"
	"motortrade/internal/http/http_server"
	"motortrade/internal/http/middleware"
	"motortrade/internal/lock"
	"motortrade/internal/mailer"
	"motortrade/internal/redis/redis_client"
	"motortrade/internal/redis/redis_functions"
	"motortrade/internal/redis/watcher/expirywatcher"
	"motortrade/internal/services/auction"
	"motortrade/internal/services/dealer"
	"motortrade/internal/services/notification"
	"motortrade/internal/store"
	"motortrade/internal/store/memstore"
	"motortrade/internal/store/pgstore"
	"motortrade/internal/sweeper"
	"motortrade/internal/ws"
)

var (
	Log, _ = zap.NewDevelopment()
)

// @title						motortrade API
// @version					1.0
// @description				Dealer-to-dealer motorcycle auctions with blind bidding.
// @BasePath					/
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	// 1. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	Log.Debug("Configuration loaded successfully",
		zap.String("store", cfg.StoreDriver),
		zap.Bool("redis", cfg.RedisEnabled),
		zap.Bool("mail", cfg.MailEnabled()))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Entity store
	var st store.Store
	switch cfg.StoreDriver {
	case "postgres":
		pgDb, err := db_client.Open(cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDb)
		if err != nil {
			Log.Fatal("pg-open", zap.Error(err))
		}
		defer pgDb.Close()
		if cfg.PostgresMigrate {
			if err := migrations.Run(ctx, pgDb.DB); err != nil {
				Log.Fatal("pg-migrate", zap.Error(err))
			}
		}
		st = pgstore.New(pgDb)
	default:
		Log.Warn("using the in-memory store; data is lost on restart")
		st = memstore.New()
	}

	// 4. Optional Redis: cross-instance lock, fan-out and end timers
	var (
		redisClient *redis.Client
		locker      lock.Locker = lock.NewLocal()
		scheduler   auction.Scheduler
	)
	hub := ws.NewHub()
	var dispatcher events.Dispatcher = hub
	if cfg.RedisEnabled {
		redisClient, err = redis_client.NewRedisClient(ctx, cfg.RedisAuctionsHost, cfg.RedisAuctionsPort)
		if err != nil {
			Log.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisClient.Close()

		if err := redis_functions.LoadAll(ctx, redisClient); err != nil {
			Log.Fatal("load-redis-funcs", zap.Error(err))
		}
		locker = lock.NewRedis(redisClient, 0)
		scheduler = expirywatcher.NewScheduler(redisClient)

		fanout := ws.NewRedisFanout(redisClient, hub)
		go fanout.Run(ctx)
		dispatcher = fanout
	}

	// 5. Services
	var mail mailer.Mailer = mailer.Noop{}
	if cfg.MailEnabled() {
		mail = mailer.NewSMTP(cfg.SmtpHost, cfg.SmtpPort, cfg.SmtpUsername, cfg.SmtpPassword, cfg.MailFrom)
	}
	notes := notification.NewRecorder(st, mail, nil)
	defer notes.Close()

	auctionService := auction.NewAuctionService(st, locker, notes, dispatcher, scheduler, auction.Options{
		MinIncrement:            cfg.BidMinIncrement,
		RequireDealConfirmation: cfg.RequireDealConfirmation,
		AllowReset:              cfg.AllowAuctionReset,
		StoreTimeout:            cfg.StoreTimeout,
	})
	dealerService := dealer.NewDealerService(st, cfg.StoreTimeout, nil)

	// 6. Background: natural expiry
	if redisClient != nil {
		go expirywatcher.Run(ctx, redisClient, auctionService)
	}
	sweeper.Run(ctx, auctionService, cfg.SweepInterval)

	bidLimiter := middleware.NewRateLimiter(cfg.BidRatePerSecond, cfg.BidRateBurst)
	bidLimiter.Run(ctx)

	// 7. HTTP + WS server
	tokens := auth.NewTokens(cfg.JwtSecret)
	wsSrv := ws.NewWsServer(hub, tokens, auctionService, ws.Options{
		PingPeriod:     cfg.WsPingPeriod,
		PongWait:       cfg.WsPongWait,
		SendBuffer:     cfg.WsSendBuffer,
		AllowedOrigins: cfg.CorsAllowedOrigins,
	})
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, http_server.Deps{
		Auctions:       auctionService,
		Dealers:        dealerService,
		Notifications:  notes,
		Verifier:       tokens,
		BidLimiter:     bidLimiter,
		WsServer:       wsSrv,
		AllowedOrigins: cfg.CorsAllowedOrigins,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			Log.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	case <-ctx.Done():
		Log.Info("shutting down")
		if err := httpServer.Dispose(); err != nil {
			Log.Error("http shutdown", zap.Error(err))
		}
	}
}
