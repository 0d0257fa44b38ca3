package cmd

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"
	"github.com/redis/go-redis/v9"

	"event-hosting/config"
	"event-hosting/internal/docstore"
	"event-hosting/internal/handlers"
	"event-hosting/internal/services"
	_ "event-hosting/migrations"
	"event-hosting/monitoring"
	"event-hosting/security"
	"event-hosting/utils"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Environment)
	slog.SetDefault(logger)

	// Initialize Redis, optional
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = utils.NewRedisClient(cfg.RedisURL)
		if err != nil {
			logger.Warn("Redis unavailable, running without cache, session revocation and rate limiting", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	// Initialize document store
	store, cache := newStore(app, cfg, redisClient)

	// Initialize services
	notifier := newNotifier(logger, cfg)
	authService := services.NewAuthService(logger, store, cfg.BcryptCost)
	sessionService := services.NewSessionService(cfg.SessionSecret, cfg.SessionTTL, redisClient)
	eventService := services.NewEventService(logger, store, notifier)
	profileService := services.NewProfileService(logger, store, authService, notifier)
	limiter := security.NewRateLimiter(redisClient, cfg.AuthRateLimit, cfg.AuthRateWindow)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(logger, authService, sessionService, handlers.CookieConfig{
		Name:   cfg.SessionCookie,
		Secure: cfg.SecureCookies,
	})
	eventHandler := handlers.NewEventHandler(logger, eventService)
	profileHandler := handlers.NewProfileHandler(logger, profileService, eventService)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: cfg.IsDevelopment(),
	})
	app.RootCmd.AddCommand(NewSeedCommand(app, authService, eventService))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup graceful shutdown
	go handleShutdown(cancel)

	if cache != nil {
		setupCacheHooks(app, cache)
	}

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		// Auth endpoints
		authGroup := se.Router.Group("/api/auth")
		authGroup.POST("/signup", authHandler.Signup).
			BindFunc(limiter.AntiBotMiddleware, limiter.Middleware("signup"))
		authGroup.POST("/signin", authHandler.Signin).
			BindFunc(limiter.AntiBotMiddleware, limiter.Middleware("signin"))
		authGroup.POST("/signout", authHandler.Signout).BindFunc(authHandler.RequireSession)
		authGroup.GET("/session", authHandler.Session).BindFunc(authHandler.RequireSession)

		v1 := se.Router.Group("/api/v1")

		// Event endpoints
		v1.GET("/events", eventHandler.List)
		v1.GET("/events/categories", eventHandler.Categories)
		v1.GET("/events/stats", eventHandler.Stats)
		v1.GET("/events/{id}", eventHandler.Get)
		v1.POST("/events", eventHandler.Create).BindFunc(authHandler.RequireSession)
		v1.PUT("/events/{id}", eventHandler.Update).BindFunc(authHandler.RequireSession)
		v1.POST("/events/{id}/like", eventHandler.Like).BindFunc(authHandler.RequireSession)
		v1.POST("/events/{id}/reserve", eventHandler.Reserve).BindFunc(authHandler.RequireSession)

		// Profile endpoints
		v1.GET("/profile", profileHandler.Get).BindFunc(authHandler.RequireSession)
		v1.PUT("/profile", profileHandler.Update).BindFunc(authHandler.RequireSession)
		v1.GET("/profile/events", profileHandler.Events).BindFunc(authHandler.RequireSession)

		// Health check
		se.Router.GET("/health", handlers.Health(redisClient))

		if cfg.EnableMetrics {
			monitoring.NewMonitor(store, cfg.MetricsInterval).Start(ctx)
			se.Router.GET("/metrics", apis.WrapStdHandler(promhttp.Handler()))
		}

		log.Println("Server routes registered")

		return se.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
	return nil
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case config.EnvDevelopment:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}

// newStore builds the document store stack: backend, latency metrics and,
// when Redis is available, the read cache.
func newStore(app core.App, cfg *config.Config, redisClient *redis.Client) (docstore.Store, *docstore.Cached) {
	var backend docstore.Store
	switch cfg.DocStore {
	case "memory":
		backend = docstore.NewMemory()
	default:
		backend = docstore.NewPocketBase(app)
	}

	store := monitoring.InstrumentStore(backend)
	if redisClient == nil {
		return store, nil
	}

	cache := docstore.NewCached(store, redisClient, cfg.CacheTTL)
	return cache, cache
}

func newNotifier(logger *slog.Logger, cfg *config.Config) services.Notifier {
	if cfg.PubNubPublishKey == "" || cfg.PubNubSubscribeKey == "" {
		logger.Info("PubNub keys not set, realtime notifications disabled")
		return services.NopNotifier{}
	}

	pnConfig := pubnub.NewConfig()
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey
	pnConfig.UUID = "event-hosting-server"

	pn := pubnub.NewPubNub(pnConfig)
	return services.NewPubNubNotifier(logger, pn, cfg.FeedChannel)
}

// setupCacheHooks drops cached documents when records change outside the
// store, e.g. from the PocketBase dashboard.
func setupCacheHooks(app *pocketbase.PocketBase, cache *docstore.Cached) {
	invalidate := func(e *core.RecordEvent) error {
		cache.Invalidate(context.Background(), e.Record.GetString("path"))
		return e.Next()
	}

	app.OnRecordAfterCreateSuccess(docstore.CollectionName).BindFunc(invalidate)
	app.OnRecordAfterUpdateSuccess(docstore.CollectionName).BindFunc(invalidate)
	app.OnRecordAfterDeleteSuccess(docstore.CollectionName).BindFunc(invalidate)
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
