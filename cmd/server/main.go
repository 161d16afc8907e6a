// Package main runs the GoToWebinar tools HTTP server with graceful shutdown.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-webinar/gtw-tools/config"
	"github.com/aura-webinar/gtw-tools/internal/auth"
	"github.com/aura-webinar/gtw-tools/internal/messenger"
	"github.com/aura-webinar/gtw-tools/internal/middleware"
	"github.com/aura-webinar/gtw-tools/internal/oauth"
	"github.com/aura-webinar/gtw-tools/internal/persist"
	"github.com/aura-webinar/gtw-tools/internal/realtime"
	"github.com/aura-webinar/gtw-tools/internal/settings"
	"github.com/aura-webinar/gtw-tools/internal/spa"
	"github.com/aura-webinar/gtw-tools/internal/tokens"
	"github.com/aura-webinar/gtw-tools/internal/upstream"
	"github.com/aura-webinar/gtw-tools/internal/webinars"
	"github.com/aura-webinar/gtw-tools/pkg/database"
	"github.com/aura-webinar/gtw-tools/pkg/redis"
	"github.com/aura-webinar/gtw-tools/pkg/response"
	"github.com/aura-webinar/gtw-tools/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		newLogger("info").Fatal("load config", zap.Error(err))
	}
	logger := newLogger(cfg.Log.Level)
	defer logger.Sync()

	ctx := context.Background()

	var rdb *redis.Client
	if cfg.State.Backend == "redis" || cfg.Redis.PubSub {
		rdb, err = redis.NewClient(ctx, redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
	}

	backend, closeBackend, err := openBackend(ctx, cfg, rdb, logger)
	if err != nil {
		logger.Fatal("state backend", zap.Error(err), zap.String("backend", cfg.State.Backend))
	}
	defer closeBackend()

	// Tokens and settings: env values are defaults, persisted state wins.
	tokenStore := tokens.NewStore(backend, cfg.State.TokensKey, tokens.State{
		AccessToken:  cfg.GoTo.AccessToken,
		RefreshToken: cfg.GoTo.RefreshToken,
		OrganizerKey: cfg.GoTo.OrganizerKey,
	}, logger)
	if err := tokenStore.Load(ctx); err != nil {
		logger.Error("load tokens, using environment", zap.Error(err))
	}
	settingsStore := settings.NewStore(backend, cfg.State.SettingsKey, settings.Defaults(cfg.Checkout.BaseURL), logger)
	if err := settingsStore.Load(ctx); err != nil {
		logger.Error("load settings, using defaults", zap.Error(err))
	}

	httpClient := &http.Client{Timeout: cfg.GoTo.HTTPTimeout()}
	exchanger := oauth.NewExchanger(oauth.Config{
		ClientID:     cfg.GoTo.ClientID,
		ClientSecret: cfg.GoTo.ClientSecret,
		RedirectURI:  cfg.GoTo.RedirectURI,
		AuthorizeURL: cfg.GoTo.AuthorizeURL,
		TokenURL:     cfg.GoTo.TokenURL,
	}, tokenStore, httpClient, logger)
	client := upstream.NewClient(cfg.GoTo.APIBase, tokenStore, exchanger, httpClient, logger)

	// Progress hub, fanned out through Redis when several instances serve the dashboard.
	var hub *realtime.Hub
	if cfg.Redis.PubSub {
		pubsub := realtime.NewRedisPubSub(rdb.Client, logger)
		hub = realtime.NewHub(logger, pubsub, pubsub)
	} else {
		hub = realtime.NewHub(logger, nil, nil)
	}
	defer hub.Close()

	sender := messenger.New(client, settingsStore, newPacer(cfg.Messaging), hub, logger)

	authHandler := auth.NewHandler(exchanger, tokenStore, client, logger)
	webinarHandler := webinars.NewHandler(client, sender, settingsStore, logger)
	settingsHandler := settings.NewHandler(settingsStore)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// OAuth redirect target registered with GoTo
	router.GET("/oauth-callback", spa.OAuthCallback)

	api := router.Group("/api")
	{
		api.GET("/auth-url", authHandler.AuthURL)
		api.POST("/auth/token", authHandler.Token)
		api.POST("/auth/refresh", authHandler.Refresh)
		api.GET("/auth/status", authHandler.Status)
		api.GET("/debug/token", authHandler.Debug)

		api.GET("/settings", settingsHandler.Get)
		api.POST("/settings", settingsHandler.Update)

		api.GET("/ws/progress", realtime.ServeWs(hub, logger))
	}

	// Webinars (GoTo token required)
	wb := api.Group("/webinars")
	wb.Use(middleware.RequireToken(tokenStore))
	{
		wb.GET("", webinarHandler.List)
		wb.GET("/:webinarKey", webinarHandler.Get)
		wb.GET("/:webinarKey/attendees", webinarHandler.Attendees)
		wb.GET("/:webinarKey/registrants/:registrantKey", webinarHandler.Registrant)
		wb.POST("/:webinarKey/sessions/:sessionKey/attendees/:registrantKey/message", webinarHandler.SendMessage)
		wb.POST("/:webinarKey/sessions/:sessionKey/messages", webinarHandler.SendBulk)
	}

	if spa.Available(cfg.Server.StaticDir) {
		router.NoRoute(spa.Handler(cfg.Server.StaticDir))
		logger.Info("serving dashboard", zap.String("dir", cfg.Server.StaticDir))
	} else {
		logger.Warn("dashboard build not found, serving API only", zap.String("dir", cfg.Server.StaticDir))
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening",
			zap.String("port", cfg.Server.Port),
			zap.String("state_backend", cfg.State.Backend),
			zap.String("auth_state", client.State().String()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

// openBackend returns the persistence backend selected by STATE_BACKEND and a func releasing it.
func openBackend(ctx context.Context, cfg *config.Config, rdb *redis.Client, logger *zap.Logger) (persist.Backend, func(), error) {
	noop := func() {}
	switch cfg.State.Backend {
	case "memory":
		return persist.NewMemory(), noop, nil
	case "redis":
		return persist.NewRedis(rdb.Client), noop, nil
	case "postgres":
		pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), 4, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := database.Migrate(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		return persist.NewPostgres(pool), pool.Close, nil
	case "s3":
		s3, err := storage.NewS3(ctx, storage.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			Bucket:          cfg.State.S3Bucket,
			Prefix:          cfg.State.S3Prefix,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return persist.NewS3(s3), noop, nil
	default:
		return persist.NewFile(cfg.State.Dir), noop, nil
	}
}

func newPacer(cfg config.MessagingConfig) messenger.Pacer {
	if cfg.RatePerSec > 0 {
		return messenger.NewRateLimited(cfg.RatePerSec, cfg.Burst)
	}
	return messenger.FixedInterval(time.Duration(cfg.DelayMS) * time.Millisecond)
}

func newLogger(level string) *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		config.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, _ := config.Build()
	return logger
}
