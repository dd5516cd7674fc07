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
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/gridiron-projections/internal/api"
	"github.com/jstittsworth/gridiron-projections/internal/api/handlers"
	"github.com/jstittsworth/gridiron-projections/internal/api/middleware"
	"github.com/jstittsworth/gridiron-projections/internal/engine"
	"github.com/jstittsworth/gridiron-projections/internal/providers"
	"github.com/jstittsworth/gridiron-projections/internal/services"
	"github.com/jstittsworth/gridiron-projections/pkg/config"
	"github.com/jstittsworth/gridiron-projections/pkg/database"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Setup logging
	logger := logrus.StandardLogger()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL, cfg.DataDir, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Connect to Redis. The cache is optional: an unreachable Redis degrades
	// every cached read to the store instead of refusing to start.
	var redisClient *redis.Client
	if opt, err := redis.ParseURL(cfg.RedisURL); err != nil {
		logrus.Warnf("Invalid Redis URL, cache disabled: %v", err)
	} else {
		redisClient = redis.NewClient(opt)
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logrus.Warnf("Redis unreachable, cache disabled: %v", err)
			redisClient.Close()
			redisClient = nil
		}
		cancel()
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Initialize services
	cacheService := services.NewCacheService(redisClient, logger)
	wsHub := services.NewWebSocketHub(logger)
	go wsHub.Run()

	projectionEngine := engine.NewEngine(db, logger)

	// Stat provider and ingest are optional; without a usable provider the
	// admin sync endpoints report a precondition failure. The keyed provider
	// fails over to the public ESPN feed so an expired key degrades the sync
	// instead of stopping it.
	var provider services.StatProvider
	switch cfg.ProviderName {
	case "espn":
		provider = providers.NewESPNClient(cfg.ProviderRateLimit, cfg.ExternalAPITimeout, logger)
	default:
		if cfg.ProviderAPIKey != "" {
			sportsdata := providers.NewSportsDataClient(
				cfg.ProviderBaseURL, cfg.ProviderAPIKey,
				cfg.ProviderRateLimit, cfg.ExternalAPITimeout, logger)
			espn := providers.NewESPNClient(cfg.ProviderRateLimit, cfg.ExternalAPITimeout, logger)
			provider = providers.NewFailoverProvider(sportsdata, espn, logger)
		}
	}
	var ingest *services.IngestService
	if provider != nil {
		ingest = services.NewIngestService(db, provider, cacheService, logger)
	}

	refresher := services.NewRefresher(projectionEngine, ingest, cacheService, logger,
		cfg.CurrentSeason, cfg.SyncSchedule, cfg.RevalidateSchedule)
	if cfg.EnableBackgroundJobs {
		if err := refresher.Start(); err != nil {
			logrus.Errorf("Failed to start refresher: %v", err)
		}
		defer refresher.Stop()
	}

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(cfg.CorsOrigins))

	// Health endpoints at root level
	healthHandler := handlers.NewHealthHandler(db, cacheService, refresher)
	router.GET("/health", healthHandler.GetHealth)
	router.GET("/ready", healthHandler.GetReady)

	// Setup API routes under /api/v1
	apiV1 := router.Group("/api/v1")
	api.SetupRoutes(apiV1, db, cacheService, wsHub, cfg, projectionEngine, ingest, refresher)

	// Setup WebSocket endpoint at root level (not under /api/v1)
	wsHandler := handlers.NewWebSocketHandler(wsHub)
	router.GET("/ws", middleware.OptionalAuth(cfg.JWTSecret), wsHandler.HandleWebSocket)

	// Setup server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logrus.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}
