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

	"github.com/stitts-dev/feature-engine/internal/api"
	"github.com/stitts-dev/feature-engine/internal/api/handlers"
	"github.com/stitts-dev/feature-engine/internal/api/middleware"
	"github.com/stitts-dev/feature-engine/internal/features"
	"github.com/stitts-dev/feature-engine/internal/league"
	"github.com/stitts-dev/feature-engine/internal/providers"
	"github.com/stitts-dev/feature-engine/internal/services"
	"github.com/stitts-dev/feature-engine/pkg/config"
	"github.com/stitts-dev/feature-engine/pkg/database"
	"github.com/stitts-dev/feature-engine/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Initialize structured logger with service context
	structuredLogger := logger.InitLogger("info", cfg.IsDevelopment())
	logger.WithService("feature-engine").WithFields(logrus.Fields{
		"version":     "1.0.0",
		"environment": cfg.Env,
		"port":        cfg.Port,
	}).Info("Starting Feature Engine")

	// Setup Gin mode
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logger.WithService("feature-engine").Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Connect to Redis
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.WithService("feature-engine").Fatalf("Failed to parse Redis URL: %v", err)
	}
	redisClient := redis.NewClient(opt)
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.WithService("feature-engine").Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	cacheService := services.NewCacheService(redisClient)

	// Engine components: the registry and static dependency table are
	// validated before the first request is served.
	registry := features.DefaultRegistry()
	resolver := features.NewDefaultResolver()

	// External component evaluator: HTTP provider guarded by a rate
	// limiter and circuit breaker.
	statServer := providers.NewStatServerClient(
		cfg.EvaluatorURL,
		cfg.EvaluatorTimeout,
		cfg.EvaluatorRateLimit,
		structuredLogger,
	)
	evaluator := features.NewBreakerEvaluator(
		statServer,
		cfg.CircuitBreakerThreshold,
		cfg.EvaluatorTimeout,
		structuredLogger,
	)

	// League normalization
	leagueStore := league.NewStore(db, cacheService, cfg.LeagueCacheTTL, structuredLogger)
	refreshService := league.NewRefreshService(leagueStore, structuredLogger)

	if cfg.EnableScheduledRefresh && cfg.CurrentSeason != "" {
		if err := refreshService.StartScheduled(cfg.LeagueRefreshCron, cfg.CurrentSeason); err != nil {
			logger.WithService("feature-engine").Fatalf("Failed to start scheduled refresh: %v", err)
		}
		defer refreshService.Stop()
	}

	// Initialize router
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(middleware.CORS(cfg.CorsOrigins))

	apiV1 := router.Group("/api/v1")
	api.SetupRoutes(apiV1, resolver, registry, evaluator, leagueStore, refreshService, cacheService, cfg, structuredLogger)

	// Health check endpoints
	healthHandler := handlers.NewHealthHandler(db, cacheService, structuredLogger)
	router.GET("/health", healthHandler.GetHealth)
	router.HEAD("/health", healthHandler.GetHealth)
	router.GET("/ready", healthHandler.GetReady)
	router.HEAD("/ready", healthHandler.GetReady)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		logger.WithService("feature-engine").WithField("port", cfg.Port).Info("Feature engine started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithService("feature-engine").Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.WithService("feature-engine").Info("Shutting down feature engine...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithService("feature-engine").Fatalf("Feature engine forced to shutdown: %v", err)
	}

	logger.WithService("feature-engine").Info("Feature engine exited")
}
