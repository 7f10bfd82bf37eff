// Package main is the entry point of the Sponte dashboard backend.
//
// The service is a caching read layer between the dashboard front end and
// the Sponte school-management API: it authenticates against Sponte, walks
// paginated endpoints, caches responses with a short TTL, and serves the
// filtered views the dashboard renders.
//
// The architecture follows Clean Architecture and DDD:
// - Domain: school and finance records, no external dependencies
// - Application: query handlers over the cache
// - Infrastructure: Sponte API client, memory/Redis cache stores
// - Interface: HTTP endpoints for the front end
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sponte-hub/sponte-dashboard/config"
	"github.com/sponte-hub/sponte-dashboard/internal/application/query"
	"github.com/sponte-hub/sponte-dashboard/internal/infrastructure/cache"
	"github.com/sponte-hub/sponte-dashboard/internal/infrastructure/external/sponte"
	httpserver "github.com/sponte-hub/sponte-dashboard/internal/interface/http"
	"github.com/sponte-hub/sponte-dashboard/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.New(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	log.Info("starting sponte dashboard",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"debug", cfg.App.Debug,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. CACHE STORE (Redis when enabled, otherwise in-memory)
	// ─────────────────────────────────────────────────────────────────────────
	var store cache.Store
	if cfg.Redis.Enabled {
		log.Info("connecting to Redis...")
		redisStore, err := cache.NewRedisStoreFromURL(ctx, cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer func() {
			log.Info("closing Redis connection...")
			_ = redisStore.Close()
		}()
		store = redisStore
		log.Info("Redis connection established")
	} else {
		store = cache.NewMemoryStore()
		log.Info("using in-memory cache store")
	}

	responseCache := cache.New(store, cfg.Cache.TTL, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 4. SPONTE API CLIENT
	// ─────────────────────────────────────────────────────────────────────────
	clientConfig := sponte.DefaultClientConfig(cfg.Sponte.BaseURL)
	clientConfig.Login = cfg.Sponte.Login
	clientConfig.Password = cfg.Sponte.Password
	clientConfig.ClientCode = cfg.Sponte.ClientCode
	clientConfig.Timeout = cfg.Sponte.RequestTimeout
	clientConfig.MaxPages = cfg.Sponte.MaxPages
	clientConfig.RetryConfig = sponte.RetryConfig{
		MaxAttempts: cfg.Sponte.MaxAttempts,
		BaseDelay:   cfg.Sponte.RetryBaseDelay,
		MaxDelay:    cfg.Sponte.RetryMaxDelay,
	}
	clientConfig.RateLimiterConfig = sponte.RateLimiterConfig{
		RequestsPerSecond: cfg.Sponte.RateLimit,
		BurstSize:         cfg.Sponte.RateLimitBurst,
	}
	clientConfig.CircuitBreakerConfig = sponte.CircuitBreakerConfig{
		FailureThreshold:    cfg.Sponte.CircuitBreakerThreshold,
		SuccessThreshold:    2,
		Timeout:             cfg.Sponte.CircuitBreakerTimeout,
		HalfOpenMaxRequests: cfg.Sponte.CircuitBreakerHalfOpenMax,
	}
	clientConfig.Logger = log
	clientConfig.Debug = cfg.App.Debug

	client := sponte.NewClient(clientConfig)

	// ─────────────────────────────────────────────────────────────────────────
	// 5. APPLICATION LAYER (query handlers)
	// ─────────────────────────────────────────────────────────────────────────
	ttl := cfg.Cache.TTL
	queries := httpserver.Queries{
		ListClasses:         query.NewListClassesHandler(client, responseCache, ttl),
		ListActiveStudents:  query.NewListActiveStudentsHandler(client, responseCache, ttl),
		ListLessons:         query.NewListLessonsHandler(client, responseCache, ttl),
		ListClassFinancials: query.NewListClassFinancialsHandler(client, responseCache, ttl),
		GetCashFlow:         query.NewGetCashFlowHandler(client, responseCache, ttl),
		GetFinancialSummary: query.NewGetFinancialSummaryHandler(client, responseCache, ttl),
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	serverConfig := httpserver.DefaultConfig()
	serverConfig.Host = cfg.HTTP.Host
	serverConfig.Port = cfg.HTTP.Port
	serverConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	serverConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	serverConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	serverConfig.Debug = cfg.App.Debug

	server := httpserver.NewServer(serverConfig, queries, log)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 7. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return err
		}
		return nil
	case <-ctx.Done():
		log.Info("context cancelled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Info("shutdown complete", "uptime_check", time.Now().UTC().Format(time.RFC3339))
	return nil
}
