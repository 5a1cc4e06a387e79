package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/filtros/pkg/api"
	"github.com/platinummonkey/filtros/pkg/audit"
	"github.com/platinummonkey/filtros/pkg/catalog"
	"github.com/platinummonkey/filtros/pkg/config"
	"github.com/platinummonkey/filtros/pkg/jobs"
	"github.com/platinummonkey/filtros/pkg/middleware"
	"github.com/platinummonkey/filtros/pkg/observability"
	"github.com/platinummonkey/filtros/pkg/storage/cache"
)

const limiterCleanupSchedule = "@every 5m"

// serveOpenStore opens the database for serve.
var serveOpenStore = openStore

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		Long: `Runs the REST and GraphQL API on HOST:PORT and the health and metrics
server on HEALTH_PORT. Changes to the .env file are applied live for the log
level, rate limits and CORS origins.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return err
	}
	// once serving, the shutdown manager owns OTel and the audit log
	serving := false
	defer func() {
		if serving {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := observability.ShutdownOTel(shutdownCtx, providers, logger); err != nil {
			logger.WithError(err).Warn("OpenTelemetry shutdown failed")
		}
	}()

	store, err := serveOpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	redisClient, err := cache.NewRedisClient(ctx, cfg.Storage)
	if err != nil {
		// Redis only backs the L2 cache and the shared rate limiter
		logger.WithError(err).Warn("Redis unavailable, continuing with in-process cache and rate limiting")
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	var repo catalog.Repository = store
	if cfg.Storage.CacheEnabled {
		repo = cache.NewRepository(store, cache.New(cache.Options{
			Size:     cfg.Storage.L1CacheSize,
			TTL:      cfg.Storage.CacheTTL,
			Redis:    redisClient,
			Observer: metrics,
			Logger:   logger,
		}))
	}
	svc := catalog.NewService(repo, logger)

	tokens, err := newTokenManager(cfg)
	if err != nil {
		return err
	}

	limits := middleware.RateLimitConfig{PerMinute: cfg.Security.RateLimitPerMinute, PerHour: cfg.Security.RateLimitPerHour}
	limiter, cleaner := newLimiter(redisClient, limits)

	auditLogger, err := newAuditLogger(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if !serving {
			_ = auditLogger.Close()
		}
	}()

	server, err := api.NewServer(api.Dependencies{
		Catalog: svc,
		Tokens:  tokens,
		Limiter: limiter,
		Audit:   auditLogger,
		Logger:  logger,
		Metrics: metrics,
	}, api.Options{
		Version:           config.Version,
		Debug:             cfg.Observability.Debug,
		TrustProxyHeaders: cfg.Server.TrustProxyHeaders,
		MaxBodyBytes:      cfg.Server.MaxBodyBytes,
		CORSOrigins:       cfg.Security.CORSOrigins,
		SecurityHeaders:   middleware.SecurityHeadersConfig{HSTS: cfg.Security.HSTSEnabled, CSP: cfg.Security.CSPEnabled},
		Tracing:           cfg.Observability.OTelEnabled,
	})
	if err != nil {
		return err
	}

	apiServer := server.NewHTTPServer(net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout)
	healthServer := newHealthServer(cfg, store.DB(), redisClient, registry)

	collector := jobs.NewStatsCollector(svc, store.DB(), metrics)
	scheduler := jobs.NewScheduler(logger)
	if err := scheduler.Add(collector.Job(cfg.Observability.StatsRefreshSchedule)); err != nil {
		return err
	}
	if cleaner != nil {
		if err := scheduler.Add(jobs.CleanupJob("rate limiter cleanup", limiterCleanupSchedule, cleaner, logger)); err != nil {
			return err
		}
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, apiServer, healthServer)
	shutdown.RegisterShutdownFunc(scheduler.Stop)
	shutdown.RegisterShutdownFunc(func(context.Context) error { return auditLogger.Close() })
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error { return observability.ShutdownOTel(ctx, providers, logger) })

	serving = true
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("API server listening")
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("Health server listening")
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})

	if cfg.EnvFile != "" {
		watcher, err := config.NewWatcher(cfg.EnvFile, cfg, logger)
		if err != nil {
			logger.WithError(err).Warn("Configuration hot reload disabled")
		} else {
			watcher.OnChange(func(next *config.Config) { applyLiveConfig(logger, server, next) })
			g.Go(func() error { return watcher.Run(gctx) })
		}
	}

	scheduler.Start(gctx)
	// first refresh right away so the gauges are not empty until the first tick
	if err := collector.Refresh(gctx); err != nil {
		logger.WithError(err).Warn("Initial statistics refresh failed")
	}

	g.Go(func() error { return shutdown.WaitAndShutdown(gctx) })

	// the servers are down when Wait returns; the deferred closes release the stores
	err = g.Wait()
	logger.Info("Server stopped")
	return err
}

// newLimiter returns the Redis limiter when Redis is configured. The in-memory
// limiter is also returned as the Cleaner for its periodic cleanup job.
func newLimiter(client *redis.Client, limits middleware.RateLimitConfig) (middleware.Limiter, jobs.Cleaner) {
	if client != nil {
		return middleware.NewDistributedRateLimiter(client, limits, "filtros:ratelimit"), nil
	}
	rl := middleware.NewRateLimiter(limits)
	return rl, rl
}

func newAuditLogger(cfg *config.Config) (audit.Logger, error) {
	if cfg.Observability.AuditLogPath == "" {
		return audit.NewLogrusLogger(os.Stderr), nil
	}
	l, err := audit.NewFileLogger(cfg.Observability.AuditLogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	return l, nil
}

// newHealthServer serves the probes and, when enabled, /metrics on HEALTH_PORT.
func newHealthServer(cfg *config.Config, db *sql.DB, redisClient *redis.Client, registry *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	observability.RegisterHealthRoutes(mux, observability.NewHealthChecker(db, redisClient, api.ServiceName, config.Version))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(mux, registry)
	}
	return &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// applyLiveConfig pushes the settings that may change without a restart.
func applyLiveConfig(logger *observability.Logger, server *api.Server, cfg *config.Config) {
	logger.SetLevel(cfg.Observability.LogLevel)
	server.SetRateLimits(middleware.RateLimitConfig{
		PerMinute: cfg.Security.RateLimitPerMinute,
		PerHour:   cfg.Security.RateLimitPerHour,
	})
	server.SetCORSOrigins(cfg.Security.CORSOrigins)
	logger.WithFields(map[string]interface{}{
		"log_level":             cfg.Observability.LogLevel.String(),
		"rate_limit_per_minute": cfg.Security.RateLimitPerMinute,
		"rate_limit_per_hour":   cfg.Security.RateLimitPerHour,
		"cors_origins":          len(cfg.Security.CORSOrigins),
	}).Info("Live configuration applied")
}
