// Package observability provides structured logging, Prometheus metrics, health
// checks, graceful shutdown and OpenTelemetry wiring for the filtros API.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("filter_id", 42).Info("Filter updated")
//
// Values stored under keys containing "password", "secret", "token" or
// "authorization" are replaced with ***REDACTED***, and long strings are
// truncated to 50 runes. SetLevel on the root logger changes the level of
// every derived logger, which lets the config watcher apply LOG_LEVEL live.
//
// # Prometheus Metrics
//
//	metrics := observability.NewMetrics(registry)
//	router.Use(observability.HTTPMetricsMiddleware(metrics))
//
// HTTP metrics are labelled with the mux route template, not the raw path.
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, redisClient, "API Filtros Vehiculares", version)
//	observability.RegisterHealthRoutes(healthMux, checker)
//
// A failed database makes the service unhealthy (503); a failed Redis only
// degrades it, since Redis backs the cache and the distributed rate limiter.
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{...}, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
package observability
