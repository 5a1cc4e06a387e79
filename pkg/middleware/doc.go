// Package middleware provides the security middleware of the API: response
// hardening headers, client address resolution, per-IP rate limiting and bearer
// token authentication with scope checks.
//
// # Middleware Components
//
// SecurityHeaders: nosniff, frame denial, referrer and permissions policies,
// optional HSTS and Content-Security-Policy.
//
//	router.Use(middleware.SecurityHeaders(middleware.SecurityHeadersConfig{HSTS: true}))
//
// ClientIP: resolves the caller address once per request. Proxy headers are only
// honoured when TRUST_PROXY_HEADERS is set.
//
// RateLimitMiddleware: fixed per-minute and per-hour windows keyed by client IP.
// RateLimiter keeps the windows in memory; DistributedRateLimiter shares them
// through Redis and fails open when Redis is unavailable.
//
//	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{PerMinute: 1000, PerHour: 10000})
//	router.Use(middleware.NewRateLimitMiddleware(limiter, logger, metrics).Handler)
//
// AuthMiddleware: validates "Authorization: Bearer <jwt>" access tokens and puts the
// auth.Principal into the request context. RequireScope rejects principals without
// the scope with 403.
//
//	authn := middleware.NewAuthMiddleware(tokens, false, logger, metrics)
//	router.Handle("/filtros/", authn.Handler(authn.RequireScope(auth.ScopeFiltersWrite)(h)))
//
// # Related Packages
//
//   - pkg/auth: Token validation
//   - pkg/audit: Security events
package middleware
