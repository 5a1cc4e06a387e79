package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/filtros/pkg/audit"
	"github.com/platinummonkey/filtros/pkg/auth"
	"github.com/platinummonkey/filtros/pkg/catalog"
	"github.com/platinummonkey/filtros/pkg/graphql"
	"github.com/platinummonkey/filtros/pkg/httputil"
	"github.com/platinummonkey/filtros/pkg/middleware"
	"github.com/platinummonkey/filtros/pkg/observability"
)

// ServiceName is reported by / and /health.
const ServiceName = "API Filtros Vehiculares"

// Options configures the HTTP surface.
type Options struct {
	Version           string
	Debug             bool
	TrustProxyHeaders bool
	MaxBodyBytes      int64
	CORSOrigins       []string
	SecurityHeaders   middleware.SecurityHeadersConfig

	// LogAllRequests writes every request to the audit trail, not only mutations and errors
	LogAllRequests bool

	// Tracing wraps the handler with otelhttp
	Tracing bool
}

// Dependencies are the collaborators of the server. Metrics may be nil.
type Dependencies struct {
	Catalog *catalog.Service
	Tokens  *auth.TokenManager
	Limiter middleware.Limiter
	Audit   audit.Logger
	Logger  *observability.Logger
	Metrics *observability.Metrics
}

// Server represents our API server
type Server struct {
	router  *mux.Router
	handler http.Handler
	opts    Options
	deps    Dependencies
	cors    *httputil.CORS
	auth    *middleware.AuthMiddleware
	graphql *graphql.Handler
}

// NewServer creates a new API server
func NewServer(deps Dependencies, opts Options) (*Server, error) {
	if deps.Catalog == nil {
		return nil, errors.New("api: catalog service is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("api: token manager is required")
	}
	if deps.Logger == nil {
		deps.Logger = observability.NopLogger()
	}
	if deps.Audit == nil {
		deps.Audit = audit.NoopLogger{}
	}
	if deps.Limiter == nil {
		deps.Limiter = middleware.NewRateLimiter(middleware.DefaultRateLimitConfig())
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}

	gql, err := graphql.NewHandler(deps.Catalog, deps.Logger, deps.Metrics)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:  mux.NewRouter(),
		opts:    opts,
		deps:    deps,
		cors:    httputil.NewCORS(opts.CORSOrigins),
		auth:    middleware.NewAuthMiddleware(deps.Tokens, false, deps.Logger, deps.Metrics),
		graphql: gql,
	}
	s.setupRoutes()
	s.handler = s.buildHandler()
	return s, nil
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	base := handlerBase{logger: s.deps.Logger.WithField("component", "api"), debug: s.opts.Debug}

	if s.deps.Metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(s.deps.Metrics))
	}

	s.router.HandleFunc("/", s.root).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.health).Methods(http.MethodGet)

	(&FilterHandlers{handlerBase: base, svc: s.deps.Catalog, auth: s.auth}).RegisterRoutes(s.router)
	(&CategoryHandlers{handlerBase: base, svc: s.deps.Catalog, auth: s.auth}).RegisterRoutes(s.router)
	(&DistributorHandlers{handlerBase: base, svc: s.deps.Catalog, auth: s.auth}).RegisterRoutes(s.router)
	(&AuthHandlers{handlerBase: base, tokens: s.deps.Tokens, metrics: s.deps.Metrics}).RegisterRoutes(s.router)

	// anonymous queries are allowed; mutations check the principal themselves
	s.router.Handle("/graphql", s.auth.Optional().Handler(s.graphql)).Methods(http.MethodPost)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFound(w, "Not Found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorMessage(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
}

// buildHandler wraps the router with the middleware stack, outermost first.
func (s *Server) buildHandler() http.Handler {
	logger := s.deps.Logger
	chain := httputil.Chain(
		httputil.RecoveryMiddleware(logger, s.opts.Debug),
		httputil.RequestIDMiddleware,
		middleware.ClientIP(s.opts.TrustProxyHeaders),
		audit.NewMiddleware(s.deps.Audit, s.opts.LogAllRequests).Handler,
		middleware.SecurityHeaders(s.opts.SecurityHeaders),
		s.cors.Handler,
		httputil.LoggingMiddleware(logger),
		middleware.NewRateLimitMiddleware(s.deps.Limiter, logger, s.deps.Metrics).Handler,
		httputil.MaxBytesMiddleware(s.opts.MaxBodyBytes),
		httputil.ContentTypeMiddleware,
	)
	h := chain(s.router)
	if s.opts.Tracing {
		h = otelhttp.NewHandler(h, "filtros-api")
	}
	return h
}

// Handler returns the HTTP handler with every middleware applied.
func (s *Server) Handler() http.Handler { return s.handler }

// Router exposes the bare router, mostly for tests.
func (s *Server) Router() *mux.Router { return s.router }

// SetCORSOrigins replaces the CORS allow-list without a restart.
func (s *Server) SetCORSOrigins(origins []string) { s.cors.SetOrigins(origins) }

// SetRateLimits replaces the rate limits without a restart.
func (s *Server) SetRateLimits(cfg middleware.RateLimitConfig) { s.deps.Limiter.SetConfig(cfg) }

// NewHTTPServer wraps the server handler in an *http.Server with the given timeouts.
func (s *Server) NewHTTPServer(addr string, read, write, idle time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadTimeout:       read,
		ReadHeaderTimeout: read,
		WriteTimeout:      write,
		IdleTimeout:       idle,
	}
}
