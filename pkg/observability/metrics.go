package observability

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestSize     *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Security metrics
	RateLimitedTotal  *prometheus.CounterVec
	AuthFailuresTotal *prometheus.CounterVec

	// GraphQL metrics
	GraphQLOperationsTotal *prometheus.CounterVec
	GraphQLRejectedTotal   *prometheus.CounterVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Database metrics
	DBConnectionsOpen    prometheus.Gauge
	DBConnectionsInUse   prometheus.Gauge
	DBConnectionsIdle    prometheus.Gauge
	DBConnectionsWaiting prometheus.Gauge

	// Business metrics
	FiltersActive     prometheus.Gauge
	CategoriesActive  prometheus.Gauge
	FiltersByCategory *prometheus.GaugeVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filtros_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "filtros_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		HTTPRequestSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "filtros_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "route"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "filtros_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "route"},
		),

		RateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filtros_rate_limited_total",
				Help: "Requests rejected by the rate limiter",
			},
			[]string{"window"},
		),
		AuthFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filtros_auth_failures_total",
				Help: "Rejected authentication or authorization attempts",
			},
			[]string{"reason"},
		),

		GraphQLOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filtros_graphql_operations_total",
				Help: "Executed GraphQL operations",
			},
			[]string{"operation", "status"},
		),
		GraphQLRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filtros_graphql_rejected_total",
				Help: "GraphQL documents rejected before execution",
			},
			[]string{"reason"},
		),

		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filtros_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache_type", "key_type"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filtros_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache_type", "key_type"},
		),

		DBConnectionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "filtros_db_connections_open",
			Help: "Number of open database connections",
		}),
		DBConnectionsInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "filtros_db_connections_in_use",
			Help: "Number of database connections in use",
		}),
		DBConnectionsIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "filtros_db_connections_idle",
			Help: "Number of idle database connections",
		}),
		DBConnectionsWaiting: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "filtros_db_connections_wait_count",
			Help: "Total number of connections waited for",
		}),

		FiltersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "filtros_filters_active",
			Help: "Number of active filters in the catalogue",
		}),
		CategoriesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "filtros_categories_active",
			Help: "Number of active categories",
		}),
		FiltersByCategory: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "filtros_filters_by_category",
				Help: "Active filters per category",
			},
			[]string{"category"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestSize,
		m.HTTPResponseSize,
		m.RateLimitedTotal,
		m.AuthFailuresTotal,
		m.GraphQLOperationsTotal,
		m.GraphQLRejectedTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.DBConnectionsOpen,
		m.DBConnectionsInUse,
		m.DBConnectionsIdle,
		m.DBConnectionsWaiting,
		m.FiltersActive,
		m.CategoriesActive,
		m.FiltersByCategory,
	)

	return m
}

// RecordDBStats copies connection pool statistics into the DB gauges.
func (m *Metrics) RecordDBStats(stats sql.DBStats) {
	m.DBConnectionsOpen.Set(float64(stats.OpenConnections))
	m.DBConnectionsInUse.Set(float64(stats.InUse))
	m.DBConnectionsIdle.Set(float64(stats.Idle))
	m.DBConnectionsWaiting.Set(float64(stats.WaitCount))
}

// CacheHit implements the cache observer used by the storage cache.
func (m *Metrics) CacheHit(cacheType, keyType string) {
	m.CacheHitsTotal.WithLabelValues(cacheType, keyType).Inc()
}

// CacheMiss implements the cache observer used by the storage cache.
func (m *Metrics) CacheMiss(cacheType, keyType string) {
	m.CacheMissesTotal.WithLabelValues(cacheType, keyType).Inc()
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// routeLabel returns the mux path template so ids do not explode label cardinality.
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics.
// It is meant to be installed with mux.Router.Use.
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			route := routeLabel(r)

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			if r.ContentLength > 0 {
				metrics.HTTPRequestSize.WithLabelValues(r.Method, route).Observe(float64(r.ContentLength))
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(duration)
			metrics.HTTPResponseSize.WithLabelValues(r.Method, route).Observe(float64(rw.bytesWritten))
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
