package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/platinummonkey/filtros/pkg/audit"
	"github.com/platinummonkey/filtros/pkg/auth"
	"github.com/platinummonkey/filtros/pkg/httputil"
	"github.com/platinummonkey/filtros/pkg/observability"
)

const (
	// InvalidTokenMessage is the detail of every 401 response
	InvalidTokenMessage = "Token inválido o expirado"
	// ForbiddenMessage is the detail of a 403 response
	ForbiddenMessage = "Permisos insuficientes"
)

// AuthMiddleware provides bearer token authentication
type AuthMiddleware struct {
	tokens   *auth.TokenManager
	optional bool // If true, allow requests without an Authorization header
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewAuthMiddleware creates a new authentication middleware. metrics may be nil.
func NewAuthMiddleware(tokens *auth.TokenManager, optional bool, logger *observability.Logger, metrics *observability.Metrics) *AuthMiddleware {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &AuthMiddleware{
		tokens:   tokens,
		optional: optional,
		logger:   logger.WithField("component", "auth"),
		metrics:  metrics,
	}
}

// Optional returns a copy that lets anonymous requests through. A token that is
// present must still be valid.
func (m *AuthMiddleware) Optional() *AuthMiddleware {
	cp := *m
	cp.optional = true
	return &cp
}

// bearerToken extracts the token of an "Authorization: Bearer <token>" header
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			m.unauthorized(w, r, "missing_token")
			return
		}

		token, ok := bearerToken(header)
		if !ok {
			m.unauthorized(w, r, "malformed_header")
			return
		}

		principal, err := m.tokens.Validate(token, auth.TokenTypeAccess)
		if err != nil {
			m.unauthorized(w, r, failureReason(err))
			return
		}

		ctx := auth.WithPrincipal(r.Context(), principal)
		ctx = observability.WithSubject(ctx, principal.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireScope rejects requests whose principal lacks scope. It must run after Handler.
func (m *AuthMiddleware) RequireScope(scope auth.Scope) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := auth.PrincipalFrom(r.Context())
			if principal == nil {
				m.unauthorized(w, r, "missing_token")
				return
			}
			if !principal.HasScope(scope) {
				m.forbidden(w, r, scope)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Protect is Handler followed by RequireScope
func (m *AuthMiddleware) Protect(scope auth.Scope, next http.Handler) http.Handler {
	return m.Handler(m.RequireScope(scope)(next))
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "expired"
	case errors.Is(err, auth.ErrWrongTokenType):
		return "wrong_type"
	default:
		return "invalid"
	}
}

func (m *AuthMiddleware) unauthorized(w http.ResponseWriter, r *http.Request, reason string) {
	ctx := r.Context()
	if m.metrics != nil {
		m.metrics.AuthFailuresTotal.WithLabelValues(reason).Inc()
	}
	m.logger.WithFields(map[string]interface{}{
		"reason":    reason,
		"client_ip": ClientIPFromRequest(r),
		"path":      r.URL.Path,
	}).Warn("Authentication failed")
	_ = audit.FromContext(ctx).Log(ctx, &audit.AuditEvent{
		EventType:    audit.EventTypeAuthTokenValidateFail,
		Status:       audit.EventStatusFailure,
		ResourceType: audit.ResourceTypeToken,
		Method:       r.Method,
		Path:         r.URL.Path,
		IPAddress:    ClientIPFromRequest(r),
		Message:      "authentication failed",
		Metadata:     map[string]interface{}{"reason": reason},
	})
	httputil.WriteUnauthorized(w, InvalidTokenMessage)
}

func (m *AuthMiddleware) forbidden(w http.ResponseWriter, r *http.Request, scope auth.Scope) {
	ctx := r.Context()
	if m.metrics != nil {
		m.metrics.AuthFailuresTotal.WithLabelValues("forbidden").Inc()
	}
	m.logger.WithFields(map[string]interface{}{
		"scope": string(scope),
		"path":  r.URL.Path,
	}).Warn("Access denied")
	_ = audit.FromContext(ctx).Log(ctx, &audit.AuditEvent{
		EventType: audit.EventTypeAuthzAccessDenied,
		Status:    audit.EventStatusDenied,
		Method:    r.Method,
		Path:      r.URL.Path,
		IPAddress: ClientIPFromRequest(r),
		Message:   "missing scope " + string(scope),
	})
	httputil.WriteForbidden(w, ForbiddenMessage)
}
