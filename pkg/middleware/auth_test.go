package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/filtros/pkg/audit"
	"github.com/platinummonkey/filtros/pkg/auth"
	"github.com/platinummonkey/filtros/pkg/observability"
)

func newTokens(t *testing.T) *auth.TokenManager {
	t.Helper()
	tm, err := auth.NewTokenManager(auth.Config{
		Secret:    "middleware-test-secret-with-enough-entropy",
		Issuer:    "filtros",
		AccessTTL: time.Minute,
	})
	require.NoError(t, err)
	return tm
}

func principalEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := auth.PrincipalFrom(r.Context())
		if p == nil {
			_, _ = w.Write([]byte("anonymous"))
			return
		}
		_, _ = w.Write([]byte(p.Subject))
	})
}

func TestAuthMiddleware(t *testing.T) {
	tm := newTokens(t)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	mw := NewAuthMiddleware(tm, false, nil, metrics)
	h := mw.Handler(principalEcho())

	access, err := tm.IssueAccessToken("inventario", []auth.Scope{auth.ScopeFiltersWrite})
	require.NoError(t, err)
	refresh, err := tm.IssueRefreshToken("inventario", nil)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		body   string
		reason string
	}{
		{"valid", "Bearer " + access, http.StatusOK, "inventario", ""},
		{"lowercase scheme", "bearer " + access, http.StatusOK, "inventario", ""},
		{"missing", "", http.StatusUnauthorized, "", "missing_token"},
		{"basic scheme", "Basic abc", http.StatusUnauthorized, "", "malformed_header"},
		{"garbage", "Bearer secreto123", http.StatusUnauthorized, "", "invalid"},
		{"refresh token", "Bearer " + refresh, http.StatusUnauthorized, "", "wrong_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/filtros/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, tt.body, w.Body.String())
				return
			}
			assert.JSONEq(t, `{"detail":"Token inválido o expirado"}`, w.Body.String())
			assert.GreaterOrEqual(t, promtestutil.ToFloat64(metrics.AuthFailuresTotal.WithLabelValues(tt.reason)), float64(1))
		})
	}
}

func TestAuthMiddlewareOptional(t *testing.T) {
	tm := newTokens(t)
	h := NewAuthMiddleware(tm, false, nil, nil).Optional().Handler(principalEcho())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/graphql", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "anonymous", w.Body.String())

	r := httptest.NewRequest(http.MethodPost, "/graphql", nil)
	r.Header.Set("Authorization", "Bearer nope")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireScope(t *testing.T) {
	tm := newTokens(t)
	mw := NewAuthMiddleware(tm, false, nil, nil)
	h := mw.Protect(auth.ScopeCategoriesWrite, principalEcho())

	var auditBuf bytes.Buffer
	auditLog := audit.NewLogrusLogger(&auditBuf)
	withAudit := audit.NewMiddleware(auditLog, false).Handler(h)

	writer, err := tm.IssueAccessToken("catalogo", []auth.Scope{auth.ScopeCategoriesWrite})
	require.NoError(t, err)
	reader, err := tm.IssueAccessToken("lector", []auth.Scope{auth.ScopeStatsRead})
	require.NoError(t, err)
	admin, err := tm.IssueAccessToken("admin", []auth.Scope{auth.ScopeAll})
	require.NoError(t, err)

	serve := func(token string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/filtros/categorias/", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		withAudit.ServeHTTP(w, r)
		return w
	}

	assert.Equal(t, http.StatusOK, serve(writer).Code)
	assert.Equal(t, http.StatusOK, serve(admin).Code)

	w := serve(reader)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"detail":"Permisos insuficientes"}`, w.Body.String())
	assert.True(t, strings.Contains(auditBuf.String(), `"event_type":"authz.access_denied"`))
	assert.True(t, strings.Contains(auditBuf.String(), `"subject":"lector"`))
}

func TestRequireScopeWithoutPrincipal(t *testing.T) {
	mw := NewAuthMiddleware(newTokens(t), false, nil, nil)
	h := mw.RequireScope(auth.ScopeFiltersWrite)(principalEcho())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/filtros/1", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
