package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/filtros/pkg/audit"
	"github.com/platinummonkey/filtros/pkg/auth"
	"github.com/platinummonkey/filtros/pkg/httputil"
	"github.com/platinummonkey/filtros/pkg/middleware"
	"github.com/platinummonkey/filtros/pkg/observability"
)

// RefreshRequest is the body of POST /auth/refresh
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AuthHandlers exchanges refresh tokens for new access tokens.
type AuthHandlers struct {
	handlerBase
	tokens  *auth.TokenManager
	metrics *observability.Metrics
}

// RegisterRoutes registers the token routes
func (h *AuthHandlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/auth/refresh", h.refresh).Methods(http.MethodPost)
}

func (h *AuthHandlers) refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	ctx := r.Context()
	if req.RefreshToken == "" {
		httputil.WriteBadRequest(w, "refresh_token es obligatorio")
		return
	}

	pair, principal, err := h.tokens.Refresh(req.RefreshToken)
	if err != nil {
		reason := "invalid"
		switch {
		case errors.Is(err, auth.ErrExpiredToken):
			reason = "expired"
		case errors.Is(err, auth.ErrWrongTokenType):
			reason = "wrong_type"
		}
		if h.metrics != nil {
			h.metrics.AuthFailuresTotal.WithLabelValues("refresh_" + reason).Inc()
		}
		h.log(r).WithField("reason", reason).Warn("Token refresh rejected")
		_ = audit.FromContext(ctx).LogAuthentication(ctx, audit.EventTypeAuthTokenRefresh, audit.EventStatusFailure, "refresh rejected: "+reason)
		httputil.WriteUnauthorized(w, middleware.InvalidTokenMessage)
		return
	}

	ctx = observability.WithSubject(ctx, principal.Subject)
	_ = audit.FromContext(ctx).LogAuthentication(ctx, audit.EventTypeAuthTokenRefresh, audit.EventStatusSuccess, "access token refreshed")
	h.ok(w, r, http.StatusOK, pair)
}
