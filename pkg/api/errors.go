package api

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/filtros/pkg/catalog"
	"github.com/platinummonkey/filtros/pkg/httputil"
	"github.com/platinummonkey/filtros/pkg/observability"
)

// handlerBase carries what every handler group needs to answer errors.
type handlerBase struct {
	logger *observability.Logger
	debug  bool
}

func (b handlerBase) log(r *http.Request) *observability.Logger {
	l := b.logger
	if id := observability.GetRequestID(r.Context()); id != "" {
		l = l.WithField("request_id", id)
	}
	return l
}

// fail maps service errors onto status codes:
// validation 400, not found 404, conflict 409, anything else 500.
func (b handlerBase) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *catalog.ValidationError
		ce *catalog.ConflictError
		nf *catalog.NotFoundError
	)
	switch {
	case errors.As(err, &ve):
		httputil.WriteBadRequest(w, ve.Message)
	case errors.As(err, &nf):
		httputil.WriteNotFound(w, nf.Message)
	case errors.Is(err, catalog.ErrNotFound):
		httputil.WriteNotFound(w, "Recurso no encontrado")
	case errors.As(err, &ce):
		httputil.WriteConflict(w, ce.Message)
	default:
		b.log(r).WithError(err).WithFields(map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("Request failed")
		httputil.WriteInternalError(w, err, b.debug)
	}
}

func (b handlerBase) ok(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	if err := httputil.WriteJSON(w, status, v); err != nil {
		b.log(r).WithError(err).Warn("Failed to write response")
	}
}
