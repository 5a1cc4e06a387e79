package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/filtros/pkg/audit"
	"github.com/platinummonkey/filtros/pkg/auth"
	"github.com/platinummonkey/filtros/pkg/catalog"
	"github.com/platinummonkey/filtros/pkg/httputil"
	"github.com/platinummonkey/filtros/pkg/middleware"
)

// DistributorHandlers serves /filtros/distribuidores.
type DistributorHandlers struct {
	handlerBase
	svc  *catalog.Service
	auth *middleware.AuthMiddleware
}

// RegisterRoutes registers the distributor routes
func (h *DistributorHandlers) RegisterRoutes(r *mux.Router) {
	handleCollection(r, "/filtros/distribuidores", http.HandlerFunc(h.listDistributors), http.MethodGet)
	handleCollection(r, "/filtros/distribuidores", h.auth.Protect(auth.ScopeDistributorsWrite, http.HandlerFunc(h.createDistributor)), http.MethodPost)
	r.HandleFunc("/filtros/distribuidores/{id:[0-9]+}", h.getDistributor).Methods(http.MethodGet)
}

func (h *DistributorHandlers) listDistributors(w http.ResponseWriter, r *http.Request) {
	ds, err := h.svc.ListDistributors(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, ds)
}

func (h *DistributorHandlers) getDistributor(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	d, err := h.svc.GetDistributor(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, d)
}

func (h *DistributorHandlers) createDistributor(w http.ResponseWriter, r *http.Request) {
	var in catalog.DistributorInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}
	ctx := r.Context()
	d, err := h.svc.CreateDistributor(ctx, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	_ = audit.FromContext(ctx).LogDataMutation(ctx, audit.EventTypeDataDistributorCreate, audit.ResourceTypeDistributor,
		strconv.FormatInt(d.ID, 10),
		&audit.ChangeDetails{After: map[string]interface{}{"nombre": d.Name, "rut": d.RUT}},
		"distributor created")
	h.ok(w, r, http.StatusCreated, d)
}
