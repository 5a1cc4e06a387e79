package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/filtros/pkg/audit"
	"github.com/platinummonkey/filtros/pkg/auth"
	"github.com/platinummonkey/filtros/pkg/catalog"
	"github.com/platinummonkey/filtros/pkg/httputil"
	"github.com/platinummonkey/filtros/pkg/middleware"
)

// FilterDeletedMessage is the body of a successful DELETE /filtros/{id}
const FilterDeletedMessage = "Filtro eliminado correctamente"

// FilterHandlers serves the /filtros product routes.
type FilterHandlers struct {
	handlerBase
	svc  *catalog.Service
	auth *middleware.AuthMiddleware
}

// RegisterRoutes registers the filter routes. Writes need filters:write and
// statistics need stats:read.
func (h *FilterHandlers) RegisterRoutes(r *mux.Router) {
	handleCollection(r, "/filtros", http.HandlerFunc(h.listFilters), http.MethodGet)
	handleCollection(r, "/filtros", h.auth.Protect(auth.ScopeFiltersWrite, http.HandlerFunc(h.createFilter)), http.MethodPost)

	r.HandleFunc("/filtros/opciones-vehiculo", h.vehicleOptions).Methods(http.MethodGet)
	r.Handle("/filtros/estadisticas", h.auth.Protect(auth.ScopeStatsRead, http.HandlerFunc(h.statistics))).Methods(http.MethodGet)
	r.HandleFunc("/filtros/codigo-producto/{codigo}", h.getFilterByCode).Methods(http.MethodGet)

	r.HandleFunc("/filtros/{id:[0-9]+}", h.getFilter).Methods(http.MethodGet)
	r.Handle("/filtros/{id:[0-9]+}", h.auth.Protect(auth.ScopeFiltersWrite, http.HandlerFunc(h.updateFilter))).Methods(http.MethodPut)
	r.Handle("/filtros/{id:[0-9]+}", h.auth.Protect(auth.ScopeFiltersWrite, http.HandlerFunc(h.patchFilter))).Methods(http.MethodPatch)
	r.Handle("/filtros/{id:[0-9]+}", h.auth.Protect(auth.ScopeFiltersWrite, http.HandlerFunc(h.deleteFilter))).Methods(http.MethodDelete)
}

// handleCollection registers path with and without the trailing slash.
func handleCollection(r *mux.Router, path string, h http.Handler, methods ...string) {
	r.Handle(path, h).Methods(methods...)
	r.Handle(path+"/", h).Methods(methods...)
}

// optionalID reads an optional positive id from the query string. Zero means absent.
func optionalID(r *http.Request, key string) (int64, error) {
	if !r.URL.Query().Has(key) {
		return 0, nil
	}
	id, err := strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
	if err != nil || id < 1 {
		return 0, catalog.ValidateID(key, 0)
	}
	return id, nil
}

func (h *FilterHandlers) listFilters(w http.ResponseWriter, r *http.Request) {
	skip, err := httputil.ParseQueryInt(r, "skip", 0)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	limit, err := httputil.ParseQueryInt(r, "limit", catalog.DefaultPageSize)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	categoryID, err := optionalID(r, "categoria_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	distributorID, err := optionalID(r, "distribuidor_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	q := r.URL.Query()
	page, err := h.svc.ListFilters(r.Context(), catalog.FilterQuery{
		Skip:          skip,
		Limit:         limit,
		CategoryID:    categoryID,
		DistributorID: distributorID,
		Vehicle: catalog.VehicleCriteria{
			VehicleType: q.Get("tipo_vehiculo"),
			OilType:     q.Get("tipo_aceite"),
			FuelType:    q.Get("tipo_combustible"),
			FilterType:  q.Get("tipo_filtro"),
		},
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, page)
}

func (h *FilterHandlers) getFilter(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	f, err := h.svc.GetFilter(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, f)
}

func (h *FilterHandlers) getFilterByCode(w http.ResponseWriter, r *http.Request) {
	f, err := h.svc.GetFilterByCode(r.Context(), mux.Vars(r)["codigo"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, f)
}

func (h *FilterHandlers) createFilter(w http.ResponseWriter, r *http.Request) {
	var in catalog.FilterInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}
	f, err := h.svc.CreateFilter(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx := r.Context()
	_ = audit.FromContext(ctx).LogDataMutation(ctx, audit.EventTypeDataFilterCreate, audit.ResourceTypeFilter,
		strconv.FormatInt(f.ID, 10), &audit.ChangeDetails{After: filterSnapshot(f)}, "filter created")
	h.ok(w, r, http.StatusCreated, f)
}

func (h *FilterHandlers) updateFilter(w http.ResponseWriter, r *http.Request) {
	h.modifyFilter(w, r, h.svc.UpdateFilter)
}

func (h *FilterHandlers) patchFilter(w http.ResponseWriter, r *http.Request) {
	h.modifyFilter(w, r, h.svc.PatchFilter)
}

type filterUpdater func(ctx context.Context, id int64, patch catalog.FilterPatch) (*catalog.Filter, error)

func (h *FilterHandlers) modifyFilter(w http.ResponseWriter, r *http.Request, update filterUpdater) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var patch catalog.FilterPatch
	if !httputil.ParseJSONOrError(w, r, &patch) {
		return
	}

	ctx := r.Context()
	before, err := h.svc.GetFilter(ctx, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	f, err := update(ctx, id, patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	_ = audit.FromContext(ctx).LogDataMutation(ctx, audit.EventTypeDataFilterUpdate, audit.ResourceTypeFilter,
		strconv.FormatInt(id, 10),
		&audit.ChangeDetails{Before: filterSnapshot(before), After: filterSnapshot(f)},
		"filter updated")
	h.ok(w, r, http.StatusOK, f)
}

func (h *FilterHandlers) deleteFilter(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	ctx := r.Context()
	if err := h.svc.DeleteFilter(ctx, id); err != nil {
		h.fail(w, r, err)
		return
	}

	_ = audit.FromContext(ctx).LogDataMutation(ctx, audit.EventTypeDataFilterDelete, audit.ResourceTypeFilter,
		strconv.FormatInt(id, 10), nil, "filter deleted")
	h.ok(w, r, http.StatusOK, httputil.MessageResponse{Message: FilterDeletedMessage})
}

func (h *FilterHandlers) vehicleOptions(w http.ResponseWriter, r *http.Request) {
	h.ok(w, r, http.StatusOK, h.svc.VehicleFilterOptions())
}

func (h *FilterHandlers) statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.FilterStatistics(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, stats)
}

func filterSnapshot(f *catalog.Filter) map[string]interface{} {
	if f == nil {
		return nil
	}
	return map[string]interface{}{
		"codigo_producto": f.ProductCode,
		"nombre_filtro":   f.Name,
		"marca":           f.Brand,
		"id_categoria":    f.CategoryID,
		"stock":           f.Stock,
		"precio_compra":   f.PurchasePrice,
		"precio_venta":    f.SalePrice,
	}
}
