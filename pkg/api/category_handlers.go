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

// CategoryDeletedMessage is the body of a successful category DELETE
const CategoryDeletedMessage = "Categoría eliminada correctamente"

// CategoryHandlers serves /filtros/categorias.
type CategoryHandlers struct {
	handlerBase
	svc  *catalog.Service
	auth *middleware.AuthMiddleware
}

// RegisterRoutes registers the category routes
func (h *CategoryHandlers) RegisterRoutes(r *mux.Router) {
	handleCollection(r, "/filtros/categorias", http.HandlerFunc(h.listCategories), http.MethodGet)
	handleCollection(r, "/filtros/categorias", h.auth.Protect(auth.ScopeCategoriesWrite, http.HandlerFunc(h.createCategory)), http.MethodPost)

	r.HandleFunc("/filtros/categorias/buscar", h.searchCategories).Methods(http.MethodGet)
	r.Handle("/filtros/categorias/estadisticas", h.auth.Protect(auth.ScopeStatsRead, http.HandlerFunc(h.statistics))).Methods(http.MethodGet)

	r.HandleFunc("/filtros/categorias/{id:[0-9]+}", h.getCategory).Methods(http.MethodGet)
	r.Handle("/filtros/categorias/{id:[0-9]+}", h.auth.Protect(auth.ScopeCategoriesWrite, http.HandlerFunc(h.updateCategory))).Methods(http.MethodPut)
	r.Handle("/filtros/categorias/{id:[0-9]+}", h.auth.Protect(auth.ScopeCategoriesWrite, http.HandlerFunc(h.deleteCategory))).Methods(http.MethodDelete)
}

func (h *CategoryHandlers) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.ListCategories(r.Context(), httputil.ParseQueryString(r, "tipo", ""))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, categories)
}

func (h *CategoryHandlers) searchCategories(w http.ResponseWriter, r *http.Request) {
	limit, err := httputil.ParseQueryInt(r, "limit", catalog.DefaultSearchResults)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	categories, err := h.svc.SearchCategories(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, categories)
}

func (h *CategoryHandlers) statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.CategoryStatistics(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, stats)
}

func (h *CategoryHandlers) getCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	c, err := h.svc.GetCategory(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, r, http.StatusOK, c)
}

func (h *CategoryHandlers) createCategory(w http.ResponseWriter, r *http.Request) {
	var in catalog.CategoryInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}
	ctx := r.Context()
	c, err := h.svc.CreateCategory(ctx, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	_ = audit.FromContext(ctx).LogDataMutation(ctx, audit.EventTypeDataCategoryCreate, audit.ResourceTypeCategory,
		strconv.FormatInt(c.ID, 10), &audit.ChangeDetails{After: categorySnapshot(c)}, "category created")
	h.ok(w, r, http.StatusCreated, c)
}

func (h *CategoryHandlers) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var in catalog.CategoryInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	ctx := r.Context()
	before, err := h.svc.GetCategory(ctx, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.svc.UpdateCategory(ctx, id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	_ = audit.FromContext(ctx).LogDataMutation(ctx, audit.EventTypeDataCategoryUpdate, audit.ResourceTypeCategory,
		strconv.FormatInt(id, 10),
		&audit.ChangeDetails{Before: categorySnapshot(before), After: categorySnapshot(c)},
		"category updated")
	h.ok(w, r, http.StatusOK, c)
}

func (h *CategoryHandlers) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	ctx := r.Context()
	if err := h.svc.DeleteCategory(ctx, id); err != nil {
		h.fail(w, r, err)
		return
	}

	_ = audit.FromContext(ctx).LogDataMutation(ctx, audit.EventTypeDataCategoryDelete, audit.ResourceTypeCategory,
		strconv.FormatInt(id, 10), nil, "category deleted")
	h.ok(w, r, http.StatusOK, httputil.MessageResponse{Message: CategoryDeletedMessage})
}

func categorySnapshot(c *catalog.Category) map[string]interface{} {
	if c == nil {
		return nil
	}
	return map[string]interface{}{
		"nombre":      c.Name,
		"descripcion": c.Description,
		"tipo":        c.Type,
	}
}
