package api

import (
	"net/http"

	"github.com/platinummonkey/filtros/pkg/auth"
	"github.com/platinummonkey/filtros/pkg/httputil"
)

// RootResponse describes the service on GET /. It never carries credentials.
type RootResponse struct {
	Message        string            `json:"message"`
	Version        string            `json:"version"`
	Features       []string          `json:"caracteristicas"`
	Endpoints      map[string]string `json:"endpoints"`
	GraphQL        string            `json:"graphql"`
	Authentication AuthDescription   `json:"autenticacion"`
}

// AuthDescription tells clients how to authenticate.
type AuthDescription struct {
	Method string   `json:"metodo"`
	Header string   `json:"cabecera"`
	Scopes []string `json:"scopes"`
	Issue  string   `json:"emision"`
}

// HealthResponse is the static body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	scopes := make([]string, 0, len(auth.KnownScopes()))
	for _, sc := range auth.KnownScopes() {
		scopes = append(scopes, string(sc))
	}

	_ = httputil.WriteJSON(w, http.StatusOK, RootResponse{
		Message: "API de Filtros - Sistema Vehicular",
		Version: s.opts.Version,
		Features: []string{
			"Catálogo de filtros con paginación",
			"Búsqueda por tipo de vehículo, aceite, combustible y filtro",
			"Cálculo automático de precios con margen e IVA",
			"GraphQL con límites de profundidad y complejidad",
			"Límite de peticiones por IP",
		},
		Endpoints: map[string]string{
			"filtros":        "/filtros",
			"categorias":     "/filtros/categorias",
			"distribuidores": "/filtros/distribuidores",
			"opciones":       "/filtros/opciones-vehiculo",
			"estadisticas":   "/filtros/estadisticas",
			"refresh":        "/auth/refresh",
			"health":         "/health",
		},
		GraphQL: "/graphql",
		Authentication: AuthDescription{
			Method: "Bearer JWT",
			Header: "Authorization: Bearer <token>",
			Scopes: scopes,
			Issue:  "Los tokens se emiten con el comando 'filtros token' del operador",
		},
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	_ = httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: ServiceName,
		Version: s.opts.Version,
	})
}
