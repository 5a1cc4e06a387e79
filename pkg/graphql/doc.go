// Package graphql exposes the catalogue through a GraphQL endpoint built on
// github.com/graphql-go/graphql.
//
// Queries: filtros/products, filtro/product, filtrosPorVehiculo/
// productsByVehicleFilter, categories and vehicleFilterOptions. Mutation:
// createFiltro/createProduct, which needs an access token with the
// filters:write scope.
//
// Before execution the Handler rejects documents over 10 KB, deeper than five
// levels or selecting more than 100 fields. Rejections are counted and written
// to the audit trail.
package graphql
