// Package api is the REST surface of the filter catalogue.
//
// Routes:
//
//	GET    /                                   service description
//	GET    /health                             static liveness answer
//	GET    /filtros                            paginated list (skip, limit, categoria_id, distribuidor_id, tipo_*)
//	POST   /filtros                            create (filters:write)
//	GET    /filtros/{id}                       one filter
//	PUT    /filtros/{id}, PATCH /filtros/{id}  partial update (filters:write)
//	DELETE /filtros/{id}                       soft delete (filters:write)
//	GET    /filtros/codigo-producto/{codigo}   lookup by product code
//	GET    /filtros/opciones-vehiculo          accepted classification values
//	GET    /filtros/estadisticas               catalogue statistics (stats:read)
//	       /filtros/categorias[...]            category CRUD, search and statistics
//	       /filtros/distribuidores[...]        distributor list, lookup and create
//	POST   /auth/refresh                       refresh token exchange
//	POST   /graphql                            GraphQL endpoint
//
// Collection routes answer with and without the trailing slash. Every
// mutation is written to the audit trail with its before and after state.
package api
