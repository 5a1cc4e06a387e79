// Package catalog holds the vehicular filter catalogue: filters, categories and
// distributors, their validation rules, pricing and the Service that applies them.
//
// Persistence is abstracted behind Repository; pkg/storage/sqlstore implements it
// over PostgreSQL or SQLite and pkg/storage/cache decorates it with an LRU/Redis cache.
//
// All user-provided text goes through Sanitize, which trims and strips control
// characters and ' " \ ; before pattern validation. Deletes are soft: inactive
// rows are invisible to every read.
//
// Pricing:
//
//	precio_neto  = precio_compra + precio_compra*margen_ganancia/100
//	iva          = precio_neto*porcentaje_iva/100
//	precio_venta = precio_neto + iva
//
// each rounded to cents.
package catalog
