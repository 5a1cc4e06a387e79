// Package seed loads catalogue fixtures from YAML.
//
// The embedded default holds the four base categories (Aire, Aceite,
// Combustible and Habitáculo). A custom file may also list distributors and
// filters; filters name their category and distributor instead of using ids:
//
//	categories:
//	  - nombre: Aire
//	    tipo: filtro
//	distributors:
//	  - nombre: Repuestos Sur
//	    rut: 76.123.456-7
//	filters:
//	  - codigo_producto: FLT-AIR-0001
//	    nombre_filtro: Filtro de aire
//	    marca: Mann
//	    categoria: Aire
//	    distribuidor: 76.123.456-7
//	    precio_compra: 1000
package seed
