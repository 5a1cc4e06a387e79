package graphql

import (
	"strconv"

	"github.com/graphql-go/graphql"

	"github.com/platinummonkey/filtros/pkg/catalog"
)

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}

func optional(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func filterField(t graphql.Output, get func(*catalog.Filter) interface{}) *graphql.Field {
	return &graphql.Field{
		Type: t,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			f, ok := p.Source.(*catalog.Filter)
			if !ok || f == nil {
				return nil, nil
			}
			return get(f), nil
		},
	}
}

func categoryField(t graphql.Output, get func(*catalog.Category) interface{}) *graphql.Field {
	return &graphql.Field{
		Type: t,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			c, ok := p.Source.(*catalog.Category)
			if !ok || c == nil {
				return nil, nil
			}
			return get(c), nil
		},
	}
}

func distributorField(t graphql.Output, get func(*catalog.Distributor) interface{}) *graphql.Field {
	return &graphql.Field{
		Type: t,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			d, ok := p.Source.(*catalog.Distributor)
			if !ok || d == nil {
				return nil, nil
			}
			return get(d), nil
		},
	}
}

func pageField(t graphql.Output, get func(*catalog.FilterPage) interface{}) *graphql.Field {
	return &graphql.Field{
		Type: t,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			page, ok := p.Source.(*catalog.FilterPage)
			if !ok || page == nil {
				return nil, nil
			}
			return get(page), nil
		},
	}
}

var (
	nonNullString = graphql.NewNonNull(graphql.String)
	nonNullInt    = graphql.NewNonNull(graphql.Int)
	nonNullFloat  = graphql.NewNonNull(graphql.Float)
	stringList    = graphql.NewNonNull(graphql.NewList(nonNullString))
)

var categoryType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Categoria",
	Fields: graphql.Fields{
		"id":          categoryField(graphql.NewNonNull(graphql.ID), func(c *catalog.Category) interface{} { return idString(c.ID) }),
		"nombre":      categoryField(nonNullString, func(c *catalog.Category) interface{} { return c.Name }),
		"descripcion": categoryField(graphql.String, func(c *catalog.Category) interface{} { return optional(c.Description) }),
		"tipo":        categoryField(nonNullString, func(c *catalog.Category) interface{} { return c.Type }),
	},
})

var distributorType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Distribuidor",
	Fields: graphql.Fields{
		"id":       distributorField(graphql.NewNonNull(graphql.ID), func(d *catalog.Distributor) interface{} { return idString(d.ID) }),
		"nombre":   distributorField(nonNullString, func(d *catalog.Distributor) interface{} { return d.Name }),
		"rut":      distributorField(nonNullString, func(d *catalog.Distributor) interface{} { return d.RUT }),
		"ciudad":   distributorField(graphql.String, func(d *catalog.Distributor) interface{} { return optional(d.City) }),
		"telefono": distributorField(graphql.String, func(d *catalog.Distributor) interface{} { return optional(d.Phone) }),
		"email":    distributorField(graphql.String, func(d *catalog.Distributor) interface{} { return optional(d.Email) }),
	},
})

var filterType = graphql.NewObject(graphql.ObjectConfig{
	Name:        "Filtro",
	Description: "Filtro vehicular del catálogo",
	Fields: graphql.Fields{
		"id":               filterField(graphql.NewNonNull(graphql.ID), func(f *catalog.Filter) interface{} { return idString(f.ID) }),
		"codigo_producto":  filterField(nonNullString, func(f *catalog.Filter) interface{} { return f.ProductCode }),
		"nombre_filtro":    filterField(nonNullString, func(f *catalog.Filter) interface{} { return f.Name }),
		"descripcion":      filterField(graphql.String, func(f *catalog.Filter) interface{} { return optional(f.Description) }),
		"marca":            filterField(nonNullString, func(f *catalog.Filter) interface{} { return f.Brand }),
		"stock":            filterField(nonNullInt, func(f *catalog.Filter) interface{} { return f.Stock }),
		"precio_compra":    filterField(nonNullFloat, func(f *catalog.Filter) interface{} { return f.PurchasePrice }),
		"margen_ganancia":  filterField(nonNullFloat, func(f *catalog.Filter) interface{} { return f.MarginPercent }),
		"porcentaje_iva":   filterField(nonNullFloat, func(f *catalog.Filter) interface{} { return f.VATPercent }),
		"precio_neto":      filterField(nonNullFloat, func(f *catalog.Filter) interface{} { return f.NetPrice }),
		"iva":              filterField(nonNullFloat, func(f *catalog.Filter) interface{} { return f.VAT }),
		"precio_venta":     filterField(nonNullFloat, func(f *catalog.Filter) interface{} { return f.SalePrice }),
		"tipo_vehiculo":    filterField(graphql.String, func(f *catalog.Filter) interface{} { return optional(f.VehicleType) }),
		"tipo_aceite":      filterField(graphql.String, func(f *catalog.Filter) interface{} { return optional(f.OilType) }),
		"tipo_combustible": filterField(graphql.String, func(f *catalog.Filter) interface{} { return optional(f.FuelType) }),
		"tipo_filtro":      filterField(graphql.String, func(f *catalog.Filter) interface{} { return optional(f.FilterType) }),
		"id_categoria":     filterField(nonNullInt, func(f *catalog.Filter) interface{} { return int(f.CategoryID) }),

		"id_distribuidor": filterField(graphql.Int, func(f *catalog.Filter) interface{} {
			if f.DistributorID == nil {
				return nil
			}
			return int(*f.DistributorID)
		}),
		"categoria": filterField(categoryType, func(f *catalog.Filter) interface{} {
			if f.Category == nil {
				return nil
			}
			return f.Category
		}),
		"distribuidor": filterField(distributorType, func(f *catalog.Filter) interface{} {
			if f.Distributor == nil {
				return nil
			}
			return f.Distributor
		}),
	},
})

var filterPageType = graphql.NewObject(graphql.ObjectConfig{
	Name: "FiltroPaginado",
	Fields: graphql.Fields{
		"items":  pageField(graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(filterType))), func(p *catalog.FilterPage) interface{} { return p.Items }),
		"total":  pageField(nonNullInt, func(p *catalog.FilterPage) interface{} { return p.Total }),
		"pagina": pageField(nonNullInt, func(p *catalog.FilterPage) interface{} { return p.Page }),
		"size":   pageField(nonNullInt, func(p *catalog.FilterPage) interface{} { return p.Size }),
	},
})

func optionsField(get func(catalog.FilterOptions) []string) *graphql.Field {
	return &graphql.Field{
		Type: stringList,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			opts, ok := p.Source.(catalog.FilterOptions)
			if !ok {
				return []string{}, nil
			}
			return get(opts), nil
		},
	}
}

var filterOptionsType = graphql.NewObject(graphql.ObjectConfig{
	Name: "FilterOptions",
	Fields: graphql.Fields{
		"tipo_vehiculo":    optionsField(func(o catalog.FilterOptions) []string { return o.VehicleTypes }),
		"tipo_aceite":      optionsField(func(o catalog.FilterOptions) []string { return o.OilTypes }),
		"tipo_combustible": optionsField(func(o catalog.FilterOptions) []string { return o.FuelTypes }),
		"tipo_filtro":      optionsField(func(o catalog.FilterOptions) []string { return o.FilterTypes }),
	},
})

var vehicleFilterInputType = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "FiltroVehiculoInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"tipo_vehiculo":    &graphql.InputObjectFieldConfig{Type: graphql.String},
		"tipo_aceite":      &graphql.InputObjectFieldConfig{Type: graphql.String},
		"tipo_combustible": &graphql.InputObjectFieldConfig{Type: graphql.String},
		"tipo_filtro":      &graphql.InputObjectFieldConfig{Type: graphql.String},
	},
})

var filterInputType = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "FiltroInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"codigo_producto":  &graphql.InputObjectFieldConfig{Type: nonNullString},
		"nombre_filtro":    &graphql.InputObjectFieldConfig{Type: nonNullString},
		"id_categoria":     &graphql.InputObjectFieldConfig{Type: nonNullInt},
		"marca":            &graphql.InputObjectFieldConfig{Type: nonNullString},
		"descripcion":      &graphql.InputObjectFieldConfig{Type: graphql.String},
		"precio_compra":    &graphql.InputObjectFieldConfig{Type: nonNullFloat},
		"margen_ganancia":  &graphql.InputObjectFieldConfig{Type: graphql.Float, Description: "Por defecto 30"},
		"porcentaje_iva":   &graphql.InputObjectFieldConfig{Type: graphql.Float, Description: "Por defecto 19"},
		"stock":            &graphql.InputObjectFieldConfig{Type: graphql.Int, DefaultValue: 0},
		"id_distribuidor":  &graphql.InputObjectFieldConfig{Type: graphql.Int},
		"tipo_vehiculo":    &graphql.InputObjectFieldConfig{Type: graphql.String},
		"tipo_aceite":      &graphql.InputObjectFieldConfig{Type: graphql.String},
		"tipo_combustible": &graphql.InputObjectFieldConfig{Type: graphql.String},
		"tipo_filtro":      &graphql.InputObjectFieldConfig{Type: graphql.String},
	},
})

func pagingArgs() graphql.FieldConfigArgument {
	return graphql.FieldConfigArgument{
		"skip":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
		"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: catalog.DefaultPageSize},
	}
}

// NewSchema builds the catalogue schema. Every query and mutation is exposed
// under its Spanish and its English name.
func NewSchema(r *Resolver) (graphql.Schema, error) {
	listFilters := &graphql.Field{
		Type:        graphql.NewNonNull(filterPageType),
		Description: "Página de filtros activos",
		Args:        pagingArgs(),
		Resolve:     r.instrument(r.listFilters),
	}
	getFilter := &graphql.Field{
		Type: filterType,
		Args: graphql.FieldConfigArgument{
			"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
		},
		Resolve: r.instrument(r.getFilter),
	}
	vehicleArgs := pagingArgs()
	vehicleArgs["filtros"] = &graphql.ArgumentConfig{Type: graphql.NewNonNull(vehicleFilterInputType)}
	byVehicle := &graphql.Field{
		Type:        graphql.NewNonNull(filterPageType),
		Description: "Filtros que coinciden con la clasificación vehicular",
		Args:        vehicleArgs,
		Resolve:     r.instrument(r.filtersByVehicle),
	}

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"filtros":                 listFilters,
			"products":                listFilters,
			"filtro":                  getFilter,
			"product":                 getFilter,
			"filtrosPorVehiculo":      byVehicle,
			"productsByVehicleFilter": byVehicle,
			"categories": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(categoryType))),
				Resolve: r.instrument(r.categories),
			},
			"vehicleFilterOptions": &graphql.Field{
				Type:    graphql.NewNonNull(filterOptionsType),
				Resolve: r.instrument(r.vehicleFilterOptions),
			},
		},
	})

	createFilter := &graphql.Field{
		Type: graphql.NewNonNull(filterType),
		Args: graphql.FieldConfigArgument{
			"filtro": &graphql.ArgumentConfig{Type: graphql.NewNonNull(filterInputType)},
		},
		Resolve: r.instrument(r.createFilter),
	}

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createFiltro":  createFilter,
			"createProduct": createFilter,
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    query,
		Mutation: mutation,
	})
}
