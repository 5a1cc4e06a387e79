package seed

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/filtros/pkg/catalog"
	"github.com/platinummonkey/filtros/pkg/observability"
)

//go:embed default.yaml
var defaultCatalog []byte

// Catalog is a seed file
type Catalog struct {
	Version      string        `yaml:"version"`
	Categories   []Category    `yaml:"categories"`
	Distributors []Distributor `yaml:"distributors"`
	Filters      []Filter      `yaml:"filters"`
}

// Category seeds a category
type Category struct {
	Name        string `yaml:"nombre"`
	Description string `yaml:"descripcion"`
	Type        string `yaml:"tipo"`
}

// Distributor seeds a distributor
type Distributor struct {
	Name    string `yaml:"nombre"`
	RUT     string `yaml:"rut"`
	Contact string `yaml:"contacto"`
	Phone   string `yaml:"telefono"`
	Email   string `yaml:"email"`
	Address string `yaml:"direccion"`
	City    string `yaml:"ciudad"`
}

// Filter seeds a filter. Category and distributor are referenced by name and RUT.
type Filter struct {
	ProductCode   string   `yaml:"codigo_producto"`
	Name          string   `yaml:"nombre_filtro"`
	Description   string   `yaml:"descripcion"`
	Brand         string   `yaml:"marca"`
	Category      string   `yaml:"categoria"`
	Distributor   string   `yaml:"distribuidor"`
	Stock         int      `yaml:"stock"`
	PurchasePrice float64  `yaml:"precio_compra"`
	MarginPercent *float64 `yaml:"margen_ganancia"`
	VATPercent    *float64 `yaml:"porcentaje_iva"`
	VehicleType   string   `yaml:"tipo_vehiculo"`
	OilType       string   `yaml:"tipo_aceite"`
	FuelType      string   `yaml:"tipo_combustible"`
	FilterType    string   `yaml:"tipo_filtro"`
}

// Result counts what Apply did.
type Result struct {
	CategoriesCreated   int
	CategoriesSkipped   int
	DistributorsCreated int
	DistributorsSkipped int
	FiltersCreated      int
	FiltersSkipped      int
}

func (r Result) String() string {
	return fmt.Sprintf("categories %d created/%d skipped, distributors %d created/%d skipped, filters %d created/%d skipped",
		r.CategoriesCreated, r.CategoriesSkipped,
		r.DistributorsCreated, r.DistributorsSkipped,
		r.FiltersCreated, r.FiltersSkipped)
}

// Default returns the embedded base catalogue.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a seed file
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a seed document. Unknown keys are an error.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	return &c, nil
}

// Apply creates the catalogue through svc, so every entry is validated like an
// API request. Entries whose category name, RUT or product code already exist
// are skipped, which makes Apply safe to run repeatedly.
func Apply(ctx context.Context, svc *catalog.Service, c *Catalog, logger *observability.Logger) (Result, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}
	log := logger.WithField("component", "seed")
	var res Result

	for _, in := range c.Categories {
		_, err := svc.CreateCategory(ctx, catalog.CategoryInput{Name: in.Name, Description: in.Description, Type: in.Type})
		switch {
		case err == nil:
			res.CategoriesCreated++
		case catalog.IsConflict(err):
			res.CategoriesSkipped++
		default:
			return res, fmt.Errorf("category %q: %w", in.Name, err)
		}
	}

	for _, in := range c.Distributors {
		_, err := svc.CreateDistributor(ctx, catalog.DistributorInput{
			Name:    in.Name,
			RUT:     in.RUT,
			Contact: in.Contact,
			Phone:   in.Phone,
			Email:   in.Email,
			Address: in.Address,
			City:    in.City,
		})
		switch {
		case err == nil:
			res.DistributorsCreated++
		case catalog.IsConflict(err):
			res.DistributorsSkipped++
		default:
			return res, fmt.Errorf("distributor %q: %w", in.RUT, err)
		}
	}

	if len(c.Filters) > 0 {
		categories, distributors, err := lookups(ctx, svc)
		if err != nil {
			return res, err
		}
		for _, in := range c.Filters {
			created, err := applyFilter(ctx, svc, in, categories, distributors)
			if err != nil {
				return res, fmt.Errorf("filter %q: %w", in.ProductCode, err)
			}
			if created {
				res.FiltersCreated++
			} else {
				res.FiltersSkipped++
			}
		}
	}

	log.WithFields(map[string]interface{}{
		"categories_created":   res.CategoriesCreated,
		"categories_skipped":   res.CategoriesSkipped,
		"distributors_created": res.DistributorsCreated,
		"distributors_skipped": res.DistributorsSkipped,
		"filters_created":      res.FiltersCreated,
		"filters_skipped":      res.FiltersSkipped,
	}).Info("Seed applied")
	return res, nil
}

// lookups maps category names (case-insensitive) and distributor RUTs to ids.
func lookups(ctx context.Context, svc *catalog.Service) (map[string]int64, map[string]int64, error) {
	cs, err := svc.ListCategories(ctx, "")
	if err != nil {
		return nil, nil, fmt.Errorf("list categories: %w", err)
	}
	categories := make(map[string]int64, len(cs))
	for _, c := range cs {
		categories[strings.ToLower(c.Name)] = c.ID
	}

	ds, err := svc.ListDistributors(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list distributors: %w", err)
	}
	distributors := make(map[string]int64, len(ds))
	for _, d := range ds {
		distributors[strings.ToUpper(d.RUT)] = d.ID
	}
	return categories, distributors, nil
}

func applyFilter(ctx context.Context, svc *catalog.Service, in Filter, categories, distributors map[string]int64) (bool, error) {
	categoryID, ok := categories[strings.ToLower(strings.TrimSpace(in.Category))]
	if !ok {
		return false, fmt.Errorf("unknown category %q", in.Category)
	}

	input := catalog.FilterInput{
		ProductCode:   in.ProductCode,
		Name:          in.Name,
		Description:   in.Description,
		Brand:         in.Brand,
		CategoryID:    categoryID,
		Stock:         in.Stock,
		PurchasePrice: in.PurchasePrice,
		MarginPercent: in.MarginPercent,
		VATPercent:    in.VATPercent,
		VehicleCriteria: catalog.VehicleCriteria{
			VehicleType: in.VehicleType,
			OilType:     in.OilType,
			FuelType:    in.FuelType,
			FilterType:  in.FilterType,
		},
	}
	if in.Distributor != "" {
		id, ok := distributors[strings.ToUpper(strings.TrimSpace(in.Distributor))]
		if !ok {
			return false, fmt.Errorf("unknown distributor %q", in.Distributor)
		}
		input.DistributorID = &id
	}

	_, err := svc.CreateFilter(ctx, input)
	switch {
	case err == nil:
		return true, nil
	case catalog.IsConflict(err):
		return false, nil
	default:
		return false, err
	}
}
