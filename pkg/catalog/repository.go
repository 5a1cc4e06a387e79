package catalog

import (
	"context"
	"time"
)

// FilterRepository persists filters. Reads only see active rows and return
// ErrNotFound for missing ones.
type FilterRepository interface {
	ListFilters(ctx context.Context, q FilterQuery) ([]*Filter, error)
	CountFilters(ctx context.Context, q FilterQuery) (int, error)
	GetFilter(ctx context.Context, id int64) (*Filter, error)
	GetFilterByCode(ctx context.Context, code string) (*Filter, error)
	// ProductCodeExists checks every row, active or not, except excludeID.
	ProductCodeExists(ctx context.Context, code string, excludeID int64) (bool, error)
	CreateFilter(ctx context.Context, f *Filter) error
	UpdateFilter(ctx context.Context, f *Filter) error
	DeactivateFilter(ctx context.Context, id int64, at time.Time) error
	FilterStatistics(ctx context.Context) (*FilterStats, error)
}

// CategoryRepository persists categories.
type CategoryRepository interface {
	// ListCategories returns active categories ordered by name; categoryType "" means all.
	ListCategories(ctx context.Context, categoryType string) ([]*Category, error)
	GetCategory(ctx context.Context, id int64) (*Category, error)
	// FindCategoryByName matches active categories case-insensitively, skipping excludeID.
	FindCategoryByName(ctx context.Context, name string, excludeID int64) (*Category, error)
	CreateCategory(ctx context.Context, c *Category) error
	UpdateCategory(ctx context.Context, c *Category) error
	DeactivateCategory(ctx context.Context, id int64) error
	CountActiveFiltersInCategory(ctx context.Context, id int64) (int, error)
	SearchCategories(ctx context.Context, term string, limit int) ([]*Category, error)
	// CategoryCounts returns every active category with its active filter count,
	// ordered by count descending then name.
	CategoryCounts(ctx context.Context) ([]CategoryCount, error)
	CountCategoriesByType(ctx context.Context) (map[string]int, error)
}

// DistributorRepository persists distributors.
type DistributorRepository interface {
	ListDistributors(ctx context.Context) ([]*Distributor, error)
	GetDistributor(ctx context.Context, id int64) (*Distributor, error)
	DistributorRUTExists(ctx context.Context, rut string) (bool, error)
	CreateDistributor(ctx context.Context, d *Distributor) error
}

// Repository is the full persistence contract of the catalogue.
type Repository interface {
	FilterRepository
	CategoryRepository
	DistributorRepository
}
