// Package testutil provides database fixtures shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/filtros/pkg/catalog"
	"github.com/platinummonkey/filtros/pkg/observability"
	"github.com/platinummonkey/filtros/pkg/storage"
	"github.com/platinummonkey/filtros/pkg/storage/sqlstore"
)

var dbCounter atomic.Int64

// NewSQLiteStore returns a migrated store backed by a private in-memory SQLite database.
// The database lives until the test ends.
func NewSQLiteStore(t testing.TB) *sqlstore.Store {
	t.Helper()

	cfg := storage.DefaultConfig()
	cfg.DatabaseURL = fmt.Sprintf("file:filtros_test_%d_%d?mode=memory&cache=shared", os.Getpid(), dbCounter.Add(1))

	ctx := context.Background()
	store, err := sqlstore.Open(ctx, cfg, observability.NopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = store.Migrate(ctx)
	require.NoError(t, err)
	return store
}

// Category inserts an active category.
func Category(t testing.TB, repo catalog.CategoryRepository, name, categoryType string) *catalog.Category {
	t.Helper()
	c := &catalog.Category{
		Name:        name,
		Description: "Categoría " + name,
		Type:        categoryType,
		Active:      true,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, repo.CreateCategory(context.Background(), c))
	return c
}

// Distributor inserts an active distributor.
func Distributor(t testing.TB, repo catalog.DistributorRepository, name, rut string) *catalog.Distributor {
	t.Helper()
	d := &catalog.Distributor{
		Name:      name,
		RUT:       rut,
		City:      "Santiago",
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.CreateDistributor(context.Background(), d))
	return d
}

// Filter inserts an active, priced filter with default margin and VAT.
func Filter(t testing.TB, repo catalog.FilterRepository, code string, categoryID int64, purchase float64, vehicle catalog.VehicleCriteria) *catalog.Filter {
	t.Helper()
	now := time.Now().UTC()
	f := &catalog.Filter{
		ProductCode:     code,
		Name:            "Filtro " + code,
		Brand:           "Mann",
		CategoryID:      categoryID,
		Stock:           10,
		PurchasePrice:   purchase,
		MarginPercent:   catalog.DefaultMarginPercent,
		VATPercent:      catalog.DefaultVATPercent,
		VehicleCriteria: vehicle,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	f.ApplyPricing()
	require.NoError(t, repo.CreateFilter(context.Background(), f))
	return f
}
