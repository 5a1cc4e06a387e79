package catalog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/filtros/pkg/catalog"
	"github.com/platinummonkey/filtros/pkg/observability"
	"github.com/platinummonkey/filtros/pkg/testutil"
)

func ptr[T any](v T) *T { return &v }

type fixture struct {
	svc  *catalog.Service
	repo catalog.Repository
	air  *catalog.Category
	oil  *catalog.Category
	dist *catalog.Distributor
}

func setup(t *testing.T) fixture {
	t.Helper()
	store := testutil.NewSQLiteStore(t)
	return fixture{
		svc:  catalog.NewService(store, observability.NopLogger()),
		repo: store,
		air:  testutil.Category(t, store, "Aire", "filtro"),
		oil:  testutil.Category(t, store, "Aceite", "filtro"),
		dist: testutil.Distributor(t, store, "Repuestos Sur", "76.123.456-7"),
	}
}

func validInput(categoryID int64) catalog.FilterInput {
	return catalog.FilterInput{
		ProductCode:   "FLT-AIR-0001",
		Name:          "Filtro de aire",
		Brand:         "Mann",
		CategoryID:    categoryID,
		Stock:         5,
		PurchasePrice: 1000,
		VehicleCriteria: catalog.VehicleCriteria{
			VehicleType: "Auto",
			FilterType:  "aire",
		},
	}
}

func TestCreateFilter(t *testing.T) {
	ctx := context.Background()
	fx := setup(t)

	in := validInput(fx.air.ID)
	in.DistributorID = &fx.dist.ID
	f, err := fx.svc.CreateFilter(ctx, in)
	require.NoError(t, err)

	assert.NotZero(t, f.ID)
	assert.Equal(t, catalog.DefaultMarginPercent, f.MarginPercent)
	assert.Equal(t, catalog.DefaultVATPercent, f.VATPercent)
	assert.Equal(t, 1300.0, f.NetPrice)
	assert.Equal(t, 247.0, f.VAT)
	assert.Equal(t, 1547.0, f.SalePrice)
	assert.Equal(t, "auto", f.VehicleType)
	assert.True(t, f.Active)
	require.NotNil(t, f.Category)
	assert.Equal(t, "Aire", f.Category.Name)
	require.NotNil(t, f.Distributor)
	assert.Equal(t, fx.dist.ID, f.Distributor.ID)

	_, err = fx.svc.CreateFilter(ctx, in)
	require.Error(t, err)
	assert.True(t, catalog.IsConflict(err))
}

func TestCreateFilter_Rejects(t *testing.T) {
	ctx := context.Background()
	fx := setup(t)

	tests := []struct {
		name   string
		mutate func(*catalog.FilterInput)
		field  string
	}{
		{"short code", func(in *catalog.FilterInput) { in.ProductCode = "X1" }, "codigo_producto"},
		{"zero price", func(in *catalog.FilterInput) { in.PurchasePrice = 0 }, "precio_compra"},
		{"negative stock", func(in *catalog.FilterInput) { in.Stock = -1 }, "stock"},
		{"vat over 100", func(in *catalog.FilterInput) { in.VATPercent = ptr(150.0) }, "porcentaje_iva"},
		{"unknown vehicle", func(in *catalog.FilterInput) { in.VehicleType = "avion" }, "tipo_vehiculo"},
		{"missing category", func(in *catalog.FilterInput) { in.CategoryID = 999 }, "id_categoria"},
		{"missing distributor", func(in *catalog.FilterInput) { in.DistributorID = ptr(int64(999)) }, "id_distribuidor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput(fx.air.ID)
			tt.mutate(&in)
			_, err := fx.svc.CreateFilter(ctx, in)
			require.Error(t, err)
			var ve *catalog.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestUpdateFilter(t *testing.T) {
	ctx := context.Background()
	fx := setup(t)

	in := validInput(fx.air.ID)
	in.DistributorID = &fx.dist.ID
	f, err := fx.svc.CreateFilter(ctx, in)
	require.NoError(t, err)

	same, err := fx.svc.UpdateFilter(ctx, f.ID, catalog.FilterPatch{})
	require.NoError(t, err)
	assert.Equal(t, f.SalePrice, same.SalePrice)

	updated, err := fx.svc.UpdateFilter(ctx, f.ID, catalog.FilterPatch{
		Name:          ptr("Filtro de aire premium"),
		PurchasePrice: ptr(2000.0),
		MarginPercent: ptr(50.0),
		CategoryID:    &fx.oil.ID,
		DistributorID: ptr(int64(0)),
		FuelType:      ptr("Diesel"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Filtro de aire premium", updated.Name)
	assert.Equal(t, 3000.0, updated.NetPrice)
	assert.Equal(t, 570.0, updated.VAT)
	assert.Equal(t, 3570.0, updated.SalePrice)
	assert.Equal(t, fx.oil.ID, updated.CategoryID)
	assert.Nil(t, updated.DistributorID)
	assert.Equal(t, "diesel", updated.FuelType)
	assert.Equal(t, "auto", updated.VehicleType)

	// stock only: prices untouched
	stocked, err := fx.svc.PatchFilter(ctx, f.ID, catalog.FilterPatch{Stock: ptr(42)})
	require.NoError(t, err)
	assert.Equal(t, 42, stocked.Stock)
	assert.Equal(t, 3570.0, stocked.SalePrice)

	_, err = fx.svc.UpdateFilter(ctx, f.ID, catalog.FilterPatch{MarginPercent: ptr(-1.0)})
	assert.True(t, catalog.IsValidation(err))

	_, err = fx.svc.UpdateFilter(ctx, 999, catalog.FilterPatch{Stock: ptr(1)})
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestUpdateFilter_CodeConflict(t *testing.T) {
	ctx := context.Background()
	fx := setup(t)

	a, err := fx.svc.CreateFilter(ctx, validInput(fx.air.ID))
	require.NoError(t, err)
	in := validInput(fx.air.ID)
	in.ProductCode = "FLT-AIR-0002"
	b, err := fx.svc.CreateFilter(ctx, in)
	require.NoError(t, err)

	_, err = fx.svc.UpdateFilter(ctx, b.ID, catalog.FilterPatch{ProductCode: ptr(a.ProductCode)})
	assert.True(t, catalog.IsConflict(err))

	// keeping its own code is not a conflict
	_, err = fx.svc.UpdateFilter(ctx, b.ID, catalog.FilterPatch{ProductCode: ptr(b.ProductCode)})
	assert.NoError(t, err)
}

func TestDeleteFilter(t *testing.T) {
	ctx := context.Background()
	fx := setup(t)

	f, err := fx.svc.CreateFilter(ctx, validInput(fx.air.ID))
	require.NoError(t, err)

	require.NoError(t, fx.svc.DeleteFilter(ctx, f.ID))
	_, err = fx.svc.GetFilter(ctx, f.ID)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
	assert.ErrorIs(t, fx.svc.DeleteFilter(ctx, f.ID), catalog.ErrNotFound)

	// soft-deleted filters keep their product code reserved
	_, err = fx.svc.CreateFilter(ctx, validInput(fx.air.ID))
	assert.True(t, catalog.IsConflict(err))

	assert.True(t, catalog.IsValidation(fx.svc.DeleteFilter(ctx, 0)))
}

func TestListFilters(t *testing.T) {
	ctx := context.Background()
	fx := setup(t)

	testutil.Filter(t, fx.repo, "AIR-00001", fx.air.ID, 100, catalog.VehicleCriteria{VehicleType: "auto", FilterType: "aire"})
	testutil.Filter(t, fx.repo, "AIR-00002", fx.air.ID, 100, catalog.VehicleCriteria{VehicleType: "moto", FilterType: "aire"})
	testutil.Filter(t, fx.repo, "OIL-00001", fx.oil.ID, 100, catalog.VehicleCriteria{VehicleType: "auto", FilterType: "aceite"})

	page, err := fx.svc.ListFilters(ctx, catalog.FilterQuery{Skip: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.Size)
	assert.Len(t, page.Items, 1)

	clamped, err := fx.svc.ListFilters(ctx, catalog.FilterQuery{Limit: 5000})
	require.NoError(t, err)
	assert.Equal(t, catalog.MaxPageSize, clamped.Size)
	assert.Len(t, clamped.Items, 3)

	byCat, err := fx.svc.ListFilters(ctx, catalog.FilterQuery{Limit: 10, CategoryID: fx.oil.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, byCat.Total)

	autos, err := fx.svc.FilterByVehicle(ctx, catalog.VehicleCriteria{VehicleType: "AUTO"}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, autos.Total)

	_, err = fx.svc.FilterByVehicle(ctx, catalog.VehicleCriteria{FilterType: "agua"}, 0, 10)
	assert.True(t, catalog.IsValidation(err))

	_, err = fx.svc.ListFilters(ctx, catalog.FilterQuery{Skip: -1, Limit: 10})
	assert.True(t, catalog.IsValidation(err))

	n, err := fx.svc.CountFilters(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	byCode, err := fx.svc.GetFilterByCode(ctx, "OIL-00001")
	require.NoError(t, err)
	assert.Equal(t, "aceite", byCode.FilterType)

	stats, err := fx.svc.FilterStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.ByCategory["Aire"])
}

func TestCategories(t *testing.T) {
	ctx := context.Background()
	fx := setup(t)

	c, err := fx.svc.CreateCategory(ctx, catalog.CategoryInput{Name: " Combustible ", Description: "Filtros de combustible"})
	require.NoError(t, err)
	assert.Equal(t, "Combustible", c.Name)
	assert.Equal(t, catalog.DefaultCategoryType, c.Type)

	_, err = fx.svc.CreateCategory(ctx, catalog.CategoryInput{Name: "aire"})
	assert.True(t, catalog.IsConflict(err))

	_, err = fx.svc.CreateCategory(ctx, catalog.CategoryInput{Name: "Polen", Type: "desconocido"})
	assert.True(t, catalog.IsValidation(err))

	updated, err := fx.svc.UpdateCategory(ctx, c.ID, catalog.CategoryInput{Name: "Combustibles"})
	require.NoError(t, err)
	assert.Equal(t, "Combustibles", updated.Name)
	assert.Equal(t, catalog.DefaultCategoryType, updated.Type)

	_, err = fx.svc.UpdateCategory(ctx, c.ID, catalog.CategoryInput{Name: "Aceite"})
	assert.True(t, catalog.IsConflict(err))

	list, err := fx.svc.ListCategories(ctx, "filtro")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	hits, err := fx.svc.SearchCategories(ctx, "combus", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	_, err = fx.svc.SearchCategories(ctx, "c", 10)
	assert.True(t, catalog.IsValidation(err))

	testutil.Filter(t, fx.repo, "AIR-00001", fx.air.ID, 100, catalog.VehicleCriteria{})
	err = fx.svc.DeleteCategory(ctx, fx.air.ID)
	assert.True(t, catalog.IsConflict(err))

	require.NoError(t, fx.svc.DeleteCategory(ctx, c.ID))
	_, err = fx.svc.GetCategory(ctx, c.ID)
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	stats, err := fx.svc.CategoryStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.ByType["filtro"])
	require.Len(t, stats.MostUsed, 1)
	assert.Equal(t, "Aire", stats.MostUsed[0].Name)
	assert.Len(t, stats.FiltersPerCategory, 2)
}

func TestDistributors(t *testing.T) {
	ctx := context.Background()
	fx := setup(t)

	d, err := fx.svc.CreateDistributor(ctx, catalog.DistributorInput{
		Name:  "Filtros Norte",
		RUT:   "12345678-k",
		Email: "contacto@norte.cl",
	})
	require.NoError(t, err)
	assert.Equal(t, "12345678-K", d.RUT)

	_, err = fx.svc.CreateDistributor(ctx, catalog.DistributorInput{Name: "Otro", RUT: "12345678-K"})
	assert.True(t, catalog.IsConflict(err))

	list, err := fx.svc.ListDistributors(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	got, err := fx.svc.GetDistributor(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Filtros Norte", got.Name)

	_, err = fx.svc.GetDistributor(ctx, 999)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestVehicleFilterOptions(t *testing.T) {
	fx := setup(t)
	opts := fx.svc.VehicleFilterOptions()
	assert.Contains(t, opts.VehicleTypes, "camion")
	assert.Contains(t, opts.FuelTypes, "diesel")
}

// staleChecks answers every pre-write uniqueness check with "free", the way a
// request racing another one with the same key sees the database.
type staleChecks struct {
	catalog.Repository
}

func (staleChecks) ProductCodeExists(context.Context, string, int64) (bool, error) {
	return false, nil
}

func (staleChecks) FindCategoryByName(context.Context, string, int64) (*catalog.Category, error) {
	return nil, catalog.ErrNotFound
}

func (staleChecks) DistributorRUTExists(context.Context, string) (bool, error) {
	return false, nil
}

func TestConcurrentDuplicatesAreConflicts(t *testing.T) {
	ctx := context.Background()
	fx := setup(t)
	racing := catalog.NewService(staleChecks{fx.repo}, observability.NopLogger())

	winner := testutil.Filter(t, fx.repo, "FLT-AIR-0001", fx.air.ID, 1000, catalog.VehicleCriteria{})
	_, err := racing.CreateFilter(ctx, validInput(fx.air.ID))
	require.Error(t, err)
	assert.True(t, catalog.IsConflict(err), "got %v", err)

	in := validInput(fx.air.ID)
	in.ProductCode = "FLT-AIR-0002"
	other, err := fx.svc.CreateFilter(ctx, in)
	require.NoError(t, err)
	_, err = racing.UpdateFilter(ctx, other.ID, catalog.FilterPatch{ProductCode: ptr(winner.ProductCode)})
	assert.True(t, catalog.IsConflict(err), "got %v", err)

	_, err = racing.CreateCategory(ctx, catalog.CategoryInput{Name: "AIRE"})
	assert.True(t, catalog.IsConflict(err), "got %v", err)

	_, err = racing.CreateDistributor(ctx, catalog.DistributorInput{Name: "Otro", RUT: fx.dist.RUT})
	assert.True(t, catalog.IsConflict(err), "got %v", err)
}
