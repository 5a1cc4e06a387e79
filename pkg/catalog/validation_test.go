package catalog

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Filtro aire  ", "Filtro aire"},
		{"O'Reilly", "OReilly"},
		{`a"b\c;d`, "abcd"},
		{"tab\there\n", "tabhere"},
		{"ñandú", "ñandú"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Sanitize(tt.in), "input %q", tt.in)
	}
}

func TestValidateProductCode(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"valid", "FLT-AIR-001", "FLT-AIR-001", false},
		{"trimmed", "  ABCD_1234 ", "ABCD_1234", false},
		{"too short", "ABC-123", "", true},
		{"too long", strings.Repeat("A", 51), "", true},
		{"spaces", "ABC 12345", "", true},
		{"injection stripped then checked", "ABCD1234'; DROP", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateProductCode(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateNamesAndBrand(t *testing.T) {
	name, err := ValidateFilterName(" Filtro de aire, motor 1.6 ")
	require.NoError(t, err)
	assert.Equal(t, "Filtro de aire, motor 1.6", name)

	_, err = ValidateFilterName("")
	assert.Error(t, err)
	_, err = ValidateFilterName("<script>")
	assert.Error(t, err)

	brand, err := ValidateBrand("Mann & Hummel")
	require.NoError(t, err)
	assert.Equal(t, "Mann & Hummel", brand)
	_, err = ValidateBrand("Bosch!")
	assert.Error(t, err)

	_, err = ValidateDescription(strings.Repeat("x", MaxDescriptionLength+1))
	assert.Error(t, err)
}

func TestValidateFigures(t *testing.T) {
	assert.NoError(t, ValidatePurchasePrice(0.01))
	assert.Error(t, ValidatePurchasePrice(0))
	assert.Error(t, ValidatePurchasePrice(-5))
	assert.Error(t, ValidatePurchasePrice(math.NaN()))
	assert.Error(t, ValidatePurchasePrice(math.Inf(1)))

	assert.NoError(t, ValidateStock(0))
	assert.Error(t, ValidateStock(-1))

	assert.NoError(t, ValidateMargin(0))
	assert.NoError(t, ValidateMargin(1000))
	assert.Error(t, ValidateMargin(1000.5))
	assert.Error(t, ValidateMargin(-1))

	assert.NoError(t, ValidateVAT(19))
	assert.Error(t, ValidateVAT(101))

	err := ValidateID("id_filtro", 0)
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "id_filtro", ve.Field)
}

func TestNormalizePaging(t *testing.T) {
	skip, limit, clamped, err := NormalizePaging(0, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, skip)
	assert.Equal(t, 100, limit)
	assert.False(t, clamped)

	_, limit, clamped, err = NormalizePaging(10, 5000)
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, limit)
	assert.True(t, clamped)

	_, _, _, err = NormalizePaging(-1, 10)
	assert.Error(t, err)
	_, _, _, err = NormalizePaging(0, 0)
	assert.Error(t, err)
}

func TestValidateCategoryFields(t *testing.T) {
	_, err := ValidateCategoryName("   ")
	assert.Error(t, err)
	_, err = ValidateCategoryName(strings.Repeat("a", 51))
	assert.Error(t, err)
	name, err := ValidateCategoryName("Filtros de Aceite")
	require.NoError(t, err)
	assert.Equal(t, "Filtros de Aceite", name)

	desc, err := ValidateCategoryDescription("Filtros (motor y caja)")
	require.NoError(t, err)
	assert.Equal(t, "Filtros (motor y caja)", desc)
	_, err = ValidateCategoryDescription("<b>bold</b>")
	assert.Error(t, err)

	typ, err := ValidateCategoryType("")
	require.NoError(t, err)
	assert.Equal(t, DefaultCategoryType, typ)
	typ, err = ValidateCategoryType("LUBRICANTE")
	require.NoError(t, err)
	assert.Equal(t, "lubricante", typ)
	_, err = ValidateCategoryType("otro")
	assert.Error(t, err)
}

func TestValidateSearch(t *testing.T) {
	_, err := ValidateSearchTerm(" a ")
	assert.Error(t, err)
	_, err = ValidateSearchTerm(strings.Repeat("a", MaxSearchTermLength+1))
	assert.Error(t, err)
	term, err := ValidateSearchTerm("  aire ")
	require.NoError(t, err)
	assert.Equal(t, "aire", term)

	assert.Equal(t, DefaultSearchResults, NormalizeSearchLimit(0))
	assert.Equal(t, DefaultSearchResults, NormalizeSearchLimit(MaxSearchResults+1))
	assert.Equal(t, 50, NormalizeSearchLimit(50))
}

func TestValidateDistributor(t *testing.T) {
	in := DistributorInput{
		Name:  " Repuestos Sur ",
		RUT:   "76.123.456-k",
		Phone: "+56 9 1234 5678",
		Email: "Ventas@RepuestosSur.cl",
	}
	out, err := ValidateDistributor(in)
	require.NoError(t, err)
	assert.Equal(t, "Repuestos Sur", out.Name)
	assert.Equal(t, "76.123.456-K", out.RUT)
	assert.Equal(t, "ventas@repuestossur.cl", out.Email)

	bad := []DistributorInput{
		{Name: "", RUT: "12345678-9"},
		{Name: "X", RUT: "abc"},
		{Name: "X", RUT: "12345678-9", Phone: "call me"},
		{Name: "X", RUT: "12345678-9", Email: "not-an-email"},
		{Name: "X", RUT: "12345678-9", Email: "Name <a@b.cl>"},
	}
	for _, b := range bad {
		_, err := ValidateDistributor(b)
		assert.Error(t, err, "input %+v", b)
	}
}

func TestVehicleCriteriaNormalize(t *testing.T) {
	c, err := VehicleCriteria{VehicleType: " AUTO ", FilterType: "Aire"}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, VehicleCriteria{VehicleType: "auto", FilterType: "aire"}, c)

	_, err = VehicleCriteria{FuelType: "nuclear"}.Normalize()
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "tipo_combustible", ve.Field)

	zero, err := VehicleCriteria{}.Normalize()
	require.NoError(t, err)
	assert.True(t, zero.IsZero())
}

func TestAvailableOptionsIsACopy(t *testing.T) {
	opts := AvailableOptions()
	opts.VehicleTypes[0] = "tanque"
	assert.Equal(t, "auto", AvailableOptions().VehicleTypes[0])
	assert.Contains(t, AvailableOptions().FilterTypes, "habitaculo")
	assert.Contains(t, CategoryTypes(), DefaultCategoryType)
}
