package catalog

import (
	"strings"
)

var (
	vehicleTypes  = []string{"auto", "moto", "camion", "bus"}
	oilTypes      = []string{"sintetico", "mineral", "semi-sintetico"}
	fuelTypes     = []string{"gasolina", "diesel", "electrico", "hibrido"}
	filterTypes   = []string{"aire", "aceite", "combustible", "polen", "habitaculo"}
	categoryTypes = []string{"vehiculo", "general", "repuesto", "lubricante", "filtro", "aceite", "accesorio"}
)

// DefaultCategoryType is used when a category is created without a type.
const DefaultCategoryType = "general"

// FilterOptions lists the accepted vehicle classification values.
type FilterOptions struct {
	VehicleTypes []string `json:"tipos_vehiculo"`
	OilTypes     []string `json:"tipos_aceite"`
	FuelTypes    []string `json:"tipos_combustible"`
	FilterTypes  []string `json:"tipos_filtro"`
}

// AvailableOptions returns a copy of the accepted vehicle classification values.
func AvailableOptions() FilterOptions {
	return FilterOptions{
		VehicleTypes: append([]string(nil), vehicleTypes...),
		OilTypes:     append([]string(nil), oilTypes...),
		FuelTypes:    append([]string(nil), fuelTypes...),
		FilterTypes:  append([]string(nil), filterTypes...),
	}
}

// CategoryTypes returns the accepted category types.
func CategoryTypes() []string {
	return append([]string(nil), categoryTypes...)
}

// Normalize sanitises and lowercases each criterion and rejects unknown values.
func (c VehicleCriteria) Normalize() (VehicleCriteria, error) {
	var err error
	if c.VehicleType, err = normalizeOption("tipo_vehiculo", "Tipo de vehículo", c.VehicleType, vehicleTypes); err != nil {
		return c, err
	}
	if c.OilType, err = normalizeOption("tipo_aceite", "Tipo de aceite", c.OilType, oilTypes); err != nil {
		return c, err
	}
	if c.FuelType, err = normalizeOption("tipo_combustible", "Tipo de combustible", c.FuelType, fuelTypes); err != nil {
		return c, err
	}
	if c.FilterType, err = normalizeOption("tipo_filtro", "Tipo de filtro", c.FilterType, filterTypes); err != nil {
		return c, err
	}
	return c, nil
}

func normalizeOption(field, label, value string, allowed []string) (string, error) {
	value = strings.ToLower(Sanitize(value))
	if value == "" {
		return "", nil
	}
	if !contains(allowed, value) {
		return "", invalid(field, "%s inválido. Valores permitidos: %s", label, strings.Join(allowed, ", "))
	}
	return value, nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
