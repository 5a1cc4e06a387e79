package catalog

import (
	"math"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Paging limits.
const (
	MaxPageSize          = 1000
	DefaultPageSize      = 100
	MaxSearchResults     = 100
	DefaultSearchResults = 20
	MinSearchTermLength  = 2
	MaxSearchTermLength  = 100
	MaxDescriptionLength = 500
	maxPrice             = 9_999_999_999.99
)

var (
	productCodePattern  = regexp.MustCompile(`^[A-Za-z0-9\-_]{8,50}$`)
	filterNamePattern   = regexp.MustCompile(`^[A-Za-z0-9\s\-_.,;:áéíóúÁÉÍÓÚñÑ]{1,100}$`)
	brandPattern        = regexp.MustCompile(`^[A-Za-z0-9\s\-_&]{1,50}$`)
	categoryNamePattern = regexp.MustCompile(`^[A-Za-z0-9\s\-_.,;:áéíóúÁÉÍÓÚñÑ]{1,50}$`)
	categoryDescPattern = regexp.MustCompile(`^[A-Za-z0-9\s\-_.,;:áéíóúÁÉÍÓÚñÑ()]{0,500}$`)
	categoryTypePattern = regexp.MustCompile(`^[a-z_]{1,20}$`)
	rutPattern          = regexp.MustCompile(`^[0-9]{1,9}-?[0-9kK]$|^[0-9]{1,3}(\.[0-9]{3}){1,2}-[0-9kK]$`)
	phonePattern        = regexp.MustCompile(`^\+?[0-9\s\-()]{6,20}$`)
)

// Sanitize trims s and removes control characters and the characters ' " \ ;
// which have no business in catalogue text.
func Sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		switch r {
		case '\'', '"', '\\', ';':
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// ValidateProductCode sanitises and checks a product code.
func ValidateProductCode(code string) (string, error) {
	code = Sanitize(code)
	if !productCodePattern.MatchString(code) {
		return "", invalid("codigo_producto", "Código de producto inválido: debe tener entre 8 y 50 caracteres (letras, números, guiones o guiones bajos)")
	}
	return code, nil
}

// ValidateFilterName sanitises and checks a filter name.
func ValidateFilterName(name string) (string, error) {
	name = Sanitize(name)
	if !filterNamePattern.MatchString(name) {
		return "", invalid("nombre_filtro", "Nombre de filtro inválido: entre 1 y 100 caracteres, sin caracteres especiales")
	}
	return name, nil
}

// ValidateBrand sanitises and checks a brand.
func ValidateBrand(brand string) (string, error) {
	brand = Sanitize(brand)
	if !brandPattern.MatchString(brand) {
		return "", invalid("marca", "Marca inválida: entre 1 y 50 caracteres (letras, números, espacios, guiones o &)")
	}
	return brand, nil
}

// ValidateDescription sanitises a free-text description and bounds its length.
func ValidateDescription(desc string) (string, error) {
	desc = Sanitize(desc)
	if utf8.RuneCountInString(desc) > MaxDescriptionLength {
		return "", invalid("descripcion", "La descripción no puede exceder %d caracteres", MaxDescriptionLength)
	}
	return desc, nil
}

// ValidatePurchasePrice requires a finite positive price.
func ValidatePurchasePrice(p float64) error {
	if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 || p > maxPrice {
		return invalid("precio_compra", "El precio de compra debe ser mayor que 0")
	}
	return nil
}

// ValidateStock requires a non-negative quantity.
func ValidateStock(q int) error {
	if q < 0 {
		return invalid("stock", "El stock no puede ser negativo")
	}
	return nil
}

// ValidateMargin requires 0 <= pct <= 1000.
func ValidateMargin(pct float64) error {
	if math.IsNaN(pct) || pct < 0 || pct > 1000 {
		return invalid("margen_ganancia", "El margen de ganancia debe estar entre 0 y 1000")
	}
	return nil
}

// ValidateVAT requires 0 <= pct <= 100.
func ValidateVAT(pct float64) error {
	if math.IsNaN(pct) || pct < 0 || pct > 100 {
		return invalid("porcentaje_iva", "El porcentaje de IVA debe estar entre 0 y 100")
	}
	return nil
}

// ValidateID requires a positive identifier.
func ValidateID(field string, id int64) error {
	if id < 1 {
		return invalid(field, "El identificador %s debe ser un entero positivo", field)
	}
	return nil
}

// NormalizePaging validates skip and limit and clamps limit to MaxPageSize.
// clamped reports whether limit was reduced.
func NormalizePaging(skip, limit int) (int, int, bool, error) {
	if skip < 0 {
		return 0, 0, false, invalid("skip", "El parámetro skip no puede ser negativo")
	}
	if limit < 1 {
		return 0, 0, false, invalid("limit", "El parámetro limit debe ser mayor que 0")
	}
	if limit > MaxPageSize {
		return skip, MaxPageSize, true, nil
	}
	return skip, limit, false, nil
}

// ValidateCategoryName sanitises and checks a category name.
func ValidateCategoryName(name string) (string, error) {
	name = Sanitize(name)
	if name == "" {
		return "", invalid("nombre", "El nombre de la categoría es obligatorio")
	}
	if !categoryNamePattern.MatchString(name) {
		return "", invalid("nombre", "Nombre de categoría inválido: entre 1 y 50 caracteres, sin caracteres especiales")
	}
	return name, nil
}

// ValidateCategoryDescription sanitises and checks a category description.
func ValidateCategoryDescription(desc string) (string, error) {
	desc = Sanitize(desc)
	if utf8.RuneCountInString(desc) > MaxDescriptionLength {
		return "", invalid("descripcion", "La descripción no puede exceder %d caracteres", MaxDescriptionLength)
	}
	if !categoryDescPattern.MatchString(desc) {
		return "", invalid("descripcion", "La descripción contiene caracteres no permitidos")
	}
	return desc, nil
}

// ValidateCategoryType lowercases and checks a category type; empty yields the default.
func ValidateCategoryType(t string) (string, error) {
	t = strings.ToLower(Sanitize(t))
	if t == "" {
		return DefaultCategoryType, nil
	}
	if !categoryTypePattern.MatchString(t) || !contains(categoryTypes, t) {
		return "", invalid("tipo", "Tipo de categoría inválido. Valores permitidos: %s", strings.Join(categoryTypes, ", "))
	}
	return t, nil
}

// ValidateSearchTerm sanitises a search term and bounds its length.
func ValidateSearchTerm(term string) (string, error) {
	term = Sanitize(term)
	n := utf8.RuneCountInString(term)
	if n < MinSearchTermLength {
		return "", invalid("q", "El término de búsqueda debe tener al menos %d caracteres", MinSearchTermLength)
	}
	if n > MaxSearchTermLength {
		return "", invalid("q", "El término de búsqueda no puede exceder %d caracteres", MaxSearchTermLength)
	}
	return term, nil
}

// NormalizeSearchLimit maps out-of-range limits to DefaultSearchResults.
func NormalizeSearchLimit(limit int) int {
	if limit < 1 || limit > MaxSearchResults {
		return DefaultSearchResults
	}
	return limit
}

// ValidateDistributor sanitises and checks a distributor payload.
func ValidateDistributor(in DistributorInput) (DistributorInput, error) {
	out := DistributorInput{
		Name:    Sanitize(in.Name),
		RUT:     strings.ToUpper(Sanitize(in.RUT)),
		Contact: Sanitize(in.Contact),
		Phone:   Sanitize(in.Phone),
		Email:   strings.ToLower(Sanitize(in.Email)),
		Address: Sanitize(in.Address),
		City:    Sanitize(in.City),
	}

	if out.Name == "" || utf8.RuneCountInString(out.Name) > 100 {
		return out, invalid("nombre", "El nombre del distribuidor es obligatorio (máximo 100 caracteres)")
	}
	if !rutPattern.MatchString(out.RUT) {
		return out, invalid("rut", "RUT inválido")
	}
	if utf8.RuneCountInString(out.Contact) > 100 {
		return out, invalid("contacto", "El contacto no puede exceder 100 caracteres")
	}
	if out.Phone != "" && !phonePattern.MatchString(out.Phone) {
		return out, invalid("telefono", "Teléfono inválido")
	}
	if out.Email != "" {
		addr, err := mail.ParseAddress(out.Email)
		if err != nil || addr.Address != out.Email || utf8.RuneCountInString(out.Email) > 100 {
			return out, invalid("email", "Email inválido")
		}
	}
	if utf8.RuneCountInString(out.Address) > 200 {
		return out, invalid("direccion", "La dirección no puede exceder 200 caracteres")
	}
	if utf8.RuneCountInString(out.City) > 100 {
		return out, invalid("ciudad", "La ciudad no puede exceder 100 caracteres")
	}
	return out, nil
}
