package catalog

import "time"

// VehicleCriteria classifies a filter by the vehicle it fits. Empty fields mean "any".
type VehicleCriteria struct {
	VehicleType string `json:"tipo_vehiculo,omitempty"`
	OilType     string `json:"tipo_aceite,omitempty"`
	FuelType    string `json:"tipo_combustible,omitempty"`
	FilterType  string `json:"tipo_filtro,omitempty"`
}

// IsZero reports whether no criterion is set.
func (c VehicleCriteria) IsZero() bool {
	return c == VehicleCriteria{}
}

// Category groups filters (e.g. "Aire", "Aceite").
type Category struct {
	ID          int64     `json:"id_categoria"`
	Name        string    `json:"nombre"`
	Description string    `json:"descripcion,omitempty"`
	Type        string    `json:"tipo"`
	Active      bool      `json:"activo"`
	CreatedAt   time.Time `json:"fecha_creacion"`
}

// Distributor supplies filters.
type Distributor struct {
	ID        int64     `json:"id_distribuidor"`
	Name      string    `json:"nombre"`
	RUT       string    `json:"rut"`
	Contact   string    `json:"contacto,omitempty"`
	Phone     string    `json:"telefono,omitempty"`
	Email     string    `json:"email,omitempty"`
	Address   string    `json:"direccion,omitempty"`
	City      string    `json:"ciudad,omitempty"`
	Active    bool      `json:"activo"`
	CreatedAt time.Time `json:"fecha_creacion"`
}

// Filter is a product of the catalogue.
type Filter struct {
	ID            int64  `json:"id_filtro"`
	ProductCode   string `json:"codigo_producto"`
	Name          string `json:"nombre_filtro"`
	Description   string `json:"descripcion,omitempty"`
	Brand         string `json:"marca"`
	CategoryID    int64  `json:"id_categoria"`
	DistributorID *int64 `json:"id_distribuidor,omitempty"`
	Stock         int    `json:"stock"`

	PurchasePrice float64 `json:"precio_compra"`
	MarginPercent float64 `json:"margen_ganancia"`
	VATPercent    float64 `json:"porcentaje_iva"`
	NetPrice      float64 `json:"precio_neto"`
	VAT           float64 `json:"iva"`
	SalePrice     float64 `json:"precio_venta"`

	VehicleCriteria

	Active    bool      `json:"activo"`
	CreatedAt time.Time `json:"fecha_creacion"`
	UpdatedAt time.Time `json:"fecha_actualizacion"`

	Category    *Category    `json:"categoria,omitempty"`
	Distributor *Distributor `json:"distribuidor,omitempty"`
}

// Clone returns a deep copy so cached values cannot be mutated by callers.
func (f *Filter) Clone() *Filter {
	if f == nil {
		return nil
	}
	c := *f
	if f.DistributorID != nil {
		id := *f.DistributorID
		c.DistributorID = &id
	}
	if f.Category != nil {
		cat := *f.Category
		c.Category = &cat
	}
	if f.Distributor != nil {
		d := *f.Distributor
		c.Distributor = &d
	}
	return &c
}

// ApplyPricing recomputes the derived price fields from purchase price, margin and VAT.
func (f *Filter) ApplyPricing() {
	p := CalculatePrices(f.PurchasePrice, f.MarginPercent, f.VATPercent)
	f.NetPrice = p.Net
	f.VAT = p.VAT
	f.SalePrice = p.Sale
}

// FilterQuery selects a page of active filters.
type FilterQuery struct {
	Skip          int
	Limit         int
	CategoryID    int64
	DistributorID int64
	Vehicle       VehicleCriteria
}

// FilterPage is a page of filters plus paging metadata.
type FilterPage struct {
	Items []*Filter `json:"items"`
	Total int       `json:"total"`
	Page  int       `json:"pagina"`
	Size  int       `json:"tamaño"`
}

// FilterInput is the payload to create a filter. Nil pointers take defaults.
type FilterInput struct {
	ProductCode   string   `json:"codigo_producto"`
	Name          string   `json:"nombre_filtro"`
	Description   string   `json:"descripcion"`
	Brand         string   `json:"marca"`
	CategoryID    int64    `json:"id_categoria"`
	DistributorID *int64   `json:"id_distribuidor"`
	Stock         int      `json:"stock"`
	PurchasePrice float64  `json:"precio_compra"`
	MarginPercent *float64 `json:"margen_ganancia"`
	VATPercent    *float64 `json:"porcentaje_iva"`

	VehicleCriteria
}

// FilterPatch carries the fields to change on update; nil means unchanged.
type FilterPatch struct {
	ProductCode   *string  `json:"codigo_producto"`
	Name          *string  `json:"nombre_filtro"`
	Description   *string  `json:"descripcion"`
	Brand         *string  `json:"marca"`
	CategoryID    *int64   `json:"id_categoria"`
	DistributorID *int64   `json:"id_distribuidor"`
	Stock         *int     `json:"stock"`
	PurchasePrice *float64 `json:"precio_compra"`
	MarginPercent *float64 `json:"margen_ganancia"`
	VATPercent    *float64 `json:"porcentaje_iva"`
	VehicleType   *string  `json:"tipo_vehiculo"`
	OilType       *string  `json:"tipo_aceite"`
	FuelType      *string  `json:"tipo_combustible"`
	FilterType    *string  `json:"tipo_filtro"`
}

// IsEmpty reports whether the patch changes nothing.
func (p FilterPatch) IsEmpty() bool {
	return p == FilterPatch{}
}

// CategoryInput creates or replaces a category.
type CategoryInput struct {
	Name        string `json:"nombre"`
	Description string `json:"descripcion"`
	Type        string `json:"tipo"`
}

// DistributorInput creates a distributor.
type DistributorInput struct {
	Name    string `json:"nombre"`
	RUT     string `json:"rut"`
	Contact string `json:"contacto"`
	Phone   string `json:"telefono"`
	Email   string `json:"email"`
	Address string `json:"direccion"`
	City    string `json:"ciudad"`
}

// FilterStats summarises the active catalogue.
type FilterStats struct {
	Total         int            `json:"total_productos"`
	ByCategory    map[string]int `json:"por_categoria"`
	ByVehicleType map[string]int `json:"por_tipo_vehiculo"`
	ByFilterType  map[string]int `json:"por_tipo_filtro"`
}

// CategoryCount is the number of active filters in a category.
type CategoryCount struct {
	ID    int64  `json:"id_categoria"`
	Name  string `json:"nombre"`
	Count int    `json:"total_productos"`
}

// CategoryStats summarises categories and their usage.
type CategoryStats struct {
	Total              int             `json:"total_categorias"`
	ByType             map[string]int  `json:"por_tipo"`
	FiltersPerCategory []CategoryCount `json:"productos_por_categoria"`
	MostUsed           []CategoryCount `json:"categorias_mas_usadas"`
}
