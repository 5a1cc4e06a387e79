package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/platinummonkey/filtros/pkg/catalog"
)

const filterColumns = `
	f.id, f.codigo_producto, f.nombre, f.descripcion, f.marca, f.categoria_id, f.distribuidor_id,
	f.stock, f.precio_compra, f.margen_ganancia, f.porcentaje_iva, f.precio_neto, f.iva, f.precio_venta,
	f.tipo_vehiculo, f.tipo_aceite, f.tipo_combustible, f.tipo_filtro, f.activo, f.created_at, f.updated_at,
	c.id, c.nombre, c.descripcion, c.tipo, c.activo, c.created_at,
	d.id, d.nombre, d.rut, d.contacto, d.telefono, d.email, d.direccion, d.ciudad, d.activo, d.created_at`

const filterFrom = `
	FROM filtros f
	JOIN categorias c ON c.id = f.categoria_id
	LEFT JOIN distribuidores d ON d.id = f.distribuidor_id`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFilter(row rowScanner) (*catalog.Filter, error) {
	var (
		f   catalog.Filter
		c   catalog.Category
		dID sql.NullInt64
	)
	var distID sql.NullInt64
	var dName, dRUT, dContact, dPhone, dEmail, dAddress, dCity sql.NullString
	var dActive sql.NullBool
	var dCreated sql.NullTime
	err := row.Scan(
		&f.ID, &f.ProductCode, &f.Name, &f.Description, &f.Brand, &f.CategoryID, &dID,
		&f.Stock, &f.PurchasePrice, &f.MarginPercent, &f.VATPercent, &f.NetPrice, &f.VAT, &f.SalePrice,
		&f.VehicleType, &f.OilType, &f.FuelType, &f.FilterType, &f.Active, &f.CreatedAt, &f.UpdatedAt,
		&c.ID, &c.Name, &c.Description, &c.Type, &c.Active, &c.CreatedAt,
		&distID, &dName, &dRUT, &dContact, &dPhone, &dEmail, &dAddress, &dCity, &dActive, &dCreated,
	)
	if err != nil {
		return nil, err
	}

	f.Category = &c
	if dID.Valid {
		id := dID.Int64
		f.DistributorID = &id
	}
	if distID.Valid {
		f.Distributor = &catalog.Distributor{
			ID:        distID.Int64,
			Name:      dName.String,
			RUT:       dRUT.String,
			Contact:   dContact.String,
			Phone:     dPhone.String,
			Email:     dEmail.String,
			Address:   dAddress.String,
			City:      dCity.String,
			Active:    dActive.Bool,
			CreatedAt: dCreated.Time,
		}
	}
	return &f, nil
}

// filterWhere builds the WHERE clause shared by ListFilters and CountFilters.
func filterWhere(q catalog.FilterQuery) (string, []interface{}) {
	clauses := []string{"f.activo = TRUE"}
	var args []interface{}

	if q.CategoryID > 0 {
		clauses = append(clauses, "f.categoria_id = ?")
		args = append(args, q.CategoryID)
	}
	if q.DistributorID > 0 {
		clauses = append(clauses, "f.distribuidor_id = ?")
		args = append(args, q.DistributorID)
	}
	for _, kv := range []struct{ col, val string }{
		{"f.tipo_vehiculo", q.Vehicle.VehicleType},
		{"f.tipo_aceite", q.Vehicle.OilType},
		{"f.tipo_combustible", q.Vehicle.FuelType},
		{"f.tipo_filtro", q.Vehicle.FilterType},
	} {
		if kv.val == "" {
			continue
		}
		clauses = append(clauses, kv.col+" = ?")
		args = append(args, kv.val)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// ListFilters returns a page of active filters ordered by id.
func (s *Store) ListFilters(ctx context.Context, q catalog.FilterQuery) ([]*catalog.Filter, error) {
	where, args := filterWhere(q)
	query := "SELECT " + filterColumns + filterFrom + where + " ORDER BY f.id LIMIT ? OFFSET ?"
	args = append(args, q.Limit, q.Skip)

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query filters: %w", err)
	}
	defer rows.Close()

	filters := []*catalog.Filter{}
	for rows.Next() {
		f, err := scanFilter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan filter: %w", err)
		}
		filters = append(filters, f)
	}
	return filters, rows.Err()
}

// CountFilters counts active filters matching q, ignoring paging.
func (s *Store) CountFilters(ctx context.Context, q catalog.FilterQuery) (int, error) {
	where, args := filterWhere(q)
	n, err := s.count(ctx, "SELECT COUNT(*) FROM filtros f"+where, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to count filters: %w", err)
	}
	return n, nil
}

// GetFilter returns an active filter with its category and distributor.
func (s *Store) GetFilter(ctx context.Context, id int64) (*catalog.Filter, error) {
	row := s.queryRow(ctx, "SELECT "+filterColumns+filterFrom+" WHERE f.id = ? AND f.activo = TRUE", id)
	f, err := scanFilter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get filter: %w", err)
	}
	return f, nil
}

// GetFilterByCode returns an active filter by product code.
func (s *Store) GetFilterByCode(ctx context.Context, code string) (*catalog.Filter, error) {
	row := s.queryRow(ctx, "SELECT "+filterColumns+filterFrom+" WHERE f.codigo_producto = ? AND f.activo = TRUE", code)
	f, err := scanFilter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get filter by code: %w", err)
	}
	return f, nil
}

// ProductCodeExists reports whether any filter other than excludeID uses code.
func (s *Store) ProductCodeExists(ctx context.Context, code string, excludeID int64) (bool, error) {
	n, err := s.count(ctx, "SELECT COUNT(*) FROM filtros WHERE codigo_producto = ? AND id <> ?", code, excludeID)
	if err != nil {
		return false, fmt.Errorf("failed to check product code: %w", err)
	}
	return n > 0, nil
}

func nullableID(id *int64) interface{} {
	if id == nil || *id == 0 {
		return nil
	}
	return *id
}

// CreateFilter inserts f and sets its ID.
func (s *Store) CreateFilter(ctx context.Context, f *catalog.Filter) error {
	query := `
		INSERT INTO filtros (
			codigo_producto, nombre, descripcion, marca, categoria_id, distribuidor_id, stock,
			precio_compra, margen_ganancia, porcentaje_iva, precio_neto, iva, precio_venta,
			tipo_vehiculo, tipo_aceite, tipo_combustible, tipo_filtro, activo, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`

	err := s.queryRow(ctx, query,
		f.ProductCode, f.Name, f.Description, f.Brand, f.CategoryID, nullableID(f.DistributorID), f.Stock,
		f.PurchasePrice, f.MarginPercent, f.VATPercent, f.NetPrice, f.VAT, f.SalePrice,
		f.VehicleType, f.OilType, f.FuelType, f.FilterType, f.Active, f.CreatedAt, f.UpdatedAt,
	).Scan(&f.ID)
	if err != nil {
		return fmt.Errorf("failed to insert filter: %w", mapWriteError(err))
	}
	return nil
}

// UpdateFilter writes every mutable column of an active filter.
func (s *Store) UpdateFilter(ctx context.Context, f *catalog.Filter) error {
	query := `
		UPDATE filtros SET
			codigo_producto = ?, nombre = ?, descripcion = ?, marca = ?, categoria_id = ?, distribuidor_id = ?,
			stock = ?, precio_compra = ?, margen_ganancia = ?, porcentaje_iva = ?, precio_neto = ?, iva = ?,
			precio_venta = ?, tipo_vehiculo = ?, tipo_aceite = ?, tipo_combustible = ?, tipo_filtro = ?,
			updated_at = ?
		WHERE id = ? AND activo = TRUE`

	res, err := s.exec(ctx, query,
		f.ProductCode, f.Name, f.Description, f.Brand, f.CategoryID, nullableID(f.DistributorID),
		f.Stock, f.PurchasePrice, f.MarginPercent, f.VATPercent, f.NetPrice, f.VAT,
		f.SalePrice, f.VehicleType, f.OilType, f.FuelType, f.FilterType,
		f.UpdatedAt, f.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update filter: %w", mapWriteError(err))
	}
	return expectOne(res)
}

// DeactivateFilter soft-deletes an active filter.
func (s *Store) DeactivateFilter(ctx context.Context, id int64, at time.Time) error {
	res, err := s.exec(ctx, "UPDATE filtros SET activo = FALSE, updated_at = ? WHERE id = ? AND activo = TRUE", at, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate filter: %w", err)
	}
	return expectOne(res)
}

// FilterStatistics aggregates the active catalogue.
func (s *Store) FilterStatistics(ctx context.Context) (*catalog.FilterStats, error) {
	stats := &catalog.FilterStats{}

	total, err := s.count(ctx, "SELECT COUNT(*) FROM filtros WHERE activo = TRUE")
	if err != nil {
		return nil, fmt.Errorf("failed to count filters: %w", err)
	}
	stats.Total = total

	stats.ByCategory, err = s.countBy(ctx, `
		SELECT c.nombre, COUNT(f.id)
		FROM filtros f JOIN categorias c ON c.id = f.categoria_id
		WHERE f.activo = TRUE
		GROUP BY c.nombre`)
	if err != nil {
		return nil, fmt.Errorf("failed to count filters by category: %w", err)
	}

	stats.ByVehicleType, err = s.countBy(ctx, `
		SELECT tipo_vehiculo, COUNT(*) FROM filtros
		WHERE activo = TRUE AND tipo_vehiculo <> ''
		GROUP BY tipo_vehiculo`)
	if err != nil {
		return nil, fmt.Errorf("failed to count filters by vehicle type: %w", err)
	}

	stats.ByFilterType, err = s.countBy(ctx, `
		SELECT tipo_filtro, COUNT(*) FROM filtros
		WHERE activo = TRUE AND tipo_filtro <> ''
		GROUP BY tipo_filtro`)
	if err != nil {
		return nil, fmt.Errorf("failed to count filters by filter type: %w", err)
	}

	return stats, nil
}
