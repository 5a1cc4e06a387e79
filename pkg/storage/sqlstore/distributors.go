package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/platinummonkey/filtros/pkg/catalog"
)

const distributorColumns = "id, nombre, rut, contacto, telefono, email, direccion, ciudad, activo, created_at"

func scanDistributor(row rowScanner) (*catalog.Distributor, error) {
	var d catalog.Distributor
	err := row.Scan(&d.ID, &d.Name, &d.RUT, &d.Contact, &d.Phone, &d.Email, &d.Address, &d.City, &d.Active, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDistributors returns active distributors ordered by name.
func (s *Store) ListDistributors(ctx context.Context) ([]*catalog.Distributor, error) {
	rows, err := s.query(ctx, "SELECT "+distributorColumns+" FROM distribuidores WHERE activo = TRUE ORDER BY nombre")
	if err != nil {
		return nil, fmt.Errorf("failed to list distributors: %w", err)
	}
	defer rows.Close()

	ds := []*catalog.Distributor{}
	for rows.Next() {
		d, err := scanDistributor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan distributor: %w", err)
		}
		ds = append(ds, d)
	}
	return ds, rows.Err()
}

// GetDistributor returns an active distributor.
func (s *Store) GetDistributor(ctx context.Context, id int64) (*catalog.Distributor, error) {
	d, err := scanDistributor(s.queryRow(ctx,
		"SELECT "+distributorColumns+" FROM distribuidores WHERE id = ? AND activo = TRUE", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get distributor: %w", err)
	}
	return d, nil
}

// DistributorRUTExists reports whether any distributor uses rut.
func (s *Store) DistributorRUTExists(ctx context.Context, rut string) (bool, error) {
	n, err := s.count(ctx, "SELECT COUNT(*) FROM distribuidores WHERE rut = ?", rut)
	if err != nil {
		return false, fmt.Errorf("failed to check distributor rut: %w", err)
	}
	return n > 0, nil
}

// CreateDistributor inserts d and sets its ID.
func (s *Store) CreateDistributor(ctx context.Context, d *catalog.Distributor) error {
	err := s.queryRow(ctx, `
		INSERT INTO distribuidores (nombre, rut, contacto, telefono, email, direccion, ciudad, activo, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		d.Name, d.RUT, d.Contact, d.Phone, d.Email, d.Address, d.City, d.Active, d.CreatedAt,
	).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("failed to insert distributor: %w", mapWriteError(err))
	}
	return nil
}
