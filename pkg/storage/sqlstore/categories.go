package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/platinummonkey/filtros/pkg/catalog"
)

const categoryColumns = "id, nombre, descripcion, tipo, activo, created_at"

func scanCategory(row rowScanner) (*catalog.Category, error) {
	var c catalog.Category
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Type, &c.Active, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) queryCategories(ctx context.Context, query string, args ...interface{}) ([]*catalog.Category, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []*catalog.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// ListCategories returns active categories, optionally of a single type.
func (s *Store) ListCategories(ctx context.Context, categoryType string) ([]*catalog.Category, error) {
	query := "SELECT " + categoryColumns + " FROM categorias WHERE activo = TRUE"
	var args []interface{}
	if categoryType != "" {
		query += " AND tipo = ?"
		args = append(args, categoryType)
	}
	query += " ORDER BY nombre"

	categories, err := s.queryCategories(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// GetCategory returns an active category.
func (s *Store) GetCategory(ctx context.Context, id int64) (*catalog.Category, error) {
	c, err := scanCategory(s.queryRow(ctx,
		"SELECT "+categoryColumns+" FROM categorias WHERE id = ? AND activo = TRUE", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

// FindCategoryByName matches active category names case-insensitively.
func (s *Store) FindCategoryByName(ctx context.Context, name string, excludeID int64) (*catalog.Category, error) {
	c, err := scanCategory(s.queryRow(ctx,
		"SELECT "+categoryColumns+" FROM categorias WHERE nombre_normalizado = ? AND id <> ? AND activo = TRUE",
		normalizeName(name), excludeID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find category by name: %w", err)
	}
	return c, nil
}

// CreateCategory inserts c and sets its ID.
func (s *Store) CreateCategory(ctx context.Context, c *catalog.Category) error {
	err := s.queryRow(ctx,
		`INSERT INTO categorias (nombre, nombre_normalizado, descripcion, descripcion_normalizada, tipo, activo, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		c.Name, normalizeName(c.Name), c.Description, normalizeName(c.Description), c.Type, c.Active, c.CreatedAt,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("failed to insert category: %w", mapWriteError(err))
	}
	return nil
}

// UpdateCategory writes name, description and type of an active category.
func (s *Store) UpdateCategory(ctx context.Context, c *catalog.Category) error {
	res, err := s.exec(ctx,
		`UPDATE categorias SET nombre = ?, nombre_normalizado = ?, descripcion = ?, descripcion_normalizada = ?, tipo = ?
		WHERE id = ? AND activo = TRUE`,
		c.Name, normalizeName(c.Name), c.Description, normalizeName(c.Description), c.Type, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", mapWriteError(err))
	}
	return expectOne(res)
}

// DeactivateCategory soft-deletes an active category.
func (s *Store) DeactivateCategory(ctx context.Context, id int64) error {
	res, err := s.exec(ctx, "UPDATE categorias SET activo = FALSE WHERE id = ? AND activo = TRUE", id)
	if err != nil {
		return fmt.Errorf("failed to deactivate category: %w", err)
	}
	return expectOne(res)
}

// CountActiveFiltersInCategory counts the active filters referencing a category.
func (s *Store) CountActiveFiltersInCategory(ctx context.Context, id int64) (int, error) {
	n, err := s.count(ctx, "SELECT COUNT(*) FROM filtros WHERE categoria_id = ? AND activo = TRUE", id)
	if err != nil {
		return 0, fmt.Errorf("failed to count filters in category: %w", err)
	}
	return n, nil
}

// SearchCategories matches term as a literal substring of name or description.
func (s *Store) SearchCategories(ctx context.Context, term string, limit int) ([]*catalog.Category, error) {
	pattern := "%" + escapeLike(normalizeName(term)) + "%"
	query := "SELECT " + categoryColumns + ` FROM categorias
		WHERE activo = TRUE
		  AND (nombre_normalizado LIKE ? ESCAPE '\' OR descripcion_normalizada LIKE ? ESCAPE '\')
		ORDER BY nombre
		LIMIT ?`

	categories, err := s.queryCategories(ctx, query, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search categories: %w", err)
	}
	return categories, nil
}

// CategoryCounts lists active categories with their active filter counts.
func (s *Store) CategoryCounts(ctx context.Context) ([]catalog.CategoryCount, error) {
	rows, err := s.query(ctx, `
		SELECT c.id, c.nombre, COUNT(f.id) AS total
		FROM categorias c
		LEFT JOIN filtros f ON f.categoria_id = c.id AND f.activo = TRUE
		WHERE c.activo = TRUE
		GROUP BY c.id, c.nombre
		ORDER BY total DESC, c.nombre`)
	if err != nil {
		return nil, fmt.Errorf("failed to query category counts: %w", err)
	}
	defer rows.Close()

	counts := []catalog.CategoryCount{}
	for rows.Next() {
		var cc catalog.CategoryCount
		if err := rows.Scan(&cc.ID, &cc.Name, &cc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		counts = append(counts, cc)
	}
	return counts, rows.Err()
}

// CountCategoriesByType counts active categories per type.
func (s *Store) CountCategoriesByType(ctx context.Context) (map[string]int, error) {
	m, err := s.countBy(ctx, "SELECT tipo, COUNT(*) FROM categorias WHERE activo = TRUE GROUP BY tipo")
	if err != nil {
		return nil, fmt.Errorf("failed to count categories by type: %w", err)
	}
	return m, nil
}
