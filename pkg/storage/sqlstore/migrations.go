package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/platinummonkey/filtros/pkg/storage"
)

// Migration is one versioned schema change with per-dialect DDL.
type Migration struct {
	Version     int
	Description string
	Postgres    string
	SQLite      string
	// Apply runs after the DDL in the same transaction, for data changes that
	// have to be computed in Go.
	Apply func(ctx context.Context, s *Store, tx *sql.Tx) error
}

// Migrations returns the schema history in order.
func Migrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create categorias table",
			Postgres: `
				CREATE TABLE IF NOT EXISTS categorias (
					id BIGSERIAL PRIMARY KEY,
					nombre VARCHAR(50) NOT NULL,
					descripcion VARCHAR(500) NOT NULL DEFAULT '',
					tipo VARCHAR(20) NOT NULL DEFAULT 'general',
					activo BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMPTZ NOT NULL
				);
				CREATE UNIQUE INDEX IF NOT EXISTS idx_categorias_nombre_activo
					ON categorias (LOWER(nombre)) WHERE activo;
				CREATE INDEX IF NOT EXISTS idx_categorias_tipo ON categorias (tipo);
			`,
			SQLite: `
				CREATE TABLE IF NOT EXISTS categorias (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					nombre VARCHAR(50) NOT NULL,
					descripcion VARCHAR(500) NOT NULL DEFAULT '',
					tipo VARCHAR(20) NOT NULL DEFAULT 'general',
					activo BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMP NOT NULL
				);
				CREATE UNIQUE INDEX IF NOT EXISTS idx_categorias_nombre_activo
					ON categorias (LOWER(nombre)) WHERE activo;
				CREATE INDEX IF NOT EXISTS idx_categorias_tipo ON categorias (tipo);
			`,
		},
		{
			Version:     2,
			Description: "Create distribuidores table",
			Postgres: `
				CREATE TABLE IF NOT EXISTS distribuidores (
					id BIGSERIAL PRIMARY KEY,
					nombre VARCHAR(100) NOT NULL,
					rut VARCHAR(20) NOT NULL UNIQUE,
					contacto VARCHAR(100) NOT NULL DEFAULT '',
					telefono VARCHAR(20) NOT NULL DEFAULT '',
					email VARCHAR(100) NOT NULL DEFAULT '',
					direccion VARCHAR(200) NOT NULL DEFAULT '',
					ciudad VARCHAR(100) NOT NULL DEFAULT '',
					activo BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMPTZ NOT NULL
				);
			`,
			SQLite: `
				CREATE TABLE IF NOT EXISTS distribuidores (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					nombre VARCHAR(100) NOT NULL,
					rut VARCHAR(20) NOT NULL UNIQUE,
					contacto VARCHAR(100) NOT NULL DEFAULT '',
					telefono VARCHAR(20) NOT NULL DEFAULT '',
					email VARCHAR(100) NOT NULL DEFAULT '',
					direccion VARCHAR(200) NOT NULL DEFAULT '',
					ciudad VARCHAR(100) NOT NULL DEFAULT '',
					activo BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMP NOT NULL
				);
			`,
		},
		{
			Version:     3,
			Description: "Create filtros table",
			Postgres: `
				CREATE TABLE IF NOT EXISTS filtros (
					id BIGSERIAL PRIMARY KEY,
					codigo_producto VARCHAR(50) NOT NULL UNIQUE,
					nombre VARCHAR(100) NOT NULL,
					descripcion VARCHAR(500) NOT NULL DEFAULT '',
					marca VARCHAR(50) NOT NULL,
					categoria_id BIGINT NOT NULL REFERENCES categorias(id),
					distribuidor_id BIGINT REFERENCES distribuidores(id),
					stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
					precio_compra NUMERIC(12,2) NOT NULL CHECK (precio_compra > 0),
					margen_ganancia NUMERIC(7,2) NOT NULL DEFAULT 30,
					porcentaje_iva NUMERIC(5,2) NOT NULL DEFAULT 19,
					precio_neto NUMERIC(14,2) NOT NULL,
					iva NUMERIC(14,2) NOT NULL,
					precio_venta NUMERIC(14,2) NOT NULL,
					tipo_vehiculo VARCHAR(20) NOT NULL DEFAULT '',
					tipo_aceite VARCHAR(20) NOT NULL DEFAULT '',
					tipo_combustible VARCHAR(20) NOT NULL DEFAULT '',
					tipo_filtro VARCHAR(20) NOT NULL DEFAULT '',
					activo BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMPTZ NOT NULL,
					updated_at TIMESTAMPTZ NOT NULL
				);
				CREATE INDEX IF NOT EXISTS idx_filtros_categoria ON filtros (categoria_id) WHERE activo;
				CREATE INDEX IF NOT EXISTS idx_filtros_distribuidor ON filtros (distribuidor_id) WHERE activo;
				CREATE INDEX IF NOT EXISTS idx_filtros_vehiculo ON filtros (tipo_vehiculo, tipo_filtro) WHERE activo;
			`,
			SQLite: `
				CREATE TABLE IF NOT EXISTS filtros (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					codigo_producto VARCHAR(50) NOT NULL UNIQUE,
					nombre VARCHAR(100) NOT NULL,
					descripcion VARCHAR(500) NOT NULL DEFAULT '',
					marca VARCHAR(50) NOT NULL,
					categoria_id INTEGER NOT NULL REFERENCES categorias(id),
					distribuidor_id INTEGER REFERENCES distribuidores(id),
					stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
					precio_compra NUMERIC(12,2) NOT NULL CHECK (precio_compra > 0),
					margen_ganancia NUMERIC(7,2) NOT NULL DEFAULT 30,
					porcentaje_iva NUMERIC(5,2) NOT NULL DEFAULT 19,
					precio_neto NUMERIC(14,2) NOT NULL,
					iva NUMERIC(14,2) NOT NULL,
					precio_venta NUMERIC(14,2) NOT NULL,
					tipo_vehiculo VARCHAR(20) NOT NULL DEFAULT '',
					tipo_aceite VARCHAR(20) NOT NULL DEFAULT '',
					tipo_combustible VARCHAR(20) NOT NULL DEFAULT '',
					tipo_filtro VARCHAR(20) NOT NULL DEFAULT '',
					activo BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMP NOT NULL,
					updated_at TIMESTAMP NOT NULL
				);
				CREATE INDEX IF NOT EXISTS idx_filtros_categoria ON filtros (categoria_id) WHERE activo;
				CREATE INDEX IF NOT EXISTS idx_filtros_distribuidor ON filtros (distribuidor_id) WHERE activo;
				CREATE INDEX IF NOT EXISTS idx_filtros_vehiculo ON filtros (tipo_vehiculo, tipo_filtro) WHERE activo;
			`,
		},
		{
			Version:     4,
			Description: "Add case-folded category name and description",
			Postgres: `
				ALTER TABLE categorias ADD COLUMN IF NOT EXISTS nombre_normalizado VARCHAR(50) NOT NULL DEFAULT '';
				ALTER TABLE categorias ADD COLUMN IF NOT EXISTS descripcion_normalizada VARCHAR(500) NOT NULL DEFAULT '';
				DROP INDEX IF EXISTS idx_categorias_nombre_activo;
			`,
			SQLite: `
				ALTER TABLE categorias ADD COLUMN nombre_normalizado VARCHAR(50) NOT NULL DEFAULT '';
				ALTER TABLE categorias ADD COLUMN descripcion_normalizada VARCHAR(500) NOT NULL DEFAULT '';
				DROP INDEX IF EXISTS idx_categorias_nombre_activo;
			`,
			Apply: backfillCategoryNames,
		},
	}
}

// backfillCategoryNames fills the case-folded columns of existing categories
// and indexes the folded name, so uniqueness holds for accented letters too.
func backfillCategoryNames(ctx context.Context, s *Store, tx *sql.Tx) error {
	type row struct {
		id          int64
		name, descr string
	}

	rows, err := tx.QueryContext(ctx, "SELECT id, nombre, descripcion FROM categorias")
	if err != nil {
		return fmt.Errorf("failed to read categories: %w", err)
	}
	var existing []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.name, &r.descr); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan category: %w", err)
		}
		existing = append(existing, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("failed to read categories: %w", err)
	}
	rows.Close()

	update := s.rebind("UPDATE categorias SET nombre_normalizado = ?, descripcion_normalizada = ? WHERE id = ?")
	for _, r := range existing {
		if _, err := tx.ExecContext(ctx, update, normalizeName(r.name), normalizeName(r.descr), r.id); err != nil {
			return fmt.Errorf("failed to backfill category %d: %w", r.id, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS idx_categorias_nombre_normalizado
		ON categorias (nombre_normalizado) WHERE activo`); err != nil {
		return fmt.Errorf("failed to index category names: %w", err)
	}
	return nil
}

// Migrate applies every pending migration, each in its own transaction.
// It returns the number of migrations applied.
func (s *Store) Migrate(ctx context.Context) (int, error) {
	ddl := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL
		)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return 0, fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return 0, fmt.Errorf("failed to query migrations: %w", err)
	}
	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("failed to read migrations: %w", err)
	}
	rows.Close()

	count := 0
	for _, m := range Migrations() {
		if applied[m.Version] {
			continue
		}

		stmt := m.SQLite
		if s.driver == storage.DriverPostgres {
			stmt = m.Postgres
		}

		log := s.logger.WithFields(map[string]interface{}{
			"version":     m.Version,
			"description": m.Description,
		})
		log.Info("Running migration")

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return count, fmt.Errorf("failed to start transaction: %w", err)
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return count, fmt.Errorf("failed to execute migration %d: %w", m.Version, err)
		}
		if m.Apply != nil {
			if err := m.Apply(ctx, s, tx); err != nil {
				_ = tx.Rollback()
				return count, fmt.Errorf("failed to execute migration %d: %w", m.Version, err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			s.rebind("INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)"),
			m.Version, m.Description, time.Now().UTC(),
		); err != nil {
			_ = tx.Rollback()
			return count, fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return count, fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}
		count++
	}

	return count, nil
}
