package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/platinummonkey/filtros/pkg/catalog"
	"github.com/platinummonkey/filtros/pkg/observability"
	"github.com/platinummonkey/filtros/pkg/storage"
)

// Store implements catalog.Repository on database/sql for PostgreSQL and SQLite.
type Store struct {
	db     *sql.DB
	driver string
	logger *observability.Logger
}

var _ catalog.Repository = (*Store)(nil)

// Open connects to cfg.DatabaseURL, configures the pool and pings the database.
func Open(ctx context.Context, cfg storage.Config, logger *observability.Logger) (*Store, error) {
	dsn, err := storage.ParseDatabaseURL(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dsn.Driver, dsn.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dsn.Driver, err)
	}

	if dsn.Driver == storage.DriverSQLite {
		// SQLite serialises writers; one connection avoids SQLITE_BUSY under load
		db.SetMaxOpenConns(1)
	} else {
		if cfg.MaxConns > 0 {
			db.SetMaxOpenConns(cfg.MaxConns)
		}
		if cfg.MinConns > 0 {
			db.SetMaxIdleConns(cfg.MinConns)
		}
		if cfg.MaxLifetime > 0 {
			db.SetConnMaxLifetime(cfg.MaxLifetime)
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = storage.DefaultConfig().Timeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", dsn.Driver, err)
	}

	return New(db, dsn.Driver, logger), nil
}

// New wraps an already opened database. driver must be storage.DriverPostgres
// or storage.DriverSQLite.
func New(db *sql.DB, driver string, logger *observability.Logger) *Store {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Store{
		db:     db,
		driver: driver,
		logger: logger.WithField("component", "sqlstore"),
	}
}

// DB exposes the underlying pool for health checks and metrics.
func (s *Store) DB() *sql.DB { return s.db }

// Driver returns the database/sql driver name.
func (s *Store) Driver() string { return s.driver }

// Close closes the pool.
func (s *Store) Close() error { return s.db.Close() }

// rebind rewrites ? placeholders to $1..$n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.driver != storage.DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (s *Store) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rebind(query), args...)
}

func (s *Store) count(ctx context.Context, query string, args ...interface{}) (int, error) {
	var n int
	if err := s.queryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// expectOne maps a zero-row update onto catalog.ErrNotFound.
func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// pgUniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// mapWriteError wraps unique constraint violations so that errors.Is(err,
// catalog.ErrDuplicate) holds. Other errors are returned unchanged.
func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) &&
		(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return fmt.Errorf("%w: %v", catalog.ErrDuplicate, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %v", catalog.ErrDuplicate, err)
	}
	return err
}

// normalizeName is the case-folded form stored next to names that must be
// unique or searchable regardless of case. SQLite's LOWER only folds ASCII.
func normalizeName(s string) string {
	return strings.ToLower(s)
}

// escapeLike escapes LIKE wildcards so user input matches literally (ESCAPE '\').
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// countBy scans (key, count) rows into a map.
func (s *Store) countBy(ctx context.Context, query string, args ...interface{}) (map[string]int, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		out[key] = n
	}
	return out, rows.Err()
}
