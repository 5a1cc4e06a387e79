package storage

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Driver names registered with database/sql.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Config for the SQL database and the optional Redis cache.
type Config struct {
	DatabaseURL string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration

	// Redis config; an empty URL disables Redis entirely
	RedisURL        string
	RedisPassword   string
	RedisDB         int
	RedisMaxRetries int
	RedisPoolSize   int

	// Cache config
	CacheEnabled bool
	CacheTTL     time.Duration
	L1CacheSize  int
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		DatabaseURL:     "sqlite:///./productos.db",
		MaxConns:        10,
		MinConns:        2,
		Timeout:         5 * time.Second,
		MaxLifetime:     30 * time.Minute,
		RedisMaxRetries: 3,
		RedisPoolSize:   10,
		CacheEnabled:    true,
		CacheTTL:        5 * time.Minute,
		L1CacheSize:     1024,
	}
}

// DSN is a database URL resolved to a database/sql driver and data source name.
type DSN struct {
	Driver string
	Source string
}

// ParseDatabaseURL maps a DATABASE_URL onto a driver.
//
//	sqlite:///./productos.db   -> sqlite3 ./productos.db
//	sqlite:////var/db/x.db     -> sqlite3 /var/db/x.db
//	sqlite://:memory:          -> sqlite3 :memory:
//	file:test.db?cache=shared  -> sqlite3 file:test.db?cache=shared
//	postgres://u:p@h/db        -> postgres (unchanged)
func ParseDatabaseURL(raw string) (DSN, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DSN{}, fmt.Errorf("database URL is empty")
	}

	switch {
	case strings.HasPrefix(raw, "sqlite:///"):
		path := strings.TrimPrefix(raw, "sqlite:///")
		if path == "" {
			return DSN{}, fmt.Errorf("sqlite database URL has no path")
		}
		return DSN{Driver: DriverSQLite, Source: withSQLiteDefaults(path)}, nil
	case strings.HasPrefix(raw, "sqlite://"):
		path := strings.TrimPrefix(raw, "sqlite://")
		if path == "" {
			return DSN{}, fmt.Errorf("sqlite database URL has no path")
		}
		return DSN{Driver: DriverSQLite, Source: withSQLiteDefaults(path)}, nil
	case strings.HasPrefix(raw, "file:"):
		return DSN{Driver: DriverSQLite, Source: withSQLiteDefaults(raw)}, nil
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		if _, err := url.Parse(raw); err != nil {
			return DSN{}, fmt.Errorf("invalid postgres URL: %w", err)
		}
		return DSN{Driver: DriverPostgres, Source: raw}, nil
	default:
		return DSN{}, fmt.Errorf("unsupported database URL scheme in %q (use sqlite:// or postgres://)", redactURL(raw))
	}
}

// withSQLiteDefaults turns on foreign keys, which SQLite leaves off per connection.
func withSQLiteDefaults(source string) string {
	if source == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		return "file::memory:?cache=shared&_foreign_keys=on"
	}
	if strings.Contains(source, "_foreign_keys=") || strings.Contains(source, "_fk=") {
		return source
	}
	sep := "?"
	if strings.Contains(source, "?") {
		sep = "&"
	}
	return source + sep + "_foreign_keys=on"
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}
