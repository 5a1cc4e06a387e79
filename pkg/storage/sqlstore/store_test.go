package sqlstore

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/filtros/pkg/catalog"
	"github.com/platinummonkey/filtros/pkg/storage"
)

var fixedTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newMockStore(t *testing.T, driver string) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, driver, nil), mock
}

func TestRebind(t *testing.T) {
	pg := &Store{driver: storage.DriverPostgres}
	lite := &Store{driver: storage.DriverSQLite}

	q := "SELECT * FROM filtros WHERE id = ? AND marca = ? LIMIT ?"
	assert.Equal(t, "SELECT * FROM filtros WHERE id = $1 AND marca = $2 LIMIT $3", pg.rebind(q))
	assert.Equal(t, q, lite.rebind(q))
	assert.Equal(t, "SELECT 1", pg.rebind("SELECT 1"))
}

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"aire", "aire"},
		{"50%", `50\%`},
		{"a_b", `a\_b`},
		{`c:\x`, `c:\\x`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, escapeLike(tt.in))
	}
}

func TestGetFilter_NotFound(t *testing.T) {
	store, mock := newMockStore(t, storage.DriverPostgres)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE f.id = $1 AND f.activo = TRUE")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.GetFilter(context.Background(), 7)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeactivateFilter_NoRows(t *testing.T) {
	store, mock := newMockStore(t, storage.DriverPostgres)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE filtros SET activo = FALSE, updated_at = $1 WHERE id = $2")).
		WithArgs(sqlmock.AnyArg(), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.DeactivateFilter(context.Background(), 3, fixedTime)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCategory_QueryError(t *testing.T) {
	store, mock := newMockStore(t, storage.DriverPostgres)

	mock.ExpectQuery("FROM categorias WHERE id").WillReturnError(errors.New("connection reset"))

	_, err := store.GetCategory(context.Background(), 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, catalog.ErrNotFound)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestMigrate_SkipsApplied(t *testing.T) {
	store, mock := newMockStore(t, storage.DriverPostgres)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(1).AddRow(2).AddRow(3).AddRow(4))

	n, err := store.Migrate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_RollsBackOnFailure(t *testing.T) {
	store, mock := newMockStore(t, storage.DriverPostgres)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(1).AddRow(2))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS filtros").WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	n, err := store.Migrate(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, n)
	assert.Contains(t, err.Error(), "migration 3")
	assert.NoError(t, mock.ExpectationsWereMet())
}
