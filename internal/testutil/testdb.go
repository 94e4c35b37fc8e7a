package testutil

import (
	"database/sql"
	"testing"

	"github.com/alexanderramin/framebudget/internal/db"
	"github.com/stretchr/testify/require"
)

// NewTestDB opens a migrated in-memory database, closed on cleanup.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.OpenDB(":memory:")
	require.NoError(t, err, "opening test database")
	t.Cleanup(func() { database.Close() })
	return database
}

// NewSeededTestDB opens a test database holding the standard hierarchy with
// its records for year.
func NewSeededTestDB(t *testing.T, year int) (*sql.DB, *Hierarchy) {
	t.Helper()
	database := NewTestDB(t)
	return database, SeedHierarchy(t, database, year)
}

// NewTestUoW wraps the test database in the production unit of work.
func NewTestUoW(database *sql.DB) db.UnitOfWork {
	return db.NewSQLiteUnitOfWork(database)
}
