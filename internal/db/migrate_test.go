package db

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)

	// Run migrations a second time; should succeed without error.
	err := Migrate(db)
	require.NoError(t, err)

	err = Migrate(db)
	require.NoError(t, err)
}

func TestMigrate_CreatesAllTables(t *testing.T) {
	db := openTestDB(t)

	expected := []string{"nodes", "projects", "frame_records", "project_records"}
	for _, table := range expected {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_CreatesIndexes(t *testing.T) {
	db := openTestDB(t)

	expected := []string{
		"idx_nodes_parent",
		"idx_nodes_path",
		"idx_nodes_related",
		"idx_nodes_view_kind",
		"idx_projects_class",
		"idx_projects_location",
		"idx_projects_group",
		"idx_frame_records_year",
		"idx_project_records_year",
	}
	for _, idx := range expected {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='index' AND name=?`, idx).Scan(&name)
		require.NoError(t, err, "index %s should exist", idx)
	}
}

func TestMigrate_ForeignKeysEnabled(t *testing.T) {
	db := openTestDB(t)

	var fk int
	err := db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk)
	require.NoError(t, err)
	assert.Equal(t, 1, fk, "foreign keys should be enabled")
}

func TestMigrate_NodeViewConstraint(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec(`INSERT INTO nodes (id, name, path, tree_view, kind, created_at, updated_at)
		VALUES ('n1', 'Root', 'Root', 'sideways', 'class', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`)
	assert.Error(t, err, "unknown view must be rejected")

	_, err = db.Exec(`INSERT INTO nodes (id, name, path, tree_view, kind, created_at, updated_at)
		VALUES ('n1', 'Root', 'Root', 'planning', 'district', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`)
	assert.Error(t, err, "unknown kind must be rejected")
}

func TestMigrate_FrameRecordUniquePerNodeYearFlag(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec(`INSERT INTO nodes (id, name, path, tree_view, kind, created_at, updated_at)
		VALUES ('n1', 'Root', 'Root', 'coordinator', 'class', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`)
	require.NoError(t, err)

	insert := `INSERT INTO frame_records (node_id, year, for_frame_view, frame_budget, budget_change, created_at, updated_at)
		VALUES ('n1', 2026, ?, '100', '0', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`
	_, err = db.Exec(insert, 0)
	require.NoError(t, err)
	_, err = db.Exec(insert, 1)
	require.NoError(t, err, "the frame-view variant is a distinct record")
	_, err = db.Exec(insert, 0)
	assert.Error(t, err, "duplicate (node, year, flag) must be rejected")
}

func TestMigrate_DeletingParentCascades(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec(`INSERT INTO nodes (id, name, path, tree_view, kind, created_at, updated_at)
		VALUES ('p', 'Parent', 'Parent', 'planning', 'class', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO nodes (id, name, path, parent_id, tree_view, kind, created_at, updated_at)
		VALUES ('c', 'Child', 'Parent/Child', 'p', 'planning', 'class', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`)
	require.NoError(t, err)

	_, err = db.Exec(`DELETE FROM nodes WHERE id = 'p'`)
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM nodes`).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestMigrate_NodePathUniquePerViewAndKind(t *testing.T) {
	db := openTestDB(t)

	insert := `INSERT INTO nodes (id, name, path, tree_view, kind, created_at, updated_at)
		VALUES (?, 'Streets', 'Streets', ?, ?, '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`
	_, err := db.Exec(insert, "a", "planning", "class")
	require.NoError(t, err)
	_, err = db.Exec(insert, "b", "planning", "class")
	assert.Error(t, err, "same view, kind and path must be rejected")
	_, err = db.Exec(insert, "c", "coordinator", "class")
	assert.NoError(t, err)
	_, err = db.Exec(insert, "d", "planning", "location")
	assert.NoError(t, err)
}
