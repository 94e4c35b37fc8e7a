package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS nodes (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		path       TEXT NOT NULL,
		parent_id  TEXT REFERENCES nodes(id) ON DELETE CASCADE,
		tree_view  TEXT NOT NULL CHECK(tree_view IN ('coordinator','planning')),
		kind       TEXT NOT NULL CHECK(kind IN ('class','location','group')),
		related_to TEXT REFERENCES nodes(id) ON DELETE SET NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_nodes_parent ON nodes(parent_id)`,
	`CREATE INDEX IF NOT EXISTS idx_nodes_path ON nodes(path)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_nodes_view_kind_path ON nodes(tree_view, kind, path)`,
	`CREATE INDEX IF NOT EXISTS idx_nodes_related ON nodes(related_to)`,
	`CREATE INDEX IF NOT EXISTS idx_nodes_view_kind ON nodes(tree_view, kind)`,
	`CREATE TABLE IF NOT EXISTS projects (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		programmed  INTEGER NOT NULL DEFAULT 0,
		class_id    TEXT REFERENCES nodes(id) ON DELETE SET NULL,
		location_id TEXT REFERENCES nodes(id) ON DELETE SET NULL,
		group_id    TEXT REFERENCES nodes(id) ON DELETE SET NULL,
		budget      TEXT NOT NULL DEFAULT '0',
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_projects_class ON projects(class_id)`,
	`CREATE INDEX IF NOT EXISTS idx_projects_location ON projects(location_id)`,
	`CREATE INDEX IF NOT EXISTS idx_projects_group ON projects(group_id)`,
	`CREATE TABLE IF NOT EXISTS frame_records (
		node_id        TEXT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
		year           INTEGER NOT NULL,
		for_frame_view INTEGER NOT NULL DEFAULT 0 CHECK(for_frame_view IN (0,1)),
		frame_budget   TEXT NOT NULL DEFAULT '0',
		budget_change  TEXT NOT NULL DEFAULT '0',
		created_at     TEXT NOT NULL,
		updated_at     TEXT NOT NULL,
		PRIMARY KEY (node_id, year, for_frame_view)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_frame_records_year ON frame_records(year, for_frame_view)`,
	`CREATE TABLE IF NOT EXISTS project_records (
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		year       INTEGER NOT NULL,
		value      TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (project_id, year)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_project_records_year ON project_records(year)`,
}
