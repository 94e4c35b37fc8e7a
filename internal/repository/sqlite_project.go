package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/framebudget/internal/db"
	"github.com/alexanderramin/framebudget/internal/domain"
)

const projectColumns = `p.id, p.name, p.programmed, p.class_id, p.location_id, p.group_id, p.budget, p.created_at, p.updated_at`

// SQLiteProjectRepo implements ProjectRepo using a SQLite database.
type SQLiteProjectRepo struct {
	db db.DBTX
}

// NewSQLiteProjectRepo creates a new SQLiteProjectRepo.
func NewSQLiteProjectRepo(db db.DBTX) *SQLiteProjectRepo {
	return &SQLiteProjectRepo{db: db}
}

func (r *SQLiteProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	query := `INSERT INTO projects (id, name, programmed, class_id, location_id, group_id, budget, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.Name,
		boolToInt(p.Programmed),
		nullableString(p.ClassID),
		nullableString(p.LocationID),
		nullableString(p.GroupID),
		p.Budget.String(),
		p.CreatedAt.Format(time.RFC3339),
		p.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting project: %w", err)
	}
	return nil
}

func (r *SQLiteProjectRepo) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects p WHERE p.id = ?`
	p, err := r.scanInto(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning project: %w", err)
	}
	return p, nil
}

func (r *SQLiteProjectRepo) ListProgrammed(ctx context.Context) ([]*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects p WHERE p.programmed = 1 ORDER BY p.id`
	return r.list(ctx, query)
}

// ListProgrammedUnderPath returns programmed projects whose planning node of
// the given kind is the node at path or one of its descendants.
func (r *SQLiteProjectRepo) ListProgrammedUnderPath(ctx context.Context, kind domain.NodeKind, path string) ([]*domain.Project, error) {
	var column string
	switch kind {
	case domain.NodeClass:
		column = "p.class_id"
	case domain.NodeLocation:
		column = "p.location_id"
	default:
		return nil, fmt.Errorf("listing projects under %s path: unsupported kind", kind)
	}
	query := `SELECT ` + projectColumns + ` FROM projects p
		JOIN nodes n ON n.id = ` + column + `
		WHERE p.programmed = 1 AND n.tree_view = 'planning'
		AND (n.path = ? OR n.path LIKE ? ESCAPE '\')
		ORDER BY p.id`
	return r.list(ctx, query, path, likePrefix(path))
}

func (r *SQLiteProjectRepo) ListProgrammedByGroup(ctx context.Context, groupID string) ([]*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects p WHERE p.programmed = 1 AND p.group_id = ? ORDER BY p.id`
	return r.list(ctx, query, groupID)
}

func (r *SQLiteProjectRepo) list(ctx context.Context, query string, args ...any) ([]*domain.Project, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var projects []*domain.Project
	for rows.Next() {
		p, err := r.scanInto(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning project row: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating projects: %w", err)
	}
	return projects, nil
}

func (r *SQLiteProjectRepo) scanInto(s rowScanner) (*domain.Project, error) {
	var p domain.Project
	var programmed int
	var classID, locationID, groupID sql.NullString
	var budgetStr, createdAtStr, updatedAtStr string

	if err := s.Scan(
		&p.ID, &p.Name, &programmed, &classID, &locationID, &groupID,
		&budgetStr, &createdAtStr, &updatedAtStr,
	); err != nil {
		return nil, err
	}

	p.Programmed = intToBool(programmed)
	p.ClassID = stringPtr(classID)
	p.LocationID = stringPtr(locationID)
	p.GroupID = stringPtr(groupID)
	p.Budget = parseDecimal(budgetStr)

	var err error
	p.CreatedAt, p.UpdatedAt, err = parseTimestamps(createdAtStr, updatedAtStr)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
