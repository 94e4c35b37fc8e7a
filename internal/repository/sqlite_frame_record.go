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

// SQLiteFrameRecordRepo implements FrameRecordRepo using a SQLite database.
type SQLiteFrameRecordRepo struct {
	db db.DBTX
}

// NewSQLiteFrameRecordRepo creates a new SQLiteFrameRecordRepo.
func NewSQLiteFrameRecordRepo(db db.DBTX) *SQLiteFrameRecordRepo {
	return &SQLiteFrameRecordRepo{db: db}
}

// Upsert stores rec, replacing any record for the same node, year and flag.
func (r *SQLiteFrameRecordRepo) Upsert(ctx context.Context, rec *domain.FrameRecord) error {
	query := `INSERT INTO frame_records (node_id, year, for_frame_view, frame_budget, budget_change, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(node_id, year, for_frame_view) DO UPDATE SET
			frame_budget = excluded.frame_budget,
			budget_change = excluded.budget_change,
			updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query,
		rec.NodeID,
		rec.Year,
		boolToInt(rec.ForFrameView),
		rec.FrameBudget.String(),
		rec.BudgetChange.String(),
		rec.CreatedAt.Format(time.RFC3339),
		rec.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting frame record: %w", err)
	}
	return nil
}

func (r *SQLiteFrameRecordRepo) Get(ctx context.Context, nodeID string, year int, frameView bool) (*domain.FrameRecord, error) {
	query := `SELECT node_id, year, for_frame_view, frame_budget, budget_change, created_at, updated_at
		FROM frame_records WHERE node_id = ? AND year = ? AND for_frame_view = ?`
	row := r.db.QueryRowContext(ctx, query, nodeID, year, boolToInt(frameView))

	var rec domain.FrameRecord
	var flag int
	var budgetStr, changeStr, createdAtStr, updatedAtStr string
	err := row.Scan(&rec.NodeID, &rec.Year, &flag, &budgetStr, &changeStr, &createdAtStr, &updatedAtStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("frame record: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning frame record: %w", err)
	}
	rec.ForFrameView = intToBool(flag)
	rec.FrameBudget = parseDecimal(budgetStr)
	rec.BudgetChange = parseDecimal(changeStr)
	rec.CreatedAt, rec.UpdatedAt, err = parseTimestamps(createdAtStr, updatedAtStr)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Delete removes the record and reports whether one existed.
func (r *SQLiteFrameRecordRepo) Delete(ctx context.Context, nodeID string, year int, frameView bool) (bool, error) {
	query := `DELETE FROM frame_records WHERE node_id = ? AND year = ? AND for_frame_view = ?`
	res, err := r.db.ExecContext(ctx, query, nodeID, year, boolToInt(frameView))
	if err != nil {
		return false, fmt.Errorf("deleting frame record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting frame record: %w", err)
	}
	return n > 0, nil
}

// ListForNodeAndChildren returns frame entries of nodeID and its direct
// children within [fromYear, toYear].
func (r *SQLiteFrameRecordRepo) ListForNodeAndChildren(ctx context.Context, nodeID string, fromYear, toYear int, frameView bool) ([]domain.FrameEntry, error) {
	query := `SELECT f.node_id, n.parent_id, f.year, f.frame_budget, f.budget_change
		FROM frame_records f JOIN nodes n ON n.id = f.node_id
		WHERE (n.id = ? OR n.parent_id = ?)
		AND f.year BETWEEN ? AND ? AND f.for_frame_view = ?
		ORDER BY f.node_id, f.year`
	return r.listEntries(ctx, query, nodeID, nodeID, fromYear, toYear, boolToInt(frameView))
}

// ListForKind returns every coordinator frame entry of the given kind within
// [fromYear, toYear].
func (r *SQLiteFrameRecordRepo) ListForKind(ctx context.Context, kind domain.NodeKind, fromYear, toYear int, frameView bool) ([]domain.FrameEntry, error) {
	query := `SELECT f.node_id, n.parent_id, f.year, f.frame_budget, f.budget_change
		FROM frame_records f JOIN nodes n ON n.id = f.node_id
		WHERE n.tree_view = 'coordinator' AND n.kind = ?
		AND f.year BETWEEN ? AND ? AND f.for_frame_view = ?
		ORDER BY f.node_id, f.year`
	return r.listEntries(ctx, query, string(kind), fromYear, toYear, boolToInt(frameView))
}

func (r *SQLiteFrameRecordRepo) listEntries(ctx context.Context, query string, args ...any) ([]domain.FrameEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing frame records: %w", err)
	}
	defer rows.Close()

	var entries []domain.FrameEntry
	for rows.Next() {
		var e domain.FrameEntry
		var parentID sql.NullString
		var budgetStr, changeStr string
		if err := rows.Scan(&e.NodeID, &parentID, &e.Year, &budgetStr, &changeStr); err != nil {
			return nil, fmt.Errorf("scanning frame record row: %w", err)
		}
		e.ParentID = stringPtr(parentID)
		e.FrameBudget = parseDecimal(budgetStr)
		e.BudgetChange = parseDecimal(changeStr)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating frame records: %w", err)
	}
	return entries, nil
}
