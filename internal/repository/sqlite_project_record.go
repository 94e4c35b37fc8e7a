package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/framebudget/internal/db"
	"github.com/alexanderramin/framebudget/internal/domain"
	"github.com/shopspring/decimal"
)

// SQLiteProjectRecordRepo implements ProjectRecordRepo using a SQLite database.
type SQLiteProjectRecordRepo struct {
	db db.DBTX
}

// NewSQLiteProjectRecordRepo creates a new SQLiteProjectRecordRepo.
func NewSQLiteProjectRecordRepo(db db.DBTX) *SQLiteProjectRecordRepo {
	return &SQLiteProjectRecordRepo{db: db}
}

func (r *SQLiteProjectRecordRepo) Upsert(ctx context.Context, rec *domain.ProjectRecord) error {
	query := `INSERT INTO project_records (project_id, year, value, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(project_id, year) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query,
		rec.ProjectID,
		rec.Year,
		rec.Value.String(),
		rec.CreatedAt.Format(time.RFC3339),
		rec.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting project record: %w", err)
	}
	return nil
}

func (r *SQLiteProjectRecordRepo) Get(ctx context.Context, projectID string, year int) (*domain.ProjectRecord, error) {
	query := `SELECT project_id, year, value, created_at, updated_at
		FROM project_records WHERE project_id = ? AND year = ?`
	var rec domain.ProjectRecord
	var valueStr, createdAtStr, updatedAtStr string
	err := r.db.QueryRowContext(ctx, query, projectID, year).
		Scan(&rec.ProjectID, &rec.Year, &valueStr, &createdAtStr, &updatedAtStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project record: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning project record: %w", err)
	}
	rec.Value = parseDecimal(valueStr)
	rec.CreatedAt, rec.UpdatedAt, err = parseTimestamps(createdAtStr, updatedAtStr)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Delete removes the record and reports whether one existed.
func (r *SQLiteProjectRecordRepo) Delete(ctx context.Context, projectID string, year int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM project_records WHERE project_id = ? AND year = ?`, projectID, year)
	if err != nil {
		return false, fmt.Errorf("deleting project record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting project record: %w", err)
	}
	return n > 0, nil
}

// SumByYear totals the planned values of projectIDs per year within
// [fromYear, toYear]. Values are summed as decimals in Go since the column
// holds exact text amounts.
func (r *SQLiteProjectRecordRepo) SumByYear(ctx context.Context, projectIDs []string, fromYear, toYear int) (map[int]decimal.Decimal, error) {
	sums := make(map[int]decimal.Decimal)
	for _, chunk := range chunkIDs(projectIDs, maxIDsPerQuery) {
		query := `SELECT year, value FROM project_records
			WHERE year BETWEEN ? AND ? AND project_id IN (` + placeholders(len(chunk)) + `)`
		args := append([]any{fromYear, toYear}, idArgs(chunk)...)
		if err := r.sumInto(ctx, sums, query, args); err != nil {
			return nil, err
		}
	}
	return sums, nil
}

func (r *SQLiteProjectRecordRepo) sumInto(ctx context.Context, sums map[int]decimal.Decimal, query string, args []any) error {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("summing project records: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var year int
		var valueStr string
		if err := rows.Scan(&year, &valueStr); err != nil {
			return fmt.Errorf("scanning project record row: %w", err)
		}
		sums[year] = sums[year].Add(parseDecimal(valueStr))
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating project records: %w", err)
	}
	return nil
}
