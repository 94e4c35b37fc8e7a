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

// nodeColumns is the canonical SELECT column list for nodes.
const nodeColumns = `id, name, path, parent_id, tree_view, kind, related_to, created_at, updated_at`

// SQLiteNodeRepo implements NodeRepo using a SQLite database.
type SQLiteNodeRepo struct {
	db db.DBTX
}

// NewSQLiteNodeRepo creates a new SQLiteNodeRepo.
func NewSQLiteNodeRepo(db db.DBTX) *SQLiteNodeRepo {
	return &SQLiteNodeRepo{db: db}
}

// Create inserts n after checking the path invariant against its parent.
func (r *SQLiteNodeRepo) Create(ctx context.Context, n *domain.Node) error {
	var parent *domain.Node
	if n.ParentID != nil {
		p, err := r.GetByID(ctx, *n.ParentID)
		if err != nil {
			return fmt.Errorf("loading parent of node %q: %w", n.Name, err)
		}
		if p.View != n.View {
			return fmt.Errorf("node %q: parent %s is in the %s view, not %s", n.Name, p.ID, p.View, n.View)
		}
		parent = p
	}
	if want := domain.ChildPath(parent, n.Name); n.Path != want {
		return fmt.Errorf("node %q: path %q does not match %q", n.Name, n.Path, want)
	}

	query := `INSERT INTO nodes (` + nodeColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		n.ID,
		n.Name,
		n.Path,
		nullableString(n.ParentID),
		string(n.View),
		string(n.Kind),
		nullableString(n.RelatedTo),
		n.CreatedAt.Format(time.RFC3339),
		n.UpdatedAt.Format(time.RFC3339),
	)
	if isNodePathConflict(err) {
		return fmt.Errorf("node %s %s %q: %w", n.View, n.Kind, n.Path, domain.ErrDuplicatePath)
	}
	if err != nil {
		return fmt.Errorf("inserting node: %w", err)
	}
	return nil
}

func (r *SQLiteNodeRepo) GetByID(ctx context.Context, id string) (*domain.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)
	return r.scanNode(row)
}

func (r *SQLiteNodeRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*domain.Node, error) {
	out := make(map[string]*domain.Node, len(ids))
	for _, chunk := range chunkIDs(ids, maxIDsPerQuery) {
		query := `SELECT ` + nodeColumns + ` FROM nodes WHERE id IN (` + placeholders(len(chunk)) + `)`
		rows, err := r.db.QueryContext(ctx, query, idArgs(chunk)...)
		if err != nil {
			return nil, fmt.Errorf("loading nodes by id: %w", err)
		}
		nodes, err := r.scanNodes(rows)
		rows.Close()
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			out[n.ID] = n
		}
	}
	return out, nil
}

func (r *SQLiteNodeRepo) ListChildren(ctx context.Context, parentID string) ([]*domain.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE parent_id = ? ORDER BY path`
	rows, err := r.db.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("listing child nodes: %w", err)
	}
	defer rows.Close()
	return r.scanNodes(rows)
}

func (r *SQLiteNodeRepo) ListByViewKind(ctx context.Context, view domain.View, kind domain.NodeKind) ([]*domain.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE tree_view = ? AND kind = ? ORDER BY path`
	rows, err := r.db.QueryContext(ctx, query, string(view), string(kind))
	if err != nil {
		return nil, fmt.Errorf("listing %s %s nodes: %w", view, kind, err)
	}
	defer rows.Close()
	return r.scanNodes(rows)
}

func (r *SQLiteNodeRepo) ListAncestry(ctx context.Context, id string) ([]*domain.Node, error) {
	query := `WITH RECURSIVE chain(id, depth) AS (
			SELECT id, 0 FROM nodes WHERE id = ?
			UNION ALL
			SELECT n.parent_id, c.depth + 1 FROM nodes n
			JOIN chain c ON n.id = c.id
			WHERE n.parent_id IS NOT NULL
		)
		SELECT n.id, n.name, n.path, n.parent_id, n.tree_view, n.kind, n.related_to, n.created_at, n.updated_at
		FROM nodes n JOIN chain c ON n.id = c.id
		ORDER BY c.depth`
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("listing node ancestry: %w", err)
	}
	defer rows.Close()
	nodes, err := r.scanNodes(rows)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	return nodes, nil
}

// Link sets the one-to-one cross reference between a coordinator node and a
// planning node, in both directions.
func (r *SQLiteNodeRepo) Link(ctx context.Context, coordinatorID, planningID string) error {
	coord, err := r.GetByID(ctx, coordinatorID)
	if err != nil {
		return err
	}
	plan, err := r.GetByID(ctx, planningID)
	if err != nil {
		return err
	}
	if coord.View != domain.ViewCoordinator || plan.View != domain.ViewPlanning {
		return fmt.Errorf("linking %s -> %s: expected coordinator and planning nodes", coordinatorID, planningID)
	}

	now := nowUTC()
	query := `UPDATE nodes SET related_to = ?, updated_at = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, planningID, now, coordinatorID); err != nil {
		return fmt.Errorf("linking coordinator node: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, coordinatorID, now, planningID); err != nil {
		return fmt.Errorf("linking planning node: %w", err)
	}
	return nil
}

func (r *SQLiteNodeRepo) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM nodes WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deleting node: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanNode scans a single node from a *sql.Row.
func (r *SQLiteNodeRepo) scanNode(row *sql.Row) (*domain.Node, error) {
	n, err := r.scanInto(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("node: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning node: %w", err)
	}
	return n, nil
}

// scanNodes scans multiple nodes from *sql.Rows.
func (r *SQLiteNodeRepo) scanNodes(rows *sql.Rows) ([]*domain.Node, error) {
	var nodes []*domain.Node
	for rows.Next() {
		n, err := r.scanInto(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning node row: %w", err)
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating nodes: %w", err)
	}
	return nodes, nil
}

func (r *SQLiteNodeRepo) scanInto(s rowScanner) (*domain.Node, error) {
	var n domain.Node
	var viewStr, kindStr, createdAtStr, updatedAtStr string
	var parentID, relatedTo sql.NullString

	if err := s.Scan(
		&n.ID, &n.Name, &n.Path, &parentID, &viewStr, &kindStr, &relatedTo,
		&createdAtStr, &updatedAtStr,
	); err != nil {
		return nil, err
	}

	n.View = domain.View(viewStr)
	n.Kind = domain.NodeKind(kindStr)
	n.ParentID = stringPtr(parentID)
	n.RelatedTo = stringPtr(relatedTo)

	var err error
	n.CreatedAt, n.UpdatedAt, err = parseTimestamps(createdAtStr, updatedAtStr)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
