package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/alexanderramin/framebudget/internal/db"
)

// Statement prefixes the record and import services issue, for FailingUoW.
const (
	StmtInsertNode          = "INSERT INTO nodes"
	StmtLinkNode            = "UPDATE nodes SET related_to"
	StmtInsertProject       = "INSERT INTO projects"
	StmtUpsertFrameRecord   = "INSERT INTO frame_records"
	StmtUpsertProjectRecord = "INSERT INTO project_records"
)

// FailingUoW runs writes in a real transaction and returns Err from the
// Occurrence-th statement that starts with Stmt (1 when zero). Reads pass
// through. Every attempted write statement is kept so tests can assert
// where the mutation stopped.
type FailingUoW struct {
	DB         *sql.DB
	Stmt       string
	Occurrence int
	Err        error

	mu       sync.Mutex
	executed []string
}

func (u *FailingUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error {
	tx, err := u.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(ctx, &failingTx{DBTX: tx, uow: u}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Executed returns the prefix-matched count of attempted statements.
func (u *FailingUoW) Executed(stmt string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := 0
	for _, q := range u.executed {
		if strings.HasPrefix(q, stmt) {
			n++
		}
	}
	return n
}

// record stores the statement and reports whether it is the one to fail.
func (u *FailingUoW) record(query string) bool {
	q := strings.Join(strings.Fields(query), " ")
	u.mu.Lock()
	defer u.mu.Unlock()
	u.executed = append(u.executed, q)
	if u.Stmt == "" || !strings.HasPrefix(q, u.Stmt) {
		return false
	}
	want := u.Occurrence
	if want == 0 {
		want = 1
	}
	n := 0
	for _, prev := range u.executed {
		if strings.HasPrefix(prev, u.Stmt) {
			n++
		}
	}
	return n == want
}

type failingTx struct {
	db.DBTX
	uow *FailingUoW
}

func (f *failingTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if f.uow.record(query) {
		return nil, f.uow.Err
	}
	return f.DBTX.ExecContext(ctx, query, args...)
}
