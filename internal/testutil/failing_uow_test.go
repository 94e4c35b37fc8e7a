package testutil_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alexanderramin/framebudget/internal/db"
	"github.com/alexanderramin/framebudget/internal/domain"
	"github.com/alexanderramin/framebudget/internal/repository"
	"github.com/alexanderramin/framebudget/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailingUoW_FailsMatchingOccurrence(t *testing.T) {
	database, h := testutil.NewSeededTestDB(t, 2030)
	ctx := context.Background()
	injected := errors.New("injected")
	uow := &testutil.FailingUoW{DB: database, Stmt: testutil.StmtUpsertProjectRecord, Occurrence: 2, Err: injected}

	err := uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		frames := repository.NewSQLiteFrameRecordRepo(tx)
		if err := frames.Upsert(ctx, testutil.NewTestFrameRecord(h.CNew, 2031, "5", false)); err != nil {
			return err
		}
		records := repository.NewSQLiteProjectRecordRepo(tx)
		for _, id := range []string{h.P1, h.P2, h.P3} {
			if err := records.Upsert(ctx, testutil.NewTestProjectRecord(id, 2031, "7")); err != nil {
				return err
			}
		}
		return nil
	})
	require.ErrorIs(t, err, injected)

	assert.Equal(t, 1, uow.Executed(testutil.StmtUpsertFrameRecord))
	assert.Equal(t, 2, uow.Executed(testutil.StmtUpsertProjectRecord), "stops at the failing upsert")

	_, err = repository.NewSQLiteFrameRecordRepo(database).Get(ctx, h.CNew, 2031, false)
	require.ErrorIs(t, err, domain.ErrNotFound, "earlier write rolled back")
}

func TestFailingUoW_NoMatchCommits(t *testing.T) {
	database, h := testutil.NewSeededTestDB(t, 2030)
	ctx := context.Background()
	uow := &testutil.FailingUoW{DB: database, Stmt: testutil.StmtLinkNode, Err: errors.New("unused")}

	err := uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return repository.NewSQLiteFrameRecordRepo(tx).Upsert(ctx, testutil.NewTestFrameRecord(h.CNew, 2031, "5", false))
	})
	require.NoError(t, err)

	rec, err := repository.NewSQLiteFrameRecordRepo(database).Get(ctx, h.CNew, 2031, false)
	require.NoError(t, err)
	assert.Equal(t, "5", rec.FrameBudget.String())
	assert.Zero(t, uow.Executed(testutil.StmtLinkNode))
}
