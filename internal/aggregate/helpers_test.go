package aggregate

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alexanderramin/framebudget/internal/cache"
	"github.com/alexanderramin/framebudget/internal/domain"
	"github.com/alexanderramin/framebudget/internal/repository"
	"github.com/alexanderramin/framebudget/internal/testutil"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

// countingRecords counts SumByYear calls against the authoritative store.
type countingRecords struct {
	repository.ProjectRecordRepo
	sums atomic.Int64
}

func (c *countingRecords) SumByYear(ctx context.Context, ids []string, from, to int) (map[int]decimal.Decimal, error) {
	c.sums.Add(1)
	return c.ProjectRecordRepo.SumByYear(ctx, ids, from, to)
}

// countingFrames counts bulk frame reads.
type countingFrames struct {
	repository.FrameRecordRepo
	bulk atomic.Int64
}

func (c *countingFrames) ListForKind(ctx context.Context, kind domain.NodeKind, from, to int, frameView bool) ([]domain.FrameEntry, error) {
	c.bulk.Add(1)
	return c.FrameRecordRepo.ListForKind(ctx, kind, from, to, frameView)
}

// flakyProjects fails, stalls or gates group lookups on demand. A non-nil
// gate holds every lookup until it is closed and signals entered once.
type flakyProjects struct {
	repository.ProjectRepo
	fail  atomic.Bool
	stall atomic.Bool

	gate    chan struct{}
	entered chan struct{}
	once    sync.Once
}

var errGroupLookup = errors.New("group lookup failed")

func (f *flakyProjects) ListProgrammedByGroup(ctx context.Context, groupID string) ([]*domain.Project, error) {
	if f.stall.Load() {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.gate != nil {
		f.once.Do(func() { close(f.entered) })
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fail.Load() {
		return nil, errGroupLookup
	}
	return f.ProjectRepo.ListProgrammedByGroup(ctx, groupID)
}

type fixture struct {
	db       *sql.DB
	h        *testutil.Hierarchy
	records  *countingRecords
	frames   *countingFrames
	projects *flakyProjects
	cache    *cache.Service
	engine   *Engine
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	database := testutil.NewTestDB(t)
	f := &fixture{
		db:       database,
		h:        testutil.SeedHierarchy(t, database, 2030),
		records:  &countingRecords{ProjectRecordRepo: repository.NewSQLiteProjectRecordRepo(database)},
		frames:   &countingFrames{FrameRecordRepo: repository.NewSQLiteFrameRecordRepo(database)},
		projects: &flakyProjects{ProjectRepo: repository.NewSQLiteProjectRepo(database)},
	}

	mr := miniredis.RunT(t)
	store, err := cache.NewRedisStore("redis://"+mr.Addr(), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	f.cache = cache.NewService(store, nil, cache.Options{TTL: time.Hour})

	if cfg.Aliases == nil {
		rule, err := NewAliasRule(DefaultDistrictAlias)
		require.NoError(t, err)
		cfg.Aliases = rule
	}
	f.engine = NewEngine(repository.NewSQLiteNodeRepo(database), f.projects, f.records, f.frames, f.cache, cfg)
	return f
}

func (f *fixture) series(t *testing.T, id string, coordinatorView bool) *domain.Series {
	t.Helper()
	s, err := f.engine.Series(context.Background(), SeriesRequest{
		NodeID: id, StartYear: 2030, CoordinatorView: coordinatorView,
	})
	require.NoError(t, err)
	return s
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
