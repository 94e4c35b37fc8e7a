package aggregate

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alexanderramin/framebudget/internal/cache"
	"github.com/alexanderramin/framebudget/internal/domain"
	"github.com/alexanderramin/framebudget/internal/testutil"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func planned(s *domain.Series, year int) string {
	return s.Year(year).PlannedBudget.String()
}

func TestEngine_PlanningSeries(t *testing.T) {
	f := newFixture(t, Config{})
	testutil.SetFrame(t, f.db, f.h.CMain, 2030, "58000", false)

	main := f.series(t, f.h.PMain, false)
	require.Len(t, main.Years, domain.SeriesYears)
	assert.Equal(t, "450", planned(main, 2030), "unprogrammed projects are excluded")
	assert.Equal(t, "200", planned(main, 2031))
	assert.Equal(t, "0", planned(main, 2040))
	assert.Equal(t, "58000", main.Year(2030).FrameBudget.String(), "planning nodes read their partner's frame")
	assert.False(t, main.Year(2030).OverlapsFrame)
	assert.Nil(t, main.ProjectBudgets)

	assert.Equal(t, "150", planned(f.series(t, f.h.PRenov, false), 2030))
	assert.Equal(t, "300", planned(f.series(t, f.h.PNew, false), 2030))
	assert.Equal(t, "50", planned(f.series(t, f.h.PLocKallio, false), 2030))

	sub := f.series(t, f.h.PEastSub, false)
	assert.Equal(t, "50", planned(sub, 2030))
	assert.True(t, sub.Year(2030).FrameBudget.IsZero(), "no partner means zero frame")
}

func TestEngine_CoordinatorSeries(t *testing.T) {
	f := newFixture(t, Config{})

	assert.Equal(t, "450", planned(f.series(t, f.h.CMain, true), 2030))
	assert.Equal(t, "150", planned(f.series(t, f.h.CRenov, true), 2030),
		"projects under unlinked planning classes resolve through the nearest linked ancestor")
	assert.Equal(t, "300", planned(f.series(t, f.h.CNew, true), 2030))
	assert.Equal(t, "50", planned(f.series(t, f.h.CEast, true), 2030), "district alias attaches the project")
}

func TestEngine_DistrictAliasConfigurable(t *testing.T) {
	rule, err := NewAliasRule()
	require.NoError(t, err)
	f := newFixture(t, Config{Aliases: rule})

	assert.Equal(t, "0", planned(f.series(t, f.h.CEast, true), 2030))
}

func TestEngine_GroupSeries(t *testing.T) {
	f := newFixture(t, Config{})

	for _, coordinatorView := range []bool{false, true} {
		s := f.series(t, f.h.Group, coordinatorView)
		assert.Equal(t, "400", planned(s, 2030))
		assert.Equal(t, "200", planned(s, 2031))
		require.NotNil(t, s.ProjectBudgets)
		assert.Equal(t, "1500", s.ProjectBudgets.String())
		assert.True(t, s.Year(2030).FrameBudget.IsZero())
	}
}

func TestEngine_NotFound(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	_, err := f.engine.Series(ctx, SeriesRequest{NodeID: "missing", StartYear: 2030})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.engine.Series(ctx, SeriesRequest{NodeID: f.h.PMain, StartYear: 2030, CoordinatorView: true})
	assert.ErrorIs(t, err, domain.ErrNotFound, "planning node in coordinator view")

	_, err = f.engine.Series(ctx, SeriesRequest{NodeID: f.h.CMain, StartYear: 2030})
	assert.ErrorIs(t, err, domain.ErrNotFound, "coordinator node in planning view")

	_, err = f.engine.ListSeries(ctx, ListRequest{NodeIDs: []string{f.h.CMain, "missing"}, StartYear: 2030, CoordinatorView: true})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEngine_Overlap(t *testing.T) {
	f := newFixture(t, Config{})
	testutil.SetFrame(t, f.db, f.h.CMain, 2030, "58000", false)
	testutil.SetFrame(t, f.db, f.h.CRenov, 2030, "30000", false)
	testutil.SetFrame(t, f.db, f.h.CNew, 2030, "28000", false)
	testutil.SetFrame(t, f.db, f.h.CMain, 2031, "50000", false)
	testutil.SetFrame(t, f.db, f.h.CRenov, 2031, "30000", false)
	testutil.SetFrame(t, f.db, f.h.CNew, 2031, "28000", false)

	s := f.series(t, f.h.CMain, true)
	assert.False(t, s.Year(2030).OverlapsFrame, "58000 against 30000+28000")
	assert.True(t, s.Year(2031).OverlapsFrame, "50000 against 30000+28000")
	assert.False(t, s.Year(2032).OverlapsFrame)
	assert.Equal(t, "58000", s.Year(2030).FrameBudget.String())

	leaf := f.series(t, f.h.CNew, true)
	for _, y := range leaf.Years {
		assert.False(t, y.OverlapsFrame, "leaf year %d", y.Year)
	}
}

func TestEngine_OverlapGrandchildren(t *testing.T) {
	f := newFixture(t, Config{})
	testutil.SetFrame(t, f.db, f.h.CMain, 2030, "100000", false)
	testutil.SetFrame(t, f.db, f.h.CRenov, 2030, "50000", false)
	testutil.SetFrame(t, f.db, f.h.CEast, 2030, "80000", false)

	assert.True(t, f.series(t, f.h.CRenov, true).Year(2030).OverlapsFrame)
	assert.False(t, f.series(t, f.h.CMain, true).Year(2030).OverlapsFrame)
}

func TestEngine_FrameViewFlagSelectsRecords(t *testing.T) {
	f := newFixture(t, Config{})
	testutil.SetFrame(t, f.db, f.h.CMain, 2030, "100", false)
	testutil.SetFrame(t, f.db, f.h.CMain, 2030, "900", true)

	s, err := f.engine.Series(context.Background(), SeriesRequest{
		NodeID: f.h.CMain, StartYear: 2030, FrameView: true, CoordinatorView: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "900", s.Year(2030).FrameBudget.String())
	assert.Equal(t, "100", f.series(t, f.h.CMain, true).Year(2030).FrameBudget.String())
}

func TestEngine_IdempotentReadServedFromCache(t *testing.T) {
	f := newFixture(t, Config{})
	testutil.SetFrame(t, f.db, f.h.CMain, 2030, "58000", false)

	first := f.series(t, f.h.CMain, true)
	calls := f.records.sums.Load()
	bulk := f.frames.bulk.Load()

	second := f.series(t, f.h.CMain, true)
	assert.Equal(t, calls, f.records.sums.Load(), "second read must not reach the store")
	assert.Equal(t, bulk, f.frames.bulk.Load())
	if diff := cmp.Diff(first, second, decimalEqual); diff != "" {
		t.Errorf("series differ (-first +second):\n%s", diff)
	}
}

func TestEngine_InvalidateForcesRecompute(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	before := f.series(t, f.h.PRenov, false)
	assert.Equal(t, "150", planned(before, 2030))

	_, err := f.db.Exec(`UPDATE project_records SET value = '175' WHERE project_id = ? AND year = 2030`, f.h.P1)
	require.NoError(t, err)

	assert.Equal(t, "150", planned(f.series(t, f.h.PRenov, false), 2030), "stale until invalidated")

	f.cache.Invalidate(ctx, domain.NodeClass, f.h.PRenov)
	assert.Equal(t, "225", planned(f.series(t, f.h.PRenov, false), 2030))
}

func TestEngine_ListSeries_PreservesOrder(t *testing.T) {
	f := newFixture(t, Config{Concurrency: 2})

	ids := []string{f.h.CNew, f.h.Group, f.h.CMain, f.h.CEast}
	out, err := f.engine.ListSeries(context.Background(), ListRequest{NodeIDs: ids, StartYear: 2030, CoordinatorView: true})
	require.NoError(t, err)
	require.Len(t, out, len(ids))
	for i, id := range ids {
		assert.Equal(t, id, out[i].NodeID)
		assert.False(t, out[i].Degraded)
	}
	assert.Equal(t, "300", planned(out[0], 2030))
	assert.Equal(t, "400", planned(out[1], 2030))
	assert.Equal(t, "450", planned(out[2], 2030))
	assert.Equal(t, "50", planned(out[3], 2030))
}

func TestEngine_ListSeries_FailingBranchDegrades(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.projects.fail.Store(true)

	req := ListRequest{NodeIDs: []string{f.h.PMain, f.h.Group}, StartYear: 2030}
	out, err := f.engine.ListSeries(ctx, req)
	require.NoError(t, err)
	assert.False(t, out[0].Degraded)
	assert.Equal(t, "450", planned(out[0], 2030))
	assert.True(t, out[1].Degraded)
	assert.Equal(t, "0", planned(out[1], 2030))
	require.Len(t, out[1].Years, domain.SeriesYears)

	// The degraded series was not cached.
	f.projects.fail.Store(false)
	out, err = f.engine.ListSeries(ctx, req)
	require.NoError(t, err)
	assert.False(t, out[1].Degraded)
	assert.Equal(t, "400", planned(out[1], 2030))
}

func TestEngine_ListSeries_NodeTimeout(t *testing.T) {
	f := newFixture(t, Config{NodeTimeout: 50 * time.Millisecond})
	f.projects.stall.Store(true)

	start := time.Now()
	out, err := f.engine.ListSeries(context.Background(), ListRequest{
		NodeIDs: []string{f.h.Group, f.h.PNew}, StartYear: 2030,
	})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.True(t, out[0].Degraded)
	assert.False(t, out[1].Degraded)
	assert.Equal(t, "300", planned(out[1], 2030))
}

func TestEngine_SharedComputationOutlivesImpatientCaller(t *testing.T) {
	f := newFixture(t, Config{})
	f.projects.gate = make(chan struct{})
	f.projects.entered = make(chan struct{})
	req := SeriesRequest{NodeID: f.h.Group, StartYear: 2030}

	impatient := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := f.engine.Series(ctx, req)
		impatient <- err
	}()
	<-f.projects.entered

	patient := make(chan *domain.Series, 1)
	go func() {
		s, err := f.engine.Series(context.Background(), req)
		assert.NoError(t, err)
		patient <- s
	}()

	assert.ErrorIs(t, <-impatient, context.DeadlineExceeded)
	time.Sleep(20 * time.Millisecond)
	close(f.projects.gate)

	s := <-patient
	require.NotNil(t, s)
	assert.Equal(t, "400", planned(s, 2030))
	assert.False(t, s.Degraded)
	assert.Equal(t, int64(1), f.records.sums.Load(), "one computation served both callers")
}

func TestEngine_WorksWithoutCache(t *testing.T) {
	f := newFixture(t, Config{})
	rule, err := NewAliasRule(DefaultDistrictAlias)
	require.NoError(t, err)
	e := NewEngine(f.engine.nodes, f.projects, f.records, f.frames, nil, Config{Aliases: rule})

	s, err := e.Series(context.Background(), SeriesRequest{NodeID: f.h.CEast, StartYear: 2030, CoordinatorView: true})
	require.NoError(t, err)
	assert.Equal(t, "50", planned(s, 2030))
}

func TestEngine_DisabledCacheStillComputes(t *testing.T) {
	f := newFixture(t, Config{})
	disabled := cache.NewService(nil, nil, cache.Options{})
	e := NewEngine(f.engine.nodes, f.projects, f.records, f.frames, disabled, Config{})

	first, err := e.Series(context.Background(), SeriesRequest{NodeID: f.h.PMain, StartYear: 2030})
	require.NoError(t, err)
	calls := f.records.sums.Load()
	_, err = e.Series(context.Background(), SeriesRequest{NodeID: f.h.PMain, StartYear: 2030})
	require.NoError(t, err)
	assert.Equal(t, calls+1, f.records.sums.Load(), "no cache means every read computes")
	assert.Equal(t, "450", planned(first, 2030))
}

func TestSeries_JSONHasNoNulls(t *testing.T) {
	f := newFixture(t, Config{})
	s := f.series(t, f.h.CNew, true)

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "null")
	assert.Contains(t, string(raw), `"frameBudget":"0"`)
}
