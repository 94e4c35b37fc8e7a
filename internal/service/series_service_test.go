package service

import (
	"context"
	"testing"

	"github.com/alexanderramin/framebudget/internal/aggregate"
	"github.com/alexanderramin/framebudget/internal/domain"
	"github.com/alexanderramin/framebudget/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSeriesService(t *testing.T, f *recordFixture) SeriesService {
	t.Helper()
	engine := aggregate.NewEngine(
		repository.NewSQLiteNodeRepo(f.db),
		repository.NewSQLiteProjectRepo(f.db),
		repository.NewSQLiteProjectRecordRepo(f.db),
		repository.NewSQLiteFrameRecordRepo(f.db),
		nil,
		aggregate.Config{Aliases: f.alias},
	)
	return NewSeriesService(engine, f.obs)
}

func TestSeriesService_ObservesReads(t *testing.T) {
	f := newRecordFixture(t)
	svc := newSeriesService(t, f)

	s, err := svc.Series(context.Background(), aggregate.SeriesRequest{NodeID: f.h.Group, StartYear: testYear})
	require.NoError(t, err)
	assert.Equal(t, "400", s.Year(testYear).PlannedBudget.String())

	ev := f.obs.last()
	assert.Equal(t, "series", ev.Name)
	assert.True(t, ev.Success)
	assert.Equal(t, f.h.Group, ev.Fields["node_id"])
	assert.Equal(t, false, ev.Fields["degraded"])
}

func TestSeriesService_ListAndNotFound(t *testing.T) {
	f := newRecordFixture(t)
	svc := newSeriesService(t, f)
	ctx := context.Background()

	list, err := svc.ListSeries(ctx, aggregate.ListRequest{
		NodeIDs: []string{f.h.PNew, f.h.PRenov}, StartYear: testYear,
	})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, f.h.PNew, list[0].NodeID)
	assert.Equal(t, "list-series", f.obs.last().Name)

	_, err = svc.Series(ctx, aggregate.SeriesRequest{NodeID: "missing", StartYear: testYear})
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, f.obs.last().Success)
}
