package service

import (
	"context"
	"time"

	"github.com/alexanderramin/framebudget/internal/aggregate"
	"github.com/alexanderramin/framebudget/internal/domain"
)

type seriesService struct {
	engine   SeriesEngine
	observer UseCaseObserver
}

// NewSeriesService reports engine reads to the given observers.
func NewSeriesService(engine SeriesEngine, observers ...UseCaseObserver) SeriesService {
	return &seriesService{engine: engine, observer: useCaseObserverOrNoop(observers)}
}

func (s *seriesService) Series(ctx context.Context, req aggregate.SeriesRequest) (series *domain.Series, err error) {
	startedAt := time.Now()
	fields := map[string]any{
		"node_id":          req.NodeID,
		"year":             req.StartYear,
		"frame_view":       req.FrameView,
		"coordinator_view": req.CoordinatorView,
	}
	defer func() {
		if series != nil {
			fields["degraded"] = series.Degraded
		}
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "series",
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Success:   err == nil,
			Err:       err,
			Fields:    fields,
		})
	}()

	return s.engine.Series(ctx, req)
}

func (s *seriesService) ListSeries(ctx context.Context, req aggregate.ListRequest) (list []*domain.Series, err error) {
	startedAt := time.Now()
	fields := map[string]any{
		"nodes":            len(req.NodeIDs),
		"year":             req.StartYear,
		"frame_view":       req.FrameView,
		"coordinator_view": req.CoordinatorView,
	}
	defer func() {
		degraded := 0
		for _, sr := range list {
			if sr.Degraded {
				degraded++
			}
		}
		fields["degraded"] = degraded
		s.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name:      "list-series",
			StartedAt: startedAt,
			Duration:  time.Since(startedAt),
			Success:   err == nil,
			Err:       err,
			Fields:    fields,
		})
	}()

	return s.engine.ListSeries(ctx, req)
}
