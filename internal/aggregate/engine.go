// Package aggregate computes rolling eleven-year budget series for nodes of
// the coordinator and planning hierarchies.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alexanderramin/framebudget/internal/cache"
	"github.com/alexanderramin/framebudget/internal/domain"
	"github.com/alexanderramin/framebudget/internal/repository"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// SeriesCache is the part of the cache service the engine uses.
type SeriesCache interface {
	BulkCache
	Get(ctx context.Context, k cache.Key, dst any) bool
	Set(ctx context.Context, k cache.Key, v any, ttl time.Duration)
}

// SeriesRequest asks for the series of one node.
type SeriesRequest struct {
	NodeID          string
	StartYear       int
	FrameView       bool
	CoordinatorView bool
}

// ListRequest asks for the series of several nodes sharing one window.
type ListRequest struct {
	NodeIDs         []string
	StartYear       int
	FrameView       bool
	CoordinatorView bool
}

// Config tunes the engine.
type Config struct {
	// TTL of cached series. Zero uses the cache default.
	TTL time.Duration
	// NodeTimeout bounds the work for one node of a list. Zero disables it.
	NodeTimeout time.Duration
	// Concurrency bounds parallel nodes in ListSeries. Default: 4
	Concurrency int
	Aliases     *AliasRule
	Logger      *slog.Logger
}

// Engine computes and caches series.
type Engine struct {
	nodes    repository.NodeRepo
	projects repository.ProjectRepo
	records  repository.ProjectRecordRepo
	builder  *Builder
	cache    SeriesCache
	cfg      Config
	logger   *slog.Logger
	flight   singleflight.Group
}

// NewEngine wires an Engine. seriesCache may be nil.
func NewEngine(
	nodes repository.NodeRepo,
	projects repository.ProjectRepo,
	records repository.ProjectRecordRepo,
	frames repository.FrameRecordRepo,
	seriesCache SeriesCache,
	cfg Config,
) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if seriesCache == nil {
		seriesCache = noCache{}
	}
	logger := cfg.Logger.With("component", "aggregate")
	return &Engine{
		nodes:    nodes,
		projects: projects,
		records:  records,
		builder:  NewBuilder(frames, seriesCache, logger),
		cache:    seriesCache,
		cfg:      cfg,
		logger:   logger,
	}
}

// Series returns the series of one node.
func (e *Engine) Series(ctx context.Context, req SeriesRequest) (*domain.Series, error) {
	n, err := e.nodes.GetByID(ctx, req.NodeID)
	if err != nil {
		return nil, err
	}
	if err := checkView(n, req.CoordinatorView); err != nil {
		return nil, err
	}
	u := newUniverse(e.nodes, e.projects, e.cfg.Aliases, e.logger)
	return e.serve(ctx, n, req.StartYear, req.FrameView, req.CoordinatorView, u, nil)
}

// ListSeries returns one series per requested node, in request order. A node
// whose computation fails is returned zeroed and marked degraded; the rest of
// the batch proceeds.
func (e *Engine) ListSeries(ctx context.Context, req ListRequest) ([]*domain.Series, error) {
	found, err := e.nodes.GetByIDs(ctx, req.NodeIDs)
	if err != nil {
		return nil, err
	}
	nodes := make([]*domain.Node, len(req.NodeIDs))
	for i, id := range req.NodeIDs {
		n, ok := found[id]
		if !ok {
			return nil, fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
		}
		if err := checkView(n, req.CoordinatorView); err != nil {
			return nil, err
		}
		nodes[i] = n
	}

	fc, fcErr := e.builder.Load(ctx, req.StartYear, req.FrameView)
	if fcErr != nil {
		e.logger.Warn("frame context unavailable", "start_year", req.StartYear, "error", fcErr)
	}

	u := newUniverse(e.nodes, e.projects, e.cfg.Aliases, e.logger)
	out := make([]*domain.Series, len(nodes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for i, n := range nodes {
		g.Go(func() error {
			nctx := gctx
			if e.cfg.NodeTimeout > 0 {
				var cancel context.CancelFunc
				nctx, cancel = context.WithTimeout(gctx, e.cfg.NodeTimeout)
				defer cancel()
			}
			s, err := e.serve(nctx, n, req.StartYear, req.FrameView, req.CoordinatorView, u, fc)
			if err != nil {
				e.logger.Warn("series degraded", "node_id", n.ID, "error", err)
				s = domain.NewSeries(n, req.StartYear, req.FrameView, req.CoordinatorView)
				s.Degraded = true
			}
			out[i] = s
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}

// serve answers from the cache or computes once per key. fc may be nil, in
// which case it is loaded.
func (e *Engine) serve(ctx context.Context, n *domain.Node, year int, frameView, coordinatorView bool, u *universe, fc *FrameContext) (*domain.Series, error) {
	key := cache.Key{Kind: n.Kind, ID: n.ID, Year: year, FrameView: frameView, CoordinatorView: coordinatorView}

	var cached domain.Series
	if e.cache.Get(ctx, key, &cached) && len(cached.Years) == domain.SeriesYears {
		return &cached, nil
	}

	ch := e.flight.DoChan(cache.DeriveKey(key), func() (any, error) {
		ctx, cancel := e.detached(ctx)
		defer cancel()

		frames := fc
		if frames == nil {
			var err error
			if frames, err = e.builder.Load(ctx, year, frameView); err != nil {
				return nil, err
			}
		}
		s, err := e.compute(ctx, n, year, frameView, coordinatorView, u, frames)
		if err != nil {
			return nil, err
		}
		if !s.Degraded {
			e.cache.Set(ctx, key, s, e.cfg.TTL)
		}
		return s, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Series), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("series of node %s: %w", n.ID, ctx.Err())
	}
}

// detached returns the context of a computation shared by every caller of
// one key. It ignores the starting caller's cancellation and is bounded by
// NodeTimeout when set.
func (e *Engine) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if e.cfg.NodeTimeout > 0 {
		return context.WithTimeout(ctx, e.cfg.NodeTimeout)
	}
	return context.WithCancel(ctx)
}

func (e *Engine) compute(ctx context.Context, n *domain.Node, year int, frameView, coordinatorView bool, u *universe, fc *FrameContext) (*domain.Series, error) {
	s := domain.NewSeries(n, year, frameView, coordinatorView)
	e.fillFrames(s, n, fc)

	projects, err := u.reachable(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("resolving projects of node %s: %w", n.ID, err)
	}
	ids := make([]string, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
	}
	from, to := domain.YearRange(year)
	sums, err := e.records.SumByYear(ctx, ids, from, to)
	if err != nil {
		return nil, fmt.Errorf("summing records of node %s: %w", n.ID, err)
	}
	for i := range s.Years {
		if v, ok := sums[s.Years[i].Year]; ok {
			s.Years[i].PlannedBudget = v
		}
	}

	if n.IsGroup() {
		total := decimal.Zero
		for _, p := range projects {
			total = total.Add(p.Budget)
		}
		s.ProjectBudgets = &total
	}
	return s, nil
}

func (e *Engine) fillFrames(s *domain.Series, n *domain.Node, fc *FrameContext) {
	var frameID string
	switch {
	case n.IsGroup():
		return
	case n.IsCoordinator():
		frameID = n.ID
	case n.RelatedTo != nil:
		frameID = *n.RelatedTo
	default:
		e.logger.Debug("planning node has no coordinator partner", "node_id", n.ID)
		return
	}
	for i := range s.Years {
		y := s.Years[i].Year
		f := fc.Frame(y, frameID)
		s.Years[i].FrameBudget = f.FrameBudget
		s.Years[i].BudgetChange = f.BudgetChange
		if n.IsCoordinator() {
			s.Years[i].OverlapsFrame = fc.Overlaps(y, n.ID)
		}
	}
}

// checkView rejects nodes that do not belong to the requested view. Groups
// are served in both.
func checkView(n *domain.Node, coordinatorView bool) error {
	if n.IsGroup() || n.IsCoordinator() == coordinatorView {
		return nil
	}
	if coordinatorView {
		return fmt.Errorf("node %s is not a coordinator node: %w", n.ID, domain.ErrNotFound)
	}
	return fmt.Errorf("node %s is not a planning node: %w", n.ID, domain.ErrNotFound)
}

type noCache struct{}

func (noCache) Get(context.Context, cache.Key, any) bool           { return false }
func (noCache) Set(context.Context, cache.Key, any, time.Duration) {}
func (noCache) GetBulk(context.Context, int, bool, any) bool       { return false }
func (noCache) SetBulk(context.Context, int, bool, any)            {}
