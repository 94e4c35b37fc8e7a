package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/alexanderramin/framebudget/internal/domain"
	"github.com/alexanderramin/framebudget/internal/repository"
	"github.com/shopspring/decimal"
)

// FrameContext is the prefetched frame table for one window. It answers
// frame and overlap lookups without touching the store.
type FrameContext struct {
	StartYear int                                   `json:"startYear"`
	FrameView bool                                  `json:"frameView"`
	Budgets   map[int]map[string]domain.FrameEntry `json:"budgets"`
	Children  map[string][]string                   `json:"children"`
}

// Frame returns the entry of id for year, zero when absent.
func (c *FrameContext) Frame(year int, id string) domain.FrameEntry {
	if e, ok := c.Budgets[year][id]; ok {
		return e
	}
	return domain.FrameEntry{
		NodeID:       id,
		Year:         year,
		FrameBudget:  decimal.Zero,
		BudgetChange: decimal.Zero,
	}
}

// ChildrenSum totals the frame budgets of the direct children of id.
func (c *FrameContext) ChildrenSum(year int, id string) decimal.Decimal {
	sum := decimal.Zero
	for _, child := range c.Children[id] {
		sum = sum.Add(c.Frame(year, child).FrameBudget)
	}
	return sum
}

// Overlaps reports whether the direct children of id were granted more than
// id itself. A node without children never overlaps.
func (c *FrameContext) Overlaps(year int, id string) bool {
	if len(c.Children[id]) == 0 {
		return false
	}
	return c.ChildrenSum(year, id).GreaterThan(c.Frame(year, id).FrameBudget)
}

// BulkCache stores whole frame contexts.
type BulkCache interface {
	GetBulk(ctx context.Context, startYear int, frameView bool, dst any) bool
	SetBulk(ctx context.Context, startYear int, frameView bool, v any)
}

// Builder assembles frame contexts from the coordinator frame records.
type Builder struct {
	frames repository.FrameRecordRepo
	cache  BulkCache
	logger *slog.Logger
}

// NewBuilder returns a Builder. cache may be nil.
func NewBuilder(frames repository.FrameRecordRepo, cache BulkCache, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{frames: frames, cache: cache, logger: logger}
}

// Build reads the window with exactly two bulk queries, one per tree kind.
func (b *Builder) Build(ctx context.Context, startYear int, frameView bool) (*FrameContext, error) {
	from, to := domain.YearRange(startYear)
	fc := &FrameContext{
		StartYear: startYear,
		FrameView: frameView,
		Budgets:   make(map[int]map[string]domain.FrameEntry, domain.SeriesYears),
		Children:  make(map[string][]string),
	}
	for y := from; y <= to; y++ {
		fc.Budgets[y] = make(map[string]domain.FrameEntry)
	}

	seen := make(map[string]bool)
	for _, kind := range []domain.NodeKind{domain.NodeClass, domain.NodeLocation} {
		entries, err := b.frames.ListForKind(ctx, kind, from, to, frameView)
		if err != nil {
			return nil, fmt.Errorf("loading %s frames: %w", kind, err)
		}
		for _, e := range entries {
			fc.Budgets[e.Year][e.NodeID] = e
			if e.ParentID != nil && !seen[e.NodeID] {
				seen[e.NodeID] = true
				fc.Children[*e.ParentID] = append(fc.Children[*e.ParentID], e.NodeID)
			}
		}
	}
	for parent := range fc.Children {
		sort.Strings(fc.Children[parent])
	}
	return fc, nil
}

// Load serves the context from the bulk cache, building and storing it on a
// miss.
func (b *Builder) Load(ctx context.Context, startYear int, frameView bool) (*FrameContext, error) {
	if b.cache != nil {
		var fc FrameContext
		if b.cache.GetBulk(ctx, startYear, frameView, &fc) && fc.Budgets != nil {
			return &fc, nil
		}
	}
	fc, err := b.Build(ctx, startYear, frameView)
	if err != nil {
		return nil, err
	}
	if b.cache != nil {
		b.cache.SetBulk(ctx, startYear, frameView, fc)
	}
	b.logger.Debug("frame context built", "start_year", startYear, "frame_view", frameView, "parents", len(fc.Children))
	return fc, nil
}
