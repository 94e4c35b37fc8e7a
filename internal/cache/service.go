// Package cache serves derived aggregation results from a backing key-value
// store behind a circuit breaker. No method returns a store error: failures
// are logged, counted and turned into misses or no-ops.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alexanderramin/framebudget/internal/domain"
	"go.opentelemetry.io/otel/metric"
)

// Options configures a Service.
type Options struct {
	// TTL applies when Set is called with a zero ttl.
	TTL time.Duration
	// BulkWindow is how many start years back a bulk context may cover a
	// given year. It matches the series length.
	BulkWindow int
	Logger     *slog.Logger
	Meter      metric.Meter
}

// Service is the cache facade used by the aggregation engine and the
// mutation service.
type Service struct {
	store   Store
	breaker *Breaker
	ttl     time.Duration
	window  int
	logger  *slog.Logger
	metrics *metrics
	pending *pendingInvalidations
}

// NewService returns a Service over store. A nil store disables the breaker
// permanently and the Service never touches the network.
func NewService(store Store, breaker *Breaker, opts Options) *Service {
	if breaker == nil {
		breaker = NewBreaker(DefaultBreakerConfig(), nil, nil)
	}
	if store == nil {
		breaker.Disable()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.BulkWindow <= 0 {
		opts.BulkWindow = domain.SeriesYears
	}
	s := &Service{
		store:   store,
		breaker: breaker,
		ttl:     opts.TTL,
		window:  opts.BulkWindow,
		logger:  opts.Logger.With("component", "cache"),
		metrics: newMetrics(opts.Meter),
		pending: newPendingInvalidations(),
	}
	if store != nil {
		breaker.OnRecover(s.replayPending)
	}
	return s
}

// Get decodes the entry for k into dst and reports whether it was a hit.
func (s *Service) Get(ctx context.Context, k Key, dst any) bool {
	return s.get(ctx, "get", DeriveKey(k), dst)
}

// Set stores v under k. A zero ttl uses the configured default.
func (s *Service) Set(ctx context.Context, k Key, v any, ttl time.Duration) {
	s.set(ctx, "set", DeriveKey(k), indexKey(k.Kind, k.ID), v, ttl)
}

// Invalidate drops every cached entry of one entity, across all years and
// flags. It never polls an open breaker. An invalidation the store did not
// receive is replayed before the next read or on recovery.
func (s *Service) Invalidate(ctx context.Context, kind domain.NodeKind, id string) {
	if s.store == nil {
		return
	}
	index := indexKey(kind, id)
	if !s.breaker.Allow(ctx, false) {
		s.pending.addIndex(index)
		return
	}
	if err := s.store.DeleteIndexed(ctx, index); err != nil {
		s.pending.addIndex(index)
		s.fail(ctx, "invalidate", err)
		return
	}
	s.breaker.RecordSuccess()
}

// GetBulk loads the frame context table for (startYear, frameView).
func (s *Service) GetBulk(ctx context.Context, startYear int, frameView bool, dst any) bool {
	return s.get(ctx, "get_bulk", DeriveBulkKey(startYear, frameView), dst)
}

// SetBulk stores the frame context table for (startYear, frameView).
func (s *Service) SetBulk(ctx context.Context, startYear int, frameView bool, v any) {
	s.set(ctx, "set_bulk", DeriveBulkKey(startYear, frameView), "", v, 0)
}

// InvalidateBulk drops every bulk table whose window contains year.
func (s *Service) InvalidateBulk(ctx context.Context, year int) {
	if s.store == nil {
		return
	}
	keys := make([]string, 0, s.window*2)
	for start := year - s.window + 1; start <= year; start++ {
		keys = append(keys, DeriveBulkKey(start, false), DeriveBulkKey(start, true))
	}
	if !s.breaker.Allow(ctx, false) {
		s.pending.addBulk(keys)
		return
	}
	if err := s.store.Delete(ctx, keys...); err != nil {
		s.pending.addBulk(keys)
		s.fail(ctx, "invalidate_bulk", err)
		return
	}
	s.breaker.RecordSuccess()
}

// Status reports the breaker state.
func (s *Service) Status() BreakerStatus {
	return s.breaker.Status()
}

func (s *Service) get(ctx context.Context, op, key string, dst any) bool {
	if s.store == nil || !s.breaker.Allow(ctx, true) {
		s.metrics.recordMiss(ctx, op)
		return false
	}
	if err := s.replayPending(ctx); err != nil {
		s.fail(ctx, op, err)
		s.metrics.recordMiss(ctx, op)
		return false
	}
	data, err := s.store.Get(ctx, key)
	if errors.Is(err, ErrMiss) {
		s.breaker.RecordSuccess()
		s.metrics.recordMiss(ctx, op)
		return false
	}
	if err != nil {
		s.fail(ctx, op, err)
		s.metrics.recordMiss(ctx, op)
		return false
	}
	s.breaker.RecordSuccess()

	if err := json.Unmarshal(data, dst); err != nil {
		s.logger.Warn("discarding undecodable cache entry", "key", key, "error", err)
		s.metrics.recordMiss(ctx, op)
		return false
	}
	s.metrics.recordHit(ctx, op)
	return true
}

func (s *Service) set(ctx context.Context, op, key, index string, v any, ttl time.Duration) {
	if s.store == nil || !s.breaker.Allow(ctx, true) {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("cache value not encodable", "key", key, "error", err)
		return
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	if err := s.store.Set(ctx, key, data, ttl, index); err != nil {
		s.fail(ctx, op, err)
		return
	}
	s.breaker.RecordSuccess()
}

// replayPending sends the remembered invalidations to the store. Reads wait
// for a replay in progress so they never see an entry it is about to drop.
func (s *Service) replayPending(ctx context.Context) error {
	if !s.pending.dirty.Load() {
		return nil
	}
	s.pending.replay.Lock()
	defer s.pending.replay.Unlock()

	batch := s.pending.snapshot()
	if batch.overflow {
		if err := s.store.DeletePrefix(ctx, keyPrefix); err != nil {
			return fmt.Errorf("replaying invalidations: %w", err)
		}
		s.logger.Warn("cache namespace dropped after too many missed invalidations")
		s.pending.forget(batch)
		return nil
	}
	for i, index := range batch.indexes {
		if err := s.store.DeleteIndexed(ctx, index); err != nil {
			s.pending.forget(pendingBatch{indexes: batch.indexes[:i], seq: batch.seq})
			return fmt.Errorf("replaying invalidations: %w", err)
		}
	}
	if len(batch.bulk) > 0 {
		if err := s.store.Delete(ctx, batch.bulk...); err != nil {
			s.pending.forget(pendingBatch{indexes: batch.indexes, seq: batch.seq})
			return fmt.Errorf("replaying invalidations: %w", err)
		}
	}
	s.pending.forget(batch)
	s.logger.Debug("replayed missed invalidations", "indexes", len(batch.indexes), "bulk_keys", len(batch.bulk))
	return nil
}

func (s *Service) fail(ctx context.Context, op string, err error) {
	s.metrics.recordFailure(ctx, op)
	tripped := s.breaker.RecordFailure()
	if tripped {
		s.metrics.recordTrip(ctx)
		s.logger.Warn("cache breaker opened", "operation", op, "error", err)
		return
	}
	s.logger.Debug("cache operation failed", "operation", op, "error", err)
}
