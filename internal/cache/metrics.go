package cache

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "framebudget/cache"

// metrics holds the cache instruments of one Service.
type metrics struct {
	hits     metric.Int64Counter
	misses   metric.Int64Counter
	failures metric.Int64Counter
	trips    metric.Int64Counter
}

// newMetrics creates the instruments on meter, or on the global provider when
// meter is nil. Instruments that cannot be created fall back to no-ops.
func newMetrics(meter metric.Meter) *metrics {
	if meter == nil {
		meter = otel.Meter(meterName)
	}
	fallback := noop.NewMeterProvider().Meter(meterName)
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			c, _ = fallback.Int64Counter(name)
		}
		return c
	}
	return &metrics{
		hits:     counter("framebudget_cache_hits_total", "Total number of cache hits"),
		misses:   counter("framebudget_cache_misses_total", "Total number of cache misses"),
		failures: counter("framebudget_cache_failures_total", "Total number of backing store failures"),
		trips:    counter("framebudget_cache_breaker_trips_total", "Total number of breaker trips"),
	}
}

func (m *metrics) recordHit(ctx context.Context, op string) {
	m.hits.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.operation", op)))
}

func (m *metrics) recordMiss(ctx context.Context, op string) {
	m.misses.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.operation", op)))
}

func (m *metrics) recordFailure(ctx context.Context, op string) {
	m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.operation", op)))
}

func (m *metrics) recordTrip(ctx context.Context) {
	m.trips.Add(ctx, 1)
}
