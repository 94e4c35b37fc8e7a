package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// State is the breaker position.
type State int

const (
	// StateClosed lets store calls through.
	StateClosed State = iota
	// StateOpen bypasses the store entirely.
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	IsAvailable(ctx context.Context) bool
	MarkUnavailable()
}

// BreakerConfig configures the breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before opening.
	// Default: 3
	FailureThreshold int

	// PollInterval is the minimum spacing between recovery checks while open.
	// Default: 60s
	PollInterval time.Duration
}

// DefaultBreakerConfig returns the production defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 3,
		PollInterval:     60 * time.Second,
	}
}

// Breaker guards the backing store. It is owned by one Service and its state
// is per process.
//
// Thread Safety: Safe for concurrent use.
type Breaker struct {
	cfg       BreakerConfig
	health    HealthChecker
	clock     clockwork.Clock
	onRecover func(ctx context.Context) error

	mu       sync.Mutex
	state    State
	failures int
	disabled bool
	openedAt time.Time
	lastPoll time.Time
}

// NewBreaker returns a closed breaker. A nil checker means an open breaker
// never recovers.
func NewBreaker(cfg BreakerConfig, health HealthChecker, clock clockwork.Clock) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Breaker{cfg: cfg, health: health, clock: clock}
}

// Disable opens the breaker permanently. Only a successful health check at
// a later poll clears it.
func (b *Breaker) Disable() {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.clock.Now()
	b.disabled = true
	b.state = StateOpen
	b.openedAt = now
	b.lastPoll = now
}

// OnRecover registers fn to run after a successful health check and before the
// breaker closes. An error keeps the breaker open until the next poll. Call
// it before the breaker is shared.
func (b *Breaker) OnRecover(fn func(ctx context.Context) error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onRecover = fn
}

// Allow reports whether a store call may be made. When poll is set and the
// breaker is open, a poll that is due asks the checker and closes the breaker
// on success.
func (b *Breaker) Allow(ctx context.Context, poll bool) bool {
	b.mu.Lock()
	if b.state == StateClosed {
		b.mu.Unlock()
		return true
	}
	now := b.clock.Now()
	if !poll || b.health == nil || now.Sub(b.lastPoll) < b.cfg.PollInterval {
		b.mu.Unlock()
		return false
	}
	b.lastPoll = now
	onRecover := b.onRecover
	b.mu.Unlock()

	if !b.health.IsAvailable(ctx) {
		return false
	}
	if onRecover != nil {
		if err := onRecover(ctx); err != nil {
			return false
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.disabled = false
	return true
}

// RecordSuccess resets the consecutive failure count.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateClosed {
		b.failures = 0
	}
}

// RecordFailure counts a store failure and reports whether it tripped the
// breaker.
func (b *Breaker) RecordFailure() bool {
	b.mu.Lock()
	if b.state != StateClosed {
		b.mu.Unlock()
		return false
	}
	b.failures++
	if b.failures < b.cfg.FailureThreshold {
		b.mu.Unlock()
		return false
	}
	now := b.clock.Now()
	b.state = StateOpen
	b.openedAt = now
	b.lastPoll = now
	b.mu.Unlock()

	if b.health != nil {
		b.health.MarkUnavailable()
	}
	return true
}

// BreakerStatus is a point-in-time copy of the breaker state.
type BreakerStatus struct {
	State    State
	Failures int
	Disabled bool
	OpenedAt time.Time
}

// Status returns the current breaker state.
func (b *Breaker) Status() BreakerStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BreakerStatus{
		State:    b.state,
		Failures: b.failures,
		Disabled: b.disabled,
		OpenedAt: b.openedAt,
	}
}
