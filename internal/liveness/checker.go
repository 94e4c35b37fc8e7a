// Package liveness answers whether the cache backing store is reachable,
// using a time-bounded TCP dial whose result is memoised.
package liveness

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// DialFunc opens a connection. It matches net.Dialer.DialContext.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Config configures a Checker.
type Config struct {
	// Address is host:port of the store. Empty means never available.
	Address string
	// Interval is how long a check result is reused. Default: 60s
	Interval time.Duration
	// Timeout is the hard upper bound of one check. Default: 1s
	Timeout time.Duration
}

// Option customises a Checker.
type Option func(*Checker)

// WithClock replaces the real clock.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Checker) { c.clock = clock }
}

// WithDialer replaces the TCP dialer.
func WithDialer(dial DialFunc) Option {
	return func(c *Checker) { c.dial = dial }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) { c.logger = logger }
}

// Checker dials the backing store.
//
// Thread Safety: Safe for concurrent use. Concurrent callers share one check.
type Checker struct {
	cfg    Config
	clock  clockwork.Clock
	dial   DialFunc
	logger *slog.Logger
	group  singleflight.Group

	mu        sync.Mutex
	checked   bool
	checkedAt time.Time
	available bool
}

// New returns a Checker for cfg.
func New(cfg Config, opts ...Option) *Checker {
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Second
	}
	c := &Checker{cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}
	if c.clock == nil {
		c.clock = clockwork.NewRealClock()
	}
	if c.dial == nil {
		d := &net.Dialer{Timeout: cfg.Timeout}
		c.dial = d.DialContext
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// AddressFromURL extracts host:port from a redis:// connection string.
func AddressFromURL(url string) (string, error) {
	if url == "" {
		return "", nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return "", fmt.Errorf("parsing cache url: %w", err)
	}
	return opts.Addr, nil
}

// IsAvailable reports whether the store accepted a connection within the
// last Interval, checking when the memo is stale. The shared check runs
// detached from ctx; a caller that gives up early gets false and leaves the
// memo untouched.
func (c *Checker) IsAvailable(ctx context.Context) bool {
	if c.cfg.Address == "" {
		return false
	}
	if v, ok := c.memo(); ok {
		return v
	}
	if ctx.Err() != nil {
		return false
	}
	checkCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan("check", func() (any, error) {
		if v, ok := c.memo(); ok {
			return v, nil
		}
		ok := c.check(checkCtx)
		c.record(ok)
		return ok, nil
	})
	select {
	case res := <-ch:
		return res.Val.(bool)
	case <-ctx.Done():
		c.logger.Debug("cache store check abandoned by caller", "address", c.cfg.Address, "error", ctx.Err())
		return false
	}
}

// MarkUnavailable stores a negative result as of now.
func (c *Checker) MarkUnavailable() {
	c.record(false)
}

func (c *Checker) memo() (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.checked || c.clock.Since(c.checkedAt) >= c.cfg.Interval {
		return false, false
	}
	return c.available, true
}

func (c *Checker) record(ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checked = true
	c.checkedAt = c.clock.Now()
	c.available = ok
}

// check dials once under its own timeout. The timer select bounds the call
// even when name resolution ignores the context.
func (c *Checker) check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	result := make(chan error, 1)
	go func() {
		conn, err := c.dial(ctx, "tcp", c.cfg.Address)
		if err == nil {
			_ = conn.Close()
		}
		result <- err
	}()

	timer := c.clock.NewTimer(c.cfg.Timeout)
	defer timer.Stop()

	select {
	case err := <-result:
		if err != nil {
			c.logger.Debug("cache store unreachable", "address", c.cfg.Address, "error", err)
			return false
		}
		return true
	case <-timer.Chan():
		c.logger.Debug("cache store check timed out", "address", c.cfg.Address, "timeout", c.cfg.Timeout)
		return false
	case <-ctx.Done():
		c.logger.Debug("cache store check timed out", "address", c.cfg.Address, "error", ctx.Err())
		return false
	}
}
