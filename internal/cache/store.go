package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Store.Get when the key is absent.
var ErrMiss = errors.New("cache miss")

// Store is the backing key-value service. Every method may fail; the Service
// absorbs those failures.
type Store interface {
	// Get returns the value stored under key or ErrMiss.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key for ttl. A non-empty index also records key
	// in that index set so DeleteIndexed can drop it later.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration, index string) error
	// Delete removes keys. Absent keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	// DeleteIndexed removes every key recorded in index and the index itself.
	DeleteIndexed(ctx context.Context, index string) error
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
	Ping(ctx context.Context) error
}
