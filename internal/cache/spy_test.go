package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var errStoreDown = errors.New("connection refused")

// spyStore is an in-memory Store that counts calls and can be told to fail.
type spyStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	indexes map[string]map[string]bool
	failing bool
	calls   atomic.Int64
}

func newSpyStore() *spyStore {
	return &spyStore{data: map[string][]byte{}, indexes: map[string]map[string]bool{}}
}

func (s *spyStore) setFailing(v bool) {
	s.mu.Lock()
	s.failing = v
	s.mu.Unlock()
}

func (s *spyStore) enter() error {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errStoreDown
	}
	return nil
}

func (s *spyStore) Get(_ context.Context, key string) ([]byte, error) {
	if err := s.enter(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, ErrMiss
	}
	return v, nil
}

func (s *spyStore) Set(_ context.Context, key string, value []byte, _ time.Duration, index string) error {
	if err := s.enter(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	if index != "" {
		if s.indexes[index] == nil {
			s.indexes[index] = map[string]bool{}
		}
		s.indexes[index][key] = true
	}
	return nil
}

func (s *spyStore) Delete(_ context.Context, keys ...string) error {
	if err := s.enter(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

func (s *spyStore) DeleteIndexed(_ context.Context, index string) error {
	if err := s.enter(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.indexes[index] {
		delete(s.data, k)
	}
	delete(s.indexes, index)
	return nil
}

func (s *spyStore) DeletePrefix(_ context.Context, prefix string) error {
	if err := s.enter(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			delete(s.data, k)
		}
	}
	for k := range s.indexes {
		if strings.HasPrefix(k, prefix) {
			delete(s.indexes, k)
		}
	}
	return nil
}

func (s *spyStore) Ping(context.Context) error {
	return s.enter()
}

func (s *spyStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok
}

// fakeHealth is a HealthChecker with a switchable answer.
type fakeHealth struct {
	available atomic.Bool
	checks    atomic.Int64
	marked    atomic.Int64
}

func (p *fakeHealth) IsAvailable(context.Context) bool {
	p.checks.Add(1)
	return p.available.Load()
}

func (p *fakeHealth) MarkUnavailable() {
	p.marked.Add(1)
	p.available.Store(false)
}
