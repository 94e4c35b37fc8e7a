package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"

	"github.com/alexanderramin/framebudget/internal/aggregate"
	"github.com/alexanderramin/framebudget/internal/domain"
	"github.com/alexanderramin/framebudget/internal/testutil"
	"github.com/stretchr/testify/require"
)

const testYear = 2030

// spyInvalidator records invalidation calls.
type spyInvalidator struct {
	mu       sync.Mutex
	entities map[string]domain.NodeKind
	years    []int
}

func newSpyInvalidator() *spyInvalidator {
	return &spyInvalidator{entities: make(map[string]domain.NodeKind)}
}

func (s *spyInvalidator) Invalidate(_ context.Context, kind domain.NodeKind, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[id] = kind
}

func (s *spyInvalidator) InvalidateBulk(_ context.Context, year int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.years = append(s.years, year)
}

func (s *spyInvalidator) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entities))
	for id := range s.entities {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// captureObserver keeps every use-case event.
type captureObserver struct {
	mu     sync.Mutex
	events []UseCaseEvent
}

func (c *captureObserver) ObserveUseCase(_ context.Context, e UseCaseEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *captureObserver) last() UseCaseEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events[len(c.events)-1]
}

type recordFixture struct {
	db    *sql.DB
	h     *testutil.Hierarchy
	spy   *spyInvalidator
	obs   *captureObserver
	svc   RecordService
	alias *aggregate.AliasRule
}

func newRecordFixture(t *testing.T) *recordFixture {
	t.Helper()
	database := testutil.NewTestDB(t)
	rule, err := aggregate.NewAliasRule(aggregate.DefaultDistrictAlias)
	require.NoError(t, err)

	f := &recordFixture{
		db:    database,
		h:     testutil.SeedHierarchy(t, database, testYear),
		spy:   newSpyInvalidator(),
		obs:   &captureObserver{},
		alias: rule,
	}
	f.svc = NewRecordService(testutil.NewTestUoW(database), f.spy, rule, f.obs)
	return f
}

func sortedIDs(ids ...string) []string {
	sort.Strings(ids)
	return ids
}
