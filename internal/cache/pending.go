package cache

import (
	"sort"
	"sync"
	"sync/atomic"
)

// maxPending bounds the remembered invalidations. Past it the whole
// namespace is dropped on replay instead.
const maxPending = 4096

// pendingInvalidations remembers invalidations the store never received,
// either because the breaker was open or the delete failed. Entries stay
// until a replay reaches the store.
//
// Thread Safety: Safe for concurrent use. replay serializes replays.
type pendingInvalidations struct {
	dirty  atomic.Bool
	replay sync.Mutex

	mu       sync.Mutex
	indexes  map[string]uint64
	bulk     map[string]uint64
	overflow bool
	seq      uint64
}

type pendingBatch struct {
	indexes  []string
	bulk     []string
	overflow bool
	seq      uint64
}

func newPendingInvalidations() *pendingInvalidations {
	return &pendingInvalidations{
		indexes: map[string]uint64{},
		bulk:    map[string]uint64{},
	}
}

func (p *pendingInvalidations) addIndex(index string) {
	p.add([]string{index}, nil)
}

func (p *pendingInvalidations) addBulk(keys []string) {
	p.add(nil, keys)
}

func (p *pendingInvalidations) add(indexes, bulk []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	p.dirty.Store(true)
	if p.overflow {
		return
	}
	for _, k := range indexes {
		p.indexes[k] = p.seq
	}
	for _, k := range bulk {
		p.bulk[k] = p.seq
	}
	if len(p.indexes)+len(p.bulk) > maxPending {
		p.overflow = true
		p.indexes = map[string]uint64{}
		p.bulk = map[string]uint64{}
	}
}

func (p *pendingInvalidations) snapshot() pendingBatch {
	p.mu.Lock()
	defer p.mu.Unlock()
	return pendingBatch{
		indexes:  sortedKeys(p.indexes),
		bulk:     sortedKeys(p.bulk),
		overflow: p.overflow,
		seq:      p.seq,
	}
}

// forget drops what b replayed. Keys added again after the snapshot, and an
// overflow raised after it, are kept for the next replay.
func (p *pendingInvalidations) forget(b pendingBatch) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, k := range b.indexes {
		if p.indexes[k] <= b.seq {
			delete(p.indexes, k)
		}
	}
	for _, k := range b.bulk {
		if p.bulk[k] <= b.seq {
			delete(p.bulk, k)
		}
	}
	if b.overflow && p.seq == b.seq {
		p.overflow = false
	}
	if !p.overflow && len(p.indexes) == 0 && len(p.bulk) == 0 {
		p.dirty.Store(false)
	}
}

func (p *pendingInvalidations) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.indexes) + len(p.bulk)
}

func sortedKeys(m map[string]uint64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
