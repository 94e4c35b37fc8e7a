package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPending_ReaddedDuringReplayIsKept(t *testing.T) {
	p := newPendingInvalidations()
	p.addIndex("idx:class:a")
	p.addBulk([]string{"bulk:2030"})

	batch := p.snapshot()
	p.addIndex("idx:class:a")
	p.forget(batch)

	assert.Equal(t, 1, p.len())
	assert.True(t, p.dirty.Load())
	assert.Equal(t, []string{"idx:class:a"}, p.snapshot().indexes)
}

func TestPending_ForgetAllClearsDirty(t *testing.T) {
	p := newPendingInvalidations()
	p.addIndex("idx:class:a")
	p.forget(p.snapshot())

	assert.Zero(t, p.len())
	assert.False(t, p.dirty.Load())
}

func TestPending_OverflowRaisedAfterSnapshotIsKept(t *testing.T) {
	p := newPendingInvalidations()
	for i := 0; i <= maxPending; i++ {
		p.addIndex(fmt.Sprintf("idx:class:%d", i))
	}
	batch := p.snapshot()
	require.True(t, batch.overflow)
	assert.Empty(t, batch.indexes)

	p.addIndex("idx:class:late")
	p.forget(batch)
	assert.True(t, p.snapshot().overflow)

	p.forget(p.snapshot())
	assert.False(t, p.snapshot().overflow)
	assert.False(t, p.dirty.Load())
}
