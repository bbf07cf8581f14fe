package addresspool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateReturnsLowestAvailable(t *testing.T) {
	p := New(100, 103)

	a1, err := p.Allocate()
	require.NoError(t, err)
	assert.Equal(t, uint64(100), a1)

	a2, err := p.Allocate()
	require.NoError(t, err)
	assert.Equal(t, uint64(101), a2)

	require.NoError(t, p.Release(a1))

	a3, err := p.Allocate()
	require.NoError(t, err)
	assert.Equal(t, uint64(100), a3)
}

func TestAllocateExhausted(t *testing.T) {
	p := New(1, 2)
	_, err := p.Allocate()
	require.NoError(t, err)
	_, err = p.Allocate()
	require.NoError(t, err)

	_, err = p.Allocate()
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestReleaseRequiresPriorAllocation(t *testing.T) {
	p := New(1, 10)
	err := p.Release(5)
	assert.ErrorIs(t, err, ErrNotAllocated)
}

func TestReserveRejectsOutOfRange(t *testing.T) {
	p := New(10, 20)
	err := p.Reserve(5)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestReserveMarksAllocated(t *testing.T) {
	p := New(10, 20)
	require.NoError(t, p.Reserve(15))
	assert.True(t, p.IsAllocated(15))

	// A subsequent Allocate must skip the reserved address.
	addr, err := p.Allocate()
	require.NoError(t, err)
	assert.Equal(t, uint64(10), addr)
}

func TestStats(t *testing.T) {
	p := New(1, 5)
	_, _ = p.Allocate()
	_, _ = p.Allocate()

	stats := p.Stats()
	assert.Equal(t, 5, stats.Capacity)
	assert.Equal(t, 2, stats.Allocated)
}

func TestAllocatedSnapshot(t *testing.T) {
	p := New(1, 5)
	a, err := p.Allocate()
	require.NoError(t, err)

	allocated := p.Allocated()
	require.Len(t, allocated, 1)
	assert.Equal(t, a, allocated[0])
}
