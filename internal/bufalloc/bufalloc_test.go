package bufalloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateAssignsMonotonicIds(t *testing.T) {
	a := NewAllocator[float32](64, 0)

	first := a.Allocate()
	second := a.Allocate()

	assert.Equal(t, 1, first.Id)
	assert.Equal(t, 2, second.Id)
	assert.False(t, first.Equals(second))
}

func TestFreeThenAllocateRecycles(t *testing.T) {
	a := NewAllocator[float32](64, 0)

	buf := a.Allocate()
	a.Free(buf)

	recycled := a.Allocate()
	assert.True(t, buf.Equals(recycled), "expected the freed buffer's backing array to be reused")
}

func TestFreeIsIdempotentByIdentity(t *testing.T) {
	a := NewAllocator[float32](64, 0)
	buf := a.Allocate()

	a.Free(buf)
	a.Free(buf) // double free must not duplicate the free-list entry

	assert.Equal(t, 64, a.TotalFreeSlots())
}

func TestReservedAndFreeSlotAccounting(t *testing.T) {
	a := NewAllocator[float32](64, 4)
	require.Equal(t, 256, a.TotalReservedSlots())
	require.Equal(t, 256, a.TotalFreeSlots())

	buf := a.Allocate()
	assert.Equal(t, 256, a.TotalReservedSlots())
	assert.Equal(t, 192, a.TotalFreeSlots())

	a.Free(buf)
	assert.Equal(t, 256, a.TotalFreeSlots())
}

func TestAllocateGrowsReservedSpaceWhenFreeListEmpty(t *testing.T) {
	a := NewAllocator[float32](64, 1)
	a.Allocate()

	grown := a.Allocate()
	assert.Equal(t, 2, grown.Id)
	assert.Equal(t, 128, a.TotalReservedSlots())
}

func TestEmptyBufHasZeroId(t *testing.T) {
	var b Buf[float32]
	assert.True(t, b.Empty())
}
