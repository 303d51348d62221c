package slice

import (
	"testing"

	"github.com/nowsound-go/nowsound/internal/bufalloc"
	"github.com/nowsound-go/nowsound/internal/nstime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleUnit = nstime.AudioSample

func bufOf(data []float32) bufalloc.Buf[float32] {
	return bufalloc.Buf[float32]{Id: 1, Data: data}
}

func TestSliceConstructionRejectsOutOfRange(t *testing.T) {
	buf := bufOf(make([]float32, 8)) // 4 stereo slivers
	assert.Panics(t, func() {
		New[sampleUnit](buf, nstime.NewDuration[sampleUnit](0), nstime.NewDuration[sampleUnit](5), 2)
	})
}

func TestSliceGetAndSubslice(t *testing.T) {
	data := []float32{0, 1, 2, 3, 4, 5, 6, 7}
	buf := bufOf(data)
	whole := Whole[sampleUnit](buf, 2)

	assert.Equal(t, float32(2), whole.Get(nstime.NewDuration[sampleUnit](1), 0))
	assert.Equal(t, float32(3), whole.Get(nstime.NewDuration[sampleUnit](1), 1))

	sub := whole.Subslice(nstime.NewDuration[sampleUnit](1), nstime.NewDuration[sampleUnit](2))
	assert.Equal(t, int64(1), sub.Offset().Value())
	assert.Equal(t, int64(2), sub.Duration().Value())
}

func TestSlicePrecedesAndUnionWith(t *testing.T) {
	data := make([]float32, 16)
	buf := bufOf(data)
	whole := Whole[sampleUnit](buf, 2)

	first := whole.Subslice(nstime.NewDuration[sampleUnit](0), nstime.NewDuration[sampleUnit](2))
	second := whole.Subslice(nstime.NewDuration[sampleUnit](2), nstime.NewDuration[sampleUnit](3))

	require.True(t, first.Precedes(second))
	union := first.UnionWith(second)
	assert.Equal(t, int64(5), union.Duration().Value())
	assert.Equal(t, int64(0), union.Offset().Value())
}

func TestSliceUnionWithPanicsWhenNotAdjacent(t *testing.T) {
	data := make([]float32, 16)
	buf := bufOf(data)
	whole := Whole[sampleUnit](buf, 2)

	first := whole.Subslice(nstime.NewDuration[sampleUnit](0), nstime.NewDuration[sampleUnit](2))
	notAdjacent := whole.Subslice(nstime.NewDuration[sampleUnit](3), nstime.NewDuration[sampleUnit](2))

	assert.Panics(t, func() {
		first.UnionWith(notAdjacent)
	})
}

func TestSliceCopyToRoundTrips(t *testing.T) {
	src := bufOf([]float32{1, 2, 3, 4})
	dst := bufOf(make([]float32, 4))

	srcSlice := Whole[sampleUnit](src, 2)
	dstSlice := Whole[sampleUnit](dst, 2)

	srcSlice.CopyTo(dstSlice)
	assert.Equal(t, []float32{1, 2, 3, 4}, dst.Data)
}

func TestSliceEqualsAndIsEmpty(t *testing.T) {
	buf := bufOf(make([]float32, 4))
	a := Whole[sampleUnit](buf, 2)
	b := Whole[sampleUnit](buf, 2)

	assert.True(t, a.Equals(b))

	empty := a.Subslice(nstime.NewDuration[sampleUnit](0), nstime.NewDuration[sampleUnit](0))
	assert.True(t, empty.IsEmpty())
}
