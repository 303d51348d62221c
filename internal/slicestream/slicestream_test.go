package slicestream

import (
	"testing"

	"github.com/nowsound-go/nowsound/internal/bufalloc"
	"github.com/nowsound-go/nowsound/internal/nstime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleUnit = nstime.AudioSample

func newStream(maxBuffered int64) *BufferedSliceStream[sampleUnit, float32] {
	allocator := bufalloc.NewAllocator[float32](8, 2) // 4 slivers/buf of 2 channels
	return New[sampleUnit](nstime.NewTime[sampleUnit](0), allocator, 2, nstime.NewDuration[sampleUnit](maxBuffered), false)
}

func TestAppendSamplesAccumulatesDenseDuration(t *testing.T) {
	s := newStream(0)

	s.AppendSamples(nstime.NewDuration[sampleUnit](2), []float32{1, 1, 2, 2})
	s.AppendSamples(nstime.NewDuration[sampleUnit](2), []float32{3, 3, 4, 4})

	assert.Equal(t, int64(4), s.DiscreteDuration().Value())
	require.Len(t, s.data, 1, "contiguous appends within one buffer must coalesce into a single TimedSlice")
}

func TestAppendSplitsAtBufferBoundary(t *testing.T) {
	s := newStream(0)

	// allocator buffers hold 4 slivers; appending 6 forces a second buffer,
	// which must show up as a second (non-coalesced) TimedSlice.
	data := make([]float32, 12)
	for i := range data {
		data[i] = float32(i)
	}
	s.AppendSamples(nstime.NewDuration[sampleUnit](6), data)

	assert.Equal(t, int64(6), s.DiscreteDuration().Value())
	assert.Len(t, s.data, 2)
}

func TestShutRequiresCeilOfFinalDurationToMatch(t *testing.T) {
	s := newStream(0)
	s.AppendSamples(nstime.NewDuration[sampleUnit](3), make([]float32, 6))

	assert.Panics(t, func() {
		s.Shut(nstime.NewContinuousDuration[sampleUnit](1.5)) // ceil(1.5)=2 != discreteDuration=3
	})
}

func TestShutSucceedsWhenCeilMatches(t *testing.T) {
	s := newStream(0)
	s.AppendSamples(nstime.NewDuration[sampleUnit](3), make([]float32, 6))

	assert.NotPanics(t, func() {
		s.Shut(nstime.NewContinuousDuration[sampleUnit](2.1)) // ceil(2.1)=3
	})
	assert.True(t, s.IsShut())
}

func TestGetNextSliceAtLoopsAfterShut(t *testing.T) {
	s := newStream(0)
	s.AppendSamples(nstime.NewDuration[sampleUnit](3), []float32{1, 1, 2, 2, 3, 3})
	s.Shut(nstime.NewContinuousDuration[sampleUnit](3.0))

	// reading at absolute time 4 (one past the loop) should wrap to relative time 1
	interval := nstime.NewInterval(nstime.NewTime[sampleUnit](4), nstime.NewDuration[sampleUnit](1))
	got := s.GetNextSliceAt(interval)

	require.Equal(t, int64(1), got.Duration().Value())
	assert.Equal(t, float32(2), got.Get(nstime.NewDuration[sampleUnit](0), 0))
}

func TestTrimDropsOldestDataOnceOverMaxBuffered(t *testing.T) {
	s := newStream(2)

	s.AppendSamples(nstime.NewDuration[sampleUnit](2), []float32{1, 1, 2, 2})
	s.AppendSamples(nstime.NewDuration[sampleUnit](2), []float32{3, 3, 4, 4})

	assert.Equal(t, int64(2), s.DiscreteDuration().Value(), "trim must cap buffered duration at maxBufferedDuration")
	assert.Equal(t, int64(2), s.InitialTime().Value(), "trim must advance InitialTime past dropped data")
}

func TestAppendSliverWritesOneDeinterleavedFrame(t *testing.T) {
	s := newStream(0)

	// two channels of one frame each, channel-major (non-interleaved) source layout
	source := []float32{10, 20} // channel 0 = [10], channel 1 = [20]
	s.AppendSliver(source, 0, 1, 1, 2)

	assert.Equal(t, int64(1), s.DiscreteDuration().Value())
	assert.Equal(t, float32(10), s.data[0].Value.Get(nstime.NewDuration[sampleUnit](0), 0))
	assert.Equal(t, float32(20), s.data[0].Value.Get(nstime.NewDuration[sampleUnit](0), 1))
}

func TestAppendDoesNotDoubleCountDiscreteDurationAcrossInternalAppends(t *testing.T) {
	// Regression guard for the original implementation's InternalAppend bug,
	// which added dest.Duration() to an already-updated discreteDuration.
	s := newStream(0)

	total := nstime.NewDuration[sampleUnit](0)
	for i := 0; i < 5; i++ {
		before := s.DiscreteDuration()
		s.AppendSamples(nstime.NewDuration[sampleUnit](1), []float32{1, 1})
		after := s.DiscreteDuration()
		assert.Equal(t, int64(1), after.Minus(before).Value())
		total = total.Plus(nstime.NewDuration[sampleUnit](1))
	}
	assert.Equal(t, total.Value(), s.DiscreteDuration().Value())
}

func TestDisposeFreesAllBuffers(t *testing.T) {
	allocator := bufalloc.NewAllocator[float32](4, 1)
	s := New[sampleUnit](nstime.NewTime[sampleUnit](0), allocator, 2, nstime.NewDuration[sampleUnit](0), false)

	s.AppendSamples(nstime.NewDuration[sampleUnit](2), []float32{1, 1, 2, 2})
	before := allocator.TotalFreeSlots()
	s.Dispose()
	assert.Greater(t, allocator.TotalFreeSlots(), before)
}

func TestCopyToSamplesDrainsWholeInterval(t *testing.T) {
	s := newStream(0)
	s.AppendSamples(nstime.NewDuration[sampleUnit](2), []float32{1, 1, 2, 2})

	dest := make([]float32, 4)
	s.CopyToSamples(s.DiscreteInterval(), dest)
	assert.Equal(t, []float32{1, 1, 2, 2}, dest)
}
