// Package slicestream implements a dense, gapless sequence of slices:
// append-only while open, a read-only looping source once Shut. Adjacent
// appends into the same backing buffer are coalesced so a long recording
// doesn't accumulate one TimedSlice per append call.
package slicestream

import (
	"math"
	"sort"

	"github.com/nowsound-go/nowsound/internal/bufalloc"
	"github.com/nowsound-go/nowsound/internal/intervalmapper"
	"github.com/nowsound-go/nowsound/internal/nscontract"
	"github.com/nowsound-go/nowsound/internal/nstime"
	"github.com/nowsound-go/nowsound/internal/slice"
)

// BufferedSliceStream buffers its data in Bufs drawn from an allocator,
// coalescing contiguous appends and dropping data once it exceeds
// maxBufferedDuration (if nonzero). Once Shut it becomes a read-only
// source that GetNextSliceAt serves through an interval mapper - identity
// while recording, looping once shut.
type BufferedSliceStream[U nstime.Unit, T any] struct {
	allocator *bufalloc.Allocator[T]
	sliverSize int

	initialTime         nstime.Time[U]
	discreteDuration    nstime.Duration[U]
	continuousDuration  nstime.ContinuousDuration[U]
	isShut              bool

	maxBufferedDuration nstime.Duration[U]

	data []slice.TimedSlice[U, T]

	remainingFreeBuffer slice.Slice[U, T]

	mapper                     intervalmapper.Mapper
	useContinuousLoopingMapper bool
}

// New creates an open (appendable) stream starting at initialTime.
// maxBufferedDuration of 0 means unbounded buffering. useContinuousLoopingMapper
// selects intervalmapper.ExactLooping over intervalmapper.SimpleLooping once
// the stream is shut.
func New[U nstime.Unit, T any](
	initialTime nstime.Time[U],
	allocator *bufalloc.Allocator[T],
	sliverSize int,
	maxBufferedDuration nstime.Duration[U],
	useContinuousLoopingMapper bool,
) *BufferedSliceStream[U, T] {
	return &BufferedSliceStream[U, T]{
		allocator:                  allocator,
		sliverSize:                 sliverSize,
		initialTime:                initialTime,
		maxBufferedDuration:        maxBufferedDuration,
		mapper:                     intervalmapper.New(intervalmapper.Identity),
		useContinuousLoopingMapper: useContinuousLoopingMapper,
	}
}

// InitialTime, DiscreteDuration, ExactDuration, and IsShut satisfy
// intervalmapper.Stream so the stream can map its own absolute-time reads.
func (s *BufferedSliceStream[U, T]) InitialTime() nstime.Time[U]      { return s.initialTime }
func (s *BufferedSliceStream[U, T]) DiscreteDuration() nstime.Duration[U] { return s.discreteDuration }
func (s *BufferedSliceStream[U, T]) IsShut() bool                     { return s.isShut }

// ExactDuration returns the stream's fractional length. Only valid once shut.
func (s *BufferedSliceStream[U, T]) ExactDuration() nstime.ContinuousDuration[U] {
	nscontract.Check(s.isShut, "ExactDuration is only valid once the stream is shut")
	return s.continuousDuration
}

// DiscreteInterval returns the stream's interval at its current length.
func (s *BufferedSliceStream[U, T]) DiscreteInterval() nstime.Interval[U] {
	return nstime.NewInterval(s.initialTime, s.discreteDuration)
}

// Shut closes the stream to further appends and swaps in a looping mapper.
// finalDuration's ceiling must equal the discrete duration accumulated so
// far. With the continuous (ExactLooping) mapper a loop plays
// floor(finalDuration) or ceil(finalDuration) samples per iteration,
// alternating to stay in time with a fractional BPM; with the SimpleLooping
// mapper every iteration plays the whole discrete duration.
func (s *BufferedSliceStream[U, T]) Shut(finalDuration nstime.ContinuousDuration[U]) {
	nscontract.Check(!s.isShut, "stream is already shut")
	nscontract.Check(
		int64(math.Ceil(float64(finalDuration.Value()))) == s.discreteDuration.Value(),
		"ceil(finalDuration)=%v must equal discreteDuration=%d",
		math.Ceil(float64(finalDuration.Value())), s.discreteDuration.Value(),
	)
	s.isShut = true
	s.continuousDuration = finalDuration

	if s.useContinuousLoopingMapper {
		s.mapper = intervalmapper.New(intervalmapper.ExactLooping)
	} else {
		s.mapper = intervalmapper.New(intervalmapper.SimpleLooping)
	}
}

func (s *BufferedSliceStream[U, T]) ensureFreeBuffer() {
	if s.remainingFreeBuffer.IsEmpty() {
		chunk := s.allocator.Allocate()
		s.remainingFreeBuffer = slice.Whole[U](chunk, s.sliverSize)
	}
}

// Append copies source's data into this stream's private buffers,
// coalescing with the previous slice when they land adjacently.
func (s *BufferedSliceStream[U, T]) Append(source slice.Slice[U, T]) {
	nscontract.Check(!s.isShut, "cannot append to a shut stream")

	for !source.IsEmpty() {
		s.ensureFreeBuffer()

		originalSource := source
		if source.Duration().Greater(s.remainingFreeBuffer.Duration()) {
			source = source.SubsliceOfDuration(s.remainingFreeBuffer.Duration())
		}

		dest := s.remainingFreeBuffer.SubsliceOfDuration(source.Duration())
		source.CopyTo(dest)

		s.internalAppend(dest)

		source = originalSource.SubsliceStartingAt(source.Duration())
		s.trim()
	}
}

// AppendSamples copies duration slivers' worth of data from a plain slice,
// as if it had arrived from outside the process (a host audio callback, a
// decoded sound file). Unlike a borrowed Slice, data is never retained.
func (s *BufferedSliceStream[U, T]) AppendSamples(duration nstime.Duration[U], data []T) {
	srcBuf := bufalloc.Buf[T]{Id: 0, Data: data}
	src := slice.Whole[U](srcBuf, s.sliverSize).SubsliceOfDuration(duration)
	s.Append(src)
}

// AppendSliver appends one sliver, deinterleaving it from height rows of
// width elements read out of source with the given stride between rows.
// width*height must equal this stream's sliver size.
func (s *BufferedSliceStream[U, T]) AppendSliver(source []T, startOffset, width, stride, height int) {
	nscontract.Check(s.sliverSize == width*height, "sliver size must equal width*height")
	nscontract.Check(stride >= width, "stride must be at least width")
	nscontract.Check(len(source) >= startOffset+stride*(height-1)+width, "source too short for requested sliver")

	s.ensureFreeBuffer()
	dest := s.remainingFreeBuffer.SubsliceOfDuration(nstime.NewDuration[U](1))
	dest.WriteSliverStrided(source, startOffset, width, stride, height)

	s.internalAppend(dest)
	s.trim()
}

// internalAppend records dest (which must be carved from remainingFreeBuffer)
// into the dense slice list, coalescing it onto the previous entry when
// adjacent.
func (s *BufferedSliceStream[U, T]) internalAppend(dest slice.Slice[U, T]) {
	nscontract.Check(dest.Buf().Equals(s.remainingFreeBuffer.Buf()), "internalAppend requires dest carved from the free buffer")

	if len(s.data) == 0 {
		s.data = append(s.data, slice.NewTimedSlice(s.initialTime, dest))
	} else {
		last := s.data[len(s.data)-1]
		if last.Value.Precedes(dest) {
			s.data[len(s.data)-1] = slice.NewTimedSlice(last.InitialTime, last.Value.UnionWith(dest))
		} else {
			s.data = append(s.data, slice.NewTimedSlice(last.InitialTime.Plus(last.Value.Duration()), dest))
		}
	}

	s.discreteDuration = s.discreteDuration.Plus(dest.Duration())
	s.remainingFreeBuffer = s.remainingFreeBuffer.SubsliceStartingAt(dest.Duration())
}

// trim drops or shortens the oldest buffered slices once discreteDuration
// exceeds maxBufferedDuration, advancing initialTime to match. Used to cap
// the rolling pre-recording window.
func (s *BufferedSliceStream[U, T]) trim() {
	if s.maxBufferedDuration.Value() == 0 || s.discreteDuration.LessOrEqual(s.maxBufferedDuration) {
		return
	}

	for s.discreteDuration.Greater(s.maxBufferedDuration) {
		toTrim := s.discreteDuration.Minus(s.maxBufferedDuration)
		first := s.data[0]

		if first.Value.Duration().LessOrEqual(toTrim) {
			s.allocator.Free(first.Value.Buf())
			s.data = s.data[1:]
			s.discreteDuration = s.discreteDuration.Minus(first.Value.Duration())
			s.initialTime = s.initialTime.Plus(first.Value.Duration())
		} else {
			shortened := first.Value.SubsliceStartingAt(toTrim)
			s.data[0] = slice.NewTimedSlice(first.InitialTime.Plus(toTrim), shortened)
			s.discreteDuration = s.discreteDuration.Minus(toTrim)
			s.initialTime = s.initialTime.Plus(toTrim)
		}
	}
}

// GetNextSliceAt maps sourceInterval through this stream's mapper and
// returns the largest contiguous slice available starting there. The
// returned slice may be shorter than requested; callers loop, advancing by
// the returned duration, until sourceInterval is consumed.
func (s *BufferedSliceStream[U, T]) GetNextSliceAt(sourceInterval nstime.Interval[U]) slice.Slice[U, T] {
	mapped := intervalmapper.MapNextSubInterval[U](s.mapper, s, sourceInterval)
	if mapped.IsEmpty() {
		return slice.Slice[U, T]{}
	}

	nscontract.Check(mapped.InitialTime().GreaterOrEqual(s.initialTime), "mapped interval starts within stream")
	nscontract.Check(
		mapped.InitialTime().Plus(mapped.IntervalDuration()).LessOrEqual(s.initialTime.Plus(s.discreteDuration)),
		"mapped interval fits within stream",
	)

	found := s.getInitialTimedSlice(mapped)
	intersection := found.SliceInterval().Intersect(mapped)
	nscontract.Check(!intersection.IsEmpty(), "mapped interval intersects found slice")

	result := found.Value.Subslice(
		intersection.InitialTime().MinusTime(found.InitialTime),
		intersection.IntervalDuration(),
	)

	// ExactLooping returns however much remains in the current loop pass,
	// which can exceed what the caller actually asked for; callers advance
	// sourceInterval by exactly the returned duration, so over-delivering
	// would desync them from their own bookkeeping.
	if result.Duration().Greater(sourceInterval.IntervalDuration()) {
		result = result.SubsliceOfDuration(sourceInterval.IntervalDuration())
	}
	return result
}

// getInitialTimedSlice finds, by binary search over the dense slice list,
// the slice containing firstMappedInterval's start time.
func (s *BufferedSliceStream[U, T]) getInitialTimedSlice(firstMappedInterval nstime.Interval[U]) slice.TimedSlice[U, T] {
	nscontract.Check(!firstMappedInterval.Intersect(s.DiscreteInterval()).IsEmpty(), "mapped interval intersects stream")

	target := firstMappedInterval.InitialTime().Value()
	index := sort.Search(len(s.data), func(i int) bool {
		return s.data[i].InitialTime.Value() > target
	}) - 1
	nscontract.Check(index >= 0, "binary search found a slice at or before target time")

	return s.data[index]
}

// CopyTo drains sourceInterval of this stream's data into destination by
// repeated Append calls.
func (s *BufferedSliceStream[U, T]) CopyTo(sourceInterval nstime.Interval[U], destination *BufferedSliceStream[U, T]) {
	for !sourceInterval.IsEmpty() {
		src := s.GetNextSliceAt(sourceInterval)
		destination.Append(src)
		sourceInterval = sourceInterval.SubintervalStartingAt(src.Duration())
	}
}

// CopyToSamples drains sourceInterval of this stream's data into a plain
// slice, which must be at least sourceInterval.IntervalDuration() slivers long.
func (s *BufferedSliceStream[U, T]) CopyToSamples(sourceInterval nstime.Interval[U], dest []T) {
	offset := int64(0)
	for !sourceInterval.IsEmpty() {
		src := s.GetNextSliceAt(sourceInterval)
		n := src.SizeInElements()
		src.CopyToSlice(dest[offset : offset+n])
		offset += n
		sourceInterval = sourceInterval.SubintervalStartingAt(src.Duration())
	}
}

// Dispose frees every buffer this stream holds back to the allocator.
func (s *BufferedSliceStream[U, T]) Dispose() {
	for _, ts := range s.data {
		s.allocator.Free(ts.Value.Buf())
	}
	s.data = nil
}
