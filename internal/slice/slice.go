// Package slice provides bounds-checked views onto bufalloc.Buf backing
// arrays, divided into fixed-size slivers (one sliver per unit of U - a
// stereo sample pair, say, or a video frame).
package slice

import (
	"github.com/nowsound-go/nowsound/internal/bufalloc"
	"github.com/nowsound-go/nowsound/internal/nscontract"
	"github.com/nowsound-go/nowsound/internal/nstime"
)

// Slice is a contiguous run of slivers within a borrowed Buf.
type Slice[U nstime.Unit, T any] struct {
	buf        bufalloc.Buf[T]
	offset     nstime.Duration[U]
	duration   nstime.Duration[U]
	sliverSize int
}

// New constructs a Slice at the given sliver offset and duration within
// buf. offset and duration must be non-negative and fit within buf.
func New[U nstime.Unit, T any](buf bufalloc.Buf[T], offset, duration nstime.Duration[U], sliverSize int) Slice[U, T] {
	nscontract.Check(offset.Value() >= 0, "slice offset must be non-negative, got %d", offset.Value())
	nscontract.Check(duration.Value() >= 0, "slice duration must be non-negative, got %d", duration.Value())
	nscontract.Check(
		(offset.Value()+duration.Value())*int64(sliverSize) <= int64(len(buf.Data)),
		"slice [offset=%d, duration=%d, sliverSize=%d] exceeds backing buffer of length %d",
		offset.Value(), duration.Value(), sliverSize, len(buf.Data),
	)
	return Slice[U, T]{buf: buf, offset: offset, duration: duration, sliverSize: sliverSize}
}

// Whole returns a Slice spanning the entirety of buf.
func Whole[U nstime.Unit, T any](buf bufalloc.Buf[T], sliverSize int) Slice[U, T] {
	return Slice[U, T]{
		buf:        buf,
		offset:     nstime.NewDuration[U](0),
		duration:   nstime.NewDuration[U](int64(len(buf.Data) / sliverSize)),
		sliverSize: sliverSize,
	}
}

func (s Slice[U, T]) IsEmpty() bool { return s.duration.Value() == 0 }

// Buf returns the backing buffer this Slice borrows from.
func (s Slice[U, T]) Buf() bufalloc.Buf[T] { return s.buf }

func (s Slice[U, T]) Offset() nstime.Duration[U]   { return s.offset }
func (s Slice[U, T]) Duration() nstime.Duration[U] { return s.duration }
func (s Slice[U, T]) SliverSize() int              { return s.sliverSize }

// Get returns the element at the given sliver offset and within-sliver
// subindex.
func (s Slice[U, T]) Get(offset nstime.Duration[U], subindex int) T {
	totalOffset := s.offset.Value() + offset.Value()
	nscontract.Check(totalOffset*int64(s.sliverSize) < int64(len(s.buf.Data)), "slice Get offset out of range")
	return s.buf.Data[totalOffset*int64(s.sliverSize)+int64(subindex)]
}

// Subslice returns the portion of s starting at initialOffset slivers in,
// for the given duration.
func (s Slice[U, T]) Subslice(initialOffset, duration nstime.Duration[U]) Slice[U, T] {
	nscontract.Check(initialOffset.Value() >= 0, "subslice initialOffset must be non-negative")
	nscontract.Check(initialOffset.Value()+duration.Value() <= s.duration.Value(), "subslice exceeds parent slice duration")
	return New(s.buf, s.offset.Plus(initialOffset), duration, s.sliverSize)
}

// SubsliceStartingAt returns the remainder of s from initialOffset onward.
func (s Slice[U, T]) SubsliceStartingAt(initialOffset nstime.Duration[U]) Slice[U, T] {
	return s.Subslice(initialOffset, s.duration.Minus(initialOffset))
}

// SubsliceOfDuration returns the prefix of s with the given duration.
func (s Slice[U, T]) SubsliceOfDuration(duration nstime.Duration[U]) Slice[U, T] {
	return s.Subslice(nstime.NewDuration[U](0), duration)
}

// SliverSizeInElements returns the element count of a single sliver.
func (s Slice[U, T]) SliverSizeInElements() int64 {
	return int64(s.sliverSize)
}

// SizeInElements returns the total element count spanned by this slice.
func (s Slice[U, T]) SizeInElements() int64 {
	return s.SliverSizeInElements() * s.duration.Value()
}

// CopyTo copies this slice's data into destination, which must have at
// least as much duration and the same sliver size.
func (s Slice[U, T]) CopyTo(destination Slice[U, T]) {
	nscontract.Check(destination.duration.Value() >= s.duration.Value(), "CopyTo destination shorter than source")
	nscontract.Check(destination.sliverSize == s.sliverSize, "CopyTo sliver size mismatch")

	srcStart := s.offset.Value() * int64(s.sliverSize)
	dstStart := destination.offset.Value() * int64(destination.sliverSize)
	n := s.SizeInElements()
	copy(destination.buf.Data[dstStart:dstStart+n], s.buf.Data[srcStart:srcStart+n])
}

// CopyToSlice copies this slice's data into a plain slice, which must be
// at least SizeInElements long.
func (s Slice[U, T]) CopyToSlice(dest []T) {
	srcStart := s.offset.Value() * int64(s.sliverSize)
	n := s.SizeInElements()
	copy(dest[:n], s.buf.Data[srcStart:srcStart+n])
}

// CopyFromSlice overwrites this slice's data from a plain slice, which
// must be at least SizeInElements long.
func (s Slice[U, T]) CopyFromSlice(source []T) {
	dstStart := s.offset.Value() * int64(s.sliverSize)
	n := s.SizeInElements()
	copy(s.buf.Data[dstStart:dstStart+n], source[:n])
}

// WriteSliverStrided fills this single-sliver slice from height rows of
// width elements each, read out of source starting at startOffset and
// advancing by stride between rows. Used to deinterleave a multi-channel
// capture frame into one sliver.
func (s Slice[U, T]) WriteSliverStrided(source []T, startOffset, width, stride, height int) {
	nscontract.Check(s.duration.Value() == 1, "WriteSliverStrided requires a single-sliver destination")
	nscontract.Check(s.sliverSize == width*height, "sliver size must equal width*height")

	dstStart := s.offset.Value() * int64(s.sliverSize)
	srcOffset := startOffset
	dstOffset := int64(0)
	for h := 0; h < height; h++ {
		copy(s.buf.Data[dstStart+dstOffset:dstStart+dstOffset+int64(width)], source[srcOffset:srcOffset+width])
		srcOffset += stride
		dstOffset += int64(width)
	}
}

// Precedes reports whether next immediately follows s in the same backing
// array, making the pair eligible for coalescing via UnionWith.
func (s Slice[U, T]) Precedes(next Slice[U, T]) bool {
	return s.buf.Equals(next.buf) && s.offset.Plus(s.duration).Equals(next.offset)
}

// UnionWith merges s with an immediately-following slice into one. Precedes
// must hold.
func (s Slice[U, T]) UnionWith(next Slice[U, T]) Slice[U, T] {
	nscontract.Check(s.Precedes(next), "UnionWith requires s.Precedes(next)")
	return New(s.buf, s.offset, s.duration.Plus(next.duration), s.sliverSize)
}

// Equals reports whether two slices denote the same view: same backing
// buffer, offset, and duration.
func (s Slice[U, T]) Equals(other Slice[U, T]) bool {
	return s.buf.Equals(other.buf) && s.offset.Equals(other.offset) && s.duration.Equals(other.duration)
}

// TimedSlice pairs a Slice with the absolute time its first sliver
// represents. In a stream's coalesced sequence, the first TimedSlice's
// InitialTime is the stream's own InitialTime.
type TimedSlice[U nstime.Unit, T any] struct {
	InitialTime nstime.Time[U]
	Value       Slice[U, T]
}

// NewTimedSlice pairs a start time with a slice.
func NewTimedSlice[U nstime.Unit, T any](startTime nstime.Time[U], value Slice[U, T]) TimedSlice[U, T] {
	return TimedSlice[U, T]{InitialTime: startTime, Value: value}
}

// SliceInterval returns the absolute interval this TimedSlice occupies.
func (ts TimedSlice[U, T]) SliceInterval() nstime.Interval[U] {
	return nstime.NewInterval(ts.InitialTime, ts.Value.Duration())
}
