// Package nstime provides unit-tagged time and duration types. Plain int64s
// in an audio engine invite confusion between sample counts, beat counts,
// and seconds; these generic types make the unit part of the type and catch
// mismatches at compile time instead of at 3am.
package nstime

import "github.com/nowsound-go/nowsound/internal/nscontract"

// Unit marks a phantom type parameter identifying what a Time/Duration
// counts. It is never instantiated.
type Unit interface {
	unitName() string
}

// AudioSample identifies times measured in audio sample frames.
type AudioSample struct{}

func (AudioSample) unitName() string { return "AudioSample" }

// Beat identifies times measured in musical beats.
type Beat struct{}

func (Beat) unitName() string { return "Beat" }

// Second identifies times measured in real-world seconds.
type Second struct{}

func (Second) unitName() string { return "Second" }

// Frame identifies times measured in video frame counts.
type Frame struct{}

func (Frame) unitName() string { return "Frame" }

// Time is a point in time measured in units of U.
type Time[U Unit] struct {
	value int64
}

// NewTime constructs a Time from a raw count.
func NewTime[U Unit](value int64) Time[U] {
	return Time[U]{value: value}
}

// Value returns the raw unit count.
func (t Time[U]) Value() int64 { return t.value }

func MinTime[U Unit](a, b Time[U]) Time[U] {
	if a.value < b.value {
		return a
	}
	return b
}

func MaxTime[U Unit](a, b Time[U]) Time[U] {
	if a.value > b.value {
		return a
	}
	return b
}

func (t Time[U]) Less(other Time[U]) bool         { return t.value < other.value }
func (t Time[U]) Greater(other Time[U]) bool      { return t.value > other.value }
func (t Time[U]) Equals(other Time[U]) bool       { return t.value == other.value }
func (t Time[U]) LessOrEqual(other Time[U]) bool  { return t.value <= other.value }
func (t Time[U]) GreaterOrEqual(other Time[U]) bool { return t.value >= other.value }

// Plus advances a Time by a Duration.
func (t Time[U]) Plus(d Duration[U]) Time[U] {
	return Time[U]{value: t.value + d.value}
}

// MinusTime returns the Duration separating t from other (t - other).
func (t Time[U]) MinusTime(other Time[U]) Duration[U] {
	return Duration[U]{value: t.value - other.value}
}

// MinusDuration moves a Time backward by a Duration.
func (t Time[U]) MinusDuration(d Duration[U]) Time[U] {
	return Time[U]{value: t.value - d.value}
}

// Duration is a distance between two Times, measured in units of U.
type Duration[U Unit] struct {
	value int64
}

// NewDuration constructs a Duration from a raw count.
func NewDuration[U Unit](value int64) Duration[U] {
	return Duration[U]{value: value}
}

func (d Duration[U]) Value() int64 { return d.value }

func MinDuration[U Unit](a, b Duration[U]) Duration[U] {
	if a.value < b.value {
		return a
	}
	return b
}

func (d Duration[U]) Plus(other Duration[U]) Duration[U] {
	return Duration[U]{value: d.value + other.value}
}

func (d Duration[U]) Minus(other Duration[U]) Duration[U] {
	return Duration[U]{value: d.value - other.value}
}

func (d Duration[U]) ScaleFloat(factor float64) Duration[U] {
	return Duration[U]{value: int64(float64(d.value) * factor)}
}

func (d Duration[U]) ScaleInt(factor int64) Duration[U] {
	return Duration[U]{value: d.value * factor}
}

func (d Duration[U]) Less(other Duration[U]) bool          { return d.value < other.value }
func (d Duration[U]) Greater(other Duration[U]) bool       { return d.value > other.value }
func (d Duration[U]) LessOrEqual(other Duration[U]) bool   { return d.value <= other.value }
func (d Duration[U]) GreaterOrEqual(other Duration[U]) bool { return d.value >= other.value }
func (d Duration[U]) Equals(other Duration[U]) bool        { return d.value == other.value }

// ContinuousDuration is a fractional, non-negative distance. Rounding it to
// a discrete Duration by truncation (not rounding) accumulates drift over a
// long-running loop, which is exactly what intervalmapper.ExactLooping
// exists to correct for.
type ContinuousDuration[U Unit] struct {
	value float32
}

// NewContinuousDuration constructs a ContinuousDuration. value must be >= 0.
func NewContinuousDuration[U Unit](value float32) ContinuousDuration[U] {
	nscontract.Check(value >= 0, "ContinuousDuration value must be non-negative, got %v", value)
	return ContinuousDuration[U]{value: value}
}

func (c ContinuousDuration[U]) Value() float32 { return c.value }

func (c ContinuousDuration[U]) ScaleFloat(factor float32) ContinuousDuration[U] {
	return NewContinuousDuration[U](factor * c.value)
}

// Interval is a half-open span [InitialTime, InitialTime+IntervalDuration).
// Empty intervals carry no meaningful InitialTime; callers must not
// distinguish between empty intervals based on it.
type Interval[U Unit] struct {
	initialTime Time[U]
	duration    Duration[U]
}

// NewInterval constructs an Interval. duration must be non-negative.
func NewInterval[U Unit](initialTime Time[U], duration Duration[U]) Interval[U] {
	nscontract.Check(duration.value >= 0, "interval duration must be non-negative, got %d", duration.value)
	return Interval[U]{initialTime: initialTime, duration: duration}
}

// EmptyInterval returns the canonical empty interval.
func EmptyInterval[U Unit]() Interval[U] {
	return Interval[U]{}
}

func (iv Interval[U]) InitialTime() Time[U]         { return iv.initialTime }
func (iv Interval[U]) IntervalDuration() Duration[U] { return iv.duration }
func (iv Interval[U]) IsEmpty() bool                { return iv.duration.value == 0 }

// SubintervalStartingAt returns the tail of iv beginning offset units in.
func (iv Interval[U]) SubintervalStartingAt(offset Duration[U]) Interval[U] {
	nscontract.Check(offset.value <= iv.duration.value, "offset %d exceeds interval duration %d", offset.value, iv.duration.value)
	return NewInterval(iv.initialTime.Plus(offset), iv.duration.Minus(offset))
}

// SubintervalOfDuration returns the prefix of iv with the given duration.
func (iv Interval[U]) SubintervalOfDuration(duration Duration[U]) Interval[U] {
	nscontract.Check(duration.value <= iv.duration.value, "duration %d exceeds interval duration %d", duration.value, iv.duration.value)
	return NewInterval(iv.initialTime, duration)
}

// Intersect returns the overlap of iv and other, or EmptyInterval if none.
func (iv Interval[U]) Intersect(other Interval[U]) Interval[U] {
	start := MaxTime(iv.initialTime, other.initialTime)
	end := MinTime(iv.initialTime.Plus(iv.duration), other.initialTime.Plus(other.duration))

	if end.Less(start) {
		return EmptyInterval[U]()
	}
	return NewInterval(start, end.MinusTime(start))
}

// Contains reports whether t falls within iv.
func (iv Interval[U]) Contains(t Time[U]) bool {
	if iv.IsEmpty() {
		return false
	}
	return iv.initialTime.LessOrEqual(t) && iv.initialTime.Plus(iv.duration).Greater(t)
}
