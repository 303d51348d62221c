// Package intervalmapper converts an absolute-time interval into the
// relative interval a looping stream should actually read from. This is
// how looping and pre-roll delay are implemented: everything reduces to
// mapping "what time is it" to "what time is it in the loop".
package intervalmapper

import (
	"math"

	"github.com/nowsound-go/nowsound/internal/nscontract"
	"github.com/nowsound-go/nowsound/internal/nstime"
)

// Stream is the minimal view of a slicestream.BufferedSliceStream that a
// Mapper needs. Passed as a parameter rather than captured by the mapper,
// so one Mapper value can serve any number of streams without a back
// pointer to keep in sync.
type Stream[U nstime.Unit] interface {
	InitialTime() nstime.Time[U]
	DiscreteDuration() nstime.Duration[U]
	ExactDuration() nstime.ContinuousDuration[U]
	IsShut() bool
}

// DiscreteInterval returns a stream's interval at its current length.
func DiscreteInterval[U nstime.Unit](s Stream[U]) nstime.Interval[U] {
	return nstime.NewInterval(s.InitialTime(), s.DiscreteDuration())
}

// Kind selects one of the three mapping strategies.
type Kind int

const (
	// Identity maps input to itself, intersected with the stream's current
	// interval. Used while a stream is still being recorded.
	Identity Kind = iota
	// SimpleLooping wraps input modulo the stream's discrete duration,
	// ignoring any fractional loop length. Adequate for short loops but
	// drifts over long playback of a loop whose continuous duration isn't
	// a whole number of samples.
	SimpleLooping
	// ExactLooping wraps input using floor/ceil arithmetic against the
	// stream's continuous duration, avoiding the cumulative rounding drift
	// SimpleLooping exhibits.
	ExactLooping
)

func (k Kind) String() string {
	switch k {
	case Identity:
		return "identity"
	case SimpleLooping:
		return "simple-looping"
	case ExactLooping:
		return "exact-looping"
	default:
		return "unknown"
	}
}

// Mapper maps an absolute-time input interval into a stream-relative one.
type Mapper struct {
	kind Kind
}

// New constructs a Mapper of the given kind.
func New(kind Kind) Mapper {
	return Mapper{kind: kind}
}

func (m Mapper) Kind() Kind { return m.kind }

// MapNextSubInterval maps input into stream's coordinate space. The
// returned interval may be shorter than input, typically because input
// wrapped past the end of the underlying stream; the caller should call
// again with input.SubintervalStartingAt(result.IntervalDuration()) to
// obtain the remainder. ExactLooping does not clamp to input: it returns
// the rest of the current loop pass, which can be longer than input.
func MapNextSubInterval[U nstime.Unit](m Mapper, stream Stream[U], input nstime.Interval[U]) nstime.Interval[U] {
	switch m.kind {
	case Identity:
		return mapIdentity(stream, input)
	case SimpleLooping:
		return mapSimpleLooping(stream, input)
	case ExactLooping:
		return mapExactLooping(stream, input)
	default:
		nscontract.Fail("unknown interval mapper kind %v", m.kind)
		panic("unreachable")
	}
}

func mapIdentity[U nstime.Unit](stream Stream[U], input nstime.Interval[U]) nstime.Interval[U] {
	return input.Intersect(DiscreteInterval(stream))
}

func mapSimpleLooping[U nstime.Unit](stream Stream[U], input nstime.Interval[U]) nstime.Interval[U] {
	nscontract.Check(input.InitialTime().GreaterOrEqual(stream.InitialTime()), "SimpleLooping requires input at or after stream start")
	nscontract.Check(stream.IsShut(), "SimpleLooping requires a shut stream")

	streamDuration := stream.DiscreteDuration()
	inputDelay := input.InitialTime().MinusTime(stream.InitialTime())
	inputDelay = nstime.NewDuration[U](inputDelay.Value() % streamDuration.Value())

	mappedDuration := nstime.MinDuration(
		input.IntervalDuration(),
		streamDuration.Minus(inputDelay),
	)
	return nstime.NewInterval(stream.InitialTime().Plus(inputDelay), mappedDuration)
}

func mapExactLooping[U nstime.Unit](stream Stream[U], input nstime.Interval[U]) nstime.Interval[U] {
	nscontract.Check(stream.IsShut(), "ExactLooping requires a shut stream")

	loopRelativeInitialTime := input.InitialTime().MinusTime(stream.InitialTime())
	exactDuration := float64(stream.ExactDuration().Value())

	loopMult := float64(loopRelativeInitialTime.Value()) / exactDuration
	loopIndex := math.Floor(loopMult)

	adjustedInitialTime := int64(float64(loopRelativeInitialTime.Value()) - loopIndex*exactDuration)
	duration := int64(math.Ceil((loopIndex+1)*exactDuration - float64(loopRelativeInitialTime.Value())))

	return nstime.NewInterval(
		stream.InitialTime().Plus(nstime.NewDuration[U](adjustedInitialTime)),
		nstime.NewDuration[U](duration),
	)
}
