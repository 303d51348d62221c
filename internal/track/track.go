// Package track implements a single looping track: it records mono input
// into a BufferedSliceStream, fixes its length once the user stops
// recording, and then plays back in a tight loop while emitting stereo
// output panned and scaled per the user's pan/mute settings.
package track

import (
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/nowsound-go/nowsound/internal/bufalloc"
	"github.com/nowsound-go/nowsound/internal/clock"
	"github.com/nowsound-go/nowsound/internal/logging"
	"github.com/nowsound-go/nowsound/internal/nscontract"
	"github.com/nowsound-go/nowsound/internal/nstime"
	"github.com/nowsound-go/nowsound/internal/recorder"
	"github.com/nowsound-go/nowsound/internal/slice"
	"github.com/nowsound-go/nowsound/internal/slicestream"
)

var _ recorder.Recorder = (*Track)(nil)

// State is the lifecycle of a Track.
type State int

const (
	// Uninitialized is the zero value; important for catching bugs where a
	// Track map entry is read before being populated.
	Uninitialized State = iota
	// Recording: duration is not yet known, BeatDuration grows every quantum.
	Recording
	// FinishRecording: the user has asked to stop; the track keeps recording
	// until the current beat completes, to keep loops beat-quantized.
	FinishRecording
	// Looping: duration is fixed, the track plays back repeatedly.
	Looping
	// Deleted: the track has been torn down; any further call is a contract
	// violation.
	Deleted
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Recording:
		return "recording"
	case FinishRecording:
		return "finish-recording"
	case Looping:
		return "looping"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Id identifies a Track; 0 is a valid id (the first track created).
type Id int32

// Info bundles a track's time/duration reading for a single ABI/HTTP call.
type Info struct {
	State                 State
	DurationInSamples     int64
	DurationInBeats       int64
	ExactDuration         float32
	CurrentTrackTimeInSamples int64
	CurrentTrackBeat      float32
}

// Track is a single loop: a mono capture stream plus pan/mute playback
// state. Record is called from the audio thread; pan/mute/state reads may
// come from any goroutine, so those fields are guarded independently of the
// audio-only fields the capture pump alone touches.
type Track struct {
	id      Id
	inputId int
	clock   *clock.Clock
	logger  *slog.Logger

	mu          sync.RWMutex
	state       State
	beatDuration nstime.Duration[nstime.Beat]
	startTime   nstime.Time[nstime.AudioSample]

	pan     atomic.Value // float32, 0=left .. 1=right
	isMuted atomic.Bool

	stream *slicestream.BufferedSliceStream[nstime.AudioSample, float32]

	lastSampleTime nstime.Time[nstime.AudioSample]
}

// New creates a Track that starts out Recording, seeded with preRecorded
// audio already captured before the user pressed record (the
// "pre-recording" buffer every input keeps rolling).
func New(
	id Id,
	inputId int,
	clk *clock.Clock,
	allocator *bufalloc.Allocator[float32],
	now nstime.Time[nstime.AudioSample],
	preRecorded slice.Slice[nstime.AudioSample, float32],
	initialPan float32,
) *Track {
	nscontract.Check(initialPan >= 0 && initialPan <= 1, "pan must be in [0,1], got %v", initialPan)

	logger := logging.ForService("track").With("track_id", id)

	t := &Track{
		id:      id,
		inputId: inputId,
		clock:   clk,
		logger:  logger,
		state:   Recording,
		startTime: now,
		lastSampleTime: now,
		stream:  slicestream.New[nstime.AudioSample](now, allocator, 1, nstime.NewDuration[nstime.AudioSample](0), true),
	}
	t.pan.Store(initialPan)

	if !preRecorded.IsEmpty() {
		t.stream.Append(preRecorded)
		t.beatDuration = clk.SamplesToCeilBeats(t.stream.DiscreteDuration())
	}

	logger.Info("track created", "state", t.state.String(), "pan", initialPan)
	return t
}

func (t *Track) Id() Id { return t.id }

func (t *Track) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// BeatDuration is the whole-beat length of the loop. Grows during Recording;
// fixed from FinishRecording on.
func (t *Track) BeatDuration() nstime.Duration[nstime.Beat] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.beatDuration
}

// ExactDuration is the fractional sample-count length of the loop.
func (t *Track) ExactDuration() nstime.ContinuousDuration[nstime.AudioSample] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.clock.BeatsToSamples(t.beatDuration)
}

// BeatPositionUnityNow is the fractional beat position currently playing,
// always strictly less than BeatDuration. Meaningful only while Looping.
func (t *Track) BeatPositionUnityNow() nstime.ContinuousDuration[nstime.Beat] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.state != Looping || t.beatDuration.Value() == 0 {
		return nstime.NewContinuousDuration[nstime.Beat](0)
	}

	relativeNow := nstime.NewTime[nstime.AudioSample](t.clock.Now().MinusTime(t.startTime).Value())
	elapsedBeats := t.clock.TimeToBeats(relativeNow).Value()
	loopLen := float32(t.beatDuration.Value())
	return nstime.NewContinuousDuration[nstime.Beat](float32(math.Mod(float64(elapsedBeats), float64(loopLen))))
}

func (t *Track) StartTime() nstime.Time[nstime.AudioSample] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.startTime
}

func (t *Track) IsMuted() bool     { return t.isMuted.Load() }
func (t *Track) SetIsMuted(m bool) { t.isMuted.Store(m) }

func (t *Track) Pan() float32 { return t.pan.Load().(float32) }

func (t *Track) SetPan(pan float32) {
	nscontract.Check(pan >= 0 && pan <= 1, "pan must be in [0,1], got %v", pan)
	t.pan.Store(pan)
}

// FinishRecording moves the track from Recording to FinishRecording, keeping
// its current BeatDuration as the loop length. The actual transition to
// Looping (and the Shut call) happens on the Record call whose quantum
// completes that many beats; any samples past that point are not kept.
func (t *Track) FinishRecording() {
	t.mu.Lock()
	defer t.mu.Unlock()
	nscontract.Check(t.state == Recording, "FinishRecording requires state Recording, got %s", t.state)
	t.state = FinishRecording
	t.logger.Info("finish recording requested")
}

// Record implements recorder.Recorder: it is called once per incoming audio
// quantum while this track wants more input. It returns false once the
// track has completed its FinishRecording beat and shut its stream, after
// which the graph stops calling it and the track is actually Looping.
func (t *Track) Record(now nstime.Time[nstime.AudioSample], duration nstime.Duration[nstime.AudioSample], samples []float32) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case Recording:
		t.stream.AppendSamples(duration, samples)
		t.lastSampleTime = now.Plus(duration)
		t.beatDuration = t.clock.SamplesToCeilBeats(t.stream.DiscreteDuration())
		return true

	case FinishRecording:
		// beatDuration stays as it was when FinishRecording was called; take
		// only as much of this quantum as completes that many beats.
		exact := t.clock.BeatsToSamples(t.beatDuration)
		target := nstime.NewDuration[nstime.AudioSample](int64(math.Ceil(float64(exact.Value()))))
		take := nstime.MinDuration(duration, target.Minus(t.stream.DiscreteDuration()))
		if take.Value() > 0 {
			t.stream.AppendSamples(take, samples)
			t.lastSampleTime = now.Plus(take)
		}
		if t.stream.DiscreteDuration().Less(target) {
			return true
		}
		t.stream.Shut(exact)
		t.state = Looping
		t.logger.Info("track finished recording", "beat_duration", t.beatDuration.Value())
		return false

	default:
		nscontract.Fail("Record called on track %d in state %s", t.id, t.state)
		return false
	}
}

// GetNextSliceAt returns the mono slice of audio this track wants to emit
// over sourceInterval, already looping if the stream is shut.
func (t *Track) GetNextSliceAt(sourceInterval nstime.Interval[nstime.AudioSample]) slice.Slice[nstime.AudioSample, float32] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stream.GetNextSliceAt(sourceInterval)
}

// MixInto reads this track's next span of mono audio and adds it, panned
// and gain-scaled, into a stereo destination buffer (interleaved L,R,L,R...).
// Muted tracks contribute silence but still advance playback position.
func (t *Track) MixInto(sourceInterval nstime.Interval[nstime.AudioSample], dest []float32) {
	if t.State() != Looping {
		return
	}

	monoBuf := make([]float32, sourceInterval.IntervalDuration().Value())
	remaining := sourceInterval
	offset := 0
	for !remaining.IsEmpty() {
		s := t.GetNextSliceAt(remaining)
		if s.IsEmpty() {
			break
		}
		n := int(s.Duration().Value())
		for i := 0; i < n; i++ {
			monoBuf[offset+i] = s.Get(nstime.NewDuration[nstime.AudioSample](int64(i)), 0)
		}
		offset += n
		remaining = remaining.SubintervalStartingAt(s.Duration())
	}

	if t.IsMuted() {
		return
	}

	leftGain, rightGain := linearPan(t.Pan())
	for i, sample := range monoBuf {
		dest[2*i] += sample * leftGain
		dest[2*i+1] += sample * rightGain
	}
}

// linearPan converts a [0,1] pan value (0=left, 1=right) into left/right
// gains using the linear law: left = 1-pan, right = pan.
func linearPan(pan float32) (left, right float32) {
	return 1 - pan, pan
}

// Info snapshots this track's time/duration state for a single ABI call.
func (t *Track) Info() Info {
	t.mu.RLock()
	defer t.mu.RUnlock()

	exact := t.clock.BeatsToSamples(t.beatDuration)
	return Info{
		State:                     t.state,
		DurationInSamples:         int64(math.Ceil(float64(exact.Value()))),
		DurationInBeats:           t.beatDuration.Value(),
		ExactDuration:             exact.Value(),
		CurrentTrackTimeInSamples: t.lastSampleTime.Value(),
		CurrentTrackBeat:          t.BeatPositionUnityNow().Value(),
	}
}

// Delete tears down the track's backing buffers. After Delete, any other
// call on this Track is a contract violation.
func (t *Track) Delete() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stream.Dispose()
	t.state = Deleted
	t.logger.Info("track deleted")
}
