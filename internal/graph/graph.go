// Package graph coordinates the whole audio engine: it owns the clock, the
// buffer allocator, the set of live tracks, and the capture/render pumps
// that move audio between the host device and each track's stream. It is
// the one place that knows about every track at once.
package graph

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/nowsound-go/nowsound/internal/bufalloc"
	"github.com/nowsound-go/nowsound/internal/clock"
	"github.com/nowsound-go/nowsound/internal/logging"
	"github.com/nowsound-go/nowsound/internal/metrics"
	"github.com/nowsound-go/nowsound/internal/nscontract"
	"github.com/nowsound-go/nowsound/internal/nserrors"
	"github.com/nowsound-go/nowsound/internal/nstime"
	"github.com/nowsound-go/nowsound/internal/recorder"
	"github.com/nowsound-go/nowsound/internal/slice"
	"github.com/nowsound-go/nowsound/internal/slicestream"
	"github.com/nowsound-go/nowsound/internal/track"
)

// State mirrors the lifecycle an external caller (ABI or HTTP) drives the
// graph through: Initialize, then Create, then Start. Each only succeeds
// from the state immediately prior.
type State int

const (
	Uninitialized State = iota
	Initialized
	Created
	Running
	InError
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Created:
		return "created"
	case Running:
		return "running"
	case InError:
		return "in-error"
	default:
		return "unknown"
	}
}

// Info bundles the graph's current device/timing reading for a single ABI
// or HTTP call.
type Info struct {
	State              State
	LatencyInSamples   int32
	SamplesPerQuantum  int32
	Clock              clock.TimeInfo
}

// Graph is the top-level coordinator. changingState serializes the
// lifecycle transitions (Initialize/Create/Start); recorderMu separately
// guards the live recorder set, since that set is read on every audio
// quantum while lifecycle transitions happen rarely.
type Graph struct {
	changingState sync.Mutex
	state         State
	lastError     error

	recorderMu sync.Mutex
	recorders  []recorder.Recorder

	trackMu sync.Mutex
	tracks  map[track.Id]*track.Track
	nextTrackId track.Id

	clock             *clock.Clock
	allocator         *bufalloc.Allocator[float32]
	preRecording      *slicestream.BufferedSliceStream[nstime.AudioSample, float32]
	latencyInSamples  int32
	samplesPerQuantum int32

	onError func(error)

	logger *slog.Logger

	zeroByteFrameCount atomic.Int64
}

// Metrics reports counters accumulated across the graph's lifetime that
// aren't better expressed as a Prometheus gauge/histogram (see
// internal/metrics for those) - currently just the zero-byte-incoming-frame
// count, mirroring the original NowSoundGraph's s_zeroByteOutgoingFrameCount.
type Metrics struct {
	// ZeroByteFrameCount counts OnAudioFrame calls delivered with no
	// samples at all - a signal that the host backend's capture device is
	// misbehaving, not a normal empty quantum.
	ZeroByteFrameCount int64
}

// Metrics returns a snapshot of the graph's lifetime counters.
func (g *Graph) Metrics() Metrics {
	return Metrics{ZeroByteFrameCount: g.zeroByteFrameCount.Load()}
}

// Config carries the fixed parameters a Graph is constructed with.
type Config struct {
	SampleRateHz        int
	ChannelCount        int
	BeatsPerMinute      int32
	BeatsPerMeasure     int32
	LatencyInSamples    int32
	SamplesPerQuantum   int32
	PreRecordingSeconds float64
	InitialBufferCount  int
}

// New constructs a Graph in the Uninitialized state. Initialize must be
// called before anything else.
func New(cfg Config) *Graph {
	nscontract.Check(cfg.SampleRateHz > 0, "SampleRateHz must be positive")
	nscontract.Check(cfg.SamplesPerQuantum > 0, "SamplesPerQuantum must be positive")

	clk := clock.New(cfg.SampleRateHz, cfg.ChannelCount, cfg.BeatsPerMinute, cfg.BeatsPerMeasure)
	allocator := bufalloc.NewAllocator[float32](cfg.SampleRateHz, cfg.InitialBufferCount)

	preRecordingDuration := nstime.NewDuration[nstime.AudioSample](int64(cfg.PreRecordingSeconds * float64(cfg.SampleRateHz)))
	preRecording := slicestream.New[nstime.AudioSample](clk.Now(), allocator, 1, preRecordingDuration, false)

	return &Graph{
		state:             Uninitialized,
		clock:             clk,
		allocator:         allocator,
		preRecording:      preRecording,
		tracks:            make(map[track.Id]*track.Track),
		latencyInSamples:  cfg.LatencyInSamples,
		samplesPerQuantum: cfg.SamplesPerQuantum,
		logger:            logging.ForService("graph"),
	}
}

// SetErrorHandler registers a callback invoked whenever the graph
// transitions to InError. Only one handler is kept; a later call
// replaces an earlier one. The handler runs synchronously on whichever
// goroutine triggered the failure, so it must not block.
func (g *Graph) SetErrorHandler(handler func(error)) {
	g.changingState.Lock()
	defer g.changingState.Unlock()
	g.onError = handler
}

func (g *Graph) State() State {
	g.changingState.Lock()
	defer g.changingState.Unlock()
	return g.state
}

// Initialize transitions Uninitialized -> Initialized, after which devices
// can be enumerated.
func (g *Graph) Initialize() error {
	requestId := uuid.NewString()
	g.changingState.Lock()
	defer g.changingState.Unlock()
	if g.state != Uninitialized {
		return g.fail(nserrors.CategoryState, "Initialize requires state Uninitialized, got %s", g.state)
	}
	g.state = Initialized
	g.logger.Info("graph initialized", "request_id", requestId)
	metrics.Global().SetGraphState(int(Initialized))
	return nil
}

// CreateAudioGraph transitions Initialized -> Created, after which Start
// can be called. The actual device/stream wiring is done by the caller
// (internal/hostaudio), which this method does not know about; it only
// advances the state machine.
func (g *Graph) CreateAudioGraph() error {
	requestId := uuid.NewString()
	g.changingState.Lock()
	defer g.changingState.Unlock()
	if g.state != Initialized {
		return g.fail(nserrors.CategoryState, "CreateAudioGraph requires state Initialized, got %s", g.state)
	}
	g.state = Created
	g.logger.Info("audio graph created", "request_id", requestId)
	metrics.Global().SetGraphState(int(Created))
	return nil
}

// StartAudioGraph transitions Created -> Running.
func (g *Graph) StartAudioGraph() error {
	requestId := uuid.NewString()
	g.changingState.Lock()
	defer g.changingState.Unlock()
	if g.state != Created {
		return g.fail(nserrors.CategoryState, "StartAudioGraph requires state Created, got %s", g.state)
	}
	g.state = Running
	g.logger.Info("audio graph running", "request_id", requestId)
	metrics.Global().SetGraphState(int(Running))
	return nil
}

// fail transitions the graph to InError, records the error, reports it to
// telemetry, and returns it. Must be called with changingState held.
func (g *Graph) fail(category nserrors.ErrorCategory, format string, args ...any) error {
	err := nserrors.Newf(format, args...).
		Component("graph").
		Category(category).
		Priority(nserrors.PriorityHigh).
		Build()
	g.state = InError
	g.lastError = err
	g.logger.Error("graph entered error state", "error", err.Error())
	metrics.Global().SetGraphState(int(InError))
	nserrors.ReportToSentry(err)
	if g.onError != nil {
		g.onError(err)
	}
	return err
}

// LastError returns the error that most recently put the graph InError, if
// any.
func (g *Graph) LastError() error {
	g.changingState.Lock()
	defer g.changingState.Unlock()
	return g.lastError
}

func (g *Graph) Info() Info {
	return Info{
		State:             g.State(),
		LatencyInSamples:  g.latencyInSamples,
		SamplesPerQuantum: g.samplesPerQuantum,
		Clock:             g.clock.TimeInfo(),
	}
}

func (g *Graph) Clock() *clock.Clock { return g.clock }

// CreateRecordingTrack allocates a new Track seeded with the current
// pre-recording buffer and registers it as an active recorder. Requires the
// graph to be Running.
func (g *Graph) CreateRecordingTrack(inputId int, initialPan float32) (track.Id, error) {
	if g.State() != Running {
		return 0, nserrors.Newf("CreateRecordingTrack requires graph running, got %s", g.State()).
			Component("graph").
			Category(nserrors.CategoryState).
			Build()
	}

	g.trackMu.Lock()
	id := g.nextTrackId
	g.nextTrackId++
	g.trackMu.Unlock()

	preRecorded := g.snapshotPreRecording()
	newTrack := track.New(id, inputId, g.clock, g.allocator, g.clock.Now(), preRecorded, initialPan)

	g.trackMu.Lock()
	g.tracks[id] = newTrack
	g.trackMu.Unlock()

	g.addRecorder(newTrack)
	g.reportAllocatorAndTrackMetrics()

	g.logger.Info("recording track created", "track_id", id, "input_id", inputId)
	return id, nil
}

// reportAllocatorAndTrackMetrics publishes the allocator's current
// reserved/free slot counts and the active track count. Called from the
// control paths (track create/delete), never from the audio thread.
func (g *Graph) reportAllocatorAndTrackMetrics() {
	metrics.Global().SetAllocatorSlots("mono", g.allocator.TotalReservedSlots(), g.allocator.TotalFreeSlots())

	g.trackMu.Lock()
	active := len(g.tracks)
	g.trackMu.Unlock()
	metrics.Global().SetTracksActive(active)
}

// snapshotPreRecording copies out whatever the rolling pre-recording buffer
// currently holds, so a new track starts with the audio already heard just
// before the user pressed record.
func (g *Graph) snapshotPreRecording() slice.Slice[nstime.AudioSample, float32] {
	interval := g.preRecording.DiscreteInterval()
	if interval.IsEmpty() {
		return slice.Slice[nstime.AudioSample, float32]{}
	}
	buf := make([]float32, interval.IntervalDuration().Value())
	g.preRecording.CopyToSamples(interval, buf)
	return slice.Whole[nstime.AudioSample](bufalloc.Buf[float32]{Id: 0, Data: buf}, 1)
}

func (g *Graph) Track(id track.Id) (*track.Track, bool) {
	g.trackMu.Lock()
	defer g.trackMu.Unlock()
	t, ok := g.tracks[id]
	return t, ok
}

// DeleteTrack tears down a track and removes it from the active set.
func (g *Graph) DeleteTrack(id track.Id) {
	g.trackMu.Lock()
	t, ok := g.tracks[id]
	if ok {
		delete(g.tracks, id)
	}
	g.trackMu.Unlock()

	if ok {
		t.Delete()
		g.reportAllocatorAndTrackMetrics()
		g.logger.Info("track deleted", "track_id", id)
	}
}

func (g *Graph) addRecorder(r recorder.Recorder) {
	g.recorderMu.Lock()
	defer g.recorderMu.Unlock()
	g.recorders = append(g.recorders, r)
}

// OnAudioFrame is the capture-path entry point, called once per quantum
// delivered by the host audio backend with raw mono input samples.
//
// When Now() is still zero - i.e. this is the very first quantum the graph
// has ever seen - some backends hand back a large backlog as their first
// callback instead of one quantum's worth. Only the most recent
// latencyInSamples of that backlog is meaningful; the rest is discarded by
// taking the tail of the buffer, not by (incorrectly) including it all as
// if it arrived on schedule.
func (g *Graph) OnAudioFrame(samples []float32) {
	if len(samples) == 0 {
		g.zeroByteFrameCount.Add(1)
	}

	now := g.clock.Now()

	if now.Value() == 0 && int32(len(samples)) > g.latencyInSamples {
		samples = samples[int32(len(samples))-g.latencyInSamples:]
	}

	duration := nstime.NewDuration[nstime.AudioSample](int64(len(samples)))

	g.preRecording.AppendSamples(duration, samples)

	g.recorderMu.Lock()
	live := g.recorders[:0:0]
	for _, r := range g.recorders {
		if r.Record(now, duration, samples) {
			live = append(live, r)
		}
	}
	g.recorders = live
	g.recorderMu.Unlock()

	g.clock.AdvanceFromAudioGraph(duration)
}

// Mixdown renders one quantum of stereo output by summing every Looping
// track's contribution over the given interval. dest must be sized for
// interval.IntervalDuration() stereo frames (2 floats each).
func (g *Graph) Mixdown(interval nstime.Interval[nstime.AudioSample], dest []float32) {
	g.trackMu.Lock()
	tracks := make([]*track.Track, 0, len(g.tracks))
	for _, t := range g.tracks {
		tracks = append(tracks, t)
	}
	g.trackMu.Unlock()

	for i := range dest {
		dest[i] = 0
	}
	for _, t := range tracks {
		t.MixInto(interval, dest)
	}
}
