// Package abi exposes the engine as a flat, integer-id-keyed surface: no Go
// types cross this boundary except numbers and strings, the same
// discipline the original P/Invoke surface used so that any foreign caller
// (a C ABI, an HTTP handler, a REPL) can drive the engine without sharing
// Go's type system.
package abi

import (
	"sync"

	"github.com/nowsound-go/nowsound/internal/graph"
	"github.com/nowsound-go/nowsound/internal/hostaudio"
	"github.com/nowsound-go/nowsound/internal/track"
)

// Surface is the engine instance a process's ABI calls are routed through.
// New does not enforce a single Surface per process; each wraps its own
// graph.
type Surface struct {
	mu     sync.Mutex
	g      *graph.Graph
	device *hostaudio.Device
}

// New wraps a Graph (and, once opened, its hostaudio.Device) as a flat
// surface.
func New(g *graph.Graph) *Surface {
	return &Surface{g: g}
}

// GraphState values mirror graph.State numerically so a foreign caller
// never needs to link against the Go package to interpret them.
type GraphState int32

const (
	GraphUninitialized GraphState = iota
	GraphInitialized
	GraphCreated
	GraphRunning
	GraphInError
)

func (s *Surface) GraphGetState() GraphState {
	return GraphState(s.g.State())
}

func (s *Surface) GraphInitialize() int32 {
	if err := s.g.Initialize(); err != nil {
		return -1
	}
	return 0
}

// GraphCreateAudioGraph opens the named input and output host audio devices
// and advances the graph to Created.
func (s *Surface) GraphCreateAudioGraph(inputDeviceName, outputDeviceName string) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	device, err := hostaudio.Open(s.g, inputDeviceName, outputDeviceName)
	if err != nil {
		return -1
	}
	if err := s.g.CreateAudioGraph(); err != nil {
		device.Close()
		return -1
	}
	s.device = device
	return 0
}

func (s *Surface) GraphStartAudioGraph() int32 {
	s.mu.Lock()
	device := s.device
	s.mu.Unlock()

	if device == nil {
		return -1
	}
	if err := s.g.StartAudioGraph(); err != nil {
		return -1
	}
	if err := device.Start(); err != nil {
		return -1
	}
	return 0
}

// GraphTimeInfo returns (timeInSamples, exactBeat, beatsPerMinute, beatInMeasure).
func (s *Surface) GraphTimeInfo() (int64, float32, int32, int32) {
	info := s.g.Clock().TimeInfo()
	return info.TimeInSamples, info.ExactBeat, info.BeatsPerMinute, info.BeatInMeasure
}

// TrackId is the flat numeric handle for a track, matching the original's
// int32 TrackId.
type TrackId = int32

// TrackCreateRecordingTrack starts a new track recording from inputId, at
// the given initial pan (0=left, 1=right), and returns its id, or -1 on
// failure.
func (s *Surface) TrackCreateRecordingTrack(inputId int32, initialPan float32) TrackId {
	id, err := s.g.CreateRecordingTrack(int(inputId), initialPan)
	if err != nil {
		return -1
	}
	return int32(id)
}

func (s *Surface) TrackFinishRecording(id TrackId) int32 {
	t, ok := s.g.Track(track.Id(id))
	if !ok {
		return -1
	}
	t.FinishRecording()
	return 0
}

// TrackState values mirror track.State numerically.
type TrackState int32

const (
	TrackUninitialized TrackState = iota
	TrackRecording
	TrackFinishRecording
	TrackLooping
	TrackDeleted
)

func (s *Surface) TrackGetState(id TrackId) TrackState {
	t, ok := s.g.Track(track.Id(id))
	if !ok {
		return TrackUninitialized
	}
	return TrackState(t.State())
}

// TrackGetInfo returns (durationInSamples, durationInBeats, exactDuration,
// currentTrackTimeInSamples, currentTrackBeat).
func (s *Surface) TrackGetInfo(id TrackId) (int64, int64, float32, int64, float32) {
	t, ok := s.g.Track(track.Id(id))
	if !ok {
		return 0, 0, 0, 0, 0
	}
	info := t.Info()
	return info.DurationInSamples, info.DurationInBeats, info.ExactDuration, info.CurrentTrackTimeInSamples, info.CurrentTrackBeat
}

func (s *Surface) TrackIsMuted(id TrackId) bool {
	t, ok := s.g.Track(track.Id(id))
	return ok && t.IsMuted()
}

func (s *Surface) TrackSetIsMuted(id TrackId, muted bool) int32 {
	t, ok := s.g.Track(track.Id(id))
	if !ok {
		return -1
	}
	t.SetIsMuted(muted)
	return 0
}

func (s *Surface) TrackGetPan(id TrackId) float32 {
	t, ok := s.g.Track(track.Id(id))
	if !ok {
		return 0
	}
	return t.Pan()
}

func (s *Surface) TrackSetPan(id TrackId, pan float32) int32 {
	t, ok := s.g.Track(track.Id(id))
	if !ok {
		return -1
	}
	t.SetPan(pan)
	return 0
}

func (s *Surface) TrackDelete(id TrackId) int32 {
	if _, ok := s.g.Track(track.Id(id)); !ok {
		return -1
	}
	s.g.DeleteTrack(track.Id(id))
	return 0
}
