package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		SampleRateHz:        8,
		ChannelCount:        2,
		BeatsPerMinute:      120,
		BeatsPerMeasure:     4,
		LatencyInSamples:    4,
		SamplesPerQuantum:   4,
		PreRecordingSeconds: 1,
		InitialBufferCount:  2,
	}
}

func TestLifecycleRequiresInOrderTransitions(t *testing.T) {
	g := New(testConfig())
	assert.Equal(t, Uninitialized, g.State())

	require.Error(t, func() error { return g.StartAudioGraph() }())
	assert.Equal(t, InError, g.State())
}

func TestLifecycleHappyPath(t *testing.T) {
	g := New(testConfig())
	require.NoError(t, g.Initialize())
	require.NoError(t, g.CreateAudioGraph())
	require.NoError(t, g.StartAudioGraph())
	assert.Equal(t, Running, g.State())
}

func TestOnAudioFrameClampsOversizedFirstCallback(t *testing.T) {
	g := New(testConfig())
	require.NoError(t, g.Initialize())
	require.NoError(t, g.CreateAudioGraph())
	require.NoError(t, g.StartAudioGraph())

	// first callback delivers way more than one quantum's worth; only the
	// tail (latencyInSamples=4) should be retained.
	oversized := make([]float32, 100)
	for i := range oversized {
		oversized[i] = float32(i)
	}
	g.OnAudioFrame(oversized)

	assert.Equal(t, int64(4), g.Clock().Now().Value())
}

func TestOnAudioFrameCountsZeroByteFrames(t *testing.T) {
	g := New(testConfig())
	require.NoError(t, g.Initialize())
	require.NoError(t, g.CreateAudioGraph())
	require.NoError(t, g.StartAudioGraph())

	assert.Equal(t, int64(0), g.Metrics().ZeroByteFrameCount)

	g.OnAudioFrame([]float32{1, 2, 3, 4})
	assert.Equal(t, int64(0), g.Metrics().ZeroByteFrameCount)

	g.OnAudioFrame(nil)
	g.OnAudioFrame([]float32{})
	assert.Equal(t, int64(2), g.Metrics().ZeroByteFrameCount)
}

func TestCreateRecordingTrackRequiresRunning(t *testing.T) {
	g := New(testConfig())
	_, err := g.CreateRecordingTrack(0, 0.5)
	assert.Error(t, err)
}

func TestCreateRecordingTrackRegistersAsRecorder(t *testing.T) {
	g := New(testConfig())
	require.NoError(t, g.Initialize())
	require.NoError(t, g.CreateAudioGraph())
	require.NoError(t, g.StartAudioGraph())

	id, err := g.CreateRecordingTrack(0, 0.5)
	require.NoError(t, err)

	tr, ok := g.Track(id)
	require.True(t, ok)
	assert.Equal(t, id, tr.Id())

	g.OnAudioFrame([]float32{1, 2, 3, 4})
	assert.Equal(t, int64(1), tr.BeatDuration().Value())
}

func TestDeleteTrackRemovesFromActiveSet(t *testing.T) {
	g := New(testConfig())
	require.NoError(t, g.Initialize())
	require.NoError(t, g.CreateAudioGraph())
	require.NoError(t, g.StartAudioGraph())

	id, err := g.CreateRecordingTrack(0, 0.5)
	require.NoError(t, err)

	g.DeleteTrack(id)
	_, ok := g.Track(id)
	assert.False(t, ok)
}
