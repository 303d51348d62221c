package clock

import (
	"testing"

	"github.com/nowsound-go/nowsound/internal/nstime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvanceFromAudioGraphAccumulates(t *testing.T) {
	c := New(48000, 2, 120, 4)
	c.AdvanceFromAudioGraph(nstime.NewDuration[nstime.AudioSample](1000))
	c.AdvanceFromAudioGraph(nstime.NewDuration[nstime.AudioSample](500))
	assert.Equal(t, int64(1500), c.Now().Value())
}

func TestTimeToBeatsAtExactlyDivisibleTempo(t *testing.T) {
	// 120bpm at 48000Hz = 24000 samples/beat exactly
	c := New(48000, 2, 120, 4)
	beats := c.TimeToBeats(nstime.NewTime[nstime.AudioSample](24000))
	assert.InDelta(t, 1.0, beats.Value(), 0.0001)

	complete := c.TimeToCompleteBeats(nstime.NewTime[nstime.AudioSample](24000 + 12000))
	assert.Equal(t, int64(1), complete.Value())
}

func TestBeatsToSamplesRoundTrips(t *testing.T) {
	c := New(48000, 2, 120, 4)
	samples := c.BeatsToSamples(nstime.NewDuration[nstime.Beat](2))
	assert.InDelta(t, 48000.0, float64(samples.Value()), 0.001)
}

func TestTimeInfoReportsBeatInMeasure(t *testing.T) {
	c := New(48000, 2, 120, 4)
	// 5 beats elapsed -> beat-in-measure should be 1 (5 % 4)
	c.AdvanceFromAudioGraph(nstime.NewDuration[nstime.AudioSample](24000 * 5))
	info := c.TimeInfo()
	assert.Equal(t, int32(1), info.BeatInMeasure)
	assert.InDelta(t, 5.0, info.ExactBeat, 0.01)
}

func TestSetBeatsPerMinuteRejectsNonPositive(t *testing.T) {
	c := New(48000, 2, 120, 4)
	require.Panics(t, func() { c.SetBeatsPerMinute(0) })
}

func TestNewRejectsInvalidParameters(t *testing.T) {
	assert.Panics(t, func() { New(0, 2, 120, 4) })
	assert.Panics(t, func() { New(48000, 0, 120, 4) })
	assert.Panics(t, func() { New(48000, 2, 0, 4) })
	assert.Panics(t, func() { New(48000, 2, 120, 0) })
}
