// Package clock converts between audio-sample time and musical-beat time at
// a given sample rate and tempo. Every track and the graph itself read the
// same Clock so that "now" means one thing across the whole engine.
package clock

import (
	"math"
	"sync"

	"github.com/nowsound-go/nowsound/internal/nscontract"
	"github.com/nowsound-go/nowsound/internal/nstime"
)

// TimeInfo bundles the clock's current reading, suitable for returning in
// one shot from an ABI call.
type TimeInfo struct {
	TimeInSamples   int64
	ExactBeat       float32
	BeatsPerMinute  int32
	BeatInMeasure   int32
}

// Clock tracks elapsed sample count and converts it to/from beats at a
// given tempo. Safe for concurrent use: AdvanceFromAudioGraph is called from
// the audio callback while readers call TimeToBeats etc. from other
// goroutines (the HTTP control surface, say).
type Clock struct {
	mu sync.RWMutex

	sampleRateHz    int
	channelCount    int
	beatsPerMinute  int32
	beatsPerMeasure int32

	now nstime.Time[nstime.AudioSample]
}

// New constructs a Clock at time zero.
func New(sampleRateHz, channelCount int, beatsPerMinute, beatsPerMeasure int32) *Clock {
	nscontract.Check(sampleRateHz > 0, "sampleRateHz must be positive, got %d", sampleRateHz)
	nscontract.Check(channelCount > 0, "channelCount must be positive, got %d", channelCount)
	nscontract.Check(beatsPerMinute > 0, "beatsPerMinute must be positive, got %d", beatsPerMinute)
	nscontract.Check(beatsPerMeasure > 0, "beatsPerMeasure must be positive, got %d", beatsPerMeasure)

	return &Clock{
		sampleRateHz:    sampleRateHz,
		channelCount:    channelCount,
		beatsPerMinute:  beatsPerMinute,
		beatsPerMeasure: beatsPerMeasure,
	}
}

func (c *Clock) SampleRateHz() int { return c.sampleRateHz }
func (c *Clock) ChannelCount() int { return c.channelCount }

func (c *Clock) BeatsPerMinute() int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.beatsPerMinute
}

// SetBeatsPerMinute changes tempo going forward; it does not rewrite
// already-recorded beat durations, so changing tempo mid-loop will make a
// previously recorded loop cover a different number of seconds than it did
// when recorded.
func (c *Clock) SetBeatsPerMinute(bpm int32) {
	nscontract.Check(bpm > 0, "beatsPerMinute must be positive, got %d", bpm)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.beatsPerMinute = bpm
}

func (c *Clock) BeatsPerMeasure() int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.beatsPerMeasure
}

// Now returns the current absolute sample time.
func (c *Clock) Now() nstime.Time[nstime.AudioSample] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// AdvanceFromAudioGraph moves the clock forward by one quantum's worth of
// samples. Called only from the audio callback path.
func (c *Clock) AdvanceFromAudioGraph(quantumDuration nstime.Duration[nstime.AudioSample]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Plus(quantumDuration)
}

// beatsPerSample is the reciprocal of SamplesPerBeat, handy when scaling a
// sample duration down to a beat duration.
func (c *Clock) beatsPerSample() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return float64(c.beatsPerMinute) / 60.0 / float64(c.sampleRateHz)
}

// SamplesPerBeat returns how many audio samples make up one beat at the
// clock's current tempo. Fractional: 44100Hz at 120bpm is 22050 samples/beat
// exactly, but 48000Hz at 122bpm is not a whole number, which is exactly why
// intervalmapper.ExactLooping exists.
func (c *Clock) SamplesPerBeat() float64 {
	return 1.0 / c.beatsPerSample()
}

// TimeToBeats converts an absolute sample time to its exact (fractional)
// beat position since time zero.
func (c *Clock) TimeToBeats(t nstime.Time[nstime.AudioSample]) nstime.ContinuousDuration[nstime.Beat] {
	return nstime.NewContinuousDuration[nstime.Beat](float32(float64(t.Value()) * c.beatsPerSample()))
}

// TimeToCompleteBeats truncates TimeToBeats to the whole beats elapsed.
func (c *Clock) TimeToCompleteBeats(t nstime.Time[nstime.AudioSample]) nstime.Duration[nstime.Beat] {
	return nstime.NewDuration[nstime.Beat](int64(c.TimeToBeats(t).Value()))
}

// SamplesToCeilBeats converts a sample-count duration to the smallest whole
// number of beats that covers it, rounding up. A recording's BeatDuration
// grows this way as samples arrive, so it is always at least as long as the
// audio actually captured, matching BufferedSliceStream.Shut's contract that
// ceil(finalDuration) equal the stream's discrete duration.
func (c *Clock) SamplesToCeilBeats(d nstime.Duration[nstime.AudioSample]) nstime.Duration[nstime.Beat] {
	return nstime.NewDuration[nstime.Beat](int64(math.Ceil(float64(d.Value()) * c.beatsPerSample())))
}

// BeatsToSamples converts a whole-beat duration to its exact sample-count
// equivalent at the clock's current tempo.
func (c *Clock) BeatsToSamples(d nstime.Duration[nstime.Beat]) nstime.ContinuousDuration[nstime.AudioSample] {
	return nstime.NewContinuousDuration[nstime.AudioSample](float32(float64(d.Value()) * c.SamplesPerBeat()))
}

// TimeInfo snapshots the clock's current reading in one lock acquisition.
func (c *Clock) TimeInfo() TimeInfo {
	c.mu.RLock()
	now := c.now
	bpm := c.beatsPerMinute
	bpMeasure := c.beatsPerMeasure
	c.mu.RUnlock()

	exactBeat := float32(float64(now.Value()) * (float64(bpm) / 60.0 / float64(c.sampleRateHz)))
	beatInMeasure := int32(exactBeat) % bpMeasure

	return TimeInfo{
		TimeInSamples:  now.Value(),
		ExactBeat:      exactBeat,
		BeatsPerMinute: bpm,
		BeatInMeasure:  beatInMeasure,
	}
}
