package track

import (
	"testing"

	"github.com/nowsound-go/nowsound/internal/bufalloc"
	"github.com/nowsound-go/nowsound/internal/clock"
	"github.com/nowsound-go/nowsound/internal/nstime"
	"github.com/nowsound-go/nowsound/internal/slice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// onePreRecordedBeat builds a one-beat (4 sample, at this test's tempo)
// pre-recorded prefix slice backed by a fresh allocator buffer.
func onePreRecordedBeat(allocator *bufalloc.Allocator[float32]) slice.Slice[nstime.AudioSample, float32] {
	buf := allocator.Allocate()
	return slice.New[nstime.AudioSample](buf, nstime.NewDuration[nstime.AudioSample](0), nstime.NewDuration[nstime.AudioSample](4), 1)
}

func newTestTrack(t *testing.T) (*Track, *clock.Clock) {
	t.Helper()
	clk := clock.New(8, 2, 120, 4) // tiny sample rate: 4 samples/beat at 120bpm
	allocator := bufalloc.NewAllocator[float32](16, 2)
	empty := slice.Slice[nstime.AudioSample, float32]{}
	tr := New(0, 0, clk, allocator, clk.Now(), empty, 0.5)
	return tr, clk
}

func TestNewTrackStartsRecording(t *testing.T) {
	tr, _ := newTestTrack(t)
	assert.Equal(t, Recording, tr.State())
}

func TestRecordGrowsBeatDurationWhileRecording(t *testing.T) {
	tr, clk := newTestTrack(t)

	samples := make([]float32, 4) // 4 samples = 1 beat at this tempo
	stillRecording := tr.Record(clk.Now(), nstime.NewDuration[nstime.AudioSample](4), samples)
	clk.AdvanceFromAudioGraph(nstime.NewDuration[nstime.AudioSample](4))

	assert.True(t, stillRecording)
	assert.Equal(t, int64(1), tr.BeatDuration().Value())
}

func TestFinishRecordingRequiresRecordingState(t *testing.T) {
	tr, _ := newTestTrack(t)
	tr.FinishRecording()
	assert.Panics(t, func() { tr.FinishRecording() })
}

func TestRecordTransitionsToLoopingAtNextBeatBoundary(t *testing.T) {
	tr, clk := newTestTrack(t)

	// record one full beat (4 samples)
	tr.Record(clk.Now(), nstime.NewDuration[nstime.AudioSample](4), make([]float32, 4))
	clk.AdvanceFromAudioGraph(nstime.NewDuration[nstime.AudioSample](4))

	tr.FinishRecording()
	require.Equal(t, FinishRecording, tr.State())

	// the recorded beat is already complete, so the next quantum fixes the
	// loop at that one beat
	stillRecording := tr.Record(clk.Now(), nstime.NewDuration[nstime.AudioSample](4), make([]float32, 4))
	clk.AdvanceFromAudioGraph(nstime.NewDuration[nstime.AudioSample](4))

	assert.False(t, stillRecording)
	assert.Equal(t, Looping, tr.State())
	assert.Equal(t, int64(1), tr.BeatDuration().Value())
}

func TestPreRecordedPrefixGrowsBeatDurationAndShutsCleanly(t *testing.T) {
	clk := clock.New(8, 2, 120, 4) // 4 samples/beat
	allocator := bufalloc.NewAllocator[float32](16, 2)
	preRecorded := onePreRecordedBeat(allocator)

	tr := New(0, 0, clk, allocator, clk.Now(), preRecorded, 0.5)
	// the pre-recorded beat must already count toward BeatDuration, not just
	// the audio recorded after the user pressed record.
	require.Equal(t, int64(1), tr.BeatDuration().Value())

	tr.Record(clk.Now(), nstime.NewDuration[nstime.AudioSample](4), make([]float32, 4))
	clk.AdvanceFromAudioGraph(nstime.NewDuration[nstime.AudioSample](4))
	assert.Equal(t, int64(2), tr.BeatDuration().Value())

	tr.FinishRecording()
	var stillRecording bool
	require.NotPanics(t, func() {
		stillRecording = tr.Record(clk.Now(), nstime.NewDuration[nstime.AudioSample](4), make([]float32, 4))
	})
	clk.AdvanceFromAudioGraph(nstime.NewDuration[nstime.AudioSample](4))

	assert.False(t, stillRecording)
	assert.Equal(t, Looping, tr.State())
	assert.Equal(t, int64(2), tr.BeatDuration().Value())
}

func TestPanAndMuteValidation(t *testing.T) {
	tr, _ := newTestTrack(t)
	assert.Panics(t, func() { tr.SetPan(1.5) })
	assert.Panics(t, func() { tr.SetPan(-0.1) })

	tr.SetPan(1.0)
	assert.Equal(t, float32(1.0), tr.Pan())

	tr.SetIsMuted(true)
	assert.True(t, tr.IsMuted())
}

func TestMixIntoAppliesLinearPanAndRespectsMute(t *testing.T) {
	tr, clk := newTestTrack(t)
	tr.Record(clk.Now(), nstime.NewDuration[nstime.AudioSample](4), []float32{1, 1, 1, 1})
	clk.AdvanceFromAudioGraph(nstime.NewDuration[nstime.AudioSample](4))
	tr.FinishRecording()
	tr.Record(clk.Now(), nstime.NewDuration[nstime.AudioSample](4), []float32{1, 1, 1, 1})
	clk.AdvanceFromAudioGraph(nstime.NewDuration[nstime.AudioSample](4))

	require.Equal(t, Looping, tr.State())

	tr.SetPan(1.0) // hard right
	dest := make([]float32, 8*2)
	tr.MixInto(nstime.NewInterval(nstime.NewTime[nstime.AudioSample](0), nstime.NewDuration[nstime.AudioSample](4)), dest)

	assert.Equal(t, float32(0), dest[0], "left channel silent when hard-panned right")
	assert.InDelta(t, 1.0, dest[1], 0.0001)

	tr.SetIsMuted(true)
	dest2 := make([]float32, 8*2)
	tr.MixInto(nstime.NewInterval(nstime.NewTime[nstime.AudioSample](0), nstime.NewDuration[nstime.AudioSample](4)), dest2)
	for _, v := range dest2 {
		assert.Equal(t, float32(0), v, "muted track must contribute silence")
	}
}
