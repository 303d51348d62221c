package soundfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoadWavRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.wav")

	samples := []float32{0, 0.5, -0.5, 1.0, -1.0}
	require.NoError(t, SaveWav(path, samples, 8000, 1))

	decoded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8000, decoded.SampleRate)
	assert.Equal(t, 1, decoded.ChannelCount)
	require.Len(t, decoded.Samples, len(samples))
	for i, want := range samples {
		assert.InDelta(t, want, decoded.Samples[i], 0.01)
	}
}

func TestLoadRejectsUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.mp3")
	require.NoError(t, os.WriteFile(path, []byte("not audio"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
