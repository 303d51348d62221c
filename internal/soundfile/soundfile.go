// Package soundfile decodes WAV and FLAC files into interleaved float32
// samples (the caller downmixes them to mono before seeding a Track), and encodes a track's captured audio back out
// to WAV for export.
package soundfile

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/nowsound-go/nowsound/internal/nserrors"
	"github.com/tphakala/flac"
)

// Decoded holds a file's audio as interleaved float32 samples alongside its
// format, ready for downsampling/channel-mixing by the caller.
type Decoded struct {
	Samples      []float32
	SampleRate   int
	ChannelCount int
}

// Load reads path, dispatching on its extension to the WAV or FLAC decoder.
func Load(path string) (*Decoded, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return loadWav(path)
	case ".flac":
		return loadFlac(path)
	default:
		return nil, nserrors.Newf("unsupported sound file extension %q", filepath.Ext(path)).
			Component("soundfile").
			Category(nserrors.CategorySoundFile).
			FileContext(path, 0).
			Build()
	}
}

func loadWav(path string) (*Decoded, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nserrors.New(err).Component("soundfile").Category(nserrors.CategorySoundFile).
			FileContext(path, 0).Build()
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return nil, nserrors.Newf("not a valid WAV file").
			Component("soundfile").Category(nserrors.CategorySoundFile).FileContext(path, 0).Build()
	}

	divisor, err := bitDepthDivisor(int(decoder.BitDepth))
	if err != nil {
		return nil, err
	}

	buf := &audio.IntBuffer{
		Data:   make([]int, 4096),
		Format: &audio.Format{SampleRate: int(decoder.SampleRate), NumChannels: int(decoder.NumChans)},
	}

	var samples []float32
	for {
		n, err := decoder.PCMBuffer(buf)
		if err != nil {
			return nil, nserrors.New(err).Component("soundfile").Category(nserrors.CategorySoundFile).
				FileContext(path, 0).Build()
		}
		if n == 0 {
			break
		}
		for _, s := range buf.Data[:n] {
			samples = append(samples, float32(s)/divisor)
		}
	}

	return &Decoded{
		Samples:      samples,
		SampleRate:   int(decoder.SampleRate),
		ChannelCount: int(decoder.NumChans),
	}, nil
}

func loadFlac(path string) (*Decoded, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nserrors.New(err).Component("soundfile").Category(nserrors.CategorySoundFile).
			FileContext(path, 0).Build()
	}
	defer file.Close()

	stream, err := flac.NewDecoder(file)
	if err != nil {
		return nil, nserrors.New(err).Component("soundfile").Category(nserrors.CategorySoundFile).
			FileContext(path, 0).Build()
	}

	divisor, err := bitDepthDivisor(stream.BitsPerSample())
	if err != nil {
		return nil, err
	}

	var samples []float32
	for {
		frame, err := stream.ReadFrame()
		if err != nil {
			break
		}
		for _, s := range frame.Samples {
			samples = append(samples, float32(s)/divisor)
		}
	}

	return &Decoded{
		Samples:      samples,
		SampleRate:   stream.SampleRate(),
		ChannelCount: stream.ChannelCount(),
	}, nil
}

func bitDepthDivisor(bitDepth int) (float32, error) {
	switch bitDepth {
	case 16:
		return 32768.0, nil
	case 24:
		return 8388608.0, nil
	case 32:
		return 2147483648.0, nil
	default:
		return 0, nserrors.Newf("unsupported bit depth %d", bitDepth).
			Component("soundfile").Category(nserrors.CategorySoundFile).Build()
	}
}

// SaveWav writes mono or interleaved float32 samples to a 16-bit PCM WAV
// file at path.
func SaveWav(path string, samples []float32, sampleRate, channelCount int) error {
	file, err := os.Create(path)
	if err != nil {
		return nserrors.New(err).Component("soundfile").Category(nserrors.CategorySoundFile).
			FileContext(path, 0).Build()
	}
	defer file.Close()

	encoder := wav.NewEncoder(file, sampleRate, 16, channelCount, 1)

	intSamples := make([]int, len(samples))
	for i, s := range samples {
		clamped := s
		if clamped > 1.0 {
			clamped = 1.0
		} else if clamped < -1.0 {
			clamped = -1.0
		}
		intSamples[i] = int(clamped * 32767.0)
	}

	buf := &audio.IntBuffer{
		Data:   intSamples,
		Format: &audio.Format{SampleRate: sampleRate, NumChannels: channelCount},
	}
	if err := encoder.Write(buf); err != nil {
		return nserrors.New(err).Component("soundfile").Category(nserrors.CategorySoundFile).
			FileContext(path, 0).Build()
	}
	return encoder.Close()
}
