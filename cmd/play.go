package cmd

import (
	"fmt"

	"github.com/nowsound-go/nowsound/internal/config"
	"github.com/nowsound-go/nowsound/internal/graph"
	"github.com/nowsound-go/nowsound/internal/hostaudio"
	"github.com/nowsound-go/nowsound/internal/logging"
	"github.com/nowsound-go/nowsound/internal/soundfile"
	"github.com/nowsound-go/nowsound/internal/track"
	"github.com/spf13/cobra"
)

// playCommand loads a sound file, records it into a new track exactly as
// live input would have been recorded, and loops it out the output
// device - the CLI equivalent of the original's
// PlayUserSelectedSoundFileAsync, minus the file picker.
func playCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play <file>",
		Short: "Load a sound file into a new looping track and play it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Get()
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}

			decoded, err := soundfile.Load(args[0])
			if err != nil {
				return fmt.Errorf("load sound file: %w", err)
			}
			mono := toMono(decoded.Samples, decoded.ChannelCount)

			g := graph.New(graph.Config{
				SampleRateHz:        decoded.SampleRate,
				ChannelCount:        settings.ChannelCount,
				BeatsPerMinute:      int32(settings.BeatsPerMinute),
				BeatsPerMeasure:     int32(settings.BeatsPerMeasure),
				LatencyInSamples:    int32(decoded.SampleRate / 100),
				SamplesPerQuantum:   int32(decoded.SampleRate / 100),
				PreRecordingSeconds: 0,
				InitialBufferCount:  4,
			})
			if err := g.Initialize(); err != nil {
				return fmt.Errorf("initialize graph: %w", err)
			}

			device, err := hostaudio.Open(g, "", settings.OutputDevice)
			if err != nil {
				return fmt.Errorf("open audio device: %w", err)
			}
			defer device.Close()

			if err := g.CreateAudioGraph(); err != nil {
				return fmt.Errorf("create audio graph: %w", err)
			}
			if err := g.StartAudioGraph(); err != nil {
				return fmt.Errorf("start audio graph: %w", err)
			}

			trackId, err := g.CreateRecordingTrack(0, 0.5)
			if err != nil {
				return fmt.Errorf("create track: %w", err)
			}
			t, _ := g.Track(trackId)

			// Feed the file through the same capture path live audio would
			// use, so the recorder is driven (and pruned from the graph's
			// live-recorder list on FinishRecording) exactly as it would be
			// for a microphone-sourced track.
			quantum := int(g.Info().SamplesPerQuantum)
			for offset := 0; offset < len(mono); offset += quantum {
				end := offset + quantum
				if end > len(mono) {
					end = len(mono)
				}
				g.OnAudioFrame(mono[offset:end])
			}
			t.FinishRecording()
			// Feed silence until the last beat is complete, so
			// FinishRecording's beat-quantized transition to Looping fires
			// and the track is pruned from the live-recorder list.
			silence := make([]float32, quantum)
			for t.State() != track.Looping {
				g.OnAudioFrame(silence)
			}

			if err := device.Start(); err != nil {
				return fmt.Errorf("start audio device: %w", err)
			}

			logging.Info("looping track playing, press ctrl-c to stop", "track_id", trackId)
			select {}
		},
	}
	return cmd
}

// toMono downmixes interleaved multi-channel samples by averaging
// channels; a no-op for already-mono input.
func toMono(samples []float32, channelCount int) []float32 {
	if channelCount <= 1 {
		return samples
	}
	mono := make([]float32, len(samples)/channelCount)
	for i := range mono {
		var sum float32
		for c := 0; c < channelCount; c++ {
			sum += samples[i*channelCount+c]
		}
		mono[i] = sum / float32(channelCount)
	}
	return mono
}
