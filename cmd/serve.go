package cmd

import (
	"fmt"
	"time"

	"github.com/nowsound-go/nowsound/internal/abi"
	"github.com/nowsound-go/nowsound/internal/config"
	"github.com/nowsound-go/nowsound/internal/control"
	"github.com/nowsound-go/nowsound/internal/graph"
	"github.com/nowsound-go/nowsound/internal/hostaudio"
	"github.com/nowsound-go/nowsound/internal/logging"
	"github.com/nowsound-go/nowsound/internal/metrics"
	"github.com/nowsound-go/nowsound/internal/notify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// serveCommand runs the engine against a real audio device and exposes
// its control surface over HTTP until interrupted.
func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Open an audio device and serve the HTTP control surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Get()
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}

			metricsCollector := metrics.New(prometheus.DefaultRegisterer)
			metrics.InitGlobal(metricsCollector)

			hostMonitor := metrics.NewHostMonitor(metricsCollector, 15*time.Second)
			hostMonitor.Start()
			defer hostMonitor.Stop()

			notifier := notify.New(settings.NotificationURL)

			g := graph.New(graph.Config{
				SampleRateHz:        settings.SampleRate,
				ChannelCount:        settings.ChannelCount,
				BeatsPerMinute:      int32(settings.BeatsPerMinute),
				BeatsPerMeasure:     int32(settings.BeatsPerMeasure),
				LatencyInSamples:    int32(settings.SampleRate / 100),
				SamplesPerQuantum:   int32(settings.SampleRate / 100),
				PreRecordingSeconds: float64(settings.PreRecordingSeconds),
				InitialBufferCount:  4,
			})
			g.SetErrorHandler(func(cause error) {
				notifier.NotifyGraphError(cause)
			})

			if err := g.Initialize(); err != nil {
				return fmt.Errorf("initialize graph: %w", err)
			}

			device, err := hostaudio.Open(g, settings.InputDevice, settings.OutputDevice)
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
			if err := device.Start(); err != nil {
				return fmt.Errorf("start audio device: %w", err)
			}

			surface := abi.New(g)
			server := control.New(surface)
			logging.Info("serving control surface", "address", settings.HTTPListenAddress)
			return server.Start(settings.HTTPListenAddress)
		},
	}
}

