// Package metrics exposes the engine's prometheus gauges and counters:
// buffer allocator pressure, graph lifecycle state, and per-track
// recording/mixdown activity. Callers update it from the audio thread's
// control paths (never from OnAudioFrame/Mixdown themselves - those must
// stay allocation-free); updating is safe to skip entirely when the
// collector was never registered into a Gatherer.
package metrics

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nowsound-go/nowsound/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the engine's prometheus instruments. The zero value is
// not usable; construct one with New and register it with a registerer
// (typically prometheus.DefaultRegisterer) before scraping.
type Collector struct {
	registry prometheus.Registerer

	allocatorReservedSlots *prometheus.GaugeVec
	allocatorFreeSlots     *prometheus.GaugeVec
	graphState             prometheus.Gauge
	tracksActive           prometheus.Gauge
	trackStateTransitions  *prometheus.CounterVec
	frameCaptureDuration   prometheus.Histogram
	frameMixdownDuration   prometheus.Histogram

	hostCPUPercent        prometheus.Gauge
	hostMemoryUsedPercent prometheus.Gauge
}

var (
	global     atomic.Pointer[Collector]
	globalOnce sync.Once
	log        *slog.Logger
)

// New creates a Collector and registers its instruments with reg. Pass
// prometheus.DefaultRegisterer for the process-global registry, or a
// fresh prometheus.NewRegistry() in tests to avoid duplicate
// registration panics across test runs.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		allocatorReservedSlots: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "nowsound",
			Subsystem: "bufalloc",
			Name:      "reserved_slots",
			Help:      "Total buffer slots the allocator has created, free or in use, by buffer kind.",
		}, []string{"kind"}),
		allocatorFreeSlots: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "nowsound",
			Subsystem: "bufalloc",
			Name:      "free_slots",
			Help:      "Number of buffer slots sitting on the allocator's free list, by buffer kind.",
		}, []string{"kind"}),
		graphState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "nowsound",
			Subsystem: "graph",
			Name:      "state",
			Help:      "Current graph.State as an integer (Uninitialized=0 .. InError=4).",
		}),
		tracksActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "nowsound",
			Subsystem: "graph",
			Name:      "tracks_active",
			Help:      "Number of tracks that are not Deleted.",
		}),
		trackStateTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nowsound",
			Subsystem: "track",
			Name:      "state_transitions_total",
			Help:      "Count of track state transitions, by resulting state.",
		}, []string{"state"}),
		frameCaptureDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "nowsound",
			Subsystem: "graph",
			Name:      "capture_frame_seconds",
			Help:      "Wall-clock time spent in one OnAudioFrame call.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 12),
		}),
		frameMixdownDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "nowsound",
			Subsystem: "graph",
			Name:      "mixdown_frame_seconds",
			Help:      "Wall-clock time spent in one Mixdown call.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 12),
		}),
		hostCPUPercent: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "nowsound",
			Subsystem: "host",
			Name:      "cpu_percent",
			Help:      "Host-wide CPU utilization, 0-100, sampled by metrics.HostMonitor.",
		}),
		hostMemoryUsedPercent: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "nowsound",
			Subsystem: "host",
			Name:      "memory_used_percent",
			Help:      "Host virtual memory utilization, 0-100, sampled by metrics.HostMonitor.",
		}),
	}
}

// InitGlobal registers c as the process-wide collector, exactly once.
// Later calls are no-ops; Global returns a disabled no-op Collector
// until InitGlobal has run.
func InitGlobal(c *Collector) {
	globalOnce.Do(func() {
		log = logging.ForService("metrics")
		global.Store(c)
		log.Info("metrics collector initialized")
	})
}

// Global returns the process-wide collector, or a disabled no-op one if
// InitGlobal was never called.
func Global() *Collector {
	if c := global.Load(); c != nil {
		return c
	}
	return &Collector{}
}

func (c *Collector) enabled() bool { return c != nil && c.graphState != nil }

// SetAllocatorSlots records an allocator's reserved and free slot counts
// under the given kind label (e.g. "mono", "stereo").
func (c *Collector) SetAllocatorSlots(kind string, reserved, free int) {
	if !c.enabled() {
		return
	}
	c.allocatorReservedSlots.WithLabelValues(kind).Set(float64(reserved))
	c.allocatorFreeSlots.WithLabelValues(kind).Set(float64(free))
}

// SetGraphState records the graph's current lifecycle state.
func (c *Collector) SetGraphState(state int) {
	if !c.enabled() {
		return
	}
	c.graphState.Set(float64(state))
}

// SetTracksActive records the number of non-Deleted tracks.
func (c *Collector) SetTracksActive(n int) {
	if !c.enabled() {
		return
	}
	c.tracksActive.Set(float64(n))
}

// RecordTrackStateTransition increments the counter for a track entering
// the named state (e.g. "Looping", "FinishRecording").
func (c *Collector) RecordTrackStateTransition(state string) {
	if !c.enabled() {
		return
	}
	c.trackStateTransitions.WithLabelValues(state).Inc()
}

// ObserveCaptureFrame records how long one OnAudioFrame call took.
func (c *Collector) ObserveCaptureFrame(d time.Duration) {
	if !c.enabled() {
		return
	}
	c.frameCaptureDuration.Observe(d.Seconds())
}

// ObserveMixdownFrame records how long one Mixdown call took.
func (c *Collector) ObserveMixdownFrame(d time.Duration) {
	if !c.enabled() {
		return
	}
	c.frameMixdownDuration.Observe(d.Seconds())
}

// SetHostCPUPercent records the host's current CPU utilization, 0-100.
// Called by HostMonitor, never from the audio thread.
func (c *Collector) SetHostCPUPercent(percent float64) {
	if !c.enabled() {
		return
	}
	c.hostCPUPercent.Set(percent)
}

// SetHostMemoryUsedPercent records the host's current virtual memory
// utilization, 0-100. Called by HostMonitor, never from the audio thread.
func (c *Collector) SetHostMemoryUsedPercent(percent float64) {
	if !c.enabled() {
		return
	}
	c.hostMemoryUsedPercent.Set(percent)
}
