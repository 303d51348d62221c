package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nowsound-go/nowsound/internal/logging"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostMonitor periodically samples host CPU and memory usage and publishes
// them through a Collector, so the same scrape endpoint that reports the
// audio engine's internals also reports the health of the host it runs on.
type HostMonitor struct {
	collector *Collector
	interval  time.Duration
	log       *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHostMonitor constructs a HostMonitor that samples c at interval.
func NewHostMonitor(c *Collector, interval time.Duration) *HostMonitor {
	ctx, cancel := context.WithCancel(context.Background())
	return &HostMonitor{collector: c, interval: interval, log: logging.ForService("metrics"), ctx: ctx, cancel: cancel}
}

// Start begins sampling on its own goroutine. Call Stop to end it.
func (h *HostMonitor) Start() {
	h.wg.Add(1)
	go h.loop()
}

// Stop ends sampling and waits for the loop goroutine to exit.
func (h *HostMonitor) Stop() {
	h.cancel()
	h.wg.Wait()
}

func (h *HostMonitor) loop() {
	defer h.wg.Done()

	h.sample()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			h.sample()
		case <-h.ctx.Done():
			return
		}
	}
}

// sample reads a single, non-blocking CPU/memory snapshot. Errors are
// logged and skipped rather than retried; a missed sample just means the
// next tick overwrites it.
func (h *HostMonitor) sample() {
	// 0 interval requests an instantaneous (non-blocking) reading rather
	// than sleeping inside cpu.Percent to average over a window.
	if cpuPercent, err := cpu.Percent(0, false); err == nil && len(cpuPercent) > 0 {
		h.collector.SetHostCPUPercent(cpuPercent[0])
	} else if err != nil {
		h.log.Warn("host cpu sample failed", "error", err)
	}

	if memInfo, err := mem.VirtualMemory(); err == nil {
		h.collector.SetHostMemoryUsedPercent(memInfo.UsedPercent)
	} else {
		h.log.Warn("host memory sample failed", "error", err)
	}
}
