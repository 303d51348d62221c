package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, g.Write(m))
	return m.GetGauge().GetValue()
}

func TestSetAllocatorSlotsUpdatesLabeledGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.SetAllocatorSlots("mono", 3, 5)

	reserved, err := c.allocatorReservedSlots.GetMetricWithLabelValues("mono")
	require.NoError(t, err)
	require.Equal(t, float64(3), gaugeValue(t, reserved))

	free, err := c.allocatorFreeSlots.GetMetricWithLabelValues("mono")
	require.NoError(t, err)
	require.Equal(t, float64(5), gaugeValue(t, free))
}

func TestSetGraphStateAndTracksActive(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.SetGraphState(3)
	c.SetTracksActive(2)

	require.Equal(t, float64(3), gaugeValue(t, c.graphState))
	require.Equal(t, float64(2), gaugeValue(t, c.tracksActive))
}

func TestRecordTrackStateTransitionIncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.RecordTrackStateTransition("Looping")
	c.RecordTrackStateTransition("Looping")

	counter, err := c.trackStateTransitions.GetMetricWithLabelValues("Looping")
	require.NoError(t, err)
	m := &dto.Metric{}
	require.NoError(t, counter.Write(m))
	require.Equal(t, float64(2), m.GetCounter().GetValue())
}

func TestObserveDurationsDoNotPanicOnDisabledCollector(t *testing.T) {
	var c *Collector
	c.ObserveCaptureFrame(time.Millisecond)
	c.ObserveMixdownFrame(time.Millisecond)
	c.SetGraphState(1)
	c.SetAllocatorSlots("mono", 1, 1)
}

func TestGlobalReturnsNoOpBeforeInit(t *testing.T) {
	c := Global()
	require.NotNil(t, c)
	c.SetGraphState(1)
}
