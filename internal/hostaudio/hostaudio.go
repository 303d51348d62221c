// Package hostaudio bridges the graph to a real sound card via malgo
// (miniaudio bindings), running a full-duplex device: capture callbacks
// feed graph.OnAudioFrame, and playback callbacks pull graph.Mixdown.
package hostaudio

import (
	"log/slog"
	"math"
	"runtime"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/nowsound-go/nowsound/internal/graph"
	"github.com/nowsound-go/nowsound/internal/logging"
	"github.com/nowsound-go/nowsound/internal/nserrors"
	"github.com/nowsound-go/nowsound/internal/nstime"
)

// DeviceInfo is a platform-independent summary of an enumerable audio
// device.
type DeviceInfo struct {
	Id        string
	Name      string
	IsDefault bool
}

// Device owns the malgo context and full-duplex stream feeding a Graph.
type Device struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	graph  *graph.Graph
	logger *slog.Logger
}

func backendsForPlatform() []malgo.Backend {
	switch runtime.GOOS {
	case "linux":
		return []malgo.Backend{malgo.BackendAlsa, malgo.BackendPulseAudio}
	case "windows":
		return []malgo.Backend{malgo.BackendWasapi}
	case "darwin":
		return []malgo.Backend{malgo.BackendCoreaudio}
	default:
		return []malgo.Backend{malgo.BackendNull}
	}
}

// EnumerateDevices lists capture devices the host exposes, using a
// throwaway context.
func EnumerateDevices() ([]DeviceInfo, error) {
	ctx, err := malgo.InitContext(backendsForPlatform(), malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, nserrors.New(err).Component("hostaudio").Category(nserrors.CategoryDevice).Build()
	}
	defer ctx.Uninit() //nolint:errcheck

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, nserrors.New(err).Component("hostaudio").Category(nserrors.CategoryDevice).Build()
	}

	result := make([]DeviceInfo, 0, len(infos))
	for _, d := range infos {
		result = append(result, DeviceInfo{Id: d.ID.String(), Name: d.Name(), IsDefault: d.IsDefault == 1})
	}
	return result, nil
}

// Open initializes a full-duplex device and wires it to g. Call Start to
// begin streaming.
func Open(g *graph.Graph, inputDeviceName, outputDeviceName string) (*Device, error) {
	ctx, err := malgo.InitContext(backendsForPlatform(), malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, nserrors.New(err).Component("hostaudio").Category(nserrors.CategoryDevice).
			Context("operation", "init_context").Build()
	}

	captureInfos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		_ = ctx.Uninit()
		return nil, nserrors.New(err).Component("hostaudio").Category(nserrors.CategoryDevice).Build()
	}
	playbackInfos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		_ = ctx.Uninit()
		return nil, nserrors.New(err).Component("hostaudio").Category(nserrors.CategoryDevice).Build()
	}

	captureDevice, err := selectDevice(captureInfos, inputDeviceName)
	if err != nil {
		_ = ctx.Uninit()
		return nil, err
	}
	playbackDevice, err := selectDevice(playbackInfos, outputDeviceName)
	if err != nil {
		_ = ctx.Uninit()
		return nil, err
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Duplex)
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = 1
	cfg.Capture.DeviceID = captureDevice.ID.Pointer()
	cfg.Playback.Format = malgo.FormatF32
	cfg.Playback.Channels = uint32(g.Clock().ChannelCount())
	cfg.Playback.DeviceID = playbackDevice.ID.Pointer()
	cfg.SampleRate = uint32(g.Clock().SampleRateHz())
	cfg.Alsa.NoMMap = 1

	dev := &Device{graph: g, logger: logging.ForService("hostaudio")}

	callbacks := malgo.DeviceCallbacks{
		Data: dev.onData,
		Stop: dev.onStop,
	}

	mdev, err := malgo.InitDevice(ctx.Context, cfg, callbacks)
	if err != nil {
		_ = ctx.Uninit()
		return nil, nserrors.New(err).Component("hostaudio").Category(nserrors.CategoryDevice).
			Context("operation", "init_device").Build()
	}

	dev.ctx = ctx
	dev.device = mdev
	return dev, nil
}

func selectDevice(devices []malgo.DeviceInfo, name string) (malgo.DeviceInfo, error) {
	if name == "" || name == "default" {
		for _, d := range devices {
			if d.IsDefault == 1 {
				return d, nil
			}
		}
		if len(devices) > 0 {
			return devices[0], nil
		}
		return malgo.DeviceInfo{}, nserrors.Newf("no audio devices available").
			Component("hostaudio").Category(nserrors.CategoryNotFound).Build()
	}
	for _, d := range devices {
		if d.Name() == name {
			return d, nil
		}
	}
	return malgo.DeviceInfo{}, nserrors.Newf("audio device %q not found", name).
		Component("hostaudio").Category(nserrors.CategoryNotFound).Build()
}

// onData is the malgo full-duplex callback: it feeds capture samples into
// the graph and fills the playback buffer from the graph's mixdown.
func (d *Device) onData(outputSamples, inputSamples []byte, frameCount uint32) {
	mono := bytesToFloat32(inputSamples)
	d.graph.OnAudioFrame(mono)

	stereo := make([]float32, frameCount*2)
	interval := nstime.NewInterval(
		d.graph.Clock().Now().MinusDuration(nstime.NewDuration[nstime.AudioSample](int64(frameCount))),
		nstime.NewDuration[nstime.AudioSample](int64(frameCount)),
	)
	d.graph.Mixdown(interval, stereo)
	float32ToBytes(stereo, outputSamples)
}

func (d *Device) onStop() {
	d.logger.Warn("audio device stopped unexpectedly, attempting restart")
	go func() {
		time.Sleep(time.Second)
		if d.device != nil {
			if err := d.device.Start(); err != nil {
				d.logger.Error("device restart failed", "error", err)
			}
		}
	}()
}

// Start begins streaming audio.
func (d *Device) Start() error {
	if err := d.device.Start(); err != nil {
		return nserrors.New(err).Component("hostaudio").Category(nserrors.CategoryDevice).Build()
	}
	return nil
}

// Close stops streaming and releases the device and context.
func (d *Device) Close() {
	if d.device != nil {
		_ = d.device.Stop()
		d.device.Uninit()
	}
	if d.ctx != nil {
		_ = d.ctx.Uninit()
	}
}

func bytesToFloat32(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		bits := uint32(b[i*4]) | uint32(b[i*4+1])<<8 | uint32(b[i*4+2])<<16 | uint32(b[i*4+3])<<24
		out[i] = math.Float32frombits(bits)
	}
	return out
}

func float32ToBytes(samples []float32, dest []byte) {
	for i, s := range samples {
		bits := math.Float32bits(s)
		dest[i*4] = byte(bits)
		dest[i*4+1] = byte(bits >> 8)
		dest[i*4+2] = byte(bits >> 16)
		dest[i*4+3] = byte(bits >> 24)
	}
}
