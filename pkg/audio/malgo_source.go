package audio

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"
)

// MalgoSource captures mono 16 kHz float32 audio via malgo/miniaudio. It
// realises all three Audio Source selections from a single capture
// device-open path: loopback opens the backend's default capture device
// (no loopback device type is requested, so the playback mix is captured
// only where that default device is itself a monitor of the output), app
// capture and named device capture both resolve to a specific capture
// device id by substring match on its name.
type MalgoSource struct {
	selection AudioSourceSelection

	mu      sync.Mutex
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	out     chan []float32
	errVal  error
	stopped bool
}

// NewMalgoSource builds an unopened source for the given selection.
func NewMalgoSource(sel AudioSourceSelection) *MalgoSource {
	return &MalgoSource{selection: sel}
}

func (s *MalgoSource) Name() string {
	switch s.selection.Kind {
	case AudioSourceLoopback:
		return "system-loopback"
	case AudioSourceApp:
		return "app:" + s.selection.Name
	default:
		return "device:" + s.selection.Name
	}
}

// Start opens the underlying capture device and begins streaming.
func (s *MalgoSource) Start(ctx context.Context) (<-chan []float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("audio: malgo init failed: %w", err)
	}

	deviceID, err := s.resolveDeviceID(mctx)
	if err != nil {
		mctx.Uninit()
		return nil, err
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = 1
	cfg.SampleRate = 16000
	cfg.Alsa.NoMMap = 1
	if deviceID != nil {
		cfg.Capture.DeviceID = deviceID.Pointer()
	}

	out := make(chan []float32, 32)
	s.out = out

	onData := func(_, input []byte, frameCount uint32) {
		samples := DecodePCM16LE(input)
		select {
		case out <- samples:
		default:
			// Downstream is behind; drop this frame rather than block the
			// audio callback thread.
		}
	}

	device, err := malgo.InitDevice(mctx.Context, cfg, malgo.DeviceCallbacks{
		Data: onData,
	})
	if err != nil {
		mctx.Uninit()
		return nil, fmt.Errorf("audio: device init failed: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		mctx.Uninit()
		return nil, fmt.Errorf("audio: device start failed: %w", err)
	}

	s.ctx = mctx
	s.device = device

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return out, nil
}

func (s *MalgoSource) resolveDeviceID(mctx *malgo.AllocatedContext) (*malgo.DeviceID, error) {
	if s.selection.Kind == AudioSourceLoopback {
		return nil, nil // default device; real loopback capture is a platform-specific (WASAPI) backend concern.
	}

	infos, err := mctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("audio: enumerate devices failed: %w", err)
	}
	for i := range infos {
		if strings.Contains(strings.ToLower(infos[i].Name()), strings.ToLower(s.selection.Name)) {
			return &infos[i].ID, nil
		}
	}
	return nil, fmt.Errorf("audio: no capture device matching %q", s.selection.Name)
}

// Stop tears the device down. Safe to call more than once.
func (s *MalgoSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true

	if s.device != nil {
		s.device.Uninit()
	}
	if s.ctx != nil {
		s.ctx.Uninit()
	}
	if s.out != nil {
		close(s.out)
	}
	return nil
}

// Err returns the last fatal error recorded, if any. MalgoSource does not
// detect device loss mid-stream and records no error, so Err returns nil
// and the frame channel closes only on Stop.
func (s *MalgoSource) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errVal
}
