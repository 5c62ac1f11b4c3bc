package device

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/necklaceai/necklace/go/pkg/audio/pcm"
)

// Capture limits. The wall-clock ceiling protects against a stuck trigger;
// the buffer ceiling bounds memory independently of wall clock (the read
// loop can stall without accumulating frames).
const (
	chunkFrames    = 1024
	minChunks      = 5
	maxRecord      = 30 * time.Second
	captureTimeout = 60 * time.Second

	// Auto-capture (no trigger) parameters.
	autoMaxRecord    = 5 * time.Second
	silenceThreshold = 500
	silenceDuration  = 1500 * time.Millisecond
)

// usbDeviceNames are name fragments of the pendant's known USB audio
// hardware, tried before falling back to the system default device.
var usbDeviceNames = []string{"USB PnP Sound", "USB Audio", "USB PnP Audio", "UACDemoV1.0"}

// Mic records push-to-talk audio from the capture device.
type Mic struct {
	Format pcm.Format

	// DeviceIndex selects the input device; negative means auto-detect.
	DeviceIndex int
}

// NewMic creates a microphone capturing at the pendant's input rate.
func NewMic() *Mic {
	return &Mic{Format: pcm.L16Mono44K1, DeviceIndex: -1}
}

// Capture records while trigger is held and returns the raw L16 samples.
// It returns nil (and no error) when the recording is too short to be a
// deliberate utterance.
func (m *Mic) Capture(ctx context.Context, trigger Trigger) ([]byte, error) {
	return m.record(ctx, func(chunks int, buf []int16, hadSound *bool) bool {
		return trigger.Pressed()
	})
}

// CaptureAuto records in the no-trigger configuration: capture runs until a
// rolling energy detector sees sustained trailing silence after speech, or
// the auto ceiling elapses. Returns nil when no speech was detected at all.
func (m *Mic) CaptureAuto(ctx context.Context) ([]byte, error) {
	maxChunks := int(m.Format.SamplesInDuration(autoMaxRecord)) / chunkFrames
	silentLimit := int(m.Format.SamplesInDuration(silenceDuration)) / chunkFrames

	silentChunks := 0
	return m.record(ctx, func(chunks int, buf []int16, hadSound *bool) bool {
		if chunks >= maxChunks {
			return false
		}
		if len(buf) > 0 {
			if energy(buf) > silenceThreshold {
				*hadSound = true
				silentChunks = 0
			} else {
				silentChunks++
			}
		}
		return !(*hadSound && silentChunks > silentLimit)
	})
}

// record runs the shared capture loop. keepGoing is consulted after every
// chunk with the loop state; recording stops when it returns false, when
// the ceilings are hit, or when ctx is cancelled.
func (m *Mic) record(ctx context.Context, keepGoing func(chunks int, last []int16, hadSound *bool) bool) ([]byte, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("device: portaudio: %w", err)
	}
	defer portaudio.Terminate()

	in := make([]int16, chunkFrames)
	params, err := m.streamParams(in)
	if err != nil {
		return nil, err
	}
	stream, err := portaudio.OpenStream(params, in)
	if err != nil {
		return nil, fmt.Errorf("device: open capture stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("device: start capture stream: %w", err)
	}
	defer stream.Stop()

	var (
		frames    []byte
		chunks    int
		hadSound  bool
		maxChunks = int(m.Format.SamplesInDuration(maxRecord)) / chunkFrames
		deadline  = time.Now().Add(captureTimeout)
	)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if time.Now().After(deadline) {
			slog.Warn("capture wall-clock ceiling reached", "limit", captureTimeout)
			break
		}
		if chunks >= maxChunks {
			slog.Warn("capture buffer ceiling reached", "limit", maxRecord)
			break
		}

		if err := stream.Read(); err != nil {
			// Overflows are routine on a busy SBC; anything else ends the turn.
			if err == portaudio.InputOverflowed {
				continue
			}
			return nil, fmt.Errorf("device: capture read: %w", err)
		}
		chunk := make([]byte, len(in)*2)
		for i, s := range in {
			pcm.PutInt16(chunk, i*2, s)
		}
		frames = append(frames, chunk...)
		chunks++

		if !keepGoing(chunks, in, &hadSound) {
			break
		}
	}

	if chunks < minChunks {
		slog.Debug("capture too short, dropping", "chunks", chunks)
		return nil, nil
	}
	return frames, nil
}

func (m *Mic) streamParams(in []int16) (portaudio.StreamParameters, error) {
	dev, err := findDevice(m.DeviceIndex, true)
	if err != nil {
		return portaudio.StreamParameters{}, err
	}
	p := portaudio.LowLatencyParameters(dev, nil)
	p.Input.Channels = m.Format.Channels()
	p.SampleRate = float64(m.Format.SampleRate())
	p.FramesPerBuffer = len(in)
	return p, nil
}

// energy returns the mean absolute amplitude of a chunk.
func energy(buf []int16) int {
	var sum int64
	for _, s := range buf {
		if s < 0 {
			s = -s
		}
		sum += int64(s)
	}
	return int(sum / int64(len(buf)))
}

// findDevice resolves an explicit device index, or auto-detects the
// pendant's USB audio hardware by name, falling back to the default device.
func findDevice(index int, input bool) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("device: list audio devices: %w", err)
	}
	if index >= 0 && index < len(devices) {
		return devices[index], nil
	}
	for _, d := range devices {
		if input && d.MaxInputChannels == 0 {
			continue
		}
		if !input && d.MaxOutputChannels == 0 {
			continue
		}
		for _, name := range usbDeviceNames {
			if strings.Contains(d.Name, name) {
				slog.Info("audio device detected", "name", d.Name, "input", input)
				return d, nil
			}
		}
	}
	if input {
		return portaudio.DefaultInputDevice()
	}
	return portaudio.DefaultOutputDevice()
}
