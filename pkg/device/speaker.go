package device

import (
	"context"
	"fmt"

	"github.com/gordonklaus/portaudio"

	"github.com/necklaceai/necklace/go/pkg/audio/pcm"
)

// Speaker plays L16 mono audio at the device's fixed output rate of 48kHz.
// Callers are expected to resample to that rate first.
type Speaker struct {
	Format pcm.Format

	// DeviceIndex selects the output device; negative means auto-detect.
	DeviceIndex int
}

// NewSpeaker creates a speaker at the pendant's output rate.
func NewSpeaker() *Speaker {
	return &Speaker{Format: pcm.L16Mono48K, DeviceIndex: -1}
}

// Play writes the buffer to the output device chunk by chunk. Cancellation
// is observed at every chunk boundary; on shutdown the remaining audio is
// dropped rather than flushed.
func (s *Speaker) Play(ctx context.Context, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("device: portaudio: %w", err)
	}
	defer portaudio.Terminate()

	out := make([]int16, chunkFrames)
	dev, err := findDevice(s.DeviceIndex, false)
	if err != nil {
		return err
	}
	params := portaudio.LowLatencyParameters(nil, dev)
	params.Output.Channels = s.Format.Channels()
	params.SampleRate = float64(s.Format.SampleRate())
	params.FramesPerBuffer = len(out)

	stream, err := portaudio.OpenStream(params, out)
	if err != nil {
		return fmt.Errorf("device: open playback stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("device: start playback stream: %w", err)
	}
	defer stream.Stop()

	for off := 0; off < len(data); off += chunkFrames * 2 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		end := off + chunkFrames*2
		if end > len(data) {
			end = len(data)
		}
		chunk := data[off:end]
		for i := range out {
			if i*2+1 < len(chunk) {
				out[i] = pcm.Int16(chunk, i*2)
			} else {
				out[i] = 0
			}
		}
		if err := stream.Write(); err != nil {
			if err == portaudio.OutputUnderflowed {
				continue
			}
			return fmt.Errorf("device: playback write: %w", err)
		}
	}
	return nil
}
