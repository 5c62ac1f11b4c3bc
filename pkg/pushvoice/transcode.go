package pushvoice

import (
	"bytes"
	"fmt"
	"io"

	mp3 "github.com/hajimehoshi/go-mp3"

	"github.com/necklaceai/necklace/go/pkg/audio/pcm"
	"github.com/necklaceai/necklace/go/pkg/audio/resampler"
)

// Transcode converts a note's audio container into mono 16-bit PCM at
// the device output rate. MP3 is decoded natively; WAV is unwrapped.
func Transcode(data []byte, outRate int) ([]byte, error) {
	mono, rate, err := decode(data)
	if err != nil {
		return nil, err
	}
	if rate == outRate {
		return mono, nil
	}
	return resampler.Bytes(mono, rate, outRate)
}

func decode(data []byte) (mono []byte, rate int, err error) {
	if info, body, err := pcm.DecodeWAV(data); err == nil {
		if info.Depth != 16 {
			return nil, 0, fmt.Errorf("pushvoice: unsupported wav depth %d", info.Depth)
		}
		if info.Channels == 1 {
			return body, info.SampleRate, nil
		}
		return downmix(body, info.Channels), info.SampleRate, nil
	}
	return decodeMP3(data)
}

// decodeMP3 decodes MP3 to mono PCM. The decoder always emits 16-bit
// stereo frames, so the two channels are averaged.
func decodeMP3(data []byte) ([]byte, int, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("pushvoice: decode mp3: %w", err)
	}
	stereo, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, fmt.Errorf("pushvoice: read mp3 frames: %w", err)
	}
	return downmix(stereo, 2), dec.SampleRate(), nil
}

// downmix averages interleaved 16-bit channels into mono.
func downmix(data []byte, channels int) []byte {
	if channels <= 1 {
		return data
	}
	frame := 2 * channels
	frames := len(data) / frame
	out := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		sum := 0
		for ch := 0; ch < channels; ch++ {
			sum += int(pcm.Int16(data, i*frame+ch*2))
		}
		pcm.PutInt16(out, i*2, int16(sum/channels))
	}
	return out
}
