// Package pcm defines the raw audio formats used by the pendant and
// provides byte/sample/duration math and WAV container helpers.
package pcm

import "time"

const (
	// L16Mono44K1 represents audio/L16; rate=44100; channels=1 (microphone capture).
	L16Mono44K1 Format = iota
	// L16Mono24K represents audio/L16; rate=24000; channels=1 (synthesized speech).
	L16Mono24K
	// L16Mono48K represents audio/L16; rate=48000; channels=1 (speaker output).
	L16Mono48K
)

// Format represents an audio format configuration. All formats are
// 16-bit signed little-endian mono.
type Format int

// SampleRate returns the sample rate in Hz for this format.
func (f Format) SampleRate() int {
	switch f {
	case L16Mono44K1:
		return 44100
	case L16Mono24K:
		return 24000
	case L16Mono48K:
		return 48000
	}
	panic("pcm: invalid audio format")
}

// Channels returns the number of audio channels for this format.
func (f Format) Channels() int {
	switch f {
	case L16Mono44K1, L16Mono24K, L16Mono48K:
		return 1
	}
	panic("pcm: invalid audio format")
}

// Depth returns the bit depth for this format.
func (f Format) Depth() int {
	switch f {
	case L16Mono44K1, L16Mono24K, L16Mono48K:
		return 16
	}
	panic("pcm: invalid audio format")
}

// Samples returns the number of samples in the given number of bytes.
func (f Format) Samples(bytes int64) int64 {
	return bytes * 8 / int64(f.Channels()) / int64(f.Depth())
}

// SamplesInDuration returns the number of samples in the given duration.
func (f Format) SamplesInDuration(d time.Duration) int64 {
	return int64(time.Duration(f.SampleRate()) * d / time.Second)
}

// BytesInDuration returns the number of bytes in the given duration.
func (f Format) BytesInDuration(d time.Duration) int64 {
	return f.SamplesInDuration(d) * int64(f.Channels()) * int64(f.Depth()) / 8
}

// Duration returns the duration of the given number of bytes.
func (f Format) Duration(bytes int64) time.Duration {
	return time.Duration(f.Samples(bytes)) * time.Second / time.Duration(f.SampleRate())
}

// Int16 decodes a little-endian 16-bit sample at byte offset i.
func Int16(b []byte, i int) int16 {
	return int16(b[i]) | int16(b[i+1])<<8
}

// PutInt16 encodes a 16-bit sample little-endian at byte offset i.
func PutInt16(b []byte, i int, s int16) {
	b[i] = byte(s)
	b[i+1] = byte(s >> 8)
}
