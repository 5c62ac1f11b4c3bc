// Package resampler converts L16 mono audio between the fixed sample rates
// used by the pendant (microphone 44.1kHz, synthesis 24kHz, speaker 48kHz).
package resampler

import (
	"fmt"
	"io"
	"sync"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resampler wraps an io.Reader and resamples L16 mono audio from one sample
// rate to another. It must be closed with Close() to release resources.
type Resampler interface {
	io.ReadCloser
	CloseWithError(error) error
}

type reader struct {
	src      io.Reader
	srcRate  int
	dstRate  int
	readBuf  []byte
	leftover []byte

	mu       sync.Mutex
	closeErr error
	rs       resampling.Resampler
}

// New creates a Resampler converting L16 mono audio read from src at srcRate
// to dstRate. Equal rates pass samples through unchanged.
func New(src io.Reader, srcRate, dstRate int) (Resampler, error) {
	r := &reader{
		src:     src,
		srcRate: srcRate,
		dstRate: dstRate,
	}
	if srcRate != dstRate {
		rs, err := resampling.New(&resampling.Config{
			InputRate:  float64(srcRate),
			OutputRate: float64(dstRate),
			Channels:   1,
			Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
		})
		if err != nil {
			return nil, fmt.Errorf("resampler: %w", err)
		}
		r.rs = rs
	}
	return r, nil
}

// Read copies resampled audio into p. Not safe for concurrent use.
func (r *reader) Read(p []byte) (int, error) {
	if len(p) < 2 {
		return 0, io.ErrShortBuffer
	}
	p = p[:len(p)/2*2]

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.leftover) > 0 {
		n := copy(p, r.leftover)
		r.leftover = r.leftover[n:]
		return n, nil
	}
	if r.closeErr != nil {
		return 0, r.closeErr
	}
	if r.rs == nil {
		return r.src.Read(p)
	}

	// Read enough source samples to roughly fill p after rate conversion.
	ratio := float64(r.srcRate) / float64(r.dstRate)
	want := int(float64(len(p))*ratio) + 8
	want -= want % 2
	if cap(r.readBuf) < want {
		r.readBuf = make([]byte, want)
	}
	rn, readErr := r.src.Read(r.readBuf[:want])
	rn -= rn % 2
	if rn == 0 {
		if readErr != nil {
			return 0, readErr
		}
		return 0, io.EOF
	}

	input := make([]float64, rn/2)
	for i := range input {
		s := int16(r.readBuf[i*2]) | int16(r.readBuf[i*2+1])<<8
		input[i] = float64(s) / 32768.0
	}
	output, err := r.rs.Process(input)
	if err != nil {
		return 0, fmt.Errorf("resampler: %w", err)
	}

	out := make([]byte, len(output)*2)
	for i, s := range output {
		v := int32(s * 32767.0)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}

	n := copy(p, out)
	if len(out) > n {
		r.leftover = append(r.leftover, out[n:]...)
	}
	return n, readErr
}

// Close releases resources. Subsequent Read calls return io.ErrClosedPipe.
func (r *reader) Close() error {
	return r.CloseWithError(fmt.Errorf("resampler: %w", io.ErrClosedPipe))
}

// CloseWithError releases resources with a custom error returned by
// subsequent Read calls.
func (r *reader) CloseWithError(err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closeErr == nil {
		r.closeErr = err
	}
	r.rs = nil
	return nil
}
