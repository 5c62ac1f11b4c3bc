package resampler

import (
	"bytes"
	"io"
)

// Bytes resamples a whole L16 mono buffer from srcRate to dstRate and
// returns the converted buffer. Equal rates return data unchanged.
func Bytes(data []byte, srcRate, dstRate int) ([]byte, error) {
	if srcRate == dstRate {
		return data, nil
	}
	r, err := New(bytes.NewReader(data), srcRate, dstRate)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
