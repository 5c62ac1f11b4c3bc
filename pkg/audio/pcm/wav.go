package pcm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Sentinel errors for WAV parsing.
var (
	ErrNotWAV = errors.New("pcm: not a RIFF/WAVE stream")
)

// EncodeWAV wraps raw L16 mono samples in a minimal PCM WAV container.
// The inference backend accepts audio only with a container header.
func EncodeWAV(format Format, data []byte) []byte {
	var buf bytes.Buffer

	sampleRate := uint32(format.SampleRate())
	channels := uint16(format.Channels())
	depth := uint16(format.Depth())
	blockAlign := channels * depth / 8
	byteRate := sampleRate * uint32(blockAlign)

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(data)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, channels)
	binary.Write(&buf, binary.LittleEndian, sampleRate)
	binary.Write(&buf, binary.LittleEndian, byteRate)
	binary.Write(&buf, binary.LittleEndian, blockAlign)
	binary.Write(&buf, binary.LittleEndian, depth)

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)

	return buf.Bytes()
}

// WAVInfo describes the format of a decoded WAV stream.
type WAVInfo struct {
	SampleRate int
	Channels   int
	Depth      int
}

// DecodeWAV parses a PCM WAV container and returns its format info and the
// raw sample data. Chunks other than "fmt " and "data" are skipped.
func DecodeWAV(b []byte) (WAVInfo, []byte, error) {
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return WAVInfo{}, nil, ErrNotWAV
	}

	var (
		info    WAVInfo
		data    []byte
		haveFmt bool
	)
	off := 12
	for off+8 <= len(b) {
		id := string(b[off : off+4])
		size := int(binary.LittleEndian.Uint32(b[off+4 : off+8]))
		off += 8
		if off+size > len(b) {
			size = len(b) - off
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return WAVInfo{}, nil, fmt.Errorf("pcm: short fmt chunk: %d bytes", size)
			}
			info.Channels = int(binary.LittleEndian.Uint16(b[off+2 : off+4]))
			info.SampleRate = int(binary.LittleEndian.Uint32(b[off+4 : off+8]))
			info.Depth = int(binary.LittleEndian.Uint16(b[off+14 : off+16]))
			haveFmt = true
		case "data":
			data = b[off : off+size]
		}
		// Chunks are word aligned.
		off += size + size%2
	}
	if !haveFmt || data == nil {
		return WAVInfo{}, nil, fmt.Errorf("pcm: missing fmt or data chunk")
	}
	return info, data, nil
}
