// Package tone synthesizes the short notification chime played before a
// companion voice note. The chime matches the companion app's own sound:
// two decaying sine tones with a short gap.
package tone

import (
	"math"

	"github.com/necklaceai/necklace/go/pkg/audio/pcm"
)

// Chime returns the two-tone notification sound as L16 mono samples in the
// given format's sample rate.
func Chime(format pcm.Format) []byte {
	rate := format.SampleRate()

	first := decayTone(rate, 880, 0.5, 6, 0.3)
	gap := make([]byte, int(float64(rate)*0.15)*2)
	second := decayTone(rate, 1320, 0.3, 8, 0.2)

	out := make([]byte, 0, len(first)+len(gap)+len(second))
	out = append(out, first...)
	out = append(out, gap...)
	out = append(out, second...)
	return out
}

// decayTone generates seconds of a freq Hz sine with an exponential decay
// envelope e^(-t*decay) scaled by gain.
func decayTone(rate int, freq float64, seconds, decay, gain float64) []byte {
	n := int(float64(rate) * seconds)
	b := make([]byte, n*2)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(rate)
		v := math.Exp(-t*decay) * math.Sin(2*math.Pi*freq*t) * gain
		pcm.PutInt16(b, i*2, int16(v*32767))
	}
	return b
}
