package tone_test

import (
	"testing"
	"time"

	"github.com/necklaceai/necklace/go/pkg/audio/pcm"
	"github.com/necklaceai/necklace/go/pkg/audio/tone"
)

func TestChimeDuration(t *testing.T) {
	b := tone.Chime(pcm.L16Mono24K)
	// 0.5s tone + 0.15s gap + 0.3s tone.
	want := 950 * time.Millisecond
	got := pcm.L16Mono24K.Duration(int64(len(b)))
	if got < want-10*time.Millisecond || got > want+10*time.Millisecond {
		t.Fatalf("chime duration = %v, want ~%v", got, want)
	}
}

func TestChimeDecays(t *testing.T) {
	b := tone.Chime(pcm.L16Mono48K)

	peak := func(from, to int) int16 {
		var p int16
		for i := from; i < to; i += 2 {
			s := pcm.Int16(b, i)
			if s < 0 {
				s = -s
			}
			if s > p {
				p = s
			}
		}
		return p
	}

	// The first tone's head should be much louder than its tail.
	head := peak(0, 4800*2)
	tail := peak(40000, 44000)
	if head == 0 {
		t.Fatal("chime is silent")
	}
	if tail >= head/2 {
		t.Fatalf("envelope did not decay: head=%d tail=%d", head, tail)
	}
}
