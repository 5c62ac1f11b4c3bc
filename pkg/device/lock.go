// Package device owns the pendant's hardware surface: the audio output
// arbitration lock, the push-to-talk trigger, and the microphone and
// speaker streams.
package device

import "sync/atomic"

// Lock arbitrates access to the audio output device. Acquisition is always
// immediate success or failure; nothing queues on it. The foreground turn
// holds it for the whole capture-to-playback cycle, and background producers
// (alarm monitor, voice-note listener) drop their output when it is busy.
type Lock struct {
	busy atomic.Bool
}

// TryAcquire attempts to take the lock without blocking.
func (l *Lock) TryAcquire() bool {
	return l.busy.CompareAndSwap(false, true)
}

// Release frees the lock.
func (l *Lock) Release() {
	l.busy.Store(false)
}

// Busy reports whether the lock is currently held.
func (l *Lock) Busy() bool {
	return l.busy.Load()
}
