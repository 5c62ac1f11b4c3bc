package device

import (
	"bytes"
	"fmt"
	"os"
	"time"
)

// Trigger is the push-to-talk input, read as held/released.
type Trigger interface {
	// Pressed reports the debounced state of the input.
	Pressed() bool
}

// GPIOTrigger reads a push button wired to a GPIO line through the kernel's
// sysfs value file. The line is active-low (pull-up, button shorts to
// ground), matching the pendant's wiring.
type GPIOTrigger struct {
	path string

	debounce  time.Duration
	lastState bool
	lastFlip  time.Time
}

// NewGPIOTrigger opens the trigger on the given GPIO line. The line must
// already be exported and configured as an input.
func NewGPIOTrigger(pin int) (*GPIOTrigger, error) {
	path := fmt.Sprintf("/sys/class/gpio/gpio%d/value", pin)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("device: gpio%d not available: %w", pin, err)
	}
	return &GPIOTrigger{
		path:     path,
		debounce: 100 * time.Millisecond,
	}, nil
}

// Pressed reads and debounces the line. Flips within the debounce window
// report the previous stable state.
func (t *GPIOTrigger) Pressed() bool {
	raw, err := os.ReadFile(t.path)
	if err != nil {
		return t.lastState
	}
	// Active-low: "0" means the button is held.
	state := bytes.HasPrefix(bytes.TrimSpace(raw), []byte("0"))

	now := time.Now()
	if state != t.lastState {
		if now.Sub(t.lastFlip) < t.debounce {
			return t.lastState
		}
		t.lastState = state
		t.lastFlip = now
	}
	return t.lastState
}
