package alarm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/necklaceai/necklace/go/pkg/device"
)

// DefaultPollInterval is how often the monitor scans the book.
const DefaultPollInterval = 10 * time.Second

// Monitor scans the alarm book on a fixed cadence and speaks due alarms
// through the shared audio output. An alarm fires at most once per minute;
// a firing that coincides with a busy output device is dropped, not
// deferred, so the alarm is missed for that minute.
type Monitor struct {
	Book *Book
	Lock *device.Lock

	// Speak synthesizes and plays the announcement text.
	Speak func(ctx context.Context, text string) error

	// Interval overrides DefaultPollInterval when positive.
	Interval time.Duration

	// Now overrides the clock, for tests.
	Now func() time.Time

	fired map[string]struct{}
}

// Run polls until ctx is cancelled. It never returns an error; firing
// failures are logged and the loop continues.
func (m *Monitor) Run(ctx context.Context) {
	interval := m.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		m.Poll(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

/// Poll performs one scan: fire due alarms, then prune dedup entries whose
// minute has passed.
func (m *Monitor) Poll(ctx context.Context) {
	if m.fired == nil {
		m.fired = make(map[string]struct{})
	}
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	minute := now().Format("15:04")

	for _, a := range m.Book.Alarms() {
		if !a.Enabled || a.Time != minute {
			continue
		}
		key := fmt.Sprintf("%d_%s", a.ID, minute)
		if _, done := m.fired[key]; done {
			continue
		}
		// Marked before the lock attempt: a firing skipped under
		// contention is not retried later in the same minute.
		m.fired[key] = struct{}{}

		if !m.Lock.TryAcquire() {
			slog.Info("alarm skipped, audio device busy", "id", a.ID, "label", a.Label)
			continue
		}
		slog.Info("alarm fired", "id", a.ID, "label", a.Label, "time", a.Time)
		if err := m.Speak(ctx, "アラームです。"+a.Message); err != nil {
			slog.Error("alarm announcement failed", "id", a.ID, "error", err)
		}
		m.Lock.Release()
	}

	for key := range m.fired {
		if len(key) < len(minute) || key[len(key)-len(minute):] != minute {
			delete(m.fired, key)
		}
	}
}
