package pushvoice

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/necklaceai/necklace/go/pkg/device"
)

// Listener plays inbound voice notes as they arrive. It prefers a
// websocket push channel and falls back to polling when no channel is
// configured or the channel drops.
//
// A note that arrives while the output device is busy is skipped for
// that wakeup; it stays pending upstream and is picked up on the next
// one. No wakeup ever blocks on the lock.
type Listener struct {
	Messenger Messenger
	Lock      *device.Lock

	// Play writes mono PCM at OutputRate to the speaker.
	Play func(ctx context.Context, pcmData []byte) error

	// Chime is prepended to every played note. Optional.
	Chime []byte

	// OutputRate is the speaker's sample rate.
	OutputRate int

	// PushURL is the websocket endpoint for push notifications.
	// Empty means poll-only.
	PushURL string

	// Interval overrides DefaultPollInterval when positive.
	Interval time.Duration
}

// Run listens until ctx is cancelled. Failures are logged; the loop
// never stops on its own.
func (l *Listener) Run(ctx context.Context) {
	interval := l.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	wake := make(chan struct{}, 1)
	if l.PushURL != "" {
		go l.subscribe(ctx, wake)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-wake:
		case <-ticker.C:
		}
		l.Poll(ctx)
	}
}

// Poll fetches pending notes and plays them in order.
func (l *Listener) Poll(ctx context.Context) {
	notes, err := l.Messenger.Fetch(ctx)
	if err != nil {
		slog.Debug("voice note fetch failed", "error", err)
		return
	}
	for _, note := range notes {
		if ctx.Err() != nil {
			return
		}
		l.handle(ctx, note)
	}
}

func (l *Listener) handle(ctx context.Context, note Note) {
	if !l.Lock.TryAcquire() {
		slog.Info("voice note deferred, audio device busy", "id", note.ID)
		return
	}
	defer l.Lock.Release()

	slog.Info("voice note received", "id", note.ID, "filename", note.Filename)

	data, err := l.Messenger.Download(ctx, note)
	if err != nil {
		slog.Error("voice note download failed", "id", note.ID, "error", err)
		return
	}
	pcmData, err := Transcode(data, l.OutputRate)
	if err != nil {
		slog.Error("voice note transcode failed", "id", note.ID, "error", err)
		return
	}

	if len(l.Chime) > 0 {
		if err := l.Play(ctx, l.Chime); err != nil {
			slog.Error("chime playback failed", "error", err)
		}
	}
	if err := l.Play(ctx, pcmData); err != nil {
		slog.Error("voice note playback failed", "id", note.ID, "error", err)
		return
	}

	if err := l.Messenger.MarkPlayed(ctx, note.ID); err != nil {
		// Played but not acknowledged; it will replay next poll.
		slog.Error("voice note ack failed", "id", note.ID, "error", err)
	}
}

// subscribe keeps a websocket open and signals wake on every
// notification. Reconnects with a flat delay on any failure.
func (l *Listener) subscribe(ctx context.Context, wake chan<- struct{}) {
	const reconnectDelay = 5 * time.Second

	for ctx.Err() == nil {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, l.PushURL, nil)
		if err != nil {
			slog.Debug("push channel dial failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
			}
			continue
		}
		slog.Info("push channel connected", "url", l.PushURL)

		go func() {
			<-ctx.Done()
			conn.Close()
		}()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				slog.Debug("push channel closed", "error", err)
				break
			}
			var event struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(msg, &event); err != nil || event.Type != "voice_message" {
				continue
			}
			select {
			case wake <- struct{}{}:
			default:
			}
		}
		conn.Close()
	}
}
