package turn

import (
	"context"
	"log/slog"
	"time"

	"github.com/necklaceai/necklace/go/pkg/audio/pcm"
)

const triggerPollInterval = 50 * time.Millisecond

// recordAndSendVoice runs the push-voice sequence: announce readiness,
// wait for the trigger, record, transcribe best-effort, and ship the
// recording to the phone. The conversation history is reset first so
// the interrupted flow cannot contaminate later reasoning.
func (e *Engine) recordAndSendVoice(ctx context.Context) error {
	e.History.Reset()

	if err := e.speakOut(ctx, "了解です。押しながら話してください。", "ja"); err != nil {
		return err
	}

	if e.Trigger != nil {
		if !e.waitForTrigger(ctx) {
			return ctx.Err()
		}
	}

	audio, err := e.Capture(ctx)
	if err != nil || audio == nil {
		if err != nil {
			slog.Error("voice message capture failed", "error", err)
		}
		return e.speakOut(ctx, "録音に失敗しました", "ja")
	}

	// Transcription is best-effort; the note still goes out without it.
	transcript, err := e.transcribe(ctx, audio)
	if err != nil {
		slog.Warn("voice message transcription failed", "error", err)
		transcript = ""
	}

	wav := pcm.EncodeWAV(e.CaptureFormat, audio)
	if err := e.Messenger.Send(ctx, wav, transcript); err != nil {
		slog.Error("voice message send failed", "error", err)
		return e.speakOut(ctx, "送信に失敗しました", "ja")
	}
	return e.speakOut(ctx, "メッセージをスマホに送信しました", "ja")
}

// waitForTrigger polls until the trigger is pressed or ctx is done.
func (e *Engine) waitForTrigger(ctx context.Context) bool {
	ticker := time.NewTicker(triggerPollInterval)
	defer ticker.Stop()
	for {
		if e.Trigger.Pressed() {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}
