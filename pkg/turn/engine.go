package turn

import (
	"context"
	"log/slog"
	"strings"

	"github.com/necklaceai/necklace/go/pkg/audio/pcm"
	"github.com/necklaceai/necklace/go/pkg/audio/resampler"
	"github.com/necklaceai/necklace/go/pkg/convo"
	"github.com/necklaceai/necklace/go/pkg/device"
	"github.com/necklaceai/necklace/go/pkg/mind"
	"github.com/necklaceai/necklace/go/pkg/speak"
)

// VoiceSender ships a recorded voice note to the companion phone.
// Satisfied by the pushvoice client.
type VoiceSender interface {
	Send(ctx context.Context, audio []byte, text string) error
}

// DefaultSystemPrompt steers the assistant toward short spoken answers
// and tells it when to reach for each tool.
const DefaultSystemPrompt = `あなたは親切なAIアシスタントです。
ユーザーの質問に簡潔に答えてください。
音声で読み上げられるため、1-2文程度の短い応答を心がけてください。
日本語で回答してください。

利用可能なツールがある場合は適切に使用してください。
ユーザーが「メールを確認」と言ったらgmail_listを使ってください。
ユーザーが「通訳モードにして」と言ったらtranslation_mode_onを使ってください。
ユーザーが「通訳モード終了」と言ったらtranslation_mode_offを使ってください。
ユーザーが「写真を撮って」と言ったらcamera_captureを使ってください。
ユーザーが「アラームをセット」と言ったらalarm_setを使ってください。
ユーザーが「スマホにメッセージを送って」と言ったらvoice_record_sendを使ってください。
`

const (
	transcribeInstruction = "この音声を正確に文字起こししてください。日本語または英語で話されています。文字起こし結果のみを出力してください。"
	summaryInstruction    = "ツールの実行結果を音声で読み上げるために、簡潔に日本語で要約してください。"
	apologyText           = "申し訳ありません。エラーが発生しました。"

	reasonMaxTokens  = 500
	summaryMaxTokens = 300
)

// Engine runs one conversational turn per trigger press: capture,
// transcribe, reason (possibly through one tool call), synthesize,
// play. It owns the conversation history and the translation mode;
// both are touched only from the goroutine calling Turn.
type Engine struct {
	Gen   mind.Generator
	Retry mind.RetryPolicy
	Synth speak.Synthesizer

	// Capture records one utterance of mono PCM in CaptureFormat.
	// A nil buffer with nil error means the recording was too short
	// to be a real utterance.
	Capture func(ctx context.Context) ([]byte, error)

	// Play writes mono PCM at OutputRate to the speaker.
	Play func(ctx context.Context, pcmData []byte) error

	// Trigger is polled by the voice-message sequence while waiting
	// for the user to start speaking. Nil in auto-capture mode.
	Trigger device.Trigger

	// Lock marks the audio device busy for the whole turn so the
	// alarm monitor and push listener stay silent meanwhile.
	Lock *device.Lock

	History   *convo.History
	Tools     *Dispatcher
	Translate *TranslateMode
	Messenger VoiceSender

	// CaptureFormat is the mic format, used to wrap outbound voice
	// notes in a WAV container.
	CaptureFormat pcm.Format

	// OutputRate is the speaker's fixed sample rate.
	OutputRate int

	// System overrides DefaultSystemPrompt when non-empty.
	System string
}

// Turn runs one complete capture-to-playback cycle. Degenerate input
// (short recording, empty transcript) ends the turn silently; backend
// failures are spoken as an apology. The returned error reports
// hardware trouble only and is never fatal to the caller's loop.
func (e *Engine) Turn(ctx context.Context) error {
	if !e.Lock.TryAcquire() {
		slog.Info("turn skipped, audio device busy")
		return nil
	}
	defer e.Lock.Release()

	audio, err := e.Capture(ctx)
	if err != nil {
		return err
	}
	if audio == nil {
		return nil
	}

	transcript, err := e.transcribe(ctx, audio)
	if err != nil {
		slog.Error("transcription failed", "error", err)
		return nil
	}
	if transcript == "" {
		slog.Info("empty transcript, ignoring")
		return nil
	}
	slog.Info("user utterance", "text", transcript)

	if e.Translate.Active() {
		text, lang, err := e.Translate.Translate(ctx, e.Retry, e.Gen, transcript)
		if err != nil {
			slog.Error("translation failed", "error", err)
			text, lang = apologyText, "ja"
		}
		return e.speakOut(ctx, text, lang)
	}

	response, voiceMsg := e.reason(ctx, transcript)
	if voiceMsg {
		return e.recordAndSendVoice(ctx)
	}
	if response == "" {
		return nil
	}
	return e.speakOut(ctx, response, "ja")
}

// transcribe asks the backend for a verbatim transcript of the
// captured audio.
func (e *Engine) transcribe(ctx context.Context, audio []byte) (string, error) {
	wav := pcm.EncodeWAV(e.CaptureFormat, audio)
	reply, err := e.Retry.Generate(ctx, e.Gen, &mind.Request{
		Messages: []*mind.Message{{
			Role:  mind.RoleUser,
			Text:  transcribeInstruction,
			Blobs: []*mind.Blob{{MIMEType: "audio/wav", Data: wav}},
		}},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply.Text), nil
}

// reason appends the transcript to history and asks the backend for a
// response, resolving at most one tool call. It returns the text to
// speak, or voiceMsg=true when a tool requested the record-and-send
// sequence.
func (e *Engine) reason(ctx context.Context, transcript string) (response string, voiceMsg bool) {
	e.History.Add(convo.RoleUser, transcript)

	messages := e.historyMessages()
	reply, err := e.Retry.Generate(ctx, e.Gen, &mind.Request{
		System:    e.systemPrompt(),
		Messages:  messages,
		Tools:     Catalog(),
		MaxTokens: reasonMaxTokens,
	})
	if err != nil {
		slog.Error("reasoning failed", "error", err)
		return apologyText, false
	}

	if reply.Call == nil {
		e.History.Add(convo.RoleAssistant, reply.Text)
		return reply.Text, false
	}

	slog.Info("tool call", "name", reply.Call.Name, "args", reply.Call.Arguments)
	result := e.Tools.Dispatch(ctx, reply.Call)
	if result.StartVoiceMessage {
		e.History.RetractLastUser()
		return "", true
	}
	slog.Info("tool result", "name", reply.Call.Name, "text", result.Text)

	// Continuation round: the call and its result go back to the
	// backend for a speakable summary. The user entry is retracted so
	// unreplayable tool artifacts never linger in history.
	continuation := append(messages,
		&mind.Message{Role: mind.RoleModel, Call: reply.Call},
		&mind.Message{Role: mind.RoleUser, Response: &mind.FuncResponse{
			Name:   reply.Call.Name,
			Result: result.Text,
		}},
	)
	summary, err := e.Retry.Generate(ctx, e.Gen, &mind.Request{
		System:    summaryInstruction,
		Messages:  continuation,
		MaxTokens: summaryMaxTokens,
	})
	e.History.RetractLastUser()
	if err != nil {
		slog.Error("tool summary failed", "error", err)
		return apologyText, false
	}
	return summary.Text, false
}

func (e *Engine) historyMessages() []*mind.Message {
	entries := e.History.Entries()
	messages := make([]*mind.Message, 0, len(entries))
	for _, entry := range entries {
		role := mind.RoleUser
		if entry.Role == convo.RoleAssistant {
			role = mind.RoleModel
		}
		messages = append(messages, &mind.Message{Role: role, Text: entry.Content})
	}
	return messages
}

func (e *Engine) systemPrompt() string {
	if e.System != "" {
		return e.System
	}
	return DefaultSystemPrompt
}

// Say synthesizes text and plays it immediately. For callers outside
// the turn flow, such as alarm announcements; the caller is expected to
// hold the device lock already.
func (e *Engine) Say(ctx context.Context, text, lang string) error {
	return e.speakOut(ctx, text, lang)
}

// speakOut synthesizes text and plays it, resampling to the device's
// output rate when the synthesized rate differs.
func (e *Engine) speakOut(ctx context.Context, text, lang string) error {
	audio, rate, err := e.Synth.Synthesize(ctx, text, lang)
	if err != nil {
		slog.Error("synthesis failed", "error", err)
		return nil
	}
	if rate != e.OutputRate {
		audio, err = resampler.Bytes(audio, rate, e.OutputRate)
		if err != nil {
			slog.Error("resample failed", "from", rate, "to", e.OutputRate, "error", err)
			return nil
		}
	}
	return e.Play(ctx, audio)
}
