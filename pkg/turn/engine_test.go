package turn_test

import (
	"context"
	"strings"
	"testing"

	"github.com/necklaceai/necklace/go/pkg/alarm"
	"github.com/necklaceai/necklace/go/pkg/audio/pcm"
	"github.com/necklaceai/necklace/go/pkg/convo"
	"github.com/necklaceai/necklace/go/pkg/device"
	"github.com/necklaceai/necklace/go/pkg/kv"
	"github.com/necklaceai/necklace/go/pkg/mind"
	"github.com/necklaceai/necklace/go/pkg/turn"
)

// scriptedGen replays canned replies in order and records requests.
type scriptedGen struct {
	replies  []*mind.Reply
	requests []*mind.Request
}

func (g *scriptedGen) Generate(_ context.Context, req *mind.Request) (*mind.Reply, error) {
	g.requests = append(g.requests, req)
	if len(g.replies) == 0 {
		return &mind.Reply{Text: "ok"}, nil
	}
	r := g.replies[0]
	g.replies = g.replies[1:]
	return r, nil
}

type fakeSynth struct {
	spoken []spokenText
}

type spokenText struct {
	text string
	lang string
}

func (s *fakeSynth) Synthesize(_ context.Context, text, lang string) ([]byte, int, error) {
	s.spoken = append(s.spoken, spokenText{text, lang})
	return make([]byte, 960), 48000, nil
}

type fakeMessenger struct {
	audio []byte
	text  string
	sent  int
}

func (f *fakeMessenger) Send(_ context.Context, audio []byte, text string) error {
	f.audio, f.text = audio, text
	f.sent++
	return nil
}

type heldTrigger bool

func (h heldTrigger) Pressed() bool { return bool(h) }

type engineFixture struct {
	engine *turn.Engine
	gen    *scriptedGen
	synth  *fakeSynth
	msgr   *fakeMessenger
	played int
}

func newEngine(t *testing.T, replies ...*mind.Reply) *engineFixture {
	t.Helper()
	store := kv.NewMemory()
	t.Cleanup(func() { store.Close() })
	book, err := alarm.Load(context.Background(), store)
	if err != nil {
		t.Fatal(err)
	}

	f := &engineFixture{
		gen:   &scriptedGen{replies: replies},
		synth: &fakeSynth{},
		msgr:  &fakeMessenger{},
	}
	translate := &turn.TranslateMode{}
	f.engine = &turn.Engine{
		Gen:   f.gen,
		Retry: mind.RetryPolicy{MaxAttempts: 1},
		Synth: f.synth,
		Capture: func(context.Context) ([]byte, error) {
			return make([]byte, 4096), nil
		},
		Play: func(context.Context, []byte) error {
			f.played++
			return nil
		},
		Trigger: heldTrigger(true),
		Lock:    &device.Lock{},
		History: convo.New(convo.DefaultLimit),
		Tools: &turn.Dispatcher{
			Book:      book,
			Translate: translate,
			Describe: func(context.Context, string, []byte) (string, error) {
				return "赤いリンゴが写っています。", nil
			},
			CanSendVoice: true,
		},
		Translate:     translate,
		Messenger:     f.msgr,
		CaptureFormat: pcm.L16Mono44K1,
		OutputRate:    48000,
	}
	return f
}

func transcriptReply(text string) *mind.Reply { return &mind.Reply{Text: text} }

func TestPlainTextTurn(t *testing.T) {
	f := newEngine(t,
		transcriptReply("今日の天気は？"),
		&mind.Reply{Text: "晴れです。"},
	)

	if err := f.engine.Turn(context.Background()); err != nil {
		t.Fatalf("Turn: %v", err)
	}

	if f.played != 1 {
		t.Errorf("played %d buffers, want 1", f.played)
	}
	if len(f.synth.spoken) != 1 || f.synth.spoken[0] != (spokenText{"晴れです。", "ja"}) {
		t.Errorf("spoken = %+v", f.synth.spoken)
	}

	entries := f.engine.History.Entries()
	if len(entries) != 2 {
		t.Fatalf("history length = %d, want 2", len(entries))
	}
	if entries[0].Role != convo.RoleUser || entries[1].Role != convo.RoleAssistant {
		t.Errorf("history roles = %v, %v", entries[0].Role, entries[1].Role)
	}

	// First backend call is the transcription, second the reasoning.
	if len(f.gen.requests) != 2 {
		t.Fatalf("backend calls = %d, want 2", len(f.gen.requests))
	}
	if f.gen.requests[0].Messages[0].Blobs == nil {
		t.Error("transcription request should carry the audio blob")
	}
	if f.gen.requests[1].Tools == nil {
		t.Error("reasoning request should declare the tool catalog")
	}
}

func TestShortCaptureEndsSilently(t *testing.T) {
	f := newEngine(t)
	f.engine.Capture = func(context.Context) ([]byte, error) { return nil, nil }

	if err := f.engine.Turn(context.Background()); err != nil {
		t.Fatalf("Turn: %v", err)
	}
	if len(f.gen.requests) != 0 {
		t.Error("short capture must not reach the backend")
	}
	if f.played != 0 || len(f.synth.spoken) != 0 {
		t.Error("short capture must not produce audio")
	}
}

func TestEmptyTranscriptEndsSilently(t *testing.T) {
	f := newEngine(t, transcriptReply("   "))

	if err := f.engine.Turn(context.Background()); err != nil {
		t.Fatalf("Turn: %v", err)
	}
	if len(f.gen.requests) != 1 {
		t.Errorf("backend calls = %d, want transcription only", len(f.gen.requests))
	}
	if f.played != 0 {
		t.Error("empty transcript must not produce audio")
	}
	if f.engine.History.Len() != 0 {
		t.Error("empty transcript must not enter history")
	}
}

func TestToolTurnRetractsUserEntry(t *testing.T) {
	f := newEngine(t,
		transcriptReply("アラームを7時にセットして"),
		&mind.Reply{Call: &mind.FuncCall{Name: "alarm_set", Arguments: `{"time":"07:00"}`}},
		&mind.Reply{Text: "7時にアラームを設定しました。"},
	)

	before := f.engine.History.Len()
	if err := f.engine.Turn(context.Background()); err != nil {
		t.Fatalf("Turn: %v", err)
	}

	if got := f.engine.History.Len(); got != before {
		t.Errorf("history length = %d after tool turn, want %d", got, before)
	}
	if len(f.synth.spoken) != 1 || f.synth.spoken[0].text != "7時にアラームを設定しました。" {
		t.Errorf("spoken = %+v", f.synth.spoken)
	}

	// The continuation request carries the call and its result and no
	// tool catalog.
	if len(f.gen.requests) != 3 {
		t.Fatalf("backend calls = %d, want 3", len(f.gen.requests))
	}
	cont := f.gen.requests[2]
	if cont.Tools != nil {
		t.Error("summary request must not re-declare tools")
	}
	last := cont.Messages[len(cont.Messages)-1]
	if last.Response == nil || !strings.Contains(last.Response.Result, "アラーム") {
		t.Errorf("continuation tail = %+v", last)
	}

	// The alarm really was set.
	if !strings.Contains(f.engine.Tools.Book.List(), "07:00") {
		t.Error("alarm_set side effect missing")
	}
}

func TestVoiceRecordSentinelShortCircuits(t *testing.T) {
	f := newEngine(t,
		transcriptReply("スマホにメッセージを送って"),
		&mind.Reply{Call: &mind.FuncCall{Name: "voice_record_send", Arguments: `{}`}},
		transcriptReply("こんにちは"), // transcript of the recorded note
	)
	f.engine.History.Add(convo.RoleUser, "古い質問")
	f.engine.History.Add(convo.RoleAssistant, "古い答え")

	if err := f.engine.Turn(context.Background()); err != nil {
		t.Fatalf("Turn: %v", err)
	}

	if f.msgr.sent != 1 {
		t.Fatal("voice note was not sent")
	}
	if f.msgr.text != "こんにちは" {
		t.Errorf("transcript = %q", f.msgr.text)
	}
	if _, _, err := pcm.DecodeWAV(f.msgr.audio); err != nil {
		t.Error("outbound note should be WAV wrapped")
	}
	if f.engine.History.Len() != 0 {
		t.Error("history must be reset by the voice-message sequence")
	}

	// Spoken: readiness announcement, then the success report. No
	// summarization round for the sentinel.
	if len(f.synth.spoken) != 2 {
		t.Fatalf("spoken = %+v", f.synth.spoken)
	}
	if f.synth.spoken[1].text != "メッセージをスマホに送信しました" {
		t.Errorf("result speech = %q", f.synth.spoken[1].text)
	}
}

func TestTurnSkippedWhenDeviceBusy(t *testing.T) {
	f := newEngine(t)
	f.engine.Lock.TryAcquire()
	defer f.engine.Lock.Release()

	if err := f.engine.Turn(context.Background()); err != nil {
		t.Fatalf("Turn: %v", err)
	}
	if len(f.gen.requests) != 0 || f.played != 0 {
		t.Error("busy device must skip the turn entirely")
	}
}

func TestTranslationTurnBypassesHistory(t *testing.T) {
	f := newEngine(t,
		transcriptReply("おはようございます"),
		&mind.Reply{Text: "Good morning."},
	)
	f.engine.Translate.On("ja", "en")

	if err := f.engine.Turn(context.Background()); err != nil {
		t.Fatalf("Turn: %v", err)
	}

	if f.engine.History.Len() != 0 {
		t.Error("translation turns must not touch history")
	}
	if len(f.synth.spoken) != 1 || f.synth.spoken[0] != (spokenText{"Good morning.", "en"}) {
		t.Errorf("spoken = %+v", f.synth.spoken)
	}
	// The translation request declares no tools.
	if f.gen.requests[1].Tools != nil {
		t.Error("translation request must not declare tools")
	}
}
