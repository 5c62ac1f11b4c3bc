package turn_test

import (
	"context"
	"testing"

	"github.com/necklaceai/necklace/go/pkg/mind"
	"github.com/necklaceai/necklace/go/pkg/turn"
)

func TestTranslateRoundTrip(t *testing.T) {
	m := &turn.TranslateMode{}
	m.On("ja", "en")

	// Japanese input comes back tagged as the target language.
	gen := &scriptedGen{replies: []*mind.Reply{{Text: "Good morning."}}}
	text, lang, err := m.Translate(context.Background(), mind.RetryPolicy{}, gen, "おはようございます")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if text != "Good morning." || lang != "en" {
		t.Errorf("got (%q, %q), want (Good morning., en)", text, lang)
	}

	// Non-Japanese input comes back tagged as the source language.
	gen = &scriptedGen{replies: []*mind.Reply{{Text: "おはようございます。"}}}
	_, lang, err = m.Translate(context.Background(), mind.RetryPolicy{}, gen, "Good morning, how are you?")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if lang != "ja" {
		t.Errorf("output lang = %q, want ja", lang)
	}
}

func TestTranslateMixedScript(t *testing.T) {
	m := &turn.TranslateMode{}
	m.On("ja", "en")

	// Mostly Latin text with a couple of CJK characters stays below
	// the tenth-of-characters threshold.
	gen := &scriptedGen{replies: []*mind.Reply{{Text: "x"}}}
	_, lang, err := m.Translate(context.Background(), mind.RetryPolicy{}, gen,
		"The restaurant called 寿司 is open until nine tonight every day")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if lang != "ja" {
		t.Errorf("output lang = %q, want ja for non-Japanese input", lang)
	}
}

func TestTranslateDefaults(t *testing.T) {
	m := &turn.TranslateMode{}
	msg := m.On("", "")
	if !m.Active() {
		t.Fatal("mode should be active")
	}
	if msg != "翻訳モードを開始しました。日本語から英語に翻訳します。「通訳モード終了」で終了できます。" {
		t.Errorf("confirmation = %q", msg)
	}
}
