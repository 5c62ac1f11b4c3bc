package turn

import (
	"context"
	"fmt"
	"strings"

	"github.com/necklaceai/necklace/go/pkg/mind"
)

// TranslateMode is the interpreter state: while active, every utterance
// bypasses history and tools and is translated between the configured
// language pair. Owned by the engine's goroutine.
type TranslateMode struct {
	active bool
	source string
	target string
}

var langNames = map[string]string{
	"ja": "日本語", "en": "英語", "zh": "中国語",
	"ko": "韓国語", "es": "スペイン語", "fr": "フランス語", "de": "ドイツ語",
}

func langName(code string) string {
	if n, ok := langNames[code]; ok {
		return n
	}
	return code
}

// On activates translation between source and target, defaulting to
// Japanese and English, and returns the spoken confirmation.
func (m *TranslateMode) On(source, target string) string {
	if source == "" {
		source = "ja"
	}
	if target == "" {
		target = "en"
	}
	m.active = true
	m.source = source
	m.target = target
	return fmt.Sprintf("翻訳モードを開始しました。%sから%sに翻訳します。「通訳モード終了」で終了できます。",
		langName(source), langName(target))
}

// Off deactivates translation and returns the spoken confirmation.
func (m *TranslateMode) Off() string {
	m.active = false
	return "翻訳モードを終了しました。通常モードに戻ります。"
}

// Active reports whether utterances should take the translation path.
func (m *TranslateMode) Active() bool {
	return m.active
}

// Translate renders text into whichever of the language pair the input
// is not in, and returns the translation with its output language tag.
// Stateless with respect to conversation history.
func (m *TranslateMode) Translate(ctx context.Context, p mind.RetryPolicy, g mind.Generator, text string) (string, string, error) {
	output := m.target
	if detectLanguage(text) != m.source {
		output = m.source
	}

	prompt := fmt.Sprintf(`以下のテキストを翻訳してください。

入力言語が%sの場合は%sに翻訳してください。
入力言語が%sの場合は%sに翻訳してください。

翻訳結果のみを出力してください。説明や注釈は不要です。

テキスト: %s`, m.source, m.target, m.target, m.source, text)

	reply, err := p.Generate(ctx, g, &mind.Request{
		Messages: []*mind.Message{{Role: mind.RoleUser, Text: prompt}},
	})
	if err != nil {
		return "", "", err
	}
	return strings.TrimSpace(reply.Text), output, nil
}

// detectLanguage classifies text as "ja" when more than a tenth of its
// characters are kana or CJK ideographs, otherwise "en".
func detectLanguage(text string) string {
	runes := []rune(text)
	if len(runes) == 0 {
		return "en"
	}
	japanese := 0
	for _, r := range runes {
		if (r >= 0x3040 && r <= 0x309F) || // hiragana
			(r >= 0x30A0 && r <= 0x30FF) || // katakana
			(r >= 0x4E00 && r <= 0x9FFF) { // CJK ideographs
			japanese++
		}
	}
	if japanese*10 > len(runes) {
		return "ja"
	}
	return "en"
}
