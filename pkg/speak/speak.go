// Package speak turns assistant text into PCM audio.
package speak

import "context"

// Synthesizer converts text in a given language to mono 16-bit PCM.
// It returns the samples and their rate; callers resample for the
// output device.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, lang string) (pcm []byte, rate int, err error)
}

// Voice selects a cloud voice for one language.
type Voice struct {
	LanguageCode string `json:"languageCode"`
	Name         string `json:"name"`
	Gender       string `json:"ssmlGender"`
}

// voices maps the assistant's two-letter language tags to voices.
// Unknown tags fall back to Japanese, the assistant's home language.
var voices = map[string]Voice{
	"ja": {"ja-JP", "ja-JP-Neural2-B", "FEMALE"},
	"en": {"en-US", "en-US-Neural2-F", "FEMALE"},
	"zh": {"zh-CN", "zh-CN-Neural2-A", "FEMALE"},
	"ko": {"ko-KR", "ko-KR-Neural2-A", "FEMALE"},
	"fr": {"fr-FR", "fr-FR-Neural2-A", "FEMALE"},
	"de": {"de-DE", "de-DE-Neural2-A", "FEMALE"},
	"es": {"es-ES", "es-ES-Neural2-A", "FEMALE"},
}

// VoiceFor returns the voice for lang, defaulting to Japanese.
func VoiceFor(lang string) Voice {
	if v, ok := voices[lang]; ok {
		return v
	}
	return voices["ja"]
}
