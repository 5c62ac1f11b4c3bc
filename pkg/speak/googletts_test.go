package speak_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/necklaceai/necklace/go/pkg/audio/pcm"
	"github.com/necklaceai/necklace/go/pkg/speak"
)

func TestVoiceFor(t *testing.T) {
	if v := speak.VoiceFor("en"); v.Name != "en-US-Neural2-F" {
		t.Errorf("en voice = %q", v.Name)
	}
	if v := speak.VoiceFor("tlh"); v.Name != "ja-JP-Neural2-B" {
		t.Errorf("unknown language should fall back to Japanese, got %q", v.Name)
	}
}

func TestSynthesizeStripsWAV(t *testing.T) {
	samples := make([]byte, 2400*2) // 100ms of silence at 24kHz
	wav := pcm.EncodeWAV(pcm.L16Mono24K, samples)

	var gotVoice string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input struct {
				Text string `json:"text"`
			} `json:"input"`
			Voice struct {
				Name string `json:"name"`
			} `json:"voice"`
			AudioConfig struct {
				AudioEncoding   string `json:"audioEncoding"`
				SampleRateHertz int    `json:"sampleRateHertz"`
			} `json:"audioConfig"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		gotVoice = req.Voice.Name
		if req.AudioConfig.AudioEncoding != "LINEAR16" || req.AudioConfig.SampleRateHertz != 24000 {
			t.Errorf("audio config = %+v", req.AudioConfig)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"audioContent": base64.StdEncoding.EncodeToString(wav),
		})
	}))
	defer srv.Close()

	tts := speak.NewGoogleTTS("key", speak.WithBaseURL(srv.URL), speak.WithRetry(0))
	data, rate, err := tts.Synthesize(context.Background(), "こんにちは", "ja")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if gotVoice != "ja-JP-Neural2-B" {
		t.Errorf("voice = %q", gotVoice)
	}
	if rate != 24000 {
		t.Errorf("rate = %d", rate)
	}
	if len(data) != len(samples) {
		t.Errorf("got %d PCM bytes, want %d (container not stripped?)", len(data), len(samples))
	}
}

func TestSynthesizeRetriesServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"code": 503, "message": "overloaded", "status": "UNAVAILABLE"},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"audioContent": base64.StdEncoding.EncodeToString(pcm.EncodeWAV(pcm.L16Mono24K, []byte{0, 0})),
		})
	}))
	defer srv.Close()

	tts := speak.NewGoogleTTS("key", speak.WithBaseURL(srv.URL), speak.WithRetry(2))
	if _, _, err := tts.Synthesize(context.Background(), "hi", "en"); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestSynthesizeDoesNotRetryBadRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 400, "message": "bad voice", "status": "INVALID_ARGUMENT"},
		})
	}))
	defer srv.Close()

	tts := speak.NewGoogleTTS("key", speak.WithBaseURL(srv.URL), speak.WithRetry(3))
	_, _, err := tts.Synthesize(context.Background(), "hi", "en")
	if err == nil {
		t.Fatal("want error")
	}
	apiErr, ok := speak.AsError(err)
	if !ok || apiErr.Retryable() {
		t.Errorf("err = %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}
