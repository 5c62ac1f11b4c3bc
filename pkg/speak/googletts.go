package speak

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/necklaceai/necklace/go/pkg/audio/pcm"
)

const (
	// DefaultBaseURL is the Cloud Text-to-Speech API base URL.
	DefaultBaseURL = "https://texttospeech.googleapis.com"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the default maximum number of retries.
	DefaultMaxRetries = 3

	// synthesisRate is the PCM rate requested from the API.
	synthesisRate = 24000
)

// Error represents a Text-to-Speech API error.
type Error struct {
	Code       int    `json:"code"`
	Message    string `json:"message"`
	Status     string `json:"status"`
	HTTPStatus int    `json:"-"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("tts: %s (code=%d, status=%s)", e.Message, e.Code, e.Status)
}

// Retryable returns true if the request can be retried.
func (e *Error) Retryable() bool {
	return e.HTTPStatus == 429 || e.HTTPStatus >= 500 || e.Status == "RESOURCE_EXHAUSTED"
}

// AsError extracts *Error from an error.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// GoogleTTS synthesizes speech through the Cloud Text-to-Speech REST
// API, authenticated by API key.
type GoogleTTS struct {
	config *ttsConfig
}

type ttsConfig struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	maxRetries int
}

// Option is a function that configures the synthesizer.
type Option func(*ttsConfig)

// WithBaseURL sets a custom base URL for the API.
func WithBaseURL(url string) Option {
	return func(c *ttsConfig) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *ttsConfig) { c.httpClient = client }
}

// WithRetry sets the maximum number of retries for transient errors.
func WithRetry(maxRetries int) Option {
	return func(c *ttsConfig) { c.maxRetries = maxRetries }
}

// NewGoogleTTS creates a synthesizer using the given API key.
func NewGoogleTTS(apiKey string, opts ...Option) *GoogleTTS {
	cfg := &ttsConfig{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.httpClient == nil {
		cfg.httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &GoogleTTS{config: cfg}
}

type synthesizeRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice       Voice `json:"voice"`
	AudioConfig struct {
		AudioEncoding   string `json:"audioEncoding"`
		SampleRateHertz int    `json:"sampleRateHertz"`
	} `json:"audioConfig"`
}

type synthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

// Synthesize renders text as mono 16-bit PCM at 24 kHz. The API wraps
// LINEAR16 output in a WAV container, which is stripped here.
func (g *GoogleTTS) Synthesize(ctx context.Context, text, lang string) ([]byte, int, error) {
	var req synthesizeRequest
	req.Input.Text = text
	req.Voice = VoiceFor(lang)
	req.AudioConfig.AudioEncoding = "LINEAR16"
	req.AudioConfig.SampleRateHertz = synthesisRate

	body, err := json.Marshal(&req)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= g.config.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(backoff):
			}
		}

		data, rate, err := g.synthesizeOnce(ctx, body)
		if err == nil {
			return data, rate, nil
		}
		lastErr = err

		if apiErr, ok := AsError(err); ok && !apiErr.Retryable() {
			return nil, 0, err
		}
	}
	return nil, 0, lastErr
}

func (g *GoogleTTS) synthesizeOnce(ctx context.Context, body []byte) ([]byte, int, error) {
	url := g.config.baseURL + "/v1/text:synthesize?key=" + g.config.apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.config.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var wrapper struct {
			Error *Error `json:"error"`
		}
		if err := json.Unmarshal(respBody, &wrapper); err == nil && wrapper.Error != nil {
			wrapper.Error.HTTPStatus = resp.StatusCode
			return nil, 0, wrapper.Error
		}
		return nil, 0, &Error{Code: resp.StatusCode, Message: string(respBody), HTTPStatus: resp.StatusCode}
	}

	var sr synthesizeResponse
	if err := json.Unmarshal(respBody, &sr); err != nil {
		return nil, 0, fmt.Errorf("unmarshal response: %w", err)
	}
	audio, err := base64.StdEncoding.DecodeString(sr.AudioContent)
	if err != nil {
		return nil, 0, fmt.Errorf("decode audio: %w", err)
	}

	// LINEAR16 arrives as a WAV file; bare PCM is passed through.
	if info, data, err := pcm.DecodeWAV(audio); err == nil {
		return data, info.SampleRate, nil
	}
	return audio, synthesisRate, nil
}
