// Package pushvoice exchanges short voice notes with the companion
// phone app. Inbound notes are fetched from the relay service and
// played on the device; outbound notes are recorded on the device and
// pushed to the phone.
package pushvoice

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

	"github.com/google/uuid"
)

const (
	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultPollInterval is how often the listener polls for new
	// notes when no push channel is available.
	DefaultPollInterval = 1500 * time.Millisecond
)

// Note is one voice message in the relay.
type Note struct {
	ID       string `json:"id"`
	AudioURL string `json:"audio_url"`
	Filename string `json:"filename"`
	Text     string `json:"text,omitempty"`
	Created  string `json:"created_at,omitempty"`
}

// Messenger is the relay surface the listener and the record-and-send
// tool need.
type Messenger interface {
	// Fetch returns inbound notes not yet marked played, oldest first.
	Fetch(ctx context.Context) ([]Note, error)

	// Download retrieves a note's audio container.
	Download(ctx context.Context, note Note) ([]byte, error)

	// MarkPlayed records upstream that the note was played.
	MarkPlayed(ctx context.Context, id string) error

	// Send pushes recorded audio (WAV) and an optional transcript to
	// the phone.
	Send(ctx context.Context, audio []byte, text string) error
}

// Error represents a relay API error.
type Error struct {
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("pushvoice: %s (http=%d)", e.Message, e.HTTPStatus)
}

// Retryable returns true if the request can be retried.
func (e *Error) Retryable() bool {
	return e.HTTPStatus == 429 || e.HTTPStatus >= 500
}

// AsError extracts *Error from an error.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Client talks to the voice relay over REST.
type Client struct {
	baseURL  string
	deviceID string
	token    string
	http     *http.Client
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// NewClient creates a relay client for the given device identity.
func NewClient(baseURL, deviceID, token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  baseURL,
		deviceID: deviceID,
		token:    token,
		http:     &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch implements Messenger.
func (c *Client) Fetch(ctx context.Context) ([]Note, error) {
	var out struct {
		Messages []Note `json:"messages"`
	}
	path := fmt.Sprintf("/v1/devices/%s/messages?status=pending", c.deviceID)
	if err := c.do(ctx, http.MethodGet, c.baseURL+path, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// Download implements Messenger. The audio URL is absolute and may
// point at object storage rather than the relay itself.
func (c *Client) Download(ctx context.Context, note Note) ([]byte, error) {
	if note.AudioURL == "" {
		return nil, errors.New("pushvoice: note has no audio url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, note.AudioURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &Error{Message: string(body), HTTPStatus: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}

// MarkPlayed implements Messenger.
func (c *Client) MarkPlayed(ctx context.Context, id string) error {
	path := fmt.Sprintf("/v1/messages/%s/played", id)
	return c.do(ctx, http.MethodPost, c.baseURL+path, struct{}{}, nil)
}

// Send implements Messenger. The note ID is minted here so the upload
// is idempotent on retry.
func (c *Client) Send(ctx context.Context, audio []byte, text string) error {
	body := map[string]string{
		"id":       uuid.NewString(),
		"from":     c.deviceID,
		"audio":    base64.StdEncoding.EncodeToString(audio),
		"filename": "voice_" + time.Now().Format("20060102_150405") + ".wav",
	}
	if text != "" {
		body["text"] = text
	}
	path := fmt.Sprintf("/v1/devices/%s/messages", c.deviceID)
	return c.do(ctx, http.MethodPost, c.baseURL+path, body, nil)
}

func (c *Client) do(ctx context.Context, method, url string, body, result any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr Error
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
			apiErr.HTTPStatus = resp.StatusCode
			return &apiErr
		}
		return &Error{Message: string(data), HTTPStatus: resp.StatusCode}
	}
	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
