// Package mail is a small Gmail REST client for the assistant's email
// tools. It covers exactly the surface the voice tools need: listing and
// reading messages, sending, replying in-thread, and photo attachments.
package mail

import (
	"net/http"
	"time"
)

const (
	// DefaultBaseURL is the Gmail API base URL.
	DefaultBaseURL = "https://gmail.googleapis.com"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the default maximum number of retries.
	DefaultMaxRetries = 3

	// DefaultQuery selects the messages List fetches when the model
	// supplies no query of its own.
	DefaultQuery = "is:unread"

	// DefaultMaxResults bounds a List when the model gives no count.
	DefaultMaxResults = 5
)

// TokenSource supplies a bearer token for each request. OAuth access
// tokens expire, so the client asks per request instead of caching.
type TokenSource func() (string, error)

// StaticToken returns a TokenSource that always yields tok.
func StaticToken(tok string) TokenSource {
	return func() (string, error) { return tok, nil }
}

// Client is the Gmail API client.
type Client struct {
	// Rolodex remembers the summaries of the most recent List so later
	// tool calls can refer to messages by their spoken ordinal.
	Rolodex *Rolodex

	config *clientConfig
	http   *httpClient
}

// clientConfig holds the client configuration.
type clientConfig struct {
	token      TokenSource
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	maxRetries int
}

// Option is a function that configures the client.
type Option func(*clientConfig)

// WithBaseURL sets a custom base URL for the API.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithRetry sets the maximum number of retries for transient errors.
func WithRetry(maxRetries int) Option {
	return func(c *clientConfig) {
		c.maxRetries = maxRetries
	}
}

// NewClient creates a new Gmail API client authenticated by token.
func NewClient(token TokenSource, opts ...Option) *Client {
	cfg := &clientConfig{
		token:      token,
		baseURL:    DefaultBaseURL,
		timeout:    DefaultTimeout,
		maxRetries: DefaultMaxRetries,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.httpClient == nil {
		cfg.httpClient = &http.Client{
			Timeout: cfg.timeout,
		}
	}

	return &Client{
		Rolodex: &Rolodex{},
		config:  cfg,
		http:    newHTTPClient(cfg),
	}
}
