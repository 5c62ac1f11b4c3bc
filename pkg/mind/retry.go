package mind

import (
	"context"
	"strings"
	"time"
)

// RetryPolicy retries an operation on transient backend failures with an
// increasing delay between attempts. The zero policy performs exactly one
// attempt.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// Delay is the base delay; attempt n sleeps n*Delay before retrying.
	Delay time.Duration

	// Retryable reports whether an error is worth another attempt.
	// Nil means IsTransient.
	Retryable func(error) bool
}

// DefaultRetryPolicy matches the service's observed overload behavior:
// three attempts, 2s then 4s between them, transient failures only.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Delay:       2 * time.Second,
		Retryable:   IsTransient,
	}
}

// Do runs fn, retrying per the policy. Non-retryable errors propagate
// immediately; ctx cancellation interrupts the backoff sleep.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsTransient
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt-1) * p.Delay):
			}
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// Generate calls g.Generate under the policy.
func (p RetryPolicy) Generate(ctx context.Context, g Generator, req *Request) (*Reply, error) {
	var reply *Reply
	err := p.Do(ctx, func() error {
		var err error
		reply, err = g.Generate(ctx, req)
		return err
	})
	return reply, err
}

// IsTransient reports whether the failure signature indicates transient
// service overload: HTTP 503/429 or an explicit overload message. All other
// failures are permanent and must not be retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "503"),
		strings.Contains(s, "429"),
		strings.Contains(s, "overloaded"),
		strings.Contains(s, "unavailable"),
		strings.Contains(s, "resource_exhausted"),
		strings.Contains(s, "rate limit"):
		return true
	}
	return false
}
