package mail

import (
	"errors"
	"fmt"
)

// Error represents a Gmail API error.
type Error struct {
	// Code is the API error code.
	Code int `json:"code"`

	// Message is the error message.
	Message string `json:"message"`

	// Status is the canonical status string, e.g. "RESOURCE_EXHAUSTED".
	Status string `json:"status"`

	// HTTPStatus is the HTTP status code.
	HTTPStatus int `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("gmail: %s (code=%d, status=%s)", e.Message, e.Code, e.Status)
}

// IsRateLimit returns true if this is a rate limit error.
func (e *Error) IsRateLimit() bool {
	return e.HTTPStatus == 429 || e.Status == "RESOURCE_EXHAUSTED"
}

// IsAuth returns true if the credentials were rejected.
func (e *Error) IsAuth() bool {
	return e.HTTPStatus == 401 || e.HTTPStatus == 403
}

// IsNotFound returns true if the message does not exist.
func (e *Error) IsNotFound() bool {
	return e.HTTPStatus == 404
}

// IsServerError returns true if this is a server-side error.
func (e *Error) IsServerError() bool {
	return e.HTTPStatus >= 500
}

// Retryable returns true if the request can be retried.
func (e *Error) Retryable() bool {
	return e.IsRateLimit() || e.IsServerError()
}

// AsError extracts *Error from an error.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
