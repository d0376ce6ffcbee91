package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"time"
)

// TransportError represents a failure to reach the upstream service:
// DNS, connection refused, TLS, or the request timing out.
type TransportError struct {
	URL     string
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("request to %s timed out: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a TransportError for the given URL.
func NewTransportError(url string, timeout bool, err error) *TransportError {
	return &TransportError{URL: url, Timeout: timeout, Err: err}
}

// UpstreamError represents a non-2xx answer from the upstream service.
// Message carries the error text embedded in the response body when the
// provider sent one.
type UpstreamError struct {
	URL        string
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("upstream returned HTTP %d for %s", e.StatusCode, e.URL)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(" (retry after %s)", e.RetryAfter)
	}
	return msg
}

// Is lets a 404 from upstream satisfy errors.Is(err, ErrNotFound).
func (e *UpstreamError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// NewUpstreamError creates an UpstreamError.
func NewUpstreamError(url string, status int, message string) *UpstreamError {
	return &UpstreamError{URL: url, StatusCode: status, Message: message}
}

// NewRateLimitError creates an UpstreamError for an HTTP 429 answer.
func NewRateLimitError(url, message string, retryAfter time.Duration) *UpstreamError {
	return &UpstreamError{
		URL:        url,
		StatusCode: http.StatusTooManyRequests,
		Message:    message,
		RetryAfter: retryAfter,
	}
}

// DecodeError represents a response body that could not be parsed into the
// expected schema.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding response from %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// NewDecodeError creates a DecodeError.
func NewDecodeError(url string, err error) *DecodeError {
	return &DecodeError{URL: url, Err: err}
}

// IsTransportError checks if an error is a TransportError
func IsTransportError(err error) bool {
	var target *TransportError
	return stdErrors.As(err, &target)
}

// IsTimeout checks if an error is a TransportError caused by a timeout
func IsTimeout(err error) bool {
	var target *TransportError
	return stdErrors.As(err, &target) && target.Timeout
}

// IsUpstreamError checks if an error is an UpstreamError
func IsUpstreamError(err error) bool {
	var target *UpstreamError
	return stdErrors.As(err, &target)
}

// IsRateLimitError checks if an error is an UpstreamError for HTTP 429
func IsRateLimitError(err error) bool {
	var target *UpstreamError
	return stdErrors.As(err, &target) && target.StatusCode == http.StatusTooManyRequests
}

// IsDecodeError checks if an error is a DecodeError
func IsDecodeError(err error) bool {
	var target *DecodeError
	return stdErrors.As(err, &target)
}
