package upstream

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrUnauthorized indicates the upstream rejected the session credentials
var ErrUnauthorized = errors.New("unauthorized: session rejected by upstream")

// StatusError is a non-success HTTP answer from the screener endpoint
type StatusError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface
func (e *StatusError) Error() string {
	return fmt.Sprintf("screener API error: status %d: %s", e.StatusCode, truncate(e.Body, 200))
}

// Unwrap lets errors.Is(err, ErrUnauthorized) classify rejections
func (e *StatusError) Unwrap() error {
	if e.IsUnauthorized() {
		return ErrUnauthorized
	}
	return nil
}

// IsUnauthorized checks if the error indicates an authentication failure
func (e *StatusError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// RateLimitError indicates upstream throttling. RetryAfter is zero when the
// upstream gave no hint.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited by upstream, retry after %s", e.RetryAfter)
	}
	return "rate limited by upstream"
}

// NetworkError is a transport failure or an unexpected HTTP status
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ResponseError indicates a response body that cannot be interpreted
type ResponseError struct {
	Reason string
	Err    error
}

func (e *ResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unexpected screener response: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("unexpected screener response: %s", e.Reason)
}

func (e *ResponseError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is worth retrying
func IsTransient(err error) bool {
	var rle *RateLimitError
	var ne *NetworkError
	return errors.As(err, &rle) || errors.As(err, &ne)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
