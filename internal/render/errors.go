package render

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// FetchError describes a failed page fetch.
// It carries enough context for the traversal controller to decide
// between retrying and dropping the URL.
type FetchError struct {
	// URL is the URL whose fetch failed.
	URL string

	// StatusCode is the HTTP status received, or 0 when the failure
	// happened before a response arrived.
	StatusCode int

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: http status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether a fetch failure is worth retrying.
// Network errors, timeouts, and server-side (5xx) responses are
// transient; client errors (4xx) and non-HTML content are not, since
// retrying them cannot change the outcome.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	// Operator cancellation is never retried.
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var fe *FetchError
	if errors.As(err, &fe) {
		if fe.StatusCode >= 500 {
			return true
		}
		if fe.StatusCode >= 400 {
			return false
		}
		return IsTransient(fe.Err)
	}

	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}

	return false
}
