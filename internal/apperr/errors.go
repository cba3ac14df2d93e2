// Package apperr defines the error taxonomy shared across the kit: HTTP
// errors carrying status and payload, transport-level network errors,
// cancellation, and not-found results.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors used with errors.Is.
var (
	ErrNotFound = errors.New("not found")
	ErrNetwork  = errors.New("network error")
)

// HTTPError is raised for any response outside the 2xx range. It carries
// the numeric status and the raw response body so callers can recover a
// server-provided message. The HTTP layer never decides retryability; that
// is the cache layer's job.
type HTTPError struct {
	Status int
	Body   []byte
}

func (e *HTTPError) Error() string {
	text := http.StatusText(e.Status)
	if text == "" {
		text = "HTTP error"
	}
	return fmt.Sprintf("%s (status %d)", text, e.Status)
}

// NewHTTPError builds an HTTPError from a status and body.
func NewHTTPError(status int, body []byte) *HTTPError {
	return &HTTPError{Status: status, Body: body}
}

// IsHTTPError reports whether err carries an HTTP status, returning it.
func IsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	if errors.As(err, &he) {
		return he, true
	}
	return nil, false
}

// NetworkError wraps a transport failure where no response was obtained.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	if e.Err == nil {
		return "network error"
	}
	return "network error: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error { return ErrNetwork }

// IsNetworkError reports whether err is a transport-level failure.
func IsNetworkError(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// IsCancelled reports whether err comes from a cancelled or timed-out
// context. Cancelled requests are a distinct outcome: never retried, never
// cached.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// NotFoundError indicates an entity was absent in a read. Reads treat this
// as a normal result, not a failure.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFoundError creates a NotFoundError for the given resource and ID.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// IsNotFound reports whether err represents an absent entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
