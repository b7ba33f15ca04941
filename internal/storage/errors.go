// ABOUTME: Typed transport errors returned by the remote board client.
// ABOUTME: Separates HTTP status failures from failures that never got a response.
package storage

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError is returned when the remote API answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote API returned %d: %s", e.Code, e.Body)
}

// HTTPStatus returns the response status code.
func (e *StatusError) HTTPStatus() int {
	return e.Code
}

// Transient reports whether the status is worth retrying (5xx).
func (e *StatusError) Transient() bool {
	return e.Code >= http.StatusInternalServerError && e.Code <= 599
}

// TransportError is returned when a request produced no response at all.
// Canceled is set when the caller's context had ended, which makes the
// failure permanent. A client timeout leaves it false.
type TransportError struct {
	Err      error
	Canceled bool
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("remote API request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Transient reports whether the failure is retry-eligible. Only the
// caller giving up makes it permanent.
func (e *TransportError) Transient() bool {
	return !e.Canceled
}

// IsTransient reports whether err should be retried: a network-level failure
// or an HTTP 5xx. Anything else is permanent.
func IsTransient(err error) bool {
	var t interface{ Transient() bool }
	if errors.As(err, &t) {
		return t.Transient()
	}
	return false
}

// StatusCode extracts the HTTP status from err, or 0 when there is none.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}
