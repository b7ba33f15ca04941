// ABOUTME: Error classification for fetches and mutations.
// ABOUTME: Reads status and transience through method sets, not concrete types.
package board

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a failure for display.
type ErrorKind int

const (
	ErrUnknown ErrorKind = iota
	ErrUnauthorized
	ErrForbidden
	ErrTransient
)

func (k ErrorKind) String() string {
	switch k {
	case ErrUnauthorized:
		return "unauthorized"
	case ErrForbidden:
		return "forbidden"
	case ErrTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Op names the operation that produced an error.
type Op string

const (
	OpFetch  Op = "fetch"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// ErrorState is the single visible error. A new one replaces the old one.
type ErrorState struct {
	Kind    ErrorKind
	Op      Op
	Message string
	Err     error
}

func (e *ErrorState) Error() string {
	return e.Message
}

func (e *ErrorState) Unwrap() error {
	return e.Err
}

// httpStatus pulls a status code out of err through its method set, so the
// engine does not depend on a particular transport.
func httpStatus(err error) int {
	var s interface{ HTTPStatus() int }
	if errors.As(err, &s) {
		return s.HTTPStatus()
	}
	return 0
}

func isTransient(err error) bool {
	var t interface{ Transient() bool }
	if errors.As(err, &t) {
		return t.Transient()
	}
	return false
}

// classifyFetch maps a failed read: 401/403 by status, network or 5xx as
// transient, anything else unknown.
func classifyFetch(err error) *ErrorState {
	switch httpStatus(err) {
	case http.StatusUnauthorized:
		return &ErrorState{Kind: ErrUnauthorized, Op: OpFetch, Message: "sign in required to view listings", Err: err}
	case http.StatusForbidden:
		return &ErrorState{Kind: ErrForbidden, Op: OpFetch, Message: "insufficient role to view listings", Err: err}
	}
	if isTransient(err) {
		return &ErrorState{Kind: ErrTransient, Op: OpFetch, Message: "unable to load listings, the server may be down", Err: err}
	}
	return &ErrorState{Kind: ErrUnknown, Op: OpFetch, Message: "unable to load listings", Err: err}
}

// classifyMutation maps a failed write: 401, 403, everything else unknown.
func classifyMutation(op Op, err error) *ErrorState {
	switch httpStatus(err) {
	case http.StatusUnauthorized:
		return &ErrorState{Kind: ErrUnauthorized, Op: op, Message: fmt.Sprintf("%s: sign in required", op), Err: err}
	case http.StatusForbidden:
		return &ErrorState{Kind: ErrForbidden, Op: op, Message: fmt.Sprintf("%s: insufficient role", op), Err: err}
	}
	return &ErrorState{Kind: ErrUnknown, Op: op, Message: fmt.Sprintf("%s: operation failed", op), Err: err}
}
