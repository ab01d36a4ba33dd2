package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind tags every error the portal can return. The taxonomy is
// closed: verbs return exactly one kind per failure.
type ErrorKind int

const (
	KindNotFound ErrorKind = iota
	KindAlreadyExists
	KindMaxSessionsExceeded
	KindInvalidState
	KindNoDevicesGranted
	KindNothingGranted
	KindDeviceNotAuthorized
	KindSessionNotActive
	KindRateLimited
	KindBackendFailure
	KindUnsupported
	KindNoBackendAvailable
	KindCancelled
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not-found"
	case KindAlreadyExists:
		return "already-exists"
	case KindMaxSessionsExceeded:
		return "max-sessions-exceeded"
	case KindInvalidState:
		return "invalid-state"
	case KindNoDevicesGranted:
		return "no-devices-granted"
	case KindNothingGranted:
		return "nothing-granted"
	case KindDeviceNotAuthorized:
		return "device-not-authorized"
	case KindSessionNotActive:
		return "session-not-active"
	case KindRateLimited:
		return "rate-limited"
	case KindBackendFailure:
		return "backend-failure"
	case KindUnsupported:
		return "unsupported"
	case KindNoBackendAvailable:
		return "no-backend-available"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Retryable reports whether a caller may reasonably retry the failed
// operation. RateLimited errors carry the delay in RetryAfter.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindRateLimited, KindMaxSessionsExceeded:
		return true
	default:
		return false
	}
}

// Error is the portal error type. Kind is always set; RetryAfter is
// meaningful only for KindRateLimited; Inner preserves backend errors.
type Error struct {
	Kind       ErrorKind
	Message    string
	RetryAfter time.Duration
	Inner      error
}

func (e *Error) Error() string {
	if e.Inner != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Inner)
	}
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Inner
}

// Is matches any *Error carrying the same kind, so callers can compare
// against the exported kind sentinels with errors.Is.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// Kind sentinels for errors.Is comparisons.
var (
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrAlreadyExists       = &Error{Kind: KindAlreadyExists}
	ErrMaxSessionsExceeded = &Error{Kind: KindMaxSessionsExceeded}
	ErrInvalidState        = &Error{Kind: KindInvalidState}
	ErrNoDevicesGranted    = &Error{Kind: KindNoDevicesGranted}
	ErrNothingGranted      = &Error{Kind: KindNothingGranted}
	ErrDeviceNotAuthorized = &Error{Kind: KindDeviceNotAuthorized}
	ErrSessionNotActive    = &Error{Kind: KindSessionNotActive}
	ErrRateLimited         = &Error{Kind: KindRateLimited}
	ErrBackendFailure      = &Error{Kind: KindBackendFailure}
	ErrUnsupported         = &Error{Kind: KindUnsupported}
	ErrNoBackendAvailable  = &Error{Kind: KindNoBackendAvailable}
	ErrCancelled           = &Error{Kind: KindCancelled}
)

// NotFoundf builds a KindNotFound error for a session id.
func NotFoundf(id SessionID) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("session %s", id)}
}

// AlreadyExistsf builds a KindAlreadyExists error for a session id.
func AlreadyExistsf(id SessionID) *Error {
	return &Error{Kind: KindAlreadyExists, Message: fmt.Sprintf("session %s", id)}
}

// InvalidStatef builds a KindInvalidState error naming the verb and the
// state it was attempted in.
func InvalidStatef(verb string, state SessionState) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf("%s not permitted in state %s", verb, state)}
}

// RateLimitedAfter builds a KindRateLimited error with a retry hint.
func RateLimitedAfter(after time.Duration) *Error {
	return &Error{
		Kind:       KindRateLimited,
		Message:    fmt.Sprintf("retry after %s", after),
		RetryAfter: after,
	}
}

// BackendFailed wraps a backend error, preserving the inner message.
func BackendFailed(op string, inner error) *Error {
	return &Error{Kind: KindBackendFailure, Message: op, Inner: inner}
}

// KindOf extracts the error kind, or KindBackendFailure for foreign
// errors that leaked through without wrapping.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindBackendFailure
}
