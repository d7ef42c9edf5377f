// Package errors defines the application error taxonomy. Messages attached
// here are user-facing and surfaced verbatim by the HTTP layer.
package errors

import (
	"errors"
	"net/http"
)

// Kind classifies an application error.
type Kind int

const (
	// KindUnauthorized means no valid session was presented.
	KindUnauthorized Kind = iota
	// KindLimitExceeded means a plan-cardinality check blocked a write.
	KindLimitExceeded
	// KindAlreadyOnboarded means onboarding was re-invoked after completion.
	KindAlreadyOnboarded
	// KindNotFound covers both missing rows and rows owned by another user,
	// deliberately indistinguishable to the caller.
	KindNotFound
	// KindInvalid means the request payload failed validation.
	KindInvalid
	// KindInternal is everything else.
	KindInternal
)

// Error is a classified application error with a user-facing message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Unauthorized reports a missing or invalid session.
func Unauthorized(msg string) *Error {
	if msg == "" {
		msg = "You must be signed in to do that."
	}
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// LimitExceeded reports a blocked plan-cardinality check.
func LimitExceeded(msg string) *Error {
	return &Error{Kind: KindLimitExceeded, Message: msg}
}

// AlreadyOnboarded reports a repeated onboarding attempt.
func AlreadyOnboarded() *Error {
	return &Error{Kind: KindAlreadyOnboarded, Message: "Onboarding has already been completed for this account."}
}

// NotFound reports a missing or foreign-owned resource.
func NotFound(msg string) *Error {
	if msg == "" {
		msg = "The requested resource was not found."
	}
	return &Error{Kind: KindNotFound, Message: msg}
}

// Invalid reports a validation failure.
func Invalid(msg string) *Error {
	return &Error{Kind: KindInvalid, Message: msg}
}

// Internal wraps an unexpected failure with a generic user-facing message.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "Something went wrong. Please try again.", Err: err}
}

// KindOf extracts the kind from err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// HTTPStatus maps an error to the status code the API responds with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindLimitExceeded:
		return http.StatusForbidden
	case KindAlreadyOnboarded:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
