// Package apperr defines the error taxonomy shared by the domain, storage and
// transport layers.  Every failure a caller can act on carries a Kind; the
// HTTP layer maps kinds to status codes in a single place.
package apperr

import "errors"

// Kind classifies an error for callers.
type Kind string

const (
	// KindValidation marks malformed or missing input (bad range, empty deny reason).
	KindValidation Kind = "validation"
	// KindNotFound marks an unknown hall, resource, reservation, user or notification.
	KindNotFound Kind = "not_found"
	// KindForbidden marks an actor lacking rights for the operation.
	KindForbidden Kind = "forbidden"
	// KindInvalidTransition marks a reservation state machine guard violation.
	KindInvalidTransition Kind = "invalid_transition"
	// KindConflict marks a lost concurrent write or a duplicate record.
	KindConflict Kind = "conflict"
	// KindInternal is reported for anything that is not an *Error.
	KindInternal Kind = "internal"
)

// Error is the domain error type.  Message is safe to show to clients.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// Sentinels for errors.Is comparisons by kind.
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrConflict          = &Error{Kind: KindConflict}
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// Is matches another *Error by kind.  A target without a message (the
// package sentinels) matches any error of the same kind; a target with a
// message only matches the identical kind and message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message == "" {
		return e.Kind == t.Kind
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// New builds an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an error of the given kind around a cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Validation(message string) *Error        { return New(KindValidation, message) }
func NotFound(message string) *Error          { return New(KindNotFound, message) }
func Forbidden(message string) *Error         { return New(KindForbidden, message) }
func InvalidTransition(message string) *Error { return New(KindInvalidTransition, message) }
func Conflict(message string) *Error          { return New(KindConflict, message) }

// KindOf reports the kind of err, or KindInternal when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
