// Package apperrors defines the typed failures surfaced by services and mapped to HTTP.
package apperrors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for consistent handling at the boundary.
type Kind string

const (
	KindUnknown           Kind = "unknown"
	KindValidation        Kind = "validation"
	KindInvalidTransition Kind = "invalid_transition"
	KindIntegrityGuard    Kind = "integrity_guard"
	KindForbidden         Kind = "forbidden"
	KindUnauthorized      Kind = "unauthorized"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
)

// Error is a typed application failure.
type Error struct {
	Kind    Kind
	Message string
	// Field names the offending input or entity field, if any.
	Field string
	// Fields holds per-field messages for validation failures.
	Fields   map[string]string
	Metadata map[string]string
	Cause    error
}

// Error renders the human-readable message.
func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error of the same kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind && (t.Message == "" || t.Message == e.Message)
	}
	return false
}

// Validation builds a single-field validation error.
func Validation(field, message string) *Error {
	e := &Error{Kind: KindValidation, Message: message, Field: field}
	if field != "" {
		e.Fields = map[string]string{field: message}
	}
	return e
}

// ValidationFields builds a validation error from per-field messages.
func ValidationFields(fields map[string]string) *Error {
	msg := "The given data was invalid."
	if len(fields) == 1 {
		for _, m := range fields {
			msg = m
		}
	}
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

// InvalidTransition reports a status-machine violation naming both ends.
func InvalidTransition(from, to string) *Error {
	return &Error{
		Kind:     KindInvalidTransition,
		Message:  fmt.Sprintf("Invalid transition from %s to %s", from, to),
		Metadata: map[string]string{"from": from, "to": to},
	}
}

// IntegrityGuard reports an attempt to mutate financially committed data.
func IntegrityGuard(field, message string) *Error {
	return &Error{Kind: KindIntegrityGuard, Message: message, Field: field}
}

// Forbidden reports a policy denial.
func Forbidden(message string) *Error {
	if message == "" {
		message = "This action is unauthorized."
	}
	return &Error{Kind: KindForbidden, Message: message}
}

// Unauthorized reports a missing or invalid identity.
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// NotFound reports a missing entity.
func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Message: entity + " not found", Field: entity}
}

// Conflict reports a concurrent modification or uniqueness clash.
func Conflict(message string, cause error) *Error {
	return &Error{Kind: KindConflict, Message: message, Cause: cause}
}

// KindOf returns the kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error to an HTTP status code.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch KindOf(err) {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindInvalidTransition, KindIntegrityGuard, KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
