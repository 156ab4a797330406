// Package apperr defines the error taxonomy shared by the services and the
// HTTP layer.
//
// Every failure surfaced to a caller carries a [Kind]. Handlers map the kind
// to an HTTP status with [Kind.HTTPStatus]; anything that is not an *Error
// is reported as [Internal].
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the caller.
type Kind int

const (
	Internal Kind = iota
	Unauthenticated
	Forbidden
	NotFound
	Conflict
	InvalidArgument
)

func (k Kind) String() string {
	switch k {
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case InvalidArgument:
		return "invalid_argument"
	default:
		return "internal"
	}
}

// HTTPStatus maps the kind to the status code written by the handlers.
// Conflicts are reported as 400 like validation failures.
func (k Kind) HTTPStatus() int {
	switch k {
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict, InvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Error is a classified error with a caller-facing message.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates an error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error. The cause stays reachable through
// errors.Unwrap but is never shown to the caller.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

func Unauthenticatedf(format string, args ...interface{}) *Error {
	return New(Unauthenticated, format, args...)
}

func Forbiddenf(format string, args ...interface{}) *Error {
	return New(Forbidden, format, args...)
}

func NotFoundf(format string, args ...interface{}) *Error {
	return New(NotFound, format, args...)
}

func Conflictf(format string, args ...interface{}) *Error {
	return New(Conflict, format, args...)
}

func InvalidArgumentf(format string, args ...interface{}) *Error {
	return New(InvalidArgument, format, args...)
}

// Validation builds an InvalidArgument error carrying field-level details.
func Validation(fields []FieldError) *Error {
	return &Error{Kind: InvalidArgument, Message: "invalid data", Fields: fields}
}

// KindOf returns the kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf returns the caller-facing message for err. Unclassified errors
// get a generic message so internals never leak.
func MessageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Kind != Internal {
		return ae.Message
	}
	if ae != nil && ae.Message != "" {
		return ae.Message
	}
	return "internal server error"
}
