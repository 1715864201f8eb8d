// Package apperr defines the error kinds that reach the HTTP boundary.
package apperr

import (
	"errors"
	"net/http"
	"strings"
)

// Kind classifies a failure for the caller.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindStorageFailure
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindStorageFailure:
		return "storage_failure"
	default:
		return "unknown"
	}
}

// Status is the HTTP status code used for the kind.
func (k Kind) Status() int {
	switch k {
	case KindInvalidInput, KindConflict:
		return http.StatusUnprocessableEntity
	case KindUnauthenticated, KindForbidden:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure. Message is safe to show to clients; Err is
// the underlying cause and is only logged.
type Error struct {
	Kind    Kind
	Message string
	Fields  []string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Fields) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.Fields, ", "))
		b.WriteString("]")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match on kind alone, e.g. errors.Is(err, apperr.NotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// HTTPStatus returns the explicit status override or the kind's default.
func (e *Error) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	return e.Kind.Status()
}

// Kind sentinels for errors.Is.
var (
	InvalidInput    = &Error{Kind: KindInvalidInput}
	Unauthenticated = &Error{Kind: KindUnauthenticated}
	Forbidden       = &Error{Kind: KindForbidden}
	NotFound        = &Error{Kind: KindNotFound}
	Conflict        = &Error{Kind: KindConflict}
	StorageFailure  = &Error{Kind: KindStorageFailure}
)

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// Invalid builds an InvalidInput error naming the offending fields.
func Invalid(msg string, fields ...string) *Error {
	return &Error{Kind: KindInvalidInput, Message: msg, Fields: fields}
}

// WithStatus overrides the HTTP status of e and returns it.
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	return e
}

// KindOf reports the kind of err, or KindUnknown for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// As extracts an *Error from err, classifying anything else as a storage
// failure with a generic message.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindStorageFailure, Message: "An unknown error occurred!", Err: err}
}
