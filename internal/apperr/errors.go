// Package apperr defines the error kinds shared by the submission and
// orchestration services and their mapping onto HTTP statuses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error.
type Kind string

const (
	KindInvalidInput Kind = "invalid_input"
	KindNotFound     Kind = "not_found"
	KindFetch        Kind = "fetch_error"
	KindProvider     Kind = "provider_error"
	KindEmptyResult  Kind = "empty_result"
	KindConflict     Kind = "conflict"
	KindStorage      Kind = "storage_error"
	KindInternal     Kind = "internal"
)

// Error is the typed error returned by services.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind around cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func InvalidInput(message string) *Error { return New(KindInvalidInput, message) }

func NotFound(resource string) *Error {
	return New(KindNotFound, fmt.Sprintf("%s not found", resource))
}

// Fetch reports a failed read of stored audio.
func Fetch(message string, cause error) *Error { return Wrap(KindFetch, message, cause) }

// Provider reports a failed upstream API call. message carries the
// upstream body verbatim where one was available.
func Provider(message string, cause error) *Error { return Wrap(KindProvider, message, cause) }

func EmptyResult(message string) *Error { return New(KindEmptyResult, message) }

func Conflict(message string) *Error { return New(KindConflict, message) }

func Storage(message string, cause error) *Error { return Wrap(KindStorage, message, cause) }

// KindOf returns the kind of err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps a kind to the status used by the REST endpoints.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindFetch, KindProvider, KindEmptyResult:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
