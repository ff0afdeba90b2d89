package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a pipeline or request failure so handlers can pick the
// right HTTP status without inspecting error strings.
type Kind int

const (
	Internal Kind = iota
	MalformedPayload
	ValidationFailed
	NotFound
	DuplicateKey
	StorageFailure
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the Kind carried by err, or Internal when err is not an
// *Error from this package.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Internal
}

// HTTPStatus maps an error to the status code handlers should respond with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case MalformedPayload, ValidationFailed:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case DuplicateKey:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the user-facing message, hiding wrapped causes for
// internal and storage failures.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		switch appErr.Kind {
		case Internal, StorageFailure:
			return "internal server error"
		default:
			return appErr.Message
		}
	}
	return "internal server error"
}
