// Package apperr is the error taxonomy shared by the store, the services and
// the HTTP layer.
package apperr

import (
	"errors"
	"net/http"
)

type Code string

const (
	CodeInvalidInput       Code = "invalid_input"
	CodeConflict           Code = "conflict"
	CodeNotFound           Code = "not_found"
	CodeServiceUnavailable Code = "service_unavailable"
	CodeUnauthorized       Code = "unauthorized"
	CodeInternal           Code = "internal_error"
)

// Error wraps a failure with a stable code. Details is surfaced to callers
// as-is (the dispatcher uses it to report that a message was saved).
type Error struct {
	Code    Code
	Message string
	Err     error
	Details map[string]any
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Sentinels for errors.Is checks.
var (
	ErrInvalidInput       = &Error{Code: CodeInvalidInput}
	ErrConflict           = &Error{Code: CodeConflict}
	ErrNotFound           = &Error{Code: CodeNotFound}
	ErrServiceUnavailable = &Error{Code: CodeServiceUnavailable}
	ErrUnauthorized       = &Error{Code: CodeUnauthorized}
)

func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches code and msg to err. An existing code on err is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Code: existing.Code, Message: msg, Err: err, Details: existing.Details}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

func InvalidInput(msg string) error { return New(CodeInvalidInput, msg) }
func Conflict(msg string) error     { return New(CodeConflict, msg) }
func NotFound(msg string) error     { return New(CodeNotFound, msg) }

// Unavailable reports a provider failure after local state was recorded.
func Unavailable(err error, details map[string]any) error {
	return &Error{Code: CodeServiceUnavailable, Message: err.Error(), Err: err, Details: details}
}

// CodeOf returns the code carried by err, CodeInternal when there is none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// DetailsOf returns the details map carried by err, if any.
func DetailsOf(err error) map[string]any {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}

func HTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeConflict:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
