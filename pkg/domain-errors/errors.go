// Package domainerrors carries coded errors across service boundaries.
// Stores return sentinel errors; services translate them into these so the
// transport layer can map a Code to an HTTP status without inspecting text.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers.
type Code string

const (
	// CodeValidation marks a business-rule violation the caller can correct.
	CodeValidation Code = "validation"
	// CodeInvalidInput marks malformed input rejected at a trust boundary.
	CodeInvalidInput Code = "invalid_input"
	// CodeNotFound marks a missing referenced entity.
	CodeNotFound Code = "not_found"
	// CodeConflict marks a uniqueness or stale-read conflict; callers should
	// retry with backoff.
	CodeConflict Code = "conflict"
	// CodeInvalidState marks an operation attempted in a state that forbids it.
	CodeInvalidState Code = "invalid_state"
	// CodeUnauthorized marks a missing or unusable caller identity.
	CodeUnauthorized Code = "unauthorized"
	// CodeInternal marks an unexpected failure; details stay out of responses.
	CodeInternal Code = "internal"
)

// FieldError attaches a field name to a validation message so callers can
// surface it next to the offending input.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the coded error type used throughout the engine.
type Error struct {
	Code    Code
	Message string
	Fields  []FieldError
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// WithField appends a field-level detail and returns the error for chaining.
func (e *Error) WithField(field, message string) *Error {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
	return e
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the code carried by err, or CodeInternal when uncoded.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// FieldsOf returns field-level details when err carries them.
func FieldsOf(err error) []FieldError {
	var de *Error
	if errors.As(err, &de) {
		return de.Fields
	}
	return nil
}
