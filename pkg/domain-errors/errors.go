// Package domainerrors carries coded errors across layers. Services return
// them (usually wrapping an underlying cause) and transports map the code to a
// response without inspecting messages.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a failure for callers.
type Code string

const (
	// CodeValidation marks a missing or malformed field caught before any network call.
	CodeValidation Code = "validation_error"
	// CodeAmbiguous marks a lookup that matched several owners. It routes to
	// explicit owner selection and is not a failure of the search itself.
	CodeAmbiguous Code = "not_found_ambiguous"
	// CodeAlreadyOwned marks an animal already registered to the requesting owner.
	CodeAlreadyOwned Code = "conflict_already_owned"
	// CodeForeignOwner marks an animal registered to other owners only.
	// Recoverable by explicit confirmation.
	CodeForeignOwner Code = "conflict_foreign_owner"
	// CodeTransport marks a network or Directory Service failure.
	CodeTransport Code = "transport_error"

	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeInternal     Code = "internal_error"
)

// Error is a coded error. Field is set for field-level validation failures.
type Error struct {
	Code    Code
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error without an underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewField creates a validation-style error bound to a form field.
func NewField(code Code, field, message string) *Error {
	return &Error{Code: code, Field: field, Message: message}
}

// Wrap attaches a code and message to err. A nil err yields nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// As returns the outermost coded error in err's chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether the outermost coded error in err's chain has code.
func HasCode(err error, code Code) bool {
	de, ok := As(err)
	return ok && de.Code == code
}

// CodeOf returns the code of err, or CodeInternal for uncoded errors.
func CodeOf(err error) Code {
	if de, ok := As(err); ok {
		return de.Code
	}
	return CodeInternal
}
