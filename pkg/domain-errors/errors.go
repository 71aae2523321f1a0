// Package domainerrors defines the coded error type returned by every service.
//
// Codes form a closed taxonomy so callers (and the ops surface) can branch on the
// kind of failure without string matching. Services create errors with New, attach
// a cause with Wrap, and inspect them with HasCode / CodeOf.
package domainerrors

import (
	"errors"
)

// Code classifies a failure.
type Code string

const (
	// CodeUnauthorized: the caller lacks the role the operation requires.
	CodeUnauthorized Code = "unauthorized"
	// CodeAlreadyRegistered: a student record already exists for the caller.
	CodeAlreadyRegistered Code = "already_registered"
	// CodeNotRegistered: no student record exists for the identity.
	CodeNotRegistered Code = "not_registered"
	// CodeNotVerified: the student has not been verified yet.
	CodeNotVerified Code = "not_verified"
	// CodeInvalidInput: malformed or out-of-range arguments.
	CodeInvalidInput Code = "invalid_input"
	// CodeNotFound: unknown scholarship id.
	CodeNotFound Code = "not_found"
	// CodeScholarshipClosed: deadline passed or capacity exhausted.
	CodeScholarshipClosed Code = "scholarship_closed"
	// CodeCustodyFailure: the custody layer rejected the asset movement.
	CodeCustodyFailure Code = "custody_failure"

	CodeTimeout  Code = "timeout"
	CodeInternal Code = "internal"
)

// Error is a domain error carrying a Code, a caller-safe message and an optional cause.
type Error struct {
	Code    Code
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

// New creates a coded error without an underlying cause.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying cause.
// Wrapping a nil error returns nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the code of the outermost coded error in the chain,
// or CodeInternal when the chain carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether the outermost coded error in err's chain has the given code.
func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}
