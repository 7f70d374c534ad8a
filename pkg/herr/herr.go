// Package herr defines the stable error categories surfaced by the
// admission pipeline. Transport layers map these codes onto HTTP
// responses; everything below the routes works with plain errors.
package herr

import (
	"errors"
	"fmt"
)

// Code represents a stable error category that callers can switch on.
type Code string

const (
	CodeUnknown              Code = "unknown"
	CodeInvalidSpecification Code = "invalid_specification"
	CodeDuplicatePrereq      Code = "duplicate_prerequisite"
	CodeDuplicateDeployment  Code = "duplicate_deployment"
	CodeMissingReference     Code = "missing_reference"
	CodeResourceLimit        Code = "resource_limit_exceeded"
	CodeUsageUnavailable     Code = "usage_unavailable"
	CodeRulesUnavailable     Code = "rules_unavailable"
	CodeSchedulerRejected    Code = "scheduler_rejected"
	CodeUnauthorized         Code = "unauthorized"
)

// Error is a simple value type that carries a Code plus the underlying error.
type Error struct {
	Code Code
	err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.err == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// New wraps an error with the provided code. If err is nil a nil is returned.
func New(code Code, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, err: err}
}

// Newf is a convenience for New(code, fmt.Errorf(...)).
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, err: fmt.Errorf(format, args...)}
}

// IsCode reports whether err carries the given code, unwrapping as
// needed.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code attached to err, or CodeUnknown when the error
// does not carry one.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}
