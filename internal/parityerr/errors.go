// Package parityerr defines the failure taxonomy for the parity harness.
//
// Every error surfaced by the loader, the runners or the comparator maps to
// exactly one Class. The class decides whether the run aborts (the fixture or
// the reference engine is broken) or whether the failure is folded into the
// case result and the batch continues (the candidate engine misbehaved).
package parityerr

import (
	"errors"
	"fmt"
)

// Class is a stable failure category.
type Class string

const (
	FixtureParse        Class = "FIXTURE_PARSE"
	Config              Class = "CONFIG"
	ReferenceInvocation Class = "REFERENCE_INVOCATION"
	ReferenceShape      Class = "REFERENCE_SHAPE"
	SutInvocation       Class = "SUT_INVOCATION"
	ComparisonMismatch  Class = "COMPARISON_MISMATCH"
)

// Fatal reports whether an error of this class invalidates the whole run.
func (c Class) Fatal() bool {
	switch c {
	case SutInvocation, ComparisonMismatch:
		return false
	default:
		return true
	}
}

// ExitCode returns the process exit code for this class.
func (c Class) ExitCode() int {
	if c.Fatal() {
		return 2
	}
	return 1
}

// Error is the structured error type for harness failures.
type Error struct {
	Class   Class
	Subject string // fixture path, engine name or method; may be empty
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	if e.Subject != "" {
		return fmt.Sprintf("%s: %s: %s", e.Class, e.Subject, msg)
	}
	return fmt.Sprintf("%s: %s", e.Class, msg)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error without a cause.
func New(class Class, subject, message string) *Error {
	return &Error{Class: class, Subject: subject, Message: message}
}

// Wrap creates an Error wrapping cause.
func Wrap(class Class, subject, message string, cause error) *Error {
	return &Error{Class: class, Subject: subject, Message: message, Cause: cause}
}

// ClassOf returns the class of the first *Error in err's chain.
// ok is false when err carries no classification.
func ClassOf(err error) (Class, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Class, true
	}
	return "", false
}

// Is reports whether err carries the given class.
func Is(err error, class Class) bool {
	c, ok := ClassOf(err)
	return ok && c == class
}
