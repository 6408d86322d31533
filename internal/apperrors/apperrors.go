// Package apperrors defines the error taxonomy shared across schaltwerk's core
// subsystems. Each kind wraps an underlying cause so callers can use
// errors.Is/errors.As while still getting a domain-appropriate message.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that need to decide how to react
// (retry, surface verbatim, roll back, etc.) without string-matching messages.
type Kind int

const (
	// KindUserInput indicates the caller supplied an invalid argument
	// (bad session name, unknown agent, unsupported merge mode).
	KindUserInput Kind = iota
	// KindConflict indicates a naming or state collision (duplicate session
	// name, branch already exists, merge conflicts).
	KindConflict
	// KindNotFound indicates a missing session/terminal/project.
	KindNotFound
	// KindExternalCommandFailure indicates a subprocess (git, setup script,
	// agent binary) failed.
	KindExternalCommandFailure
	// KindIoFailure indicates a filesystem/disk failure.
	KindIoFailure
	// KindInvariantViolation indicates an inconsistency detected between the
	// store and the filesystem.
	KindInvariantViolation
)

func (k Kind) String() string {
	switch k {
	case KindUserInput:
		return "user_input"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindExternalCommandFailure:
		return "external_command_failure"
	case KindIoFailure:
		return "io_failure"
	case KindInvariantViolation:
		return "invariant_violation"
	default:
		return "unknown"
	}
}

// Error is the concrete error type carrying a Kind and an optional wrapped
// cause. Use the constructor functions below rather than this struct literal.
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

// Is reports whether target is an *Error with the same Kind, so
// errors.Is(err, apperrors.Conflict("")) style checks work for sentinel-like
// comparisons when callers don't have the original error value.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

func newErr(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// UserInput builds a KindUserInput error.
func UserInput(msg string, cause error) error { return newErr(KindUserInput, msg, cause) }

// Conflict builds a KindConflict error.
func Conflict(msg string, cause error) error { return newErr(KindConflict, msg, cause) }

// NotFound builds a KindNotFound error.
func NotFound(msg string, cause error) error { return newErr(KindNotFound, msg, cause) }

// ExternalCommandFailure builds a KindExternalCommandFailure error describing
// a failed subprocess invocation. stderr should already be redacted by the
// caller (see internal/logging) before being embedded here.
func ExternalCommandFailure(program string, args []string, stderr string, cause error) error {
	msg := fmt.Sprintf("command %q failed", program)
	if len(args) > 0 {
		msg = fmt.Sprintf("command %q %v failed", program, args)
	}
	if stderr != "" {
		msg = fmt.Sprintf("%s: %s", msg, stderr)
	}
	return newErr(KindExternalCommandFailure, msg, cause)
}

// IoFailure builds a KindIoFailure error.
func IoFailure(msg string, cause error) error { return newErr(KindIoFailure, msg, cause) }

// InvariantViolation builds a KindInvariantViolation error. These are meant to
// be logged at WARN and reconciled, not necessarily propagated as fatal.
func InvariantViolation(msg string, cause error) error {
	return newErr(KindInvariantViolation, msg, cause)
}

// Is reports whether err is of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsFatal reports whether an error kind should be treated as fatal to the
// surrounding operation. Per spec §4.A, only Io/Corrupted propagate as fatal;
// everything else is a domain error the caller is expected to handle.
func IsFatal(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindIoFailure
	}
	// Unclassified errors (e.g. raw stdlib errors that escaped wrapping) are
	// treated as fatal by default — better to surface loudly than swallow.
	return err != nil
}
