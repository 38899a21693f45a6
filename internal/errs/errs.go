// Package errs implements the five-way error taxonomy every subsystem
// classifies failures into (§7): UserInput, Transient, Permanent,
// Recoverable, Internal. A single wrapping type carries the kind plus
// contextual fields, mirroring the teacher's StageError/ConfigurationError
// wrapping pattern (internal/pipeline/core/errors.go).
package errs

import (
	"errors"
	"fmt"
)

// Kind identifies which of the five error classes a failure belongs to.
type Kind int

const (
	KindUserInput Kind = iota
	KindTransient
	KindPermanent
	KindRecoverable
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindUserInput:
		return "user_input"
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindRecoverable:
		return "recoverable"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with its classified kind and enough
// context to surface a stable error code and a one-line message per §7
// ("every failed event carries a stable error code, a one-line message,
// a causedByUser flag, a raw payload").
type Error struct {
	Kind    Kind
	Code    string
	Context string
	Err     error
}

func (e *Error) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s [%s]: %s: %v", e.Kind, e.Code, e.Context, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Kind, e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// CausedByUser reports whether the failure is attributable to the
// blueprint author or config, rather than the engine or a provider.
func (e *Error) CausedByUser() bool { return e.Kind == KindUserInput }

func New(kind Kind, code, context string, err error) *Error {
	return &Error{Kind: kind, Code: code, Context: context, Err: err}
}

func UserInput(code, context string, err error) *Error {
	return New(KindUserInput, code, context, err)
}

func Transient(code, context string, err error) *Error {
	return New(KindTransient, code, context, err)
}

func Permanent(code, context string, err error) *Error {
	return New(KindPermanent, code, context, err)
}

func Recoverable(code, context string, err error) *Error {
	return New(KindRecoverable, code, context, err)
}

func Internal(code, context string, err error) *Error {
	return New(KindInternal, code, context, err)
}

// As reports whether err (or something it wraps) is an *Error, and returns
// it alongside true when so.
func As(err error) (*Error, bool) {
	var target *Error
	if ok := errors.As(err, &target); ok {
		return target, true
	}
	return nil, false
}
