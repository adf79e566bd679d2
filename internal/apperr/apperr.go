// Package apperr separates errors the operator must fix (Fatal) from failures
// of a single remote call (Recoverable).
package apperr

import "errors"

// Kind classifies an error.
type Kind int

const (
	// Recoverable errors come from a remote endpoint refusing or failing a
	// request. The invocation fails, but nothing about the setup is wrong.
	Recoverable Kind = iota
	// Fatal errors mean the configuration or the command line is unusable.
	Fatal
)

func (k Kind) String() string {
	switch k {
	case Fatal:
		return "fatal"
	default:
		return "recoverable"
	}
}

// Error tags an underlying error with its Kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// NewFatal wraps err as a Fatal error. A nil err stays nil.
func NewFatal(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: Fatal, Err: err}
}

// NewRecoverable wraps err as a Recoverable error. A nil err stays nil.
func NewRecoverable(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: Recoverable, Err: err}
}

// KindOf reports the Kind of the outermost tagged error in err's chain.
// Untagged errors are Recoverable.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Recoverable
}

// IsFatal reports whether err is tagged Fatal.
func IsFatal(err error) bool {
	return err != nil && KindOf(err) == Fatal
}
