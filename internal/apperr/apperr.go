// Package apperr classifies failures so the HTTP layer can map them to status codes.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the failure class.
type Kind int

const (
	// KindInput is a caller mistake: missing field, malformed upload, bad filter.
	KindInput Kind = iota + 1
	// KindStorage is a datastore connection or query failure.
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Error carries a Kind, the failing operation and an optional cause.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Kind.String() + " error"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Input reports a caller error with a message safe to show to clients.
func Input(msg string) error {
	return &Error{Kind: KindInput, Msg: msg}
}

// Inputf is Input with formatting.
func Inputf(format string, args ...any) error {
	return &Error{Kind: KindInput, Msg: fmt.Sprintf(format, args...)}
}

// Storage wraps a datastore failure of op.
func Storage(op string, err error) error {
	return &Error{Kind: KindStorage, Op: op, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsInput reports whether err is an input error.
func IsInput(err error) bool { return KindOf(err) == KindInput }

// IsStorage reports whether err is a storage error.
func IsStorage(err error) bool { return KindOf(err) == KindStorage }

// Message returns the client-facing text of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		switch e.Kind {
		case KindInput:
			return e.Msg
		case KindStorage:
			return "storage failure"
		}
	}
	return "internal error"
}
