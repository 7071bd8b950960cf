// Package apperr defines the error taxonomy shared by the reconciler and its CLI.
// Every failure the core surfaces to a caller is either an argument problem, an
// I/O problem or a state problem; the Kind lets the CLI decide how to report it.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error. Kinds are string-based so they read well in logs.
type Kind string

const (
	// KindArgument indicates malformed or insufficient command-line input.
	KindArgument Kind = "ARGUMENT_ERROR"

	// KindIO indicates a missing root, an unreadable file or an unwritable destination.
	KindIO Kind = "IO_ERROR"

	// KindState indicates an operation was attempted out of order, such as
	// writing a report before anything was reconciled.
	KindState Kind = "STATE_ERROR"
)

// Error is a classified failure. Path is empty when no file is involved.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := string(e.Kind) + ": " + e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IO wraps err as an I/O failure of op on path.
func IO(op, path string, err error) error {
	return &Error{Kind: KindIO, Op: op, Path: path, Err: err}
}

// Argument reports invalid user input.
func Argument(format string, args ...any) error {
	return &Error{Kind: KindArgument, Op: "parse arguments", Err: fmt.Errorf(format, args...)}
}

// State reports an operation attempted in the wrong order.
func State(op string, err error) error {
	return &Error{Kind: KindState, Op: op, Err: err}
}

// IsKind reports whether any error in err's chain is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
