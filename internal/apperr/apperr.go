// Package apperr classifies client failures into the kinds the session reacts to.
package apperr

import (
	"errors"
	"fmt"
)

// Kind groups failures by how they are surfaced.
type Kind string

const (
	KindNetwork    Kind = "network"
	KindValidation Kind = "validation"
)

// Error is a classified failure. Op names the operation that failed.
type Error struct {
	Kind   Kind
	Op     string
	Status int
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0 && e.Msg != "":
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Msg)
	case e.Status != 0:
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Network wraps a transport error or a non-2xx response.
func Network(op string, status int, msg string, err error) *Error {
	return &Error{Kind: KindNetwork, Op: op, Status: status, Msg: msg, Err: err}
}

// Validation reports a rejected input that never reached the server.
func Validation(op, msg string) *Error {
	return &Error{Kind: KindValidation, Op: op, Msg: msg}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Message returns the user-facing text of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
