package errs

import (
	"errors"
	"fmt"
	"runtime"
)

var traceable = false

// SetTraceable controls whether new errors capture a stack trace.
func SetTraceable(x bool) {
	traceable = x
}

func callers() []uintptr {
	var pcs [32]uintptr
	n := runtime.Callers(3, pcs[:])
	st := pcs[0:n]
	return st
}

// Error carries a transport error code, a message and an optional cause.
type Error struct {
	Code int
	Msg  string

	cause error
	st    []uintptr
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return SUCCESS
	}
	if e.cause != nil {
		return fmt.Sprintf("code:%d, msg:%s: %v", e.Code, e.Msg, e.cause)
	}
	return fmt.Sprintf("code:%d, msg:%s", e.Code, e.Msg)
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// New creates an error with the given code.
func New(code int, msg string) error {
	err := &Error{
		Code: code,
		Msg:  msg,
	}
	if traceable {
		err.st = callers()
	}
	return err
}

// Newf creates an error with the given code, msg supports a format string.
func Newf(code int, format string, params ...interface{}) error {
	msg := fmt.Sprintf(format, params...)
	return New(code, msg)
}

// Wrap creates a coded error that keeps cause reachable via errors.Unwrap.
func Wrap(code int, cause error, msg string) error {
	err := &Error{
		Code:  code,
		Msg:   msg,
		cause: cause,
	}
	if traceable {
		err.st = callers()
	}
	return err
}

// Wrapf is Wrap with a format string.
func Wrapf(code int, cause error, format string, params ...interface{}) error {
	return Wrap(code, cause, fmt.Sprintf(format, params...))
}

// Code extracts the error code from e, unwrap-aware.
func Code(e error) int {
	if e == nil {
		return 0
	}
	var err *Error
	if !errors.As(e, &err) {
		return UNKNOWN_ERROR
	}
	if err == (*Error)(nil) {
		return 0
	}
	return err.Code
}

// Msg extracts the error msg from e.
func Msg(e error) string {
	if e == nil {
		return SUCCESS
	}
	var err *Error
	if !errors.As(e, &err) {
		return e.Error()
	}
	if err == (*Error)(nil) {
		return SUCCESS
	}
	return err.Msg
}
