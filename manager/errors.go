package manager

import (
	"errors"
	"fmt"

	"github.com/allbin/serialmux/serial"
	"github.com/allbin/serialmux/session"
)

// Code is the closed set of command-layer error codes. Every error leaving
// the manager carries exactly one of these.
type Code int

const (
	CodeInvalidParam Code = iota
	CodeNoSuchPort
	CodeAlreadyOpen
	CodeNotOpen
	CodeOpenFailed
	CodeIO
	CodeStorage
	CodeInternal
)

// String returns the wire name of the code
func (c Code) String() string {
	switch c {
	case CodeInvalidParam:
		return "InvalidParam"
	case CodeNoSuchPort:
		return "NoSuchPort"
	case CodeAlreadyOpen:
		return "AlreadyOpen"
	case CodeNotOpen:
		return "NotOpen"
	case CodeOpenFailed:
		return "OpenFailed"
	case CodeIO:
		return "IoError"
	case CodeStorage:
		return "StorageError"
	default:
		return "Internal"
	}
}

// Error is the manager's error type: a code plus a descriptive message.
// There is no open-ended string matching anywhere; callers branch on Code.
type Error struct {
	Code Code
	Msg  string
	Err  error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Unwrap exposes the underlying cause for errors.Is/As
func (e *Error) Unwrap() error { return e.Err }

// newError builds a manager error with a formatted message
func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// wrapError builds a manager error around a cause
func wrapError(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...), Err: err}
}

// IsCode reports whether err is a manager error with the given code
func IsCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// openErrorCode maps the serial package's open-time sentinels onto the
// command-layer codes
func openErrorCode(err error) Code {
	switch {
	case errors.Is(err, serial.ErrInvalidBaudRate), errors.Is(err, serial.ErrInvalidConfig):
		return CodeInvalidParam
	case errors.Is(err, serial.ErrDeviceNotFound):
		return CodeNoSuchPort
	case errors.Is(err, serial.ErrDeviceInUse):
		return CodeAlreadyOpen
	default:
		return CodeOpenFailed
	}
}

// commandErrorCode maps session sender failures onto the command-layer
// codes. A sender failing because the task exited is indistinguishable from
// commanding a port that was never open.
func commandErrorCode(err error) Code {
	if errors.Is(err, session.ErrSessionClosed) {
		return CodeNotOpen
	}
	return CodeIO
}
