// Package exitcode defines the process exit codes of labmux and a coded
// error type that carries them from deep call sites up to main.
//
//   - 0: handoff to attach/switch succeeded
//   - 1: fatal precondition (socket path collision, missing environment)
//   - 2: invalid command-line usage
//
// A failing switch-client propagates its own exit status unchanged.
package exitcode

import (
	"errors"
	"fmt"
)

const (
	// Success indicates a normal handoff.
	Success = 0

	ErrGeneral = 1 // Fatal precondition or unexpected failure
	ErrUsage   = 2 // Invalid arguments or flags
)

// Error wraps an error with a specific exit code.
type Error struct {
	Code    int
	Message string
	Cause   error
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Newf creates a new coded error with printf-style formatting.
func Newf(code int, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with a code and message.
func Wrap(code int, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Wrapf wraps an existing error with a code and printf-style message.
func Wrapf(code int, cause error, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Code extracts the exit code from an error.
// Returns ErrGeneral (1) if the error doesn't have a code.
func Code(err error) int {
	if err == nil {
		return Success
	}
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ErrGeneral
}

// Usage returns an invalid-usage error.
func Usage(format string, args ...interface{}) *Error {
	return Newf(ErrUsage, format, args...)
}

// SocketCollision reports a non-socket file sitting where the session socket
// must live. The file is never removed.
func SocketCollision(path string) *Error {
	return Newf(ErrGeneral, "refusing to use %s: path exists and is not a socket", path)
}

// EnvironmentMissing reports that a required part of the execution
// environment (tmux, an entry point, the working root) is unavailable.
func EnvironmentMissing(what string, cause error) *Error {
	return Wrapf(ErrGeneral, cause, "required execution environment missing: %s", what)
}
