package errors

import (
	"errors"
	"fmt"
)

// TSServerError is the base interface for all client errors.
type TSServerError interface {
	error
	IsTSServerError() bool
}

// Compile-time verification that all error types implement TSServerError.
var (
	_ TSServerError = (*ServerNotFoundError)(nil)
	_ TSServerError = (*ConnectionError)(nil)
	_ TSServerError = (*ProcessError)(nil)
	_ TSServerError = (*CommandError)(nil)
	_ TSServerError = (*JSONDecodeError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrServerNotRunning indicates a command was issued before Start.
	ErrServerNotRunning = errors.New("server is not running")

	// ErrClientClosed indicates the client has been closed and cannot be reused.
	ErrClientClosed = errors.New("client closed: create a new one with NewClient()")

	// ErrTransportNotConnected indicates the transport has no live process.
	ErrTransportNotConnected = errors.New("transport not connected")

	// ErrStdinClosed indicates the server input stream was closed.
	ErrStdinClosed = errors.New("stdin closed")

	// ErrDuplicateSequence indicates a sequence number was registered twice.
	ErrDuplicateSequence = errors.New("duplicate sequence number")

	// ErrNoCodeFixes indicates the server reported no supported code fixes.
	ErrNoCodeFixes = errors.New("no code fixes are supported")
)

// ServerNotFoundError indicates the tsserver executable was not found.
type ServerNotFoundError struct {
	SearchedPaths []string
}

func (e *ServerNotFoundError) Error() string {
	return fmt.Sprintf("tsserver not found in: %v", e.SearchedPaths)
}

// IsTSServerError implements TSServerError.
func (e *ServerNotFoundError) IsTSServerError() bool { return true }

// ConnectionError indicates failure to spawn or attach to the server process.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to tsserver: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsTSServerError implements TSServerError.
func (e *ConnectionError) IsTSServerError() bool { return true }

// ProcessError indicates the server process failed or exited.
// Every request pending at that moment is rejected with it.
type ProcessError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tsserver: exited with code: %d: %v", e.ExitCode, e.Err)
	}

	return fmt.Sprintf("tsserver: exited with code: %d", e.ExitCode)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// IsTSServerError implements TSServerError.
func (e *ProcessError) IsTSServerError() bool { return true }

// CommandError is an application-level failure reported by the server in a
// response whose success flag is false. Error returns the server text as is.
type CommandError struct {
	Command string
	Seq     int64
	Message string
}

func (e *CommandError) Error() string {
	return e.Message
}

// IsTSServerError implements TSServerError.
func (e *CommandError) IsTSServerError() bool { return true }

// JSONDecodeError indicates a candidate output line failed to parse.
// This error preserves the original raw line.
type JSONDecodeError struct {
	RawData string
	Err     error
}

func (e *JSONDecodeError) Error() string {
	return fmt.Sprintf("failed to decode JSON from tsserver: %v", e.Err)
}

func (e *JSONDecodeError) Unwrap() error {
	return e.Err
}

// IsTSServerError implements TSServerError.
func (e *JSONDecodeError) IsTSServerError() bool { return true }
