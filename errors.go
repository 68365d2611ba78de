package tsserver

import "github.com/wagiedev/tsserver-go/internal/errors"

// Re-export error types from internal package

// ServerNotFoundError indicates the tsserver executable was not found.
type ServerNotFoundError = errors.ServerNotFoundError

// ConnectionError indicates failure to spawn the server.
type ConnectionError = errors.ConnectionError

// ProcessError indicates the server process exited. Every request pending
// at that moment fails with it.
type ProcessError = errors.ProcessError

// CommandError is a failure reported by the server for one command.
type CommandError = errors.CommandError

// JSONDecodeError indicates a line of server output could not be parsed.
type JSONDecodeError = errors.JSONDecodeError

// TSServerError is the base interface for all client errors.
type TSServerError = errors.TSServerError

// Re-export sentinel errors from internal package.
var (
	// ErrServerNotRunning indicates a command was issued before Start.
	ErrServerNotRunning = errors.ErrServerNotRunning

	// ErrClientClosed indicates the client has been closed and cannot be reused.
	ErrClientClosed = errors.ErrClientClosed

	// ErrTransportNotConnected indicates the transport is not connected.
	ErrTransportNotConnected = errors.ErrTransportNotConnected

	// ErrStdinClosed indicates the server's input was closed.
	ErrStdinClosed = errors.ErrStdinClosed

	// ErrNoCodeFixes indicates the server supports no code fixes.
	ErrNoCodeFixes = errors.ErrNoCodeFixes
)
