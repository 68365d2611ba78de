// Package config provides configuration types for the tsserver client.
package config

import (
	"context"

	"github.com/wagiedev/tsserver-go/internal/message"
)

// Transport defines one connection to a tsserver process.
// Implement this to provide custom transports for testing or for servers
// reached by other means than a local subprocess.
//
// A Transport is used for a single connection: once its error channel has
// reported a failure the client discards it and asks for a new one.
type Transport interface {
	// Start spawns or attaches to the server.
	Start(ctx context.Context) error

	// ReadMessages returns channels for receiving framed messages and the
	// terminal connection error. Lines that fail to parse are logged and
	// dropped, never sent on the error channel. The error channel carries at
	// most one error describing why the connection ended. Both channels are
	// closed when reading completes.
	ReadMessages(ctx context.Context) (<-chan *message.Message, <-chan error)

	// SendMessage writes one serialized request followed by a newline.
	// This method must be safe for concurrent use.
	SendMessage(ctx context.Context, data []byte) error

	// Close terminates the connection. It's safe to call Close multiple times.
	Close() error

	// IsReady returns true if the transport is ready for communication.
	IsReady() bool
}
