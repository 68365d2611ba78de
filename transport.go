package tsserver

import "github.com/wagiedev/tsserver-go/internal/config"

// Transport defines the interface for tsserver communication.
// Implement this to provide custom transports for testing, mocking,
// or alternative communication methods (e.g., remote connections).
//
// The default implementation spawns a subprocess. ReadMessages must report
// at most one terminal error; a ProcessError there makes every pending
// request fail and the client respawn on the next command.
type Transport = config.Transport
