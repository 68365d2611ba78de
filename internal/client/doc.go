// Package client implements the tsserver Client.
//
// The client package owns the server lifecycle: a lazy, shared start with a
// readiness handshake, teardown when the process dies and a lazy respawn on
// the next command. It keeps the state that outlives a single process:
//   - The sequence counter, so numbers are never reused
//   - The pending request table, so callers can observe outstanding work
//   - The event bus, so subscriptions survive a respawn
//
// The Client uses the protocol package for request/response correlation and
// the subprocess package for the default transport.
package client
