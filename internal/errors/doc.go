// Package errors defines error types for the tsserver client.
//
// This package provides structured error types for each failure scenario of
// a server connection: a missing executable, a failed spawn, a crashed or
// exited process, an application-level command failure and an undecodable
// output line. All error types support error unwrapping and can be checked
// using errors.Is, errors.As, and errors.AsType.
package errors
