// Package pending tracks requests that are waiting for a server response.
//
// A Table maps sequence numbers to Entries. Each Entry settles exactly once,
// either resolved with the server's response or rejected with an error, and
// callers wait on it with Wait. Every change of table membership is reported
// to an optional listener with a snapshot of all pending requests, which is
// what progress displays consume.
package pending
