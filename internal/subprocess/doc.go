// Package subprocess provides the subprocess-based transport for tsserver.
//
// This package implements the Transport interface by spawning tsserver as a
// child process and communicating via stdin/stdout. It handles process
// lifecycle management, line framing of stdout, stderr forwarding, and
// reporting of process exit.
package subprocess
