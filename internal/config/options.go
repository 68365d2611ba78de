package config

import (
	"log/slog"
	"time"
)

// Options configures a tsserver client.
type Options struct {
	// Logger is the slog logger for operational output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// Debug enables protocol tracing: every outbound request, inbound
	// response and event is logged at debug level. It never changes behavior.
	Debug bool

	// ServerPath is the explicit path to tsserver (an executable or a .js
	// entry point). If empty, the server is discovered from ProjectRoot.
	ServerPath string

	// NodePath is the node binary used to run a .js server entry point.
	// Defaults to "node" resolved from PATH.
	NodePath string

	// ProjectRoot is the working directory of the server process and the
	// starting point of server discovery. Defaults to the current directory.
	ProjectRoot string

	// Args are extra arguments passed verbatim to the server.
	Args []string

	// GlobalPlugins are language service plugins loaded for every project.
	GlobalPlugins []string

	// PluginSearchPaths are extra directories searched for GlobalPlugins.
	PluginSearchPaths []string

	// Locale sets the language of server-generated messages.
	Locale string

	// Env provides additional environment variables for the server process.
	Env map[string]string

	// Stderr is a callback invoked with every line the server writes to stderr.
	Stderr func(string)

	// HandshakeTimeout bounds how long a new server has to answer the
	// readiness ping. If nil, TSSERVER_HANDSHAKE_TIMEOUT (seconds) or 60s
	// is used.
	HandshakeTimeout *time.Duration

	// MaxBufferSize sets the maximum bytes of a single stdout line.
	// If nil, a 16MB limit is used.
	MaxBufferSize *int

	// NewTransport builds the transport for each connection attempt.
	// If nil, a subprocess transport is created. A fresh transport is
	// requested after every crash so the factory must not return a shared
	// instance that cannot be restarted.
	NewTransport func(*Options) Transport `json:"-"`
}
