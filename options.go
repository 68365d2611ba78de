package tsserver

import (
	"log/slog"
	"time"
)

// Option configures Options using the functional options pattern.
type Option func(*Options)

// applyOptions applies functional options to an Options struct.
func applyOptions(opts []Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// ===== Basic Configuration =====

// WithLogger sets the logger for operational output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithDebug logs every request, response and event at debug level.
func WithDebug(debug bool) Option {
	return func(o *Options) {
		o.Debug = debug
	}
}

// WithServerPath sets the explicit path to tsserver, either an executable
// or a tsserver.js entry point. If not set, the server is discovered.
func WithServerPath(path string) Option {
	return func(o *Options) {
		o.ServerPath = path
	}
}

// WithNodePath sets the node binary used to run a .js server.
func WithNodePath(path string) Option {
	return func(o *Options) {
		o.NodePath = path
	}
}

// WithProjectRoot sets the server's working directory and the starting
// point of discovery.
func WithProjectRoot(dir string) Option {
	return func(o *Options) {
		o.ProjectRoot = dir
	}
}

// WithEnv adds environment variables for the server process.
func WithEnv(env map[string]string) Option {
	return func(o *Options) {
		o.Env = env
	}
}

// ===== Server Arguments =====

// WithArgs appends raw arguments to the server command line.
func WithArgs(args ...string) Option {
	return func(o *Options) {
		o.Args = append(o.Args, args...)
	}
}

// WithGlobalPlugins loads language service plugins for every project.
func WithGlobalPlugins(plugins ...string) Option {
	return func(o *Options) {
		o.GlobalPlugins = append(o.GlobalPlugins, plugins...)
	}
}

// WithPluginSearchPaths adds directories searched for global plugins.
func WithPluginSearchPaths(dirs ...string) Option {
	return func(o *Options) {
		o.PluginSearchPaths = append(o.PluginSearchPaths, dirs...)
	}
}

// WithLocale sets the language of server messages, e.g. "de".
func WithLocale(locale string) Option {
	return func(o *Options) {
		o.Locale = locale
	}
}

// ===== Process I/O =====

// WithStderr sets a callback invoked with every line the server writes to stderr.
func WithStderr(handler func(string)) Option {
	return func(o *Options) {
		o.Stderr = handler
	}
}

// WithMaxBufferSize sets the maximum size of a single line of server output.
func WithMaxBufferSize(size int) Option {
	return func(o *Options) {
		o.MaxBufferSize = &size
	}
}

// WithHandshakeTimeout bounds how long a new server has to answer the
// readiness ping.
func WithHandshakeTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.HandshakeTimeout = &timeout
	}
}

// ===== Advanced =====

// WithTransport sets a factory for custom transports. A new transport is
// requested for every server start, including restarts after a crash.
// This is primarily for testing and for attaching to servers that are not
// local child processes.
func WithTransport(factory func(*Options) Transport) Option {
	return func(o *Options) {
		o.NewTransport = factory
	}
}
