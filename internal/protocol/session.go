package protocol

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/wagiedev/tsserver-go/internal/config"
	"github.com/wagiedev/tsserver-go/internal/errors"
	"github.com/wagiedev/tsserver-go/internal/message"
)

const (
	// defaultHandshakeTimeout is how long a new server gets to answer the
	// readiness ping.
	defaultHandshakeTimeout = 60 * time.Second

	// EnvHandshakeTimeout overrides the handshake timeout, in seconds.
	EnvHandshakeTimeout = "TSSERVER_HANDSHAKE_TIMEOUT"
)

// Session performs the startup exchange on a freshly spawned server.
type Session struct {
	log        *slog.Logger
	controller *Controller
	options    *config.Options
}

// NewSession creates a Session for the connection driven by controller.
func NewSession(log *slog.Logger, controller *Controller, options *config.Options) *Session {
	return &Session{
		log:        log.With("component", "session"),
		controller: controller,
		options:    options,
	}
}

// Handshake sends a ping and waits for its response. Any response, success
// or failure, proves the server is reading requests. A lost connection or
// timeout fails the handshake.
func (s *Session) Handshake(ctx context.Context) error {
	s.log.Debug("Sending handshake ping")

	seq, entry, err := s.controller.Send(message.CommandPing, nil, true)
	if err != nil {
		return fmt.Errorf("handshake: %w", err)
	}

	timeout := s.handshakeTimeout()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err = entry.Wait(ctx)
	if err == nil {
		s.log.Debug("Handshake complete", "seq", seq)

		return nil
	}

	if cmdErr, ok := stderrors.AsType[*errors.CommandError](err); ok {
		s.log.Debug("Handshake answered with failure", "seq", seq, "message", cmdErr.Message)

		return nil
	}

	if ctx.Err() != nil {
		s.controller.table.Remove(seq)

		s.log.Warn("Handshake timed out", "seq", seq, "timeout", timeout)
	}

	return fmt.Errorf("handshake: %w", err)
}

// handshakeTimeout returns the timeout from options, env var, or default.
func (s *Session) handshakeTimeout() time.Duration {
	if s.options != nil && s.options.HandshakeTimeout != nil {
		return *s.options.HandshakeTimeout
	}

	if timeoutStr := os.Getenv(EnvHandshakeTimeout); timeoutStr != "" {
		if timeoutSec, err := strconv.Atoi(timeoutStr); err == nil && timeoutSec > 0 {
			return time.Duration(timeoutSec) * time.Second
		}
	}

	return defaultHandshakeTimeout
}
