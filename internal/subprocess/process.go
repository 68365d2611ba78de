package subprocess

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/tsserver-go/internal/config"
	"github.com/wagiedev/tsserver-go/internal/discovery"
	"github.com/wagiedev/tsserver-go/internal/errors"
	"github.com/wagiedev/tsserver-go/internal/message"
)

const (
	// maxStderrBufferSize is the maximum size for the stderr buffer.
	// Stderr reading continues indefinitely (callback receives all lines),
	// but the buffer stops growing after this limit to prevent unbounded memory usage.
	maxStderrBufferSize = 1024 * 1024 // 1MB

	// writeAbandonTimeout bounds how long SendMessage waits for a write
	// goroutine after closing stdin.
	writeAbandonTimeout = 1 * time.Second
)

// Transport implements config.Transport by spawning a tsserver subprocess.
type Transport struct {
	log            *slog.Logger
	options        *config.Options
	location       *discovery.Location
	cmd            *exec.Cmd
	stdin          io.WriteCloser
	stdout         io.ReadCloser
	stderr         io.ReadCloser
	stderrCallback func(string) // Callback for streaming stderr output
	mu             sync.Mutex   // Protects stdin writes
	closing        bool         // Whether Close() has been called (intentional shutdown)
	stdinClosed    bool         // Whether stdin was closed
}

// Compile-time verification that Transport implements the config.Transport interface.
var _ config.Transport = (*Transport)(nil)

// NewTransport creates a transport for one server process.
//
// Server discovery is deferred to Start(), which searches in the order
// documented in package discovery and returns ServerNotFoundError when no
// server can be located.
func NewTransport(log *slog.Logger, options *config.Options) *Transport {
	return &Transport{
		log:            log.With("component", "subprocess"),
		options:        options,
		stderrCallback: options.Stderr,
	}
}

// Start discovers and spawns the server process.
//
// The process is not bound to ctx: it lives until Close is called or it
// exits on its own. ctx only bounds discovery.
//
// Returns ServerNotFoundError if the server cannot be located,
// or ConnectionError if the process fails to start.
func (t *Transport) Start(ctx context.Context) error {
	t.log.Info("Starting tsserver subprocess")

	loc, err := discovery.NewDiscoverer(&discovery.Config{
		ServerPath: t.options.ServerPath,
		StartDir:   t.options.ProjectRoot,
		Logger:     t.log,
	}).Discover(ctx)
	if err != nil {
		return fmt.Errorf("discover tsserver: %w", err)
	}

	t.location = loc

	name, args := discovery.BuildCommand(loc.Path, t.options)
	t.log.Debug("Built command", "name", name, "args", args)

	cwd := t.options.ProjectRoot
	if cwd == "" {
		cwd, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
	}

	//nolint:gosec // G204: Subprocess launching with dynamic args is expected for server invocation
	cmd := exec.Command(name, args...)
	cmd.Dir = cwd
	cmd.Env = discovery.BuildEnvironment(t.options)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		t.log.Error("Failed to create stdin pipe", "error", err)

		return &errors.ConnectionError{Err: fmt.Errorf("stdin pipe: %w", err)}
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		t.log.Error("Failed to create stdout pipe", "error", err)

		return &errors.ConnectionError{Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		t.log.Error("Failed to create stderr pipe", "error", err)

		return &errors.ConnectionError{Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	if err := cmd.Start(); err != nil {
		t.log.Error("Failed to start tsserver process", "error", err)

		return &errors.ConnectionError{Err: fmt.Errorf("start process: %w", err)}
	}

	t.mu.Lock()
	t.cmd = cmd
	t.stdin = stdin
	t.stdout = stdout
	t.stderr = stderr
	t.mu.Unlock()

	t.log.Info("tsserver subprocess started", "pid", cmd.Process.Pid, "server_path", loc.Path, "version", loc.Version)

	return nil
}

// Location returns the discovered server, or nil before Start succeeded.
func (t *Transport) Location() *discovery.Location {
	return t.location
}

// ReadMessages frames stdout into messages until the process exits.
//
// Unparseable lines are logged by the framer and skipped. When stdout ends
// the process is reaped and, unless Close was called, a ProcessError
// carrying the exit code and captured stderr is sent on the error channel.
// Both channels are closed when the goroutine exits.
func (t *Transport) ReadMessages(ctx context.Context) (<-chan *message.Message, <-chan error) {
	messages := make(chan *message.Message)
	errs := make(chan error, 1)

	var (
		readers      errgroup.Group
		stderrBuffer strings.Builder
		stderrMu     sync.Mutex
	)

	// Stderr must be drained before Wait(); see os/exec.Cmd.StderrPipe.
	readers.Go(func() error {
		scanner := bufio.NewScanner(t.stderr)
		for scanner.Scan() {
			line := scanner.Text()

			stderrMu.Lock()

			if stderrBuffer.Len() < maxStderrBufferSize {
				if stderrBuffer.Len() > 0 {
					stderrBuffer.WriteString("\n")
				}

				stderrBuffer.WriteString(line)
			}

			stderrMu.Unlock()

			t.log.Warn("tsserver stderr", "line", line)

			if t.stderrCallback != nil {
				t.stderrCallback(line)
			}
		}

		return scanner.Err()
	})

	readers.Go(func() error {
		maxLine := 0
		if t.options.MaxBufferSize != nil {
			maxLine = *t.options.MaxBufferSize
		}

		framer := message.NewFramer(t.log, t.stdout, maxLine)

		for msg := range framer.Messages() {
			select {
			case messages <- msg:
			case <-ctx.Done():
				t.log.Debug("Context cancelled during message delivery", "error", ctx.Err())
				// Keep draining so the process never blocks on a full pipe.
				_, _ = io.Copy(io.Discard, t.stdout)

				return ctx.Err()
			}
		}

		t.log.Debug("Stdout closed", "message_count", framer.Count())

		if err := framer.Err(); err != nil {
			return fmt.Errorf("read stdout: %w", err)
		}

		return nil
	})

	go func() {
		defer close(messages)
		defer close(errs)
		defer t.log.Debug("ReadMessages goroutine stopped")

		readErr := readers.Wait()
		if readErr != nil {
			t.log.Debug("Reader stopped with error", "error", readErr)
		}

		waitErr := t.cmd.Wait()

		t.mu.Lock()
		isClosing := t.closing
		t.stdinClosed = true
		t.mu.Unlock()

		if isClosing {
			t.log.Debug("tsserver terminated during shutdown")

			return
		}

		stderrMu.Lock()
		stderrOutput := strings.TrimSpace(stderrBuffer.String())
		stderrMu.Unlock()

		exitCode := t.cmd.ProcessState.ExitCode()

		var cause error

		if _, ok := stderrors.AsType[*exec.ExitError](waitErr); !ok && waitErr != nil {
			cause = waitErr
		} else if readErr != nil {
			cause = readErr
		}

		t.log.Error("tsserver exited", "exit_code", exitCode, "stderr", stderrOutput)

		errs <- &errors.ProcessError{
			ExitCode: exitCode,
			Stderr:   stderrOutput,
			Err:      cause,
		}
	}()

	return messages, errs
}

// SendMessage writes one serialized message to the server's stdin.
//
// A newline is appended if data does not end with one. This method is safe
// for concurrent use and respects context cancellation even during blocking
// writes: if ctx is cancelled during a blocked write, stdin is closed to
// unblock it and subsequent calls return ErrStdinClosed.
func (t *Transport) SendMessage(ctx context.Context, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stdin == nil {
		return errors.ErrTransportNotConnected
	}

	if t.stdinClosed {
		return errors.ErrStdinClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	// Use explicit copy to avoid mutating caller's backing array if slice has spare capacity
	if len(data) == 0 || data[len(data)-1] != '\n' {
		newData := make([]byte, len(data)+1)
		copy(newData, data)
		newData[len(data)] = '\n'
		data = newData
	}

	done := make(chan error, 1)

	go func() {
		_, err := t.stdin.Write(data)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.log.Error("Failed to write message to tsserver", "error", err)

			return fmt.Errorf("write to stdin: %w", err)
		}

		return nil

	case <-ctx.Done():
		t.log.Debug("Context cancelled during write, closing stdin")

		_ = t.stdin.Close()
		t.stdinClosed = true

		select {
		case <-done:
		case <-time.After(writeAbandonTimeout):
			t.log.Warn("Write goroutine did not exit after stdin close, potential leak")
		}

		return ctx.Err()
	}
}

// IsReady checks if the transport is ready for communication.
//
// Returns true if the process is running and stdin is open.
func (t *Transport) IsReady() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.cmd != nil && t.cmd.Process != nil && t.stdin != nil && !t.stdinClosed
}

// Close terminates the server process.
//
// This forcefully kills the process. It's safe to call Close multiple times
// or on a transport that never started. An intentional Close suppresses the
// ProcessError that ReadMessages would otherwise report.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closing {
		return nil
	}

	t.closing = true
	t.stdinClosed = true

	if t.stdin != nil {
		_ = t.stdin.Close()
	}

	if t.cmd != nil && t.cmd.Process != nil {
		t.log.Debug("Killing tsserver process", "pid", t.cmd.Process.Pid)

		if err := t.cmd.Process.Kill(); err != nil && !stderrors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("kill tsserver process (pid %d): %w", t.cmd.Process.Pid, err)
		}
	}

	return nil
}
