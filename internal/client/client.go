package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/singleflight"

	"github.com/wagiedev/tsserver-go/internal/config"
	"github.com/wagiedev/tsserver-go/internal/discovery"
	"github.com/wagiedev/tsserver-go/internal/errors"
	"github.com/wagiedev/tsserver-go/internal/event"
	"github.com/wagiedev/tsserver-go/internal/message"
	"github.com/wagiedev/tsserver-go/internal/pending"
	"github.com/wagiedev/tsserver-go/internal/protocol"
	"github.com/wagiedev/tsserver-go/internal/subprocess"
)

// State is the lifecycle state of the server process behind a Client.
type State int

const (
	// StateNotStarted means no server process is live.
	StateNotStarted State = iota
	// StateStarting means a process is being spawned or handshaken.
	StateStarting
	// StateReady means a live process has answered the handshake.
	StateReady
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// startKey is the singleflight key shared by every start attempt.
const startKey = "start"

// locator is implemented by transports that know which server they run.
type locator interface {
	Location() *discovery.Location
}

// connection is one live server process.
type connection struct {
	transport  config.Transport
	controller *protocol.Controller
}

// Client implements the tsserver client.
type Client struct {
	log     *slog.Logger
	options *config.Options
	id      string

	bus    *event.Bus
	events *event.Dispatcher
	table  *pending.Table
	seq   *protocol.Sequence

	// ctx outlives every connection; Close cancels it.
	ctx    context.Context
	cancel context.CancelFunc

	starts singleflight.Group
	wg     sync.WaitGroup

	// Lifecycle management
	mu        sync.Mutex
	conn      *connection
	location  *discovery.Location
	started   bool // Start has been called at least once
	starting  bool
	closed    bool
	closeOnce sync.Once
}

// New creates a client. No process is spawned until Start is called.
func New(options *config.Options) *Client {
	// Default to empty options if nil
	if options == nil {
		options = &config.Options{}
	}

	// Extract logger from options, defaulting to a no-op logger
	log := options.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	id := ulid.Make().String()
	log = log.With("component", "client", "client_id", id)

	ctx, cancel := context.WithCancel(context.Background())

	bus := event.NewBus(log)

	c := &Client{
		log:     log,
		options: options,
		id:      id,
		bus:     bus,
		events:  event.NewDispatcher(bus),
		seq:     &protocol.Sequence{},
		ctx:     ctx,
		cancel:  cancel,
	}

	c.table = pending.NewTable(func(infos []pending.Info) {
		event.Publish(c.events, event.PendingRequestsChange, infos)
	})

	return c
}

// ID returns the unique identifier of this client.
func (c *Client) ID() string {
	return c.id
}

// Events returns the bus on which server events are published.
//
// Handlers run one at a time on a goroutine owned by the client, in the
// order the events arrived. They may issue requests and wait for the
// responses; events that arrive meanwhile are queued.
func (c *Client) Events() *event.Bus {
	return c.bus
}

// On subscribes fn to every event published under name. See Events for
// where fn runs.
func (c *Client) On(name string, fn event.Handler) (unsubscribe func()) {
	return c.bus.Subscribe(name, fn)
}

// PendingRequests returns the requests awaiting a response, ordered by
// sequence number.
func (c *Client) PendingRequests() []pending.Info {
	return c.table.Snapshot()
}

// State reports the lifecycle state of the server process.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.conn != nil && !c.conn.controller.Stopped():
		return StateReady
	case c.starting:
		return StateStarting
	default:
		return StateNotStarted
	}
}

// ServerPath returns the path of the most recently started server, or the
// configured path before the first start.
func (c *Client) ServerPath() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.location != nil {
		return c.location.Path
	}

	return c.options.ServerPath
}

// Version returns the TypeScript version of the most recently started
// server, empty when unknown.
func (c *Client) Version() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.location != nil {
		return c.location.Version
	}

	return ""
}

// Start spawns the server and waits for it to answer the handshake.
//
// Concurrent calls share one spawn. Calling Start on a ready client is a
// no-op. ctx bounds only the wait: a spawn abandoned by every caller keeps
// running and its result is used by the next caller.
//
// Returns ServerNotFoundError if the server cannot be located,
// or ConnectionError if the process fails to start.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()

		return errors.ErrClientClosed
	}

	c.started = true
	c.mu.Unlock()

	_, err := c.connect(ctx)

	return err
}

// Execute sends command with args.
//
// For commands that produce a response, Execute waits for it and returns
// the response; a response with success false yields a CommandError
// carrying the server's message. Other commands return (nil, nil) once
// queued.
//
// If the server died since the last command, a new one is spawned first.
// Before the first Start, Execute fails with ErrServerNotRunning.
func (c *Client) Execute(ctx context.Context, command string, args any) (*message.Message, error) {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()

		return nil, errors.ErrClientClosed
	}

	if !c.started {
		c.mu.Unlock()

		return nil, errors.ErrServerNotRunning
	}

	c.mu.Unlock()

	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	_, entry, err := conn.controller.Send(command, args, message.ExpectsResponse(command))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", command, err)
	}

	if entry == nil {
		return nil, nil
	}

	return entry.Wait(ctx)
}

// connect returns the live connection, spawning one if needed.
func (c *Client) connect(ctx context.Context) (*connection, error) {
	if conn, err := c.liveConnection(); conn != nil || err != nil {
		return conn, err
	}

	ch := c.starts.DoChan(startKey, func() (any, error) {
		if conn, err := c.liveConnection(); conn != nil || err != nil {
			return conn, err
		}

		return c.spawn()
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}

		conn, _ := res.Val.(*connection)

		return conn, nil

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// liveConnection returns the current connection if it still accepts
// requests.
func (c *Client) liveConnection() (*connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errors.ErrClientClosed
	}

	if c.conn != nil && !c.conn.controller.Stopped() {
		return c.conn, nil
	}

	return nil, nil
}

// spawn starts a new server process. Only one spawn runs at a time.
func (c *Client) spawn() (*connection, error) {
	c.mu.Lock()
	c.starting = true
	old := c.conn
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.starting = false
		c.mu.Unlock()
	}()

	// Requests of the dead process must be settled before new ones exist.
	if old != nil {
		<-old.controller.Done()
	}

	c.log.Info("Starting tsserver")

	transport := c.newTransport()
	if err := transport.Start(c.ctx); err != nil {
		c.log.Error("Failed to start tsserver", "error", err)

		return nil, err
	}

	controller := protocol.NewController(c.log, transport, &protocol.Config{
		Sequence: c.seq,
		Table:    c.table,
		Events:   c.events,
		Debug:    c.options.Debug,
	})

	if err := controller.Start(c.ctx); err != nil {
		_ = transport.Close()

		return nil, fmt.Errorf("start protocol controller: %w", err)
	}

	conn := &connection{transport: transport, controller: controller}

	if err := protocol.NewSession(c.log, controller, c.options).Handshake(c.ctx); err != nil {
		c.log.Error("tsserver failed the handshake", "error", err)
		c.teardown(conn, err)

		return nil, fmt.Errorf("start tsserver: %w", err)
	}

	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		c.teardown(conn, errors.ErrClientClosed)

		return nil, errors.ErrClientClosed
	}

	c.conn = conn

	if loc, ok := transport.(locator); ok && loc.Location() != nil {
		c.location = loc.Location()
	}

	c.mu.Unlock()

	c.wg.Go(func() { c.watch(conn) })

	c.log.Info("tsserver ready", "server_path", c.ServerPath(), "version", c.Version())

	return conn, nil
}

func (c *Client) newTransport() config.Transport {
	if c.options.NewTransport != nil {
		return c.options.NewTransport(c.options)
	}

	return subprocess.NewTransport(c.log, c.options)
}

// watch resets the client when conn dies so the next command respawns.
func (c *Client) watch(conn *connection) {
	<-conn.controller.Done()

	c.mu.Lock()
	current := c.conn == conn
	if current {
		c.conn = nil
	}
	closed := c.closed
	c.mu.Unlock()

	if current && !closed {
		err := conn.controller.FatalError()
		if err == nil {
			err = errors.ErrServerNotRunning
		}

		c.log.Error("tsserver stopped; it will be restarted by the next command", "error", err)
		event.Publish(c.events, event.ServerExit, err)
	}

	_ = conn.transport.Close()
}

// teardown stops conn and closes its transport.
func (c *Client) teardown(conn *connection, reason error) {
	conn.controller.Stop(reason)

	if err := conn.transport.Close(); err != nil {
		c.log.Debug("Transport close failed", "error", err)
	}
}

// Close kills the server and rejects every pending request with
// ErrClientClosed.
//
// After Close(), the client cannot be reused - create a new client with New().
// This method is safe to call multiple times.
func (c *Client) Close() error {
	var closeErr error

	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		conn := c.conn
		c.conn = nil
		c.mu.Unlock()

		c.log.Info("Closing client")

		// Abort a spawn or handshake in progress.
		c.cancel()

		if conn != nil {
			conn.controller.Stop(errors.ErrClientClosed)
			closeErr = conn.transport.Close()
		}

		c.table.RejectAll(errors.ErrClientClosed)
		c.wg.Wait()

		// Handlers queued so far still run; Close may itself be called
		// from one, so it does not wait for them.
		c.events.Close()

		c.log.Info("Client closed")
	})

	return closeErr
}
