package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/wagiedev/tsserver-go/internal/errors"
	"github.com/wagiedev/tsserver-go/internal/event"
	"github.com/wagiedev/tsserver-go/internal/message"
	"github.com/wagiedev/tsserver-go/internal/pending"
)

// Transport defines the minimal interface needed for protocol operations.
//
// This interface is satisfied by the subprocess Transport but allows for
// testing with mock transports.
type Transport interface {
	ReadMessages(ctx context.Context) (<-chan *message.Message, <-chan error)
	SendMessage(ctx context.Context, data []byte) error
}

// Config wires a Controller to state that outlives a single connection.
type Config struct {
	// Sequence issues request sequence numbers. Required.
	Sequence *Sequence

	// Table tracks requests awaiting a response. Required.
	Table *pending.Table

	// Events receives server events. Required. The read loop calls it
	// directly, so it must not block; the client passes an
	// event.Dispatcher.
	Events event.Publisher

	// Debug logs every request, response and event at debug level.
	Debug bool
}

// Controller manages request/response correlation over one connection.
//
// The Controller must be started with Start() before use and manages its own
// goroutines for reading and writing. Once the connection fails or Stop is
// called, the Controller is finished; a new connection needs a new Controller.
type Controller struct {
	log       *slog.Logger
	transport Transport
	seq       *Sequence
	table     *pending.Table
	events    event.Publisher
	debug     bool

	queue *writeQueue

	// mu orders sequence assignment with enqueueing and guards the
	// terminal state.
	mu       sync.Mutex
	stopped  bool
	fatalErr error

	// Lifecycle management
	cancel    context.CancelFunc
	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewController creates a new protocol controller.
//
// The transport must be connected before calling Start().
func NewController(log *slog.Logger, transport Transport, cfg *Config) *Controller {
	return &Controller{
		log:       log.With("component", "protocol"),
		transport: transport,
		seq:       cfg.Sequence,
		table:     cfg.Table,
		events:    cfg.Events,
		debug:     cfg.Debug,
		queue:     newWriteQueue(),
		done:      make(chan struct{}),
	}
}

// closeDone safely closes the done channel exactly once.
func (c *Controller) closeDone() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Done returns a channel that is closed once the controller has stopped and
// every request it carried has been settled.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Stopped reports whether the controller no longer accepts requests. It may
// become true slightly before Done is closed.
func (c *Controller) Stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stopped
}

// FatalError returns the error that ended the connection, if any.
func (c *Controller) FatalError() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fatalErr
}

// Start begins reading and writing on the transport.
//
// The goroutines stop when ctx is cancelled, Stop is called or the
// transport reports a terminal error. ctx should live as long as the
// connection, not as long as a single request.
func (c *Controller) Start(ctx context.Context) error {
	c.log.Debug("Starting protocol controller")

	ctx, c.cancel = context.WithCancel(ctx)

	messages, errs := c.transport.ReadMessages(ctx)

	c.wg.Go(func() { c.readLoop(messages, errs) })
	c.wg.Go(func() { c.writeLoop(ctx) })

	c.log.Info("Protocol controller started")

	return nil
}

// Stop shuts the controller down, rejecting every pending request with
// reason. It's safe to call Stop multiple times and after a failure.
func (c *Controller) Stop(reason error) {
	c.log.Debug("Stopping protocol controller")

	c.terminate(reason)

	if c.cancel != nil {
		c.cancel()
	}

	c.wg.Wait()
	c.log.Info("Protocol controller stopped")
}

// Send assigns the next sequence number to command and queues it for
// writing. It never blocks on the transport.
//
// When expectResponse is true the request is registered in the pending
// table before Send returns and the returned entry settles with the
// server's answer. Otherwise the entry is nil.
func (c *Controller) Send(command string, args any, expectResponse bool) (int64, *pending.Entry, error) {
	var raw json.RawMessage

	if args != nil {
		data, err := json.Marshal(args)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal %s arguments: %w", command, err)
		}

		raw = data
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		if c.fatalErr != nil {
			return 0, nil, c.fatalErr
		}

		return 0, nil, errors.ErrServerNotRunning
	}

	seq := c.seq.Next()

	req := message.NewRequest(seq, command, nil)
	if raw != nil {
		req.Arguments = raw
	}

	data, err := json.Marshal(req)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal %s request: %w", command, err)
	}

	var entry *pending.Entry

	if expectResponse {
		entry, err = c.table.Add(seq, command)
		if err != nil {
			return 0, nil, err
		}
	}

	c.queue.push(outbound{seq: seq, command: command, data: data, entry: entry})

	return seq, entry, nil
}

// terminate marks the controller stopped, rejects everything pending with
// err and closes done. Only the first call has an effect.
func (c *Controller) terminate(err error) {
	c.mu.Lock()

	if c.stopped {
		c.mu.Unlock()
		c.closeDone()

		return
	}

	c.stopped = true
	c.fatalErr = err
	c.mu.Unlock()

	if n := c.table.RejectAll(err); n > 0 {
		c.log.Debug("Rejected pending requests", "count", n, "error", err)
	}

	c.closeDone()
}

// readLoop reads messages from the transport and routes them.
func (c *Controller) readLoop(messages <-chan *message.Message, errs <-chan error) {
	defer c.log.Debug("Protocol read loop stopped")

	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				c.log.Debug("Message channel closed")
				c.terminate(c.closeError(errs))

				return
			}

			c.handleMessage(msg)

		case err, ok := <-errs:
			if !ok {
				errs = nil

				continue
			}

			if err != nil {
				c.log.Error("Connection to tsserver lost", "error", err)
				c.drain(messages)
				c.terminate(err)

				return
			}

		case <-c.done:
			c.log.Debug("Protocol controller stop signal received")

			return
		}
	}
}

// drain routes the messages that were already delivered when the
// connection failed.
func (c *Controller) drain(messages <-chan *message.Message) {
	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				return
			}

			c.handleMessage(msg)
		default:
			return
		}
	}
}

// closeError picks the error to report once the message stream ended.
func (c *Controller) closeError(errs <-chan error) error {
	if errs != nil {
		if err, ok := <-errs; ok && err != nil {
			c.log.Error("Connection to tsserver lost", "error", err)

			return err
		}
	}

	return fmt.Errorf("%w: connection closed", errors.ErrServerNotRunning)
}

// writeLoop writes queued requests in the order they were sent.
func (c *Controller) writeLoop(ctx context.Context) {
	defer c.log.Debug("Protocol write loop stopped")

	for {
		select {
		case <-c.queue.ready:
			for _, item := range c.queue.drain() {
				select {
				case <-c.done:
					return
				default:
				}

				c.write(ctx, item)
			}

		case <-c.done:
			if dropped := len(c.queue.drain()); dropped > 0 {
				c.log.Debug("Dropped unsent requests", "count", dropped)
			}

			return
		}
	}
}

func (c *Controller) write(ctx context.Context, item outbound) {
	if c.debug {
		c.log.Debug("Sending request", "seq", item.seq, "command", item.command, "data", string(item.data))
	}

	err := c.transport.SendMessage(ctx, item.data)
	if err == nil {
		return
	}

	if item.entry == nil {
		c.log.Error("Failed to send command", "seq", item.seq, "command", item.command, "error", err)

		return
	}

	if entry, ok := c.table.Remove(item.seq); ok {
		entry.Reject(fmt.Errorf("send %s request: %w", item.command, err))
	}
}

// handleMessage routes a message based on its type.
func (c *Controller) handleMessage(msg *message.Message) {
	switch {
	case msg.IsResponse():
		c.handleResponse(msg)

	case msg.IsEvent():
		c.handleEvent(msg)

	default:
		c.log.Warn("Ignoring message of unknown type", "type", msg.Type, "seq", msg.Seq)
	}
}

// handleResponse settles the pending request a response answers.
func (c *Controller) handleResponse(msg *message.Message) {
	if c.debug {
		c.log.Debug("Received response",
			"request_seq", msg.RequestSeq,
			"command", msg.Command,
			"success", msg.Success,
			"body", string(msg.Body),
		)
	}

	entry, ok := c.table.Remove(msg.RequestSeq)
	if !ok {
		c.log.Warn("Response for unknown request", "request_seq", msg.RequestSeq, "command", msg.Command)

		return
	}

	if msg.Success {
		entry.Resolve(msg)

		return
	}

	entry.Reject(&errors.CommandError{
		Command: msg.Command,
		Seq:     msg.RequestSeq,
		Message: msg.Message,
	})
}

// handleEvent publishes an event under its event name. A body that does
// not match its topic's type is published as raw JSON.
func (c *Controller) handleEvent(msg *message.Message) {
	if c.debug {
		c.log.Debug("Received event", "event", msg.Event, "body", string(msg.Body))
	}

	payload, err := event.DecodePayload(msg)
	if err != nil {
		c.log.Warn("Publishing malformed event body as raw JSON", "event", msg.Event, "error", err)

		payload = json.RawMessage(msg.Body)
	}

	c.events.Publish(msg.Event, payload)
}
