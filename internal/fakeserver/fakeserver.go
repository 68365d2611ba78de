// Package fakeserver provides an in-memory tsserver for tests.
//
// A Server implements config.Transport. It records every request, answers
// ping with a failure like the real server does and answers other commands
// through registered handlers. Commands that expect a response and have no
// handler get an empty success; held commands get no answer at all.
package fakeserver

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"time"

	"github.com/wagiedev/tsserver-go/internal/config"
	"github.com/wagiedev/tsserver-go/internal/errors"
	"github.com/wagiedev/tsserver-go/internal/message"
)

// Handler produces the body of a response. A non-nil error becomes a
// failed response whose message is the error text.
type Handler func(args json.RawMessage) (body any, err error)

// Request is a request as the server received it.
type Request struct {
	Seq       int64           `json:"seq"`
	Command   string          `json:"command"`
	Arguments json.RawMessage `json:"arguments"`
}

// Server is a scripted tsserver.
type Server struct {
	mu         sync.Mutex
	handlers   map[string]Handler
	held       map[string]bool
	requests   []Request
	closed     bool
	startDelay time.Duration
	startErr   error

	msgs chan *message.Message
	errs chan error
	end  sync.Once
}

// Compile-time verification that Server implements config.Transport.
var _ config.Transport = (*Server)(nil)

// New creates a server with no handlers.
func New() *Server {
	return &Server{
		handlers: make(map[string]Handler),
		held:     make(map[string]bool),
		msgs:     make(chan *message.Message, 256),
		errs:     make(chan error, 1),
	}
}

// Handle registers h for command and returns s.
func (s *Server) Handle(command string, h Handler) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handlers[command] = h

	return s
}

// Reply registers a handler that always answers with body.
func (s *Server) Reply(command string, body any) *Server {
	return s.Handle(command, func(json.RawMessage) (any, error) { return body, nil })
}

// Fail registers a handler that always fails with text.
func (s *Server) Fail(command, text string) *Server {
	return s.Handle(command, func(json.RawMessage) (any, error) { return nil, stderrors.New(text) })
}

// Hold records command but never answers it.
func (s *Server) Hold(command string) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.held[command] = true

	return s
}

// DelayStart makes Start take d.
func (s *Server) DelayStart(d time.Duration) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.startDelay = d

	return s
}

// FailStart makes Start fail with err.
func (s *Server) FailStart(err error) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.startErr = err

	return s
}

// Start implements config.Transport.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	delay, err := s.startDelay, s.startErr
	s.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return err
}

// ReadMessages implements config.Transport.
func (s *Server) ReadMessages(context.Context) (<-chan *message.Message, <-chan error) {
	return s.msgs, s.errs
}

// SendMessage implements config.Transport.
func (s *Server) SendMessage(_ context.Context, data []byte) error {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return err
	}

	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()

		return errors.ErrStdinClosed
	}

	s.requests = append(s.requests, req)
	handler, ok := s.handlers[req.Command]
	held := s.held[req.Command]
	s.mu.Unlock()

	switch {
	case held:
	case req.Command == message.CommandPing && !ok:
		s.respond(req, nil, "Unrecognized JSON command: ping")
	case ok:
		body, err := handler(req.Arguments)
		if !message.ExpectsResponse(req.Command) && req.Command != message.CommandPing {
			return nil
		}

		if err != nil {
			s.respond(req, nil, err.Error())
		} else {
			s.respond(req, body, "")
		}
	case message.ExpectsResponse(req.Command):
		s.respond(req, nil, "")
	}

	return nil
}

func (s *Server) respond(req Request, body any, failure string) {
	resp := &message.Message{
		Type:       message.TypeResponse,
		RequestSeq: req.Seq,
		Command:    req.Command,
		Success:    failure == "",
		Message:    failure,
	}

	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			panic(err)
		}

		resp.Body = data
	}

	s.deliver(resp)
}

// Emit pushes an event to the client.
func (s *Server) Emit(name string, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		panic(err)
	}

	s.deliver(&message.Message{Type: message.TypeEvent, Event: name, Body: data})
}

func (s *Server) deliver(msg *message.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.msgs <- msg
	}
}

// Crash simulates the process exiting with code.
func (s *Server) Crash(code int) {
	s.finish(&errors.ProcessError{ExitCode: code})
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Request(nil), s.requests...)
}

// Commands returns the command names received so far, in order.
func (s *Server) Commands() []string {
	reqs := s.Requests()

	names := make([]string, len(reqs))
	for i, req := range reqs {
		names[i] = req.Command
	}

	return names
}

// IsReady implements config.Transport.
func (s *Server) IsReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return !s.closed
}

// Close implements config.Transport.
func (s *Server) Close() error {
	s.finish(nil)

	return nil
}

func (s *Server) finish(err error) {
	s.end.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		if err != nil {
			s.errs <- err
		}

		close(s.errs)
		close(s.msgs)
	})
}

// Farm creates a Server for every transport a client requests.
type Farm struct {
	mu      sync.Mutex
	setup   func(*Server)
	servers []*Server
}

// NewFarm creates a farm. setup, if non-nil, configures each new server.
func NewFarm(setup func(*Server)) *Farm {
	return &Farm{setup: setup}
}

// Setup replaces the function configuring servers created from now on.
func (f *Farm) Setup(setup func(*Server)) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.setup = setup
}

// NewTransport matches config.Options.NewTransport.
func (f *Farm) NewTransport(*config.Options) config.Transport {
	srv := New()

	f.mu.Lock()
	setup := f.setup
	f.mu.Unlock()

	if setup != nil {
		setup(srv)
	}

	f.mu.Lock()
	f.servers = append(f.servers, srv)
	f.mu.Unlock()

	return srv
}

// Spawns returns the number of servers created so far.
func (f *Farm) Spawns() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.servers)
}

// Server returns the i-th server created.
func (f *Farm) Server(i int) *Server {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.servers[i]
}

// Servers returns every server created so far.
func (f *Farm) Servers() []*Server {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]*Server(nil), f.servers...)
}
