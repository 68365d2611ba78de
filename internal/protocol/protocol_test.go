package protocol

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/tsserver-go/internal/config"
	"github.com/wagiedev/tsserver-go/internal/errors"
	"github.com/wagiedev/tsserver-go/internal/event"
	"github.com/wagiedev/tsserver-go/internal/message"
	"github.com/wagiedev/tsserver-go/internal/pending"
)

// mockTransport implements Transport for testing.
type mockTransport struct {
	mu      sync.Mutex
	sendErr error
	msgChan chan *message.Message
	errChan chan error
	sent    chan []byte
}

func newMockTransport() *mockTransport {
	return &mockTransport{
		msgChan: make(chan *message.Message, 10),
		errChan: make(chan error, 1),
		sent:    make(chan []byte, 100),
	}
}

func (m *mockTransport) ReadMessages(_ context.Context) (<-chan *message.Message, <-chan error) {
	return m.msgChan, m.errChan
}

func (m *mockTransport) SendMessage(_ context.Context, data []byte) error {
	m.mu.Lock()
	err := m.sendErr
	m.mu.Unlock()

	if err != nil {
		return err
	}

	m.sent <- data

	return nil
}

func (m *mockTransport) failSends(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sendErr = err
}

type sentRequest struct {
	Seq       int64           `json:"seq"`
	Type      string          `json:"type"`
	Command   string          `json:"command"`
	Arguments json.RawMessage `json:"arguments"`
}

func (m *mockTransport) nextSent(t *testing.T) sentRequest {
	t.Helper()

	select {
	case data := <-m.sent:
		var req sentRequest
		require.NoError(t, json.Unmarshal(data, &req))

		return req
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a write")

		return sentRequest{}
	}
}

func (m *mockTransport) respond(seq int64, command string, success bool, msg, body string) {
	resp := &message.Message{
		Type:       message.TypeResponse,
		RequestSeq: seq,
		Command:    command,
		Success:    success,
		Message:    msg,
	}

	if body != "" {
		resp.Body = json.RawMessage(body)
	}

	m.msgChan <- resp
}

type fixture struct {
	transport  *mockTransport
	controller *Controller
	table      *pending.Table
	bus        *event.Bus
	seq        *Sequence
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := event.NewBus(log)
	f := &fixture{
		transport: newMockTransport(),
		table: pending.NewTable(func(infos []pending.Info) {
			event.Publish(bus, event.PendingRequestsChange, infos)
		}),
		bus: bus,
		seq: &Sequence{},
	}

	f.controller = NewController(log, f.transport, &Config{
		Sequence: f.seq,
		Table:    f.table,
		Events:   f.bus,
		Debug:    true,
	})

	require.NoError(t, f.controller.Start(context.Background()))
	t.Cleanup(func() { f.controller.Stop(errors.ErrClientClosed) })

	return f
}

func waitEntry(t *testing.T, entry *pending.Entry) (*message.Message, error) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return entry.Wait(ctx)
}

func TestController_FireAndForget(t *testing.T) {
	f := newFixture(t)

	seq, entry, err := f.controller.Send(message.CommandOpen, &message.OpenRequestArgs{FileRequestArgs: message.FileRequestArgs{File: "/p/a.ts"}}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)
	assert.Nil(t, entry)
	assert.Equal(t, 0, f.table.Len())

	req := f.transport.nextSent(t)
	assert.Equal(t, int64(0), req.Seq)
	assert.Equal(t, message.TypeRequest, req.Type)
	assert.Equal(t, "open", req.Command)
	assert.JSONEq(t, `{"file":"/p/a.ts"}`, string(req.Arguments))
}

func TestController_ResolvesResponse(t *testing.T) {
	f := newFixture(t)

	seq, entry, err := f.controller.Send(message.CommandQuickInfo,
		message.NewFileLocation("/p/a.ts", 1, 5), true)
	require.NoError(t, err)
	require.NotNil(t, entry)

	snapshot := f.table.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, seq, snapshot[0].Seq)
	assert.Equal(t, "quickinfo", snapshot[0].Command)

	req := f.transport.nextSent(t)
	assert.Equal(t, seq, req.Seq)

	f.transport.respond(seq, "quickinfo", true, "", `{"displayString":"const x: number"}`)

	resp, err := waitEntry(t, entry)
	require.NoError(t, err)

	var body message.QuickInfoBody
	require.NoError(t, resp.DecodeBody(&body))
	assert.Equal(t, "const x: number", body.DisplayString)
	assert.Equal(t, 0, f.table.Len())
}

func TestController_RejectsFailedResponse(t *testing.T) {
	f := newFixture(t)

	seq, entry, err := f.controller.Send(message.CommandRename,
		&message.RenameRequestArgs{FileLocationRequestArgs: message.NewFileLocation("/p/a.ts", 2, 3)}, true)
	require.NoError(t, err)

	f.transport.nextSent(t)
	f.transport.respond(seq, "rename", false, "Unknown symbol", "")

	_, err = waitEntry(t, entry)
	require.EqualError(t, err, "Unknown symbol")

	cmdErr, ok := stderrors.AsType[*errors.CommandError](err)
	require.True(t, ok)
	assert.Equal(t, seq, cmdErr.Seq)
	assert.Equal(t, "rename", cmdErr.Command)
}

func TestController_IgnoresUnknownResponse(t *testing.T) {
	f := newFixture(t)

	_, entry, err := f.controller.Send(message.CommandDefinition, nil, true)
	require.NoError(t, err)

	f.transport.respond(99, "definition", true, "", "")

	// A later event proves the stray response was processed.
	received := make(chan struct{})
	f.bus.Subscribe("marker", func(any) { close(received) })
	f.transport.msgChan <- &message.Message{Type: message.TypeEvent, Event: "marker"}
	<-received

	select {
	case <-entry.Done():
		t.Fatal("entry must stay pending")
	default:
	}

	assert.Equal(t, 1, f.table.Len())
}

func TestController_ProcessExitRejectsAll(t *testing.T) {
	f := newFixture(t)

	seq3, e3, err := f.controller.Send(message.CommandQuickInfo, nil, true)
	require.NoError(t, err)

	seq4, e4, err := f.controller.Send(message.CommandDefinition, nil, true)
	require.NoError(t, err)
	assert.Less(t, seq3, seq4)

	exit := &errors.ProcessError{ExitCode: 1}
	f.transport.errChan <- exit

	for _, entry := range []*pending.Entry{e3, e4} {
		_, err := waitEntry(t, entry)
		require.ErrorIs(t, err, exit)
		assert.Contains(t, err.Error(), "exited with code: 1")
	}

	select {
	case <-f.controller.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("controller did not stop")
	}

	assert.True(t, f.controller.Stopped())
	assert.Equal(t, exit, f.controller.FatalError())
	assert.Equal(t, 0, f.table.Len())

	_, _, err = f.controller.Send(message.CommandQuickInfo, nil, true)
	require.ErrorIs(t, err, exit)
}

func TestController_MessageStreamClosed(t *testing.T) {
	f := newFixture(t)

	_, entry, err := f.controller.Send(message.CommandQuickInfo, nil, true)
	require.NoError(t, err)

	close(f.transport.errChan)
	close(f.transport.msgChan)

	_, err = waitEntry(t, entry)
	require.ErrorIs(t, err, errors.ErrServerNotRunning)
}

func TestController_WriteFailureRejectsEntry(t *testing.T) {
	f := newFixture(t)
	f.transport.failSends(errors.ErrStdinClosed)

	_, entry, err := f.controller.Send(message.CommandQuickInfo, nil, true)
	require.NoError(t, err)

	_, err = waitEntry(t, entry)
	require.ErrorIs(t, err, errors.ErrStdinClosed)
	assert.Equal(t, 0, f.table.Len())
}

func TestController_OrderedWrites(t *testing.T) {
	f := newFixture(t)

	const n = 50

	var wg sync.WaitGroup
	for range n {
		wg.Go(func() {
			_, _, err := f.controller.Send(message.CommandGetErr, nil, false)
			assert.NoError(t, err)
		})
	}

	wg.Wait()

	last := int64(-1)
	for range n {
		req := f.transport.nextSent(t)
		assert.Greater(t, req.Seq, last, "writes must be in sequence order")
		last = req.Seq
	}

	assert.Equal(t, int64(n-1), f.seq.Last())
}

func TestController_PublishesEvents(t *testing.T) {
	f := newFixture(t)

	got := make(chan message.DiagnosticEventBody, 1)
	event.Subscribe(f.bus, event.SemanticDiag, func(body message.DiagnosticEventBody) {
		got <- body
	})

	f.transport.msgChan <- &message.Message{
		Type:  message.TypeEvent,
		Event: message.EventSemanticDiag,
		Body:  json.RawMessage(`{"file":"/p/a.ts","diagnostics":[]}`),
	}

	select {
	case body := <-got:
		assert.Equal(t, "/p/a.ts", body.File)
		assert.Empty(t, body.Diagnostics)
	case <-time.After(5 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestController_MalformedEventPublishedRaw(t *testing.T) {
	f := newFixture(t)

	typed := 0
	event.Subscribe(f.bus, event.ConfigFileDiag, func(message.ConfigFileDiagnosticEventBody) { typed++ })

	got := make(chan any, 1)
	f.bus.Subscribe(message.EventConfigFileDiag, func(payload any) { got <- payload })

	f.transport.msgChan <- &message.Message{
		Type:  message.TypeEvent,
		Event: message.EventConfigFileDiag,
		Body:  json.RawMessage(`"not an object"`),
	}

	select {
	case payload := <-got:
		raw, ok := payload.(json.RawMessage)
		require.True(t, ok, "expected raw JSON, got %T", payload)
		assert.JSONEq(t, `"not an object"`, string(raw))
	case <-time.After(5 * time.Second):
		t.Fatal("malformed event was dropped")
	}

	assert.Equal(t, 0, typed)
}

func TestController_RoutesMessagesDeliveredBeforeExit(t *testing.T) {
	f := newFixture(t)

	seq, entry, err := f.controller.Send(message.CommandQuickInfo, nil, true)
	require.NoError(t, err)

	f.transport.nextSent(t)

	got := make(chan struct{})
	f.bus.Subscribe("last", func(any) { close(got) })

	f.transport.respond(seq, "quickinfo", true, "", `{"displayString":"x"}`)
	f.transport.msgChan <- &message.Message{Type: message.TypeEvent, Event: "last"}
	f.transport.errChan <- &errors.ProcessError{ExitCode: 1}

	resp, err := waitEntry(t, entry)
	require.NoError(t, err)
	assert.JSONEq(t, `{"displayString":"x"}`, string(resp.Body))

	select {
	case <-got:
	case <-time.After(5 * time.Second):
		t.Fatal("event delivered before the exit was dropped")
	}
}

func TestSequence_StartsAtZero(t *testing.T) {
	var s Sequence

	assert.Equal(t, int64(-1), s.Last())
	assert.Equal(t, int64(0), s.Next())
	assert.Equal(t, int64(1), s.Next())
	assert.Equal(t, int64(1), s.Last())
}

func TestController_PendingChangeNotifications(t *testing.T) {
	f := newFixture(t)

	var (
		mu    sync.Mutex
		sizes []int
	)

	event.Subscribe(f.bus, event.PendingRequestsChange, func(infos []pending.Info) {
		mu.Lock()
		defer mu.Unlock()

		sizes = append(sizes, len(infos))
	})

	seq, entry, err := f.controller.Send(message.CommandQuickInfo, nil, true)
	require.NoError(t, err)

	f.transport.respond(seq, "quickinfo", true, "", "")

	_, err = waitEntry(t, entry)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, []int{1, 0}, sizes)
}

func TestController_Stop(t *testing.T) {
	f := newFixture(t)

	_, entry, err := f.controller.Send(message.CommandQuickInfo, nil, true)
	require.NoError(t, err)

	f.controller.Stop(errors.ErrClientClosed)
	f.controller.Stop(errors.ErrClientClosed)

	_, err = entry.Result()
	require.ErrorIs(t, err, errors.ErrClientClosed)

	select {
	case <-f.controller.Done():
	default:
		t.Fatal("done channel should be closed")
	}
}

func TestSession_Handshake(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newFixture(t)
		session := NewSession(slog.Default(), f.controller, &config.Options{})

		go func() {
			req := f.transport.nextSent(t)
			f.transport.respond(req.Seq, req.Command, true, "", "")
		}()

		require.NoError(t, session.Handshake(context.Background()))
	})

	t.Run("failure response still counts as ready", func(t *testing.T) {
		f := newFixture(t)
		session := NewSession(slog.Default(), f.controller, &config.Options{})

		go func() {
			req := f.transport.nextSent(t)
			f.transport.respond(req.Seq, req.Command, false, "Unrecognized JSON command: ping", "")
		}()

		require.NoError(t, session.Handshake(context.Background()))
	})

	t.Run("timeout", func(t *testing.T) {
		f := newFixture(t)
		timeout := 20 * time.Millisecond
		session := NewSession(slog.Default(), f.controller, &config.Options{HandshakeTimeout: &timeout})

		err := session.Handshake(context.Background())
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, 0, f.table.Len())
	})

	t.Run("connection lost", func(t *testing.T) {
		f := newFixture(t)
		session := NewSession(slog.Default(), f.controller, &config.Options{})

		exit := &errors.ProcessError{ExitCode: 2}

		go func() {
			f.transport.nextSent(t)
			f.transport.errChan <- exit
		}()

		require.ErrorIs(t, session.Handshake(context.Background()), exit)
	})
}

func TestSession_HandshakeTimeout(t *testing.T) {
	t.Setenv(EnvHandshakeTimeout, "7")

	s := &Session{options: &config.Options{}}
	assert.Equal(t, 7*time.Second, s.handshakeTimeout())

	explicit := 3 * time.Second
	s.options.HandshakeTimeout = &explicit
	assert.Equal(t, explicit, s.handshakeTimeout())

	t.Setenv(EnvHandshakeTimeout, "nope")

	s.options.HandshakeTimeout = nil
	assert.Equal(t, defaultHandshakeTimeout, s.handshakeTimeout())
}
