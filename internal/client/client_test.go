package client

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/tsserver-go/internal/config"
	"github.com/wagiedev/tsserver-go/internal/errors"
	"github.com/wagiedev/tsserver-go/internal/event"
	"github.com/wagiedev/tsserver-go/internal/fakeserver"
	"github.com/wagiedev/tsserver-go/internal/message"
	"github.com/wagiedev/tsserver-go/internal/pending"
)

func newTestClient(t *testing.T, setup func(*fakeserver.Server)) (*Client, *fakeserver.Farm) {
	t.Helper()

	farm := fakeserver.NewFarm(setup)
	c := New(&config.Options{NewTransport: farm.NewTransport, Debug: true})

	t.Cleanup(func() { _ = c.Close() })

	return c, farm
}

func testContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	return ctx
}

func TestExecute_BeforeStart(t *testing.T) {
	c, farm := newTestClient(t, nil)

	_, err := c.Execute(testContext(t), message.CommandQuickInfo, nil)
	require.ErrorIs(t, err, errors.ErrServerNotRunning)
	assert.Equal(t, 0, farm.Spawns())
	assert.Equal(t, StateNotStarted, c.State())
}

func TestStart_Handshake(t *testing.T) {
	c, farm := newTestClient(t, nil)
	ctx := testContext(t)

	require.NoError(t, c.Start(ctx))
	assert.Equal(t, StateReady, c.State())

	require.NoError(t, c.Start(ctx), "Start on a ready client is a no-op")
	assert.Equal(t, 1, farm.Spawns())

	reqs := farm.Server(0).Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, int64(0), reqs[0].Seq)
	assert.Equal(t, message.CommandPing, reqs[0].Command)
	assert.Empty(t, c.PendingRequests())
}

func TestExecute_FireAndForget(t *testing.T) {
	c, farm := newTestClient(t, nil)
	ctx := testContext(t)

	require.NoError(t, c.Start(ctx))

	resp, err := c.Execute(ctx, message.CommandOpen, &message.OpenRequestArgs{
		FileRequestArgs: message.FileRequestArgs{File: "/p/a.ts"},
	})
	require.NoError(t, err)
	assert.Nil(t, resp)
	assert.Empty(t, c.PendingRequests())

	require.Eventually(t, func() bool { return len(farm.Server(0).Requests()) == 2 }, time.Second, time.Millisecond)

	req := farm.Server(0).Requests()[1]
	assert.Equal(t, int64(1), req.Seq)
	assert.Equal(t, "open", req.Command)
	assert.JSONEq(t, `{"file":"/p/a.ts"}`, string(req.Arguments))
}

func TestQuickInfo(t *testing.T) {
	c, _ := newTestClient(t, func(srv *fakeserver.Server) {
		srv.Reply(message.CommandQuickInfo, json.RawMessage(`{"kind":"const","displayString":"const x: number",`+
			`"start":{"line":1,"offset":7},"end":{"line":1,"offset":8}}`))
	})
	ctx := testContext(t)

	require.NoError(t, c.Start(ctx))

	info, err := c.QuickInfo(ctx, message.NewFileLocation("/p/a.ts", 1, 7))
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "const x: number", info.DisplayString)
	assert.Equal(t, message.Location{Line: 1, Offset: 8}, info.End)
}

func TestRename_Failure(t *testing.T) {
	c, _ := newTestClient(t, func(srv *fakeserver.Server) {
		srv.Fail(message.CommandRename, "Unknown symbol")
	})
	ctx := testContext(t)

	require.NoError(t, c.Start(ctx))

	_, err := c.Rename(ctx, &message.RenameRequestArgs{FileLocationRequestArgs: message.NewFileLocation("/p/a.ts", 3, 1)})
	require.EqualError(t, err, "Unknown symbol")

	_, ok := stderrors.AsType[*errors.CommandError](err)
	assert.True(t, ok)
}

func TestProcessExit_RejectsAndRespawns(t *testing.T) {
	c, farm := newTestClient(t, func(srv *fakeserver.Server) {
		srv.Hold(message.CommandQuickInfo).Hold(message.CommandDefinition)
	})
	ctx := testContext(t)

	require.NoError(t, c.Start(ctx))
	require.NoError(t, c.Open(ctx, &message.OpenRequestArgs{FileRequestArgs: message.FileRequestArgs{File: "/p/a.ts"}}))

	results := make(chan error, 2)

	go func() {
		_, err := c.QuickInfo(ctx, message.NewFileLocation("/p/a.ts", 1, 1))
		results <- err
	}()

	require.Eventually(t, func() bool { return len(c.PendingRequests()) == 1 }, time.Second, time.Millisecond)

	go func() {
		_, err := c.Definition(ctx, message.NewFileLocation("/p/a.ts", 1, 1))
		results <- err
	}()

	require.Eventually(t, func() bool { return len(c.PendingRequests()) == 2 }, time.Second, time.Millisecond)

	infos := c.PendingRequests()
	assert.Equal(t, int64(2), infos[0].Seq)
	assert.Equal(t, int64(3), infos[1].Seq)

	farm.Server(0).Crash(1)

	for range 2 {
		err := <-results

		procErr, ok := stderrors.AsType[*errors.ProcessError](err)
		require.True(t, ok, "expected ProcessError, got %v", err)
		assert.Equal(t, 1, procErr.ExitCode)
	}

	assert.Empty(t, c.PendingRequests())
	require.Eventually(t, func() bool { return c.State() == StateNotStarted }, time.Second, time.Millisecond)

	// The next command respawns; sequence numbers keep increasing.
	farm.Setup(nil)
	_, err := c.QuickInfo(ctx, message.NewFileLocation("/p/a.ts", 1, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, farm.Spawns())
	assert.Equal(t, StateReady, c.State())

	reqs := farm.Server(1).Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, message.CommandPing, reqs[0].Command)
	assert.Equal(t, int64(4), reqs[0].Seq)
	assert.Equal(t, int64(5), reqs[1].Seq)
}

func TestServerExit(t *testing.T) {
	c, farm := newTestClient(t, nil)
	ctx := testContext(t)

	require.NoError(t, c.Start(ctx))

	exits := make(chan error, 2)
	event.Subscribe(c.Events(), event.ServerExit, func(err error) { exits <- err })

	farm.Server(0).Crash(3)

	select {
	case err := <-exits:
		procErr, ok := stderrors.AsType[*errors.ProcessError](err)
		require.True(t, ok, "expected ProcessError, got %v", err)
		assert.Equal(t, 3, procErr.ExitCode)
	case <-ctx.Done():
		t.Fatal("serverExit not published")
	}

	require.NoError(t, c.Start(ctx))
	require.NoError(t, c.Close())

	select {
	case err := <-exits:
		t.Fatalf("Close must not publish serverExit, got %v", err)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEvents(t *testing.T) {
	c, farm := newTestClient(t, nil)
	ctx := testContext(t)

	got := make(chan message.DiagnosticEventBody, 1)
	event.Subscribe(c.Events(), event.SemanticDiag, func(body message.DiagnosticEventBody) {
		got <- body
	})

	raw := make(chan any, 1)
	unsubscribe := c.On("telemetry", func(payload any) { raw <- payload })

	defer unsubscribe()

	require.NoError(t, c.Start(ctx))

	farm.Server(0).Emit(message.EventSemanticDiag, json.RawMessage(
		`{"file":"/p/a.ts","diagnostics":[{"start":{"line":1,"offset":1},"end":{"line":1,"offset":4},`+
			`"text":"Cannot find name 'foo'.","code":2304,"category":"error"}]}`))
	farm.Server(0).Emit("telemetry", json.RawMessage(`{"telemetryEventName":"projectInfo"}`))

	select {
	case body := <-got:
		assert.Equal(t, "/p/a.ts", body.File)
		require.Len(t, body.Diagnostics, 1)
		assert.Equal(t, 2304, body.Diagnostics[0].Code)
	case <-ctx.Done():
		t.Fatal("semanticDiag not delivered")
	}

	select {
	case payload := <-raw:
		assert.JSONEq(t, `{"telemetryEventName":"projectInfo"}`, string(payload.(json.RawMessage)))
	case <-ctx.Done():
		t.Fatal("telemetry not delivered")
	}
}

func TestExecute_FromEventHandler(t *testing.T) {
	c, farm := newTestClient(t, func(srv *fakeserver.Server) {
		srv.Reply(message.CommandQuickInfo, map[string]any{"displayString": "const x: number"})
	})
	ctx := testContext(t)

	require.NoError(t, c.Start(ctx))

	result := make(chan string, 1)

	event.Subscribe(c.Events(), event.SemanticDiag, func(body message.DiagnosticEventBody) {
		info, err := c.QuickInfo(ctx, message.NewFileLocation(body.File, 1, 7))
		if err != nil {
			result <- err.Error()

			return
		}

		result <- info.DisplayString
	})

	farm.Server(0).Emit(message.EventSemanticDiag, message.DiagnosticEventBody{File: "/p/a.ts"})

	select {
	case got := <-result:
		assert.Equal(t, "const x: number", got)
	case <-ctx.Done():
		t.Fatal("request issued from an event handler never completed")
	}
}

func TestExecute_FromPendingChangeHandler(t *testing.T) {
	c, _ := newTestClient(t, func(srv *fakeserver.Server) {
		srv.Reply(message.CommandQuickInfo, map[string]any{"displayString": "x"})
	})
	ctx := testContext(t)

	require.NoError(t, c.Start(ctx))

	var once sync.Once

	result := make(chan error, 1)

	event.Subscribe(c.Events(), event.PendingRequestsChange, func(infos []pending.Info) {
		if len(infos) == 0 {
			return
		}

		once.Do(func() {
			_, err := c.Execute(ctx, message.CommandQuickInfo, nil)
			result <- err
		})
	})

	_, err := c.Execute(ctx, message.CommandDefinition, nil)
	require.NoError(t, err)

	select {
	case err := <-result:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("request issued from a pendingRequestsChange handler never completed")
	}

	require.NoError(t, c.Close())
}

func TestPendingRequestsChange(t *testing.T) {
	c, _ := newTestClient(t, nil)
	ctx := testContext(t)

	var (
		mu    sync.Mutex
		sizes []int
	)

	event.Subscribe(c.Events(), event.PendingRequestsChange, func(infos []pending.Info) {
		mu.Lock()
		defer mu.Unlock()

		sizes = append(sizes, len(infos))
	})

	require.NoError(t, c.Start(ctx))

	_, err := c.Definition(ctx, message.NewFileLocation("/p/a.ts", 1, 1))
	require.NoError(t, err)

	// ping, then definition.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(sizes) == 4
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, []int{1, 0, 1, 0}, sizes)
}

func TestStart_ConcurrentCallsShareSpawn(t *testing.T) {
	c, farm := newTestClient(t, func(srv *fakeserver.Server) {
		srv.DelayStart(20 * time.Millisecond)
	})
	ctx := testContext(t)

	var wg sync.WaitGroup
	for range 10 {
		wg.Go(func() {
			assert.NoError(t, c.Start(ctx))
		})
	}

	wg.Wait()

	assert.Equal(t, 1, farm.Spawns())
	assert.Equal(t, StateReady, c.State())
}

func TestExecute_SequenceNumbersIncrease(t *testing.T) {
	c, farm := newTestClient(t, nil)
	ctx := testContext(t)

	require.NoError(t, c.Start(ctx))

	var wg sync.WaitGroup
	for range 20 {
		wg.Go(func() {
			_, err := c.Execute(ctx, message.CommandOccurrences, message.NewFileLocation("/p/a.ts", 1, 1))
			assert.NoError(t, err)
		})
	}

	wg.Wait()

	reqs := farm.Server(0).Requests()
	require.Len(t, reqs, 21)

	for i := 1; i < len(reqs); i++ {
		assert.Greater(t, reqs[i].Seq, reqs[i-1].Seq)
	}
}

func TestStart_Failure(t *testing.T) {
	notFound := &errors.ServerNotFoundError{SearchedPaths: []string{"/nowhere"}}

	c, farm := newTestClient(t, func(srv *fakeserver.Server) {
		srv.FailStart(notFound)
	})

	err := c.Start(testContext(t))
	require.ErrorIs(t, err, notFound)
	assert.Equal(t, StateNotStarted, c.State())

	// Start was requested, so the next command retries the spawn.
	farm.Setup(nil)
	_, err = c.Execute(testContext(t), message.CommandProjectInfo, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, farm.Spawns())
}

func TestStart_ContextCancelled(t *testing.T) {
	c, _ := newTestClient(t, func(srv *fakeserver.Server) {
		srv.DelayStart(200 * time.Millisecond)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, c.Start(ctx), context.DeadlineExceeded)

	// The abandoned spawn still completes.
	require.Eventually(t, func() bool { return c.State() == StateReady }, 2*time.Second, 5*time.Millisecond)
}

func TestClose(t *testing.T) {
	c, farm := newTestClient(t, func(srv *fakeserver.Server) {
		srv.Hold(message.CommandReferences)
	})
	ctx := testContext(t)

	require.NoError(t, c.Start(ctx))

	result := make(chan error, 1)

	go func() {
		_, err := c.References(ctx, message.NewFileLocation("/p/a.ts", 1, 1))
		result <- err
	}()

	require.Eventually(t, func() bool { return len(c.PendingRequests()) == 1 }, time.Second, time.Millisecond)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	require.ErrorIs(t, <-result, errors.ErrClientClosed)
	assert.Empty(t, c.PendingRequests())
	assert.Equal(t, StateNotStarted, c.State())
	assert.False(t, farm.Server(0).IsReady())

	_, err := c.Execute(ctx, message.CommandQuickInfo, nil)
	require.ErrorIs(t, err, errors.ErrClientClosed)
	require.ErrorIs(t, c.Start(ctx), errors.ErrClientClosed)
}

func TestClose_FromEventHandler(t *testing.T) {
	c, farm := newTestClient(t, nil)
	ctx := testContext(t)

	require.NoError(t, c.Start(ctx))

	closed := make(chan error, 1)
	c.On("shutdown", func(any) { closed <- c.Close() })

	farm.Server(0).Emit("shutdown", map[string]any{})

	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("Close called from an event handler did not return")
	}

	assert.False(t, farm.Server(0).IsReady())
}

func TestIdentity(t *testing.T) {
	a := New(nil)
	b := New(&config.Options{ServerPath: "/x/tsserver"})

	defer a.Close()
	defer b.Close()

	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, "/x/tsserver", b.ServerPath())
	assert.Empty(t, b.Version())
	assert.Equal(t, "ready", StateReady.String())
}
