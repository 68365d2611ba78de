// Package tsserver provides a Go client for the TypeScript language server
// (tsserver).
//
// The client spawns tsserver as a child process, speaks its
// newline-delimited JSON protocol over stdio and exposes one method per
// protocol command. Server events are delivered through typed topics.
//
// # Basic Usage
//
// Create a client, start it and issue commands:
//
//	client := tsserver.NewClient(
//	    tsserver.WithLogger(slog.Default()),
//	    tsserver.WithProjectRoot("/path/to/project"),
//	)
//	defer client.Close()
//
//	if err := client.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	err := client.Open(ctx, &tsserver.OpenRequestArgs{
//	    FileRequestArgs: tsserver.FileRequestArgs{File: "/path/to/project/src/index.ts"},
//	})
//
//	info, err := client.QuickInfo(ctx, tsserver.NewFileLocation("/path/to/project/src/index.ts", 3, 10))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(info.DisplayString)
//
// Or use the WithClient helper for automatic lifecycle management:
//
//	err := tsserver.WithClient(ctx, func(c tsserver.Client) error {
//	    _, err := c.ProjectInfo(ctx, &tsserver.ProjectInfoRequestArgs{...})
//	    return err
//	}, tsserver.WithProjectRoot(root))
//
// # Events
//
// Diagnostics and project loading notifications arrive as events. Subscribe
// with a typed topic:
//
//	unsubscribe := tsserver.On(client, tsserver.SemanticDiag, func(body tsserver.DiagnosticEventBody) {
//	    for _, d := range body.Diagnostics {
//	        fmt.Printf("%s:%d: %s\n", body.File, d.Start.Line, d.Text)
//	    }
//	})
//	defer unsubscribe()
//
//	client.GetErr(ctx, &tsserver.GetErrRequestArgs{Files: []string{file}})
//
// Events with no typed topic can be observed by name with Client.OnEvent;
// their payload is the raw JSON body.
//
// Handlers run on a goroutine owned by the client, one at a time and in
// arrival order, so a handler may query the server it was notified by.
// The client also publishes PendingRequestsChange whenever the set of
// outstanding requests changes and ServerExit when the server dies on its
// own; the next command respawns it.
//
// # One-shot Checks
//
// Check starts a server, reports the diagnostics of some files and kills
// the server again:
//
//	for diags, err := range tsserver.Check(ctx, files, tsserver.WithProjectRoot(root)) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(diags.Kind, diags.File, len(diags.Diagnostics))
//	}
//
// # MCP
//
// MCPServer exposes quick info, navigation, diagnostics and code fixes as
// Model Context Protocol tools, one tsserver per TypeScript install. The
// tsmcp command serves it on stdio.
//
// # Server Lifecycle
//
// Start is idempotent and concurrent calls share one spawn. If the server
// process exits, every pending request fails with a ProcessError and the
// client resets; the next command spawns a fresh server. Sequence numbers
// keep increasing across restarts.
//
// # Error Handling
//
// The package provides typed errors for different failure scenarios:
//
//	info, err := client.QuickInfo(ctx, loc)
//	if cmdErr, ok := errors.AsType[*tsserver.CommandError](err); ok {
//	    // The server answered with success=false; cmdErr.Error() is its message.
//	}
//	if procErr, ok := errors.AsType[*tsserver.ProcessError](err); ok {
//	    fmt.Println("tsserver exited with code", procErr.ExitCode)
//	}
//	if errors.Is(err, tsserver.ErrServerNotRunning) {
//	    // Start was never called.
//	}
//
// # Server Discovery
//
// Unless WithServerPath is given, the server is searched in order: the
// TSSERVER_PATH environment variable, node_modules/typescript/lib/tsserver.js
// in the project root or any parent, tsserver on PATH, then global npm
// locations. A .js entry point is run with node.
package tsserver
