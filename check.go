package tsserver

import (
	"context"
	"fmt"
	"iter"

	"github.com/wagiedev/tsserver-go/internal/client"
	"github.com/wagiedev/tsserver-go/internal/event"
	"github.com/wagiedev/tsserver-go/internal/message"
)

// FileDiagnostics is one diagnostics report for a file.
type FileDiagnostics struct {
	// Kind is the event that carried the report: syntaxDiag, semanticDiag
	// or suggestionDiag.
	Kind        string
	File        string
	Diagnostics []Diagnostic
}

// Check runs a one-shot diagnostics pass over files and returns an
// iterator of the reports.
//
// A server is started for the pass and killed when iteration ends. Reports
// are yielded as the server produces them, up to three per file; iteration
// ends when the server reports the pass complete.
//
// Example usage:
//
//	for diags, err := range tsserver.Check(ctx, files, tsserver.WithProjectRoot(root)) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    for _, d := range diags.Diagnostics {
//	        fmt.Printf("%s:%d:%d %s\n", diags.File, d.Start.Line, d.Start.Offset, d.Text)
//	    }
//	}
//
// Errors are yielded once and end the iteration. A server that dies during
// the pass is not restarted: its ProcessError is yielded after the reports
// it produced before dying.
func Check(ctx context.Context, files []string, opts ...Option) iter.Seq2[*FileDiagnostics, error] {
	return func(yield func(*FileDiagnostics, error) bool) {
		if len(files) == 0 {
			return
		}

		options := applyOptions(opts)

		log := options.Logger
		if log == nil {
			log = NopLogger()
		}

		log = log.With("component", "check")

		c := client.New(options)
		defer c.Close()

		// An update with neither report nor error marks the end of the pass.
		type update struct {
			report *FileDiagnostics
			err    error
		}

		updates := make(chan update, 64)
		done := make(chan struct{})

		defer close(done)

		send := func(u update) {
			select {
			case updates <- u:
			case <-done:
			}
		}

		for _, topic := range event.DiagnosticTopics {
			kind := topic.Name()

			event.Subscribe(c.Events(), topic, func(body message.DiagnosticEventBody) {
				send(update{report: &FileDiagnostics{Kind: kind, File: body.File, Diagnostics: body.Diagnostics}})
			})
		}

		event.Subscribe(c.Events(), event.RequestCompleted, func(message.RequestCompletedEventBody) {
			send(update{})
		})

		event.Subscribe(c.Events(), event.ServerExit, func(err error) {
			send(update{err: fmt.Errorf("tsserver exited during the pass: %w", err)})
		})

		if err := c.Start(ctx); err != nil {
			yield(nil, err)

			return
		}

		for _, file := range files {
			if err := c.Open(ctx, &OpenRequestArgs{FileRequestArgs: FileRequestArgs{File: file}}); err != nil {
				yield(nil, fmt.Errorf("open %s: %w", file, err))

				return
			}
		}

		if err := c.GetErr(ctx, &GetErrRequestArgs{Files: files}); err != nil {
			yield(nil, fmt.Errorf("request diagnostics: %w", err))

			return
		}

		log.Debug("Waiting for diagnostics", "files", len(files))

		for {
			select {
			case u := <-updates:
				if u.err != nil {
					log.Debug("Server exited", "error", u.err)
					yield(nil, u.err)

					return
				}

				if u.report == nil {
					log.Debug("Diagnostics pass complete")

					return
				}

				if !yield(u.report, nil) {
					log.Debug("Yield returned false, stopping iteration")

					return
				}

			case <-ctx.Done():
				log.Debug("Context cancelled")
				yield(nil, ctx.Err())

				return
			}
		}
	}
}
