package tsserver

import (
	"context"
	"fmt"
)

// WithClient creates a client from opts, starts it and passes it to fn.
// The client is closed when fn returns. A failing Close is logged and
// never replaces the error returned by fn.
//
// Example usage:
//
//	err := tsserver.WithClient(ctx, func(c tsserver.Client) error {
//	    info, err := c.QuickInfo(ctx, tsserver.NewFileLocation(file, 4, 12))
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(info.DisplayString)
//	    return nil
//	},
//	    tsserver.WithLogger(log),
//	    tsserver.WithProjectRoot(root),
//	)
func WithClient(ctx context.Context, fn func(Client) error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	options := applyOptions(opts)

	log := options.Logger
	if log == nil {
		log = NopLogger()
	}

	client := NewClient(opts...)

	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			log.Warn("Close client", "client_id", client.ID(), "error", closeErr)
		}
	}()

	if err := client.Start(ctx); err != nil {
		return fmt.Errorf("start tsserver: %w", err)
	}

	return fn(client)
}
