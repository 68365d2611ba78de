// Package codefix finds the code fixes the server offers for diagnostics.
//
// The set of error codes a server can fix is fetched once per client and
// cached; fixes are then requested only for diagnostics whose code is in
// that set.
package codefix

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/wagiedev/tsserver-go/internal/errors"
	"github.com/wagiedev/tsserver-go/internal/message"
)

const (
	// supportedCodesTTL bounds how long a client's supported code set is kept.
	supportedCodesTTL = 1 * time.Hour

	// fetchTimeout bounds a shared getSupportedCodeFixes request.
	fetchTimeout = 30 * time.Second
)

// Client is the subset of the tsserver client the provider needs.
type Client interface {
	ID() string
	GetSupportedCodeFixes(ctx context.Context) ([]string, error)
	GetCodeFixes(ctx context.Context, args *message.CodeFixRequestArgs) ([]message.CodeAction, error)
}

// CodeSet is a set of fixable error codes.
type CodeSet map[int]struct{}

// Has reports whether code is in the set.
func (s CodeSet) Has(code int) bool {
	_, ok := s[code]

	return ok
}

// Provider fetches code fixes.
type Provider struct {
	log     *slog.Logger
	cache   *ttlcache.Cache[string, CodeSet]
	fetches singleflight.Group
}

// NewProvider creates a provider. Call Close to stop its cache janitor.
func NewProvider(log *slog.Logger) *Provider {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	cache := ttlcache.New[string, CodeSet](
		ttlcache.WithTTL[string, CodeSet](supportedCodesTTL),
		ttlcache.WithDisableTouchOnHit[string, CodeSet](),
	)
	go cache.Start()

	return &Provider{
		log:   log.With("component", "codefix"),
		cache: cache,
	}
}

// Close stops the cache expiration loop.
func (p *Provider) Close() {
	p.cache.Stop()
}

// Invalidate forgets the supported codes of a client. Call it when the
// client is closed.
func (p *Provider) Invalidate(clientID string) {
	p.cache.Delete(clientID)
}

// SupportedCodes returns the error codes c can fix.
//
// Concurrent callers share one request. It is detached from the callers'
// contexts, so a caller giving up does not fail the others.
//
// Returns ErrNoCodeFixes if the server answered without a body.
func (p *Provider) SupportedCodes(ctx context.Context, c Client) (CodeSet, error) {
	if item := p.cache.Get(c.ID()); item != nil {
		return item.Value(), nil
	}

	fetchCtx := context.WithoutCancel(ctx)

	ch := p.fetches.DoChan(c.ID(), func() (any, error) {
		ctx, cancel := context.WithTimeout(fetchCtx, fetchTimeout)
		defer cancel()

		raw, err := c.GetSupportedCodeFixes(ctx)
		if err != nil {
			return nil, fmt.Errorf("get supported code fixes: %w", err)
		}

		if raw == nil {
			return nil, errors.ErrNoCodeFixes
		}

		codes := make(CodeSet, len(raw))

		for _, s := range raw {
			code, err := strconv.Atoi(s)
			if err != nil {
				p.log.Warn("Ignoring malformed error code", "code", s)

				continue
			}

			codes[code] = struct{}{}
		}

		p.cache.Set(c.ID(), codes, ttlcache.DefaultTTL)
		p.log.Debug("Cached supported code fixes", "client_id", c.ID(), "count", len(codes))

		return codes, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}

		codes, _ := res.Val.(CodeSet)

		return codes, nil

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// FixesFor requests fixes for every diagnostic of file whose code c can
// fix. Requests run concurrently; results keep the order of diagnostics.
func (p *Provider) FixesFor(
	ctx context.Context,
	c Client,
	file string,
	diagnostics []message.Diagnostic,
) ([]message.CodeAction, error) {
	supported, err := p.SupportedCodes(ctx, c)
	if err != nil {
		return nil, err
	}

	fixable := make([]message.Diagnostic, 0, len(diagnostics))

	for _, d := range diagnostics {
		if d.Code != 0 && supported.Has(d.Code) {
			fixable = append(fixable, d)
		}
	}

	results := make([][]message.CodeAction, len(fixable))

	g, gctx := errgroup.WithContext(ctx)

	for i, d := range fixable {
		g.Go(func() error {
			actions, err := c.GetCodeFixes(gctx, &message.CodeFixRequestArgs{
				FileRequestArgs: message.FileRequestArgs{File: file},
				StartLine:       d.Start.Line,
				StartOffset:     d.Start.Offset,
				EndLine:         d.End.Line,
				EndOffset:       d.End.Offset,
				ErrorCodes:      []int{d.Code},
			})
			if err != nil {
				return fmt.Errorf("get code fixes for %d: %w", d.Code, err)
			}

			results[i] = actions

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var fixes []message.CodeAction
	for _, actions := range results {
		fixes = append(fixes, actions...)
	}

	return fixes, nil
}
