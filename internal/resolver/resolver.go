// Package resolver maps source files to the tsserver client that serves
// them.
//
// Files belonging to different TypeScript installs are served by different
// servers. The resolver discovers the server for a file's directory and
// keeps one client per server path.
package resolver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/tsserver-go/internal/client"
	"github.com/wagiedev/tsserver-go/internal/config"
	"github.com/wagiedev/tsserver-go/internal/discovery"
	"github.com/wagiedev/tsserver-go/internal/errors"
	"github.com/wagiedev/tsserver-go/internal/event"
	"github.com/wagiedev/tsserver-go/internal/pending"
)

// localSuffix is what a project-local server path ends with.
var localSuffix = string(filepath.Separator) + filepath.Join("node_modules", "typescript", "lib", "tsserver.js")

// Config configures a Resolver.
type Config struct {
	// Options is the template for every client. ServerPath, if set, pins
	// every file to that server.
	Options *config.Options

	// OnPendingChange is called whenever the pending requests of any
	// client change.
	OnPendingChange func(serverPath string, infos []pending.Info)

	// OnClose is called for each client closed by KillAll.
	OnClose func(c *client.Client)
}

// Resolver hands out one started client per server path.
type Resolver struct {
	log *slog.Logger
	cfg Config

	mu      sync.Mutex
	clients map[string]*client.Client
	closed  bool
}

// New creates a resolver.
func New(cfg Config) *Resolver {
	if cfg.Options == nil {
		cfg.Options = &config.Options{}
	}

	log := cfg.Options.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Resolver{
		log:     log.With("component", "resolver"),
		cfg:     cfg,
		clients: make(map[string]*client.Client, 4),
	}
}

// Get returns the started client serving filePath.
func (r *Resolver) Get(ctx context.Context, filePath string) (*client.Client, error) {
	dir := filepath.Dir(filePath)

	loc, err := discovery.NewDiscoverer(&discovery.Config{
		ServerPath: r.cfg.Options.ServerPath,
		StartDir:   dir,
		Logger:     r.log,
	}).Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve server for %s: %w", filePath, err)
	}

	c, err := r.clientFor(loc.Path, dir)
	if err != nil {
		return nil, err
	}

	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("start server %s: %w", loc.Path, err)
	}

	return c, nil
}

// Clients returns the clients created so far, keyed by server path.
func (r *Resolver) Clients() map[string]*client.Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]*client.Client, len(r.clients))
	for path, c := range r.clients {
		out[path] = c
	}

	return out
}

func (r *Resolver) clientFor(serverPath, dir string) (*client.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, errors.ErrClientClosed
	}

	if c, ok := r.clients[serverPath]; ok {
		return c, nil
	}

	opts := *r.cfg.Options
	opts.ServerPath = serverPath

	if opts.ProjectRoot == "" {
		opts.ProjectRoot = projectRoot(serverPath, dir)
	}

	c := client.New(&opts)

	if r.cfg.OnPendingChange != nil {
		event.Subscribe(c.Events(), event.PendingRequestsChange, func(infos []pending.Info) {
			r.cfg.OnPendingChange(serverPath, infos)
		})
	}

	r.clients[serverPath] = c
	r.log.Info("Created client", "server_path", serverPath, "project_root", opts.ProjectRoot, "client_id", c.ID())

	return c, nil
}

// projectRoot is the directory owning a project-local server, or dir for
// any other server.
func projectRoot(serverPath, dir string) string {
	if root, ok := strings.CutSuffix(serverPath, localSuffix); ok {
		return root
	}

	return dir
}

// KillAll closes every client concurrently. The resolver can't be used
// afterwards.
func (r *Resolver) KillAll() error {
	r.mu.Lock()
	r.closed = true
	clients := r.clients
	r.clients = make(map[string]*client.Client)
	r.mu.Unlock()

	var g errgroup.Group

	for path, c := range clients {
		g.Go(func() error {
			if r.cfg.OnClose != nil {
				r.cfg.OnClose(c)
			}

			if err := c.Close(); err != nil {
				return fmt.Errorf("close server %s: %w", path, err)
			}

			return nil
		})
	}

	return g.Wait()
}
