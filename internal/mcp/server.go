package mcp

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/tsserver-go/internal/client"
	"github.com/wagiedev/tsserver-go/internal/codefix"
	"github.com/wagiedev/tsserver-go/internal/config"
	"github.com/wagiedev/tsserver-go/internal/pending"
	"github.com/wagiedev/tsserver-go/internal/resolver"
)

const (
	// DefaultName is the implementation name reported to MCP clients.
	DefaultName = "tsserver"

	// DefaultDiagnosticsWait bounds how long the diagnostics tool waits for
	// the server to finish checking a file.
	DefaultDiagnosticsWait = 10 * time.Second
)

// Config configures a Server.
type Config struct {
	// Options is the template for every tsserver client.
	Options *config.Options

	// Name and Version identify the server to MCP clients.
	Name    string
	Version string

	// DiagnosticsWait bounds the diagnostics and code_fixes tools.
	// Zero means DefaultDiagnosticsWait.
	DiagnosticsWait time.Duration
}

// Server serves tsserver tools over MCP.
type Server struct {
	log      *slog.Logger
	server   *mcp.Server
	resolver *resolver.Resolver
	fixes    *codefix.Provider
	wait     time.Duration

	mu    sync.RWMutex
	tools map[string]*tool
}

type tool struct {
	tool    *mcp.Tool
	handler mcp.ToolHandler
}

// NewServer creates a server with every tsserver tool registered.
func NewServer(cfg Config) *Server {
	if cfg.Options == nil {
		cfg.Options = &config.Options{}
	}

	log := cfg.Options.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	log = log.With("component", "mcp")

	s := &Server{
		log: log,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    cmp.Or(cfg.Name, DefaultName),
			Version: cmp.Or(cfg.Version, "dev"),
		}, nil),
		fixes: codefix.NewProvider(cfg.Options.Logger),
		wait:  cmp.Or(cfg.DiagnosticsWait, DefaultDiagnosticsWait),
		tools: make(map[string]*tool, 8),
	}

	s.resolver = resolver.New(resolver.Config{
		Options: cfg.Options,
		OnPendingChange: func(serverPath string, infos []pending.Info) {
			log.Debug("Pending requests changed", "server_path", serverPath, "count", len(infos))
		},
		OnClose: func(c *client.Client) {
			s.fixes.Invalidate(c.ID())
		},
	})

	s.registerTools()

	return s
}

// AddTool registers a tool with the server.
func (s *Server) AddTool(t *mcp.Tool, handler mcp.ToolHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools[t.Name] = &tool{tool: t, handler: handler}
	s.server.AddTool(t, handler)
}

// ListTools returns every registered tool, sorted by name.
func (s *Server) ListTools() []*mcp.Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tools := make([]*mcp.Tool, 0, len(s.tools))
	for _, t := range s.tools {
		tools = append(tools, t.tool)
	}

	slices.SortFunc(tools, func(a, b *mcp.Tool) int { return cmp.Compare(a.Name, b.Name) })

	return tools
}

// CallTool runs a tool in-process. Unknown tools and handler errors are
// reported as error results.
func (s *Server) CallTool(ctx context.Context, name string, input map[string]any) *mcp.CallToolResult {
	s.mu.RLock()
	t, exists := s.tools[name]
	s.mu.RUnlock()

	if !exists {
		return ErrorResult("Tool not found: " + name)
	}

	inputBytes, err := json.Marshal(input)
	if err != nil {
		return ErrorResult("Failed to marshal input: " + err.Error())
	}

	result, err := t.handler(ctx, &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Name: name, Arguments: inputBytes},
	})
	if err != nil {
		return ErrorResult("Tool execution failed: " + err.Error())
	}

	return result
}

// Run serves MCP on transport until ctx is done or the peer disconnects.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	s.log.Info("Serving MCP")

	if err := s.server.Run(ctx, transport); err != nil {
		return fmt.Errorf("serve mcp: %w", err)
	}

	return nil
}

// MCPServer returns the underlying go-sdk server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}

// Resolver returns the resolver that owns the tsserver clients.
func (s *Server) Resolver() *resolver.Resolver {
	return s.resolver
}

// Close kills every tsserver the server started.
func (s *Server) Close() error {
	err := s.resolver.KillAll()
	s.fixes.Close()

	return err
}
