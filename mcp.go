package tsserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	internalmcp "github.com/wagiedev/tsserver-go/internal/mcp"
)

// Names of the built-in MCP tools.
const (
	ToolQuickInfo   = internalmcp.ToolQuickInfo
	ToolDefinition  = internalmcp.ToolDefinition
	ToolReferences  = internalmcp.ToolReferences
	ToolDiagnostics = internalmcp.ToolDiagnostics
	ToolCodeFixes   = internalmcp.ToolCodeFixes
	ToolProjectInfo = internalmcp.ToolProjectInfo
)

// MCPConfig identifies an MCP server and tunes its tools.
type MCPConfig struct {
	// Name and Version identify the server to MCP clients.
	Name    string
	Version string

	// DiagnosticsWait bounds the diagnostics and code_fixes tools.
	// Zero means 10s.
	DiagnosticsWait time.Duration
}

// MCPServer serves TypeScript language tools over the Model Context
// Protocol. It starts one tsserver per TypeScript install it meets.
//
// Example usage:
//
//	server := tsserver.NewMCPServer(tsserver.MCPConfig{Name: "ts"}, tsserver.WithLogger(log))
//	defer server.Close()
//
//	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
//	    log.Error("mcp server stopped", "error", err)
//	}
type MCPServer struct {
	server *internalmcp.Server
}

// NewMCPServer creates an MCP server with the built-in tools. opts apply to
// every tsserver the server starts.
func NewMCPServer(cfg MCPConfig, opts ...Option) *MCPServer {
	return &MCPServer{server: internalmcp.NewServer(internalmcp.Config{
		Options:         applyOptions(opts),
		Name:            cfg.Name,
		Version:         cfg.Version,
		DiagnosticsWait: cfg.DiagnosticsWait,
	})}
}

// AddTool registers a custom tool next to the built-in ones.
func (s *MCPServer) AddTool(t Tool) {
	s.server.AddTool(
		internalmcp.NewTool(t.Name(), t.Description(), mapToJSONSchema(t.InputSchema())),
		toolToMCPHandler(t),
	)
}

// Tools returns every registered tool, sorted by name.
func (s *MCPServer) Tools() []*mcp.Tool {
	return s.server.ListTools()
}

// CallTool runs a tool in-process. Failures are reported as error results.
func (s *MCPServer) CallTool(ctx context.Context, name string, input map[string]any) *mcp.CallToolResult {
	return s.server.CallTool(ctx, name, input)
}

// Run serves MCP on transport until ctx is done or the peer disconnects.
func (s *MCPServer) Run(ctx context.Context, transport mcp.Transport) error {
	return s.server.Run(ctx, transport)
}

// Close kills every tsserver the server started.
func (s *MCPServer) Close() error {
	return s.server.Close()
}

// Tool is a custom MCP tool.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description.
	Description() string

	// InputSchema returns a JSON schema describing expected input.
	InputSchema() map[string]any

	// Execute runs the tool with the provided input.
	Execute(ctx context.Context, input map[string]any) (map[string]any, error)
}

// ToolFunc is a function-based tool implementation.
type ToolFunc func(ctx context.Context, input map[string]any) (map[string]any, error)

// NewTool creates a Tool from a function.
//
// Example, a tool answering from a client of its own:
//
//	tool := tsserver.NewTool("emit", "Emit a file",
//	    map[string]any{
//	        "type":       "object",
//	        "properties": map[string]any{"file": map[string]any{"type": "string"}},
//	        "required":   []string{"file"},
//	    },
//	    func(ctx context.Context, input map[string]any) (map[string]any, error) {
//	        file, _ := input["file"].(string)
//	        wrote, err := client.CompileOnSaveEmitFile(ctx, &tsserver.CompileOnSaveEmitFileRequestArgs{
//	            FileRequestArgs: tsserver.FileRequestArgs{File: file},
//	        })
//	        return map[string]any{"emitted": wrote}, err
//	    },
//	)
func NewTool(name, description string, schema map[string]any, fn ToolFunc) Tool {
	return &tool{
		name:        name,
		description: description,
		schema:      schema,
		fn:          fn,
	}
}

type tool struct {
	name        string
	description string
	schema      map[string]any
	fn          ToolFunc
}

// Compile-time verification that *tool implements the Tool interface.
var _ Tool = (*tool)(nil)

func (t *tool) Name() string                { return t.name }
func (t *tool) Description() string         { return t.description }
func (t *tool) InputSchema() map[string]any { return t.schema }
func (t *tool) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	return t.fn(ctx, input)
}

// toolToMCPHandler adapts Tool.Execute to an mcp.ToolHandler.
func toolToMCPHandler(t Tool) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := internalmcp.ParseArguments[map[string]any](req)
		if err != nil {
			return internalmcp.ErrorResult(fmt.Sprintf("failed to parse arguments: %v", err)), nil
		}

		if args == nil {
			args = make(map[string]any)
		}

		result, err := t.Execute(ctx, args)
		if err != nil {
			return internalmcp.ErrorResult(err.Error()), nil
		}

		return internalmcp.JSONResult(result), nil
	}
}

// mapToJSONSchema converts a map[string]any JSON schema to *jsonschema.Schema.
// A missing or invalid schema becomes an empty object schema.
func mapToJSONSchema(m map[string]any) *jsonschema.Schema {
	empty := &jsonschema.Schema{Type: "object"}

	if m == nil {
		return empty
	}

	data, err := json.Marshal(m)
	if err != nil {
		return empty
	}

	var schema jsonschema.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return empty
	}

	return &schema
}
