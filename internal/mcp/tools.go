package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/tsserver-go/internal/client"
	"github.com/wagiedev/tsserver-go/internal/diagnostics"
	"github.com/wagiedev/tsserver-go/internal/event"
	"github.com/wagiedev/tsserver-go/internal/message"
)

// Tool names.
const (
	ToolQuickInfo   = "quickinfo"
	ToolDefinition  = "definition"
	ToolReferences  = "references"
	ToolDiagnostics = "diagnostics"
	ToolCodeFixes   = "code_fixes"
	ToolProjectInfo = "project_info"
)

var errFileRequired = errors.New("file is required")

type positionArgs struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Offset int    `json:"offset"`
}

func (a positionArgs) validate() error {
	if a.File == "" {
		return errFileRequired
	}

	if a.Line < 1 || a.Offset < 1 {
		return fmt.Errorf("line and offset are 1-based, got %d:%d", a.Line, a.Offset)
	}

	return nil
}

func (a positionArgs) location() message.FileLocationRequestArgs {
	return message.NewFileLocation(a.File, a.Line, a.Offset)
}

type fileArgs struct {
	File      string `json:"file"`
	FileNames bool   `json:"file_names"`
}

type diagnosticsResult struct {
	File        string               `json:"file"`
	Diagnostics []message.Diagnostic `json:"diagnostics"`
}

var positionSchema = map[string]string{
	"file":   "string",
	"line":   "int",
	"offset": "int",
}

func (s *Server) registerTools() {
	s.AddTool(NewTool(ToolQuickInfo,
		"Type and documentation of the symbol at a 1-based line and offset.",
		SimpleSchema(positionSchema)), s.quickInfo)

	s.AddTool(NewTool(ToolDefinition,
		"Where the symbol at a 1-based line and offset is defined.",
		SimpleSchema(positionSchema)), s.definition)

	s.AddTool(NewTool(ToolReferences,
		"Every reference to the symbol at a 1-based line and offset.",
		SimpleSchema(positionSchema)), s.references)

	s.AddTool(NewTool(ToolDiagnostics,
		"Syntax, semantic and suggestion diagnostics of a file.",
		SimpleSchema(map[string]string{"file": "string"})), s.diagnostics)

	s.AddTool(NewTool(ToolCodeFixes,
		"Code fixes the compiler offers for the diagnostics of a file.",
		SimpleSchema(map[string]string{"file": "string"})), s.codeFixes)

	s.AddTool(NewTool(ToolProjectInfo,
		"The tsconfig that owns a file, optionally with the project's file list.",
		SimpleSchema(map[string]string{"file": "string", "file_names": "bool"}, "file_names")), s.projectInfo)
}

// position parses position arguments and resolves the client for the file.
func (s *Server) position(ctx context.Context, req *mcp.CallToolRequest) (*client.Client, positionArgs, error) {
	args, err := ParseArguments[positionArgs](req)
	if err != nil {
		return nil, args, err
	}

	if err := args.validate(); err != nil {
		return nil, args, err
	}

	c, err := s.resolver.Get(ctx, args.File)

	return c, args, err
}

// file parses file arguments and resolves the client for the file.
func (s *Server) file(ctx context.Context, req *mcp.CallToolRequest) (*client.Client, fileArgs, error) {
	args, err := ParseArguments[fileArgs](req)
	if err != nil {
		return nil, args, err
	}

	if args.File == "" {
		return nil, args, errFileRequired
	}

	c, err := s.resolver.Get(ctx, args.File)

	return c, args, err
}

func (s *Server) failed(tool string, err error) *mcp.CallToolResult {
	s.log.Warn("Tool failed", "tool", tool, "error", err)

	return ErrorResult(err.Error())
}

func (s *Server) quickInfo(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, args, err := s.position(ctx, req)
	if err != nil {
		return s.failed(ToolQuickInfo, err), nil
	}

	if err := s.open(ctx, c, args.File); err != nil {
		return s.failed(ToolQuickInfo, err), nil
	}

	info, err := c.QuickInfo(ctx, args.location())
	if err != nil {
		return s.failed(ToolQuickInfo, err), nil
	}

	if info == nil || info.DisplayString == "" {
		return TextResult("No information at this position."), nil
	}

	var b strings.Builder

	fmt.Fprintf(&b, "(%s) %s", info.Kind, info.DisplayString)

	if info.Documentation != "" {
		b.WriteString("\n\n")
		b.WriteString(info.Documentation)
	}

	return TextResult(b.String()), nil
}

func (s *Server) definition(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, args, err := s.position(ctx, req)
	if err != nil {
		return s.failed(ToolDefinition, err), nil
	}

	if err := s.open(ctx, c, args.File); err != nil {
		return s.failed(ToolDefinition, err), nil
	}

	spans, err := c.Definition(ctx, args.location())
	if err != nil {
		return s.failed(ToolDefinition, err), nil
	}

	return JSONResult(spans), nil
}

func (s *Server) references(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, args, err := s.position(ctx, req)
	if err != nil {
		return s.failed(ToolReferences, err), nil
	}

	if err := s.open(ctx, c, args.File); err != nil {
		return s.failed(ToolReferences, err), nil
	}

	refs, err := c.References(ctx, args.location())
	if err != nil {
		return s.failed(ToolReferences, err), nil
	}

	return JSONResult(refs), nil
}

func (s *Server) diagnostics(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, args, err := s.file(ctx, req)
	if err != nil {
		return s.failed(ToolDiagnostics, err), nil
	}

	diags, err := s.collectDiagnostics(ctx, c, args.File)
	if err != nil {
		return s.failed(ToolDiagnostics, err), nil
	}

	return JSONResult(diagnosticsResult{File: args.File, Diagnostics: diags}), nil
}

func (s *Server) codeFixes(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, args, err := s.file(ctx, req)
	if err != nil {
		return s.failed(ToolCodeFixes, err), nil
	}

	diags, err := s.collectDiagnostics(ctx, c, args.File)
	if err != nil {
		return s.failed(ToolCodeFixes, err), nil
	}

	fixes, err := s.fixes.FixesFor(ctx, c, args.File, diags)
	if err != nil {
		return s.failed(ToolCodeFixes, err), nil
	}

	if len(fixes) == 0 {
		return TextResult("No code fixes available."), nil
	}

	return JSONResult(fixes), nil
}

func (s *Server) projectInfo(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, args, err := s.file(ctx, req)
	if err != nil {
		return s.failed(ToolProjectInfo, err), nil
	}

	if err := s.open(ctx, c, args.File); err != nil {
		return s.failed(ToolProjectInfo, err), nil
	}

	info, err := c.ProjectInfo(ctx, &message.ProjectInfoRequestArgs{
		FileRequestArgs:  message.FileRequestArgs{File: args.File},
		NeedFileNameList: args.FileNames,
	})
	if err != nil {
		return s.failed(ToolProjectInfo, err), nil
	}

	return JSONResult(info), nil
}

// open tells the server about file. The server only answers questions
// about files it has opened.
func (s *Server) open(ctx context.Context, c *client.Client, file string) error {
	if err := c.Open(ctx, &message.OpenRequestArgs{
		FileRequestArgs: message.FileRequestArgs{File: file},
	}); err != nil {
		return fmt.Errorf("open %s: %w", file, err)
	}

	return nil
}

// collectDiagnostics asks the server to check file and gathers the
// diagnostic events it emits until the check completes or the wait runs
// out. A timed out wait returns what arrived so far.
func (s *Server) collectDiagnostics(ctx context.Context, c *client.Client, file string) ([]message.Diagnostic, error) {
	store := diagnostics.NewStore()

	detach := store.Attach(c.Events())
	defer detach()

	var once sync.Once

	completed := make(chan struct{})

	unsubscribe := event.Subscribe(c.Events(), event.RequestCompleted, func(message.RequestCompletedEventBody) {
		once.Do(func() { close(completed) })
	})
	defer unsubscribe()

	exited := make(chan error, 1)

	unsubscribeExit := event.Subscribe(c.Events(), event.ServerExit, func(err error) {
		select {
		case exited <- err:
		default:
		}
	})
	defer unsubscribeExit()

	if err := s.open(ctx, c, file); err != nil {
		return nil, err
	}

	if err := c.GetErr(ctx, &message.GetErrRequestArgs{Files: []string{file}}); err != nil {
		return nil, fmt.Errorf("request diagnostics for %s: %w", file, err)
	}

	timer := time.NewTimer(s.wait)
	defer timer.Stop()

	select {
	case <-completed:
	case <-timer.C:
		s.log.Warn("Timed out waiting for diagnostics", "file", file, "wait", s.wait)
	case err := <-exited:
		return nil, fmt.Errorf("diagnostics for %s: %w", file, err)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return store.Get(file), nil
}
