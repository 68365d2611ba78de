// Command tsmcp serves TypeScript language intelligence over the Model
// Context Protocol on stdio.
//
// It starts one tsserver per TypeScript install it encounters and exposes
// quick info, navigation, diagnostics and code fixes as MCP tools.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	tsmcp "github.com/wagiedev/tsserver-go/internal/mcp"
)

// Version information (set via ldflags during build).
var version = "dev"

type flags struct {
	configPath  string
	projectRoot string
	serverPath  string
	debug       bool
	showVersion bool
}

func main() {
	os.Exit(run())
}

func run() int {
	f := parseFlags()

	if f.showVersion {
		fmt.Printf("tsmcp %s\n", version)

		return 0
	}

	cfg, unknown, err := LoadConfig(f.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		return 1
	}

	applyFlags(cfg, f)

	level, err := cfg.Level()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		return 1
	}

	// stdout carries the protocol; logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	for _, key := range unknown {
		log.Warn("Unknown config key", "key", key, "config", f.configPath)
	}

	server := tsmcp.NewServer(tsmcp.Config{
		Options:         cfg.Options(log),
		Name:            "tsmcp",
		Version:         version,
		DiagnosticsWait: cfg.DiagnosticsWait,
	})

	defer func() {
		if err := server.Close(); err != nil {
			log.Error("Failed to stop tsserver", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Error("MCP server stopped", "error", err)

		return 1
	}

	return 0
}

func parseFlags() flags {
	var f flags

	flag.StringVar(&f.configPath, "config", "", "Path to a TOML configuration file")
	flag.StringVar(&f.projectRoot, "project", "", "Project root (overrides project_root)")
	flag.StringVar(&f.serverPath, "server", "", "Path to tsserver (overrides server_path)")
	flag.BoolVar(&f.debug, "debug", false, "Log every tsserver message")
	flag.BoolVar(&f.showVersion, "version", false, "Print version and exit")

	flag.Parse()

	return f
}

// applyFlags overrides file settings with the flags that were given.
func applyFlags(cfg *Config, f flags) {
	if f.projectRoot != "" {
		cfg.ProjectRoot = f.projectRoot
	}

	if f.serverPath != "" {
		cfg.ServerPath = f.serverPath
	}

	if f.debug {
		cfg.Debug = true

		if cfg.LogLevel == "" {
			cfg.LogLevel = "debug"
		}
	}
}
