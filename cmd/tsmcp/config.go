package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/wagiedev/tsserver-go/internal/config"
)

// Config is the contents of the tsmcp configuration file.
type Config struct {
	ProjectRoot       string            `toml:"project_root"`
	ServerPath        string            `toml:"server_path"`
	NodePath          string            `toml:"node_path"`
	Args              []string          `toml:"args"`
	GlobalPlugins     []string          `toml:"global_plugins"`
	PluginSearchPaths []string          `toml:"plugin_search_paths"`
	Locale            string            `toml:"locale"`
	Env               map[string]string `toml:"env"`
	HandshakeTimeout  time.Duration     `toml:"handshake_timeout"`
	DiagnosticsWait   time.Duration     `toml:"diagnostics_wait"`
	Debug             bool              `toml:"debug"`
	LogLevel          string            `toml:"log_level"`
}

// LoadConfig reads a TOML config file. An empty path yields the zero
// config. Unknown keys are returned so the caller can warn about them.
func LoadConfig(path string) (*Config, []string, error) {
	var cfg Config

	if path == "" {
		return &cfg, nil, nil
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("load config %s: %w", path, err)
	}

	undecoded := md.Undecoded()
	unknown := make([]string, 0, len(undecoded))

	for _, key := range undecoded {
		unknown = append(unknown, key.String())
	}

	return &cfg, unknown, nil
}

// Level parses LogLevel, defaulting to info.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level

	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}

	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}

	return level, nil
}

// Options converts the file config into client options.
func (c *Config) Options(log *slog.Logger) *config.Options {
	opts := &config.Options{
		Logger:            log,
		Debug:             c.Debug,
		ServerPath:        c.ServerPath,
		NodePath:          c.NodePath,
		ProjectRoot:       c.ProjectRoot,
		Args:              c.Args,
		GlobalPlugins:     c.GlobalPlugins,
		PluginSearchPaths: c.PluginSearchPaths,
		Locale:            c.Locale,
		Env:               c.Env,
	}

	if c.HandshakeTimeout > 0 {
		opts.HandshakeTimeout = &c.HandshakeTimeout
	}

	return opts
}
