package discovery

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wagiedev/tsserver-go/internal/errors"
)

const (
	// MinimumVersion is the oldest TypeScript release whose server speaks
	// every command this client issues.
	MinimumVersion = "2.0.0"

	// EnvServerPath overrides discovery when set.
	EnvServerPath = "TSSERVER_PATH"
)

// localServerPath is where a project-local TypeScript install keeps its server.
var localServerPath = filepath.Join("node_modules", "typescript", "lib", "tsserver.js")

// Config holds configuration for server discovery.
type Config struct {
	// ServerPath is an explicit server path that skips searching.
	ServerPath string

	// StartDir is where the node_modules walk-up begins.
	// If empty, the current directory is used.
	StartDir string

	// Logger is an optional logger for discovery operations.
	// If nil, a default no-op logger is used.
	Logger *slog.Logger
}

// Location is a discovered server.
type Location struct {
	// Path is the absolute path of the server executable or .js entry point.
	Path string

	// Version is the TypeScript version, empty when it could not be read.
	Version string
}

// Discoverer locates the tsserver executable.
type Discoverer interface {
	// Discover locates the server and reads its version.
	Discover(ctx context.Context) (*Location, error)
}

// discoverer implements the Discoverer interface.
type discoverer struct {
	cfg *Config
	log *slog.Logger
}

// Compile-time verification that discoverer implements Discoverer.
var _ Discoverer = (*discoverer)(nil)

// NewDiscoverer creates a new server discoverer with the given configuration.
func NewDiscoverer(cfg *Config) Discoverer {
	if cfg == nil {
		cfg = &Config{}
	}

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &discoverer{
		cfg: cfg,
		log: log.With("component", "discovery"),
	}
}

// Discover locates the server and reads its version.
func (d *discoverer) Discover(ctx context.Context) (*Location, error) {
	d.log.Debug("Discovering tsserver")

	path, err := d.findServer(ctx)
	if err != nil {
		d.log.Error("Failed to find tsserver", "error", err)

		return nil, err
	}

	loc := &Location{Path: path, Version: ReadVersion(path)}

	switch {
	case loc.Version == "":
		d.log.Debug("Could not determine TypeScript version", "server_path", path)
	case CompareVersions(loc.Version, MinimumVersion) < 0:
		d.log.Warn("TypeScript version is older than supported",
			"version", loc.Version,
			"minimum_required", MinimumVersion,
		)
	default:
		d.log.Debug("Found tsserver", "server_path", path, "version", loc.Version)
	}

	return loc, nil
}

// findServer locates the server binary.
func (d *discoverer) findServer(ctx context.Context) (string, error) {
	// If explicit path provided, use it and only it
	if d.cfg.ServerPath != "" {
		d.log.Debug("Using explicit server path", "server_path", d.cfg.ServerPath)

		return statAbs(d.cfg.ServerPath, []string{d.cfg.ServerPath})
	}

	if envPath := os.Getenv(EnvServerPath); envPath != "" {
		d.log.Debug("Using server path from environment", "server_path", envPath)

		return statAbs(envPath, []string{"$" + EnvServerPath})
	}

	searchedPaths := make([]string, 0, 8)

	startDir := d.cfg.StartDir
	if startDir == "" {
		wd, err := os.Getwd()
		if err == nil {
			startDir = wd
		}
	}

	if startDir != "" {
		path, searched := findLocal(ctx, startDir)
		if path != "" {
			d.log.Debug("Found project-local tsserver", "path", path)

			return path, nil
		}

		searchedPaths = append(searchedPaths, searched...)
	}

	d.log.Debug("Searching for 'tsserver' in PATH")

	if path, err := exec.LookPath("tsserver"); err == nil {
		d.log.Debug("Found 'tsserver' in PATH", "path", path)

		return path, nil
	}

	searchedPaths = append(searchedPaths, "$PATH")

	for _, path := range globalPaths() {
		searchedPaths = append(searchedPaths, path)

		if _, err := os.Stat(path); err == nil {
			d.log.Debug("Found global tsserver", "path", path)

			return path, nil
		}
	}

	d.log.Warn("tsserver not found in any searched paths", "searched_paths", searchedPaths)

	return "", &errors.ServerNotFoundError{SearchedPaths: searchedPaths}
}

// findLocal walks from dir to the filesystem root looking for a local
// TypeScript install.
func findLocal(ctx context.Context, dir string) (string, []string) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", nil
	}

	var searched []string

	for ctx.Err() == nil {
		candidate := filepath.Join(dir, localServerPath)
		searched = append(searched, candidate)

		if _, err := os.Stat(candidate); err == nil {
			return candidate, searched
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}

		dir = parent
	}

	return "", searched
}

func globalPaths() []string {
	paths := []string{
		"/usr/local/lib/node_modules/typescript/lib/tsserver.js",
		"/usr/lib/node_modules/typescript/lib/tsserver.js",
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(homeDir, ".npm-global/lib/node_modules/typescript/lib/tsserver.js"),
		)
	}

	return paths
}

func statAbs(path string, searched []string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", &errors.ServerNotFoundError{SearchedPaths: searched}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil //nolint:nilerr // the relative path is still usable
	}

	return abs, nil
}

// ReadVersion returns the version from the typescript package.json that
// owns serverPath (lib/tsserver.js or bin/tsserver), or "" if there is none.
func ReadVersion(serverPath string) string {
	resolved, err := filepath.EvalSymlinks(serverPath)
	if err != nil {
		resolved = serverPath
	}

	pkgPath := filepath.Join(filepath.Dir(filepath.Dir(resolved)), "package.json")

	data, err := os.ReadFile(pkgPath)
	if err != nil {
		return ""
	}

	var pkg struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}

	if err := json.Unmarshal(data, &pkg); err != nil || pkg.Name != "typescript" {
		return ""
	}

	return pkg.Version
}

// CompareVersions compares two semantic versions.
// Returns -1 if a < b, 0 if a == b, 1 if a > b. Pre-release suffixes are ignored.
func CompareVersions(a, b string) int {
	aParts := strings.Split(a, ".")
	bParts := strings.Split(b, ".")

	for i := range 3 {
		aNum := 0
		bNum := 0

		if i < len(aParts) {
			aNum, _ = strconv.Atoi(leadingDigits(aParts[i]))
		}

		if i < len(bParts) {
			bNum, _ = strconv.Atoi(leadingDigits(bParts[i]))
		}

		if aNum < bNum {
			return -1
		}

		if aNum > bNum {
			return 1
		}
	}

	return 0
}

func leadingDigits(s string) string {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}

	return s[:end]
}
