package discovery

import (
	"fmt"
	"os"
	"strings"

	"github.com/wagiedev/tsserver-go/internal/config"
)

// defaultNode is the node binary used when Options.NodePath is empty.
const defaultNode = "node"

// BuildCommand returns the program and arguments that run the server at
// serverPath. A .js entry point is run through node.
func BuildCommand(serverPath string, options *config.Options) (string, []string) {
	args := BuildArgs(options)

	if !strings.HasSuffix(serverPath, ".js") {
		return serverPath, args
	}

	node := options.NodePath
	if node == "" {
		node = defaultNode
	}

	return node, append([]string{serverPath}, args...)
}

// BuildArgs builds the server's own command line flags.
func BuildArgs(options *config.Options) []string {
	args := make([]string, 0, 8+len(options.Args))

	if len(options.GlobalPlugins) > 0 {
		args = append(args, "--globalPlugins", strings.Join(options.GlobalPlugins, ","))
	}

	if len(options.PluginSearchPaths) > 0 {
		args = append(args, "--pluginProbeLocations", strings.Join(options.PluginSearchPaths, ","))
	}

	if options.Locale != "" {
		args = append(args, "--locale", options.Locale)
	}

	return append(args, options.Args...)
}

// BuildEnvironment returns the process environment: the current one plus
// options.Env, with options.Env taking precedence.
func BuildEnvironment(options *config.Options) []string {
	env := os.Environ()

	for key, value := range options.Env {
		env = append(env, fmt.Sprintf("%s=%s", key, value))
	}

	return env
}
