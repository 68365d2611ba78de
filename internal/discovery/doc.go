// Package discovery locates the tsserver executable for a project and builds
// the command line used to run it.
//
// # Discovery
//
//	discoverer := discovery.NewDiscoverer(&discovery.Config{
//	    ServerPath: "",            // Optional explicit path
//	    StartDir:   projectRoot,
//	    Logger:     slog.Default(),
//	})
//	loc, err := discoverer.Discover(ctx)
//
// Discovery searches in the following order:
//  1. Explicit path in Config.ServerPath (if provided)
//  2. The TSSERVER_PATH environment variable
//  3. node_modules/typescript/lib/tsserver.js in StartDir and each parent
//  4. tsserver on the system PATH
//  5. Global npm installation directories
//
// The TypeScript version is read from the package.json next to the server
// when one exists.
//
// # Command Building
//
//	name, args := discovery.BuildCommand(loc.Path, options)
//	env := discovery.BuildEnvironment(options)
package discovery
