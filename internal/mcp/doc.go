// Package mcp exposes tsserver operations as Model Context Protocol tools.
//
// A Server resolves the tsserver for each file it is asked about, so one
// server can answer for several projects at once. Tools report every
// failure as an error result rather than a protocol error.
//
// The server keeps its own tool registry next to the go-sdk server so tools
// can also be called in-process with CallTool.
package mcp
