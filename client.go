package tsserver

import (
	"context"
)

// Client is a connection manager for one tsserver process.
//
// The process is spawned by Start and respawned on demand after a crash.
// Commands that the server answers block until the response arrives or ctx
// is done; other commands return as soon as they are queued.
//
// Lifecycle: Clients are single-use. After Close(), create a new client with NewClient().
//
// Example usage:
//
//	client := tsserver.NewClient(tsserver.WithProjectRoot(root))
//	defer client.Close()
//
//	if err := client.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	defs, err := client.Definition(ctx, tsserver.NewFileLocation(file, 12, 5))
type Client interface {
	// Start spawns the server and waits until it answers a handshake.
	// Concurrent calls share a single spawn; calling Start on a ready
	// client does nothing.
	// Returns ServerNotFoundError if tsserver is not found, ConnectionError on failure.
	Start(ctx context.Context) error

	// Close kills the server. Pending requests fail with ErrClientClosed,
	// as does every later call.
	Close() error

	// ID returns the unique identifier of this client.
	ID() string

	// State reports whether a server process is live.
	State() State

	// ServerPath returns the path of the server in use.
	ServerPath() string

	// Version returns the TypeScript version of the server, empty when unknown.
	Version() string

	// PendingRequests returns the requests awaiting a response, ordered by
	// sequence number.
	PendingRequests() []PendingRequest

	// OnEvent subscribes fn to server events named name. Payloads of known
	// events are their typed bodies; other payloads, and known events whose
	// body does not decode, are json.RawMessage. Prefer the typed On
	// function for known events.
	//
	// Handlers run one at a time on a goroutine owned by the client, in the
	// order events arrived. A handler may issue requests and wait for them;
	// later events queue meanwhile.
	OnEvent(name string, fn func(payload any)) (unsubscribe func())

	// Execute sends an arbitrary command. It returns the response for
	// commands the server answers and (nil, nil) for the others. A response
	// with success=false yields a CommandError.
	Execute(ctx context.Context, command string, args any) (*Message, error)

	// Open tells the server a file is open.
	Open(ctx context.Context, args *OpenRequestArgs) error

	// CloseFile tells the server a file is no longer open.
	CloseFile(ctx context.Context, file string) error

	// Change applies an edit to an open file.
	Change(ctx context.Context, args *ChangeRequestArgs) error

	// SaveTo writes the server's copy of a file to a temporary file.
	SaveTo(ctx context.Context, args *SaveToRequestArgs) error

	// Configure sets host information and formatting options.
	Configure(ctx context.Context, args *ConfigureRequestArgs) error

	// Reload replaces the server's copy of a file with a temporary file.
	Reload(ctx context.Context, args *ReloadRequestArgs) error

	// Format returns the edits that format a range.
	Format(ctx context.Context, args *FormatRequestArgs) ([]CodeEdit, error)

	// Completions returns completion candidates at a position.
	Completions(ctx context.Context, args *CompletionsRequestArgs) ([]CompletionEntry, error)

	// CompletionDetails resolves completion entries by name.
	CompletionDetails(ctx context.Context, args *CompletionDetailsRequestArgs) ([]CompletionEntryDetails, error)

	// Definition returns where the symbol at a position is defined.
	Definition(ctx context.Context, args FileLocationRequestArgs) ([]FileSpan, error)

	// References returns every reference to the symbol at a position.
	References(ctx context.Context, args FileLocationRequestArgs) (*ReferencesBody, error)

	// Rename returns the locations to edit to rename a symbol.
	Rename(ctx context.Context, args *RenameRequestArgs) (*RenameBody, error)

	// Occurrences returns the occurrences of a symbol within its file.
	Occurrences(ctx context.Context, args FileLocationRequestArgs) ([]OccurrencesItem, error)

	// QuickInfo describes the symbol at a position.
	QuickInfo(ctx context.Context, args FileLocationRequestArgs) (*QuickInfoBody, error)

	// ProjectInfo describes the project containing a file.
	ProjectInfo(ctx context.Context, args *ProjectInfoRequestArgs) (*ProjectInfo, error)

	// CompileOnSaveAffectedFileList lists the files affected by saving a file.
	CompileOnSaveAffectedFileList(ctx context.Context, args *FileRequestArgs) ([]CompileOnSaveAffectedFileList, error)

	// CompileOnSaveEmitFile emits a file and reports whether output was written.
	CompileOnSaveEmitFile(ctx context.Context, args *CompileOnSaveEmitFileRequestArgs) (bool, error)

	// GetErr schedules diagnostics for files; results arrive as events.
	GetErr(ctx context.Context, args *GetErrRequestArgs) error

	// GetErrForProject schedules diagnostics for a project; results arrive as events.
	GetErrForProject(ctx context.Context, args *GetErrForProjectRequestArgs) error

	// GetSupportedCodeFixes returns the error codes the server can fix.
	GetSupportedCodeFixes(ctx context.Context) ([]string, error)

	// GetCodeFixes returns the fixes for error codes within a range.
	GetCodeFixes(ctx context.Context, args *CodeFixRequestArgs) ([]CodeAction, error)
}

// NewClient creates a new tsserver client. No process is spawned until
// Start is called.
func NewClient(opts ...Option) Client {
	return newClientImpl(opts)
}
