package tsserver

import (
	"github.com/wagiedev/tsserver-go/internal/client"
	"github.com/wagiedev/tsserver-go/internal/config"
	"github.com/wagiedev/tsserver-go/internal/event"
	"github.com/wagiedev/tsserver-go/internal/message"
	"github.com/wagiedev/tsserver-go/internal/pending"
)

// Re-export types from internal packages

// ===== Options and Configuration =====

// Options configures a tsserver client.
type Options = config.Options

// ===== Lifecycle =====

// State is the lifecycle state of the server process.
type State = client.State

const (
	// StateNotStarted means no server process is live.
	StateNotStarted = client.StateNotStarted
	// StateStarting means a server is being spawned.
	StateStarting = client.StateStarting
	// StateReady means a live server has answered the handshake.
	StateReady = client.StateReady
)

// PendingRequest describes a request awaiting its response.
type PendingRequest = pending.Info

// ===== Protocol Messages =====

// Message is a response or event received from the server.
type Message = message.Message

// Location is a one-based line and character offset.
type Location = message.Location

// TextSpan is a range within a file.
type TextSpan = message.TextSpan

// FileSpan is a range within a named file.
type FileSpan = message.FileSpan

// NewFileLocation builds the arguments addressing a position in a file.
var NewFileLocation = message.NewFileLocation

// ===== Command Arguments =====

type (
	// FileRequestArgs identifies a file.
	FileRequestArgs = message.FileRequestArgs
	// FileLocationRequestArgs identifies a position within a file.
	FileLocationRequestArgs = message.FileLocationRequestArgs
	// ChangeRequestArgs replaces a range of an open file.
	ChangeRequestArgs = message.ChangeRequestArgs
	// OpenRequestArgs opens a file.
	OpenRequestArgs = message.OpenRequestArgs
	// SaveToRequestArgs writes a file to a temporary location.
	SaveToRequestArgs = message.SaveToRequestArgs
	// ReloadRequestArgs reloads a file from a temporary location.
	ReloadRequestArgs = message.ReloadRequestArgs
	// FormatCodeSettings controls formatting.
	FormatCodeSettings = message.FormatCodeSettings
	// ConfigureRequestArgs sets host information and formatting options.
	ConfigureRequestArgs = message.ConfigureRequestArgs
	// FormatRequestArgs formats a range.
	FormatRequestArgs = message.FormatRequestArgs
	// CompletionsRequestArgs requests completions.
	CompletionsRequestArgs = message.CompletionsRequestArgs
	// CompletionDetailsRequestArgs resolves completion entries.
	CompletionDetailsRequestArgs = message.CompletionDetailsRequestArgs
	// RenameRequestArgs requests rename locations.
	RenameRequestArgs = message.RenameRequestArgs
	// GetErrRequestArgs schedules diagnostics for files.
	GetErrRequestArgs = message.GetErrRequestArgs
	// GetErrForProjectRequestArgs schedules diagnostics for a project.
	GetErrForProjectRequestArgs = message.GetErrForProjectRequestArgs
	// ProjectInfoRequestArgs requests project information.
	ProjectInfoRequestArgs = message.ProjectInfoRequestArgs
	// CompileOnSaveEmitFileRequestArgs emits a file.
	CompileOnSaveEmitFileRequestArgs = message.CompileOnSaveEmitFileRequestArgs
	// CodeFixRequestArgs requests code fixes.
	CodeFixRequestArgs = message.CodeFixRequestArgs
)

// ===== Response Bodies =====

type (
	// CodeEdit replaces a span with new text.
	CodeEdit = message.CodeEdit
	// FileCodeEdits groups edits of one file.
	FileCodeEdits = message.FileCodeEdits
	// CodeAction is a fix offered by the server.
	CodeAction = message.CodeAction
	// SymbolDisplayPart is one classified piece of display text.
	SymbolDisplayPart = message.SymbolDisplayPart
	// QuickInfoBody describes a symbol.
	QuickInfoBody = message.QuickInfoBody
	// CompletionEntry is one completion candidate.
	CompletionEntry = message.CompletionEntry
	// CompletionEntryDetails is a resolved completion entry.
	CompletionEntryDetails = message.CompletionEntryDetails
	// ReferencesItem is one reference to a symbol.
	ReferencesItem = message.ReferencesItem
	// ReferencesBody lists the references of a symbol.
	ReferencesBody = message.ReferencesBody
	// RenameInfo tells whether a symbol can be renamed.
	RenameInfo = message.RenameInfo
	// SpanGroup lists spans in one file.
	SpanGroup = message.SpanGroup
	// RenameBody holds rename information and locations.
	RenameBody = message.RenameBody
	// OccurrencesItem is one occurrence of a symbol.
	OccurrencesItem = message.OccurrencesItem
	// ProjectInfo describes a project.
	ProjectInfo = message.ProjectInfo
	// CompileOnSaveAffectedFileList lists files to emit for a project.
	CompileOnSaveAffectedFileList = message.CompileOnSaveAffectedFileList
	// Diagnostic is an error, warning or suggestion.
	Diagnostic = message.Diagnostic
)

// ===== Events =====

type (
	// DiagnosticEventBody carries the diagnostics of one file.
	DiagnosticEventBody = message.DiagnosticEventBody
	// ConfigFileDiagnosticEventBody reports problems in a tsconfig file.
	ConfigFileDiagnosticEventBody = message.ConfigFileDiagnosticEventBody
	// ProjectLoadingStartEventBody is sent when a project starts loading.
	ProjectLoadingStartEventBody = message.ProjectLoadingStartEventBody
	// ProjectLoadingFinishEventBody is sent when a project has loaded.
	ProjectLoadingFinishEventBody = message.ProjectLoadingFinishEventBody
	// RequestCompletedEventBody is sent when a geterr request has finished.
	RequestCompletedEventBody = message.RequestCompletedEventBody
)

// Topic names an event and the type of its payload.
type Topic[T any] = event.Topic[T]

// Known topics.
var (
	SyntaxDiag            = event.SyntaxDiag
	SemanticDiag          = event.SemanticDiag
	SuggestionDiag        = event.SuggestionDiag
	ConfigFileDiag        = event.ConfigFileDiag
	ProjectLoadingStart   = event.ProjectLoadingStart
	ProjectLoadingFinish  = event.ProjectLoadingFinish
	RequestCompleted      = event.RequestCompleted
	PendingRequestsChange = event.PendingRequestsChange
	ServerExit            = event.ServerExit
)

// On subscribes fn to a typed topic of c. Payloads of another type are
// skipped. The returned func removes the subscription.
//
// Handlers run one at a time on a goroutine owned by the client, in the
// order events arrived, and may issue requests on c.
func On[T any](c Client, topic Topic[T], fn func(T)) (unsubscribe func()) {
	return c.OnEvent(topic.Name(), func(payload any) {
		if v, ok := payload.(T); ok {
			fn(v)
		}
	})
}
