package message

// Command names understood by tsserver.
const (
	CommandChange                        = "change"
	CommandClose                         = "close"
	CommandCompileOnSaveAffectedFileList = "compileOnSaveAffectedFileList"
	CommandCompileOnSaveEmitFile         = "compileOnSaveEmitFile"
	CommandCompletionDetails             = "completionEntryDetails"
	CommandCompletions                   = "completions"
	CommandConfigure                     = "configure"
	CommandDefinition                    = "definition"
	CommandFormat                        = "format"
	CommandGetCodeFixes                  = "getCodeFixes"
	CommandGetErr                        = "geterr"
	CommandGetErrForProject              = "geterrForProject"
	CommandGetSupportedCodeFixes         = "getSupportedCodeFixes"
	CommandOccurrences                   = "occurrences"
	CommandOpen                          = "open"
	CommandProjectInfo                   = "projectInfo"
	CommandQuickInfo                     = "quickinfo"
	CommandReferences                    = "references"
	CommandReload                        = "reload"
	CommandRename                        = "rename"
	CommandSaveTo                        = "saveto"

	// CommandPing is not part of the protocol. The server answers it with a
	// failed response, which proves the channel works.
	CommandPing = "ping"
)

// commandsWithResponse lists the commands the server answers.
// Every other command is fire-and-forget.
var commandsWithResponse = map[string]struct{}{
	CommandCompileOnSaveAffectedFileList: {},
	CommandCompileOnSaveEmitFile:         {},
	CommandCompletionDetails:             {},
	CommandCompletions:                   {},
	CommandConfigure:                     {},
	CommandDefinition:                    {},
	CommandFormat:                        {},
	CommandGetCodeFixes:                  {},
	CommandGetSupportedCodeFixes:         {},
	CommandOccurrences:                   {},
	CommandProjectInfo:                   {},
	CommandQuickInfo:                     {},
	CommandReferences:                    {},
	CommandReload:                        {},
	CommandRename:                        {},
}

// ExpectsResponse reports whether the server answers command.
func ExpectsResponse(command string) bool {
	_, ok := commandsWithResponse[command]

	return ok
}

// Event names pushed by tsserver.
const (
	EventSyntaxDiag           = "syntaxDiag"
	EventSemanticDiag         = "semanticDiag"
	EventSuggestionDiag       = "suggestionDiag"
	EventConfigFileDiag       = "configFileDiag"
	EventProjectLoadingStart  = "projectLoadingStart"
	EventProjectLoadingFinish = "projectLoadingFinish"
	EventRequestCompleted     = "requestCompleted"
)

// Location is a one-based line and character offset.
type Location struct {
	Line   int `json:"line"`
	Offset int `json:"offset"`
}

// Before reports whether l comes strictly before other.
func (l Location) Before(other Location) bool {
	return l.Line < other.Line || (l.Line == other.Line && l.Offset < other.Offset)
}

// TextSpan is a range within a file.
type TextSpan struct {
	Start Location `json:"start"`
	End   Location `json:"end"`
}

// Contains reports whether loc lies within the span, ends inclusive.
func (s TextSpan) Contains(loc Location) bool {
	return !loc.Before(s.Start) && !s.End.Before(loc)
}

// FileSpan is a range within a named file.
type FileSpan struct {
	File  string   `json:"file"`
	Start Location `json:"start"`
	End   Location `json:"end"`
}

// ===== Arguments =====

// FileRequestArgs identifies the file a command targets.
type FileRequestArgs struct {
	File            string `json:"file"`
	ProjectFileName string `json:"projectFileName,omitempty"`
}

// FileLocationRequestArgs identifies a position within a file.
type FileLocationRequestArgs struct {
	FileRequestArgs

	Line   int `json:"line"`
	Offset int `json:"offset"`
}

// NewFileLocation builds the arguments addressing line and offset in file.
func NewFileLocation(file string, line, offset int) FileLocationRequestArgs {
	return FileLocationRequestArgs{
		FileRequestArgs: FileRequestArgs{File: file},
		Line:            line,
		Offset:          offset,
	}
}

// ChangeRequestArgs replaces a range of an open file with InsertString.
type ChangeRequestArgs struct {
	FileLocationRequestArgs

	EndLine      int    `json:"endLine"`
	EndOffset    int    `json:"endOffset"`
	InsertString string `json:"insertString,omitempty"`
}

// OpenRequestArgs opens a file. FileContent overrides the on-disk text.
type OpenRequestArgs struct {
	FileRequestArgs

	FileContent     string `json:"fileContent,omitempty"`
	ScriptKindName  string `json:"scriptKindName,omitempty"`
	ProjectRootPath string `json:"projectRootPath,omitempty"`
}

// SaveToRequestArgs asks the server to write its copy of File to TmpFile.
type SaveToRequestArgs struct {
	FileRequestArgs

	TmpFile string `json:"tmpfile"`
}

// ReloadRequestArgs reloads File from TmpFile.
type ReloadRequestArgs struct {
	FileRequestArgs

	TmpFile string `json:"tmpfile"`
}

// FormatCodeSettings controls formatting. Zero values are omitted so the
// server keeps its defaults.
type FormatCodeSettings struct {
	BaseIndentSize                     int    `json:"baseIndentSize,omitempty"`
	IndentSize                         int    `json:"indentSize,omitempty"`
	TabSize                            int    `json:"tabSize,omitempty"`
	NewLineCharacter                   string `json:"newLineCharacter,omitempty"`
	ConvertTabsToSpaces                *bool  `json:"convertTabsToSpaces,omitempty"`
	InsertSpaceAfterCommaDelimiter     *bool  `json:"insertSpaceAfterCommaDelimiter,omitempty"`
	InsertSpaceBeforeAndAfterBinaryOps *bool  `json:"insertSpaceBeforeAndAfterBinaryOperators,omitempty"`
	PlaceOpenBraceOnNewLineForFuncs    *bool  `json:"placeOpenBraceOnNewLineForFunctions,omitempty"`
	Semicolons                         string `json:"semicolons,omitempty"`
}

// ConfigureRequestArgs sets host information and formatting options.
type ConfigureRequestArgs struct {
	HostInfo      string              `json:"hostInfo,omitempty"`
	File          string              `json:"file,omitempty"`
	FormatOptions *FormatCodeSettings `json:"formatOptions,omitempty"`
	Preferences   map[string]any      `json:"preferences,omitempty"`
}

// FormatRequestArgs formats the range from Line/Offset to EndLine/EndOffset.
type FormatRequestArgs struct {
	FileLocationRequestArgs

	EndLine   int                 `json:"endLine"`
	EndOffset int                 `json:"endOffset"`
	Options   *FormatCodeSettings `json:"options,omitempty"`
}

// CompletionsRequestArgs requests completions at a position.
type CompletionsRequestArgs struct {
	FileLocationRequestArgs

	Prefix           string `json:"prefix,omitempty"`
	TriggerCharacter string `json:"triggerCharacter,omitempty"`
}

// CompletionDetailsRequestArgs requests details for named completion entries.
type CompletionDetailsRequestArgs struct {
	FileLocationRequestArgs

	EntryNames []string `json:"entryNames"`
}

// RenameRequestArgs requests rename locations for the symbol at a position.
type RenameRequestArgs struct {
	FileLocationRequestArgs

	FindInComments bool `json:"findInComments,omitempty"`
	FindInStrings  bool `json:"findInStrings,omitempty"`
}

// GetErrRequestArgs schedules diagnostics for Files after Delay milliseconds.
// Results arrive as syntaxDiag, semanticDiag and suggestionDiag events.
type GetErrRequestArgs struct {
	Files []string `json:"files"`
	Delay int      `json:"delay"`
}

// GetErrForProjectRequestArgs schedules diagnostics for every file of the
// project containing File.
type GetErrForProjectRequestArgs struct {
	File  string `json:"file"`
	Delay int    `json:"delay"`
}

// ProjectInfoRequestArgs requests information about the project of File.
type ProjectInfoRequestArgs struct {
	FileRequestArgs

	NeedFileNameList bool `json:"needFileNameList"`
}

// CompileOnSaveEmitFileRequestArgs emits the output of File.
type CompileOnSaveEmitFileRequestArgs struct {
	FileRequestArgs

	ForceDtsEmit bool `json:"forceDtsEmit,omitempty"`
}

// CodeFixRequestArgs requests fixes for ErrorCodes within a range.
type CodeFixRequestArgs struct {
	FileRequestArgs

	StartLine   int   `json:"startLine"`
	StartOffset int   `json:"startOffset"`
	EndLine     int   `json:"endLine"`
	EndOffset   int   `json:"endOffset"`
	ErrorCodes  []int `json:"errorCodes"`
}

// ===== Bodies =====

// CodeEdit replaces a span with NewText.
type CodeEdit struct {
	Start   Location `json:"start"`
	End     Location `json:"end"`
	NewText string   `json:"newText"`
}

// FileCodeEdits groups edits of one file.
type FileCodeEdits struct {
	FileName    string     `json:"fileName"`
	TextChanges []CodeEdit `json:"textChanges"`
}

// CodeAction is a fix offered by the server.
type CodeAction struct {
	Description string          `json:"description"`
	Changes     []FileCodeEdits `json:"changes"`
	FixName     string          `json:"fixName,omitempty"`
	FixID       any             `json:"fixId,omitempty"`
}

// SymbolDisplayPart is one classified piece of display text.
type SymbolDisplayPart struct {
	Text string `json:"text"`
	Kind string `json:"kind"`
}

// QuickInfoBody describes the symbol under a position.
type QuickInfoBody struct {
	Kind          string   `json:"kind"`
	KindModifiers string   `json:"kindModifiers"`
	Start         Location `json:"start"`
	End           Location `json:"end"`
	DisplayString string   `json:"displayString"`
	Documentation string   `json:"documentation"`
}

// CompletionEntry is one completion candidate.
type CompletionEntry struct {
	Name            string    `json:"name"`
	Kind            string    `json:"kind"`
	KindModifiers   string    `json:"kindModifiers,omitempty"`
	SortText        string    `json:"sortText"`
	InsertText      string    `json:"insertText,omitempty"`
	ReplacementSpan *TextSpan `json:"replacementSpan,omitempty"`
}

// CompletionEntryDetails is the resolved form of a completion entry.
type CompletionEntryDetails struct {
	Name          string              `json:"name"`
	Kind          string              `json:"kind"`
	KindModifiers string              `json:"kindModifiers"`
	DisplayParts  []SymbolDisplayPart `json:"displayParts"`
	Documentation []SymbolDisplayPart `json:"documentation"`
}

// ReferencesItem is one reference to a symbol.
type ReferencesItem struct {
	FileSpan

	LineText      string `json:"lineText"`
	IsWriteAccess bool   `json:"isWriteAccess"`
	IsDefinition  bool   `json:"isDefinition"`
}

// ReferencesBody lists the references of the symbol under a position.
type ReferencesBody struct {
	Refs                []ReferencesItem `json:"refs"`
	SymbolName          string           `json:"symbolName"`
	SymbolStartOffset   int              `json:"symbolStartOffset"`
	SymbolDisplayString string           `json:"symbolDisplayString"`
}

// RenameInfo tells whether the symbol can be renamed.
type RenameInfo struct {
	CanRename             bool   `json:"canRename"`
	LocalizedErrorMessage string `json:"localizedErrorMessage,omitempty"`
	DisplayName           string `json:"displayName"`
	FullDisplayName       string `json:"fullDisplayName"`
	Kind                  string `json:"kind"`
	KindModifiers         string `json:"kindModifiers"`
}

// SpanGroup lists spans in one file.
type SpanGroup struct {
	File string     `json:"file"`
	Locs []TextSpan `json:"locs"`
}

// RenameBody holds rename information and the locations to edit.
type RenameBody struct {
	Info RenameInfo  `json:"info"`
	Locs []SpanGroup `json:"locs"`
}

// OccurrencesItem is one occurrence of the symbol under a position.
type OccurrencesItem struct {
	FileSpan

	IsWriteAccess bool `json:"isWriteAccess"`
}

// ProjectInfo describes the project containing a file.
type ProjectInfo struct {
	ConfigFileName          string   `json:"configFileName"`
	FileNames               []string `json:"fileNames,omitempty"`
	LanguageServiceDisabled bool     `json:"languageServiceDisabled,omitempty"`
}

// CompileOnSaveAffectedFileList lists files to emit for one project.
type CompileOnSaveAffectedFileList struct {
	ProjectFileName    string   `json:"projectFileName"`
	FileNames          []string `json:"fileNames"`
	ProjectUsesOutFile bool     `json:"projectUsesOutFile"`
}

// Diagnostic is an error, warning or suggestion reported for a file.
type Diagnostic struct {
	Start    Location `json:"start"`
	End      Location `json:"end"`
	Text     string   `json:"text"`
	Category string   `json:"category"`
	Code     int      `json:"code,omitempty"`
	Source   string   `json:"source,omitempty"`
}

// Span returns the range the diagnostic covers.
func (d Diagnostic) Span() TextSpan {
	return TextSpan{Start: d.Start, End: d.End}
}

// ===== Event bodies =====

// DiagnosticEventBody is the body of syntaxDiag, semanticDiag and
// suggestionDiag events.
type DiagnosticEventBody struct {
	File        string       `json:"file"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// ConfigFileDiagnosticEventBody reports problems in a tsconfig file.
type ConfigFileDiagnosticEventBody struct {
	TriggerFile string       `json:"triggerFile"`
	ConfigFile  string       `json:"configFile"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// ProjectLoadingStartEventBody is sent when the server starts loading a project.
type ProjectLoadingStartEventBody struct {
	ProjectName string `json:"projectName"`
	Reason      string `json:"reason,omitempty"`
}

// ProjectLoadingFinishEventBody is sent when a project has loaded.
type ProjectLoadingFinishEventBody struct {
	ProjectName string `json:"projectName"`
}

// RequestCompletedEventBody is sent when a geterr request has finished.
type RequestCompletedEventBody struct {
	RequestSeq int64 `json:"request_seq"` //nolint:tagliatelle // tsserver uses snake_case here
}
