package client

import (
	"context"

	"github.com/wagiedev/tsserver-go/internal/message"
)

// call executes command and decodes the response body into T.
func call[T any](ctx context.Context, c *Client, command string, args any) (T, error) {
	var body T

	resp, err := c.Execute(ctx, command, args)
	if err != nil {
		return body, err
	}

	if resp == nil {
		return body, nil
	}

	err = resp.DecodeBody(&body)

	return body, err
}

// notify executes a command that gets no response, or whose body is unused.
func (c *Client) notify(ctx context.Context, command string, args any) error {
	_, err := c.Execute(ctx, command, args)

	return err
}

// Open tells the server a file is open in the editor.
func (c *Client) Open(ctx context.Context, args *message.OpenRequestArgs) error {
	return c.notify(ctx, message.CommandOpen, args)
}

// CloseFile tells the server a file is no longer open.
func (c *Client) CloseFile(ctx context.Context, file string) error {
	return c.notify(ctx, message.CommandClose, &message.FileRequestArgs{File: file})
}

// Change applies an edit to an open file.
func (c *Client) Change(ctx context.Context, args *message.ChangeRequestArgs) error {
	return c.notify(ctx, message.CommandChange, args)
}

// SaveTo asks the server to write its view of a file to a temporary file.
func (c *Client) SaveTo(ctx context.Context, args *message.SaveToRequestArgs) error {
	return c.notify(ctx, message.CommandSaveTo, args)
}

// Configure sets host information and formatting options.
func (c *Client) Configure(ctx context.Context, args *message.ConfigureRequestArgs) error {
	return c.notify(ctx, message.CommandConfigure, args)
}

// Reload replaces the server's copy of a file with the content of a temporary file.
func (c *Client) Reload(ctx context.Context, args *message.ReloadRequestArgs) error {
	return c.notify(ctx, message.CommandReload, args)
}

// Format returns the edits that format a range.
func (c *Client) Format(ctx context.Context, args *message.FormatRequestArgs) ([]message.CodeEdit, error) {
	return call[[]message.CodeEdit](ctx, c, message.CommandFormat, args)
}

// Completions returns completion candidates at a position.
func (c *Client) Completions(
	ctx context.Context,
	args *message.CompletionsRequestArgs,
) ([]message.CompletionEntry, error) {
	return call[[]message.CompletionEntry](ctx, c, message.CommandCompletions, args)
}

// CompletionDetails resolves completion entries by name.
func (c *Client) CompletionDetails(
	ctx context.Context,
	args *message.CompletionDetailsRequestArgs,
) ([]message.CompletionEntryDetails, error) {
	return call[[]message.CompletionEntryDetails](ctx, c, message.CommandCompletionDetails, args)
}

// Definition returns where the symbol at a position is defined.
func (c *Client) Definition(ctx context.Context, args message.FileLocationRequestArgs) ([]message.FileSpan, error) {
	return call[[]message.FileSpan](ctx, c, message.CommandDefinition, args)
}

// References returns every reference to the symbol at a position.
func (c *Client) References(
	ctx context.Context,
	args message.FileLocationRequestArgs,
) (*message.ReferencesBody, error) {
	return call[*message.ReferencesBody](ctx, c, message.CommandReferences, args)
}

// Rename returns the locations to edit to rename the symbol at a position.
func (c *Client) Rename(ctx context.Context, args *message.RenameRequestArgs) (*message.RenameBody, error) {
	return call[*message.RenameBody](ctx, c, message.CommandRename, args)
}

// Occurrences returns the occurrences of the symbol at a position in its file.
func (c *Client) Occurrences(
	ctx context.Context,
	args message.FileLocationRequestArgs,
) ([]message.OccurrencesItem, error) {
	return call[[]message.OccurrencesItem](ctx, c, message.CommandOccurrences, args)
}

// QuickInfo describes the symbol at a position.
func (c *Client) QuickInfo(ctx context.Context, args message.FileLocationRequestArgs) (*message.QuickInfoBody, error) {
	return call[*message.QuickInfoBody](ctx, c, message.CommandQuickInfo, args)
}

// ProjectInfo describes the project containing a file.
func (c *Client) ProjectInfo(ctx context.Context, args *message.ProjectInfoRequestArgs) (*message.ProjectInfo, error) {
	return call[*message.ProjectInfo](ctx, c, message.CommandProjectInfo, args)
}

// CompileOnSaveAffectedFileList lists, per project, the files affected by
// saving a file.
func (c *Client) CompileOnSaveAffectedFileList(
	ctx context.Context,
	args *message.FileRequestArgs,
) ([]message.CompileOnSaveAffectedFileList, error) {
	return call[[]message.CompileOnSaveAffectedFileList](ctx, c, message.CommandCompileOnSaveAffectedFileList, args)
}

// CompileOnSaveEmitFile emits the output of a file and reports whether
// anything was written.
func (c *Client) CompileOnSaveEmitFile(
	ctx context.Context,
	args *message.CompileOnSaveEmitFileRequestArgs,
) (bool, error) {
	return call[bool](ctx, c, message.CommandCompileOnSaveEmitFile, args)
}

// GetErr schedules diagnostics for files. Results arrive as events.
func (c *Client) GetErr(ctx context.Context, args *message.GetErrRequestArgs) error {
	return c.notify(ctx, message.CommandGetErr, args)
}

// GetErrForProject schedules diagnostics for a whole project. Results
// arrive as events.
func (c *Client) GetErrForProject(ctx context.Context, args *message.GetErrForProjectRequestArgs) error {
	return c.notify(ctx, message.CommandGetErrForProject, args)
}

// GetSupportedCodeFixes returns the error codes the server can fix, as
// decimal strings.
func (c *Client) GetSupportedCodeFixes(ctx context.Context) ([]string, error) {
	return call[[]string](ctx, c, message.CommandGetSupportedCodeFixes, nil)
}

// GetCodeFixes returns the fixes for error codes within a range.
func (c *Client) GetCodeFixes(ctx context.Context, args *message.CodeFixRequestArgs) ([]message.CodeAction, error) {
	return call[[]message.CodeAction](ctx, c, message.CommandGetCodeFixes, args)
}
