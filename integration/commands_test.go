//go:build integration

package integration

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/tsserver-go"
)

func TestQuickInfo(t *testing.T) {
	ctx := testContext(t)
	root := newProject(t)
	client := startClient(t, ctx, root, "answer.ts")

	info, err := client.QuickInfo(ctx, tsserver.NewFileLocation(filepath.Join(root, "answer.ts"), 2, 14))
	require.NoError(t, err)

	assert.Equal(t, "const", info.Kind)
	assert.Contains(t, info.DisplayString, "answer: number")
	assert.Contains(t, info.Documentation, "The answer.")
}

func TestDefinitionAndReferences(t *testing.T) {
	ctx := testContext(t)
	root := newProject(t)
	file := filepath.Join(root, "answer.ts")
	client := startClient(t, ctx, root, "answer.ts")

	// "double" in the call on line 8.
	defs, err := client.Definition(ctx, tsserver.NewFileLocation(file, 8, 1))
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, 4, defs[0].Start.Line)

	refs, err := client.References(ctx, tsserver.NewFileLocation(file, 8, 1))
	require.NoError(t, err)
	assert.Equal(t, "double", refs.SymbolName)
	assert.Len(t, refs.Refs, 2)
}

func TestRename(t *testing.T) {
	ctx := testContext(t)
	root := newProject(t)
	file := filepath.Join(root, "answer.ts")
	client := startClient(t, ctx, root, "answer.ts")

	body, err := client.Rename(ctx, &tsserver.RenameRequestArgs{
		FileLocationRequestArgs: tsserver.NewFileLocation(file, 2, 14),
	})
	require.NoError(t, err)

	assert.True(t, body.Info.CanRename)
	require.Len(t, body.Locs, 1)
	assert.Len(t, body.Locs[0].Locs, 2)
}

func TestCompletions(t *testing.T) {
	ctx := testContext(t)
	root := newProject(t)
	file := filepath.Join(root, "answer.ts")
	client := startClient(t, ctx, root, "answer.ts")

	entries, err := client.Completions(ctx, &tsserver.CompletionsRequestArgs{
		FileLocationRequestArgs: tsserver.NewFileLocation(file, 8, 1),
		Prefix:                  "dou",
	})
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}

	assert.Contains(t, names, "double")
}

func TestProjectInfo(t *testing.T) {
	ctx := testContext(t)
	root := newProject(t)
	client := startClient(t, ctx, root, "answer.ts")

	info, err := client.ProjectInfo(ctx, &tsserver.ProjectInfoRequestArgs{
		FileRequestArgs:  tsserver.FileRequestArgs{File: filepath.Join(root, "answer.ts")},
		NeedFileNameList: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "tsconfig.json", filepath.Base(info.ConfigFileName))
	assert.NotEmpty(t, info.FileNames)
}

func TestDiagnosticEvents(t *testing.T) {
	ctx := testContext(t)
	root := newProject(t)
	file := filepath.Join(root, "broken.ts")
	client := startClient(t, ctx, root, "broken.ts")

	semantic := make(chan tsserver.DiagnosticEventBody, 1)
	completed := make(chan struct{})

	defer tsserver.On(client, tsserver.SemanticDiag, func(body tsserver.DiagnosticEventBody) {
		select {
		case semantic <- body:
		default:
		}
	})()

	defer tsserver.On(client, tsserver.RequestCompleted, func(tsserver.RequestCompletedEventBody) {
		close(completed)
	})()

	require.NoError(t, client.GetErr(ctx, &tsserver.GetErrRequestArgs{Files: []string{file}}))

	select {
	case <-completed:
	case <-ctx.Done():
		t.Fatal("diagnostics did not complete")
	}

	body := <-semantic

	codes := make([]int, 0, len(body.Diagnostics))
	for _, d := range body.Diagnostics {
		codes = append(codes, d.Code)
	}

	assert.Contains(t, codes, 2304, "Cannot find name")
}

func TestCommandError(t *testing.T) {
	ctx := testContext(t)
	root := newProject(t)
	client := startClient(t, ctx, root)

	// No file is open, so the server has no project to answer from.
	_, err := client.QuickInfo(ctx, tsserver.NewFileLocation(filepath.Join(root, "nowhere.ts"), 1, 1))
	require.Error(t, err)

	var cmdErr *tsserver.CommandError
	require.True(t, errors.As(err, &cmdErr), "expected CommandError, got %T: %v", err, err)
	assert.Equal(t, "quickinfo", cmdErr.Command)
	assert.NotEmpty(t, cmdErr.Message)
}

func TestSupportedCodeFixes(t *testing.T) {
	ctx := testContext(t)
	root := newProject(t)
	file := filepath.Join(root, "broken.ts")
	client := startClient(t, ctx, root, "broken.ts")

	codes, err := client.GetSupportedCodeFixes(ctx)
	require.NoError(t, err)
	assert.Contains(t, codes, "2304")

	fixes, err := client.GetCodeFixes(ctx, &tsserver.CodeFixRequestArgs{
		FileRequestArgs: tsserver.FileRequestArgs{File: file},
		StartLine:       1,
		StartOffset:     19,
		EndLine:         1,
		EndOffset:       30,
		ErrorCodes:      []int{2304},
	})
	require.NoError(t, err)

	for _, fix := range fixes {
		assert.NotEmpty(t, fix.Description)
	}
}
