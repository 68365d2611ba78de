//go:build integration

package integration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/tsserver-go"
)

const tsconfig = `{
  "compilerOptions": {
    "target": "es2020",
    "module": "commonjs",
    "strict": true
  },
  "include": ["*.ts"]
}
`

// answerSource declares a documented constant and a function using it.
const answerSource = `/** The answer. */
export const answer: number = 42;

export function double(n: number): number {
  return n * 2;
}

double(answer);
`

// brokenSource references an undefined name and misses an import.
const brokenSource = `const x: string = missingName;
readFileSync("a");
`

// newProject writes a small TypeScript project and returns its root.
func newProject(t *testing.T) string {
	t.Helper()

	root := t.TempDir()

	for name, content := range map[string]string{
		"tsconfig.json": tsconfig,
		"answer.ts":     answerSource,
		"broken.ts":     brokenSource,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0o644))
	}

	return root
}

// skipIfServerNotInstalled skips the test if the error indicates tsserver
// (or node for a .js server) is not available.
func skipIfServerNotInstalled(t *testing.T, err error) {
	t.Helper()

	if _, ok := errors.AsType[*tsserver.ServerNotFoundError](err); ok {
		t.Skip("tsserver not installed")
	}

	if _, ok := errors.AsType[*tsserver.ConnectionError](err); ok {
		t.Skipf("tsserver could not be started: %v", err)
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	t.Cleanup(cancel)

	return ctx
}

// startClient starts a client for root and opens every named file.
func startClient(t *testing.T, ctx context.Context, root string, files ...string) tsserver.Client {
	t.Helper()

	client := tsserver.NewClient(tsserver.WithProjectRoot(root))
	t.Cleanup(func() { _ = client.Close() })

	if err := client.Start(ctx); err != nil {
		skipIfServerNotInstalled(t, err)
		t.Fatalf("Start failed: %v", err)
	}

	for _, file := range files {
		require.NoError(t, client.Open(ctx, &tsserver.OpenRequestArgs{
			FileRequestArgs: tsserver.FileRequestArgs{File: filepath.Join(root, file)},
		}))
	}

	return client
}
