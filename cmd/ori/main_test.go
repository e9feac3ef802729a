package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"

	"github.com/rlch/ori"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
}

func TestCollectFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"site.ori":                  "{}",
		"notes.txt":                 "",
		"src/page.ori":              "{}",
		"node_modules/pkg/lib.ori":  "{}",
		"node_modules/pkg/more.ori": "{}",
	})

	cfg := &ori.Config{Exclude: []string{"node_modules"}}

	files, err := collectFiles([]string{root}, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "site.ori"),
		filepath.Join(root, "src", "page.ori"),
	}, files)

	// Explicit files are taken as given.
	files, err = collectFiles([]string{filepath.Join(root, "notes.txt")}, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "notes.txt")}, files)

	_, err = collectFiles([]string{filepath.Join(root, "missing")}, cfg)
	require.Error(t, err)
}

func TestCheckFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"good.ori":  "{ a: 1 }",
		"bad.ori":   "{ a: ",
		"empty.ori": "",
	})

	files := []string{
		filepath.Join(root, "good.ori"),
		filepath.Join(root, "bad.ori"),
		filepath.Join(root, "empty.ori"),
	}

	results, err := checkFiles(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, files[0], results[0].path)
	assert.Nil(t, results[0].err)
	assert.Equal(t, files[1], results[1].path)
	require.NotNil(t, results[1].err)
	assert.Equal(t, 1, results[1].err.Span.Start.Line)
	assert.Nil(t, results[2].err)

	_, err = checkFiles(context.Background(), []string{filepath.Join(root, "missing.ori")})
	require.Error(t, err)
}

func TestReport(t *testing.T) {
	t.Parallel()

	results := []checkResult{
		{path: "good.ori"},
		{path: "bad.ori", err: &ori.SyntaxError{
			Span:    ori.Span{Start: ori.Position{Line: 2, Column: 5}},
			Message: `unexpected token "}"`,
		}},
	}

	var out bytes.Buffer

	failed := report(&out, plainStyles(), results, false)
	assert.Equal(t, 1, failed)
	assert.Equal(t, "ok good.ori\nFAIL bad.ori:2:5: unexpected token \"}\"\n2 files, 1 with errors\n", out.String())

	out.Reset()

	failed = report(&out, plainStyles(), results[:1], true)
	assert.Zero(t, failed)
	assert.Empty(t, out.String())
}

func TestPrintQueryResults(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	printCompletions(&out, []protocol.CompletionItem{
		{Label: "post", Detail: "parameter"},
		{Label: "posts/", Detail: "/ws/site"},
		{Label: "tree:"},
	})
	assert.Equal(t, "post\tparameter\nposts/\t/ws/site\ntree:\n", out.String())

	out.Reset()

	printLocation(&out, &protocol.Location{
		URI: "file:///ws/site/posts/hello.md",
		Range: protocol.Range{
			Start: protocol.Position{Line: 2, Character: 4},
			End:   protocol.Position{Line: 2, Character: 9},
		},
	})
	assert.Equal(t, "/ws/site/posts/hello.md:3:5\n", out.String())
}

func TestFormatFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"messy.ori": "{a:1}",
		"tidy.ori":  "{ a: 1 }\n",
	})

	messy := filepath.Join(root, "messy.ori")
	tidy := filepath.Join(root, "tidy.ori")

	var out bytes.Buffer

	changed, err := formatFile(messy, fmtCheck, &out)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Empty(t, out.String())

	changed, err = formatFile(messy, fmtPrint, &out)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "{ a: 1 }\n", out.String())

	out.Reset()

	changed, err = formatFile(messy, fmtDiff, &out)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Contains(t, out.String(), "+++ "+messy+" (formatted)")
	assert.Contains(t, out.String(), "-{a:1}")
	assert.Contains(t, out.String(), "+{ a: 1 }")

	out.Reset()

	changed, err = formatFile(messy, fmtWrite, &out)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, messy+"\n", out.String())

	data, err := os.ReadFile(messy)
	require.NoError(t, err)
	assert.Equal(t, "{ a: 1 }\n", string(data))

	changed, err = formatFile(tidy, fmtCheck, &out)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestFormatStream(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	require.NoError(t, formatStream(strings.NewReader("[1,2]"), &out))
	assert.Equal(t, "[1, 2]\n", out.String())

	require.Error(t, formatStream(strings.NewReader("[1,"), &out))
}
