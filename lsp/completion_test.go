package lsp_test

import (
	"context"
	"testing"

	"github.com/go-git/go-billy/v5/util"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"

	"github.com/rlch/ori"
	"github.com/rlch/ori/lsp"
)

func labels(items []protocol.CompletionItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Label)
	}

	return out
}

func kinds(items []protocol.CompletionItem) map[string]protocol.CompletionItemKind {
	out := make(map[string]protocol.CompletionItemKind, len(items))
	for _, item := range items {
		out[item.Label] = item.Kind
	}

	return out
}

func TestComplete_Path(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		text   string
		marker string
		shift  int
		want   []string
	}{
		{
			name:   "folder in project scope",
			text:   "{ x: posts/ }",
			marker: "posts/",
			shift:  6,
			want:   []string{"drafts/", "hello.md"},
		},
		{
			name:   "partial name after the slash",
			text:   "{ x: posts/he }",
			marker: "posts/he",
			shift:  8,
			want:   []string{"drafts/", "hello.md"},
		},
		{
			name:   "nested folder",
			text:   "{ x: posts/drafts/ }",
			marker: "drafts/",
			shift:  7,
			want:   []string{},
		},
		{
			name:   "filesystem root",
			text:   "{ x: /ws/ }",
			marker: "/ws/",
			shift:  4,
			want:   []string{"index.html", "shared.txt", "site/"},
		},
		{
			name:   "path into a file",
			text:   "{ x: index.html/ }",
			marker: "index.html/",
			shift:  11,
			want:   []string{},
		},
		{
			name:   "protocol",
			text:   "{ x: https://example.com/ }",
			marker: "com/",
			shift:  4,
			want:   []string{},
		},
		{
			name:   "undefined folder",
			text:   "{ x: nope/ }",
			marker: "nope/",
			shift:  5,
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ws := newTestWorkspace(t)
			doc := lsp.NewDocument(siteDoc, 1, tt.text)

			items, err := lsp.Complete(context.Background(), ws, doc, at(t, tt.text, tt.marker, tt.shift))
			require.NoError(t, err)

			if diff := cmp.Diff(tt.want, labels(items)); diff != "" {
				t.Errorf("Complete() labels mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestComplete_PathKinds(t *testing.T) {
	t.Parallel()

	text := "{ x: posts/ }"
	items, err := lsp.Complete(context.Background(), newTestWorkspace(t), lsp.NewDocument(siteDoc, 1, text), at(t, text, "posts/", 6))
	require.NoError(t, err)

	got := kinds(items)
	assert.Equal(t, protocol.CompletionItemKindFolder, got["drafts/"])
	assert.Equal(t, protocol.CompletionItemKindFile, got["hello.md"])
}

func TestComplete_Scope(t *testing.T) {
	t.Parallel()

	text := "{\n  title: 'Hi'\n  (secret): 1\n  page: (post) => post\n}"

	ws := newTestWorkspace(t)
	ws.Config = &ori.Config{
		Exclude:  []string{"*.ori"},
		Builtins: []string{"tree:", "title"},
	}

	// The document is listed in its own folder, and excluded by the config.
	require.NoError(t, util.WriteFile(ws.Scope.Filesystem(), "/ws/site/site.ori", []byte(text), 0o644))

	doc := lsp.NewDocument(siteDoc, 1, text)

	items, err := lsp.Complete(context.Background(), ws, doc, at(t, text, "=> post", 7))
	require.NoError(t, err)

	want := []string{
		// Lambda parameters, then the enclosing object's visible keys.
		"post", "title", "page",
		// The document's folder, then its parent, the workspace root.
		"index.html", "posts/", "shared.txt", "site/",
		// Builtins, without duplicates.
		"tree:",
	}
	if diff := cmp.Diff(want, labels(items)); diff != "" {
		t.Errorf("Complete() labels mismatch (-want +got):\n%s", diff)
	}

	got := kinds(items)
	assert.Equal(t, protocol.CompletionItemKindVariable, got["post"])
	assert.Equal(t, protocol.CompletionItemKindProperty, got["title"])
	assert.Equal(t, protocol.CompletionItemKindFolder, got["posts/"])
	assert.Equal(t, protocol.CompletionItemKindFile, got["shared.txt"])
	assert.Equal(t, protocol.CompletionItemKindFunction, got["tree:"])

	// index.html exists in both folders; the nearer one is kept.
	for _, item := range items {
		if item.Label == "index.html" {
			assert.Equal(t, "/ws/site", item.Detail)
		}
	}
}

func TestComplete_OutsideDeclarations(t *testing.T) {
	t.Parallel()

	text := "{ a: 1 }\n"
	doc := lsp.NewDocument(siteDoc, 1, text)

	// The empty last line is outside every frame.
	items, err := lsp.Complete(context.Background(), newTestWorkspace(t), doc, protocol.Position{Line: 1})
	require.NoError(t, err)
	assert.NotContains(t, labels(items), "a")
	assert.Contains(t, labels(items), "index.html")
}

func TestComplete_UntitledDocument(t *testing.T) {
	t.Parallel()

	text := "{ a: 1 }"
	doc := lsp.NewDocument("untitled:Untitled-1", 1, text)

	items, err := lsp.Complete(context.Background(), newTestWorkspace(t), doc, at(t, text, "1", 0))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, labels(items))
}

func TestServer_Completion_LastValidCode(t *testing.T) {
	t.Parallel()

	server, _, _ := newTestServer(t)
	ctx := context.Background()

	openDocument(t, server, siteDoc, "{\n  title: 'Hi'\n  body: title\n}")

	// Break the document while typing; local names stay available.
	err := server.DidChange(ctx, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: siteDoc},
			Version:                2,
		},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{
			{Text: "{\n  title: 'Hi'\n  body: ti\n"},
		},
	})
	require.NoError(t, err)

	list, err := server.Completion(ctx, &protocol.CompletionParams{
		TextDocumentPositionParams: positionParams(siteDoc, 2, 10),
	})
	require.NoError(t, err)
	require.NotNil(t, list)
	assert.Contains(t, labels(list.Items), "title")
}

func TestServer_Completion_CacheInvalidation(t *testing.T) {
	t.Parallel()

	server, _, fsys := newTestServer(t)
	ctx := context.Background()

	openDocument(t, server, siteDoc, "{ x: posts/ }")

	complete := func() []string {
		t.Helper()

		list, err := server.Completion(ctx, &protocol.CompletionParams{
			TextDocumentPositionParams: positionParams(siteDoc, 0, 11),
		})
		require.NoError(t, err)
		require.NotNil(t, list)

		return labels(list.Items)
	}

	require.Equal(t, []string{"drafts/", "hello.md"}, complete())

	require.NoError(t, util.WriteFile(fsys, "/ws/site/posts/new.md", []byte("# New"), 0o644))

	// Served from the folder cache until the change is reported.
	require.NotContains(t, complete(), "new.md")

	err := server.DidChangeWatchedFiles(ctx, &protocol.DidChangeWatchedFilesParams{
		Changes: []*protocol.FileEvent{
			{URI: "file:///ws/site/posts/new.md", Type: protocol.FileChangeTypeCreated},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"drafts/", "hello.md", "new.md"}, complete())

	// Changed contents keep the cache.
	require.NoError(t, fsys.Remove("/ws/site/posts/new.md"))

	err = server.DidChangeWatchedFiles(ctx, &protocol.DidChangeWatchedFilesParams{
		Changes: []*protocol.FileEvent{
			{URI: "file:///ws/site/posts/hello.md", Type: protocol.FileChangeTypeChanged},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, complete(), "new.md")

	err = server.DidChangeWatchedFiles(ctx, &protocol.DidChangeWatchedFilesParams{
		Changes: []*protocol.FileEvent{
			{URI: "file:///ws/site/posts/new.md", Type: protocol.FileChangeTypeDeleted},
		},
	})
	require.NoError(t, err)
	assert.NotContains(t, complete(), "new.md")
}
