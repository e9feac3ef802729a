package lsp_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/ori/lsp"
	"github.com/rlch/ori/scope"
)

func newTestWorkspace(t *testing.T) lsp.Workspace {
	t.Helper()

	return lsp.Workspace{
		Scope: scope.New(newTestFS(t, testFiles), "/home/me", zap.NewNop()),
		Roots: []string{"/ws"},
	}
}

// at returns the editor position of the first occurrence of marker in text,
// moved right by shift characters.
func at(t *testing.T, text, marker string, shift int) protocol.Position {
	t.Helper()

	offset := strings.Index(text, marker)
	require.GreaterOrEqual(t, offset, 0, "marker %q not found", marker)

	doc := lsp.NewDocument("file:///scratch.ori", 1, text)

	return doc.PositionAt(offset + shift)
}

func zeroRange(line, char uint32) protocol.Range {
	pos := protocol.Position{Line: line, Character: char}
	return protocol.Range{Start: pos, End: pos}
}

func TestDefine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		text   string
		marker string
		shift  int
		want   *protocol.Location
	}{
		{
			name:   "lambda parameter used in a template substitution",
			text:   "{ greet: (name) => `Hello, ${ name }` }",
			marker: "${ na",
			shift:  4,
			want:   &protocol.Location{URI: siteDoc, Range: zeroRange(0, 10)},
		},
		{
			name:   "object entry named like the substitution",
			text:   "{ name: (greeting) => `Hello, ${ name }` }",
			marker: "${ na",
			shift:  4,
			want: &protocol.Location{URI: siteDoc, Range: protocol.Range{
				Start: protocol.Position{Line: 0, Character: 2},
				End:   protocol.Position{Line: 0, Character: 40},
			}},
		},
		{
			name:   "innermost binding wins",
			text:   "{\n  x: 1\n  f: (x) => x\n}",
			marker: "=> x",
			shift:  3,
			want:   &protocol.Location{URI: siteDoc, Range: zeroRange(2, 6)},
		},
		{
			name:   "dotted key falls back to the bound name",
			text:   "{ data: { a: 1 }, x: data.a }",
			marker: "data.a",
			shift:  2,
			want: &protocol.Location{URI: siteDoc, Range: protocol.Range{
				Start: protocol.Position{Line: 0, Character: 2},
				End:   protocol.Position{Line: 0, Character: 16},
			}},
		},
		{
			name:   "dotted parameter",
			text:   "(post) => post.title",
			marker: "post.title",
			shift:  1,
			want:   &protocol.Location{URI: siteDoc, Range: zeroRange(0, 1)},
		},
		{
			name:   "shorthand folder entry does not resolve to itself",
			text:   "{\n  posts: posts/\n}",
			marker: "posts/",
			shift:  1,
			want:   nil,
		},
		{
			name:   "bare shorthand entry resolves to the file",
			text:   "{\n  index.html\n}",
			marker: "index",
			shift:  2,
			want:   &protocol.Location{URI: "file:///ws/site/index.html", Range: zeroRange(0, 0)},
		},
		{
			name:   "value naming an outside file",
			text:   "{ home: index.html }",
			marker: "index",
			shift:  0,
			want:   &protocol.Location{URI: "file:///ws/site/index.html", Range: zeroRange(0, 0)},
		},
		{
			name:   "file in an ancestor folder",
			text:   "{ s: shared.txt }",
			marker: "shared",
			shift:  3,
			want:   &protocol.Location{URI: "file:///ws/shared.txt", Range: zeroRange(0, 0)},
		},
		{
			name:   "multi-segment path",
			text:   "{ p: posts/hello.md }",
			marker: "hello",
			shift:  0,
			want:   &protocol.Location{URI: "file:///ws/site/posts/hello.md", Range: zeroRange(0, 0)},
		},
		{
			name:   "multi-segment path skips local bindings",
			text:   "{ posts: 1, p: posts/hello.md }",
			marker: "hello",
			shift:  0,
			want:   &protocol.Location{URI: "file:///ws/site/posts/hello.md", Range: zeroRange(0, 0)},
		},
		{
			name:   "folder is not navigable",
			text:   "{ p: posts/drafts/ }",
			marker: "drafts",
			shift:  0,
			want:   nil,
		},
		{
			name:   "path through a file",
			text:   "{ p: index.html/x }",
			marker: "index",
			shift:  0,
			want:   nil,
		},
		{
			name:   "protocol",
			text:   "{ p: https://example.com/x }",
			marker: "example",
			shift:  0,
			want:   nil,
		},
		{
			name:   "resolution stops at the workspace root",
			text:   "{ s: secret.txt }",
			marker: "secret",
			shift:  0,
			want:   nil,
		},
		{
			name:   "not on a path",
			text:   "{ a: 1 }",
			marker: " a",
			shift:  0,
			want:   nil,
		},
		{
			name:   "syntax errors still resolve outside files",
			text:   "{ home: index.html, broken: ",
			marker: "index",
			shift:  0,
			want:   &protocol.Location{URI: "file:///ws/site/index.html", Range: zeroRange(0, 0)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ws := newTestWorkspace(t)
			doc := lsp.NewDocument(siteDoc, 1, tt.text)

			got, err := lsp.Define(context.Background(), ws, doc, at(t, tt.text, tt.marker, tt.shift))
			require.NoError(t, err)

			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Define() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestServer_Definition(t *testing.T) {
	t.Parallel()

	server, _, _ := newTestServer(t)
	text := "{ greet: (name) => `Hello, ${ name }`, page: posts/hello.md }"

	openDocument(t, server, siteDoc, text)

	locations, err := server.Definition(context.Background(), &protocol.DefinitionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: siteDoc},
			Position:     at(t, text, "${ na", 4),
		},
	})
	require.NoError(t, err)
	require.Len(t, locations, 1)
	require.Equal(t, zeroRange(0, 10), locations[0].Range)

	locations, err = server.Definition(context.Background(), &protocol.DefinitionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: siteDoc},
			Position:     at(t, text, "hello.md", 0),
		},
	})
	require.NoError(t, err)
	require.Len(t, locations, 1)
	require.Equal(t, protocol.DocumentURI("file:///ws/site/posts/hello.md"), locations[0].URI)

	locations, err = server.Definition(context.Background(), &protocol.DefinitionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: "file:///ws/unknown.ori"},
		},
	})
	require.NoError(t, err)
	require.Empty(t, locations)
}
