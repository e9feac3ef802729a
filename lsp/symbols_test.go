package lsp_test

import (
	"context"
	"testing"

	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
)

func TestServer_DocumentSymbol(t *testing.T) {
	t.Parallel()

	server, _, _ := newTestServer(t)
	text := "{\n  title: 'Hi'\n  (hidden): 1\n  nested: {\n    page: (p) => p\n  }\n  posts/\n}"

	openDocument(t, server, siteDoc, text)

	result, err := server.DocumentSymbol(context.Background(), &protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: siteDoc},
	})
	require.NoError(t, err)
	require.Len(t, result, 4)

	symbols := make([]protocol.DocumentSymbol, 0, len(result))
	for _, r := range result {
		sym, ok := r.(protocol.DocumentSymbol)
		require.True(t, ok)

		symbols = append(symbols, sym)
	}

	assert.Equal(t, "title", symbols[0].Name)
	assert.Equal(t, protocol.SymbolKindString, symbols[0].Kind)
	assert.Equal(t, lineRange(1, 2, 7), symbols[0].SelectionRange)

	assert.Equal(t, "hidden", symbols[1].Name)
	assert.Equal(t, "hidden", symbols[1].Detail)
	assert.Equal(t, protocol.SymbolKindNumber, symbols[1].Kind)
	assert.Equal(t, lineRange(2, 2, 10), symbols[1].SelectionRange)

	assert.Equal(t, "nested", symbols[2].Name)
	assert.Equal(t, protocol.SymbolKindObject, symbols[2].Kind)
	require.Len(t, symbols[2].Children, 1)
	assert.Equal(t, "page", symbols[2].Children[0].Name)
	assert.Equal(t, protocol.SymbolKindFunction, symbols[2].Children[0].Kind)

	assert.Equal(t, "posts/", symbols[3].Name)
	assert.Equal(t, protocol.SymbolKindNamespace, symbols[3].Kind)
}

func TestServer_FoldingRanges(t *testing.T) {
	t.Parallel()

	server, _, _ := newTestServer(t)
	text := "{\n  list: [\n    1,\n    2\n  ]\n  one: { a: 1 }\n  t: `line\nnext`\n}"

	openDocument(t, server, siteDoc, text)

	got, err := server.FoldingRanges(context.Background(), &protocol.FoldingRangeParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: siteDoc},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []protocol.FoldingRange{
		{StartLine: 0, EndLine: 8, Kind: protocol.RegionFoldingRange},
		{StartLine: 1, EndLine: 4, Kind: protocol.RegionFoldingRange},
		{StartLine: 6, EndLine: 7, Kind: protocol.RegionFoldingRange},
	}, got)
}

func TestServer_DocumentLink(t *testing.T) {
	t.Parallel()

	server, _, _ := newTestServer(t)
	text := "{\n  a: posts/hello.md\n  b: posts/\n  c: missing/x\n  d: index.html\n}"

	openDocument(t, server, siteDoc, text)

	got, err := server.DocumentLink(context.Background(), &protocol.DocumentLinkParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: siteDoc},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, lineRange(1, 5, 19), got[0].Range)
	assert.Equal(t, protocol.DocumentURI("file:///ws/site/posts/hello.md"), got[0].Target)
}

func TestServer_Symbols(t *testing.T) {
	t.Parallel()

	server, _, fsys := newTestServer(t)

	require.NoError(t, util.WriteFile(fsys, "/ws/site/blog.ori", []byte("{ postList: 1, about: 2 }"), 0o644))
	require.NoError(t, util.WriteFile(fsys, "/ws/other.ori", []byte("{ posts: { recentPost: 1 } }"), 0o644))
	require.NoError(t, util.WriteFile(fsys, "/ws/broken.ori", []byte("{ post: "), 0o644))

	// Open documents are searched as edited.
	openDocument(t, server, "file:///ws/site/blog.ori", "{ draftPost: 1 }")

	got, err := server.Symbols(context.Background(), &protocol.WorkspaceSymbolParams{Query: "post"})
	require.NoError(t, err)

	names := make([]string, 0, len(got))
	for _, sym := range got {
		names = append(names, sym.Name)
	}

	assert.ElementsMatch(t, []string{"posts", "recentPost", "draftPost"}, names)

	for _, sym := range got {
		if sym.Name == "recentPost" {
			assert.Equal(t, "posts", sym.ContainerName)
			assert.Equal(t, protocol.DocumentURI("file:///ws/other.ori"), sym.Location.URI)
		}
	}
}

func TestServer_Formatting(t *testing.T) {
	t.Parallel()

	server, _, _ := newTestServer(t)
	params := &protocol.DocumentFormattingParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: siteDoc},
	}

	openDocument(t, server, siteDoc, "{\n    a:1\n  b: 'é'}")

	edits, err := server.Formatting(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, []protocol.TextEdit{{
		Range:   protocol.Range{End: protocol.Position{Line: 2, Character: 9}},
		NewText: "{\n  a: 1\n  b: 'é'\n}\n",
	}}, edits)

	openDocument(t, server, siteDoc, "{ a: 1 }\n")

	edits, err = server.Formatting(context.Background(), params)
	require.NoError(t, err)
	assert.Empty(t, edits)

	openDocument(t, server, siteDoc, "{ a: ")

	edits, err = server.Formatting(context.Background(), params)
	require.NoError(t, err)
	assert.Nil(t, edits)
}
