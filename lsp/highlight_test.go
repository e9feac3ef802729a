package lsp_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"

	"github.com/rlch/ori/lsp"
)

func lineRange(line, start, end uint32) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: line, Character: start},
		End:   protocol.Position{Line: line, Character: end},
	}
}

func TestServer_DocumentHighlight(t *testing.T) {
	t.Parallel()

	server, _, _ := newTestServer(t)
	text := "{\n  post: 1\n  f: (post) => post.title\n  g: post\n}"

	openDocument(t, server, siteDoc, text)

	tests := []struct {
		name string
		pos  protocol.Position
		want []protocol.DocumentHighlight
	}{
		{
			name: "parameter from its use",
			pos:  protocol.Position{Line: 2, Character: 16},
			want: []protocol.DocumentHighlight{
				{Range: lineRange(2, 6, 10), Kind: protocol.DocumentHighlightKindWrite},
				{Range: lineRange(2, 15, 19), Kind: protocol.DocumentHighlightKindRead},
			},
		},
		{
			name: "entry from its key",
			pos:  protocol.Position{Line: 1, Character: 3},
			want: []protocol.DocumentHighlight{
				{Range: lineRange(1, 2, 6), Kind: protocol.DocumentHighlightKindWrite},
				{Range: lineRange(3, 5, 9), Kind: protocol.DocumentHighlightKindRead},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := server.DocumentHighlight(context.Background(), &protocol.DocumentHighlightParams{
				TextDocumentPositionParams: positionParams(siteDoc, tt.pos.Line, tt.pos.Character),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestServer_References(t *testing.T) {
	t.Parallel()

	server, _, _ := newTestServer(t)
	text := "{\n  post: 1\n  g: post\n  h: [post, post]\n}"

	openDocument(t, server, siteDoc, text)

	params := &protocol.ReferenceParams{
		TextDocumentPositionParams: positionParams(siteDoc, 2, 6),
		Context:                    protocol.ReferenceContext{IncludeDeclaration: true},
	}

	got, err := server.References(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, []protocol.Location{
		{URI: siteDoc, Range: lineRange(1, 2, 6)},
		{URI: siteDoc, Range: lineRange(2, 5, 9)},
		{URI: siteDoc, Range: lineRange(3, 6, 10)},
		{URI: siteDoc, Range: lineRange(3, 12, 16)},
	}, got)

	params.Context.IncludeDeclaration = false

	got, err = server.References(context.Background(), params)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestServer_References_NotLocal(t *testing.T) {
	t.Parallel()

	server, _, _ := newTestServer(t)

	openDocument(t, server, siteDoc, "{ p: posts/hello.md }")

	got, err := server.References(context.Background(), &protocol.ReferenceParams{
		TextDocumentPositionParams: positionParams(siteDoc, 0, 8),
		Context:                    protocol.ReferenceContext{IncludeDeclaration: true},
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestServer_Rename(t *testing.T) {
	t.Parallel()

	server, _, _ := newTestServer(t)
	text := "{\n  (post): 1\n  g: post.title\n}"

	openDocument(t, server, siteDoc, text)

	rng, err := server.PrepareRename(context.Background(), &protocol.PrepareRenameParams{
		TextDocumentPositionParams: positionParams(siteDoc, 2, 7),
	})
	require.NoError(t, err)
	require.NotNil(t, rng)
	assert.Equal(t, lineRange(2, 5, 9), *rng)

	edit, err := server.Rename(context.Background(), &protocol.RenameParams{
		TextDocumentPositionParams: positionParams(siteDoc, 2, 7),
		NewName:                    "article",
	})
	require.NoError(t, err)
	require.NotNil(t, edit)
	assert.Equal(t, map[protocol.DocumentURI][]protocol.TextEdit{
		siteDoc: {
			{Range: lineRange(1, 3, 7), NewText: "article"},
			{Range: lineRange(2, 5, 9), NewText: "article"},
		},
	}, edit.Changes)
}

func TestServer_Rename_Invalid(t *testing.T) {
	t.Parallel()

	server, _, _ := newTestServer(t)

	openDocument(t, server, siteDoc, "{ post: 1, g: post }")

	for _, name := range []string{"", "a/b", "a.b", "a b", "{x}", "https://x"} {
		_, err := server.Rename(context.Background(), &protocol.RenameParams{
			TextDocumentPositionParams: positionParams(siteDoc, 0, 15),
			NewName:                    name,
		})
		require.ErrorIs(t, err, lsp.ErrInvalidName, name)
	}
}

func TestServer_Declaration(t *testing.T) {
	t.Parallel()

	server, _, _ := newTestServer(t)

	openDocument(t, server, siteDoc, "{ post: 1, g: post }")

	got, err := server.Declaration(context.Background(), &protocol.DeclarationParams{
		TextDocumentPositionParams: positionParams(siteDoc, 0, 15),
	})
	require.NoError(t, err)
	assert.Equal(t, []protocol.Location{{URI: siteDoc, Range: lineRange(0, 2, 9)}}, got)
}
