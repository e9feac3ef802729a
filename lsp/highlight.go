package lsp

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/ori"
	"github.com/rlch/ori/analysis"
)

// DocumentHighlight handles textDocument/documentHighlight requests.
// Highlights the local binding under the cursor and every use of it.
func (s *Server) DocumentHighlight(_ context.Context, params *protocol.DocumentHighlightParams) ([]protocol.DocumentHighlight, error) {
	s.logger.Debug("DocumentHighlight",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Uint32("line", params.Position.Line),
		zap.Uint32("character", params.Position.Character))

	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	occ := findOccurrences(doc, params.Position)
	if occ == nil {
		return nil, nil
	}

	highlights := []protocol.DocumentHighlight{{
		Range: occ.declaration,
		Kind:  protocol.DocumentHighlightKindWrite,
	}}

	for _, rng := range occ.uses {
		highlights = append(highlights, protocol.DocumentHighlight{
			Range: rng,
			Kind:  protocol.DocumentHighlightKindRead,
		})
	}

	return highlights, nil
}

// References handles textDocument/references requests.
// Local bindings are only visible in their own document, so every reference
// is in the same file.
func (s *Server) References(_ context.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	s.logger.Debug("References",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Uint32("line", params.Position.Line),
		zap.Uint32("character", params.Position.Character),
		zap.Bool("includeDeclaration", params.Context.IncludeDeclaration))

	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	occ := findOccurrences(doc, params.Position)
	if occ == nil {
		return nil, nil
	}

	var locations []protocol.Location

	if params.Context.IncludeDeclaration {
		locations = append(locations, protocol.Location{URI: doc.URI, Range: occ.declaration})
	}

	for _, rng := range occ.uses {
		locations = append(locations, protocol.Location{URI: doc.URI, Range: rng})
	}

	return locations, nil
}

// occurrences are the ranges of a local binding's name.
type occurrences struct {
	declaration protocol.Range
	uses        []protocol.Range
}

// findOccurrences finds the binding of the name under pos, from either the
// declaration or one of its uses, and every reference that resolves to it.
func findOccurrences(doc *Document, pos protocol.Position) *occurrences {
	if doc.Code == nil {
		return nil
	}

	target, ok := analysis.PathAtOffset(doc.Content, doc.OffsetAt(pos), analysis.PathOptions{ExpandRight: true})

	// The cursor may sit on a declaration key, directly followed by its colon.
	target = strings.TrimSuffix(target, ":")
	if !ok || strings.ContainsAny(target, ":/") {
		return nil
	}

	decl, ok := findLocal(doc.Code, target, analysis.ToSourcePosition(pos))
	if !ok {
		return nil
	}

	name := bindingName(decl)
	occ := &occurrences{declaration: nameRange(decl.span.Start, decl.nameOffset(), name)}

	ori.Inspect(doc.Code, func(n ori.Node) bool {
		ref, ok := n.(*ori.Reference)
		if !ok || strings.Contains(ref.Path, "/") || headKey(ref.Path) != name {
			return true
		}

		if use, ok := findLocal(doc.Code, ref.Path, ref.Span().Start); ok && use.span == decl.span {
			occ.uses = append(occ.uses, nameRange(ref.Span().Start, 0, name))
		}

		return true
	})

	return occ
}

func bindingName(decl declaration) string {
	if decl.entry != nil {
		return decl.entry.Name()
	}

	return decl.name
}

// nameOffset is the number of characters between the start of the
// declaration and its name.
func (d declaration) nameOffset() int {
	if d.entry != nil && d.entry.Hidden {
		return 1
	}

	return 0
}

// headKey returns the part of a key before its first dot.
func headKey(key string) string {
	if i := strings.IndexByte(key, '.'); i > 0 {
		return key[:i]
	}

	return key
}

func nameRange(start ori.Position, offset int, name string) protocol.Range {
	start.Column += offset
	end := start
	end.Column += utf8.RuneCountInString(name)

	return analysis.ToEditorRange(ori.Span{Start: start, End: end})
}
