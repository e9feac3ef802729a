package lsp

import (
	"context"
	"fmt"
	"strings"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/ori/analysis"
)

// Hover handles textDocument/hover requests.
// It describes the path under the cursor: a local binding, or the file or
// folder it resolves to in the project scope.
func (s *Server) Hover(ctx context.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	s.logger.Debug("Hover",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Uint32("line", params.Position.Line),
		zap.Uint32("character", params.Position.Character))

	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok {
		return nil, nil //nolint:nilnil
	}

	content, err := s.hoverContent(ctx, doc, params.Position)
	if err != nil {
		s.logger.Error("Hover failed", zap.String("uri", string(doc.URI)), zap.Error(err))
		return nil, nil //nolint:nilnil
	}

	if content == "" {
		return nil, nil //nolint:nilnil
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.Markdown,
			Value: content,
		},
	}, nil
}

func (s *Server) hoverContent(ctx context.Context, doc *Document, pos protocol.Position) (string, error) {
	target, ok := analysis.PathAtOffset(doc.Content, doc.OffsetAt(pos), analysis.PathOptions{ExpandRight: true})
	if !ok || strings.Contains(target, ":") {
		return "", nil
	}

	keys := analysis.SplitPath(target)

	if len(keys) == 1 && doc.Code != nil {
		if decl, ok := findLocal(doc.Code, keys[0], analysis.ToSourcePosition(pos)); ok {
			line := decl.span.Start.Line
			if decl.param {
				return fmt.Sprintf("**%s**\n\nparameter, line %d", keys[0], line), nil
			}

			return fmt.Sprintf("**%s**\n\nproperty, line %d\n\n```ori\n%s\n```", keys[0], line, decl.entry.Source), nil
		}
	}

	result, err := resolveExternal(ctx, s.workspace(), doc, keys)
	if err != nil || result == nil {
		return "", err
	}

	kind := "file"
	if result.Folder() {
		kind = "folder"
	}

	return fmt.Sprintf("**%s**\n\n%s `%s`", target, kind, result.Path), nil
}
