package lsp

import (
	"context"
	"strings"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/ori"
	"github.com/rlch/ori/analysis"
)

// DocumentLink handles textDocument/documentLink requests.
// Returns links for slash paths that resolve to files in the project scope.
func (s *Server) DocumentLink(ctx context.Context, params *protocol.DocumentLinkParams) ([]protocol.DocumentLink, error) {
	s.logger.Debug("DocumentLink",
		zap.String("uri", string(params.TextDocument.URI)))

	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok || doc.Code == nil {
		return nil, nil
	}

	ws := s.workspace()

	var links []protocol.DocumentLink

	var err error

	ori.Inspect(doc.Code, func(n ori.Node) bool {
		ref, ok := n.(*ori.Reference)
		if !ok || err != nil || !strings.Contains(ref.Path, "/") || strings.Contains(ref.Path, ":") {
			return err == nil
		}

		result, rerr := resolveExternal(ctx, ws, doc, analysis.SplitPath(ref.Path))
		if rerr != nil {
			err = rerr
			return false
		}

		if result == nil || result.Folder() {
			return true
		}

		links = append(links, protocol.DocumentLink{
			Range:   analysis.ToEditorRange(ref.Span()),
			Target:  PathToURI(result.Path),
			Tooltip: "Open " + result.Path,
		})

		return true
	})

	if err != nil {
		s.logger.Error("DocumentLink failed", zap.String("uri", string(doc.URI)), zap.Error(err))
	}

	return links, nil
}
