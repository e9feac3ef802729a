package lsp

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/ori"
)

// Formatting handles textDocument/formatting requests.
// Documents with syntax errors are left alone.
func (s *Server) Formatting(_ context.Context, params *protocol.DocumentFormattingParams) ([]protocol.TextEdit, error) {
	s.logger.Debug("Formatting", zap.String("uri", string(params.TextDocument.URI)))

	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok || doc.Err != nil {
		return nil, nil
	}

	formatted, err := ori.Format(doc.Content)
	if err != nil {
		s.logger.Debug("Format failed", zap.String("uri", string(doc.URI)), zap.Error(err))
		return nil, nil
	}

	if formatted == doc.Content {
		return []protocol.TextEdit{}, nil
	}

	// One edit replacing the whole document.
	return []protocol.TextEdit{{
		Range: protocol.Range{
			Start: protocol.Position{Line: 0, Character: 0},
			End:   doc.PositionAt(len(doc.Content)),
		},
		NewText: formatted,
	}}, nil
}
