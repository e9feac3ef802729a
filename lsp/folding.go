package lsp

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/ori"
)

// FoldingRanges handles textDocument/foldingRange requests.
// Objects, arrays and templates that span several lines fold.
func (s *Server) FoldingRanges(_ context.Context, params *protocol.FoldingRangeParams) ([]protocol.FoldingRange, error) {
	s.logger.Debug("FoldingRanges",
		zap.String("uri", string(params.TextDocument.URI)))

	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok || doc.Code == nil {
		return nil, nil
	}

	return foldingRanges(doc.Code), nil
}

func foldingRanges(code ori.Node) []protocol.FoldingRange {
	var ranges []protocol.FoldingRange

	ori.Inspect(code, func(n ori.Node) bool {
		switch n.(type) {
		case *ori.Object, *ori.Array, *ori.Template:
		default:
			return true
		}

		span := n.Span()
		if span.End.Line > span.Start.Line {
			ranges = append(ranges, protocol.FoldingRange{
				StartLine: uint32(span.Start.Line - 1), //nolint:gosec
				EndLine:   uint32(span.End.Line - 1),   //nolint:gosec
				Kind:      protocol.RegionFoldingRange,
			})
		}

		return true
	})

	return ranges
}
