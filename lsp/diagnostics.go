package lsp

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/ori/analysis"
)

// diagnosticSource labels every diagnostic the server reports.
const diagnosticSource = "ori"

// Validate returns the diagnostics of the document's latest parse: a single
// error spanning the syntax error, or none.
func Validate(doc *Document) []protocol.Diagnostic {
	if doc.Err == nil {
		return []protocol.Diagnostic{}
	}

	return []protocol.Diagnostic{{
		Range:    analysis.ToEditorRange(doc.Err.Span),
		Severity: protocol.DiagnosticSeverityError,
		Source:   diagnosticSource,
		Message:  doc.Err.Message,
	}}
}

// publishDiagnostics validates the document and publishes the result.
func (s *Server) publishDiagnostics(ctx context.Context, doc *Document) {
	diagnostics := Validate(doc)

	for _, d := range diagnostics {
		s.logger.Debug("Publishing diagnostic",
			zap.Uint32("lsp.start.line", d.Range.Start.Line),
			zap.Uint32("lsp.start.char", d.Range.Start.Character),
			zap.String("message", d.Message))
	}

	err := s.client.PublishDiagnostics(ctx, &protocol.PublishDiagnosticsParams{
		URI:         doc.URI,
		Version:     uint32(doc.Version), //nolint:gosec // LSP version numbers are always non-negative
		Diagnostics: diagnostics,
	})
	if err != nil {
		s.logger.Error("Failed to publish diagnostics", zap.Error(err))
	}
}
