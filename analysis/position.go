// Package analysis answers position-based questions about parsed ori source:
// which declarations enclose a position and which path touches an offset.
package analysis

import (
	"go.lsp.dev/protocol"

	"github.com/rlch/ori"
)

// ToEditorPosition converts a 1-based source position to LSP's 0-based
// line/character.
func ToEditorPosition(pos ori.Position) protocol.Position {
	return protocol.Position{
		Line:      uint32(max(0, pos.Line-1)),   //nolint:gosec // G115: values are small line numbers
		Character: uint32(max(0, pos.Column-1)), //nolint:gosec // G115: values are small column numbers
	}
}

// ToSourcePosition converts an LSP 0-based line/character to a 1-based
// source position.
func ToSourcePosition(pos protocol.Position) ori.Position {
	return ori.Position{
		Line:   int(pos.Line) + 1, // LSP is 0-based, the parser is 1-based
		Column: int(pos.Character) + 1,
	}
}

// ToEditorRange converts a source span to an LSP range.
func ToEditorRange(span ori.Span) protocol.Range {
	return protocol.Range{
		Start: ToEditorPosition(span.Start),
		End:   ToEditorPosition(span.End),
	}
}
