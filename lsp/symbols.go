package lsp

import (
	"context"
	"unicode/utf8"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/ori"
	"github.com/rlch/ori/analysis"
)

// DocumentSymbol handles textDocument/documentSymbol requests.
// Returns the object entries as a tree for the outline view.
func (s *Server) DocumentSymbol(_ context.Context, params *protocol.DocumentSymbolParams) ([]any, error) {
	s.logger.Debug("DocumentSymbol",
		zap.String("uri", string(params.TextDocument.URI)))

	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok || doc.Code == nil {
		return nil, nil
	}

	symbols := buildDocumentSymbols(doc.Code)

	// Convert to []any for the protocol
	result := make([]any, len(symbols))
	for i, sym := range symbols {
		result[i] = sym
	}

	return result, nil
}

// buildDocumentSymbols returns a symbol per entry of the objects directly
// under n. Lambda bodies and call targets are looked through so the entries
// of a returned object still show up.
func buildDocumentSymbols(n ori.Node) []protocol.DocumentSymbol {
	var symbols []protocol.DocumentSymbol

	switch n := n.(type) {
	case *ori.Object:
		for _, e := range n.Entries {
			symbols = append(symbols, entrySymbol(e))
		}
	case *ori.Lambda:
		symbols = buildDocumentSymbols(n.Body)
	case *ori.Call:
		symbols = buildDocumentSymbols(n.Target)
		for _, args := range n.Args {
			for _, arg := range args {
				symbols = append(symbols, buildDocumentSymbols(arg)...)
			}
		}
	}

	return symbols
}

func entrySymbol(e *ori.Entry) protocol.DocumentSymbol {
	sym := protocol.DocumentSymbol{
		Name:           e.Key,
		Kind:           symbolKind(e),
		Range:          analysis.ToEditorRange(e.Span()),
		SelectionRange: entryKeyRange(e),
	}

	if e.Hidden {
		sym.Detail = "hidden"
	}

	if e.Explicit {
		sym.Children = buildDocumentSymbols(e.Value)
	}

	return sym
}

func symbolKind(e *ori.Entry) protocol.SymbolKind {
	if e.IsFolder() {
		return protocol.SymbolKindNamespace
	}

	switch v := e.Value.(type) {
	case *ori.Object:
		return protocol.SymbolKindObject
	case *ori.Lambda:
		return protocol.SymbolKindFunction
	case *ori.Array:
		return protocol.SymbolKindArray
	case *ori.Template:
		return protocol.SymbolKindString
	case *ori.Literal:
		if _, ok := v.Value.(float64); ok {
			return protocol.SymbolKindNumber
		}

		return protocol.SymbolKindString
	default:
		return protocol.SymbolKindField
	}
}

// entryKeyRange covers the key as written, parentheses included.
func entryKeyRange(e *ori.Entry) protocol.Range {
	width := utf8.RuneCountInString(e.Key)
	if e.Hidden {
		width += 2
	}

	start := e.Span().Start
	end := start
	end.Column += width

	return analysis.ToEditorRange(ori.Span{Start: start, End: end})
}
