package lsp

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/util"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/ori"
)

// FileExtension is the extension of ori source files.
const FileExtension = ".ori"

// Symbols handles workspace/symbol requests.
// Searches the object entries of every .ori file under the workspace roots.
// Open documents are searched as edited, not as saved.
func (s *Server) Symbols(ctx context.Context, params *protocol.WorkspaceSymbolParams) ([]protocol.SymbolInformation, error) {
	s.logger.Debug("Symbols",
		zap.String("query", params.Query))

	roots, cfg := s.session()
	fsys := s.scope.Filesystem()
	query := strings.ToLower(params.Query)

	var symbols []protocol.SymbolInformation

	for _, root := range roots {
		err := util.Walk(fsys, root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil // Skip errors
			}

			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			if info.IsDir() {
				if path != root && cfg.Excluded(info.Name()) {
					return filepath.SkipDir
				}

				return nil
			}

			if !strings.HasSuffix(path, FileExtension) {
				return nil
			}

			uri := PathToURI(path)

			content, ok := s.openContent(uri)
			if !ok {
				data, err := util.ReadFile(fsys, path)
				if err != nil {
					return nil
				}

				content = string(data)
			}

			code, err := ori.Parse(content)
			if err != nil || code == nil {
				return nil
			}

			symbols = append(symbols, matchSymbols(uri, "", buildDocumentSymbols(code), query)...)

			return nil
		})
		if err != nil {
			s.logger.Debug("Error walking workspace for symbols", zap.String("root", root), zap.Error(err))
		}
	}

	return symbols, nil
}

// openContent returns the current text of an open document.
func (s *Server) openContent(uri protocol.DocumentURI) (string, bool) {
	doc, ok := s.getDocument(uri)
	if !ok {
		return "", false
	}

	return doc.Content, true
}

// matchSymbols flattens a symbol tree, keeping names containing query.
func matchSymbols(
	uri protocol.DocumentURI, container string, symbols []protocol.DocumentSymbol, query string,
) []protocol.SymbolInformation {
	var matched []protocol.SymbolInformation

	for _, sym := range symbols {
		if query == "" || strings.Contains(strings.ToLower(sym.Name), query) {
			matched = append(matched, protocol.SymbolInformation{
				Name:          sym.Name,
				Kind:          sym.Kind,
				Location:      protocol.Location{URI: uri, Range: sym.SelectionRange},
				ContainerName: container,
			})
		}

		matched = append(matched, matchSymbols(uri, sym.Name, sym.Children, query)...)
	}

	return matched
}
