package lsp

import (
	"context"
	"strings"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/ori"
	"github.com/rlch/ori/analysis"
	"github.com/rlch/ori/scope"
)

// Definition handles textDocument/definition requests.
func (s *Server) Definition(ctx context.Context, params *protocol.DefinitionParams) ([]protocol.Location, error) {
	s.logger.Debug("Definition",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Uint32("line", params.Position.Line),
		zap.Uint32("character", params.Position.Character))

	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	loc, err := Define(ctx, s.workspace(), doc, params.Position)
	if err != nil {
		s.logger.Error("Definition failed", zap.String("uri", string(doc.URI)), zap.Error(err))

		return nil, nil
	}

	if loc == nil {
		return nil, nil
	}

	return []protocol.Location{*loc}, nil
}

// Define returns where the path under pos is declared, or nil. A bare key is
// looked up in the enclosing declarations first; anything else, and any key
// that is not declared locally, is resolved against the project scope.
// Folders are not navigable, and file targets land at the top of the file.
func Define(ctx context.Context, ws Workspace, doc *Document, pos protocol.Position) (*protocol.Location, error) {
	target, ok := analysis.PathAtOffset(doc.Content, doc.OffsetAt(pos), analysis.PathOptions{ExpandRight: true})

	// Protocols and ports are not resolved.
	if !ok || strings.Contains(target, ":") {
		return nil, nil
	}

	keys := analysis.SplitPath(target)

	if len(keys) == 1 && doc.Code != nil {
		if decl, ok := findLocal(doc.Code, keys[0], analysis.ToSourcePosition(pos)); ok {
			return &protocol.Location{URI: doc.URI, Range: analysis.ToEditorRange(decl.span)}, nil
		}
	}

	result, err := resolveExternal(ctx, ws, doc, keys)
	if err != nil || result == nil || result.Folder() {
		return nil, err
	}

	return &protocol.Location{URI: PathToURI(result.Path), Range: protocol.Range{}}, nil
}

func resolveExternal(ctx context.Context, ws Workspace, doc *Document, keys []string) (*scope.Result, error) {
	return ws.Scope.Resolve(ctx, keys, doc.Folder(), ws.Roots)
}

// declaration is a local binding of a key.
type declaration struct {
	span ori.Span
	// param is set for lambda parameters, whose span is a zero-width point
	// at the parameter.
	param bool
	name  string
	entry *ori.Entry
}

// findLocal searches the frames enclosing pos, innermost first, for the
// declaration of key.
func findLocal(code ori.Node, key string, pos ori.Position) (declaration, bool) {
	key = strings.TrimSuffix(key, "/")

	names := []string{key}
	if i := strings.IndexByte(key, '.'); i > 0 {
		// name.property refers to the binding of name.
		names = append(names, key[:i])
	}

	for frame := range analysis.LocalDeclarations(code, pos) {
		for _, name := range names {
			if decl, ok := declaredIn(frame, name); ok {
				return decl, true
			}
		}
	}

	return declaration{}, false
}

func declaredIn(frame ori.Node, name string) (declaration, bool) {
	switch frame := frame.(type) {
	case *ori.Object:
		for _, e := range frame.Entries {
			// A shorthand entry names the outside resource, not itself.
			if e.Name() == name && !e.Shorthand() {
				return declaration{span: e.Span(), entry: e}, true
			}
		}
	case *ori.Lambda:
		for _, p := range frame.Params {
			if p.Name == name {
				start := p.Span().Start

				return declaration{span: ori.Span{Start: start, End: start}, param: true, name: p.Name}, true
			}
		}
	}

	return declaration{}, false
}
