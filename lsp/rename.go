package lsp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/ori"
)

// ErrInvalidName is returned when a rename target is not a plain key.
var ErrInvalidName = errors.New("invalid name")

// Declaration handles textDocument/declaration requests. Local bindings are
// declared where they are defined, so this is Definition.
func (s *Server) Declaration(ctx context.Context, params *protocol.DeclarationParams) ([]protocol.Location, error) {
	return s.Definition(ctx, &protocol.DefinitionParams{
		TextDocumentPositionParams: params.TextDocumentPositionParams,
	})
}

// PrepareRename handles textDocument/prepareRename requests.
// Only local bindings can be renamed; the range is the name under the cursor.
func (s *Server) PrepareRename(_ context.Context, params *protocol.PrepareRenameParams) (*protocol.Range, error) {
	s.logger.Debug("PrepareRename",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Uint32("line", params.Position.Line),
		zap.Uint32("character", params.Position.Character))

	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok {
		return nil, nil //nolint:nilnil // nothing to rename
	}

	occ := findOccurrences(doc, params.Position)
	if occ == nil {
		return nil, nil //nolint:nilnil // nothing to rename
	}

	for _, rng := range append([]protocol.Range{occ.declaration}, occ.uses...) {
		if within(rng, params.Position) {
			return &rng, nil
		}
	}

	return &occ.declaration, nil
}

// Rename handles textDocument/rename requests.
// Renames a local binding and its uses within the document.
func (s *Server) Rename(_ context.Context, params *protocol.RenameParams) (*protocol.WorkspaceEdit, error) {
	s.logger.Debug("Rename",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.String("newName", params.NewName))

	if err := validateName(params.NewName); err != nil {
		return nil, err
	}

	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok {
		return nil, nil //nolint:nilnil // nothing to rename
	}

	occ := findOccurrences(doc, params.Position)
	if occ == nil {
		return nil, nil //nolint:nilnil // nothing to rename
	}

	edits := []protocol.TextEdit{{Range: occ.declaration, NewText: params.NewName}}
	for _, rng := range occ.uses {
		edits = append(edits, protocol.TextEdit{Range: rng, NewText: params.NewName})
	}

	return &protocol.WorkspaceEdit{
		Changes: map[protocol.DocumentURI][]protocol.TextEdit{doc.URI: edits},
	}, nil
}

// validateName accepts names that parse as a single plain key. Separators and
// dots would change how uses of the binding resolve.
func validateName(name string) error {
	if name == "" || strings.ContainsAny(name, "/:.") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	code, err := ori.Parse(name)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	if ref, ok := code.(*ori.Reference); !ok || ref.Path != name {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	return nil
}

func within(rng protocol.Range, pos protocol.Position) bool {
	return pos.Line == rng.Start.Line && pos.Character >= rng.Start.Character && pos.Character <= rng.End.Character
}
