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

// Completion handles textDocument/completion requests.
func (s *Server) Completion(ctx context.Context, params *protocol.CompletionParams) (*protocol.CompletionList, error) {
	s.logger.Debug("Completion",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Uint32("line", params.Position.Line),
		zap.Uint32("character", params.Position.Character))

	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok {
		return nil, nil //nolint:nilnil
	}

	items, err := Complete(ctx, s.workspace(), doc, params.Position)
	if err != nil {
		s.logger.Error("Completion failed", zap.String("uri", string(doc.URI)), zap.Error(err))

		items = nil
	}

	if items == nil {
		items = []protocol.CompletionItem{}
	}

	return &protocol.CompletionList{
		IsIncomplete: false,
		Items:        items,
	}, nil
}

// Complete returns the completions at pos. When the cursor touches a path
// with a slash, only the entries of the folder the path leads to are
// returned. Otherwise the list is the local names in scope, innermost first,
// followed by the entries of each folder of the project scope, nearest first,
// followed by the configured builtins.
func Complete(ctx context.Context, ws Workspace, doc *Document, pos protocol.Position) ([]protocol.CompletionItem, error) {
	offset := doc.OffsetAt(pos)

	fragment, ok := analysis.PathAtOffset(doc.Content, offset, analysis.PathOptions{RequireSeparator: true})
	if ok {
		return completePath(ctx, ws, doc, fragment)
	}

	c := newCompletions(ws.Config)

	// The last good parse keeps local names available while the user types.
	code := doc.Code
	if code == nil {
		code = doc.LastValidCode
	}

	completeLocals(c, code, analysis.ToSourcePosition(pos))

	err := completeProject(ctx, ws, doc, c)
	if err != nil {
		return c.items, err
	}

	for _, builtin := range ws.Config.BuiltinNames() {
		c.add(builtin, protocol.CompletionItemKindFunction, "builtin", true)
	}

	return c.items, nil
}

// completePath completes the folder named by everything up to the last slash
// of fragment.
func completePath(ctx context.Context, ws Workspace, doc *Document, fragment string) ([]protocol.CompletionItem, error) {
	// Protocols and ports are not paths we can list.
	if strings.Contains(fragment, ":") {
		return nil, nil
	}

	keys := []string{""}
	if prefix := fragment[:strings.LastIndex(fragment, "/")]; prefix != "" {
		keys = analysis.SplitPath(prefix)
	}

	result, err := ws.Scope.Resolve(ctx, keys, doc.Folder(), ws.Roots)
	if err != nil || !result.Folder() {
		return nil, err
	}

	entries, err := ws.Scope.Listing(ctx, result.Path)
	if err != nil {
		return nil, err
	}

	c := newCompletions(ws.Config)
	for _, entry := range entries {
		c.addEntry(entry, result.Path)
	}

	return c.items, nil
}

// completeLocals adds the names declared by the frames enclosing pos.
func completeLocals(c *completions, code ori.Node, pos ori.Position) {
	for frame := range analysis.LocalDeclarations(code, pos) {
		switch frame := frame.(type) {
		case *ori.Object:
			for _, e := range frame.Entries {
				if !e.Hidden {
					c.add(e.Key, protocol.CompletionItemKindProperty, "property", false)
				}
			}
		case *ori.Lambda:
			for _, p := range frame.Params {
				c.add(p.Name, protocol.CompletionItemKindVariable, "parameter", false)
			}
		}
	}
}

// completeProject adds the entries of every folder from the document's
// folder up to its workspace root.
func completeProject(ctx context.Context, ws Workspace, doc *Document, c *completions) error {
	for _, folder := range ws.Scope.Chain(doc.Folder(), ws.Roots) {
		entries, err := ws.Scope.Listing(ctx, folder)
		if err != nil {
			return err
		}

		for _, entry := range entries {
			c.addEntry(entry, folder)
		}
	}

	return nil
}

// completions accumulates items, keeping the first item for each label.
type completions struct {
	config *ori.Config
	items  []protocol.CompletionItem
	seen   map[string]bool
}

func newCompletions(cfg *ori.Config) *completions {
	return &completions{
		config: cfg,
		items:  []protocol.CompletionItem{},
		seen:   make(map[string]bool),
	}
}

func (c *completions) add(label string, kind protocol.CompletionItemKind, detail string, filter bool) {
	if label == "" || c.seen[label] || (filter && c.config.Excluded(label)) {
		return
	}

	c.seen[label] = true
	c.items = append(c.items, protocol.CompletionItem{
		Label:  label,
		Kind:   kind,
		Detail: detail,
	})
}

// addEntry adds a folder entry. Folders keep the trailing slash so the
// completion continues the path.
func (c *completions) addEntry(entry scope.Entry, folder string) {
	if entry.Folder {
		c.add(entry.Name+"/", protocol.CompletionItemKindFolder, folder, true)
	} else {
		c.add(entry.Name, protocol.CompletionItemKindFile, folder, true)
	}
}
