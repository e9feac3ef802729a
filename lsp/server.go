// Package lsp implements a Language Server Protocol server for the ori
// expression language.
package lsp

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"sync"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/ori"
	"github.com/rlch/ori/scope"
)

// Server implements the LSP Server interface for ori.
type Server struct {
	client protocol.Client
	logger *zap.Logger

	// scope resolves project-scope keys and caches folder listings.
	scope *scope.Scope

	// Document state
	mu        sync.RWMutex
	documents map[protocol.DocumentURI]*Document

	// Workspace state, guarded by mu.
	roots   []string
	config  *ori.Config
	watcher RootWatcher

	// Server state
	initialized bool
	shutdown    bool
}

// NewServer creates a new LSP server resolving project scope through sc.
func NewServer(client protocol.Client, logger *zap.Logger, sc *scope.Scope) *Server {
	return &Server{
		client:    client,
		logger:    logger,
		scope:     sc,
		documents: make(map[protocol.DocumentURI]*Document),
	}
}

// Initialize handles the initialize request.
func (s *Server) Initialize(_ context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	s.logger.Info("Initialize", zap.Any("params", params))

	var roots []string

	switch {
	case len(params.WorkspaceFolders) > 0:
		for _, folder := range params.WorkspaceFolders {
			if path := URIToPath(protocol.DocumentURI(folder.URI)); path != "" {
				roots = append(roots, path)
			}
		}
	case params.RootURI != "":
		if path := URIToPath(params.RootURI); path != "" {
			roots = append(roots, path)
		}
	case params.RootPath != "": //nolint:staticcheck // older clients only send RootPath
		roots = append(roots, params.RootPath) //nolint:staticcheck
	}

	s.mu.Lock()
	s.roots = cleanRoots(roots)
	s.config = s.loadConfig(s.roots)
	s.mu.Unlock()

	s.logger.Info("Workspace roots", zap.Strings("roots", roots))

	for _, root := range s.Roots() {
		s.watch(root)
	}

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			// Full document sync - client sends entire content on change
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
			},
			HoverProvider:       true,
			DefinitionProvider:  true,
			DeclarationProvider: true,
			RenameProvider: &protocol.RenameOptions{
				PrepareProvider: true,
			},
			CompletionProvider: &protocol.CompletionOptions{
				TriggerCharacters: []string{"/", "."},
				ResolveProvider:   false,
			},
			DocumentHighlightProvider:  true,
			ReferencesProvider:         true,
			DocumentSymbolProvider:     true,
			WorkspaceSymbolProvider:    true,
			DocumentFormattingProvider: true,
			DocumentLinkProvider: &protocol.DocumentLinkOptions{
				ResolveProvider: false,
			},
			FoldingRangeProvider: true,
			Workspace: &protocol.ServerCapabilitiesWorkspace{
				WorkspaceFolders: &protocol.ServerCapabilitiesWorkspaceFolders{
					Supported:           true,
					ChangeNotifications: true,
				},
			},
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    "ori-lsp",
			Version: "0.1.0",
		},
	}, nil
}

// loadConfig finds the nearest config above the first root. A missing or
// broken config yields an empty one.
func (s *Server) loadConfig(roots []string) *ori.Config {
	if len(roots) == 0 {
		return &ori.Config{}
	}

	cfg, err := ori.LoadConfig(roots[0])
	if err != nil {
		if !errors.Is(err, ori.ErrConfigNotFound) {
			s.logger.Warn("Failed to load config", zap.String("root", roots[0]), zap.Error(err))
		}

		return &ori.Config{}
	}

	return cfg
}

// Initialized handles the initialized notification.
func (s *Server) Initialized(_ context.Context, _ *protocol.InitializedParams) error {
	s.logger.Info("Initialized")
	s.initialized = true

	return nil
}

// Shutdown handles the shutdown request.
func (s *Server) Shutdown(_ context.Context) error {
	s.logger.Info("Shutdown")
	s.shutdown = true

	return nil
}

// Exit handles the exit notification.
func (s *Server) Exit(_ context.Context) error {
	s.logger.Info("Exit")
	// The main loop should handle exiting after this
	return nil
}

// DidOpen handles textDocument/didOpen notifications.
func (s *Server) DidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.logger.Info("DidOpen", zap.String("uri", string(params.TextDocument.URI)))

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := NewDocument(params.TextDocument.URI, params.TextDocument.Version, params.TextDocument.Text)
	s.documents[params.TextDocument.URI] = doc

	s.publishDiagnostics(ctx, doc)

	return nil
}

// DidChange handles textDocument/didChange notifications.
func (s *Server) DidChange(ctx context.Context, params *protocol.DidChangeTextDocumentParams) error {
	s.logger.Info("DidChange",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Int32("version", params.TextDocument.Version))

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[params.TextDocument.URI]
	if !ok {
		s.logger.Warn("DidChange for unknown document", zap.String("uri", string(params.TextDocument.URI)))

		return nil
	}

	// Full sync - take the last content change (should only be one with full sync)
	if len(params.ContentChanges) > 0 {
		doc.Update(params.TextDocument.Version, params.ContentChanges[len(params.ContentChanges)-1].Text)
		s.publishDiagnostics(ctx, doc)
	}

	return nil
}

// DidClose handles textDocument/didClose notifications.
func (s *Server) DidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.logger.Info("DidClose", zap.String("uri", string(params.TextDocument.URI)))

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.documents, params.TextDocument.URI)

	// Clear diagnostics for closed document
	err := s.client.PublishDiagnostics(ctx, &protocol.PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: []protocol.Diagnostic{},
	})
	if err != nil {
		s.logger.Error("Failed to clear diagnostics", zap.Error(err))
	}

	return nil
}

// DidSave handles textDocument/didSave notifications.
func (s *Server) DidSave(_ context.Context, params *protocol.DidSaveTextDocumentParams) error {
	s.logger.Info("DidSave", zap.String("uri", string(params.TextDocument.URI)))

	// A saved document may be a new entry of its folder.
	if path := URIToPath(params.TextDocument.URI); path != "" {
		s.scope.Invalidate(filepath.Dir(path))
	}

	return nil
}

// getDocument returns a snapshot of a document by URI (read-locked).
// Later edits replace the stored document's fields, never the snapshot's.
func (s *Server) getDocument(uri protocol.DocumentURI) (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[uri]
	if !ok {
		return nil, false
	}

	snapshot := *doc

	return &snapshot, true
}

// session returns a snapshot of the workspace roots and config.
func (s *Server) session() ([]string, *ori.Config) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.roots), s.config
}

// Roots returns the registered workspace roots.
func (s *Server) Roots() []string {
	roots, _ := s.session()
	return roots
}

func cleanRoots(roots []string) []string {
	cleaned := make([]string, 0, len(roots))
	for _, root := range roots {
		root = filepath.Clean(root)
		if !slices.Contains(cleaned, root) {
			cleaned = append(cleaned, root)
		}
	}

	return cleaned
}
