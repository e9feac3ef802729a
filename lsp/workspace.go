package lsp

import (
	"context"
	"path/filepath"
	"slices"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/ori"
	"github.com/rlch/ori/scope"
)

// Workspace is the context the completion and definition assemblers run in:
// the shared scope, the registered workspace roots and the project config.
type Workspace struct {
	Scope  *scope.Scope
	Roots  []string
	Config *ori.Config
}

// workspace returns the server's current Workspace.
func (s *Server) workspace() Workspace {
	roots, cfg := s.session()

	return Workspace{Scope: s.scope, Roots: roots, Config: cfg}
}

// RootWatcher watches workspace roots for files being created or deleted.
type RootWatcher interface {
	Watch(root string) error
	Unwatch(root string) error
}

// SetWatcher registers w to follow the workspace roots. Roots already known
// are watched immediately.
func (s *Server) SetWatcher(w RootWatcher) {
	s.mu.Lock()
	s.watcher = w
	roots := slices.Clone(s.roots)
	s.mu.Unlock()

	for _, root := range roots {
		s.watch(root)
	}
}

func (s *Server) watch(root string) {
	s.mu.RLock()
	w := s.watcher
	s.mu.RUnlock()

	if w == nil {
		return
	}

	if err := w.Watch(root); err != nil {
		s.logger.Warn("Failed to watch workspace root", zap.String("root", root), zap.Error(err))
	}
}

func (s *Server) unwatch(root string) {
	s.mu.RLock()
	w := s.watcher
	s.mu.RUnlock()

	if w == nil {
		return
	}

	if err := w.Unwatch(root); err != nil {
		s.logger.Warn("Failed to unwatch workspace root", zap.String("root", root), zap.Error(err))
	}
}

// DidChangeWatchedFiles handles workspace/didChangeWatchedFiles.
// A created or deleted file changes the listing of its folder; a deleted
// folder also takes its own listing with it.
func (s *Server) DidChangeWatchedFiles(_ context.Context, params *protocol.DidChangeWatchedFilesParams) error {
	for _, change := range params.Changes {
		if change == nil {
			continue
		}

		path := URIToPath(change.URI)
		if path == "" {
			continue
		}

		s.logger.Debug("Watched file changed",
			zap.String("path", path),
			zap.Any("type", change.Type))

		switch change.Type {
		case protocol.FileChangeTypeCreated:
			s.scope.Invalidate(filepath.Dir(path))
		case protocol.FileChangeTypeDeleted:
			s.scope.Invalidate(filepath.Dir(path))
			s.scope.Invalidate(path)
		case protocol.FileChangeTypeChanged:
			// Contents do not affect listings.
		}
	}

	return nil
}

// DidChangeWorkspaceFolders handles workspace/didChangeWorkspaceFolders.
func (s *Server) DidChangeWorkspaceFolders(_ context.Context, params *protocol.DidChangeWorkspaceFoldersParams) error {
	var added, removed []string

	for _, folder := range params.Event.Removed {
		if path := URIToPath(protocol.DocumentURI(folder.URI)); path != "" {
			removed = append(removed, filepath.Clean(path))
		}
	}

	for _, folder := range params.Event.Added {
		if path := URIToPath(protocol.DocumentURI(folder.URI)); path != "" {
			added = append(added, filepath.Clean(path))
		}
	}

	s.mu.Lock()
	roots := slices.DeleteFunc(slices.Clone(s.roots), func(root string) bool {
		return slices.Contains(removed, root)
	})
	s.roots = cleanRoots(append(roots, added...))
	s.config = s.loadConfig(s.roots)
	s.mu.Unlock()

	s.logger.Info("Workspace folders changed",
		zap.Strings("added", added),
		zap.Strings("removed", removed))

	for _, root := range removed {
		s.unwatch(root)
	}

	for _, root := range added {
		s.watch(root)
	}

	return nil
}
