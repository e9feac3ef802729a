// Package watch follows workspace roots on disk and reports files being
// created, changed or deleted as workspace/didChangeWatchedFiles changes.
//
// It serves editors that do not send file notifications themselves.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/ori"
	"github.com/rlch/ori/lsp"
)

// Handler receives the changes seen by a Watcher. Server.DidChangeWatchedFiles
// satisfies it.
type Handler func(ctx context.Context, params *protocol.DidChangeWatchedFilesParams) error

// Watcher watches every folder under a set of roots. fsnotify is not
// recursive, so folders created later are added as they appear.
type Watcher struct {
	fsw     *fsnotify.Watcher
	handler Handler
	logger  *zap.Logger
	config  *ori.Config

	mu    sync.Mutex
	roots map[string]struct{}
	dirs  map[string]struct{}
}

// New creates a Watcher. Folders whose names the config excludes are not
// watched. cfg may be nil.
func New(handler Handler, logger *zap.Logger, cfg *ori.Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fs watcher: %w", err)
	}

	return &Watcher{
		fsw:     fsw,
		handler: handler,
		logger:  logger,
		config:  cfg,
		roots:   make(map[string]struct{}),
		dirs:    make(map[string]struct{}),
	}, nil
}

// Watch starts watching root and every folder below it.
func (w *Watcher) Watch(root string) error {
	root = filepath.Clean(root)

	w.mu.Lock()
	w.roots[root] = struct{}{}
	w.mu.Unlock()

	return w.addTree(root)
}

// Unwatch stops watching root and the folders below it.
func (w *Watcher) Unwatch(root string) error {
	root = filepath.Clean(root)

	w.mu.Lock()
	defer w.mu.Unlock()

	delete(w.roots, root)

	var errs []error

	for dir := range w.dirs {
		if !within(dir, root) || w.coveredLocked(dir) {
			continue
		}

		delete(w.dirs, dir)

		if err := w.fsw.Remove(dir); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("unwatch %s: %w", root, errs[0])
	}

	return nil
}

// Dirs returns the watched folders, sorted.
func (w *Watcher) Dirs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	dirs := make([]string, 0, len(w.dirs))
	for dir := range w.dirs {
		dirs = append(dirs, dir)
	}

	slices.Sort(dirs)

	return dirs
}

// Run delivers events to the handler until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}

			w.handle(ctx, event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}

			w.logger.Warn("File watcher error", zap.Error(err))
		case <-ctx.Done():
			return nil
		}
	}
}

// Close stops the underlying watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	var kind protocol.FileChangeType

	switch {
	case event.Has(fsnotify.Create):
		kind = protocol.FileChangeTypeCreated

		if w.isNewDir(event.Name) {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("Failed to watch new folder", zap.String("path", event.Name), zap.Error(err))
			}
		}
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		// The new name of a renamed file arrives as its own Create.
		kind = protocol.FileChangeTypeDeleted

		w.forget(event.Name)
	case event.Has(fsnotify.Write):
		kind = protocol.FileChangeTypeChanged
	default:
		return
	}

	w.logger.Debug("File event", zap.String("path", event.Name), zap.Stringer("op", event.Op))

	params := &protocol.DidChangeWatchedFilesParams{
		Changes: []*protocol.FileEvent{{
			Type: kind,
			URI:  lsp.PathToURI(event.Name),
		}},
	}

	if err := w.handler(ctx, params); err != nil {
		w.logger.Warn("File event handler failed", zap.String("path", event.Name), zap.Error(err))
	}
}

// addTree watches dir and the folders below it, skipping excluded names.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}

			return nil // Skip unreadable folders
		}

		if !d.IsDir() {
			return nil
		}

		if path != dir && w.config.Excluded(d.Name()) {
			return filepath.SkipDir
		}

		w.mu.Lock()
		defer w.mu.Unlock()

		if _, ok := w.dirs[path]; ok {
			return nil
		}

		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}

		w.dirs[path] = struct{}{}

		return nil
	})
}

func (w *Watcher) isNewDir(path string) bool {
	if w.config.Excluded(filepath.Base(path)) {
		return false
	}

	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}

// forget drops a removed folder and everything below it. fsnotify drops the
// watches itself.
func (w *Watcher) forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for dir := range w.dirs {
		if within(dir, path) {
			delete(w.dirs, dir)
		}
	}
}

// coveredLocked reports whether dir is still under another watched root.
func (w *Watcher) coveredLocked(dir string) bool {
	for root := range w.roots {
		if within(dir, root) {
			return true
		}
	}

	return false
}

func within(path, root string) bool {
	return path == root || strings.HasPrefix(path, root+string(filepath.Separator))
}
