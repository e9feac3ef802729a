package scope

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5"
	"go.uber.org/zap"
)

// HomeKey is the root key that names the user's home folder.
const HomeKey = "~"

// Result is a resolved key: the absolute path it names and its value.
type Result struct {
	Path  string
	Value Value
}

// Folder reports whether the result is a folder.
func (r *Result) Folder() bool {
	return r != nil && IsFolder(r.Value)
}

// Entry is one item of a folder listing.
type Entry struct {
	Name   string
	Folder bool
}

// Scope resolves keys against folders of a filesystem and caches folder
// listings until they are invalidated. It is safe for concurrent use.
type Scope struct {
	fs     billy.Filesystem
	home   string
	logger *zap.Logger

	// mu protects listings and generation.
	mu sync.RWMutex

	// listings maps absolute folder paths to their entries.
	listings map[string][]Entry
	// generation counts invalidations. A listing read while it changed is
	// returned but not cached.
	generation uint64
}

// New creates a Scope over fsys. An empty home falls back to the current
// user's home folder.
func New(fsys billy.Filesystem, home string, logger *zap.Logger) *Scope {
	if home == "" {
		if dir, err := os.UserHomeDir(); err == nil {
			home = dir
		}
	}

	return &Scope{
		fs:       fsys,
		home:     home,
		logger:   logger,
		listings: make(map[string][]Entry),
	}
}

// Filesystem returns the filesystem the scope reads.
func (s *Scope) Filesystem() billy.Filesystem {
	return s.fs
}

// Tree returns the view of folder.
func (s *Scope) Tree(folder string) *FileTree {
	return NewFileTree(s.fs, folder)
}

// Find returns the nearest definition of key, walking up from start. The
// walk stops after the first folder that is one of roots, or below the
// filesystem root. The empty key names the filesystem root and HomeKey the
// home folder. A miss is a nil result and no error.
func (s *Scope) Find(ctx context.Context, key, start string, roots []string) (*Result, error) {
	switch key {
	case "":
		return &Result{Path: string(filepath.Separator), Value: s.Tree(string(filepath.Separator))}, nil
	case HomeKey:
		if s.home == "" {
			return nil, nil
		}

		return &Result{Path: s.home, Value: s.Tree(s.home)}, nil
	}

	if start == "" {
		return nil, nil
	}

	for _, folder := range s.Chain(start, roots) {
		value, err := s.Tree(folder).Get(ctx, key)
		if err != nil {
			return nil, err
		}

		if value != nil {
			s.logger.Debug("Found in scope",
				zap.String("key", key),
				zap.String("folder", folder))

			return &Result{Path: value.Path(), Value: value}, nil
		}
	}

	return nil, nil
}

// Resolve resolves a path split into keys: the first key through Find, the
// rest by descending into folders. It returns nil if any key is undefined or
// a file is reached while keys remain.
func (s *Scope) Resolve(ctx context.Context, keys []string, start string, roots []string) (*Result, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	result, err := s.Find(ctx, keys[0], start, roots)
	if err != nil || result == nil {
		return nil, err
	}

	for _, key := range keys[1:] {
		tree, ok := result.Value.(Tree)
		if !ok {
			return nil, nil
		}

		value, err := tree.Get(ctx, key)
		if err != nil {
			return nil, err
		}

		if value == nil {
			return nil, nil
		}

		result = &Result{Path: value.Path(), Value: value}
	}

	return result, nil
}

// Chain returns the folders searched by Find, nearest first: start and its
// ancestors up to and including the first one that is a root. The
// filesystem root itself is never searched; it is reached through the
// empty key. An empty start has no chain.
func (s *Scope) Chain(start string, roots []string) []string {
	if start == "" {
		return nil
	}

	cleaned := make([]string, 0, len(roots))
	for _, root := range roots {
		cleaned = append(cleaned, filepath.Clean(root))
	}

	var chain []string

	for current := filepath.Clean(start); ; {
		parent := filepath.Dir(current)
		if parent == current {
			return chain
		}

		chain = append(chain, current)

		if slices.Contains(cleaned, current) {
			return chain
		}

		current = parent
	}
}

// Listing returns the entries of folder, served from the cache when
// possible. An invalidation that arrives while the folder is being read
// keeps the result out of the cache.
func (s *Scope) Listing(ctx context.Context, folder string) ([]Entry, error) {
	folder = filepath.Clean(folder)

	s.mu.RLock()
	entries, ok := s.listings[folder]
	generation := s.generation
	s.mu.RUnlock()

	if ok {
		return entries, nil
	}

	keys, err := s.Tree(folder).Keys(ctx)
	if err != nil {
		return nil, err
	}

	entries = make([]Entry, 0, len(keys))
	for _, key := range keys {
		entries = append(entries, Entry{
			Name:   strings.TrimSuffix(key, "/"),
			Folder: strings.HasSuffix(key, "/"),
		})
	}

	s.mu.Lock()
	if s.generation == generation {
		s.listings[folder] = entries
	}
	s.mu.Unlock()

	return entries, nil
}

// Invalidate drops the cached listing of folder.
func (s *Scope) Invalidate(folder string) {
	folder = filepath.Clean(folder)

	s.mu.Lock()
	_, ok := s.listings[folder]
	delete(s.listings, folder)
	s.generation++
	s.mu.Unlock()

	if ok {
		s.logger.Debug("Invalidated folder listing", zap.String("folder", folder))
	}
}

// InvalidateAll drops every cached listing.
func (s *Scope) InvalidateAll() {
	s.mu.Lock()
	s.listings = make(map[string][]Entry)
	s.generation++
	s.mu.Unlock()
}
