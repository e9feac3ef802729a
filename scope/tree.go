// Package scope resolves keys against the project scope: the chain of
// folders from a document's folder up to its workspace root.
package scope

import (
	"context"
	"errors"
	"io/fs"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
)

// Value is what a key resolves to: a Tree for folders or a *File leaf.
type Value interface {
	Path() string
}

// Tree is a read-only key/value view over one folder.
type Tree interface {
	Value

	// Keys returns the folder's entry names in order. Folders carry a
	// trailing slash.
	Keys(ctx context.Context) ([]string, error)

	// Get returns the entry for key, or nil if the folder has no such entry.
	Get(ctx context.Context, key string) (Value, error)
}

// File is a leaf in a Tree.
type File struct {
	path string
}

// Path returns the absolute path of the file.
func (f *File) Path() string { return f.path }

// FileTree is a Tree over a folder of a billy filesystem.
type FileTree struct {
	fs   billy.Filesystem
	path string
}

// NewFileTree returns the view of folder path in fs. The folder is not
// checked for existence.
func NewFileTree(fsys billy.Filesystem, path string) *FileTree {
	return &FileTree{fs: fsys, path: path}
}

// Path returns the absolute path of the folder.
func (t *FileTree) Path() string { return t.path }

// Keys lists the folder, sorted by name. A missing folder has no keys.
func (t *FileTree) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	infos, err := t.fs.ReadDir(t.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, err
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })

	keys := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() {
			keys = append(keys, info.Name()+"/")
		} else {
			keys = append(keys, info.Name())
		}
	}

	return keys, nil
}

// Get returns a *FileTree for a subfolder, a *File for anything else, or nil
// when key does not exist. A trailing slash on key is ignored.
//
//nolint:ireturn // Value is a closed set of *FileTree and *File.
func (t *FileTree) Get(ctx context.Context, key string) (Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key = strings.TrimSuffix(key, "/")
	if key == "" || key == "." || key == ".." || strings.Contains(key, "/") {
		return nil, nil //nolint:nilnil // not a key of this folder
	}

	path := t.fs.Join(t.path, key)

	info, err := t.fs.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil //nolint:nilnil // undefined key
		}

		return nil, err
	}

	if info.IsDir() {
		return NewFileTree(t.fs, path), nil
	}

	return &File{path: path}, nil
}

// IsFolder reports whether v is a Tree.
func IsFolder(v Value) bool {
	_, ok := v.(Tree)
	return ok
}

var _ Tree = (*FileTree)(nil)
