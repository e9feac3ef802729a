package lsp

import (
	"errors"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.lsp.dev/protocol"

	"github.com/rlch/ori"
)

// Document represents an open document in the server.
type Document struct {
	URI     protocol.DocumentURI
	Version int32
	Content string

	// Code is the result of the latest parse, nil if it failed.
	Code ori.Node
	// Err is the syntax error of the latest parse.
	Err *ori.SyntaxError

	// LastValidCode holds the most recent code that parsed successfully.
	// Used for completion when the current document has syntax errors.
	LastValidCode ori.Node
}

// NewDocument creates a document and parses its content.
func NewDocument(uri protocol.DocumentURI, version int32, content string) *Document {
	doc := &Document{URI: uri}
	doc.Update(version, content)

	return doc
}

// Update replaces the content and re-parses it. The previous result is
// discarded; LastValidCode only moves forward on success.
func (d *Document) Update(version int32, content string) {
	d.Version = version
	d.Content = content
	d.Code = nil
	d.Err = nil

	code, err := ori.Parse(content)
	if err != nil {
		var serr *ori.SyntaxError
		if !errors.As(err, &serr) {
			serr = &ori.SyntaxError{Message: err.Error()}
		}

		d.Err = serr

		return
	}

	d.Code = code
	d.LastValidCode = code
}

// Compiled reports whether the latest parse succeeded.
func (d *Document) Compiled() bool {
	return d.Err == nil
}

// Path returns the file system path of the document, or "" if it is not a
// file.
func (d *Document) Path() string {
	return URIToPath(d.URI)
}

// Folder returns the folder containing the document, or "" if it is not a
// file.
func (d *Document) Folder() string {
	path := d.Path()
	if path == "" {
		return ""
	}

	return filepath.Dir(path)
}

// OffsetAt converts an editor position to a byte offset into Content.
// Characters are counted in runes, matching the parser's columns. Positions
// past the end of a line clamp to the line end.
func (d *Document) OffsetAt(pos protocol.Position) int {
	offset := 0

	for line := uint32(0); line < pos.Line; line++ {
		next := strings.IndexByte(d.Content[offset:], '\n')
		if next < 0 {
			return len(d.Content)
		}

		offset += next + 1
	}

	for char := uint32(0); char < pos.Character && offset < len(d.Content); char++ {
		r, size := utf8.DecodeRuneInString(d.Content[offset:])
		if r == '\n' {
			break
		}

		offset += size
	}

	return offset
}

// PositionAt converts a byte offset into Content to an editor position. An
// offset inside a multibyte rune maps to the start of that rune.
func (d *Document) PositionAt(offset int) protocol.Position {
	offset = min(max(offset, 0), len(d.Content))

	var pos protocol.Position

	for i := 0; i < offset; {
		r, size := utf8.DecodeRuneInString(d.Content[i:])
		if i+size > offset {
			break
		}

		if r == '\n' {
			pos.Line++
			pos.Character = 0
		} else {
			pos.Character++
		}

		i += size
	}

	return pos
}
