// Package ori provides the parser and syntax tree for the ori expression
// language.
package ori

import (
	"fmt"
	"strings"
)

// Position is a 1-based line/column location in source text.
type Position struct {
	Line   int
	Column int
}

// Span represents a range in source code. End is the position just past the
// last character.
type Span struct {
	Start Position
	End   Position
}

// Contains reports whether pos lies within the span, boundaries included.
func (s Span) Contains(pos Position) bool {
	if pos.Line < s.Start.Line || pos.Line > s.End.Line {
		return false
	}

	if pos.Line == s.Start.Line && pos.Column < s.Start.Column {
		return false
	}

	if pos.Line == s.End.Line && pos.Column > s.End.Column {
		return false
	}

	return true
}

// Encloses reports whether other lies entirely within s.
func (s Span) Encloses(other Span) bool {
	return s.Contains(other.Start) && s.Contains(other.End)
}

// NodeMeta carries the source span common to every node.
type NodeMeta struct {
	Pos    Position
	EndPos Position
}

// Span returns the source span of this node.
func (n *NodeMeta) Span() Span { return Span{Start: n.Pos, End: n.EndPos} }

// Node is a parsed expression. The set of implementations is closed:
// *Object, *Lambda, *Call, *Array, *Template, *Reference and *Literal.
type Node interface {
	Span() Span
	node()
}

// Object is an object literal.
type Object struct {
	NodeMeta
	Entries []*Entry
}

// Entry is a single key/value pair in an object literal.
type Entry struct {
	NodeMeta

	// Key is the key as written, without the parentheses of a hidden key.
	Key string
	// Hidden is set for keys wrapped in parentheses. Hidden entries are
	// resolvable but not offered as completions.
	Hidden bool
	// Explicit is set when the entry was written with a ": value" part.
	Explicit bool
	Value    Node
	// Source is the exact text of the entry.
	Source string
}

// Name returns the key with any trailing slash removed.
func (e *Entry) Name() string {
	return strings.TrimSuffix(e.Key, "/")
}

// IsFolder reports whether the key carries the trailing slash marker.
func (e *Entry) IsFolder() bool {
	return strings.HasSuffix(e.Key, "/")
}

// Shorthand reports whether the entry only names an outside resource: it has
// no value of its own, or its value is a reference to the key itself.
func (e *Entry) Shorthand() bool {
	if !e.Explicit {
		return true
	}

	ref, ok := e.Value.(*Reference)
	if !ok {
		return false
	}

	return strings.TrimSuffix(ref.Path, "/") == e.Name()
}

// Lambda is a function literal: (a, b) => body.
type Lambda struct {
	NodeMeta
	Params []*Param
	Body   Node
}

// Param is a lambda parameter.
type Param struct {
	NodeMeta
	Name string
}

// Call applies a target to argument lists: fn(a)(b).
type Call struct {
	NodeMeta
	Target Node
	Args   [][]Node
}

// Array is an array literal.
type Array struct {
	NodeMeta
	Items []Node
}

// Template is a backtick template. Parts alternate between *Literal text and
// substituted expressions.
type Template struct {
	NodeMeta
	Parts []Node
}

// Reference is a scope reference or path: name, posts/, src/index.html.
type Reference struct {
	NodeMeta
	Path string
}

// Literal is a string or number value.
type Literal struct {
	NodeMeta
	Value any
}

func (*Object) node()    {}
func (*Lambda) node()    {}
func (*Call) node()      {}
func (*Array) node()     {}
func (*Template) node()  {}
func (*Reference) node() {}
func (*Literal) node()   {}

// Children returns the direct sub-expressions of n in source order.
func Children(n Node) []Node {
	switch n := n.(type) {
	case *Object:
		children := make([]Node, 0, len(n.Entries))
		for _, e := range n.Entries {
			if e.Value != nil {
				children = append(children, e.Value)
			}
		}

		return children
	case *Lambda:
		if n.Body == nil {
			return nil
		}

		return []Node{n.Body}
	case *Call:
		children := []Node{n.Target}
		for _, args := range n.Args {
			children = append(children, args...)
		}

		return children
	case *Array:
		return n.Items
	case *Template:
		return n.Parts
	default:
		return nil
	}
}

// SyntaxError is returned by Parse when the source is not a valid expression.
type SyntaxError struct {
	Span    Span
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Span.Start.Line, e.Span.Start.Column, e.Message)
}

// Inspect traverses the tree rooted at n in depth-first order, calling f for
// each node. If f returns false, the children of that node are skipped.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}

	for _, child := range Children(n) {
		Inspect(child, f)
	}
}
