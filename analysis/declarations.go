package analysis

import (
	"iter"

	"github.com/rlch/ori"
)

// LocalDeclarations yields the object and lambda nodes that enclose pos,
// innermost first. Subtrees whose span does not contain pos are skipped
// without being visited. The sequence is restartable.
func LocalDeclarations(code ori.Node, pos ori.Position) iter.Seq[ori.Node] {
	return func(yield func(ori.Node) bool) {
		walkDeclarations(code, pos, yield)
	}
}

// walkDeclarations reports false once yield asks to stop.
func walkDeclarations(code ori.Node, pos ori.Position, yield func(ori.Node) bool) bool {
	if code == nil || !code.Span().Contains(pos) {
		return true
	}

	for _, child := range ori.Children(code) {
		if !walkDeclarations(child, pos, yield) {
			return false
		}
	}

	switch code.(type) {
	case *ori.Object, *ori.Lambda:
		return yield(code)
	default:
		return true
	}
}
