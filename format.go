package ori

import (
	"strings"
)

const indentUnit = "  "

// Format parses text and prints it in canonical layout. Objects and arrays
// that span several lines get one entry per line; ones written on a single
// line stay on one. Comments are kept, and runs of blank lines between
// entries collapse to one. String, number and template literals are printed
// as written.
func Format(text string) (string, error) {
	code, err := Parse(text)
	if err != nil {
		return "", err
	}

	f := &formatter{
		src:      strings.Split(text, "\n"),
		comments: &commentQueue{all: Comments(text)},
		fresh:    true,
	}

	if code != nil {
		f.leading(code.Span().Start)
		f.newlineAt(code.Span().Start.Line)
		f.expr(code)
		f.trailing(code.Span().End.Line)
	}

	for _, c := range f.comments.rest() {
		f.newlineAt(c.Span.Start.Line)
		f.write(c.Text)
	}

	out := strings.TrimSpace(f.b.String())
	if out == "" {
		return "", nil
	}

	return out + "\n", nil
}

type formatter struct {
	b        strings.Builder
	indent   int
	src      []string
	comments *commentQueue

	// lastLine is the source line of the last thing written; fresh is set
	// right after an opening bracket, where blank lines are dropped.
	lastLine int
	fresh    bool
}

func (f *formatter) write(s string) {
	f.b.WriteString(s)
}

// newlineAt starts a new output line for content from source line, keeping
// one blank line if the source had any.
func (f *formatter) newlineAt(line int) {
	if !f.fresh && line > f.lastLine+1 {
		f.write("\n")
	}

	f.write("\n")
	f.write(strings.Repeat(indentUnit, f.indent))

	f.fresh = false
	f.lastLine = line
}

// leading writes the pending comments before pos, one per line.
func (f *formatter) leading(pos Position) {
	for _, c := range f.comments.before(pos) {
		f.newlineAt(c.Span.Start.Line)
		f.write(c.Text)
	}
}

// trailing appends a comment that follows on the same source line.
func (f *formatter) trailing(line int) {
	if c, ok := f.comments.on(line); ok {
		f.write(" ")
		f.write(c.Text)
	}

	f.lastLine = line
}

func (f *formatter) expr(n Node) {
	switch n := n.(type) {
	case *Object:
		f.object(n)
	case *Array:
		f.array(n)
	case *Lambda:
		f.lambda(n)
	case *Call:
		f.call(n)
	case *Reference:
		f.write(n.Path)
	case *Template, *Literal:
		f.write(f.text(n.Span()))
	}
}

// inline reports whether a bracketed node stays on one line.
func (f *formatter) inline(span Span) bool {
	return span.Start.Line == span.End.Line && !f.comments.within(span)
}

func (f *formatter) object(n *Object) {
	if len(n.Entries) == 0 && !f.comments.within(n.Span()) {
		f.write("{}")
		return
	}

	if f.inline(n.Span()) {
		f.write("{ ")

		for i, e := range n.Entries {
			if i > 0 {
				f.write(", ")
			}

			f.entry(e)
		}

		f.write(" }")

		return
	}

	f.open("{", n.Span().Start.Line)

	for _, e := range n.Entries {
		f.leading(e.Span().Start)
		f.newlineAt(e.Span().Start.Line)
		f.entry(e)
		f.trailing(e.Span().End.Line)
	}

	f.close("}", n.Span().End)
}

func (f *formatter) entry(e *Entry) {
	if e.Hidden {
		f.write("(" + e.Key + ")")
	} else {
		f.write(e.Key)
	}

	if e.Explicit {
		f.write(": ")
		f.expr(e.Value)
	}
}

func (f *formatter) array(n *Array) {
	if len(n.Items) == 0 && !f.comments.within(n.Span()) {
		f.write("[]")
		return
	}

	if f.inline(n.Span()) {
		f.write("[")

		for i, item := range n.Items {
			if i > 0 {
				f.write(", ")
			}

			f.expr(item)
		}

		f.write("]")

		return
	}

	f.open("[", n.Span().Start.Line)

	for _, item := range n.Items {
		f.leading(item.Span().Start)
		f.newlineAt(item.Span().Start.Line)
		f.expr(item)
		f.write(",")
		f.trailing(item.Span().End.Line)
	}

	f.close("]", n.Span().End)
}

func (f *formatter) open(bracket string, line int) {
	f.write(bracket)
	f.indent++
	f.fresh = true
	f.lastLine = line
}

func (f *formatter) close(bracket string, end Position) {
	f.leading(end)
	f.indent--
	f.fresh = true
	f.newlineAt(end.Line)
	f.write(bracket)
}

func (f *formatter) lambda(n *Lambda) {
	names := make([]string, len(n.Params))
	for i, p := range n.Params {
		names[i] = p.Name
	}

	f.write("(" + strings.Join(names, ", ") + ") => ")
	f.expr(n.Body)
}

func (f *formatter) call(n *Call) {
	// A lambda target needs its group back, or the arguments would bind to
	// its body.
	if _, ok := n.Target.(*Lambda); ok {
		f.write("(")
		f.expr(n.Target)
		f.write(")")
	} else {
		f.expr(n.Target)
	}

	for _, args := range n.Args {
		f.write("(")

		for i, arg := range args {
			if i > 0 {
				f.write(", ")
			}

			f.expr(arg)
		}

		f.write(")")
	}
}

// text returns the source covered by span.
func (f *formatter) text(span Span) string {
	var b strings.Builder

	for line := span.Start.Line; line <= span.End.Line && line <= len(f.src); line++ {
		runes := []rune(f.src[line-1])

		from, to := 0, len(runes)
		if line == span.Start.Line {
			from = min(span.Start.Column-1, len(runes))
		}

		if line == span.End.Line {
			to = min(span.End.Column-1, len(runes))
		}

		if line > span.Start.Line {
			b.WriteString("\n")
		}

		if from < to {
			b.WriteString(string(runes[from:to]))
		}
	}

	return b.String()
}
