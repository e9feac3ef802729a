package ori

// Comment is a line comment, from # to the end of the line.
type Comment struct {
	Span Span
	Text string
}

// Comments returns the comments of text in source order. Lexing stops at the
// first error; the comments before it are still returned.
func Comments(text string) []Comment {
	l := newLexerState("", text)

	var comments []Comment

	for {
		tok, err := l.Next()
		if err != nil || tok.EOF() {
			return comments
		}

		if tok.Type != TokenComment {
			continue
		}

		start := Position{Line: tok.Pos.Line, Column: tok.Pos.Column}
		comments = append(comments, Comment{
			Span: Span{Start: start, End: advance(start, tok.Value)},
			Text: tok.Value,
		})
	}
}

// commentQueue hands out comments in order as the formatter reaches them.
type commentQueue struct {
	all  []Comment
	next int
}

// before removes and returns the pending comments that start before pos.
func (q *commentQueue) before(pos Position) []Comment {
	start := q.next

	for q.next < len(q.all) && less(q.all[q.next].Span.Start, pos) {
		q.next++
	}

	return q.all[start:q.next]
}

// on removes and returns the next comment if it starts on line.
func (q *commentQueue) on(line int) (Comment, bool) {
	if q.next < len(q.all) && q.all[q.next].Span.Start.Line == line {
		q.next++
		return q.all[q.next-1], true
	}

	return Comment{}, false
}

// rest removes and returns every pending comment.
func (q *commentQueue) rest() []Comment {
	rest := q.all[q.next:]
	q.next = len(q.all)

	return rest
}

// within reports whether any comment, pending or not, lies inside span.
func (q *commentQueue) within(span Span) bool {
	for _, c := range q.all {
		if span.Contains(c.Span.Start) {
			return true
		}
	}

	return false
}

func less(a, b Position) bool {
	return a.Line < b.Line || (a.Line == b.Line && a.Column < b.Column)
}
