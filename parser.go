package ori

import (
	"errors"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// oriLexer is the custom lexer for the language.
var oriLexer = newOriLexer()

// lambdas and parenthesised expressions share a prefix; the lookahead lets
// the parser back out of "(a, b" once it fails to find "=>".
const lookahead = 64

var parser = participle.MustBuild[grammarDocument](
	participle.Lexer(oriLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(lookahead),
)

// Parse parses source text into a syntax tree.
// An empty document yields a nil node and no error. Any other failure is a
// *SyntaxError. Parse is safe for concurrent use.
func Parse(text string) (Node, error) {
	doc, err := parser.ParseString("", text)
	if err != nil {
		return nil, syntaxError(err)
	}

	if doc.Body == nil {
		return nil, nil //nolint:nilnil // empty document
	}

	l := &lowerer{src: text}

	return l.expr(doc.Body), nil
}

// syntaxError converts a participle or lexer error into a *SyntaxError whose
// span covers the offending token.
func syntaxError(err error) *SyntaxError {
	var perr participle.Error
	if !errors.As(err, &perr) {
		return &SyntaxError{
			Span:    Span{Start: Position{Line: 1, Column: 1}, End: Position{Line: 1, Column: 1}},
			Message: err.Error(),
		}
	}

	start := Position{Line: perr.Position().Line, Column: perr.Position().Column}
	end := start

	var unexpected *participle.UnexpectedTokenError
	if errors.As(err, &unexpected) && !unexpected.Unexpected.EOF() {
		end = advance(start, unexpected.Unexpected.Value)
	}

	return &SyntaxError{
		Span:    Span{Start: start, End: end},
		Message: perr.Message(),
	}
}

// Grammar. These structs only describe syntax; Parse lowers them into the
// Node variants above.

type grammarDocument struct {
	Body *grammarExpr `parser:"@@?"`
}

type grammarExpr struct {
	Tokens []lexer.Token
	Lambda *grammarLambda `parser:"  @@"`
	Call   *grammarCall   `parser:"| @@"`
}

type grammarLambda struct {
	Tokens []lexer.Token
	Params []*grammarParam `parser:"'(' (@@ (',' @@)*)? ')' Arrow"`
	Body   *grammarExpr    `parser:"@@"`
}

type grammarParam struct {
	Tokens []lexer.Token
	Name   string `parser:"@Path"`
}

type grammarCall struct {
	Tokens []lexer.Token
	Target *grammarPrimary `parser:"@@"`
	Args   []*grammarArgs  `parser:"@@*"`
}

type grammarArgs struct {
	Args []*grammarExpr `parser:"CallParen (@@ (',' @@)*)? ')'"`
}

type grammarPrimary struct {
	Tokens   []lexer.Token
	Object   *grammarObject   `parser:"  @@"`
	Array    *grammarArray    `parser:"| @@"`
	Template *grammarTemplate `parser:"| @@"`
	String   *string          `parser:"| @String"`
	Number   *string          `parser:"| @Number"`
	Group    *grammarExpr     `parser:"| '(' @@ ')'"`
	Path     *string          `parser:"| @Path"`
}

type grammarObject struct {
	Tokens  []lexer.Token
	Entries []*grammarEntry `parser:"'{' (@@ (','? @@)* ','?)? '}'"`
}

type grammarEntry struct {
	Tokens []lexer.Token
	Key    *grammarKey  `parser:"@@"`
	Value  *grammarExpr `parser:"(Colon @@)?"`
}

type grammarKey struct {
	Hidden *string `parser:"  '(' @Path ')'"`
	Name   *string `parser:"| @Path"`
}

type grammarArray struct {
	Tokens []lexer.Token
	Items  []*grammarExpr `parser:"'[' (@@ (',' @@)* ','?)? ']'"`
}

type grammarTemplate struct {
	Tokens []lexer.Token
	Parts  []*grammarTemplatePart `parser:"Backtick @@* Backtick"`
}

type grammarTemplatePart struct {
	Tokens []lexer.Token
	Text   *string      `parser:"  @TemplateText"`
	Expr   *grammarExpr `parser:"| InterpStart @@ InterpEnd"`
}

// lowerer turns grammar structs into Nodes, computing spans from the tokens
// each struct matched.
type lowerer struct {
	src string
}

func (l *lowerer) expr(e *grammarExpr) Node {
	switch {
	case e.Lambda != nil:
		return l.lambda(e.Lambda)
	case e.Call != nil:
		return l.call(e.Call)
	default:
		return nil
	}
}

func (l *lowerer) lambda(g *grammarLambda) Node {
	n := &Lambda{NodeMeta: meta(g.Tokens)}
	for _, p := range g.Params {
		n.Params = append(n.Params, &Param{NodeMeta: meta(p.Tokens), Name: p.Name})
	}

	n.Body = l.expr(g.Body)

	return n
}

func (l *lowerer) call(g *grammarCall) Node {
	target := l.primary(g.Target)
	if len(g.Args) == 0 {
		return target
	}

	n := &Call{NodeMeta: meta(g.Tokens), Target: target}
	for _, args := range g.Args {
		list := make([]Node, 0, len(args.Args))
		for _, a := range args.Args {
			list = append(list, l.expr(a))
		}

		n.Args = append(n.Args, list)
	}

	return n
}

func (l *lowerer) primary(g *grammarPrimary) Node {
	m := meta(g.Tokens)

	switch {
	case g.Object != nil:
		return l.object(g.Object)
	case g.Array != nil:
		n := &Array{NodeMeta: meta(g.Array.Tokens)}
		for _, item := range g.Array.Items {
			n.Items = append(n.Items, l.expr(item))
		}

		return n
	case g.Template != nil:
		return l.template(g.Template)
	case g.String != nil:
		return &Literal{NodeMeta: m, Value: unquote(*g.String)}
	case g.Number != nil:
		f, err := strconv.ParseFloat(*g.Number, 64)
		if err != nil {
			return &Reference{NodeMeta: m, Path: *g.Number}
		}

		return &Literal{NodeMeta: m, Value: f}
	case g.Group != nil:
		return l.expr(g.Group)
	case g.Path != nil:
		return &Reference{NodeMeta: m, Path: *g.Path}
	default:
		return nil
	}
}

func (l *lowerer) object(g *grammarObject) Node {
	n := &Object{NodeMeta: meta(g.Tokens)}

	for _, ge := range g.Entries {
		e := &Entry{
			NodeMeta: meta(ge.Tokens),
			Source:   l.text(ge.Tokens),
		}

		switch {
		case ge.Key.Hidden != nil:
			e.Key = *ge.Key.Hidden
			e.Hidden = true
		case ge.Key.Name != nil:
			e.Key = *ge.Key.Name
		}

		if ge.Value != nil {
			e.Explicit = true
			e.Value = l.expr(ge.Value)
		} else {
			// Shorthand: the entry refers to the outside resource of the same name.
			e.Value = &Reference{NodeMeta: e.NodeMeta, Path: e.Key}
		}

		n.Entries = append(n.Entries, e)
	}

	return n
}

func (l *lowerer) template(g *grammarTemplate) Node {
	n := &Template{NodeMeta: meta(g.Tokens)}

	for _, part := range g.Parts {
		switch {
		case part.Text != nil:
			n.Parts = append(n.Parts, &Literal{
				NodeMeta: meta(part.Tokens),
				Value:    unescapeTemplate(*part.Text),
			})
		case part.Expr != nil:
			n.Parts = append(n.Parts, l.expr(part.Expr))
		}
	}

	return n
}

// text returns the source covered by the significant tokens.
func (l *lowerer) text(tokens []lexer.Token) string {
	first, last, ok := bounds(tokens)
	if !ok {
		return ""
	}

	return l.src[first.Pos.Offset : last.Pos.Offset+len(last.Value)]
}

func meta(tokens []lexer.Token) NodeMeta {
	first, last, ok := bounds(tokens)
	if !ok {
		return NodeMeta{}
	}

	start := Position{Line: first.Pos.Line, Column: first.Pos.Column}
	end := advance(Position{Line: last.Pos.Line, Column: last.Pos.Column}, last.Value)

	return NodeMeta{Pos: start, EndPos: end}
}

// bounds returns the first and last tokens that are not elided trivia.
func bounds(tokens []lexer.Token) (lexer.Token, lexer.Token, bool) {
	var first, last lexer.Token

	found := false

	for _, tok := range tokens {
		if tok.Type == TokenWhitespace || tok.Type == TokenComment || tok.EOF() {
			continue
		}

		if !found {
			first = tok
			found = true
		}

		last = tok
	}

	return first, last, found
}

// advance returns the position just past text starting at pos.
func advance(pos Position, text string) Position {
	for _, r := range text {
		if r == '\n' {
			pos.Line++
			pos.Column = 1
		} else {
			pos.Column++
		}
	}

	return pos
}

func unquote(s string) string {
	if len(s) < 2 { //nolint:mnd // opening and closing quote
		return s
	}

	return unescape(s[1:len(s)-1], "\"'")
}

func unescapeTemplate(s string) string {
	return unescape(s, "`$")
}

func unescape(s, literal string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}

	var b strings.Builder

	escaped := false

	for _, r := range s {
		if !escaped {
			if r == '\\' {
				escaped = true
			} else {
				b.WriteRune(r)
			}

			continue
		}

		escaped = false

		switch {
		case r == 'n':
			b.WriteRune('\n')
		case r == 't':
			b.WriteRune('\t')
		case r == '\\' || strings.ContainsRune(literal, r):
			b.WriteRune(r)
		default:
			b.WriteRune('\\')
			b.WriteRune(r)
		}
	}

	return b.String()
}
