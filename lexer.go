package ori

import (
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2/lexer"
)

// Token type constants - negative values as per participle convention.
const (
	TokenEOF          lexer.TokenType = lexer.EOF
	TokenComment      lexer.TokenType = -(iota + 2) //nolint:mnd // participle convention
	TokenWhitespace                                 // spaces, tabs, newlines
	TokenPath                                       // identifiers, paths and URLs
	TokenNumber                                     // 1, 2.5
	TokenString                                     // quoted strings
	TokenArrow                                      // =>
	TokenColon                                      // :
	TokenComma                                      // ,
	TokenLParen                                     // (
	TokenCallParen                                  // ( directly after an operand, opening arguments
	TokenRParen                                     // )
	TokenLBracket                                   // [
	TokenRBracket                                   // ]
	TokenLBrace                                     // {
	TokenRBrace                                     // }
	TokenBacktick                                   // ` opening or closing a template
	TokenTemplateText                               // literal text inside a template
	TokenInterpStart                                // ${
	TokenInterpEnd                                  // } closing a substitution
)

// Lexer errors.
var (
	ErrUnterminatedString   = &LexerError{msg: "unterminated string"}
	ErrUnterminatedTemplate = &LexerError{msg: "unterminated template"}
	ErrUnexpectedCharacter  = &LexerError{msg: "unexpected character"}
)

// LexerError represents a lexer error with position.
// It satisfies participle.Error so parse failures report a location.
type LexerError struct {
	msg string
	pos lexer.Position
	ch  rune
}

func (e *LexerError) Error() string {
	return e.pos.String() + ": " + e.Message()
}

// Message returns the error message without the position prefix.
func (e *LexerError) Message() string {
	if e.ch != 0 {
		return e.msg + ": " + string(e.ch)
	}

	return e.msg
}

// Position returns where the error occurred.
func (e *LexerError) Position() lexer.Position {
	return e.pos
}

func (e *LexerError) withPos(pos lexer.Position) *LexerError {
	return &LexerError{msg: e.msg, pos: pos, ch: e.ch}
}

func (e *LexerError) withChar(ch rune) *LexerError {
	return &LexerError{msg: e.msg, pos: e.pos, ch: ch}
}

// oriDefinition implements lexer.Definition for the language.
type oriDefinition struct {
	symbols map[string]lexer.TokenType
}

func newOriLexer() *oriDefinition {
	return &oriDefinition{
		symbols: map[string]lexer.TokenType{
			"EOF":          TokenEOF,
			"Comment":      TokenComment,
			"Whitespace":   TokenWhitespace,
			"Path":         TokenPath,
			"Number":       TokenNumber,
			"String":       TokenString,
			"Arrow":        TokenArrow,
			"Colon":        TokenColon,
			"Comma":        TokenComma,
			"Backtick":     TokenBacktick,
			"TemplateText": TokenTemplateText,
			"InterpStart":  TokenInterpStart,
			"InterpEnd":    TokenInterpEnd,
			"CallParen":    TokenCallParen,
			"(":            TokenLParen,
			")":            TokenRParen,
			"[":            TokenLBracket,
			"]":            TokenRBracket,
			"{":            TokenLBrace,
			"}":            TokenRBrace,
		},
	}
}

// Lexer returns the lexer definition the parser uses.
//
//nolint:ireturn // participle consumers expect the interface.
func Lexer() lexer.Definition {
	return oriLexer
}

// Symbols returns the mapping of symbol names to token types.
func (d *oriDefinition) Symbols() map[string]lexer.TokenType {
	return d.symbols
}

// Lex creates a new Lexer for the given reader.
//
//nolint:ireturn // Required by participle's lexer.Definition interface.
func (d *oriDefinition) Lex(filename string, r io.Reader) (lexer.Lexer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	return newLexerState(filename, string(data)), nil
}

// LexString implements lexer.StringDefinition.
//
//nolint:ireturn // Required by participle's lexer.StringDefinition interface.
func (d *oriDefinition) LexString(filename string, input string) (lexer.Lexer, error) {
	return newLexerState(filename, input), nil
}

// lexMode is one frame of the template nesting stack. A template frame lexes
// literal text; an interpolation frame lexes ordinary tokens and counts braces
// so the closing } of ${ ... } can be told apart from an object's.
type lexMode struct {
	template bool
	depth    int
}

type lexerState struct {
	filename string
	input    string
	offset   int
	line     int
	col      int
	modes    []lexMode
	// operand is set when the last token ended an operand, so an adjacent
	// ( applies it rather than starting a new expression.
	operand bool
}

func newLexerState(filename, input string) *lexerState {
	return &lexerState{
		filename: filename,
		input:    input,
		line:     1,
		col:      1,
	}
}

// Next returns the next token.
func (l *lexerState) Next() (lexer.Token, error) {
	depth := len(l.modes)

	tok, err := l.next()
	if err != nil {
		return tok, err
	}

	switch tok.Type {
	case TokenPath, TokenNumber, TokenString, TokenRParen, TokenRBracket, TokenRBrace:
		l.operand = true
	case TokenBacktick:
		// Only the closing backtick leaves the template frame.
		l.operand = len(l.modes) < depth
	default:
		l.operand = false
	}

	return tok, nil
}

func (l *lexerState) next() (lexer.Token, error) {
	if mode := l.mode(); mode != nil && mode.template {
		return l.nextInTemplate()
	}

	if l.eof() {
		return lexer.EOFToken(l.pos()), nil
	}

	start := l.pos()
	r := l.peek()

	if isSpace(r) {
		for !l.eof() && isSpace(l.peek()) {
			l.advance()
		}

		return l.token(TokenWhitespace, start), nil
	}

	if r == '#' {
		for !l.eof() && l.peek() != '\n' {
			l.advance()
		}

		return l.token(TokenComment, start), nil
	}

	if r == '"' || r == '\'' {
		return l.scanString(start, r)
	}

	if r == '=' && l.peekAt(1) == '>' {
		l.advance()
		l.advance()

		return l.token(TokenArrow, start), nil
	}

	if isPathChar(r) {
		return l.scanPath(start), nil
	}

	l.advance()

	switch r {
	case '`':
		l.modes = append(l.modes, lexMode{template: true})
		return l.token(TokenBacktick, start), nil
	case ':':
		return l.token(TokenColon, start), nil
	case ',':
		return l.token(TokenComma, start), nil
	case '(':
		if l.operand {
			return l.token(TokenCallParen, start), nil
		}

		return l.token(TokenLParen, start), nil
	case ')':
		return l.token(TokenRParen, start), nil
	case '[':
		return l.token(TokenLBracket, start), nil
	case ']':
		return l.token(TokenRBracket, start), nil
	case '{':
		if mode := l.mode(); mode != nil {
			mode.depth++
		}

		return l.token(TokenLBrace, start), nil
	case '}':
		if mode := l.mode(); mode != nil {
			if mode.depth == 0 {
				l.pop()
				return l.token(TokenInterpEnd, start), nil
			}

			mode.depth--
		}

		return l.token(TokenRBrace, start), nil
	}

	return lexer.Token{}, ErrUnexpectedCharacter.withPos(start).withChar(r)
}

func (l *lexerState) nextInTemplate() (lexer.Token, error) {
	start := l.pos()

	if l.eof() {
		return lexer.Token{}, ErrUnterminatedTemplate.withPos(start)
	}

	if l.peek() == '`' {
		l.advance()
		l.pop()

		return l.token(TokenBacktick, start), nil
	}

	if l.match("${") {
		l.advance()
		l.advance()
		l.modes = append(l.modes, lexMode{})

		return l.token(TokenInterpStart, start), nil
	}

	for !l.eof() && l.peek() != '`' && !l.match("${") {
		if l.peek() == '\\' {
			l.advance()
		}

		l.advance()
	}

	return l.token(TokenTemplateText, start), nil
}

// mode returns the innermost template frame, or nil at the top level.
func (l *lexerState) mode() *lexMode {
	if len(l.modes) == 0 {
		return nil
	}

	return &l.modes[len(l.modes)-1]
}

func (l *lexerState) pop() {
	l.modes = l.modes[:len(l.modes)-1]
}

func (l *lexerState) pos() lexer.Position {
	return lexer.Position{
		Filename: l.filename,
		Offset:   l.offset,
		Line:     l.line,
		Column:   l.col,
	}
}

func (l *lexerState) eof() bool {
	return l.offset >= len(l.input)
}

func (l *lexerState) peek() rune {
	if l.eof() {
		return 0
	}

	r, _ := utf8.DecodeRuneInString(l.input[l.offset:])

	return r
}

func (l *lexerState) peekAt(n int) rune {
	off := l.offset + n
	if off >= len(l.input) {
		return 0
	}

	r, _ := utf8.DecodeRuneInString(l.input[off:])

	return r
}

func (l *lexerState) advance() {
	if l.eof() {
		return
	}

	r, size := utf8.DecodeRuneInString(l.input[l.offset:])
	l.offset += size

	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

func (l *lexerState) match(s string) bool {
	return strings.HasPrefix(l.input[l.offset:], s)
}

func (l *lexerState) token(typ lexer.TokenType, start lexer.Position) lexer.Token {
	return lexer.Token{
		Type:  typ,
		Value: l.input[start.Offset:l.offset],
		Pos:   start,
	}
}

func (l *lexerState) scanString(start lexer.Position, quote rune) (lexer.Token, error) {
	l.advance() // opening quote

	for !l.eof() {
		r := l.peek()

		switch r {
		case '\\':
			l.advance()
			l.advance()
		case quote:
			l.advance()
			return l.token(TokenString, start), nil
		case '\n':
			return lexer.Token{}, ErrUnterminatedString.withPos(start)
		default:
			l.advance()
		}
	}

	return lexer.Token{}, ErrUnterminatedString.withPos(start)
}

// scanPath consumes a run of path characters. A colon only continues the
// path when it introduces "//", so URLs lex as a single token while
// "key: value" still splits at the colon.
func (l *lexerState) scanPath(start lexer.Position) lexer.Token {
	for !l.eof() {
		r := l.peek()
		if isPathChar(r) {
			l.advance()
			continue
		}

		if r == ':' && l.match("://") {
			l.advance()
			l.advance()
			l.advance()

			continue
		}

		break
	}

	tok := l.token(TokenPath, start)
	if isNumber(tok.Value) {
		tok.Type = TokenNumber
	}

	return tok
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func isPathChar(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}

	return strings.ContainsRune("_.-/~@$+%!?*&^|", r)
}

func isNumber(s string) bool {
	dots := 0

	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.' && i > 0 && i < len(s)-1:
			dots++
		default:
			return false
		}
	}

	return dots <= 1
}
