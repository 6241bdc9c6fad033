// Package lexer tokenizes speck spec documents.
//
// The lexer only understands the structural surface of the DSL: identifiers,
// string literals, braces, and parentheses. Statement bodies between braces
// are never tokenized; the parser asks for them as opaque spans via
// CaptureBody so their contents pass through the compiler verbatim.
package lexer

import (
	"fmt"
	"strconv"
	"unicode"
	"unicode/utf8"
)

// Kind identifies a token class.
type Kind int

const (
	TokEOF Kind = iota
	TokIdent
	TokString
	TokLBrace
	TokRBrace
	TokLParen
	TokRParen
)

func (k Kind) String() string {
	switch k {
	case TokEOF:
		return "end of input"
	case TokIdent:
		return "identifier"
	case TokString:
		return "string"
	case TokLBrace:
		return "'{'"
	case TokRBrace:
		return "'}'"
	case TokLParen:
		return "'('"
	case TokRParen:
		return "')'"
	default:
		return "unknown token"
	}
}

// Pos is a 1-based source position.
type Pos struct {
	Line   int
	Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token is a single lexed token. Text holds the identifier spelling or the
// unquoted string value; it is empty for punctuation.
type Token struct {
	Kind Kind
	Text string
	Pos  Pos
}

// Body is an opaque statement span captured between balanced braces.
type Body struct {
	Text string
	Pos  Pos
}

// TokenStream is the surface the parser consumes. Any source of structural
// tokens that can also surrender raw body spans satisfies it.
type TokenStream interface {
	// Next returns the next structural token, or an error for input the
	// lexer cannot tokenize (unterminated string, stray character).
	Next() (Token, error)
	// CaptureBody consumes source up to and including the brace that closes
	// the body whose opening brace was already consumed, and returns the
	// span between the braces verbatim.
	CaptureBody() (Body, error)
}

// Lexer tokenizes a speck document held in memory.
type Lexer struct {
	src    []byte
	offset int
	line   int
	col    int
}

// New returns a Lexer positioned at the start of src.
func New(src []byte) *Lexer {
	return &Lexer{src: src, line: 1, col: 1}
}

func (l *Lexer) pos() Pos {
	return Pos{Line: l.line, Column: l.col}
}

func (l *Lexer) peekByte() (byte, bool) {
	if l.offset >= len(l.src) {
		return 0, false
	}
	return l.src[l.offset], true
}

func (l *Lexer) advance() byte {
	ch := l.src[l.offset]
	l.offset++
	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch
}

// skipTrivia consumes whitespace and comments between structural tokens.
func (l *Lexer) skipTrivia() error {
	for {
		ch, ok := l.peekByte()
		if !ok {
			return nil
		}
		switch {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			l.advance()
		case ch == '/':
			if l.offset+1 >= len(l.src) || (l.src[l.offset+1] != '/' && l.src[l.offset+1] != '*') {
				return fmt.Errorf("lexer: stray '/' at %s", l.pos())
			}
			if err := l.skipComment(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// skipSpace consumes whitespace only, leaving comments in place.
func (l *Lexer) skipSpace() {
	for {
		ch, ok := l.peekByte()
		if !ok || (ch != ' ' && ch != '\t' && ch != '\r' && ch != '\n') {
			return
		}
		l.advance()
	}
}

// skipComment consumes exactly one comment. The caller has already checked
// that one opens at the current offset.
func (l *Lexer) skipComment() error {
	start := l.pos()
	l.advance()
	if l.src[l.offset] == '*' {
		l.advance()
		return l.skipBlockComment(start)
	}
	for {
		ch, ok := l.peekByte()
		if !ok || ch == '\n' {
			return nil
		}
		l.advance()
	}
}

func (l *Lexer) skipBlockComment(start Pos) error {
	for l.offset+1 < len(l.src) {
		if l.src[l.offset] == '*' && l.src[l.offset+1] == '/' {
			l.advance()
			l.advance()
			return nil
		}
		l.advance()
	}
	return fmt.Errorf("lexer: unterminated block comment at %s", start)
}

// Next implements TokenStream.
func (l *Lexer) Next() (Token, error) {
	if err := l.skipTrivia(); err != nil {
		return Token{}, err
	}
	start := l.pos()
	ch, ok := l.peekByte()
	if !ok {
		return Token{Kind: TokEOF, Pos: start}, nil
	}
	switch ch {
	case '{':
		l.advance()
		return Token{Kind: TokLBrace, Pos: start}, nil
	case '}':
		l.advance()
		return Token{Kind: TokRBrace, Pos: start}, nil
	case '(':
		l.advance()
		return Token{Kind: TokLParen, Pos: start}, nil
	case ')':
		l.advance()
		return Token{Kind: TokRParen, Pos: start}, nil
	case '"':
		return l.lexString(start)
	}
	r, _ := utf8.DecodeRune(l.src[l.offset:])
	if r == '_' || unicode.IsLetter(r) {
		return l.lexIdent(start), nil
	}
	return Token{}, fmt.Errorf("lexer: unexpected character %q at %s", r, start)
}

func (l *Lexer) lexIdent(start Pos) Token {
	begin := l.offset
	for l.offset < len(l.src) {
		r, size := utf8.DecodeRune(l.src[l.offset:])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		// Identifier runes never include newlines, so column tracking is a
		// plain per-rune increment.
		l.offset += size
		l.col++
	}
	return Token{Kind: TokIdent, Text: string(l.src[begin:l.offset]), Pos: start}
}

func (l *Lexer) lexString(start Pos) (Token, error) {
	begin := l.offset
	l.advance() // opening quote
	for {
		ch, ok := l.peekByte()
		if !ok || ch == '\n' {
			return Token{}, fmt.Errorf("lexer: unterminated string at %s", start)
		}
		if ch == '\\' {
			l.advance()
			if _, ok := l.peekByte(); !ok {
				return Token{}, fmt.Errorf("lexer: unterminated string at %s", start)
			}
			l.advance()
			continue
		}
		if ch == '"' {
			l.advance()
			break
		}
		l.advance()
	}
	raw := string(l.src[begin:l.offset])
	value, err := strconv.Unquote(raw)
	if err != nil {
		return Token{}, fmt.Errorf("lexer: malformed string %s at %s: %w", raw, start, err)
	}
	return Token{Kind: TokString, Text: value, Pos: start}, nil
}

// CaptureBody implements TokenStream. It assumes the opening brace was
// already consumed and scans for the matching close brace while tracking
// nested braces, string/rune/backquote literals, and both comment forms so
// that braces inside them do not end the span. Comments are part of the
// span; only surrounding whitespace is trimmed.
func (l *Lexer) CaptureBody() (Body, error) {
	l.skipSpace()
	start := l.pos()
	begin := l.offset
	end := l.offset
	depth := 1
	for {
		ch, ok := l.peekByte()
		if !ok {
			return Body{}, fmt.Errorf("lexer: unterminated body at %s", start)
		}
		switch ch {
		case '{':
			depth++
			l.advance()
		case '}':
			depth--
			if depth == 0 {
				l.advance()
				return Body{Text: trimTrailingSpace(string(l.src[begin:end])), Pos: start}, nil
			}
			l.advance()
		case '"', '\'', '`':
			if err := l.skipLiteral(ch); err != nil {
				return Body{}, err
			}
		case '/':
			if l.offset+1 < len(l.src) && (l.src[l.offset+1] == '/' || l.src[l.offset+1] == '*') {
				if err := l.skipComment(); err != nil {
					return Body{}, err
				}
			} else {
				l.advance()
			}
		default:
			l.advance()
		}
		end = l.offset
	}
}

// skipLiteral consumes a quoted literal opened by quote. Backquoted strings
// take no escapes; the other forms honor backslash escapes.
func (l *Lexer) skipLiteral(quote byte) error {
	start := l.pos()
	l.advance()
	for {
		ch, ok := l.peekByte()
		if !ok {
			return fmt.Errorf("lexer: unterminated literal at %s", start)
		}
		if quote != '`' && ch == '\\' {
			l.advance()
			if _, ok := l.peekByte(); !ok {
				return fmt.Errorf("lexer: unterminated literal at %s", start)
			}
			l.advance()
			continue
		}
		if quote != '`' && ch == '\n' {
			return fmt.Errorf("lexer: unterminated literal at %s", start)
		}
		l.advance()
		if ch == quote {
			return nil
		}
	}
}

func trimTrailingSpace(s string) string {
	end := len(s)
	for end > 0 {
		switch s[end-1] {
		case ' ', '\t', '\r', '\n':
			end--
		default:
			return s[:end]
		}
	}
	return s[:end]
}
