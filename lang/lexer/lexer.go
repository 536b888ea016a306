// Package lexer tokenizes corvid source text, one token at a time, with
// an include stack that lets "include" directives transparently splice in
// additional source files. It is a direct, byte-at-a-time port of the
// reference tokenizer's algorithm (whitespace/comment skipping, string
// escape handling, greedy multi-character operator matching).
package lexer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mna/corvid/lang/operator"
	"github.com/mna/corvid/lang/token"
)

// Error is a lexical error: an invalid byte, unterminated string, bad
// escape sequence, invalid UTF-8 in a string literal, or invalid number.
type Error struct {
	Pos token.Pos
	Msg string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Pos, e.Msg) }

// Source is one entry in the include stack: the bytes being scanned, the
// file id they were registered under, and the current scan position.
type source struct {
	file token.FileID
	src  string
	off  int
	line uint32
	col  uint32
}

// Includer resolves an "include" directive's literal path (relative to
// the including file) to the source text to splice in, and assigns it a
// FileID.
type Includer interface {
	// Resolve returns the text of the file named by path, resolved
	// relative to fromFile, along with the FileID to tag its tokens with.
	Resolve(fromFile token.FileID, path string) (text string, id token.FileID, err error)
}

// Lexer produces a stream of tokens from one or more nested sources.
type Lexer struct {
	stack    []*source
	includer Includer
	pending  *token.Token // single-token pushback
}

// New returns a Lexer reading src as the entry source, tagged FileID 0.
// includer may be nil if the source contains no include directives.
func New(src string, includer Includer) *Lexer {
	return &Lexer{
		stack:    []*source{{file: 0, src: src, line: 1, col: 1}},
		includer: includer,
	}
}

func (l *Lexer) cur() *source { return l.stack[len(l.stack)-1] }

// Unget pushes back a single token so the next Next call returns it again.
func (l *Lexer) Unget(t token.Token) {
	l.pending = &t
}

// Next scans and returns the next token, transparently handling include
// directives by pushing a new source and continuing, and popping back to
// the enclosing source on nested EOF.
func (l *Lexer) Next() (token.Token, error) {
	if l.pending != nil {
		t := *l.pending
		l.pending = nil
		return t, nil
	}
	for {
		t, err := l.scanOne()
		if err != nil {
			return token.Token{}, err
		}
		if t.Kind == token.EOF && len(l.stack) > 1 {
			l.stack = l.stack[:len(l.stack)-1]
			continue
		}
		if t.Kind == token.INCLUDE {
			if err := l.processInclude(t.Pos); err != nil {
				return token.Token{}, err
			}
			continue
		}
		return t, nil
	}
}

func (l *Lexer) processInclude(at token.Pos) error {
	tok, err := l.scanOne()
	if err != nil {
		return err
	}
	if tok.Kind != token.STRING {
		return &Error{Pos: tok.Pos, Msg: "expected string after 'include'"}
	}
	if l.includer == nil {
		return &Error{Pos: at, Msg: "include not supported in this context"}
	}
	text, id, err := l.includer.Resolve(l.cur().file, tok.Value.String)
	if err != nil {
		return &Error{Pos: tok.Pos, Msg: err.Error()}
	}
	l.stack = append(l.stack, &source{file: id, src: text, line: 1, col: 1})
	return nil
}

func (s *source) peek() (rune, int) {
	if s.off >= len(s.src) {
		return -1, 0
	}
	r, n := utf8.DecodeRuneInString(s.src[s.off:])
	return r, n
}

func (s *source) pos() token.Pos { return token.Pos{File: s.file, Line: s.line, Col: s.col} }

func (s *source) advance() rune {
	r, n := s.peek()
	if r < 0 {
		return -1
	}
	s.off += n
	if r == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return r
}

func isAlpha(r rune) bool  { return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') }
func isDigit(r rune) bool  { return r >= '0' && r <= '9' }
func isAlnum(r rune) bool  { return isAlpha(r) || isDigit(r) }
func isPunct(r rune) bool  { return strings.ContainsRune(",.;:()[]{}", r) }

var punctKinds = map[rune]token.Kind{
	',': token.COMMA, '.': token.DOT, ';': token.SEMI, ':': token.COLON,
	'(': token.LPAREN, ')': token.RPAREN, '[': token.LBRACK, ']': token.RBRACK,
	'{': token.LBRACE, '}': token.RBRACE,
}

func (l *Lexer) scanOne() (token.Token, error) {
	s := l.cur()
	for {
		r, _ := s.peek()
		if r == ' ' || r == '\t' || r == '\r' || r == '\n' {
			s.advance()
			continue
		}
		if r == '#' {
			for {
				r, _ := s.peek()
				if r < 0 || r == '\n' {
					break
				}
				s.advance()
			}
			continue
		}
		break
	}

	start := s.pos()
	r, _ := s.peek()
	switch {
	case r < 0:
		return token.Token{Kind: token.EOF, Pos: start}, nil
	case isAlpha(r):
		return l.scanIdent(s, start)
	case isDigit(r):
		return l.scanNumber(s, start)
	case r == '"' || r == '\'':
		return l.scanString(s, start, r)
	case isPunct(r):
		s.advance()
		return token.Token{Kind: punctKinds[r], Pos: start}, nil
	default:
		return l.scanOperator(s, start)
	}
}

func (l *Lexer) scanIdent(s *source, start token.Pos) (token.Token, error) {
	var b strings.Builder
	for {
		r, _ := s.peek()
		if !isAlnum(r) {
			break
		}
		b.WriteRune(r)
		s.advance()
	}
	name := b.String()
	if kw, ok := token.Keywords[name]; ok {
		return token.Token{Kind: kw, Pos: start, Value: token.Value{String: name}}, nil
	}
	return token.Token{Kind: token.IDENT, Pos: start, Value: token.Value{String: name}}, nil
}

func (l *Lexer) scanNumber(s *source, start token.Pos) (token.Token, error) {
	var b strings.Builder
	seenDot := false
	for {
		r, _ := s.peek()
		if isDigit(r) {
			b.WriteRune(r)
			s.advance()
			continue
		}
		if r == '.' && !seenDot {
			seenDot = true
			b.WriteRune(r)
			s.advance()
			continue
		}
		break
	}
	n, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return token.Token{}, &Error{Pos: start, Msg: "invalid number"}
	}
	return token.Token{Kind: token.NUMBER, Pos: start, Value: token.Value{Number: n}}, nil
}

func (l *Lexer) scanString(s *source, start token.Pos, quote rune) (token.Token, error) {
	s.advance() // opening quote
	var b strings.Builder
	for {
		r, n := s.peek()
		if r < 0 {
			return token.Token{}, &Error{Pos: start, Msg: "unterminated string"}
		}
		if r == utf8.RuneError && n == 1 {
			return token.Token{}, &Error{Pos: start, Msg: "invalid utf-8 string"}
		}
		if r == quote {
			s.advance()
			break
		}
		if r == '\\' {
			s.advance()
			esc, _ := s.peek()
			var ch rune
			switch esc {
			case 'n':
				ch = '\n'
			case 'r':
				ch = '\r'
			case 't':
				ch = '\t'
			case '\\':
				ch = '\\'
			case '"':
				ch = '"'
			case '\'':
				ch = '\''
			case 'e':
				ch = 0x1b
			default:
				return token.Token{}, &Error{Pos: s.pos(), Msg: "bad escape sequence"}
			}
			b.WriteRune(ch)
			s.advance()
			continue
		}
		b.WriteRune(r)
		s.advance()
	}
	str := b.String()
	if !utf8.ValidString(str) {
		return token.Token{}, &Error{Pos: start, Msg: "invalid utf-8 string"}
	}
	return token.Token{Kind: token.STRING, Pos: start, Value: token.Value{String: str}}, nil
}

// scanOperator greedily matches up to operator.MaxOpLen characters against
// the operator table (plus the assignment "=", which is not in the table),
// ungetting the trailing bytes that don't extend a match, matching the
// reference tokenizer's approach of growing the candidate spelling while
// fh_get_op still matches.
func (l *Lexer) scanOperator(s *source, start token.Pos) (token.Token, error) {
	var cand strings.Builder
	var lastMatch string
	saved := *s
	for i := 0; i < operator.MaxOpLen; i++ {
		r, _ := s.peek()
		if r < 0 {
			break
		}
		s.advance()
		cand.WriteRune(r)
		if _, ok := operator.Get(cand.String()); ok || cand.String() == "=" {
			lastMatch = cand.String()
			saved = *s
		}
	}
	if lastMatch == "" {
		r, _ := saved.peek()
		if r >= 0x20 && r < 0x7f {
			return token.Token{}, &Error{Pos: start, Msg: fmt.Sprintf("invalid character '%c'", r)}
		}
		return token.Token{}, &Error{Pos: start, Msg: fmt.Sprintf("invalid byte: 0x%02x", r)}
	}
	*s = saved
	return token.Token{Kind: token.OP, Pos: start, Value: token.Value{String: lastMatch}}, nil
}
