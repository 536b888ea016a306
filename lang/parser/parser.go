// Package parser turns a token stream into an AST: a recursive-descent
// statement parser driving a shunting-yard expression parser with
// explicit operand/operator stacks, following the reference parser's
// resolve_expr_stack algorithm precisely.
package parser

import (
	"fmt"

	"github.com/mna/corvid/lang/ast"
	"github.com/mna/corvid/lang/lexer"
	"github.com/mna/corvid/lang/token"
)

// maxParams bounds the number of parameters a function declaration may
// list, matching the reference parser's cap.
const maxParams = 64

// Error is a syntax error: a source position and a human-readable message,
// including an expected-token hint where one is available.
type Error struct {
	Pos token.Pos
	Msg string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Pos, e.Msg) }

// Parser drives a Lexer to build a Chunk.
type Parser struct {
	lex *lexer.Lexer
}

// New returns a Parser reading tokens from lex.
func New(lex *lexer.Lexer) *Parser {
	return &Parser{lex: lex}
}

// Parse consumes the entire token stream (including any transitively
// included sources) and returns the resulting Chunk: the combined list of
// named functions in file/include order.
func (p *Parser) Parse() (*ast.Chunk, error) {
	chunk := &ast.Chunk{}
	for {
		tok, err := p.lex.Next()
		if err != nil {
			return nil, wrap(err)
		}
		if tok.Kind == token.EOF {
			return chunk, nil
		}
		if tok.Kind != token.FUNCTION {
			return nil, &Error{Pos: tok.Pos, Msg: fmt.Sprintf("unexpected '%s'", describe(tok))}
		}
		fn, err := p.parseFuncDecl(tok.Pos)
		if err != nil {
			return nil, err
		}
		chunk.Funcs = append(chunk.Funcs, fn)
	}
}

func wrap(err error) error {
	if le, ok := err.(*lexer.Error); ok {
		return &Error{Pos: le.Pos, Msg: le.Msg}
	}
	return err
}

func describe(t token.Token) string {
	switch t.Kind {
	case token.IDENT, token.OP:
		return t.Value.String
	case token.STRING:
		return fmt.Sprintf("%q", t.Value.String)
	default:
		return t.Kind.String()
	}
}

func (p *Parser) next() (token.Token, error) {
	t, err := p.lex.Next()
	return t, wrap(err)
}

func (p *Parser) expect(k token.Kind) (token.Token, error) {
	t, err := p.next()
	if err != nil {
		return t, err
	}
	if t.Kind != k {
		return t, &Error{Pos: t.Pos, Msg: fmt.Sprintf("expected %s, got '%s'", k, describe(t))}
	}
	return t, nil
}

func (p *Parser) parseFuncDecl(at token.Pos) (*ast.FuncDecl, error) {
	name, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.FuncDecl{NamePos: at, Name: name.Value.String, Params: params, Body: body}, nil
}

func (p *Parser) parseParams() ([]string, error) {
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	var params []string
	for {
		t, err := p.next()
		if err != nil {
			return nil, err
		}
		if t.Kind == token.RPAREN {
			return params, nil
		}
		if len(params) > 0 {
			if t.Kind != token.COMMA {
				return nil, &Error{Pos: t.Pos, Msg: fmt.Sprintf("expected ',' or ')', got '%s'", describe(t))}
			}
			t, err = p.next()
			if err != nil {
				return nil, err
			}
		}
		if t.Kind != token.IDENT {
			return nil, &Error{Pos: t.Pos, Msg: fmt.Sprintf("expected parameter name, got '%s'", describe(t))}
		}
		if len(params) >= maxParams {
			return nil, &Error{Pos: t.Pos, Msg: "too many parameters"}
		}
		params = append(params, t.Value.String)
	}
}

func (p *Parser) parseBlock() (*ast.Block, error) {
	lb, err := p.expect(token.LBRACE)
	if err != nil {
		return nil, err
	}
	b := &ast.Block{LBrace: lb.Pos}
	for {
		t, err := p.next()
		if err != nil {
			return nil, err
		}
		if t.Kind == token.RBRACE {
			return b, nil
		}
		p.lex.Unget(t)
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		b.Stmts = append(b.Stmts, stmt)
	}
}
