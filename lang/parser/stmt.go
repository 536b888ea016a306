package parser

import (
	"fmt"

	"github.com/mna/corvid/lang/ast"
	"github.com/mna/corvid/lang/token"
)

func (p *Parser) parseStmt() (ast.Stmt, error) {
	t, err := p.next()
	if err != nil {
		return nil, err
	}
	switch t.Kind {
	case token.SEMI:
		return &ast.EmptyStmt{At: t.Pos}, nil
	case token.LBRACE:
		p.lex.Unget(t)
		return p.parseBlock()
	case token.VAR:
		return p.parseVarDecl(t.Pos)
	case token.IF:
		return p.parseIf(t.Pos)
	case token.WHILE:
		return p.parseWhile(t.Pos)
	case token.BREAK:
		if _, err := p.expect(token.SEMI); err != nil {
			return nil, err
		}
		return &ast.BreakStmt{At: t.Pos}, nil
	case token.CONTINUE:
		if _, err := p.expect(token.SEMI); err != nil {
			return nil, err
		}
		return &ast.ContinueStmt{At: t.Pos}, nil
	case token.RETURN:
		return p.parseReturn(t.Pos)
	default:
		p.lex.Unget(t)
		return p.parseExprStmt()
	}
}

func (p *Parser) parseVarDecl(at token.Pos) (ast.Stmt, error) {
	name, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	decl := &ast.VarDeclStmt{At: at, Name: name.Value.String}
	t, err := p.next()
	if err != nil {
		return nil, err
	}
	if t.Kind == token.OP && t.Value.String == "=" {
		init, _, err := p.parseExpr([]stop{stopKind(token.SEMI)}, true)
		if err != nil {
			return nil, err
		}
		decl.Init = init
		return decl, nil
	}
	if t.Kind != token.SEMI {
		return nil, &Error{Pos: t.Pos, Msg: fmt.Sprintf("expected ';' or '=', got '%s'", describe(t))}
	}
	return decl, nil
}

func (p *Parser) parseIf(at token.Pos) (ast.Stmt, error) {
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	cond, _, err := p.parseExpr([]stop{stopKind(token.RPAREN)}, true)
	if err != nil {
		return nil, err
	}
	then, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	stmt := &ast.IfStmt{At: at, Cond: cond, Then: then}
	t, err := p.next()
	if err != nil {
		return nil, err
	}
	if t.Kind == token.ELSE {
		els, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmt.Else = els
		return stmt, nil
	}
	p.lex.Unget(t)
	return stmt, nil
}

func (p *Parser) parseWhile(at token.Pos) (ast.Stmt, error) {
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	cond, _, err := p.parseExpr([]stop{stopKind(token.RPAREN)}, true)
	if err != nil {
		return nil, err
	}
	body, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStmt{At: at, Cond: cond, Body: body}, nil
}

func (p *Parser) parseReturn(at token.Pos) (ast.Stmt, error) {
	t, err := p.next()
	if err != nil {
		return nil, err
	}
	if t.Kind == token.SEMI {
		return &ast.ReturnStmt{At: at}, nil
	}
	p.lex.Unget(t)
	result, _, err := p.parseExpr([]stop{stopKind(token.SEMI)}, true)
	if err != nil {
		return nil, err
	}
	return &ast.ReturnStmt{At: at, Result: result}, nil
}

// parseExprStmt handles both a bare call expression statement and an
// assignment "lhs = rhs;".
func (p *Parser) parseExprStmt() (ast.Stmt, error) {
	at := mustPeekPos(p)
	expr, stopped, err := p.parseExpr([]stop{stopKind(token.SEMI), stopOp("=")}, true)
	if err != nil {
		return nil, err
	}
	if stopped.Kind == token.OP && stopped.Value.String == "=" {
		if !isAssignable(expr) {
			return nil, &Error{Pos: at, Msg: "invalid assignment target"}
		}
		rhs, _, err := p.parseExpr([]stop{stopKind(token.SEMI)}, true)
		if err != nil {
			return nil, err
		}
		return &ast.ExprStmt{At: at, Assign: expr, Expr: rhs}, nil
	}
	return &ast.ExprStmt{At: at, Expr: expr}, nil
}

func isAssignable(e ast.Expr) bool {
	switch e.(type) {
	case *ast.VarExpr, *ast.IndexExpr:
		return true
	default:
		return false
	}
}

func mustPeekPos(p *Parser) token.Pos {
	t, err := p.next()
	if err != nil {
		return token.Unknown
	}
	p.lex.Unget(t)
	return t.Pos
}
