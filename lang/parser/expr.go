package parser

import (
	"fmt"

	"github.com/mna/corvid/lang/ast"
	"github.com/mna/corvid/lang/operator"
	"github.com/mna/corvid/lang/token"
)

// stop describes one way an expression can end: either any token of a
// given Kind, or specifically an OP token spelled Op.
type stop struct {
	Kind token.Kind
	Op   string
}

func stopKind(k token.Kind) stop { return stop{Kind: k} }
func stopOp(op string) stop      { return stop{Kind: token.OP, Op: op} }

func (s stop) matches(t token.Token) bool {
	if t.Kind != s.Kind {
		return false
	}
	if s.Kind == token.OP {
		return t.Value.String == s.Op
	}
	return true
}

func matchAny(stops []stop, t token.Token) bool {
	for _, s := range stops {
		if s.matches(t) {
			return true
		}
	}
	return false
}

// opnd and opr are the explicit operand/operator stacks driving the
// shunting-yard reduction, matching resolve_expr_stack in the reference
// parser.
type opr struct {
	entry operator.Entry
	pos   token.Pos
	unary bool
}

// parseExpr parses one expression, stopping at the first token matching
// one of stops. If consumeStop is true, that token is consumed; otherwise
// it is ungotten so the caller can inspect it. It returns the parsed
// expression and the token that stopped it.
func (p *Parser) parseExpr(stops []stop, consumeStop bool) (ast.Expr, token.Token, error) {
	var operands []ast.Expr
	var operators []opr
	expectOperand := true

	reduce := func(stopPrec int) error {
		for len(operators) > 0 {
			top := operators[len(operators)-1]
			if top.entry.EffectivePrec() < stopPrec {
				break
			}
			operators = operators[:len(operators)-1]
			if top.unary {
				if len(operands) < 1 {
					return &Error{Pos: top.pos, Msg: "malformed expression"}
				}
				e := operands[len(operands)-1]
				operands = operands[:len(operands)-1]
				operands = append(operands, &ast.UnOpExpr{At: top.pos, Op: top.entry.Op, Expr: e})
				continue
			}
			if len(operands) < 2 {
				return &Error{Pos: top.pos, Msg: "malformed expression"}
			}
			r := operands[len(operands)-1]
			l := operands[len(operands)-2]
			operands = operands[:len(operands)-2]
			operands = append(operands, &ast.BinOpExpr{At: top.pos, Op: top.entry.Op, Left: l, Right: r})
		}
		return nil
	}

	for {
		t, err := p.next()
		if err != nil {
			return nil, token.Token{}, err
		}

		if matchAny(stops, t) {
			if err := reduce(-1 << 30); err != nil {
				return nil, token.Token{}, err
			}
			if len(operands) != 1 {
				return nil, token.Token{}, &Error{Pos: t.Pos, Msg: "malformed expression"}
			}
			if !consumeStop {
				p.lex.Unget(t)
			}
			return operands[0], t, nil
		}

		switch {
		case t.Kind == token.LPAREN && expectOperand:
			e, _, err := p.parseExpr([]stop{stopKind(token.RPAREN)}, true)
			if err != nil {
				return nil, token.Token{}, err
			}
			operands = append(operands, e)
			expectOperand = false

		case t.Kind == token.LPAREN:
			if err := reduce(operator.FuncCallPrec); err != nil {
				return nil, token.Token{}, err
			}
			if len(operands) < 1 {
				return nil, token.Token{}, &Error{Pos: t.Pos, Msg: "malformed expression"}
			}
			fn := operands[len(operands)-1]
			operands = operands[:len(operands)-1]
			args, err := p.parseExprList(token.RPAREN)
			if err != nil {
				return nil, token.Token{}, err
			}
			operands = append(operands, &ast.CallExpr{At: t.Pos, Func: fn, Args: args})
			expectOperand = false

		case t.Kind == token.DOT:
			if err := reduce(operator.FuncCallPrec); err != nil {
				return nil, token.Token{}, err
			}
			if len(operands) < 1 {
				return nil, token.Token{}, &Error{Pos: t.Pos, Msg: "malformed expression"}
			}
			name, err := p.expect(token.IDENT)
			if err != nil {
				return nil, token.Token{}, err
			}
			container := operands[len(operands)-1]
			operands = operands[:len(operands)-1]
			key := &ast.StringExpr{At: name.Pos, Value: name.Value.String}
			operands = append(operands, &ast.IndexExpr{At: t.Pos, Container: container, Index: key, FromSelector: true})
			expectOperand = false

		case t.Kind == token.LBRACK && expectOperand:
			elems, err := p.parseExprList(token.RBRACK)
			if err != nil {
				return nil, token.Token{}, err
			}
			operands = append(operands, &ast.ArrayExpr{At: t.Pos, Elems: elems})
			expectOperand = false

		case t.Kind == token.LBRACK:
			if err := reduce(operator.FuncCallPrec); err != nil {
				return nil, token.Token{}, err
			}
			if len(operands) < 1 {
				return nil, token.Token{}, &Error{Pos: t.Pos, Msg: "malformed expression"}
			}
			container := operands[len(operands)-1]
			operands = operands[:len(operands)-1]
			idx, _, err := p.parseExpr([]stop{stopKind(token.RBRACK)}, true)
			if err != nil {
				return nil, token.Token{}, err
			}
			operands = append(operands, &ast.IndexExpr{At: t.Pos, Container: container, Index: idx})
			expectOperand = false

		case t.Kind == token.LBRACE && expectOperand:
			m, err := p.parseMapLiteral(t.Pos)
			if err != nil {
				return nil, token.Token{}, err
			}
			operands = append(operands, m)
			expectOperand = false

		case t.Kind == token.OP && expectOperand:
			pe, ok := operator.PrefixOp(t.Value.String)
			if !ok {
				return nil, token.Token{}, &Error{Pos: t.Pos, Msg: fmt.Sprintf("unexpected operator '%s'", t.Value.String)}
			}
			operators = append(operators, opr{entry: pe, pos: t.Pos, unary: true})

		case t.Kind == token.OP:
			be, ok := operator.BinaryOp(t.Value.String)
			if !ok {
				return nil, token.Token{}, &Error{Pos: t.Pos, Msg: fmt.Sprintf("unexpected operator '%s'", t.Value.String)}
			}
			if err := reduce(be.EffectivePrec()); err != nil {
				return nil, token.Token{}, err
			}
			operators = append(operators, opr{entry: be, pos: t.Pos})
			expectOperand = true

		case t.Kind == token.NUMBER && expectOperand:
			operands = append(operands, &ast.NumberExpr{At: t.Pos, Value: t.Value.Number})
			expectOperand = false

		case t.Kind == token.STRING && expectOperand:
			operands = append(operands, &ast.StringExpr{At: t.Pos, Value: t.Value.String})
			expectOperand = false

		case t.Kind == token.NULL && expectOperand:
			operands = append(operands, &ast.NullExpr{At: t.Pos})
			expectOperand = false

		case t.Kind == token.TRUE && expectOperand:
			operands = append(operands, &ast.BoolExpr{At: t.Pos, Value: true})
			expectOperand = false

		case t.Kind == token.FALSE && expectOperand:
			operands = append(operands, &ast.BoolExpr{At: t.Pos, Value: false})
			expectOperand = false

		case t.Kind == token.IDENT && expectOperand:
			operands = append(operands, &ast.VarExpr{At: t.Pos, Name: t.Value.String})
			expectOperand = false

		case t.Kind == token.FUNCTION && expectOperand:
			fn, err := p.parseFuncExpr(t.Pos)
			if err != nil {
				return nil, token.Token{}, err
			}
			operands = append(operands, fn)
			expectOperand = false

		default:
			return nil, token.Token{}, &Error{Pos: t.Pos, Msg: fmt.Sprintf("unexpected '%s'", describe(t))}
		}
	}
}

// parseExprList parses a comma-separated list of expressions up to and
// including the closing token, with a trailing comma allowed.
func (p *Parser) parseExprList(closing token.Kind) ([]ast.Expr, error) {
	var list []ast.Expr
	for {
		t, err := p.next()
		if err != nil {
			return nil, err
		}
		if t.Kind == closing {
			return list, nil
		}
		if len(list) > 0 {
			if t.Kind != token.COMMA {
				return nil, &Error{Pos: t.Pos, Msg: fmt.Sprintf("expected ',' or '%s'", closing)}
			}
			t, err = p.next()
			if err != nil {
				return nil, err
			}
			if t.Kind == closing {
				return list, nil
			}
		}
		p.lex.Unget(t)
		e, _, err := p.parseExpr([]stop{stopKind(token.COMMA), stopKind(closing)}, false)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
		stopTok, err := p.next()
		if err != nil {
			return nil, err
		}
		if stopTok.Kind == closing {
			return list, nil
		}
	}
}

func (p *Parser) parseMapLiteral(at token.Pos) (ast.Expr, error) {
	m := &ast.MapExpr{At: at}
	for {
		t, err := p.next()
		if err != nil {
			return nil, err
		}
		if t.Kind == token.RBRACE {
			return m, nil
		}
		if len(m.Entries) > 0 {
			if t.Kind != token.COMMA {
				return nil, &Error{Pos: t.Pos, Msg: "expected ',' or '}'"}
			}
			t, err = p.next()
			if err != nil {
				return nil, err
			}
			if t.Kind == token.RBRACE {
				return m, nil
			}
		}
		p.lex.Unget(t)
		key, _, err := p.parseExpr([]stop{stopKind(token.COLON)}, true)
		if err != nil {
			return nil, err
		}
		val, stopped, err := p.parseExpr([]stop{stopKind(token.COMMA), stopKind(token.RBRACE)}, false)
		if err != nil {
			return nil, err
		}
		m.Entries = append(m.Entries, ast.MapEntry{Key: key, Value: val})
		if stopped.Kind == token.RBRACE {
			p.next() // consume '}'
			return m, nil
		}
	}
}

func (p *Parser) parseFuncExpr(at token.Pos) (ast.Expr, error) {
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.FuncExpr{At: at, Params: params, Body: body}, nil
}
