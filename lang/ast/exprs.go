package ast

import (
	"github.com/mna/corvid/lang/operator"
	"github.com/mna/corvid/lang/token"
)

func (*NullExpr) exprNode()     {}
func (*BoolExpr) exprNode()     {}
func (*NumberExpr) exprNode()   {}
func (*StringExpr) exprNode()   {}
func (*VarExpr) exprNode()      {}
func (*BinOpExpr) exprNode()    {}
func (*UnOpExpr) exprNode()     {}
func (*IndexExpr) exprNode()    {}
func (*CallExpr) exprNode()     {}
func (*ArrayExpr) exprNode()    {}
func (*MapExpr) exprNode()      {}
func (*FuncExpr) exprNode()     {}

// NullExpr is the "null" literal.
type NullExpr struct{ At token.Pos }

func (n *NullExpr) Pos() token.Pos { return n.At }
func (n *NullExpr) Walk(v Visitor) { v.Visit(n) }

// BoolExpr is a "true"/"false" literal.
type BoolExpr struct {
	At    token.Pos
	Value bool
}

func (n *BoolExpr) Pos() token.Pos { return n.At }
func (n *BoolExpr) Walk(v Visitor) { v.Visit(n) }

// NumberExpr is a numeric literal.
type NumberExpr struct {
	At    token.Pos
	Value float64
}

func (n *NumberExpr) Pos() token.Pos { return n.At }
func (n *NumberExpr) Walk(v Visitor) { v.Visit(n) }

// StringExpr is a string literal.
type StringExpr struct {
	At    token.Pos
	Value string
}

func (n *StringExpr) Pos() token.Pos { return n.At }
func (n *StringExpr) Walk(v Visitor) { v.Visit(n) }

// VarExpr is a reference to a variable or a global function by name.
type VarExpr struct {
	At   token.Pos
	Name string
}

func (n *VarExpr) Pos() token.Pos { return n.At }
func (n *VarExpr) Walk(v Visitor) { v.Visit(n) }

// BinOpExpr is a binary operator application.
type BinOpExpr struct {
	At          token.Pos // position of the operator
	Op          operator.Op
	Left, Right Expr
}

func (n *BinOpExpr) Pos() token.Pos { return n.At }
func (n *BinOpExpr) Walk(v Visitor) {
	if v = v.Visit(n); v == nil {
		return
	}
	n.Left.Walk(v)
	n.Right.Walk(v)
}

// UnOpExpr is a prefix operator application.
type UnOpExpr struct {
	At   token.Pos
	Op   operator.Op
	Expr Expr
}

func (n *UnOpExpr) Pos() token.Pos { return n.At }
func (n *UnOpExpr) Walk(v Visitor) {
	if v = v.Visit(n); v == nil {
		return
	}
	n.Expr.Walk(v)
}

// IndexExpr is container[index] or container.name (desugared to a string
// literal index).
type IndexExpr struct {
	At            token.Pos
	Container     Expr
	Index         Expr
	FromSelector  bool // true if written as ".NAME" rather than "[...]"
}

func (n *IndexExpr) Pos() token.Pos { return n.At }
func (n *IndexExpr) Walk(v Visitor) {
	if v = v.Visit(n); v == nil {
		return
	}
	n.Container.Walk(v)
	n.Index.Walk(v)
}

// CallExpr is fn(args...).
type CallExpr struct {
	At   token.Pos
	Func Expr
	Args []Expr
}

func (n *CallExpr) Pos() token.Pos { return n.At }
func (n *CallExpr) Walk(v Visitor) {
	if v = v.Visit(n); v == nil {
		return
	}
	n.Func.Walk(v)
	for _, a := range n.Args {
		a.Walk(v)
	}
}

// ArrayExpr is an array literal [a, b, c].
type ArrayExpr struct {
	At    token.Pos
	Elems []Expr
}

func (n *ArrayExpr) Pos() token.Pos { return n.At }
func (n *ArrayExpr) Walk(v Visitor) {
	if v = v.Visit(n); v == nil {
		return
	}
	for _, e := range n.Elems {
		e.Walk(v)
	}
}

// MapEntry is one key:value pair in a MapExpr.
type MapEntry struct {
	Key, Value Expr
}

// MapExpr is a map literal { k: v, ... }.
type MapExpr struct {
	At      token.Pos
	Entries []MapEntry
}

func (n *MapExpr) Pos() token.Pos { return n.At }
func (n *MapExpr) Walk(v Visitor) {
	if v = v.Visit(n); v == nil {
		return
	}
	for _, e := range n.Entries {
		e.Key.Walk(v)
		e.Value.Walk(v)
	}
}

// FuncExpr is an anonymous function literal used as an expression.
type FuncExpr struct {
	At     token.Pos
	Params []string
	Body   *Block
}

func (n *FuncExpr) Pos() token.Pos { return n.At }
func (n *FuncExpr) Walk(v Visitor) {
	if v = v.Visit(n); v == nil {
		return
	}
	n.Body.Walk(v)
}
