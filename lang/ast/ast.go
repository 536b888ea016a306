// Package ast defines the abstract syntax tree produced by the parser: a
// forest of named function declarations, each owning an expression tree
// for its body. Every node carries a source position for error reporting
// and for the compiler's source-location stream.
package ast

import "github.com/mna/corvid/lang/token"

// Node is implemented by every AST node.
type Node interface {
	Pos() token.Pos
	Walk(v Visitor)
}

// Expr is implemented by every expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is implemented by every statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Chunk is a parsed top-level source: the named functions declared at its
// top level (including those pulled in transitively via "include"),
// combined in file/include order.
type Chunk struct {
	Funcs []*FuncDecl
}

// FuncDecl is a top-level "function NAME(PARAMS) BLOCK" declaration.
type FuncDecl struct {
	NamePos token.Pos
	Name    string
	Params  []string
	Body    *Block
}

func (d *FuncDecl) Pos() token.Pos { return d.NamePos }
func (d *FuncDecl) Walk(v Visitor) {
	if v = v.Visit(d); v == nil {
		return
	}
	d.Body.Walk(v)
}

// Block is a brace-delimited sequence of statements.
type Block struct {
	LBrace token.Pos
	Stmts  []Stmt
}

func (b *Block) Pos() token.Pos { return b.LBrace }
func (b *Block) Walk(v Visitor) {
	if v = v.Visit(b); v == nil {
		return
	}
	for _, s := range b.Stmts {
		s.Walk(v)
	}
}

// Visitor is implemented by callers of Walk. Visit is called for every
// node before its children; if it returns nil, Walk does not descend into
// the node's children (mirroring go/ast.Visitor).
type Visitor interface {
	Visit(n Node) Visitor
}

// Walk traverses an AST node, calling v.Visit for n and, if it returns a
// non-nil visitor, for each of n's children in turn.
func Walk(v Visitor, n Node) {
	n.Walk(v)
}
