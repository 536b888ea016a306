package compiler

import (
	"github.com/mna/corvid/lang/ast"
	"github.com/mna/corvid/lang/object"
	"github.com/mna/corvid/lang/operator"
	"github.com/mna/corvid/lang/token"
)

// compileExprToTemp compiles e into a fresh temporary register, or
// returns the variable's own register when e is a local variable.
func (c *Compiler) compileExprToTemp(fi *funcInfo, e ast.Expr) (int, error) {
	return c.compileExpr(fi, e, -1)
}

// compileExpr compiles e so its value ends up in register dest. If dest
// is negative, a fresh temporary is pushed and its index returned (a local
// variable instead returns its own register, with no temporary); otherwise dest must already be an allocated register (typically an
// assignment target or declared variable) and is returned unchanged.
func (c *Compiler) compileExpr(fi *funcInfo, e ast.Expr, dest int) (int, error) {
	switch e := e.(type) {
	case *ast.NullExpr:
		d, err := c.dest(fi, e.Pos(), dest)
		if err != nil {
			return 0, err
		}
		fi.emit(e.Pos(), MakeAU(LDNULL, d, 0))
		return d, nil

	case *ast.BoolExpr:
		d, err := c.dest(fi, e.Pos(), dest)
		if err != nil {
			return 0, err
		}
		ci := fi.addConstBool(e.Value)
		fi.emit(e.Pos(), MakeABC(LDC, d, EncodeConstOperand(ci), 0))
		return d, nil

	case *ast.NumberExpr:
		d, err := c.dest(fi, e.Pos(), dest)
		if err != nil {
			return 0, err
		}
		ci := fi.addConstNumber(e.Value)
		fi.emit(e.Pos(), MakeABC(LDC, d, EncodeConstOperand(ci), 0))
		return d, nil

	case *ast.StringExpr:
		ci := fi.addConstString(e.Value)
		d, err := c.dest(fi, e.Pos(), dest)
		if err != nil {
			return 0, err
		}
		fi.emit(e.Pos(), MakeABC(LDC, d, EncodeConstOperand(ci), 0))
		return d, nil

	case *ast.VarExpr:
		return c.compileVar(fi, e, dest)

	case *ast.UnOpExpr:
		return c.compileUnOp(fi, e, dest)

	case *ast.BinOpExpr:
		return c.compileBinOp(fi, e, dest)

	case *ast.IndexExpr:
		return c.compileIndex(fi, e, dest)

	case *ast.CallExpr:
		return c.compileCall(fi, e, dest)

	case *ast.ArrayExpr:
		return c.compileArray(fi, e, dest)

	case *ast.MapExpr:
		return c.compileMap(fi, e, dest)

	case *ast.FuncExpr:
		return c.compileFuncExpr(fi, e, dest)

	default:
		return 0, &Error{Pos: e.Pos(), Msg: "unsupported expression"}
	}
}

// dest returns dest if non-negative, else allocates a fresh temporary.
func (c *Compiler) dest(fi *funcInfo, pos token.Pos, dest int) (int, error) {
	if dest >= 0 {
		return dest, nil
	}
	return fi.allocReg(pos, tmpVar)
}

func (c *Compiler) compileVar(fi *funcInfo, e *ast.VarExpr, dest int) (int, error) {
	if idx, isUpval, found := resolveVar(fi, e.Name); found {
		if isUpval {
			d, err := c.dest(fi, e.Pos(), dest)
			if err != nil {
				return 0, err
			}
			fi.emit(e.Pos(), MakeABC(GETUPVAL, d, idx, 0))
			return d, nil
		}
		if dest < 0 || dest == idx {
			return idx, nil
		}
		fi.emit(e.Pos(), MakeABC(MOV, dest, idx, 0))
		return dest, nil
	}
	if def, ok := c.named[e.Name]; ok {
		d, err := c.dest(fi, e.Pos(), dest)
		if err != nil {
			return 0, err
		}
		ci := fi.addConstFuncDef(def)
		fi.emit(e.Pos(), MakeABC(CLOSURE, d, EncodeConstOperand(ci), 0))
		return d, nil
	}
	if fn, ok := c.natives[e.Name]; ok {
		d, err := c.dest(fi, e.Pos(), dest)
		if err != nil {
			return 0, err
		}
		ci := fi.addConstNative(fn)
		fi.emit(e.Pos(), MakeABC(LDC, d, EncodeConstOperand(ci), 0))
		return d, nil
	}
	return 0, &Error{Pos: e.Pos(), Msg: "undefined variable " + e.Name}
}

func (c *Compiler) compileUnOp(fi *funcInfo, e *ast.UnOpExpr, dest int) (int, error) {
	mark := fi.mark()
	operand, err := c.compileExprToTemp(fi, e.Expr)
	if err != nil {
		return 0, err
	}
	d, err := c.dest(fi, e.Pos(), dest)
	if err != nil {
		return 0, err
	}
	var op Opcode
	switch e.Op {
	case operator.OpNeg:
		op = NEG
	case operator.OpNot:
		op = NOT
	default:
		return 0, &Error{Pos: e.Pos(), Msg: "unsupported unary operator"}
	}
	fi.emit(e.Pos(), MakeABC(op, d, operand, 0))
	fi.popTo(max(mark, d+1))
	return d, nil
}

func (c *Compiler) compileBinOp(fi *funcInfo, e *ast.BinOpExpr, dest int) (int, error) {
	mark := fi.mark()
	left, err := c.compileExprToTemp(fi, e.Left)
	if err != nil {
		return 0, err
	}
	right, err := c.compileExprToTemp(fi, e.Right)
	if err != nil {
		return 0, err
	}
	d, err := c.dest(fi, e.Pos(), dest)
	if err != nil {
		return 0, err
	}

	swap := false
	var op Opcode
	switch e.Op {
	case operator.OpAdd:
		op = ADD
	case operator.OpSub:
		op = SUB
	case operator.OpMul:
		op = MUL
	case operator.OpDiv:
		op = DIV
	case operator.OpMod:
		op = MOD
	case operator.OpEq:
		op = CMP_EQ
	case operator.OpNeq:
		op = CMP_EQ
	case operator.OpLt:
		op = CMP_LT
	case operator.OpLe:
		op = CMP_LE
	case operator.OpGt:
		op = CMP_LT
		swap = true
	case operator.OpGe:
		op = CMP_LE
		swap = true
	default:
		return 0, &Error{Pos: e.Pos(), Msg: "unsupported binary operator"}
	}
	if swap {
		left, right = right, left
	}
	fi.emit(e.Pos(), MakeABC(op, d, left, right))
	if e.Op == operator.OpNeq {
		fi.emit(e.Pos(), MakeABC(NOT, d, d, 0))
	}
	fi.popTo(max(mark, d+1))
	return d, nil
}

func (c *Compiler) compileIndex(fi *funcInfo, e *ast.IndexExpr, dest int) (int, error) {
	mark := fi.mark()
	containerReg, err := c.compileExprToTemp(fi, e.Container)
	if err != nil {
		return 0, err
	}
	keyReg, err := c.indexKeyReg(fi, e)
	if err != nil {
		return 0, err
	}
	d, err := c.dest(fi, e.Pos(), dest)
	if err != nil {
		return 0, err
	}
	fi.emit(e.Pos(), MakeABC(GETEL, d, containerReg, keyReg))
	fi.popTo(max(mark, d+1))
	return d, nil
}

func (c *Compiler) compileCall(fi *funcInfo, e *ast.CallExpr, dest int) (int, error) {
	mark := fi.mark()
	base, err := fi.allocContiguous(e.Pos(), 1+len(e.Args))
	if err != nil {
		return 0, err
	}
	if _, err := c.compileExpr(fi, e.Func, base); err != nil {
		return 0, err
	}
	for i, arg := range e.Args {
		if _, err := c.compileExpr(fi, arg, base+1+i); err != nil {
			return 0, err
		}
	}
	fi.emit(e.Pos(), MakeABC(CALL, base, len(e.Args), 0))

	if dest < 0 {
		fi.popTo(base + 1)
		return base, nil
	}
	fi.emit(e.Pos(), MakeABC(MOV, dest, base, 0))
	fi.popTo(max(mark, dest+1))
	return dest, nil
}

// compileArray and compileMap follow the reference bytecode's layout for
// NEWARRAY/NEWMAP: an AU-form instruction whose dest register is
// immediately followed, contiguously, by its n_elems source values (no
// separate base operand). When dest already names an existing register
// (an assignment target), the literal is first built in a fresh
// temporary at the top of the stack, then moved into place.

func (c *Compiler) compileArray(fi *funcInfo, e *ast.ArrayExpr, dest int) (int, error) {
	mark := fi.mark()
	d, err := fi.allocReg(e.Pos(), tmpVar)
	if err != nil {
		return 0, err
	}
	if _, err := fi.allocContiguous(e.Pos(), len(e.Elems)); err != nil {
		return 0, err
	}
	for i, elem := range e.Elems {
		if _, err := c.compileExpr(fi, elem, d+1+i); err != nil {
			return 0, err
		}
	}
	fi.emit(e.Pos(), MakeAU(NEWARRAY, d, len(e.Elems)))
	return c.settle(fi, e.Pos(), dest, d, mark)
}

func (c *Compiler) compileMap(fi *funcInfo, e *ast.MapExpr, dest int) (int, error) {
	mark := fi.mark()
	d, err := fi.allocReg(e.Pos(), tmpVar)
	if err != nil {
		return 0, err
	}
	if _, err := fi.allocContiguous(e.Pos(), 2*len(e.Entries)); err != nil {
		return 0, err
	}
	for i, entry := range e.Entries {
		if _, err := c.compileExpr(fi, entry.Key, d+1+2*i); err != nil {
			return 0, err
		}
		if _, err := c.compileExpr(fi, entry.Value, d+1+2*i+1); err != nil {
			return 0, err
		}
	}
	fi.emit(e.Pos(), MakeAU(NEWMAP, d, 2*len(e.Entries)))
	return c.settle(fi, e.Pos(), dest, d, mark)
}

// settle moves a value built in scratch register d into dest (if dest
// names a different, already-live register) and restores the register
// stack to mark plus whichever of d/dest survives.
func (c *Compiler) settle(fi *funcInfo, pos token.Pos, dest, d, mark int) (int, error) {
	if dest < 0 {
		fi.popTo(max(mark, d+1))
		return d, nil
	}
	if dest != d {
		fi.emit(pos, MakeABC(MOV, dest, d, 0))
	}
	fi.popTo(max(mark, dest+1))
	return dest, nil
}

func (c *Compiler) compileFuncExpr(fi *funcInfo, e *ast.FuncExpr, dest int) (int, error) {
	inner := newFuncInfo(fi, "", len(e.Params))
	if err := c.compileFuncBody(inner, e.Params, e.Body); err != nil {
		return 0, err
	}
	def := &object.FuncDef{NumParams: len(e.Params)}
	inner.finish(def)

	d, err := c.dest(fi, e.Pos(), dest)
	if err != nil {
		return 0, err
	}
	ci := fi.addConstFuncDef(def)
	fi.emit(e.Pos(), MakeABC(CLOSURE, d, EncodeConstOperand(ci), 0))
	return d, nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
