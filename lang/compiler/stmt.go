package compiler

import "github.com/mna/corvid/lang/ast"

func (c *Compiler) compileBlockStmts(fi *funcInfo, b *ast.Block) error {
	fi.enterBlock()
	for _, s := range b.Stmts {
		if err := c.compileStmt(fi, s); err != nil {
			return err
		}
	}
	fi.exitBlock(b.Pos())
	return nil
}

func (c *Compiler) compileStmt(fi *funcInfo, s ast.Stmt) error {
	switch s := s.(type) {
	case *ast.EmptyStmt:
		return nil
	case *ast.Block:
		return c.compileBlockStmts(fi, s)
	case *ast.VarDeclStmt:
		return c.compileVarDecl(fi, s)
	case *ast.ExprStmt:
		return c.compileExprStmt(fi, s)
	case *ast.IfStmt:
		return c.compileIf(fi, s)
	case *ast.WhileStmt:
		return c.compileWhile(fi, s)
	case *ast.BreakStmt:
		return c.compileBreak(fi, s)
	case *ast.ContinueStmt:
		return c.compileContinue(fi, s)
	case *ast.ReturnStmt:
		return c.compileReturn(fi, s)
	default:
		return &Error{Pos: s.Pos(), Msg: "unsupported statement"}
	}
}

func (c *Compiler) compileVarDecl(fi *funcInfo, s *ast.VarDeclStmt) error {
	mark := fi.mark()
	dest, err := fi.allocReg(s.Pos(), s.Name)
	if err != nil {
		return err
	}
	if s.Init != nil {
		if _, err := c.compileExpr(fi, s.Init, dest); err != nil {
			return err
		}
	} else {
		fi.emit(s.Pos(), MakeAU(LDNULL, dest, 0))
	}
	// Only pop temporaries pushed above dest; dest itself (the new
	// variable) must survive.
	fi.popTo(mark + 1)
	return nil
}

func (c *Compiler) compileExprStmt(fi *funcInfo, s *ast.ExprStmt) error {
	mark := fi.mark()
	defer fi.popTo(mark)

	if s.Assign == nil {
		_, err := c.compileExpr(fi, s.Expr, -1)
		return err
	}

	switch lhs := s.Assign.(type) {
	case *ast.VarExpr:
		idx, isUpval, found := resolveVar(fi, lhs.Name)
		if !found {
			return &Error{Pos: lhs.Pos(), Msg: "undefined variable " + lhs.Name}
		}
		if isUpval {
			tmp, err := c.compileExprToTemp(fi, s.Expr)
			if err != nil {
				return err
			}
			fi.emit(s.Pos(), MakeABC(SETUPVAL, idx, tmp, 0))
			return nil
		}
		_, err := c.compileExpr(fi, s.Expr, idx)
		return err
	case *ast.IndexExpr:
		containerReg, err := c.compileExprToTemp(fi, lhs.Container)
		if err != nil {
			return err
		}
		keyReg, err := c.indexKeyReg(fi, lhs)
		if err != nil {
			return err
		}
		valReg, err := c.compileExprToTemp(fi, s.Expr)
		if err != nil {
			return err
		}
		fi.emit(s.Pos(), MakeABC(SETEL, containerReg, keyReg, valReg))
		return nil
	default:
		return &Error{Pos: s.Pos(), Msg: "invalid assignment target"}
	}
}

// indexKeyReg compiles an IndexExpr's key, synthesizing a string constant
// load for dotted field access (container.field is sugar for
// container["field"]).
func (c *Compiler) indexKeyReg(fi *funcInfo, e *ast.IndexExpr) (int, error) {
	return c.compileExprToTemp(fi, e.Index)
}

func (c *Compiler) compileIf(fi *funcInfo, s *ast.IfStmt) error {
	mark := fi.mark()
	condReg, err := c.compileExprToTemp(fi, s.Cond)
	if err != nil {
		return err
	}
	testAt := fi.emit(s.Cond.Pos(), MakeABC(TEST, condReg, 0, 1))
	fi.popTo(mark)
	jmpToElse := fi.emit(s.Cond.Pos(), MakeAS(JMP, 0, 0))

	if err := c.compileStmt(fi, s.Then); err != nil {
		return err
	}

	if s.Else == nil {
		if err := fi.patchJump(testAt, fi.pc()); err != nil {
			return err
		}
		if err := fi.patchJump(jmpToElse, fi.pc()); err != nil {
			return err
		}
		return nil
	}

	jmpOverElse := fi.emit(s.Pos(), MakeAS(JMP, 0, 0))
	if err := fi.patchJump(testAt, fi.pc()); err != nil {
		return err
	}
	if err := fi.patchJump(jmpToElse, fi.pc()); err != nil {
		return err
	}
	if err := c.compileStmt(fi, s.Else); err != nil {
		return err
	}
	return fi.patchJump(jmpOverElse, fi.pc())
}

func (c *Compiler) compileWhile(fi *funcInfo, s *ast.WhileStmt) error {
	loopStart := fi.pc()
	mark := fi.mark()
	condReg, err := c.compileExprToTemp(fi, s.Cond)
	if err != nil {
		return err
	}
	testAt := fi.emit(s.Cond.Pos(), MakeABC(TEST, condReg, 0, 1))
	fi.popTo(mark)
	jmpToEnd := fi.emit(s.Cond.Pos(), MakeAS(JMP, 0, 0))

	fi.loops = append(fi.loops, &loopCtx{continueAt: loopStart, bodyStart: fi.mark()})
	if err := c.compileStmt(fi, s.Body); err != nil {
		return err
	}
	lc := fi.loops[len(fi.loops)-1]
	fi.loops = fi.loops[:len(fi.loops)-1]

	backAt := fi.emit(s.Pos(), MakeAS(JMP, 0, 0))
	if err := fi.patchJump(backAt, loopStart); err != nil {
		return err
	}
	if err := fi.patchJump(testAt, fi.pc()); err != nil {
		return err
	}
	if err := fi.patchJump(jmpToEnd, fi.pc()); err != nil {
		return err
	}
	for _, at := range lc.breakAddrs {
		if err := fi.patchJump(at, fi.pc()); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileBreak(fi *funcInfo, s *ast.BreakStmt) error {
	if len(fi.loops) == 0 {
		return &Error{Pos: s.Pos(), Msg: "break outside of a loop"}
	}
	lc := fi.loops[len(fi.loops)-1]
	closeCount := fi.capturedSince(lc.bodyStart)
	at := fi.emit(s.Pos(), MakeAS(JMP, closeCount, 0))
	lc.breakAddrs = append(lc.breakAddrs, at)
	return nil
}

func (c *Compiler) compileContinue(fi *funcInfo, s *ast.ContinueStmt) error {
	if len(fi.loops) == 0 {
		return &Error{Pos: s.Pos(), Msg: "continue outside of a loop"}
	}
	lc := fi.loops[len(fi.loops)-1]
	closeCount := fi.capturedSince(lc.bodyStart)
	at := fi.emit(s.Pos(), MakeAS(JMP, closeCount, 0))
	return fi.patchJump(at, lc.continueAt)
}

func (c *Compiler) compileReturn(fi *funcInfo, s *ast.ReturnStmt) error {
	mark := fi.mark()
	defer fi.popTo(mark)
	if s.Result == nil {
		fi.emit(s.Pos(), MakeAU(RET, 0, 0))
		return nil
	}
	reg, err := c.compileExprToTemp(fi, s.Result)
	if err != nil {
		return err
	}
	fi.emit(s.Pos(), MakeAU(RET, reg, 1))
	return nil
}
