package llvm

import (
	"fmt"

	"github.com/plxlang/plxc/internal/ast"
)

func (e *emitter) emitLabel(name string) {
	e.writef("%s:\n", name)
	e.terminated = false
}

func (e *emitter) br(label string) {
	e.writef("  br label %%%s\n", label)
	e.terminated = true
}

func (e *emitter) emitBlock(block *ast.Node) error {
	for _, stmt := range block.Children {
		if e.terminated {
			// Unreachable code after a terminator (spec doesn't require
			// emitting it, and a `ret` or `br` already closed the block).
			break
		}
		if err := e.emitStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (e *emitter) emitStmt(stmt *ast.Node) error {
	switch stmt.Kind {
	case ast.KindBlock:
		return e.emitBlock(stmt)
	case ast.KindNop, ast.KindConstDef:
		// Every const def has already collapsed to a nop by the time
		// the folder reaches a fixed point (spec §4.8).
		return nil
	case ast.KindVarDef:
		return e.emitVarDef(stmt)
	case ast.KindVarDecl:
		return e.emitVarDecl(stmt)
	case ast.KindIf:
		return e.emitIf(stmt)
	case ast.KindLoop:
		return e.emitLoop(stmt)
	case ast.KindWhile:
		return e.emitWhile(stmt)
	case ast.KindContinue:
		return e.emitLoopJump(stmt, true)
	case ast.KindBreak:
		return e.emitLoopJump(stmt, false)
	case ast.KindReturn:
		return e.emitReturn(stmt)
	case ast.KindAssign:
		return e.emitAssign(stmt)
	case ast.KindAssignAdd, ast.KindAssignSub, ast.KindAssignMul,
		ast.KindAssignDiv, ast.KindAssignRem, ast.KindAssignShl, ast.KindAssignShr:
		return e.emitCompoundAssign(stmt)
	default:
		_, err := e.evalExpr(stmt)
		return err
	}
}

func (e *emitter) emitVarDef(stmt *ast.Node) error {
	entry := stmt.Child(0).Entry
	ty, err := llvmType(entry.Type)
	if err != nil {
		return err
	}
	val, err := e.evalExpr(stmt.Child(1))
	if err != nil {
		return err
	}
	slot := e.newTemp()
	e.writef("  %s = alloca %s\n", slot, ty)
	e.writef("  store %s %s, ptr %s\n", ty, val, slot)
	entry.Slot = slotNumber(slot)
	return nil
}

func (e *emitter) emitVarDecl(stmt *ast.Node) error {
	entry := stmt.Child(0).Entry
	ty, err := llvmType(entry.Type)
	if err != nil {
		return err
	}
	slot := e.newTemp()
	e.writef("  %s = alloca %s\n", slot, ty)
	entry.Slot = slotNumber(slot)
	return nil
}

func (e *emitter) emitAssign(stmt *ast.Node) error {
	ptr, elemTy, err := e.lvalue(stmt.Child(0))
	if err != nil {
		return err
	}
	val, err := e.evalExpr(stmt.Child(1))
	if err != nil {
		return err
	}
	e.writef("  store %s %s, ptr %s\n", elemTy, val, ptr)
	return nil
}

func (e *emitter) emitCompoundAssign(stmt *ast.Node) error {
	ptr, elemTy, err := e.lvalue(stmt.Child(0))
	if err != nil {
		return err
	}
	cur := e.newTemp()
	e.writef("  %s = load %s, ptr %s\n", cur, elemTy, ptr)
	rhs, err := e.evalExpr(stmt.Child(1))
	if err != nil {
		return err
	}
	instr, err := arithmeticInstr(compoundToBinaryKind(stmt.Kind), stmt.Child(0).Type)
	if err != nil {
		return err
	}
	reg := e.newTemp()
	e.writef("  %s = %s %s %s, %s\n", reg, instr, elemTy, cur, rhs)
	e.writef("  store %s %s, ptr %s\n", elemTy, reg, ptr)
	return nil
}

func (e *emitter) emitReturn(stmt *ast.Node) error {
	value := stmt.Child(0)
	if value == nil {
		e.writef("  ret void\n")
		e.terminated = true
		return nil
	}
	val, err := e.evalExpr(value)
	if err != nil {
		return err
	}
	ty, err := llvmType(value.Type)
	if err != nil {
		return err
	}
	e.writef("  ret %s %s\n", ty, val)
	e.terminated = true
	return nil
}

func (e *emitter) emitLoopJump(stmt *ast.Node, isContinue bool) error {
	if len(e.loopStack) == 0 {
		if isContinue {
			return fmt.Errorf("codegen: continue outside a loop")
		}
		return fmt.Errorf("codegen: break outside a loop")
	}
	top := e.loopStack[len(e.loopStack)-1]
	if isContinue {
		e.br(top.continueLabel)
	} else {
		e.br(top.breakLabel)
	}
	return nil
}

func (e *emitter) emitIf(stmt *ast.Node) error {
	condVal, err := e.evalExpr(stmt.Child(0))
	if err != nil {
		return err
	}
	thenLabel := e.newLabel("if.then")
	elseBranch := stmt.Child(2)
	var elseLabel string
	if elseBranch != nil {
		elseLabel = e.newLabel("if.else")
	}
	endLabel := e.newLabel("if.end")

	if elseBranch == nil {
		e.writef("  br i1 %s, label %%%s, label %%%s\n", condVal, thenLabel, endLabel)
		e.terminated = true
		e.emitLabel(thenLabel)
		if err := e.emitBlock(stmt.Child(1)); err != nil {
			return err
		}
		if !e.terminated {
			e.br(endLabel)
		}
		e.emitLabel(endLabel)
		return nil
	}

	e.writef("  br i1 %s, label %%%s, label %%%s\n", condVal, thenLabel, elseLabel)
	e.terminated = true

	e.emitLabel(thenLabel)
	if err := e.emitBlock(stmt.Child(1)); err != nil {
		return err
	}
	if !e.terminated {
		e.br(endLabel)
	}

	e.emitLabel(elseLabel)
	if elseBranch.Kind == ast.KindBlock {
		if err := e.emitBlock(elseBranch); err != nil {
			return err
		}
	} else if err := e.emitStmt(elseBranch); err != nil {
		return err
	}
	if !e.terminated {
		e.br(endLabel)
	}

	e.emitLabel(endLabel)
	return nil
}

func (e *emitter) emitLoop(stmt *ast.Node) error {
	bodyLabel := e.newLabel("loop")
	endLabel := e.newLabel("loop.end")
	e.br(bodyLabel)
	e.emitLabel(bodyLabel)
	e.loopStack = append(e.loopStack, loopCtx{continueLabel: bodyLabel, breakLabel: endLabel})
	err := e.emitBlock(stmt.Child(0))
	e.loopStack = e.loopStack[:len(e.loopStack)-1]
	if err != nil {
		return err
	}
	if !e.terminated {
		e.br(bodyLabel)
	}
	e.emitLabel(endLabel)
	return nil
}

func (e *emitter) emitWhile(stmt *ast.Node) error {
	headerLabel := e.newLabel("while.header")
	bodyLabel := e.newLabel("while.body")
	endLabel := e.newLabel("while.end")
	e.br(headerLabel)
	e.emitLabel(headerLabel)
	condVal, err := e.evalExpr(stmt.Child(0))
	if err != nil {
		return err
	}
	e.writef("  br i1 %s, label %%%s, label %%%s\n", condVal, bodyLabel, endLabel)
	e.terminated = true

	e.emitLabel(bodyLabel)
	e.loopStack = append(e.loopStack, loopCtx{continueLabel: headerLabel, breakLabel: endLabel})
	err = e.emitBlock(stmt.Child(1))
	e.loopStack = e.loopStack[:len(e.loopStack)-1]
	if err != nil {
		return err
	}
	if !e.terminated {
		e.br(headerLabel)
	}
	e.emitLabel(endLabel)
	return nil
}
