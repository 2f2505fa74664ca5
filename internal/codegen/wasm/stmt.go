package wasm

import (
	"fmt"

	"github.com/plxlang/plxc/internal/ast"
)

func (e *emitter) emitBlock(block *ast.Node) error {
	for _, stmt := range block.Children {
		if e.terminated {
			// Dead code after an unconditional return/break/continue;
			// the stack effect is the same whether or not it's emitted,
			// so skip it exactly as internal/codegen/llvm does.
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
		return nil // the local's slot exists; no initializer to run
	case ast.KindIf:
		return e.emitIf(stmt)
	case ast.KindLoop:
		return e.emitLoop(stmt)
	case ast.KindWhile:
		return e.emitWhile(stmt)
	case ast.KindContinue:
		return e.emitLoopJump(true)
	case ast.KindBreak:
		return e.emitLoopJump(false)
	case ast.KindReturn:
		return e.emitReturn(stmt)
	case ast.KindAssign:
		return e.emitAssign(stmt)
	case ast.KindAssignAdd, ast.KindAssignSub, ast.KindAssignMul,
		ast.KindAssignDiv, ast.KindAssignRem, ast.KindAssignShl, ast.KindAssignShr:
		return e.emitCompoundAssign(stmt)
	default:
		ty, err := e.evalExpr(stmt)
		if err != nil {
			return err
		}
		if ty != 0 {
			e.emit(opDrop)
		}
		return nil
	}
}

func (e *emitter) emitVarDef(stmt *ast.Node) error {
	entry := stmt.Child(0).Entry
	if _, err := e.evalExpr(stmt.Child(1)); err != nil {
		return err
	}
	idx, err := e.localIndex(entry)
	if err != nil {
		return err
	}
	e.emit(opLocalSet)
	e.code = appendUleb128(e.code, uint64(idx))
	return nil
}

func (e *emitter) emitAssign(stmt *ast.Node) error {
	target := stmt.Child(0)
	if target.Kind != ast.KindIdent {
		return fmt.Errorf("%w: %v", ErrNoMemoryModel, target.Kind)
	}
	entry := target.Entry
	if _, err := e.evalExpr(stmt.Child(1)); err != nil {
		return err
	}
	idx, err := e.localIndex(entry)
	if err != nil {
		return err
	}
	e.emit(opLocalSet)
	e.code = appendUleb128(e.code, uint64(idx))
	return nil
}

func (e *emitter) emitCompoundAssign(stmt *ast.Node) error {
	target := stmt.Child(0)
	if target.Kind != ast.KindIdent {
		return fmt.Errorf("%w: %v", ErrNoMemoryModel, target.Kind)
	}
	entry := target.Entry
	idx, err := e.localIndex(entry)
	if err != nil {
		return err
	}
	e.emit(opLocalGet)
	e.code = appendUleb128(e.code, uint64(idx))
	if _, err := e.evalExpr(stmt.Child(1)); err != nil {
		return err
	}
	op, err := arithOpcode(compoundToBinaryKind(stmt.Kind), target.Type)
	if err != nil {
		return err
	}
	e.emit(op)
	e.emit(opLocalSet)
	e.code = appendUleb128(e.code, uint64(idx))
	return nil
}

func (e *emitter) emitReturn(stmt *ast.Node) error {
	if value := stmt.Child(0); value != nil {
		if _, err := e.evalExpr(value); err != nil {
			return err
		}
	}
	e.emit(opReturn)
	e.terminated = true
	return nil
}

// enterLabel opens a block/loop/if construct, bumping the label-depth
// counter br/br_if targets are computed against (spec §4.11's loop/
// while description; see DESIGN.md's Open Question decisions for why
// this back-end tracks depth explicitly rather than the "reversed"
// br_if-0-for-while shape the spec's prose describes — that shape has
// no way to express break without an enclosing block, so this
// implementation always wraps a breakable loop in one).
func (e *emitter) enterLabel(opcode byte) int {
	e.emit(opcode, blockTypeVoid)
	e.blockDepth++
	return e.blockDepth
}

func (e *emitter) exitLabel() {
	e.emit(opEnd)
	e.blockDepth--
}

func (e *emitter) branchTo(mark int) {
	e.emit(opBr)
	e.code = appendUleb128(e.code, uint64(e.blockDepth-mark))
}

func (e *emitter) branchIfTo(mark int) {
	e.emit(opBrIf)
	e.code = appendUleb128(e.code, uint64(e.blockDepth-mark))
}

func (e *emitter) emitLoopJump(isContinue bool) error {
	if len(e.loopStack) == 0 {
		if isContinue {
			return fmt.Errorf("codegen: continue outside a loop")
		}
		return fmt.Errorf("codegen: break outside a loop")
	}
	top := e.loopStack[len(e.loopStack)-1]
	if isContinue {
		e.branchTo(top.continueMark)
	} else {
		e.branchTo(top.breakMark)
	}
	e.terminated = true
	return nil
}

func (e *emitter) emitIf(stmt *ast.Node) error {
	if _, err := e.evalExpr(stmt.Child(0)); err != nil {
		return err
	}
	e.enterLabel(opIf)
	if err := e.emitBlock(stmt.Child(1)); err != nil {
		return err
	}
	e.terminated = false
	if elseBranch := stmt.Child(2); elseBranch != nil {
		e.emit(opElse)
		e.terminated = false
		if elseBranch.Kind == ast.KindBlock {
			if err := e.emitBlock(elseBranch); err != nil {
				return err
			}
		} else if err := e.emitStmt(elseBranch); err != nil {
			return err
		}
	}
	e.exitLabel()
	e.terminated = false
	return nil
}

// emitLoop compiles an infinite `loop` statement as an outer `block`
// (the break target) wrapping an inner `loop` (the continue target),
// the standard two-level idiom for a breakable Wasm loop.
func (e *emitter) emitLoop(stmt *ast.Node) error {
	breakMark := e.enterLabel(opBlock)
	continueMark := e.enterLabel(opLoop)
	e.loopStack = append(e.loopStack, loopMark{continueMark: continueMark, breakMark: breakMark})
	err := e.emitBlock(stmt.Child(0))
	e.loopStack = e.loopStack[:len(e.loopStack)-1]
	if err != nil {
		return err
	}
	if !e.terminated {
		e.branchTo(continueMark)
	}
	e.terminated = false
	e.exitLabel()
	e.exitLabel()
	e.terminated = false
	return nil
}

func (e *emitter) emitWhile(stmt *ast.Node) error {
	breakMark := e.enterLabel(opBlock)
	continueMark := e.enterLabel(opLoop)
	if _, err := e.evalExpr(stmt.Child(0)); err != nil {
		return err
	}
	e.emit(opI32Eqz)
	e.branchIfTo(breakMark)

	e.loopStack = append(e.loopStack, loopMark{continueMark: continueMark, breakMark: breakMark})
	err := e.emitBlock(stmt.Child(1))
	e.loopStack = e.loopStack[:len(e.loopStack)-1]
	if err != nil {
		return err
	}
	if !e.terminated {
		e.branchTo(continueMark)
	}
	e.terminated = false
	e.exitLabel()
	e.exitLabel()
	e.terminated = false
	return nil
}
