package wasm

import (
	"fmt"
	"math"

	"github.com/plxlang/plxc/internal/ast"
)

// evalExpr emits n's instructions so that, once they run, n's value sits
// on top of the stack, and returns the value type pushed (0 for a
// void-returning call, the only expression-statement shape that pushes
// nothing).
func (e *emitter) evalExpr(n *ast.Node) (valtype, error) {
	switch {
	case n.Kind.IsLiteral():
		return e.evalLiteral(n)
	}
	switch n.Kind {
	case ast.KindIdent:
		return e.evalIdent(n)
	case ast.KindCall:
		return e.evalCall(n)
	case ast.KindField:
		return 0, ErrFieldAccess
	case ast.KindIndex, ast.KindSlice, ast.KindRef, ast.KindDeref:
		return 0, ErrNoMemoryModel
	case ast.KindNot:
		return e.evalNot(n)
	case ast.KindNeg:
		return e.evalNeg(n)
	case ast.KindAnd, ast.KindOr, ast.KindXor,
		ast.KindEq, ast.KindNeq, ast.KindLt, ast.KindLte, ast.KindGt, ast.KindGte,
		ast.KindAdd, ast.KindSub, ast.KindMul, ast.KindDiv, ast.KindRem,
		ast.KindShl, ast.KindShr:
		return e.evalBinary(n)
	case ast.KindOther:
		return 0, ErrStructValue
	default:
		return 0, fmt.Errorf("codegen: no wasm expression emission for %v", n.Kind)
	}
}

func (e *emitter) evalLiteral(n *ast.Node) (valtype, error) {
	switch {
	case n.Kind.IsSignedInt():
		vt, err := wasmValType(n.Type)
		if err != nil {
			return 0, err
		}
		e.emitIntConst(vt, n.SInt)
		return vt, nil
	case n.Kind.IsUnsignedInt():
		vt, err := wasmValType(n.Type)
		if err != nil {
			return 0, err
		}
		e.emitIntConst(vt, int64(n.UInt))
		return vt, nil
	}
	switch n.Kind {
	case ast.KindLitBool:
		v := int64(0)
		if n.Bool {
			v = 1
		}
		e.emit(opI32Const)
		e.code = appendSleb128(e.code, v)
		return valI32, nil
	case ast.KindLitF16, ast.KindLitF32:
		e.emit(opF32Const)
		bits := math.Float32bits(float32(n.Float))
		e.code = append(e.code, byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24))
		return valF32, nil
	case ast.KindLitF64:
		e.emit(opF64Const)
		bits := math.Float64bits(n.Float)
		for i := 0; i < 8; i++ {
			e.code = append(e.code, byte(bits>>(8*i)))
		}
		return valF64, nil
	case ast.KindLitString:
		return 0, ErrStringValue
	default:
		return 0, fmt.Errorf("codegen: %v is not a literal", n.Kind)
	}
}

func (e *emitter) emitIntConst(vt valtype, v int64) {
	if vt == valI64 {
		e.emit(opI64Const)
	} else {
		e.emit(opI32Const)
	}
	e.code = appendSleb128(e.code, v)
}

func (e *emitter) evalIdent(n *ast.Node) (valtype, error) {
	entry := n.Entry
	idx, err := e.localIndex(entry)
	if err != nil {
		return 0, err
	}
	vt, err := wasmValType(entry.Type)
	if err != nil {
		return 0, err
	}
	e.emit(opLocalGet)
	e.code = appendUleb128(e.code, uint64(idx))
	return vt, nil
}

func (e *emitter) evalNot(n *ast.Node) (valtype, error) {
	operandType := n.Child(0).Type
	vt, err := e.evalExpr(n.Child(0))
	if err != nil {
		return 0, err
	}
	if operandType.Kind == ast.KindTypeBool {
		e.emit(opI32Eqz)
		return valI32, nil
	}
	e.emitIntConst(vt, -1)
	op, err := arithOpcode(ast.KindXor, operandType)
	if err != nil {
		return 0, err
	}
	e.emit(op)
	return vt, nil
}

func (e *emitter) evalNeg(n *ast.Node) (valtype, error) {
	operandType := n.Child(0).Type
	if operandType.Kind.IsFloat() {
		vt, err := e.evalExpr(n.Child(0))
		if err != nil {
			return 0, err
		}
		if vt == valF32 {
			e.emit(opF32Neg)
		} else {
			e.emit(opF64Neg)
		}
		return vt, nil
	}
	vt, err := wasmValType(operandType)
	if err != nil {
		return 0, err
	}
	e.emitIntConst(vt, 0)
	if _, err := e.evalExpr(n.Child(0)); err != nil {
		return 0, err
	}
	op, err := arithOpcode(ast.KindSub, operandType)
	if err != nil {
		return 0, err
	}
	e.emit(op)
	return vt, nil
}

func (e *emitter) evalBinary(n *ast.Node) (valtype, error) {
	operandType := n.Child(0).Type
	if _, err := e.evalExpr(n.Child(0)); err != nil {
		return 0, err
	}
	if _, err := e.evalExpr(n.Child(1)); err != nil {
		return 0, err
	}
	switch n.Kind {
	case ast.KindEq, ast.KindNeq, ast.KindLt, ast.KindLte, ast.KindGt, ast.KindGte:
		op, err := cmpOpcode(n.Kind, operandType)
		if err != nil {
			return 0, err
		}
		e.emit(op)
		return valI32, nil
	default:
		op, err := arithOpcode(n.Kind, operandType)
		if err != nil {
			return 0, err
		}
		e.emit(op)
		return wasmValType(operandType)
	}
}

func (e *emitter) evalCall(n *ast.Node) (valtype, error) {
	callee := n.Child(0)
	if callee.Kind != ast.KindIdent {
		return 0, ErrIndirectCall
	}
	entry := callee.Entry
	if entry.Type == nil || entry.Type.Kind != ast.KindTypeFunc {
		return 0, ErrIndirectCall
	}
	idx, ok := e.funcIndices[entry]
	if !ok {
		// A function-typed local or parameter has no function index; only
		// module-level definitions are directly callable.
		return 0, ErrIndirectCall
	}
	for _, arg := range n.Child(1).Children {
		if _, err := e.evalExpr(arg); err != nil {
			return 0, err
		}
	}
	e.emit(opCall)
	e.code = appendUleb128(e.code, uint64(idx))
	if n.Type == nil || n.Type.Kind == ast.KindTypeVoid {
		return 0, nil
	}
	return wasmValType(n.Type)
}

// arithOpcode picks the opcode for a non-comparison binary operator,
// selecting the i32/i64/f32/f64 family and (for division, remainder,
// and right shift) the signed/unsigned variant from operandType. Used
// by both plain binary expressions and compound assignments, the wasm
// analogue of internal/codegen/llvm's arithmeticInstr (spec §9's "dual
// compound-assignment path" note).
func arithOpcode(kind ast.Kind, operandType *ast.Node) (byte, error) {
	vt, err := wasmValType(operandType)
	if err != nil {
		return 0, err
	}
	signed := operandType.Kind.IsSignedInt()
	var plain, signedTbl, unsignedTbl map[ast.Kind]byte
	switch vt {
	case valI32:
		plain, signedTbl, unsignedTbl = i32ArithOp, i32ArithSignedOp, i32ArithUnsignedOp
	case valI64:
		plain, signedTbl, unsignedTbl = i64ArithOp, i64ArithSignedOp, i64ArithUnsignedOp
	case valF32:
		if op, ok := f32ArithOp[kind]; ok {
			return op, nil
		}
		return 0, fmt.Errorf("codegen: %v has no f32 opcode", kind)
	case valF64:
		if op, ok := f64ArithOp[kind]; ok {
			return op, nil
		}
		return 0, fmt.Errorf("codegen: %v has no f64 opcode", kind)
	}
	if op, ok := plain[kind]; ok {
		return op, nil
	}
	tbl := unsignedTbl
	if signed {
		tbl = signedTbl
	}
	if op, ok := tbl[kind]; ok {
		return op, nil
	}
	return 0, fmt.Errorf("codegen: %v has no arithmetic opcode for %v", kind, operandType.Kind)
}

// cmpOpcode picks the comparison opcode for operandType's value-type
// family and signedness.
func cmpOpcode(kind ast.Kind, operandType *ast.Node) (byte, error) {
	vt, err := wasmValType(operandType)
	if err != nil {
		return 0, err
	}
	signed := operandType.Kind.IsSignedInt()
	var eqTbl, signedTbl, unsignedTbl map[ast.Kind]byte
	switch vt {
	case valI32:
		eqTbl, signedTbl, unsignedTbl = i32CmpOp, i32CmpSignedOp, i32CmpUnsignedOp
	case valI64:
		eqTbl, signedTbl, unsignedTbl = i64CmpOp, i64CmpSignedOp, i64CmpUnsignedOp
	case valF32:
		if op, ok := floatCmpOp32[kind]; ok {
			return op, nil
		}
		return 0, fmt.Errorf("codegen: %v has no f32 compare opcode", kind)
	case valF64:
		if op, ok := floatCmpOp64[kind]; ok {
			return op, nil
		}
		return 0, fmt.Errorf("codegen: %v has no f64 compare opcode", kind)
	}
	if op, ok := eqTbl[kind]; ok {
		return op, nil
	}
	tbl := unsignedTbl
	if signed {
		tbl = signedTbl
	}
	if op, ok := tbl[kind]; ok {
		return op, nil
	}
	return 0, fmt.Errorf("codegen: %v has no compare opcode for %v", kind, operandType.Kind)
}

// compoundToBinaryKind maps a compound-assignment operator to the plain
// binary operator it performs before storing back (spec §9, shared with
// internal/codegen/llvm's identical helper).
func compoundToBinaryKind(k ast.Kind) ast.Kind {
	switch k {
	case ast.KindAssignAdd:
		return ast.KindAdd
	case ast.KindAssignSub:
		return ast.KindSub
	case ast.KindAssignMul:
		return ast.KindMul
	case ast.KindAssignDiv:
		return ast.KindDiv
	case ast.KindAssignRem:
		return ast.KindRem
	case ast.KindAssignShl:
		return ast.KindShl
	case ast.KindAssignShr:
		return ast.KindShr
	default:
		return ast.KindInvalid
	}
}
