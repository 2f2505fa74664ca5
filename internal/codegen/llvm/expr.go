package llvm

import (
	"fmt"
	"strings"

	"github.com/plxlang/plxc/internal/ast"
)

// lvalue computes the pointer to n's storage and the LLVM type stored
// there, for the referenceable expression forms validate already
// restricted assignment targets and `&` operands to (spec §4.9:
// identifier, dereference, index).
func (e *emitter) lvalue(n *ast.Node) (ptr string, elemTy string, err error) {
	switch n.Kind {
	case ast.KindIdent:
		entry := n.Entry
		ty, err := llvmType(entry.Type)
		if err != nil {
			return "", "", err
		}
		if entry.Scope == ast.ScopeGlobal {
			return "@" + entry.Name, ty, nil
		}
		return localReg(entry), ty, nil
	case ast.KindDeref:
		ptrVal, err := e.evalExpr(n.Child(0))
		if err != nil {
			return "", "", err
		}
		elemTy, err := llvmType(n.Child(0).Type.Child(0))
		if err != nil {
			return "", "", err
		}
		return ptrVal, elemTy, nil
	case ast.KindIndex:
		return e.lvalueIndex(n)
	case ast.KindField:
		return "", "", ErrFieldAccess
	default:
		return "", "", fmt.Errorf("codegen: %v is not an l-value", n.Kind)
	}
}

func (e *emitter) lvalueIndex(n *ast.Node) (ptr string, elemTy string, err error) {
	subj := n.Child(0)
	idx := n.Child(1)
	idxVal, err := e.evalExpr(idx)
	if err != nil {
		return "", "", err
	}
	idxTy, err := llvmType(idx.Type)
	if err != nil {
		return "", "", err
	}
	switch subj.Type.Kind {
	case ast.KindTypeArray:
		basePtr, _, err := e.lvalue(subj)
		if err != nil {
			return "", "", err
		}
		arrTy, err := llvmType(subj.Type)
		if err != nil {
			return "", "", err
		}
		elemTy, err = llvmType(subj.Type.Child(1))
		if err != nil {
			return "", "", err
		}
		reg := e.newTemp()
		e.writef("  %s = getelementptr inbounds %s, ptr %s, i64 0, %s %s\n", reg, arrTy, basePtr, idxTy, idxVal)
		return reg, elemTy, nil
	case ast.KindTypeSlice:
		dataPtr, err := e.sliceDataPointer(subj)
		if err != nil {
			return "", "", err
		}
		elemTy, err = llvmType(subj.Type.Child(0))
		if err != nil {
			return "", "", err
		}
		reg := e.newTemp()
		e.writef("  %s = getelementptr inbounds %s, ptr %s, %s %s\n", reg, elemTy, dataPtr, idxTy, idxVal)
		return reg, elemTy, nil
	default:
		return "", "", fmt.Errorf("codegen: cannot index a value of type %v", subj.Type.Kind)
	}
}

// sliceDataPointer loads the data-pointer field out of an existing
// slice value's runtime representation (`{ i64, ptr }`). Constructing a
// *new* slice value (`a[lo:hi]`) has no chosen representation yet
// (ErrSliceValue); indexing into one that already exists — a slice
// parameter, say — does.
func (e *emitter) sliceDataPointer(subj *ast.Node) (string, error) {
	basePtr, _, err := e.lvalue(subj)
	if err != nil {
		return "", err
	}
	fieldPtr := e.newTemp()
	e.writef("  %s = getelementptr inbounds { i64, ptr }, ptr %s, i32 0, i32 1\n", fieldPtr, basePtr)
	reg := e.newTemp()
	e.writef("  %s = load ptr, ptr %s\n", reg, fieldPtr)
	return reg, nil
}

func (e *emitter) evalExpr(n *ast.Node) (string, error) {
	switch n.Kind {
	case ast.KindLitS8, ast.KindLitS16, ast.KindLitS32, ast.KindLitS64,
		ast.KindLitU8, ast.KindLitU16, ast.KindLitU32, ast.KindLitU64,
		ast.KindLitF16, ast.KindLitF32, ast.KindLitF64, ast.KindLitBool:
		return e.evalLiteral(n)
	case ast.KindLitString:
		return "", ErrStringValue
	case ast.KindIdent:
		entry := n.Entry
		if entry.Decl != nil && entry.Decl.Kind == ast.KindFuncDef {
			return "@" + entry.Name, nil
		}
		ptr, elemTy, err := e.lvalue(n)
		if err != nil {
			return "", err
		}
		reg := e.newTemp()
		e.writef("  %s = load %s, ptr %s\n", reg, elemTy, ptr)
		return reg, nil
	case ast.KindField:
		return "", ErrFieldAccess
	case ast.KindCall:
		return e.evalCall(n)
	case ast.KindIndex, ast.KindDeref:
		ptr, elemTy, err := e.lvalue(n)
		if err != nil {
			return "", err
		}
		reg := e.newTemp()
		e.writef("  %s = load %s, ptr %s\n", reg, elemTy, ptr)
		return reg, nil
	case ast.KindSlice:
		return "", ErrSliceValue
	case ast.KindRef:
		ptr, _, err := e.lvalue(n.Child(0))
		if err != nil {
			return "", err
		}
		return ptr, nil
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
		return "", ErrStructValue
	default:
		return "", fmt.Errorf("codegen: no expression emission for %v", n.Kind)
	}
}

func (e *emitter) evalLiteral(n *ast.Node) (string, error) {
	constStr, err := literalConst(n)
	if err != nil {
		return "", err
	}
	ty, err := llvmType(n.Type)
	if err != nil {
		return "", err
	}
	slot := e.newTemp()
	e.writef("  %s = alloca %s\n", slot, ty)
	e.writef("  store %s %s, ptr %s\n", ty, constStr, slot)
	reg := e.newTemp()
	e.writef("  %s = load %s, ptr %s\n", reg, ty, slot)
	return reg, nil
}

func (e *emitter) evalNot(n *ast.Node) (string, error) {
	v, err := e.evalExpr(n.Child(0))
	if err != nil {
		return "", err
	}
	ty, err := llvmType(n.Child(0).Type)
	if err != nil {
		return "", err
	}
	reg := e.newTemp()
	if ty == "i1" {
		e.writef("  %s = xor i1 %s, true\n", reg, v)
	} else {
		e.writef("  %s = xor %s %s, -1\n", reg, ty, v)
	}
	return reg, nil
}

func (e *emitter) evalNeg(n *ast.Node) (string, error) {
	v, err := e.evalExpr(n.Child(0))
	if err != nil {
		return "", err
	}
	operandType := n.Child(0).Type
	ty, err := llvmType(operandType)
	if err != nil {
		return "", err
	}
	reg := e.newTemp()
	if operandType.Kind.IsFloat() {
		e.writef("  %s = fneg fast %s %s\n", reg, ty, v)
	} else {
		e.writef("  %s = sub %s 0, %s\n", reg, ty, v)
	}
	return reg, nil
}

func (e *emitter) evalBinary(n *ast.Node) (string, error) {
	l, err := e.evalExpr(n.Child(0))
	if err != nil {
		return "", err
	}
	r, err := e.evalExpr(n.Child(1))
	if err != nil {
		return "", err
	}
	operandType := n.Child(0).Type
	ty, err := llvmType(operandType)
	if err != nil {
		return "", err
	}
	reg := e.newTemp()
	switch n.Kind {
	case ast.KindEq, ast.KindNeq, ast.KindLt, ast.KindLte, ast.KindGt, ast.KindGte:
		opcode, pred := comparePredicate(n.Kind, operandType)
		e.writef("  %s = %s %s %s %s, %s\n", reg, opcode, pred, ty, l, r)
	default:
		instr, err := arithmeticInstr(n.Kind, operandType)
		if err != nil {
			return "", err
		}
		e.writef("  %s = %s %s %s, %s\n", reg, instr, ty, l, r)
	}
	return reg, nil
}

func (e *emitter) evalCall(n *ast.Node) (string, error) {
	callee := n.Child(0)
	if callee.Kind != ast.KindIdent {
		return "", ErrIndirectCall
	}
	entry := callee.Entry
	if entry.Decl == nil || entry.Decl.Kind != ast.KindFuncDef {
		// A function-typed local or parameter holds a pointer value, not
		// a module-level definition with an @name to call directly.
		return "", ErrIndirectCall
	}
	argStrs := make([]string, 0, n.Child(1).NumChildren())
	for _, arg := range n.Child(1).Children {
		v, err := e.evalExpr(arg)
		if err != nil {
			return "", err
		}
		ty, err := llvmType(arg.Type)
		if err != nil {
			return "", err
		}
		argStrs = append(argStrs, ty+" "+v)
	}
	retTy, err := llvmType(n.Type)
	if err != nil {
		return "", err
	}
	argList := strings.Join(argStrs, ", ")
	if retTy == "void" {
		e.writef("  call void @%s(%s)\n", entry.Name, argList)
		return "", nil
	}
	reg := e.newTemp()
	e.writef("  %s = call %s @%s(%s)\n", reg, retTy, entry.Name, argList)
	return reg, nil
}

// arithmeticInstr picks the LLVM mnemonic for a non-comparison binary
// operator, selecting the signed/unsigned/float form by operandType
// (spec §4.10: "instruction selection is signed/unsigned/float-aware").
// Shared between plain binary expressions and compound assignments so
// the two paths can't drift (spec §9's "dual compound-assignment path"
// design note).
func arithmeticInstr(kind ast.Kind, operandType *ast.Node) (string, error) {
	signed := operandType.Kind.IsSignedInt()
	isFloat := operandType.Kind.IsFloat()
	switch kind {
	case ast.KindAdd:
		if isFloat {
			return "fadd fast", nil
		}
		return "add", nil
	case ast.KindSub:
		if isFloat {
			return "fsub fast", nil
		}
		return "sub", nil
	case ast.KindMul:
		if isFloat {
			return "fmul fast", nil
		}
		return "mul", nil
	case ast.KindDiv:
		if isFloat {
			return "fdiv fast", nil
		}
		if signed {
			return "sdiv", nil
		}
		return "udiv", nil
	case ast.KindRem:
		if signed {
			return "srem", nil
		}
		return "urem", nil
	case ast.KindShl:
		return "shl", nil
	case ast.KindShr:
		if signed {
			return "ashr", nil
		}
		return "lshr", nil
	case ast.KindAnd:
		return "and", nil
	case ast.KindOr:
		return "or", nil
	case ast.KindXor:
		return "xor", nil
	default:
		return "", fmt.Errorf("codegen: %v has no arithmetic instruction", kind)
	}
}

// comparePredicate picks the icmp/fcmp opcode and predicate for a
// relational or equality operator over operands of operandType.
func comparePredicate(kind ast.Kind, operandType *ast.Node) (opcode, pred string) {
	if operandType.Kind.IsFloat() {
		opcode = "fcmp"
		switch kind {
		case ast.KindEq:
			pred = "oeq"
		case ast.KindNeq:
			pred = "one"
		case ast.KindLt:
			pred = "olt"
		case ast.KindLte:
			pred = "ole"
		case ast.KindGt:
			pred = "ogt"
		case ast.KindGte:
			pred = "oge"
		}
		return opcode, pred
	}
	opcode = "icmp"
	signed := operandType.Kind.IsSignedInt()
	switch kind {
	case ast.KindEq:
		pred = "eq"
	case ast.KindNeq:
		pred = "ne"
	case ast.KindLt:
		pred = signedPred(signed, "slt", "ult")
	case ast.KindLte:
		pred = signedPred(signed, "sle", "ule")
	case ast.KindGt:
		pred = signedPred(signed, "sgt", "ugt")
	case ast.KindGte:
		pred = signedPred(signed, "sge", "uge")
	}
	return opcode, pred
}

func signedPred(signed bool, ifSigned, ifUnsigned string) string {
	if signed {
		return ifSigned
	}
	return ifUnsigned
}

// compoundToBinaryKind maps a compound-assignment operator to the
// plain binary operator it performs before storing back, so
// arithmeticInstr serves both paths (spec §9).
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
