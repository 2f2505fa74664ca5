package wasm

import (
	"errors"
	"fmt"

	"github.com/plxlang/plxc/internal/ast"
)

// valtype is a Wasm value-type encoding byte.
type valtype byte

const (
	valI32 valtype = 0x7F
	valI64 valtype = 0x7E
	valF32 valtype = 0x7D
	valF64 valtype = 0x7C
)

// Sentinel errors for constructs this back-end does not implement.
// Mirrors internal/codegen/llvm's sentinel-error shape (struct/string
// values, field access, indirect calls and slice construction have no
// chosen representation in either back-end — spec §9's "open
// questions" list) plus one the wasm back-end adds of its own: there is
// no global section in this encoding (spec §4.11 names only type,
// function, export and code sections), so a reference to a
// module-scope variable from inside a function body has nowhere to
// compile to.
var (
	ErrFieldAccess    = errors.New("codegen: field access is not implemented")
	ErrStringValue    = errors.New("codegen: string-valued expressions are not implemented")
	ErrStructValue    = errors.New("codegen: struct-valued expressions are not implemented")
	ErrIndirectCall   = errors.New("codegen: only direct calls to a named function are supported")
	ErrSliceValue     = errors.New("codegen: slice construction is not implemented")
	ErrGlobalVariable = errors.New("codegen: global variable access is not supported by the wasm back-end")
	ErrNoMemoryModel  = errors.New("codegen: wasm back-end has no linear-memory model for references, indexing, or struct fields")
)

// wasmValType maps a checked type-expression node to its Wasm value
// type (spec §4.11: 8/16/32-bit integers and bool -> i32; 64-bit
// integers -> i64; f16/f32 -> f32; f64 -> f64). Composite types
// (strings, functions, refs, arrays, slices) have no value-type
// representation yet.
func wasmValType(t *ast.Node) (valtype, error) {
	if t == nil {
		return 0, fmt.Errorf("codegen: nil type")
	}
	switch t.Kind {
	case ast.KindTypeS8, ast.KindTypeU8, ast.KindTypeS16, ast.KindTypeU16,
		ast.KindTypeS32, ast.KindTypeU32, ast.KindTypeBool:
		return valI32, nil
	case ast.KindTypeS64, ast.KindTypeU64:
		return valI64, nil
	case ast.KindTypeF16, ast.KindTypeF32:
		return valF32, nil
	case ast.KindTypeF64:
		return valF64, nil
	case ast.KindTypeString:
		return 0, ErrStringValue
	case ast.KindTypeRef, ast.KindTypeFunc, ast.KindTypeArray, ast.KindTypeSlice:
		return 0, fmt.Errorf("codegen: %v has no wasm value representation", t.Kind)
	case ast.KindIdent:
		return 0, ErrStructValue
	default:
		return 0, fmt.Errorf("codegen: no wasm value type for %v", t.Kind)
	}
}

// Wasm binary format opcodes used by this back-end (core v1 MVP).
const (
	opUnreachable = 0x00
	opBlock       = 0x02
	opLoop        = 0x03
	opIf          = 0x04
	opElse        = 0x05
	opEnd         = 0x0B
	opBr          = 0x0C
	opBrIf        = 0x0D
	opReturn      = 0x0F
	opCall        = 0x10
	opDrop        = 0x1A

	opLocalGet = 0x20
	opLocalSet = 0x21
	opLocalTee = 0x22
	opGlobalGet = 0x23
	opGlobalSet = 0x24

	opI32Eqz = 0x45

	opI32Const = 0x41
	opI64Const = 0x42
	opF32Const = 0x43
	opF64Const = 0x44

	opF32Neg = 0x8C
	opF64Neg = 0x9A

	blockTypeVoid = 0x40
)

// i32/i64/f32/f64 comparison and arithmetic opcodes, grouped by operand
// value type so evalBinary (expr.go) can select a single table lookup
// instead of duplicating the switch per type — the wasm analogue of
// internal/codegen/llvm's arithmeticInstr/comparePredicate, and the
// same fix for spec §9's "dual compound-assignment path" note: both
// the plain and compound-assignment paths call into this one table.
var i32CmpOp = map[ast.Kind]byte{
	ast.KindEq: 0x46, ast.KindNeq: 0x47,
}
var i32CmpSignedOp = map[ast.Kind]byte{
	ast.KindLt: 0x48, ast.KindLte: 0x4C, ast.KindGt: 0x4A, ast.KindGte: 0x4E,
}
var i32CmpUnsignedOp = map[ast.Kind]byte{
	ast.KindLt: 0x49, ast.KindLte: 0x4D, ast.KindGt: 0x4B, ast.KindGte: 0x4F,
}
var i64CmpOp = map[ast.Kind]byte{
	ast.KindEq: 0x51, ast.KindNeq: 0x52,
}
var i64CmpSignedOp = map[ast.Kind]byte{
	ast.KindLt: 0x53, ast.KindLte: 0x57, ast.KindGt: 0x55, ast.KindGte: 0x59,
}
var i64CmpUnsignedOp = map[ast.Kind]byte{
	ast.KindLt: 0x54, ast.KindLte: 0x58, ast.KindGt: 0x56, ast.KindGte: 0x5A,
}
var floatCmpOp32 = map[ast.Kind]byte{
	ast.KindEq: 0x5B, ast.KindNeq: 0x5C, ast.KindLt: 0x5D, ast.KindGt: 0x5E, ast.KindLte: 0x5F, ast.KindGte: 0x60,
}
var floatCmpOp64 = map[ast.Kind]byte{
	ast.KindEq: 0x61, ast.KindNeq: 0x62, ast.KindLt: 0x63, ast.KindGt: 0x64, ast.KindLte: 0x65, ast.KindGte: 0x66,
}

var i32ArithOp = map[ast.Kind]byte{
	ast.KindAdd: 0x6A, ast.KindSub: 0x6B, ast.KindMul: 0x6C,
	ast.KindAnd: 0x71, ast.KindOr: 0x72, ast.KindXor: 0x73, ast.KindShl: 0x74,
}
var i32ArithSignedOp = map[ast.Kind]byte{
	ast.KindDiv: 0x6D, ast.KindRem: 0x6F, ast.KindShr: 0x75,
}
var i32ArithUnsignedOp = map[ast.Kind]byte{
	ast.KindDiv: 0x6E, ast.KindRem: 0x70, ast.KindShr: 0x76,
}
var i64ArithOp = map[ast.Kind]byte{
	ast.KindAdd: 0x7C, ast.KindSub: 0x7D, ast.KindMul: 0x7E,
	ast.KindAnd: 0x83, ast.KindOr: 0x84, ast.KindXor: 0x85, ast.KindShl: 0x86,
}
var i64ArithSignedOp = map[ast.Kind]byte{
	ast.KindDiv: 0x7F, ast.KindRem: 0x81, ast.KindShr: 0x87,
}
var i64ArithUnsignedOp = map[ast.Kind]byte{
	ast.KindDiv: 0x80, ast.KindRem: 0x82, ast.KindShr: 0x88,
}
var f32ArithOp = map[ast.Kind]byte{
	ast.KindAdd: 0x92, ast.KindSub: 0x93, ast.KindMul: 0x94, ast.KindDiv: 0x95,
}
var f64ArithOp = map[ast.Kind]byte{
	ast.KindAdd: 0xA0, ast.KindSub: 0xA1, ast.KindMul: 0xA2, ast.KindDiv: 0xA3,
}
