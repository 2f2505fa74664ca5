// Package llvm implements the LLVM textual IR back-end (spec §4.10): it
// walks a type-checked, folded, and validated module and emits an LLVM
// IR module as text, suitable for handing to an external `opt`/`llc` or
// `clang` toolchain.
//
// The emitter sidesteps SSA construction entirely: every local (each
// parameter and each var/const declaration) gets one stack slot via
// `alloca`, loaded and stored explicitly around every use, exactly as
// spec §4.10's design note prescribes ("uniform alloca+load/store
// treatment for every local, rather than building real SSA — correct,
// if not what `opt -mem2reg` would produce by hand"). Pointers are
// opaque (`ptr`) throughout, matching modern LLVM IR.
//
// Constructs this back-end does not support surface as plain Go errors
// rather than diag.Sink diagnostics: by the time codegen runs, the
// front end has already accepted the program, so a failure here is a
// back-end limitation, not a diagnosis of the source.
package llvm

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/plxlang/plxc/internal/ast"
)

// Sentinel errors for constructs this back-end does not implement.
// Each names a feature spec §4.10's design notes call out as an open
// question the teacher's own backends never had to answer: struct
// values, string values, field access, indirect calls, and slice
// expressions are all accepted by the type checker but have no chosen
// LLVM representation yet.
var (
	ErrFieldAccess  = errors.New("codegen: field access is not implemented")
	ErrStringValue  = errors.New("codegen: string-valued expressions are not implemented")
	ErrStructValue  = errors.New("codegen: struct-valued expressions are not implemented")
	ErrIndirectCall = errors.New("codegen: only direct calls to a named function are supported")
	ErrSliceValue   = errors.New("codegen: slice construction is not implemented")
)

// EmitModule renders mod as LLVM IR text. mod must already have passed
// resolve, types, flow, fold, and validate; EmitModule does not itself
// check any of those invariants.
func EmitModule(mod *ast.Node) (string, error) {
	e := &emitter{}
	if err := e.emitModule(mod); err != nil {
		return "", err
	}
	return e.out.String(), nil
}

type loopCtx struct {
	continueLabel string
	breakLabel    string
}

// emitter holds the state threaded through emission of one module.
// Register numbering, label numbering, and the active loop stack reset
// at the start of each function; global state (the output buffer) does
// not.
type emitter struct {
	out bytes.Buffer

	tmpCounter   int
	labelCounter int
	loopStack    []loopCtx
	terminated   bool
}

func (e *emitter) writef(format string, args ...any) {
	fmt.Fprintf(&e.out, format, args...)
}

func (e *emitter) newTemp() string {
	id := e.tmpCounter
	e.tmpCounter++
	return "%" + strconv.Itoa(id)
}

func (e *emitter) newLabel(prefix string) string {
	id := e.labelCounter
	e.labelCounter++
	return prefix + strconv.Itoa(id)
}

func (e *emitter) emitModule(mod *ast.Node) error {
	for _, def := range mod.Children {
		switch def.Kind {
		case ast.KindVarDef:
			if err := e.emitGlobalVarDef(def); err != nil {
				return err
			}
		case ast.KindVarDecl:
			if err := e.emitGlobalVarDecl(def); err != nil {
				return err
			}
		case ast.KindStructDef, ast.KindConstDef:
			// Struct layout has no chosen LLVM representation yet
			// (ErrStructValue), and every const def has already
			// collapsed to a nop by the time the folder reaches a
			// fixed point (spec §4.8).
		}
	}
	if e.out.Len() > 0 {
		e.writef("\n")
	}
	for _, def := range mod.Children {
		if def.Kind == ast.KindFuncDef {
			if err := e.emitFunction(def); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *emitter) emitGlobalVarDef(def *ast.Node) error {
	entry := def.Child(0).Entry
	ty, err := llvmType(entry.Type)
	if err != nil {
		return err
	}
	value := def.Child(1)
	if !value.Kind.IsLiteral() {
		// Validate rejects a non-literal initializer before codegen ever
		// runs; kept as a zero-init fallback so a direct EmitModule call
		// on an unvalidated tree still emits something well-formed.
		e.writef("@%s = global %s zeroinitializer\n", entry.Name, ty)
		return nil
	}
	constStr, err := literalConst(value)
	if err != nil {
		return err
	}
	e.writef("@%s = global %s %s\n", entry.Name, ty, constStr)
	return nil
}

func (e *emitter) emitGlobalVarDecl(def *ast.Node) error {
	entry := def.Child(0).Entry
	ty, err := llvmType(entry.Type)
	if err != nil {
		return err
	}
	e.writef("@%s = global %s zeroinitializer\n", entry.Name, ty)
	return nil
}

func (e *emitter) emitFunction(def *ast.Node) error {
	e.tmpCounter = 0
	e.labelCounter = 0
	e.loopStack = nil
	e.terminated = false

	fnEntry := def.Child(0).Entry
	retTy, err := llvmType(fnEntry.Type.Child(1))
	if err != nil {
		return err
	}
	params := def.Child(1).Children
	sig := make([]string, 0, len(params))
	for i, param := range params {
		ty, err := llvmType(param.Child(0).Entry.Type)
		if err != nil {
			return err
		}
		sig = append(sig, fmt.Sprintf("%s %%arg%d", ty, i))
	}
	e.writef("define %s @%s(%s) {\n", retTy, fnEntry.Name, strings.Join(sig, ", "))
	e.writef("entry:\n")
	for i, param := range params {
		entry := param.Child(0).Entry
		ty, err := llvmType(entry.Type)
		if err != nil {
			return err
		}
		slot := e.newTemp()
		e.writef("  %s = alloca %s\n", slot, ty)
		e.writef("  store %s %%arg%d, ptr %s\n", ty, i, slot)
		entry.Slot = slotNumber(slot)
	}
	if err := e.emitBlock(def.Child(3)); err != nil {
		return err
	}
	if !e.terminated {
		if retTy == "void" {
			e.writef("  ret void\n")
		} else {
			e.writef("  unreachable\n")
		}
	}
	e.writef("}\n\n")
	return nil
}

// slotNumber extracts the bare integer id out of a "%N" register name,
// the form Entry.Slot is expected to hold for a local's alloca pointer.
func slotNumber(reg string) int {
	n, _ := strconv.Atoi(strings.TrimPrefix(reg, "%"))
	return n
}

func localReg(entry *ast.Entry) string {
	return "%" + strconv.Itoa(entry.Slot)
}

// llvmType maps a checked type-expression node to its LLVM IR spelling
// (spec §4.10: void->void, sN/uN->iN by width, f16/f32/f64->half/
// float/double, bool->i1, ref/func->ptr, array->"[N x T]"). Slices are
// represented as the two-field struct `{ i64, ptr }` (length, data
// pointer) the emitter's slice-indexing path already understands, even
// though constructing a new slice value is not yet supported.
func llvmType(t *ast.Node) (string, error) {
	if t == nil {
		return "", fmt.Errorf("codegen: nil type")
	}
	switch t.Kind {
	case ast.KindTypeVoid:
		return "void", nil
	case ast.KindTypeS8, ast.KindTypeU8:
		return "i8", nil
	case ast.KindTypeS16, ast.KindTypeU16:
		return "i16", nil
	case ast.KindTypeS32, ast.KindTypeU32:
		return "i32", nil
	case ast.KindTypeS64, ast.KindTypeU64:
		return "i64", nil
	case ast.KindTypeF16:
		return "half", nil
	case ast.KindTypeF32:
		return "float", nil
	case ast.KindTypeF64:
		return "double", nil
	case ast.KindTypeBool:
		return "i1", nil
	case ast.KindTypeString:
		return "", ErrStringValue
	case ast.KindTypeRef, ast.KindTypeFunc:
		return "ptr", nil
	case ast.KindTypeArray:
		n, ok := arrayLength(t.Child(0))
		if !ok {
			return "", fmt.Errorf("codegen: array length did not fold to a literal")
		}
		elem, err := llvmType(t.Child(1))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("[%d x %s]", n, elem), nil
	case ast.KindTypeSlice:
		return "{ i64, ptr }", nil
	case ast.KindIdent:
		return "", ErrStructValue
	default:
		return "", fmt.Errorf("codegen: no LLVM type for %v", t.Kind)
	}
}

func arrayLength(n *ast.Node) (int64, bool) {
	switch {
	case n.Kind.IsSignedInt():
		return n.SInt, true
	case n.Kind.IsUnsignedInt():
		return int64(n.UInt), true
	default:
		return 0, false
	}
}

// literalConst renders a literal node's value as LLVM constant syntax.
func literalConst(n *ast.Node) (string, error) {
	switch {
	case n.Kind.IsSignedInt():
		return strconv.FormatInt(n.SInt, 10), nil
	case n.Kind.IsUnsignedInt():
		return strconv.FormatUint(n.UInt, 10), nil
	}
	switch n.Kind {
	case ast.KindLitF16:
		return "0xH" + fmt.Sprintf("%04X", float64ToHalfBits(n.Float)), nil
	case ast.KindLitF32:
		return hexDoubleConst(float64(float32(n.Float))), nil
	case ast.KindLitF64:
		return hexDoubleConst(n.Float), nil
	case ast.KindLitBool:
		if n.Bool {
			return "true", nil
		}
		return "false", nil
	case ast.KindLitString:
		return "", ErrStringValue
	default:
		return "", fmt.Errorf("codegen: %v is not a literal", n.Kind)
	}
}

// hexDoubleConst renders v the way LLVM's textual IR requires whenever
// a floating-point constant can't round-trip through decimal: the
// raw IEEE-754 double bit pattern, in hex, prefixed with 0x. LLVM
// accepts this form unconditionally (even when decimal would also
// round-trip), so the emitter always uses it and never has to guess.
func hexDoubleConst(v float64) string {
	return fmt.Sprintf("0x%016X", math.Float64bits(v))
}

// float64ToHalfBits converts v to an IEEE-754 binary16 bit pattern via
// its float32 rounding, for `0xH`-prefixed half constants. Subnormal
// results flush to zero; this back-end's f16 support targets normal
// literal ranges, not full denormal fidelity.
func float64ToHalfBits(v float64) uint16 {
	bits := math.Float32bits(float32(v))
	sign := uint16((bits >> 16) & 0x8000)
	exp := int32((bits>>23)&0xFF) - 127 + 15
	mant := bits & 0x7FFFFF
	switch {
	case exp <= 0:
		return sign
	case exp >= 0x1F:
		return sign | 0x7C00
	default:
		return sign | uint16(exp)<<10 | uint16(mant>>13)
	}
}
