// Package ast defines the single tree IR node shape shared by every
// pipeline stage (spec §3.1): lexical kind, payload, children, an
// optional type, and a source location. It also defines the symbol
// table entry type (spec §3.2); Entry lives here rather than in
// internal/symtab because an identifier node holds a non-owning
// back-reference to its Entry and an Entry holds non-owning references
// to tree nodes (its declared type, and — once folded — its value),
// so the two types are mutually referential and must share a package.
package ast

import "fmt"

// Kind discriminates every construct the tree IR can represent: module,
// definition, statement, expression, literal, or type expression (spec
// §3.1).
type Kind uint16

const (
	KindInvalid Kind = iota

	// Module and top-level definitions.
	KindModule
	KindConstDef
	KindVarDef
	KindVarDecl
	KindStructDef
	KindFuncDef

	// Statements.
	KindNop
	KindBlock
	KindIf
	KindLoop
	KindWhile
	KindContinue
	KindBreak
	KindReturn
	KindAssign
	KindAssignAdd
	KindAssignSub
	KindAssignMul
	KindAssignDiv
	KindAssignRem
	KindAssignShl
	KindAssignShr

	// Binary logical.
	KindAnd
	KindOr
	KindXor

	// Binary relational.
	KindEq
	KindNeq
	KindLt
	KindLte
	KindGt
	KindGte

	// Binary arithmetic.
	KindAdd
	KindSub
	KindMul
	KindDiv
	KindRem

	// Binary bit-shift.
	KindShl
	KindShr

	// Unary.
	KindNot
	KindNeg
	KindRef
	KindDeref

	// Postfix / primary expressions.
	KindCall
	KindIndex
	KindSlice
	KindField
	KindIdent

	// Integer literals.
	KindLitS8
	KindLitS16
	KindLitS32
	KindLitS64
	KindLitU8
	KindLitU16
	KindLitU32
	KindLitU64

	// Float literals.
	KindLitF16
	KindLitF32
	KindLitF64

	KindLitBool
	KindLitString

	// Type expressions.
	KindTypeVoid
	KindTypeS8
	KindTypeS16
	KindTypeS32
	KindTypeS64
	KindTypeU8
	KindTypeU16
	KindTypeU32
	KindTypeU64
	KindTypeF16
	KindTypeF32
	KindTypeF64
	KindTypeBool
	KindTypeString
	KindTypeFunc
	KindTypeRef
	KindTypeArray
	KindTypeSlice

	// Container for parameter/member/argument lists (spec §3.1: "a
	// parameter or struct member is represented by an 'other' node
	// whose children are [name, type] or [name, value]").
	KindOther

	kindSentinel
)

var kindNames = [...]string{
	KindInvalid:    "invalid",
	KindModule:     "module",
	KindConstDef:   "const_def",
	KindVarDef:     "var_def",
	KindVarDecl:    "var_decl",
	KindStructDef:  "struct_def",
	KindFuncDef:    "func_def",
	KindNop:        "nop",
	KindBlock:      "block",
	KindIf:         "if",
	KindLoop:       "loop",
	KindWhile:      "while",
	KindContinue:   "continue",
	KindBreak:      "break",
	KindReturn:     "return",
	KindAssign:     "assign",
	KindAssignAdd:  "assign_add",
	KindAssignSub:  "assign_sub",
	KindAssignMul:  "assign_mul",
	KindAssignDiv:  "assign_div",
	KindAssignRem:  "assign_rem",
	KindAssignShl:  "assign_shl",
	KindAssignShr:  "assign_shr",
	KindAnd:        "and",
	KindOr:         "or",
	KindXor:        "xor",
	KindEq:         "eq",
	KindNeq:        "neq",
	KindLt:         "lt",
	KindLte:        "lte",
	KindGt:         "gt",
	KindGte:        "gte",
	KindAdd:        "add",
	KindSub:        "sub",
	KindMul:        "mul",
	KindDiv:        "div",
	KindRem:        "rem",
	KindShl:        "shl",
	KindShr:        "shr",
	KindNot:        "not",
	KindNeg:        "neg",
	KindRef:        "ref",
	KindDeref:      "deref",
	KindCall:       "call",
	KindIndex:      "index",
	KindSlice:      "slice",
	KindField:      "field",
	KindIdent:      "ident",
	KindLitS8:      "lit_s8",
	KindLitS16:     "lit_s16",
	KindLitS32:     "lit_s32",
	KindLitS64:     "lit_s64",
	KindLitU8:      "lit_u8",
	KindLitU16:     "lit_u16",
	KindLitU32:     "lit_u32",
	KindLitU64:     "lit_u64",
	KindLitF16:     "lit_f16",
	KindLitF32:     "lit_f32",
	KindLitF64:     "lit_f64",
	KindLitBool:    "lit_bool",
	KindLitString:  "lit_string",
	KindTypeVoid:   "type_void",
	KindTypeS8:     "type_s8",
	KindTypeS16:    "type_s16",
	KindTypeS32:    "type_s32",
	KindTypeS64:    "type_s64",
	KindTypeU8:     "type_u8",
	KindTypeU16:    "type_u16",
	KindTypeU32:    "type_u32",
	KindTypeU64:    "type_u64",
	KindTypeF16:    "type_f16",
	KindTypeF32:    "type_f32",
	KindTypeF64:    "type_f64",
	KindTypeBool:   "type_bool",
	KindTypeString: "type_string",
	KindTypeFunc:   "type_func",
	KindTypeRef:    "type_ref",
	KindTypeArray:  "type_array",
	KindTypeSlice:  "type_slice",
	KindOther:      "other",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// IsSignedInt reports whether k is one of the signed integer literal or
// type kinds (s8/s16/s32/s64).
func (k Kind) IsSignedInt() bool {
	switch k {
	case KindLitS8, KindLitS16, KindLitS32, KindLitS64,
		KindTypeS8, KindTypeS16, KindTypeS32, KindTypeS64:
		return true
	}
	return false
}

// IsUnsignedInt reports whether k is one of the unsigned integer
// literal or type kinds (u8/u16/u32/u64).
func (k Kind) IsUnsignedInt() bool {
	switch k {
	case KindLitU8, KindLitU16, KindLitU32, KindLitU64,
		KindTypeU8, KindTypeU16, KindTypeU32, KindTypeU64:
		return true
	}
	return false
}

// IsInt reports whether k is any integer literal or type kind.
func (k Kind) IsInt() bool {
	return k.IsSignedInt() || k.IsUnsignedInt()
}

// IsFloat reports whether k is a float literal or type kind.
func (k Kind) IsFloat() bool {
	switch k {
	case KindLitF16, KindLitF32, KindLitF64, KindTypeF16, KindTypeF32, KindTypeF64:
		return true
	}
	return false
}

// IsNumeric reports whether k is an integer or float literal/type kind.
func (k Kind) IsNumeric() bool {
	return k.IsInt() || k.IsFloat()
}

// IsLiteral reports whether k is one of the literal kinds (integer
// widths, float widths, bool, string).
func (k Kind) IsLiteral() bool {
	switch k {
	case KindLitS8, KindLitS16, KindLitS32, KindLitS64,
		KindLitU8, KindLitU16, KindLitU32, KindLitU64,
		KindLitF16, KindLitF32, KindLitF64,
		KindLitBool, KindLitString:
		return true
	}
	return false
}

// IsType reports whether k is one of the type-expression kinds.
func (k Kind) IsType() bool {
	switch k {
	case KindTypeVoid, KindTypeS8, KindTypeS16, KindTypeS32, KindTypeS64,
		KindTypeU8, KindTypeU16, KindTypeU32, KindTypeU64,
		KindTypeF16, KindTypeF32, KindTypeF64,
		KindTypeBool, KindTypeString, KindTypeFunc, KindTypeRef, KindTypeArray, KindTypeSlice:
		return true
	}
	return false
}

// LiteralKindForType maps a primitive type kind to the literal kind that
// holds values of that type (used by the constant folder when
// synthesizing a result literal). Returns KindInvalid for composite
// types that have no literal form.
func LiteralKindForType(t Kind) Kind {
	switch t {
	case KindTypeS8:
		return KindLitS8
	case KindTypeS16:
		return KindLitS16
	case KindTypeS32:
		return KindLitS32
	case KindTypeS64:
		return KindLitS64
	case KindTypeU8:
		return KindLitU8
	case KindTypeU16:
		return KindLitU16
	case KindTypeU32:
		return KindLitU32
	case KindTypeU64:
		return KindLitU64
	case KindTypeF16:
		return KindLitF16
	case KindTypeF32:
		return KindLitF32
	case KindTypeF64:
		return KindLitF64
	case KindTypeBool:
		return KindLitBool
	case KindTypeString:
		return KindLitString
	default:
		return KindInvalid
	}
}

// TypeKindForLiteral is the inverse of LiteralKindForType.
func TypeKindForLiteral(lit Kind) Kind {
	switch lit {
	case KindLitS8:
		return KindTypeS8
	case KindLitS16:
		return KindTypeS16
	case KindLitS32:
		return KindTypeS32
	case KindLitS64:
		return KindTypeS64
	case KindLitU8:
		return KindTypeU8
	case KindLitU16:
		return KindTypeU16
	case KindLitU32:
		return KindTypeU32
	case KindLitU64:
		return KindTypeU64
	case KindLitF16:
		return KindTypeF16
	case KindLitF32:
		return KindTypeF32
	case KindLitF64:
		return KindTypeF64
	case KindLitBool:
		return KindTypeBool
	case KindLitString:
		return KindTypeString
	default:
		return KindInvalid
	}
}
