package ast

import "github.com/plxlang/plxc/internal/diag"

// Node is the uniform tree IR node (spec §3.1). Every construct of the
// language — module, definition, statement, expression, literal, type
// expression — is one tagged Node.
//
// The payload fields below are a flattened tagged union: only the
// fields relevant to Kind are meaningful, matching spec §3.1's payload
// contract (identifier: Name + Entry; signed literal: SInt; unsigned
// literal: UInt; float literal: Float; bool literal: Bool; string
// literal: Str). Non-literal, non-identifier kinds carry no payload.
//
// Children are held as an ordered slice rather than an intrusive
// next-sibling linked list; design note §9 sanctions either layout so
// long as child order is preserved and push-to-end is O(1) amortized,
// and a slice is the idiomatic Go choice.
type Node struct {
	Kind Kind
	Loc  diag.Location

	Name  string // identifier / parameter / struct-member name
	Entry *Entry // identifier use-site back-reference, set by the resolver

	SInt  int64   // signed integer literal value
	UInt  uint64  // unsigned integer literal value
	Float float64 // float literal value
	Bool  bool    // bool literal value
	Str   []byte  // string literal bytes

	Type *Node // non-nil for every expression node from type-checking onward

	Children []*Node
}

// Child returns the i-th child, or nil if i is out of range.
func (n *Node) Child(i int) *Node {
	if n == nil || i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// NumChildren returns len(n.Children), or 0 for a nil node.
func (n *Node) NumChildren() int {
	if n == nil {
		return 0
	}
	return len(n.Children)
}

// Entry is a symbol table entry (spec §3.2): the record bound to one
// declared name, holding enough information for name resolution, type
// checking, constant folding, and code generation to all reference the
// same declaration.
type Entry struct {
	Prev *Entry // previous entry in the scope chain (LIFO)

	Name string
	Loc  diag.Location

	Scope Scope
	Mut   Mutability

	Type  *Node // the symbol's type
	Value *Node // folded constant value; nil until the folder collapses it

	// Decl is the declaring node for entries whose declaration shape
	// matters later in the pipeline: struct entries point at their
	// KindStructDef (the type checker reads the member list via
	// Decl.Child(1)), function entries at their KindFuncDef (the code
	// generators use it to tell a directly callable definition from a
	// function-typed local). Nil for every other kind of entry.
	Decl *Node

	// Slot is the numeric local stack-slot index assigned by the LLVM
	// back-end to locals (parameters and block-scoped vars). Unused for
	// globals and functions.
	Slot int
}

// Scope classifies where an Entry was declared.
type Scope uint8

const (
	ScopeGlobal Scope = iota
	ScopeLocal
)

// Mutability classifies whether an Entry's binding can be reassigned.
type Mutability uint8

const (
	Mutable Mutability = iota
	Constant
)
