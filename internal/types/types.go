// Package types implements the type-checking stage (spec §4.6): typing
// rules per tree kind, structural type equality, and the synthesized
// function type used to check calls.
package types

import (
	"github.com/plxlang/plxc/internal/ast"
	"github.com/plxlang/plxc/internal/diag"
)

// Checker carries the per-module checking state: the node pool new type
// expressions are synthesized from, the canonical cache of primitive
// type nodes, and the return type of the function currently being
// checked.
type Checker struct {
	pool       *ast.Pool
	sink       diag.Sink
	ok         bool
	primitives map[ast.Kind]*ast.Node
	returnType *ast.Node
}

// Module type-checks every definition in mod. Function signatures are
// synthesized in a first pass so that mutually-recursive
// calls between functions type-check regardless of source order;
// top-level const/var initializers and function bodies are then checked
// in source order. Reports false if any diagnostic was produced.
func Module(pool *ast.Pool, sink diag.Sink, mod *ast.Node) bool {
	c := &Checker{pool: pool, sink: sink, ok: true, primitives: map[ast.Kind]*ast.Node{}}
	c.synthesizeSignatures(mod)
	c.checkTopLevel(mod)
	return c.ok
}

func (c *Checker) primitive(kind ast.Kind) *ast.Node {
	if n, ok := c.primitives[kind]; ok {
		return n
	}
	n := c.pool.New(kind, diag.Location{})
	c.primitives[kind] = n
	return n
}

func (c *Checker) invalid() *ast.Node { return c.primitive(ast.KindInvalid) }

// bindType stores t on name's resolved entry. A nil entry means the
// resolver already failed this declaration (duplicate name); the type is
// still computed for its own diagnostics but has nowhere to live.
func (c *Checker) bindType(name *ast.Node, t *ast.Node) {
	if name != nil && name.Entry != nil {
		name.Entry.Type = t
	}
}

func (c *Checker) errorf(loc diag.Location, format string, args ...any) *ast.Node {
	diag.Errorf(c.sink, diag.KindType, loc, format, args...)
	c.ok = false
	return c.invalid()
}

// Equal reports whether two type expressions denote the same type
// (spec §4.6: structural equality, with user-named types compared by
// resolved entry identity). A KindInvalid operand on either side always
// compares equal, so one reported error doesn't cascade into unrelated
// diagnostics further up the same expression.
func Equal(a, b *ast.Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind == ast.KindInvalid || b.Kind == ast.KindInvalid {
		return true
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case ast.KindIdent:
		return a.Entry == b.Entry
	case ast.KindTypeRef, ast.KindTypeSlice:
		return Equal(a.Child(0), b.Child(0))
	case ast.KindTypeArray:
		if !Equal(a.Child(1), b.Child(1)) {
			return false
		}
		av, aok := intLiteralValue(a.Child(0))
		bv, bok := intLiteralValue(b.Child(0))
		return aok && bok && av == bv
	case ast.KindTypeFunc:
		pa, pb := a.Child(0).Children, b.Child(0).Children
		if len(pa) != len(pb) {
			return false
		}
		for i := range pa {
			if !Equal(pa[i], pb[i]) {
				return false
			}
		}
		return Equal(a.Child(1), b.Child(1))
	default:
		return true
	}
}

func intLiteralValue(n *ast.Node) (int64, bool) {
	if n == nil {
		return 0, false
	}
	switch n.Kind {
	case ast.KindLitS8, ast.KindLitS16, ast.KindLitS32, ast.KindLitS64:
		return n.SInt, true
	case ast.KindLitU8, ast.KindLitU16, ast.KindLitU32, ast.KindLitU64:
		return int64(n.UInt), true
	}
	return 0, false
}

// synthesizeSignatures builds each function's TypeFunc from its own
// syntactic parameter and return types, independent of any other
// definition's body. This is what lets one function call another
// defined later in the same module.
func (c *Checker) synthesizeSignatures(mod *ast.Node) {
	for _, def := range mod.Children {
		if def.Kind != ast.KindFuncDef {
			continue
		}
		params := c.pool.New(ast.KindOther, def.Child(1).Loc)
		for _, param := range def.Child(1).Children {
			params.Children = append(params.Children, c.checkType(param.Child(1)))
		}
		ret := c.checkType(def.Child(2))
		if entry := def.Child(0).Entry; entry != nil {
			entry.Type = c.pool.NewChildren(ast.KindTypeFunc, def.Loc, params, ret)
		}
	}
}

func (c *Checker) checkTopLevel(mod *ast.Node) {
	for _, def := range mod.Children {
		switch def.Kind {
		case ast.KindConstDef, ast.KindVarDef:
			c.bindType(def.Child(0), c.checkExpr(def.Child(1)))
		case ast.KindVarDecl:
			c.bindType(def.Child(0), c.checkType(def.Child(1)))
		case ast.KindStructDef:
			for _, member := range def.Child(1).Children {
				c.checkType(member.Child(1))
			}
		case ast.KindFuncDef:
			c.returnType = c.invalid()
			if entry := def.Child(0).Entry; entry != nil && entry.Type != nil {
				c.returnType = entry.Type.Child(1)
			}
			for _, param := range def.Child(1).Children {
				c.bindType(param.Child(0), c.checkType(param.Child(1)))
			}
			c.checkBlock(def.Child(3))
			c.returnType = nil
		}
	}
}

// --- Types ---

func (c *Checker) checkType(n *ast.Node) *ast.Node {
	if n == nil {
		return c.invalid()
	}
	switch n.Kind {
	case ast.KindTypeVoid, ast.KindTypeS8, ast.KindTypeS16, ast.KindTypeS32, ast.KindTypeS64,
		ast.KindTypeU8, ast.KindTypeU16, ast.KindTypeU32, ast.KindTypeU64,
		ast.KindTypeF16, ast.KindTypeF32, ast.KindTypeF64,
		ast.KindTypeBool, ast.KindTypeString:
		return c.primitive(n.Kind)
	case ast.KindIdent:
		if n.Entry == nil {
			return c.invalid() // already reported by the resolver
		}
		if n.Entry.Decl == nil || n.Entry.Decl.Kind != ast.KindStructDef {
			return c.errorf(n.Loc, "%q is not a type", n.Name)
		}
		return n
	case ast.KindTypeRef:
		return c.pool.NewChildren(ast.KindTypeRef, n.Loc, c.checkType(n.Child(0)))
	case ast.KindTypeSlice:
		return c.pool.NewChildren(ast.KindTypeSlice, n.Loc, c.checkType(n.Child(0)))
	case ast.KindTypeArray:
		length := c.checkExpr(n.Child(0))
		if !length.Kind.IsInt() {
			c.errorf(n.Child(0).Loc, "array length must be an integer")
		}
		elem := c.checkType(n.Child(1))
		return c.pool.NewChildren(ast.KindTypeArray, n.Loc, n.Child(0), elem)
	case ast.KindTypeFunc:
		params := c.pool.New(ast.KindOther, n.Child(0).Loc)
		for _, t := range n.Child(0).Children {
			params.Children = append(params.Children, c.checkType(t))
		}
		ret := c.checkType(n.Child(1))
		return c.pool.NewChildren(ast.KindTypeFunc, n.Loc, params, ret)
	default:
		return c.errorf(n.Loc, "invalid type expression")
	}
}

// --- Expressions ---

func (c *Checker) checkExpr(n *ast.Node) *ast.Node {
	if n == nil {
		return c.invalid()
	}
	var t *ast.Node
	switch n.Kind {
	case ast.KindLitS8, ast.KindLitS16, ast.KindLitS32, ast.KindLitS64,
		ast.KindLitU8, ast.KindLitU16, ast.KindLitU32, ast.KindLitU64,
		ast.KindLitF16, ast.KindLitF32, ast.KindLitF64:
		t = c.primitive(ast.TypeKindForLiteral(n.Kind))
	case ast.KindLitBool:
		t = c.primitive(ast.KindTypeBool)
	case ast.KindLitString:
		t = c.primitive(ast.KindTypeString)
	case ast.KindIdent:
		if n.Entry == nil {
			t = c.invalid()
		} else if n.Entry.Type == nil {
			t = c.errorf(n.Loc, "%q cannot be used as a value", n.Name)
		} else {
			t = n.Entry.Type
		}
	case ast.KindField:
		t = c.checkField(n)
	case ast.KindCall:
		t = c.checkCall(n)
	case ast.KindIndex:
		t = c.checkIndex(n)
	case ast.KindSlice:
		t = c.checkSlice(n)
	case ast.KindAnd, ast.KindOr, ast.KindXor:
		t = c.checkLogical(n)
	case ast.KindEq, ast.KindNeq:
		t = c.checkEquality(n)
	case ast.KindLt, ast.KindLte, ast.KindGt, ast.KindGte:
		t = c.checkRelational(n)
	case ast.KindAdd, ast.KindSub, ast.KindMul, ast.KindDiv:
		t = c.checkArithmetic(n)
	case ast.KindRem, ast.KindShl, ast.KindShr:
		t = c.checkShift(n)
	case ast.KindNot:
		t = c.checkNot(n)
	case ast.KindNeg:
		t = c.checkNeg(n)
	case ast.KindRef:
		t = c.pool.NewChildren(ast.KindTypeRef, n.Loc, c.checkExpr(n.Child(0)))
	case ast.KindDeref:
		t = c.checkDeref(n)
	case ast.KindOther:
		t = c.checkStructLiteral(n)
	default:
		t = c.errorf(n.Loc, "cannot type-check expression of kind %v", n.Kind)
	}
	n.Type = t
	return t
}

// checkField matches a postfix .name access against the subject's
// struct member list. Unlike the rest of the expression kinds, field
// access is typed here but deliberately left unsupported by both code
// generators, which report it as an explicit unimplemented-construct
// diagnostic rather than silently emitting wrong code.
func (c *Checker) checkField(n *ast.Node) *ast.Node {
	subj := c.checkExpr(n.Child(0))
	if subj.Kind != ast.KindIdent || subj.Entry == nil || subj.Entry.Decl == nil || subj.Entry.Decl.Kind != ast.KindStructDef {
		return c.errorf(n.Loc, "field access on a non-struct type")
	}
	for _, member := range subj.Entry.Decl.Child(1).Children {
		if member.Child(0).Name == n.Name {
			return c.checkType(member.Child(1))
		}
	}
	return c.errorf(n.Loc, "struct %q has no field %q", subj.Entry.Name, n.Name)
}

func (c *Checker) checkCall(n *ast.Node) *ast.Node {
	calleeType := c.checkExpr(n.Child(0))
	args := n.Child(1).Children
	if calleeType.Kind != ast.KindTypeFunc {
		for _, a := range args {
			c.checkExpr(a)
		}
		return c.errorf(n.Child(0).Loc, "call target is not a function")
	}
	params := calleeType.Child(0).Children
	// Lockstep advance: both the parameter and argument lists move
	// together, so a count mismatch never causes a parameter to be
	// checked against the wrong argument (spec §9).
	i, j := 0, 0
	for i < len(params) && j < len(args) {
		argType := c.checkExpr(args[j])
		if !Equal(params[i], argType) {
			c.errorf(args[j].Loc, "argument %d type mismatch", j+1)
		}
		i++
		j++
	}
	for ; j < len(args); j++ {
		c.checkExpr(args[j])
	}
	if len(args) < len(params) {
		c.errorf(n.Loc, "too few arguments: call has %d, want %d", len(args), len(params))
	} else if len(args) > len(params) {
		c.errorf(n.Loc, "too many arguments: call has %d, want %d", len(args), len(params))
	}
	return calleeType.Child(1)
}

func (c *Checker) checkIndex(n *ast.Node) *ast.Node {
	subj := c.checkExpr(n.Child(0))
	idx := c.checkExpr(n.Child(1))
	if !idx.Kind.IsInt() {
		c.errorf(n.Child(1).Loc, "index must be an integer")
	}
	switch subj.Kind {
	case ast.KindTypeArray:
		return subj.Child(1)
	case ast.KindTypeSlice:
		return subj.Child(0)
	default:
		return c.errorf(n.Loc, "cannot index a non-array, non-slice type")
	}
}

func (c *Checker) checkSlice(n *ast.Node) *ast.Node {
	subj := c.checkExpr(n.Child(0))
	start := c.checkExpr(n.Child(1))
	end := c.checkExpr(n.Child(2))
	if !start.Kind.IsInt() || !end.Kind.IsInt() {
		c.errorf(n.Loc, "slice bounds must be integers")
	}
	var elem *ast.Node
	switch subj.Kind {
	case ast.KindTypeArray:
		elem = subj.Child(1)
	case ast.KindTypeSlice:
		elem = subj.Child(0)
	default:
		return c.errorf(n.Loc, "cannot slice a non-array, non-slice type")
	}
	return c.pool.NewChildren(ast.KindTypeSlice, n.Loc, elem)
}

// checkLogical types and/or/xor: operands must be integer or bool, and
// equal; the expression keeps that common operand type (spec §4.6 — on
// integers these are the language's bitwise operators).
func (c *Checker) checkLogical(n *ast.Node) *ast.Node {
	l := c.checkExpr(n.Child(0))
	r := c.checkExpr(n.Child(1))
	if !isIntOrBool(l) || !Equal(l, r) {
		return c.errorf(n.Loc, "logical operator requires matching integer or bool operands")
	}
	return l
}

func (c *Checker) checkEquality(n *ast.Node) *ast.Node {
	l := c.checkExpr(n.Child(0))
	r := c.checkExpr(n.Child(1))
	if !isEquatable(l) || !Equal(l, r) {
		return c.errorf(n.Loc, "equality requires matching integer, bool, or string operands")
	}
	return c.primitive(ast.KindTypeBool)
}

// The operand-class predicates below all treat an already-invalid type
// as acceptable, for the same reason Equal does: one reported error
// should not cascade into every enclosing expression.

func isIntOrBool(t *ast.Node) bool {
	return t != nil && (t.Kind.IsInt() || t.Kind == ast.KindTypeBool || t.Kind == ast.KindInvalid)
}

func isEquatable(t *ast.Node) bool {
	return isIntOrBool(t) || (t != nil && t.Kind == ast.KindTypeString)
}

func isNumeric(t *ast.Node) bool {
	return t != nil && (t.Kind.IsNumeric() || t.Kind == ast.KindInvalid)
}

func isInteger(t *ast.Node) bool {
	return t != nil && (t.Kind.IsInt() || t.Kind == ast.KindInvalid)
}

func (c *Checker) checkRelational(n *ast.Node) *ast.Node {
	l := c.checkExpr(n.Child(0))
	r := c.checkExpr(n.Child(1))
	if !isNumeric(l) || !Equal(l, r) {
		return c.errorf(n.Loc, "relational operator requires matching numeric operands")
	}
	return c.primitive(ast.KindTypeBool)
}

func (c *Checker) checkArithmetic(n *ast.Node) *ast.Node {
	l := c.checkExpr(n.Child(0))
	r := c.checkExpr(n.Child(1))
	if !isNumeric(l) || !Equal(l, r) {
		return c.errorf(n.Loc, "arithmetic operator requires matching numeric operands")
	}
	return l
}

// checkShift implements the "operands must be integer and equal" rule
// spec §4.6 gives for `%`, `<>`, and `>>` alike.
func (c *Checker) checkShift(n *ast.Node) *ast.Node {
	l := c.checkExpr(n.Child(0))
	r := c.checkExpr(n.Child(1))
	if !isInteger(l) || !Equal(l, r) {
		return c.errorf(n.Loc, "operator requires matching integer operands")
	}
	return l
}

// checkNot types unary !: on bool it is logical negation, on integers a
// bitwise NOT; either way the result keeps the operand's type.
func (c *Checker) checkNot(n *ast.Node) *ast.Node {
	operand := c.checkExpr(n.Child(0))
	if !isIntOrBool(operand) {
		return c.errorf(n.Loc, "! requires an integer or bool operand")
	}
	return operand
}

func (c *Checker) checkNeg(n *ast.Node) *ast.Node {
	operand := c.checkExpr(n.Child(0))
	if !isNumeric(operand) {
		return c.errorf(n.Loc, "unary - requires a numeric operand")
	}
	return operand
}

func (c *Checker) checkDeref(n *ast.Node) *ast.Node {
	operand := c.checkExpr(n.Child(0))
	if operand.Kind != ast.KindTypeRef {
		return c.errorf(n.Loc, "* requires a reference operand")
	}
	return operand.Child(0)
}

func (c *Checker) checkStructLiteral(n *ast.Node) *ast.Node {
	if n.Entry == nil || n.Entry.Decl == nil {
		for _, field := range n.Children {
			c.checkExpr(field.Child(1))
		}
		return c.invalid() // undefined type already reported by the resolver
	}
	members := n.Entry.Decl.Child(1)
	for _, field := range n.Children {
		name := field.Child(0).Name
		valType := c.checkExpr(field.Child(1))
		found := false
		for _, member := range members.Children {
			if member.Child(0).Name == name {
				found = true
				if !Equal(c.checkType(member.Child(1)), valType) {
					c.errorf(field.Loc, "field %q type mismatch", name)
				}
				break
			}
		}
		if !found {
			c.errorf(field.Loc, "struct %q has no field %q", n.Name, name)
		}
	}
	return n.Entry.Decl.Child(0)
}

// --- Statements ---

func (c *Checker) checkBlock(block *ast.Node) {
	for _, stmt := range block.Children {
		c.checkStmt(stmt)
		if stmt.Type == nil || stmt.Type.Kind != ast.KindTypeVoid {
			c.errorf(stmt.Loc, "statement result must be void")
		}
	}
	block.Type = c.primitive(ast.KindTypeVoid)
}

var compoundAssignOps = map[ast.Kind]bool{
	ast.KindAssignAdd: true, ast.KindAssignSub: true, ast.KindAssignMul: true,
	ast.KindAssignDiv: true,
}

// intOnlyAssignOps is %=, <>=, >>= (spec §4.6): both operands must be
// integer, not merely numeric, unlike +=/-=/*=//=.
var intOnlyAssignOps = map[ast.Kind]bool{
	ast.KindAssignRem: true, ast.KindAssignShl: true, ast.KindAssignShr: true,
}

func (c *Checker) checkStmt(stmt *ast.Node) {
	void := c.primitive(ast.KindTypeVoid)
	switch stmt.Kind {
	case ast.KindBlock:
		c.checkBlock(stmt)
		stmt.Type = void
	case ast.KindConstDef, ast.KindVarDef:
		c.bindType(stmt.Child(0), c.checkExpr(stmt.Child(1)))
		stmt.Type = void
	case ast.KindVarDecl:
		c.bindType(stmt.Child(0), c.checkType(stmt.Child(1)))
		stmt.Type = void
	case ast.KindIf:
		if cond := c.checkExpr(stmt.Child(0)); cond.Kind != ast.KindTypeBool {
			c.errorf(stmt.Child(0).Loc, "if condition must be bool")
		}
		c.checkBlock(stmt.Child(1))
		if elseBranch := stmt.Child(2); elseBranch != nil {
			if elseBranch.Kind == ast.KindBlock {
				c.checkBlock(elseBranch)
			} else {
				c.checkStmt(elseBranch)
			}
		}
		stmt.Type = void
	case ast.KindLoop:
		c.checkBlock(stmt.Child(0))
		stmt.Type = void
	case ast.KindWhile:
		if cond := c.checkExpr(stmt.Child(0)); cond.Kind != ast.KindTypeBool {
			c.errorf(stmt.Child(0).Loc, "while condition must be bool")
		}
		c.checkBlock(stmt.Child(1))
		stmt.Type = void
	case ast.KindContinue, ast.KindBreak:
		stmt.Type = void
	case ast.KindReturn:
		if value := stmt.Child(0); value != nil {
			if vt := c.checkExpr(value); !Equal(vt, c.returnType) {
				c.errorf(value.Loc, "return value does not match the function's return type")
			}
		} else if c.returnType.Kind != ast.KindTypeVoid {
			c.errorf(stmt.Loc, "missing return value")
		}
		stmt.Type = void
	case ast.KindAssign, ast.KindAssignAdd, ast.KindAssignSub, ast.KindAssignMul,
		ast.KindAssignDiv, ast.KindAssignRem, ast.KindAssignShl, ast.KindAssignShr:
		target := c.checkExpr(stmt.Child(0))
		value := c.checkExpr(stmt.Child(1))
		if !Equal(target, value) {
			c.errorf(stmt.Loc, "assignment type mismatch")
		} else if compoundAssignOps[stmt.Kind] && !target.Kind.IsNumeric() {
			c.errorf(stmt.Loc, "compound assignment requires a numeric operand")
		} else if intOnlyAssignOps[stmt.Kind] && !target.Kind.IsInt() {
			c.errorf(stmt.Loc, "compound assignment requires an integer operand")
		}
		stmt.Type = void
	default:
		// A bare expression statement (the grammar's "UnaryExpr ';'"
		// form); its own type is whatever the expression types to, and
		// checkBlock flags it if that isn't void.
		c.checkExpr(stmt)
	}
}
