// Package resolve implements the name resolution stage (spec §4.5): a
// two-pass walk of a module that binds every declaration to a symbol
// table entry and every identifier use-site to the entry it refers to.
package resolve

import (
	"github.com/plxlang/plxc/internal/ast"
	"github.com/plxlang/plxc/internal/diag"
	"github.com/plxlang/plxc/internal/symtab"
)

type resolver struct {
	table *symtab.Table
	sink  diag.Sink
	ok    bool
}

// Module resolves every definition in mod (a KindModule node). The
// first pass declares every top-level const, var, struct, and function
// name in the global scope so that forward and mutually-recursive
// references between definitions resolve correctly; the second pass
// resolves every nested use-site against that table. Reports false if
// any diagnostic was produced.
func Module(table *symtab.Table, sink diag.Sink, mod *ast.Node) bool {
	r := &resolver{table: table, sink: sink, ok: true}
	r.declareTopLevel(mod)
	r.resolveTopLevel(mod)
	return r.ok
}

func (r *resolver) declare(name *ast.Node, scope ast.Scope, mut ast.Mutability) *ast.Entry {
	entry, ok := r.table.Declare(name.Name, name.Loc, scope, mut, nil)
	if !ok {
		prev := r.table.Lookup(name.Name)
		diag.ErrorfNote(r.sink, diag.KindResolve, name.Loc, prev.Loc, "first declared here",
			"%q is already declared in this scope", name.Name)
		r.ok = false
		return nil
	}
	name.Entry = entry
	return entry
}

func (r *resolver) lookup(name *ast.Node) {
	entry := r.table.Lookup(name.Name)
	if entry == nil {
		diag.Errorf(r.sink, diag.KindResolve, name.Loc, "undefined identifier %q", name.Name)
		r.ok = false
		return
	}
	name.Entry = entry
}

func (r *resolver) declareTopLevel(mod *ast.Node) {
	for _, def := range mod.Children {
		switch def.Kind {
		case ast.KindConstDef:
			r.declare(def.Child(0), ast.ScopeGlobal, ast.Constant)
		case ast.KindVarDef, ast.KindVarDecl:
			r.declare(def.Child(0), ast.ScopeGlobal, ast.Mutable)
		case ast.KindStructDef:
			if entry := r.declare(def.Child(0), ast.ScopeGlobal, ast.Constant); entry != nil {
				entry.Decl = def
			}
		case ast.KindFuncDef:
			if entry := r.declare(def.Child(0), ast.ScopeGlobal, ast.Constant); entry != nil {
				entry.Decl = def
			}
		}
	}
}

func (r *resolver) resolveTopLevel(mod *ast.Node) {
	for _, def := range mod.Children {
		switch def.Kind {
		case ast.KindConstDef, ast.KindVarDef:
			r.resolveExpr(def.Child(1))
		case ast.KindVarDecl:
			r.resolveType(def.Child(1))
		case ast.KindStructDef:
			r.resolveStructMembers(def.Child(1))
		case ast.KindFuncDef:
			r.resolveFunc(def)
		}
	}
}

func (r *resolver) resolveStructMembers(members *ast.Node) {
	for _, member := range members.Children {
		r.resolveType(member.Child(1))
	}
}

func (r *resolver) resolveFunc(def *ast.Node) {
	r.table.EnterScope()
	defer r.table.ExitScope()

	params := def.Child(1)
	for _, param := range params.Children {
		r.resolveType(param.Child(1))
		r.declare(param.Child(0), ast.ScopeLocal, ast.Mutable)
	}
	r.resolveType(def.Child(2))
	r.resolveBlock(def.Child(3))
}

func (r *resolver) resolveBlock(block *ast.Node) {
	r.table.EnterScope()
	defer r.table.ExitScope()
	for _, stmt := range block.Children {
		r.resolveStmt(stmt)
	}
}

func (r *resolver) resolveStmt(stmt *ast.Node) {
	switch stmt.Kind {
	case ast.KindBlock:
		r.resolveBlock(stmt)
	case ast.KindConstDef:
		r.resolveExpr(stmt.Child(1))
		r.declare(stmt.Child(0), ast.ScopeLocal, ast.Constant)
	case ast.KindVarDef:
		r.resolveExpr(stmt.Child(1))
		r.declare(stmt.Child(0), ast.ScopeLocal, ast.Mutable)
	case ast.KindVarDecl:
		r.resolveType(stmt.Child(1))
		r.declare(stmt.Child(0), ast.ScopeLocal, ast.Mutable)
	case ast.KindIf:
		r.resolveExpr(stmt.Child(0))
		r.resolveBlock(stmt.Child(1))
		if elseBranch := stmt.Child(2); elseBranch != nil {
			if elseBranch.Kind == ast.KindBlock {
				r.resolveBlock(elseBranch)
			} else {
				r.resolveStmt(elseBranch)
			}
		}
	case ast.KindLoop:
		r.resolveBlock(stmt.Child(0))
	case ast.KindWhile:
		r.resolveExpr(stmt.Child(0))
		r.resolveBlock(stmt.Child(1))
	case ast.KindContinue, ast.KindBreak:
		// Leaf statements; nothing to resolve.
	case ast.KindReturn:
		if value := stmt.Child(0); value != nil {
			r.resolveExpr(value)
		}
	case ast.KindAssign, ast.KindAssignAdd, ast.KindAssignSub, ast.KindAssignMul,
		ast.KindAssignDiv, ast.KindAssignRem, ast.KindAssignShl, ast.KindAssignShr:
		r.resolveExpr(stmt.Child(0))
		r.resolveExpr(stmt.Child(1))
	default:
		// A bare expression statement (the grammar's "UnaryExpr ';'" form).
		r.resolveExpr(stmt)
	}
}

func (r *resolver) resolveExpr(n *ast.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.KindIdent:
		r.lookup(n)
	case ast.KindField:
		r.resolveExpr(n.Child(0))
		// The field name itself is matched against the subject's struct
		// type by the type checker, not looked up here.
	case ast.KindCall:
		r.resolveExpr(n.Child(0))
		for _, arg := range n.Child(1).Children {
			r.resolveExpr(arg)
		}
	case ast.KindIndex:
		r.resolveExpr(n.Child(0))
		r.resolveExpr(n.Child(1))
	case ast.KindSlice:
		r.resolveExpr(n.Child(0))
		r.resolveExpr(n.Child(1))
		r.resolveExpr(n.Child(2))
	case ast.KindAnd, ast.KindOr, ast.KindXor,
		ast.KindEq, ast.KindNeq, ast.KindLt, ast.KindLte, ast.KindGt, ast.KindGte,
		ast.KindAdd, ast.KindSub, ast.KindMul, ast.KindDiv, ast.KindRem,
		ast.KindShl, ast.KindShr:
		r.resolveExpr(n.Child(0))
		r.resolveExpr(n.Child(1))
	case ast.KindNot, ast.KindNeg, ast.KindRef, ast.KindDeref:
		r.resolveExpr(n.Child(0))
	case ast.KindOther:
		// A struct literal: resolve its type name and each field's value
		// expression. Field labels, like member names, are matched
		// structurally by the type checker.
		if entry := r.table.Lookup(n.Name); entry != nil {
			n.Entry = entry
		} else {
			diag.Errorf(r.sink, diag.KindResolve, n.Loc, "undefined type %q", n.Name)
			r.ok = false
		}
		for _, field := range n.Children {
			r.resolveExpr(field.Child(1))
		}
	default:
		// Literals (lit_s32, lit_f64, lit_bool, lit_string) carry no
		// references to resolve.
	}
}

func (r *resolver) resolveType(n *ast.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.KindIdent:
		r.lookup(n)
	case ast.KindTypeRef, ast.KindTypeSlice:
		r.resolveType(n.Child(0))
	case ast.KindTypeArray:
		r.resolveExpr(n.Child(0))
		r.resolveType(n.Child(1))
	case ast.KindTypeFunc:
		for _, t := range n.Child(0).Children {
			r.resolveType(t)
		}
		r.resolveType(n.Child(1))
	default:
		// Primitive type leaves (type_s8..type_f64, type_bool, type_void)
		// are canonical and carry nothing to resolve.
	}
}
