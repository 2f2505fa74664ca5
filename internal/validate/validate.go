// Package validate implements the post-folding AST validator (spec
// §4.9): a final structural check that every const/var definition's
// right-hand side folded to a literal, every assignment target and `&`
// operand is referenceable, and every array type's length folded to a
// literal.
package validate

import (
	"github.com/plxlang/plxc/internal/ast"
	"github.com/plxlang/plxc/internal/diag"
)

type validator struct {
	sink diag.Sink
	ok   bool
}

// Module validates every definition in mod after constant folding has
// run to a fixed point. Reports false if any diagnostic was produced.
func Module(sink diag.Sink, mod *ast.Node) bool {
	v := &validator{sink: sink, ok: true}
	v.checkTopLevel(mod)
	return v.ok
}

func (v *validator) errorf(loc diag.Location, format string, args ...any) {
	diag.Errorf(v.sink, diag.KindValidation, loc, format, args...)
	v.ok = false
}

// isReferenceable reports whether n is an l-value expression: an
// identifier, a dereference, or an index (spec §4.9, GLOSSARY).
func isReferenceable(n *ast.Node) bool {
	if n == nil {
		return false
	}
	switch n.Kind {
	case ast.KindIdent, ast.KindDeref, ast.KindIndex:
		return true
	default:
		return false
	}
}

func (v *validator) checkConstantRHS(name *ast.Node, value *ast.Node) {
	if !value.Kind.IsLiteral() {
		v.errorf(value.Loc, "%q is not initialized with a constant expression", name.Name)
	}
}

func (v *validator) checkTopLevel(mod *ast.Node) {
	for _, def := range mod.Children {
		switch def.Kind {
		case ast.KindConstDef, ast.KindVarDef:
			v.checkConstantRHS(def.Child(0), def.Child(1))
			v.checkExpr(def.Child(1))
		case ast.KindVarDecl:
			v.checkType(def.Child(1))
		case ast.KindStructDef:
			for _, member := range def.Child(1).Children {
				v.checkType(member.Child(1))
			}
		case ast.KindFuncDef:
			for _, param := range def.Child(1).Children {
				v.checkType(param.Child(1))
			}
			v.checkType(def.Child(2))
			v.checkBlock(def.Child(3))
		}
	}
}

func (v *validator) checkBlock(block *ast.Node) {
	for _, stmt := range block.Children {
		v.checkStmt(stmt)
	}
}

func (v *validator) checkStmt(stmt *ast.Node) {
	switch stmt.Kind {
	case ast.KindBlock:
		v.checkBlock(stmt)
	case ast.KindConstDef, ast.KindVarDef:
		v.checkConstantRHS(stmt.Child(0), stmt.Child(1))
		v.checkExpr(stmt.Child(1))
	case ast.KindVarDecl:
		v.checkType(stmt.Child(1))
	case ast.KindIf:
		v.checkExpr(stmt.Child(0))
		v.checkBlock(stmt.Child(1))
		if elseBranch := stmt.Child(2); elseBranch != nil {
			if elseBranch.Kind == ast.KindBlock {
				v.checkBlock(elseBranch)
			} else {
				v.checkStmt(elseBranch)
			}
		}
	case ast.KindLoop:
		v.checkBlock(stmt.Child(0))
	case ast.KindWhile:
		v.checkExpr(stmt.Child(0))
		v.checkBlock(stmt.Child(1))
	case ast.KindContinue, ast.KindBreak, ast.KindNop:
		// Nothing to validate.
	case ast.KindReturn:
		if value := stmt.Child(0); value != nil {
			v.checkExpr(value)
		}
	case ast.KindAssign, ast.KindAssignAdd, ast.KindAssignSub, ast.KindAssignMul,
		ast.KindAssignDiv, ast.KindAssignRem, ast.KindAssignShl, ast.KindAssignShr:
		target := stmt.Child(0)
		if !isReferenceable(target) {
			v.errorf(target.Loc, "assignment target is not referenceable")
		}
		if target.Kind == ast.KindIdent && target.Entry != nil && target.Entry.Mut == ast.Constant {
			v.errorf(target.Loc, "cannot assign to constant %q", target.Name)
		}
		v.checkExpr(target)
		v.checkExpr(stmt.Child(1))
	default:
		v.checkExpr(stmt)
	}
}

func (v *validator) checkExpr(n *ast.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.KindField:
		v.checkExpr(n.Child(0))
	case ast.KindCall:
		v.checkExpr(n.Child(0))
		for _, arg := range n.Child(1).Children {
			v.checkExpr(arg)
		}
	case ast.KindIndex:
		v.checkExpr(n.Child(0))
		v.checkExpr(n.Child(1))
	case ast.KindSlice:
		v.checkExpr(n.Child(0))
		v.checkExpr(n.Child(1))
		v.checkExpr(n.Child(2))
	case ast.KindAnd, ast.KindOr, ast.KindXor,
		ast.KindEq, ast.KindNeq, ast.KindLt, ast.KindLte, ast.KindGt, ast.KindGte,
		ast.KindAdd, ast.KindSub, ast.KindMul, ast.KindDiv, ast.KindRem,
		ast.KindShl, ast.KindShr:
		v.checkExpr(n.Child(0))
		v.checkExpr(n.Child(1))
	case ast.KindNot, ast.KindNeg, ast.KindDeref:
		v.checkExpr(n.Child(0))
	case ast.KindRef:
		operand := n.Child(0)
		if !isReferenceable(operand) {
			v.errorf(operand.Loc, "operand of & is not referenceable")
		}
		v.checkExpr(operand)
	case ast.KindOther:
		for _, field := range n.Children {
			v.checkExpr(field.Child(1))
		}
	default:
		// Identifiers and literals carry nothing further to validate.
	}
}

func (v *validator) checkType(n *ast.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case ast.KindTypeRef, ast.KindTypeSlice:
		v.checkType(n.Child(0))
	case ast.KindTypeArray:
		length := n.Child(0)
		if !length.Kind.IsLiteral() {
			v.errorf(length.Loc, "array length must be a constant expression")
		}
		v.checkType(n.Child(1))
	case ast.KindTypeFunc:
		for _, t := range n.Child(0).Children {
			v.checkType(t)
		}
		v.checkType(n.Child(1))
	default:
		// Primitive and named-type leaves carry nothing further to
		// validate.
	}
}
