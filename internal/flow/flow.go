// Package flow implements the return-path checker (spec §4.7): every
// function whose return type is not void must return a value on every
// reachable exit path.
package flow

import (
	"github.com/plxlang/plxc/internal/ast"
	"github.com/plxlang/plxc/internal/diag"
)

// Module checks every function definition in mod, reporting a
// missing-return diagnostic for any whose declared return type is not
// void but whose body does not always return. Reports false if any
// diagnostic was produced.
func Module(sink diag.Sink, mod *ast.Node) bool {
	ok := true
	for _, def := range mod.Children {
		if def.Kind != ast.KindFuncDef {
			continue
		}
		retType := def.Child(2)
		if retType.Kind == ast.KindTypeVoid {
			continue
		}
		if !blockAlwaysReturns(def.Child(3)) {
			diag.Errorf(sink, diag.KindFlow, def.Child(0).Loc,
				"function %q does not return a value on every path", def.Child(0).Name)
			ok = false
		}
	}
	return ok
}

// blockAlwaysReturns reports whether every path through block ends in a
// return (spec §4.7: "Block -> true iff some statement returns" — a
// block need not end with the returning statement itself, since
// anything after an unconditional return is unreachable but still
// syntactically present).
func blockAlwaysReturns(block *ast.Node) bool {
	for _, stmt := range block.Children {
		if stmtAlwaysReturns(stmt) {
			return true
		}
	}
	return false
}

// stmtAlwaysReturns reports whether stmt unconditionally returns (spec
// §4.7: Return -> true; Block -> true iff some statement returns;
// If-then-else -> true iff both branches return; everything else ->
// false, including loops, since this checker doesn't prove a loop body
// executes at least once).
func stmtAlwaysReturns(stmt *ast.Node) bool {
	switch stmt.Kind {
	case ast.KindReturn:
		return true
	case ast.KindBlock:
		return blockAlwaysReturns(stmt)
	case ast.KindIf:
		elseBranch := stmt.Child(2)
		if elseBranch == nil {
			return false
		}
		thenReturns := blockAlwaysReturns(stmt.Child(1))
		var elseReturns bool
		if elseBranch.Kind == ast.KindBlock {
			elseReturns = blockAlwaysReturns(elseBranch)
		} else {
			elseReturns = stmtAlwaysReturns(elseBranch)
		}
		return thenReturns && elseReturns
	default:
		return false
	}
}
