// Package compile drives the front-end pipeline (spec §2's data flow):
// concatenate every parsed file's top-level definitions into one
// synthetic module node, then run name resolution, type checking,
// return checking, constant folding, and AST validation over it in
// order. Back-end selection and invocation stay outside this package,
// in internal/driver, which only calls a back-end's EmitModule once
// every stage here reports success.
package compile

import (
	"github.com/plxlang/plxc/internal/ast"
	"github.com/plxlang/plxc/internal/diag"
	"github.com/plxlang/plxc/internal/flow"
	"github.com/plxlang/plxc/internal/fold"
	"github.com/plxlang/plxc/internal/resolve"
	"github.com/plxlang/plxc/internal/symtab"
	"github.com/plxlang/plxc/internal/types"
	"github.com/plxlang/plxc/internal/validate"
)

// Unit is one parsed translation unit: the KindModule node parser.ParseFile
// returned for a single source file, before its definitions are folded
// into the combined module.
type Unit struct {
	File   string
	Module *ast.Node
}

// Merge concatenates every unit's top-level definitions into one
// synthetic KindModule node, in the order units are given (spec §2:
// "the driver concatenates the top-level definitions of every parsed
// file into a single synthetic module node"). File order is the
// responsibility of the caller (internal/driver sorts directory
// entries before parsing); Merge itself does no reordering.
func Merge(pool *ast.Pool, units []Unit) *ast.Node {
	var loc diag.Location
	if len(units) > 0 {
		loc = units[0].Module.Loc
	}
	var defs []*ast.Node
	for _, u := range units {
		defs = append(defs, u.Module.Children...)
	}
	return pool.NewChildren(ast.KindModule, loc, defs...)
}

// Result carries the per-stage success flags the pipeline produced, so
// a caller that wants to report "which stage failed" can do so without
// re-deriving it from the diagnostic collector's contents.
type Result struct {
	Resolved  bool
	TypeOK    bool
	FlowOK    bool
	FoldOK    bool
	Validated bool
}

// OK reports whether every stage succeeded, the precondition for
// running a back-end (spec §2: "the pipeline halts before code
// generation if any earlier stage reported a failure").
func (r Result) OK() bool {
	return r.Resolved && r.TypeOK && r.FlowOK && r.FoldOK && r.Validated
}

// Run drives mod (as built by Merge) through every front-end stage in
// order. Every stage always runs, even if an earlier one failed,
// matching spec §2/§7's propagation policy: "a failed stage may still
// process sibling subtrees to report as many diagnostics per run as
// possible." Only code generation (left to the caller) is gated on the
// combined result.
func Run(pool *ast.Pool, sink diag.Sink, mod *ast.Node) Result {
	var res Result

	table := symtab.New(pool)
	res.Resolved = resolve.Module(table, sink, mod)
	res.TypeOK = types.Module(pool, sink, mod)
	res.FlowOK = flow.Module(sink, mod)
	res.FoldOK = fold.Module(pool, sink, mod)
	res.Validated = validate.Module(sink, mod)

	return res
}
