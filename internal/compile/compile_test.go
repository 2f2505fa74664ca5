package compile

import (
	"strings"
	"testing"

	"github.com/plxlang/plxc/internal/ast"
	"github.com/plxlang/plxc/internal/diag"
	"github.com/plxlang/plxc/internal/parser"
)

func parseUnit(t *testing.T, pool *ast.Pool, file, src string) Unit {
	t.Helper()
	var coll diag.Collector
	mod, ok := parser.ParseFile(pool, &coll, file, strings.NewReader(src))
	if !ok {
		t.Fatalf("parse %s failed: %+v", file, coll.Diagnostics)
	}
	return Unit{File: file, Module: mod}
}

func TestMergeConcatenatesDefinitionsInUnitOrder(t *testing.T) {
	t.Parallel()

	pool := ast.NewPool()
	a := parseUnit(t, pool, "a.plx", "func a() -> s32 { return 1; }")
	b := parseUnit(t, pool, "b.plx", "func b() -> s32 { return 2; }")

	mod := Merge(pool, []Unit{a, b})
	if got := len(mod.Children); got != 2 {
		t.Fatalf("merged module has %d definitions, want 2", got)
	}
	if mod.Children[0].Child(0).Name != "a" || mod.Children[1].Child(0).Name != "b" {
		t.Fatalf("definitions out of order: %s, %s", mod.Children[0].Child(0).Name, mod.Children[1].Child(0).Name)
	}
}

func TestRunSucceedsOnWellFormedModule(t *testing.T) {
	t.Parallel()

	pool := ast.NewPool()
	units := []Unit{
		parseUnit(t, pool, "mutual.plx", `
			func isEven(n: s32) -> bool {
				if n == 0 {
					return true;
				}
				return isOdd(n - 1);
			}
			func isOdd(n: s32) -> bool {
				if n == 0 {
					return false;
				}
				return isEven(n - 1);
			}
		`),
	}
	mod := Merge(pool, units)
	var coll diag.Collector
	res := Run(pool, &coll, mod)
	if !res.OK() {
		t.Fatalf("Run() = %+v, diagnostics: %+v", res, coll.Diagnostics)
	}
}

// TestRunStillRunsEveryStageAfterAnEarlyFailure exercises spec §2/§7's
// propagation policy: a failed early stage does not stop later stages
// from running over whatever the tree still offers, so a single
// invocation reports as many diagnostics as possible. Resolution fails
// on the undeclared identifier; flow and validate still run without
// panicking on the resulting nil Entry.
func TestRunStillRunsEveryStageAfterAnEarlyFailure(t *testing.T) {
	t.Parallel()

	pool := ast.NewPool()
	units := []Unit{
		parseUnit(t, pool, "bad.plx", "func f() -> s32 { return x; }"),
	}
	mod := Merge(pool, units)
	var coll diag.Collector
	res := Run(pool, &coll, mod)
	if res.Resolved {
		t.Fatalf("Resolved = true, want false for an undeclared identifier")
	}
	if res.OK() {
		t.Fatalf("OK() = true, want false")
	}
	if len(coll.Diagnostics) == 0 {
		t.Fatalf("expected at least one diagnostic")
	}
}

func TestResultOKRequiresEveryStage(t *testing.T) {
	t.Parallel()

	allTrue := Result{Resolved: true, TypeOK: true, FlowOK: true, FoldOK: true, Validated: true}
	if !allTrue.OK() {
		t.Fatalf("OK() = false for an all-true Result")
	}
	allTrue.TypeOK = false
	if allTrue.OK() {
		t.Fatalf("OK() = true with TypeOK false")
	}
}
