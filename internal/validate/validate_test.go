package validate

import (
	"strings"
	"testing"

	"github.com/plxlang/plxc/internal/ast"
	"github.com/plxlang/plxc/internal/diag"
	"github.com/plxlang/plxc/internal/fold"
	"github.com/plxlang/plxc/internal/parser"
	"github.com/plxlang/plxc/internal/resolve"
	"github.com/plxlang/plxc/internal/symtab"
	"github.com/plxlang/plxc/internal/types"
)

// prepare runs every stage up to and including folding, so tests exercise
// the validator against a tree in the same shape the driver hands it.
func prepare(t *testing.T, src string) (*ast.Node, bool, []diag.Diagnostic) {
	t.Helper()
	pool := ast.NewPool()
	var coll diag.Collector
	mod, ok := parser.ParseFile(pool, &coll, "t.plx", strings.NewReader(src))
	if !ok {
		t.Fatalf("parse failed: %+v", coll.Diagnostics)
	}
	table := symtab.New(pool)
	if !resolve.Module(table, &coll, mod) {
		t.Fatalf("resolve failed: %+v", coll.Diagnostics)
	}
	if !types.Module(pool, &coll, mod) {
		t.Fatalf("type check failed: %+v", coll.Diagnostics)
	}
	fold.Module(pool, &coll, mod)
	coll.Diagnostics = nil // folding diagnostics are not under test here
	ok = Module(&coll, mod)
	return mod, ok, coll.Diagnostics
}

func TestValidateConstDefMustFoldToLiteral(t *testing.T) {
	t.Parallel()

	_, ok, diags := prepare(t, `
		func f(n: s32) -> s32 {
			const c = n;
			return c;
		}
	`)
	if ok || len(diags) != 1 {
		t.Fatalf("ok=%v diags=%+v", ok, diags)
	}
}

func TestValidateConstDefFoldedLiteralPasses(t *testing.T) {
	t.Parallel()

	_, ok, diags := prepare(t, "const c = 1 + 2; func f() -> s32 { return c; }")
	if !ok || len(diags) != 0 {
		t.Fatalf("ok=%v diags=%+v", ok, diags)
	}
}

func TestValidateAssignmentTargetMustBeReferenceable(t *testing.T) {
	t.Parallel()

	_, ok, diags := prepare(t, `
		func g() -> s32 { return 1; }
		func f() -> s32 {
			g() = 2;
			return 1;
		}
	`)
	if ok || len(diags) != 1 {
		t.Fatalf("ok=%v diags=%+v", ok, diags)
	}
}

func TestValidateAssignmentToDerefAndIndexAreReferenceable(t *testing.T) {
	t.Parallel()

	_, ok, diags := prepare(t, `
		func f(p: &s32, a: [3]s32) -> s32 {
			*p = 1;
			a[0] = 2;
			return *p;
		}
	`)
	if !ok || len(diags) != 0 {
		t.Fatalf("ok=%v diags=%+v", ok, diags)
	}
}

func TestValidateRefOperandMustBeReferenceable(t *testing.T) {
	t.Parallel()

	_, ok, diags := prepare(t, `
		func f() -> s32 {
			var p: &s32;
			p = &(1 + 2);
			return 1;
		}
	`)
	if ok || len(diags) != 1 {
		t.Fatalf("ok=%v diags=%+v", ok, diags)
	}
}

func TestValidateVarDefMustFoldToLiteral(t *testing.T) {
	t.Parallel()

	_, ok, diags := prepare(t, `
		func f(n: s32) -> s32 {
			var x = n + 1;
			return x;
		}
	`)
	if ok || len(diags) != 1 {
		t.Fatalf("ok=%v diags=%+v", ok, diags)
	}
}

func TestValidateAssignmentToConstantIsRejected(t *testing.T) {
	t.Parallel()

	_, ok, diags := prepare(t, `
		func f() -> s32 {
			const c = 1;
			c = 2;
			return c;
		}
	`)
	if ok || len(diags) != 1 {
		t.Fatalf("ok=%v diags=%+v", ok, diags)
	}
}

func TestValidateArrayLengthMustBeLiteral(t *testing.T) {
	t.Parallel()

	_, ok, diags := prepare(t, `
		func f(n: s32) -> s32 {
			var a: [n]s32;
			return n;
		}
	`)
	if ok || len(diags) != 1 {
		t.Fatalf("ok=%v diags=%+v", ok, diags)
	}
}

func TestValidateArrayLengthFoldedConstantPasses(t *testing.T) {
	t.Parallel()

	_, ok, diags := prepare(t, `
		const n = 1 + 2;
		func f() -> s32 {
			var a: [n]s32;
			return 0;
		}
	`)
	if !ok || len(diags) != 0 {
		t.Fatalf("ok=%v diags=%+v", ok, diags)
	}
}
