package resolve

import (
	"strings"
	"testing"

	"github.com/plxlang/plxc/internal/ast"
	"github.com/plxlang/plxc/internal/diag"
	"github.com/plxlang/plxc/internal/parser"
	"github.com/plxlang/plxc/internal/symtab"
)

func resolveSrc(t *testing.T, src string) (*ast.Node, bool, []diag.Diagnostic) {
	t.Helper()
	pool := ast.NewPool()
	var coll diag.Collector
	mod, ok := parser.ParseFile(pool, &coll, "t.plx", strings.NewReader(src))
	if !ok {
		t.Fatalf("parse failed: %+v", coll.Diagnostics)
	}
	table := symtab.New(pool)
	ok = Module(table, &coll, mod)
	return mod, ok, coll.Diagnostics
}

func TestResolveForwardReferenceBetweenFunctions(t *testing.T) {
	t.Parallel()

	mod, ok, diags := resolveSrc(t, `
		func isEven(n: s32) -> bool { return isOdd(n); }
		func isOdd(n: s32) -> bool { return isEven(n); }
	`)
	if !ok || len(diags) != 0 {
		t.Fatalf("ok=%v diags=%+v", ok, diags)
	}
	callee := mod.Children[0].Child(3).Children[0].Child(0).Child(0)
	if callee.Entry == nil || callee.Entry.Name != "isOdd" {
		t.Fatalf("callee.Entry = %+v, want isOdd", callee.Entry)
	}
}

func TestResolveUndefinedIdentifier(t *testing.T) {
	t.Parallel()

	_, ok, diags := resolveSrc(t, "func f() { return missing; }")
	if ok || len(diags) != 1 || diags[0].Kind != diag.KindResolve {
		t.Fatalf("ok=%v diags=%+v", ok, diags)
	}
}

func TestResolveDuplicateDeclarationInSameScope(t *testing.T) {
	t.Parallel()

	_, ok, diags := resolveSrc(t, "const x = 1; const x = 2;")
	if ok || len(diags) != 1 {
		t.Fatalf("ok=%v diags=%+v", ok, diags)
	}
	if diags[0].Secondary == nil {
		t.Fatalf("expected the first declaration's location as the secondary note")
	}
}

func TestResolveShadowingAcrossScopes(t *testing.T) {
	t.Parallel()

	_, ok, diags := resolveSrc(t, `
		const x = 1;
		func f() {
			var x = 2;
			x = 3;
		}
	`)
	if !ok || len(diags) != 0 {
		t.Fatalf("ok=%v diags=%+v", ok, diags)
	}
}

func TestResolveParamsVisibleInBody(t *testing.T) {
	t.Parallel()

	mod, ok, diags := resolveSrc(t, "func add(a: s32, b: s32) -> s32 { return a + b; }")
	if !ok || len(diags) != 0 {
		t.Fatalf("ok=%v diags=%+v", ok, diags)
	}
	ret := mod.Children[0].Child(3).Children[0]
	sum := ret.Child(0)
	if sum.Child(0).Entry == nil || sum.Child(1).Entry == nil {
		t.Fatalf("operand entries not resolved: %+v", sum)
	}
}

func TestResolveStructMemberTypeReferencesEarlierStruct(t *testing.T) {
	t.Parallel()

	mod, ok, diags := resolveSrc(t, `
		struct Point { x: s32; y: s32; }
		struct Line { from: Point; to: Point; }
	`)
	if !ok || len(diags) != 0 {
		t.Fatalf("ok=%v diags=%+v", ok, diags)
	}
	lineMembers := mod.Children[1].Child(1)
	fromType := lineMembers.Children[0].Child(1)
	if fromType.Entry == nil || fromType.Entry.Name != "Point" {
		t.Fatalf("from's type entry = %+v, want Point", fromType.Entry)
	}
}

func TestResolveUndefinedTypeName(t *testing.T) {
	t.Parallel()

	_, ok, diags := resolveSrc(t, "var p: Missing;")
	if ok || len(diags) != 1 {
		t.Fatalf("ok=%v diags=%+v", ok, diags)
	}
}

func TestResolveBlockLocalsDoNotLeakOutward(t *testing.T) {
	t.Parallel()

	_, ok, diags := resolveSrc(t, `
		func f() {
			{
				var y = 1;
			}
			y = 2;
		}
	`)
	if ok || len(diags) == 0 {
		t.Fatalf("expected y to be undefined outside its block")
	}
}

func TestResolveStructLiteralFieldValues(t *testing.T) {
	t.Parallel()

	mod, ok, diags := resolveSrc(t, `
		struct Point { x: s32; y: s32; }
		func f() -> s32 {
			var n = 1;
			var p = Point { x: n; y: 2; };
			return n;
		}
	`)
	if !ok || len(diags) != 0 {
		t.Fatalf("ok=%v diags=%+v", ok, diags)
	}
	body := mod.Children[1].Child(3)
	lit := body.Children[1].Child(1)
	if lit.Entry == nil || lit.Entry.Name != "Point" {
		t.Fatalf("struct literal Entry = %+v, want Point", lit.Entry)
	}
	if lit.Children[0].Child(1).Entry == nil {
		t.Fatalf("field value n was not resolved")
	}
}
