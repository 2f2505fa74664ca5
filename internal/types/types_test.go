package types

import (
	"strings"
	"testing"

	"github.com/plxlang/plxc/internal/ast"
	"github.com/plxlang/plxc/internal/diag"
	"github.com/plxlang/plxc/internal/parser"
	"github.com/plxlang/plxc/internal/resolve"
	"github.com/plxlang/plxc/internal/symtab"
)

func check(t *testing.T, src string) (*ast.Node, bool, []diag.Diagnostic) {
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
	ok = Module(pool, &coll, mod)
	return mod, ok, coll.Diagnostics
}

func TestCheckArithmeticRequiresMatchingTypes(t *testing.T) {
	t.Parallel()

	_, ok, diags := check(t, "const x = 1 + true;")
	if ok || len(diags) == 0 {
		t.Fatalf("expected a type error mixing s32 and bool")
	}
}

func TestCheckFunctionCallForwardReference(t *testing.T) {
	t.Parallel()

	_, ok, diags := check(t, `
		func isEven(n: s32) -> bool { return isOdd(n); }
		func isOdd(n: s32) -> bool { return isEven(n); }
	`)
	if !ok || len(diags) != 0 {
		t.Fatalf("ok=%v diags=%+v", ok, diags)
	}
}

func TestCheckCallArgumentCountMismatch(t *testing.T) {
	t.Parallel()

	_, ok, diags := check(t, `
		func add(a: s32, b: s32) -> s32 { return a + b; }
		func f() -> s32 { return add(1); }
	`)
	if ok || len(diags) == 0 {
		t.Fatalf("expected a call-argument-count diagnostic")
	}
}

func TestCheckCallArgumentTypeMismatch(t *testing.T) {
	t.Parallel()

	_, ok, diags := check(t, `
		func add(a: s32, b: s32) -> s32 { return a + b; }
		func f() -> s32 { return add(true, 2); }
	`)
	if ok || len(diags) == 0 {
		t.Fatalf("expected an argument type mismatch")
	}
}

// and/or/xor double as the bitwise operators on integers; the result
// keeps the operand type, so an integer and-expression satisfies an
// integer return type.
func TestCheckLogicalOperatorsAcceptIntegers(t *testing.T) {
	t.Parallel()

	_, ok, diags := check(t, "func f() -> s32 { return 6 and 3; }")
	if !ok || len(diags) != 0 {
		t.Fatalf("ok=%v diags=%+v", ok, diags)
	}
}

func TestCheckLogicalOperatorsRejectMixedOperands(t *testing.T) {
	t.Parallel()

	_, ok, diags := check(t, "const x = 1 and true;")
	if ok || len(diags) == 0 {
		t.Fatalf("expected a type error mixing s32 and bool under `and`")
	}
}

func TestCheckNotKeepsIntegerOperandType(t *testing.T) {
	t.Parallel()

	_, ok, diags := check(t, "func f() -> s32 { return !1; }")
	if !ok || len(diags) != 0 {
		t.Fatalf("ok=%v diags=%+v", ok, diags)
	}
}

func TestCheckReturnTypeMismatch(t *testing.T) {
	t.Parallel()

	_, ok, diags := check(t, "func f() -> bool { return 1; }")
	if ok || len(diags) == 0 {
		t.Fatalf("expected a return type mismatch")
	}
}

func TestCheckMissingReturnValue(t *testing.T) {
	t.Parallel()

	_, ok, diags := check(t, "func f() -> s32 { return; }")
	if ok || len(diags) == 0 {
		t.Fatalf("expected a missing-return-value diagnostic")
	}
}

func TestCheckVoidReturnIsFine(t *testing.T) {
	t.Parallel()

	_, ok, diags := check(t, "func f() { return; }")
	if !ok || len(diags) != 0 {
		t.Fatalf("ok=%v diags=%+v", ok, diags)
	}
}

func TestCheckStructFieldAccess(t *testing.T) {
	t.Parallel()

	mod, ok, diags := check(t, `
		struct Point { x: s32; y: s32; }
		func f(p: Point) -> s32 { return p.x; }
	`)
	if !ok || len(diags) != 0 {
		t.Fatalf("ok=%v diags=%+v", ok, diags)
	}
	ret := mod.Children[1].Child(3).Children[0]
	field := ret.Child(0)
	if field.Type == nil || field.Type.Kind != ast.KindTypeS32 {
		t.Fatalf("field.Type = %+v, want type_s32", field.Type)
	}
}

func TestCheckStructFieldNotFound(t *testing.T) {
	t.Parallel()

	_, ok, diags := check(t, `
		struct Point { x: s32; y: s32; }
		func f(p: Point) -> s32 { return p.z; }
	`)
	if ok || len(diags) == 0 {
		t.Fatalf("expected a no-such-field diagnostic")
	}
}

func TestCheckStructLiteralFieldTypes(t *testing.T) {
	t.Parallel()

	_, ok, diags := check(t, `
		struct Point { x: s32; y: s32; }
		func f() -> s32 {
			var p = Point { x: 1; y: true; };
			return p.x;
		}
	`)
	if ok || len(diags) == 0 {
		t.Fatalf("expected a struct literal field type mismatch")
	}
}

func TestCheckAssignmentTypeMismatch(t *testing.T) {
	t.Parallel()

	_, ok, diags := check(t, "func f() { var x = 1; x = true; }")
	if ok || len(diags) == 0 {
		t.Fatalf("expected an assignment type mismatch")
	}
}

func TestCheckCompoundAssignmentRequiresNumeric(t *testing.T) {
	t.Parallel()

	_, ok, diags := check(t, "func f() { var x = true; x += x; }")
	if ok || len(diags) == 0 {
		t.Fatalf("expected a compound-assignment diagnostic on a bool operand")
	}
}

func TestCheckRemAssignRequiresInteger(t *testing.T) {
	t.Parallel()

	_, ok, diags := check(t, "func f() { var x = 1.0; x %= 2.0; }")
	if ok || len(diags) == 0 {
		t.Fatalf("expected a rem-assignment diagnostic on a float operand")
	}
}

func TestCheckRemAssignAcceptsInteger(t *testing.T) {
	t.Parallel()

	_, ok, diags := check(t, "func f() { var x = 1; x %= 2; }")
	if !ok || len(diags) != 0 {
		t.Fatalf("ok=%v diags=%+v", ok, diags)
	}
}

func TestCheckExpressionStatementMustBeVoid(t *testing.T) {
	t.Parallel()

	_, ok, diags := check(t, `
		func one() -> s32 { return 1; }
		func f() { one(); }
	`)
	if ok || len(diags) == 0 {
		t.Fatalf("expected a non-void expression statement to be flagged")
	}
}

func TestCheckVoidCallStatementIsFine(t *testing.T) {
	t.Parallel()

	_, ok, diags := check(t, `
		func log() { return; }
		func f() { log(); }
	`)
	if !ok || len(diags) != 0 {
		t.Fatalf("ok=%v diags=%+v", ok, diags)
	}
}

func TestCheckReferenceAndDereference(t *testing.T) {
	t.Parallel()

	_, ok, diags := check(t, "func f(p: &s32) -> s32 { return *p; }")
	if !ok || len(diags) != 0 {
		t.Fatalf("ok=%v diags=%+v", ok, diags)
	}
}

func TestCheckDereferenceNonReference(t *testing.T) {
	t.Parallel()

	_, ok, diags := check(t, "func f(p: s32) -> s32 { return *p; }")
	if ok || len(diags) == 0 {
		t.Fatalf("expected a diagnostic dereferencing a non-reference")
	}
}

func arrayType(p *ast.Pool, length int64, elem ast.Kind) *ast.Node {
	lit := p.New(ast.KindLitS32, diag.Location{})
	lit.SInt = length
	return p.NewChildren(ast.KindTypeArray, diag.Location{}, lit, p.New(elem, diag.Location{}))
}

func TestEqualArrayTypesCompareLiteralLength(t *testing.T) {
	t.Parallel()

	p := ast.NewPool()
	a := arrayType(p, 4, ast.KindTypeS32)
	b := arrayType(p, 4, ast.KindTypeS32)
	c := arrayType(p, 5, ast.KindTypeS32)
	d := arrayType(p, 4, ast.KindTypeBool)
	if !Equal(a, b) {
		t.Fatalf("[4]s32 != [4]s32")
	}
	if Equal(a, c) {
		t.Fatalf("[4]s32 == [5]s32, want unequal lengths to differ")
	}
	if Equal(a, d) {
		t.Fatalf("[4]s32 == [4]bool, want element types to differ")
	}
}

// Equal is reflexive and symmetric over every type-expression shape.
func TestEqualReflexiveAndSymmetric(t *testing.T) {
	t.Parallel()

	p := ast.NewPool()
	ts := []*ast.Node{
		p.New(ast.KindTypeS32, diag.Location{}),
		p.New(ast.KindTypeBool, diag.Location{}),
		p.NewChildren(ast.KindTypeRef, diag.Location{}, p.New(ast.KindTypeS64, diag.Location{})),
		arrayType(p, 3, ast.KindTypeU8),
		p.NewChildren(ast.KindTypeSlice, diag.Location{}, p.New(ast.KindTypeF64, diag.Location{})),
	}
	for _, a := range ts {
		if !Equal(a, a) {
			t.Fatalf("Equal(%v, %v) = false, want reflexive", a.Kind, a.Kind)
		}
		for _, b := range ts {
			if Equal(a, b) != Equal(b, a) {
				t.Fatalf("Equal(%v, %v) not symmetric", a.Kind, b.Kind)
			}
		}
	}
}

// Equality operands must be integer, bool, or string; aggregates are
// rejected even when their types match.
func TestCheckEqualityRejectsArrayOperands(t *testing.T) {
	t.Parallel()

	_, ok, diags := check(t, "func f(a: [4]s32, b: [4]s32) -> bool { return a == b; }")
	if ok || len(diags) == 0 {
		t.Fatalf("expected an equality diagnostic on array operands")
	}
}
