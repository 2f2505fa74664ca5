package fold

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/plxlang/plxc/internal/ast"
	"github.com/plxlang/plxc/internal/diag"
	"github.com/plxlang/plxc/internal/parser"
	"github.com/plxlang/plxc/internal/resolve"
	"github.com/plxlang/plxc/internal/symtab"
	"github.com/plxlang/plxc/internal/types"
)

// snapshot renders n's value-bearing shape as plain, acyclic data: kind
// plus literal payload plus children, with Entry/Type back-references
// stripped. ast.Node carries back-pointers (Entry.Decl can point to the
// very node an identifier resolves to), so diffing *ast.Node trees
// directly with go-cmp would walk a cycle; diffing snapshots gives the
// same "did the tree shape come out right" comparison go-cmp is good
// at without that hazard.
type snapshot struct {
	Kind     ast.Kind
	SInt     int64
	UInt     uint64
	Float    float64
	Bool     bool
	Str      string
	Children []snapshot
}

func snap(n *ast.Node) snapshot {
	if n == nil {
		return snapshot{}
	}
	s := snapshot{Kind: n.Kind, SInt: n.SInt, UInt: n.UInt, Float: n.Float, Bool: n.Bool, Str: string(n.Str)}
	for _, c := range n.Children {
		s.Children = append(s.Children, snap(c))
	}
	return s
}

func foldedModule(t *testing.T, src string) *ast.Node {
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
	if !Module(pool, &coll, mod) {
		t.Fatalf("fold failed: %+v", coll.Diagnostics)
	}
	return mod
}

// findFuncReturn locates the lone return statement's value expression
// in the named function, for asserting what it folded down to.
func findFuncReturn(t *testing.T, mod *ast.Node, name string) *ast.Node {
	t.Helper()
	for _, def := range mod.Children {
		if def.Kind == ast.KindFuncDef && def.Child(0).Name == name {
			body := def.Child(3)
			for _, stmt := range body.Children {
				if stmt.Kind == ast.KindReturn {
					return stmt.Child(0)
				}
			}
		}
	}
	t.Fatalf("no return statement found in func %s", name)
	return nil
}

func TestFoldCollapsesConstantArithmeticChain(t *testing.T) {
	t.Parallel()

	mod := foldedModule(t, `
		const a = 2;
		const b = 3;
		func f() -> s32 {
			return (a * b) + 1;
		}
	`)
	got := snap(findFuncReturn(t, mod, "f"))
	want := snap(&ast.Node{Kind: ast.KindLitS32, SInt: 7})
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("folded return value mismatch (-want +got):\n%s", diff)
	}
}

func TestFoldCollapsesLiteralWhileConditionToEmptyBody(t *testing.T) {
	t.Parallel()

	mod := foldedModule(t, `
		func f() -> s32 {
			while false {
				return 1;
			}
			return 2;
		}
	`)
	body := findFuncFuncBody(t, mod, "f")
	// A `while false { ... }` folds away entirely (spec §4.8's
	// if/while-literal-condition simplification), leaving only the
	// trailing unconditional return.
	want := []snapshot{snap(&ast.Node{Kind: ast.KindReturn, Children: []*ast.Node{{Kind: ast.KindLitS32, SInt: 2}}})}
	var got []snapshot
	for _, stmt := range body.Children {
		if stmt.Kind == ast.KindNop {
			continue
		}
		got = append(got, snap(stmt))
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("post-fold body mismatch (-want +got):\n%s", diff)
	}
}

func TestFoldLiteralIfConditionSelectsBranch(t *testing.T) {
	t.Parallel()

	mod := foldedModule(t, `
		func k() -> s32 {
			if false {
				return 1;
			} else {
				return 2;
			}
		}
	`)
	body := findFuncFuncBody(t, mod, "k")
	// The whole if collapses to its else branch, so the body's one
	// statement is that branch's block, holding the unconditional
	// `return 2`.
	if len(body.Children) != 1 {
		t.Fatalf("post-fold body has %d statements, want 1", len(body.Children))
	}
	branch := body.Children[0]
	if branch.Kind != ast.KindBlock || len(branch.Children) != 1 {
		t.Fatalf("post-fold statement = %+v, want the else block", branch)
	}
	got := snap(branch.Children[0])
	want := snap(&ast.Node{Kind: ast.KindReturn, Children: []*ast.Node{{Kind: ast.KindLitS32, SInt: 2}}})
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("folded if mismatch (-want +got):\n%s", diff)
	}
}

func findFuncFuncBody(t *testing.T, mod *ast.Node, name string) *ast.Node {
	t.Helper()
	for _, def := range mod.Children {
		if def.Kind == ast.KindFuncDef && def.Child(0).Name == name {
			return def.Child(3)
		}
	}
	t.Fatalf("no func %s found", name)
	return nil
}

func TestFoldUnaryNotIsBitwiseOnIntegersAndLogicalOnBool(t *testing.T) {
	t.Parallel()

	mod := foldedModule(t, `
		func ints() -> s32 {
			return !0;
		}
		func bools() -> bool {
			return !true;
		}
	`)
	gotInt := snap(findFuncReturn(t, mod, "ints"))
	wantInt := snap(&ast.Node{Kind: ast.KindLitS32, SInt: -1})
	if diff := cmp.Diff(wantInt, gotInt); diff != "" {
		t.Fatalf("bitwise NOT mismatch (-want +got):\n%s", diff)
	}

	gotBool := snap(findFuncReturn(t, mod, "bools"))
	wantBool := snap(&ast.Node{Kind: ast.KindLitBool, Bool: false})
	if diff := cmp.Diff(wantBool, gotBool); diff != "" {
		t.Fatalf("logical NOT mismatch (-want +got):\n%s", diff)
	}
}

func TestFoldAdditionOverflowIsCheckedAt64BitBoundsNotDeclaredWidth(t *testing.T) {
	t.Parallel()

	// Integer literals always parse as s32 (spec §4.3), but overflow is
	// guarded at the bounds of 64-bit two's complement (spec §4.8), not
	// the literal's declared s32 width: this addition overflows an
	// int32 but not an int64, and must fold rather than being rejected.
	mod := foldedModule(t, `
		func f() -> s32 {
			return 2000000000 + 2000000000;
		}
	`)
	got := snap(findFuncReturn(t, mod, "f"))
	want := snap(&ast.Node{Kind: ast.KindLitS32, SInt: 4000000000})
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("folded addition mismatch (-want +got):\n%s", diff)
	}
}

func TestFoldAdditionOverflowAtActual64BitBoundSkipsTheRewrite(t *testing.T) {
	t.Parallel()

	// Every integer literal parses to the s32 node kind (spec §4.3) but
	// is stored in the same 64-bit container regardless, so a literal's
	// textual value can still exceed int32 range; this pushes the sum
	// past int64 range. The rewrite is skipped and the original node
	// kept (spec §4.8's overflow guard) rather than evaluated with
	// wraparound.
	mod := foldedModule(t, `
		func f() -> s32 {
			return 9223372036854775807 + 9223372036854775807;
		}
	`)
	got := findFuncReturn(t, mod, "f")
	if got.Kind != ast.KindAdd {
		t.Fatalf("overflowing addition should stay unfolded, got %v", got.Kind)
	}
}

func TestFoldIntegerAndOrXorAreBitwise(t *testing.T) {
	t.Parallel()

	mod := foldedModule(t, `
		func f() -> s32 {
			return (6 and 3) + (6 or 1) + (6 xor 3);
		}
	`)
	// (6&3)=2, (6|1)=7, (6^3)=5 -> 14
	got := snap(findFuncReturn(t, mod, "f"))
	want := snap(&ast.Node{Kind: ast.KindLitS32, SInt: 14})
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("integer and/or/xor folding mismatch (-want +got):\n%s", diff)
	}
}
