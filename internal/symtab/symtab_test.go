package symtab

import (
	"testing"

	"github.com/plxlang/plxc/internal/ast"
	"github.com/plxlang/plxc/internal/diag"
)

func TestDeclareAndLookup(t *testing.T) {
	t.Parallel()

	tab := New(ast.NewPool())
	e, ok := tab.Declare("x", diag.Location{Line: 1}, ast.ScopeGlobal, ast.Mutable, nil)
	if !ok || e == nil {
		t.Fatalf("Declare(x) = (%v, %v), want a fresh entry", e, ok)
	}
	if got := tab.Lookup("x"); got != e {
		t.Fatalf("Lookup(x) = %v, want the freshly declared entry %v", got, e)
	}
}

func TestDeclareDuplicateInSameScopeFails(t *testing.T) {
	t.Parallel()

	tab := New(ast.NewPool())
	tab.Declare("x", diag.Location{}, ast.ScopeGlobal, ast.Mutable, nil)
	_, ok := tab.Declare("x", diag.Location{}, ast.ScopeGlobal, ast.Mutable, nil)
	if ok {
		t.Fatalf("second Declare(x) in same scope succeeded, want failure")
	}
}

func TestScopeExitRemovesBindings(t *testing.T) {
	t.Parallel()

	tab := New(ast.NewPool())
	tab.EnterScope()
	tab.Declare("x", diag.Location{}, ast.ScopeLocal, ast.Mutable, nil)
	if tab.Lookup("x") == nil {
		t.Fatalf("Lookup(x) = nil inside scope, want entry")
	}
	tab.ExitScope()
	if tab.Lookup("x") != nil {
		t.Fatalf("Lookup(x) != nil after scope exit, want nil")
	}
}

func TestShadowingNestsAndUnnests(t *testing.T) {
	t.Parallel()

	tab := New(ast.NewPool())
	outer, _ := tab.Declare("x", diag.Location{}, ast.ScopeGlobal, ast.Mutable, nil)

	tab.EnterScope()
	inner, ok := tab.Declare("x", diag.Location{}, ast.ScopeLocal, ast.Mutable, nil)
	if !ok {
		t.Fatalf("shadowing Declare(x) in inner scope failed")
	}
	if got := tab.Lookup("x"); got != inner {
		t.Fatalf("Lookup(x) = %v, want innermost binding %v", got, inner)
	}
	tab.ExitScope()

	if got := tab.Lookup("x"); got != outer {
		t.Fatalf("Lookup(x) after popping inner scope = %v, want outer binding %v", got, outer)
	}
}

func TestEnterScopeBeyondMaxDepthPanics(t *testing.T) {
	t.Parallel()

	tab := New(ast.NewPool())
	defer func() {
		if recover() == nil {
			t.Fatalf("EnterScope beyond MaxDepth did not panic")
		}
	}()
	for i := 0; i <= MaxDepth; i++ {
		tab.EnterScope()
	}
}
