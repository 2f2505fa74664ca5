// Package symtab implements the lexically scoped symbol table (spec
// §3.2, §4.4): a stack of scopes over a singly-linked chain of
// ast.Entry values, supporting shadowing and first-match lookup.
package symtab

import (
	"fmt"

	"github.com/plxlang/plxc/internal/ast"
	"github.com/plxlang/plxc/internal/diag"
)

// MaxDepth bounds scope nesting depth (spec §4.4: "bounded (≥ 256)").
const MaxDepth = 256

// Table is a stack-of-scopes symbol table. The zero value is not usable;
// construct with New.
type Table struct {
	pool  *ast.Pool
	bases []*ast.Entry // saved head snapshot per open scope
	head  *ast.Entry
}

// New constructs a Table whose entries are allocated from pool.
func New(pool *ast.Pool) *Table {
	return &Table{pool: pool}
}

// EnterScope pushes the current head as the new scope's base. Panics if
// scope nesting exceeds MaxDepth — spec §4.4 treats over-deep nesting as
// a fatal internal condition, the same class of failure as out-of-memory
// (spec §7).
func (t *Table) EnterScope() {
	if len(t.bases) >= MaxDepth {
		panic(fmt.Sprintf("symtab: scope depth exceeds %d", MaxDepth))
	}
	t.bases = append(t.bases, t.head)
}

// ExitScope pops the head back to the saved base of the innermost open
// scope.
func (t *Table) ExitScope() {
	n := len(t.bases)
	t.head = t.bases[n-1]
	t.bases = t.bases[:n-1]
}

// Depth returns the number of currently open scopes.
func (t *Table) Depth() int {
	return len(t.bases)
}

func (t *Table) currentBase() *ast.Entry {
	if len(t.bases) == 0 {
		return nil
	}
	return t.bases[len(t.bases)-1]
}

// Declare creates and links a new Entry for name, unless name is already
// declared in the innermost scope, in which case it returns (nil,
// false) and does not insert (spec §4.4). Declaring in an outer scope
// that already has the name shadows it rather than conflicting.
func (t *Table) Declare(name string, loc diag.Location, scope ast.Scope, mut ast.Mutability, typ *ast.Node) (*ast.Entry, bool) {
	base := t.currentBase()
	for e := t.head; e != base; e = e.Prev {
		if e.Name == name {
			return nil, false
		}
	}
	e := t.pool.NewEntry(name, loc, scope, mut, typ)
	e.Prev = t.head
	t.head = e
	return e, true
}

// Lookup returns the innermost entry named name, or nil if none exists.
func (t *Table) Lookup(name string) *ast.Entry {
	for e := t.head; e != nil; e = e.Prev {
		if e.Name == name {
			return e
		}
	}
	return nil
}
