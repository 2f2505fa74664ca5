package ast

import (
	"testing"

	"github.com/plxlang/plxc/internal/diag"
)

func TestPoolNewPointersStableAcrossChunkGrowth(t *testing.T) {
	t.Parallel()

	p := NewPool()
	var nodes []*Node
	for i := 0; i < chunkSize*3+7; i++ {
		nodes = append(nodes, p.New(KindNop, diag.Location{Line: i}))
	}
	for i, n := range nodes {
		if n.Loc.Line != i {
			t.Fatalf("node %d: Loc.Line = %d, want %d (pointer invalidated by growth?)", i, n.Loc.Line, i)
		}
	}
}

func TestPoolCopyIsIndependent(t *testing.T) {
	t.Parallel()

	p := NewPool()
	src := p.New(KindLitString, diag.Location{})
	src.Str = []byte("hello")

	cp := p.Copy(src)
	cp.Str[0] = 'H'
	if src.Str[0] != 'h' {
		t.Fatalf("mutating copy mutated source: %q", src.Str)
	}
}

func TestKindClassification(t *testing.T) {
	t.Parallel()

	if !KindLitS32.IsSignedInt() || KindLitS32.IsUnsignedInt() {
		t.Fatalf("KindLitS32 classification wrong")
	}
	if !KindLitU8.IsUnsignedInt() {
		t.Fatalf("KindLitU8 should be unsigned")
	}
	if !KindTypeF32.IsFloat() || !KindTypeF32.IsNumeric() {
		t.Fatalf("KindTypeF32 should be float and numeric")
	}
	if !KindLitBool.IsLiteral() {
		t.Fatalf("KindLitBool should be a literal kind")
	}
	if !KindTypeArray.IsType() {
		t.Fatalf("KindTypeArray should be a type kind")
	}
	if got := LiteralKindForType(KindTypeS32); got != KindLitS32 {
		t.Fatalf("LiteralKindForType(S32) = %v, want KindLitS32", got)
	}
	if got := TypeKindForLiteral(KindLitF64); got != KindTypeF64 {
		t.Fatalf("TypeKindForLiteral(F64) = %v, want KindTypeF64", got)
	}
}
