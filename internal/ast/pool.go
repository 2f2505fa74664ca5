package ast

import "github.com/plxlang/plxc/internal/diag"

// chunkSize bounds a single arena chunk; large enough that typical
// translation units allocate only a handful of chunks.
const chunkSize = 512

// Pool is the per-compilation arena both node and symbol-entry values
// are allocated from (spec §3.1 "allocated from a per-thread pool", §5
// "process-wide, thread-local ... released en masse"). A Pool is never
// shared across concurrent compilations; the driver constructs one per
// compilation and discards it when the pipeline finishes.
//
// Nodes and entries are allocated in chunked slabs so pointers handed
// out by New/NewEntry stay valid for the lifetime of the Pool even as
// more chunks are appended (a bare growing []Node would invalidate
// earlier pointers on reallocation).
type Pool struct {
	nodeChunks  [][]Node
	entryChunks [][]Entry
}

// NewPool constructs an empty arena.
func NewPool() *Pool {
	return &Pool{}
}

// New allocates a zeroed Node with the given kind and location.
func (p *Pool) New(kind Kind, loc diag.Location) *Node {
	n := p.allocNode()
	n.Kind = kind
	n.Loc = loc
	return n
}

// NewChildren allocates a Node and attaches the given children in order.
func (p *Pool) NewChildren(kind Kind, loc diag.Location, children ...*Node) *Node {
	n := p.New(kind, loc)
	n.Children = children
	return n
}

// Copy allocates a shallow copy of src, suitable for the constant
// folder's "replace with a copy of the referenced value" and the type
// checker's "owned type-kind node" rules (spec §3.1, §4.6). Children are
// copied as a fresh slice header sharing the same child pointers, since
// children themselves are either canonical (never mutated) literal/type
// shapes or unreachable from two parents simultaneously in practice.
func (p *Pool) Copy(src *Node) *Node {
	if src == nil {
		return nil
	}
	n := p.New(src.Kind, src.Loc)
	n.Name = src.Name
	n.Entry = src.Entry
	n.SInt = src.SInt
	n.UInt = src.UInt
	n.Float = src.Float
	n.Bool = src.Bool
	if src.Str != nil {
		n.Str = append([]byte(nil), src.Str...)
	}
	n.Type = src.Type
	if src.Children != nil {
		n.Children = append([]*Node(nil), src.Children...)
	}
	return n
}

func (p *Pool) allocNode() *Node {
	if len(p.nodeChunks) == 0 || isFull(p.nodeChunks[len(p.nodeChunks)-1]) {
		p.nodeChunks = append(p.nodeChunks, make([]Node, 0, chunkSize))
	}
	last := &p.nodeChunks[len(p.nodeChunks)-1]
	*last = append(*last, Node{})
	return &(*last)[len(*last)-1]
}

// NewEntry allocates a zeroed symbol table Entry.
func (p *Pool) NewEntry(name string, loc diag.Location, scope Scope, mut Mutability, typ *Node) *Entry {
	e := p.allocEntry()
	e.Name = name
	e.Loc = loc
	e.Scope = scope
	e.Mut = mut
	e.Type = typ
	return e
}

func (p *Pool) allocEntry() *Entry {
	if len(p.entryChunks) == 0 || isFullEntries(p.entryChunks[len(p.entryChunks)-1]) {
		p.entryChunks = append(p.entryChunks, make([]Entry, 0, chunkSize))
	}
	last := &p.entryChunks[len(p.entryChunks)-1]
	*last = append(*last, Entry{})
	return &(*last)[len(*last)-1]
}

func isFull(s []Node) bool      { return len(s) == cap(s) }
func isFullEntries(s []Entry) bool { return len(s) == cap(s) }
