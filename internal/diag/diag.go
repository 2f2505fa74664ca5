// Package diag defines the structured diagnostic type the compiler core
// reports through. The core never formats diagnostics for a terminal; it
// only ever produces Diagnostic values and hands them to a Sink (spec
// §4.12, §6.4 — the human-readable printer is an external collaborator).
package diag

import "fmt"

// Kind identifies a diagnostic category (spec §7's error-category list).
type Kind string

// Kind values emitted across the pipeline.
const (
	KindLexical    Kind = "lexical"
	KindSyntactic  Kind = "syntactic"
	KindResolve    Kind = "resolve"
	KindType       Kind = "type"
	KindFlow       Kind = "flow"
	KindValidation Kind = "validation"
	KindIO         Kind = "io"
	KindResource   Kind = "resource"
)

// Location is a position in a source file (spec §3.3).
type Location struct {
	File   string
	Line   int // 1-based
	Column int // 1-based
	Offset int // byte offset of the start of Line within File
}

func (l Location) String() string {
	if l.File == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// IsZero reports whether l carries no location information.
func (l Location) IsZero() bool {
	return l == Location{}
}

// Diagnostic is one structured compiler message: a category, a rendered
// message, a primary location, and an optional secondary ("note")
// location pointing at related prior context (e.g. the first declaration
// in a "already declared" diagnostic).
type Diagnostic struct {
	Kind      Kind
	Message   string
	Primary   Location
	Secondary *Location
	Note      string // annotation attached to Secondary, if present
}

func (d Diagnostic) String() string {
	if d.Secondary == nil {
		return fmt.Sprintf("%s: %s: %s", d.Primary, d.Kind, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s (see also %s: %s)", d.Primary, d.Kind, d.Message, *d.Secondary, d.Note)
}

// Sink receives diagnostics as they are produced. Passes never buffer
// their own diagnostics; they report through the sink as soon as they
// detect a problem, then keep recursing into sibling subtrees (spec §7's
// propagation policy).
type Sink interface {
	Report(Diagnostic)
}

// Collector is the Sink used throughout the core and its tests: it keeps
// every diagnostic reported to it, in order.
type Collector struct {
	Diagnostics []Diagnostic
}

// Report appends d to the collector.
func (c *Collector) Report(d Diagnostic) {
	c.Diagnostics = append(c.Diagnostics, d)
}

// OK reports whether no diagnostic has been collected yet.
func (c *Collector) OK() bool {
	return len(c.Diagnostics) == 0
}

// Errorf reports a diagnostic built from a format string, mirroring the
// core's internal helper shape (spec §4.12: "a format string + arguments
// for a human message").
func Errorf(sink Sink, kind Kind, loc Location, format string, args ...any) {
	sink.Report(Diagnostic{Kind: kind, Message: fmt.Sprintf(format, args...), Primary: loc})
}

// ErrorfNote is Errorf plus a secondary location and its annotation.
func ErrorfNote(sink Sink, kind Kind, loc Location, secondary Location, note, format string, args ...any) {
	s := secondary
	sink.Report(Diagnostic{Kind: kind, Message: fmt.Sprintf(format, args...), Primary: loc, Secondary: &s, Note: note})
}
