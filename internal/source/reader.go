// Package source implements the character-level input stage of the
// pipeline: a stream of bytes with line/column tracking (spec §4.1).
package source

import (
	"bufio"
	"io"
	"unicode/utf8"

	"github.com/plxlang/plxc/internal/diag"
)

// EOF is the sentinel rune returned by Reader.Peek and Reader.Advance
// once the underlying stream is exhausted. It is distinct from any
// valid byte value.
const EOF = -1

// Reader is a pull-based character reader over one source file. It
// tracks the location of the character under the cursor so every token
// (and every tree node) can carry a precise spec §3.3 source location.
type Reader struct {
	file string
	br   *bufio.Reader
	err  error

	cur    rune
	line   int
	col    int
	lnStrt int // byte offset of the start of the current line
	offset int // byte offset of cur within the file
}

// New constructs a Reader over r, attributing all locations to file.
func New(file string, r io.Reader) *Reader {
	rd := &Reader{
		file: file,
		br:   bufio.NewReader(r),
		line: 1,
		col:  1,
	}
	rd.cur = rd.readNext()
	return rd
}

// Err returns the first I/O error encountered, if any (spec §4.1:
// "Fails only if the underlying stream fails").
func (r *Reader) Err() error {
	return r.err
}

// Peek returns the character under the cursor without consuming it.
func (r *Reader) Peek() rune {
	return r.cur
}

// Location returns the source location of the character under the
// cursor.
func (r *Reader) Location() diag.Location {
	return diag.Location{File: r.file, Line: r.line, Column: r.col, Offset: r.lnStrt}
}

// Advance consumes and returns the character under the cursor, moving
// the cursor to the next character.
func (r *Reader) Advance() rune {
	c := r.cur
	switch {
	case c == '\n':
		r.line++
		r.col = 1
		r.lnStrt = r.offset + 1
	case c != EOF:
		r.col++
	}
	if c != EOF {
		r.offset += utf8.RuneLen(c)
	}
	r.cur = r.readNext()
	return c
}

// Accept consumes the character under the cursor if it equals c,
// reporting whether it matched (spec §4.1's accept(c)).
func (r *Reader) Accept(c rune) bool {
	if r.cur != c {
		return false
	}
	r.Advance()
	return true
}

// PeekNext returns the character after the one under the cursor, without
// consuming anything. A handful of lexical forms (0x/0b integer
// prefixes, the float literal's mandatory fractional digit) need this
// second character of lookahead to decide how to scan the current
// token.
func (r *Reader) PeekNext() rune {
	b, _ := r.br.Peek(utf8.UTFMax)
	if len(b) == 0 {
		return EOF
	}
	ch, _ := utf8.DecodeRune(b)
	return ch
}

func (r *Reader) readNext() rune {
	ch, _, err := r.br.ReadRune()
	if err != nil {
		if err != io.EOF {
			r.err = err
		}
		return EOF
	}
	return ch
}
