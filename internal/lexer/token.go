// Package lexer implements the tokenizer stage (spec §4.2): a
// lookahead-1 stream of classified tokens pulled from an
// internal/source.Reader.
package lexer

import (
	"fmt"

	"github.com/plxlang/plxc/internal/diag"
)

// Kind identifies a token's syntactic category.
type Kind uint16

const (
	EOF Kind = iota
	Error

	Ident
	IntLiteral
	FloatLiteral
	StringLiteral

	// Keywords.
	KwConst
	KwVar
	KwStruct
	KwFunc
	KwIf
	KwElse
	KwDefer
	KwLoop
	KwWhile
	KwFor
	KwContinue
	KwBreak
	KwReturn
	KwAnd
	KwOr
	KwXor
	KwS8
	KwS16
	KwS32
	KwS64
	KwU8
	KwU16
	KwU32
	KwU64
	KwF16
	KwF32
	KwF64
	KwBool
	KwTrue
	KwFalse

	// Punctuation.
	Period
	Comma
	Colon
	Semicolon
	LParen
	RParen
	LBracket
	RBracket
	LBrace
	RBrace

	// Operators.
	Assign       // =
	Eq           // ==
	Neq          // !=
	Not          // !
	Lt           // <
	Lte          // <=
	Shl          // <>
	ShlAssign    // <>=
	Gt           // >
	Gte          // >=
	Shr          // >>
	ShrAssign    // >>=
	Plus         // +
	PlusAssign   // +=
	Arrow        // ->
	Minus        // -
	MinusAssign  // -=
	Star         // *
	StarAssign   // *=
	Slash        // /
	SlashAssign  // /=
	Percent      // %
	PercentAssign // %=
	Amp          // &

	kindSentinel
)

var names = [...]string{
	EOF: "EOF", Error: "Error", Ident: "Ident", IntLiteral: "IntLiteral",
	FloatLiteral: "FloatLiteral", StringLiteral: "StringLiteral",
	KwConst: "const", KwVar: "var", KwStruct: "struct", KwFunc: "func",
	KwIf: "if", KwElse: "else", KwDefer: "defer", KwLoop: "loop",
	KwWhile: "while", KwFor: "for", KwContinue: "continue", KwBreak: "break",
	KwReturn: "return", KwAnd: "and", KwOr: "or", KwXor: "xor",
	KwS8: "s8", KwS16: "s16", KwS32: "s32", KwS64: "s64",
	KwU8: "u8", KwU16: "u16", KwU32: "u32", KwU64: "u64",
	KwF16: "f16", KwF32: "f32", KwF64: "f64",
	KwBool: "bool", KwTrue: "true", KwFalse: "false",
	Period: ".", Comma: ",", Colon: ":", Semicolon: ";",
	LParen: "(", RParen: ")", LBracket: "[", RBracket: "]",
	LBrace: "{", RBrace: "}",
	Assign: "=", Eq: "==", Neq: "!=", Not: "!",
	Lt: "<", Lte: "<=", Shl: "<>", ShlAssign: "<>=",
	Gt: ">", Gte: ">=", Shr: ">>", ShrAssign: ">>=",
	Plus: "+", PlusAssign: "+=", Arrow: "->",
	Minus: "-", MinusAssign: "-=",
	Star: "*", StarAssign: "*=",
	Slash: "/", SlashAssign: "/=",
	Percent: "%", PercentAssign: "%=",
	Amp: "&",
}

func (k Kind) String() string {
	if int(k) < len(names) && names[k] != "" {
		return names[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// keywordEntry is one bucket member of the perfect-match-by-length
// keyword table (spec §4.2: "recognized ... by comparing against a
// small perfect-match table keyed by length").
type keywordEntry struct {
	text string
	kind Kind
}

var keywordsByLength = func() map[int][]keywordEntry {
	all := []keywordEntry{
		{"const", KwConst}, {"var", KwVar}, {"struct", KwStruct}, {"func", KwFunc},
		{"if", KwIf}, {"else", KwElse}, {"defer", KwDefer}, {"loop", KwLoop},
		{"while", KwWhile}, {"for", KwFor}, {"continue", KwContinue}, {"break", KwBreak},
		{"return", KwReturn}, {"and", KwAnd}, {"or", KwOr}, {"xor", KwXor},
		{"s8", KwS8}, {"s16", KwS16}, {"s32", KwS32}, {"s64", KwS64},
		{"u8", KwU8}, {"u16", KwU16}, {"u32", KwU32}, {"u64", KwU64},
		{"f16", KwF16}, {"f32", KwF32}, {"f64", KwF64},
		{"bool", KwBool}, {"true", KwTrue}, {"false", KwFalse},
	}
	m := make(map[int][]keywordEntry)
	for _, e := range all {
		m[len(e.text)] = append(m[len(e.text)], e)
	}
	return m
}()

// lookupKeyword returns the keyword kind for word, or (0, false) if word
// is an ordinary identifier.
func lookupKeyword(word string) (Kind, bool) {
	for _, e := range keywordsByLength[len(word)] {
		if e.text == word {
			return e.kind, true
		}
	}
	return 0, false
}

// Token is one lexed token: its kind, source location, and payload.
//
// Text holds the accumulated characters for Ident (the identifier
// spelling) and StringLiteral (the decoded byte sequence) — the shared
// buffer spec §4.2 describes. Its length doubles as the "string length"
// payload the spec calls for. UInt and Float hold the numeric payload
// for IntLiteral and FloatLiteral respectively.
type Token struct {
	Kind Kind
	Loc  diag.Location
	Text string
	UInt uint64
	Float float64
}
