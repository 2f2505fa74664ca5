// Package parser implements the hand-written recursive-descent parser
// (spec §4.3): one token of lookahead, precedence climbing at each
// arithmetic/relational/logical layer, building the tree IR directly.
package parser

import (
	"io"

	"github.com/plxlang/plxc/internal/ast"
	"github.com/plxlang/plxc/internal/diag"
	"github.com/plxlang/plxc/internal/lexer"
	"github.com/plxlang/plxc/internal/source"
)

// Parser holds the parsing state for one translation unit.
type Parser struct {
	lex  *lexer.Lexer
	pool *ast.Pool
	sink diag.Sink
	file string

	// noStructLiteral suppresses the `Ident "{" ... "}"` struct-literal
	// production while parsing an if/while condition, resolving the
	// grammar's otherwise-ambiguous `if x { ... }` (is `x {` the start of
	// a struct literal, or an identifier condition followed by the
	// block?) the same way most C-family languages resolve it: a
	// composite literal is not recognized directly in a control-flow
	// condition; parenthesize it to force the literal reading.
	noStructLiteral bool

	ok bool
}

// ParseFile parses one translation unit's source into a KindModule node
// whose children are its top-level definitions. The returned bool is
// the stage success flag (spec §2): false if any diagnostic was
// reported, in which case the returned node may still contain every
// definition that *did* parse, to maximize diagnostics per spec §7.
func ParseFile(pool *ast.Pool, sink diag.Sink, file string, r io.Reader) (*ast.Node, bool) {
	rd := source.New(file, r)
	p := &Parser{
		lex:  lexer.New(rd, sink),
		pool: pool,
		sink: sink,
		file: file,
		ok:   true,
	}
	mod := p.parseModule()
	if err := rd.Err(); err != nil {
		diag.Errorf(sink, diag.KindIO, diag.Location{File: file}, "read error: %v", err)
		p.ok = false
	}
	return mod, p.ok
}

func (p *Parser) loc() diag.Location { return p.lex.Peek().Loc }

func (p *Parser) unexpected(context string) *ast.Node {
	tok := p.lex.Peek()
	diag.Errorf(p.sink, diag.KindSyntactic, tok.Loc, "unexpected token %s while parsing %s", tok.Kind, context)
	p.ok = false
	return nil
}

func (p *Parser) expect(kind lexer.Kind, context string) (lexer.Token, bool) {
	tok, ok := p.lex.Accept(kind)
	if !ok {
		p.unexpected(context)
		return tok, false
	}
	return tok, true
}

// --- Module ---

var syncKinds = map[lexer.Kind]bool{
	lexer.KwConst:  true,
	lexer.KwVar:    true,
	lexer.KwStruct: true,
	lexer.KwFunc:   true,
	lexer.EOF:      true,
}

func (p *Parser) parseModule() *ast.Node {
	loc := p.loc()
	mod := p.pool.New(ast.KindModule, loc)
	for p.lex.Peek().Kind != lexer.EOF {
		def := p.parseDefinition()
		if def != nil {
			mod.Children = append(mod.Children, def)
			continue
		}
		// Resynchronize so one malformed definition doesn't hide every
		// later diagnostic in the file (spec §7's propagation policy).
		for !syncKinds[p.lex.Peek().Kind] {
			p.lex.Advance()
		}
	}
	return mod
}

func (p *Parser) parseDefinition() *ast.Node {
	switch p.lex.Peek().Kind {
	case lexer.KwConst:
		return p.parseConstDef()
	case lexer.KwVar:
		return p.parseVarDefOrDecl()
	case lexer.KwStruct:
		return p.parseStructDef()
	case lexer.KwFunc:
		return p.parseFuncDef()
	default:
		return p.unexpected("definition")
	}
}

func (p *Parser) parseIdent(context string) *ast.Node {
	tok, ok := p.expect(lexer.Ident, context)
	if !ok {
		return nil
	}
	n := p.pool.New(ast.KindIdent, tok.Loc)
	n.Name = tok.Text
	return n
}

func (p *Parser) parseConstDef() *ast.Node {
	loc := p.loc()
	p.lex.Advance() // const
	name := p.parseIdent("const name")
	if name == nil {
		return nil
	}
	if _, ok := p.expect(lexer.Assign, "const definition"); !ok {
		return nil
	}
	value := p.parseExpr()
	if value == nil {
		return nil
	}
	if _, ok := p.expect(lexer.Semicolon, "const definition"); !ok {
		return nil
	}
	return p.pool.NewChildren(ast.KindConstDef, loc, name, value)
}

func (p *Parser) parseVarDefOrDecl() *ast.Node {
	loc := p.loc()
	p.lex.Advance() // var
	name := p.parseIdent("var name")
	if name == nil {
		return nil
	}
	switch p.lex.Peek().Kind {
	case lexer.Assign:
		p.lex.Advance()
		value := p.parseExpr()
		if value == nil {
			return nil
		}
		if _, ok := p.expect(lexer.Semicolon, "var definition"); !ok {
			return nil
		}
		return p.pool.NewChildren(ast.KindVarDef, loc, name, value)
	case lexer.Colon:
		p.lex.Advance()
		typ := p.parseType()
		if typ == nil {
			return nil
		}
		if _, ok := p.expect(lexer.Semicolon, "var declaration"); !ok {
			return nil
		}
		return p.pool.NewChildren(ast.KindVarDecl, loc, name, typ)
	default:
		return p.unexpected("var definition or declaration")
	}
}

func (p *Parser) parseStructDef() *ast.Node {
	loc := p.loc()
	p.lex.Advance() // struct
	name := p.parseIdent("struct name")
	if name == nil {
		return nil
	}
	if _, ok := p.expect(lexer.LBrace, "struct body"); !ok {
		return nil
	}
	members := p.pool.New(ast.KindOther, p.loc())
	for p.lex.Peek().Kind != lexer.RBrace {
		memberName := p.parseIdent("struct member name")
		if memberName == nil {
			return nil
		}
		if _, ok := p.expect(lexer.Colon, "struct member"); !ok {
			return nil
		}
		typ := p.parseType()
		if typ == nil {
			return nil
		}
		if _, ok := p.expect(lexer.Semicolon, "struct member"); !ok {
			return nil
		}
		members.Children = append(members.Children, p.pool.NewChildren(ast.KindOther, memberName.Loc, memberName, typ))
	}
	p.lex.Advance() // }
	return p.pool.NewChildren(ast.KindStructDef, loc, name, members)
}

func (p *Parser) parseParams() *ast.Node {
	loc := p.loc()
	if _, ok := p.expect(lexer.LParen, "parameter list"); !ok {
		return nil
	}
	params := p.pool.New(ast.KindOther, loc)
	if p.lex.Peek().Kind != lexer.RParen {
		for {
			name := p.parseIdent("parameter name")
			if name == nil {
				return nil
			}
			if _, ok := p.expect(lexer.Colon, "parameter"); !ok {
				return nil
			}
			typ := p.parseType()
			if typ == nil {
				return nil
			}
			params.Children = append(params.Children, p.pool.NewChildren(ast.KindOther, name.Loc, name, typ))
			if _, ok := p.lex.Accept(lexer.Comma); ok {
				continue
			}
			break
		}
	}
	if _, ok := p.expect(lexer.RParen, "parameter list"); !ok {
		return nil
	}
	return params
}

func (p *Parser) parseFuncDef() *ast.Node {
	loc := p.loc()
	p.lex.Advance() // func
	name := p.parseIdent("function name")
	if name == nil {
		return nil
	}
	params := p.parseParams()
	if params == nil {
		return nil
	}
	var retType *ast.Node
	if _, ok := p.lex.Accept(lexer.Arrow); ok {
		retType = p.parseType()
		if retType == nil {
			return nil
		}
	} else {
		retType = p.pool.New(ast.KindTypeVoid, p.loc())
	}
	body := p.parseBlock()
	if body == nil {
		return nil
	}
	return p.pool.NewChildren(ast.KindFuncDef, loc, name, params, retType, body)
}

// --- Types ---

var primitiveTypeKinds = map[lexer.Kind]ast.Kind{
	lexer.KwS8: ast.KindTypeS8, lexer.KwS16: ast.KindTypeS16, lexer.KwS32: ast.KindTypeS32, lexer.KwS64: ast.KindTypeS64,
	lexer.KwU8: ast.KindTypeU8, lexer.KwU16: ast.KindTypeU16, lexer.KwU32: ast.KindTypeU32, lexer.KwU64: ast.KindTypeU64,
	lexer.KwF16: ast.KindTypeF16, lexer.KwF32: ast.KindTypeF32, lexer.KwF64: ast.KindTypeF64,
	lexer.KwBool: ast.KindTypeBool,
}

func (p *Parser) parseType() *ast.Node {
	loc := p.loc()
	tok := p.lex.Peek()

	if kind, ok := primitiveTypeKinds[tok.Kind]; ok {
		p.lex.Advance()
		return p.pool.New(kind, loc)
	}

	switch tok.Kind {
	case lexer.Ident:
		return p.parseIdent("named type")
	case lexer.KwFunc:
		return p.parseFuncType()
	case lexer.Amp:
		p.lex.Advance()
		elem := p.parseType()
		if elem == nil {
			return nil
		}
		return p.pool.NewChildren(ast.KindTypeRef, loc, elem)
	case lexer.LBracket:
		p.lex.Advance()
		if _, ok := p.lex.Accept(lexer.RBracket); ok {
			elem := p.parseType()
			if elem == nil {
				return nil
			}
			return p.pool.NewChildren(ast.KindTypeSlice, loc, elem)
		}
		length := p.parseExpr()
		if length == nil {
			return nil
		}
		if _, ok := p.expect(lexer.RBracket, "array type"); !ok {
			return nil
		}
		elem := p.parseType()
		if elem == nil {
			return nil
		}
		return p.pool.NewChildren(ast.KindTypeArray, loc, length, elem)
	default:
		return p.unexpected("type")
	}
}

func (p *Parser) parseFuncType() *ast.Node {
	loc := p.loc()
	p.lex.Advance() // func
	if _, ok := p.expect(lexer.LParen, "function type parameters"); !ok {
		return nil
	}
	params := p.pool.New(ast.KindOther, p.loc())
	if p.lex.Peek().Kind != lexer.RParen {
		for {
			t := p.parseType()
			if t == nil {
				return nil
			}
			params.Children = append(params.Children, t)
			if _, ok := p.lex.Accept(lexer.Comma); ok {
				continue
			}
			break
		}
	}
	if _, ok := p.expect(lexer.RParen, "function type parameters"); !ok {
		return nil
	}
	var ret *ast.Node
	if _, ok := p.lex.Accept(lexer.Arrow); ok {
		ret = p.parseType()
		if ret == nil {
			return nil
		}
	} else {
		ret = p.pool.New(ast.KindTypeVoid, p.loc())
	}
	return p.pool.NewChildren(ast.KindTypeFunc, loc, params, ret)
}

// --- Statements ---

func (p *Parser) parseBlock() *ast.Node {
	loc := p.loc()
	if _, ok := p.expect(lexer.LBrace, "block"); !ok {
		return nil
	}
	block := p.pool.New(ast.KindBlock, loc)
	for p.lex.Peek().Kind != lexer.RBrace {
		if p.lex.Peek().Kind == lexer.EOF {
			return p.unexpected("block")
		}
		stmt := p.parseStmt()
		if stmt == nil {
			return nil
		}
		block.Children = append(block.Children, stmt)
	}
	p.lex.Advance() // }
	return block
}

func (p *Parser) parseStmt() *ast.Node {
	switch p.lex.Peek().Kind {
	case lexer.LBrace:
		return p.parseBlock()
	case lexer.KwConst:
		return p.parseConstDef()
	case lexer.KwVar:
		return p.parseVarDefOrDecl()
	case lexer.KwIf:
		return p.parseIf()
	case lexer.KwLoop:
		return p.parseLoop()
	case lexer.KwWhile:
		return p.parseWhile()
	case lexer.KwContinue:
		loc := p.loc()
		p.lex.Advance()
		if _, ok := p.expect(lexer.Semicolon, "continue statement"); !ok {
			return nil
		}
		return p.pool.New(ast.KindContinue, loc)
	case lexer.KwBreak:
		loc := p.loc()
		p.lex.Advance()
		if _, ok := p.expect(lexer.Semicolon, "break statement"); !ok {
			return nil
		}
		return p.pool.New(ast.KindBreak, loc)
	case lexer.KwReturn:
		return p.parseReturn()
	default:
		return p.parseAssignOrExprStmt()
	}
}

func (p *Parser) parseIf() *ast.Node {
	loc := p.loc()
	p.lex.Advance() // if
	cond := p.parseCondition()
	if cond == nil {
		return nil
	}
	then := p.parseBlock()
	if then == nil {
		return nil
	}
	if _, ok := p.lex.Accept(lexer.KwElse); !ok {
		return p.pool.NewChildren(ast.KindIf, loc, cond, then)
	}
	var elseBranch *ast.Node
	if p.lex.Peek().Kind == lexer.KwIf {
		elseBranch = p.parseIf()
	} else {
		elseBranch = p.parseBlock()
	}
	if elseBranch == nil {
		return nil
	}
	return p.pool.NewChildren(ast.KindIf, loc, cond, then, elseBranch)
}

func (p *Parser) parseLoop() *ast.Node {
	loc := p.loc()
	p.lex.Advance() // loop
	body := p.parseBlock()
	if body == nil {
		return nil
	}
	return p.pool.NewChildren(ast.KindLoop, loc, body)
}

func (p *Parser) parseWhile() *ast.Node {
	loc := p.loc()
	p.lex.Advance() // while
	cond := p.parseCondition()
	if cond == nil {
		return nil
	}
	body := p.parseBlock()
	if body == nil {
		return nil
	}
	return p.pool.NewChildren(ast.KindWhile, loc, cond, body)
}

// parseCondition parses the grammar's "RelExpr" condition slot used by
// if/while, with struct-literal primaries disabled (see noStructLiteral).
func (p *Parser) parseCondition() *ast.Node {
	prev := p.noStructLiteral
	p.noStructLiteral = true
	defer func() { p.noStructLiteral = prev }()
	return p.parseRelExpr()
}

func (p *Parser) parseReturn() *ast.Node {
	loc := p.loc()
	p.lex.Advance() // return
	if _, ok := p.lex.Accept(lexer.Semicolon); ok {
		return p.pool.New(ast.KindReturn, loc)
	}
	value := p.parseExpr()
	if value == nil {
		return nil
	}
	if _, ok := p.expect(lexer.Semicolon, "return statement"); !ok {
		return nil
	}
	return p.pool.NewChildren(ast.KindReturn, loc, value)
}

var assignOps = map[lexer.Kind]ast.Kind{
	lexer.Assign:        ast.KindAssign,
	lexer.PlusAssign:    ast.KindAssignAdd,
	lexer.MinusAssign:   ast.KindAssignSub,
	lexer.StarAssign:    ast.KindAssignMul,
	lexer.SlashAssign:   ast.KindAssignDiv,
	lexer.PercentAssign: ast.KindAssignRem,
	lexer.ShlAssign:     ast.KindAssignShl,
	lexer.ShrAssign:     ast.KindAssignShr,
}

func (p *Parser) parseAssignOrExprStmt() *ast.Node {
	loc := p.loc()
	target := p.parseUnaryExpr()
	if target == nil {
		return nil
	}
	if kind, ok := assignOps[p.lex.Peek().Kind]; ok {
		p.lex.Advance()
		value := p.parseExpr()
		if value == nil {
			return nil
		}
		if _, ok := p.expect(lexer.Semicolon, "assignment"); !ok {
			return nil
		}
		return p.pool.NewChildren(kind, loc, target, value)
	}
	if _, ok := p.expect(lexer.Semicolon, "expression statement"); !ok {
		return nil
	}
	return target
}

// --- Expressions ---

// parseExpr is the top-level expression entry point (the grammar's
// unrestricted "Expr"): LogicalExpr.
func (p *Parser) parseExpr() *ast.Node {
	return p.parseLogicalExpr()
}

var logicalOps = map[lexer.Kind]ast.Kind{
	lexer.KwAnd: ast.KindAnd,
	lexer.KwOr:  ast.KindOr,
	lexer.KwXor: ast.KindXor,
}

func (p *Parser) parseLogicalExpr() *ast.Node {
	left := p.parseRelExpr()
	if left == nil {
		return nil
	}
	opTok, ok := logicalOps[p.lex.Peek().Kind]
	if !ok {
		return left
	}
	opLexKind := p.lex.Peek().Kind
	for p.lex.Peek().Kind == opLexKind {
		loc := p.loc()
		p.lex.Advance()
		right := p.parseRelExpr()
		if right == nil {
			return nil
		}
		left = p.pool.NewChildren(opTok, loc, left, right)
	}
	return left
}

var relOps = map[lexer.Kind]ast.Kind{
	lexer.Eq: ast.KindEq, lexer.Neq: ast.KindNeq,
	lexer.Lt: ast.KindLt, lexer.Lte: ast.KindLte,
	lexer.Gt: ast.KindGt, lexer.Gte: ast.KindGte,
}

// parseRelExpr is non-chainable: at most one relational operator (spec
// §4.3).
func (p *Parser) parseRelExpr() *ast.Node {
	left := p.parseArithmeticExpr()
	if left == nil {
		return nil
	}
	kind, ok := relOps[p.lex.Peek().Kind]
	if !ok {
		return left
	}
	loc := p.loc()
	p.lex.Advance()
	right := p.parseArithmeticExpr()
	if right == nil {
		return nil
	}
	return p.pool.NewChildren(kind, loc, left, right)
}

var arithOps = map[lexer.Kind]ast.Kind{
	lexer.Plus: ast.KindAdd, lexer.Minus: ast.KindSub,
	lexer.Star: ast.KindMul, lexer.Slash: ast.KindDiv, lexer.Percent: ast.KindRem,
	lexer.Shl: ast.KindShl, lexer.Shr: ast.KindShr,
}

// parseArithmeticExpr parses one layer covering +,-,*,/,%,<>,>>: a run
// of the *same* operator is left-associative; mixing operators within
// one run is not allowed without parenthesizing the inner expression
// (spec §4.3: "runs of the same operator are left-associative and
// homogenous" — this language has no +/* precedence distinction).
func (p *Parser) parseArithmeticExpr() *ast.Node {
	left := p.parseUnaryExpr()
	if left == nil {
		return nil
	}
	kind, ok := arithOps[p.lex.Peek().Kind]
	if !ok {
		return left
	}
	opLexKind := p.lex.Peek().Kind
	for p.lex.Peek().Kind == opLexKind {
		loc := p.loc()
		p.lex.Advance()
		right := p.parseUnaryExpr()
		if right == nil {
			return nil
		}
		left = p.pool.NewChildren(kind, loc, left, right)
	}
	return left
}

var unaryOps = map[lexer.Kind]ast.Kind{
	lexer.Not:   ast.KindNot,
	lexer.Minus: ast.KindNeg,
	lexer.Star:  ast.KindDeref,
	lexer.Amp:   ast.KindRef,
}

func (p *Parser) parseUnaryExpr() *ast.Node {
	if kind, ok := unaryOps[p.lex.Peek().Kind]; ok {
		loc := p.loc()
		p.lex.Advance()
		operand := p.parseUnaryExpr()
		if operand == nil {
			return nil
		}
		return p.pool.NewChildren(kind, loc, operand)
	}
	return p.parsePostfixExpr()
}

func (p *Parser) parsePostfixExpr() *ast.Node {
	expr := p.parsePrimaryExpr()
	if expr == nil {
		return nil
	}
	for {
		switch p.lex.Peek().Kind {
		case lexer.LParen:
			loc := p.loc()
			p.lex.Advance()
			args := p.pool.New(ast.KindOther, loc)
			if p.lex.Peek().Kind != lexer.RParen {
				for {
					a := p.parseExpr()
					if a == nil {
						return nil
					}
					args.Children = append(args.Children, a)
					if _, ok := p.lex.Accept(lexer.Comma); ok {
						continue
					}
					break
				}
			}
			if _, ok := p.expect(lexer.RParen, "call arguments"); !ok {
				return nil
			}
			expr = p.pool.NewChildren(ast.KindCall, loc, expr, args)
		case lexer.LBracket:
			loc := p.loc()
			p.lex.Advance()
			first := p.parseExpr()
			if first == nil {
				return nil
			}
			if _, ok := p.lex.Accept(lexer.Colon); ok {
				second := p.parseExpr()
				if second == nil {
					return nil
				}
				if _, ok := p.expect(lexer.RBracket, "slice expression"); !ok {
					return nil
				}
				expr = p.pool.NewChildren(ast.KindSlice, loc, expr, first, second)
			} else {
				if _, ok := p.expect(lexer.RBracket, "index expression"); !ok {
					return nil
				}
				expr = p.pool.NewChildren(ast.KindIndex, loc, expr, first)
			}
		case lexer.Period:
			loc := p.loc()
			p.lex.Advance()
			tok, ok := p.expect(lexer.Ident, "field access")
			if !ok {
				return nil
			}
			field := p.pool.NewChildren(ast.KindField, loc, expr)
			field.Name = tok.Text
			expr = field
		default:
			return expr
		}
	}
}

func (p *Parser) parsePrimaryExpr() *ast.Node {
	loc := p.loc()
	tok := p.lex.Peek()
	switch tok.Kind {
	case lexer.Ident:
		p.lex.Advance()
		if !p.noStructLiteral && p.lex.Peek().Kind == lexer.LBrace {
			return p.parseStructLiteral(tok)
		}
		n := p.pool.New(ast.KindIdent, loc)
		n.Name = tok.Text
		return n
	case lexer.IntLiteral:
		p.lex.Advance()
		n := p.pool.New(ast.KindLitS32, loc)
		n.SInt = int64(tok.UInt)
		return n
	case lexer.FloatLiteral:
		p.lex.Advance()
		n := p.pool.New(ast.KindLitF64, loc)
		n.Float = tok.Float
		return n
	case lexer.StringLiteral:
		p.lex.Advance()
		n := p.pool.New(ast.KindLitString, loc)
		n.Str = []byte(tok.Text)
		return n
	case lexer.KwTrue, lexer.KwFalse:
		p.lex.Advance()
		n := p.pool.New(ast.KindLitBool, loc)
		n.Bool = tok.Kind == lexer.KwTrue
		return n
	case lexer.LParen:
		p.lex.Advance()
		prev := p.noStructLiteral
		p.noStructLiteral = false
		inner := p.parseExpr()
		p.noStructLiteral = prev
		if inner == nil {
			return nil
		}
		if _, ok := p.expect(lexer.RParen, "parenthesized expression"); !ok {
			return nil
		}
		return inner
	default:
		return p.unexpected("expression")
	}
}

// parseStructLiteral parses `Ident "{" (Ident ":" Expr ";")* "}"`. The
// struct type name has already been consumed (nameTok); this builds a
// KindOther wrapper whose Name carries the struct type and whose
// children are [fieldName, fieldValue] "other" pairs, mirroring how
// parameter/member lists are represented.
func (p *Parser) parseStructLiteral(nameTok lexer.Token) *ast.Node {
	loc := nameTok.Loc
	p.lex.Advance() // {
	lit := p.pool.New(ast.KindOther, loc)
	lit.Name = nameTok.Text
	for p.lex.Peek().Kind != lexer.RBrace {
		fieldTok, ok := p.expect(lexer.Ident, "struct literal field name")
		if !ok {
			return nil
		}
		if _, ok := p.expect(lexer.Colon, "struct literal field"); !ok {
			return nil
		}
		value := p.parseExpr()
		if value == nil {
			return nil
		}
		if _, ok := p.expect(lexer.Semicolon, "struct literal field"); !ok {
			return nil
		}
		fieldName := p.pool.New(ast.KindIdent, fieldTok.Loc)
		fieldName.Name = fieldTok.Text
		lit.Children = append(lit.Children, p.pool.NewChildren(ast.KindOther, fieldTok.Loc, fieldName, value))
	}
	p.lex.Advance() // }
	return lit
}
