// Package parser implements a recursive descent parser for the C subset
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yHan234/SYsU-lang-Compiler/pkg/cabs"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/lexer"
)

// maxErrors bounds error reporting after the parser loses synchronization.
const maxErrors = 20

// Parser parses C source code into a Cabs AST
type Parser struct {
	l         *lexer.Lexer
	curToken  lexer.Token
	peekToken lexer.Token
	errors    []string
}

// New creates a new Parser for the given lexer
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	// Read two tokens to initialize curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

// Errors returns the list of parsing errors
func (p *Parser) Errors() []string {
	return p.errors
}

func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, fmt.Sprintf("line %d, col %d: %s",
		p.curToken.Line, p.curToken.Column, msg))
}

func (p *Parser) pos() cabs.Pos {
	return cabs.Pos{Line: p.curToken.Line, Column: p.curToken.Column}
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t lexer.TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) expect(t lexer.TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.addError(fmt.Sprintf("expected %s, got %s", t, p.curToken.Type))
	return false
}

// ParseProgram parses a whole translation unit
func (p *Parser) ParseProgram() *cabs.Program {
	prog := &cabs.Program{}
	for !p.curTokenIs(lexer.TokenEOF) && len(p.errors) < maxErrors {
		before := len(p.errors)
		def := p.ParseDefinition()
		if def == nil && len(p.errors) == before {
			p.addError(fmt.Sprintf("unexpected %s", p.curToken.Type))
		}
		if len(p.errors) > before {
			p.synchronize()
			continue
		}
		if def != nil {
			prog.Definitions = append(prog.Definitions, def)
		}
	}
	return prog
}

// synchronize skips to just past the next ';' or '}'
func (p *Parser) synchronize() {
	for !p.curTokenIs(lexer.TokenEOF) {
		t := p.curToken.Type
		p.nextToken()
		if t == lexer.TokenSemicolon || t == lexer.TokenRBrace {
			return
		}
	}
}

// ParseDefinition parses a top-level declaration or function definition
func (p *Parser) ParseDefinition() cabs.Definition {
	spec, ok := p.parseDeclSpec()
	if !ok {
		return nil
	}
	if p.curTokenIs(lexer.TokenSemicolon) {
		p.nextToken()
		return cabs.Declaration{Spec: spec}
	}

	decl := p.parseDeclarator(false)
	if decl == nil {
		return nil
	}
	if p.curTokenIs(lexer.TokenLBrace) {
		if _, ok := decl.(cabs.FuncDecl); !ok {
			p.addError("unexpected '{' after non-function declarator")
			return nil
		}
		body := p.parseBlock()
		if body == nil {
			return nil
		}
		return cabs.FunDef{Spec: spec, Decl: decl, Body: body}
	}
	d, ok := p.parseInitDeclarators(spec, decl)
	if !ok {
		return nil
	}
	return d
}

func (p *Parser) isTypeSpecifier() bool {
	switch p.curToken.Type {
	case lexer.TokenInt, lexer.TokenVoid, lexer.TokenChar, lexer.TokenLong, lexer.TokenConst:
		return true
	}
	return false
}

var specifierOf = map[lexer.TokenType]cabs.Specifier{
	lexer.TokenVoid:  cabs.SpecVoid,
	lexer.TokenChar:  cabs.SpecChar,
	lexer.TokenInt:   cabs.SpecInt,
	lexer.TokenLong:  cabs.SpecLong,
	lexer.TokenConst: cabs.SpecConst,
}

func (p *Parser) parseDeclSpec() (cabs.DeclSpec, bool) {
	spec := cabs.DeclSpec{Pos: p.pos()}
	for p.isTypeSpecifier() {
		spec.Specs = append(spec.Specs, specifierOf[p.curToken.Type])
		p.nextToken()
	}
	if len(spec.Specs) == 0 {
		p.addError(fmt.Sprintf("expected type specifier, got %s", p.curToken.Type))
		return spec, false
	}
	return spec, true
}

// parseInitDeclarators finishes a declaration whose first declarator has
// already been read.
func (p *Parser) parseInitDeclarators(spec cabs.DeclSpec, first cabs.Declarator) (cabs.Declaration, bool) {
	d := cabs.Declaration{Spec: spec}
	decl := first
	for {
		id := cabs.InitDeclarator{Decl: decl}
		if p.curTokenIs(lexer.TokenAssign) {
			p.nextToken()
			id.Init = p.parseInitializer()
			if id.Init == nil {
				return d, false
			}
		}
		d.Decls = append(d.Decls, id)
		if !p.curTokenIs(lexer.TokenComma) {
			break
		}
		p.nextToken()
		if decl = p.parseDeclarator(false); decl == nil {
			return d, false
		}
	}
	return d, p.expect(lexer.TokenSemicolon)
}

func (p *Parser) parseInitializer() cabs.Initializer {
	if !p.curTokenIs(lexer.TokenLBrace) {
		e := p.parseAssign()
		if e == nil {
			return nil
		}
		return cabs.ExprInit{Expr: e}
	}
	list := cabs.ListInit{Pos: p.pos(), Items: []cabs.Initializer{}}
	p.nextToken() // consume '{'
	for !p.curTokenIs(lexer.TokenRBrace) {
		item := p.parseInitializer()
		if item == nil {
			return nil
		}
		list.Items = append(list.Items, item)
		if !p.curTokenIs(lexer.TokenComma) {
			break
		}
		p.nextToken()
	}
	if !p.expect(lexer.TokenRBrace) {
		return nil
	}
	return list
}

// parseDeclarator parses `pointer* direct-declarator`. With abstract set,
// the identifier may be omitted.
func (p *Parser) parseDeclarator(abstract bool) cabs.Declarator {
	if p.curTokenIs(lexer.TokenStar) {
		p.nextToken()
		ptr := cabs.PointerDecl{}
		if p.curTokenIs(lexer.TokenConst) {
			ptr.Const = true
			p.nextToken()
		}
		if abstract && p.endsAbstract() {
			return ptr
		}
		inner := p.parseDeclarator(abstract)
		if inner == nil {
			return nil
		}
		ptr.Inner = inner
		return ptr
	}
	return p.parseDirectDeclarator(abstract)
}

// endsAbstract reports whether an abstract declarator can stop here
func (p *Parser) endsAbstract() bool {
	return p.curTokenIs(lexer.TokenComma) || p.curTokenIs(lexer.TokenRParen)
}

func (p *Parser) parseDirectDeclarator(abstract bool) cabs.Declarator {
	var d cabs.Declarator
	switch {
	case p.curTokenIs(lexer.TokenIdent):
		d = cabs.IdentDecl{Pos: p.pos(), Name: p.curToken.Literal}
		p.nextToken()
	case p.curTokenIs(lexer.TokenLParen) && p.startsNestedDeclarator():
		p.nextToken()
		d = p.parseDeclarator(abstract)
		if d == nil || !p.expect(lexer.TokenRParen) {
			return nil
		}
	case abstract && (p.curTokenIs(lexer.TokenLBracket) || p.curTokenIs(lexer.TokenLParen)):
		// suffixes below attach to an empty core
	default:
		p.addError(fmt.Sprintf("expected identifier, got %s", p.curToken.Type))
		return nil
	}

	for {
		switch {
		case p.curTokenIs(lexer.TokenLBracket):
			arr := cabs.ArrayDecl{Pos: p.pos(), Inner: d}
			p.nextToken()
			if !p.curTokenIs(lexer.TokenRBracket) {
				if arr.Size = p.parseAssign(); arr.Size == nil {
					return nil
				}
			}
			if !p.expect(lexer.TokenRBracket) {
				return nil
			}
			d = arr
		case p.curTokenIs(lexer.TokenLParen):
			fn, ok := p.parseFuncSuffix(d)
			if !ok {
				return nil
			}
			d = fn
		default:
			return d
		}
	}
}

// startsNestedDeclarator distinguishes `( declarator )` from a parameter
// list when the current token is '('.
func (p *Parser) startsNestedDeclarator() bool {
	switch p.peekToken.Type {
	case lexer.TokenStar, lexer.TokenLParen, lexer.TokenLBracket:
		return true
	case lexer.TokenIdent:
		return true
	}
	return false
}

func (p *Parser) parseFuncSuffix(inner cabs.Declarator) (cabs.FuncDecl, bool) {
	fn := cabs.FuncDecl{Pos: p.pos(), Inner: inner}
	p.nextToken() // consume '('

	switch {
	case p.curTokenIs(lexer.TokenRParen):
		p.nextToken()
		return fn, true
	case p.curTokenIs(lexer.TokenVoid) && p.peekTokenIs(lexer.TokenRParen):
		p.nextToken()
		p.nextToken()
		return fn, true
	case p.curTokenIs(lexer.TokenIdent):
		fn.Idents = []string{}
		for {
			if !p.curTokenIs(lexer.TokenIdent) {
				p.addError(fmt.Sprintf("expected identifier, got %s", p.curToken.Type))
				return fn, false
			}
			fn.Idents = append(fn.Idents, p.curToken.Literal)
			p.nextToken()
			if !p.curTokenIs(lexer.TokenComma) {
				break
			}
			p.nextToken()
		}
		return fn, p.expect(lexer.TokenRParen)
	}

	for {
		spec, ok := p.parseDeclSpec()
		if !ok {
			return fn, false
		}
		prm := cabs.Param{Spec: spec}
		if !p.endsAbstract() {
			if prm.Decl = p.parseDeclarator(true); prm.Decl == nil {
				return fn, false
			}
		}
		fn.Params = append(fn.Params, prm)
		if !p.curTokenIs(lexer.TokenComma) {
			break
		}
		p.nextToken()
	}
	return fn, p.expect(lexer.TokenRParen)
}

func (p *Parser) parseBlock() *cabs.Block {
	block := &cabs.Block{Items: []cabs.Stmt{}}

	p.nextToken() // consume '{'

	for !p.curTokenIs(lexer.TokenRBrace) {
		if p.curTokenIs(lexer.TokenEOF) {
			p.addError("unexpected EOF in block")
			return nil
		}
		stmt := p.parseStatement()
		if stmt == nil {
			return nil
		}
		block.Items = append(block.Items, stmt)
	}

	p.nextToken() // consume '}'

	return block
}

func (p *Parser) parseStatement() cabs.Stmt {
	switch p.curToken.Type {
	case lexer.TokenLBrace:
		b := p.parseBlock()
		if b == nil {
			return nil
		}
		return *b
	case lexer.TokenSemicolon:
		p.nextToken()
		return cabs.NullStmt{}
	case lexer.TokenReturn:
		return p.parseReturnStatement()
	case lexer.TokenIf:
		return p.parseIfStatement()
	case lexer.TokenWhile:
		return p.parseWhileStatement()
	case lexer.TokenBreak:
		s := cabs.Break{Pos: p.pos()}
		p.nextToken()
		if !p.expect(lexer.TokenSemicolon) {
			return nil
		}
		return s
	case lexer.TokenContinue:
		s := cabs.Continue{Pos: p.pos()}
		p.nextToken()
		if !p.expect(lexer.TokenSemicolon) {
			return nil
		}
		return s
	}

	if p.isTypeSpecifier() {
		spec, ok := p.parseDeclSpec()
		if !ok {
			return nil
		}
		if p.curTokenIs(lexer.TokenSemicolon) {
			p.nextToken()
			return cabs.Declaration{Spec: spec}
		}
		first := p.parseDeclarator(false)
		if first == nil {
			return nil
		}
		d, ok := p.parseInitDeclarators(spec, first)
		if !ok {
			return nil
		}
		return d
	}

	expr := p.parseExpression()
	if expr == nil || !p.expect(lexer.TokenSemicolon) {
		return nil
	}
	return cabs.ExprStmt{Expr: expr}
}

func (p *Parser) parseReturnStatement() cabs.Stmt {
	ret := cabs.Return{Pos: p.pos()}
	p.nextToken() // consume 'return'

	if !p.curTokenIs(lexer.TokenSemicolon) {
		if ret.Expr = p.parseExpression(); ret.Expr == nil {
			return nil
		}
	}

	if !p.expect(lexer.TokenSemicolon) {
		return nil
	}
	return ret
}

func (p *Parser) parseIfStatement() cabs.Stmt {
	p.nextToken() // consume 'if'
	cond := p.parseCondition()
	if cond == nil {
		return nil
	}
	then := p.parseStatement()
	if then == nil {
		return nil
	}
	s := cabs.If{Cond: cond, Then: then}
	if p.curTokenIs(lexer.TokenElse) {
		p.nextToken()
		if s.Else = p.parseStatement(); s.Else == nil {
			return nil
		}
	}
	return s
}

func (p *Parser) parseWhileStatement() cabs.Stmt {
	p.nextToken() // consume 'while'
	cond := p.parseCondition()
	if cond == nil {
		return nil
	}
	body := p.parseStatement()
	if body == nil {
		return nil
	}
	return cabs.While{Cond: cond, Body: body}
}

func (p *Parser) parseCondition() cabs.Expr {
	if !p.expect(lexer.TokenLParen) {
		return nil
	}
	cond := p.parseExpression()
	if cond == nil || !p.expect(lexer.TokenRParen) {
		return nil
	}
	return cond
}

// parseExpression parses the comma level
func (p *Parser) parseExpression() cabs.Expr {
	left := p.parseAssign()
	for left != nil && p.curTokenIs(lexer.TokenComma) {
		pos := p.pos()
		p.nextToken()
		right := p.parseAssign()
		if right == nil {
			return nil
		}
		left = cabs.Binary{Pos: pos, Op: cabs.OpComma, Left: left, Right: right}
	}
	return left
}

// parseAssign is right-associative: the left operand comes from the
// logical-or level and is checked for lvalue-ness later.
func (p *Parser) parseAssign() cabs.Expr {
	left := p.parseBinary(0)
	if left == nil || !p.curTokenIs(lexer.TokenAssign) {
		return left
	}
	pos := p.pos()
	p.nextToken()
	right := p.parseAssign()
	if right == nil {
		return nil
	}
	return cabs.Binary{Pos: pos, Op: cabs.OpAssign, Left: left, Right: right}
}

// precedence lists binary levels from loosest to tightest
var precedence = []map[lexer.TokenType]cabs.BinaryOp{
	{lexer.TokenOr: cabs.OpOr},
	{lexer.TokenAnd: cabs.OpAnd},
	{lexer.TokenPipe: cabs.OpBitOr},
	{lexer.TokenCaret: cabs.OpBitXor},
	{lexer.TokenAmpersand: cabs.OpBitAnd},
	{lexer.TokenEq: cabs.OpEq, lexer.TokenNe: cabs.OpNe},
	{lexer.TokenLt: cabs.OpLt, lexer.TokenGt: cabs.OpGt, lexer.TokenLe: cabs.OpLe, lexer.TokenGe: cabs.OpGe},
	{lexer.TokenShl: cabs.OpShl, lexer.TokenShr: cabs.OpShr},
	{lexer.TokenPlus: cabs.OpAdd, lexer.TokenMinus: cabs.OpSub},
	{lexer.TokenStar: cabs.OpMul, lexer.TokenSlash: cabs.OpDiv, lexer.TokenPercent: cabs.OpMod},
}

func (p *Parser) parseBinary(level int) cabs.Expr {
	if level == len(precedence) {
		return p.parseUnary()
	}
	left := p.parseBinary(level + 1)
	for left != nil {
		op, ok := precedence[level][p.curToken.Type]
		if !ok {
			break
		}
		pos := p.pos()
		p.nextToken()
		right := p.parseBinary(level + 1)
		if right == nil {
			return nil
		}
		left = cabs.Binary{Pos: pos, Op: op, Left: left, Right: right}
	}
	return left
}

var unaryOps = map[lexer.TokenType]cabs.UnaryOp{
	lexer.TokenPlus:  cabs.OpPlus,
	lexer.TokenMinus: cabs.OpNeg,
	lexer.TokenNot:   cabs.OpNot,
}

func (p *Parser) parseUnary() cabs.Expr {
	if op, ok := unaryOps[p.curToken.Type]; ok {
		pos := p.pos()
		p.nextToken()
		sub := p.parseUnary()
		if sub == nil {
			return nil
		}
		return cabs.Unary{Pos: pos, Op: op, Expr: sub}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() cabs.Expr {
	expr := p.parsePrimary()
	for expr != nil {
		pos := p.pos()
		switch {
		case p.curTokenIs(lexer.TokenLBracket):
			p.nextToken()
			idx := p.parseExpression()
			if idx == nil || !p.expect(lexer.TokenRBracket) {
				return nil
			}
			expr = cabs.Index{Pos: pos, Array: expr, Index: idx}
		case p.curTokenIs(lexer.TokenLParen):
			p.nextToken()
			call := cabs.Call{Pos: pos, Func: expr, Args: []cabs.Expr{}}
			for !p.curTokenIs(lexer.TokenRParen) {
				arg := p.parseAssign()
				if arg == nil {
					return nil
				}
				call.Args = append(call.Args, arg)
				if !p.curTokenIs(lexer.TokenComma) {
					break
				}
				p.nextToken()
			}
			if !p.expect(lexer.TokenRParen) {
				return nil
			}
			expr = call
		default:
			return expr
		}
	}
	return expr
}

func (p *Parser) parsePrimary() cabs.Expr {
	switch p.curToken.Type {
	case lexer.TokenNumber:
		lit := p.curToken.Literal
		pos := p.pos()
		value, err := ParseInteger(lit)
		if err != nil {
			p.addError(err.Error())
			return nil
		}
		p.nextToken()
		return cabs.Constant{Pos: pos, Value: value, Text: lit}
	case lexer.TokenIdent:
		v := cabs.Variable{Pos: p.pos(), Name: p.curToken.Literal}
		p.nextToken()
		return v
	case lexer.TokenLParen:
		p.nextToken()
		inner := p.parseExpression()
		if inner == nil || !p.expect(lexer.TokenRParen) {
			return nil
		}
		return cabs.Paren{Expr: inner}
	}
	p.addError(fmt.Sprintf("expected expression, got %s", p.curToken.Type))
	return nil
}

// ParseInteger decodes a decimal, octal (leading 0) or hexadecimal (0x)
// literal, ignoring integer suffixes.
func ParseInteger(lit string) (int64, error) {
	digits := strings.TrimRight(lit, "uUlL")
	v, err := strconv.ParseInt(digits, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer literal %q", lit)
	}
	return v, nil
}
