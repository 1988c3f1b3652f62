// Package asg defines the abstract semantic graph: declarations,
// expressions and statements with resolved references and types.
//
// Nodes are allocated through an Arena, which gives every node a stable
// NodeID. Back-references (DeclRefExpr.Decl, BreakStmt.Loop,
// ReturnStmt.Func, ...) are non-owning; the tree edges are the only
// ownership edges.
package asg

import "github.com/yHan234/SYsU-lang-Compiler/pkg/ctypes"

// Node is implemented by every semantic graph node
type Node interface {
	ID() NodeID
	hdr() *header
}

// Decl is the interface for declarations
type Decl interface {
	Node
	implDecl()
	DeclName() string
	DeclType() *ctypes.Type
}

// Expr is the interface for expressions
type Expr interface {
	Node
	implExpr()
	Type() *ctypes.Type
	IsLValue() bool
	SetType(t *ctypes.Type, lvalue bool)
}

// Stmt is the interface for statements
type Stmt interface {
	Node
	implStmt()
}

type header struct {
	id NodeID
}

func (h *header) ID() NodeID   { return h.id }
func (h *header) hdr() *header { return h }

type exprHeader struct {
	header
	typ    *ctypes.Type
	lvalue bool
}

// Type returns the type attached by the typing pass, or nil before it
func (e *exprHeader) Type() *ctypes.Type { return e.typ }

// IsLValue reports whether the expression designates an object
func (e *exprHeader) IsLValue() bool { return e.lvalue }

// SetType attaches the inferred type and value category
func (e *exprHeader) SetType(t *ctypes.Type, lvalue bool) {
	e.typ = t
	e.lvalue = lvalue
}

// UnaryOp is a unary operator
type UnaryOp int

const (
	Pos UnaryOp = iota // +
	Neg                // -
	Not                // !
)

func (op UnaryOp) String() string {
	names := []string{"+", "-", "!"}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// BinaryOp is a binary operator
type BinaryOp int

const (
	Mul BinaryOp = iota
	Div
	Mod
	Add
	Sub
	Lt
	Gt
	Le
	Ge
	Eq
	Ne
	And
	Or
	Assign
	Index
	Comma
)

var binaryOpNames = []string{"*", "/", "%", "+", "-", "<", ">", "<=", ">=", "==", "!=", "&&", "||", "=", "[]", ","}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOpNames) {
		return binaryOpNames[op]
	}
	return "?"
}

// IsComparison reports whether op yields a truth value from two operands
func (op BinaryOp) IsComparison() bool {
	return op >= Lt && op <= Ne
}

// CastKind is the conversion performed by an ImplicitCastExpr
type CastKind int

const (
	LValueToRValue CastKind = iota
	ArrayToPointerDecay
	FunctionToPointerDecay
	IntegralCast
)

var castKindNames = []string{"LValueToRValue", "ArrayToPointerDecay", "FunctionToPointerDecay", "IntegralCast"}

func (k CastKind) String() string {
	if int(k) < len(castKindNames) {
		return castKindNames[k]
	}
	return "?"
}

// TranslationUnit is the root of the graph
type TranslationUnit struct {
	header
	Decls []Decl
	Arena *Arena
}

// VarDecl declares a variable or parameter
type VarDecl struct {
	header
	Name string
	Typ  *ctypes.Type
	Init Expr // nil if absent
}

// FunctionDecl declares or defines a function
type FunctionDecl struct {
	header
	Name   string
	Typ    *ctypes.Type
	Params []*VarDecl
	Body   *CompoundStmt // nil for a forward declaration
}

func (d *VarDecl) DeclName() string            { return d.Name }
func (d *VarDecl) DeclType() *ctypes.Type      { return d.Typ }
func (d *FunctionDecl) DeclName() string       { return d.Name }
func (d *FunctionDecl) DeclType() *ctypes.Type { return d.Typ }

// IntegerLiteral is an integer constant
type IntegerLiteral struct {
	exprHeader
	Value int64
}

// DeclRefExpr names a declaration
type DeclRefExpr struct {
	exprHeader
	Decl Decl
}

// ParenExpr is a parenthesized expression
type ParenExpr struct {
	exprHeader
	Sub Expr
}

// UnaryExpr applies a unary operator
type UnaryExpr struct {
	exprHeader
	Op  UnaryOp
	Sub Expr
}

// BinaryExpr applies a binary operator, including assignment, indexing
// and the comma operator
type BinaryExpr struct {
	exprHeader
	Op  BinaryOp
	LHS Expr
	RHS Expr
}

// CallExpr calls a function
type CallExpr struct {
	exprHeader
	Callee Expr
	Args   []Expr
}

// InitListExpr is a flattened braced initializer
type InitListExpr struct {
	exprHeader
	List []Expr
}

// ImplicitInitExpr marks a zero-filled hole in an initializer
type ImplicitInitExpr struct {
	exprHeader
}

// ImplicitCastExpr is a conversion inserted by the typing pass
type ImplicitCastExpr struct {
	exprHeader
	Kind CastKind
	Sub  Expr
}

// CompoundStmt is a braced statement list
type CompoundStmt struct {
	header
	Subs []Stmt
}

// DeclStmt declares local names
type DeclStmt struct {
	header
	Decls []Decl
}

// ExprStmt evaluates an expression for its effects
type ExprStmt struct {
	header
	Expr Expr
}

// NullStmt does nothing
type NullStmt struct {
	header
}

// IfStmt is a two-way branch
type IfStmt struct {
	header
	Cond Expr
	Then Stmt
	Else Stmt // nil if absent
}

// WhileStmt is a pre-tested loop
type WhileStmt struct {
	header
	Cond Expr
	Body Stmt
}

// BreakStmt leaves Loop
type BreakStmt struct {
	header
	Loop *WhileStmt
}

// ContinueStmt re-tests Loop
type ContinueStmt struct {
	header
	Loop *WhileStmt
}

// ReturnStmt leaves Func
type ReturnStmt struct {
	header
	Func *FunctionDecl
	Expr Expr // nil for a bare return
}

func (*VarDecl) implDecl()      {}
func (*FunctionDecl) implDecl() {}

func (*IntegerLiteral) implExpr()   {}
func (*DeclRefExpr) implExpr()      {}
func (*ParenExpr) implExpr()        {}
func (*UnaryExpr) implExpr()        {}
func (*BinaryExpr) implExpr()       {}
func (*CallExpr) implExpr()         {}
func (*InitListExpr) implExpr()     {}
func (*ImplicitInitExpr) implExpr() {}
func (*ImplicitCastExpr) implExpr() {}

func (*CompoundStmt) implStmt() {}
func (*DeclStmt) implStmt()     {}
func (*ExprStmt) implStmt()     {}
func (*NullStmt) implStmt()     {}
func (*IfStmt) implStmt()       {}
func (*WhileStmt) implStmt()    {}
func (*BreakStmt) implStmt()    {}
func (*ContinueStmt) implStmt() {}
func (*ReturnStmt) implStmt()   {}

// IgnoreParens strips any ParenExpr wrappers
func IgnoreParens(e Expr) Expr {
	for {
		p, ok := e.(*ParenExpr)
		if !ok {
			return e
		}
		e = p.Sub
	}
}
