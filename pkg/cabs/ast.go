// Package cabs defines the abstract syntax tree produced by the parser.
// Declarators keep their syntactic nesting; the semantic builder threads
// types through them.
package cabs

// Node is the base interface for all AST nodes
type Node interface {
	implCabsNode()
}

// Expr is the interface for all expression nodes
type Expr interface {
	Node
	implCabsExpr()
}

// Stmt is the interface for all statement nodes
type Stmt interface {
	Node
	implCabsStmt()
}

// Definition is the interface for top-level definitions
type Definition interface {
	Node
	implDefinition()
}

// Declarator is the interface for declarator nodes
type Declarator interface {
	Node
	implDeclarator()
}

// Initializer is the interface for variable initializers
type Initializer interface {
	Node
	implInitializer()
}

// Pos is a source position
type Pos struct {
	Line   int
	Column int
}

// BinaryOp represents binary operators
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe
	OpAnd // &&
	OpOr  // ||
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl // <<
	OpShr // >>
	OpAssign
	OpComma
)

func (op BinaryOp) String() string {
	names := []string{"+", "-", "*", "/", "%", "<", "<=", ">", ">=", "==", "!=", "&&", "||", "&", "|", "^", "<<", ">>", "=", ","}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// UnaryOp represents unary operators
type UnaryOp int

const (
	OpPlus UnaryOp = iota // +
	OpNeg                 // -
	OpNot                 // !
)

func (op UnaryOp) String() string {
	names := []string{"+", "-", "!"}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// Specifier is a single type specifier or qualifier keyword
type Specifier int

const (
	SpecVoid Specifier = iota
	SpecChar
	SpecInt
	SpecLong
	SpecConst
)

func (s Specifier) String() string {
	names := []string{"void", "char", "int", "long", "const"}
	if int(s) < len(names) {
		return names[s]
	}
	return "?"
}

// DeclSpec is the specifier/qualifier list that opens a declaration
type DeclSpec struct {
	Pos   Pos
	Specs []Specifier
}

// Constant represents an integer literal
type Constant struct {
	Pos   Pos
	Value int64
	Text  string
}

// Variable represents an identifier expression
type Variable struct {
	Pos  Pos
	Name string
}

// Unary represents a unary expression
type Unary struct {
	Pos  Pos
	Op   UnaryOp
	Expr Expr
}

// Binary represents a binary expression, including assignment and comma
type Binary struct {
	Pos   Pos
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// Paren represents a parenthesized expression
type Paren struct {
	Expr Expr
}

// Call represents a function call
type Call struct {
	Pos  Pos
	Func Expr
	Args []Expr
}

// Index represents array subscript access: arr[idx]
type Index struct {
	Pos   Pos
	Array Expr
	Index Expr
}

// IdentDecl is the identifier at the core of a declarator
type IdentDecl struct {
	Pos  Pos
	Name string
}

// PointerDecl is `* Inner`
type PointerDecl struct {
	Inner Declarator // nil in abstract declarators
	Const bool
}

// ArrayDecl is `Inner [Size]`; Size is nil for `[]`
type ArrayDecl struct {
	Pos   Pos
	Inner Declarator
	Size  Expr
}

// FuncDecl is `Inner ( Params )` or an identifier-list `Inner ( Idents )`
type FuncDecl struct {
	Pos    Pos
	Inner  Declarator
	Params []Param
	Idents []string
}

// Param is one entry in a parameter type list
type Param struct {
	Spec DeclSpec
	Decl Declarator // nil or abstract for unnamed parameters
}

// ExprInit is a single-expression initializer
type ExprInit struct {
	Expr Expr
}

// ListInit is a braced initializer list
type ListInit struct {
	Pos   Pos
	Items []Initializer
}

// InitDeclarator pairs a declarator with its optional initializer
type InitDeclarator struct {
	Decl Declarator
	Init Initializer
}

// Declaration declares zero or more names with a shared specifier list
type Declaration struct {
	Spec  DeclSpec
	Decls []InitDeclarator
}

// ExprStmt is an expression statement
type ExprStmt struct {
	Expr Expr
}

// NullStmt is a lone semicolon
type NullStmt struct{}

// If represents an if statement
type If struct {
	Cond Expr
	Then Stmt
	Else Stmt // nil if absent
}

// While represents a while loop
type While struct {
	Cond Expr
	Body Stmt
}

// Break represents a break statement
type Break struct {
	Pos Pos
}

// Continue represents a continue statement
type Continue struct {
	Pos Pos
}

// Return represents a return statement
type Return struct {
	Pos  Pos
	Expr Expr // nil for bare return
}

// Block represents a compound statement (block)
type Block struct {
	Items []Stmt
}

// FunDef represents a function definition
type FunDef struct {
	Spec DeclSpec
	Decl Declarator
	Body *Block
}

// Program is a translation unit
type Program struct {
	Definitions []Definition
}

// DeclaratorName returns the identifier a declarator declares, or "" for
// an abstract declarator.
func DeclaratorName(d Declarator) string {
	for d != nil {
		switch x := d.(type) {
		case IdentDecl:
			return x.Name
		case PointerDecl:
			d = x.Inner
		case ArrayDecl:
			d = x.Inner
		case FuncDecl:
			d = x.Inner
		default:
			return ""
		}
	}
	return ""
}

// Marker methods for interface implementation
func (Constant) implCabsNode() {}
func (Constant) implCabsExpr() {}

func (Variable) implCabsNode() {}
func (Variable) implCabsExpr() {}

func (Unary) implCabsNode() {}
func (Unary) implCabsExpr() {}

func (Binary) implCabsNode() {}
func (Binary) implCabsExpr() {}

func (Paren) implCabsNode() {}
func (Paren) implCabsExpr() {}

func (Call) implCabsNode() {}
func (Call) implCabsExpr() {}

func (Index) implCabsNode() {}
func (Index) implCabsExpr() {}

func (IdentDecl) implCabsNode()     {}
func (IdentDecl) implDeclarator()   {}
func (PointerDecl) implCabsNode()   {}
func (PointerDecl) implDeclarator() {}
func (ArrayDecl) implCabsNode()     {}
func (ArrayDecl) implDeclarator()   {}
func (FuncDecl) implCabsNode()      {}
func (FuncDecl) implDeclarator()    {}

func (ExprInit) implCabsNode()    {}
func (ExprInit) implInitializer() {}
func (ListInit) implCabsNode()    {}
func (ListInit) implInitializer() {}

func (Declaration) implCabsNode()   {}
func (Declaration) implCabsStmt()   {}
func (Declaration) implDefinition() {}

func (ExprStmt) implCabsNode() {}
func (ExprStmt) implCabsStmt() {}

func (NullStmt) implCabsNode() {}
func (NullStmt) implCabsStmt() {}

func (If) implCabsNode() {}
func (If) implCabsStmt() {}

func (While) implCabsNode() {}
func (While) implCabsStmt() {}

func (Break) implCabsNode() {}
func (Break) implCabsStmt() {}

func (Continue) implCabsNode() {}
func (Continue) implCabsStmt() {}

func (Return) implCabsNode() {}
func (Return) implCabsStmt() {}

func (Block) implCabsNode() {}
func (Block) implCabsStmt() {}

func (FunDef) implCabsNode()   {}
func (FunDef) implDefinition() {}
