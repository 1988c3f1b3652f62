// Package sema lowers the syntax tree into the semantic graph: it
// resolves identifiers through a scope stack, constructs types from
// declarators, evaluates array lengths and flattens initializers. Check
// then attaches types and inserts implicit conversions.
package sema

import (
	"fmt"

	"github.com/yHan234/SYsU-lang-Compiler/pkg/asg"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/cabs"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/ctypes"
)

// Positions maps semantic nodes back to the source position that produced them
type Positions map[asg.NodeID]cabs.Pos

// enclosing tracks the innermost function and loop while walking statements
type enclosing struct {
	fn   *asg.FunctionDecl
	loop *asg.WhileStmt
}

type builder struct {
	arena *asg.Arena
	pos   Positions
}

// Build lowers a parsed program into an untyped semantic graph. The first
// error aborts the build.
func Build(prog *cabs.Program) (*asg.TranslationUnit, Positions, error) {
	a := asg.NewArena()
	b := &builder{arena: a, pos: make(Positions)}
	tu := asg.New(a, &asg.TranslationUnit{Arena: a})

	st := NewSymtab()
	st.Push()
	defer st.Pop()

	for _, def := range prog.Definitions {
		switch d := def.(type) {
		case cabs.FunDef:
			fn, err := b.functionDef(st, d)
			if err != nil {
				return nil, nil, err
			}
			tu.Decls = append(tu.Decls, fn)
		case cabs.Declaration:
			decls, err := b.declaration(st, d)
			if err != nil {
				return nil, nil, err
			}
			tu.Decls = append(tu.Decls, decls...)
		default:
			panic(fmt.Sprintf("sema: unhandled definition %T", def))
		}
	}
	return tu, b.pos, nil
}

// Analyze builds and type-checks a program
func Analyze(prog *cabs.Program) (*asg.TranslationUnit, error) {
	tu, pos, err := Build(prog)
	if err != nil {
		return nil, err
	}
	if err := Check(tu, pos); err != nil {
		return nil, err
	}
	return tu, nil
}

func (b *builder) at(n asg.Node, p cabs.Pos) {
	if p.Line > 0 {
		b.pos[n.ID()] = p
	}
}

// declaration lowers every init-declarator of d. Variables are bound only
// after their initializer is built, so `int x = x;` sees an outer x.
func (b *builder) declaration(st *Symtab, d cabs.Declaration) ([]asg.Decl, error) {
	base, err := specType(d.Spec)
	if err != nil {
		return nil, err
	}
	var out []asg.Decl
	for _, id := range d.Decls {
		dd, err := b.declarator(st, base, id.Decl)
		if err != nil {
			return nil, err
		}
		if dd.name == "" {
			return nil, errorf(TypeConstruction, d.Spec.Pos, "declaration does not declare anything")
		}

		if dd.typ.IsFunction() {
			if id.Init != nil {
				return nil, errorf(Structural, dd.pos, "function '%s' is initialized like a variable", dd.name)
			}
			fn := asg.New(b.arena, &asg.FunctionDecl{Name: dd.name, Typ: dd.typ, Params: dd.params})
			b.at(fn, dd.pos)
			st.Insert(dd.name, fn)
			out = append(out, fn)
			continue
		}

		if dd.typ.Scalar().IsVoid() {
			return nil, errorf(TypeConstruction, dd.pos, "variable '%s' has type '%s'", dd.name, dd.typ)
		}
		v := &asg.VarDecl{Name: dd.name, Typ: dd.typ}
		if id.Init != nil {
			init, typ, err := b.initializer(st, id.Init, dd.typ)
			if err != nil {
				return nil, err
			}
			v.Init, v.Typ = init, typ
		} else if a := dd.typ.Array(); a != nil && a.Len == ctypes.UnboundedLen {
			return nil, errorf(TypeConstruction, dd.pos, "array '%s' has no length", dd.name)
		}
		v = asg.New(b.arena, v)
		b.at(v, dd.pos)
		st.Insert(dd.name, v)
		out = append(out, v)
	}
	return out, nil
}

// functionDef binds the function name before lowering the body, so the
// body may call itself. Parameters share the outermost body scope.
func (b *builder) functionDef(st *Symtab, d cabs.FunDef) (*asg.FunctionDecl, error) {
	base, err := specType(d.Spec)
	if err != nil {
		return nil, err
	}
	dd, err := b.declarator(st, base, d.Decl)
	if err != nil {
		return nil, err
	}
	if !dd.typ.IsFunction() {
		return nil, errorf(Structural, dd.pos, "'%s' is not a function", dd.name)
	}
	fn := asg.New(b.arena, &asg.FunctionDecl{Name: dd.name, Typ: dd.typ, Params: dd.params})
	b.at(fn, dd.pos)
	st.Insert(dd.name, fn)

	st.Push()
	defer st.Pop()
	for _, p := range fn.Params {
		if p.Name != "" {
			st.Insert(p.Name, p)
		}
	}
	body := asg.New(b.arena, &asg.CompoundStmt{})
	ctx := enclosing{fn: fn}
	for _, item := range d.Body.Items {
		s, err := b.stmt(st, item, ctx)
		if err != nil {
			return nil, err
		}
		body.Subs = append(body.Subs, s)
	}
	fn.Body = body
	return fn, nil
}

func (b *builder) block(st *Symtab, blk cabs.Block, ctx enclosing) (*asg.CompoundStmt, error) {
	st.Push()
	defer st.Pop()
	cs := asg.New(b.arena, &asg.CompoundStmt{})
	for _, item := range blk.Items {
		s, err := b.stmt(st, item, ctx)
		if err != nil {
			return nil, err
		}
		cs.Subs = append(cs.Subs, s)
	}
	return cs, nil
}

func (b *builder) stmt(st *Symtab, s cabs.Stmt, ctx enclosing) (asg.Stmt, error) {
	switch s := s.(type) {
	case cabs.Block:
		return b.block(st, s, ctx)
	case cabs.Declaration:
		decls, err := b.declaration(st, s)
		if err != nil {
			return nil, err
		}
		return asg.New(b.arena, &asg.DeclStmt{Decls: decls}), nil
	case cabs.ExprStmt:
		e, err := b.expr(st, s.Expr)
		if err != nil {
			return nil, err
		}
		return asg.New(b.arena, &asg.ExprStmt{Expr: e}), nil
	case cabs.NullStmt:
		return asg.New(b.arena, &asg.NullStmt{}), nil
	case cabs.If:
		cond, err := b.expr(st, s.Cond)
		if err != nil {
			return nil, err
		}
		n := asg.New(b.arena, &asg.IfStmt{Cond: cond})
		if n.Then, err = b.stmt(st, s.Then, ctx); err != nil {
			return nil, err
		}
		if s.Else != nil {
			if n.Else, err = b.stmt(st, s.Else, ctx); err != nil {
				return nil, err
			}
		}
		return n, nil
	case cabs.While:
		cond, err := b.expr(st, s.Cond)
		if err != nil {
			return nil, err
		}
		n := asg.New(b.arena, &asg.WhileStmt{Cond: cond})
		inner := ctx
		inner.loop = n
		if n.Body, err = b.stmt(st, s.Body, inner); err != nil {
			return nil, err
		}
		return n, nil
	case cabs.Break:
		if ctx.loop == nil {
			return nil, errorf(Structural, s.Pos, "break statement not within a loop")
		}
		n := asg.New(b.arena, &asg.BreakStmt{Loop: ctx.loop})
		b.at(n, s.Pos)
		return n, nil
	case cabs.Continue:
		if ctx.loop == nil {
			return nil, errorf(Structural, s.Pos, "continue statement not within a loop")
		}
		n := asg.New(b.arena, &asg.ContinueStmt{Loop: ctx.loop})
		b.at(n, s.Pos)
		return n, nil
	case cabs.Return:
		if ctx.fn == nil {
			return nil, errorf(Structural, s.Pos, "return statement outside a function")
		}
		n := &asg.ReturnStmt{Func: ctx.fn}
		if s.Expr != nil {
			e, err := b.expr(st, s.Expr)
			if err != nil {
				return nil, err
			}
			n.Expr = e
		}
		n = asg.New(b.arena, n)
		b.at(n, s.Pos)
		return n, nil
	}
	panic(fmt.Sprintf("sema: unhandled statement %T", s))
}

var binaryOps = map[cabs.BinaryOp]asg.BinaryOp{
	cabs.OpMul:    asg.Mul,
	cabs.OpDiv:    asg.Div,
	cabs.OpMod:    asg.Mod,
	cabs.OpAdd:    asg.Add,
	cabs.OpSub:    asg.Sub,
	cabs.OpLt:     asg.Lt,
	cabs.OpGt:     asg.Gt,
	cabs.OpLe:     asg.Le,
	cabs.OpGe:     asg.Ge,
	cabs.OpEq:     asg.Eq,
	cabs.OpNe:     asg.Ne,
	cabs.OpAnd:    asg.And,
	cabs.OpOr:     asg.Or,
	cabs.OpAssign: asg.Assign,
	cabs.OpComma:  asg.Comma,
}

var unaryOps = map[cabs.UnaryOp]asg.UnaryOp{
	cabs.OpPlus: asg.Pos,
	cabs.OpNeg:  asg.Neg,
	cabs.OpNot:  asg.Not,
}

// expr lowers an expression. Operands are lowered left to right.
func (b *builder) expr(st *Symtab, e cabs.Expr) (asg.Expr, error) {
	switch e := e.(type) {
	case cabs.Constant:
		n := asg.New(b.arena, &asg.IntegerLiteral{Value: e.Value})
		b.at(n, e.Pos)
		return n, nil
	case cabs.Variable:
		d, ok := st.Resolve(e.Name)
		if !ok {
			return nil, errorf(Resolution, e.Pos, "use of undeclared identifier '%s'", e.Name)
		}
		n := asg.New(b.arena, &asg.DeclRefExpr{Decl: d})
		b.at(n, e.Pos)
		return n, nil
	case cabs.Paren:
		sub, err := b.expr(st, e.Expr)
		if err != nil {
			return nil, err
		}
		return asg.New(b.arena, &asg.ParenExpr{Sub: sub}), nil
	case cabs.Unary:
		sub, err := b.expr(st, e.Expr)
		if err != nil {
			return nil, err
		}
		n := asg.New(b.arena, &asg.UnaryExpr{Op: unaryOps[e.Op], Sub: sub})
		b.at(n, e.Pos)
		return n, nil
	case cabs.Binary:
		op, ok := binaryOps[e.Op]
		if !ok {
			return nil, errorf(Structural, e.Pos, "operator '%s' is not supported", e.Op)
		}
		lhs, err := b.expr(st, e.Left)
		if err != nil {
			return nil, err
		}
		rhs, err := b.expr(st, e.Right)
		if err != nil {
			return nil, err
		}
		n := asg.New(b.arena, &asg.BinaryExpr{Op: op, LHS: lhs, RHS: rhs})
		b.at(n, e.Pos)
		return n, nil
	case cabs.Index:
		base, err := b.expr(st, e.Array)
		if err != nil {
			return nil, err
		}
		idx, err := b.expr(st, e.Index)
		if err != nil {
			return nil, err
		}
		n := asg.New(b.arena, &asg.BinaryExpr{Op: asg.Index, LHS: base, RHS: idx})
		b.at(n, e.Pos)
		return n, nil
	case cabs.Call:
		callee, err := b.expr(st, e.Func)
		if err != nil {
			return nil, err
		}
		n := &asg.CallExpr{Callee: callee}
		for _, a := range e.Args {
			arg, err := b.expr(st, a)
			if err != nil {
				return nil, err
			}
			n.Args = append(n.Args, arg)
		}
		n = asg.New(b.arena, n)
		b.at(n, e.Pos)
		return n, nil
	}
	panic(fmt.Sprintf("sema: unhandled expression %T", e))
}

// exprPos returns the position of the first token of e, if known
func exprPos(e cabs.Expr) cabs.Pos {
	switch e := e.(type) {
	case cabs.Constant:
		return e.Pos
	case cabs.Variable:
		return e.Pos
	case cabs.Unary:
		return e.Pos
	case cabs.Binary:
		return exprPos(e.Left)
	case cabs.Paren:
		return exprPos(e.Expr)
	case cabs.Call:
		return exprPos(e.Func)
	case cabs.Index:
		return exprPos(e.Array)
	}
	return cabs.Pos{}
}
