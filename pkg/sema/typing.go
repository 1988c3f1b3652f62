package sema

import (
	"fmt"
	"math"

	"github.com/yHan234/SYsU-lang-Compiler/pkg/asg"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/cabs"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/ctypes"
)

type checker struct {
	arena *asg.Arena
	pos   Positions
	fn    *asg.FunctionDecl
}

// Check types every expression in tu, attaching a type and value category
// and inserting implicit casts for lvalue loads, decays and integral
// conversions. It must run exactly once per graph.
func Check(tu *asg.TranslationUnit, pos Positions) error {
	c := &checker{arena: tu.Arena, pos: pos}
	for _, d := range tu.Decls {
		if err := c.decl(d); err != nil {
			return err
		}
	}
	return nil
}

// at finds the source position of n, looking through inserted casts
func (c *checker) at(n asg.Node) cabs.Pos {
	for {
		if p, ok := c.pos[n.ID()]; ok {
			return p
		}
		switch x := n.(type) {
		case *asg.ImplicitCastExpr:
			n = x.Sub
		case *asg.ParenExpr:
			n = x.Sub
		default:
			return cabs.Pos{}
		}
	}
}

func (c *checker) decl(d asg.Decl) error {
	switch d := d.(type) {
	case *asg.VarDecl:
		return c.varInit(d)
	case *asg.FunctionDecl:
		if d.Body == nil {
			return nil
		}
		c.fn = d
		defer func() { c.fn = nil }()
		return c.stmt(d.Body)
	}
	panic(fmt.Sprintf("sema: unhandled declaration %T", d))
}

func (c *checker) varInit(v *asg.VarDecl) error {
	if v.Init == nil {
		return nil
	}
	list, ok := v.Init.(*asg.InitListExpr)
	if !ok {
		init, err := c.rvalue(v.Init)
		if err != nil {
			return err
		}
		v.Init, err = c.convert(init, v.Typ.Unqualified())
		return err
	}

	list.SetType(v.Typ, false)
	elem := v.Typ.Scalar().Unqualified()
	if int64(len(list.List)) > v.Typ.Elements() {
		return errorf(TypeCheck, c.at(list), "excess elements in initializer of type '%s'", v.Typ)
	}
	for i, x := range list.List {
		if _, hole := x.(*asg.ImplicitInitExpr); hole {
			x.SetType(elem, false)
			continue
		}
		x, err := c.rvalue(x)
		if err != nil {
			return err
		}
		if list.List[i], err = c.convert(x, elem); err != nil {
			return err
		}
	}
	return nil
}

func (c *checker) stmt(s asg.Stmt) error {
	switch s := s.(type) {
	case *asg.CompoundStmt:
		for _, sub := range s.Subs {
			if err := c.stmt(sub); err != nil {
				return err
			}
		}
	case *asg.DeclStmt:
		for _, d := range s.Decls {
			if v, ok := d.(*asg.VarDecl); ok {
				if err := c.varInit(v); err != nil {
					return err
				}
			}
		}
	case *asg.ExprStmt:
		e, err := c.expr(s.Expr)
		if err != nil {
			return err
		}
		s.Expr = e
	case *asg.NullStmt, *asg.BreakStmt, *asg.ContinueStmt:
	case *asg.IfStmt:
		cond, err := c.condition(s.Cond)
		if err != nil {
			return err
		}
		s.Cond = cond
		if err := c.stmt(s.Then); err != nil {
			return err
		}
		if s.Else != nil {
			return c.stmt(s.Else)
		}
	case *asg.WhileStmt:
		cond, err := c.condition(s.Cond)
		if err != nil {
			return err
		}
		s.Cond = cond
		return c.stmt(s.Body)
	case *asg.ReturnStmt:
		ret := s.Func.Typ.Sub()
		if s.Expr == nil {
			return nil
		}
		if ret.IsVoid() {
			return errorf(TypeCheck, c.at(s), "void function '%s' should not return a value", s.Func.Name)
		}
		e, err := c.rvalue(s.Expr)
		if err != nil {
			return err
		}
		s.Expr, err = c.convert(e, ret.Unqualified())
		return err
	default:
		panic(fmt.Sprintf("sema: unhandled statement %T", s))
	}
	return nil
}

func (c *checker) condition(e asg.Expr) (asg.Expr, error) {
	e, err := c.rvalue(e)
	if err != nil {
		return nil, err
	}
	if !e.Type().IsScalar() {
		return nil, errorf(TypeCheck, c.at(e), "condition has non-scalar type '%s'", e.Type())
	}
	return e, nil
}

func (c *checker) cast(kind asg.CastKind, e asg.Expr, t *ctypes.Type) asg.Expr {
	n := asg.New(c.arena, &asg.ImplicitCastExpr{Kind: kind, Sub: e})
	n.SetType(t, false)
	return n
}

// rvalue types e and converts it to a value: arrays and functions decay to
// pointers, other lvalues are loaded.
func (c *checker) rvalue(e asg.Expr) (asg.Expr, error) {
	e, err := c.expr(e)
	if err != nil {
		return nil, err
	}
	t := e.Type()
	switch {
	case t.IsArray():
		return c.cast(asg.ArrayToPointerDecay, e, t.Sub().PointerTo()), nil
	case t.IsFunction():
		return c.cast(asg.FunctionToPointerDecay, e, t.PointerTo()), nil
	case e.IsLValue():
		return c.cast(asg.LValueToRValue, e, t.Unqualified()), nil
	}
	return e, nil
}

// convert applies the implicit conversion of a value to type to
func (c *checker) convert(e asg.Expr, to *ctypes.Type) (asg.Expr, error) {
	from := e.Type()
	switch {
	case ctypes.Equal(from.Unqualified(), to.Unqualified()):
		return e, nil
	case from.IsInteger() && to.IsInteger():
		return c.cast(asg.IntegralCast, e, to.Unqualified()), nil
	case from.IsPointer() && to.IsPointer() && compatiblePointers(from, to):
		return e, nil
	}
	return nil, errorf(TypeCheck, c.at(e), "cannot convert '%s' to '%s'", from, to)
}

// compatiblePointers ignores qualifiers on the pointee and accepts void *
func compatiblePointers(a, b *ctypes.Type) bool {
	pa, pb := a.Sub(), b.Sub()
	if pa.IsVoid() || pb.IsVoid() {
		return true
	}
	return ctypes.Equal(ctypes.New(pa.Spec, ctypes.Qual{}, pa.Texp), ctypes.New(pb.Spec, ctypes.Qual{}, pb.Texp))
}

func rank(s ctypes.Spec) int {
	switch s {
	case ctypes.Char:
		return 1
	case ctypes.Int:
		return 2
	case ctypes.Long:
		return 3
	case ctypes.LongLong:
		return 4
	}
	return 0
}

// promote returns the type an integer operand is widened to: at least int
func promote(t *ctypes.Type) *ctypes.Type {
	if rank(t.Spec) < rank(ctypes.Int) {
		return ctypes.IntType()
	}
	return t.Unqualified()
}

// common returns the usual arithmetic conversion of two integer types
func common(a, b *ctypes.Type) *ctypes.Type {
	a, b = promote(a), promote(b)
	if rank(b.Spec) > rank(a.Spec) {
		return b
	}
	return a
}

func (c *checker) arithmetic(n *asg.BinaryExpr, lhs, rhs asg.Expr) (*ctypes.Type, error) {
	lt, rt := lhs.Type(), rhs.Type()
	if !lt.IsInteger() || !rt.IsInteger() {
		if lt.IsPointer() || rt.IsPointer() {
			return nil, errorf(TypeCheck, c.at(n), "pointer arithmetic is not supported")
		}
		return nil, errorf(TypeCheck, c.at(n), "invalid operands to '%s' ('%s' and '%s')", n.Op, lt, rt)
	}
	t := common(lt, rt)
	var err error
	if n.LHS, err = c.convert(lhs, t); err != nil {
		return nil, err
	}
	if n.RHS, err = c.convert(rhs, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (c *checker) comparison(n *asg.BinaryExpr, lhs, rhs asg.Expr) error {
	lt, rt := lhs.Type(), rhs.Type()
	switch {
	case lt.IsInteger() && rt.IsInteger():
		_, err := c.arithmetic(n, lhs, rhs)
		return err
	case lt.IsPointer() && rt.IsPointer() && compatiblePointers(lt, rt):
		n.LHS, n.RHS = lhs, rhs
		return nil
	}
	return errorf(TypeCheck, c.at(n), "invalid operands to '%s' ('%s' and '%s')", n.Op, lt, rt)
}

// expr types e in place and returns the node that should replace it
func (c *checker) expr(e asg.Expr) (asg.Expr, error) {
	switch e := e.(type) {
	case *asg.IntegerLiteral:
		if e.Value > math.MaxInt32 || e.Value < math.MinInt32 {
			e.SetType(ctypes.LongType(), false)
		} else {
			e.SetType(ctypes.IntType(), false)
		}
	case *asg.DeclRefExpr:
		switch d := e.Decl.(type) {
		case *asg.VarDecl:
			e.SetType(d.Typ, true)
		case *asg.FunctionDecl:
			e.SetType(d.Typ, false)
		}
	case *asg.ParenExpr:
		sub, err := c.expr(e.Sub)
		if err != nil {
			return nil, err
		}
		e.Sub = sub
		e.SetType(sub.Type(), sub.IsLValue())
	case *asg.UnaryExpr:
		sub, err := c.rvalue(e.Sub)
		if err != nil {
			return nil, err
		}
		if e.Op == asg.Not {
			if !sub.Type().IsScalar() {
				return nil, errorf(TypeCheck, c.at(e), "invalid operand to '!' ('%s')", sub.Type())
			}
			e.Sub = sub
			e.SetType(ctypes.IntType(), false)
			break
		}
		if !sub.Type().IsInteger() {
			return nil, errorf(TypeCheck, c.at(e), "invalid operand to unary '%s' ('%s')", e.Op, sub.Type())
		}
		t := promote(sub.Type())
		if e.Sub, err = c.convert(sub, t); err != nil {
			return nil, err
		}
		e.SetType(t, false)
	case *asg.BinaryExpr:
		return c.binary(e)
	case *asg.CallExpr:
		return c.call(e)
	case *asg.ImplicitCastExpr, *asg.ImplicitInitExpr:
	default:
		panic(fmt.Sprintf("sema: unhandled expression %T", e))
	}
	return e, nil
}

func (c *checker) binary(e *asg.BinaryExpr) (asg.Expr, error) {
	switch e.Op {
	case asg.Assign:
		lhs, err := c.expr(e.LHS)
		if err != nil {
			return nil, err
		}
		lt := lhs.Type()
		switch {
		case !lhs.IsLValue():
			return nil, errorf(TypeCheck, c.at(e), "expression is not assignable")
		case lt.IsArray():
			return nil, errorf(TypeCheck, c.at(e), "array type '%s' is not assignable", lt)
		case lt.Texp == nil && lt.Qual.Const, lt.IsPointer() && lt.Texp.(*ctypes.Tpointer).Const:
			return nil, errorf(TypeCheck, c.at(e), "cannot assign to variable with const-qualified type '%s'", lt)
		}
		rhs, err := c.rvalue(e.RHS)
		if err != nil {
			return nil, err
		}
		e.LHS = lhs
		if e.RHS, err = c.convert(rhs, lt.Unqualified()); err != nil {
			return nil, err
		}
		e.SetType(lt.Unqualified(), false)
		return e, nil
	case asg.Index:
		base, err := c.rvalue(e.LHS)
		if err != nil {
			return nil, err
		}
		idx, err := c.rvalue(e.RHS)
		if err != nil {
			return nil, err
		}
		if !base.Type().IsPointer() || !idx.Type().IsInteger() {
			return nil, errorf(TypeCheck, c.at(e), "subscripted value is not an array or pointer")
		}
		elem := base.Type().Sub()
		if elem.IsFunction() || elem.IsVoid() {
			return nil, errorf(TypeCheck, c.at(e), "subscript of pointer to '%s'", elem)
		}
		e.LHS, e.RHS = base, idx
		e.SetType(elem, true)
		return e, nil
	}

	lhs, err := c.rvalue(e.LHS)
	if err != nil {
		return nil, err
	}
	rhs, err := c.rvalue(e.RHS)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case asg.Comma:
		e.LHS, e.RHS = lhs, rhs
		e.SetType(rhs.Type(), false)
	case asg.And, asg.Or:
		if !lhs.Type().IsScalar() || !rhs.Type().IsScalar() {
			return nil, errorf(TypeCheck, c.at(e), "invalid operands to '%s'", e.Op)
		}
		e.LHS, e.RHS = lhs, rhs
		e.SetType(ctypes.IntType(), false)
	default:
		if e.Op.IsComparison() {
			if err := c.comparison(e, lhs, rhs); err != nil {
				return nil, err
			}
			e.SetType(ctypes.IntType(), false)
			break
		}
		t, err := c.arithmetic(e, lhs, rhs)
		if err != nil {
			return nil, err
		}
		e.SetType(t, false)
	}
	return e, nil
}

func (c *checker) call(e *asg.CallExpr) (asg.Expr, error) {
	callee, err := c.rvalue(e.Callee)
	if err != nil {
		return nil, err
	}
	ct := callee.Type()
	if !ct.IsPointer() || !ct.Sub().IsFunction() {
		return nil, errorf(TypeCheck, c.at(e), "called object type '%s' is not a function", ct)
	}
	fn := ct.Sub()
	params := fn.Function().Params
	if len(e.Args) != len(params) {
		return nil, errorf(TypeCheck, c.at(e), "call expects %d arguments, got %d", len(params), len(e.Args))
	}
	e.Callee = callee
	for i, a := range e.Args {
		arg, err := c.rvalue(a)
		if err != nil {
			return nil, err
		}
		if e.Args[i], err = c.convert(arg, params[i].Unqualified()); err != nil {
			return nil, err
		}
	}
	e.SetType(fn.Sub().Unqualified(), false)
	return e, nil
}
