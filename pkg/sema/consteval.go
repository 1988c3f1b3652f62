package sema

import (
	"github.com/yHan234/SYsU-lang-Compiler/pkg/asg"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/cabs"
)

// arrayLength lowers and evaluates an array bound
func (b *builder) arrayLength(st *Symtab, size cabs.Expr, pos cabs.Pos) (int64, error) {
	e, err := b.expr(st, size)
	if err != nil {
		return 0, err
	}
	n, err := evalConst(e, pos)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errorf(ConstEval, pos, "array has negative length %d", n)
	}
	return n, nil
}

// evalConst reduces the constant-expression forms accepted as array bounds:
// literals, const integer variables, unary and binary +/-, and the first
// element of an initializer list.
func evalConst(e asg.Expr, pos cabs.Pos) (int64, error) {
	switch e := e.(type) {
	case *asg.IntegerLiteral:
		return e.Value, nil
	case *asg.ParenExpr:
		return evalConst(e.Sub, pos)
	case *asg.ImplicitCastExpr:
		x, err := evalConst(e.Sub, pos)
		if err != nil {
			return 0, err
		}
		if t := e.Type(); e.Kind == asg.IntegralCast && t != nil {
			x = t.Wrap(x)
		}
		return x, nil
	case *asg.ImplicitInitExpr:
		return 0, nil
	case *asg.InitListExpr:
		if len(e.List) == 0 {
			return 0, nil
		}
		return evalConst(e.List[0], pos)
	case *asg.DeclRefExpr:
		v, ok := e.Decl.(*asg.VarDecl)
		if !ok || !v.Typ.IsInteger() || !v.Typ.Qual.Const {
			return 0, errorf(ConstEval, pos, "'%s' is not an integer constant", e.Decl.DeclName())
		}
		if v.Init == nil {
			return 0, errorf(ConstEval, pos, "constant '%s' has no initializer", v.Name)
		}
		x, err := evalConst(v.Init, pos)
		if err != nil {
			return 0, err
		}
		return v.Typ.Wrap(x), nil
	case *asg.UnaryExpr:
		x, err := evalConst(e.Sub, pos)
		if err != nil {
			return 0, err
		}
		switch e.Op {
		case asg.Pos:
			return x, nil
		case asg.Neg:
			return -x, nil
		}
	case *asg.BinaryExpr:
		if e.Op != asg.Add && e.Op != asg.Sub {
			break
		}
		l, err := evalConst(e.LHS, pos)
		if err != nil {
			return 0, err
		}
		r, err := evalConst(e.RHS, pos)
		if err != nil {
			return 0, err
		}
		if e.Op == asg.Add {
			return l + r, nil
		}
		return l - r, nil
	}
	return 0, errorf(ConstEval, pos, "array length is not a constant expression")
}
