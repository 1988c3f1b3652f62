package irgen

import (
	"fmt"

	"github.com/yHan234/SYsU-lang-Compiler/pkg/asg"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/ir"
)

var arithOps = map[asg.BinaryOp]ir.Opcode{
	asg.Add: ir.OpAdd,
	asg.Sub: ir.OpSub,
	asg.Mul: ir.OpMul,
	asg.Div: ir.OpSDiv,
	asg.Mod: ir.OpSRem,
}

var cmpPreds = map[asg.BinaryOp]ir.Pred{
	asg.Lt: ir.PredSLT,
	asg.Gt: ir.PredSGT,
	asg.Le: ir.PredSLE,
	asg.Ge: ir.PredSGE,
	asg.Eq: ir.PredEQ,
	asg.Ne: ir.PredNE,
}

// named attaches a printing hint to v when it is an instruction.
func named(v ir.Value, name string) ir.Value {
	if i, ok := v.(ir.Instr); ok {
		ir.SetName(i, name)
	}
	return v
}

// addr computes the address of an lvalue expression.
func (g *Generator) addr(e asg.Expr) ir.Value {
	switch e := e.(type) {
	case *asg.ParenExpr:
		return g.addr(e.Sub)
	case *asg.DeclRefExpr:
		if v, ok := e.Decl.(*asg.VarDecl); ok {
			return g.slot(v)
		}
	case *asg.BinaryExpr:
		if e.Op == asg.Index {
			base := g.value(e.LHS)
			idx := g.b.resize(g.value(e.RHS), ir.I64, "idxprom")
			gep := &ir.GEP{Elem: LowerType(e.Type()), Base: base, Indices: []ir.Value{idx}}
			return named(g.b.Emit(gep), "arrayidx")
		}
	}
	panic(fmt.Sprintf("irgen: %T is not addressable", e))
}

// value computes the rvalue of an expression.
func (g *Generator) value(e asg.Expr) ir.Value {
	switch e := e.(type) {
	case *asg.IntegerLiteral:
		return ir.ConstInt(lowerInt(e.Type()), e.Value)
	case *asg.ParenExpr:
		return g.value(e.Sub)
	case *asg.DeclRefExpr:
		if fd, ok := e.Decl.(*asg.FunctionDecl); ok {
			return g.funcFor(fd)
		}
		return g.addr(e)
	case *asg.ImplicitInitExpr:
		return ir.ZeroOf(LowerType(e.Type()))
	case *asg.ImplicitCastExpr:
		return g.cast(e)
	case *asg.UnaryExpr:
		return g.unary(e)
	case *asg.BinaryExpr:
		return g.binary(e)
	case *asg.CallExpr:
		return g.call(e)
	}
	panic(fmt.Sprintf("irgen: unhandled expression %T", e))
}

func (g *Generator) cast(e *asg.ImplicitCastExpr) ir.Value {
	switch e.Kind {
	case asg.LValueToRValue:
		return g.b.load(LowerType(e.Type()), g.addr(e.Sub))
	case asg.ArrayToPointerDecay:
		zero := ir.ConstInt(ir.I64, 0)
		gep := &ir.GEP{Elem: LowerType(e.Sub.Type()), Base: g.addr(e.Sub), Indices: []ir.Value{zero, zero}}
		return named(g.b.Emit(gep), "arraydecay")
	case asg.FunctionToPointerDecay:
		return g.value(e.Sub)
	case asg.IntegralCast:
		return g.b.resize(g.value(e.Sub), lowerInt(e.Type()), "conv")
	}
	panic(fmt.Sprintf("irgen: unhandled cast %s", e.Kind))
}

func (g *Generator) unary(e *asg.UnaryExpr) ir.Value {
	x := g.value(e.Sub)
	switch e.Op {
	case asg.Pos:
		return x
	case asg.Neg:
		return named(g.b.binop(ir.OpSub, ir.ConstInt(x.Type().(*ir.IntType), 0), x), "sub")
	case asg.Not:
		isZero := named(g.b.icmp(ir.PredEQ, x, ir.ZeroOf(x.Type())), "lnot")
		return named(g.b.cast(ir.CastZExt, isZero, lowerInt(e.Type())), "lnot.ext")
	}
	panic(fmt.Sprintf("irgen: unhandled unary operator %s", e.Op))
}

func (g *Generator) binary(e *asg.BinaryExpr) ir.Value {
	switch e.Op {
	case asg.Assign:
		dst := g.addr(e.LHS)
		v := g.value(e.RHS)
		g.b.store(v, dst)
		return v
	case asg.Comma:
		g.value(e.LHS)
		return g.value(e.RHS)
	case asg.Index:
		panic("irgen: subscript used as a value")
	case asg.And, asg.Or:
		return named(g.b.cast(ir.CastZExt, g.shortCircuit(e), lowerInt(e.Type())), "conv")
	}
	if e.Op.IsComparison() {
		return named(g.b.cast(ir.CastZExt, g.compare(e), lowerInt(e.Type())), "conv")
	}
	op, ok := arithOps[e.Op]
	if !ok {
		panic(fmt.Sprintf("irgen: unhandled binary operator %s", e.Op))
	}
	x := g.value(e.LHS)
	y := g.value(e.RHS)
	return named(g.b.binop(op, x, y), op.String())
}

func (g *Generator) compare(e *asg.BinaryExpr) ir.Value {
	x := g.value(e.LHS)
	y := g.value(e.RHS)
	return named(g.b.icmp(cmpPreds[e.Op], x, y), "cmp")
}

// cond computes a truth value as i1. Comparisons and logical operators
// branch on their result directly.
func (g *Generator) cond(e asg.Expr) ir.Value {
	e = asg.IgnoreParens(e)
	if be, ok := e.(*asg.BinaryExpr); ok {
		switch {
		case be.Op == asg.And || be.Op == asg.Or:
			return g.shortCircuit(be)
		case be.Op.IsComparison():
			return g.compare(be)
		}
	}
	v := g.value(e)
	return named(g.b.icmp(ir.PredNE, v, ir.ZeroOf(v.Type())), "tobool")
}

// shortCircuit lowers && and || into a right-hand block and a merge block
// whose phi yields the i1 result.
func (g *Generator) shortCircuit(e *asg.BinaryExpr) ir.Value {
	prefix, skip := "land", ir.Bool(false)
	if e.Op == asg.Or {
		prefix, skip = "lor", ir.Bool(true)
	}
	rhs := g.b.NewBlock(prefix + ".rhs")
	end := g.b.NewBlock(prefix + ".end")

	lhs := g.cond(e.LHS)
	from := g.b.Current()
	if e.Op == asg.And {
		g.b.Branch(lhs, rhs, end)
	} else {
		g.b.Branch(lhs, end, rhs)
	}

	g.b.Place(rhs)
	r := g.cond(e.RHS)
	rhsEnd := g.b.Current()
	g.b.Jump(end)

	g.b.Place(end)
	phi := &ir.Phi{Typ: ir.I1}
	phi.AddIncoming(skip, from)
	phi.AddIncoming(r, rhsEnd)
	return g.b.Emit(phi)
}

// call emits a direct call when the callee names a function and an
// indirect call through the pointer otherwise.
func (g *Generator) call(e *asg.CallExpr) ir.Value {
	var callee ir.Value
	var sig *ir.FuncType
	if fd := directCallee(e.Callee); fd != nil {
		f := g.funcFor(fd)
		callee, sig = f, f.Sig
	} else {
		callee = g.value(e.Callee)
		sig = lowerSignature(e.Callee.Type().Sub())
	}
	args := make([]ir.Value, len(e.Args))
	for i, a := range e.Args {
		args[i] = g.value(a)
	}
	c := g.b.Emit(&ir.Call{Sig: sig, Callee: callee, Args: args})
	if _, void := sig.Ret.(*ir.VoidType); !void {
		named(c, "call")
	}
	return c
}

func directCallee(e asg.Expr) *asg.FunctionDecl {
	e = asg.IgnoreParens(e)
	if c, ok := e.(*asg.ImplicitCastExpr); ok && c.Kind == asg.FunctionToPointerDecay {
		e = asg.IgnoreParens(c.Sub)
	}
	if ref, ok := e.(*asg.DeclRefExpr); ok {
		fd, _ := ref.Decl.(*asg.FunctionDecl)
		return fd
	}
	return nil
}
