package irinterp

import (
	"fmt"

	"github.com/yHan234/SYsU-lang-Compiler/pkg/ir"
)

// frame is the activation of one function.
type frame struct {
	mc  *Machine
	fn  *ir.Function
	env map[ir.Value]value
}

func (fr *frame) get(v ir.Value) value {
	switch v.(type) {
	case *ir.Const, *ir.Undef, *ir.Poison, *ir.NullPtr, *ir.ZeroInit, *ir.Global, *ir.Function:
		return fr.mc.constant(v)
	}
	x, ok := fr.env[v]
	if !ok {
		panic(fmt.Sprintf("irinterp: @%s uses a value before its definition", fr.fn.Name))
	}
	return x
}

func (fr *frame) run() (value, error) {
	var pred *ir.Block
	b := fr.fn.Entry()
	for {
		// phis read the values live on the incoming edge all at once
		phis := b.Phis()
		incoming := make([]value, len(phis))
		for k, phi := range phis {
			found := false
			for _, inc := range phi.Incs {
				if inc.Pred == pred {
					incoming[k] = fr.get(inc.Value)
					found = true
					break
				}
			}
			if !found {
				return value{}, fmt.Errorf("irinterp: @%s: phi in %s has no entry for %s", fr.fn.Name, b.Name, pred.Name)
			}
		}
		for k, phi := range phis {
			fr.env[phi] = incoming[k]
		}

		next, ret, done, err := fr.block(b, len(phis))
		if err != nil || done {
			return ret, err
		}
		pred, b = b, next
	}
}

// block executes the non-phi instructions of b and returns the successor,
// or the return value once the function is done.
func (fr *frame) block(b *ir.Block, start int) (next *ir.Block, ret value, done bool, err error) {
	mc := fr.mc
	for _, i := range b.Instrs[start:] {
		mc.steps++
		if mc.MaxSteps > 0 && mc.steps > mc.MaxSteps {
			return nil, value{}, true, ErrStepLimit
		}
		switch i := i.(type) {
		case *ir.Alloca:
			fr.env[i] = value{obj: newObject(ir.SizeOf(i.Elem))}
		case *ir.Load:
			v, err := mc.load(fr.get(i.Src), i.Elem)
			if err != nil {
				return nil, value{}, true, err
			}
			fr.env[i] = v
		case *ir.Store:
			if err := mc.store(fr.get(i.Dst), i.Val.Type(), fr.get(i.Val)); err != nil {
				return nil, value{}, true, err
			}
		case *ir.BinOp:
			v, err := binop(i, fr.get(i.X).n, fr.get(i.Y).n)
			if err != nil {
				return nil, value{}, true, err
			}
			fr.env[i] = value{n: v}
		case *ir.ICmp:
			fr.env[i] = value{n: compare(i.Pred, fr.get(i.X), fr.get(i.Y))}
		case *ir.Cast:
			fr.env[i] = value{n: convert(i, fr.get(i.X).n)}
		case *ir.GEP:
			fr.env[i] = fr.gep(i)
		case *ir.Call:
			v, err := fr.call(i)
			if err != nil {
				return nil, value{}, true, err
			}
			fr.env[i] = v
		case *ir.Br:
			return i.Target, value{}, false, nil
		case *ir.CondBr:
			if fr.get(i.Cond).n&1 != 0 {
				return i.Then, value{}, false, nil
			}
			return i.Else, value{}, false, nil
		case *ir.Ret:
			if i.Val == nil {
				return nil, value{}, true, nil
			}
			return nil, fr.get(i.Val), true, nil
		case *ir.Unreachable:
			return nil, value{}, true, fmt.Errorf("%w: @%s reached unreachable in %s", ErrTrap, fr.fn.Name, b.Name)
		default:
			panic(fmt.Sprintf("irinterp: unhandled instruction %T", i))
		}
	}
	return nil, value{}, true, fmt.Errorf("irinterp: @%s: block %s has no terminator", fr.fn.Name, b.Name)
}

func (fr *frame) call(c *ir.Call) (value, error) {
	callee := fr.get(c.Callee).fn
	if callee == nil {
		return value{}, fmt.Errorf("%w: call through a non-function pointer", ErrTrap)
	}
	args := make([]value, len(c.Args))
	for k, a := range c.Args {
		args[k] = fr.get(a)
	}
	return fr.mc.call(callee, args)
}

// gep offsets the base pointer: the first index steps over whole Elem
// values, later indices select array elements.
func (fr *frame) gep(g *ir.GEP) value {
	p := fr.get(g.Base)
	t := g.Elem
	off := p.n
	for k, idx := range g.Indices {
		n := fr.get(idx).n
		if k > 0 {
			arr, ok := t.(*ir.ArrayType)
			if !ok {
				panic(fmt.Sprintf("irinterp: getelementptr indexes into %s", t))
			}
			t = arr.Elem
		}
		off += n * ir.SizeOf(t)
	}
	p.n = off
	return p
}

func binop(b *ir.BinOp, x, y int64) (int64, error) {
	t := b.Type().(*ir.IntType)
	var r int64
	switch b.Op {
	case ir.OpAdd:
		r = x + y
	case ir.OpSub:
		r = x - y
	case ir.OpMul:
		r = x * y
	case ir.OpSDiv, ir.OpSRem:
		if y == 0 {
			return 0, fmt.Errorf("%w: division by zero", ErrTrap)
		}
		if b.Op == ir.OpSDiv {
			r = x / y
		} else {
			r = x % y
		}
	default:
		panic(fmt.Sprintf("irinterp: unhandled opcode %s", b.Op))
	}
	return ir.Truncate(t, r), nil
}

func compare(p ir.Pred, x, y value) int64 {
	if x.obj != nil || y.obj != nil || x.fn != nil || y.fn != nil {
		same := x.obj == y.obj && x.fn == y.fn
		switch p {
		case ir.PredEQ:
			return b2i(same && x.n == y.n)
		case ir.PredNE:
			return b2i(!same || x.n != y.n)
		}
	}
	var r bool
	switch p {
	case ir.PredEQ:
		r = x.n == y.n
	case ir.PredNE:
		r = x.n != y.n
	case ir.PredSLT:
		r = x.n < y.n
	case ir.PredSLE:
		r = x.n <= y.n
	case ir.PredSGT:
		r = x.n > y.n
	case ir.PredSGE:
		r = x.n >= y.n
	}
	return b2i(r)
}

func convert(c *ir.Cast, x int64) int64 {
	switch c.Op {
	case ir.CastZExt:
		from := c.X.Type().(*ir.IntType)
		if from.Bits < 64 {
			x = int64(uint64(x) & (1<<uint(from.Bits) - 1))
		}
		return x
	case ir.CastSExt:
		return x
	case ir.CastTrunc:
		return ir.Truncate(c.To, x)
	}
	panic(fmt.Sprintf("irinterp: unhandled cast %s", c.Op))
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
