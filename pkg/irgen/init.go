package irgen

import (
	"fmt"

	"github.com/yHan234/SYsU-lang-Compiler/pkg/asg"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/ctypes"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/ir"
)

// initialize stores init into the object of type t at dst. Storage that
// starts out zeroed skips the zero fill of implicit holes.
func (g *Generator) initialize(dst ir.Value, t *ctypes.Type, init asg.Expr, zeroed bool) {
	list, braced := init.(*asg.InitListExpr)
	if !t.IsArray() {
		if braced {
			if len(list.List) == 0 {
				g.b.store(ir.ZeroOf(LowerType(t)), dst)
				return
			}
			init = list.List[0]
		}
		g.b.store(g.value(init), dst)
		return
	}
	if !braced {
		panic(fmt.Sprintf("irgen: array initialized with %T", init))
	}

	var dims []int64
	for at := t; at.IsArray(); at = at.Sub() {
		dims = append(dims, at.Array().Len)
	}
	total := t.Elements()
	arr := LowerType(t)
	filled := zeroed
	for k, e := range list.List {
		if int64(k) >= total {
			break
		}
		if _, hole := e.(*asg.ImplicitInitExpr); hole {
			if !filled {
				size := (total - int64(k)) * t.Scalar().Size()
				g.memset(g.element(arr, dst, dims, int64(k)), size)
				filled = true
			}
			continue
		}
		g.b.store(g.value(e), g.element(arr, dst, dims, int64(k)))
	}
}

// element addresses the k-th scalar of a row-major array.
func (g *Generator) element(arr ir.Type, base ir.Value, dims []int64, k int64) ir.Value {
	idx := make([]ir.Value, len(dims)+1)
	idx[0] = ir.ConstInt(ir.I64, 0)
	for d := len(dims) - 1; d >= 0; d-- {
		idx[d+1] = ir.ConstInt(ir.I64, k%dims[d])
		k /= dims[d]
	}
	return named(g.b.Emit(&ir.GEP{Elem: arr, Base: base, Indices: idx}), "arrayinit")
}

func (g *Generator) memset(dst ir.Value, size int64) {
	f := g.mod.Memset()
	g.b.Emit(&ir.Call{
		Sig:    f.Sig,
		Callee: f,
		Args:   []ir.Value{dst, ir.ConstInt(ir.I8, 0), ir.ConstInt(ir.I64, size), ir.Bool(false)},
	})
}
