package sema

import (
	"github.com/yHan234/SYsU-lang-Compiler/pkg/asg"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/cabs"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/ctypes"
)

// initializer lowers the initializer of an object of type typ. Braced lists
// are flattened into one scalar entry per element, with brace elision; the
// returned type has any unbounded outer length filled in.
func (b *builder) initializer(st *Symtab, init cabs.Initializer, typ *ctypes.Type) (asg.Expr, *ctypes.Type, error) {
	switch in := init.(type) {
	case cabs.ExprInit:
		if typ.IsArray() {
			return nil, nil, errorf(TypeCheck, exprPos(in.Expr), "array initializer must be a braced list")
		}
		e, err := b.expr(st, in.Expr)
		return e, typ, err
	case cabs.ListInit:
		f := &flattener{b: b, st: st}
		i := 0
		switch {
		case !typ.IsArray():
			if err := f.fill(typ, []cabs.Initializer{in}, &i); err != nil {
				return nil, nil, err
			}
		case typ.Array().Len == ctypes.UnboundedLen:
			elem := typ.Sub()
			n := int64(0)
			for ; i < len(in.Items); n++ {
				if err := f.element(elem, in.Items, &i); err != nil {
					return nil, nil, err
				}
			}
			typ = elem.ArrayOf(n)
		default:
			if err := f.fill(typ, in.Items, &i); err != nil {
				return nil, nil, err
			}
			if i < len(in.Items) {
				return nil, nil, errorf(TypeCheck, in.Pos, "excess elements in initializer of type '%s'", typ)
			}
		}
		list := asg.New(b.arena, &asg.InitListExpr{List: f.finish()})
		b.at(list, in.Pos)
		return list, typ, nil
	}
	panic("sema: unhandled initializer")
}

// flattener emits one entry per scalar element in storage order. Runs of
// holes are kept pending so a trailing run becomes a single entry.
type flattener struct {
	b       *builder
	st      *Symtab
	out     []asg.Expr
	pending int64
}

func (f *flattener) holes(n int64) {
	f.pending += n
}

func (f *flattener) flush() {
	for ; f.pending > 0; f.pending-- {
		f.out = append(f.out, asg.New(f.b.arena, &asg.ImplicitInitExpr{}))
	}
}

func (f *flattener) finish() []asg.Expr {
	if f.pending > 0 {
		f.out = append(f.out, asg.New(f.b.arena, &asg.ImplicitInitExpr{}))
		f.pending = 0
	}
	if f.out == nil {
		f.out = []asg.Expr{}
	}
	return f.out
}

// fill initializes an object of type t from items[*i:], consuming as many
// items as brace elision allows. Missing trailing elements become holes.
func (f *flattener) fill(t *ctypes.Type, items []cabs.Initializer, i *int) error {
	if !t.IsArray() {
		if *i >= len(items) {
			f.holes(1)
			return nil
		}
		item := items[*i]
		*i++
		return f.scalar(item)
	}
	elem := t.Sub()
	for k := int64(0); k < t.Array().Len; k++ {
		if *i >= len(items) {
			f.holes(elem.Elements())
			continue
		}
		if err := f.element(elem, items, i); err != nil {
			return err
		}
	}
	return nil
}

// element initializes one array element. A nested brace starts a fresh
// element boundary and must not overflow it.
func (f *flattener) element(elem *ctypes.Type, items []cabs.Initializer, i *int) error {
	if list, ok := items[*i].(cabs.ListInit); ok && elem.IsArray() {
		*i++
		j := 0
		if err := f.fill(elem, list.Items, &j); err != nil {
			return err
		}
		if j < len(list.Items) {
			return errorf(TypeCheck, list.Pos, "excess elements in initializer of type '%s'", elem)
		}
		return nil
	}
	return f.fill(elem, items, i)
}

// scalar takes the value for one scalar element. A braced scalar uses its
// first entry.
func (f *flattener) scalar(item cabs.Initializer) error {
	switch x := item.(type) {
	case cabs.ExprInit:
		e, err := f.b.expr(f.st, x.Expr)
		if err != nil {
			return err
		}
		f.flush()
		f.out = append(f.out, e)
		return nil
	case cabs.ListInit:
		if len(x.Items) == 0 {
			f.holes(1)
			return nil
		}
		return f.scalar(x.Items[0])
	}
	panic("sema: unhandled initializer")
}
