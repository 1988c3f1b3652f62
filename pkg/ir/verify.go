package ir

import (
	"errors"
	"fmt"
)

// ErrVerify is wrapped by every structural verification failure.
var ErrVerify = errors.New("ir verification failed")

// Verify checks the structural invariants of every defined function:
// terminators, phi placement and arity, operand liveness and call arity.
func Verify(m *Module) error {
	for _, f := range m.Funcs {
		if err := VerifyFunction(f); err != nil {
			return err
		}
	}
	return nil
}

// VerifyFunction checks one function.
func VerifyFunction(f *Function) error {
	if f.IsDeclaration() {
		return nil
	}
	fail := func(b *Block, format string, args ...any) error {
		return fmt.Errorf("%w: @%s: block %s: %s", ErrVerify, f.Name, b.Name, fmt.Sprintf(format, args...))
	}

	live := make(map[Instr]bool)
	owned := make(map[*Block]bool)
	for _, b := range f.Blocks {
		owned[b] = true
		for _, i := range b.Instrs {
			live[i] = true
		}
	}
	preds := f.Preds()
	if len(preds[f.Entry()]) > 0 {
		return fail(f.Entry(), "entry block has predecessors")
	}

	for _, b := range f.Blocks {
		if b.Parent != f {
			return fail(b, "block belongs to another function")
		}
		if len(b.Instrs) == 0 {
			return fail(b, "empty block")
		}
		inPhis := true
		for k, i := range b.Instrs {
			if i.Block() != b {
				return fail(b, "instruction %d (%s) has the wrong parent", k, Opname(i))
			}
			last := k == len(b.Instrs)-1
			if IsTerminator(i) != last {
				if last {
					return fail(b, "block does not end in a terminator")
				}
				return fail(b, "terminator %s before the end of the block", Opname(i))
			}
			if phi, ok := i.(*Phi); ok {
				if !inPhis {
					return fail(b, "phi after a non-phi instruction")
				}
				if err := checkPhi(phi, preds[b]); err != nil {
					return fail(b, "%v", err)
				}
			} else {
				inPhis = false
			}
			for _, op := range i.Operands() {
				if *op == nil {
					return fail(b, "%s has a missing operand", Opname(i))
				}
				if def, ok := (*op).(Instr); ok && !live[def] {
					return fail(b, "%s uses a deleted %s", Opname(i), Opname(def))
				}
				if prm, ok := (*op).(*Param); ok && (prm.Index >= len(f.Params) || f.Params[prm.Index] != prm) {
					return fail(b, "%s uses a parameter of another function", Opname(i))
				}
			}
			if t, ok := i.(Terminator); ok {
				for _, s := range t.Succs() {
					if !owned[s] {
						return fail(b, "branch to a block outside the function")
					}
				}
			}
			if err := checkTypes(i); err != nil {
				return fail(b, "%v", err)
			}
		}
	}
	return nil
}

func checkPhi(phi *Phi, preds []*Block) error {
	if len(phi.Incs) != len(preds) {
		return fmt.Errorf("phi has %d incoming values for %d predecessors", len(phi.Incs), len(preds))
	}
	want := make(map[*Block]int)
	for _, p := range preds {
		want[p]++
	}
	for _, inc := range phi.Incs {
		if want[inc.Pred] == 0 {
			return fmt.Errorf("phi has an incoming value from non-predecessor %s", inc.Pred.Name)
		}
		want[inc.Pred]--
		if inc.Value != nil && !TypesEqual(inc.Value.Type(), phi.Typ) {
			return fmt.Errorf("phi of %s has incoming %s", phi.Typ, inc.Value.Type())
		}
	}
	return nil
}

func checkTypes(i Instr) error {
	switch i := i.(type) {
	case *Store:
		if _, ok := i.Dst.Type().(*PtrType); !ok {
			return fmt.Errorf("store to non-pointer %s", i.Dst.Type())
		}
	case *Load:
		if _, ok := i.Src.Type().(*PtrType); !ok {
			return fmt.Errorf("load from non-pointer %s", i.Src.Type())
		}
	case *BinOp:
		if _, ok := i.X.Type().(*IntType); !ok || !TypesEqual(i.X.Type(), i.Y.Type()) {
			return fmt.Errorf("%s on %s and %s", i.Op, i.X.Type(), i.Y.Type())
		}
	case *ICmp:
		if !TypesEqual(i.X.Type(), i.Y.Type()) {
			return fmt.Errorf("icmp on %s and %s", i.X.Type(), i.Y.Type())
		}
	case *CondBr:
		if !IsInt(i.Cond.Type(), 1) {
			return fmt.Errorf("branch condition has type %s", i.Cond.Type())
		}
	case *Call:
		if len(i.Args) != len(i.Sig.Params) {
			return fmt.Errorf("call passes %d arguments to a function of %d parameters", len(i.Args), len(i.Sig.Params))
		}
		for k, a := range i.Args {
			if !TypesEqual(a.Type(), i.Sig.Params[k]) {
				return fmt.Errorf("call argument %d has type %s, want %s", k, a.Type(), i.Sig.Params[k])
			}
		}
	case *Ret:
		ret := i.Block().Parent.Sig.Ret
		if i.Val == nil {
			if _, void := ret.(*VoidType); !void {
				return fmt.Errorf("ret void in a function returning %s", ret)
			}
		} else if !TypesEqual(i.Val.Type(), ret) {
			return fmt.Errorf("ret %s in a function returning %s", i.Val.Type(), ret)
		}
	}
	return nil
}
