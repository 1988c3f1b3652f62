package llverify

import (
	"errors"
	"testing"

	"github.com/yHan234/SYsU-lang-Compiler/pkg/ir"
)

func sampleModule() *ir.Module {
	m := ir.NewModule("sample.c")
	g := m.NewGlobal("g", ir.I32)
	f := m.NewFunc("inc", &ir.FuncType{Ret: ir.I32, Params: []ir.Type{ir.I32}}, "x")
	b := f.NewBlock("entry")
	v := b.Append(&ir.Load{Elem: ir.I32, Src: g})
	sum := b.Append(&ir.BinOp{Op: ir.OpAdd, X: v, Y: f.Params[0]})
	b.Append(&ir.Store{Val: sum, Dst: g})
	b.Append(&ir.Ret{Val: sum})
	return m
}

// memoryModule exercises arrays, pointer slots, the memset intrinsic and
// the constructor table
func memoryModule() *ir.Module {
	m := ir.NewModule("memory.c")
	arr := &ir.ArrayType{Len: 4, Elem: ir.I32}
	g := m.NewGlobal("tab", arr)
	memset := m.Memset()

	ctor := m.NewFunc("ctor.tab", &ir.FuncType{Ret: ir.Void})
	ctor.Private = true
	m.Ctors = append(m.Ctors, ir.Ctor{Priority: 65535, Fn: ctor})
	cb := ctor.NewBlock("entry")
	zero := ir.ConstInt(ir.I64, 0)
	first := cb.Append(&ir.GEP{Elem: arr, Base: g, Indices: []ir.Value{zero, zero}})
	cb.Append(&ir.Store{Val: ir.ConstInt(ir.I32, 7), Dst: first})
	cb.Append(&ir.Ret{})

	f := m.NewFunc("main", &ir.FuncType{Ret: ir.I32})
	b := f.NewBlock("entry")
	local := b.Append(&ir.Alloca{Elem: arr})
	ir.SetName(local, "a")
	slot := b.Append(&ir.Alloca{Elem: ir.PtrTo(ir.I32)})
	ir.SetName(slot, "p")
	decay := b.Append(&ir.GEP{Elem: arr, Base: local, Indices: []ir.Value{zero, zero}})
	b.Append(&ir.Call{Sig: memset.Sig, Callee: memset, Args: []ir.Value{decay, ir.ConstInt(ir.I8, 0), ir.ConstInt(ir.I64, 16), ir.Bool(false)}})
	b.Append(&ir.Store{Val: decay, Dst: slot})
	p := b.Append(&ir.Load{Elem: ir.PtrTo(ir.I32), Src: slot})
	elem := b.Append(&ir.GEP{Elem: ir.I32, Base: p, Indices: []ir.Value{ir.ConstInt(ir.I64, 2)}})
	v := b.Append(&ir.Load{Elem: ir.I32, Src: elem})
	b.Append(&ir.Ret{Val: v})
	return m
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{"printed module", sampleModule().TypedString(), false},
		{"printed memory module", memoryModule().TypedString(), false},
		{"declaration", "declare i32 @f(i32)\n", false},
		{"unknown instruction", "define i32 @f() {\nentry:\n  frobnicate i32 0\n}\n", true},
		{"unterminated body", "define i32 @f() {\nentry:\n  ret i32 0\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check("test.ll", tt.text)
			if tt.wantErr {
				if !errors.Is(err, ErrRejected) {
					t.Errorf("got error %v, want ErrRejected", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v\n%s", err, tt.text)
			}
		})
	}
}

func TestCheckModule(t *testing.T) {
	for _, m := range []*ir.Module{sampleModule(), memoryModule()} {
		t.Run(m.Name, func(t *testing.T) {
			if err := ir.Verify(m); err != nil {
				t.Fatalf("module does not verify: %v", err)
			}
			if err := CheckModule(m); err != nil {
				t.Errorf("unexpected error: %v\n%s", err, m.TypedString())
			}
		})
	}
}
