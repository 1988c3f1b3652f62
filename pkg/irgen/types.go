package irgen

import (
	"fmt"

	"github.com/yHan234/SYsU-lang-Compiler/pkg/ctypes"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/ir"
)

// LowerType maps a C type to its IR type. char is i8, int is i32, long
// and long long are i64. Pointers are opaque ptr carrying the lowered
// pointee for typed-pointer output.
func LowerType(t *ctypes.Type) ir.Type {
	switch x := t.Texp.(type) {
	case nil:
		return lowerSpec(t.Spec)
	case *ctypes.Tpointer:
		return ir.PtrTo(LowerType(t.Sub()))
	case *ctypes.Tarray:
		return &ir.ArrayType{Len: x.Len, Elem: LowerType(t.Sub())}
	case *ctypes.Tfunction:
		return lowerSignature(t)
	}
	panic(fmt.Sprintf("irgen: unhandled type %s", t))
}

func lowerSpec(s ctypes.Spec) ir.Type {
	switch s {
	case ctypes.Void:
		return ir.Void
	case ctypes.Char:
		return ir.I8
	case ctypes.Int:
		return ir.I32
	case ctypes.Long, ctypes.LongLong:
		return ir.I64
	}
	panic(fmt.Sprintf("irgen: unhandled specifier %s", s))
}

func lowerSignature(t *ctypes.Type) *ir.FuncType {
	fn := t.Function()
	sig := &ir.FuncType{Ret: LowerType(t.Sub())}
	for _, p := range fn.Params {
		sig.Params = append(sig.Params, LowerType(p))
	}
	return sig
}

func lowerInt(t *ctypes.Type) *ir.IntType {
	it, ok := LowerType(t).(*ir.IntType)
	if !ok {
		panic(fmt.Sprintf("irgen: %s is not an integer type", t))
	}
	return it
}
