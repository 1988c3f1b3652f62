// Package ir defines the control-flow-graph intermediate representation
// produced by irgen and rewritten by mem2reg. Functions are lists of basic
// blocks; each block ends in exactly one terminator. Pointers are opaque
// (`ptr`): loads, stores and address arithmetic carry their element type.
// The printer emits LLVM-compatible text, with opaque or typed pointers.
package ir

import (
	"fmt"
	"strings"
)

// Type is an IR type.
type Type interface {
	String() string
	implType()
}

// IntType is an integer of a fixed bit width.
type IntType struct {
	Bits int
}

// VoidType is the type of instructions that produce no value.
type VoidType struct{}

// PtrType is the opaque pointer type. Pointee records what the pointer
// addresses when it is known; it takes no part in type identity and only
// shows in typed-pointer output.
type PtrType struct {
	Pointee Type
}

// ArrayType is a fixed-length array.
type ArrayType struct {
	Len  int64
	Elem Type
}

// FuncType is a function signature.
type FuncType struct {
	Ret    Type
	Params []Type
}

// LabelType is the type of basic blocks used as operands.
type LabelType struct{}

func (*IntType) implType()   {}
func (*VoidType) implType()  {}
func (*PtrType) implType()   {}
func (*ArrayType) implType() {}
func (*FuncType) implType()  {}
func (*LabelType) implType() {}

var (
	I1    = &IntType{Bits: 1}
	I8    = &IntType{Bits: 8}
	I32   = &IntType{Bits: 32}
	I64   = &IntType{Bits: 64}
	Void  = &VoidType{}
	Ptr   = &PtrType{}
	Label = &LabelType{}
)

func (t *IntType) String() string { return fmt.Sprintf("i%d", t.Bits) }
func (*VoidType) String() string  { return "void" }
func (*PtrType) String() string   { return "ptr" }
func (*LabelType) String() string { return "label" }

// PtrTo returns a pointer whose pointee is t.
func PtrTo(t Type) *PtrType {
	return &PtrType{Pointee: t}
}

func (t *ArrayType) String() string {
	return fmt.Sprintf("[%d x %s]", t.Len, t.Elem)
}

func (t *FuncType) String() string {
	params := make([]string, len(t.Params))
	for i, p := range t.Params {
		params[i] = p.String()
	}
	return fmt.Sprintf("%s (%s)", t.Ret, strings.Join(params, ", "))
}

// TypedString renders t with typed pointers: `i32*` for a pointer to i32.
// Pointers of unknown or void pointee render as `i8*`.
func TypedString(t Type) string {
	switch t := t.(type) {
	case *PtrType:
		if t.Pointee == nil {
			return "i8*"
		}
		if _, void := t.Pointee.(*VoidType); void {
			return "i8*"
		}
		return TypedString(t.Pointee) + "*"
	case *ArrayType:
		return fmt.Sprintf("[%d x %s]", t.Len, TypedString(t.Elem))
	case *FuncType:
		params := make([]string, len(t.Params))
		for i, p := range t.Params {
			params[i] = TypedString(p)
		}
		return fmt.Sprintf("%s (%s)", TypedString(t.Ret), strings.Join(params, ", "))
	}
	return t.String()
}

// TypesEqual reports structural equality. Pointers are all equal.
func TypesEqual(a, b Type) bool {
	switch x := a.(type) {
	case *IntType:
		y, ok := b.(*IntType)
		return ok && x.Bits == y.Bits
	case *VoidType:
		_, ok := b.(*VoidType)
		return ok
	case *PtrType:
		_, ok := b.(*PtrType)
		return ok
	case *LabelType:
		_, ok := b.(*LabelType)
		return ok
	case *ArrayType:
		y, ok := b.(*ArrayType)
		return ok && x.Len == y.Len && TypesEqual(x.Elem, y.Elem)
	case *FuncType:
		y, ok := b.(*FuncType)
		if !ok || len(x.Params) != len(y.Params) || !TypesEqual(x.Ret, y.Ret) {
			return false
		}
		for i := range x.Params {
			if !TypesEqual(x.Params[i], y.Params[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// SizeOf returns the allocation size of t in bytes.
func SizeOf(t Type) int64 {
	switch t := t.(type) {
	case *IntType:
		return int64((t.Bits + 7) / 8)
	case *PtrType:
		return 8
	case *ArrayType:
		return t.Len * SizeOf(t.Elem)
	}
	return 0
}

// IsInt reports whether t is an integer type of the given width.
func IsInt(t Type, bits int) bool {
	it, ok := t.(*IntType)
	return ok && it.Bits == bits
}
