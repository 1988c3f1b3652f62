package ir

import "fmt"

// Value is anything that can appear as an operand.
type Value interface {
	Type() Type
	implValue()
}

// Const is an integer constant.
type Const struct {
	Typ   *IntType
	Value int64
}

// Undef is an unspecified value of a type.
type Undef struct {
	Typ Type
}

// Poison is a value whose use is undefined behavior.
type Poison struct {
	Typ Type
}

// NullPtr is the null pointer constant.
type NullPtr struct{}

// ZeroInit is the all-zero constant of an aggregate or scalar type.
type ZeroInit struct {
	Typ Type
}

// Param is a function parameter.
type Param struct {
	Name  string
	Typ   Type
	Index int
}

// Global is a module-level variable. Its value is its address.
type Global struct {
	Name string
	Elem Type
	Init Value // constant initializer; nil for an external declaration
}

// ConstStruct is a literal structure constant, used for constructor entries.
type ConstStruct struct {
	Fields []Value
}

// ConstArray is a literal array constant.
type ConstArray struct {
	Elem  Type
	Elems []Value
}

func (c *Const) Type() Type      { return c.Typ }
func (u *Undef) Type() Type      { return u.Typ }
func (p *Poison) Type() Type     { return p.Typ }
func (*NullPtr) Type() Type      { return Ptr }
func (z *ZeroInit) Type() Type   { return z.Typ }
func (p *Param) Type() Type      { return p.Typ }
func (g *Global) Type() Type     { return PtrTo(g.Elem) }
func (*ConstStruct) Type() Type  { return &structType{} }
func (a *ConstArray) Type() Type { return &ArrayType{Len: int64(len(a.Elems)), Elem: a.Elem} }

func (*Const) implValue()       {}
func (*Undef) implValue()       {}
func (*Poison) implValue()      {}
func (*NullPtr) implValue()     {}
func (*ZeroInit) implValue()    {}
func (*Param) implValue()       {}
func (*Global) implValue()      {}
func (*ConstStruct) implValue() {}
func (*ConstArray) implValue()  {}

// structType is the anonymous `{ i32, ptr, ptr }` of constructor entries.
type structType struct{}

func (*structType) implType()      {}
func (*structType) String() string { return "{ i32, ptr, ptr }" }

// ConstInt builds an integer constant.
func ConstInt(t *IntType, v int64) *Const {
	return &Const{Typ: t, Value: v}
}

// Bool builds an i1 constant.
func Bool(b bool) *Const {
	if b {
		return ConstInt(I1, 1)
	}
	return ConstInt(I1, 0)
}

// ZeroOf returns the zero constant of t.
func ZeroOf(t Type) Value {
	switch t := t.(type) {
	case *IntType:
		return ConstInt(t, 0)
	case *PtrType:
		return &NullPtr{}
	}
	return &ZeroInit{Typ: t}
}

// IsConstant reports whether v is fixed before the function runs.
// Constants, parameters, globals and functions dominate every instruction.
func IsConstant(v Value) bool {
	switch v.(type) {
	case *Const, *Undef, *Poison, *NullPtr, *ZeroInit, *Param, *Global, *Function:
		return true
	}
	return false
}

// IsUndefined reports whether v is undef or poison.
func IsUndefined(v Value) bool {
	switch v.(type) {
	case *Undef, *Poison:
		return true
	}
	return false
}

// Same reports whether two operands denote the same value. Constants are
// compared structurally, everything else by identity.
func Same(a, b Value) bool {
	if a == b {
		return true
	}
	switch x := a.(type) {
	case *Const:
		y, ok := b.(*Const)
		return ok && x.Value == y.Value && x.Typ.Bits == y.Typ.Bits
	case *Undef:
		y, ok := b.(*Undef)
		return ok && TypesEqual(x.Typ, y.Typ)
	case *Poison:
		y, ok := b.(*Poison)
		return ok && TypesEqual(x.Typ, y.Typ)
	case *NullPtr:
		_, ok := b.(*NullPtr)
		return ok
	}
	return false
}

// Truncate wraps v to the width of t, sign-extending the result.
func Truncate(t *IntType, v int64) int64 {
	switch t.Bits {
	case 1:
		return v & 1
	case 8:
		return int64(int8(v))
	case 16:
		return int64(int16(v))
	case 32:
		return int64(int32(v))
	case 64:
		return v
	}
	panic(fmt.Sprintf("ir: unsupported integer width %d", t.Bits))
}
