// Package ctypes defines the C type system: a primitive specifier with
// qualifiers, extended by a chain of derived type expressions.
package ctypes

import (
	"fmt"
	"strings"
)

// Spec is a primitive type specifier
type Spec int

const (
	Void Spec = iota
	Char
	Int
	Long
	LongLong
)

func (s Spec) String() string {
	names := []string{"void", "char", "int", "long", "long long"}
	if int(s) < len(names) {
		return names[s]
	}
	return "?"
}

// Size returns the storage size in bytes
func (s Spec) Size() int64 {
	switch s {
	case Char:
		return 1
	case Int:
		return 4
	case Long, LongLong:
		return 8
	}
	return 0
}

// Wrap converts v to an integer of this specifier's width, keeping the
// low bits and sign-extending them
func (s Spec) Wrap(v int64) int64 {
	switch s {
	case Char:
		return int64(int8(v))
	case Int:
		return int64(int32(v))
	}
	return v
}

// Qual holds type qualifiers
type Qual struct {
	Const bool
}

// UnboundedLen marks an array declared with empty brackets
const UnboundedLen int64 = -1

// TypeExpr is one link in a derived-type chain. A nil TypeExpr stands for
// the primitive base of the chain.
type TypeExpr interface {
	implTypeExpr()
	sub() TypeExpr
}

// Tpointer is a pointer to Sub
type Tpointer struct {
	Sub   TypeExpr
	Const bool // const applied to the pointer itself
}

// Tarray is an array of Len elements of Sub
type Tarray struct {
	Sub TypeExpr
	Len int64
}

// Tfunction is a function returning Sub
type Tfunction struct {
	Sub    TypeExpr
	Params []*Type
}

func (*Tpointer) implTypeExpr()  {}
func (*Tarray) implTypeExpr()    {}
func (*Tfunction) implTypeExpr() {}

func (t *Tpointer) sub() TypeExpr  { return t.Sub }
func (t *Tarray) sub() TypeExpr    { return t.Sub }
func (t *Tfunction) sub() TypeExpr { return t.Sub }

// Type is a complete C type. Types are immutable once built.
type Type struct {
	Spec Spec
	Qual Qual
	Texp TypeExpr
}

// New returns a type with the given base and derived chain
func New(spec Spec, qual Qual, texp TypeExpr) *Type {
	return &Type{Spec: spec, Qual: qual, Texp: texp}
}

// Common type constructors

// IntType returns plain int
func IntType() *Type { return &Type{Spec: Int} }

// VoidType returns plain void
func VoidType() *Type { return &Type{Spec: Void} }

// LongType returns plain long
func LongType() *Type { return &Type{Spec: Long} }

// CharType returns plain char
func CharType() *Type { return &Type{Spec: Char} }

// IsVoid reports whether t is the void type
func (t *Type) IsVoid() bool { return t.Texp == nil && t.Spec == Void }

// IsInteger reports whether t is an integral type
func (t *Type) IsInteger() bool { return t.Texp == nil && t.Spec != Void }

// IsScalar reports whether t can be tested against zero
func (t *Type) IsScalar() bool { return t.IsInteger() || t.IsPointer() }

// IsPointer reports whether t is a pointer type
func (t *Type) IsPointer() bool {
	_, ok := t.Texp.(*Tpointer)
	return ok
}

// IsArray reports whether t is an array type
func (t *Type) IsArray() bool {
	_, ok := t.Texp.(*Tarray)
	return ok
}

// IsFunction reports whether t is a function type
func (t *Type) IsFunction() bool {
	_, ok := t.Texp.(*Tfunction)
	return ok
}

// Function returns the function link of t, or nil
func (t *Type) Function() *Tfunction {
	f, _ := t.Texp.(*Tfunction)
	return f
}

// Array returns the array link of t, or nil
func (t *Type) Array() *Tarray {
	a, _ := t.Texp.(*Tarray)
	return a
}

// Sub strips the outermost derived link: the pointee, element or return type
func (t *Type) Sub() *Type {
	if t.Texp == nil {
		panic("ctypes: Sub of primitive type " + t.String())
	}
	return &Type{Spec: t.Spec, Qual: t.Qual, Texp: t.Texp.sub()}
}

// PointerTo returns a pointer to t
func (t *Type) PointerTo() *Type {
	return &Type{Spec: t.Spec, Qual: t.Qual, Texp: &Tpointer{Sub: t.Texp}}
}

// ArrayOf returns an array of n elements of t
func (t *Type) ArrayOf(n int64) *Type {
	return &Type{Spec: t.Spec, Qual: t.Qual, Texp: &Tarray{Sub: t.Texp, Len: n}}
}

// Unqualified drops the base const qualifier when t is a primitive
func (t *Type) Unqualified() *Type {
	if t.Texp != nil || !t.Qual.Const {
		return t
	}
	return &Type{Spec: t.Spec}
}

// Size returns the storage size in bytes. Functions, void and
// unbounded arrays have no size.
func (t *Type) Size() int64 {
	switch x := t.Texp.(type) {
	case nil:
		return t.Spec.Size()
	case *Tpointer:
		return 8
	case *Tarray:
		if x.Len == UnboundedLen {
			return 0
		}
		return x.Len * t.Sub().Size()
	}
	return 0
}

// Wrap converts v to t, which must be an integer type
func (t *Type) Wrap(v int64) int64 {
	return t.Spec.Wrap(v)
}

// Scalar returns the innermost non-array element type of t
func (t *Type) Scalar() *Type {
	for t.IsArray() {
		t = t.Sub()
	}
	return t
}

// Elements returns the number of scalar elements covered by t
func (t *Type) Elements() int64 {
	n := int64(1)
	for t.IsArray() {
		n *= t.Array().Len
		t = t.Sub()
	}
	return n
}

// Equal reports whether two types are identical. The base qualifier is
// compared; const on a pointer link is not.
func Equal(a, b *Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Spec == b.Spec && a.Qual == b.Qual && equalExpr(a.Texp, b.Texp)
}

func equalExpr(a, b TypeExpr) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case *Tpointer:
		y, ok := b.(*Tpointer)
		return ok && equalExpr(x.Sub, y.Sub)
	case *Tarray:
		y, ok := b.(*Tarray)
		return ok && x.Len == y.Len && equalExpr(x.Sub, y.Sub)
	case *Tfunction:
		y, ok := b.(*Tfunction)
		if !ok || len(x.Params) != len(y.Params) || !equalExpr(x.Sub, y.Sub) {
			return false
		}
		for i := range x.Params {
			if !Equal(x.Params[i].Unqualified(), y.Params[i].Unqualified()) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders t in C declaration syntax with no identifier
func (t *Type) String() string {
	base := t.Spec.String()
	if t.Qual.Const {
		base = "const " + base
	}
	decl := render(t.Texp, "")
	if decl == "" {
		return base
	}
	return base + " " + decl
}

// render threads the declarator text outward through the chain
func render(e TypeExpr, inner string) string {
	switch x := e.(type) {
	case nil:
		return inner
	case *Tpointer:
		q := "*"
		if x.Const {
			q = "*const "
		}
		return render(x.Sub, q+inner)
	case *Tarray:
		if strings.HasPrefix(inner, "*") {
			inner = "(" + inner + ")"
		}
		if x.Len == UnboundedLen {
			return render(x.Sub, inner+"[]")
		}
		return render(x.Sub, fmt.Sprintf("%s[%d]", inner, x.Len))
	case *Tfunction:
		if strings.HasPrefix(inner, "*") {
			inner = "(" + inner + ")"
		}
		params := make([]string, len(x.Params))
		for i, p := range x.Params {
			params[i] = p.String()
		}
		if len(params) == 0 {
			params = []string{"void"}
		}
		return render(x.Sub, inner+"("+strings.Join(params, ", ")+")")
	}
	return inner
}
