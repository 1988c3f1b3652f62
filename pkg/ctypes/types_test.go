package ctypes

import "testing"

func TestTypeString(t *testing.T) {
	tests := []struct {
		name    string
		typ     *Type
		wantStr string
	}{
		{"void", VoidType(), "void"},
		{"int", IntType(), "int"},
		{"const long long", New(LongLong, Qual{Const: true}, nil), "const long long"},
		{"pointer to int", IntType().PointerTo(), "int *"},
		{"array of int", IntType().ArrayOf(10), "int [10]"},
		{"2d array", IntType().ArrayOf(3).ArrayOf(2), "int [2][3]"},
		{"unbounded", IntType().ArrayOf(UnboundedLen), "int []"},
		{"pointer to array", IntType().ArrayOf(3).PointerTo(), "int (*)[3]"},
		{"array of pointers", IntType().PointerTo().ArrayOf(3), "int *[3]"},
		{"function", New(Int, Qual{}, &Tfunction{Params: []*Type{IntType(), CharType()}}), "int (int, char)"},
		{"function pointer", New(Int, Qual{}, &Tpointer{Sub: &Tfunction{}}), "int (*)(void)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.typ.String(); got != tt.wantStr {
				t.Errorf("String() = %q, want %q", got, tt.wantStr)
			}
		})
	}
}

func TestTypeEquality(t *testing.T) {
	fn := func(params ...*Type) *Type { return New(Int, Qual{}, &Tfunction{Params: params}) }
	tests := []struct {
		name  string
		a, b  *Type
		equal bool
	}{
		{"int == int", IntType(), IntType(), true},
		{"int != long", IntType(), LongType(), false},
		{"int != const int", IntType(), New(Int, Qual{Const: true}, nil), false},
		{"int* == int*", IntType().PointerTo(), IntType().PointerTo(), true},
		{"int* != char*", IntType().PointerTo(), CharType().PointerTo(), false},
		{"int[2] != int[3]", IntType().ArrayOf(2), IntType().ArrayOf(3), false},
		{"int[2] != int*", IntType().ArrayOf(2), IntType().PointerTo(), false},
		{"fn params match", fn(IntType()), fn(New(Int, Qual{Const: true}, nil)), true},
		{"fn arity differs", fn(IntType()), fn(), false},
		{"nil == nil", nil, nil, true},
		{"nil != int", nil, IntType(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.equal {
				t.Errorf("Equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.equal)
			}
		})
	}
}

func TestSubWalksChain(t *testing.T) {
	a := IntType().ArrayOf(3).ArrayOf(2) // int [2][3]
	row := a.Sub()
	if got := row.String(); got != "int [3]" {
		t.Errorf("a.Sub() = %q, want int [3]", got)
	}
	if got := row.Sub().String(); got != "int" {
		t.Errorf("a.Sub().Sub() = %q, want int", got)
	}
	if got := a.Size(); got != 24 {
		t.Errorf("Size() = %d, want 24", got)
	}
	if got := a.Elements(); got != 6 {
		t.Errorf("Elements() = %d, want 6", got)
	}
	if !Equal(a.Scalar(), IntType()) {
		t.Errorf("Scalar() = %v, want int", a.Scalar())
	}
}

func TestPredicates(t *testing.T) {
	f := New(Void, Qual{}, &Tfunction{})
	if !f.IsFunction() || f.IsPointer() || f.IsArray() {
		t.Errorf("function predicates wrong for %v", f)
	}
	if !VoidType().IsVoid() || VoidType().IsInteger() {
		t.Error("void predicates wrong")
	}
	if !IntType().PointerTo().IsScalar() {
		t.Error("pointer should be scalar")
	}
	if f.Sub().String() != "void" {
		t.Errorf("return type = %v, want void", f.Sub())
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		typ  *Type
		in   int64
		want int64
	}{
		{CharType(), 300, 44},
		{CharType(), 200, -56},
		{IntType(), 4294967298, 2},
		{IntType(), -1, -1},
		{LongType(), 5000000000, 5000000000},
	}
	for _, tt := range tests {
		if got := tt.typ.Wrap(tt.in); got != tt.want {
			t.Errorf("%s.Wrap(%d) = %d, want %d", tt.typ, tt.in, got, tt.want)
		}
	}
}
