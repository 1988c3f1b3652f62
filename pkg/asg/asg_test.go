package asg

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/ctypes"
)

// buildSample constructs
//
//	int g = 1;
//	int main() { while (g) { break; } return g; }
func buildSample() *TranslationUnit {
	a := NewArena()
	tu := New(a, &TranslationUnit{Arena: a})
	lit := New(a, &IntegerLiteral{Value: 1})
	lit.SetType(ctypes.IntType(), false)
	g := New(a, &VarDecl{Name: "g", Typ: ctypes.IntType(), Init: lit})

	fnType := ctypes.New(ctypes.Int, ctypes.Qual{}, &ctypes.Tfunction{})
	fn := New(a, &FunctionDecl{Name: "main", Typ: fnType})

	ref := func() Expr {
		r := New(a, &DeclRefExpr{Decl: g})
		r.SetType(ctypes.IntType(), true)
		c := New(a, &ImplicitCastExpr{Kind: LValueToRValue, Sub: r})
		c.SetType(ctypes.IntType(), false)
		return c
	}
	loop := New(a, &WhileStmt{Cond: ref()})
	brk := New(a, &BreakStmt{Loop: loop})
	loop.Body = New(a, &CompoundStmt{Subs: []Stmt{brk}})
	ret := New(a, &ReturnStmt{Func: fn, Expr: ref()})
	fn.Body = New(a, &CompoundStmt{Subs: []Stmt{loop, ret}})
	tu.Decls = []Decl{g, fn}
	return tu
}

func TestArenaAssignsDenseIDs(t *testing.T) {
	tu := buildSample()
	if tu.ID() != 0 {
		t.Errorf("got unit id %d, want 0", tu.ID())
	}
	for i := 0; i < tu.Arena.Len(); i++ {
		n := tu.Arena.Get(NodeID(i))
		if n == nil || n.ID() != NodeID(i) {
			t.Fatalf("arena slot %d holds %v", i, n)
		}
	}
	if tu.Arena.Get(NodeID(tu.Arena.Len())) != nil {
		t.Errorf("expected nil past the end of the arena")
	}
}

func TestArenaPlaceRejectsDuplicates(t *testing.T) {
	a := NewArena()
	if err := a.place(3, &NullStmt{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.place(3, &NullStmt{}); err == nil {
		t.Errorf("expected duplicate id error")
	}
	if err := a.place(-1, &NullStmt{}); err == nil {
		t.Errorf("expected negative id error")
	}
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintTranslationUnit(buildSample())
	out := buf.String()

	wants := []string{
		"TranslationUnit #0",
		"  VarDecl #2 g 'int'",
		"    IntegerLiteral #1 'int' 1",
		"  FunctionDecl #3 main 'int (void)'",
		"DeclRefExpr #4 'int' lvalue -> #2 g",
		"ImplicitCastExpr #5 'int' <LValueToRValue>",
		"BreakStmt #7 -> #6",
		"ReturnStmt #11 -> #3",
	}
	for _, w := range wants {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tu := buildSample()
	var first bytes.Buffer
	if err := Encode(&first, tu); err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := Decode(bytes.NewReader(first.Bytes()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var second bytes.Buffer
	if err := Encode(&second, back); err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	if diff := cmp.Diff(first.String(), second.String()); diff != "" {
		t.Errorf("round trip mismatch (-first +second):\n%s", diff)
	}

	fn := back.Decls[1].(*FunctionDecl)
	loop := fn.Body.Subs[0].(*WhileStmt)
	brk := loop.Body.(*CompoundStmt).Subs[0].(*BreakStmt)
	if brk.Loop != loop {
		t.Errorf("break does not point at its loop after decoding")
	}
	ret := fn.Body.Subs[1].(*ReturnStmt)
	if ret.Func != fn {
		t.Errorf("return does not point at its function after decoding")
	}
	ref := ret.Expr.(*ImplicitCastExpr).Sub.(*DeclRefExpr)
	if ref.Decl != back.Decls[0] {
		t.Errorf("reference does not point at the global after decoding")
	}
	if !ref.IsLValue() {
		t.Errorf("value category lost in round trip")
	}
}

func TestTypeRecords(t *testing.T) {
	tests := []*ctypes.Type{
		ctypes.IntType(),
		ctypes.LongType().PointerTo(),
		ctypes.IntType().ArrayOf(3).ArrayOf(2),
		ctypes.New(ctypes.Char, ctypes.Qual{Const: true}, &ctypes.Tpointer{Const: true}),
		ctypes.New(ctypes.Void, ctypes.Qual{}, &ctypes.Tfunction{Params: []*ctypes.Type{ctypes.IntType(), ctypes.CharType().PointerTo()}}),
	}
	for _, typ := range tests {
		t.Run(typ.String(), func(t *testing.T) {
			back, err := DecodeType(EncodeType(typ))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !ctypes.Equal(typ, back) || back.Qual != typ.Qual {
				t.Errorf("got %s, want %s", back, typ)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"wrong root", "kind: NullStmt\nid: 0\n", "want TranslationUnit"},
		{"unknown kind", "kind: TranslationUnit\nid: 0\ninner:\n  - {kind: Bogus, id: 1, type: {spec: int}}\n", "unknown declaration kind"},
		{"dangling ref", "kind: TranslationUnit\nid: 0\ninner:\n  - kind: FunctionDecl\n    id: 1\n    name: f\n    type: {spec: int, derived: [{kind: function}]}\n    inner:\n      - kind: CompoundStmt\n        id: 2\n        inner:\n          - {kind: ReturnStmt, id: 3, ref: 9}\n", "unknown node #9"},
		{"duplicate id", "kind: TranslationUnit\nid: 0\ninner:\n  - {kind: VarDecl, id: 0, name: x, type: {spec: int}}\n", "duplicate node id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input))
			if err == nil {
				t.Fatalf("expected error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got error %q, want it to contain %q", err, tt.want)
			}
		})
	}
}
