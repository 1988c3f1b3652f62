package sema

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/asg"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/cabs"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/ctypes"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/lexer"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/parser"
	"gopkg.in/yaml.v3"
)

func parse(t *testing.T, src string) *cabs.Program {
	t.Helper()
	p := parser.New(lexer.New(src))
	prog := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("parser errors: %v", errs)
	}
	return prog
}

func analyze(t *testing.T, src string) *asg.TranslationUnit {
	t.Helper()
	tu, err := Analyze(parse(t, src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return tu
}

// strip removes parentheses and inserted casts
func strip(e asg.Expr) asg.Expr {
	for {
		switch x := e.(type) {
		case *asg.ParenExpr:
			e = x.Sub
		case *asg.ImplicitCastExpr:
			e = x.Sub
		default:
			return e
		}
	}
}

func refTarget(t *testing.T, e asg.Expr) asg.Decl {
	t.Helper()
	ref, ok := strip(e).(*asg.DeclRefExpr)
	if !ok {
		t.Fatalf("got %T, want *asg.DeclRefExpr", strip(e))
	}
	return ref.Decl
}

func function(t *testing.T, tu *asg.TranslationUnit, name string) *asg.FunctionDecl {
	t.Helper()
	var found *asg.FunctionDecl
	for _, d := range tu.Decls {
		if fn, ok := d.(*asg.FunctionDecl); ok && fn.Name == name && fn.Body != nil {
			found = fn
		}
	}
	if found == nil {
		t.Fatalf("function %s not found", name)
	}
	return found
}

func lastReturn(fn *asg.FunctionDecl) *asg.ReturnStmt {
	return fn.Body.Subs[len(fn.Body.Subs)-1].(*asg.ReturnStmt)
}

func TestSymtab(t *testing.T) {
	st := NewSymtab()
	st.Push()
	outer := &asg.VarDecl{Name: "x"}
	inner := &asg.VarDecl{Name: "x"}
	st.Insert("x", outer)

	st.Push()
	if d, _ := st.Resolve("x"); d != outer {
		t.Errorf("inner scope should see the outer binding before shadowing")
	}
	st.Insert("x", inner)
	if d, _ := st.Resolve("x"); d != inner {
		t.Errorf("got %v, want the inner binding", d)
	}
	st.Pop()

	if d, _ := st.Resolve("x"); d != outer {
		t.Errorf("got %v, want the outer binding after pop", d)
	}
	if _, ok := st.Resolve("y"); ok {
		t.Errorf("resolved an unbound name")
	}
	if st.Depth() != 1 {
		t.Errorf("got depth %d, want 1", st.Depth())
	}
}

func TestShadowing(t *testing.T) {
	tu := analyze(t, `
int x;
int f() {
  int x = 1;
  {
    int x = 2;
    x = 3;
  }
  return x;
}
int g() { return x; }
`)
	global := tu.Decls[0]
	f := function(t, tu, "f")
	local := f.Body.Subs[0].(*asg.DeclStmt).Decls[0]
	block := f.Body.Subs[1].(*asg.CompoundStmt)
	innerDecl := block.Subs[0].(*asg.DeclStmt).Decls[0]
	assign := block.Subs[1].(*asg.ExprStmt).Expr.(*asg.BinaryExpr)

	if got := refTarget(t, assign.LHS); got != innerDecl {
		t.Errorf("assignment in inner block should target the inner x")
	}
	if got := refTarget(t, lastReturn(f).Expr); got != local {
		t.Errorf("return after the block should see f's local x")
	}
	if got := refTarget(t, lastReturn(function(t, tu, "g")).Expr); got != global {
		t.Errorf("g should see the global x")
	}
}

func TestInitializerSeesOuterBinding(t *testing.T) {
	tu := analyze(t, "int x = 1; int f() { int x = x + 1; return x; }")
	f := function(t, tu, "f")
	local := f.Body.Subs[0].(*asg.DeclStmt).Decls[0].(*asg.VarDecl)
	add := strip(local.Init).(*asg.BinaryExpr)
	if got := refTarget(t, add.LHS); got != tu.Decls[0] {
		t.Errorf("initializer should refer to the global x")
	}
}

func TestRedeclarationLastWins(t *testing.T) {
	tu := analyze(t, `
int x;
int x;
int f() {
  int y = 1;
  int y = 2;
  return x + y;
}
`)
	f := function(t, tu, "f")
	second := f.Body.Subs[1].(*asg.DeclStmt).Decls[0]
	add := strip(lastReturn(f).Expr).(*asg.BinaryExpr)
	if got := refTarget(t, add.LHS); got != tu.Decls[1] {
		t.Errorf("x should resolve to the second global declaration")
	}
	if got := refTarget(t, add.RHS); got != second {
		t.Errorf("y should resolve to the second local declaration")
	}
}

func TestRecursionAndParams(t *testing.T) {
	tu := analyze(t, "int f(int n) { return f(n); }")
	f := function(t, tu, "f")
	call := strip(lastReturn(f).Expr).(*asg.CallExpr)
	if got := refTarget(t, call.Callee); got != f {
		t.Errorf("callee should be f itself")
	}
	if got := refTarget(t, call.Args[0]); got != f.Params[0] {
		t.Errorf("argument should be the parameter n")
	}
	cast, ok := call.Callee.(*asg.ImplicitCastExpr)
	if !ok || cast.Kind != asg.FunctionToPointerDecay {
		t.Errorf("callee should decay to a function pointer, got %T", call.Callee)
	}
}

func TestLoopBinding(t *testing.T) {
	tu := analyze(t, `
int f() {
  while (1) {
    while (2) { break; }
    continue;
  }
  return 0;
}
`)
	f := function(t, tu, "f")
	outer := f.Body.Subs[0].(*asg.WhileStmt)
	body := outer.Body.(*asg.CompoundStmt)
	inner := body.Subs[0].(*asg.WhileStmt)
	brk := inner.Body.(*asg.CompoundStmt).Subs[0].(*asg.BreakStmt)
	cont := body.Subs[1].(*asg.ContinueStmt)
	if brk.Loop != inner {
		t.Errorf("break should bind to the inner loop")
	}
	if cont.Loop != outer {
		t.Errorf("continue should bind to the outer loop")
	}
	if lastReturn(f).Func != f {
		t.Errorf("return should bind to f")
	}
}

func TestArrayLengths(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"const sum", "const int N = 2+3; int a[N];", "int [5]"},
		{"nested const", "const int N = 4; const int M = N - 1; int a[-(-M)];", "int [3]"},
		{"braced const", "const int L = {7}; int a[L];", "int [7]"},
		{"empty braced const", "const int Z = {}; int a[Z + 2];", "int [2]"},
		{"parenthesized", "int a[(2)][(1+1)];", "int [2][2]"},
		{"hex and octal", "int a[0x10][010];", "int [16][8]"},
		{"long const", "const long K = 3; int a[K];", "int [3]"},
		{"char const wraps", "const char N = 300; int a[N];", "int [44]"},
		{"int const wraps", "const int W = 4294967298; int a[W];", "int [2]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tu := analyze(t, tt.input)
			last := tu.Decls[len(tu.Decls)-1].(*asg.VarDecl)
			if got := last.Typ.String(); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func shape(list []asg.Expr) []string {
	out := make([]string, len(list))
	for i, e := range list {
		switch x := strip(e).(type) {
		case *asg.ImplicitInitExpr:
			out[i] = "Imp"
		case *asg.IntegerLiteral:
			out[i] = fmt.Sprint(x.Value)
		default:
			out[i] = fmt.Sprintf("%T", x)
		}
	}
	return out
}

func TestInitializerFlattening(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantType string
		want     []string
	}{
		{"nested partial", "int a[2][2] = {{1,2},{3}};", "int [2][2]", []string{"1", "2", "3", "Imp"}},
		{"empty", "int a[3] = {};", "int [3]", []string{"Imp"}},
		{"elided braces", "int a[2][2] = {1,2,3};", "int [2][2]", []string{"1", "2", "3", "Imp"}},
		{"inner holes", "int a[2][3] = {{1},{2,3}};", "int [2][3]", []string{"1", "Imp", "Imp", "2", "3", "Imp"}},
		{"mixed braces", "int a[2][2] = {{1,2},3,4};", "int [2][2]", []string{"1", "2", "3", "4"}},
		{"full", "int a[3] = {1,2,3};", "int [3]", []string{"1", "2", "3"}},
		{"inferred length", "int a[] = {1,2,3};", "int [3]", []string{"1", "2", "3"}},
		{"inferred outer length", "int a[][2] = {1,2,3};", "int [2][2]", []string{"1", "2", "3", "Imp"}},
		{"braced scalar", "int x = {5};", "int", []string{"5"}},
		{"empty braced scalar", "int x = {};", "int", []string{"Imp"}},
		{"braced scalar element", "int a[2] = {{1}, 2};", "int [2]", []string{"1", "2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tu := analyze(t, tt.input)
			v := tu.Decls[0].(*asg.VarDecl)
			if got := v.Typ.String(); got != tt.wantType {
				t.Errorf("got type %s, want %s", got, tt.wantType)
			}
			list, ok := v.Init.(*asg.InitListExpr)
			if !ok {
				t.Fatalf("got %T, want *asg.InitListExpr", v.Init)
			}
			if diff := cmp.Diff(tt.want, shape(list.List)); diff != "" {
				t.Errorf("flattened list mismatch (-want +got):\n%s", diff)
			}
			for _, e := range list.List {
				if !ctypes.Equal(e.Type(), v.Typ.Scalar()) {
					t.Errorf("element typed %s, want %s", e.Type(), v.Typ.Scalar())
				}
			}
		})
	}
}

func TestImplicitCasts(t *testing.T) {
	tu := analyze(t, `
char c;
int f(int a) {
  long b;
  b = a + 1;
  return b;
}
int g() { return c + c; }
long h() { return 3000000000; }
int k(int *p, int q[3]) { return p[1] + q[0]; }
`)

	f := function(t, tu, "f")
	assign := f.Body.Subs[1].(*asg.ExprStmt).Expr.(*asg.BinaryExpr)
	if !assign.LHS.IsLValue() {
		t.Errorf("assignment target should be an lvalue")
	}
	conv, ok := assign.RHS.(*asg.ImplicitCastExpr)
	if !ok || conv.Kind != asg.IntegralCast || conv.Type().Spec != ctypes.Long {
		t.Errorf("int sum should be widened to long, got %T", assign.RHS)
	}
	ret := lastReturn(f).Expr.(*asg.ImplicitCastExpr)
	if ret.Kind != asg.IntegralCast || ret.Type().Spec != ctypes.Int {
		t.Errorf("got %s to %s, want IntegralCast to int", ret.Kind, ret.Type())
	}
	load := ret.Sub.(*asg.ImplicitCastExpr)
	if load.Kind != asg.LValueToRValue {
		t.Errorf("got %s, want LValueToRValue", load.Kind)
	}

	sum := strip(lastReturn(function(t, tu, "g")).Expr).(*asg.BinaryExpr)
	if sum.Type().Spec != ctypes.Int {
		t.Errorf("char + char should be int, got %s", sum.Type())
	}
	if c, ok := sum.LHS.(*asg.ImplicitCastExpr); !ok || c.Kind != asg.IntegralCast {
		t.Errorf("char operand should be promoted")
	}

	lit := lastReturn(function(t, tu, "h")).Expr
	if lit.Type().Spec != ctypes.Long {
		t.Errorf("large literal should be long, got %s", lit.Type())
	}

	k := function(t, tu, "k")
	if got := k.Params[1].Typ.String(); got != "int *" {
		t.Errorf("array parameter should be adjusted, got %s", got)
	}
	idx := strip(lastReturn(k).Expr).(*asg.BinaryExpr).LHS.(*asg.ImplicitCastExpr).Sub.(*asg.BinaryExpr)
	if idx.Op != asg.Index || !idx.IsLValue() || idx.Type().String() != "int" {
		t.Errorf("got %s %s, want an int lvalue index", idx.Op, idx.Type())
	}
}

func TestArrayDecay(t *testing.T) {
	tu := analyze(t, "int a[2][3]; int f() { return a[1][2]; }")
	outer := strip(lastReturn(function(t, tu, "f")).Expr).(*asg.BinaryExpr)
	base, ok := outer.LHS.(*asg.ImplicitCastExpr)
	if !ok || base.Kind != asg.ArrayToPointerDecay {
		t.Fatalf("row should decay to a pointer, got %T", outer.LHS)
	}
	if got := base.Type().String(); got != "int *" {
		t.Errorf("got %s, want int *", got)
	}
	inner := base.Sub.(*asg.BinaryExpr)
	if got := inner.Type().String(); got != "int [3]" {
		t.Errorf("got %s, want int [3]", got)
	}
	if got := inner.LHS.Type().String(); got != "int (*)[3]" {
		t.Errorf("got %s, want int (*)[3]", got)
	}
}

func TestPrototypesAndDeclarators(t *testing.T) {
	tu := analyze(t, `
int f(int, char *, int [3]);
int (*pick(int which))(int);
void g(void);
int f(int a, char *b, int c[3]) { return a; }
`)
	tests := []struct {
		idx  int
		want string
	}{
		{0, "int (int, char *, int *)"},
		{1, "int (*(int))(int)"},
		{2, "void (void)"},
		{3, "int (int, char *, int *)"},
	}
	for _, tt := range tests {
		d := tu.Decls[tt.idx]
		if got := d.DeclType().String(); got != tt.want {
			t.Errorf("%s: got %s, want %s", d.DeclName(), got, tt.want)
		}
	}
	pick := tu.Decls[1].(*asg.FunctionDecl)
	if len(pick.Params) != 1 || pick.Params[0].Name != "which" {
		t.Errorf("pick should keep its own parameter, got %v", pick.Params)
	}
}

// ErrorCase is a rejected program from sema.yaml
type ErrorCase struct {
	Name  string `yaml:"name"`
	Input string `yaml:"input"`
	Kind  string `yaml:"kind"`
	Error string `yaml:"error"`
}

func TestErrorsYAML(t *testing.T) {
	data, err := os.ReadFile("../../testdata/sema.yaml")
	if err != nil {
		t.Fatalf("failed to read sema.yaml: %v", err)
	}
	var file struct {
		Errors []ErrorCase `yaml:"errors"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		t.Fatalf("failed to parse sema.yaml: %v", err)
	}
	for _, tc := range file.Errors {
		t.Run(tc.Name, func(t *testing.T) {
			_, err := Analyze(parse(t, tc.Input))
			if err == nil {
				t.Fatalf("expected %s error containing %q", tc.Kind, tc.Error)
			}
			var se *Error
			if !errors.As(err, &se) {
				t.Fatalf("got %T, want *sema.Error", err)
			}
			if se.Kind.String() != tc.Kind {
				t.Errorf("got kind %q, want %q (%v)", se.Kind, tc.Kind, err)
			}
			if !strings.Contains(se.Msg, tc.Error) {
				t.Errorf("got %q, want it to contain %q", se.Msg, tc.Error)
			}
		})
	}
}

func TestErrorPosition(t *testing.T) {
	_, err := Analyze(parse(t, "int f() {\n  return zz;\n}"))
	var se *Error
	if !errors.As(err, &se) {
		t.Fatalf("got %v, want *sema.Error", err)
	}
	if se.Pos != (cabs.Pos{Line: 2, Column: 10}) {
		t.Errorf("got %+v, want line 2 col 10", se.Pos)
	}
	if !strings.HasPrefix(err.Error(), "line 2, col 10: resolution error:") {
		t.Errorf("got %q", err.Error())
	}
}
