package parser

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/yHan234/SYsU-lang-Compiler/pkg/cabs"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/lexer"
	"gopkg.in/yaml.v3"
)

// TestSpec is a round-trip case from parse.yaml
type TestSpec struct {
	Name   string `yaml:"name"`
	Input  string `yaml:"input"`
	Output string `yaml:"output"`
}

// ErrorSpec is a rejected-input case from parse.yaml
type ErrorSpec struct {
	Name  string `yaml:"name"`
	Input string `yaml:"input"`
	Error string `yaml:"error"`
}

// TestFile represents the parse.yaml file structure
type TestFile struct {
	Tests  []TestSpec  `yaml:"tests"`
	Errors []ErrorSpec `yaml:"errors"`
}

func loadTestFile(t *testing.T) TestFile {
	t.Helper()
	data, err := os.ReadFile("../../testdata/parse.yaml")
	if err != nil {
		t.Fatalf("failed to read parse.yaml: %v", err)
	}
	var testFile TestFile
	if err := yaml.Unmarshal(data, &testFile); err != nil {
		t.Fatalf("failed to parse parse.yaml: %v", err)
	}
	return testFile
}

func parse(input string) (*cabs.Program, []string) {
	p := New(lexer.New(input))
	prog := p.ParseProgram()
	return prog, p.Errors()
}

func TestParseYAML(t *testing.T) {
	for _, tc := range loadTestFile(t).Tests {
		t.Run(tc.Name, func(t *testing.T) {
			prog, errs := parse(tc.Input)
			if len(errs) > 0 {
				t.Fatalf("parser errors: %v", errs)
			}
			var buf bytes.Buffer
			cabs.NewPrinter(&buf).PrintProgram(prog)
			got := strings.TrimSpace(buf.String())
			want := strings.TrimSpace(tc.Output)
			if got != want {
				t.Errorf("printed program mismatch\ngot:\n%s\nwant:\n%s", got, want)
			}
		})
	}
}

func TestParseErrorsYAML(t *testing.T) {
	for _, tc := range loadTestFile(t).Errors {
		t.Run(tc.Name, func(t *testing.T) {
			_, errs := parse(tc.Input)
			if len(errs) == 0 {
				t.Fatal("expected parse errors, got none")
			}
			if !strings.Contains(errs[0], tc.Error) {
				t.Errorf("first error = %q, want it to contain %q", errs[0], tc.Error)
			}
		})
	}
}

func parseExpr(t *testing.T, src string) cabs.Expr {
	t.Helper()
	prog, errs := parse("int main() { " + src + "; }")
	if len(errs) > 0 {
		t.Fatalf("parser errors: %v", errs)
	}
	fn := prog.Definitions[0].(cabs.FunDef)
	return fn.Body.Items[0].(cabs.ExprStmt).Expr
}

func TestPrecedence(t *testing.T) {
	tests := []struct {
		src    string
		rootOp cabs.BinaryOp
		leftOp cabs.BinaryOp
	}{
		{"a = b = c", cabs.OpAssign, -1},
		{"a || b && c", cabs.OpOr, -1},
		{"a && b || c", cabs.OpOr, cabs.OpAnd},
		{"a + b * c", cabs.OpAdd, -1},
		{"a - b - c", cabs.OpSub, cabs.OpSub},
		{"a < b == c", cabs.OpEq, cabs.OpLt},
		{"a, b = c", cabs.OpComma, -1},
		{"a & b | c", cabs.OpBitOr, cabs.OpBitAnd},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			root, ok := parseExpr(t, tt.src).(cabs.Binary)
			if !ok {
				t.Fatalf("root is not Binary")
			}
			if root.Op != tt.rootOp {
				t.Errorf("root op = %s, want %s", root.Op, tt.rootOp)
			}
			if tt.leftOp >= 0 {
				left, ok := root.Left.(cabs.Binary)
				if !ok || left.Op != tt.leftOp {
					t.Errorf("left = %#v, want Binary %s", root.Left, tt.leftOp)
				}
			}
		})
	}
}

func TestAssignIsRightAssociative(t *testing.T) {
	root := parseExpr(t, "a = b = 1").(cabs.Binary)
	if _, ok := root.Left.(cabs.Variable); !ok {
		t.Errorf("left = %T, want Variable", root.Left)
	}
	if r, ok := root.Right.(cabs.Binary); !ok || r.Op != cabs.OpAssign {
		t.Errorf("right = %#v, want nested assignment", root.Right)
	}
}

func TestPostfixChain(t *testing.T) {
	e := parseExpr(t, "f(1)(2)[3]")
	idx, ok := e.(cabs.Index)
	if !ok {
		t.Fatalf("got %T, want Index", e)
	}
	inner, ok := idx.Array.(cabs.Call)
	if !ok || len(inner.Args) != 1 {
		t.Fatalf("base = %#v, want Call with one arg", idx.Array)
	}
	if _, ok := inner.Func.(cabs.Call); !ok {
		t.Errorf("callee = %T, want Call", inner.Func)
	}
}

func TestUnary(t *testing.T) {
	u, ok := parseExpr(t, "-!+x").(cabs.Unary)
	if !ok || u.Op != cabs.OpNeg {
		t.Fatalf("got %#v, want negation", u)
	}
	n, ok := u.Expr.(cabs.Unary)
	if !ok || n.Op != cabs.OpNot {
		t.Fatalf("inner = %#v, want logical not", u.Expr)
	}
}

func TestDeclaratorShapes(t *testing.T) {
	prog, errs := parse("int *a[3]; int (*p)[4]; int m[2][3];")
	if len(errs) > 0 {
		t.Fatalf("parser errors: %v", errs)
	}

	d0 := prog.Definitions[0].(cabs.Declaration).Decls[0].Decl
	ptr, ok := d0.(cabs.PointerDecl)
	if !ok {
		t.Fatalf("*a[3]: got %T, want PointerDecl", d0)
	}
	if _, ok := ptr.Inner.(cabs.ArrayDecl); !ok {
		t.Errorf("*a[3]: inner %T, want ArrayDecl", ptr.Inner)
	}

	d1 := prog.Definitions[1].(cabs.Declaration).Decls[0].Decl
	arr, ok := d1.(cabs.ArrayDecl)
	if !ok {
		t.Fatalf("(*p)[4]: got %T, want ArrayDecl", d1)
	}
	if _, ok := arr.Inner.(cabs.PointerDecl); !ok {
		t.Errorf("(*p)[4]: inner %T, want PointerDecl", arr.Inner)
	}

	d2 := prog.Definitions[2].(cabs.Declaration).Decls[0].Decl
	outer := d2.(cabs.ArrayDecl)
	if c := outer.Size.(cabs.Constant); c.Value != 3 {
		t.Errorf("m: outer bracket = %d, want 3", c.Value)
	}
	if cabs.DeclaratorName(d2) != "m" {
		t.Errorf("DeclaratorName = %q, want m", cabs.DeclaratorName(d2))
	}
}

func TestParseInteger(t *testing.T) {
	tests := []struct {
		lit  string
		want int64
	}{
		{"0", 0},
		{"42", 42},
		{"0x2a", 42},
		{"052", 42},
		{"42L", 42},
	}
	for _, tt := range tests {
		got, err := ParseInteger(tt.lit)
		if err != nil || got != tt.want {
			t.Errorf("ParseInteger(%q) = %d, %v; want %d", tt.lit, got, err, tt.want)
		}
	}
}
