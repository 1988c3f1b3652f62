package mem2reg

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/ir"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/irgen"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/irinterp"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/lexer"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/parser"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/sema"
)

func generate(t *testing.T, src string) *ir.Module {
	t.Helper()
	p := parser.New(lexer.New(src))
	prog := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("parser errors: %v", errs)
	}
	tu, err := sema.Analyze(prog)
	if err != nil {
		t.Fatalf("sema: %v", err)
	}
	return irgen.Generate("test.c", tu)
}

func promote(t *testing.T, src string) (*ir.Function, Stats) {
	t.Helper()
	m := generate(t, src)
	f := m.Func("f")
	if f == nil {
		t.Fatal("no function f")
	}
	stats := Promote(f)
	if err := ir.Verify(m); err != nil {
		t.Fatalf("promoted module does not verify: %v\n%s", err, m)
	}
	return f, stats
}

func phiNames(f *ir.Function) map[string][]string {
	out := make(map[string][]string)
	for _, b := range f.Blocks {
		for _, phi := range b.Phis() {
			out[b.Name] = append(out[b.Name], phi.Name)
		}
	}
	return out
}

func TestLoopScenario(t *testing.T) {
	f, stats := promote(t, `int f(int n) {
  int r = 0;
  while (n) {
    r = r + n;
    n = n - 1;
  }
  return r;
}`)
	counts := f.Instrs()
	for _, op := range []string{"alloca", "load", "store"} {
		if counts[op] != 0 {
			t.Errorf("got %d %s left, want 0", counts[op], op)
		}
	}
	want := map[string][]string{"while.cond": {"r.0", "n.addr.0"}}
	if diff := cmp.Diff(want, phiNames(f)); diff != "" {
		t.Errorf("phi placement mismatch (-want +got):\n%s", diff)
	}
	if stats.Promoted != 2 || stats.Slots != 2 || stats.PhisInserted != 2 || stats.PhisRemoved != 0 {
		t.Errorf("got stats %+v", stats)
	}
	if got, want := stats.String(), "@f: promoted 2 of 2 slots, inserted 2 phis, removed 0 phis"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDominators(t *testing.T) {
	m := generate(t, "int f(int a) { if (a) a = 1; else a = 2; while (a) a = a - 1; return a; }")
	dt := Dominators(m.Func("f"))
	got := make(map[string]string)
	for _, b := range m.Func("f").Blocks {
		if d := dt.IDom(b); d != nil {
			got[b.Name] = d.Name
		}
	}
	want := map[string]string{
		"if.then":    "entry",
		"if.else":    "entry",
		"if.end":     "entry",
		"while.cond": "if.end",
		"while.body": "while.cond",
		"while.end":  "while.cond",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("idom mismatch (-want +got):\n%s", diff)
	}

	frontier := func(name string) []string {
		var out []string
		for _, b := range m.Func("f").Blocks {
			if b.Name == name {
				for _, y := range dt.Frontier(b) {
					out = append(out, y.Name)
				}
			}
		}
		return out
	}
	if diff := cmp.Diff([]string{"if.end"}, frontier("if.then")); diff != "" {
		t.Errorf("frontier of if.then mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"while.cond"}, frontier("while.body")); diff != "" {
		t.Errorf("frontier of while.body mismatch (-want +got):\n%s", diff)
	}
}

func TestPhiPlacementIsMinimal(t *testing.T) {
	f, stats := promote(t, `int f(int a) {
  int x = 0;
  if (a) x = 1;
  int y = x;
  while (y < 10) y = y + 1;
  int z = 5;
  if (a) a = z;
  return y + a;
}`)
	// both if.end blocks share a label, so their phis are listed together
	want := map[string][]string{
		"if.end":     {"x.0", "a.addr.0"},
		"while.cond": {"y.0"},
	}
	got := phiNames(f)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("phi placement mismatch (-want +got):\n%s", diff)
	}
	if stats.PhisInserted != 3 || stats.PhisRemoved != 0 {
		t.Errorf("got %d inserted and %d removed, want 3 and 0", stats.PhisInserted, stats.PhisRemoved)
	}
}

func TestFastPaths(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"single store", "int f(int a) { int x = a + 1; if (a) return x; return x * 2; }"},
		{"single block", "int f(int a) { int x = a; x = x + 1; x = x * 2; return x; }"},
		{"block local in loop", "int f(int n) { int s = 0; while (n) { int t; t = n; s = s + t; n = n - 1; } return s; }"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, stats := promote(t, tt.src)
			if stats.Promoted != stats.Slots {
				t.Errorf("promoted %d of %d slots", stats.Promoted, stats.Slots)
			}
			if c := f.Instrs(); c["load"]+c["store"]+c["alloca"] != 0 {
				t.Errorf("memory traffic left: %v", c)
			}
		})
	}
}

func TestArraysStayInMemory(t *testing.T) {
	f, stats := promote(t, "int f(int i) { int a[2]; a[0] = i; a[1] = 2; return a[i]; }")
	if stats.Slots != 2 || stats.Promoted != 1 {
		t.Errorf("got %d of %d promoted, want 1 of 2", stats.Promoted, stats.Slots)
	}
	if got := f.Instrs()["alloca"]; got != 1 {
		t.Errorf("got %d allocas, want the array slot only", got)
	}
}

func TestUndefinedInputs(t *testing.T) {
	f, stats := promote(t, "int f(int a) { int x; if (a) x = 1; return x; }")
	if stats.PhisInserted != 1 || stats.PhisRemoved != 1 {
		t.Errorf("got %d inserted and %d removed, want 1 and 1", stats.PhisInserted, stats.PhisRemoved)
	}
	ret := f.Blocks[len(f.Blocks)-1].Terminator().(*ir.Ret)
	if c, ok := ret.Val.(*ir.Const); !ok || c.Value != 1 {
		t.Errorf("got ret %v, want the only stored constant", ret.Val)
	}

	f, _ = promote(t, "int f() { int x; return x; }")
	if ret := f.Entry().Terminator().(*ir.Ret); !ir.IsUndefined(ret.Val) {
		t.Errorf("got ret %v, want undef", ret.Val)
	}
}

func TestUndefinedInputMustDominate(t *testing.T) {
	// x is undefined on the first trip through the loop header and only
	// computed inside the body, which does not dominate the header.
	f, stats := promote(t, "int f(int n) { int x; while (n) { x = n * 2; n = n - 1; } return x; }")
	if stats.PhisRemoved != 0 {
		t.Errorf("removed %d phis, want 0", stats.PhisRemoved)
	}
	if got := len(phiNames(f)["while.cond"]); got != 2 {
		t.Errorf("got %d phis at the loop header, want 2", got)
	}
}

func TestUnreachablePredecessor(t *testing.T) {
	m := ir.NewModule("test")
	f := m.NewFunc("f", &ir.FuncType{Ret: ir.I32, Params: []ir.Type{ir.I1}}, "c")
	entry, then, dead, join := f.NewBlock("entry"), f.NewBlock("then"), f.NewBlock("dead"), f.NewBlock("join")
	x := &ir.Alloca{Elem: ir.I32}
	ir.SetName(x, "x")
	entry.Append(x)
	entry.Append(&ir.Store{Val: ir.ConstInt(ir.I32, 1), Dst: x})
	entry.Append(&ir.CondBr{Cond: f.Params[0], Then: then, Else: join})
	then.Append(&ir.Store{Val: ir.ConstInt(ir.I32, 2), Dst: x})
	then.Append(&ir.Br{Target: join})
	dead.Append(&ir.Store{Val: ir.ConstInt(ir.I32, 3), Dst: x})
	dead.Append(&ir.Br{Target: join})
	v := join.Append(&ir.Load{Elem: ir.I32, Src: x})
	join.Append(&ir.Ret{Val: v})

	stats := Promote(f)
	if err := ir.Verify(m); err != nil {
		t.Fatalf("promoted module does not verify: %v\n%s", err, m)
	}
	phis := join.Phis()
	if len(phis) != 1 || stats.PhisInserted != 1 {
		t.Fatalf("got %d phis, want 1", len(phis))
	}
	got := make(map[string]string)
	for _, inc := range phis[0].Incs {
		switch v := inc.Value.(type) {
		case *ir.Const:
			got[inc.Pred.Name] = v.Type().String()
		case *ir.Poison:
			got[inc.Pred.Name] = "poison"
		default:
			got[inc.Pred.Name] = "other"
		}
	}
	want := map[string]string{"entry": "i32", "then": "i32", "dead": "poison"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("incoming mismatch (-want +got):\n%s", diff)
	}
	if n := len(dead.Instrs); n != 1 {
		t.Errorf("got %d instructions in the dead block, want the branch only", n)
	}
}

func TestIdempotent(t *testing.T) {
	f, _ := promote(t, `int f(int n) {
  int a = 0;
  int b = 1;
  while (n > 0) {
    int t = a + b;
    a = b;
    b = t;
    n = n - 1;
  }
  return a;
}`)
	var before, after strings.Builder
	ir.NewPrinter(&before).PrintFunction(f)
	stats := Promote(f)
	ir.NewPrinter(&after).PrintFunction(f)
	if diff := cmp.Diff(before.String(), after.String()); diff != "" {
		t.Errorf("second promotion changed the function (-first +second):\n%s", diff)
	}
	if stats.Promoted != 0 || stats.PhisInserted != 0 || stats.PhisRemoved != 0 {
		t.Errorf("second promotion reported %+v", stats)
	}
}

func TestPromotionPreservesResults(t *testing.T) {
	tests := []struct {
		name string
		src  string
		args []int64
		want int64
	}{
		{"sum", "int f(int n) { int r = 0; while (n) { r = r + n; n = n - 1; } return r; }", []int64{10}, 55},
		{"fib", "int f(int n) { int a = 0; int b = 1; while (n > 0) { int t = a + b; a = b; b = t; n = n - 1; } return a; }", []int64{10}, 55},
		{"branches", "int f(int a) { int x = 0; if (a > 3) x = a; else if (a < 0) x = -a; return x; }", []int64{-7}, 7},
		{"short circuit", "int f(int a) { int x = 1; if (a > 0 && a < 5) x = 2; if (a < 0 || a > 10) x = 3; return x; }", []int64{3}, 2},
		{"break and continue", `int f(int n) {
  int i = 0;
  int s = 0;
  while (1) {
    i = i + 1;
    if (i > n) break;
    if (i % 2 == 0) continue;
    s = s + i;
  }
  return s;
}`, []int64{9}, 25},
		{"arrays", "int f(int n) { int a[4] = {1, 2}; a[3] = n; return a[0] + a[1] + a[2] + a[3]; }", []int64{4}, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := generate(t, tt.src)
			before, err := irinterp.New(m, nil).Run("f", tt.args...)
			if err != nil {
				t.Fatalf("memory form: %v", err)
			}
			PromoteModule(m)
			if err := ir.Verify(m); err != nil {
				t.Fatalf("promoted module does not verify: %v", err)
			}
			after, err := irinterp.New(m, nil).Run("f", tt.args...)
			if err != nil {
				t.Fatalf("SSA form: %v", err)
			}
			if before != tt.want || after != tt.want {
				t.Errorf("got %d before and %d after promotion, want %d", before, after, tt.want)
			}
		})
	}
}
