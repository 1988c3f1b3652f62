package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func resetFlags() {
	dParse, dASG, asgYAML, dIR, dSSA = false, false, false, false, false
	noMem2Reg, verifyLLVM, verbose = false, false, false
}

// writeSource puts src into a fresh directory and returns the input and
// output paths
func writeSource(t *testing.T, src string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "prog.c")
	if err := os.WriteFile(input, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return input, filepath.Join(dir, "prog.ll")
}

func TestVersion(t *testing.T) {
	if version == "" {
		t.Error("version should not be empty")
	}
}

func TestFlagsExist(t *testing.T) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	for _, name := range []string{"dparse", "dasg", "asg-yaml", "dir", "dssa", "no-mem2reg", "verify-llvm", "verbose"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected flag --%s to exist", name)
		}
	}
}

func TestNormalizeFlags(t *testing.T) {
	got := normalizeFlags([]string{"-dparse", "-dssa", "-v", "--dir", "-dfoo", "a.c"})
	want := []string{"--dparse", "--dssa", "-v", "--dir", "-dfoo", "a.c"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("normalizeFlags mismatch (-want +got):\n%s", diff)
	}
}

func TestUnderscoreFlags(t *testing.T) {
	defer resetFlags()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	if err := cmd.ParseFlags([]string{"--no_mem2reg", "--asg_yaml"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	if !noMem2Reg || !asgYAML {
		t.Errorf("got noMem2Reg=%v asgYAML=%v, want both set", noMem2Reg, asgYAML)
	}
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name string
		src  string
		args func(in, out string) []string
		want int
	}{
		{"ok", "int main() { return 0; }", func(in, out string) []string { return []string{in, out} }, exitOK},
		{"missing output", "int main() { return 0; }", func(in, out string) []string { return []string{in} }, exitUsage},
		{"unknown flag", "int main() { return 0; }", func(in, out string) []string { return []string{"--frobnicate", in, out} }, exitUsage},
		{"unreadable input", "", func(in, out string) []string { return []string{in + ".missing", out} }, exitInput},
		{"unwritable output", "int main() { return 0; }", func(in, out string) []string {
			return []string{in, filepath.Join(out, "no", "such", "dir.ll")}
		}, exitOutput},
		{"syntax error", "int main( {", func(in, out string) []string { return []string{in, out} }, exitCompile},
		{"semantic error", "int main() { return y; }", func(in, out string) []string { return []string{in, out} }, exitCompile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			in, out := writeSource(t, tt.src)
			var stdout, stderr bytes.Buffer
			if got := execute(tt.args(in, out), &stdout, &stderr); got != tt.want {
				t.Errorf("got exit code %d, want %d (stderr %q)", got, tt.want, stderr.String())
			}
			if tt.want != exitOK && !strings.HasPrefix(stderr.String(), "sysu-cc: error: ") {
				t.Errorf("got stderr %q, want a sysu-cc: error: line", stderr.String())
			}
		})
	}
}

func TestCompileWritesOutput(t *testing.T) {
	resetFlags()
	in, out := writeSource(t, "int main() { int x = 1; return x + 2; }")
	var stdout, stderr bytes.Buffer
	if code := execute([]string{in, out}, &stdout, &stderr); code != exitOK {
		t.Fatalf("got exit code %d: %s", code, stderr.String())
	}
	text, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(text), "define i32 @main()") {
		t.Errorf("output has no main:\n%s", text)
	}
	if strings.Contains(string(text), "alloca") {
		t.Errorf("output was not promoted:\n%s", text)
	}
	if stdout.Len() != 0 || stderr.Len() != 0 {
		t.Errorf("got unexpected output %q %q", stdout.String(), stderr.String())
	}
}

func TestDumpFlags(t *testing.T) {
	tests := []struct {
		flag   string
		suffix string
		want   string
		echoed bool
	}{
		{"-dparse", ".parsed.c", "int main()", true},
		{"-dasg", ".asg", "FunctionDecl", true},
		{"--asg-yaml", ".asg.yaml", "kind: TranslationUnit", false},
		{"-dir", ".mem.ll", "alloca i32", true},
	}
	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			resetFlags()
			in, out := writeSource(t, "int main(void) { int x = 4; return x; }")
			var stdout, stderr bytes.Buffer
			if code := execute(normalizeFlags([]string{tt.flag, in, out}), &stdout, &stderr); code != exitOK {
				t.Fatalf("got exit code %d: %s", code, stderr.String())
			}
			data, err := os.ReadFile(strings.TrimSuffix(in, ".c") + tt.suffix)
			if err != nil {
				t.Fatalf("dump file missing: %v", err)
			}
			if !strings.Contains(string(data), tt.want) {
				t.Errorf("dump does not contain %q:\n%s", tt.want, data)
			}
			if tt.echoed && stdout.String() != string(data) {
				t.Errorf("stdout does not echo the dump:\n%s", stdout.String())
			}
		})
	}
}

// closeFailer accepts writes and fails on close, like a file whose
// buffered data cannot be flushed
type closeFailer struct {
	bytes.Buffer
}

func (*closeFailer) Close() error { return errors.New("disk full") }

func TestDumpCloseError(t *testing.T) {
	defer func(orig func(string) (io.WriteCloser, error)) { createFile = orig }(createFile)
	createFile = func(string) (io.WriteCloser, error) { return &closeFailer{}, nil }

	for _, flag := range []string{"-dasg", "--asg-yaml", "-dir"} {
		t.Run(flag, func(t *testing.T) {
			resetFlags()
			in, out := writeSource(t, "int main() { return 0; }")
			var stdout, stderr bytes.Buffer
			if code := execute(normalizeFlags([]string{flag, in, out}), &stdout, &stderr); code != exitOutput {
				t.Errorf("got exit code %d, want %d (stderr %q)", code, exitOutput, stderr.String())
			}
			if !strings.Contains(stderr.String(), "disk full") {
				t.Errorf("close error not reported: %q", stderr.String())
			}
		})
	}
}

func TestDSSAEchoesOutput(t *testing.T) {
	resetFlags()
	in, out := writeSource(t, "int main() { return 7; }")
	var stdout, stderr bytes.Buffer
	if code := execute([]string{"--dssa", in, out}, &stdout, &stderr); code != exitOK {
		t.Fatalf("got exit code %d: %s", code, stderr.String())
	}
	text, _ := os.ReadFile(out)
	if stdout.String() != string(text) {
		t.Errorf("stdout %q does not match the output file %q", stdout.String(), text)
	}
}

func TestNoMem2Reg(t *testing.T) {
	resetFlags()
	in, out := writeSource(t, "int main() { int x = 1; return x; }")
	var stdout, stderr bytes.Buffer
	if code := execute([]string{"--no-mem2reg", in, out}, &stdout, &stderr); code != exitOK {
		t.Fatalf("got exit code %d: %s", code, stderr.String())
	}
	text, _ := os.ReadFile(out)
	if !strings.Contains(string(text), "alloca i32") {
		t.Errorf("memory form expected without promotion:\n%s", text)
	}
}

func TestVerifyLLVM(t *testing.T) {
	src := `int g[3] = {4, 5};
int first(int *p) { return p[0]; }
int main() {
  int a[2][2] = {{1}, {2, 3}};
  int *q = g;
  return first(q) + a[1][1] + g[2];
}
`
	for _, extra := range [][]string{nil, {"--no-mem2reg"}} {
		resetFlags()
		in, out := writeSource(t, src)
		args := append([]string{"--verify-llvm"}, extra...)
		var stdout, stderr bytes.Buffer
		if code := execute(append(args, in, out), &stdout, &stderr); code != exitOK {
			t.Errorf("%v: got exit code %d: %s", args, code, stderr.String())
		}
	}
}

func TestVerbose(t *testing.T) {
	resetFlags()
	in, out := writeSource(t, "int f(int n) { int r = 0; while (n) { r = r + n; n = n - 1; } return r; }")
	var stdout, stderr bytes.Buffer
	if code := execute([]string{"-v", in, out}, &stdout, &stderr); code != exitOK {
		t.Fatalf("got exit code %d: %s", code, stderr.String())
	}
	want := "sysu-cc: mem2reg: @f: promoted 2 of 2 slots, inserted 2 phis, removed 0 phis"
	if !strings.Contains(stderr.String(), want) {
		t.Errorf("verbose output missing %q:\n%s", want, stderr.String())
	}
}

func TestSemanticErrorMessage(t *testing.T) {
	resetFlags()
	in, out := writeSource(t, "int main() {\n  return y;\n}\n")
	var stdout, stderr bytes.Buffer
	execute([]string{in, out}, &stdout, &stderr)
	want := "sysu-cc: error: line 2, col 10: resolution error: use of undeclared identifier 'y'\n"
	if stderr.String() != want {
		t.Errorf("got %q, want %q", stderr.String(), want)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("output written despite the error")
	}
}
