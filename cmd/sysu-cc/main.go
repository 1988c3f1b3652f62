package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/yHan234/SYsU-lang-Compiler/pkg/asg"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/cabs"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/driver"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/sema"
)

var version = "0.1.0"

// Debug flags for dumping intermediate representations
var (
	dParse  bool
	dASG    bool
	asgYAML bool
	dIR     bool
	dSSA    bool
)

// Pipeline options
var (
	noMem2Reg  bool
	verifyLLVM bool
	verbose    bool
)

// Exit codes
const (
	exitOK = iota
	exitUsage
	exitInput
	exitOutput
	exitCompile
	exitVerify
)

var (
	// ErrInput wraps failures to read the source file
	ErrInput = errors.New("cannot read input")
	// ErrOutput wraps failures to write the output or a dump file
	ErrOutput = errors.New("cannot write output")
)

func main() {
	os.Exit(run())
}

func run() int {
	return execute(normalizeFlags(os.Args[1:]), os.Stdout, os.Stderr)
}

// execute runs the command and maps its error to an exit code
func execute(args []string, out, errOut io.Writer) int {
	rootCmd := newRootCmd(out, errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	if err == nil {
		return exitOK
	}
	report(errOut, err)
	return exitCode(err)
}

func exitCode(err error) int {
	var se *driver.StageError
	switch {
	case errors.Is(err, ErrInput):
		return exitInput
	case errors.Is(err, ErrOutput):
		return exitOutput
	case errors.As(err, &se):
		if se.Stage == driver.StageParse || se.Stage == driver.StageSema {
			return exitCompile
		}
		return exitVerify
	}
	return exitUsage
}

// report writes one `sysu-cc: error:` line per diagnostic
func report(w io.Writer, err error) {
	tag := "error:"
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		tag = "\x1b[1;31merror:\x1b[0m"
	}
	var se *driver.StageError
	var semaErr *sema.Error
	switch {
	case errors.As(err, &se) && len(se.Errs) > 0:
		for _, e := range se.Errs {
			fmt.Fprintf(w, "sysu-cc: %s %s\n", tag, e)
		}
	case errors.As(err, &semaErr):
		fmt.Fprintf(w, "sysu-cc: %s %s\n", tag, semaErr)
	default:
		fmt.Fprintf(w, "sysu-cc: %s %v\n", tag, err)
	}
}

// debugFlagNames lists the flags that also accept a single dash
var debugFlagNames = []string{"dparse", "dasg", "dir", "dssa"}

// normalizeFlags converts single-dash debug flags like -dparse to --dparse
func normalizeFlags(args []string) []string {
	result := make([]string, len(args))
	for i, arg := range args {
		result[i] = arg
		for _, name := range debugFlagNames {
			if arg == "-"+name {
				result[i] = "--" + name
				break
			}
		}
	}
	return result
}

// wordSepNormalize accepts underscores in long flag names, so --no_mem2reg
// and --no-mem2reg name the same flag
func wordSepNormalize(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sysu-cc [flags] <input.c> <output.ll>",
		Short: "sysu-cc compiles a C subset to LLVM IR in SSA form",
		Long: `sysu-cc compiles a small C subset to LLVM-compatible IR. The
source is resolved into a typed semantic graph, lowered to
memory-form IR and promoted to SSA.`,
		Version:       version,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return compile(args[0], args[1], out, errOut)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.Flags().SetNormalizeFunc(wordSepNormalize)
	rootCmd.Flags().BoolVar(&dParse, "dparse", false, "Dump after parsing to <input>.parsed.c")
	rootCmd.Flags().BoolVar(&dASG, "dasg", false, "Dump the semantic graph to <input>.asg")
	rootCmd.Flags().BoolVar(&asgYAML, "asg-yaml", false, "Write the semantic graph interchange file <input>.asg.yaml")
	rootCmd.Flags().BoolVar(&dIR, "dir", false, "Dump memory-form IR to <input>.mem.ll")
	rootCmd.Flags().BoolVar(&dSSA, "dssa", false, "Echo the final IR to stdout")
	rootCmd.Flags().BoolVar(&noMem2Reg, "no-mem2reg", false, "Skip SSA promotion")
	rootCmd.Flags().BoolVar(&verifyLLVM, "verify-llvm", false, "Re-parse the output with the LLVM IR parser")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Report each pipeline stage")

	return rootCmd
}

// compile runs the pipeline on input and writes the IR to output. Dumps
// are written for every stage that completed, even when a later one fails.
func compile(input, output string, out, errOut io.Writer) error {
	src, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInput, err)
	}

	opts := driver.Options{
		Promote:    !noMem2Reg,
		VerifyLLVM: verifyLLVM,
		Verbose:    verbose,
		Log:        errOut,
	}
	res, cerr := driver.Compile(input, string(src), opts)
	if err := writeDumps(input, res, out); err != nil {
		return err
	}
	if cerr != nil {
		return cerr
	}

	text := res.Module.String()
	if err := os.WriteFile(output, []byte(text), 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrOutput, err)
	}
	if dSSA {
		fmt.Fprint(out, text)
	}
	return nil
}

func writeDumps(input string, res *driver.Result, out io.Writer) error {
	if dParse && res.AST != nil {
		if err := dump(dumpFilename(input, ".parsed.c"), out, func(w io.Writer) error {
			cabs.NewPrinter(w).PrintProgram(res.AST)
			return nil
		}); err != nil {
			return err
		}
	}
	if dASG && res.ASG != nil {
		if err := dump(dumpFilename(input, ".asg"), out, func(w io.Writer) error {
			asg.NewPrinter(w).PrintTranslationUnit(res.ASG)
			return nil
		}); err != nil {
			return err
		}
	}
	if asgYAML && res.ASG != nil {
		if err := writeFile(dumpFilename(input, ".asg.yaml"), func(w io.Writer) error {
			return asg.Encode(w, res.ASG)
		}); err != nil {
			return err
		}
	}
	if dIR && res.MemIR != "" {
		if err := dump(dumpFilename(input, ".mem.ll"), out, func(w io.Writer) error {
			_, err := io.WriteString(w, res.MemIR)
			return err
		}); err != nil {
			return err
		}
	}
	return nil
}

// dump writes a debug file and echoes it to out
func dump(name string, out io.Writer, print func(io.Writer) error) error {
	return writeFile(name, func(w io.Writer) error {
		return print(io.MultiWriter(w, out))
	})
}

// createFile opens a dump file for writing
var createFile = func(name string) (io.WriteCloser, error) {
	return os.Create(name)
}

// writeFile creates name and fills it with write. A failed close is
// reported like a failed write.
func writeFile(name string, write func(io.Writer) error) error {
	f, err := createFile(name)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOutput, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("%w: %s: %v", ErrOutput, name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrOutput, name, err)
	}
	return nil
}

// dumpFilename derives a dump name from the input: input.c -> input<suffix>
func dumpFilename(input, suffix string) string {
	return strings.TrimSuffix(input, ".c") + suffix
}
