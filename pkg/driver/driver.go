// Package driver runs the compilation pipeline: lexing and parsing,
// semantic graph construction and typing, code generation, SSA promotion
// and verification.
package driver

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/yHan234/SYsU-lang-Compiler/pkg/asg"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/cabs"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/ir"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/irgen"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/lexer"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/llverify"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/mem2reg"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/parser"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/sema"
)

// Stage names, as reported in StageError and verbose output.
const (
	StageParse    = "parse"
	StageSema     = "sema"
	StageIRGen    = "irgen"
	StageMem2Reg  = "mem2reg"
	StageLLVerify = "llverify"
)

// ErrSyntax is wrapped by parse failures.
var ErrSyntax = errors.New("syntax error")

// Options controls the pipeline.
type Options struct {
	Promote    bool      // run SSA promotion
	VerifyLLVM bool      // re-parse the output with the LLVM IR parser
	Verbose    bool      // report each stage on Log
	Log        io.Writer // destination of verbose output
}

// DefaultOptions promotes and skips the LLVM re-parse.
func DefaultOptions() Options {
	return Options{Promote: true}
}

// Result keeps every intermediate artifact of a compilation.
type Result struct {
	AST    *cabs.Program
	ASG    *asg.TranslationUnit
	MemIR  string // module text before promotion
	Module *ir.Module
	Stats  []mem2reg.Stats
}

// StageError is a failure of one pipeline stage.
type StageError struct {
	Stage string
	Errs  []string // individual parser diagnostics
	Err   error
}

func (e *StageError) Error() string {
	if len(e.Errs) > 0 {
		return fmt.Sprintf("%s: %s", e.Stage, strings.Join(e.Errs, "; "))
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Compile runs the whole pipeline on src. name is used as the module
// name of the generated IR.
func Compile(name, src string, opts Options) (*Result, error) {
	res := &Result{}
	logf := func(stage, format string, args ...any) {
		if opts.Verbose && opts.Log != nil {
			fmt.Fprintf(opts.Log, "sysu-cc: %s: %s\n", stage, fmt.Sprintf(format, args...))
		}
	}

	p := parser.New(lexer.New(src))
	res.AST = p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		return res, &StageError{Stage: StageParse, Errs: errs, Err: ErrSyntax}
	}
	logf(StageParse, "%d top-level definitions", len(res.AST.Definitions))

	tu, err := sema.Analyze(res.AST)
	if err != nil {
		return res, &StageError{Stage: StageSema, Err: err}
	}
	res.ASG = tu
	logf(StageSema, "%d nodes", tu.Arena.Len())

	mod := irgen.Generate(name, tu)
	if err := ir.Verify(mod); err != nil {
		return res, &StageError{Stage: StageIRGen, Err: err}
	}
	res.Module = mod
	res.MemIR = mod.String()
	logf(StageIRGen, "%d functions, %d globals", len(mod.Funcs), len(mod.Globals))

	if opts.Promote {
		res.Stats = mem2reg.PromoteModule(mod)
		for _, s := range res.Stats {
			logf(StageMem2Reg, "%s", s)
		}
		if err := ir.Verify(mod); err != nil {
			return res, &StageError{Stage: StageMem2Reg, Err: err}
		}
	}

	if opts.VerifyLLVM {
		if err := llverify.CheckModule(mod); err != nil {
			return res, &StageError{Stage: StageLLVerify, Err: err}
		}
		logf(StageLLVerify, "accepted")
	}
	return res, nil
}
