// Package llverify re-reads emitted IR text with an independent LLVM IR
// parser, so that output the hand-written printer gets wrong is caught
// before it reaches a backend. The parser predates opaque pointers, so
// modules are checked in their typed-pointer rendering.
package llverify

import (
	"errors"
	"fmt"

	"github.com/llir/llvm/asm"
	llvmir "github.com/llir/llvm/ir"

	"github.com/yHan234/SYsU-lang-Compiler/pkg/ir"
)

// ErrRejected reports text the LLVM IR parser does not accept, or a parse
// that disagrees with the module it was printed from.
var ErrRejected = errors.New("llverify: module rejected")

// Check parses text as an LLVM IR module.
func Check(name, text string) error {
	_, err := parse(name, text)
	return err
}

// CheckModule prints m with typed pointers, parses the result and compares
// the function layout with m.
func CheckModule(m *ir.Module) error {
	parsed, err := parse(m.Name, m.TypedString())
	if err != nil {
		return err
	}
	funcs := make(map[string]*llvmir.Func, len(parsed.Funcs))
	for _, f := range parsed.Funcs {
		funcs[f.Name()] = f
	}
	for _, f := range m.Funcs {
		pf, ok := funcs[f.Name]
		if !ok {
			return fmt.Errorf("%w: function @%s is missing after parsing", ErrRejected, f.Name)
		}
		if len(pf.Params) != len(f.Params) {
			return fmt.Errorf("%w: @%s has %d parameters after parsing, want %d", ErrRejected, f.Name, len(pf.Params), len(f.Params))
		}
		if len(pf.Blocks) != len(f.Blocks) {
			return fmt.Errorf("%w: @%s has %d blocks after parsing, want %d", ErrRejected, f.Name, len(pf.Blocks), len(f.Blocks))
		}
	}
	if len(parsed.Globals) < len(m.Globals) {
		return fmt.Errorf("%w: %d globals after parsing, want at least %d", ErrRejected, len(parsed.Globals), len(m.Globals))
	}
	return nil
}

func parse(name, text string) (*llvmir.Module, error) {
	m, err := asm.ParseString(name, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRejected, err)
	}
	return m, nil
}
