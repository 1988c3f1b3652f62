package sema

import (
	"fmt"

	"github.com/yHan234/SYsU-lang-Compiler/pkg/cabs"
)

// ErrorKind classifies front-end failures
type ErrorKind int

const (
	Resolution       ErrorKind = iota // identifier not found in any scope
	TypeConstruction                  // bad specifier list or declarator shape
	ConstEval                         // array length is not a compile-time constant
	Structural                        // unsupported statement, expression or declaration form
	TypeCheck                         // operands have the wrong types or value category
)

func (k ErrorKind) String() string {
	names := []string{"resolution", "type construction", "constant evaluation", "structural", "type check"}
	if int(k) < len(names) {
		return names[k]
	}
	return "unknown"
}

// Error is a fatal front-end diagnostic
type Error struct {
	Kind ErrorKind
	Pos  cabs.Pos
	Msg  string
}

func (e *Error) Error() string {
	if e.Pos.Line > 0 {
		return fmt.Sprintf("line %d, col %d: %s error: %s", e.Pos.Line, e.Pos.Column, e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Msg)
}

func errorf(kind ErrorKind, pos cabs.Pos, format string, args ...any) *Error {
	return &Error{Kind: kind, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}
