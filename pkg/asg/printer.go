package asg

import (
	"fmt"
	"io"
	"strings"
)

// Printer dumps the semantic graph as an indented tree. References are
// printed as #id so that sharing is visible.
type Printer struct {
	w      io.Writer
	indent int
}

// NewPrinter creates a new semantic graph printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintTranslationUnit prints the whole graph
func (p *Printer) PrintTranslationUnit(tu *TranslationUnit) {
	p.line("TranslationUnit #%d", tu.ID())
	p.nested(func() {
		for _, d := range tu.Decls {
			p.printDecl(d)
		}
	})
}

func (p *Printer) line(format string, args ...any) {
	fmt.Fprint(p.w, strings.Repeat("  ", p.indent))
	fmt.Fprintf(p.w, format, args...)
	fmt.Fprintln(p.w)
}

func (p *Printer) nested(f func()) {
	p.indent++
	f()
	p.indent--
}

func (p *Printer) printDecl(d Decl) {
	switch d := d.(type) {
	case *VarDecl:
		p.line("VarDecl #%d %s '%s'", d.ID(), d.Name, d.Typ)
		if d.Init != nil {
			p.nested(func() { p.printExpr(d.Init) })
		}
	case *FunctionDecl:
		p.line("FunctionDecl #%d %s '%s'", d.ID(), d.Name, d.Typ)
		p.nested(func() {
			for _, prm := range d.Params {
				p.printDecl(prm)
			}
			if d.Body != nil {
				p.printStmt(d.Body)
			}
		})
	default:
		panic(fmt.Sprintf("asg: unhandled declaration %T", d))
	}
}

func (p *Printer) printStmt(s Stmt) {
	switch s := s.(type) {
	case *CompoundStmt:
		p.line("CompoundStmt #%d", s.ID())
		p.nested(func() {
			for _, sub := range s.Subs {
				p.printStmt(sub)
			}
		})
	case *DeclStmt:
		p.line("DeclStmt #%d", s.ID())
		p.nested(func() {
			for _, d := range s.Decls {
				p.printDecl(d)
			}
		})
	case *ExprStmt:
		p.line("ExprStmt #%d", s.ID())
		p.nested(func() { p.printExpr(s.Expr) })
	case *NullStmt:
		p.line("NullStmt #%d", s.ID())
	case *IfStmt:
		p.line("IfStmt #%d", s.ID())
		p.nested(func() {
			p.printExpr(s.Cond)
			p.printStmt(s.Then)
			if s.Else != nil {
				p.printStmt(s.Else)
			}
		})
	case *WhileStmt:
		p.line("WhileStmt #%d", s.ID())
		p.nested(func() {
			p.printExpr(s.Cond)
			p.printStmt(s.Body)
		})
	case *BreakStmt:
		p.line("BreakStmt #%d -> #%d", s.ID(), s.Loop.ID())
	case *ContinueStmt:
		p.line("ContinueStmt #%d -> #%d", s.ID(), s.Loop.ID())
	case *ReturnStmt:
		p.line("ReturnStmt #%d -> #%d", s.ID(), s.Func.ID())
		if s.Expr != nil {
			p.nested(func() { p.printExpr(s.Expr) })
		}
	default:
		panic(fmt.Sprintf("asg: unhandled statement %T", s))
	}
}

func typeSuffix(e Expr) string {
	if e.Type() == nil {
		return ""
	}
	if e.IsLValue() {
		return fmt.Sprintf(" '%s' lvalue", e.Type())
	}
	return fmt.Sprintf(" '%s'", e.Type())
}

func (p *Printer) printExpr(e Expr) {
	ts := typeSuffix(e)
	switch e := e.(type) {
	case *IntegerLiteral:
		p.line("IntegerLiteral #%d%s %d", e.ID(), ts, e.Value)
	case *DeclRefExpr:
		p.line("DeclRefExpr #%d%s -> #%d %s", e.ID(), ts, e.Decl.ID(), e.Decl.DeclName())
	case *ParenExpr:
		p.line("ParenExpr #%d%s", e.ID(), ts)
		p.nested(func() { p.printExpr(e.Sub) })
	case *UnaryExpr:
		p.line("UnaryExpr #%d%s '%s'", e.ID(), ts, e.Op)
		p.nested(func() { p.printExpr(e.Sub) })
	case *BinaryExpr:
		p.line("BinaryExpr #%d%s '%s'", e.ID(), ts, e.Op)
		p.nested(func() {
			p.printExpr(e.LHS)
			p.printExpr(e.RHS)
		})
	case *CallExpr:
		p.line("CallExpr #%d%s", e.ID(), ts)
		p.nested(func() {
			p.printExpr(e.Callee)
			for _, a := range e.Args {
				p.printExpr(a)
			}
		})
	case *InitListExpr:
		p.line("InitListExpr #%d%s", e.ID(), ts)
		p.nested(func() {
			for _, x := range e.List {
				p.printExpr(x)
			}
		})
	case *ImplicitInitExpr:
		p.line("ImplicitInitExpr #%d%s", e.ID(), ts)
	case *ImplicitCastExpr:
		p.line("ImplicitCastExpr #%d%s <%s>", e.ID(), ts, e.Kind)
		p.nested(func() { p.printExpr(e.Sub) })
	default:
		panic(fmt.Sprintf("asg: unhandled expression %T", e))
	}
}
