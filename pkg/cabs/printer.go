// Package cabs provides AST printing functionality
package cabs

import (
	"fmt"
	"io"
	"strings"
)

// Printer outputs the AST as C source
type Printer struct {
	w      io.Writer
	indent int
}

// NewPrinter creates a new AST printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintProgram prints a complete program
func (p *Printer) PrintProgram(prog *Program) {
	for i, def := range prog.Definitions {
		p.printDefinition(def)
		// Function bodies are separated by a blank line.
		if _, ok := def.(FunDef); ok && i < len(prog.Definitions)-1 {
			fmt.Fprintln(p.w)
		}
	}
}

func (p *Printer) writeIndent() {
	fmt.Fprint(p.w, strings.Repeat("  ", p.indent))
}

func (p *Printer) printDefinition(def Definition) {
	switch d := def.(type) {
	case FunDef:
		fmt.Fprintf(p.w, "%s %s\n", specString(d.Spec), p.declString(d.Decl))
		p.printBlock(d.Body)
	case Declaration:
		p.printDeclaration(d)
	default:
		fmt.Fprintf(p.w, "/* unknown definition %T */\n", def)
	}
}

func (p *Printer) printDeclaration(d Declaration) {
	fmt.Fprint(p.w, specString(d.Spec))
	for i, id := range d.Decls {
		if i > 0 {
			fmt.Fprint(p.w, ",")
		}
		fmt.Fprint(p.w, " ", p.declString(id.Decl))
		if id.Init != nil {
			fmt.Fprint(p.w, " = ")
			p.printInit(id.Init)
		}
	}
	fmt.Fprintln(p.w, ";")
}

func specString(s DeclSpec) string {
	parts := make([]string, len(s.Specs))
	for i, sp := range s.Specs {
		parts[i] = sp.String()
	}
	return strings.Join(parts, " ")
}

// declString renders a declarator back to C, adding the parentheses that
// pointer declarators need under array and function suffixes.
func (p *Printer) declString(d Declarator) string {
	switch x := d.(type) {
	case nil:
		return ""
	case IdentDecl:
		return x.Name
	case PointerDecl:
		if x.Const {
			return "* const " + p.declString(x.Inner)
		}
		return "*" + p.declString(x.Inner)
	case ArrayDecl:
		size := ""
		if x.Size != nil {
			size = p.exprString(x.Size)
		}
		return wrapPointer(x.Inner, p.declString(x.Inner)) + "[" + size + "]"
	case FuncDecl:
		var params []string
		if x.Idents != nil {
			params = x.Idents
		} else {
			for _, prm := range x.Params {
				s := specString(prm.Spec)
				if prm.Decl != nil {
					s += " " + p.declString(prm.Decl)
				}
				params = append(params, s)
			}
		}
		return wrapPointer(x.Inner, p.declString(x.Inner)) + "(" + strings.Join(params, ", ") + ")"
	}
	return fmt.Sprintf("/* unknown declarator %T */", d)
}

func wrapPointer(inner Declarator, s string) string {
	if _, ok := inner.(PointerDecl); ok {
		return "(" + s + ")"
	}
	return s
}

func (p *Printer) printInit(init Initializer) {
	switch i := init.(type) {
	case ExprInit:
		p.printExpr(i.Expr)
	case ListInit:
		fmt.Fprint(p.w, "{")
		for j, item := range i.Items {
			if j > 0 {
				fmt.Fprint(p.w, ", ")
			}
			p.printInit(item)
		}
		fmt.Fprint(p.w, "}")
	}
}

func (p *Printer) printBlock(b *Block) {
	p.writeIndent()
	fmt.Fprintln(p.w, "{")
	p.indent++
	for _, stmt := range b.Items {
		p.printStmt(stmt)
	}
	p.indent--
	p.writeIndent()
	fmt.Fprintln(p.w, "}")
}

func (p *Printer) printStmt(stmt Stmt) {
	if b, ok := stmt.(Block); ok {
		p.printBlock(&b)
		return
	}
	p.writeIndent()
	switch s := stmt.(type) {
	case Return:
		fmt.Fprint(p.w, "return")
		if s.Expr != nil {
			fmt.Fprint(p.w, " ")
			p.printExpr(s.Expr)
		}
		fmt.Fprintln(p.w, ";")
	case ExprStmt:
		p.printExpr(s.Expr)
		fmt.Fprintln(p.w, ";")
	case NullStmt:
		fmt.Fprintln(p.w, ";")
	case Declaration:
		p.printDeclaration(s)
	case If:
		fmt.Fprint(p.w, "if (")
		p.printExpr(s.Cond)
		fmt.Fprintln(p.w, ")")
		p.printBody(s.Then)
		if s.Else != nil {
			p.writeIndent()
			fmt.Fprintln(p.w, "else")
			p.printBody(s.Else)
		}
	case While:
		fmt.Fprint(p.w, "while (")
		p.printExpr(s.Cond)
		fmt.Fprintln(p.w, ")")
		p.printBody(s.Body)
	case Break:
		fmt.Fprintln(p.w, "break;")
	case Continue:
		fmt.Fprintln(p.w, "continue;")
	default:
		fmt.Fprintf(p.w, "/* unknown stmt %T */;\n", stmt)
	}
}

func (p *Printer) printBody(s Stmt) {
	if _, ok := s.(Block); ok {
		p.printStmt(s)
		return
	}
	p.indent++
	p.printStmt(s)
	p.indent--
}

func (p *Printer) exprString(e Expr) string {
	var sb strings.Builder
	sub := &Printer{w: &sb}
	sub.printExpr(e)
	return sb.String()
}

func (p *Printer) printExpr(expr Expr) {
	switch e := expr.(type) {
	case Constant:
		if e.Text != "" {
			fmt.Fprint(p.w, e.Text)
		} else {
			fmt.Fprintf(p.w, "%d", e.Value)
		}
	case Variable:
		fmt.Fprint(p.w, e.Name)
	case Unary:
		fmt.Fprint(p.w, e.Op.String())
		p.printExpr(e.Expr)
	case Binary:
		p.printExpr(e.Left)
		if e.Op == OpComma {
			fmt.Fprint(p.w, ", ")
		} else {
			fmt.Fprintf(p.w, " %s ", e.Op)
		}
		p.printExpr(e.Right)
	case Paren:
		fmt.Fprint(p.w, "(")
		p.printExpr(e.Expr)
		fmt.Fprint(p.w, ")")
	case Call:
		p.printExpr(e.Func)
		fmt.Fprint(p.w, "(")
		for i, arg := range e.Args {
			if i > 0 {
				fmt.Fprint(p.w, ", ")
			}
			p.printExpr(arg)
		}
		fmt.Fprint(p.w, ")")
	case Index:
		p.printExpr(e.Array)
		fmt.Fprint(p.w, "[")
		p.printExpr(e.Index)
		fmt.Fprint(p.w, "]")
	default:
		fmt.Fprintf(p.w, "/* unknown expr %T */", expr)
	}
}
