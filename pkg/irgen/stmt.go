package irgen

import (
	"fmt"

	"github.com/yHan234/SYsU-lang-Compiler/pkg/asg"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/ir"
)

func (g *Generator) stmt(s asg.Stmt) {
	switch s := s.(type) {
	case *asg.CompoundStmt:
		for _, sub := range s.Subs {
			// code after a jump out of the block is unreachable
			if g.b.Terminated() {
				break
			}
			g.stmt(sub)
		}
	case *asg.DeclStmt:
		for _, d := range s.Decls {
			switch d := d.(type) {
			case *asg.VarDecl:
				g.local(d)
			case *asg.FunctionDecl:
				g.funcFor(d)
			}
		}
	case *asg.ExprStmt:
		g.value(s.Expr)
	case *asg.NullStmt:
	case *asg.IfStmt:
		g.ifStmt(s)
	case *asg.WhileStmt:
		g.whileStmt(s)
	case *asg.BreakStmt:
		g.b.Jump(g.loop(s.Loop).end)
	case *asg.ContinueStmt:
		g.b.Jump(g.loop(s.Loop).cond)
	case *asg.ReturnStmt:
		g.returnStmt(s)
	default:
		panic(fmt.Sprintf("irgen: unhandled statement %T", s))
	}
}

func (g *Generator) ifStmt(s *asg.IfStmt) {
	then := g.b.NewBlock("if.then")
	end := g.b.NewBlock("if.end")
	els := end
	if s.Else != nil {
		els = g.b.NewBlock("if.else")
	}

	g.b.Branch(g.cond(s.Cond), then, els)
	g.b.Place(then)
	g.stmt(s.Then)
	g.b.Jump(end)
	if s.Else != nil {
		g.b.Place(els)
		g.stmt(s.Else)
		g.b.Jump(end)
	}
	g.b.Place(end)
}

func (g *Generator) whileStmt(s *asg.WhileStmt) {
	cond := g.b.NewBlock("while.cond")
	body := g.b.NewBlock("while.body")
	end := g.b.NewBlock("while.end")
	g.loops[s] = loopTargets{cond: cond, end: end}

	g.b.Jump(cond)
	g.b.Place(cond)
	g.b.Branch(g.cond(s.Cond), body, end)
	g.b.Place(body)
	g.stmt(s.Body)
	g.b.Jump(cond)
	g.b.Place(end)
}

func (g *Generator) loop(w *asg.WhileStmt) loopTargets {
	t, ok := g.loops[w]
	if !ok {
		panic("irgen: jump to a loop that is not being emitted")
	}
	return t
}

// returnStmt emits ret. A bare return in a non-void function yields undef.
func (g *Generator) returnStmt(s *asg.ReturnStmt) {
	ret := g.b.fn.Sig.Ret
	_, void := ret.(*ir.VoidType)
	switch {
	case s.Expr != nil && !void:
		g.b.Emit(&ir.Ret{Val: g.value(s.Expr)})
	case s.Expr != nil:
		g.value(s.Expr)
		g.b.Emit(&ir.Ret{})
	case void:
		g.b.Emit(&ir.Ret{})
	default:
		g.b.Emit(&ir.Ret{Val: &ir.Undef{Typ: ret}})
	}
}
