// Package irgen lowers a typed semantic graph into memory-form IR: every
// variable lives in a stack slot or global, accessed with load and store.
// Structured control flow becomes basic blocks.
package irgen

import (
	"fmt"

	"github.com/yHan234/SYsU-lang-Compiler/pkg/asg"
	"github.com/yHan234/SYsU-lang-Compiler/pkg/ir"
)

// CtorPriority is the @llvm.global_ctors priority of global initializers.
const CtorPriority = 65535

type loopTargets struct {
	cond, end *ir.Block
}

// Generator holds the side tables that map semantic nodes to IR values.
type Generator struct {
	mod   *ir.Module
	slots map[*asg.VarDecl]ir.Value     // variable -> address
	loops map[*asg.WhileStmt]loopTargets // loop -> continue and break targets
	b     *CFGBuilder
}

// Generate lowers every declaration of tu into a new module.
func Generate(name string, tu *asg.TranslationUnit) *ir.Module {
	g := &Generator{
		mod:   ir.NewModule(name),
		slots: make(map[*asg.VarDecl]ir.Value),
		loops: make(map[*asg.WhileStmt]loopTargets),
	}
	for _, d := range tu.Decls {
		switch d := d.(type) {
		case *asg.VarDecl:
			g.global(d)
		case *asg.FunctionDecl:
			g.function(d)
		default:
			panic(fmt.Sprintf("irgen: unhandled declaration %T", d))
		}
	}
	return g.mod
}

// global realizes a file-scope variable as a zero-initialized global. An
// initializer runs in a private constructor registered before main.
func (g *Generator) global(d *asg.VarDecl) {
	gv := g.mod.Global(d.Name)
	if gv == nil {
		gv = g.mod.NewGlobal(d.Name, LowerType(d.Typ))
	}
	g.slots[d] = gv
	if d.Init == nil {
		return
	}

	name := "ctor." + d.Name
	for k := 1; g.mod.Func(name) != nil; k++ {
		name = fmt.Sprintf("ctor.%s.%d", d.Name, k)
	}
	ctor := g.mod.NewFunc(name, &ir.FuncType{Ret: ir.Void})
	ctor.Private = true
	g.b = NewCFGBuilder(ctor)
	g.initialize(gv, d.Typ, d.Init, true)
	g.b.Emit(&ir.Ret{})
	g.b = nil
	g.mod.Ctors = append(g.mod.Ctors, ir.Ctor{Priority: CtorPriority, Fn: ctor})
}

// funcFor returns the IR function shared by every declaration of a name.
func (g *Generator) funcFor(d *asg.FunctionDecl) *ir.Function {
	if f := g.mod.Func(d.Name); f != nil {
		return f
	}
	names := make([]string, len(d.Params))
	for i, p := range d.Params {
		names[i] = p.Name
	}
	return g.mod.NewFunc(d.Name, lowerSignature(d.Typ), names...)
}

// function emits a definition: parameters are copied into stack slots,
// the body is lowered, and a fall-off end becomes `ret void` or
// `unreachable`.
func (g *Generator) function(d *asg.FunctionDecl) {
	f := g.funcFor(d)
	if d.Body == nil {
		return
	}
	if !f.IsDeclaration() {
		panic(fmt.Sprintf("irgen: function %s defined twice", d.Name))
	}
	for i, p := range d.Params {
		f.Params[i].Name = p.Name
	}

	g.b = NewCFGBuilder(f)
	for i, p := range d.Params {
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("arg%d", i)
		}
		slot := g.b.Alloca(LowerType(p.Typ), name+".addr")
		g.b.store(f.Params[i], slot)
		g.slots[p] = slot
	}
	g.stmt(d.Body)
	if !g.b.Terminated() {
		if _, void := f.Sig.Ret.(*ir.VoidType); void {
			g.b.Emit(&ir.Ret{})
		} else {
			g.b.Emit(&ir.Unreachable{})
		}
	}
	g.b = nil
}

// local allocates the stack slot of a block-scope variable and runs its
// initializer in place.
func (g *Generator) local(d *asg.VarDecl) {
	slot := g.b.Alloca(LowerType(d.Typ), d.Name)
	g.slots[d] = slot
	if d.Init != nil {
		g.initialize(slot, d.Typ, d.Init, false)
	}
}

func (g *Generator) slot(d *asg.VarDecl) ir.Value {
	s, ok := g.slots[d]
	if !ok {
		panic(fmt.Sprintf("irgen: variable %s has no storage", d.Name))
	}
	return s
}
