package ir

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// typedMemsetName is the memset intrinsic under typed pointers.
const typedMemsetName = "llvm.memset.p0i8.i64"

// Printer writes a module as LLVM-compatible text.
type Printer struct {
	w     io.Writer
	names map[any]string
	used  map[string]bool
	next  int
	fn    *Function

	// TypedPointers selects `i32*` style pointers in place of ptr, for
	// LLVM readers that predate opaque pointers. Pointer operands whose
	// type differs from the one an instruction expects are bitcast first.
	TypedPointers bool
	pre           []string
}

// NewPrinter creates a new IR printer.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Print writes m to w as text.
func Print(w io.Writer, m *Module) {
	NewPrinter(w).PrintModule(m)
}

// String renders the module as text.
func (m *Module) String() string {
	var sb strings.Builder
	Print(&sb, m)
	return sb.String()
}

// TypedString renders the module as text with typed pointers.
func (m *Module) TypedString() string {
	var sb strings.Builder
	p := NewPrinter(&sb)
	p.TypedPointers = true
	p.PrintModule(m)
	return sb.String()
}

func (p *Printer) ty(t Type) string {
	if p.TypedPointers {
		return TypedString(t)
	}
	return t.String()
}

func (p *Printer) global(name string) string {
	if p.TypedPointers && name == MemsetName {
		name = typedMemsetName
	}
	return "@" + name
}

// PrintModule prints globals, the constructor table and every function.
func (p *Printer) PrintModule(m *Module) {
	fmt.Fprintf(p.w, "; ModuleID = '%s'\n", m.Name)
	fmt.Fprintf(p.w, "source_filename = \"%s\"\n", m.Name)

	if len(m.Globals) > 0 || len(m.Ctors) > 0 {
		fmt.Fprintln(p.w)
	}
	for _, g := range m.Globals {
		if g.Init == nil {
			fmt.Fprintf(p.w, "@%s = external global %s\n", g.Name, p.ty(g.Elem))
			continue
		}
		fmt.Fprintf(p.w, "@%s = global %s %s\n", g.Name, p.ty(g.Elem), p.value(g.Init))
	}
	if len(m.Ctors) > 0 {
		fnPtr, dataPtr := "ptr", "ptr"
		if p.TypedPointers {
			fnPtr, dataPtr = "void ()*", "i8*"
		}
		entry := fmt.Sprintf("{ i32, %s, %s }", fnPtr, dataPtr)
		entries := make([]string, len(m.Ctors))
		for i, c := range m.Ctors {
			entries[i] = fmt.Sprintf("%s { i32 %d, %s @%s, %s null }", entry, c.Priority, fnPtr, c.Fn.Name, dataPtr)
		}
		fmt.Fprintf(p.w, "@llvm.global_ctors = appending global [%d x %s] [%s]\n",
			len(m.Ctors), entry, strings.Join(entries, ", "))
	}

	for _, f := range m.Funcs {
		fmt.Fprintln(p.w)
		p.PrintFunction(f)
	}
}

// PrintFunction prints one declaration or definition.
func (p *Printer) PrintFunction(f *Function) {
	p.names = make(map[any]string)
	p.used = make(map[string]bool)
	p.next = 0
	p.fn = f

	linkage := ""
	if f.Private {
		linkage = "private "
	}
	if f.IsDeclaration() {
		params := make([]string, len(f.Sig.Params))
		for i, t := range f.Sig.Params {
			params[i] = p.ty(t)
		}
		fmt.Fprintf(p.w, "declare %s%s %s(%s)\n", linkage, p.ty(f.Sig.Ret), p.global(f.Name), strings.Join(params, ", "))
		return
	}

	for _, prm := range f.Params {
		p.assign(prm, prm.Name)
	}
	for _, b := range f.Blocks {
		p.assign(b, b.Name)
		for _, i := range b.Instrs {
			if _, void := i.Type().(*VoidType); !void {
				p.assign(i, NameOf(i))
			}
		}
	}

	params := make([]string, len(f.Params))
	for i, prm := range f.Params {
		params[i] = p.typed(prm)
	}
	fmt.Fprintf(p.w, "define %s%s %s(%s) {\n", linkage, p.ty(f.Sig.Ret), p.global(f.Name), strings.Join(params, ", "))
	for i, b := range f.Blocks {
		if i > 0 {
			fmt.Fprintln(p.w)
		}
		fmt.Fprintf(p.w, "%s:\n", p.names[b])
		for _, in := range b.Instrs {
			text := p.instr(in)
			for _, line := range p.pre {
				fmt.Fprintf(p.w, "  %s\n", line)
			}
			p.pre = p.pre[:0]
			if _, void := in.Type().(*VoidType); void {
				fmt.Fprintf(p.w, "  %s\n", text)
			} else {
				fmt.Fprintf(p.w, "  %%%s = %s\n", p.names[in], text)
			}
		}
	}
	fmt.Fprintln(p.w, "}")
}

// assign gives key a function-unique local name. Values without a hint
// are numbered in textual order.
func (p *Printer) assign(key any, hint string) {
	if hint == "" {
		p.names[key] = strconv.Itoa(p.next)
		p.next++
		return
	}
	p.names[key] = p.fresh(hint)
}

func (p *Printer) fresh(hint string) string {
	name := hint
	for k := 1; p.used[name]; k++ {
		name = hint + strconv.Itoa(k)
	}
	p.used[name] = true
	return name
}

func (p *Printer) label(b *Block) string {
	if n, ok := p.names[b]; ok {
		return "%" + n
	}
	return "%<badref>"
}

func (p *Printer) value(v Value) string {
	switch v := v.(type) {
	case nil:
		return "<null operand>"
	case *Const:
		if v.Typ.Bits == 1 {
			if v.Value&1 != 0 {
				return "true"
			}
			return "false"
		}
		return strconv.FormatInt(v.Value, 10)
	case *Undef:
		return "undef"
	case *Poison:
		if p.TypedPointers {
			return "undef"
		}
		return "poison"
	case *NullPtr:
		return "null"
	case *ZeroInit:
		return "zeroinitializer"
	case *Global:
		return "@" + v.Name
	case *Function:
		return p.global(v.Name)
	case *ConstStruct:
		fields := make([]string, len(v.Fields))
		for i, f := range v.Fields {
			fields[i] = p.typed(f)
		}
		return "{ " + strings.Join(fields, ", ") + " }"
	case *ConstArray:
		elems := make([]string, len(v.Elems))
		for i, e := range v.Elems {
			elems[i] = p.typed(e)
		}
		return "[" + strings.Join(elems, ", ") + "]"
	}
	if n, ok := p.names[v]; ok {
		return "%" + n
	}
	return "%<badref>"
}

func (p *Printer) typed(v Value) string {
	if v == nil {
		return p.value(v)
	}
	return p.ty(v.Type()) + " " + p.value(v)
}

// operand renders v as an operand of type want. Under typed pointers a
// pointer of another pointee is bitcast to want first; pointer constants
// are simply retyped.
func (p *Printer) operand(v Value, want Type) string {
	if !p.TypedPointers || v == nil || want == nil {
		return p.typed(v)
	}
	_, isPtr := v.Type().(*PtrType)
	_, wantPtr := want.(*PtrType)
	if !isPtr || !wantPtr {
		return p.typed(v)
	}
	have, need := p.ty(v.Type()), p.ty(want)
	if have == need {
		return p.typed(v)
	}
	switch v.(type) {
	case *NullPtr, *Undef, *Poison, *ZeroInit:
		return need + " " + p.value(v)
	}
	name := p.fresh("ptrcast")
	p.pre = append(p.pre, fmt.Sprintf("%%%s = bitcast %s %s to %s", name, have, p.value(v), need))
	return need + " %" + name
}

// pointee is the type a pointer value addresses, or nil when unknown.
func pointee(v Value) Type {
	if pt, ok := v.Type().(*PtrType); ok {
		return pt.Pointee
	}
	return nil
}

func (p *Printer) instr(i Instr) string {
	switch i := i.(type) {
	case *Alloca:
		return fmt.Sprintf("alloca %s", p.ty(i.Elem))
	case *Load:
		return fmt.Sprintf("load %s, %s", p.ty(i.Elem), p.operand(i.Src, PtrTo(i.Elem)))
	case *Store:
		if elem := pointee(i.Dst); elem != nil {
			return fmt.Sprintf("store %s, %s", p.operand(i.Val, elem), p.typed(i.Dst))
		}
		return fmt.Sprintf("store %s, %s", p.typed(i.Val), p.operand(i.Dst, PtrTo(i.Val.Type())))
	case *BinOp:
		return fmt.Sprintf("%s %s, %s", i.Op, p.typed(i.X), p.value(i.Y))
	case *ICmp:
		return fmt.Sprintf("icmp %s %s, %s", i.Pred, p.typed(i.X), p.value(i.Y))
	case *Cast:
		return fmt.Sprintf("%s %s to %s", i.Op, p.typed(i.X), i.To)
	case *GEP:
		parts := []string{p.ty(i.Elem), p.operand(i.Base, PtrTo(i.Elem))}
		for _, idx := range i.Indices {
			parts = append(parts, p.typed(idx))
		}
		return "getelementptr " + strings.Join(parts, ", ")
	case *Call:
		args := make([]string, len(i.Args))
		for k, a := range i.Args {
			var want Type
			if k < len(i.Sig.Params) {
				want = i.Sig.Params[k]
			}
			args[k] = p.operand(a, want)
		}
		return fmt.Sprintf("call %s %s(%s)", p.ty(i.Sig.Ret), p.value(i.Callee), strings.Join(args, ", "))
	case *Phi:
		incs := make([]string, len(i.Incs))
		for k, inc := range i.Incs {
			incs[k] = fmt.Sprintf("[ %s, %s ]", p.value(inc.Value), p.label(inc.Pred))
		}
		return fmt.Sprintf("phi %s %s", p.ty(i.Typ), strings.Join(incs, ", "))
	case *Br:
		return "br label " + p.label(i.Target)
	case *CondBr:
		return fmt.Sprintf("br %s, label %s, label %s", p.typed(i.Cond), p.label(i.Then), p.label(i.Else))
	case *Ret:
		if i.Val == nil {
			return "ret void"
		}
		return "ret " + p.operand(i.Val, p.fn.Sig.Ret)
	case *Unreachable:
		return "unreachable"
	}
	panic(fmt.Sprintf("ir: unhandled instruction %T", i))
}
