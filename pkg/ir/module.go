package ir

import "fmt"

// Block is a basic block: straight-line instructions ending in one terminator.
type Block struct {
	Name   string
	Parent *Function
	Instrs []Instr
}

// Terminator returns the last instruction if it is a terminator.
func (b *Block) Terminator() Terminator {
	if len(b.Instrs) == 0 {
		return nil
	}
	t, _ := b.Instrs[len(b.Instrs)-1].(Terminator)
	return t
}

// Terminated reports whether the block already ends in a terminator.
func (b *Block) Terminated() bool {
	return b.Terminator() != nil
}

// Succs returns the successor blocks, one entry per outgoing edge.
func (b *Block) Succs() []*Block {
	if t := b.Terminator(); t != nil {
		return t.Succs()
	}
	return nil
}

// Append adds i at the end of the block. Appending after the terminator is
// a contract violation.
func (b *Block) Append(i Instr) Instr {
	if b.Terminated() {
		panic(fmt.Sprintf("ir: append to terminated block %s", b.Name))
	}
	i.header().parent = b
	b.Instrs = append(b.Instrs, i)
	return i
}

// InsertAt places i at position idx.
func (b *Block) InsertAt(idx int, i Instr) {
	i.header().parent = b
	b.Instrs = append(b.Instrs, nil)
	copy(b.Instrs[idx+1:], b.Instrs[idx:])
	b.Instrs[idx] = i
}

// Phis returns the phi nodes at the start of the block.
func (b *Block) Phis() []*Phi {
	var out []*Phi
	for _, i := range b.Instrs {
		p, ok := i.(*Phi)
		if !ok {
			break
		}
		out = append(out, p)
	}
	return out
}

// Detach clears the parent of an instruction removed from its block.
func Detach(i Instr) {
	i.header().parent = nil
}

// Function is a function declaration or definition.
type Function struct {
	Name    string
	Sig     *FuncType
	Params  []*Param
	Blocks  []*Block
	Private bool
}

func (f *Function) Type() Type { return PtrTo(f.Sig) }
func (*Function) implValue()   {}

// IsDeclaration reports whether the function has no body.
func (f *Function) IsDeclaration() bool {
	return len(f.Blocks) == 0
}

// Entry returns the entry block.
func (f *Function) Entry() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// NewBlock appends a new empty block.
func (f *Function) NewBlock(name string) *Block {
	b := &Block{Name: name, Parent: f}
	f.Blocks = append(f.Blocks, b)
	return b
}

// Preds returns the predecessors of every block, one entry per edge.
func (f *Function) Preds() map[*Block][]*Block {
	preds := make(map[*Block][]*Block, len(f.Blocks))
	for _, b := range f.Blocks {
		for _, s := range b.Succs() {
			preds[s] = append(preds[s], b)
		}
	}
	return preds
}

// Ctor is an entry of @llvm.global_ctors.
type Ctor struct {
	Priority int
	Fn       *Function
}

// Module is a translation unit of IR.
type Module struct {
	Name    string
	Globals []*Global
	Funcs   []*Function
	Ctors   []Ctor
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{Name: name}
}

// Global returns the global with the given name, or nil.
func (m *Module) Global(name string) *Global {
	for _, g := range m.Globals {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// Func returns the function with the given name, or nil.
func (m *Module) Func(name string) *Function {
	for _, f := range m.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// NewGlobal adds a zero-initialized global.
func (m *Module) NewGlobal(name string, elem Type) *Global {
	g := &Global{Name: name, Elem: elem, Init: ZeroOf(elem)}
	m.Globals = append(m.Globals, g)
	return g
}

// NewFunc adds a function declaration with named parameters.
func (m *Module) NewFunc(name string, sig *FuncType, paramNames ...string) *Function {
	f := &Function{Name: name, Sig: sig}
	for i, t := range sig.Params {
		p := &Param{Typ: t, Index: i}
		if i < len(paramNames) {
			p.Name = paramNames[i]
		}
		f.Params = append(f.Params, p)
	}
	m.Funcs = append(m.Funcs, f)
	return f
}

// MemsetName is the intrinsic used for zero-filling memory.
const MemsetName = "llvm.memset.p0.i64"

// Memset returns the memset intrinsic, declaring it on first use.
func (m *Module) Memset() *Function {
	if f := m.Func(MemsetName); f != nil {
		return f
	}
	return m.NewFunc(MemsetName, &FuncType{Ret: Void, Params: []Type{Ptr, I8, I64, I1}})
}

// Instrs counts the instructions of a function by concrete kind, keyed by
// the printed opcode.
func (f *Function) Instrs() map[string]int {
	counts := make(map[string]int)
	for _, b := range f.Blocks {
		for _, i := range b.Instrs {
			counts[Opname(i)]++
		}
	}
	return counts
}

// Opname returns the textual opcode of an instruction.
func Opname(i Instr) string {
	switch i := i.(type) {
	case *Alloca:
		return "alloca"
	case *Load:
		return "load"
	case *Store:
		return "store"
	case *BinOp:
		return i.Op.String()
	case *ICmp:
		return "icmp"
	case *Cast:
		return i.Op.String()
	case *GEP:
		return "getelementptr"
	case *Call:
		return "call"
	case *Phi:
		return "phi"
	case *Br, *CondBr:
		return "br"
	case *Ret:
		return "ret"
	case *Unreachable:
		return "unreachable"
	}
	panic(fmt.Sprintf("ir: unhandled instruction %T", i))
}
