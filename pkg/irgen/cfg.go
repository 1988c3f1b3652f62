package irgen

import "github.com/yHan234/SYsU-lang-Compiler/pkg/ir"

// CFGBuilder constructs the blocks of one function. Blocks are created
// detached and placed into the function when emission reaches them, so
// the block order follows the source.
type CFGBuilder struct {
	fn      *ir.Function
	cur     *ir.Block
	allocas int // stack slots emitted so far at the top of the entry block
}

// NewCFGBuilder creates a builder positioned in a fresh entry block.
func NewCFGBuilder(fn *ir.Function) *CFGBuilder {
	b := &CFGBuilder{fn: fn}
	b.Place(b.NewBlock("entry"))
	return b
}

// NewBlock creates a block that is not yet part of the function.
func (b *CFGBuilder) NewBlock(name string) *ir.Block {
	return &ir.Block{Name: name, Parent: b.fn}
}

// Place appends blk to the function and makes it current.
func (b *CFGBuilder) Place(blk *ir.Block) {
	b.fn.Blocks = append(b.fn.Blocks, blk)
	b.cur = blk
}

// Current returns the block being filled.
func (b *CFGBuilder) Current() *ir.Block {
	return b.cur
}

// Terminated reports whether the current block is closed.
func (b *CFGBuilder) Terminated() bool {
	return b.cur.Terminated()
}

// Emit appends an instruction to the current block.
func (b *CFGBuilder) Emit(i ir.Instr) ir.Instr {
	return b.cur.Append(i)
}

// Alloca reserves a stack slot at the top of the entry block, after the
// slots already hoisted there.
func (b *CFGBuilder) Alloca(elem ir.Type, name string) *ir.Alloca {
	a := &ir.Alloca{Elem: elem}
	ir.SetName(a, name)
	b.fn.Entry().InsertAt(b.allocas, a)
	b.allocas++
	return a
}

// Jump branches to target unless the current block is already closed.
func (b *CFGBuilder) Jump(target *ir.Block) {
	if !b.Terminated() {
		b.Emit(&ir.Br{Target: target})
	}
}

// Branch ends the current block with a conditional branch.
func (b *CFGBuilder) Branch(cond ir.Value, then, els *ir.Block) {
	b.Emit(&ir.CondBr{Cond: cond, Then: then, Else: els})
}

func (b *CFGBuilder) load(t ir.Type, src ir.Value) ir.Value {
	return b.Emit(&ir.Load{Elem: t, Src: src})
}

func (b *CFGBuilder) store(v, dst ir.Value) {
	b.Emit(&ir.Store{Val: v, Dst: dst})
}

func (b *CFGBuilder) binop(op ir.Opcode, x, y ir.Value) ir.Value {
	return b.Emit(&ir.BinOp{Op: op, X: x, Y: y})
}

func (b *CFGBuilder) icmp(p ir.Pred, x, y ir.Value) ir.Value {
	return b.Emit(&ir.ICmp{Pred: p, X: x, Y: y})
}

func (b *CFGBuilder) cast(op ir.CastOp, x ir.Value, to *ir.IntType) ir.Value {
	return b.Emit(&ir.Cast{Op: op, X: x, To: to})
}

// resize sign-extends or truncates x to the width of to. A new
// instruction is given the name hint.
func (b *CFGBuilder) resize(x ir.Value, to *ir.IntType, name string) ir.Value {
	from := x.Type().(*ir.IntType)
	if c, ok := x.(*ir.Const); ok && from.Bits != to.Bits {
		return ir.ConstInt(to, ir.Truncate(to, c.Value))
	}
	switch {
	case from.Bits < to.Bits:
		return named(b.cast(ir.CastSExt, x, to), name)
	case from.Bits > to.Bits:
		return named(b.cast(ir.CastTrunc, x, to), name)
	}
	return x
}
