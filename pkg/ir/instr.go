package ir

// Instr is an instruction. Instructions that produce a value are used
// directly as operands.
type Instr interface {
	Value
	Block() *Block
	// Operands returns pointers to every value operand so that passes can
	// rewrite them in place.
	Operands() []*Value
	header() *instrHeader
}

// Terminator is an instruction that ends a block.
type Terminator interface {
	Instr
	Succs() []*Block
}

type instrHeader struct {
	Name   string
	parent *Block
}

func (h *instrHeader) Block() *Block        { return h.parent }
func (h *instrHeader) header() *instrHeader { return h }
func (*instrHeader) implValue()             {}

// Opcode is an integer arithmetic operation.
type Opcode int

const (
	OpAdd Opcode = iota
	OpSub
	OpMul
	OpSDiv
	OpSRem
)

func (op Opcode) String() string {
	names := []string{"add", "sub", "mul", "sdiv", "srem"}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// Pred is an integer comparison predicate.
type Pred int

const (
	PredEQ Pred = iota
	PredNE
	PredSLT
	PredSLE
	PredSGT
	PredSGE
)

func (p Pred) String() string {
	names := []string{"eq", "ne", "slt", "sle", "sgt", "sge"}
	if int(p) < len(names) {
		return names[p]
	}
	return "?"
}

// CastOp is an integer width conversion.
type CastOp int

const (
	CastZExt CastOp = iota
	CastSExt
	CastTrunc
)

func (op CastOp) String() string {
	names := []string{"zext", "sext", "trunc"}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// Alloca reserves a stack slot for one object of type Elem.
type Alloca struct {
	instrHeader
	Elem Type
}

// Load reads an Elem from the address Src.
type Load struct {
	instrHeader
	Elem Type
	Src  Value
}

// Store writes Val to the address Dst.
type Store struct {
	instrHeader
	Val Value
	Dst Value
}

// BinOp is integer arithmetic on two operands of the same type.
type BinOp struct {
	instrHeader
	Op   Opcode
	X, Y Value
}

// ICmp compares two integers or pointers, yielding i1.
type ICmp struct {
	instrHeader
	Pred Pred
	X, Y Value
}

// Cast converts an integer to another width.
type Cast struct {
	instrHeader
	Op CastOp
	X  Value
	To *IntType
}

// GEP computes an address inside an object of type Elem based at Base.
type GEP struct {
	instrHeader
	Elem    Type
	Base    Value
	Indices []Value
}

// Call invokes Callee with the signature Sig.
type Call struct {
	instrHeader
	Sig    *FuncType
	Callee Value
	Args   []Value
}

// Incoming is one (value, predecessor) pair of a phi.
type Incoming struct {
	Value Value
	Pred  *Block
}

// Phi selects a value according to the predecessor control came from.
type Phi struct {
	instrHeader
	Typ  Type
	Incs []Incoming
}

// Br jumps unconditionally.
type Br struct {
	instrHeader
	Target *Block
}

// CondBr jumps to Then if Cond is true, else to Else.
type CondBr struct {
	instrHeader
	Cond Value
	Then *Block
	Else *Block
}

// Ret returns from the function; Val is nil for a void return.
type Ret struct {
	instrHeader
	Val Value
}

// Unreachable marks a point control never reaches.
type Unreachable struct {
	instrHeader
}

func (a *Alloca) Type() Type    { return PtrTo(a.Elem) }
func (l *Load) Type() Type      { return l.Elem }
func (*Store) Type() Type       { return Void }
func (b *BinOp) Type() Type     { return b.X.Type() }
func (*ICmp) Type() Type        { return I1 }
func (c *Cast) Type() Type      { return c.To }
func (g *GEP) Type() Type       { return PtrTo(g.Result()) }
func (c *Call) Type() Type      { return c.Sig.Ret }
func (p *Phi) Type() Type       { return p.Typ }
func (*Br) Type() Type          { return Void }
func (*CondBr) Type() Type      { return Void }
func (*Ret) Type() Type         { return Void }
func (*Unreachable) Type() Type { return Void }

func (*Alloca) Operands() []*Value      { return nil }
func (l *Load) Operands() []*Value      { return []*Value{&l.Src} }
func (s *Store) Operands() []*Value     { return []*Value{&s.Val, &s.Dst} }
func (b *BinOp) Operands() []*Value     { return []*Value{&b.X, &b.Y} }
func (c *ICmp) Operands() []*Value      { return []*Value{&c.X, &c.Y} }
func (c *Cast) Operands() []*Value      { return []*Value{&c.X} }
func (*Br) Operands() []*Value          { return nil }
func (c *CondBr) Operands() []*Value    { return []*Value{&c.Cond} }
func (*Unreachable) Operands() []*Value { return nil }

// Result is the type addressed by the GEP: Elem, stepped into once per
// index after the first.
func (g *GEP) Result() Type {
	t := g.Elem
	for k := 1; k < len(g.Indices); k++ {
		arr, ok := t.(*ArrayType)
		if !ok {
			return nil
		}
		t = arr.Elem
	}
	return t
}

func (g *GEP) Operands() []*Value {
	ops := []*Value{&g.Base}
	for i := range g.Indices {
		ops = append(ops, &g.Indices[i])
	}
	return ops
}

func (c *Call) Operands() []*Value {
	ops := []*Value{&c.Callee}
	for i := range c.Args {
		ops = append(ops, &c.Args[i])
	}
	return ops
}

func (p *Phi) Operands() []*Value {
	ops := make([]*Value, len(p.Incs))
	for i := range p.Incs {
		ops[i] = &p.Incs[i].Value
	}
	return ops
}

func (r *Ret) Operands() []*Value {
	if r.Val == nil {
		return nil
	}
	return []*Value{&r.Val}
}

func (b *Br) Succs() []*Block        { return []*Block{b.Target} }
func (c *CondBr) Succs() []*Block    { return []*Block{c.Then, c.Else} }
func (*Ret) Succs() []*Block         { return nil }
func (*Unreachable) Succs() []*Block { return nil }

// AddIncoming appends an incoming entry to a phi.
func (p *Phi) AddIncoming(v Value, pred *Block) {
	p.Incs = append(p.Incs, Incoming{Value: v, Pred: pred})
}

// NameOf returns the name hint of an instruction.
func NameOf(i Instr) string {
	return i.header().Name
}

// SetName sets the name hint of an instruction.
func SetName(i Instr, name string) {
	i.header().Name = name
}

// IsTerminator reports whether i ends a block.
func IsTerminator(i Instr) bool {
	_, ok := i.(Terminator)
	return ok
}
