// Package irinterp executes IR modules directly. It serves as the oracle
// for checking that code generation and SSA promotion preserve results.
package irinterp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/yHan234/SYsU-lang-Compiler/pkg/ir"
)

// DefaultMaxSteps bounds the instructions executed by one Run.
const DefaultMaxSteps = 10_000_000

var (
	// ErrStepLimit reports a run that exceeded the step budget.
	ErrStepLimit = errors.New("irinterp: step limit exceeded")
	// ErrTrap reports undefined behavior the interpreter detects.
	ErrTrap = errors.New("irinterp: trap")
)

// Extern implements an external function on integer arguments.
type Extern func(args []int64) int64

// Call records one invocation of an external function.
type Call struct {
	Name string
	Args []int64
}

// object is one allocation. Integers live in data; pointers stored into
// the object are tracked per offset in ptrs.
type object struct {
	data []byte
	ptrs map[int64]value
}

// value is an integer, a pointer into an object, or a function pointer.
type value struct {
	n   int64 // integer, or offset when obj is set
	obj *object
	fn  *ir.Function
}

// Machine runs the functions of one module.
type Machine struct {
	MaxSteps int
	Trace    []Call

	mod     *ir.Module
	externs map[string]Extern
	globals map[*ir.Global]*object
	steps   int
	started bool
}

// New creates a machine with zero-initialized globals. externs supplies
// the bodies of declared functions.
func New(m *ir.Module, externs map[string]Extern) *Machine {
	mc := &Machine{
		MaxSteps: DefaultMaxSteps,
		mod:      m,
		externs:  externs,
		globals:  make(map[*ir.Global]*object),
	}
	for _, g := range m.Globals {
		obj := newObject(ir.SizeOf(g.Elem))
		if g.Init != nil {
			if _, zero := g.Init.(*ir.ZeroInit); !zero {
				mc.write(obj, 0, g.Elem, mc.constant(g.Init))
			}
		}
		mc.globals[g] = obj
	}
	return mc
}

func newObject(size int64) *object {
	return &object{data: make([]byte, size), ptrs: make(map[int64]value)}
}

// Run calls the named function with integer arguments. Global
// constructors run before the first call.
func (mc *Machine) Run(name string, args ...int64) (int64, error) {
	f := mc.mod.Func(name)
	if f == nil {
		return 0, fmt.Errorf("irinterp: no function @%s", name)
	}
	if len(args) != len(f.Params) {
		return 0, fmt.Errorf("irinterp: @%s takes %d arguments, got %d", name, len(f.Params), len(args))
	}
	if !mc.started {
		mc.started = true
		ctors := append([]ir.Ctor(nil), mc.mod.Ctors...)
		sort.SliceStable(ctors, func(i, j int) bool { return ctors[i].Priority < ctors[j].Priority })
		for _, c := range ctors {
			if _, err := mc.call(c.Fn, nil); err != nil {
				return 0, fmt.Errorf("constructor @%s: %w", c.Fn.Name, err)
			}
		}
	}
	vals := make([]value, len(args))
	for i, a := range args {
		vals[i] = value{n: a}
	}
	v, err := mc.call(f, vals)
	return v.n, err
}

// call invokes a function, dispatching declarations to intrinsics and
// externs.
func (mc *Machine) call(f *ir.Function, args []value) (value, error) {
	if f.IsDeclaration() {
		return mc.external(f, args)
	}
	fr := &frame{mc: mc, fn: f, env: make(map[ir.Value]value)}
	for i, p := range f.Params {
		fr.env[p] = args[i]
	}
	return fr.run()
}

func (mc *Machine) external(f *ir.Function, args []value) (value, error) {
	if f.Name == ir.MemsetName {
		dst, fill, size := args[0], byte(args[1].n), args[2].n
		if dst.obj == nil || dst.n < 0 || dst.n+size > int64(len(dst.obj.data)) {
			return value{}, fmt.Errorf("%w: memset out of bounds", ErrTrap)
		}
		for k := dst.n; k < dst.n+size; k++ {
			dst.obj.data[k] = fill
			delete(dst.obj.ptrs, k)
		}
		return value{}, nil
	}
	ext, ok := mc.externs[f.Name]
	if !ok {
		return value{}, fmt.Errorf("irinterp: call to undefined function @%s", f.Name)
	}
	ints := make([]int64, len(args))
	for i, a := range args {
		ints[i] = a.n
	}
	mc.Trace = append(mc.Trace, Call{Name: f.Name, Args: ints})
	ret := ext(ints)
	if it, ok := f.Sig.Ret.(*ir.IntType); ok {
		ret = ir.Truncate(it, ret)
	}
	return value{n: ret}, nil
}

func (mc *Machine) constant(v ir.Value) value {
	switch v := v.(type) {
	case *ir.Const:
		return value{n: v.Value}
	case *ir.Undef, *ir.Poison, *ir.NullPtr, *ir.ZeroInit:
		return value{}
	case *ir.Global:
		return value{obj: mc.globals[v]}
	case *ir.Function:
		return value{fn: v}
	}
	panic(fmt.Sprintf("irinterp: unhandled constant %T", v))
}

func (mc *Machine) load(p value, t ir.Type) (value, error) {
	if err := checkAccess(p, ir.SizeOf(t)); err != nil {
		return value{}, err
	}
	switch t := t.(type) {
	case *ir.IntType:
		return value{n: readInt(p.obj.data[p.n:], t)}, nil
	case *ir.PtrType:
		return p.obj.ptrs[p.n], nil
	}
	panic(fmt.Sprintf("irinterp: load of %s", t))
}

func (mc *Machine) store(p value, t ir.Type, v value) error {
	if err := checkAccess(p, ir.SizeOf(t)); err != nil {
		return err
	}
	mc.write(p.obj, p.n, t, v)
	return nil
}

func (mc *Machine) write(obj *object, off int64, t ir.Type, v value) {
	switch t := t.(type) {
	case *ir.IntType:
		writeInt(obj.data[off:], t, v.n)
		delete(obj.ptrs, off)
	case *ir.PtrType:
		obj.ptrs[off] = v
	default:
		panic(fmt.Sprintf("irinterp: store of %s", t))
	}
}

func checkAccess(p value, size int64) error {
	if p.obj == nil {
		return fmt.Errorf("%w: access through a null or non-object pointer", ErrTrap)
	}
	if p.n < 0 || p.n+size > int64(len(p.obj.data)) {
		return fmt.Errorf("%w: access at offset %d of a %d-byte object", ErrTrap, p.n, len(p.obj.data))
	}
	return nil
}

// readInt decodes a little-endian integer of width t, sign-extended.
func readInt(b []byte, t *ir.IntType) int64 {
	var buf [8]byte
	copy(buf[:], b[:ir.SizeOf(t)])
	return ir.Truncate(t, int64(binary.LittleEndian.Uint64(buf[:])))
}

func writeInt(b []byte, t *ir.IntType, v int64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	copy(b, buf[:ir.SizeOf(t)])
}
