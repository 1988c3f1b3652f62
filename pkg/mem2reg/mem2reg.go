// Package mem2reg promotes stack slots to SSA values. Slots whose every
// use is a whole-value load or store are replaced by the stored values,
// with phi nodes placed on the iterated dominance frontier of the storing
// blocks, pruned to blocks where the slot is live on entry.
package mem2reg

import (
	"fmt"

	"github.com/yHan234/SYsU-lang-Compiler/pkg/ir"
)

// Stats summarizes the promotion of one function.
type Stats struct {
	Func         string
	Slots        int // stack slots in the entry block before promotion
	Promoted     int
	PhisInserted int
	PhisRemoved  int
}

func (s Stats) String() string {
	return fmt.Sprintf("@%s: promoted %d of %d slots, inserted %d phis, removed %d phis",
		s.Func, s.Promoted, s.Slots, s.PhisInserted, s.PhisRemoved)
}

// PromoteModule promotes every defined function of m.
func PromoteModule(m *ir.Module) []Stats {
	var all []Stats
	for _, f := range m.Funcs {
		if !f.IsDeclaration() {
			all = append(all, Promote(f))
		}
	}
	return all
}

// Promote rewrites the promotable slots of f, repeating until none remain.
func Promote(f *ir.Function) Stats {
	stats := Stats{Func: f.Name}
	if f.IsDeclaration() {
		return stats
	}
	for _, i := range f.Entry().Instrs {
		if _, ok := i.(*ir.Alloca); ok {
			stats.Slots++
		}
	}
	dt := Dominators(f)
	for {
		p := newPromoter(f, dt, &stats)
		if p.run() == 0 {
			break
		}
	}
	return stats
}

// slot is a promotable stack slot with its accesses in program order.
type slot struct {
	alloca *ir.Alloca
	loads  []*ir.Load
	stores []*ir.Store
}

type promoter struct {
	f     *ir.Function
	dt    *DomTree
	stats *Stats
	preds map[*ir.Block][]*ir.Block
	index map[ir.Instr]int // position within the parent block
	dead  map[ir.Instr]bool
	subst map[ir.Value]ir.Value
}

func newPromoter(f *ir.Function, dt *DomTree, stats *Stats) *promoter {
	p := &promoter{
		f:     f,
		dt:    dt,
		stats: stats,
		preds: f.Preds(),
		index: make(map[ir.Instr]int),
		dead:  make(map[ir.Instr]bool),
		subst: make(map[ir.Value]ir.Value),
	}
	for _, b := range f.Blocks {
		for k, i := range b.Instrs {
			p.index[i] = k
		}
	}
	return p
}

// run promotes the slots found promotable in one scan and returns how
// many there were.
func (p *promoter) run() int {
	slots := p.collect()
	var general []*slot
	for _, s := range slots {
		switch {
		case len(s.loads) == 0:
			p.kill(s)
		case len(s.stores) == 0:
			for _, l := range s.loads {
				p.replace(l, &ir.Undef{Typ: s.alloca.Elem})
			}
			p.kill(s)
		case len(s.stores) == 1 && p.singleStore(s):
		case p.singleBlock(s):
		default:
			general = append(general, s)
		}
	}
	if len(general) > 0 {
		p.construct(general)
	}
	p.stats.Promoted += len(slots)

	p.simplifyPhis()
	p.commit()
	return len(slots)
}

// collect finds the promotable slots of the entry block.
func (p *promoter) collect() []*slot {
	uses := make(map[ir.Value][]ir.Instr)
	for _, b := range p.f.Blocks {
		for _, i := range b.Instrs {
			for _, op := range i.Operands() {
				if a, ok := (*op).(*ir.Alloca); ok {
					uses[a] = append(uses[a], i)
				}
			}
		}
	}

	var slots []*slot
	for _, i := range p.f.Entry().Instrs {
		a, ok := i.(*ir.Alloca)
		if !ok {
			continue
		}
		if s := promotable(a, uses[a]); s != nil {
			slots = append(slots, s)
		}
	}
	return slots
}

// promotable accepts a scalar slot that is only loaded from and stored to
// as a whole value of its own type.
func promotable(a *ir.Alloca, uses []ir.Instr) *slot {
	switch a.Elem.(type) {
	case *ir.IntType, *ir.PtrType:
	default:
		return nil
	}
	s := &slot{alloca: a}
	for _, u := range uses {
		switch u := u.(type) {
		case *ir.Load:
			if u.Src != a || !ir.TypesEqual(u.Elem, a.Elem) {
				return nil
			}
			s.loads = append(s.loads, u)
		case *ir.Store:
			if u.Dst != a || u.Val == ir.Value(a) || !ir.TypesEqual(u.Val.Type(), a.Elem) {
				return nil
			}
			s.stores = append(s.stores, u)
		default:
			return nil
		}
	}
	return s
}

func (p *promoter) replace(load *ir.Load, v ir.Value) {
	p.subst[load] = v
	p.dead[load] = true
}

// kill deletes the slot and its remaining stores.
func (p *promoter) kill(s *slot) {
	for _, st := range s.stores {
		p.dead[st] = true
	}
	p.dead[s.alloca] = true
}

// before reports whether a executes before b within their shared block.
func (p *promoter) before(a, b ir.Instr) bool {
	return p.index[a] < p.index[b]
}

// singleStore forwards the only stored value to every load it dominates.
// It gives up, touching nothing, if some load is not dominated.
func (p *promoter) singleStore(s *slot) bool {
	st := s.stores[0]
	sb := st.Block()
	for _, l := range s.loads {
		lb := l.Block()
		if lb == sb {
			if !p.before(st, l) {
				return false
			}
		} else if !p.dt.Dominates(sb, lb) {
			return false
		}
	}
	for _, l := range s.loads {
		p.replace(l, st.Val)
	}
	p.kill(s)
	return true
}

// singleBlock handles a slot whose accesses share one block by a linear
// scan. A load ahead of every store could observe a value from a previous
// visit of the block, so that case is left to the general algorithm.
func (p *promoter) singleBlock(s *slot) bool {
	b := s.loads[0].Block()
	for _, l := range s.loads {
		if l.Block() != b {
			return false
		}
	}
	for _, st := range s.stores {
		if st.Block() != b {
			return false
		}
	}
	first := p.firstStore(s)
	for _, l := range s.loads {
		if !p.before(first, l) {
			return false
		}
	}

	var cur ir.Value
	for _, i := range b.Instrs {
		switch i := i.(type) {
		case *ir.Store:
			if i.Dst == ir.Value(s.alloca) {
				cur = i.Val
			}
		case *ir.Load:
			if i.Src == ir.Value(s.alloca) {
				p.replace(i, cur)
			}
		}
	}
	p.kill(s)
	return true
}

func (p *promoter) firstStore(s *slot) *ir.Store {
	var first *ir.Store
	for _, st := range s.stores {
		if first == nil || p.before(st, first) {
			first = st
		}
	}
	return first
}
