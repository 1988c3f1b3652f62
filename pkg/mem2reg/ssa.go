package mem2reg

import (
	"fmt"

	"github.com/yHan234/SYsU-lang-Compiler/pkg/ir"
)

// construct runs dominance-frontier SSA construction for the slots that
// no fast path could handle.
func (p *promoter) construct(slots []*slot) {
	owner := make(map[*ir.Phi]int)
	tracked := make(map[*ir.Alloca]int)
	for k, s := range slots {
		tracked[s.alloca] = k
		for n, b := range p.phiBlocks(s) {
			phi := &ir.Phi{Typ: s.alloca.Elem}
			ir.SetName(phi, fmt.Sprintf("%s.%d", s.alloca.Name, n))
			b.InsertAt(0, phi)
			owner[phi] = k
			p.stats.PhisInserted++
		}
	}

	p.rename(slots, tracked, owner)

	// accesses in blocks the walk never reached
	for _, s := range slots {
		for _, l := range s.loads {
			if !p.dead[l] {
				p.replace(l, &ir.Undef{Typ: s.alloca.Elem})
			}
		}
		p.kill(s)
	}
	p.patchIncoming(owner)
}

// phiBlocks returns the blocks that need a phi for s: the iterated
// dominance frontier of its storing blocks, restricted to live-in blocks.
func (p *promoter) phiBlocks(s *slot) []*ir.Block {
	var defs []*ir.Block
	isDef := make(map[*ir.Block]bool)
	for _, st := range s.stores {
		if b := st.Block(); !isDef[b] {
			isDef[b] = true
			defs = append(defs, b)
		}
	}
	live := p.liveIn(s, isDef)
	return p.dt.IteratedFrontier(defs, func(b *ir.Block) bool { return live[b] })
}

// liveIn finds the blocks where the slot's value on entry can be loaded
// before being overwritten.
func (p *promoter) liveIn(s *slot, isDef map[*ir.Block]bool) map[*ir.Block]bool {
	live := make(map[*ir.Block]bool)
	var work []*ir.Block
	for _, l := range s.loads {
		b := l.Block()
		if live[b] {
			continue
		}
		if isDef[b] && p.storedBefore(s, l) {
			continue
		}
		live[b] = true
		work = append(work, b)
	}
	for len(work) > 0 {
		b := work[len(work)-1]
		work = work[:len(work)-1]
		for _, pred := range p.preds[b] {
			if live[pred] || isDef[pred] {
				continue
			}
			live[pred] = true
			work = append(work, pred)
		}
	}
	return live
}

// storedBefore reports whether a store to the slot precedes l in its block.
func (p *promoter) storedBefore(s *slot, l *ir.Load) bool {
	for _, st := range s.stores {
		if st.Block() == l.Block() && p.before(st, l) {
			return true
		}
	}
	return false
}

// renameItem is one pending edge of the rename walk.
type renameItem struct {
	b, pred *ir.Block
	vals    []ir.Value
}

// rename walks the CFG from entry with an explicit worklist, threading the
// current value of each slot. A block is processed once; later arrivals
// only feed its phis.
func (p *promoter) rename(slots []*slot, tracked map[*ir.Alloca]int, owner map[*ir.Phi]int) {
	init := make([]ir.Value, len(slots))
	for k, s := range slots {
		init[k] = &ir.Undef{Typ: s.alloca.Elem}
	}
	visited := make(map[*ir.Block]bool)
	work := []renameItem{{b: p.f.Entry(), vals: init}}
	for len(work) > 0 {
		it := work[len(work)-1]
		work = work[:len(work)-1]

		phis := it.b.Phis()
		for _, phi := range phis {
			if k, ok := owner[phi]; ok {
				phi.AddIncoming(it.vals[k], it.pred)
			}
		}
		if visited[it.b] {
			continue
		}
		visited[it.b] = true

		vals := append([]ir.Value(nil), it.vals...)
		for _, phi := range phis {
			if k, ok := owner[phi]; ok {
				vals[k] = phi
			}
		}
		for _, i := range it.b.Instrs {
			switch i := i.(type) {
			case *ir.Load:
				if a, ok := i.Src.(*ir.Alloca); ok {
					if k, ok := tracked[a]; ok {
						p.replace(i, vals[k])
					}
				}
			case *ir.Store:
				if a, ok := i.Dst.(*ir.Alloca); ok {
					if k, ok := tracked[a]; ok {
						vals[k] = i.Val
						p.dead[i] = true
					}
				}
			}
		}

		succs := it.b.Succs()
		for n := len(succs) - 1; n >= 0; n-- {
			work = append(work, renameItem{b: succs[n], pred: it.b, vals: vals})
		}
	}
}

// patchIncoming gives every inserted phi one entry per predecessor edge,
// filling edges the walk never took with poison.
func (p *promoter) patchIncoming(owner map[*ir.Phi]int) {
	for phi := range owner {
		have := make(map[*ir.Block]int)
		for _, inc := range phi.Incs {
			have[inc.Pred]++
		}
		for _, pred := range p.preds[phi.Block()] {
			if have[pred] > 0 {
				have[pred]--
				continue
			}
			phi.AddIncoming(&ir.Poison{Typ: phi.Typ}, pred)
		}
	}
}

func (p *promoter) resolve(v ir.Value) ir.Value {
	for {
		next, ok := p.subst[v]
		if !ok {
			return v
		}
		v = next
	}
}

// simplifyPhis removes phis that merge a single value, repeating until
// nothing changes. Undefined inputs are ignored as long as the surviving
// value dominates the phi.
func (p *promoter) simplifyPhis() {
	for changed := true; changed; {
		changed = false
		for _, b := range p.f.Blocks {
			for _, phi := range b.Phis() {
				if p.dead[phi] {
					continue
				}
				v, ok := p.commonValue(phi)
				if !ok {
					continue
				}
				p.subst[phi] = v
				p.dead[phi] = true
				p.stats.PhisRemoved++
				changed = true
			}
		}
	}
}

func (p *promoter) commonValue(phi *ir.Phi) (ir.Value, bool) {
	var common ir.Value
	skipped := false
	for _, inc := range phi.Incs {
		v := p.resolve(inc.Value)
		switch {
		case v == ir.Value(phi):
		case ir.IsUndefined(v):
			skipped = true
		case common == nil:
			common = v
		case !ir.Same(common, v):
			return nil, false
		}
	}
	if common == nil {
		return &ir.Undef{Typ: phi.Typ}, true
	}
	if skipped && !p.dominatesPhi(common, phi) {
		return nil, false
	}
	return common, true
}

func (p *promoter) dominatesPhi(v ir.Value, phi *ir.Phi) bool {
	if ir.IsConstant(v) {
		return true
	}
	i, ok := v.(ir.Instr)
	if !ok {
		return false
	}
	return i.Block() != phi.Block() && p.dt.Dominates(i.Block(), phi.Block())
}

// commit rewrites operands through the substitution map and erases the
// dead instructions.
func (p *promoter) commit() {
	for _, b := range p.f.Blocks {
		kept := b.Instrs[:0]
		for _, i := range b.Instrs {
			if p.dead[i] {
				ir.Detach(i)
				continue
			}
			for _, op := range i.Operands() {
				*op = p.resolve(*op)
			}
			kept = append(kept, i)
		}
		for k := len(kept); k < len(b.Instrs); k++ {
			b.Instrs[k] = nil
		}
		b.Instrs = kept
	}
}
