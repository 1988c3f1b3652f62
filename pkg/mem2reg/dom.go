package mem2reg

import "github.com/yHan234/SYsU-lang-Compiler/pkg/ir"

// DomTree holds the dominator tree of the blocks reachable from entry.
type DomTree struct {
	entry    *ir.Block
	idom     map[*ir.Block]*ir.Block
	rpo      []*ir.Block
	order    map[*ir.Block]int // reverse postorder number
	children map[*ir.Block][]*ir.Block
	preds    map[*ir.Block][]*ir.Block
	frontier map[*ir.Block][]*ir.Block
}

// Dominators computes immediate dominators with the iterative
// Cooper-Harvey-Kennedy algorithm over reverse postorder.
func Dominators(f *ir.Function) *DomTree {
	entry := f.Entry()
	dt := &DomTree{
		entry:    entry,
		idom:     make(map[*ir.Block]*ir.Block),
		order:    make(map[*ir.Block]int),
		children: make(map[*ir.Block][]*ir.Block),
		preds:    f.Preds(),
	}
	dt.rpo = reversePostorder(entry)
	for i, b := range dt.rpo {
		dt.order[b] = i
	}

	dt.idom[entry] = entry
	for changed := true; changed; {
		changed = false
		for _, b := range dt.rpo[1:] {
			var idom *ir.Block
			for _, p := range dt.preds[b] {
				if dt.idom[p] == nil {
					continue
				}
				if idom == nil {
					idom = p
				} else {
					idom = dt.intersect(p, idom)
				}
			}
			if idom != nil && dt.idom[b] != idom {
				dt.idom[b] = idom
				changed = true
			}
		}
	}

	for _, b := range dt.rpo[1:] {
		dt.children[dt.idom[b]] = append(dt.children[dt.idom[b]], b)
	}
	return dt
}

func (dt *DomTree) intersect(a, b *ir.Block) *ir.Block {
	for a != b {
		for dt.order[a] > dt.order[b] {
			a = dt.idom[a]
		}
		for dt.order[b] > dt.order[a] {
			b = dt.idom[b]
		}
	}
	return a
}

// reversePostorder walks the successors of entry depth first with an
// explicit stack.
func reversePostorder(entry *ir.Block) []*ir.Block {
	type frame struct {
		b    *ir.Block
		next int
	}
	seen := map[*ir.Block]bool{entry: true}
	stack := []frame{{b: entry}}
	var post []*ir.Block
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		succs := top.b.Succs()
		if top.next < len(succs) {
			s := succs[top.next]
			top.next++
			if !seen[s] {
				seen[s] = true
				stack = append(stack, frame{b: s})
			}
			continue
		}
		post = append(post, top.b)
		stack = stack[:len(stack)-1]
	}
	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}

// Reachable reports whether b can be reached from the entry block.
func (dt *DomTree) Reachable(b *ir.Block) bool {
	_, ok := dt.order[b]
	return ok
}

// IDom returns the immediate dominator of b, or nil for the entry block
// and unreachable blocks.
func (dt *DomTree) IDom(b *ir.Block) *ir.Block {
	if b == dt.entry {
		return nil
	}
	return dt.idom[b]
}

// Dominates reports whether a dominates b. Every block dominates itself.
func (dt *DomTree) Dominates(a, b *ir.Block) bool {
	if !dt.Reachable(a) || !dt.Reachable(b) {
		return false
	}
	for dt.order[b] > dt.order[a] {
		b = dt.idom[b]
	}
	return a == b
}

// Children returns the blocks immediately dominated by b.
func (dt *DomTree) Children(b *ir.Block) []*ir.Block {
	return dt.children[b]
}

// Frontier returns the dominance frontier of b.
func (dt *DomTree) Frontier(b *ir.Block) []*ir.Block {
	if dt.frontier == nil {
		dt.computeFrontier()
	}
	return dt.frontier[b]
}

func (dt *DomTree) computeFrontier() {
	dt.frontier = make(map[*ir.Block][]*ir.Block)
	seen := make(map[[2]*ir.Block]bool)
	for _, b := range dt.rpo {
		preds := dt.preds[b]
		if len(preds) < 2 {
			continue
		}
		for _, p := range preds {
			if !dt.Reachable(p) {
				continue
			}
			for runner := p; runner != dt.idom[b]; runner = dt.idom[runner] {
				key := [2]*ir.Block{runner, b}
				if !seen[key] {
					seen[key] = true
					dt.frontier[runner] = append(dt.frontier[runner], b)
				}
				if runner == dt.entry {
					break
				}
			}
		}
	}
}

// IteratedFrontier returns DF+ of defs, limited to blocks accepted by keep,
// in reverse postorder.
func (dt *DomTree) IteratedFrontier(defs []*ir.Block, keep func(*ir.Block) bool) []*ir.Block {
	in := make(map[*ir.Block]bool)
	queued := make(map[*ir.Block]bool)
	work := append([]*ir.Block(nil), defs...)
	for _, d := range defs {
		queued[d] = true
	}
	for len(work) > 0 {
		b := work[len(work)-1]
		work = work[:len(work)-1]
		for _, y := range dt.Frontier(b) {
			if in[y] || !keep(y) {
				continue
			}
			in[y] = true
			if !queued[y] {
				queued[y] = true
				work = append(work, y)
			}
		}
	}
	var out []*ir.Block
	for _, b := range dt.rpo {
		if in[b] {
			out = append(out, b)
		}
	}
	return out
}
