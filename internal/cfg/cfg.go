// Package cfg implements the control-flow-graph utilities of spec.md
// §4.1: traversal, a predecessor index, and the block-mutation primitives
// every later pass builds on.
//
// Visitor ordering is deliberately unspecified beyond "each reachable block
// exactly once, no unreachable block" (spec.md §4.1); callers that need a
// specific order (phi-predecessor alignment, dominance-sensitive rewrites)
// must record it explicitly rather than rely on Walk/Check's iteration
// order.
package cfg

import "github.com/blorente/rir/internal/ir"

// Walk visits every BasicBlock reachable from entry, breadth-first, each
// exactly once.
func Walk(entry *ir.BasicBlock, visit func(*ir.BasicBlock)) {
	if entry == nil {
		return
	}
	seen := map[*ir.BasicBlock]bool{entry: true}
	queue := []*ir.BasicBlock{entry}
	for len(queue) > 0 {
		bb := queue[0]
		queue = queue[1:]
		visit(bb)
		for _, succ := range bb.Successors() {
			if succ != nil && !seen[succ] {
				seen[succ] = true
				queue = append(queue, succ)
			}
		}
	}
}

// Reachable returns every BasicBlock reachable from entry, in Walk order.
func Reachable(entry *ir.BasicBlock) []*ir.BasicBlock {
	var out []*ir.BasicBlock
	Walk(entry, func(bb *ir.BasicBlock) { out = append(out, bb) })
	return out
}

// Check performs a depth-first traversal from entry, calling visit on each
// reachable block exactly once; it stops as soon as visit returns false and
// reports whether every visited block returned true.
func Check(entry *ir.BasicBlock, visit func(*ir.BasicBlock) bool) bool {
	if entry == nil {
		return true
	}
	seen := map[*ir.BasicBlock]bool{}
	var dfs func(bb *ir.BasicBlock) bool
	dfs = func(bb *ir.BasicBlock) bool {
		if seen[bb] {
			return true
		}
		seen[bb] = true
		if !visit(bb) {
			return false
		}
		for _, succ := range bb.Successors() {
			if succ != nil && !dfs(succ) {
				return false
			}
		}
		return true
	}
	return dfs(entry)
}

// Preds computes the predecessor index for every block reachable from
// entry: for each block b, the list of blocks with an edge into b. Computed
// once per call; callers that need it repeatedly should cache the result
// themselves (spec.md §4.1: "a predecessor index, computed once").
func Preds(entry *ir.BasicBlock) map[*ir.BasicBlock][]*ir.BasicBlock {
	preds := map[*ir.BasicBlock][]*ir.BasicBlock{}
	Walk(entry, func(bb *ir.BasicBlock) {
		if _, ok := preds[bb]; !ok {
			preds[bb] = nil
		}
		for _, succ := range bb.Successors() {
			preds[succ] = append(preds[succ], bb)
		}
	})
	return preds
}
