// Package cleanup implements the cleanup pass of spec.md §4.9: dead-code
// elimination, trivial cast/phi simplification, Promise garbage collection,
// and CFG compaction, repeated to a fixed point with compaction run once
// per repetition.
//
// Grounded on the teacher's DeadCodeElimination/CommonSubexpressionElimination
// passes in internal/ir/optimizations.go (a per-block instruction sweep
// rebuilding the block's instruction slice) for the instruction-cleanup
// half, and on the wazero ssa/pass.go reference
// (passDeadBlockEliminationOpt/passNopInstElimination, visible under
// _examples/other_examples) for the CFG-compaction half.
package cleanup

import (
	"github.com/blorente/rir/internal/cfg"
	"github.com/blorente/rir/internal/ir"
	"github.com/blorente/rir/internal/types"
)

// Apply runs cleanup over fn and every one of its Promises until a full
// repetition makes no further change, compacting the CFG once at the end of
// each repetition and renumbering at the very end. Reports whether anything
// changed across the whole run. A single call runs only one repetition when
// that first repetition changes nothing; the pipeline driver calls Apply
// once per round.
func Apply(fn *ir.Function) (bool, error) {
	changed := false
	for {
		roundChanged := false

		if instructionCleanup(fn.Entry()) {
			roundChanged = true
		}
		for _, p := range fn.Promises {
			if instructionCleanup(p.Entry()) {
				roundChanged = true
			}
		}

		if gcPromises(fn) {
			roundChanged = true
		}

		if compactCode(fn) {
			roundChanged = true
		}
		for _, p := range fn.Promises {
			if compactCode(p) {
				roundChanged = true
			}
		}

		if !roundChanged {
			break
		}
		changed = true
	}

	renumber(fn)
	for _, p := range fn.Promises {
		renumber(p)
	}
	return changed, nil
}

// ---- instruction cleanup ----

// instructionCleanup implements the per-block rules of spec.md §4.9's
// "Instruction cleanup" bullet, run once over every block reachable from
// entry. Use counts are snapshotted at entry to the sweep; a cascade of
// dependent deletions converges over repeated Apply rounds rather than
// within a single call, matching the teacher's own single-pass-per-call
// DCE shape.
func instructionCleanup(entry *ir.BasicBlock) bool {
	changed := false
	uses := usesOf(entry)

	for _, bb := range cfg.Reachable(entry) {
		pos := 0
		for pos < len(bb.Instructions) {
			inst := bb.Instructions[pos]

			if phi, ok := inst.(*ir.Phi); ok {
				if sole, ok := collapsiblePhi(phi); ok {
					replaceUses(entry, phi, sole)
					cfg.Remove(bb, pos)
					changed = true
					continue
				}
				if recomputePhiType(phi) {
					changed = true
				}
				pos++
				continue
			}

			if repl, ok := trivialCast(inst); ok {
				replaceUses(entry, inst, repl)
				cfg.Remove(bb, pos)
				changed = true
				continue
			}

			if isDeadPure(inst, uses) {
				cfg.Remove(bb, pos)
				changed = true
				continue
			}

			pos++
		}
	}
	return changed
}

// usesOf counts, for every Instruction reachable from entry, how many
// operand positions (including Phi inputs) reference it as a Value.
func usesOf(entry *ir.BasicBlock) map[ir.Instruction]int {
	uses := map[ir.Instruction]int{}
	for _, bb := range cfg.Reachable(entry) {
		for _, inst := range bb.Instructions {
			if phi, ok := inst.(*ir.Phi); ok {
				for _, v := range phi.Inputs {
					if p, ok := v.(ir.Instruction); ok {
						uses[p]++
					}
				}
				continue
			}
			for _, v := range inst.Operands() {
				if p, ok := v.(ir.Instruction); ok {
					uses[p]++
				}
			}
		}
	}
	return uses
}

// isDeadPure implements "if ¬mightIO ∧ ¬changesEnv ∧ unused: delete".
// Terminators are never considered: they have no result a use count would
// capture, and deleting one would violate the terminator-discipline
// invariant of spec.md §3.
func isDeadPure(inst ir.Instruction, uses map[ir.Instruction]int) bool {
	if inst.IsTerminator() {
		return false
	}
	eff := inst.Effects()
	return !eff.MightIO && !eff.ChangesEnv && uses[inst] == 0
}

// trivialCast implements the Force/ChkMissing/ChkClosure simplification
// rules: once a cast's operand type already satisfies what the cast would
// have proven, the cast is a no-op and its uses are replaced by its operand
// directly.
func trivialCast(inst ir.Instruction) (ir.Value, bool) {
	switch i := inst.(type) {
	case *ir.Force:
		if types.Subtype(i.Operand.Type(), types.ValOrMissing) {
			return i.Operand, true
		}
	case *ir.ChkMissing:
		if types.Subtype(i.Operand.Type(), types.Val) {
			return i.Operand, true
		}
	case *ir.ChkClosure:
		if types.Subtype(i.Operand.Type(), types.Val) {
			return i.Operand, true
		}
	}
	return nil, false
}

// collapsiblePhi reports whether phi's inputs, once duplicates are
// collapsed, name exactly one distinct Value.
func collapsiblePhi(phi *ir.Phi) (ir.Value, bool) {
	var sole ir.Value
	for _, v := range phi.Inputs {
		if sole == nil {
			sole = v
			continue
		}
		if v != sole {
			return nil, false
		}
	}
	return sole, sole != nil
}

// recomputePhiType re-derives phi's result type as the join of its
// (deduplicated) input types, reporting whether it changed.
func recomputePhiType(phi *ir.Phi) bool {
	joined := types.Bottom
	for _, v := range phi.Inputs {
		joined = types.Union(joined, v.Type())
	}
	if joined == phi.Type() {
		return false
	}
	phi.SetType(joined)
	return true
}

// replaceUses rewrites every operand equal to old, anywhere in the graph
// reachable from entry, to repl.
func replaceUses(entry *ir.BasicBlock, old, repl ir.Value) {
	for _, bb := range cfg.Reachable(entry) {
		for _, inst := range bb.Instructions {
			if phi, ok := inst.(*ir.Phi); ok {
				for pred, v := range phi.Inputs {
					if v == old {
						phi.SetInput(pred, repl)
					}
				}
				continue
			}
			for i, v := range inst.Operands() {
				if v == old {
					inst.ReplaceOperand(i, repl)
				}
			}
		}
	}
}

// ---- Promise GC ----

// gcPromises implements "Promise GC: after the instruction sweep, delete
// any Promise whose id is not marked reachable" — a Promise is reachable if
// some MkArg anywhere in fn or any of its (still-live) Promises names it.
func gcPromises(fn *ir.Function) bool {
	reachable := map[*ir.Promise]bool{}
	mark := func(entry *ir.BasicBlock) {
		for _, bb := range cfg.Reachable(entry) {
			for _, inst := range bb.Instructions {
				if mkarg, ok := inst.(*ir.MkArg); ok && mkarg.Promise != nil {
					reachable[mkarg.Promise] = true
				}
			}
		}
	}
	mark(fn.Entry())
	for _, p := range fn.Promises {
		if p.Entry() != nil {
			mark(p.Entry())
		}
	}

	changed := false
	for _, p := range append([]*ir.Promise(nil), fn.Promises...) {
		if !reachable[p] {
			fn.RemovePromise(p)
			changed = true
		}
	}
	return changed
}

// ---- CFG compaction ----

// compactCode implements spec.md §4.9's "CFG compaction" bullet for one
// Code unit: merge a block into its unique fall-through successor, remove
// empty fall-through blocks, and collapse empty-armed conditionals that
// rejoin at the same block. Iterates internally to a local fixed point
// since blocks only ever shrink in number, never grow.
func compactCode(code ir.Code) bool {
	changed := false
	for {
		roundChanged := false
		if mergeFallthroughs(code) {
			roundChanged = true
		}
		if removeEmptyBlocks(code) {
			roundChanged = true
		}
		if collapseDiamonds(code) {
			roundChanged = true
		}
		if !roundChanged {
			break
		}
		changed = true
	}
	return changed
}

// mergeFallthroughs merges a block and its unique fall-through successor
// when the successor has exactly one predecessor, per spec.md §4.9.
func mergeFallthroughs(code ir.Code) bool {
	preds := cfg.Preds(code.Entry())
	for _, bb := range cfg.Reachable(code.Entry()) {
		if bb.Terminator() != nil {
			continue
		}
		succ := bb.Next0
		if succ == nil || succ == code.Entry() || succ == bb {
			continue
		}
		if len(preds[succ]) != 1 {
			continue
		}
		mergeInto(bb, succ)
		return true
	}
	return false
}

// mergeInto absorbs succ's instructions and successor edges into bb, then
// retargets any Phi referencing succ as a predecessor onto bb.
func mergeInto(bb, succ *ir.BasicBlock) {
	for _, inst := range succ.Instructions {
		inst.SetBlock(bb)
	}
	bb.Instructions = append(bb.Instructions, succ.Instructions...)
	bb.Next0, bb.Next1 = succ.Next0, succ.Next1
	rewritePhiPredecessor(bb.Owner, succ, bb)
}

// removeEmptyBlocks deletes an empty fall-through block by retargeting its
// predecessors directly to its successor, when that successor has only the
// empty block itself as a predecessor (spec.md §4.9).
func removeEmptyBlocks(code ir.Code) bool {
	preds := cfg.Preds(code.Entry())
	for _, bb := range cfg.Reachable(code.Entry()) {
		if bb == code.Entry() || len(bb.Instructions) != 0 {
			continue
		}
		succ := bb.Next0
		if succ == nil || succ == bb {
			continue
		}
		if len(preds[succ]) != 1 {
			continue
		}
		bypass(bb, succ, preds[bb])
		return true
	}
	return false
}

// bypass redirects every predecessor of the empty block bb straight to
// succ, and carries forward any Phi input succ has keyed on bb onto each of
// those predecessors (they all fed the same, unmodified value through bb).
func bypass(bb, succ *ir.BasicBlock, preds []*ir.BasicBlock) {
	for _, inst := range succ.Instructions {
		phi, ok := inst.(*ir.Phi)
		if !ok {
			continue
		}
		if v, ok := phi.Inputs[bb]; ok {
			delete(phi.Inputs, bb)
			for _, p := range preds {
				phi.SetInput(p, v)
			}
		}
	}
	for _, p := range preds {
		redirectSuccessor(p, bb, succ)
	}
}

// collapseDiamonds collapses a Branch whose two arms are both empty
// fall-through blocks rejoining at the same target into an unconditional
// jump, per spec.md §4.9.
func collapseDiamonds(code ir.Code) bool {
	for _, bb := range cfg.Reachable(code.Entry()) {
		br, ok := bb.Terminator().(*ir.Branch)
		if !ok {
			continue
		}
		then, els := br.ThenBlock, br.ElseBlock
		if !isEmptyFallthrough(then) || !isEmptyFallthrough(els) {
			continue
		}
		if then.Next0 != els.Next0 {
			continue
		}
		target := then.Next0
		cfg.Remove(bb, len(bb.Instructions)-1)
		bb.Next0, bb.Next1 = target, nil
		return true
	}
	return false
}

func isEmptyFallthrough(bb *ir.BasicBlock) bool {
	return bb != nil && len(bb.Instructions) == 0 && bb.Next0 != nil
}

func redirectSuccessor(p, old, newBB *ir.BasicBlock) {
	if p.Next0 == old {
		p.Next0 = newBB
	}
	if p.Next1 == old {
		p.Next1 = newBB
	}
	if br, ok := p.Terminator().(*ir.Branch); ok {
		if br.ThenBlock == old {
			br.ThenBlock = newBB
		}
		if br.ElseBlock == old {
			br.ElseBlock = newBB
		}
	}
}

func rewritePhiPredecessor(code ir.Code, oldPred, newPred *ir.BasicBlock) {
	for _, bb := range cfg.Reachable(code.Entry()) {
		for _, inst := range bb.Instructions {
			phi, ok := inst.(*ir.Phi)
			if !ok {
				continue
			}
			if v, ok := phi.Inputs[oldPred]; ok {
				delete(phi.Inputs, oldPred)
				phi.SetInput(newPred, v)
			}
		}
	}
}

// ---- renumbering ----

// renumber implements "Renumber BBs contiguously": reassigns dense ids in
// Walk order to every block still reachable from code's entry, and drops
// any block that compaction orphaned from code's own block list (Design
// Notes §9: "compact on renumber").
func renumber(code ir.Code) {
	blocks := cfg.Reachable(code.Entry())
	for i, bb := range blocks {
		bb.ID = i
	}
	code.SetBlocks(blocks)
}
