// Package absint implements the generic fixed-point abstract-interpretation
// framework of spec.md §4.5: a solver parameterized entirely by a
// user-supplied abstract state, generalized from the teacher's single
// purpose-built whole-function walk (internal/semantic/flow_analyzer.go)
// into a reusable framework any per-instruction analysis can instantiate.
package absint

import (
	"github.com/blorente/rir/internal/cfg"
	"github.com/blorente/rir/internal/ir"
)

// State is an abstract value attached to one point in the program. It must
// support a deep copy (so per-block working states don't alias each other)
// and a destructive join that reports whether it changed anything.
type State interface {
	// Clone returns an independent copy of the state.
	Clone() State
	// Merge joins other into the receiver and reports whether the receiver
	// changed as a result.
	Merge(other State) bool
}

// Transfer updates state to reflect having executed instr.
type Transfer func(state State, instr ir.Instruction)

// Result holds the stabilised per-block entry states plus the exit state,
// once the solver has reached a fixed point.
type Result struct {
	// In is the stabilised entry state for each reachable block.
	In map[*ir.BasicBlock]State
	// Exit is the stabilised state at every program point with no
	// successor (every reachable Return block merges into it).
	Exit State
}

// Run executes the fixed-point solver over every block reachable from
// entry, per spec.md §4.5: initialise in[entry] via init, then repeat a
// breadth-first pass over reachable blocks until a full pass produces no
// change. exit is not derived from init: it begins as exitZero, the bottom
// of the caller's lattice, and only ever grows via Merge.
func Run(entry *ir.BasicBlock, init State, exitZero State, transfer Transfer) Result {
	blocks := cfg.Reachable(entry)
	in := make(map[*ir.BasicBlock]State, len(blocks))
	for _, bb := range blocks {
		in[bb] = exitZero.Clone()
	}
	in[entry] = init

	exit := exitZero.Clone()

	for {
		changed := false
		for _, bb := range blocks {
			local := in[bb].Clone()
			for _, inst := range bb.Instructions {
				transfer(local, inst)
			}
			succs := bb.Successors()
			if len(succs) == 0 {
				if exit.Merge(local) {
					changed = true
				}
				continue
			}
			for _, s := range succs {
				if in[s].Merge(local) {
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}

	return Result{In: in, Exit: exit}
}
