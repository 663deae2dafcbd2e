// Package scoperesolution implements the scope-resolution optimisation pass
// of spec.md §4.7: run scope analysis, then rewrite every load-like
// instruction whose abstract value resolved to something more precise than
// "unknown", and drop StVar writes to the local scope once it is proven the
// environment is never observed.
//
// Grounded on the teacher's pass shape in internal/ir/optimizations.go (an
// OptimizationPass with a single Apply(*Program) bool entry point), adapted
// here to Apply(*ir.Function) (bool, error) operating on PIR.
package scoperesolution

import (
	"github.com/blorente/rir/internal/cfg"
	"github.com/blorente/rir/internal/ir"
	"github.com/blorente/rir/internal/scope"
	"github.com/blorente/rir/internal/types"
)

// Apply runs scope analysis over fn and rewrites it per spec.md §4.7,
// reporting whether anything changed. Scope analysis, and therefore this
// pass, operates only over fn's own entry graph: Promise bodies are not
// separately walked.
func Apply(fn *ir.Function, opts scope.Options) (bool, error) {
	res := scope.Analyze(fn, opts)
	changed := false

	for _, bb := range cfg.Reachable(fn.Entry()) {
		// Snapshot: rewriting mutates bb.Instructions in place as we go, so
		// iterate over a copy and re-locate each instruction's live index.
		for _, inst := range append([]ir.Instruction(nil), bb.Instructions...) {
			env, name, idx, ok := loadOperands(inst)
			if !ok {
				continue
			}
			av, ok := res.Loads[inst]
			if !ok || av.IsUnknown() {
				continue
			}

			pos := indexOf(bb, inst)
			if pos < 0 {
				continue // already rewritten away (e.g. via an earlier phi insertion)
			}

			if v, ok := av.SingleValue(); ok {
				replaceUses(fn.Entry(), inst, v)
				if !ir.NeedsEnv(inst) || !v.Type().MaybeLazy() {
					cfg.Remove(bb, indexOf(bb, inst))
				}
				changed = true
				continue
			}

			if k, ok := av.SingleArg(); ok {
				fresh := ir.NewLdArg(fn.NextInstrID(), av.Type(), env, k)
				replaceUses(fn.Entry(), inst, fresh)
				cfg.Replace(bb, indexOf(bb, inst), fresh)
				changed = true
				continue
			}

			if phi, ok := buildPhi(fn, res, bb, inst, env, name, idx, opts); ok {
				replaceUses(fn.Entry(), inst, phi)
				pos = indexOf(bb, inst)
				if res.NeedEnv {
					cfg.Insert(bb, pos, phi)
				} else {
					cfg.Replace(bb, pos, phi)
				}
				changed = true
			}
		}
	}

	if !res.NeedEnv {
		for _, bb := range cfg.Reachable(fn.Entry()) {
			for {
				pos := -1
				for i, inst := range bb.Instructions {
					if st, ok := inst.(*ir.StVar); ok && sameEnv(st.Env, fn.LocalScope()) {
						pos = i
						break
					}
				}
				if pos < 0 {
					break
				}
				cfg.Remove(bb, pos)
				changed = true
			}
		}
	}

	return changed, nil
}

// loadOperands extracts the (env, name-or-index) identity of a load-like
// instruction, reporting false for anything else.
func loadOperands(inst ir.Instruction) (env ir.Value, name string, idx int, ok bool) {
	switch i := inst.(type) {
	case *ir.LdVar:
		return i.Env, i.Name, 0, true
	case *ir.LdFun:
		return i.Env, i.Name, 0, true
	case *ir.LdArg:
		return i.Env, "", i.Index, true
	default:
		return nil, "", 0, false
	}
}

func asEnvironment(v ir.Value) *ir.Environment {
	e, _ := v.(*ir.Environment)
	return e
}

func sameEnv(v ir.Value, e *ir.Environment) bool {
	ev, ok := v.(*ir.Environment)
	return ok && ev == e
}

func indexOf(bb *ir.BasicBlock, inst ir.Instruction) int {
	for i, x := range bb.Instructions {
		if x == inst {
			return i
		}
	}
	return -1
}

// replaceUses rewrites every operand equal to old, anywhere in the graph
// reachable from entry, to new. Phi inputs are keyed by predecessor block
// rather than position, so they are rewritten via SetInput instead of the
// positional ReplaceOperand.
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

// buildPhi implements the third rule of spec.md §4.7: when the resolved
// abstract value names multiple concrete producers and no formal, build a
// Phi with one input per predecessor of the load's own block. Since the
// solver's fixed point only keeps the already-joined entry state at a merge
// point, the contribution of each individual predecessor edge is recovered
// by replaying that predecessor's own instructions via scope.ReplayExit.
func buildPhi(fn *ir.Function, res *scope.Result, bb *ir.BasicBlock, inst ir.Instruction, env ir.Value, name string, idx int, opts scope.Options) (*ir.Phi, bool) {
	e := asEnvironment(env)
	if e == nil {
		return nil, false
	}
	preds := cfg.Preds(fn.Entry())[bb]
	if len(preds) == 0 {
		return nil, false
	}

	phi := ir.NewPhi(fn.NextInstrID(), types.Bottom)
	var resultType types.PirType
	first := true

	key := name
	if _, isArg := inst.(*ir.LdArg); isArg {
		if idx < 0 || idx >= len(fn.Params) {
			return nil, false
		}
		key = fn.Params[idx].Name
	}

	for _, pred := range preds {
		in, ok := res.In[pred]
		if !ok {
			continue
		}
		predExit := scope.ReplayExit(fn, in, pred, opts)

		av := predExit.Get(e, key)
		v, ok := av.SingleValue()
		if !ok {
			continue
		}
		phi.SetInput(pred, v)
		if first {
			resultType = v.Type()
			first = false
		} else {
			resultType = types.Union(resultType, v.Type())
		}
	}

	if len(phi.Inputs) < 2 {
		return nil, false
	}
	phi.SetType(resultType)
	return phi, true
}
