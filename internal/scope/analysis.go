package scope

import (
	"github.com/blorente/rir/internal/absint"
	"github.com/blorente/rir/internal/ir"
)

// Options configures a scope analysis run.
type Options struct {
	// MaxRecursionDepth bounds the call-expansion rule of spec.md §4.6:
	// a Call whose callee's definite Function is known is analyzed
	// recursively only while the current depth is below this bound.
	// Exposed as a parameter per spec.md §9's Open Question ("tuning
	// constant; implementations may expose it as a parameter"); zero means
	// "use the default of 5".
	MaxRecursionDepth int
}

// DefaultOptions returns the spec's default recursion bound of 5.
func DefaultOptions() Options { return Options{MaxRecursionDepth: 5} }

func (o Options) normalized() Options {
	if o.MaxRecursionDepth <= 0 {
		o.MaxRecursionDepth = 5
	}
	return o
}

// Result is the outcome of analyzing one Function: the per-instruction load
// resolutions scope-resolution consumes, the stabilised per-block entry
// states and exit EnvMap, and the needEnv verdict of spec.md §4.7.
type Result struct {
	Loads   map[ir.Instruction]AbstractValue
	In      map[*ir.BasicBlock]*EnvMap
	Exit    *EnvMap
	NeedEnv bool
	opts    Options
}

// analyzer carries the state shared across a (possibly recursive) analysis
// run: the side-table of per-instruction load resolutions, which is global
// across recursion depth since recursive calls analyze instructions that
// belong to different Functions than the outer run's.
type analyzer struct {
	opts  Options
	loads map[ir.Instruction]AbstractValue
}

// Analyze runs scope analysis over fn, per spec.md §4.6: on start, the local
// scope is seeded with one entry per formal argument (abstract value =
// "formal i").
func Analyze(fn *ir.Function, opts Options) *Result {
	opts = opts.normalized()
	a := &analyzer{opts: opts, loads: map[ir.Instruction]AbstractValue{}}

	init := NewEnvMap()
	ae := init.EnvOf(fn.LocalScope())
	for i, p := range fn.Params {
		ae.Set(p.Name, FromArg(i, p.Type))
	}
	ae.Parent = parentStateOfEnv(fn.LocalScope().Parent)

	res := absint.Run(fn.Entry(), init, NewEnvMap(), a.transfer(fn, 0))
	exit := res.Exit.(*EnvMap)

	in := make(map[*ir.BasicBlock]*EnvMap, len(res.In))
	for bb, s := range res.In {
		in[bb] = s.(*EnvMap)
	}

	return &Result{Loads: a.loads, In: in, Exit: exit, NeedEnv: computeNeedEnv(exit, fn), opts: opts}
}

// ReplayExit re-derives the abstract state that flows out of bb, starting
// from the per-block entry state in (typically res.In[bb]), by replaying
// bb's own instructions through a fresh transfer closure. Scope-resolution
// uses this to recover per-predecessor contributions at a merge point: the
// solver's fixed point only retains the already-joined entry state of the
// merge block itself, so the individual edge a Phi needs must be
// reconstructed by rerunning the predecessor block in isolation.
func ReplayExit(fn *ir.Function, in *EnvMap, bb *ir.BasicBlock, opts Options) *EnvMap {
	opts = opts.normalized()
	a := &analyzer{opts: opts, loads: map[ir.Instruction]AbstractValue{}}
	state := in.Clone().(*EnvMap)
	transfer := a.transfer(fn, 0)
	for _, inst := range bb.Instructions {
		transfer(state, inst)
	}
	return state
}

// computeNeedEnv implements spec.md §4.7: true when the function's local
// scope is leaked at the exit state, or when scope analysis could not prove
// the absence of unknown environment accesses (modeled here as the local
// scope's Tainted flag, which every conservative fallback sets).
func computeNeedEnv(exit *EnvMap, fn *ir.Function) bool {
	ae, ok := exit.Envs[fn.LocalScope()]
	if !ok {
		return true
	}
	return ae.Leaked || ae.Tainted
}

func formalName(fn *ir.Function, idx int) string {
	if idx < 0 || idx >= len(fn.Params) {
		return ""
	}
	return fn.Params[idx].Name
}

func asEnv(v ir.Value) *ir.Environment {
	e, _ := v.(*ir.Environment)
	return e
}

func parentStateOfEnv(e *ir.Environment) ParentState {
	if e == nil {
		return ParentState{Kind: ParentKnown, Env: nil}
	}
	if ir.IsUnknownParent(e) {
		return ParentState{Kind: ParentUnknown}
	}
	return ParentState{Kind: ParentKnown, Env: e}
}

func parentStateOfValue(v ir.Value) ParentState {
	if v == nil {
		return ParentState{Kind: ParentKnown, Env: nil}
	}
	e, ok := v.(*ir.Environment)
	if !ok {
		return ParentState{Kind: ParentUnknown}
	}
	return parentStateOfEnv(e)
}

// transfer builds the absint.Transfer closure for analyzing fn at the given
// recursion depth; LdArg resolution needs fn's formal names, and Call needs
// the depth to decide whether to expand.
func (a *analyzer) transfer(fn *ir.Function, depth int) absint.Transfer {
	return func(s absint.State, instr ir.Instruction) {
		state := s.(*EnvMap)
		switch inst := instr.(type) {
		case *ir.LdVar:
			a.loads[inst] = state.Get(asEnv(inst.Env), inst.Name)
		case *ir.LdFun:
			env := asEnv(inst.Env)
			a.loads[inst] = state.Get(env, inst.Name)
			if env != nil {
				state.EnvOf(env).Taint()
			}
		case *ir.LdArg:
			a.loads[inst] = state.Get(asEnv(inst.Env), formalName(fn, inst.Index))
		case *ir.MkEnv:
			ae := state.EnvOf(inst.Result)
			for k, name := range inst.Names {
				ae.Set(name, FromValue(inst.Values[k]))
			}
			ae.Parent = parentStateOfValue(inst.Parent)
		case *ir.StVar:
			if env := asEnv(inst.Env); env != nil {
				state.EnvOf(env).Set(inst.Name, FromValue(inst.Value))
			}
		case *ir.Force:
			a.transferForce(state, inst, fn)
		case *ir.MkCls:
			state.SetClosure(inst, inst.Fn)
		case *ir.MkClsFun:
			state.SetClosure(inst, inst.Fn)
		case *ir.Call:
			a.transferCall(state, inst, depth)
		default:
			transferGeneric(state, instr)
		}
	}
}

// transferForce implements spec.md §4.6's Force refinement: forcing a
// directly-loaded var or arg whose current abstract value is not unknown
// refines that binding to the Force's own result, since the thunk is now
// known-evaluated. Per spec.md §9, a binding already at "unknown" (top) is
// never refined — doing so would be unsound against later instructions that
// read the original lazy value along some other path. Any other Force shape
// is a no-op for scope analysis.
func (a *analyzer) transferForce(state *EnvMap, inst *ir.Force, fn *ir.Function) {
	switch op := inst.Operand.(type) {
	case *ir.LdVar:
		if av, ok := a.loads[op]; ok && !av.IsUnknown() {
			if env := asEnv(op.Env); env != nil {
				state.EnvOf(env).Set(op.Name, FromValue(inst))
			}
		}
	case *ir.LdArg:
		if av, ok := a.loads[op]; ok && !av.IsUnknown() {
			if env := asEnv(op.Env); env != nil {
				state.EnvOf(env).Set(formalName(fn, op.Index), FromValue(inst))
			}
		}
	}
}

// transferCall implements spec.md §4.6's Call rule: when the callee's
// definite Function is known and the recursion bound has not been reached,
// scope analysis recurses into the callee with the caller's current state
// and the callsite's actual arguments bound to the callee's formals,
// merging the callee's exit state back. Otherwise it falls back to the
// conservative "everything else" rule: since a Call carries its
// environment interaction as effect metadata rather than a dedicated
// operand (spec.md §3), the fallback taints every environment currently
// tracked, rather than one it cannot name.
func (a *analyzer) transferCall(state *EnvMap, inst *ir.Call, depth int) {
	if depth < a.opts.MaxRecursionDepth {
		if callee, ok := state.DefiniteFunction(inst.Callee); ok {
			exit := a.analyzeCallee(callee, state, inst.Args, depth+1)
			state.Merge(exit)
			return
		}
	}
	for _, ae := range state.Envs {
		ae.Taint()
		ae.Leaked = true
	}
}

func (a *analyzer) analyzeCallee(callee *ir.Function, callerState *EnvMap, actuals []ir.Value, depth int) *EnvMap {
	init := callerState.Clone().(*EnvMap)
	ae := init.EnvOf(callee.LocalScope())
	for i, p := range callee.Params {
		if i < len(actuals) {
			ae.Set(p.Name, FromValue(actuals[i]))
		} else {
			ae.Set(p.Name, Unknown())
		}
	}
	ae.Parent = parentStateOfEnv(callee.LocalScope().Parent)

	res := absint.Run(callee.Entry(), init, NewEnvMap(), a.transfer(callee, depth))
	return res.Exit.(*EnvMap)
}

// transferGeneric implements the residual bucket of spec.md §4.6's Transfer
// rule list ("For everything else: if the instruction leaks its env, set
// leaked on that env; if it changes its env, taint it"). Since most
// remaining instructions (CallBuiltin, MkArg, MkCls's own environment read,
// arithmetic) do not name a single environment operand either, the
// conservative choice is the same whole-state taint/leak used by the Call
// fallback, applied only when the instruction's effects actually claim
// ChangesEnv or LeaksEnv.
func transferGeneric(state *EnvMap, instr ir.Instruction) {
	eff := instr.Effects()
	if !eff.ChangesEnv && !eff.LeaksEnv {
		return
	}
	for _, ae := range state.Envs {
		if eff.LeaksEnv {
			ae.Leaked = true
		}
		if eff.ChangesEnv {
			ae.Taint()
		}
	}
}
