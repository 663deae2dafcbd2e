// Package pipeline sequences the PIR optimization passes: inline, then
// scope-resolution, then cleanup, repeated to a fixed point per spec.md §6
// ("a conventional schedule is (inline -> scopeResolve -> cleanup) x k with
// k small (<=16) or until no pass reports a change").
//
// Grounded on the teacher's OptimizationPipeline.Run in
// internal/ir/optimizations.go (sequential pass application with per-pass
// change reporting), generalized here to iterate to a fixed point rather
// than run once, and to report per-round change detail
// (SPEC_FULL.md §6's Round supplement) rather than only a final bool.
package pipeline

import (
	"github.com/blorente/rir/internal/ir"
	"github.com/blorente/rir/internal/passes/cleanup"
	"github.com/blorente/rir/internal/passes/inline"
	"github.com/blorente/rir/internal/passes/scoperesolution"
	"github.com/blorente/rir/internal/scope"
)

// Options configures one pipeline run.
type Options struct {
	// MaxIterations bounds the inline/scopeResolve/cleanup repetition,
	// spec.md §6's "k small (<=16)". Zero means "use the default of 16".
	MaxIterations int
	// Scope configures the scope-analysis recursion bound scope-resolution
	// uses each round (spec.md §9's exposed tuning constant).
	Scope scope.Options
}

// DefaultOptions returns the spec's default schedule: 16 iterations, the
// default scope-analysis recursion bound of 5.
func DefaultOptions() Options {
	return Options{MaxIterations: 16, Scope: scope.DefaultOptions()}
}

func (o Options) normalized() Options {
	if o.MaxIterations <= 0 || o.MaxIterations > 16 {
		o.MaxIterations = 16
	}
	return o
}

// Round records which passes actually changed fn during one iteration,
// letting a caller instrumenting compile time see which of
// inline/scopeResolve/cleanup did the work each round (SPEC_FULL.md §6).
type Round struct {
	Inlined       bool
	ScopeResolved bool
	CleanedUp     bool
}

// Changed reports whether any pass in this round reported a change.
func (r Round) Changed() bool { return r.Inlined || r.ScopeResolved || r.CleanedUp }

// Run sequences inline -> scopeResolve -> cleanup over fn (owned by m, since
// the inliner may need to allocate a fresh Environment — see
// internal/passes/inline's package doc), repeating until a full round makes
// no change or opts.MaxIterations is reached. Cleanup's own Apply already
// iterates internally to a fixed point each round, comfortably satisfying
// spec.md §4.9's "run at least twice per optimization".
//
// A capability gap from any one pass (§7, tier 3) aborts this Function's
// optimization only; it is returned to the caller. fn is rewritten in place,
// so it keeps whatever changes the passes made before the error; other
// Functions in the Module are not touched.
func Run(m *ir.Module, fn *ir.Function, opts Options) ([]Round, error) {
	opts = opts.normalized()
	var rounds []Round

	for i := 0; i < opts.MaxIterations; i++ {
		var r Round
		var err error

		r.Inlined, err = inline.Apply(m, fn)
		if err != nil {
			return rounds, err
		}
		r.ScopeResolved, err = scoperesolution.Apply(fn, opts.Scope)
		if err != nil {
			return rounds, err
		}
		r.CleanedUp, err = cleanup.Apply(fn)
		if err != nil {
			return rounds, err
		}

		rounds = append(rounds, r)
		if !r.Changed() {
			break
		}
	}

	return rounds, nil
}
