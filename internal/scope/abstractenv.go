package scope

import "github.com/blorente/rir/internal/ir"

// ParentKind distinguishes the three states an abstract environment's
// parent pointer may be in (spec.md §4.6).
type ParentKind int

const (
	// ParentUninitialized means no parent has been observed yet; Join
	// adopts whichever side has a real answer.
	ParentUninitialized ParentKind = iota
	// ParentUnknown means two conflicting parents were observed and merged
	// (the taint-on-conflict style this repo adopts, per spec.md §9's
	// resolved Open Question) or the parent is genuinely untracked.
	ParentUnknown
	// ParentKnown names a specific concrete parent Environment.
	ParentKnown
)

// ParentState is an abstract environment's belief about its own parent
// environment.
type ParentState struct {
	Kind ParentKind
	Env  *ir.Environment // meaningful only when Kind == ParentKnown
}

// joinParent implements spec.md §4.6's parent-merge rule: if one side is
// uninitialized, adopt the other; if both are set and equal, keep it; if
// both are set and different, become unknown.
func joinParent(a, b ParentState) ParentState {
	if a.Kind == ParentUninitialized {
		return b
	}
	if b.Kind == ParentUninitialized {
		return a
	}
	if a.Kind == ParentUnknown || b.Kind == ParentUnknown {
		return ParentState{Kind: ParentUnknown}
	}
	if a.Env == b.Env {
		return a
	}
	return ParentState{Kind: ParentUnknown}
}

// AbstractEnv is a mapping from variable name to AbstractValue, plus a
// parent-environment belief and the leaked/tainted flags of spec.md §4.6.
type AbstractEnv struct {
	Bindings map[string]AbstractValue
	Parent   ParentState
	Leaked   bool
	Tainted  bool
}

// NewAbstractEnv returns a fresh, empty abstract environment with an
// uninitialized parent.
func NewAbstractEnv() *AbstractEnv {
	return &AbstractEnv{Bindings: map[string]AbstractValue{}}
}

// Clone returns an independent copy.
func (e *AbstractEnv) Clone() *AbstractEnv {
	c := &AbstractEnv{
		Bindings: make(map[string]AbstractValue, len(e.Bindings)),
		Parent:   e.Parent,
		Leaked:   e.Leaked,
		Tainted:  e.Tainted,
	}
	for k, v := range e.Bindings {
		c.Bindings[k] = v
	}
	return c
}

// Get returns the binding for name, or the tainted top if name has never
// been bound in this abstract environment (spec.md §4.6: "get(name) returns
// the entry or the tainted top").
func (e *AbstractEnv) Get(name string) AbstractValue {
	if v, ok := e.Bindings[name]; ok {
		return v
	}
	return Unknown()
}

// Set installs a new binding for name, refining or replacing whatever was
// there before.
func (e *AbstractEnv) Set(name string, v AbstractValue) {
	e.Bindings[name] = v
}

// Taint sets e.Tainted and taints every current binding, per spec.md §4.6.
func (e *AbstractEnv) Taint() {
	e.Tainted = true
	for k := range e.Bindings {
		e.Bindings[k] = Unknown()
	}
}

// Merge joins other into e, pointwise over bindings (a name missing from
// one side is treated as bottom, which preserves the other side's value),
// ORs the leaked/tainted flags, and merges the parent belief. Reports
// whether e changed.
func (e *AbstractEnv) Merge(other *AbstractEnv) bool {
	changed := false

	for name, ov := range other.Bindings {
		cur, ok := e.Bindings[name]
		if !ok {
			cur = Bottom()
		}
		joined := Join(cur, ov)
		if !ok || !Equal(cur, joined) {
			e.Bindings[name] = joined
			changed = true
		}
	}
	for name, cv := range e.Bindings {
		if _, ok := other.Bindings[name]; ok {
			continue
		}
		joined := Join(cv, Bottom())
		if !Equal(cv, joined) {
			e.Bindings[name] = joined
			changed = true
		}
	}

	if other.Leaked && !e.Leaked {
		e.Leaked = true
		changed = true
	}
	if other.Tainted && !e.Tainted {
		e.Tainted = true
		changed = true
	}

	newParent := joinParent(e.Parent, other.Parent)
	if newParent != e.Parent {
		e.Parent = newParent
		changed = true
	}

	return changed
}
