package scope

import (
	"github.com/blorente/rir/internal/absint"
	"github.com/blorente/rir/internal/ir"
)

// closureIdentity is what EnvMap knows about the concrete Function a
// closure-holding SSA value refers to: a specific Function once, or the
// "unknown function" sentinel once two different Functions have been
// observed for the same value (spec.md §4.6).
type closureIdentity struct {
	unknown bool
	fn      *ir.Function
}

func joinClosureIdentity(a, b closureIdentity) closureIdentity {
	if a.unknown || b.unknown {
		return closureIdentity{unknown: true}
	}
	if a.fn == nil {
		return b
	}
	if b.fn == nil {
		return a
	}
	if a.fn == b.fn {
		return a
	}
	return closureIdentity{unknown: true}
}

// EnvMap is the per-Environment abstract state scope analysis tracks: a
// mapping from Environment-identifying SSA value to an AbstractEnv, plus the
// closure-identity table (spec.md §4.6). It implements absint.State.
type EnvMap struct {
	Envs     map[*ir.Environment]*AbstractEnv
	Closures map[ir.Value]closureIdentity
}

// NewEnvMap returns an empty EnvMap: the bottom of this lattice.
func NewEnvMap() *EnvMap {
	return &EnvMap{
		Envs:     map[*ir.Environment]*AbstractEnv{},
		Closures: map[ir.Value]closureIdentity{},
	}
}

// Clone implements absint.State.
func (m *EnvMap) Clone() absint.State {
	c := NewEnvMap()
	for e, ae := range m.Envs {
		c.Envs[e] = ae.Clone()
	}
	for v, ci := range m.Closures {
		c.Closures[v] = ci
	}
	return c
}

// Merge implements absint.State: joins other into m, per-environment and
// per-closure-value, reporting whether m changed.
func (m *EnvMap) Merge(otherS absint.State) bool {
	other := otherS.(*EnvMap)
	changed := false
	for e, oae := range other.Envs {
		ae, ok := m.Envs[e]
		if !ok {
			m.Envs[e] = oae.Clone()
			changed = true
			continue
		}
		if ae.Merge(oae) {
			changed = true
		}
	}
	for v, oci := range other.Closures {
		ci, ok := m.Closures[v]
		if !ok {
			m.Closures[v] = oci
			changed = true
			continue
		}
		joined := joinClosureIdentity(ci, oci)
		if joined != ci {
			m.Closures[v] = joined
			changed = true
		}
	}
	return changed
}

// EnvOf returns the abstract environment tracked for e, creating an empty
// one (uninitialized parent) if this is the first time e is seen.
func (m *EnvMap) EnvOf(e *ir.Environment) *AbstractEnv {
	ae, ok := m.Envs[e]
	if !ok {
		ae = NewAbstractEnv()
		m.Envs[e] = ae
	}
	return ae
}

// Get implements spec.md §4.6's EnvMap.get: walk from env toward its
// parents, using each abstract environment's recorded parent field (not the
// Environment's own static Parent, since the abstract parent may have been
// tainted to unknown by a conflicting merge), returning the first
// non-unknown binding. Reaching the UnknownParent sentinel, or running out
// of recorded abstract environments, yields the tainted top.
func (m *EnvMap) Get(env *ir.Environment, name string) AbstractValue {
	cur := env
	for cur != nil {
		if ir.IsUnknownParent(cur) {
			return Unknown()
		}
		ae, ok := m.Envs[cur]
		if !ok {
			return Unknown()
		}
		if v, found := ae.Bindings[name]; found && !v.IsUnknown() {
			return v
		}
		if ae.Tainted {
			return Unknown()
		}
		switch ae.Parent.Kind {
		case ParentKnown:
			cur = ae.Parent.Env
		case ParentUnknown:
			return Unknown()
		default:
			cur = cur.Parent
		}
	}
	return Unknown()
}

// SetClosure records that v's closure identity is definitely fn, joining
// with whatever was previously recorded (so a second, different Function
// observed for the same value promotes it to the unknown sentinel).
func (m *EnvMap) SetClosure(v ir.Value, fn *ir.Function) {
	prev, ok := m.Closures[v]
	if !ok {
		m.Closures[v] = closureIdentity{fn: fn}
		return
	}
	m.Closures[v] = joinClosureIdentity(prev, closureIdentity{fn: fn})
}

// DefiniteFunction returns the Function v's closure identity is known to be,
// if any single one has been observed.
func (m *EnvMap) DefiniteFunction(v ir.Value) (*ir.Function, bool) {
	ci, ok := m.Closures[v]
	if !ok || ci.unknown || ci.fn == nil {
		return nil, false
	}
	return ci.fn, true
}
