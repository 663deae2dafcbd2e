// Package scope instantiates the absint framework with the abstract value,
// abstract environment and environment-map lattices of spec.md §4.6,
// grounded on the teacher's internal/semantic/symbols.go (a concrete binding
// table) and context.go (layered registries consulted during analysis),
// re-expressed here as an abstract-interpretation state instead of a
// concrete one.
package scope

import (
	"github.com/blorente/rir/internal/ir"
	"github.com/blorente/rir/internal/types"
)

// AbstractValue is either "unknown" (top) or a pair of a concrete-producer
// set and a formal-argument-index set, plus the PirType the value carries
// (spec.md §4.6). The zero value is bottom: no producers, no formals, type
// Bottom.
type AbstractValue struct {
	unknown bool
	vals    map[ir.Value]struct{}
	args    map[int]struct{}
	typ     types.PirType
}

// Unknown is the tainted top value.
func Unknown() AbstractValue { return AbstractValue{unknown: true} }

// Bottom is the identity element for Join.
func Bottom() AbstractValue { return AbstractValue{typ: types.Bottom} }

// FromValue builds a singleton abstract value naming v as the sole concrete
// producer.
func FromValue(v ir.Value) AbstractValue {
	return AbstractValue{
		vals: map[ir.Value]struct{}{v: {}},
		typ:  v.Type(),
	}
}

// FromArg builds a singleton abstract value naming formal index idx as the
// sole source, with the formal's declared type.
func FromArg(idx int, typ types.PirType) AbstractValue {
	return AbstractValue{
		args: map[int]struct{}{idx: {}},
		typ:  typ,
	}
}

// IsUnknown reports whether v is the tainted top.
func (v AbstractValue) IsUnknown() bool { return v.unknown }

// IsBottom reports whether v carries no information at all.
func (v AbstractValue) IsBottom() bool {
	return !v.unknown && len(v.vals) == 0 && len(v.args) == 0
}

// Type returns the PirType associated with v. Unknown values carry
// types.Any, since nothing is known about them.
func (v AbstractValue) Type() types.PirType {
	if v.unknown {
		return types.Any
	}
	return v.typ
}

// SingleValue reports whether v names exactly one concrete producer and no
// formal indices, returning it.
func (v AbstractValue) SingleValue() (ir.Value, bool) {
	if v.unknown || len(v.args) != 0 || len(v.vals) != 1 {
		return nil, false
	}
	for k := range v.vals {
		return k, true
	}
	return nil, false
}

// SingleArg reports whether v names exactly one formal index and no
// concrete producers, returning it.
func (v AbstractValue) SingleArg() (int, bool) {
	if v.unknown || len(v.vals) != 0 || len(v.args) != 1 {
		return 0, false
	}
	for k := range v.args {
		return k, true
	}
	return 0, false
}

// Join computes a ⊔ b per spec.md §4.6: unknown dominates, bottom is the
// identity, otherwise the producer/formal sets union and the types join.
func Join(a, b AbstractValue) AbstractValue {
	if a.unknown || b.unknown {
		return Unknown()
	}
	if a.IsBottom() {
		return b
	}
	if b.IsBottom() {
		return a
	}
	out := AbstractValue{
		vals: make(map[ir.Value]struct{}, len(a.vals)+len(b.vals)),
		args: make(map[int]struct{}, len(a.args)+len(b.args)),
		typ:  types.Union(a.typ, b.typ),
	}
	for k := range a.vals {
		out.vals[k] = struct{}{}
	}
	for k := range b.vals {
		out.vals[k] = struct{}{}
	}
	for k := range a.args {
		out.args[k] = struct{}{}
	}
	for k := range b.args {
		out.args[k] = struct{}{}
	}
	return out
}

// Equal reports whether a and b carry the same information; used by Merge
// implementations to decide whether a join actually changed anything.
func Equal(a, b AbstractValue) bool {
	if a.unknown != b.unknown {
		return false
	}
	if a.unknown {
		return true
	}
	if a.typ != b.typ || len(a.vals) != len(b.vals) || len(a.args) != len(b.args) {
		return false
	}
	for k := range a.vals {
		if _, ok := b.vals[k]; !ok {
			return false
		}
	}
	for k := range a.args {
		if _, ok := b.args[k]; !ok {
			return false
		}
	}
	return true
}
