package ir

import "github.com/blorente/rir/internal/types"

// Value is anything an instruction argument may reference: a singleton
// constant, a first-class Environment, or another Instruction's result.
type Value interface {
	// Type returns the PirType this value carries.
	Type() types.PirType
	isValue()
}

// nilValue is the singleton Nil value. It is process-global, unowned, and
// immutable for the lifetime of the compiler run (Design Notes §9).
type nilValue struct{}

func (*nilValue) Type() types.PirType { return types.Nil() }
func (*nilValue) isValue()            {}

// missingValue is the singleton Missing value, of type Missing.
type missingValue struct{}

func (*missingValue) Type() types.PirType { return types.Missing }
func (*missingValue) isValue()            {}

// Nil and Missing are the two process-global singleton constants. Compare
// by identity: every Nil in the graph is this same pointer.
var (
	Nil     Value = &nilValue{}
	Missing Value = &missingValue{}
)

// IsNil reports whether v is the Nil singleton.
func IsNil(v Value) bool { _, ok := v.(*nilValue); return ok }

// IsMissing reports whether v is the Missing singleton.
func IsMissing(v Value) bool { _, ok := v.(*missingValue); return ok }

// Environment is an explicit first-class SSA environment value. Unlike
// ordinary instruction results, an Environment is Module-owned: it has no
// single defining instruction (MkEnv instructions produce one, but the
// Environment operand on a Code unit's local scope is not produced by any
// instruction at all).
type Environment struct {
	id     int
	Parent *Environment // nil means no parent (root); UnknownParent means untracked
}

func (e *Environment) ID() int           { return e.id }
func (*Environment) Type() types.PirType { return types.Env() }
func (*Environment) isValue()            {}

// UnknownParent is the sentinel parent used when an environment's lexical
// parent cannot be determined statically (e.g. it arrived through an
// opaque, external closure).
var UnknownParent = &Environment{id: -1}

// IsUnknownParent reports whether e is the UnknownParent sentinel.
func IsUnknownParent(e *Environment) bool { return e == UnknownParent }
