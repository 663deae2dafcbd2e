package ir

// Effects records the side-effect classification of an instruction per
// spec.md §3 ("Effects classification"): the only channel through which
// passes may reason about side effects. Effects derive mechanically from
// the instruction's Tag; they are never computed ad hoc by a pass.
type Effects struct {
	// MightIO: may print, warn, or raise.
	MightIO bool
	// ChangesEnv: may mutate some environment.
	ChangesEnv bool
	// LeaksEnv: may cause some environment to escape to opaque code.
	LeaksEnv bool
	// NeedsEnv: requires an environment operand.
	NeedsEnv bool
}

// Pure is the zero-effects value: no IO, no environment interaction at all.
var Pure = Effects{}

// effectsTable is indexed by Tag; every tag appears exactly once.
var effectsTable = map[Tag]Effects{
	TagLdConst:     Pure,
	TagLdVar:       {NeedsEnv: true},
	TagLdFun:       {MightIO: true, ChangesEnv: true, NeedsEnv: true},
	TagLdArg:       {NeedsEnv: true},
	TagStVar:       {ChangesEnv: true, NeedsEnv: true},
	TagMkEnv:       {NeedsEnv: true},
	TagMkArg:       {NeedsEnv: true},
	TagMkCls:       {NeedsEnv: true},
	TagMkClsFun:    {NeedsEnv: true},
	TagForce:       {MightIO: true, ChangesEnv: true, LeaksEnv: true},
	TagCall:        {MightIO: true, ChangesEnv: true, LeaksEnv: true, NeedsEnv: true},
	TagCallBuiltin: {MightIO: true, ChangesEnv: true},
	TagBranch:      Pure,
	TagReturn:      Pure,
	TagPhi:         Pure,
	TagChkMissing:  {MightIO: true},
	TagChkClosure:  {MightIO: true},
	TagAsLogical:   {MightIO: true},
	TagAsTest:      Pure,
	TagBinOp:       Pure,
	TagCmpOp:       Pure,
}

// effectsOf looks up the mechanical effects for a tag. Panics on an unknown
// tag: every concrete instruction constructor routes through a tag this
// table covers, so a miss here is a programmer error (§7, tier 1).
func effectsOf(t Tag) Effects {
	e, ok := effectsTable[t]
	if !ok {
		panic("ir: unknown tag " + t.String() + " has no effects entry")
	}
	return e
}

// MightIO, ChangesEnv, LeaksEnv and NeedsEnv are convenience predicates
// mirroring the teacher's per-instruction-category effect functions
// (internal/ir/effects.go), expressed here as one mechanical lookup instead
// of one function per variant since Tag alone determines the answer.
func MightIO(i Instruction) bool    { return i.Effects().MightIO }
func ChangesEnv(i Instruction) bool { return i.Effects().ChangesEnv }
func LeaksEnv(i Instruction) bool   { return i.Effects().LeaksEnv }
func NeedsEnv(i Instruction) bool   { return i.Effects().NeedsEnv }
