package ir

// Module owns a set of Functions and a set of Environments (spec.md §3);
// print dumps all of them (see package printer).
//
// A Module exclusively owns its Functions and Environments. Deleting a
// Function deletes its Promises and everything reachable from its entry;
// deleting a BasicBlock deletes its instructions. Instructions reference
// other values and blocks by non-owning back-edges (Design Notes §9).
type Module struct {
	Functions    []*Function
	Environments []*Environment

	envIDs idCounter
}

// NewModule constructs an empty Module.
func NewModule() *Module { return &Module{} }

// NewFunction builds a Function, gives it a fresh local-scope Environment
// rooted at parent, and registers both with m — the External Interfaces
// entry point from spec.md §6: "Module::newFunction(formal-names,
// parent-env) -> Function".
func (m *Module) NewFunction(name string, formals []string, parent *Environment) *Function {
	params := make([]Parameter, len(formals))
	for i, f := range formals {
		params[i] = Parameter{Name: f}
	}
	scope := m.NewEnvironment(parent)
	fn := NewFunction(name, params, scope)
	m.Functions = append(m.Functions, fn)
	return fn
}

// NewEnvironment allocates a fresh Environment owned by m, with the given
// parent (nil for root, UnknownParent for an untracked lexical parent).
func (m *Module) NewEnvironment(parent *Environment) *Environment {
	e := &Environment{id: m.envIDs.take(), Parent: parent}
	m.Environments = append(m.Environments, e)
	return e
}

// RemoveFunction deletes fn and everything it owns (its Promises and the
// blocks/instructions reachable from its entry) from m.
func (m *Module) RemoveFunction(fn *Function) {
	for i, f := range m.Functions {
		if f == fn {
			m.Functions = append(m.Functions[:i], m.Functions[i+1:]...)
			return
		}
	}
}
