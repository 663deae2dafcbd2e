package ir

import "github.com/blorente/rir/internal/types"

// Code is implemented by Function and Promise: one entry basic block and an
// owning local-scope Environment, per spec.md §3.
type Code interface {
	Name() string
	Entry() *BasicBlock
	SetEntry(*BasicBlock)
	Blocks() []*BasicBlock
	AddBlock(*BasicBlock)
	SetBlocks([]*BasicBlock)
	LocalScope() *Environment
	// NextBlockID and NextInstrID draw from the Code unit's own monotonic
	// counters (Function-scoped per spec.md §4.2; a Promise shares its
	// owning Function's counters since it lives in the same id-space once
	// inlined).
	NextBlockID() int
	NextInstrID() int
}

// Parameter is a function formal parameter, by name and declared type.
type Parameter struct {
	Name string
	Type types.PirType
}

// Function is a Code unit with an ordered parameter list and an owned list
// of Promise code units, each with its own index (spec.md §3).
type Function struct {
	name       string
	Params     []Parameter
	entry      *BasicBlock
	blocks     []*BasicBlock
	localScope *Environment
	Promises   []*Promise

	blockIDs idCounter
	instrIDs idCounter
}

// NewFunction constructs a Function. Use Module.NewFunction to also
// register it with a Module, per the External Interfaces in spec.md §6.
func NewFunction(name string, params []Parameter, localScope *Environment) *Function {
	return &Function{name: name, Params: params, localScope: localScope}
}

func (f *Function) Name() string               { return f.name }
func (f *Function) Entry() *BasicBlock          { return f.entry }
func (f *Function) SetEntry(bb *BasicBlock)     { f.entry = bb }
func (f *Function) Blocks() []*BasicBlock       { return f.blocks }
func (f *Function) AddBlock(bb *BasicBlock)     { f.blocks = append(f.blocks, bb) }
func (f *Function) SetBlocks(bs []*BasicBlock)  { f.blocks = bs }
func (f *Function) LocalScope() *Environment    { return f.localScope }
func (f *Function) NextBlockID() int            { return f.blockIDs.take() }
func (f *Function) NextInstrID() int            { return f.instrIDs.take() }

// CreatePromise allocates a fresh Promise owned by this Function, with the
// next free promise index.
func (f *Function) CreatePromise() *Promise {
	p := &Promise{owner: f, index: len(f.Promises)}
	f.Promises = append(f.Promises, p)
	return p
}

// RemovePromise deletes p from f's promise list (used by cleanup's Promise
// GC). It does not renumber the remaining promises' indices: a Promise's
// index is its stable identity, used for MkArg back-links and for
// deduplication during inlining.
func (f *Function) RemovePromise(p *Promise) {
	for idx, q := range f.Promises {
		if q == p {
			f.Promises = append(f.Promises[:idx], f.Promises[idx+1:]...)
			return
		}
	}
}

// Promise is a Code unit representing an unevaluated thunk: forcing it
// executes its body and yields its return value (GLOSSARY). It knows its
// owning Function and its index within that function's promise list.
type Promise struct {
	owner      *Function
	index      int
	entry      *BasicBlock
	blocks     []*BasicBlock
	localScope *Environment
}

func (p *Promise) Owner() *Function       { return p.owner }
func (p *Promise) Index() int             { return p.index }
func (p *Promise) Name() string           { return p.owner.Name() + "$prom" }
func (p *Promise) Entry() *BasicBlock     { return p.entry }
func (p *Promise) SetEntry(bb *BasicBlock) { p.entry = bb }
func (p *Promise) Blocks() []*BasicBlock  { return p.blocks }
func (p *Promise) AddBlock(bb *BasicBlock) { p.blocks = append(p.blocks, bb) }
func (p *Promise) SetBlocks(bs []*BasicBlock) { p.blocks = bs }
func (p *Promise) LocalScope() *Environment { return p.localScope }
func (p *Promise) SetLocalScope(e *Environment) { p.localScope = e }
func (p *Promise) NextBlockID() int       { return p.owner.NextBlockID() }
func (p *Promise) NextInstrID() int       { return p.owner.NextInstrID() }
