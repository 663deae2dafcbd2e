package pipeline

import (
	"testing"

	"github.com/blorente/rir/internal/cfg"
	"github.com/blorente/rir/internal/ir"
	"github.com/blorente/rir/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRunConstantPropagationThroughEnv implements spec.md §8 scenario 1 on
// the function's own local scope: StVar(local, "x", Const(1));
// r = LdVar(local, "x"); Return(r) should reduce to Return(Const(1)) with no
// StVar/LdVar surviving.
func TestRunConstantPropagationThroughEnv(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunction("f", nil, nil)
	entry := &ir.BasicBlock{ID: f.NextBlockID(), Owner: f}
	f.AddBlock(entry)
	f.SetEntry(entry)

	one := ir.NewLdConst(f.NextInstrID(), types.Integer(), ir.Const{Preview: "1"})
	cfg.Append(entry, one)
	e := f.LocalScope()
	st := ir.NewStVar(f.NextInstrID(), e, "x", one)
	cfg.Append(entry, st)
	ld := ir.NewLdVar(f.NextInstrID(), types.ValOrLazy, e, "x")
	cfg.Append(entry, ld)
	cfg.Append(entry, ir.NewReturn(f.NextInstrID(), ld))

	rounds, err := Run(m, f, Options{})
	require.NoError(t, err)
	assert.NotEmpty(t, rounds)

	ret := entry.Instructions[len(entry.Instructions)-1].(*ir.Return)
	assert.Same(t, one, ret.Operand)

	for _, bb := range cfg.Reachable(f.Entry()) {
		for _, inst := range bb.Instructions {
			switch inst.(type) {
			case *ir.MkEnv, *ir.StVar, *ir.LdVar:
				t.Fatalf("unexpected surviving %T", inst)
			}
		}
	}
}

func TestRunStopsAtMaxIterations(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunction("f", nil, nil)
	entry := &ir.BasicBlock{ID: f.NextBlockID(), Owner: f}
	f.AddBlock(entry)
	f.SetEntry(entry)
	cfg.Append(entry, ir.NewReturn(f.NextInstrID(), ir.Nil))

	rounds, err := Run(m, f, Options{MaxIterations: 100})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(rounds), 16)
}
