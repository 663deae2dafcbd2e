package scoperesolution

import (
	"testing"

	"github.com/blorente/rir/internal/cfg"
	"github.com/blorente/rir/internal/ir"
	"github.com/blorente/rir/internal/scope"
	"github.com/blorente/rir/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// straightLine builds entry: MkEnv(result = the function's own local scope);
// StVar(e,"x",1); ld = LdVar(e,"x"); Return(ld) — spec.md §8 scenario 1. The
// MkEnv's Result is fn.LocalScope() itself (rather than a nested
// environment), so that the StVar is eligible for the local-scope deletion
// rule once needEnv is proven false.
func straightLine(t *testing.T) (fn *ir.Function, entry *ir.BasicBlock, ld *ir.LdVar, one *ir.LdConst) {
	m := ir.NewModule()
	fn = m.NewFunction("f", nil, nil)
	entry = &ir.BasicBlock{ID: fn.NextBlockID(), Owner: fn}
	fn.AddBlock(entry)
	fn.SetEntry(entry)

	env := fn.LocalScope()
	cfg.Append(entry, ir.NewMkEnv(fn.NextInstrID(), nil, nil, nil, env))

	one = ir.NewLdConst(fn.NextInstrID(), types.Integer(), ir.Const{Preview: "1"})
	cfg.Append(entry, one)
	cfg.Append(entry, ir.NewStVar(fn.NextInstrID(), env, "x", one))

	ld = ir.NewLdVar(fn.NextInstrID(), types.Val, env, "x")
	cfg.Append(entry, ld)
	cfg.Append(entry, ir.NewReturn(fn.NextInstrID(), ld))

	return fn, entry, ld, one
}

func TestApplyFoldsConstantAndDropsStVar(t *testing.T) {
	fn, entry, ld, one := straightLine(t)

	changed, err := Apply(fn, scope.DefaultOptions())
	require.NoError(t, err)
	assert.True(t, changed)

	ret, ok := entry.Terminator().(*ir.Return)
	require.True(t, ok)
	assert.Equal(t, ir.Value(one), ret.Operand)

	for _, inst := range entry.Instructions {
		assert.NotEqual(t, ld, inst, "the folded LdVar must be removed")
		if _, isSt := inst.(*ir.StVar); isSt {
			t.Fatalf("StVar must be deleted once the environment is proven unneeded")
		}
	}
}

func TestApplyRetainsOnOpaqueCall(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunction("f", nil, nil)
	entry := &ir.BasicBlock{ID: fn.NextBlockID(), Owner: fn}
	fn.AddBlock(entry)
	fn.SetEntry(entry)

	env := fn.LocalScope()
	cfg.Append(entry, ir.NewMkEnv(fn.NextInstrID(), nil, nil, nil, env))
	one := ir.NewLdConst(fn.NextInstrID(), types.Integer(), ir.Const{Preview: "1"})
	cfg.Append(entry, one)
	cfg.Append(entry, ir.NewStVar(fn.NextInstrID(), env, "x", one))

	unknownClosure := ir.NewLdArg(fn.NextInstrID(), types.Closure(), env, 0)
	cfg.Append(entry, unknownClosure)
	cfg.Append(entry, ir.NewCall(fn.NextInstrID(), types.Any, unknownClosure, nil))

	ld := ir.NewLdVar(fn.NextInstrID(), types.Val, env, "x")
	cfg.Append(entry, ld)
	cfg.Append(entry, ir.NewReturn(fn.NextInstrID(), ld))

	_, err := Apply(fn, scope.DefaultOptions())
	require.NoError(t, err)

	ret, ok := entry.Terminator().(*ir.Return)
	require.True(t, ok)
	assert.Equal(t, ir.Value(ld), ret.Operand, "an opaque call must prevent folding")

	found := false
	for _, inst := range entry.Instructions {
		if inst == ld {
			found = true
		}
	}
	assert.True(t, found, "the unresolved LdVar must survive")
}

// diamond builds: entry: MkEnv; Branch(cond, thenBB, elseBB);
// thenBB: StVar(e,"x",1) -> merge; elseBB: StVar(e,"x",2) -> merge;
// merge: ld = LdVar(e,"x"); Return(ld) — spec.md §8 scenario 2.
func diamond(t *testing.T) (fn *ir.Function, merge *ir.BasicBlock, ld *ir.LdVar) {
	m := ir.NewModule()
	fn = m.NewFunction("f", nil, nil)
	entry := &ir.BasicBlock{ID: fn.NextBlockID(), Owner: fn}
	thenBB := &ir.BasicBlock{ID: fn.NextBlockID(), Owner: fn}
	elseBB := &ir.BasicBlock{ID: fn.NextBlockID(), Owner: fn}
	merge = &ir.BasicBlock{ID: fn.NextBlockID(), Owner: fn}
	fn.AddBlock(entry)
	fn.AddBlock(thenBB)
	fn.AddBlock(elseBB)
	fn.AddBlock(merge)
	fn.SetEntry(entry)

	env := fn.LocalScope()
	cfg.Append(entry, ir.NewMkEnv(fn.NextInstrID(), nil, nil, nil, env))
	cond := ir.NewLdArg(fn.NextInstrID(), types.Logical(), env, 0)
	cfg.Append(entry, cond)
	cfg.Append(entry, ir.NewBranch(fn.NextInstrID(), cond, thenBB, elseBB))

	one := ir.NewLdConst(fn.NextInstrID(), types.Integer(), ir.Const{Preview: "1"})
	cfg.Append(thenBB, one)
	cfg.Append(thenBB, ir.NewStVar(fn.NextInstrID(), env, "x", one))
	thenBB.Next0 = merge

	two := ir.NewLdConst(fn.NextInstrID(), types.Integer(), ir.Const{Preview: "2"})
	cfg.Append(elseBB, two)
	cfg.Append(elseBB, ir.NewStVar(fn.NextInstrID(), env, "x", two))
	elseBB.Next0 = merge

	ld = ir.NewLdVar(fn.NextInstrID(), types.Val, env, "x")
	cfg.Append(merge, ld)
	cfg.Append(merge, ir.NewReturn(fn.NextInstrID(), ld))

	return fn, merge, ld
}

func TestApplyBuildsPhiOnMerge(t *testing.T) {
	fn, merge, ld := diamond(t)

	changed, err := Apply(fn, scope.DefaultOptions())
	require.NoError(t, err)
	assert.True(t, changed)

	ret, ok := merge.Terminator().(*ir.Return)
	require.True(t, ok)
	phi, ok := ret.Operand.(*ir.Phi)
	require.True(t, ok, "the merged load must be replaced by a Phi")
	assert.Len(t, phi.Inputs, 2)
	assert.NotEqual(t, ir.Value(ld), ret.Operand)
}
