package cleanup

import (
	"testing"

	"github.com/blorente/rir/internal/cfg"
	"github.com/blorente/rir/internal/ir"
	"github.com/blorente/rir/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyRemovesDeadPureInstruction(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunction("f", nil, nil)
	entry := &ir.BasicBlock{ID: f.NextBlockID(), Owner: f}
	f.AddBlock(entry)
	f.SetEntry(entry)

	dead := ir.NewLdConst(f.NextInstrID(), types.Integer(), ir.Const{Preview: "1"})
	cfg.Append(entry, dead)
	ret := ir.NewReturn(f.NextInstrID(), ir.Nil)
	cfg.Append(entry, ret)

	changed, err := Apply(f)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Len(t, entry.Instructions, 1)
	assert.Same(t, ret, entry.Instructions[0])
}

func TestApplyCollapsesTrivialForce(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunction("f", nil, nil)
	entry := &ir.BasicBlock{ID: f.NextBlockID(), Owner: f}
	f.AddBlock(entry)
	f.SetEntry(entry)

	c := ir.NewLdConst(f.NextInstrID(), types.Integer(), ir.Const{Preview: "1"})
	cfg.Append(entry, c)
	force := ir.NewForce(f.NextInstrID(), types.Integer(), c)
	cfg.Append(entry, force)
	cfg.Append(entry, ir.NewReturn(f.NextInstrID(), force))

	changed, err := Apply(f)
	require.NoError(t, err)
	assert.True(t, changed)

	ret := entry.Instructions[len(entry.Instructions)-1].(*ir.Return)
	assert.Same(t, c, ret.Operand)
}

func TestApplyCollapsesDuplicatePhi(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunction("f", nil, nil)
	entry := &ir.BasicBlock{ID: f.NextBlockID(), Owner: f}
	f.AddBlock(entry)
	f.SetEntry(entry)
	thenBB := &ir.BasicBlock{ID: f.NextBlockID(), Owner: f}
	f.AddBlock(thenBB)
	elseBB := &ir.BasicBlock{ID: f.NextBlockID(), Owner: f}
	f.AddBlock(elseBB)
	join := &ir.BasicBlock{ID: f.NextBlockID(), Owner: f}
	f.AddBlock(join)

	test := ir.NewAsTest(f.NextInstrID(), ir.NewLdConst(f.NextInstrID(), types.Logical(), ir.Const{}))
	cfg.Append(entry, test.Operand.(ir.Instruction))
	cfg.Append(entry, test)
	cfg.Append(entry, ir.NewBranch(f.NextInstrID(), test, thenBB, elseBB))

	one := ir.NewLdConst(f.NextInstrID(), types.Integer(), ir.Const{Preview: "1"})
	cfg.Append(thenBB, one)
	thenBB.Next0 = join

	// elseBB is a pure fall-through arm; its Phi input below reuses the same
	// producer `one` to exercise the "duplicate inputs collapse" rule rather
	// than a genuine two-producer join.
	elseBB.Next0, elseBB.Next1 = join, nil

	phi := ir.NewPhi(f.NextInstrID(), types.Bottom)
	phi.SetInput(thenBB, one)
	phi.SetInput(elseBB, one)
	cfg.Append(join, phi)
	cfg.Append(join, ir.NewReturn(f.NextInstrID(), phi))

	changed, err := Apply(f)
	require.NoError(t, err)
	assert.True(t, changed)

	ret := join.Instructions[len(join.Instructions)-1].(*ir.Return)
	assert.Same(t, one, ret.Operand)
}

func TestApplyGCsUnreferencedPromise(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunction("f", nil, nil)
	entry := &ir.BasicBlock{ID: f.NextBlockID(), Owner: f}
	f.AddBlock(entry)
	f.SetEntry(entry)
	cfg.Append(entry, ir.NewReturn(f.NextInstrID(), ir.Nil))

	p := f.CreatePromise()
	pEntry := &ir.BasicBlock{ID: p.NextBlockID(), Owner: p}
	p.AddBlock(pEntry)
	p.SetEntry(pEntry)
	cfg.Append(pEntry, ir.NewReturn(p.NextInstrID(), ir.Nil))

	require.Len(t, f.Promises, 1)
	changed, err := Apply(f)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Empty(t, f.Promises)
}

func TestApplyKeepsPromiseReferencedByMkArg(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunction("f", nil, nil)
	entry := &ir.BasicBlock{ID: f.NextBlockID(), Owner: f}
	f.AddBlock(entry)
	f.SetEntry(entry)

	p := f.CreatePromise()
	pEntry := &ir.BasicBlock{ID: p.NextBlockID(), Owner: p}
	p.AddBlock(pEntry)
	p.SetEntry(pEntry)
	cfg.Append(pEntry, ir.NewReturn(p.NextInstrID(), ir.Nil))

	arg := ir.NewMkArg(f.NextInstrID(), nil, p, f.LocalScope())
	cfg.Append(entry, arg)
	cfg.Append(entry, ir.NewReturn(f.NextInstrID(), ir.Nil))

	_, err := Apply(f)
	require.NoError(t, err)
	assert.Len(t, f.Promises, 1)
}

func TestApplyMergesFallthroughChain(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunction("f", nil, nil)
	entry := &ir.BasicBlock{ID: f.NextBlockID(), Owner: f}
	f.AddBlock(entry)
	f.SetEntry(entry)
	second := &ir.BasicBlock{ID: f.NextBlockID(), Owner: f}
	f.AddBlock(second)

	c := ir.NewLdConst(f.NextInstrID(), types.Integer(), ir.Const{Preview: "1"})
	cfg.Append(entry, c)
	entry.Next0 = second

	cfg.Append(second, ir.NewReturn(f.NextInstrID(), c))

	changed, err := Apply(f)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Len(t, cfg.Reachable(f.Entry()), 1)
}

func TestApplyCollapsesEmptyDiamond(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunction("f", nil, nil)
	entry := &ir.BasicBlock{ID: f.NextBlockID(), Owner: f}
	f.AddBlock(entry)
	f.SetEntry(entry)
	thenBB := &ir.BasicBlock{ID: f.NextBlockID(), Owner: f}
	f.AddBlock(thenBB)
	elseBB := &ir.BasicBlock{ID: f.NextBlockID(), Owner: f}
	f.AddBlock(elseBB)
	join := &ir.BasicBlock{ID: f.NextBlockID(), Owner: f}
	f.AddBlock(join)

	cond := ir.NewAsTest(f.NextInstrID(), ir.NewLdConst(f.NextInstrID(), types.Logical(), ir.Const{}))
	cfg.Append(entry, cond.Operand.(ir.Instruction))
	cfg.Append(entry, cond)
	cfg.Append(entry, ir.NewBranch(f.NextInstrID(), cond, thenBB, elseBB))
	thenBB.Next0, thenBB.Next1 = join, nil
	elseBB.Next0, elseBB.Next1 = join, nil

	cfg.Append(join, ir.NewReturn(f.NextInstrID(), ir.Nil))

	changed, err := Apply(f)
	require.NoError(t, err)
	assert.True(t, changed)

	br, ok := entry.Terminator().(*ir.Branch)
	assert.False(t, ok, "Branch should have collapsed to an unconditional jump")
	_ = br
}

func TestApplyIsIdempotent(t *testing.T) {
	m := ir.NewModule()
	f := m.NewFunction("f", nil, nil)
	entry := &ir.BasicBlock{ID: f.NextBlockID(), Owner: f}
	f.AddBlock(entry)
	f.SetEntry(entry)
	cfg.Append(entry, ir.NewReturn(f.NextInstrID(), ir.Nil))

	_, err := Apply(f)
	require.NoError(t, err)
	changed, err := Apply(f)
	require.NoError(t, err)
	assert.False(t, changed, "cleanup on an already-cleaned function must be a fixed point")
}
