package ir

import (
	"testing"

	"github.com/blorente/rir/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilAndMissingAreProcessGlobalSingletons(t *testing.T) {
	assert.True(t, IsNil(Nil))
	assert.True(t, IsMissing(Missing))
	assert.Equal(t, types.Nil(), Nil.Type())
	assert.Equal(t, types.Missing, Missing.Type())
	assert.False(t, IsNil(Missing))
}

func TestModuleNewFunctionCreatesOwnedLocalScope(t *testing.T) {
	m := NewModule()
	fn := m.NewFunction("f", []string{"x", "y"}, nil)

	require.Len(t, m.Environments, 1)
	assert.Same(t, m.Environments[0], fn.LocalScope())
	assert.Nil(t, fn.LocalScope().Parent)
	assert.Len(t, fn.Params, 2)
	assert.Equal(t, "x", fn.Params[0].Name)
}

func TestFunctionCreatePromiseIndexesSequentially(t *testing.T) {
	m := NewModule()
	fn := m.NewFunction("f", []string{"x"}, nil)

	p0 := fn.CreatePromise()
	p1 := fn.CreatePromise()

	assert.Equal(t, 0, p0.Index())
	assert.Equal(t, 1, p1.Index())
	assert.Same(t, fn, p0.Owner())
	assert.Len(t, fn.Promises, 2)
}

func TestRemovePromiseKeepsRemainingIndicesStable(t *testing.T) {
	m := NewModule()
	fn := m.NewFunction("f", nil, nil)
	p0 := fn.CreatePromise()
	p1 := fn.CreatePromise()

	fn.RemovePromise(p0)

	require.Len(t, fn.Promises, 1)
	assert.Same(t, p1, fn.Promises[0])
	assert.Equal(t, 1, p1.Index())
}

func TestBuilderEmitWiresBlockBackLink(t *testing.T) {
	m := NewModule()
	fn := m.NewFunction("f", nil, nil)
	b := NewBuilder(m)
	b.SetFunction(fn)
	entry := b.CreateBB()
	fn.SetEntry(entry)
	b.SetBlock(entry)

	ld := NewLdConst(b.NextInstrID(), types.Integer(), Const{PoolIndex: 0, Preview: "1"})
	b.Emit(ld)

	require.Len(t, entry.Instructions, 1)
	assert.Same(t, entry, ld.Block())
	assert.Equal(t, "integer %0 = LdConst (1)", ld.String())
}

func TestBranchWiresBothSuccessorsAsTerminator(t *testing.T) {
	m := NewModule()
	fn := m.NewFunction("f", nil, nil)
	b := NewBuilder(m)
	b.SetFunction(fn)
	entry := b.CreateBB()
	thenBB := b.CreateBB()
	elseBB := b.CreateBB()
	fn.SetEntry(entry)
	b.SetBlock(entry)

	cond := b.Emit(NewAsTest(b.NextInstrID(), Nil))
	br := NewBranch(b.NextInstrID(), cond, thenBB, elseBB)
	b.Emit(br)
	entry.Next0 = thenBB
	entry.Next1 = elseBB

	assert.True(t, br.IsTerminator())
	assert.Equal(t, []*BasicBlock{thenBB, elseBB}, br.Successors())
	assert.Same(t, br, entry.Terminator())
	assert.Equal(t, []*BasicBlock{thenBB, elseBB}, entry.Successors())
}

func TestReturnHasNoSuccessors(t *testing.T) {
	m := NewModule()
	fn := m.NewFunction("f", nil, nil)
	b := NewBuilder(m)
	b.SetFunction(fn)
	entry := b.CreateBB()
	fn.SetEntry(entry)
	b.SetBlock(entry)

	ret := NewReturn(b.NextInstrID(), Nil)
	b.Emit(ret)

	assert.Empty(t, ret.Successors())
	assert.Nil(t, entry.Next0)
	assert.Nil(t, entry.Next1)
}
