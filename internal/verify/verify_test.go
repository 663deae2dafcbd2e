package verify

import (
	"testing"

	"github.com/blorente/rir/internal/cfg"
	"github.com/blorente/rir/internal/ir"
	"github.com/blorente/rir/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simpleFunction() (*ir.Function, *ir.BasicBlock) {
	m := ir.NewModule()
	fn := m.NewFunction("f", nil, nil)
	entry := &ir.BasicBlock{ID: fn.NextBlockID(), Owner: fn}
	fn.AddBlock(entry)
	fn.SetEntry(entry)
	return fn, entry
}

func TestInsertCastsForcesLazyOperand(t *testing.T) {
	fn, entry := simpleFunction()
	lazy := ir.NewLdConst(fn.NextInstrID(), types.Integer().WithLazy(true), ir.Const{Preview: "1"})
	cfg.Append(entry, lazy)
	// BinOp declares types.Val (no lazy, no missing) for both operands.
	bin := ir.NewBinOp(fn.NextInstrID(), types.Integer(), ir.OpAdd, lazy, lazy)
	cfg.Append(entry, bin)
	cfg.Append(entry, ir.NewReturn(fn.NextInstrID(), bin))

	require.NoError(t, InsertCasts(fn))

	require.Len(t, entry.Instructions, 5)
	force, ok := entry.Instructions[1].(*ir.Force)
	require.True(t, ok)
	assert.Same(t, lazy, force.Operand)
	assert.False(t, force.Type().MaybeLazy())
}

func TestInsertCastsInsertsAsTestForBranchCondition(t *testing.T) {
	fn, entry := simpleFunction()
	logical := ir.NewLdConst(fn.NextInstrID(), types.Logical(), ir.Const{Preview: "TRUE"})
	cfg.Append(entry, logical)
	thenBB := &ir.BasicBlock{ID: fn.NextBlockID(), Owner: fn}
	elseBB := &ir.BasicBlock{ID: fn.NextBlockID(), Owner: fn}
	fn.AddBlock(thenBB)
	fn.AddBlock(elseBB)
	cfg.Append(thenBB, ir.NewReturn(fn.NextInstrID(), ir.Nil))
	cfg.Append(elseBB, ir.NewReturn(fn.NextInstrID(), ir.Nil))
	cfg.Append(entry, ir.NewBranch(fn.NextInstrID(), logical, thenBB, elseBB))

	require.NoError(t, InsertCasts(fn))

	require.Len(t, entry.Instructions, 3)
	cast, ok := entry.Instructions[1].(*ir.AsTest)
	require.True(t, ok)
	assert.Same(t, logical, cast.Operand)
	branch := entry.Instructions[2].(*ir.Branch)
	assert.Same(t, ir.Instruction(cast), branch.Cond)
}

func TestInsertCastsFailsWhenNoRuleApplies(t *testing.T) {
	fn, entry := simpleFunction()
	// A Code-typed value can never become test, lazy, or missing via any
	// rule — feeding it straight to Branch has no cast that applies.
	bogus := ir.NewLdConst(fn.NextInstrID(), types.Code(), ir.Const{Preview: "code"})
	cfg.Append(entry, bogus)
	thenBB := &ir.BasicBlock{ID: fn.NextBlockID(), Owner: fn}
	elseBB := &ir.BasicBlock{ID: fn.NextBlockID(), Owner: fn}
	fn.AddBlock(thenBB)
	fn.AddBlock(elseBB)
	cfg.Append(thenBB, ir.NewReturn(fn.NextInstrID(), ir.Nil))
	cfg.Append(elseBB, ir.NewReturn(fn.NextInstrID(), ir.Nil))
	cfg.Append(entry, ir.NewBranch(fn.NextInstrID(), bogus, thenBB, elseBB))

	assert.Error(t, InsertCasts(fn))
}

func TestInsertCastsRecomputesPhiTypeBeforeUses(t *testing.T) {
	fn, entry := simpleFunction()
	thenBB := &ir.BasicBlock{ID: fn.NextBlockID(), Owner: fn}
	elseBB := &ir.BasicBlock{ID: fn.NextBlockID(), Owner: fn}
	join := &ir.BasicBlock{ID: fn.NextBlockID(), Owner: fn}
	fn.AddBlock(thenBB)
	fn.AddBlock(elseBB)
	fn.AddBlock(join)

	flag := ir.NewLdConst(fn.NextInstrID(), types.Logical(), ir.Const{Preview: "TRUE"})
	cfg.Append(entry, flag)
	cond := ir.NewAsTest(fn.NextInstrID(), flag)
	cfg.Append(entry, cond)
	cfg.Append(entry, ir.NewBranch(fn.NextInstrID(), cond, thenBB, elseBB))

	strictVal := ir.NewLdConst(fn.NextInstrID(), types.Integer(), ir.Const{Preview: "1"})
	cfg.Append(thenBB, strictVal)
	thenBB.Next0 = join
	lazyVal := ir.NewLdConst(fn.NextInstrID(), types.Integer().WithLazy(true), ir.Const{Preview: "2"})
	cfg.Append(elseBB, lazyVal)
	elseBB.Next0 = join

	phi := ir.NewPhi(fn.NextInstrID(), types.Bottom)
	phi.SetInput(thenBB, strictVal)
	phi.SetInput(elseBB, lazyVal)
	cfg.Append(join, phi)
	bin := ir.NewBinOp(fn.NextInstrID(), types.Integer(), ir.OpAdd, phi, phi)
	cfg.Append(join, bin)
	cfg.Append(join, ir.NewReturn(fn.NextInstrID(), bin))

	require.NoError(t, InsertCasts(fn))

	assert.True(t, phi.Type().MaybeLazy(), "phi result type should have joined in the lazy flag before casts were inserted")
	// Because the Phi's type was recomputed (and so widened to maybeLazy)
	// before BinOp's operands were checked, BinOp's declared-Val operand
	// forces the Phi result directly rather than failing to find any
	// producer-side mismatch to cast.
	force, ok := join.Instructions[1].(*ir.Force)
	require.True(t, ok)
	assert.Same(t, ir.Instruction(phi), force.Operand)
}

func TestVerifyReportsTypeMismatch(t *testing.T) {
	fn, entry := simpleFunction()
	lazy := ir.NewLdConst(fn.NextInstrID(), types.Integer().WithLazy(true), ir.Const{Preview: "1"})
	cfg.Append(entry, lazy)
	bin := ir.NewBinOp(fn.NextInstrID(), types.Integer(), ir.OpAdd, lazy, lazy)
	cfg.Append(entry, bin)
	cfg.Append(entry, ir.NewReturn(fn.NextInstrID(), bin))

	report := Verify(fn)

	assert.False(t, report.Ok())
	var found bool
	for _, d := range report.Diagnostics {
		if d.Code == "E2001" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestVerifyPassesAfterInsertCasts(t *testing.T) {
	fn, entry := simpleFunction()
	lazy := ir.NewLdConst(fn.NextInstrID(), types.Integer().WithLazy(true), ir.Const{Preview: "1"})
	cfg.Append(entry, lazy)
	bin := ir.NewBinOp(fn.NextInstrID(), types.Integer(), ir.OpAdd, lazy, lazy)
	cfg.Append(entry, bin)
	cfg.Append(entry, ir.NewReturn(fn.NextInstrID(), bin))

	require.NoError(t, InsertCasts(fn))

	report := Verify(fn)
	assert.True(t, report.Ok(), report.String())
}

func TestVerifyFlagsUnreachableProducer(t *testing.T) {
	fn, entry := simpleFunction()
	dead := &ir.BasicBlock{ID: fn.NextBlockID(), Owner: fn}
	orphan := ir.NewLdConst(fn.NextInstrID(), types.Integer(), ir.Const{Preview: "1"})
	cfg.Append(dead, orphan)
	// dead is never linked into entry's successors, so it is unreachable,
	// but an instruction in entry still references orphan's result.
	cfg.Append(entry, ir.NewReturn(fn.NextInstrID(), orphan))

	report := Verify(fn)

	assert.False(t, report.Ok())
	var found bool
	for _, d := range report.Diagnostics {
		if d.Code == "E2002" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestVerifyFlagsBranchWithMismatchedSuccessors(t *testing.T) {
	fn, entry := simpleFunction()
	thenBB := &ir.BasicBlock{ID: fn.NextBlockID(), Owner: fn}
	elseBB := &ir.BasicBlock{ID: fn.NextBlockID(), Owner: fn}
	fn.AddBlock(thenBB)
	fn.AddBlock(elseBB)
	cfg.Append(thenBB, ir.NewReturn(fn.NextInstrID(), ir.Nil))
	cfg.Append(elseBB, ir.NewReturn(fn.NextInstrID(), ir.Nil))

	cond := ir.NewAsTest(fn.NextInstrID(), ir.Nil)
	cfg.Append(entry, cond)
	branch := ir.NewBranch(fn.NextInstrID(), cond, thenBB, elseBB)
	cfg.Append(entry, branch)
	// Corrupt the block's successor wiring independently of the instruction.
	entry.Next1 = nil

	report := Verify(fn)

	assert.False(t, report.Ok())
}
