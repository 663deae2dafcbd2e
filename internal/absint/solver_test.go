package absint

import (
	"testing"

	"github.com/blorente/rir/internal/cfg"
	"github.com/blorente/rir/internal/ir"
	"github.com/blorente/rir/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countState is a minimal State: the number of instructions seen on every
// path reaching this program point, saturating (joining by max) rather
// than summing, so it has a finite ascending chain on the diamond fixture.
type countState struct{ n int }

func (s *countState) Clone() State { return &countState{n: s.n} }
func (s *countState) Merge(other State) bool {
	o := other.(*countState)
	if o.n > s.n {
		s.n = o.n
		return true
	}
	return false
}

func countTransfer(s State, _ ir.Instruction) {
	s.(*countState).n++
}

func diamond(fn *ir.Function) (entry, thenBB, elseBB, join *ir.BasicBlock) {
	entry = &ir.BasicBlock{ID: fn.NextBlockID(), Owner: fn}
	thenBB = &ir.BasicBlock{ID: fn.NextBlockID(), Owner: fn}
	elseBB = &ir.BasicBlock{ID: fn.NextBlockID(), Owner: fn}
	join = &ir.BasicBlock{ID: fn.NextBlockID(), Owner: fn}
	fn.AddBlock(entry)
	fn.AddBlock(thenBB)
	fn.AddBlock(elseBB)
	fn.AddBlock(join)
	fn.SetEntry(entry)

	cond := ir.NewAsTest(fn.NextInstrID(), ir.Nil)
	cfg.Append(entry, cond)
	cfg.Append(entry, ir.NewBranch(fn.NextInstrID(), cond, thenBB, elseBB))

	cfg.Append(thenBB, ir.NewLdConst(fn.NextInstrID(), types.Integer(), ir.Const{Preview: "1"}))
	cfg.Append(thenBB, ir.NewLdConst(fn.NextInstrID(), types.Integer(), ir.Const{Preview: "2"}))
	thenBB.Next0 = join

	cfg.Append(elseBB, ir.NewLdConst(fn.NextInstrID(), types.Integer(), ir.Const{Preview: "3"}))
	elseBB.Next0 = join

	cfg.Append(join, ir.NewReturn(fn.NextInstrID(), ir.Nil))
	return
}

func TestRunStabilisesOnDiamond(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunction("f", nil, nil)
	entry, thenBB, elseBB, join := diamond(fn)

	res := Run(entry, &countState{}, &countState{}, countTransfer)

	assert.Equal(t, 0, res.In[entry].(*countState).n)
	// entry has AsTest + Branch = 2 instructions.
	assert.Equal(t, 2, res.In[thenBB].(*countState).n)
	assert.Equal(t, 2, res.In[elseBB].(*countState).n)
	// join's entry state is the max of the two incoming counts: thenBB
	// contributes 2 (entry) + 2 (its own LdConsts) = 4; elseBB contributes
	// 2 + 1 = 3. The join must pick up the larger.
	assert.Equal(t, 4, res.In[join].(*countState).n)
	// exit sees join's Return executed too.
	assert.Equal(t, 5, res.Exit.(*countState).n)
}

func TestRunSingleBlockReachesExitDirectly(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunction("f", nil, nil)
	entry := &ir.BasicBlock{ID: fn.NextBlockID(), Owner: fn}
	fn.AddBlock(entry)
	fn.SetEntry(entry)
	cfg.Append(entry, ir.NewLdConst(fn.NextInstrID(), types.Integer(), ir.Const{Preview: "1"}))
	cfg.Append(entry, ir.NewReturn(fn.NextInstrID(), ir.Nil))

	res := Run(entry, &countState{}, &countState{}, countTransfer)

	require.NotNil(t, res.Exit)
	assert.Equal(t, 2, res.Exit.(*countState).n)
}
