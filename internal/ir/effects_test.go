package ir

import (
	"testing"

	"github.com/blorente/rir/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestEffectsAreMechanicalPerTag(t *testing.T) {
	ld := NewLdVar(0, types.Val, Nil, "x")
	assert.False(t, MightIO(ld))
	assert.False(t, ChangesEnv(ld))
	assert.True(t, NeedsEnv(ld))

	st := NewStVar(1, Nil, "x", Nil)
	assert.True(t, ChangesEnv(st))
	assert.True(t, NeedsEnv(st))

	force := NewForce(2, types.Val, Nil)
	assert.True(t, MightIO(force))
	assert.True(t, ChangesEnv(force))
	assert.True(t, LeaksEnv(force))
	assert.False(t, NeedsEnv(force))

	cst := NewLdConst(3, types.Integer(), Const{PoolIndex: 0})
	assert.Equal(t, Pure, cst.Effects())

	branch := NewBranch(4, Nil, &BasicBlock{ID: 1}, &BasicBlock{ID: 2})
	assert.Equal(t, Pure, branch.Effects())
}

func TestEffectsOfUnknownTagPanics(t *testing.T) {
	assert.Panics(t, func() { effectsOf(Tag(999)) })
}
