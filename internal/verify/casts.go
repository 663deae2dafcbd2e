// Package verify implements spec.md §4.3 (cast insertion) and §4.4 (the
// structural verifier), grounded on the teacher's internal/semantic type
// checker but re-targeted from Kanso's declared-type annotations onto PIR's
// SSA producer/declared-argument-type relationship.
package verify

import (
	"fmt"

	"github.com/blorente/rir/internal/cfg"
	"github.com/blorente/rir/internal/ir"
	"github.com/blorente/rir/internal/types"
)

// declaredArgType returns the declared type for operand index n of inst,
// per the per-tag table in spec.md §3. Env operands always declare
// types.Env(); Branch declares test; arithmetic/comparison declare a bare
// value (no lazy, no missing) so that Force/ChkMissing insertion has
// somewhere to attach; MkArg's strict value declares a bare value, Call's
// callee a closure, MkClsFun's code and formals code and list, and AsTest's
// operand logical; every other argument position declares types.Any.
func declaredArgType(inst ir.Instruction, n int) types.PirType {
	switch t := inst.(type) {
	case *ir.LdVar:
		return types.Env()
	case *ir.LdFun:
		return types.Env()
	case *ir.LdArg:
		return types.Env()
	case *ir.StVar:
		if n == 0 {
			return types.Env()
		}
		return types.Any
	case *ir.MkEnv:
		if t.Parent != nil && n == 0 {
			return types.Env()
		}
		return types.Any
	case *ir.MkArg:
		if t.Strict != nil && n == 0 {
			return types.Val
		}
		return types.Env()
	case *ir.MkCls:
		return types.Env()
	case *ir.MkClsFun:
		switch n {
		case 0:
			return types.Env()
		case 1:
			return types.Code()
		default:
			return types.List
		}
	case *ir.Call:
		if n == 0 {
			return types.Closure()
		}
		return types.Any
	case *ir.Branch:
		return types.Test
	case *ir.BinOp:
		return types.Val
	case *ir.CmpOp:
		return types.Val
	case *ir.AsTest:
		return types.Logical()
	default:
		return types.Any
	}
}

// CastRule names which coercion InsertCasts chose, for tests that assert on
// the inserted instruction's tag without depending on exact ordering.
type CastRule int

const (
	CastForce CastRule = iota
	CastChkMissing
	CastAsTest
)

// chooseCast implements spec.md §4.3's ordered rule list. ok is false when
// v's type is not a subtype of t and none of the three rules applies — a
// capability gap (E3001).
func chooseCast(v ir.Value, t types.PirType) (CastRule, bool) {
	vt := v.Type()
	switch {
	case vt.MaybeLazy() && !t.MaybeLazy():
		return CastForce, true
	case vt.MaybeMissing() && !t.MaybeMissing():
		return CastChkMissing, true
	case types.Equal(vt, types.Logical()) && types.Equal(t, types.Test):
		return CastAsTest, true
	default:
		return 0, false
	}
}

func applyCast(rule CastRule, id int, v ir.Value) ir.Instruction {
	switch rule {
	case CastForce:
		return ir.NewForce(id, v.Type().WithLazy(false), v)
	case CastChkMissing:
		return ir.NewChkMissing(id, v.Type().WithMissing(false), v)
	case CastAsTest:
		return ir.NewAsTest(id, v)
	default:
		panic("verify: unknown cast rule")
	}
}

// unsupportedCastErr is returned by InsertCasts when a mismatch has no
// applicable rule.
type unsupportedCastErr struct {
	Function string
	InstrID  int
	Operand  int
	Got      types.PirType
	Want     types.PirType
}

func (e *unsupportedCastErr) Error() string {
	return fmt.Sprintf("verify: %s/%%%d operand %d: no cast rule takes %s to %s",
		e.Function, e.InstrID, e.Operand, e.Got, e.Want)
}

// InsertCasts walks every reachable block of fn and of each of its
// Promises, and for every instruction operand whose producer type is not a
// subtype of the operand's declared type, prepends the appropriate cast
// (spec.md §4.3) and retargets the operand to the cast's result. Phi result
// types are recomputed as the join of their current inputs before any use
// of a Phi is considered, per §4.3's ordering requirement.
func InsertCasts(fn *ir.Function) error {
	if err := insertCastsInCode(fn, fn); err != nil {
		return err
	}
	for _, p := range fn.Promises {
		if err := insertCastsInCode(fn, p); err != nil {
			return err
		}
	}
	return nil
}

func insertCastsInCode(fn *ir.Function, code ir.Code) error {
	recomputePhiTypes(code)

	for _, bb := range cfg.Reachable(code.Entry()) {
		pos := 0
		for pos < len(bb.Instructions) {
			inst := bb.Instructions[pos]
			if phi, ok := inst.(*ir.Phi); ok {
				if err := insertPhiCasts(fn, phi); err != nil {
					return err
				}
				pos++
				continue
			}
			advanced, err := insertOperandCasts(fn, bb, pos)
			if err != nil {
				return err
			}
			pos += advanced
		}
	}
	return nil
}

// recomputePhiTypes sets every Phi's result type to the join of its current
// input types.
func recomputePhiTypes(code ir.Code) {
	for _, bb := range cfg.Reachable(code.Entry()) {
		for _, inst := range bb.Instructions {
			phi, ok := inst.(*ir.Phi)
			if !ok {
				continue
			}
			joined := types.Bottom
			for _, v := range phi.Inputs {
				joined = types.Union(joined, v.Type())
			}
			phi.SetType(joined)
		}
	}
}

// insertOperandCasts fixes up every operand of the instruction at bb's
// position pos, inserting cast instructions immediately before it. It
// returns how far pos must advance to skip past the (possibly now more
// numerous) instructions it touched.
func insertOperandCasts(fn *ir.Function, bb *ir.BasicBlock, pos int) (int, error) {
	inst := bb.Instructions[pos]
	inserted := 0
	ops := inst.Operands()
	for n := range ops {
		for {
			v := inst.Operands()[n]
			want := declaredArgType(inst, n)
			if types.Subtype(v.Type(), want) {
				break
			}
			rule, ok := chooseCast(v, want)
			if !ok {
				return 0, &unsupportedCastErr{Function: fn.Name(), InstrID: inst.ID(), Operand: n, Got: v.Type(), Want: want}
			}
			cast := applyCast(rule, fn.NextInstrID(), v)
			cfg.Insert(bb, pos+inserted, cast)
			inst.ReplaceOperand(n, cast)
			inserted++
		}
	}
	return inserted + 1, nil
}

// insertPhiCasts fixes up a Phi's inputs in place: each input value is
// checked against the Phi's (already recomputed) result type, and any
// needed cast is appended at the end of the corresponding predecessor
// block, before its terminator.
func insertPhiCasts(fn *ir.Function, phi *ir.Phi) error {
	want := phi.Type()
	for pred, v := range phi.Inputs {
		if types.Subtype(v.Type(), want) {
			continue
		}
		rule, ok := chooseCast(v, want)
		if !ok {
			return &unsupportedCastErr{Function: fn.Name(), InstrID: phi.ID(), Operand: -1, Got: v.Type(), Want: want}
		}
		cast := applyCast(rule, fn.NextInstrID(), v)
		insertBeforeTerminator(pred, cast)
		phi.SetInput(pred, cast)
	}
	return nil
}

// insertBeforeTerminator appends inst to bb just before its terminator
// (or at the end, if bb has none yet).
func insertBeforeTerminator(bb *ir.BasicBlock, inst ir.Instruction) {
	if len(bb.Instructions) > 0 {
		if _, ok := bb.Instructions[len(bb.Instructions)-1].(ir.Terminator); ok {
			cfg.Insert(bb, len(bb.Instructions)-1, inst)
			return
		}
	}
	cfg.Append(bb, inst)
}
