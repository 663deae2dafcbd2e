package cfg

import (
	"fmt"

	"github.com/blorente/rir/internal/ir"
)

// wireTerminator keeps bb.Next0/Next1 in sync with whatever instruction now
// terminates it, per spec.md §3's terminator-discipline invariants: Branch
// sets both successors, Return sets neither.
func wireTerminator(bb *ir.BasicBlock, inst ir.Instruction) {
	switch t := inst.(type) {
	case *ir.Branch:
		bb.Next0, bb.Next1 = t.ThenBlock, t.ElseBlock
	case *ir.Return:
		bb.Next0, bb.Next1 = nil, nil
	}
}

// Append adds inst to the end of bb, setting its block back-link and, if
// inst is a terminator, wiring bb's successor edges from it.
func Append(bb *ir.BasicBlock, inst ir.Instruction) {
	inst.SetBlock(bb)
	bb.Instructions = append(bb.Instructions, inst)
	wireTerminator(bb, inst)
}

// Insert places inst at position pos in bb, shifting later instructions
// back. Inserting a terminator anywhere but the final position violates
// spec.md §3's "exactly the last instruction may be a terminator" invariant;
// Insert performs the structural edit regardless and leaves catching the
// violation to package verify.
func Insert(bb *ir.BasicBlock, pos int, inst ir.Instruction) {
	inst.SetBlock(bb)
	bb.Instructions = append(bb.Instructions, nil)
	copy(bb.Instructions[pos+1:], bb.Instructions[pos:])
	bb.Instructions[pos] = inst
	if pos == len(bb.Instructions)-1 {
		wireTerminator(bb, inst)
	}
}

// Replace overwrites the instruction at pos with inst.
func Replace(bb *ir.BasicBlock, pos int, inst ir.Instruction) {
	inst.SetBlock(bb)
	bb.Instructions[pos] = inst
	if pos == len(bb.Instructions)-1 {
		wireTerminator(bb, inst)
	}
}

// Remove deletes the instruction at pos. If it was bb's terminator, bb's
// successor edges are cleared; the caller is responsible for re-wiring a
// fall-through or new terminator afterward.
func Remove(bb *ir.BasicBlock, pos int) {
	wasTerm := pos == len(bb.Instructions)-1 && bb.Instructions[pos].IsTerminator()
	bb.Instructions = append(bb.Instructions[:pos], bb.Instructions[pos+1:]...)
	if wasTerm {
		bb.Next0, bb.Next1 = nil, nil
	}
}

// MoveTo transfers ownership of the instruction at pos in src to the end of
// dst.
func MoveTo(src *ir.BasicBlock, pos int, dst *ir.BasicBlock) {
	inst := src.Instructions[pos]
	Remove(src, pos)
	Append(dst, inst)
}

// CloneInstrs produces a new BasicBlock, owned by code, whose instructions
// are deep copies (via Instruction.Clone) of src's — with fresh ids and no
// block back-link conflicts — but with null successors: per spec.md §4.1
// the caller wires them.
func CloneInstrs(code ir.Code, src *ir.BasicBlock) *ir.BasicBlock {
	nb := &ir.BasicBlock{ID: code.NextBlockID(), Owner: code}
	code.AddBlock(nb)
	nb.Instructions = make([]ir.Instruction, len(src.Instructions))
	for i, inst := range src.Instructions {
		clone := inst.Clone(code.NextInstrID())
		clone.SetBlock(nb)
		nb.Instructions[i] = clone
	}
	return nb
}

// Split creates a new BasicBlock owned by code, transfers every instruction
// of bb from pos onward into it, rewires bb's old successors onto the new
// block, and links bb -> newBB as a fall-through.
func Split(code ir.Code, bb *ir.BasicBlock, pos int) *ir.BasicBlock {
	nb := &ir.BasicBlock{ID: code.NextBlockID(), Owner: code}
	code.AddBlock(nb)

	moved := bb.Instructions[pos:]
	bb.Instructions = bb.Instructions[:pos:pos]
	nb.Instructions = moved
	for _, inst := range moved {
		inst.SetBlock(nb)
	}

	nb.Next0, nb.Next1 = bb.Next0, bb.Next1
	bb.Next0, bb.Next1 = nb, nil
	return nb
}

// ForInline finds the unique block within the subgraph reachable from
// inlineeEntry whose terminator is a Return, records its return operand,
// replaces that Return with a fall-through edge into continuation, and
// returns the recorded operand. It errors (a capability gap, §7) if the
// inlinee does not have exactly one reachable return block.
func ForInline(inlineeEntry, continuation *ir.BasicBlock) (ir.Value, error) {
	var retBlock *ir.BasicBlock
	var retVal ir.Value
	count := 0
	Walk(inlineeEntry, func(bb *ir.BasicBlock) {
		if ret, ok := bb.Terminator().(*ir.Return); ok {
			count++
			retBlock, retVal = bb, ret.Operand
		}
	})
	if count != 1 {
		return nil, fmt.Errorf("cfg: inlinee has %d reachable return blocks, expected exactly 1", count)
	}
	Remove(retBlock, len(retBlock.Instructions)-1)
	retBlock.Next0 = continuation
	retBlock.Next1 = nil
	return retVal, nil
}
