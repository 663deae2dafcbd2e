package ir

// BasicBlock is a sequence of instructions with no internal branches,
// identified by a dense integer within its owning Code unit (spec.md §3).
//
// Successor edges (Next0, Next1) are set by whichever instruction
// terminates the block: Branch sets both, Return sets neither, and a
// fall-through (no terminator at all) sets only Next0. cfg.Append and the
// other block-mutation primitives in package cfg are responsible for
// keeping these in sync with the last instruction; BasicBlock itself does
// not re-derive them on every read.
type BasicBlock struct {
	ID           int
	Owner        Code
	Instructions []Instruction
	Next0        *BasicBlock
	Next1        *BasicBlock
}

// Terminator returns the block's terminating instruction, if its last
// instruction is one (Branch or Return), or nil for a fall-through block.
func (b *BasicBlock) Terminator() Terminator {
	if len(b.Instructions) == 0 {
		return nil
	}
	if t, ok := b.Instructions[len(b.Instructions)-1].(Terminator); ok {
		return t
	}
	return nil
}

// Successors returns the block's successor edges in next0/next1 order,
// omitting nil entries.
func (b *BasicBlock) Successors() []*BasicBlock {
	var out []*BasicBlock
	if b.Next0 != nil {
		out = append(out, b.Next0)
	}
	if b.Next1 != nil {
		out = append(out, b.Next1)
	}
	return out
}
