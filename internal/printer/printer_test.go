package printer

import (
	"strings"
	"testing"

	"github.com/blorente/rir/internal/cfg"
	"github.com/blorente/rir/internal/ir"
	"github.com/stretchr/testify/assert"
)

func TestDumpFunctionIncludesHeaderAndReturn(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunction("f", []string{"x"}, nil)
	entry := &ir.BasicBlock{ID: fn.NextBlockID(), Owner: fn}
	fn.AddBlock(entry)
	fn.SetEntry(entry)
	cfg.Append(entry, ir.NewReturn(fn.NextInstrID(), ir.Nil))

	out := DumpFunction(fn)

	assert.True(t, strings.Contains(out, "function f(x) {"))
	assert.True(t, strings.Contains(out, "bb 0:"))
	assert.True(t, strings.Contains(out, "Return"))
}

func TestDumpFunctionEmitsGotoForFallThrough(t *testing.T) {
	m := ir.NewModule()
	fn := m.NewFunction("f", nil, nil)
	entry := &ir.BasicBlock{ID: fn.NextBlockID(), Owner: fn}
	next := &ir.BasicBlock{ID: fn.NextBlockID(), Owner: fn}
	fn.AddBlock(entry)
	fn.AddBlock(next)
	fn.SetEntry(entry)
	entry.Next0 = next
	cfg.Append(next, ir.NewReturn(fn.NextInstrID(), ir.Nil))

	out := DumpFunction(fn)

	assert.True(t, strings.Contains(out, "goto BB 1"))
}

func TestDumpModuleConcatenatesFunctions(t *testing.T) {
	m := ir.NewModule()
	for _, name := range []string{"f", "g"} {
		fn := m.NewFunction(name, nil, nil)
		entry := &ir.BasicBlock{ID: fn.NextBlockID(), Owner: fn}
		fn.AddBlock(entry)
		fn.SetEntry(entry)
		cfg.Append(entry, ir.NewReturn(fn.NextInstrID(), ir.Nil))
	}

	out := DumpModule(m)

	assert.True(t, strings.Contains(out, "function f("))
	assert.True(t, strings.Contains(out, "function g("))
}
