// Package printer implements the textual dump of spec.md §6: one block per
// line group, instructions printed as `<type> %id = <op> (<args…>)`, phis as
// `Phi(<args…>)`, an unconditional tail as `goto BB <id>`. The exact
// spelling is advisory (spec.md §1's Non-goals explicitly exclude matching
// any reference implementation's print format byte-for-byte); this package
// picks one consistent, readable rendering.
//
// Grounded directly on the teacher's internal/ir/printer.go: a Printer
// struct wrapping a strings.Builder, writeLine/write helpers, one print
// method per construct.
package printer

import (
	"fmt"
	"strings"

	"github.com/blorente/rir/internal/cfg"
	"github.com/blorente/rir/internal/ir"
)

// Printer accumulates a textual dump into an internal buffer.
type Printer struct {
	sb     strings.Builder
	indent int
}

// New returns an empty Printer.
func New() *Printer { return &Printer{} }

func (p *Printer) writeLine(format string, args ...interface{}) {
	p.sb.WriteString(strings.Repeat("  ", p.indent))
	fmt.Fprintf(&p.sb, format, args...)
	p.sb.WriteString("\n")
}

// String returns everything printed so far.
func (p *Printer) String() string { return p.sb.String() }

// Module dumps every Function in m, in declaration order (spec.md §6:
// "module-level dump concatenating all Functions").
func (p *Printer) Module(m *ir.Module) {
	for i, fn := range m.Functions {
		if i > 0 {
			p.sb.WriteString("\n")
		}
		p.Function(fn)
	}
}

// Function dumps fn's header, entry graph, and every owned Promise.
func (p *Printer) Function(fn *ir.Function) {
	names := make([]string, len(fn.Params))
	for i, param := range fn.Params {
		names[i] = param.Name
	}
	p.writeLine("function %s(%s) {", fn.Name(), strings.Join(names, ", "))
	p.indent++
	p.code(fn.Entry())
	p.indent--
	p.writeLine("}")

	for _, prom := range fn.Promises {
		p.sb.WriteString("\n")
		p.Promise(prom)
	}
}

// Promise dumps one Promise code unit, labelled by its index.
func (p *Printer) Promise(prom *ir.Promise) {
	p.writeLine("promise %d {", prom.Index())
	p.indent++
	p.code(prom.Entry())
	p.indent--
	p.writeLine("}")
}

// code dumps every block reachable from entry, in Walk order, each preceded
// by its "bb <id>:" label and followed by its terminator's control-flow
// spelling.
func (p *Printer) code(entry *ir.BasicBlock) {
	for _, bb := range cfg.Reachable(entry) {
		p.Block(bb)
	}
}

// Block dumps one basic block: its label, its instructions (terminators
// included verbatim via Instruction.String()), and — only for a
// fall-through block with no terminator instruction at all — an explicit
// "goto BB <id>" line, per spec.md §6.
func (p *Printer) Block(bb *ir.BasicBlock) {
	p.writeLine("bb %d:", bb.ID)
	p.indent++
	for _, inst := range bb.Instructions {
		if phi, ok := inst.(*ir.Phi); ok {
			p.phi(phi)
			continue
		}
		p.writeLine("%s", inst.String())
	}
	if bb.Terminator() == nil && bb.Next0 != nil {
		p.writeLine("goto BB %d", bb.Next0.ID)
	}
	p.indent--
}

// phi renders a Phi using the printer's own near-inverse of the terse
// `<type> %id = Phi (<args…>)` form, predecessor-labelled rather than
// positional since Phi.Inputs is a map keyed by predecessor block.
func (p *Printer) phi(phi *ir.Phi) {
	p.writeLine("%s", phi.String())
}

// DumpModule is a convenience one-shot equivalent of New().Module(m).String().
func DumpModule(m *ir.Module) string {
	p := New()
	p.Module(m)
	return p.String()
}

// DumpFunction is a convenience one-shot equivalent for a single Function.
func DumpFunction(fn *ir.Function) string {
	p := New()
	p.Function(fn)
	return p.String()
}
