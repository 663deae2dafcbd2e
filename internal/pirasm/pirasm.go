// Package pirasm is a textual assembler for PIR: a small, line-oriented
// format for writing module/function/promise/block/instruction fixtures by
// hand instead of building *ir.Module graphs field-by-field in Go. It is
// not a host-language front end — parsing host source remains explicitly
// out of scope (spec.md's Non-goals) — only a notation for the IR itself,
// used by pass tests and by cmd/pirc.
//
// Grounded on the teacher's grammar package: participle.Build over a
// lexer.MustStateful token set. Parse returns syntax errors as participle's
// own participle.Error, and FormatError renders them caret-style for
// diagnostics.
package pirasm

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"

	"github.com/blorente/rir/internal/ir"
)

var pirParser = participle.MustBuild[Program](
	participle.Lexer(pirLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(3),
)

// Parse builds a Module from src. filename is used only to label error
// positions.
func Parse(filename, src string) (*ir.Module, error) {
	prog, err := pirParser.ParseString(filename, src)
	if err != nil {
		return nil, err
	}
	return build(prog)
}

// FormatError renders a participle.Error the way the teacher's CLI does: a
// one-line location followed by the offending source line with a caret
// under the column, for display in cmd/pirc.
func FormatError(src string, err error) string {
	pe, ok := err.(participle.Error)
	if !ok {
		return err.Error()
	}
	pos := pe.Position()
	lines := strings.Split(src, "\n")
	if pos.Line <= 0 || pos.Line > len(lines) {
		return fmt.Sprintf("syntax error at unknown location: %s", err)
	}
	line := lines[pos.Line-1]
	caret := strings.Repeat(" ", pos.Column-1) + "^"
	return fmt.Sprintf("%s:%d:%d: %s\n%s\n%s", pos.Filename, pos.Line, pos.Column, pe.Message(), line, caret)
}
