package pirasm

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// pirLexer tokenizes the textual PIR format: one instruction per line,
// terminated by ";", grouped into "bb N:" blocks inside "function"/"promise"
// bodies inside a single "module { }".
//
// Grounded on the teacher's grammar.KansoLexer (lexer.MustStateful with an
// ordered rule table, comments before identifiers, punctuation after
// operators). TypeLit is pirasm's own addition: a PIR result type like
// "integer^lazy" or "val" is written bracketed (`[integer^lazy]`) so the
// lexer can hand it to the parser as one opaque token instead of needing a
// sub-grammar for the type lattice's "|" and "^" spellings.
var pirLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Comment", `//[^\n]*`, nil},
		{"TypeLit", `\[[^\]]*\]`, nil},
		{"String", `"(\\.|[^"\\])*"`, nil},
		// BlockRef must come before Ident: "BB3" is one reference token, not
		// the identifier "BB" followed by an integer.
		{"BlockRef", `BB[0-9]+`, nil},
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},
		{"Integer", `[0-9]+`, nil},
		{"Operator", `(==|!=|<=|>=|[-+*/%<>])`, nil},
		{"Punctuation", `[{}()\[\]:;,=%#]`, nil},
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
