package pirasm

// Grammar for the textual PIR assembler format. One module, each holding
// functions; each function holds its blocks followed by its owned
// promises (function body, then each Promise by index). This is not the
// printer's output format: package printer writes the type before the
// register, ends lines without ';', spells gotos "goto BB <id>" and places
// promises after the function's closing brace, so a printer.DumpModule
// rendering does not parse here.
//
// Grounded on the teacher's grammar.go: struct-tag EBNF with participle,
// literal keyword tokens matched against the generic Ident lexer class
// ("module", "function", "promise", "bb", "goto" here; "module", "struct",
// "use" there), and the same `Close string `"}"`` idiom for a trailing
// brace that captures nothing. Block references ("BB3") are their own
// lexer token (see lexer.go's BlockRef rule) rather than an Ident+Integer
// pair, since the Ident rule's maximal munch would otherwise swallow the
// digits into the identifier.

// Program is the root production: exactly one module.
type Program struct {
	Module *ModuleNode `@@`
}

// ModuleNode holds every function declared in the file.
type ModuleNode struct {
	Functions []*FunctionNode `"module" "{" @@* "}"`
}

// FunctionNode is one function's name, formal parameter names, entry graph,
// and the promises it owns.
type FunctionNode struct {
	Name     string         `"function" @Ident`
	Params   []string       `"(" [ @Ident { "," @Ident } ] ")" "{"`
	Blocks   []*BlockNode   `@@*`
	Promises []*PromiseNode `@@*`
	Close    string         `"}"`
}

// PromiseNode is one promise's entry graph, implicitly indexed by its
// position in the owning function's Promises list (spec.md's promise index
// is assigned by declaration order, matching Function.CreatePromise).
type PromiseNode struct {
	Blocks []*BlockNode `"promise" "{" @@* "}"`
}

// BlockNode is one "bb N:" label and its line sequence. The first BlockNode
// in a function or promise becomes that code unit's entry block.
type BlockNode struct {
	ID    int         `"bb" @Integer ":"`
	Lines []*LineNode `@@*`
}

// LineNode is either an explicit fall-through goto (a block with no
// terminator instruction, per printer.Block) or an instruction.
type LineNode struct {
	Goto  *GotoNode  `  @@`
	Instr *InstrNode `| @@`
}

// GotoNode spells an unconditional fall-through edge with no instruction
// backing it ("goto BB3;"; printer renders the same edge as "goto BB 3").
type GotoNode struct {
	Target string `"goto" @BlockRef ";"`
}

// InstrNode is one instruction line: a destination register, an optional
// bracketed result type (required for tags whose result type isn't fixed or
// derivable — see build.go's needsType), the lowercase tag name, and a
// parenthesized, comma-separated operand list.
type InstrNode struct {
	Result int    `"%" @Integer "="`
	Type   string `[ @TypeLit ]`
	Op     string `@Ident`
	Args   []*Arg `"(" [ @@ { "," @@ } ] ")" ";"`
}

// PhiPair is one "BB<pred>=<value>" input to a Phi instruction.
type PhiPair struct {
	Pred string `@BlockRef "="`
	Val  *Arg   `@@`
}

// NameVal is one "name=<value>" binding in a MkEnv's operand list.
type NameVal struct {
	Name string `@Ident "="`
	Val  *Arg   `@@`
}

// Arg is one operand: exactly one of its fields is populated, decided by
// which alternative matched. Order matters — PhiPair and NameVal must be
// tried before the bare BB/Name alternatives they otherwise prefix, and the
// Nil/Missing keyword alternatives must be tried before the catch-all Name,
// or they would be captured as plain identifiers instead. Reg must be tried
// before Sym, since "%" also lexes as an Operator.
type Arg struct {
	Phi     *PhiPair `  @@`
	NameVal *NameVal `| @@`
	Prom    *int     `| "prom" "#" @Integer`
	BB      *string  `| @BlockRef`
	Str     *string  `| @String`
	Nil     bool     `| @"Nil"`
	Missing bool     `| @"Missing"`
	Reg     *int     `| "%" @Integer`
	Sym     *string  `| @Operator`
	Num     *int     `| @Integer`
	Name    *string  `| @Ident`
}
