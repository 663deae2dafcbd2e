package ir

import (
	"fmt"
	"strings"

	"github.com/blorente/rir/internal/types"
)

// Tag identifies the concrete instruction variant, per spec.md §3's table.
// Effect predicates (MightIO, ChangesEnv, LeaksEnv, NeedsEnv — see
// effects.go) are mechanical functions of Tag alone.
type Tag int

const (
	TagLdConst Tag = iota
	TagLdVar
	TagLdFun
	TagLdArg
	TagStVar
	TagMkEnv
	TagMkArg
	TagMkCls
	TagMkClsFun
	TagForce
	TagCall
	TagCallBuiltin
	TagBranch
	TagReturn
	TagPhi
	TagChkMissing
	TagChkClosure
	TagAsLogical
	TagAsTest
	TagBinOp
	TagCmpOp
)

func (t Tag) String() string {
	switch t {
	case TagLdConst:
		return "LdConst"
	case TagLdVar:
		return "LdVar"
	case TagLdFun:
		return "LdFun"
	case TagLdArg:
		return "LdArg"
	case TagStVar:
		return "StVar"
	case TagMkEnv:
		return "MkEnv"
	case TagMkArg:
		return "MkArg"
	case TagMkCls:
		return "MkCls"
	case TagMkClsFun:
		return "MkClsFun"
	case TagForce:
		return "Force"
	case TagCall:
		return "Call"
	case TagCallBuiltin:
		return "CallBuiltin"
	case TagBranch:
		return "Branch"
	case TagReturn:
		return "Return"
	case TagPhi:
		return "Phi"
	case TagChkMissing:
		return "ChkMissing"
	case TagChkClosure:
		return "ChkClosure"
	case TagAsLogical:
		return "AsLogical"
	case TagAsTest:
		return "AsTest"
	case TagBinOp:
		return "BinOp"
	case TagCmpOp:
		return "CmpOp"
	default:
		return fmt.Sprintf("Tag(%d)", int(t))
	}
}

// BinOpKind enumerates the arithmetic operators.
type BinOpKind string

const (
	OpAdd BinOpKind = "+"
	OpSub BinOpKind = "-"
	OpMul BinOpKind = "*"
	OpDiv BinOpKind = "/"
	OpMod BinOpKind = "%"
)

// CmpOpKind enumerates the comparison operators; every CmpOp produces a
// Logical result.
type CmpOpKind string

const (
	OpEq CmpOpKind = "=="
	OpNe CmpOpKind = "!="
	OpLt CmpOpKind = "<"
	OpLe CmpOpKind = "<="
	OpGt CmpOpKind = ">"
	OpGe CmpOpKind = ">="
)

// Instruction is the common interface over every concrete instruction
// variant. It is also a Value: its result (when it has one) is exactly the
// Instruction itself, matching spec.md's "Instruction" Value variant.
type Instruction interface {
	Value
	// ID is the instruction's identity, independent of any block/renumber id.
	ID() int
	Tag() Tag
	Block() *BasicBlock
	SetBlock(*BasicBlock)
	// Operands returns the instruction's argument vector, in the declared
	// order; for variadic instructions this is the full variadic list.
	Operands() []Value
	// ReplaceOperand rewrites operand i in place. Panics if i is out of range.
	ReplaceOperand(i int, v Value)
	IsTerminator() bool
	Effects() Effects
	String() string
	// Clone returns a shallow structural copy of the instruction with a new
	// identity and no owning block, for use by cfg.CloneInstrs and the
	// inliner. Operand references are copied as-is; callers are responsible
	// for rewiring them into the target graph.
	Clone(newID int) Instruction
}

// Terminator is implemented by instructions that may end a basic block.
type Terminator interface {
	Instruction
	Successors() []*BasicBlock
}

// base is embedded by every concrete instruction struct; it implements the
// parts of Instruction that do not vary per tag.
type base struct {
	id    int
	block *BasicBlock
	typ   types.PirType
}

func (b *base) ID() int               { return b.id }
func (b *base) Block() *BasicBlock    { return b.block }
func (b *base) SetBlock(bb *BasicBlock) { b.block = bb }
func (b *base) Type() types.PirType   { return b.typ }
func (b *base) isValue()              {}
func (b *base) IsTerminator() bool    { return false }

// Const is an opaque reference into the host's constant pool (§6: "Constant
// pools are opaque integer-keyed tables provided by the host; PIR only
// stores indices").
type Const struct {
	PoolIndex int
	// Preview is an optional human-readable spelling for dumps; the host
	// need not populate it.
	Preview string
}

// ---- LdConst ----

type LdConst struct {
	base
	Value_ Const
}

func NewLdConst(id int, resultType types.PirType, c Const) *LdConst {
	return &LdConst{base: base{id: id, typ: resultType}, Value_: c}
}

func (i *LdConst) Tag() Tag                { return TagLdConst }
func (i *LdConst) Operands() []Value       { return nil }
func (i *LdConst) ReplaceOperand(n int, v Value) { panic("LdConst has no operands") }
func (i *LdConst) Effects() Effects        { return effectsOf(TagLdConst) }
func (i *LdConst) String() string {
	if i.Value_.Preview != "" {
		return fmt.Sprintf("%s %%%d = LdConst (%s)", i.typ, i.id, i.Value_.Preview)
	}
	return fmt.Sprintf("%s %%%d = LdConst (#%d)", i.typ, i.id, i.Value_.PoolIndex)
}

// ---- LdVar / LdFun / LdArg (load-like, per GLOSSARY) ----

type LdVar struct {
	base
	Env  Value
	Name string
}

func NewLdVar(id int, resultType types.PirType, env Value, name string) *LdVar {
	return &LdVar{base: base{id: id, typ: resultType}, Env: env, Name: name}
}

func (i *LdVar) Tag() Tag          { return TagLdVar }
func (i *LdVar) Operands() []Value { return []Value{i.Env} }
func (i *LdVar) ReplaceOperand(n int, v Value) {
	mustIndex(n, 1)
	i.Env = v
}
func (i *LdVar) Effects() Effects { return effectsOf(TagLdVar) }
func (i *LdVar) String() string {
	return fmt.Sprintf("%s %%%d = LdVar (%s, \"%s\")", i.typ, i.id, ref(i.Env), i.Name)
}

type LdFun struct {
	base
	Env  Value
	Name string
}

func NewLdFun(id int, resultType types.PirType, env Value, name string) *LdFun {
	return &LdFun{base: base{id: id, typ: resultType}, Env: env, Name: name}
}

func (i *LdFun) Tag() Tag          { return TagLdFun }
func (i *LdFun) Operands() []Value { return []Value{i.Env} }
func (i *LdFun) ReplaceOperand(n int, v Value) {
	mustIndex(n, 1)
	i.Env = v
}
func (i *LdFun) Effects() Effects { return effectsOf(TagLdFun) }
func (i *LdFun) String() string {
	return fmt.Sprintf("%s %%%d = LdFun (%s, \"%s\")", i.typ, i.id, ref(i.Env), i.Name)
}

type LdArg struct {
	base
	Env   Value
	Index int
}

func NewLdArg(id int, resultType types.PirType, env Value, index int) *LdArg {
	return &LdArg{base: base{id: id, typ: resultType}, Env: env, Index: index}
}

func (i *LdArg) Tag() Tag          { return TagLdArg }
func (i *LdArg) Operands() []Value { return []Value{i.Env} }
func (i *LdArg) ReplaceOperand(n int, v Value) {
	mustIndex(n, 1)
	i.Env = v
}
func (i *LdArg) Effects() Effects { return effectsOf(TagLdArg) }
func (i *LdArg) String() string {
	return fmt.Sprintf("%s %%%d = LdArg (%s, %d)", i.typ, i.id, ref(i.Env), i.Index)
}

// ---- StVar ----

type StVar struct {
	base
	Env   Value
	Name  string
	Value Value
}

func NewStVar(id int, env Value, name string, value Value) *StVar {
	return &StVar{base: base{id: id, typ: types.Voyd}, Env: env, Name: name, Value: value}
}

func (i *StVar) Tag() Tag          { return TagStVar }
func (i *StVar) Operands() []Value { return []Value{i.Env, i.Value} }
func (i *StVar) ReplaceOperand(n int, v Value) {
	switch n {
	case 0:
		i.Env = v
	case 1:
		i.Value = v
	default:
		panic("StVar: operand index out of range")
	}
}
func (i *StVar) Effects() Effects { return effectsOf(TagStVar) }
func (i *StVar) String() string {
	return fmt.Sprintf("void %%%d = StVar (%s, \"%s\", %s)", i.id, ref(i.Env), i.Name, ref(i.Value))
}

// ---- MkEnv ----

type MkEnv struct {
	base
	Parent Value // an Environment Value, or nil for "no parent"
	Names  []string
	Values []Value
	Result *Environment
}

func NewMkEnv(id int, parent Value, names []string, values []Value, result *Environment) *MkEnv {
	return &MkEnv{base: base{id: id, typ: types.Env()}, Parent: parent, Names: names, Values: values, Result: result}
}

func (i *MkEnv) Tag() Tag { return TagMkEnv }
func (i *MkEnv) Operands() []Value {
	ops := make([]Value, 0, 1+len(i.Values))
	if i.Parent != nil {
		ops = append(ops, i.Parent)
	}
	ops = append(ops, i.Values...)
	return ops
}
func (i *MkEnv) ReplaceOperand(n int, v Value) {
	if i.Parent != nil {
		if n == 0 {
			i.Parent = v
			return
		}
		n--
	}
	mustIndex(n, len(i.Values))
	i.Values[n] = v
}
func (i *MkEnv) Effects() Effects { return effectsOf(TagMkEnv) }
func (i *MkEnv) String() string {
	parts := make([]string, len(i.Names))
	for k, n := range i.Names {
		parts[k] = fmt.Sprintf("%s=%s", n, ref(i.Values[k]))
	}
	return fmt.Sprintf("env %%%d = MkEnv (%s; %s)", i.id, ref(i.Parent), strings.Join(parts, ", "))
}

// ---- MkArg ----

// MkArg bundles an optional eager value (Strict == nil means the argument
// is lazy) with a back-link to the promise that computes it and the
// environment the promise closes over.
type MkArg struct {
	base
	Strict  Value // nil if the argument was not evaluated eagerly
	Promise *Promise
	Env     Value
}

func NewMkArg(id int, strict Value, p *Promise, env Value) *MkArg {
	return &MkArg{base: base{id: id, typ: types.PromiseT()}, Strict: strict, Promise: p, Env: env}
}

func (i *MkArg) Tag() Tag { return TagMkArg }
func (i *MkArg) Operands() []Value {
	if i.Strict != nil {
		return []Value{i.Strict, i.Env}
	}
	return []Value{i.Env}
}
func (i *MkArg) ReplaceOperand(n int, v Value) {
	if i.Strict != nil {
		switch n {
		case 0:
			i.Strict = v
		case 1:
			i.Env = v
		default:
			panic("MkArg: operand index out of range")
		}
		return
	}
	mustIndex(n, 1)
	i.Env = v
}
func (i *MkArg) Effects() Effects { return effectsOf(TagMkArg) }
func (i *MkArg) String() string {
	strict := "missing"
	if i.Strict != nil {
		strict = ref(i.Strict)
	}
	pid := -1
	if i.Promise != nil {
		pid = i.Promise.Index()
	}
	return fmt.Sprintf("%s %%%d = MkArg (%s, prom#%d, %s)", i.typ, i.id, strict, pid, ref(i.Env))
}

// ---- MkCls / MkClsFun ----

// MkCls constructs a closure over an already-known Function, closing over
// the given environment (arity 1: env).
type MkCls struct {
	base
	Env Value
	Fn  *Function
}

func NewMkCls(id int, env Value, fn *Function) *MkCls {
	return &MkCls{base: base{id: id, typ: types.Closure()}, Env: env, Fn: fn}
}

func (i *MkCls) Tag() Tag          { return TagMkCls }
func (i *MkCls) Operands() []Value { return []Value{i.Env} }
func (i *MkCls) ReplaceOperand(n int, v Value) {
	mustIndex(n, 1)
	i.Env = v
}
func (i *MkCls) Effects() Effects { return effectsOf(TagMkCls) }
func (i *MkCls) String() string {
	return fmt.Sprintf("closure %%%d = MkCls (%s, %s)", i.id, ref(i.Env), i.Fn.Name())
}

// MkClsFun constructs a closure together with its formal list and code
// pointer made explicit in the instruction (arity 3: env, code, formals),
// used when the callee Function is not otherwise reachable from context.
type MkClsFun struct {
	base
	Env     Value
	Code    Value
	Formals Value
	Fn      *Function
}

func NewMkClsFun(id int, env, code, formals Value, fn *Function) *MkClsFun {
	return &MkClsFun{base: base{id: id, typ: types.Closure()}, Env: env, Code: code, Formals: formals, Fn: fn}
}

func (i *MkClsFun) Tag() Tag          { return TagMkClsFun }
func (i *MkClsFun) Operands() []Value { return []Value{i.Env, i.Code, i.Formals} }
func (i *MkClsFun) ReplaceOperand(n int, v Value) {
	switch n {
	case 0:
		i.Env = v
	case 1:
		i.Code = v
	case 2:
		i.Formals = v
	default:
		panic("MkClsFun: operand index out of range")
	}
}
func (i *MkClsFun) Effects() Effects { return effectsOf(TagMkClsFun) }
func (i *MkClsFun) String() string {
	return fmt.Sprintf("closure %%%d = MkClsFun (%s, %s, %s)", i.id, ref(i.Env), ref(i.Code), ref(i.Formals))
}

// ---- Force ----

type Force struct {
	base
	Operand Value
}

func NewForce(id int, resultType types.PirType, operand Value) *Force {
	return &Force{base: base{id: id, typ: resultType}, Operand: operand}
}

func (i *Force) Tag() Tag          { return TagForce }
func (i *Force) Operands() []Value { return []Value{i.Operand} }
func (i *Force) ReplaceOperand(n int, v Value) {
	mustIndex(n, 1)
	i.Operand = v
}
func (i *Force) Effects() Effects { return effectsOf(TagForce) }
func (i *Force) String() string {
	return fmt.Sprintf("%s %%%d = Force (%s)", i.typ, i.id, ref(i.Operand))
}

// ---- Call / CallBuiltin ----

type Call struct {
	base
	Callee Value
	Args   []Value
}

func NewCall(id int, resultType types.PirType, callee Value, args []Value) *Call {
	return &Call{base: base{id: id, typ: resultType}, Callee: callee, Args: args}
}

func (i *Call) Tag() Tag { return TagCall }
func (i *Call) Operands() []Value {
	ops := make([]Value, 0, 1+len(i.Args))
	ops = append(ops, i.Callee)
	return append(ops, i.Args...)
}
func (i *Call) ReplaceOperand(n int, v Value) {
	if n == 0 {
		i.Callee = v
		return
	}
	mustIndex(n-1, len(i.Args))
	i.Args[n-1] = v
}
func (i *Call) Effects() Effects { return effectsOf(TagCall) }
func (i *Call) String() string {
	parts := make([]string, len(i.Args))
	for k, a := range i.Args {
		parts[k] = ref(a)
	}
	return fmt.Sprintf("%s %%%d = Call (%s, %s)", i.typ, i.id, ref(i.Callee), strings.Join(parts, ", "))
}

type CallBuiltin struct {
	base
	Builtin string
	Args    []Value
}

func NewCallBuiltin(id int, resultType types.PirType, builtin string, args []Value) *CallBuiltin {
	return &CallBuiltin{base: base{id: id, typ: resultType}, Builtin: builtin, Args: args}
}

func (i *CallBuiltin) Tag() Tag          { return TagCallBuiltin }
func (i *CallBuiltin) Operands() []Value { return append([]Value(nil), i.Args...) }
func (i *CallBuiltin) ReplaceOperand(n int, v Value) {
	mustIndex(n, len(i.Args))
	i.Args[n] = v
}
func (i *CallBuiltin) Effects() Effects { return effectsOf(TagCallBuiltin) }
func (i *CallBuiltin) String() string {
	parts := make([]string, len(i.Args))
	for k, a := range i.Args {
		parts[k] = ref(a)
	}
	return fmt.Sprintf("%s %%%d = CallBuiltin (%s, %s)", i.typ, i.id, i.Builtin, strings.Join(parts, ", "))
}

// ---- Branch / Return (terminators) ----

type Branch struct {
	base
	Cond      Value
	ThenBlock *BasicBlock
	ElseBlock *BasicBlock
}

func NewBranch(id int, cond Value, thenBB, elseBB *BasicBlock) *Branch {
	return &Branch{base: base{id: id, typ: types.Voyd}, Cond: cond, ThenBlock: thenBB, ElseBlock: elseBB}
}

func (i *Branch) Tag() Tag          { return TagBranch }
func (i *Branch) Operands() []Value { return []Value{i.Cond} }
func (i *Branch) ReplaceOperand(n int, v Value) {
	mustIndex(n, 1)
	i.Cond = v
}
func (i *Branch) IsTerminator() bool          { return true }
func (i *Branch) Successors() []*BasicBlock   { return []*BasicBlock{i.ThenBlock, i.ElseBlock} }
func (i *Branch) Effects() Effects            { return effectsOf(TagBranch) }
func (i *Branch) String() string {
	return fmt.Sprintf("void %%%d = Branch (%s) -> BB%d, BB%d", i.id, ref(i.Cond), i.ThenBlock.ID, i.ElseBlock.ID)
}

type Return struct {
	base
	Operand Value
}

func NewReturn(id int, operand Value) *Return {
	return &Return{base: base{id: id, typ: types.Voyd}, Operand: operand}
}

func (i *Return) Tag() Tag          { return TagReturn }
func (i *Return) Operands() []Value { return []Value{i.Operand} }
func (i *Return) ReplaceOperand(n int, v Value) {
	mustIndex(n, 1)
	i.Operand = v
}
func (i *Return) IsTerminator() bool        { return true }
func (i *Return) Successors() []*BasicBlock { return nil }
func (i *Return) Effects() Effects          { return effectsOf(TagReturn) }
func (i *Return) String() string {
	return fmt.Sprintf("void %%%d = Return (%s)", i.id, ref(i.Operand))
}

// ---- Phi ----

// Phi stores one input Value per predecessor BasicBlock. Order is not
// significant to the representation (it is a map), but passes that care
// about predecessor alignment (cloning, inlining) must consult the owning
// block's predecessor list explicitly rather than range over Inputs.
type Phi struct {
	base
	Inputs map[*BasicBlock]Value
}

func NewPhi(id int, resultType types.PirType) *Phi {
	return &Phi{base: base{id: id, typ: resultType}, Inputs: map[*BasicBlock]Value{}}
}

func (i *Phi) Tag() Tag { return TagPhi }
func (i *Phi) Operands() []Value {
	ops := make([]Value, 0, len(i.Inputs))
	for _, v := range i.Inputs {
		ops = append(ops, v)
	}
	return ops
}
func (i *Phi) ReplaceOperand(n int, v Value) {
	// Phi operands are keyed by predecessor block, not position; callers
	// that need positional replacement should mutate Inputs directly.
	panic("Phi: use SetInput(pred, v), operands are keyed by predecessor")
}
func (i *Phi) SetInput(pred *BasicBlock, v Value) { i.Inputs[pred] = v }

// SetType overwrites the Phi's result type; used by cast insertion to
// recompute it as the join of its current inputs before rewriting uses.
func (i *Phi) SetType(t types.PirType) { i.typ = t }
func (i *Phi) Effects() Effects                   { return effectsOf(TagPhi) }
func (i *Phi) String() string {
	parts := make([]string, 0, len(i.Inputs))
	for bb, v := range i.Inputs {
		parts = append(parts, fmt.Sprintf("BB%d: %s", bb.ID, ref(v)))
	}
	return fmt.Sprintf("%s %%%d = Phi (%s)", i.typ, i.id, strings.Join(parts, ", "))
}

// ---- Casts: ChkMissing, ChkClosure, AsLogical, AsTest ----

type ChkMissing struct {
	base
	Operand Value
}

func NewChkMissing(id int, resultType types.PirType, operand Value) *ChkMissing {
	return &ChkMissing{base: base{id: id, typ: resultType}, Operand: operand}
}
func (i *ChkMissing) Tag() Tag          { return TagChkMissing }
func (i *ChkMissing) Operands() []Value { return []Value{i.Operand} }
func (i *ChkMissing) ReplaceOperand(n int, v Value) {
	mustIndex(n, 1)
	i.Operand = v
}
func (i *ChkMissing) Effects() Effects { return effectsOf(TagChkMissing) }
func (i *ChkMissing) String() string {
	return fmt.Sprintf("%s %%%d = ChkMissing (%s)", i.typ, i.id, ref(i.Operand))
}

type ChkClosure struct {
	base
	Operand Value
}

func NewChkClosure(id int, resultType types.PirType, operand Value) *ChkClosure {
	return &ChkClosure{base: base{id: id, typ: resultType}, Operand: operand}
}
func (i *ChkClosure) Tag() Tag          { return TagChkClosure }
func (i *ChkClosure) Operands() []Value { return []Value{i.Operand} }
func (i *ChkClosure) ReplaceOperand(n int, v Value) {
	mustIndex(n, 1)
	i.Operand = v
}
func (i *ChkClosure) Effects() Effects { return effectsOf(TagChkClosure) }
func (i *ChkClosure) String() string {
	return fmt.Sprintf("%s %%%d = ChkClosure (%s)", i.typ, i.id, ref(i.Operand))
}

type AsLogical struct {
	base
	Operand Value
}

func NewAsLogical(id int, operand Value) *AsLogical {
	return &AsLogical{base: base{id: id, typ: types.Logical()}, Operand: operand}
}
func (i *AsLogical) Tag() Tag          { return TagAsLogical }
func (i *AsLogical) Operands() []Value { return []Value{i.Operand} }
func (i *AsLogical) ReplaceOperand(n int, v Value) {
	mustIndex(n, 1)
	i.Operand = v
}
func (i *AsLogical) Effects() Effects { return effectsOf(TagAsLogical) }
func (i *AsLogical) String() string {
	return fmt.Sprintf("%s %%%d = AsLogical (%s)", i.typ, i.id, ref(i.Operand))
}

type AsTest struct {
	base
	Operand Value
}

func NewAsTest(id int, operand Value) *AsTest {
	return &AsTest{base: base{id: id, typ: types.Test}, Operand: operand}
}
func (i *AsTest) Tag() Tag          { return TagAsTest }
func (i *AsTest) Operands() []Value { return []Value{i.Operand} }
func (i *AsTest) ReplaceOperand(n int, v Value) {
	mustIndex(n, 1)
	i.Operand = v
}
func (i *AsTest) Effects() Effects { return effectsOf(TagAsTest) }
func (i *AsTest) String() string {
	return fmt.Sprintf("%s %%%d = AsTest (%s)", i.typ, i.id, ref(i.Operand))
}

// ---- Arithmetic / comparison ----

type BinOp struct {
	base
	Op    BinOpKind
	Left  Value
	Right Value
}

func NewBinOp(id int, resultType types.PirType, op BinOpKind, left, right Value) *BinOp {
	return &BinOp{base: base{id: id, typ: resultType}, Op: op, Left: left, Right: right}
}
func (i *BinOp) Tag() Tag          { return TagBinOp }
func (i *BinOp) Operands() []Value { return []Value{i.Left, i.Right} }
func (i *BinOp) ReplaceOperand(n int, v Value) {
	switch n {
	case 0:
		i.Left = v
	case 1:
		i.Right = v
	default:
		panic("BinOp: operand index out of range")
	}
}
func (i *BinOp) Effects() Effects { return effectsOf(TagBinOp) }
func (i *BinOp) String() string {
	return fmt.Sprintf("%s %%%d = BinOp %s (%s, %s)", i.typ, i.id, i.Op, ref(i.Left), ref(i.Right))
}

type CmpOp struct {
	base
	Op    CmpOpKind
	Left  Value
	Right Value
}

func NewCmpOp(id int, op CmpOpKind, left, right Value) *CmpOp {
	return &CmpOp{base: base{id: id, typ: types.Logical()}, Op: op, Left: left, Right: right}
}
func (i *CmpOp) Tag() Tag          { return TagCmpOp }
func (i *CmpOp) Operands() []Value { return []Value{i.Left, i.Right} }
func (i *CmpOp) ReplaceOperand(n int, v Value) {
	switch n {
	case 0:
		i.Left = v
	case 1:
		i.Right = v
	default:
		panic("CmpOp: operand index out of range")
	}
}
func (i *CmpOp) Effects() Effects { return effectsOf(TagCmpOp) }
func (i *CmpOp) String() string {
	return fmt.Sprintf("%s %%%d = CmpOp %s (%s, %s)", i.typ, i.id, i.Op, ref(i.Left), ref(i.Right))
}

// ---- Clone implementations ----
//
// Each Clone copies the struct's fields, resets id/block, and deep-copies
// any slice/map fields so the clone does not alias the original's mutable
// state (spec.md §4.1's cloneInstrs: "a new BB with deep-copied
// instructions").

func (i *LdConst) Clone(newID int) Instruction {
	c := *i
	c.id, c.block = newID, nil
	return &c
}

func (i *LdVar) Clone(newID int) Instruction {
	c := *i
	c.id, c.block = newID, nil
	return &c
}

func (i *LdFun) Clone(newID int) Instruction {
	c := *i
	c.id, c.block = newID, nil
	return &c
}

func (i *LdArg) Clone(newID int) Instruction {
	c := *i
	c.id, c.block = newID, nil
	return &c
}

func (i *StVar) Clone(newID int) Instruction {
	c := *i
	c.id, c.block = newID, nil
	return &c
}

func (i *MkEnv) Clone(newID int) Instruction {
	c := *i
	c.id, c.block = newID, nil
	c.Names = append([]string(nil), i.Names...)
	c.Values = append([]Value(nil), i.Values...)
	return &c
}

func (i *MkArg) Clone(newID int) Instruction {
	c := *i
	c.id, c.block = newID, nil
	return &c
}

func (i *MkCls) Clone(newID int) Instruction {
	c := *i
	c.id, c.block = newID, nil
	return &c
}

func (i *MkClsFun) Clone(newID int) Instruction {
	c := *i
	c.id, c.block = newID, nil
	return &c
}

func (i *Force) Clone(newID int) Instruction {
	c := *i
	c.id, c.block = newID, nil
	return &c
}

func (i *Call) Clone(newID int) Instruction {
	c := *i
	c.id, c.block = newID, nil
	c.Args = append([]Value(nil), i.Args...)
	return &c
}

func (i *CallBuiltin) Clone(newID int) Instruction {
	c := *i
	c.id, c.block = newID, nil
	c.Args = append([]Value(nil), i.Args...)
	return &c
}

func (i *Branch) Clone(newID int) Instruction {
	c := *i
	c.id, c.block = newID, nil
	return &c
}

func (i *Return) Clone(newID int) Instruction {
	c := *i
	c.id, c.block = newID, nil
	return &c
}

func (i *Phi) Clone(newID int) Instruction {
	c := *i
	c.id, c.block = newID, nil
	c.Inputs = make(map[*BasicBlock]Value, len(i.Inputs))
	for k, v := range i.Inputs {
		c.Inputs[k] = v
	}
	return &c
}

func (i *ChkMissing) Clone(newID int) Instruction {
	c := *i
	c.id, c.block = newID, nil
	return &c
}

func (i *ChkClosure) Clone(newID int) Instruction {
	c := *i
	c.id, c.block = newID, nil
	return &c
}

func (i *AsLogical) Clone(newID int) Instruction {
	c := *i
	c.id, c.block = newID, nil
	return &c
}

func (i *AsTest) Clone(newID int) Instruction {
	c := *i
	c.id, c.block = newID, nil
	return &c
}

func (i *BinOp) Clone(newID int) Instruction {
	c := *i
	c.id, c.block = newID, nil
	return &c
}

func (i *CmpOp) Clone(newID int) Instruction {
	c := *i
	c.id, c.block = newID, nil
	return &c
}

// ---- shared helpers ----

func mustIndex(n, count int) {
	if n < 0 || n >= count {
		panic(fmt.Sprintf("ir: operand index %d out of range [0,%d)", n, count))
	}
}

// ref renders a Value for use inside an instruction's String(); it never
// dereferences Force/recursively prints producers, matching the printer's
// "print each instruction once, reference others by %id" convention.
func ref(v Value) string {
	if v == nil {
		return "<nil>"
	}
	switch vv := v.(type) {
	case *nilValue:
		return "Nil"
	case *missingValue:
		return "Missing"
	case *Environment:
		if IsUnknownParent(vv) {
			return "<unknown-env>"
		}
		return fmt.Sprintf("env%%%d", vv.ID())
	case Instruction:
		return fmt.Sprintf("%%%d", vv.ID())
	default:
		return fmt.Sprintf("%v", v)
	}
}
