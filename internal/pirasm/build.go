package pirasm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blorente/rir/internal/cfg"
	"github.com/blorente/rir/internal/ir"
)

// blockRefNum parses a BlockRef token ("BB3") into the block label it names.
func blockRefNum(tok string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(tok, "BB"))
	if err != nil {
		return 0, fmt.Errorf("malformed block reference %q", tok)
	}
	return n, nil
}

// lookupBlock resolves a BlockRef token against the label->BasicBlock table
// built for the current Code unit.
func lookupBlock(blocks map[int]*ir.BasicBlock, tok string) (*ir.BasicBlock, error) {
	n, err := blockRefNum(tok)
	if err != nil {
		return nil, err
	}
	bb, ok := blocks[n]
	if !ok {
		return nil, fmt.Errorf("no block %s", tok)
	}
	return bb, nil
}

// needsType is the set of tags whose result type cannot be derived from the
// tag alone and so must be spelled explicitly via InstrNode.Type.
var needsType = map[string]bool{
	"ldconst": true, "ldvar": true, "ldfun": true, "ldarg": true,
	"force": true, "chkmissing": true, "chkclosure": true,
	"binop": true, "phi": true, "call": true, "callbuiltin": true,
}

// builder threads the tables a Program's cross-references resolve
// against: every function, by name, so MkCls/MkClsFun/Call-by-name-style
// callee references resolve regardless of declaration order.
type builder struct {
	m   *ir.Module
	fns map[string]*ir.Function
}

// build converts a parsed Program into a Module. Functions are created in
// two passes so forward and mutually recursive MkCls references resolve:
// first every Function shell (name, formals, fresh local scope), then every
// body.
func build(prog *Program) (*ir.Module, error) {
	m := ir.NewModule()
	b := &builder{m: m, fns: map[string]*ir.Function{}}

	for _, fnNode := range prog.Module.Functions {
		if _, dup := b.fns[fnNode.Name]; dup {
			return nil, fmt.Errorf("pirasm: duplicate function %q", fnNode.Name)
		}
		b.fns[fnNode.Name] = m.NewFunction(fnNode.Name, fnNode.Params, nil)
	}
	for _, fnNode := range prog.Module.Functions {
		fn := b.fns[fnNode.Name]
		if err := b.buildFunction(fn, fnNode); err != nil {
			return nil, fmt.Errorf("pirasm: function %q: %w", fnNode.Name, err)
		}
	}
	return m, nil
}

func (b *builder) buildFunction(fn *ir.Function, node *FunctionNode) error {
	// Promise shells are created before the function's own blocks are built
	// so a mkarg line in the function body can reference prom#N regardless
	// of whether the promise's own body appears before or after it in the
	// text (it always follows, per printer's dump order, but its *index* —
	// assigned here by declaration order — must already exist).
	promises := make([]*ir.Promise, len(node.Promises))
	for i := range node.Promises {
		p := fn.CreatePromise()
		if p.Index() != i {
			return fmt.Errorf("promise %d: index mismatch building %d", i, p.Index())
		}
		promises[i] = p
	}

	if err := b.buildCode(fn, fn, node.Blocks, map[int]ir.Value{}); err != nil {
		return err
	}
	for i, pnode := range node.Promises {
		if err := b.buildCode(promises[i], fn, pnode.Blocks, map[int]ir.Value{}); err != nil {
			return fmt.Errorf("promise %d: %w", i, err)
		}
	}
	return nil
}

// buildCode fills in one Code unit's (Function's or Promise's) blocks. fn is
// the owning Function regardless of whether code is fn itself or one of its
// Promises — MkArg operands name a promise index relative to fn.Promises.
func (b *builder) buildCode(code ir.Code, fn *ir.Function, blockNodes []*BlockNode, regs map[int]ir.Value) error {
	if len(blockNodes) == 0 {
		return fmt.Errorf("code unit has no blocks")
	}

	blocks := make(map[int]*ir.BasicBlock, len(blockNodes))
	for _, bn := range blockNodes {
		bb := &ir.BasicBlock{ID: code.NextBlockID(), Owner: code}
		code.AddBlock(bb)
		blocks[bn.ID] = bb
	}
	code.SetEntry(blocks[blockNodes[0].ID])

	for _, bn := range blockNodes {
		bb := blocks[bn.ID]
		for _, ln := range bn.Lines {
			if ln.Goto != nil {
				label, err := blockRefNum(ln.Goto.Target)
				if err != nil {
					return fmt.Errorf("bb %d: %w", bn.ID, err)
				}
				target, ok := blocks[label]
				if !ok {
					return fmt.Errorf("bb %d: goto %s: no such block", bn.ID, ln.Goto.Target)
				}
				bb.Next0 = target
				continue
			}
			inst, regVal, err := b.buildInstr(code, fn, ln.Instr, regs, blocks)
			if err != nil {
				return fmt.Errorf("bb %d: %%%d: %w", bn.ID, ln.Instr.Result, err)
			}
			cfg.Append(bb, inst)
			regs[ln.Instr.Result] = regVal
		}
	}
	return nil
}

// buildInstr constructs one instruction and returns both the Instruction
// (for appending into its block) and the Value later operands referencing
// this register should resolve to. For every tag but MkEnv these are the
// same object; MkEnv's register instead resolves to its fresh Environment,
// since nothing downstream ever needs the MkEnv instruction's own identity.
func (b *builder) buildInstr(code ir.Code, fn *ir.Function, in *InstrNode, regs map[int]ir.Value, blocks map[int]*ir.BasicBlock) (ir.Instruction, ir.Value, error) {
	if needsType[in.Op] && in.Type == "" {
		return nil, nil, fmt.Errorf("%s requires a [type] annotation", in.Op)
	}

	id := code.NextInstrID()
	args := in.Args

	switch in.Op {
	case "ldconst":
		t, err := parseType(in.Type)
		if err != nil {
			return nil, nil, err
		}
		if len(args) < 1 || args[0].Num == nil {
			return nil, nil, fmt.Errorf("ldconst needs a pool index")
		}
		c := ir.Const{PoolIndex: *args[0].Num}
		if len(args) > 1 {
			s, err := strArg(args[1])
			if err != nil {
				return nil, nil, err
			}
			c.Preview = s
		}
		inst := ir.NewLdConst(id, t, c)
		return inst, inst, nil

	case "ldvar", "ldfun":
		t, err := parseType(in.Type)
		if err != nil {
			return nil, nil, err
		}
		if len(args) != 2 {
			return nil, nil, fmt.Errorf("%s needs (env, \"name\")", in.Op)
		}
		env, err := b.resolveValue(args[0], code, regs)
		if err != nil {
			return nil, nil, err
		}
		name, err := strArg(args[1])
		if err != nil {
			return nil, nil, err
		}
		var inst ir.Instruction
		if in.Op == "ldvar" {
			inst = ir.NewLdVar(id, t, env, name)
		} else {
			inst = ir.NewLdFun(id, t, env, name)
		}
		return inst, inst, nil

	case "ldarg":
		t, err := parseType(in.Type)
		if err != nil {
			return nil, nil, err
		}
		if len(args) != 2 || args[1].Num == nil {
			return nil, nil, fmt.Errorf("ldarg needs (env, index)")
		}
		env, err := b.resolveValue(args[0], code, regs)
		if err != nil {
			return nil, nil, err
		}
		inst := ir.NewLdArg(id, t, env, *args[1].Num)
		return inst, inst, nil

	case "stvar":
		if len(args) != 3 {
			return nil, nil, fmt.Errorf("stvar needs (env, \"name\", value)")
		}
		env, err := b.resolveValue(args[0], code, regs)
		if err != nil {
			return nil, nil, err
		}
		name, err := strArg(args[1])
		if err != nil {
			return nil, nil, err
		}
		val, err := b.resolveValue(args[2], code, regs)
		if err != nil {
			return nil, nil, err
		}
		inst := ir.NewStVar(id, env, name, val)
		return inst, inst, nil

	case "mkenv":
		if len(args) < 1 {
			return nil, nil, fmt.Errorf("mkenv needs a parent operand")
		}
		parent, err := b.resolveEnvOrNone(args[0], code, regs)
		if err != nil {
			return nil, nil, err
		}
		var names []string
		var vals []ir.Value
		for _, a := range args[1:] {
			if a.NameVal == nil {
				return nil, nil, fmt.Errorf("mkenv bindings must be name=value")
			}
			v, err := b.resolveValue(a.NameVal.Val, code, regs)
			if err != nil {
				return nil, nil, err
			}
			names = append(names, a.NameVal.Name)
			vals = append(vals, v)
		}
		var parentEnv *ir.Environment
		if parent != nil {
			e, ok := parent.(*ir.Environment)
			if !ok {
				return nil, nil, fmt.Errorf("mkenv parent must be an environment")
			}
			parentEnv = e
		}
		fresh := b.m.NewEnvironment(parentEnv)
		var parentVal ir.Value
		if parentEnv != nil {
			parentVal = parentEnv
		}
		inst := ir.NewMkEnv(id, parentVal, names, vals, fresh)
		return inst, fresh, nil

	case "mkarg":
		if len(args) != 3 {
			return nil, nil, fmt.Errorf("mkarg needs (strict-or-missing, prom#N, env)")
		}
		var strict ir.Value
		if !args[0].Missing {
			v, err := b.resolveValue(args[0], code, regs)
			if err != nil {
				return nil, nil, err
			}
			strict = v
		}
		if args[1].Prom == nil {
			return nil, nil, fmt.Errorf("mkarg's second operand must be prom#N")
		}
		idx := *args[1].Prom
		if idx < 0 || idx >= len(fn.Promises) {
			return nil, nil, fmt.Errorf("mkarg: no promise #%d on %s", idx, fn.Name())
		}
		env, err := b.resolveValue(args[2], code, regs)
		if err != nil {
			return nil, nil, err
		}
		inst := ir.NewMkArg(id, strict, fn.Promises[idx], env)
		return inst, inst, nil

	case "mkcls":
		if len(args) != 2 || args[1].Name == nil {
			return nil, nil, fmt.Errorf("mkcls needs (env, calleeName)")
		}
		env, err := b.resolveValue(args[0], code, regs)
		if err != nil {
			return nil, nil, err
		}
		callee, ok := b.fns[*args[1].Name]
		if !ok {
			return nil, nil, fmt.Errorf("mkcls: unknown function %q", *args[1].Name)
		}
		inst := ir.NewMkCls(id, env, callee)
		return inst, inst, nil

	case "mkclsfun":
		if len(args) != 4 || args[3].Name == nil {
			return nil, nil, fmt.Errorf("mkclsfun needs (env, code, formals, calleeName)")
		}
		env, err := b.resolveValue(args[0], code, regs)
		if err != nil {
			return nil, nil, err
		}
		codeVal, err := b.resolveValue(args[1], code, regs)
		if err != nil {
			return nil, nil, err
		}
		formals, err := b.resolveValue(args[2], code, regs)
		if err != nil {
			return nil, nil, err
		}
		callee, ok := b.fns[*args[3].Name]
		if !ok {
			return nil, nil, fmt.Errorf("mkclsfun: unknown function %q", *args[3].Name)
		}
		inst := ir.NewMkClsFun(id, env, codeVal, formals, callee)
		return inst, inst, nil

	case "force":
		t, err := parseType(in.Type)
		if err != nil {
			return nil, nil, err
		}
		if len(args) != 1 {
			return nil, nil, fmt.Errorf("force needs (value)")
		}
		v, err := b.resolveValue(args[0], code, regs)
		if err != nil {
			return nil, nil, err
		}
		inst := ir.NewForce(id, t, v)
		return inst, inst, nil

	case "call":
		t, err := parseType(in.Type)
		if err != nil {
			return nil, nil, err
		}
		if len(args) < 1 {
			return nil, nil, fmt.Errorf("call needs at least a callee")
		}
		callee, err := b.resolveValue(args[0], code, regs)
		if err != nil {
			return nil, nil, err
		}
		rest, err := b.resolveValues(args[1:], code, regs)
		if err != nil {
			return nil, nil, err
		}
		inst := ir.NewCall(id, t, callee, rest)
		return inst, inst, nil

	case "callbuiltin":
		t, err := parseType(in.Type)
		if err != nil {
			return nil, nil, err
		}
		if len(args) < 1 {
			return nil, nil, fmt.Errorf("callbuiltin needs a builtin name")
		}
		name, err := strArg(args[0])
		if err != nil {
			return nil, nil, err
		}
		rest, err := b.resolveValues(args[1:], code, regs)
		if err != nil {
			return nil, nil, err
		}
		inst := ir.NewCallBuiltin(id, t, name, rest)
		return inst, inst, nil

	case "branch":
		if len(args) != 3 || args[1].BB == nil || args[2].BB == nil {
			return nil, nil, fmt.Errorf("branch needs (cond, BB then, BB else)")
		}
		cond, err := b.resolveValue(args[0], code, regs)
		if err != nil {
			return nil, nil, err
		}
		thenBB, err := lookupBlock(blocks, *args[1].BB)
		if err != nil {
			return nil, nil, fmt.Errorf("branch: %w", err)
		}
		elseBB, err := lookupBlock(blocks, *args[2].BB)
		if err != nil {
			return nil, nil, fmt.Errorf("branch: %w", err)
		}
		inst := ir.NewBranch(id, cond, thenBB, elseBB)
		return inst, inst, nil

	case "return":
		if len(args) != 1 {
			return nil, nil, fmt.Errorf("return needs exactly one operand")
		}
		v, err := b.resolveValue(args[0], code, regs)
		if err != nil {
			return nil, nil, err
		}
		inst := ir.NewReturn(id, v)
		return inst, inst, nil

	case "phi":
		t, err := parseType(in.Type)
		if err != nil {
			return nil, nil, err
		}
		inst := ir.NewPhi(id, t)
		for _, a := range args {
			if a.Phi == nil {
				return nil, nil, fmt.Errorf("phi operands must be BB<N>=<value>")
			}
			pred, err := lookupBlock(blocks, a.Phi.Pred)
			if err != nil {
				return nil, nil, fmt.Errorf("phi: %w", err)
			}
			v, err := b.resolveValue(a.Phi.Val, code, regs)
			if err != nil {
				return nil, nil, err
			}
			inst.SetInput(pred, v)
		}
		return inst, inst, nil

	case "chkmissing", "chkclosure":
		t, err := parseType(in.Type)
		if err != nil {
			return nil, nil, err
		}
		if len(args) != 1 {
			return nil, nil, fmt.Errorf("%s needs (value)", in.Op)
		}
		v, err := b.resolveValue(args[0], code, regs)
		if err != nil {
			return nil, nil, err
		}
		var inst ir.Instruction
		if in.Op == "chkmissing" {
			inst = ir.NewChkMissing(id, t, v)
		} else {
			inst = ir.NewChkClosure(id, t, v)
		}
		return inst, inst, nil

	case "aslogical", "astest":
		if len(args) != 1 {
			return nil, nil, fmt.Errorf("%s needs (value)", in.Op)
		}
		v, err := b.resolveValue(args[0], code, regs)
		if err != nil {
			return nil, nil, err
		}
		var inst ir.Instruction
		if in.Op == "aslogical" {
			inst = ir.NewAsLogical(id, v)
		} else {
			inst = ir.NewAsTest(id, v)
		}
		return inst, inst, nil

	case "binop", "cmpop":
		if len(args) != 3 || args[0].Sym == nil {
			return nil, nil, fmt.Errorf("%s needs (op, left, right)", in.Op)
		}
		left, err := b.resolveValue(args[1], code, regs)
		if err != nil {
			return nil, nil, err
		}
		right, err := b.resolveValue(args[2], code, regs)
		if err != nil {
			return nil, nil, err
		}
		if in.Op == "cmpop" {
			inst := ir.NewCmpOp(id, ir.CmpOpKind(*args[0].Sym), left, right)
			return inst, inst, nil
		}
		t, err := parseType(in.Type)
		if err != nil {
			return nil, nil, err
		}
		inst := ir.NewBinOp(id, t, ir.BinOpKind(*args[0].Sym), left, right)
		return inst, inst, nil

	default:
		return nil, nil, fmt.Errorf("unknown instruction %q", in.Op)
	}
}

// resolveValue resolves one Arg to the Value it denotes: the Nil/Missing
// singletons, a register's previously bound value, or a named environment
// ("local"/"none"/"unknown").
func (b *builder) resolveValue(a *Arg, code ir.Code, regs map[int]ir.Value) (ir.Value, error) {
	switch {
	case a.Nil:
		return ir.Nil, nil
	case a.Missing:
		return ir.Missing, nil
	case a.Reg != nil:
		v, ok := regs[*a.Reg]
		if !ok {
			return nil, fmt.Errorf("register %%%d used before definition", *a.Reg)
		}
		return v, nil
	case a.Name != nil:
		return b.resolveEnvKeyword(*a.Name, code)
	default:
		return nil, fmt.Errorf("expected a value operand, got %s", describeArg(a))
	}
}

// resolveEnvOrNone is resolveValue specialized for MkEnv's parent operand,
// where the keyword "none" denotes an explicit nil parent rather than an
// error.
func (b *builder) resolveEnvOrNone(a *Arg, code ir.Code, regs map[int]ir.Value) (ir.Value, error) {
	if a.Name != nil && *a.Name == "none" {
		return nil, nil
	}
	return b.resolveValue(a, code, regs)
}

func (b *builder) resolveEnvKeyword(name string, code ir.Code) (ir.Value, error) {
	switch name {
	case "local":
		return code.LocalScope(), nil
	case "unknown":
		return ir.UnknownParent, nil
	case "none":
		return nil, fmt.Errorf("\"none\" is only valid as mkenv's parent operand")
	default:
		return nil, fmt.Errorf("unknown environment reference %q", name)
	}
}

func (b *builder) resolveValues(args []*Arg, code ir.Code, regs map[int]ir.Value) ([]ir.Value, error) {
	out := make([]ir.Value, len(args))
	for i, a := range args {
		v, err := b.resolveValue(a, code, regs)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func strArg(a *Arg) (string, error) {
	if a.Str == nil {
		return "", fmt.Errorf("expected a string literal, got %s", describeArg(a))
	}
	s, err := strconv.Unquote(*a.Str)
	if err != nil {
		return "", fmt.Errorf("malformed string literal %s: %w", *a.Str, err)
	}
	return s, nil
}

func describeArg(a *Arg) string {
	switch {
	case a.Phi != nil:
		return "a phi pair"
	case a.NameVal != nil:
		return "a name=value pair"
	case a.Prom != nil:
		return fmt.Sprintf("prom#%d", *a.Prom)
	case a.BB != nil:
		return *a.BB
	case a.Str != nil:
		return *a.Str
	case a.Sym != nil:
		return *a.Sym
	case a.Reg != nil:
		return fmt.Sprintf("%%%d", *a.Reg)
	case a.Num != nil:
		return fmt.Sprintf("%d", *a.Num)
	case a.Name != nil:
		return *a.Name
	default:
		return "<empty>"
	}
}
