// Package errors implements the PIR core's three-tier structured
// diagnostics, per spec.md §7:
//
//  1. Programmer errors (violated invariants) — never recovered, reported
//     by panicking with a precise message.
//  2. Verifier failures (subtype violations, cross-BB references) —
//     reported as a structured Report the driver may choose to abort on.
//  3. Capability gaps (an unsupported cast, a mismatched inline arity) —
//     fatal for the one Function being optimized; other Functions proceed.
//
// Unlike the teacher's internal/errors, which anchors every CompilerError
// on a source file:line (Kanso source has one; PIR does not), diagnostics
// here anchor on instruction id, block id, and function name.
package errors

// Error code ranges, mirroring the teacher's stable-string-code convention
// (internal/errors/codes.go) but partitioned by spec.md §7's three tiers
// instead of by analysis phase.
const (
	// E1xxx: programmer errors (tier 1). The panics raised for these
	// invariants do not carry the codes. ErrBadSuccessorArity is also put
	// in a Report by package verify, for a block whose successor count does
	// not match its terminator.
	ErrDuplicateInstruction = "E1001"
	ErrUnknownTag           = "E1002"
	ErrBadSuccessorArity    = "E1003"

	// E2xxx: verifier failures (tier 2).
	ErrTypeMismatch      = "E2001"
	ErrUnreachableSource = "E2002"
	ErrBadTerminator     = "E2003"
	ErrMisplacedPhi      = "E2004"

	// E3xxx: capability gaps (tier 3).
	ErrUnsupportedCast  = "E3001"
	ErrArityMismatch    = "E3002"
	ErrAmbiguousReturn  = "E3003"
)

// Describe returns a short human-readable description of a code, for CLI
// and log output.
func Describe(code string) string {
	switch code {
	case ErrDuplicateInstruction:
		return "an instruction id was reused within one Function"
	case ErrUnknownTag:
		return "an instruction carries a tag effectsOf does not recognize"
	case ErrBadSuccessorArity:
		return "a basic block's successor count does not match its terminator"
	case ErrTypeMismatch:
		return "an operand's producer type is not a subtype of the declared argument type"
	case ErrUnreachableSource:
		return "an instruction's argument is produced by a block unreachable from the entry"
	case ErrBadTerminator:
		return "a basic block violates the terminator-discipline invariant"
	case ErrMisplacedPhi:
		return "a Phi does not have exactly one input per predecessor block"
	case ErrUnsupportedCast:
		return "cast insertion found a type mismatch no cast rule covers"
	case ErrArityMismatch:
		return "the inliner found a callsite whose actual count does not match the callee's formal count"
	case ErrAmbiguousReturn:
		return "a callee has zero or more than one reachable return block"
	default:
		return "unknown diagnostic code"
	}
}
