package pirasm

import (
	"fmt"
	"strings"

	"github.com/blorente/rir/internal/types"
)

var namedTypes = map[string]types.PirType{
	"bottom":       types.Bottom,
	"val":          types.Val,
	"valormissing": types.ValOrMissing,
	"valorlazy":    types.ValOrLazy,
	"any":          types.Any,
	"missing":      types.Missing,
	"list":         types.List,
	"voyd":         types.Voyd,
	"test":         types.Test,
}

var rKindByName = map[string]types.RKind{
	"nil":         types.KindNil,
	"symbol":      types.KindSymbol,
	"logical":     types.KindLogical,
	"closure":     types.KindClosure,
	"integer":     types.KindInteger,
	"promise":     types.KindPromise,
	"paircell":    types.KindPairCell,
	"code":        types.KindCode,
	"environment": types.KindEnvironment,
}

// parseType decodes a bracketed TypeLit token's contents (brackets already
// present, e.g. "[integer^lazy]") into a PirType. Named lattice constants
// (val, any, missing, ...) are spelled bare; otherwise it is a "|"-joined
// list of R-kind names with optional "^lazy"/"^miss" suffixes, e.g.
// "nil|symbol^lazy^miss" — the same vocabulary types.PirType.String() prints,
// minus the hyphen in "pair-cell" (spelled "paircell" here: an identifier
// lexer token cannot contain "-").
func parseType(lit string) (types.PirType, error) {
	body := strings.TrimSuffix(strings.TrimPrefix(lit, "["), "]")
	body = strings.TrimSpace(body)
	if body == "" {
		return types.Bottom, fmt.Errorf("pirasm: empty type literal")
	}

	parts := strings.Split(body, "^")
	base, flags := parts[0], parts[1:]

	if t, ok := namedTypes[base]; ok {
		if len(flags) != 0 {
			return types.Bottom, fmt.Errorf("pirasm: named type %q does not take ^ flags", base)
		}
		return t, nil
	}

	var kinds types.RKind
	for _, name := range strings.Split(base, "|") {
		k, ok := rKindByName[name]
		if !ok {
			return types.Bottom, fmt.Errorf("pirasm: unknown type component %q in %q", name, lit)
		}
		kinds |= k
	}

	var lazy, miss bool
	for _, f := range flags {
		switch f {
		case "lazy":
			lazy = true
		case "miss":
			miss = true
		default:
			return types.Bottom, fmt.Errorf("pirasm: unknown type flag %q in %q", f, lit)
		}
	}
	return types.New(kinds, lazy, miss), nil
}
