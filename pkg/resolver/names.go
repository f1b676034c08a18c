package resolver

import (
	"strings"

	"github.com/cil-project/cilc/pkg/ast"
	"github.com/cil-project/cilc/pkg/symtab"
)

// resolveName resolves path against scope, using CIL's name-resolution
// rule: a name prefixed with "." is absolute (resolved from the global
// scope down through each dotted block segment); anything else is relative
// and is looked up in scope first, then in each enclosing scope in turn
// (lexical scope walk-out), stopping at the first scope whose table of the
// requested kind contains it.
func resolveName(scope *symtab.Scope, kind symtab.Kind, path string) (*ast.Datum, bool) {
	if strings.HasPrefix(path, ".") {
		segs := strings.Split(strings.TrimPrefix(path, "."), ".")
		if len(segs) == 0 {
			return nil, false
		}
		root := scope
		for root.Parent != nil {
			root = root.Parent
		}
		return lookupDotted(root, kind, segs)
	}

	segs := strings.Split(path, ".")
	for s := scope; s != nil; s = s.Parent {
		if datum, ok := lookupDotted(s, kind, segs); ok {
			return datum, true
		}
	}
	return nil, false
}

// lookupDotted descends scope through segs[:len(segs)-1] as nested block
// names, then looks up segs[len(segs)-1] in the requested kind's table of
// the scope it lands on.
func lookupDotted(scope *symtab.Scope, kind symtab.Kind, segs []string) (*ast.Datum, bool) {
	if len(segs) == 0 {
		return nil, false
	}
	cur := scope
	for _, seg := range segs[:len(segs)-1] {
		cur = cur.Descend([]string{seg})
		if cur == nil {
			return nil, false
		}
	}
	last := segs[len(segs)-1]
	datum := cur.Lookup(kind, last)
	if datum == nil {
		return nil, false
	}
	return datum, true
}
