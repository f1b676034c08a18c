package resolver

import (
	"github.com/cil-project/cilc/pkg/ast"
	"github.com/cil-project/cilc/pkg/payload"
)

// passMACRO validates every macro's formal parameter list (declare() has
// already interned the macro itself into the enclosing Blocks table): no
// parameter name may repeat, since CALL1 rewrites parameter names by a flat
// substitution map keyed by name.
func (r *Resolver) passMACRO() (bool, error) {
	return false, ast.Walk(r.db.Root, func(n *ast.Node, _ any) (ast.Signal, error) {
		if n.Flavor != ast.Macro {
			return ast.Continue, nil
		}
		data, ok := n.Data.(*payload.Macro)
		if !ok {
			return ast.Continue, nil
		}
		seen := map[string]bool{}
		for _, p := range data.Params {
			if seen[p.Name] {
				return ast.Continue, newErr(passMACRO, DuplicateDeclaration, n.Line, "macro %q: duplicate parameter %q", n.Datum.Name, p.Name)
			}
			seen[p.Name] = true
		}
		return ast.Continue, nil
	}, nil, nil, nil)
}
