package resolver

import (
	"github.com/cil-project/cilc/pkg/ast"
	"github.com/cil-project/cilc/pkg/symtab"
)

// declare walks the freshly parsed tree once, before any of the eleven
// numbered passes run, allocating a Datum and a symtab entry for every
// declarative node and a nested Scope for every Block/Macro. This mirrors
// the original compiler's practice of interning declarations as the tree is
// built rather than as a distinct numbered pass; TIF onward all assume
// every node already has its Datum and every container its Scope.
//
// declare also records, in r.scopeOf, the Scope each node should resolve
// names against -- its nearest Block/Macro/Root ancestor's scope -- so
// later passes never need to re-walk Ancestors() themselves.
func (r *Resolver) declare() error {
	r.scopeOf = map[*ast.Node]*symtab.Scope{}
	root := symtab.NewScope("", nil)
	r.db.Global = root
	r.scopeOf[r.db.Root] = root

	var walk func(n *ast.Node, scope *symtab.Scope) error
	walk = func(n *ast.Node, scope *symtab.Scope) error {
		r.scopeOf[n] = scope

		name := ""
		if n.Flavor.IsDeclarative() {
			if n.Datum != nil {
				name = n.Datum.Name
			} else {
				name = declNameOf(n)
			}
		}

		childScope := scope
		if n.Flavor == ast.Block || n.Flavor == ast.Macro {
			childScope = symtab.NewScope(name, scope)
		}

		if n.Flavor.IsDeclarative() && n.Datum == nil {
			datum := ast.NewDatum(name, n.Flavor, n)
			if isAliasFlavor(n.Flavor) {
				// An alias never owns its own PDB value; pass1 skips it and
				// pass2 copies its resolved target's value in instead.
				datum.Primary = false
			}
			if kind, ok := flavorKind(n.Flavor); ok {
				if err := scope.Insert(kind, name, datum); err != nil {
					return newErr("declare", DuplicateDeclaration, n.Line, "%q: %v", name, err)
				}
			}
		}

		for _, child := range n.Children() {
			if err := walk(child, childScope); err != nil {
				return err
			}
		}
		return nil
	}

	return walk(r.db.Root, root)
}

func isAliasFlavor(f ast.Flavor) bool {
	return f == ast.Typealias || f == ast.Sensalias || f == ast.Catalias
}

// declNameOf extracts the declared name carried in a node's Data payload.
// Nodes arriving from internal/sexpr carry it either as a plain string Data
// or through a payload's DeclName method; ast.Copy-produced clones already carry a populated Datum
// and never reach this path.
func declNameOf(n *ast.Node) string {
	if name, ok := n.Data.(string); ok {
		return name
	}
	if namer, ok := n.Data.(interface{ DeclName() string }); ok {
		return namer.DeclName()
	}
	return ""
}
