package resolver

import (
	"github.com/cil-project/cilc/pkg/ast"
	"github.com/cil-project/cilc/pkg/payload"
	"github.com/cil-project/cilc/pkg/symtab"
)

// passBLKIN resolves every `blockinherit` by deep-copying the named block's
// body into the inheriting site via ast.Copy, re-declaring every
// declarative node it contains into the inheriting scope. No name
// substitution happens here (block inheritance has no parameters, unlike
// macro expansion); subst is the empty map.
func (r *Resolver) passBLKIN() (bool, error) {
	var sites []*ast.Node
	err := ast.Walk(r.db.Root, func(n *ast.Node, _ any) (ast.Signal, error) {
		if n.Flavor == ast.Blockinherit {
			sites = append(sites, n)
		}
		return ast.Continue, nil
	}, nil, nil, nil)
	if err != nil {
		return false, err
	}

	for _, n := range sites {
		data, ok := n.Data.(*payload.Blockinherit)
		if !ok {
			return false, newErr(passBLKIN, ParseInputMalformed, n.Line, "blockinherit missing payload")
		}
		block, found := resolveName(r.scope(n), symtab.Blocks, data.BlockStr)
		if !found || block.Flavor != ast.Block {
			return false, newErr(passBLKIN, UnresolvedName, n.Line, "blockinherit: block %q not found", data.BlockStr)
		}
		data.Block = block

		parent := n.Parent
		parentScope := r.scope(parent)

		declare := func(name string, flavor ast.Flavor, clone *ast.Node) (*ast.Datum, error) {
			scope := parentScope
			datum := ast.NewDatum(name, flavor, clone)
			if kind, ok := flavorKind(flavor); ok {
				if err := scope.Insert(kind, name, datum); err != nil {
					return nil, newErr(passBLKIN, DuplicateDeclaration, clone.Line, "%q: %v", name, err)
				}
			}
			r.scopeOf[clone] = scope
			return datum, nil
		}

		for _, child := range block.PrimaryNode().Children() {
			clone, err := ast.Copy(child, parent, nil, declare, ast.DefaultCloneData)
			if err != nil {
				return false, newErr(passBLKIN, ParseInputMalformed, n.Line, "%v", err)
			}
			reparentScope(r, clone, parentScope)
		}
		r.scopeOf[parent] = parentScope
		n.Parent.RemoveChild(n)
	}

	return false, nil
}
