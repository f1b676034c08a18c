package resolver

import (
	"github.com/cil-project/cilc/pkg/ast"
	"github.com/cil-project/cilc/pkg/payload"
	"github.com/cil-project/cilc/pkg/symtab"
)

// passBLKABS resolves every `blockabstract NAME` statement against the
// Blocks symbol table -- exactly like blockinherit's own name resolution,
// not whichever block happens to lexically contain the statement -- and
// marks the named block abstract in r.db.AbstractBlocks: its body is only
// ever materialized through blockinherit, and the statement itself is
// dropped once resolved (an abstract marker carries no runtime meaning of
// its own).
func (r *Resolver) passBLKABS() (bool, error) {
	r.db.AbstractBlocks = map[*ast.Datum]bool{}

	var marks []*ast.Node
	err := ast.Walk(r.db.Root, func(n *ast.Node, _ any) (ast.Signal, error) {
		if n.Flavor == ast.Blockabstract {
			marks = append(marks, n)
		}
		return ast.Continue, nil
	}, nil, nil, nil)
	if err != nil {
		return false, err
	}

	for _, n := range marks {
		data, ok := n.Data.(*payload.Blockabstract)
		if !ok {
			return false, newErr(passBLKABS, ParseInputMalformed, n.Line, "blockabstract missing payload")
		}
		block, found := resolveName(r.scope(n), symtab.Blocks, data.BlockStr)
		if !found || block.Flavor != ast.Block {
			return false, newErr(passBLKABS, UnresolvedName, n.Line, "blockabstract: block %q not found", data.BlockStr)
		}
		data.Block = block
		r.db.AbstractBlocks[block] = true
		n.Parent.RemoveChild(n)
	}

	return false, nil
}
