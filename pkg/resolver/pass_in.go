package resolver

import (
	"github.com/cil-project/cilc/pkg/ast"
	"github.com/cil-project/cilc/pkg/payload"
	"github.com/cil-project/cilc/pkg/symtab"
)

// passIN resolves every `in` statement: its body is spliced into the named
// target block, as if it had been written there directly. The target is
// looked up at global scope only -- `in` always names a top-level block by
// its fully-qualified path, never a sibling reached by lexical walk-out.
func (r *Resolver) passIN() (bool, error) {
	var ins []*ast.Node
	err := ast.Walk(r.db.Root, func(n *ast.Node, _ any) (ast.Signal, error) {
		if n.Flavor == ast.In {
			ins = append(ins, n)
		}
		return ast.Continue, nil
	}, nil, nil, nil)
	if err != nil {
		return false, err
	}

	for _, n := range ins {
		data, ok := n.Data.(*payload.In)
		if !ok {
			return false, newErr(passIN, ParseInputMalformed, n.Line, "in statement missing target payload")
		}
		target, found := resolveName(r.db.Global, symtab.Blocks, data.TargetStr)
		if !found || target.Flavor != ast.Block {
			return false, newErr(passIN, UnresolvedName, n.Line, "in: block %q not found", data.TargetStr)
		}
		data.Target = target

		targetNode := target.PrimaryNode()
		targetScope := r.scope(targetNode)
		for _, child := range n.Children() {
			n.RemoveChild(child)
			targetNode.AddChild(child)
			reparentScope(r, child, targetScope)
		}
		n.ReplaceWithChildren()
	}

	return false, nil
}

// reparentScope updates r.scopeOf for a subtree moved or cloned to live
// under a new lexical scope (used by IN, which relocates whole subtrees
// after declare() has already run, and by BLKIN and CALL1 for the subtrees
// they clone). A nested Block/Macro keeps its own
// already-established child scope for its descendants; only the node's own
// entry moves.
func reparentScope(r *Resolver, n *ast.Node, scope *symtab.Scope) {
	r.scopeOf[n] = scope
	if n.Flavor == ast.Block || n.Flavor == ast.Macro {
		return
	}
	for _, c := range n.Children() {
		reparentScope(r, c, scope)
	}
}
