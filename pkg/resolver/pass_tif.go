package resolver

import (
	"github.com/cil-project/cilc/pkg/ast"
	"github.com/cil-project/cilc/pkg/payload"
)

// passTIF evaluates every tunableif's boolean expression against the
// tunables' fixed, compile-time values and splices in only the branch that
// was taken -- tunables never change at runtime, so the untaken branch is
// simply discarded and never resolved further. A missing tunable here is
// an UnresolvedName error, not an optional-disable: tunableif sits outside
// optional blocks entirely.
func (r *Resolver) passTIF() (bool, error) {
	tunables := map[string]bool{}

	err := ast.Walk(r.db.Root, func(n *ast.Node, _ any) (ast.Signal, error) {
		if n.Flavor != ast.Tunable {
			return ast.Continue, nil
		}
		if v, ok := n.Data.(*payload.BoolValue); ok {
			tunables[n.Datum.Name] = v.Value
		} else {
			tunables[n.Datum.Name] = false
		}
		return ast.Continue, nil
	}, nil, nil, nil)
	if err != nil {
		return false, err
	}

	var rewrite func(n *ast.Node) error
	rewrite = func(n *ast.Node) error {
		for _, child := range n.Children() {
			if err := rewrite(child); err != nil {
				return err
			}
		}
		if n.Flavor != ast.Tunableif {
			return nil
		}
		cond, ok := n.Data.(*payload.CondIf)
		if !ok {
			return newErr(passTIF, ParseInputMalformed, n.Line, "tunableif missing condition payload")
		}
		taken, err := evalBoolExpr(cond.ExprTokens, tunables)
		if err != nil {
			return newErr(passTIF, UnresolvedName, n.Line, "%v", err)
		}
		for _, child := range n.Children() {
			switch child.Flavor {
			case ast.Condtrue:
				if taken {
					child.ReplaceWithChildren()
				} else {
					n.RemoveChild(child)
				}
			case ast.Condfalse:
				if taken {
					n.RemoveChild(child)
				} else {
					child.ReplaceWithChildren()
				}
			}
		}
		n.ReplaceWithChildren()
		return nil
	}

	return false, rewrite(r.db.Root)
}
