package pdb

import (
	"github.com/cil-project/cilc/pkg/ast"
	"github.com/cil-project/cilc/pkg/bitmap"
	"github.com/cil-project/cilc/pkg/payload"
)

// attrMembers accumulates, per typeattribute/roleattribute datum, the
// bitmap of dense values its typeattributeset/roleattributeset expressions
// resolve to: a union of every non-negated operand's value, with every
// negated operand's value cleared afterward. A later typeattributeset for
// the same attribute widens its membership further (CIL allows more than
// one typeattributeset per attribute).
func (l *Lowerer) collectAttrMembers() error {
	l.attrMembers = make(map[*ast.Datum]*bitmap.Bitmap)

	return ast.Walk(l.db.Root, func(n *ast.Node, _ any) (ast.Signal, error) {
		if n.Flavor != ast.Typeattributeset && n.Flavor != ast.Roleattributeset {
			return ast.Continue, nil
		}
		data, ok := n.Data.(*payload.AttributeSet)
		if !ok || data.Attr == nil {
			return ast.Continue, nil
		}

		set, ok := l.attrMembers[data.Attr]
		if !ok {
			set = bitmap.New()
			l.attrMembers[data.Attr] = set
		}
		var negated []*ast.Datum
		for _, op := range data.Operands {
			if op.Name == nil {
				continue
			}
			if op.Negated {
				negated = append(negated, op.Name)
				continue
			}
			set.Set(int(l.valueOf(aliasTarget(op.Name))))
		}
		for _, n := range negated {
			set.Clear(int(l.valueOf(aliasTarget(n))))
		}
		return ast.Continue, nil
	}, nil, nil, nil)
}
