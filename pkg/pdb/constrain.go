package pdb

import (
	"github.com/pkg/errors"

	"github.com/cil-project/cilc/pkg/ast"
	"github.com/cil-project/cilc/pkg/bitmap"
	"github.com/cil-project/cilc/pkg/constraint"
	"github.com/cil-project/cilc/pkg/payload"
	"github.com/cil-project/cilc/pkg/symtab"
)

var fixedLeaves = map[string]constraint.LeafKind{
	"u1": constraint.U1, "u2": constraint.U2, "u3": constraint.U3,
	"r1": constraint.R1, "r2": constraint.R2, "r3": constraint.R3,
	"t1": constraint.T1, "t2": constraint.T2, "t3": constraint.T3,
	"l1": constraint.L1, "l2": constraint.L2, "h1": constraint.H1, "h2": constraint.H2,
}

var leafKind = map[constraint.LeafKind]symtab.Kind{
	constraint.U1: symtab.Users, constraint.U2: symtab.Users, constraint.U3: symtab.Users,
	constraint.R1: symtab.Roles, constraint.R2: symtab.Roles, constraint.R3: symtab.Roles,
	constraint.T1: symtab.Types, constraint.T2: symtab.Types, constraint.T3: symtab.Types,
}

// parseConstraintExpr parses a flat prefix-notation token list (as stored
// in payload.Constrain.ExprStrs) into the constraint package's recursive
// Expr tree.
func parseConstraintExpr(tokens []string) (*constraint.Expr, error) {
	pos := 0
	expr, err := parseConstraintNode(tokens, &pos, symtab.Kind(-1))
	if err != nil {
		return nil, err
	}
	if pos != len(tokens) {
		return nil, errors.Errorf("constraint expression: %d trailing tokens", len(tokens)-pos)
	}
	return expr, nil
}

// parseConstraintNode consumes one node starting at *pos. kindHint carries
// the named-set symtab kind inferred from a sibling fixed leaf, used only
// when this node turns out to be a named (non-fixed) leaf.
func parseConstraintNode(tokens []string, pos *int, kindHint symtab.Kind) (*constraint.Expr, error) {
	if *pos >= len(tokens) {
		return nil, errors.New("constraint expression: unexpected end of tokens")
	}
	tok := tokens[*pos]
	*pos++

	switch tok {
	case "not":
		operand, err := parseConstraintNode(tokens, pos, kindHint)
		if err != nil {
			return nil, err
		}
		return constraint.NewOp(constraint.Not, operand), nil

	case "and", "or":
		op := constraint.And
		if tok == "or" {
			op = constraint.Or
		}
		left, err := parseConstraintNode(tokens, pos, kindHint)
		if err != nil {
			return nil, err
		}
		right, err := parseConstraintNode(tokens, pos, kindHint)
		if err != nil {
			return nil, err
		}
		return constraint.NewOp(op, left, right), nil

	case "eq", "neq", "dom", "domby", "incomp":
		opKinds := map[string]constraint.OpKind{
			"eq": constraint.Eq, "neq": constraint.Neq, "dom": constraint.Dom,
			"domby": constraint.Domby, "incomp": constraint.Incomp,
		}
		left, err := parseConstraintNode(tokens, pos, symtab.Kind(-1))
		if err != nil {
			return nil, err
		}
		if !left.IsLeaf() {
			return nil, errors.Errorf("constraint expression: %q's left operand must be a fixed leaf", tok)
		}
		rightKind, ok := leafKind[left.Leaf]
		if !ok {
			return nil, errors.Errorf("constraint expression: %q has no named-set kind", tok)
		}
		right, err := parseConstraintNode(tokens, pos, rightKind)
		if err != nil {
			return nil, err
		}
		return constraint.NewOp(opKinds[tok], left, right), nil

	default:
		if leaf, ok := fixedLeaves[tok]; ok {
			return constraint.NewLeaf(leaf), nil
		}
		if kindHint < 0 {
			return nil, errors.Errorf("constraint expression: %q used outside any attribute op", tok)
		}
		return constraint.NewNamedLeaf(tok, kindHint), nil
	}
}

// ResolveNames implements constraint.Resolver, looking a named constraint
// operand up in the global scope and returning a bitmap of the dense
// values it names -- a single value for an ordinary declaration, or every
// member's value for a typeattribute/roleattribute.
func (l *Lowerer) ResolveNames(kind symtab.Kind, name string) (*bitmap.Bitmap, error) {
	datum := l.db.Global.Lookup(kind, name)
	if datum == nil {
		return nil, errors.Errorf("constraint: %q not found", name)
	}
	if members, ok := l.attrMembers[datum]; ok {
		return members, nil
	}
	bm := bitmap.New()
	bm.Set(int(l.valueOf(aliasTarget(datum))))
	return bm, nil
}

// compileConstraint compiles one constrain/mlsconstrain/validatetrans
// declaration's expression and registers it against every class it names.
func (l *Lowerer) compileConstraint(n *ast.Node, kind ConstraintKind) error {
	data, ok := n.Data.(*payload.Constrain)
	if !ok {
		return errors.Errorf("constraint node at line %d missing payload", n.Line)
	}
	tree, err := parseConstraintExpr(data.ExprStrs)
	if err != nil {
		return errors.Wrapf(err, "line %d", n.Line)
	}
	compiled, err := constraint.Compile(tree, l)
	if err != nil {
		return errors.Wrapf(err, "line %d", n.Line)
	}
	for _, class := range data.Classes {
		classValue := l.valueOf(aliasTarget(class))
		entry := &ConstraintEntry{Kind: kind, Expr: compiled}
		l.pdb.Constraints[classValue] = append(l.pdb.Constraints[classValue], entry)
	}
	return nil
}
