// Package constraint compiles the prefix-form constrain/mlsconstrain/
// validatetrans expression tree into the flat, forward-linked node list
// the PDB stores, in an order equivalent to postfix evaluation by a stack
// of intermediate results.
package constraint

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/cil-project/cilc/pkg/bitmap"
	"github.com/cil-project/cilc/pkg/symtab"
)

// LeafKind enumerates the fixed constraint-identifier leaves.
type LeafKind int

const (
	U1 LeafKind = iota
	U2
	U3
	R1
	R2
	R3
	T1
	T2
	T3
	L1
	L2
	H1
	H2
)

// OpKind enumerates the internal nodes of the input prefix tree.
type OpKind int

const (
	Not OpKind = iota
	And
	Or
	Eq
	Neq
	Dom
	Domby
	Incomp
)

// Expr is the input prefix-form tree.
type Expr struct {
	// Op is set for internal (NOT/AND/OR/EQ/NEQ/DOM/DOMBY/INCOMP) nodes;
	// Operands holds 1 (NOT) or 2 children.
	Op       OpKind
	Operands []*Expr
	isOp     bool

	// Leaf is set for a fixed constraint-identifier leaf (u1, t2, l1, ...).
	Leaf   LeafKind
	isLeaf bool

	// NamedLeaf is set for a leaf naming a concrete user/role/type or a
	// named set of those; Kind says which symtab to resolve it against.
	NamedLeaf string
	NamedKind symtab.Kind
	isNamed   bool
}

// NewOp builds an internal prefix-tree node.
func NewOp(op OpKind, operands ...*Expr) *Expr { return &Expr{Op: op, Operands: operands, isOp: true} }

// NewLeaf builds a fixed constraint-identifier leaf.
func NewLeaf(kind LeafKind) *Expr { return &Expr{Leaf: kind, isLeaf: true} }

// NewNamedLeaf builds a leaf naming a concrete user/role/type or named set.
func NewNamedLeaf(name string, kind symtab.Kind) *Expr {
	return &Expr{NamedLeaf: name, NamedKind: kind, isNamed: true}
}

// IsLeaf reports whether e is a fixed constraint-identifier leaf (u1, t2,
// l1, ...), as opposed to a named leaf or an internal op node.
func (e *Expr) IsLeaf() bool { return e.isLeaf }

// NodeKind tags a compiled flat node.
type NodeKind int

const (
	OpNode NodeKind = iota
	AttrOpNode
	NamesNode
)

// Selector is the attribute selector derived from a leaf/leaf-pair, used by
// AttrOpNode.
type Selector string

const (
	SelUser      Selector = "user"
	SelUserTgt   Selector = "user|target"
	SelRole      Selector = "role"
	SelRoleTgt   Selector = "role|target"
	SelType      Selector = "type"
	SelTypeTgt   Selector = "type|target"
	SelL1L2      Selector = "l1l2"
	SelL1H2      Selector = "l1h2"
	SelH1L2      Selector = "h1l2"
	SelH1H2      Selector = "h1h2"
)

// Node is one element of the compiled, flat, forward-linked expression.
type Node struct {
	Kind NodeKind

	// OpNode
	Op OpKind

	// AttrOpNode
	AttrOp   OpKind
	Selector Selector

	// NamesNode
	Names *bitmap.Bitmap

	Next *Node
}

// Resolver resolves a named leaf against the symbol table kind it claims to
// belong to, producing the PDB value bitmap for it (a single name, or every
// member of a named set). Both the resolver (pass MISC3) and the lowerer
// (pass 2) implement this against their own view of assigned values.
type Resolver interface {
	ResolveNames(kind symtab.Kind, name string) (*bitmap.Bitmap, error)
}

// Compile converts the prefix-form tree e into CIL's flat constraint node
// list, walking the tree exactly as the original compiler's
// cil_evaluate_expr does: postfix-equivalent order via a simulated
// evaluation stack.
func Compile(e *Expr, resolver Resolver) (*Node, error) {
	var head, tail *Node
	emit := func(n *Node) {
		if head == nil {
			head, tail = n, n
			return
		}
		tail.Next = n
		tail = n
	}

	var walk func(e *Expr) error
	walk = func(e *Expr) error {
		if e == nil {
			return errors.New("constraint expression malformed: nil node")
		}

		switch {
		case e.isLeaf:
			// Fixed leaves (u1, t2, l1, ...) only matter as the left operand
			// of an attribute op, which reads e.Operands[0] directly; a bare
			// fixed leaf emits nothing on its own.
			return nil

		case e.isNamed:
			bm, err := resolver.ResolveNames(e.NamedKind, e.NamedLeaf)
			if err != nil {
				return errors.Wrapf(err, "resolving constraint name %q", e.NamedLeaf)
			}
			emit(&Node{Kind: NamesNode, Names: bm})
			return nil

		case e.isOp:
			switch e.Op {
			case Not:
				if len(e.Operands) != 1 {
					return errors.New("constraint expression malformed: NOT takes one operand")
				}
				if err := walk(e.Operands[0]); err != nil {
					return err
				}
				emit(&Node{Kind: OpNode, Op: Not})
				return nil

			case And, Or:
				if len(e.Operands) != 2 {
					return errors.New("constraint expression malformed: AND/OR take two operands")
				}
				if err := walk(e.Operands[0]); err != nil {
					return err
				}
				if err := walk(e.Operands[1]); err != nil {
					return err
				}
				emit(&Node{Kind: OpNode, Op: e.Op})
				return nil

			case Eq, Neq, Dom, Domby, Incomp:
				if len(e.Operands) != 2 {
					return errors.New("constraint expression malformed: attribute op takes two operands")
				}
				left := e.Operands[0]
				if !left.isLeaf {
					return errors.New("constraint expression malformed: attribute op's left operand must be a fixed leaf")
				}
				sel, err := selectorFor(left.Leaf, e.Operands[1])
				if err != nil {
					return err
				}
				if err := walk(e.Operands[1]); err != nil {
					return err
				}
				emit(&Node{Kind: AttrOpNode, AttrOp: e.Op, Selector: sel})
				return nil

			default:
				return errors.Errorf("constraint expression malformed: unrecognized op %v", e.Op)
			}

		default:
			return errors.New("constraint expression malformed: leafless, opless node")
		}
	}

	if err := walk(e); err != nil {
		return nil, err
	}
	return head, nil
}

func selectorFor(left LeafKind, right *Expr) (Selector, error) {
	switch left {
	case U1:
		if right.isLeaf && right.Leaf == U2 {
			return SelUserTgt, nil
		}
		return SelUser, nil
	case U2:
		return SelUserTgt, nil
	case U3:
		return SelUser, nil
	case R1:
		if right.isLeaf && right.Leaf == R2 {
			return SelRoleTgt, nil
		}
		return SelRole, nil
	case R2:
		return SelRoleTgt, nil
	case R3:
		return SelRole, nil
	case T1:
		if right.isLeaf && right.Leaf == T2 {
			return SelTypeTgt, nil
		}
		return SelType, nil
	case T2:
		return SelTypeTgt, nil
	case T3:
		return SelType, nil
	case L1:
		if right.isLeaf {
			switch right.Leaf {
			case L2:
				return SelL1L2, nil
			case H2:
				return SelL1H2, nil
			}
		}
		return SelL1L2, nil
	case H1:
		if right.isLeaf {
			switch right.Leaf {
			case L2:
				return SelH1L2, nil
			case H2:
				return SelH1H2, nil
			}
		}
		return SelH1H2, nil
	default:
		return "", fmt.Errorf("constraint expression malformed: unsupported left leaf %v", left)
	}
}
