package ast

// Node is a single tree element: a tagged union of flavor + payload, with
// the family of links needed for both downward traversal (the child list)
// and recursive-descent-style siblings. It mirrors the shape of the
// original compiler's cil_tree_node (parent / cl_head / cl_tail / next),
// kept here as plain exported fields since Go has no need for the original's
// void* payload cast.
type Node struct {
	Flavor Flavor
	Line   uint32

	Parent   *Node
	ChildHead *Node
	ChildTail *Node
	Next     *Node

	// Data carries the flavor-specific payload. It is one of the structs
	// declared in package payload (e.g. *payload.Avrule), a bare string
	// name for simple declarations such as type or class, or nil for purely
	// structural nodes.
	Data any

	// Datum is non-nil only for nodes whose Flavor.IsDeclarative() is true;
	// it is the identity record shared across every AST site that refers to
	// this name (see Datum).
	Datum *Datum
}

// NewNode allocates a bare node of the given flavor at the given source line.
func NewNode(flavor Flavor, line uint32) *Node {
	return &Node{Flavor: flavor, Line: line}
}

// AddChild appends child to the end of n's child list and sets its parent.
func (n *Node) AddChild(child *Node) {
	child.Parent = n
	child.Next = nil
	if n.ChildTail == nil {
		n.ChildHead, n.ChildTail = child, child
		return
	}
	n.ChildTail.Next = child
	n.ChildTail = child
}

// Children returns the node's children as a slice, in declaration order.
func (n *Node) Children() []*Node {
	var out []*Node
	for c := n.ChildHead; c != nil; c = c.Next {
		out = append(out, c)
	}
	return out
}

// RemoveChild unlinks child from n's child list. It is a no-op if child is
// not currently one of n's children.
func (n *Node) RemoveChild(child *Node) {
	if n.ChildHead == child {
		n.ChildHead = child.Next
		if n.ChildTail == child {
			n.ChildTail = nil
		}
		child.Next, child.Parent = nil, nil
		return
	}
	for c := n.ChildHead; c != nil; c = c.Next {
		if c.Next == child {
			c.Next = child.Next
			if n.ChildTail == child {
				n.ChildTail = c
			}
			child.Next, child.Parent = nil, nil
			return
		}
	}
}

// ReplaceWithChildren splices n's own children into n's parent in place of
// n itself, preserving order. Used by the IN pass (splicing an `in` block's
// body into the target block) and by TIF (splicing the selected tunableif
// branch into its parent).
func (n *Node) ReplaceWithChildren() {
	parent := n.Parent
	if parent == nil {
		return
	}

	children := n.Children()
	for _, c := range children {
		c.Parent = parent
	}

	if parent.ChildHead == n {
		if len(children) == 0 {
			parent.ChildHead = n.Next
		} else {
			parent.ChildHead = children[0]
			children[len(children)-1].Next = n.Next
		}
	} else {
		var prev *Node
		for c := parent.ChildHead; c != nil; c = c.Next {
			if c.Next == n {
				prev = c
				break
			}
		}
		if prev != nil {
			if len(children) == 0 {
				prev.Next = n.Next
			} else {
				prev.Next = children[0]
				children[len(children)-1].Next = n.Next
			}
		}
	}

	if parent.ChildTail == n {
		if len(children) == 0 {
			parent.ChildTail = prevSibling(parent, n)
		} else {
			parent.ChildTail = children[len(children)-1]
		}
	}

	n.Parent, n.Next, n.ChildHead, n.ChildTail = nil, nil, nil, nil
}

func prevSibling(parent, target *Node) *Node {
	var prev *Node
	for c := parent.ChildHead; c != nil && c != target; c = c.Next {
		prev = c
	}
	return prev
}

// Ancestors walks up the Parent chain starting at n (exclusive), outward to
// the root. Used by dotted-name resolution to walk out through enclosing
// block scopes.
func (n *Node) Ancestors() []*Node {
	var out []*Node
	for p := n.Parent; p != nil; p = p.Parent {
		out = append(out, p)
	}
	return out
}
