package ast

import "testing"

func buildTree() *Node {
	root := NewNode(Root, 0)
	a := NewNode(Block, 1)
	b := NewNode(Block, 2)
	root.AddChild(a)
	root.AddChild(b)
	a.AddChild(NewNode(Type, 3))
	a.AddChild(NewNode(Type, 4))
	b.AddChild(NewNode(Type, 5))
	return root
}

func TestWalkVisitsEveryNodePreOrder(t *testing.T) {
	root := buildTree()
	var lines []uint32
	err := Walk(root, func(n *Node, _ any) (Signal, error) {
		lines = append(lines, n.Line)
		return Continue, nil
	}, nil, nil, nil)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	want := []uint32{0, 1, 3, 4, 2, 5}
	if len(lines) != len(want) {
		t.Fatalf("visited %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("visited %v, want %v", lines, want)
		}
	}
}

func TestWalkSkipSubtreePrunesChildren(t *testing.T) {
	root := buildTree()
	var lines []uint32
	err := Walk(root, func(n *Node, _ any) (Signal, error) {
		lines = append(lines, n.Line)
		if n.Line == 1 {
			return SkipSubtree, nil
		}
		return Continue, nil
	}, nil, nil, nil)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	want := []uint32{0, 1, 2, 5}
	if len(lines) != len(want) {
		t.Fatalf("visited %v, want %v (subtree at line 1 must be pruned)", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("visited %v, want %v", lines, want)
		}
	}
}

func TestWalkFirstLastChildHooks(t *testing.T) {
	root := buildTree()
	var firsts, lasts []uint32
	err := Walk(root, func(n *Node, _ any) (Signal, error) {
		return Continue, nil
	}, func(n *Node, _ any) (Signal, error) {
		firsts = append(firsts, n.Line)
		return Continue, nil
	}, func(n *Node, _ any) (Signal, error) {
		lasts = append(lasts, n.Line)
		return Continue, nil
	}, nil)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	wantFirst := []uint32{0, 1, 2}
	wantLast := []uint32{1, 2, 0}
	if len(firsts) != len(wantFirst) || len(lasts) != len(wantLast) {
		t.Fatalf("firsts=%v lasts=%v, want firsts=%v lasts=%v", firsts, lasts, wantFirst, wantLast)
	}
	for i := range wantFirst {
		if firsts[i] != wantFirst[i] {
			t.Fatalf("firsts=%v, want %v", firsts, wantFirst)
		}
	}
	for i := range wantLast {
		if lasts[i] != wantLast[i] {
			t.Fatalf("lasts=%v, want %v", lasts, wantLast)
		}
	}
}

func TestWalkChildrenSkipsRootItself(t *testing.T) {
	root := buildTree()
	var lines []uint32
	err := WalkChildren(root, func(n *Node, _ any) (Signal, error) {
		lines = append(lines, n.Line)
		return Continue, nil
	}, nil, nil, nil)
	if err != nil {
		t.Fatalf("WalkChildren: %v", err)
	}
	want := []uint32{1, 3, 4, 2, 5}
	if len(lines) != len(want) {
		t.Fatalf("visited %v, want %v (root itself must not be visited)", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("visited %v, want %v", lines, want)
		}
	}
}
