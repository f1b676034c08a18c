package pdb

import (
	"errors"
	"testing"

	"github.com/cil-project/cilc/pkg/bitmap"
)

func permBitmap(bits ...int) *bitmap.Bitmap {
	bm := bitmap.New()
	for _, b := range bits {
		bm.Set(b)
	}
	return bm
}

func TestAvtabMergeOnDuplicateKey(t *testing.T) {
	tab := NewAvtab(1)
	key := AvtabKey{Source: 1, Target: 2, Class: 1, Kind: Allow}
	if _, err := tab.Insert(key, permBitmap(0), 0); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := tab.Insert(key, permBitmap(1), 0); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	node := tab.Lookup(key)
	if node == nil {
		t.Fatalf("Lookup returned nil")
	}
	if node.Perms.Count() != 2 {
		t.Fatalf("merged perms count = %d, want 2", node.Perms.Count())
	}
	if len(tab.Nodes()) != 1 {
		t.Fatalf("got %d nodes, want 1 (duplicate key must merge, not add)", len(tab.Nodes()))
	}
}

func TestAvtabRejectsDuplicateInMode0(t *testing.T) {
	tab := NewAvtab(0)
	key := AvtabKey{Source: 1, Target: 2, Class: 1, Kind: Allow}
	if _, err := tab.Insert(key, permBitmap(0), 0); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	_, err := tab.Insert(key, permBitmap(1), 0)
	if !errors.Is(err, errDuplicateAvtabKey) {
		t.Fatalf("second Insert in mode 0: got %v, want errDuplicateAvtabKey", err)
	}
}

func TestAvtabNodesInsertionOrder(t *testing.T) {
	tab := NewAvtab(1)
	keys := []AvtabKey{
		{Source: 3, Target: 1, Class: 1, Kind: Allow},
		{Source: 1, Target: 1, Class: 1, Kind: Allow},
		{Source: 2, Target: 1, Class: 1, Kind: Allow},
	}
	for _, k := range keys {
		if _, err := tab.Insert(k, permBitmap(0), 0); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	nodes := tab.Nodes()
	if len(nodes) != 3 {
		t.Fatalf("got %d nodes, want 3", len(nodes))
	}
	for i, k := range keys {
		if nodes[i].Key != k {
			t.Fatalf("Nodes()[%d].Key = %+v, want %+v (insertion order)", i, nodes[i].Key, k)
		}
	}
}

func TestAvtabDistinctKindsDoNotMerge(t *testing.T) {
	tab := NewAvtab(1)
	allow := AvtabKey{Source: 1, Target: 2, Class: 1, Kind: Allow}
	audit := AvtabKey{Source: 1, Target: 2, Class: 1, Kind: AuditAllow}
	if _, err := tab.Insert(allow, permBitmap(0), 0); err != nil {
		t.Fatalf("Insert allow: %v", err)
	}
	if _, err := tab.Insert(audit, permBitmap(0), 0); err != nil {
		t.Fatalf("Insert audit: %v", err)
	}
	if len(tab.Nodes()) != 2 {
		t.Fatalf("got %d nodes, want 2 (same triple, different kind)", len(tab.Nodes()))
	}
}
