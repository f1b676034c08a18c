package symtab

import (
	"reflect"
	"testing"

	"github.com/cil-project/cilc/pkg/ast"
)

func newTestDatum(name string) *ast.Datum {
	return ast.NewDatum(name, ast.Type, ast.NewNode(ast.Type, 1))
}

func TestTableInsertLookup(t *testing.T) {
	tbl := NewTable()
	d := newTestDatum("domain_t")
	if err := tbl.Insert("domain_t", d); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if got := tbl.Lookup("domain_t"); got != d {
		t.Fatalf("Lookup returned %v, want %v", got, d)
	}
	if got := tbl.Lookup("missing"); got != nil {
		t.Fatalf("Lookup of missing name = %v, want nil", got)
	}
}

func TestTableInsertDuplicate(t *testing.T) {
	tbl := NewTable()
	d1 := newTestDatum("domain_t")
	d2 := newTestDatum("domain_t")
	if err := tbl.Insert("domain_t", d1); err != nil {
		t.Fatalf("first Insert: %v", err)
	}
	if err := tbl.Insert("domain_t", d2); err == nil {
		t.Fatalf("expected duplicate insert to fail")
	}
}

func TestTableOrdering(t *testing.T) {
	tbl := NewTable()
	names := []string{"c_t", "a_t", "b_t"}
	for _, n := range names {
		if err := tbl.Insert(n, newTestDatum(n)); err != nil {
			t.Fatalf("Insert(%q): %v", n, err)
		}
	}
	if got := tbl.Names(); !reflect.DeepEqual(got, names) {
		t.Fatalf("Names() = %v, want insertion order %v", got, names)
	}
	if got := tbl.Len(); got != len(names) {
		t.Fatalf("Len() = %d, want %d", got, len(names))
	}
}

func TestScopeInsertLookupByKind(t *testing.T) {
	s := NewScope("", nil)
	typeDatum := newTestDatum("domain_t")
	if err := s.Insert(Types, "domain_t", typeDatum); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if got := s.Lookup(Types, "domain_t"); got != typeDatum {
		t.Fatalf("Lookup(Types) = %v, want %v", got, typeDatum)
	}
	if got := s.Lookup(Roles, "domain_t"); got != nil {
		t.Fatalf("Lookup(Roles) should not see a Types-kind insert, got %v", got)
	}
}

func TestScopeDescend(t *testing.T) {
	root := NewScope("", nil)
	block1 := NewScope("block1", root)
	nested := NewScope("nested", block1)

	if got := root.Descend([]string{"block1"}); got != block1 {
		t.Fatalf("Descend([block1]) = %v, want %v", got, block1)
	}
	if got := root.Descend([]string{"block1", "nested"}); got != nested {
		t.Fatalf("Descend([block1 nested]) = %v, want %v", got, nested)
	}
	if got := root.Descend([]string{"missing"}); got != nil {
		t.Fatalf("Descend([missing]) = %v, want nil", got)
	}
}
