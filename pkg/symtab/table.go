package symtab

import (
	"github.com/pkg/errors"

	"github.com/cil-project/cilc/pkg/ast"
)

// ErrDuplicateDecl is returned by Insert when name already has an entry.
var ErrDuplicateDecl = errors.New("duplicate declaration")

// Table is a single flat name->datum mapping. Iteration order follows
// insertion order, never Go's randomized map order, so iteration is
// deterministic across runs. (PDB lowering numbers symbols by walking the
// tree, not by iterating tables.)
type Table struct {
	byName map[string]*ast.Datum
	order  []string
}

// NewTable allocates an empty table.
func NewTable() *Table {
	return &Table{byName: make(map[string]*ast.Datum)}
}

// Insert adds datum under name. It fails with ErrDuplicateDecl if name is
// already present; the symtab borrows the datum, it never takes ownership
// (ownership belongs to the datum's primary AST node).
func (t *Table) Insert(name string, datum *ast.Datum) error {
	if _, exists := t.byName[name]; exists {
		return errors.Wrapf(ErrDuplicateDecl, "name %q", name)
	}
	t.byName[name] = datum
	t.order = append(t.order, name)
	return nil
}

// Lookup returns the datum registered under name, or nil if absent. It has
// no side effects.
func (t *Table) Lookup(name string) *ast.Datum {
	return t.byName[name]
}

// Names returns every registered name in insertion order.
func (t *Table) Names() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Datums returns every registered datum in insertion order.
func (t *Table) Datums() []*ast.Datum {
	out := make([]*ast.Datum, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.byName[name])
	}
	return out
}

// Len reports how many entries the table holds.
func (t *Table) Len() int { return len(t.order) }

// Scope is a full vector of per-Kind tables, the unit of lexical scope:
// blocks and macros each own one, and the database root owns the single
// global scope.
type Scope struct {
	tables [numKinds]*Table
	// Name is the scope's own declared name (block or macro name), used by
	// dotted-name resolution to identify nested scopes by path.
	Name string
	// Parent is the lexically enclosing scope (nil for the global/root scope).
	Parent *Scope
	// Children are nested block/macro scopes declared directly inside this one.
	Children map[string]*Scope
}

// NewScope allocates an empty scope with all kind tables initialized.
func NewScope(name string, parent *Scope) *Scope {
	s := &Scope{Name: name, Parent: parent, Children: make(map[string]*Scope)}
	for k := range s.tables {
		s.tables[k] = NewTable()
	}
	if parent != nil {
		parent.Children[name] = s
	}
	return s
}

// Table returns the Kind-specific table for this scope.
func (s *Scope) Table(kind Kind) *Table { return s.tables[kind] }

// Insert inserts datum of the given kind into this scope.
func (s *Scope) Insert(kind Kind, name string, datum *ast.Datum) error {
	return s.tables[kind].Insert(name, datum)
}

// Lookup looks up name in this scope only (no lexical walk-out); callers
// that need the full lexical-scope name-resolution rule use
// pkg/resolver's resolveName instead.
func (s *Scope) Lookup(kind Kind, name string) *ast.Datum {
	return s.tables[kind].Lookup(name)
}

// Descend resolves a dotted path's block-name prefix starting from s,
// walking into nested scopes named by each successive token. It returns the
// final scope reached, or nil if any hop is missing.
func (s *Scope) Descend(path []string) *Scope {
	cur := s
	for _, tok := range path {
		if cur == nil {
			return nil
		}
		cur = cur.Children[tok]
	}
	return cur
}
