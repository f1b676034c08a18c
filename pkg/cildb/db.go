// Package cildb holds the cil_db data model: the AST root, the
// per-symbol-kind global tables, the merged category/sensitivity total
// orders, and the flat sorted context arrays the resolver and lowerer both
// populate.
package cildb

import (
	"github.com/cil-project/cilc/pkg/ast"
	"github.com/cil-project/cilc/pkg/symtab"
)

// DB is the resolver's working set: one AST root plus the global lexical
// scope attached to it, and the handful of database-wide artifacts that
// don't belong to any single AST node (the merged orders, the sorted
// context arrays, the lowering back-indices).
type DB struct {
	Root   *ast.Node
	Global *symtab.Scope

	// AbstractBlocks marks every block declared abstract via blockabstract,
	// populated by the resolver's BLKABS pass. A block's own body is only
	// ever materialized through blockinherit, so the PDB-producing lowering
	// passes skip it entirely rather than numbering or emitting its rules
	// directly.
	AbstractBlocks map[*ast.Datum]bool

	// CatOrder / DominanceOrder are the merged total orders produced by the
	// category/dominance-ordering resolver pass, as ordered lists of datum
	// names.
	CatOrder      []string
	DominanceOrder []string

	// Sorted ocontext-bearing declarations:
	//   - Portcons: lexicographic by (low, high)
	//   - Nodecons, Netifcons: declaration order
	//   - Genfscons: grouped by filesystem, then by path length descending
	Portcons   []*ast.Node
	Nodecons   []*ast.Node
	Netifcons  []*ast.Node
	Genfscons  []*ast.Node
	Fsuses     []*ast.Node
	Pirqcons   []*ast.Node
	Iomemcons  []*ast.Node
	Ioportcons []*ast.Node
	Pcidevicecons []*ast.Node
	Sidcontexts []*ast.Node

	// Options carried from the call site through resolution and lowering.
	MLS              bool
	TargetPlatform   string
	DisableDontaudit bool
}

// New allocates a fresh DB rooted at root, with an empty global scope.
func New(root *ast.Node) *DB {
	return &DB{Root: root, Global: symtab.NewScope("", nil)}
}
