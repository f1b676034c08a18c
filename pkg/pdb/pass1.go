package pdb

import (
	"github.com/cil-project/cilc/pkg/ast"
	"github.com/cil-project/cilc/pkg/payload"
)

// pass1 walks the resolved tree once in declaration order and assigns every
// primary (non-alias) declarative datum a dense PDB value, per symtab kind,
// starting at 1. Because the walk is a single pre-order traversal of the
// whole tree rather than a per-scope enumeration, the numbering is stable
// regardless of how deeply nested a declaration's owning block is -- it
// only depends on where the declaration appears when the tree is read
// top-to-bottom, keeping numbering deterministic across runs. An optional
// left Disabled by the resolver's cascade is skipped entirely, so nothing
// it declares ever receives a value.
func (l *Lowerer) pass1() error {
	counters := map[ast.Flavor]uint32{}

	return ast.Walk(l.db.Root, func(n *ast.Node, _ any) (ast.Signal, error) {
		if n.Flavor == ast.Optional && n.Datum != nil && n.Datum.State == ast.Disabled {
			return ast.SkipSubtree, nil
		}
		if n.Flavor == ast.Macro {
			// a macro's own body is template metadata, never materialized
			// except through the clones CALL1 leaves at each call site.
			return ast.SkipSubtree, nil
		}
		if n.Flavor == ast.Block && l.db.AbstractBlocks[n.Datum] {
			// an abstract block's body is only ever materialized through
			// blockinherit; its own declarations never receive a PDB value.
			return ast.SkipSubtree, nil
		}
		if n.Datum == nil || !n.Datum.Primary || n.Datum.Value != 0 {
			return ast.Continue, nil
		}
		bucket := valueBucket(n.Flavor)
		counters[bucket]++
		n.Datum.Value = counters[bucket]
		l.values[n.Datum] = n.Datum.Value
		return ast.Continue, nil
	}, nil, nil, nil)
}

// valueBucket groups flavors that share one PDB value space: a type and a
// typeattribute are numbered from the same counter, the way
// CIL_SYM_TYPES covers both.
func valueBucket(f ast.Flavor) ast.Flavor {
	switch f {
	case ast.Typeattribute:
		return ast.Type
	case ast.Roleattribute:
		return ast.Role
	case ast.MapClass:
		return ast.Class
	case ast.MapPerm:
		return ast.Perm
	default:
		return f
	}
}

// aliasTarget returns the ultimate (non-alias) *ast.Datum a resolved alias
// points to, as set by resolver pass MISC1.
func aliasTarget(d *ast.Datum) *ast.Datum {
	switch data := d.PrimaryNode().Data.(type) {
	case *payload.Alias:
		return data.Target
	default:
		return d
	}
}
