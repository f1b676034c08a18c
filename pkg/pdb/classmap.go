package pdb

import (
	"github.com/pkg/errors"

	"github.com/cil-project/cilc/pkg/ast"
	"github.com/cil-project/cilc/pkg/payload"
)

// collectClassmaps indexes every resolved classmapping declaration by its
// (map-class, map-perm) pair, so an avrule naming a map-class and a set of
// map-perms can be expanded into the concrete (class, perms) entries the
// avtab actually stores (classmap expansion).
func (l *Lowerer) collectClassmaps() error {
	l.classmaps = make(map[classmapKey]*payload.Classmapping)

	return ast.Walk(l.db.Root, func(n *ast.Node, _ any) (ast.Signal, error) {
		if n.Flavor != ast.Classmapping {
			return ast.Continue, nil
		}
		data, ok := n.Data.(*payload.Classmapping)
		if !ok || data.MapClass == nil || data.MapPerm == nil {
			return ast.Continue, nil
		}
		l.classmaps[classmapKey{data.MapClass, data.MapPerm}] = data
		return ast.Continue, nil
	}, nil, nil, nil)
}

// expandMapPerms turns an avrule's (map-class, map-perm...) reference into
// the concrete (class, perm-bitmap) pairs its classmapping declarations
// expand to. A map-class avrule with no matching classmapping for one of
// its perms is malformed; the caller treats that like any other unresolved
// rule reference.
type classExpansion struct {
	class *ast.Datum
	perms []*ast.Datum
}

func (l *Lowerer) expandMapPerms(class *ast.Datum, perms []*ast.Datum) ([]classExpansion, error) {
	var out []classExpansion
	for _, perm := range perms {
		mapping, ok := l.classmaps[classmapKey{class, perm}]
		if !ok {
			return nil, errors.Errorf("map-perm %q on map-class %q has no classmapping", perm.Name, class.Name)
		}
		for _, cp := range mapping.Entries {
			out = append(out, classExpansion{class: cp.Class, perms: cp.Perms})
		}
	}
	return out, nil
}
