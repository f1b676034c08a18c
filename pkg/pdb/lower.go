package pdb

import (
	"github.com/pkg/errors"

	"github.com/cil-project/cilc/internal/ambient"
	"github.com/cil-project/cilc/pkg/ast"
	"github.com/cil-project/cilc/pkg/bitmap"
	"github.com/cil-project/cilc/pkg/cildb"
	"github.com/cil-project/cilc/pkg/payload"
)

// Lowerer drives the three PDB lowering passes over a resolved cildb.DB.
type Lowerer struct {
	db  *cildb.DB
	log *ambient.Logger
	pdb *PDB

	values      map[*ast.Datum]uint32
	attrMembers map[*ast.Datum]*bitmap.Bitmap
	classmaps   map[classmapKey]*payload.Classmapping

	// pendingAvrules holds every regular (non-neverallow) avrule lowered
	// during pass2, queued rather than inserted immediately so pass3 can
	// check each one against the complete neverallow index -- pass2 alone
	// cannot guarantee every neverallow has been registered yet when it
	// reaches a given allow in source order.
	pendingAvrules []pendingAvrule
}

// classmapKey identifies one (map-class, map-perm) pair, the key a
// classmapping declaration binds a concrete (class, perms) expansion to.
type classmapKey struct {
	class, perm *ast.Datum
}

// New builds a Lowerer ready to produce a PDB from db, which must already
// have been through a successful resolver.Run.
func New(db *cildb.DB, log *ambient.Logger) *Lowerer {
	if log == nil {
		log = ambient.NewLogger("lowerer")
	}
	return &Lowerer{
		db:     db,
		log:    log,
		pdb:    NewPDB(db.MLS, db.CatOrder, db.DominanceOrder),
		values: make(map[*ast.Datum]uint32),
	}
}

// Lower runs pass1 (primary declarations), pass2 (cross-references) and
// pass3 (conditional rules), returning the finished PDB.
func (l *Lowerer) Lower() (*PDB, error) {
	if err := l.pass1(); err != nil {
		return nil, errors.Wrap(err, "pdb pass1")
	}
	if err := l.pass2(); err != nil {
		return nil, errors.Wrap(err, "pdb pass2")
	}
	if err := l.pass3(); err != nil {
		return nil, errors.Wrap(err, "pdb pass3")
	}
	return l.pdb, nil
}

func (l *Lowerer) valueOf(d *ast.Datum) uint32 { return l.values[d] }
