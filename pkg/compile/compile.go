// Package compile wires the three stages of turning CIL source text into a
// lowered policy database: internal/sexpr reads the concrete syntax into an
// AST, pkg/resolver resolves every name and expands every macro/block/
// optional against it, and pkg/pdb lowers the result into dense values and
// avtab entries.
package compile

import (
	"github.com/pkg/errors"

	"github.com/cil-project/cilc/internal/sexpr"
	"github.com/cil-project/cilc/pkg/cildb"
	"github.com/cil-project/cilc/pkg/pdb"
	"github.com/cil-project/cilc/pkg/resolver"
)

// Options carries the compile-time switches a policy module's build line
// would otherwise pass to the real compiler: whether to build an MLS
// policy, the target platform name (copied onto the DB; no pass reads it),
// and whether dontaudit rules should be dropped entirely (a common
// debug-build setting, since dontaudit silences denial logging).
type Options struct {
	MLS              bool
	TargetPlatform   string
	DisableDontaudit bool
}

// Source is one input module: a name (used only for diagnostics) and its
// raw CIL text.
type Source struct {
	Name string
	Text []byte
}

// Compile parses every source, resolves the merged tree, and lowers it
// into a PDB. Sources are concatenated into one AST in the order given,
// the same flat-namespace model a single `cil_db` combines multiple
// `.cil` files into in the real compiler.
func Compile(sources []Source, opts Options) (*pdb.PDB, error) {
	var forms []*sexpr.Form
	for _, src := range sources {
		parsed, err := sexpr.Parse(src.Text)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing %s", src.Name)
		}
		forms = append(forms, parsed...)
	}

	root, err := sexpr.Build(forms)
	if err != nil {
		return nil, errors.Wrap(err, "building ast")
	}

	db := cildb.New(root)
	db.MLS = opts.MLS
	db.TargetPlatform = opts.TargetPlatform
	db.DisableDontaudit = opts.DisableDontaudit

	if err := resolver.New(db, nil).Run(); err != nil {
		return nil, errors.Wrap(err, "resolving")
	}

	lowered, err := pdb.New(db, nil).Lower()
	if err != nil {
		return nil, errors.Wrap(err, "lowering")
	}
	return lowered, nil
}
