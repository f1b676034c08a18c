// Package resolver implements the eleven ordered passes that turn a raw
// parse tree into a fully resolved AST: every name reference becomes a
// *ast.Datum pointer, every macro call and block inheritance is expanded in
// place, and every optional whose body fails to resolve is disabled and its
// declarations rolled back.
package resolver

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/cil-project/cilc/internal/ambient"
	"github.com/cil-project/cilc/pkg/ast"
	"github.com/cil-project/cilc/pkg/cildb"
	"github.com/cil-project/cilc/pkg/order"
	"github.com/cil-project/cilc/pkg/symtab"
)

// pass names, in fixed run order. CALL1 restarts the whole tail of the
// pipeline whenever an optional gets disabled, since a disabled optional
// can remove declarations later passes already depended on.
const (
	passTIF   = "TIF"
	passIN    = "IN"
	passBLKIN = "BLKIN"
	passBLKABS = "BLKABS"
	passMACRO = "MACRO"
	passCALL1 = "CALL1"
	passCALL2 = "CALL2"
	passMISC1 = "MISC1"
	passMLS   = "MLS"
	passMISC2 = "MISC2"
	passMISC3 = "MISC3"
)

const maxRestarts = 64

// Resolver drives the pass pipeline over one cildb.DB.
type Resolver struct {
	db  *cildb.DB
	log *ambient.Logger

	catOrder *order.Merger
	domOrder *order.Merger

	// scopeOf maps every AST node to the Scope it resolves names against,
	// populated once by declare() before TIF runs.
	scopeOf map[*ast.Node]*symtab.Scope
}

// New builds a Resolver over db, ready to Run.
func New(db *cildb.DB, log *ambient.Logger) *Resolver {
	if log == nil {
		log = ambient.NewLogger("resolver")
	}
	return &Resolver{db: db, log: log, catOrder: order.NewMerger(), domOrder: order.NewMerger()}
}

// Run executes every pass in order, restarting at CALL1 whenever a pass
// disables an optional, up to maxRestarts times, then returns the first
// hard error encountered or nil on success.
func (r *Resolver) Run() error {
	if err := r.declare(); err != nil {
		return err
	}

	if err := r.run(passTIF, r.passTIF); err != nil {
		return err
	}
	if err := r.run(passIN, r.passIN); err != nil {
		return err
	}
	if err := r.run(passBLKIN, r.passBLKIN); err != nil {
		return err
	}
	if err := r.run(passBLKABS, r.passBLKABS); err != nil {
		return err
	}
	if err := r.run(passMACRO, r.passMACRO); err != nil {
		return err
	}

	for restarts := 0; ; restarts++ {
		if restarts > maxRestarts {
			return newErr(passCALL1, ParseInputMalformed, 0, "optional-disable cascade did not converge after %d restarts", maxRestarts)
		}

		disabled, err := r.runRestartable()
		if err != nil {
			return err
		}
		if !disabled {
			break
		}
		r.log.Warnf("restarting at %s: an optional disable invalidated later resolutions", passCALL1)
	}

	return nil
}

// runRestartable executes CALL1..MISC3 once, stopping early (and reporting
// disabled=true) the moment any pass disables an optional: the subtree it
// owns may contain declarations later passes would otherwise trip over, so
// the caller restarts the whole tail from CALL1 rather than pressing on.
func (r *Resolver) runRestartable() (disabled bool, err error) {
	passes := []struct {
		name string
		fn   func() (bool, error)
	}{
		{passCALL1, r.passCALL1},
		{passCALL2, r.passCALL2},
		{passMISC1, r.passMISC1},
		{passMLS, r.passMLS},
		{passMISC2, r.passMISC2},
		{passMISC3, r.passMISC3},
	}

	for _, p := range passes {
		d, err := p.fn()
		if err != nil {
			return false, err
		}
		if d {
			if _, err := r.cascadeDisabled(); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

// run executes a single non-restartable pass, discarding its disable signal
// (only the CALL1..MISC3 tail needs to restart; TIF/IN/BLKIN/BLKABS/MACRO
// run exactly once).
func (r *Resolver) run(name string, fn func() (bool, error)) error {
	_, err := fn()
	if err != nil {
		return errors.Wrapf(err, "pass %s", name)
	}
	return nil
}

// scope returns the lexical scope n resolves names against, as computed by
// declare(). Every node in the tree has an entry; nodes introduced by
// ast.Copy after declare() has run inherit their insertion site's scope
// from whichever pass created them (CALL1, BLKIN).
func (r *Resolver) scope(n *ast.Node) *symtab.Scope {
	return r.scopeOf[n]
}

// disableOptional transitions an optional's Datum to Disabling, cascades
// the disable to the optional's own declarations on the next sweep (see
// cascadeDisabled), and records a diagnostic on diag without aborting the
// pass -- a disabled optional is not itself a hard error.
func (r *Resolver) disableOptional(diag *multierror.Error, optional *ast.Datum, cause error) *multierror.Error {
	if optional.State == ast.Enabled {
		optional.State = ast.Disabling
		r.log.Warnf("disabling optional %q: %v", optional.Name, cause)
	}
	return multierror.Append(diag, cause)
}

// skipDisabled reports whether n roots a subtree later passes must treat as
// inert: either an optional the cascade has already turned Disabled, or a
// macro's own template body.
//
// A disabled optional must be skipped on a later restart the same way
// cascadeDisabled's own sweep does -- otherwise the same unresolved name
// inside it would re-disable the optional (a no-op) on every restart and
// the loop would never converge.
//
// A macro's body is pure substitution metadata: its formal parameters are
// never declared names (CALL1 clones the body per call site and substitutes
// them), so no pass may try to resolve them against the real symtab. Only
// the clones CALL1 produces at each call site are ever independently
// resolved.
func skipDisabled(n *ast.Node) (ast.Signal, bool) {
	if n.Flavor == ast.Optional && n.Datum != nil && n.Datum.State == ast.Disabled {
		return ast.SkipSubtree, true
	}
	if n.Flavor == ast.Macro {
		return ast.SkipSubtree, true
	}
	return ast.Continue, false
}

// cascadeDisabled walks the tree once, turning every Disabling datum's
// declarations into a skipped subtree and flipping it to Disabled. It is
// its own pre-order walk, which runRestartable calls after a pass reports
// that it disabled an optional.
func (r *Resolver) cascadeDisabled() (disabled bool, err error) {
	err = ast.Walk(r.db.Root, func(n *ast.Node, _ any) (ast.Signal, error) {
		if n.Datum != nil && n.Datum.State == ast.Disabling {
			n.Datum.State = ast.Disabled
			disabled = true
			return ast.SkipSubtree, nil
		}
		if n.Datum != nil && n.Datum.State == ast.Disabled {
			return ast.SkipSubtree, nil
		}
		return ast.Continue, nil
	}, nil, nil, nil)
	return disabled, err
}
