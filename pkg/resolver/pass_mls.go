package resolver

import (
	stderrors "errors"
	"fmt"

	"github.com/cil-project/cilc/pkg/ast"
	"github.com/cil-project/cilc/pkg/order"
	"github.com/cil-project/cilc/pkg/payload"
	"github.com/cil-project/cilc/pkg/symtab"
)

// passMLS resolves the category/sensitivity total orders and every
// sensitivity/category/level/levelrange declaration against them.
func (r *Resolver) passMLS() (bool, error) {
	catOrder, err := r.catOrder.Resolve()
	if err != nil {
		return false, wrapOrderErr(passMLS, "category", err)
	}
	r.db.CatOrder = catOrder

	domOrder, err := r.domOrder.Resolve()
	if err != nil {
		return false, wrapOrderErr(passMLS, "sensitivity dominance", err)
	}
	r.db.DominanceOrder = domOrder

	return false, ast.Walk(r.db.Root, func(n *ast.Node, _ any) (ast.Signal, error) {
		if sig, skip := skipDisabled(n); skip {
			return sig, nil
		}
		switch n.Flavor {
		case ast.Catrange:
			data, ok := n.Data.(*payload.Catrange)
			if !ok {
				return ast.Continue, nil
			}
			low, found := resolveName(r.scope(n), symtab.Cats, data.LowStr)
			if !found {
				return ast.Continue, newErr(passMLS, UnresolvedName, n.Line, "categoryrange: %q not found", data.LowStr)
			}
			high, found := resolveName(r.scope(n), symtab.Cats, data.HighStr)
			if !found {
				return ast.Continue, newErr(passMLS, UnresolvedName, n.Line, "categoryrange: %q not found", data.HighStr)
			}
			data.Low, data.High = low, high

		case ast.Catset:
			if data, ok := n.Data.(*payload.Catset); ok {
				if err := r.resolveCatset(n, data); err != nil {
					return ast.Continue, err
				}
			}

		case ast.Senscat:
			data, ok := n.Data.(*payload.Senscat)
			if !ok {
				return ast.Continue, nil
			}
			sens, found := resolveName(r.scope(n), symtab.Sens, data.SensStr)
			if !found {
				return ast.Continue, newErr(passMLS, UnresolvedName, n.Line, "senscat: sensitivity %q not found", data.SensStr)
			}
			data.Sens = sens
			if err := r.resolveCatset(n, data.Cats); err != nil {
				return ast.Continue, err
			}

		case ast.Level:
			data, ok := n.Data.(*payload.Level)
			if !ok {
				return ast.Continue, nil
			}
			sens, found := resolveName(r.scope(n), symtab.Sens, data.SensStr)
			if !found {
				return ast.Continue, newErr(passMLS, UnresolvedName, n.Line, "level: sensitivity %q not found", data.SensStr)
			}
			data.Sens = sens
			if data.Cats != nil {
				if err := r.resolveCatset(n, data.Cats); err != nil {
					return ast.Continue, err
				}
			}

		case ast.Levelrange:
			data, ok := n.Data.(*payload.LevelRange)
			if !ok {
				return ast.Continue, nil
			}
			if err := r.resolveLevelRef(n, data, true); err != nil {
				return ast.Continue, err
			}
			if err := r.resolveLevelRef(n, data, false); err != nil {
				return ast.Continue, err
			}
			if !levelAtOrBelow(r.db.DominanceOrder, data.Low, data.High) {
				return ast.Continue, newErr(passMLS, InvalidValue, n.Line, "levelrange: low level must not dominate high level")
			}
		}
		return ast.Continue, nil
	}, nil, nil, nil)
}

func (r *Resolver) resolveCatset(n *ast.Node, data *payload.Catset) error {
	for _, name := range data.CatStrs {
		cat, found := resolveName(r.scope(n), symtab.Cats, name)
		if !found {
			return newErr(passMLS, UnresolvedName, n.Line, "categoryset: %q not found", name)
		}
		data.Cats = append(data.Cats, cat)
	}
	for _, rng := range data.CatRanges {
		names, err := catRangeNames(r.db.CatOrder, rng.LowStr, rng.HighStr)
		if err != nil {
			return newErr(passMLS, UnresolvedName, n.Line, "categoryset: %v", err)
		}
		for _, name := range names {
			cat, found := resolveName(r.scope(n), symtab.Cats, name)
			if !found {
				return newErr(passMLS, UnresolvedName, n.Line, "categoryset: %q not found", name)
			}
			data.Cats = append(data.Cats, cat)
		}
	}
	return nil
}

// catRangeNames returns every category name from low to high inclusive, in
// merged-order position, the way a (low high) pair inside a catset
// expands into the full run of categories it spans.
func catRangeNames(catOrder []string, low, high string) ([]string, error) {
	lowIdx, highIdx := -1, -1
	for i, name := range catOrder {
		if name == low {
			lowIdx = i
		}
		if name == high {
			highIdx = i
		}
	}
	if lowIdx < 0 {
		return nil, fmt.Errorf("category %q has no position in the merged category order", low)
	}
	if highIdx < 0 {
		return nil, fmt.Errorf("category %q has no position in the merged category order", high)
	}
	if highIdx < lowIdx {
		return nil, fmt.Errorf("category range %q-%q is out of order", low, high)
	}
	return catOrder[lowIdx : highIdx+1], nil
}

// resolveLevelRef resolves either the low or the high side of a
// levelrange: an inline level literal has its own (sens, catset) resolved
// directly here, since it is embedded payload rather than a separate AST
// node the walk would otherwise visit; a bare name is looked up against the
// Levels table instead.
func (r *Resolver) resolveLevelRef(n *ast.Node, data *payload.LevelRange, low bool) error {
	lvl, str := data.High, data.HighStr
	if low {
		lvl, str = data.Low, data.LowStr
	}

	if lvl != nil {
		sens, found := resolveName(r.scope(n), symtab.Sens, lvl.SensStr)
		if !found {
			return newErr(passMLS, UnresolvedName, n.Line, "levelrange: sensitivity %q not found", lvl.SensStr)
		}
		lvl.Sens = sens
		if lvl.Cats != nil {
			if err := r.resolveCatset(n, lvl.Cats); err != nil {
				return err
			}
		}
		return nil
	}
	if str == "" {
		return newErr(passMLS, ParseInputMalformed, n.Line, "levelrange: neither an inline level nor a level name was given")
	}
	named, found := resolveName(r.scope(n), symtab.Levels, str)
	if !found {
		return newErr(passMLS, UnresolvedName, n.Line, "levelrange: level %q not found", str)
	}
	if namedData, ok := named.PrimaryNode().Data.(*payload.Level); ok {
		lvl = namedData
	}
	if low {
		data.LowDatum, data.Low = named, lvl
	} else {
		data.HighDatum, data.High = named, lvl
	}
	return nil
}

// levelAtOrBelow reports whether low's sensitivity is at or below high's in
// dominance, a coarse check that only consults the sensitivity order. The
// category-subset half of MLS dominance is not checked, here or during PDB
// lowering.
func levelAtOrBelow(domOrder []string, low, high *payload.Level) bool {
	if low == nil || high == nil {
		return true
	}
	lowIdx, highIdx := indexOf(domOrder, low.SensStr), indexOf(domOrder, high.SensStr)
	if lowIdx < 0 || highIdx < 0 {
		return true
	}
	return lowIdx <= highIdx
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func wrapOrderErr(pass, label string, err error) *Error {
	switch {
	case stderrors.Is(err, order.ErrIncomplete):
		return newErr(pass, IncompleteOrder, 0, "%s order incomplete: %v", label, err)
	case stderrors.Is(err, order.ErrMissing):
		return newErr(pass, MissingInOrder, 0, "%s order missing declared item: %v", label, err)
	default:
		return newErr(pass, OrderConflict, 0, "%s order conflict: %v", label, err)
	}
}
