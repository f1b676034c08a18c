package pdb

import (
	"github.com/pkg/errors"

	"github.com/cil-project/cilc/pkg/ast"
	"github.com/cil-project/cilc/pkg/payload"
)

// pass3 lowers every booleanif into a CondNode: the boolean expression is
// kept as-is (its value can flip at runtime via setbool, so it is never
// folded the way a tunableif's condition is during resolution), and both
// branches' avrules/type_rules are lowered into their own non-merging
// Avtab -- a duplicate key within one branch is a malformed policy rather
// than an implicit union, hence Mode 0 rather than the top-level avtab's
// Mode 1. A booleanif nested inside a Disabled optional is skipped along
// with the rest of its subtree.
//
// Regular (non-neverallow) avrules outside any conditional are also
// inserted here, via flushPendingAvrules: pass2 only registers
// neverallows and queues everything else, so by the time any allow is
// checked against the neverallow index -- here or in a conditional branch
// below -- that index is already complete, regardless of declaration
// order in the source.
func (l *Lowerer) pass3() error {
	if err := l.flushPendingAvrules(); err != nil {
		return err
	}
	return ast.Walk(l.db.Root, func(n *ast.Node, _ any) (ast.Signal, error) {
		if n.Flavor == ast.Optional && n.Datum != nil && n.Datum.State == ast.Disabled {
			return ast.SkipSubtree, nil
		}
		if n.Flavor == ast.Macro {
			return ast.SkipSubtree, nil
		}
		if n.Flavor == ast.Block && l.db.AbstractBlocks[n.Datum] {
			return ast.SkipSubtree, nil
		}
		if n.Flavor != ast.Booleanif {
			return ast.Continue, nil
		}
		data, ok := n.Data.(*payload.CondIf)
		if !ok {
			return ast.Continue, errors.Errorf("booleanif line %d missing payload", n.Line)
		}

		cond := &CondNode{
			Expr:      CondExpr{Tokens: data.ExprTokens},
			TrueList:  NewAvtab(0),
			FalseList: NewAvtab(0),
		}

		for _, branch := range n.Children() {
			var list *Avtab
			switch branch.Flavor {
			case ast.Condtrue:
				list = cond.TrueList
			case ast.Condfalse:
				list = cond.FalseList
			default:
				continue
			}
			if err := l.lowerCondBranch(branch, list); err != nil {
				return ast.Continue, errors.Wrapf(err, "booleanif line %d", n.Line)
			}
		}

		l.pdb.Cond = append(l.pdb.Cond, cond)
		return ast.SkipSubtree, nil
	}, nil, nil, nil)
}

func (l *Lowerer) lowerCondBranch(branch *ast.Node, list *Avtab) error {
	for _, rule := range branch.Children() {
		switch rule.Flavor {
		case ast.Avrule:
			if err := l.lowerCondAvrule(rule, rule.Data.(*payload.Avrule), list); err != nil {
				return err
			}
		case ast.TypeRule:
			if err := l.lowerCondTypeRule(rule, rule.Data.(*payload.TypeRule), list); err != nil {
				return err
			}
		}
	}
	return nil
}

// lowerCondAvrule lowers one avrule nested in a booleanif branch, expanding
// a self target the same way lowerAvrule does. It still complements a
// dontaudit mask and checks allow/auditallow against the neverallow index,
// since pass2's registration (and pass3's flush of every unconditional
// allow) has already completed by the time any conditional branch is
// lowered -- a conditional allow must be rejected just as surely as an
// unconditional one if it violates a neverallow. Unlike lowerAvrule, a
// map-class reference inside a conditional is not expanded; this
// implementation's booleanif branches only ever name a concrete class.
func (l *Lowerer) lowerCondAvrule(n *ast.Node, data *payload.Avrule, list *Avtab) error {
	kind, err := avruleAvtabKind(data.Kind)
	if err != nil {
		return err
	}
	class := l.valueOf(aliasTarget(data.Class))
	for _, pair := range l.selfPairs(data) {
		bm := newPermBitmap(l, data.Perms)
		if kind == DontAudit {
			bm.Complement(32)
		}
		if kind == Allow || kind == AuditAllow {
			if violated := l.pdb.Neverallows.Check(pair.sourceWide, pair.targetWide, class, bm); violated != nil {
				return errors.Errorf("line %d: conditional rule violates a neverallow on class %d", n.Line, class)
			}
		}
		if _, err := list.Insert(AvtabKey{Source: pair.sourceValue, Target: pair.targetValue, Class: class, Kind: kind}, bm, 0); err != nil {
			return errors.Wrapf(err, "line %d", n.Line)
		}
	}
	return nil
}

func (l *Lowerer) lowerCondTypeRule(n *ast.Node, data *payload.TypeRule, list *Avtab) error {
	kind, err := avruleAvtabKind(data.Kind)
	if err != nil {
		return err
	}
	key := AvtabKey{
		Source: l.valueOf(aliasTarget(data.Source)), Target: l.valueOf(aliasTarget(data.Target)),
		Class: l.valueOf(aliasTarget(data.Class)), Kind: kind,
	}
	_, err = list.Insert(key, nil, l.valueOf(aliasTarget(data.Result)))
	if err != nil {
		return errors.Wrapf(err, "line %d", n.Line)
	}
	return nil
}
