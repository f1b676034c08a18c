package pdb

import (
	"github.com/pkg/errors"

	"github.com/cil-project/cilc/pkg/ast"
	"github.com/cil-project/cilc/pkg/bitmap"
	"github.com/cil-project/cilc/pkg/payload"
)

// pass2 resolves every cross-reference pass1 couldn't: alias values,
// attribute membership, classmap expansion, the unconditional avtab,
// role/name/range transitions, ocontexts and constraints. Rules nested
// inside a booleanif's branches are skipped here and picked up by pass3.
// An optional the resolver left Disabled is skipped whole, so none of its
// rules reach the avtab.
func (l *Lowerer) pass2() error {
	if err := l.propagateAliasValues(); err != nil {
		return errors.Wrap(err, "alias values")
	}
	if err := l.collectAttrMembers(); err != nil {
		return errors.Wrap(err, "attribute membership")
	}
	if err := l.collectClassmaps(); err != nil {
		return errors.Wrap(err, "classmap index")
	}
	if err := l.collectOcontexts(); err != nil {
		return errors.Wrap(err, "ocontext collection")
	}

	err := ast.WalkChildren(l.db.Root, func(n *ast.Node, _ any) (ast.Signal, error) {
		switch n.Flavor {
		case ast.Booleanif:
			// handled entirely in pass3
			return ast.SkipSubtree, nil

		case ast.Optional:
			if n.Datum != nil && n.Datum.State == ast.Disabled {
				return ast.SkipSubtree, nil
			}

		case ast.Macro:
			// a macro's own body is template metadata; only CALL1's clones
			// at each call site are ever lowered.
			return ast.SkipSubtree, nil

		case ast.Block:
			if l.db.AbstractBlocks[n.Datum] {
				// materialized only through blockinherit, never directly.
				return ast.SkipSubtree, nil
			}
			// transparent container; descend into its body normally

		case ast.Avrule:
			if err := l.lowerAvrule(n, n.Data.(*payload.Avrule)); err != nil {
				return ast.Continue, errors.Wrapf(err, "avrule line %d", n.Line)
			}

		case ast.TypeRule:
			if err := l.lowerTypeRule(n, n.Data.(*payload.TypeRule)); err != nil {
				return ast.Continue, errors.Wrapf(err, "type_rule line %d", n.Line)
			}

		case ast.Roletransition:
			data := n.Data.(*payload.Roletransition)
			l.pdb.RoleTransitions = append(l.pdb.RoleTransitions, &RoleTransitionEntry{
				Source: l.valueOf(aliasTarget(data.Source)), Target: l.valueOf(aliasTarget(data.Target)),
				Class: l.valueOf(aliasTarget(data.Class)), NewRole: l.valueOf(aliasTarget(data.NewRole)),
			})

		case ast.Roleallow:
			data := n.Data.(*payload.Roleallow)
			l.pdb.RoleAllows = append(l.pdb.RoleAllows, &RoleAllowEntry{
				Source: l.valueOf(aliasTarget(data.Source)), NewRole: l.valueOf(aliasTarget(data.NewRole)),
			})

		case ast.Nametypetransition:
			data := n.Data.(*payload.Nametypetransition)
			l.pdb.NameTransitions = append(l.pdb.NameTransitions, &NameTransitionEntry{
				Source: l.valueOf(aliasTarget(data.Source)), Target: l.valueOf(aliasTarget(data.Target)),
				Class: l.valueOf(aliasTarget(data.Class)), Result: l.valueOf(aliasTarget(data.Result)),
				ObjName: data.ObjName,
			})

		case ast.Rangetransition:
			data := n.Data.(*payload.Rangetransition)
			rng, err := l.pdb.LowerRange(data.Range, l.valueOf)
			if err != nil {
				return ast.Continue, errors.Wrapf(err, "rangetransition line %d", n.Line)
			}
			l.pdb.RangeTransitions = append(l.pdb.RangeTransitions, &RangeTransitionEntry{
				Source: l.valueOf(aliasTarget(data.Source)), Target: l.valueOf(aliasTarget(data.Target)),
				Class: l.valueOf(aliasTarget(data.Class)), Range: rng,
			})

		case ast.Constrain:
			if err := l.compileConstraint(n, ConstrainKind); err != nil {
				return ast.Continue, err
			}
		case ast.Mlsconstrain:
			if err := l.compileConstraint(n, MlsconstrainKind); err != nil {
				return ast.Continue, err
			}
		case ast.Validatetrans:
			if err := l.compileConstraint(n, ValidatetransKind); err != nil {
				return ast.Continue, err
			}
		case ast.Mlsvalidatetrans:
			if err := l.compileConstraint(n, MlsvalidatetransKind); err != nil {
				return ast.Continue, err
			}
		}
		return ast.Continue, nil
	}, nil, nil, nil)
	if err != nil {
		return err
	}

	return l.lowerOcontexts()
}

// propagateAliasValues gives every typealias/sensitivityalias/categoryalias
// datum the same PDB value as the concrete declaration it resolved to,
// since aliases never own a slot of their own (see declare.go's
// Primary=false marking).
func (l *Lowerer) propagateAliasValues() error {
	return ast.Walk(l.db.Root, func(n *ast.Node, _ any) (ast.Signal, error) {
		if n.Flavor != ast.Typealias && n.Flavor != ast.Sensalias && n.Flavor != ast.Catalias {
			return ast.Continue, nil
		}
		data, ok := n.Data.(*payload.Alias)
		if !ok || data.Target == nil {
			return ast.Continue, nil
		}
		l.values[n.Datum] = l.valueOf(data.Target)
		return ast.Continue, nil
	}, nil, nil, nil)
}

// valuePair is one resolved (source, target) access-vector endpoint pair,
// plus the widened selector bitmaps a neverallow check needs (an
// attribute-qualified endpoint also denotes every type carrying it).
type valuePair struct {
	sourceValue, targetValue uint32
	sourceWide, targetWide   *bitmap.Bitmap
}

// pendingAvrule is a lowered, not-yet-inserted regular avrule: every field
// insertion needs, captured at pass2 time so pass3 can check and insert it
// once the neverallow index is complete.
type pendingAvrule struct {
	node  *ast.Node
	kind  AvtabKind
	pair  valuePair
	class uint32
	perms *bitmap.Bitmap
}

// lowerAvrule expands an avrule into one or more (source, target, class,
// perms) tuples -- widening a map-class reference into its classmap
// entries, and a `self` target into one tuple per concrete member when the
// source is a type-attribute -- then hands each to emitAvrule.
func (l *Lowerer) lowerAvrule(n *ast.Node, data *payload.Avrule) error {
	avtabKind, err := avruleAvtabKind(data.Kind)
	if err != nil {
		return err
	}
	if avtabKind == DontAudit && l.db.DisableDontaudit {
		return nil
	}

	for _, pair := range l.selfPairs(data) {
		if data.Class.Flavor == ast.MapClass {
			expansions, err := l.expandMapPerms(data.Class, data.Perms)
			if err != nil {
				return err
			}
			for _, exp := range expansions {
				if err := l.emitAvrule(n, avtabKind, pair, l.valueOf(aliasTarget(exp.class)), newPermBitmap(l, exp.perms)); err != nil {
					return err
				}
			}
			continue
		}
		if err := l.emitAvrule(n, avtabKind, pair, l.valueOf(aliasTarget(data.Class)), newPermBitmap(l, data.Perms)); err != nil {
			return err
		}
	}
	return nil
}

// selfPairs returns every (source, target) pair an avrule denotes: the
// rule's own source/target, unless the target is the literal self
// keyword, in which case the source plays both roles -- one pair per
// member when the source is a type-attribute, since self only ever
// designates concrete types at the access-vector level.
func (l *Lowerer) selfPairs(data *payload.Avrule) []valuePair {
	if data.TargetStr != payload.Self {
		return []valuePair{{
			sourceValue: l.valueOf(aliasTarget(data.Source)), targetValue: l.valueOf(aliasTarget(data.Target)),
			sourceWide: l.datumBitmap(data.Source), targetWide: l.datumBitmap(data.Target),
		}}
	}

	source := aliasTarget(data.Source)
	members, ok := l.attrMembers[source]
	if !ok {
		value := l.valueOf(source)
		return []valuePair{{sourceValue: value, targetValue: value, sourceWide: singletonBitmap(value), targetWide: singletonBitmap(value)}}
	}
	pairs := make([]valuePair, 0, members.Count())
	for _, bit := range members.Bits() {
		value := uint32(bit)
		pairs = append(pairs, valuePair{sourceValue: value, targetValue: value, sourceWide: singletonBitmap(value), targetWide: singletonBitmap(value)})
	}
	return pairs
}

// emitAvrule registers a neverallow immediately -- every later allow must
// be checked against it, including ones pass2 already walked past -- or
// queues every other kind in l.pendingAvrules for pass3 to check and
// insert once pass2's neverallow registration is entirely done. A
// dontaudit rule's mask is complemented before either path, matching the
// kernel's AVTAB_AUDITDENY encoding (the mask stores what is NOT audited).
func (l *Lowerer) emitAvrule(n *ast.Node, kind AvtabKind, pair valuePair, class uint32, perms *bitmap.Bitmap) error {
	if kind == DontAudit {
		perms.Complement(32)
	}
	if kind == Neverallow {
		l.pdb.Neverallows.Register(&NeverallowRule{Source: pair.sourceWide, Target: pair.targetWide, Class: class, Perms: perms})
		return nil
	}
	l.pendingAvrules = append(l.pendingAvrules, pendingAvrule{node: n, kind: kind, pair: pair, class: class, perms: perms})
	return nil
}

// flushPendingAvrules inserts every regular avrule pass2 deferred, once
// pass2's neverallow registration is entirely done: an allow/auditallow is
// checked against the complete index regardless of whether the neverallow
// it conflicts with was declared before or after it in source.
func (l *Lowerer) flushPendingAvrules() error {
	for _, p := range l.pendingAvrules {
		if p.kind == Allow || p.kind == AuditAllow {
			if violated := l.pdb.Neverallows.Check(p.pair.sourceWide, p.pair.targetWide, p.class, p.perms); violated != nil {
				return errors.Errorf("line %d: rule violates a neverallow on class %d", p.node.Line, p.class)
			}
		}
		if _, err := l.pdb.Avtab.Insert(AvtabKey{Source: p.pair.sourceValue, Target: p.pair.targetValue, Class: p.class, Kind: p.kind}, p.perms, 0); err != nil {
			return errors.Wrapf(err, "line %d", p.node.Line)
		}
	}
	l.pendingAvrules = nil
	return nil
}

// datumBitmap returns the set of dense values a rule endpoint denotes: its
// own value, widened to its full membership bitmap when it is a
// typeattribute/roleattribute.
func (l *Lowerer) datumBitmap(d *ast.Datum) *bitmap.Bitmap {
	target := aliasTarget(d)
	if members, ok := l.attrMembers[target]; ok {
		bm := bitmap.New()
		bm.Union(members)
		bm.Set(int(l.valueOf(target)))
		return bm
	}
	return singletonBitmap(l.valueOf(target))
}

func (l *Lowerer) lowerTypeRule(n *ast.Node, data *payload.TypeRule) error {
	avtabKind, err := avruleAvtabKind(data.Kind)
	if err != nil {
		return err
	}
	key := AvtabKey{
		Source: l.valueOf(aliasTarget(data.Source)), Target: l.valueOf(aliasTarget(data.Target)),
		Class: l.valueOf(aliasTarget(data.Class)), Kind: avtabKind,
	}
	_, err = l.pdb.Avtab.Insert(key, nil, l.valueOf(aliasTarget(data.Result)))
	if err != nil {
		return errors.Wrapf(err, "line %d", n.Line)
	}
	return nil
}

func avruleAvtabKind(k payload.AvruleKind) (AvtabKind, error) {
	switch k {
	case payload.Allowed:
		return Allow, nil
	case payload.AuditAllow:
		return AuditAllow, nil
	case payload.DontAudit:
		return DontAudit, nil
	case payload.Neverallow:
		return Neverallow, nil
	case payload.TypeTransition:
		return TypeTransition, nil
	case payload.TypeChange:
		return TypeChange, nil
	case payload.TypeMember:
		return TypeMember, nil
	default:
		return 0, errors.Errorf("unrecognized rule kind %d", k)
	}
}

func singletonBitmap(value uint32) *bitmap.Bitmap {
	bm := bitmap.New()
	bm.Set(int(value))
	return bm
}

// newPermBitmap builds the permission bitmap for a plain (non-map-class)
// avrule; used by both the unconditional avtab (pass2) and a
// conditional's branch avtab (pass3).
func newPermBitmap(l *Lowerer, perms []*ast.Datum) *bitmap.Bitmap {
	bm := bitmap.New()
	for _, p := range perms {
		bm.Set(int(l.valueOf(aliasTarget(p))))
	}
	return bm
}
