package resolver

import (
	"github.com/hashicorp/go-multierror"

	"github.com/cil-project/cilc/pkg/ast"
	"github.com/cil-project/cilc/pkg/payload"
	"github.com/cil-project/cilc/pkg/symtab"
)

// passMISC3 is the last resolver pass: it resolves avrules, type_rules,
// nametypetransitions, rangetransitions, contexts and every ocontext-bearing
// declaration, userprefix and selinuxuser(default), and checks that every
// class a constrain/mlsconstrain/validatetrans names exists (the names inside
// the constraint expression are looked up, and the expression compiled,
// during PDB lowering, once attribute selectors can be turned into value
// bitmaps).
//
// A rule whose source/target/class cannot be resolved disables its nearest
// enclosing optional instead of failing the whole compilation, matching
// CALL1's policy; a rule with no enclosing optional treats the same miss as
// a hard error.
func (r *Resolver) passMISC3() (bool, error) {
	var diag *multierror.Error
	disabled := false

	miss := func(n *ast.Node, err error) (ast.Signal, error) {
		if opt := nearestOptional(n); opt != nil {
			diag = r.disableOptional(diag, opt.Datum, err)
			disabled = true
			return ast.SkipSubtree, nil
		}
		return ast.Continue, err
	}

	walkErr := ast.Walk(r.db.Root, func(n *ast.Node, _ any) (ast.Signal, error) {
		if sig, skip := skipDisabled(n); skip {
			return sig, nil
		}
		switch n.Flavor {
		case ast.Avrule, ast.TypeRule:
			if err := r.resolveRule(n); err != nil {
				return miss(n, err)
			}

		case ast.Nametypetransition:
			data := n.Data.(*payload.Nametypetransition)
			src, ok1 := resolveName(r.scope(n), symtab.Types, data.SourceStr)
			tgt, ok2 := resolveName(r.scope(n), symtab.Types, data.TargetStr)
			cls, ok3 := resolveName(r.scope(n), symtab.Classes, data.ClassStr)
			res, ok4 := resolveName(r.scope(n), symtab.Types, data.ResultStr)
			if !ok1 || !ok2 || !ok3 || !ok4 {
				return miss(n, newErr(passMISC3, UnresolvedName, n.Line, "nametypetransition: unresolved name reference"))
			}
			data.Source, data.Target, data.Class, data.Result = src, tgt, cls, res

		case ast.Rangetransition:
			data := n.Data.(*payload.Rangetransition)
			src, ok1 := resolveName(r.scope(n), symtab.Types, data.SourceStr)
			tgt, ok2 := resolveName(r.scope(n), symtab.Types, data.TargetStr)
			cls, ok3 := resolveName(r.scope(n), symtab.Classes, data.ClassStr)
			if !ok1 || !ok2 || !ok3 {
				return miss(n, newErr(passMISC3, UnresolvedName, n.Line, "rangetransition: unresolved name reference"))
			}
			data.Source, data.Target, data.Class = src, tgt, cls
			if data.Range != nil {
				if err := r.resolveLevelRef(n, data.Range, true); err != nil {
					return miss(n, err)
				}
				if err := r.resolveLevelRef(n, data.Range, false); err != nil {
					return miss(n, err)
				}
			}

		case ast.Context:
			if err := r.resolveContext(n, n.Data.(*payload.Context)); err != nil {
				return miss(n, err)
			}

		case ast.Sidcontext:
			data := n.Data.(*payload.Sidcontext)
			sid, ok := resolveName(r.scope(n), symtab.Sids, data.SidStr)
			if !ok {
				return miss(n, newErr(passMISC3, UnresolvedName, n.Line, "sidcontext: sid %q not found", data.SidStr))
			}
			data.Sid = sid
			if err := r.resolveContextRef(n, data.ContextStr, &data.Context); err != nil {
				return miss(n, err)
			}

		case ast.Portcon:
			data := n.Data.(*payload.Portcon)
			if err := r.resolveContextRef(n, data.ContextStr, &data.Context); err != nil {
				return miss(n, err)
			}

		case ast.Nodecon:
			data := n.Data.(*payload.Nodecon)
			if err := r.resolveContextRef(n, data.ContextStr, &data.Context); err != nil {
				return miss(n, err)
			}

		case ast.Netifcon:
			data := n.Data.(*payload.Netifcon)
			if err := r.resolveContextRef(n, data.IfContextStr, &data.IfContext); err != nil {
				return miss(n, err)
			}
			if err := r.resolveContextRef(n, data.PacketContextStr, &data.PacketContext); err != nil {
				return miss(n, err)
			}

		case ast.Genfscon:
			data := n.Data.(*payload.Genfscon)
			if err := r.resolveContextRef(n, data.ContextStr, &data.Context); err != nil {
				return miss(n, err)
			}

		case ast.Fsuse:
			data := n.Data.(*payload.Fsuse)
			if err := r.resolveContextRef(n, data.ContextStr, &data.Context); err != nil {
				return miss(n, err)
			}

		case ast.Pirqcon, ast.Iomemcon, ast.Ioportcon, ast.Pcidevicecon:
			data := n.Data.(*payload.DeviceCon)
			if err := r.resolveContextRef(n, data.ContextStr, &data.Context); err != nil {
				return miss(n, err)
			}

		case ast.Userprefix:
			// userprefix just associates a userid prefix string with a user;
			// the user reference is the only name to resolve.
			if name, ok := n.Data.(*payload.Bounds); ok {
				if _, found := resolveName(r.scope(n), symtab.Users, name.ChildStr); !found {
					return miss(n, newErr(passMISC3, UnresolvedName, n.Line, "userprefix: user %q not found", name.ChildStr))
				}
			}

		case ast.Selinuxuser, ast.Selinuxuserdefault:
			data := n.Data.(*payload.Selinuxuser)
			user, ok := resolveName(r.scope(n), symtab.Users, data.UserStr)
			if !ok {
				return miss(n, newErr(passMISC3, UnresolvedName, n.Line, "%s: user %q not found", n.Flavor, data.UserStr))
			}
			data.User = user
			if data.Range != nil {
				if err := r.resolveLevelRef(n, data.Range, true); err != nil {
					return miss(n, err)
				}
				if err := r.resolveLevelRef(n, data.Range, false); err != nil {
					return miss(n, err)
				}
			}

		case ast.Constrain, ast.Mlsconstrain, ast.Validatetrans, ast.Mlsvalidatetrans:
			data := n.Data.(*payload.Constrain)
			for _, name := range data.ClassStrs {
				class, found := resolveName(r.scope(n), symtab.Classes, name)
				if !found {
					return miss(n, newErr(passMISC3, ConstraintMalformed, n.Line, "%s: class %q not found", n.Flavor, name))
				}
				data.Classes = append(data.Classes, class)
			}
		}
		return ast.Continue, nil
	}, nil, nil, nil)

	if walkErr != nil {
		return false, walkErr
	}
	if diag != nil && len(diag.Errors) > 0 {
		r.log.Warnf("MISC3: %d rules disabled their enclosing optional: %v", len(diag.Errors), diag)
	}
	return disabled, nil
}

func (r *Resolver) resolveRule(n *ast.Node) error {
	scope := r.scope(n)
	switch data := n.Data.(type) {
	case *payload.Avrule:
		src, ok1 := resolveName(scope, symtab.Types, data.SourceStr)
		cls, ok3 := resolveName(scope, symtab.Classes, data.ClassStr)

		// self never names a declared type: it is resolved against the
		// rule's own source at lowering time instead, once the source's
		// value (and, for an attribute source, its membership) is known.
		var tgt *ast.Datum
		ok2 := true
		if data.TargetStr != payload.Self {
			tgt, ok2 = resolveName(scope, symtab.Types, data.TargetStr)
		}

		if !ok1 || !ok2 || !ok3 {
			return newErr(passMISC3, UnresolvedName, n.Line, "avrule: unresolved source/target/class")
		}
		data.Source, data.Target, data.Class = src, tgt, cls
		for _, p := range data.PermStrs {
			perm, ok := resolveName(scope, symtab.Perms, p)
			if !ok {
				return newErr(passMISC3, UnresolvedName, n.Line, "avrule: perm %q not found", p)
			}
			data.Perms = append(data.Perms, perm)
		}
		return nil

	case *payload.TypeRule:
		src, ok1 := resolveName(scope, symtab.Types, data.SourceStr)
		tgt, ok2 := resolveName(scope, symtab.Types, data.TargetStr)
		cls, ok3 := resolveName(scope, symtab.Classes, data.ClassStr)
		res, ok4 := resolveName(scope, symtab.Types, data.ResultStr)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return newErr(passMISC3, UnresolvedName, n.Line, "type_rule: unresolved name reference")
		}
		data.Source, data.Target, data.Class, data.Result = src, tgt, cls, res
		return nil
	}
	return newErr(passMISC3, ParseInputMalformed, n.Line, "rule node missing payload")
}

func (r *Resolver) resolveContext(n *ast.Node, data *payload.Context) error {
	scope := r.scope(n)
	user, ok1 := resolveName(scope, symtab.Users, data.UserStr)
	role, ok2 := resolveName(scope, symtab.Roles, data.RoleStr)
	typ, ok3 := resolveName(scope, symtab.Types, data.TypeStr)
	if !ok1 || !ok2 || !ok3 {
		return newErr(passMISC3, UnresolvedName, n.Line, "context: unresolved user/role/type")
	}
	data.User, data.Role, data.Type = user, role, typ
	if data.RangeStr != "" {
		lr, ok := resolveName(scope, symtab.LevelRanges, data.RangeStr)
		if !ok {
			return newErr(passMISC3, UnresolvedName, n.Line, "context: levelrange %q not found", data.RangeStr)
		}
		if lrData, ok := lr.PrimaryNode().Data.(*payload.LevelRange); ok {
			data.Range = lrData
		}
	} else if data.Range != nil {
		if err := r.resolveLevelRef(n, data.Range, true); err != nil {
			return err
		}
		if err := r.resolveLevelRef(n, data.Range, false); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) resolveContextRef(n *ast.Node, ref string, out **payload.Context) error {
	if *out != nil {
		return r.resolveContext(n, *out)
	}
	if ref == "" {
		return newErr(passMISC3, ParseInputMalformed, n.Line, "context reference missing")
	}
	ctxDatum, ok := resolveName(r.scope(n), symtab.Contexts, ref)
	if !ok {
		return newErr(passMISC3, UnresolvedName, n.Line, "context %q not found", ref)
	}
	ctxData, ok := ctxDatum.PrimaryNode().Data.(*payload.Context)
	if !ok {
		return newErr(passMISC3, ParseInputMalformed, n.Line, "context %q missing payload", ref)
	}
	*out = ctxData
	return nil
}
