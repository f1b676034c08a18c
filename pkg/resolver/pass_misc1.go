package resolver

import (
	"github.com/cil-project/cilc/pkg/ast"
	"github.com/cil-project/cilc/pkg/payload"
	"github.com/cil-project/cilc/pkg/symtab"
)

// passMISC1 resolves typealias/sensitivityalias/categoryalias chains
// (detecting cycles as RecursiveAlias), folds every catorder/dominance
// hint into the partial-order mergers, and resolves classcommon and
// classpermset/classmapping declarations.
func (r *Resolver) passMISC1() (bool, error) {
	if err := r.resolveAliases(ast.Typealias, symtab.Types); err != nil {
		return false, err
	}
	if err := r.resolveAliases(ast.Sensalias, symtab.Sens); err != nil {
		return false, err
	}
	if err := r.resolveAliases(ast.Catalias, symtab.Cats); err != nil {
		return false, err
	}

	err := ast.Walk(r.db.Root, func(n *ast.Node, _ any) (ast.Signal, error) {
		if sig, skip := skipDisabled(n); skip {
			return sig, nil
		}
		switch n.Flavor {
		case ast.Catorder:
			hint, ok := n.Data.(*payload.OrderHint)
			if !ok {
				return ast.Continue, newErr(passMISC1, ParseInputMalformed, n.Line, "catorder missing payload")
			}
			for _, name := range hint.Names {
				r.catOrder.Declare(name)
			}
			if err := r.catOrder.AddHint(hint.Names); err != nil {
				return ast.Continue, newErr(passMISC1, OrderConflict, n.Line, "catorder: %v", err)
			}

		case ast.Dominance:
			hint, ok := n.Data.(*payload.OrderHint)
			if !ok {
				return ast.Continue, newErr(passMISC1, ParseInputMalformed, n.Line, "dominance missing payload")
			}
			for _, name := range hint.Names {
				r.domOrder.Declare(name)
			}
			if err := r.domOrder.AddHint(hint.Names); err != nil {
				return ast.Continue, newErr(passMISC1, OrderConflict, n.Line, "dominance: %v", err)
			}

		case ast.Classcommon:
			data, ok := n.Data.(*payload.Classcommon)
			if !ok {
				return ast.Continue, newErr(passMISC1, ParseInputMalformed, n.Line, "classcommon missing payload")
			}
			class, found := resolveName(r.scope(n), symtab.Classes, data.ClassStr)
			if !found {
				return ast.Continue, newErr(passMISC1, UnresolvedName, n.Line, "classcommon: class %q not found", data.ClassStr)
			}
			common, found := resolveName(r.scope(n), symtab.Commons, data.CommonStr)
			if !found {
				return ast.Continue, newErr(passMISC1, UnresolvedName, n.Line, "classcommon: common %q not found", data.CommonStr)
			}
			data.Class, data.Common = class, common

		case ast.Classpermset:
			data, ok := n.Data.(*payload.Classpermset)
			if ok {
				if err := r.resolveClassperms(n, data.Entries); err != nil {
					return ast.Continue, err
				}
			}

		case ast.Classmapping:
			data, ok := n.Data.(*payload.Classmapping)
			if ok {
				class, found := resolveName(r.scope(n), symtab.Classes, data.MapClassStr)
				if !found {
					return ast.Continue, newErr(passMISC1, UnresolvedName, n.Line, "classmapping: map-class %q not found", data.MapClassStr)
				}
				perm, found := resolveName(r.scope(n), symtab.Perms, data.MapPermStr)
				if !found {
					return ast.Continue, newErr(passMISC1, UnresolvedName, n.Line, "classmapping: map-perm %q not found", data.MapPermStr)
				}
				data.MapClass, data.MapPerm = class, perm
				if err := r.resolveClassperms(n, data.Entries); err != nil {
					return ast.Continue, err
				}
			}
		}
		return ast.Continue, nil
	}, nil, nil, nil)

	return false, err
}

func (r *Resolver) resolveClassperms(n *ast.Node, entries []*payload.Classperms) error {
	for _, e := range entries {
		if e.ClasspermsetStr != "" {
			cps, found := resolveName(r.scope(n), symtab.ClassPermSets, e.ClasspermsetStr)
			if !found {
				return newErr(passMISC1, UnresolvedName, n.Line, "classperms: classpermset %q not found", e.ClasspermsetStr)
			}
			_ = cps
			continue
		}
		class, found := resolveName(r.scope(n), symtab.Classes, e.ClassStr)
		if !found {
			return newErr(passMISC1, UnresolvedName, n.Line, "classperms: class %q not found", e.ClassStr)
		}
		e.Class = class
		for _, permName := range e.PermStrs {
			perm, found := resolveName(r.scope(n), symtab.Perms, permName)
			if !found {
				return newErr(passMISC1, UnresolvedName, n.Line, "classperms: perm %q not found on class %q", permName, e.ClassStr)
			}
			e.Perms = append(e.Perms, perm)
		}
	}
	return nil
}

// resolveAliases resolves every alias of the given flavor against the
// given symtab kind, detecting alias cycles by walking the alias chain with
// a visited set.
func (r *Resolver) resolveAliases(flavor ast.Flavor, kind symtab.Kind) error {
	var aliases []*ast.Node
	err := ast.Walk(r.db.Root, func(n *ast.Node, _ any) (ast.Signal, error) {
		if sig, skip := skipDisabled(n); skip {
			return sig, nil
		}
		if n.Flavor == flavor {
			aliases = append(aliases, n)
		}
		return ast.Continue, nil
	}, nil, nil, nil)
	if err != nil {
		return err
	}

	for _, n := range aliases {
		data, ok := n.Data.(*payload.Alias)
		if !ok {
			return newErr(passMISC1, ParseInputMalformed, n.Line, "alias missing payload")
		}

		visited := map[string]bool{n.Datum.Name: true}
		targetStr := data.TargetStr
		curNode := n
		for {
			target, found := resolveName(r.scope(curNode), kind, targetStr)
			if !found {
				return newErr(passMISC1, UnresolvedName, curNode.Line, "alias: %q not found", targetStr)
			}
			if target.Flavor != flavor {
				data.Target = target // resolved to a concrete (non-alias) declaration
				break
			}
			if visited[target.Name] {
				return newErr(passMISC1, RecursiveAlias, n.Line, "alias %q forms a cycle through %q", n.Datum.Name, target.Name)
			}
			visited[target.Name] = true
			curNode = target.PrimaryNode()
			nextData, ok := curNode.Data.(*payload.Alias)
			if !ok {
				return newErr(passMISC1, ParseInputMalformed, curNode.Line, "alias missing payload")
			}
			targetStr = nextData.TargetStr
		}
	}
	return nil
}
