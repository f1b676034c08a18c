package resolver

import (
	"github.com/cil-project/cilc/pkg/ast"
	"github.com/cil-project/cilc/pkg/payload"
	"github.com/cil-project/cilc/pkg/symtab"
)

// passMISC2 resolves role/type relationships that depend on nothing beyond
// ordinary name lookup: roletype, userrole, userlevel, userrange,
// roleattributeset, typeattributeset, bounds, roletransition, roleallow and
// typepermissive.
func (r *Resolver) passMISC2() (bool, error) {
	return false, ast.Walk(r.db.Root, func(n *ast.Node, _ any) (ast.Signal, error) {
		if sig, skip := skipDisabled(n); skip {
			return sig, nil
		}
		switch n.Flavor {
		case ast.Roletype:
			data := n.Data.(*payload.Roletype)
			role, found := resolveName(r.scope(n), symtab.Roles, data.RoleStr)
			if !found {
				return ast.Continue, newErr(passMISC2, UnresolvedName, n.Line, "roletype: role %q not found", data.RoleStr)
			}
			typ, found := resolveName(r.scope(n), symtab.Types, data.TypeStr)
			if !found {
				return ast.Continue, newErr(passMISC2, UnresolvedName, n.Line, "roletype: type %q not found", data.TypeStr)
			}
			data.Role, data.Type = role, typ

		case ast.Userrole:
			data := n.Data.(*payload.Userrole)
			user, found := resolveName(r.scope(n), symtab.Users, data.UserStr)
			if !found {
				return ast.Continue, newErr(passMISC2, UnresolvedName, n.Line, "userrole: user %q not found", data.UserStr)
			}
			role, found := resolveName(r.scope(n), symtab.Roles, data.RoleStr)
			if !found {
				return ast.Continue, newErr(passMISC2, UnresolvedName, n.Line, "userrole: role %q not found", data.RoleStr)
			}
			data.User, data.Role = user, role

		case ast.Userlevel:
			data := n.Data.(*payload.Userlevel)
			user, found := resolveName(r.scope(n), symtab.Users, data.UserStr)
			if !found {
				return ast.Continue, newErr(passMISC2, UnresolvedName, n.Line, "userlevel: user %q not found", data.UserStr)
			}
			data.User = user
			if data.Level != nil && data.Level.SensStr != "" {
				sens, found := resolveName(r.scope(n), symtab.Sens, data.Level.SensStr)
				if !found {
					return ast.Continue, newErr(passMISC2, UnresolvedName, n.Line, "userlevel: sensitivity %q not found", data.Level.SensStr)
				}
				data.Level.Sens = sens
			}

		case ast.Userrange:
			data := n.Data.(*payload.Userrange)
			user, found := resolveName(r.scope(n), symtab.Users, data.UserStr)
			if !found {
				return ast.Continue, newErr(passMISC2, UnresolvedName, n.Line, "userrange: user %q not found", data.UserStr)
			}
			data.User = user

		case ast.Roleattributeset, ast.Typeattributeset:
			data := n.Data.(*payload.AttributeSet)
			kind := symtab.Roles
			if n.Flavor == ast.Typeattributeset {
				kind = symtab.Types
			}
			attr, found := resolveName(r.scope(n), kind, data.AttrStr)
			if !found {
				return ast.Continue, newErr(passMISC2, UnresolvedName, n.Line, "%s: attribute %q not found", n.Flavor, data.AttrStr)
			}
			data.Attr = attr
			for i := range data.Operands {
				op := &data.Operands[i]
				name, found := resolveName(r.scope(n), kind, op.NameStr)
				if !found {
					return ast.Continue, newErr(passMISC2, UnresolvedName, n.Line, "%s: %q not found", n.Flavor, op.NameStr)
				}
				op.Name = name
			}

		case ast.Typebounds, ast.Rolebounds, ast.Userbounds:
			data := n.Data.(*payload.Bounds)
			kind := symtab.Types
			switch n.Flavor {
			case ast.Rolebounds:
				kind = symtab.Roles
			case ast.Userbounds:
				kind = symtab.Users
			}
			child, found := resolveName(r.scope(n), kind, data.ChildStr)
			if !found {
				return ast.Continue, newErr(passMISC2, UnresolvedName, n.Line, "%s: %q not found", n.Flavor, data.ChildStr)
			}
			parent, found := resolveName(r.scope(n), kind, data.ParentStr)
			if !found {
				return ast.Continue, newErr(passMISC2, UnresolvedName, n.Line, "%s: %q not found", n.Flavor, data.ParentStr)
			}
			data.Child, data.Parent = child, parent

		case ast.Roletransition:
			data := n.Data.(*payload.Roletransition)
			src, found := resolveName(r.scope(n), symtab.Roles, data.SourceStr)
			if !found {
				return ast.Continue, newErr(passMISC2, UnresolvedName, n.Line, "roletransition: role %q not found", data.SourceStr)
			}
			tgt, found := resolveName(r.scope(n), symtab.Types, data.TargetStr)
			if !found {
				return ast.Continue, newErr(passMISC2, UnresolvedName, n.Line, "roletransition: type %q not found", data.TargetStr)
			}
			class, found := resolveName(r.scope(n), symtab.Classes, data.ClassStr)
			if !found {
				return ast.Continue, newErr(passMISC2, UnresolvedName, n.Line, "roletransition: class %q not found", data.ClassStr)
			}
			newRole, found := resolveName(r.scope(n), symtab.Roles, data.NewRoleStr)
			if !found {
				return ast.Continue, newErr(passMISC2, UnresolvedName, n.Line, "roletransition: new role %q not found", data.NewRoleStr)
			}
			data.Source, data.Target, data.Class, data.NewRole = src, tgt, class, newRole

		case ast.Roleallow:
			data := n.Data.(*payload.Roleallow)
			src, found := resolveName(r.scope(n), symtab.Roles, data.SourceStr)
			if !found {
				return ast.Continue, newErr(passMISC2, UnresolvedName, n.Line, "roleallow: role %q not found", data.SourceStr)
			}
			newRole, found := resolveName(r.scope(n), symtab.Roles, data.NewRoleStr)
			if !found {
				return ast.Continue, newErr(passMISC2, UnresolvedName, n.Line, "roleallow: role %q not found", data.NewRoleStr)
			}
			data.Source, data.NewRole = src, newRole

		case ast.Typepermissive:
			data := n.Data.(*payload.Typepermissive)
			typ, found := resolveName(r.scope(n), symtab.Types, data.TypeStr)
			if !found {
				return ast.Continue, newErr(passMISC2, UnresolvedName, n.Line, "typepermissive: type %q not found", data.TypeStr)
			}
			data.Type = typ
		}
		return ast.Continue, nil
	}, nil, nil, nil)
}
