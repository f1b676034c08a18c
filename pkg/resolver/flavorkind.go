package resolver

import (
	"github.com/cil-project/cilc/pkg/ast"
	"github.com/cil-project/cilc/pkg/symtab"
)

// flavorKind maps a declarative Flavor to the symtab.Kind table it is
// inserted into. Several flavors deliberately share a namespace with
// another, mirroring the original compiler's symtab layout: a macro cannot
// be named the same as a sibling block, a typeattribute cannot collide with
// a type, and so on.
func flavorKind(f ast.Flavor) (symtab.Kind, bool) {
	switch f {
	case ast.Block, ast.Macro, ast.Optional:
		return symtab.Blocks, true
	case ast.Class, ast.MapClass:
		return symtab.Classes, true
	case ast.Classpermset:
		return symtab.ClassPermSets, true
	case ast.Perm, ast.MapPerm:
		return symtab.Perms, true
	case ast.Common:
		return symtab.Commons, true
	case ast.Role, ast.Roleattribute:
		return symtab.Roles, true
	case ast.Type, ast.Typeattribute, ast.Typealias:
		return symtab.Types, true
	case ast.User:
		return symtab.Users, true
	case ast.Bool:
		return symtab.Bools, true
	case ast.Tunable:
		return symtab.Tunables, true
	case ast.Sens, ast.Sensalias:
		return symtab.Sens, true
	case ast.Cat, ast.Catalias, ast.Catrange, ast.Catset:
		return symtab.Cats, true
	case ast.Level:
		return symtab.Levels, true
	case ast.Levelrange:
		return symtab.LevelRanges, true
	case ast.Context:
		return symtab.Contexts, true
	case ast.Sid:
		return symtab.Sids, true
	case ast.IPAddr:
		return symtab.IPAddrs, true
	default:
		// ast.Name and ast.Policycap are declarative (they own a Datum, so
		// Copy can clone them through macro/block expansion) but are not
		// cross-referenced by name through a symtab: a `name` datum is only
		// ever reached via the direct pointer its declaration site holds,
		// and policycap names are not looked up at all: no pass checks
		// them against a set of known capability names, so PolicycapUnknown
		// is never raised.
		return 0, false
	}
}
