package resolver

import (
	"github.com/hashicorp/go-multierror"

	"github.com/cil-project/cilc/pkg/ast"
	"github.com/cil-project/cilc/pkg/payload"
	"github.com/cil-project/cilc/pkg/symtab"
)

// callStack threads the chain of macros currently being expanded through a
// single passCALL1 walk, so a macro that (directly or transitively) calls
// itself is caught as RecursiveCall instead of recursing forever.
type callStack struct{ names []string }

func (c *callStack) push(name string) bool {
	for _, n := range c.names {
		if n == name {
			return false
		}
	}
	c.names = append(c.names, name)
	return true
}

func (c *callStack) pop() { c.names = c.names[:len(c.names)-1] }

// passCALL1 expands every `call` site: resolves the macro, builds the
// parameter->argument substitution map, deep-copies the macro body into the
// call site via ast.Copy, and re-declares every clone into the call site's
// own scope. A call whose macro cannot be found disables the nearest
// enclosing optional rather than failing outright; anywhere else it is a
// hard UnresolvedName error.
func (r *Resolver) passCALL1() (bool, error) {
	var diag *multierror.Error
	disabled := false

	var stack callStack
	var expand ast.Hook
	expand = func(n *ast.Node, _ any) (ast.Signal, error) {
		if sig, skip := skipDisabled(n); skip {
			return sig, nil
		}
		if n.Flavor != ast.Call {
			return ast.Continue, nil
		}
		data, ok := n.Data.(*payload.Call)
		if !ok {
			return ast.Continue, newErr(passCALL1, ParseInputMalformed, n.Line, "call missing payload")
		}

		macro, found := resolveName(r.scope(n), symtab.Blocks, data.MacroStr)
		if !found || macro.Flavor != ast.Macro {
			err := newErr(passCALL1, UnresolvedName, n.Line, "call: macro %q not found", data.MacroStr)
			if opt := nearestOptional(n); opt != nil {
				diag = r.disableOptional(diag, opt.Datum, err)
				disabled = true
				return ast.SkipSubtree, nil
			}
			return ast.Continue, err
		}
		data.Macro = macro

		if !stack.push(macro.Name) {
			return ast.Continue, newErr(passCALL1, RecursiveCall, n.Line, "macro %q calls itself (directly or transitively)", macro.Name)
		}
		defer stack.pop()

		macroNode := macro.PrimaryNode()
		macroData, ok := macroNode.Data.(*payload.Macro)
		if !ok {
			return ast.Continue, newErr(passCALL1, ParseInputMalformed, macroNode.Line, "macro %q missing parameter payload", macro.Name)
		}
		if len(macroData.Params) != len(data.ArgStrs) {
			return ast.Continue, newErr(passCALL1, TypeMismatch, n.Line, "macro %q: expected %d arguments, got %d", macro.Name, len(macroData.Params), len(data.ArgStrs))
		}

		subst := make(map[string]string, len(macroData.Params))
		for i, p := range macroData.Params {
			subst[p.Name] = data.ArgStrs[i]
		}

		callSite := n.Parent
		callSiteScope := r.scope(n)
		declare := func(name string, flavor ast.Flavor, clone *ast.Node) (*ast.Datum, error) {
			datum := ast.NewDatum(name, flavor, clone)
			if kind, ok := flavorKind(flavor); ok {
				if err := callSiteScope.Insert(kind, name, datum); err != nil {
					return nil, newErr(passCALL1, DuplicateDeclaration, clone.Line, "%q: %v", name, err)
				}
			}
			r.scopeOf[clone] = callSiteScope
			return datum, nil
		}

		for _, child := range macroNode.Children() {
			clone, err := ast.Copy(child, callSite, subst, declare, ast.DefaultCloneData)
			if err != nil {
				return ast.Continue, newErr(passCALL1, ParseInputMalformed, n.Line, "%v", err)
			}
			reparentScope(r, clone, callSiteScope)
			if err := ast.Walk(clone, expand, nil, nil, nil); err != nil {
				return ast.Continue, err
			}
		}
		n.Parent.RemoveChild(n)

		return ast.SkipSubtree, nil
	}
	err := ast.Walk(r.db.Root, expand, nil, nil, nil)

	if err != nil {
		return false, err
	}
	if diag != nil && len(diag.Errors) > 0 {
		r.log.Warnf("CALL1: %d call sites disabled their enclosing optional: %v", len(diag.Errors), diag)
	}
	return disabled, nil
}

// passCALL2 re-resolves every remaining call-derived cross-reference that
// CALL1's substitution left in string form but deferred (arguments that
// name a classpermset, a catset, or another compound reference the cloned
// payload could not settle without the destination scope's full symtab).
// In this implementation every such reference is a plain name lookup
// already handled by the flavor-specific MISC passes, so passCALL2 only
// asserts no `call` nodes survived CALL1.
func (r *Resolver) passCALL2() (bool, error) {
	var stray *ast.Node
	err := ast.Walk(r.db.Root, func(n *ast.Node, _ any) (ast.Signal, error) {
		if sig, skip := skipDisabled(n); skip {
			return sig, nil
		}
		if n.Flavor == ast.Call && stray == nil {
			stray = n
		}
		return ast.Continue, nil
	}, nil, nil, nil)
	if err != nil {
		return false, err
	}
	if stray != nil {
		return false, newErr(passCALL2, ParseInputMalformed, stray.Line, "call node survived CALL1 expansion")
	}
	return false, nil
}

// nearestOptional returns the closest enclosing Optional ancestor of n, or
// nil if n is not nested in one.
func nearestOptional(n *ast.Node) *ast.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Flavor == ast.Optional {
			return p
		}
	}
	return nil
}
