package ast

// Declare is invoked by Copy whenever it clones a declarative node: it must
// allocate a fresh Datum for the clone, insert it into the destination
// scope's symbol table, and return it. Copy wires the returned Datum onto
// the cloned node itself.
type Declare func(name string, flavor Flavor, clone *Node) (*Datum, error)

// CloneData deep-copies a flavor-specific payload, rewriting any embedded
// name references through subst (macro parameter -> call argument, or block
// parameter -> nothing for plain block-inherit copies). Implementations
// live next to each payload type in package payload, since ast intentionally
// has no knowledge of per-flavor payload shapes.
type CloneData func(flavor Flavor, data any, subst map[string]string) any

// Substitutable is implemented by every per-flavor payload type (see package
// payload). DefaultCloneData uses it so callers that have nothing special to
// do beyond "call Clone" don't need to hand-write a per-flavor dispatch.
type Substitutable interface {
	Clone(subst map[string]string) any
}

// DefaultCloneData is the CloneData implementation used by both CALL1 (macro
// expansion) and BLKIN (block inheritance): every payload type implements
// Substitutable, so there is no need for a flavor-keyed switch here.
func DefaultCloneData(_ Flavor, data any, subst map[string]string) any {
	if s, ok := data.(Substitutable); ok {
		return s.Clone(subst)
	}
	return data
}

// Copy deep-clones the subtree rooted at src into a new node reparented
// under parent, rewriting declarative names via subst and re-declaring a
// fresh Datum for every declarative node via declare.
//
// The clone shares no pointers into the source subtree: every declarative
// node gets its own Datum, and cross-references to names now resolved by
// the source tree are intentionally NOT copied as pointers -- declare's
// caller is responsible for leaving them in string form (in the cloned
// Data) so a later resolver pass re-resolves them against the new scope.
// This is what makes Copy safe to use both for macro-body expansion (CALL1)
// and block-inheritance (BLKIN): the clone is "unresolved" again by
// construction, invariant with the rest of the AST.
func Copy(src *Node, parent *Node, subst map[string]string, declare Declare, cloneData CloneData) (*Node, error) {
	clone := &Node{Flavor: src.Flavor, Line: src.Line}
	if parent != nil {
		parent.AddChild(clone)
	}

	if src.Data != nil && cloneData != nil {
		clone.Data = cloneData(src.Flavor, src.Data, subst)
	}

	if src.Flavor.IsDeclarative() && src.Datum != nil {
		name := src.Datum.Name
		if renamed, ok := subst[name]; ok {
			name = renamed
		}
		datum, err := declare(name, src.Flavor, clone)
		if err != nil {
			return nil, err
		}
		clone.Datum = datum
	}

	for _, child := range src.Children() {
		if _, err := Copy(child, clone, subst, declare, cloneData); err != nil {
			return nil, err
		}
	}

	return clone, nil
}
