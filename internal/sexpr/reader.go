// Package sexpr reads CIL's concrete syntax -- a stream of parenthesized
// s-expressions -- into a generic, library-independent Form tree, the way
// pkg/vm and pkg/jack's parsing.go read their own concrete syntaxes into a
// goparsec AST before walking it into an in-memory IR. Splitting the read
// (text -> Form) from the build (Form -> *ast.Node, in build.go) keeps the
// goparsec grammar itself the only part of the module that has to know
// about parenthesized syntax.
package sexpr

import (
	"fmt"

	pc "github.com/prataprc/goparsec"
)

// Form is one parsed s-expression: either a bare atom (an identifier,
// number or quoted string, kept as its literal text) or a parenthesized
// list of further Forms.
type Form struct {
	List  bool
	Atom  string
	Items []*Form
	Line  uint32
}

// Atoms renders a list Form's items as a flat string slice, for
// statements whose tail is a simple name list (e.g. "(typeattributeset attr
// (t1 t2 t3))").
func (f *Form) Atoms() []string {
	out := make([]string, 0, len(f.Items))
	for _, item := range f.Items {
		out = append(out, item.Atom)
	}
	return out
}

var grammar = pc.NewAST("cil_program", 100)

var (
	pIdent  = pc.Token(`[A-Za-z_][A-Za-z0-9_.\-]*`, "IDENT")
	pNumber = pc.Token(`-?[0-9]+`, "NUMBER")
	pString = pc.Token(`"[^"]*"`, "STRING")
	pAtom   = grammar.OrdChoice("atom", nil, pNumber, pString, pIdent)

	pComment = grammar.And("comment", nil, pc.Atom(";", "SEMI"), pc.Token(`(?m).*$`, "COMMENT"))

	pLParen = pc.Atom("(", "LPAREN")
	pRParen = pc.Atom(")", "RPAREN")

	pItem = grammar.OrdChoice("item", nil, pComment, &pList, pAtom)
	pList = grammar.And("list", nil, pLParen, grammar.Kleene("items", nil, pItem), pRParen)

	pProgram = grammar.ManyUntil("program", nil, grammar.OrdChoice("top", nil, pComment, &pList), pc.End())
)

// Parse reads every top-level s-expression in src, skipping comments.
func Parse(src []byte) ([]*Form, error) {
	root, _ := grammar.Parsewith(pProgram, pc.NewScanner(src))
	if root == nil {
		return nil, fmt.Errorf("sexpr: unable to parse input")
	}
	var forms []*Form
	for _, child := range root.GetChildren() {
		if child.GetName() == "comment" {
			continue
		}
		forms = append(forms, fromQueryable(child))
	}
	return forms, nil
}

func fromQueryable(n pc.Queryable) *Form {
	if n.GetName() != "list" {
		return &Form{Atom: n.GetValue()}
	}
	f := &Form{List: true}
	for _, child := range n.GetChildren() {
		if child.GetName() != "items" {
			continue
		}
		for _, item := range child.GetChildren() {
			if item.GetName() == "comment" {
				continue
			}
			f.Items = append(f.Items, fromQueryable(item))
		}
	}
	return f
}
