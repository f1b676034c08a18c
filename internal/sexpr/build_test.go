package sexpr

import (
	"reflect"
	"testing"

	"github.com/cil-project/cilc/pkg/ast"
	"github.com/cil-project/cilc/pkg/payload"
)

func mustBuild(t *testing.T, src string) *ast.Node {
	t.Helper()
	forms, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	root, err := Build(forms)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return root
}

func onlyChild(t *testing.T, root *ast.Node) *ast.Node {
	t.Helper()
	children := root.Children()
	if len(children) != 1 {
		t.Fatalf("got %d top-level children, want 1", len(children))
	}
	return children[0]
}

func TestBuildSimpleName(t *testing.T) {
	root := mustBuild(t, `(type domain_t)`)
	n := onlyChild(t, root)
	if n.Flavor != ast.Type {
		t.Fatalf("Flavor = %v, want Type", n.Flavor)
	}
	if got, ok := n.Data.(string); !ok || got != "domain_t" {
		t.Fatalf("Data = %#v, want string \"domain_t\"", n.Data)
	}
}

func TestBuildAllowRule(t *testing.T) {
	root := mustBuild(t, `(allow domain_t self (file (read write)))`)
	n := onlyChild(t, root)
	if n.Flavor != ast.Avrule {
		t.Fatalf("Flavor = %v, want Avrule", n.Flavor)
	}
	data, ok := n.Data.(*payload.Avrule)
	if !ok {
		t.Fatalf("Data type = %T, want *payload.Avrule", n.Data)
	}
	if data.Kind != payload.Allowed {
		t.Fatalf("Kind = %v, want Allowed", data.Kind)
	}
	if data.SourceStr != "domain_t" || data.TargetStr != "self" || data.ClassStr != "file" {
		t.Fatalf("unexpected avrule fields: %+v", data)
	}
	if !reflect.DeepEqual(data.PermStrs, []string{"read", "write"}) {
		t.Fatalf("PermStrs = %v, want [read write]", data.PermStrs)
	}
}

func TestBuildAllowRuleWithClasspermset(t *testing.T) {
	root := mustBuild(t, `(allow domain_t self basic_file_perms)`)
	n := onlyChild(t, root)
	data := n.Data.(*payload.Avrule)
	if data.ClassStr != "basic_file_perms" {
		t.Fatalf("ClassStr = %q, want classpermset reference", data.ClassStr)
	}
	if len(data.PermStrs) != 0 {
		t.Fatalf("PermStrs should be empty when class names a classpermset, got %v", data.PermStrs)
	}
}

func TestBuildBlockWithBody(t *testing.T) {
	root := mustBuild(t, `(block foo (type inner_t) (type other_t))`)
	n := onlyChild(t, root)
	if n.Flavor != ast.Block {
		t.Fatalf("Flavor = %v, want Block", n.Flavor)
	}
	if got := n.Data.(string); got != "foo" {
		t.Fatalf("Data = %q, want \"foo\"", got)
	}
	children := n.Children()
	if len(children) != 2 {
		t.Fatalf("got %d body children, want 2", len(children))
	}
	for _, c := range children {
		if c.Flavor != ast.Type {
			t.Fatalf("body child Flavor = %v, want Type", c.Flavor)
		}
	}
}

func TestBuildMacroParamsNotDeclared(t *testing.T) {
	root := mustBuild(t, `(macro my_macro ((type domain) (role r)) (allow domain self (file (read))))`)
	n := onlyChild(t, root)
	if n.Flavor != ast.Macro {
		t.Fatalf("Flavor = %v, want Macro", n.Flavor)
	}
	data := n.Data.(*payload.Macro)
	if data.Name != "my_macro" {
		t.Fatalf("Name = %q, want my_macro", data.Name)
	}
	if len(data.Params) != 2 {
		t.Fatalf("got %d params, want 2", len(data.Params))
	}
	if data.Params[0].FlavorName != "type" || data.Params[0].Name != "domain" {
		t.Fatalf("param[0] = %+v, want {type domain}", data.Params[0])
	}
	// Macro formal parameters are substitution metadata only: they must
	// never appear as declarative children of the macro node.
	if got := len(n.Children()); got != 1 {
		t.Fatalf("macro body children = %d, want 1 (only the allow rule)", got)
	}
}

func TestBuildCall(t *testing.T) {
	root := mustBuild(t, `(call my_macro (domain_t object_r))`)
	n := onlyChild(t, root)
	if n.Flavor != ast.Call {
		t.Fatalf("Flavor = %v, want Call", n.Flavor)
	}
	data := n.Data.(*payload.Call)
	if data.MacroStr != "my_macro" {
		t.Fatalf("MacroStr = %q, want my_macro", data.MacroStr)
	}
	if !reflect.DeepEqual(data.ArgStrs, []string{"domain_t", "object_r"}) {
		t.Fatalf("ArgStrs = %v, want [domain_t object_r]", data.ArgStrs)
	}
}

func TestBuildTypeAlias(t *testing.T) {
	root := mustBuild(t, `(typealias alias_t domain_t)`)
	n := onlyChild(t, root)
	if n.Flavor != ast.Typealias {
		t.Fatalf("Flavor = %v, want Typealias", n.Flavor)
	}
	data := n.Data.(*payload.Alias)
	if data.Name != "alias_t" || data.TargetStr != "domain_t" {
		t.Fatalf("unexpected alias fields: %+v", data)
	}
}

func TestBuildBooleanifPostfix(t *testing.T) {
	root := mustBuild(t, `(booleanif (and b1 (not b2)) (true (allow domain_t self (file (read)))))`)
	n := onlyChild(t, root)
	if n.Flavor != ast.Booleanif {
		t.Fatalf("Flavor = %v, want Booleanif", n.Flavor)
	}
	data := n.Data.(*payload.CondIf)
	want := []string{"b1", "b2", "not", "and"}
	if !reflect.DeepEqual(data.ExprTokens, want) {
		t.Fatalf("ExprTokens = %v, want %v", data.ExprTokens, want)
	}
	children := n.Children()
	if len(children) != 1 || children[0].Flavor != ast.Condtrue {
		t.Fatalf("expected a single Condtrue branch, got %+v", children)
	}
}

func TestBuildConstrainPrefix(t *testing.T) {
	root := mustBuild(t, `(constrain (file) (eq u1 u2))`)
	n := onlyChild(t, root)
	if n.Flavor != ast.Constrain {
		t.Fatalf("Flavor = %v, want Constrain", n.Flavor)
	}
	data := n.Data.(*payload.Constrain)
	want := []string{"eq", "u1", "u2"}
	if !reflect.DeepEqual(data.ExprStrs, want) {
		t.Fatalf("ExprStrs = %v, want %v (prefix order preserved)", data.ExprStrs, want)
	}
}

func TestBuildCategoryRangeLevel(t *testing.T) {
	root := mustBuild(t, `(level sysadm_lvl (s0 (c0 (c1 c10))))`)
	n := onlyChild(t, root)
	if n.Flavor != ast.Level {
		t.Fatalf("Flavor = %v, want Level", n.Flavor)
	}
	data := n.Data.(*payload.Level)
	if data.Name != "sysadm_lvl" || data.SensStr != "s0" {
		t.Fatalf("unexpected level fields: %+v", data)
	}
	if len(data.Cats.CatStrs) != 1 || data.Cats.CatStrs[0] != "c0" {
		t.Fatalf("Cats.CatStrs = %v, want [c0]", data.Cats.CatStrs)
	}
	if len(data.Cats.CatRanges) != 1 || data.Cats.CatRanges[0].LowStr != "c1" || data.Cats.CatRanges[0].HighStr != "c10" {
		t.Fatalf("Cats.CatRanges = %+v, want [{c1 c10}]", data.Cats.CatRanges)
	}
}

func TestBuildUnrecognizedStatement(t *testing.T) {
	forms, err := Parse([]byte(`(bogus a b)`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := Build(forms); err == nil {
		t.Fatalf("expected Build to reject an unrecognized statement")
	}
}

func TestBuildNametypetransitionUnquotesObjName(t *testing.T) {
	root := mustBuild(t, `(nametypetransition domain_t dir_t file "passwd" passwd_t)`)
	n := onlyChild(t, root)
	data := n.Data.(*payload.Nametypetransition)
	if data.ObjName != "passwd" {
		t.Fatalf("ObjName = %q, want unquoted \"passwd\"", data.ObjName)
	}
}

func TestBuildBoolean(t *testing.T) {
	root := mustBuild(t, `(boolean secure_mode true)`)
	n := onlyChild(t, root)
	if n.Flavor != ast.Bool {
		t.Fatalf("Flavor = %v, want Bool", n.Flavor)
	}
	data := n.Data.(*payload.BoolValue)
	if data.Name != "secure_mode" || !data.Value {
		t.Fatalf("unexpected bool fields: %+v", data)
	}
}
