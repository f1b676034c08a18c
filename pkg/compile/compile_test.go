package compile

import (
	"strings"
	"testing"

	"github.com/cil-project/cilc/pkg/pdb"
)

func compileSrc(t *testing.T, src string) *pdb.PDB {
	t.Helper()
	out, err := Compile([]Source{{Name: "test.cil", Text: []byte(src)}}, Options{})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return out
}

func TestCompileSimpleAllow(t *testing.T) {
	out := compileSrc(t, `
(type domain_t)
(type object_t)
(class file (read write))
(allow domain_t object_t (file (read write)))
`)
	nodes := out.Avtab.Nodes()
	if len(nodes) != 1 {
		t.Fatalf("got %d avtab entries, want 1", len(nodes))
	}
	node := nodes[0]
	if node.Key.Kind != pdb.Allow {
		t.Fatalf("Kind = %v, want Allow", node.Key.Kind)
	}
	if node.Key.Source != 1 || node.Key.Target != 2 {
		t.Fatalf("Source/Target = %d/%d, want 1/2", node.Key.Source, node.Key.Target)
	}
	if node.Perms == nil || node.Perms.Count() != 2 {
		t.Fatalf("expected 2 permissions set, got %v", node.Perms)
	}
}

func TestCompileUndeclaredNameFails(t *testing.T) {
	_, err := Compile([]Source{{Name: "bad.cil", Text: []byte(`
(type domain_t)
(allow domain_t missing_t (file (read)))
`)}}, Options{})
	if err == nil {
		t.Fatalf("expected Compile to fail on a reference to an undeclared type")
	}
}

func TestCompileTypealiasResolvesToTarget(t *testing.T) {
	out := compileSrc(t, `
(type domain_t)
(type object_t)
(typealias alias_t object_t)
(class file (read))
(allow domain_t alias_t (file (read)))
`)
	nodes := out.Avtab.Nodes()
	if len(nodes) != 1 {
		t.Fatalf("got %d avtab entries, want 1", len(nodes))
	}
	if got := nodes[0].Key.Target; got != 2 {
		t.Fatalf("Target = %d, want 2 (alias resolves to object_t's own value)", got)
	}
}

func TestCompileNeverallowViolation(t *testing.T) {
	_, err := Compile([]Source{{Name: "na.cil", Text: []byte(`
(type domain_t)
(type object_t)
(class file (read write))
(neverallow domain_t object_t (file (write)))
(allow domain_t object_t (file (read write)))
`)}}, Options{})
	if err == nil {
		t.Fatalf("expected Compile to reject an allow violating a neverallow")
	}
	if !strings.Contains(err.Error(), "neverallow") {
		t.Fatalf("error %q does not mention neverallow", err.Error())
	}
}

func TestCompileTunableifTakenBranch(t *testing.T) {
	out := compileSrc(t, `
(type domain_t)
(type object_t)
(class file (read))
(tunable debug_mode true)
(tunableif debug_mode
  (true (allow domain_t object_t (file (read)))))
`)
	nodes := out.Avtab.Nodes()
	if len(nodes) != 1 {
		t.Fatalf("got %d avtab entries, want 1 (the true branch was taken)", len(nodes))
	}
}

func TestCompileTunableifUntakenBranchDropped(t *testing.T) {
	out := compileSrc(t, `
(type domain_t)
(type object_t)
(class file (read))
(tunable debug_mode false)
(tunableif debug_mode
  (true (allow domain_t object_t (file (read)))))
`)
	nodes := out.Avtab.Nodes()
	if len(nodes) != 0 {
		t.Fatalf("got %d avtab entries, want 0 (the false tunable should drop the true branch)", len(nodes))
	}
}

func TestCompileBooleanifProducesConditional(t *testing.T) {
	out := compileSrc(t, `
(type domain_t)
(type object_t)
(class file (read))
(boolean secure_mode false)
(booleanif secure_mode
  (true (allow domain_t object_t (file (read)))))
`)
	if len(out.Cond) != 1 {
		t.Fatalf("got %d conditionals, want 1", len(out.Cond))
	}
	if len(out.Avtab.Nodes()) != 0 {
		t.Fatalf("booleanif rules must not leak into the unconditional avtab")
	}
}

func TestCompileOptionalDisableCascade(t *testing.T) {
	out := compileSrc(t, `
(type domain_t)
(type object_t)
(class file (read))
(allow domain_t object_t (file (read)))
(optional opt1
  (type t_o)
  (allow domain_t missing (file (read))))
`)
	if len(out.Avtab.Nodes()) != 1 {
		t.Fatalf("got %d avtab entries, want 1 (only the rule outside the optional)", len(out.Avtab.Nodes()))
	}
	if got := out.Avtab.Nodes()[0].Key.Target; got != 2 {
		t.Fatalf("surviving entry's target = %d, want 2 (object_t); t_o must not have been numbered", got)
	}
}

func TestCompileTypealiasChainSharesValue(t *testing.T) {
	out := compileSrc(t, `
(type t)
(typealias a1 t)
(typealias a2 a1)
(type other_t)
(class file (read))
(allow a2 other_t (file (read)))
`)
	nodes := out.Avtab.Nodes()
	if len(nodes) != 1 {
		t.Fatalf("got %d avtab entries, want 1", len(nodes))
	}
	if got := nodes[0].Key.Source; got != 1 {
		t.Fatalf("Source = %d, want 1 (a2 must resolve through a1 to t's own value)", got)
	}
}

func TestCompileCyclicTypealiasFails(t *testing.T) {
	_, err := Compile([]Source{{Name: "cycle.cil", Text: []byte(`
(type t)
(typealias a1 a2)
(typealias a2 a1)
`)}}, Options{})
	if err == nil {
		t.Fatalf("expected Compile to reject a cyclic typealias chain")
	}
	if !strings.Contains(err.Error(), "recursive-alias") {
		t.Fatalf("error %q does not mention recursive-alias", err.Error())
	}
}

func TestCompileMacroSelfExpandsPerCallSite(t *testing.T) {
	out := compileSrc(t, `
(type t_a)
(type t_b)
(class file (read))
(macro m ((type T))
  (allow T self (file (read))))
(call m (t_a))
(call m (t_b))
`)
	nodes := out.Avtab.Nodes()
	if len(nodes) != 2 {
		t.Fatalf("got %d avtab entries, want 2 (one per call site)", len(nodes))
	}
	seen := map[[2]uint32]bool{}
	for _, n := range nodes {
		seen[[2]uint32{n.Key.Source, n.Key.Target}] = true
	}
	if !seen[[2]uint32{1, 1}] || !seen[[2]uint32{2, 2}] {
		t.Fatalf("expected (t_a,t_a) and (t_b,t_b) entries, got %v", seen)
	}
}

func TestCompileNeverallowViolationReversedOrder(t *testing.T) {
	_, err := Compile([]Source{{Name: "na.cil", Text: []byte(`
(type domain_t)
(type object_t)
(class file (read write))
(allow domain_t object_t (file (read write)))
(neverallow domain_t object_t (file (write)))
`)}}, Options{})
	if err == nil {
		t.Fatalf("expected Compile to reject an allow declared before the neverallow it violates")
	}
	if !strings.Contains(err.Error(), "neverallow") {
		t.Fatalf("error %q does not mention neverallow", err.Error())
	}
}

func TestCompileBlockabstractBodyNotMaterializedDirectly(t *testing.T) {
	out := compileSrc(t, `
(type domain_t)
(class file (read))
(block b
  (blockabstract b)
  (type t_o)
  (allow domain_t t_o (file (read))))
`)
	if len(out.Avtab.Nodes()) != 0 {
		t.Fatalf("got %d avtab entries, want 0 (abstract block's body must not lower directly)", len(out.Avtab.Nodes()))
	}
}

func TestCompileDontauditComplementsMask(t *testing.T) {
	out := compileSrc(t, `
(type domain_t)
(type object_t)
(class file (read write))
(dontaudit domain_t object_t (file (read)))
`)
	nodes := out.Avtab.Nodes()
	if len(nodes) != 1 {
		t.Fatalf("got %d avtab entries, want 1", len(nodes))
	}
	if nodes[0].Key.Kind != pdb.DontAudit {
		t.Fatalf("Kind = %v, want DontAudit", nodes[0].Key.Kind)
	}
	if nodes[0].Perms.Get(1) {
		t.Fatalf("read permission bit must be cleared after complementing the dontaudit mask")
	}
	if !nodes[0].Perms.Get(2) {
		t.Fatalf("write permission bit must be set after complementing the dontaudit mask")
	}
}

func TestCompileCategoryRangeExpandsBitmap(t *testing.T) {
	out := compileSrc(t, `
(sensitivity s0)
(category c0)
(category c1)
(category c2)
(category c3)
(categoryorder (c0 c1 c2 c3))
(type t_a)
(type t_b)
(class file (read))
(rangetransition t_a t_b file ((s0 (c0)) (s0 ((c0 c3)))))
`)
	if len(out.RangeTransitions) != 1 {
		t.Fatalf("got %d range transitions, want 1", len(out.RangeTransitions))
	}
	high := out.RangeTransitions[0].Range.High
	for bit := 0; bit < 4; bit++ {
		if !high.Cats.Get(bit) {
			t.Fatalf("high level category bitmap missing bit %d: %v", bit, high.Cats)
		}
	}
	if high.Cats.Count() != 4 {
		t.Fatalf("high level category bitmap has %d bits set, want 4", high.Cats.Count())
	}
}
