package sexpr

import "testing"

func TestParseSimpleStatement(t *testing.T) {
	forms, err := Parse([]byte(`(type domain_t)`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(forms) != 1 {
		t.Fatalf("got %d top-level forms, want 1", len(forms))
	}
	f := forms[0]
	if !f.List {
		t.Fatalf("expected a list form")
	}
	if got := f.Atoms(); len(got) != 2 || got[0] != "type" || got[1] != "domain_t" {
		t.Fatalf("Atoms() = %v, want [type domain_t]", got)
	}
}

func TestParseNestedStatement(t *testing.T) {
	forms, err := Parse([]byte(`(allow domain_t self (file (read write)))`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(forms) != 1 {
		t.Fatalf("got %d top-level forms, want 1", len(forms))
	}
	f := forms[0]
	if len(f.Items) != 4 {
		t.Fatalf("got %d items, want 4 (allow, domain_t, self, (file ...))", len(f.Items))
	}
	classForm := f.Items[3]
	if !classForm.List || classForm.Items[0].Atom != "file" {
		t.Fatalf("expected (file (read write)), got %+v", classForm)
	}
	perms := classForm.Items[1]
	if got := perms.Atoms(); len(got) != 2 || got[0] != "read" || got[1] != "write" {
		t.Fatalf("perms Atoms() = %v, want [read write]", got)
	}
}

func TestParseSkipsComments(t *testing.T) {
	forms, err := Parse([]byte("; a leading comment\n(type domain_t) ; trailing\n(type other_t)"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(forms) != 2 {
		t.Fatalf("got %d forms, want 2 (comments should be skipped)", len(forms))
	}
}

func TestParseMultipleTopLevelStatements(t *testing.T) {
	forms, err := Parse([]byte(`(type a_t) (type b_t) (typealias a_t b_t)`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(forms) != 3 {
		t.Fatalf("got %d forms, want 3", len(forms))
	}
}

func TestParseQuotedString(t *testing.T) {
	forms, err := Parse([]byte(`(genfscon proc "/sys" (system_u object_r sysfs_t))`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	f := forms[0]
	if got := f.Items[2].Atom; got != `"/sys"` {
		t.Fatalf("string atom = %q, want %q", got, `"/sys"`)
	}
}
