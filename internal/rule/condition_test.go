package rule

import "testing"

func TestConditionApplies(t *testing.T) {
	t.Parallel()

	env, err := NewConditionEnv()
	if err != nil {
		t.Fatalf("env: %v", err)
	}
	prog, err := env.Compile(`format == "pdf" && word_count > 10 && metadata["page_count"] == 2`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	ok, err := Applies(prog, Facts{Format: "pdf", WordCount: 42, Metadata: map[string]any{"page_count": 2}})
	if err != nil || !ok {
		t.Fatalf("expected condition to apply, got %v, %v", ok, err)
	}
	ok, err = Applies(prog, Facts{Format: "docx", WordCount: 42, Metadata: map[string]any{"page_count": 2}})
	if err != nil || ok {
		t.Fatalf("expected condition not to apply, got %v, %v", ok, err)
	}
}

func TestConditionRejectsNonBool(t *testing.T) {
	t.Parallel()

	env, err := NewConditionEnv()
	if err != nil {
		t.Fatalf("env: %v", err)
	}
	if _, err := env.Compile(`word_count + 1`); err == nil {
		t.Fatal("expected non-bool condition to be rejected")
	}
	if _, err := env.Compile(`unknown_var == 1`); err == nil {
		t.Fatal("expected undeclared variable to be rejected")
	}
}

func TestFileMatch(t *testing.T) {
	t.Parallel()

	cases := []struct {
		pattern, name string
		want          bool
	}{
		{"", "a.pdf", true},
		{"*", "a.pdf", true},
		{"*.pdf", "Contract.PDF", true},
		{"*.pdf", "contract.docx", false},
		{"hr_*", "hr_handbook.docx", true},
	}
	for _, c := range cases {
		got, err := FileMatch(c.pattern, c.name)
		if err != nil {
			t.Fatalf("FileMatch(%q, %q): %v", c.pattern, c.name, err)
		}
		if got != c.want {
			t.Fatalf("FileMatch(%q, %q) = %v, want %v", c.pattern, c.name, got, c.want)
		}
	}
}

func TestValidateDefinition(t *testing.T) {
	t.Parallel()

	if err := ValidateDefinition(TypeRegex, `notice\s+of`, "*.pdf", `format == "pdf"`); err != nil {
		t.Fatalf("expected valid rule, got %v", err)
	}
	if err := ValidateDefinition(TypeSemantic, "explain data retention", "", ""); err != nil {
		t.Fatalf("semantic rules only need a pattern, got %v", err)
	}
	bad := []struct{ typ, pattern, file, cond string }{
		{TypeRegex, "", "", ""},
		{TypeRegex, "(", "", ""},
		{TypeKeyword, "a,b", "[", ""},
		{TypeKeyword, "a,b", "", "format =="},
	}
	for _, b := range bad {
		if err := ValidateDefinition(b.typ, b.pattern, b.file, b.cond); err == nil {
			t.Fatalf("expected error for %+v", b)
		}
	}
}
