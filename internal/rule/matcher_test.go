package rule

import (
	"errors"
	"testing"
)

func TestKeywordMatcherAbsent(t *testing.T) {
	t.Parallel()

	m, err := Compile(TypeKeyword, "purpose, Processing ,collect")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	cases := []struct {
		text   string
		absent bool
	}{
		{"We COLLECT your email.", false},
		{"The processing of records is audited.", false},
		{"Nothing relevant here.", true},
		{"", true},
	}
	for _, c := range cases {
		if got := m.Absent(c.text); got != c.absent {
			t.Fatalf("Absent(%q) = %v, want %v", c.text, got, c.absent)
		}
	}
}

func TestRegexMatcherIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	m, err := Compile(TypeRegex, `right\s+to\s+access`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if m.Absent("You have the RIGHT  TO Access your data.") {
		t.Fatal("expected pattern to be found")
	}
	if !m.Absent("You may request deletion.") {
		t.Fatal("expected pattern to be absent")
	}
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()

	_, err := Compile(TypeRegex, "(unbalanced")
	var ce *CompilationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CompilationError, got %v", err)
	}
	if _, err := Compile(TypeKeyword, " , ,"); !errors.As(err, &ce) {
		t.Fatalf("expected CompilationError for empty keywords, got %v", err)
	}
	if _, err := Compile(TypeSemantic, "anything"); !errors.Is(err, ErrNotEvaluated) {
		t.Fatalf("expected ErrNotEvaluated, got %v", err)
	}
	if _, err := Compile("fuzzy", "x"); !errors.As(err, &ce) {
		t.Fatalf("expected CompilationError for unknown type, got %v", err)
	}
}

func TestSplitKeywords(t *testing.T) {
	t.Parallel()

	got := SplitKeywords("Accounting, disclosure,,DISCLOSURES ")
	want := []string{"accounting", "disclosure", "disclosures"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
