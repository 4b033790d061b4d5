package store

import (
	"errors"
	"fmt"
	"testing"

	"gorm.io/gorm"

	"example.com/compliance-auditor/internal/model"
)

func TestDocumentQueryNormalize(t *testing.T) {
	t.Parallel()

	q := DocumentQuery{Sort: "content; drop table", Skip: -4, Limit: 5000, Search: "  lease "}.Normalize()
	if q.Sort != "created_at" || q.Skip != 0 || q.Limit != maxLimit || q.Search != "lease" {
		t.Fatalf("normalized = %+v", q)
	}
	if q := (DocumentQuery{Sort: "compliance_score", Desc: true}).Normalize(); q.Limit != defaultLimit || q.order().Column.Name != "compliance_score" || !q.order().Desc {
		t.Fatalf("normalized = %+v", q)
	}
}

func TestNotFoundMapping(t *testing.T) {
	t.Parallel()

	if !errors.Is(notFound(fmt.Errorf("first: %w", gorm.ErrRecordNotFound)), ErrNotFound) {
		t.Fatal("record not found must map to ErrNotFound")
	}
	other := errors.New("dial tcp: refused")
	if notFound(other) != other {
		t.Fatal("other errors pass through")
	}
}

func TestDefinitionChanged(t *testing.T) {
	t.Parallel()

	a := model.ComplianceRule{RuleType: model.RuleKeyword, Pattern: "a", Severity: model.SeverityLow}
	b := a
	b.Name = "renamed"
	b.Description = "new text"
	if definitionChanged(a, b) {
		t.Fatal("cosmetic edits must not bump the version")
	}
	b.Pattern = "a, b"
	if !definitionChanged(a, b) {
		t.Fatal("pattern edits must bump the version")
	}
}
