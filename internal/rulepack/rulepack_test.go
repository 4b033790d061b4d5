package rulepack

import (
	"errors"
	"strings"
	"testing"

	"example.com/compliance-auditor/internal/model"
	"example.com/compliance-auditor/internal/rule"
)

func TestDefaultPack(t *testing.T) {
	t.Parallel()

	rules, err := Default()
	if err != nil {
		t.Fatalf("default pack: %v", err)
	}
	counts := map[model.ComplianceType]int{}
	for _, r := range rules {
		counts[r.ComplianceType]++
		if !r.IsActive || r.SuggestionTemplate == "" || r.Description == "" {
			t.Fatalf("incomplete rule %+v", r)
		}
	}
	if len(rules) != 6 || counts[model.GDPR] != 3 || counts[model.HIPAA] != 3 {
		t.Fatalf("counts = %v", counts)
	}
}

func TestDefaultPackMatchesExpectedText(t *testing.T) {
	t.Parallel()

	rules, err := Default()
	if err != nil {
		t.Fatalf("default pack: %v", err)
	}
	access := rules[0]
	m, err := rule.Compile(string(access.RuleType), access.Pattern)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if m.Absent("You may request access to your records.") {
		t.Fatal("request access should satisfy the access rule")
	}
	if !m.Absent("Payment is due in 30 days.") {
		t.Fatal("unrelated text must not satisfy the access rule")
	}
}

func TestLoadRejectsInvalidRules(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"bad type":    "rules:\n  - {name: x, compliance_type: FERPA, rule_type: regex, pattern: a}\n",
		"bad regex":   "rules:\n  - {name: x, compliance_type: GDPR, rule_type: regex, pattern: '(a'}\n",
		"empty words": "rules:\n  - {name: x, compliance_type: GDPR, rule_type: keyword, pattern: ' , '}\n",
		"unknown key": "rules:\n  - {name: x, compliance_type: GDPR, rule_type: regex, pattern: a, effect: deny}\n",
	}
	for name, src := range cases {
		if _, err := Load(strings.NewReader(src)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}

	_, err := Load(strings.NewReader("rules:\n  - {name: x, compliance_type: GDPR, rule_type: regex, pattern: '(a'}\n"))
	var ce *rule.CompilationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected compilation error, got %T", err)
	}
}

func TestLoadDefaultsSeverityAndActive(t *testing.T) {
	t.Parallel()

	rules, err := Load(strings.NewReader("rules:\n  - name: Card data\n    compliance_type: pci-dss\n    rule_type: keyword\n    pattern: cardholder\n    inactive: true\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	r := rules[0]
	if r.ComplianceType != model.PCI || r.Severity != model.SeverityMedium || r.IsActive {
		t.Fatalf("rule = %+v", r)
	}
}

func TestLoadEmpty(t *testing.T) {
	t.Parallel()

	rules, err := Load(strings.NewReader(""))
	if err != nil || len(rules) != 0 {
		t.Fatalf("rules=%v err=%v", rules, err)
	}
}
