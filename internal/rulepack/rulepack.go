// Package rulepack loads compliance rule sets from YAML.
package rulepack

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"example.com/compliance-auditor/internal/model"
)

//go:embed default.yaml
var defaultPack []byte

type file struct {
	Rules []entry `yaml:"rules"`
}

type entry struct {
	Name               string         `yaml:"name"`
	Description        string         `yaml:"description"`
	ComplianceType     string         `yaml:"compliance_type"`
	RuleType           string         `yaml:"rule_type"`
	Pattern            string         `yaml:"pattern"`
	Severity           string         `yaml:"severity"`
	SuggestionTemplate string         `yaml:"suggestion_template"`
	FilePattern        string         `yaml:"file_pattern"`
	Condition          string         `yaml:"condition"`
	Tags               []string       `yaml:"tags"`
	Metadata           map[string]any `yaml:"metadata"`
	Inactive           bool           `yaml:"inactive"`
}

// Default returns the embedded GDPR and HIPAA rules.
func Default() ([]model.ComplianceRule, error) {
	return Load(bytes.NewReader(defaultPack))
}

func LoadFile(path string) ([]model.ComplianceRule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Load decodes and validates a rule pack. The first invalid rule fails the
// whole pack.
func Load(r io.Reader) ([]model.ComplianceRule, error) {
	var pf file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&pf); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode rule pack: %w", err)
	}
	rules := make([]model.ComplianceRule, 0, len(pf.Rules))
	for i, e := range pf.Rules {
		ct, err := model.ParseComplianceType(e.ComplianceType)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i+1, e.Name, err)
		}
		r := model.ComplianceRule{
			Name:               e.Name,
			Description:        e.Description,
			ComplianceType:     ct,
			RuleType:           model.RuleType(e.RuleType),
			Pattern:            e.Pattern,
			Severity:           model.Severity(e.Severity),
			SuggestionTemplate: e.SuggestionTemplate,
			FilePattern:        e.FilePattern,
			Condition:          e.Condition,
			Tags:               e.Tags,
			Metadata:           e.Metadata,
			IsActive:           !e.Inactive,
			Version:            1,
		}
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i+1, e.Name, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}
