package model

import (
	"gorm.io/gorm"

	"example.com/compliance-auditor/internal/rule"
)

func (r *ComplianceRule) BeforeCreate(tx *gorm.DB) (err error) {
	return r.Validate()
}

func (r *ComplianceRule) BeforeUpdate(tx *gorm.DB) (err error) {
	if tx.Statement.Changed("RuleType", "Pattern", "FilePattern", "Condition", "Severity", "ComplianceType") {
		return r.Validate()
	}
	return nil
}

// Validate checks the enums and compiles every expression the rule carries.
func (r *ComplianceRule) Validate() error {
	if r.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if _, err := ParseComplianceType(string(r.ComplianceType)); err != nil {
		return err
	}
	if !r.RuleType.Valid() {
		return &ValidationError{Field: "rule_type", Reason: "must be one of regex, keyword, semantic"}
	}
	if r.Severity == "" {
		r.Severity = SeverityMedium
	}
	if !r.Severity.Valid() {
		return &ValidationError{Field: "severity", Reason: "must be one of high, medium, low"}
	}
	if err := rule.ValidateDefinition(string(r.RuleType), r.Pattern, r.FilePattern, r.Condition); err != nil {
		return &ValidationError{Field: "definition", Reason: err.Error(), Err: err}
	}
	return nil
}

func (j *BulkJob) BeforeCreate(tx *gorm.DB) (err error) {
	if len(j.Files) == 0 {
		return &ValidationError{Field: "files", Reason: "at least one file is required"}
	}
	if j.TotalFiles == 0 {
		j.TotalFiles = len(j.Files)
	}
	return nil
}
