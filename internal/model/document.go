package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Document struct {
	ID               uuid.UUID                            `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Filename         string                               `gorm:"not null" json:"filename"`
	FilePath         string                               `gorm:"not null" json:"file_path"`
	Content          string                               `gorm:"type:text" json:"content"`
	DocumentType     DocumentType                         `gorm:"not null;default:'other';index" json:"document_type"`
	Paragraphs       Paragraphs                           `gorm:"type:jsonb" json:"paragraphs"`
	ComplianceScore  float64                              `gorm:"default:0" json:"compliance_score"`
	ComplianceStatus ComplianceStatus                     `gorm:"not null;default:'pending_review';index" json:"compliance_status"`
	ComplianceIssues datatypes.JSONSlice[ComplianceIssue] `gorm:"type:jsonb" json:"compliance_issues"`
	Metadata         datatypes.JSONMap                    `gorm:"type:jsonb" json:"metadata"`
	CreatedAt        time.Time                            `json:"created_at"`
	UpdatedAt        time.Time                            `json:"updated_at"`
}

// Issue returns a pointer into ComplianceIssues so callers can mutate it.
func (d *Document) Issue(issueID string) *ComplianceIssue {
	for i := range d.ComplianceIssues {
		if d.ComplianceIssues[i].IssueID == issueID {
			return &d.ComplianceIssues[i]
		}
	}
	return nil
}

type ComplianceIssue struct {
	IssueID        string         `json:"issue_id"`
	RuleID         string         `json:"rule_id"`
	ParagraphID    string         `json:"paragraph_id"`
	Description    string         `json:"description"`
	Severity       Severity       `json:"severity"`
	ComplianceType ComplianceType `json:"compliance_type"`
	Suggestions    []string       `json:"suggestions"`
}

// Key identifies the (rule, paragraph) pair an issue was raised for.
func (i ComplianceIssue) Key() string { return i.RuleID + "/" + i.ParagraphID }

// AddSuggestion appends s unless it is blank or already present.
func (i *ComplianceIssue) AddSuggestion(s string) bool {
	if s == "" {
		return false
	}
	for _, have := range i.Suggestions {
		if have == s {
			return false
		}
	}
	i.Suggestions = append(i.Suggestions, s)
	return true
}
