package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

type ComplianceRule struct {
	ID                 uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name               string            `gorm:"not null" json:"name"`
	Description        string            `gorm:"type:text" json:"description"`
	ComplianceType     ComplianceType    `gorm:"not null;index" json:"compliance_type"`
	RuleType           RuleType          `gorm:"not null" json:"rule_type"`
	Pattern            string            `gorm:"type:text;not null" json:"pattern"`
	Severity           Severity          `gorm:"not null;default:'medium'" json:"severity"`
	SuggestionTemplate string            `gorm:"type:text" json:"suggestion_template,omitempty"`
	// FilePattern is a glob over the document filename; empty matches all.
	FilePattern        string            `json:"file_pattern,omitempty"`
	// Condition is a CEL expression over the document; empty means always.
	Condition          string            `gorm:"type:text" json:"condition,omitempty"`
	Tags               pq.StringArray    `gorm:"type:text[]" json:"tags,omitempty"`
	Metadata           datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	IsActive           bool              `gorm:"default:true;index" json:"is_active"`
	Version            int               `gorm:"default:1" json:"version"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// IssueDescription is the text attached to issues the rule raises.
func (r ComplianceRule) IssueDescription() string {
	if r.Description != "" {
		return r.Description
	}
	return r.Name
}
