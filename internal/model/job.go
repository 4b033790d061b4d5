package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

func (s JobStatus) Finished() bool { return s == JobCompleted || s == JobFailed }

type BulkJob struct {
	ID              uuid.UUID                      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name            string                         `json:"name"`
	Status          JobStatus                      `gorm:"not null;default:'pending';index" json:"status"`
	ComplianceTypes pq.StringArray                 `gorm:"type:text[]" json:"compliance_types"`
	Files           pq.StringArray                 `gorm:"type:text[]" json:"files"`
	TotalFiles      int                            `json:"total_files"`
	ProcessedFiles  int                            `json:"processed_files"`
	Results         datatypes.JSONSlice[JobResult] `gorm:"type:jsonb" json:"results"`
	Error           string                         `gorm:"type:text" json:"error,omitempty"`
	CreatedAt       time.Time                      `json:"created_at"`
	UpdatedAt       time.Time                      `json:"updated_at"`
}

type JobResult struct {
	File             string           `json:"file"`
	Status           string           `json:"status"`
	DocumentID       string           `json:"document_id,omitempty"`
	ComplianceScore  float64          `json:"compliance_score"`
	ComplianceStatus ComplianceStatus `json:"compliance_status,omitempty"`
	IssueCount       int              `json:"issue_count"`
	Error            string           `json:"error,omitempty"`
}
