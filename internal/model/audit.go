package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// ComplianceCheck records one evaluation run and the per-rule trace.
type ComplianceCheck struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	DocumentID      uuid.UUID      `gorm:"type:uuid;index"`
	ComplianceTypes pq.StringArray `gorm:"type:text[]"`
	Score           float64
	Status          ComplianceStatus
	IssueCount      int
	Trace           datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt       time.Time
}
