package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"example.com/compliance-auditor/internal/model"
)

// Checks keeps the history of compliance evaluations.
type Checks struct{ db *gorm.DB }

func NewChecks(db *gorm.DB) *Checks { return &Checks{db: db} }

func (s *Checks) RecordCheck(ctx context.Context, c *model.ComplianceCheck) error {
	return s.db.WithContext(ctx).Create(c).Error
}

// History returns the most recent checks of a document, newest first.
func (s *Checks) History(ctx context.Context, docID uuid.UUID, limit int) ([]model.ComplianceCheck, error) {
	if limit <= 0 {
		limit = 20
	}
	checks := []model.ComplianceCheck{}
	err := s.db.WithContext(ctx).
		Where("document_id = ?", docID).
		Order("created_at desc").
		Limit(limit).
		Find(&checks).Error
	return checks, err
}
