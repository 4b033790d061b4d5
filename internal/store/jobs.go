package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"example.com/compliance-auditor/internal/model"
)

type Jobs struct{ db *gorm.DB }

func NewJobs(db *gorm.DB) *Jobs { return &Jobs{db: db} }

func (s *Jobs) Create(ctx context.Context, j *model.BulkJob) error {
	return s.db.WithContext(ctx).Create(j).Error
}

func (s *Jobs) Get(ctx context.Context, id uuid.UUID) (*model.BulkJob, error) {
	var j model.BulkJob
	if err := s.db.WithContext(ctx).First(&j, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &j, nil
}

// Save writes the progress fields of j.
func (s *Jobs) Save(ctx context.Context, j *model.BulkJob) error {
	return s.db.WithContext(ctx).Model(j).
		Select("status", "processed_files", "results", "error", "updated_at").
		Updates(j).Error
}

// Unfinished lists jobs that were pending or processing, oldest first.
func (s *Jobs) Unfinished(ctx context.Context) ([]model.BulkJob, error) {
	jobs := []model.BulkJob{}
	err := s.db.WithContext(ctx).
		Where("status IN ?", []model.JobStatus{model.JobPending, model.JobProcessing}).
		Order("created_at asc").
		Find(&jobs).Error
	return jobs, err
}
