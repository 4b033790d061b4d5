package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/compliance-auditor/internal/model"
)

type Documents struct{ db *gorm.DB }

func NewDocuments(db *gorm.DB) *Documents { return &Documents{db: db} }

func (s *Documents) Find(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	var d model.Document
	if err := s.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (s *Documents) Insert(ctx context.Context, d *model.Document) error {
	return s.db.WithContext(ctx).Create(d).Error
}

// updatable lists the columns callers may change after ingestion.
var updatable = map[string]bool{
	"content":           true,
	"document_type":     true,
	"paragraphs":        true,
	"metadata":          true,
	"compliance_score":  true,
	"compliance_status": true,
	"compliance_issues": true,
}

// Update applies a partial update. Unknown or immutable columns are
// rejected.
func (s *Documents) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	for k := range fields {
		if !updatable[k] {
			return &model.ValidationError{Field: k, Reason: "cannot be updated"}
		}
	}
	if dt, ok := fields["document_type"]; ok {
		if _, err := model.ParseDocumentType(fmt.Sprint(dt)); err != nil {
			return err
		}
	}
	fields["updated_at"] = time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&model.Document{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateCompliance replaces the issue list, score and status in one write.
func (s *Documents) UpdateCompliance(ctx context.Context, id uuid.UUID, issues []model.ComplianceIssue, score float64, status model.ComplianceStatus) error {
	if issues == nil {
		issues = []model.ComplianceIssue{}
	}
	return s.Update(ctx, id, map[string]any{
		"compliance_issues": datatypes.NewJSONSlice(issues),
		"compliance_score":  score,
		"compliance_status": status,
	})
}

type DocumentQuery struct {
	Search       string
	DocumentType model.DocumentType
	Status       model.ComplianceStatus
	Sort         string
	Desc         bool
	Skip         int
	Limit        int
}

var sortColumns = map[string]string{
	"created_at":       "created_at",
	"updated_at":       "updated_at",
	"filename":         "filename",
	"compliance_score": "compliance_score",
}

const (
	defaultLimit = 20
	maxLimit     = 200
)

// Normalize fills defaults and clamps paging. Unknown sort keys fall back
// to created_at.
func (q DocumentQuery) Normalize() DocumentQuery {
	if _, ok := sortColumns[q.Sort]; !ok {
		q.Sort = "created_at"
	}
	if q.Skip < 0 {
		q.Skip = 0
	}
	switch {
	case q.Limit <= 0:
		q.Limit = defaultLimit
	case q.Limit > maxLimit:
		q.Limit = maxLimit
	}
	q.Search = strings.TrimSpace(q.Search)
	return q
}

func (q DocumentQuery) order() clause.OrderByColumn {
	return clause.OrderByColumn{Column: clause.Column{Name: sortColumns[q.Sort]}, Desc: q.Desc}
}

// Query returns one page of documents and the total number matching the
// filter.
func (s *Documents) Query(ctx context.Context, q DocumentQuery) ([]model.Document, int64, error) {
	q = q.Normalize()
	tx := s.db.WithContext(ctx).Model(&model.Document{})
	if q.Search != "" {
		like := "%" + q.Search + "%"
		tx = tx.Where("filename ILIKE ? OR content ILIKE ?", like, like)
	}
	if q.DocumentType != "" {
		tx = tx.Where("document_type = ?", q.DocumentType)
	}
	if q.Status != "" {
		tx = tx.Where("compliance_status = ?", q.Status)
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	docs := []model.Document{}
	err := tx.Order(q.order()).Order("id").Offset(q.Skip).Limit(q.Limit).Find(&docs).Error
	return docs, total, err
}

// AddSuggestion appends text to an issue's suggestions unless it is
// already there. The document row is locked for the read-modify-write.
func (s *Documents) AddSuggestion(ctx context.Context, docID uuid.UUID, issueID, text string) (*model.ComplianceIssue, error) {
	var out model.ComplianceIssue
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var d model.Document
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&d, "id = ?", docID).Error; err != nil {
			return notFound(err)
		}
		is := d.Issue(issueID)
		if is == nil {
			return ErrNotFound
		}
		if is.AddSuggestion(text) {
			err := tx.Model(&d).Updates(map[string]any{
				"compliance_issues": d.ComplianceIssues,
				"updated_at":        time.Now().UTC(),
			}).Error
			if err != nil {
				return err
			}
		}
		out = *is
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
