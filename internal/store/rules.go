package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"example.com/compliance-auditor/internal/model"
)

type Rules struct{ db *gorm.DB }

func NewRules(db *gorm.DB) *Rules { return &Rules{db: db} }

// ActiveRules returns the active rules for the given compliance types in a
// stable order.
func (s *Rules) ActiveRules(ctx context.Context, types []model.ComplianceType) ([]model.ComplianceRule, error) {
	rules := []model.ComplianceRule{}
	if len(types) == 0 {
		return rules, nil
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	err := s.db.WithContext(ctx).
		Where("is_active = ? AND compliance_type IN ?", true, names).
		Order("compliance_type asc, created_at asc, id asc").
		Find(&rules).Error
	return rules, err
}

type RuleFilter struct {
	ComplianceType model.ComplianceType
	RuleType       model.RuleType
	Active         *bool
	Name           string
	Tag            string
}

func (s *Rules) List(ctx context.Context, f RuleFilter) ([]model.ComplianceRule, error) {
	q := s.db.WithContext(ctx)
	if f.ComplianceType != "" {
		q = q.Where("compliance_type = ?", f.ComplianceType)
	}
	if f.RuleType != "" {
		q = q.Where("rule_type = ?", f.RuleType)
	}
	if f.Active != nil {
		q = q.Where("is_active = ?", *f.Active)
	}
	if f.Name != "" {
		q = q.Where("name ILIKE ?", "%"+f.Name+"%")
	}
	if f.Tag != "" {
		q = q.Where("? = ANY(tags)", f.Tag)
	}
	rules := []model.ComplianceRule{}
	err := q.Order("compliance_type asc, created_at asc").Find(&rules).Error
	return rules, err
}

func (s *Rules) Get(ctx context.Context, id uuid.UUID) (*model.ComplianceRule, error) {
	var r model.ComplianceRule
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func (s *Rules) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.ComplianceRule{}).Count(&n).Error
	return n, err
}

// Create inserts r. The model hook validates the rule definition.
func (s *Rules) Create(ctx context.Context, r *model.ComplianceRule) error {
	r.ID = uuid.Nil
	if r.Version == 0 {
		r.Version = 1
	}
	active := r.IsActive
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(r).Error; err != nil {
			return err
		}
		// gorm skips zero values that have a column default.
		if !active {
			if err := tx.Model(r).Update("is_active", false).Error; err != nil {
				return err
			}
			r.IsActive = false
		}
		return nil
	})
}

// Update replaces the editable fields of rule id with those of in and bumps
// the version when the definition changed.
func (s *Rules) Update(ctx context.Context, id uuid.UUID, in model.ComplianceRule) (*model.ComplianceRule, error) {
	var out model.ComplianceRule
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.ComplianceRule
		if err := tx.First(&existing, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		in.ID = existing.ID
		in.CreatedAt = existing.CreatedAt
		in.Version = existing.Version
		if definitionChanged(existing, in) {
			in.Version++
		}
		if err := in.Validate(); err != nil {
			return err
		}
		if err := tx.Save(&in).Error; err != nil {
			return err
		}
		out = in
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func definitionChanged(a, b model.ComplianceRule) bool {
	return a.RuleType != b.RuleType ||
		a.Pattern != b.Pattern ||
		a.FilePattern != b.FilePattern ||
		a.Condition != b.Condition ||
		a.ComplianceType != b.ComplianceType ||
		a.Severity != b.Severity
}

func (s *Rules) Delete(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&model.ComplianceRule{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
