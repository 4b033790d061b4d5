package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"example.com/compliance-auditor/internal/model"
)

// postgresDB returns a transaction bound to a throwaway schema. Everything
// it creates is rolled back when the test ends. Tests using it are skipped
// unless DATABASE_URL is set.
func postgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	tx := db.Begin()
	if tx.Error != nil {
		t.Fatalf("begin: %v", tx.Error)
	}
	t.Cleanup(func() {
		tx.Rollback()
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	schema := "store_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	for _, stmt := range []string{
		fmt.Sprintf("CREATE SCHEMA %s", schema),
		fmt.Sprintf("SET LOCAL search_path TO %s, public", schema),
	} {
		if err := tx.Exec(stmt).Error; err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}
	if err := tx.AutoMigrate(&model.Document{}, &model.ComplianceRule{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return tx
}

func TestRulesPostgres(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rules := NewRules(postgresDB(t))
	mk := func(name string, ct model.ComplianceType, active bool, tags ...string) *model.ComplianceRule {
		r := &model.ComplianceRule{
			Name:           name,
			ComplianceType: ct,
			RuleType:       model.RuleKeyword,
			Pattern:        "consent",
			IsActive:       active,
			Tags:           tags,
		}
		if err := rules.Create(ctx, r); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		return r
	}
	hipaa := mk("notice", model.HIPAA, true, "notice")
	gdpr := mk("access", model.GDPR, true, "rights")
	mk("erasure", model.GDPR, false, "rights")
	mk("sale opt-out", model.CCPA, true)

	active, err := rules.ActiveRules(ctx, []model.ComplianceType{model.HIPAA, model.GDPR})
	if err != nil {
		t.Fatalf("active rules: %v", err)
	}
	if len(active) != 2 || active[0].ID != gdpr.ID || active[1].ID != hipaa.ID {
		t.Fatalf("active = %+v", active)
	}

	tagged, err := rules.List(ctx, RuleFilter{Tag: "rights"})
	if err != nil || len(tagged) != 2 {
		t.Fatalf("tagged = %+v, %v", tagged, err)
	}
	off := false
	inactive, err := rules.List(ctx, RuleFilter{Active: &off})
	if err != nil || len(inactive) != 1 || inactive[0].Name != "erasure" {
		t.Fatalf("inactive = %+v, %v", inactive, err)
	}

	edit := *gdpr
	edit.Pattern = "right of access"
	updated, err := rules.Update(ctx, gdpr.ID, edit)
	if err != nil || updated.Version != 2 {
		t.Fatalf("update = %+v, %v", updated, err)
	}
	edit = *updated
	edit.Description = "wording only"
	if updated, err = rules.Update(ctx, gdpr.ID, edit); err != nil || updated.Version != 2 {
		t.Fatalf("description edit = %+v, %v", updated, err)
	}

	if err := rules.Delete(ctx, gdpr.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := rules.Get(ctx, gdpr.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get deleted: %v", err)
	}
	if err := rules.Delete(ctx, gdpr.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete twice: %v", err)
	}
}

func TestDocumentsQueryPostgres(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	docs := NewDocuments(postgresDB(t))
	for _, d := range []*model.Document{
		{Filename: "Lease-2026.pdf", FilePath: "/u/a", Content: "rent terms", DocumentType: model.DocContract, ComplianceStatus: model.StatusPendingReview},
		{Filename: "privacy.docx", FilePath: "/u/b", Content: "Covers the LEASE of data", DocumentType: model.DocAgreement, ComplianceStatus: model.StatusCompliant},
		{Filename: "notes.txt", FilePath: "/u/c", Content: "nothing here", DocumentType: model.DocOther, ComplianceStatus: model.StatusPendingReview},
	} {
		if err := docs.Insert(ctx, d); err != nil {
			t.Fatalf("insert %s: %v", d.Filename, err)
		}
		if d.ID == uuid.Nil {
			t.Fatalf("insert %s: id not returned", d.Filename)
		}
	}

	got, total, err := docs.Query(ctx, DocumentQuery{Search: "lease", Sort: "filename", Desc: true})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if total != 2 || len(got) != 2 || got[0].Filename != "privacy.docx" || got[1].Filename != "Lease-2026.pdf" {
		t.Fatalf("search = %d %+v", total, got)
	}

	got, total, err = docs.Query(ctx, DocumentQuery{Status: model.StatusPendingReview, Sort: "filename", Skip: 1, Limit: 1})
	if err != nil || total != 2 || len(got) != 1 || got[0].Filename != "notes.txt" {
		t.Fatalf("page = %d %+v %v", total, got, err)
	}

	got, total, err = docs.Query(ctx, DocumentQuery{DocumentType: model.DocAgreement})
	if err != nil || total != 1 || got[0].Filename != "privacy.docx" {
		t.Fatalf("type filter = %d %+v %v", total, got, err)
	}
}

func TestDocumentsComplianceAndSuggestionsPostgres(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	docs := NewDocuments(postgresDB(t))
	d := &model.Document{
		Filename:   "policy.txt",
		FilePath:   "/u/policy.txt",
		Paragraphs: model.Paragraphs{{ID: "p1", Text: "We collect data."}},
	}
	if err := docs.Insert(ctx, d); err != nil {
		t.Fatalf("insert: %v", err)
	}
	issue := model.ComplianceIssue{IssueID: "i-1", RuleID: "r-1", ParagraphID: "p1", Suggestions: []string{}}
	if err := docs.UpdateCompliance(ctx, d.ID, []model.ComplianceIssue{issue}, 0, model.StatusNonCompliant); err != nil {
		t.Fatalf("update compliance: %v", err)
	}

	for _, text := range []string{"Add an access clause.", "Add an access clause.", "Name a contact."} {
		if _, err := docs.AddSuggestion(ctx, d.ID, "i-1", text); err != nil {
			t.Fatalf("add suggestion: %v", err)
		}
	}
	stored, err := docs.Find(ctx, d.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.ComplianceStatus != model.StatusNonCompliant || len(stored.ComplianceIssues) != 1 {
		t.Fatalf("stored = %+v", stored)
	}
	if s := stored.ComplianceIssues[0].Suggestions; len(s) != 2 || s[0] != "Add an access clause." || s[1] != "Name a contact." {
		t.Fatalf("suggestions = %v", s)
	}
	if stored.Paragraphs[0].ID != "p1" {
		t.Fatalf("paragraphs = %+v", stored.Paragraphs)
	}

	if _, err := docs.AddSuggestion(ctx, d.ID, "missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown issue: %v", err)
	}
	if _, err := docs.AddSuggestion(ctx, uuid.New(), "i-1", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown document: %v", err)
	}
	if err := docs.Update(ctx, uuid.New(), map[string]any{"content": "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update unknown: %v", err)
	}
	var ve *model.ValidationError
	if err := docs.Update(ctx, d.ID, map[string]any{"filename": "x"}); !errors.As(err, &ve) {
		t.Fatalf("update filename: %v", err)
	}
}
