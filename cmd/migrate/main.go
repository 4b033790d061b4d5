package main

import (
	"context"

	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"example.com/compliance-auditor/internal/config"
	"example.com/compliance-auditor/internal/logging"
	"example.com/compliance-auditor/internal/model"
	"example.com/compliance-auditor/internal/rulepack"
	"example.com/compliance-auditor/internal/store"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Log.Level, cfg.Log.Pretty, nil)
	if cfg.Database.URL == "" {
		logger.Fatal().Msg("DATABASE_URL is required")
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.URL), &gorm.Config{})
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}

	db.Exec("CREATE EXTENSION IF NOT EXISTS pgcrypto;")
	db.Exec("CREATE EXTENSION IF NOT EXISTS pg_trgm;")

	m := gormigrate.New(db, gormigrate.DefaultOptions, migrations())
	if err := m.Migrate(); err != nil {
		logger.Fatal().Err(err).Msg("migrate")
	}
	logger.Info().Msg("migrations applied")

	n, err := seed(context.Background(), store.NewRules(db), cfg.Compliance.RulesFile, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed rules")
	}
	logger.Info().Int("rules", n).Msg("rule pack seeded")
}

func migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "20260301_create_documents",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&model.Document{}); err != nil {
					return err
				}
				if err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_documents_metadata ON documents USING gin (metadata);`).Error; err != nil {
					return err
				}
				if err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_documents_filename_trgm ON documents USING gin (filename gin_trgm_ops);`).Error; err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents (created_at DESC);`).Error
			},
			Rollback: func(tx *gorm.DB) error { return tx.Migrator().DropTable("documents") },
		},
		{
			ID: "20260301_create_compliance_rules",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&model.ComplianceRule{}); err != nil {
					return err
				}
				if err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_compliance_rules_tags ON compliance_rules USING gin (tags);`).Error; err != nil {
					return err
				}
				if err := tx.Exec(`ALTER TABLE compliance_rules ADD CONSTRAINT rule_type_check CHECK (rule_type IN ('regex','keyword','semantic'));`).Error; err != nil {
					// ignore if exists
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error { return tx.Migrator().DropTable("compliance_rules") },
		},
		{
			ID: "20260302_create_compliance_checks",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&model.ComplianceCheck{})
			},
			Rollback: func(tx *gorm.DB) error { return tx.Migrator().DropTable("compliance_checks") },
		},
		{
			ID: "20260310_create_bulk_jobs",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&model.BulkJob{})
			},
			Rollback: func(tx *gorm.DB) error { return tx.Migrator().DropTable("bulk_jobs") },
		},
	}
}

// seed inserts the rule pack when the rule table is empty.
func seed(ctx context.Context, rules *store.Rules, path string, logger zerolog.Logger) (int, error) {
	n, err := rules.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.Info().Int64("existing", n).Msg("rules present, skipping seed")
		return 0, nil
	}
	pack, err := rulepack.Default()
	if path != "" {
		pack, err = rulepack.LoadFile(path)
	}
	if err != nil {
		return 0, err
	}
	for i := range pack {
		if err := rules.Create(ctx, &pack[i]); err != nil {
			return i, err
		}
	}
	return len(pack), nil
}
