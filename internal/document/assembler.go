// Package document assembles persisted documents from extraction results.
package document

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"example.com/compliance-auditor/internal/extract"
	"example.com/compliance-auditor/internal/model"
	"example.com/compliance-auditor/internal/segment"
)

type Extractor interface {
	Extract(ctx context.Context, path string, data []byte) extract.Result
}

type Store interface {
	Insert(ctx context.Context, doc *model.Document) error
}

type Assembler struct {
	extractor Extractor
	store     Store
	logger    zerolog.Logger
	newID     func() uuid.UUID
	now       func() time.Time
}

type Option func(*Assembler)

func WithLogger(l zerolog.Logger) Option { return func(a *Assembler) { a.logger = l } }

func NewAssembler(ex Extractor, st Store, opts ...Option) *Assembler {
	a := &Assembler{
		extractor: ex,
		store:     st,
		logger:    zerolog.Nop(),
		newID:     uuid.New,
		now:       time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Ingest extracts path (or data when given), builds the document and
// inserts it. A failed extraction still yields a stored document with an
// empty body and the error recorded in metadata.
func (a *Assembler) Ingest(ctx context.Context, path, filename string, data []byte) (*model.Document, error) {
	res := a.extractor.Extract(ctx, path, data)
	doc := a.Assemble(res, path, filename)
	if err := a.store.Insert(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}
	a.logger.Info().
		Str("document_id", doc.ID.String()).
		Str("filename", doc.Filename).
		Str("document_type", string(doc.DocumentType)).
		Int("paragraphs", len(doc.Paragraphs)).
		Msg("document ingested")
	return doc, nil
}

// Assemble converts an extraction result into an unsaved document.
func (a *Assembler) Assemble(res extract.Result, path, filename string) *model.Document {
	if filename == "" {
		filename = res.Filename
	}
	var paragraphs model.Paragraphs
	if len(res.Paragraphs) > 0 {
		paragraphs = segment.Adopt(res.Paragraphs)
	} else {
		paragraphs = segment.Segment(res.Text)
	}
	if paragraphs == nil {
		paragraphs = model.Paragraphs{}
	}

	md := datatypes.JSONMap{}
	for k, v := range res.Metadata {
		md[k] = v
	}
	if _, ok := md["format"]; !ok {
		md["format"] = res.Format
	}
	md["file_format"] = strings.ToLower(filepath.Ext(filename))
	md["file_size"] = res.Size
	md["character_count"] = res.Statistics.CharCount
	md["word_count"] = res.Statistics.WordCount
	md["line_count"] = res.Statistics.LineCount
	md["paragraph_count"] = len(paragraphs)
	md["extracted_at"] = res.ExtractedAt.Format(time.RFC3339)
	if res.Error != "" {
		md["extraction_error"] = res.Error
	}
	if len(res.Structure) > 0 {
		md["structure"] = res.Structure
	}
	kind, confidence := Classify(res.Text)
	md["detected_type"] = kind
	md["detected_type_confidence"] = confidence

	now := a.now().UTC()
	return &model.Document{
		ID:               a.newID(),
		Filename:         filename,
		FilePath:         path,
		Content:          segment.Join(paragraphs),
		DocumentType:     model.DocumentTypeForFormat(res.Format),
		Paragraphs:       paragraphs,
		ComplianceScore:  0,
		ComplianceStatus: model.StatusPendingReview,
		ComplianceIssues: datatypes.JSONSlice[model.ComplianceIssue]{},
		Metadata:         md,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}
