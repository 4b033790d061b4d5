package suggest

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"example.com/compliance-auditor/internal/metrics"
	"example.com/compliance-auditor/internal/model"
	"example.com/compliance-auditor/internal/store"
)

type DocumentStore interface {
	Find(ctx context.Context, id uuid.UUID) (*model.Document, error)
	AddSuggestion(ctx context.Context, docID uuid.UUID, issueID, text string) (*model.ComplianceIssue, error)
}

// Enricher generates a suggestion for one issue and stores it on the
// document.
type Enricher struct {
	docs    DocumentStore
	gen     Generator
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

func NewEnricher(docs DocumentStore, gen Generator, logger zerolog.Logger, m *metrics.Metrics) *Enricher {
	return &Enricher{docs: docs, gen: gen, logger: logger, metrics: m}
}

// Suggest returns the generated text and the issue as stored afterwards.
// Failure text from the generator is returned but never persisted.
func (e *Enricher) Suggest(ctx context.Context, docID uuid.UUID, issueID string) (string, *model.ComplianceIssue, error) {
	doc, err := e.docs.Find(ctx, docID)
	if err != nil {
		return "", nil, err
	}
	issue := doc.Issue(issueID)
	if issue == nil {
		return "", nil, store.ErrNotFound
	}

	var text string
	if fg, ok := e.gen.(FallibleGenerator); ok {
		s, err := fg.TryGenerate(ctx, doc, *issue)
		if err != nil {
			e.metrics.ObserveSuggestion("error")
			return errorText(err), issue, nil
		}
		text = s
	} else {
		text = e.gen.Generate(ctx, doc, *issue)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		e.metrics.ObserveSuggestion("empty")
		return "", issue, nil
	}

	updated, err := e.docs.AddSuggestion(ctx, docID, issueID, text)
	if err != nil {
		return "", nil, err
	}
	e.metrics.ObserveSuggestion("ok")
	e.logger.Info().
		Str("document_id", docID.String()).
		Str("issue_id", issueID).
		Int("suggestions", len(updated.Suggestions)).
		Msg("suggestion stored")
	return text, updated, nil
}
