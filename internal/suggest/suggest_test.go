package suggest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cloud.google.com/go/vertexai/genai"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"example.com/compliance-auditor/internal/metrics"
	"example.com/compliance-auditor/internal/model"
	"example.com/compliance-auditor/internal/store"
)

func sampleDoc() *model.Document {
	return &model.Document{
		ID:           uuid.New(),
		DocumentType: model.DocContract,
		Content:      "Intro.\n\nWe keep records.",
		Paragraphs: model.Paragraphs{
			{ID: "p1", Text: "Intro."},
			{ID: "p2", Text: "We keep records."},
		},
		ComplianceIssues: datatypes.JSONSlice[model.ComplianceIssue]{
			{IssueID: "i-1", RuleID: "r-1", ParagraphID: "p2", Description: "Document must include information about the right to erasure", ComplianceType: model.GDPR, Suggestions: []string{}},
		},
	}
}

func TestBuildPromptQuotesParagraph(t *testing.T) {
	t.Parallel()

	d := sampleDoc()
	p := BuildPrompt(d, d.ComplianceIssues[0])
	for _, want := range []string{"This is a contract", `"We keep records."`, "right to erasure", "GDPR compliance"} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt lacks %q:\n%s", want, p)
		}
	}
}

func TestBuildPromptFallsBackToContent(t *testing.T) {
	t.Parallel()

	d := sampleDoc()
	is := d.ComplianceIssues[0]
	is.ParagraphID = "p9"
	p := BuildPrompt(d, is)
	if !strings.Contains(p, "has the following content") || !strings.Contains(p, "Intro.") {
		t.Fatalf("prompt = %s", p)
	}
}

func TestTemplateGenerator(t *testing.T) {
	t.Parallel()

	d := sampleDoc()
	g := TemplateGenerator{}
	if s := g.Generate(context.Background(), d, d.ComplianceIssues[0]); !strings.Contains(s, "dpo@example.com") {
		t.Fatalf("suggestion = %q", s)
	}
	other := model.ComplianceIssue{RuleID: "r", ParagraphID: "p1", Description: "Card data", ComplianceType: model.PCI}
	a, b := g.Generate(context.Background(), d, other), g.Generate(context.Background(), d, other)
	if a != b || a == "" {
		t.Fatalf("generic fallback must be stable: %q vs %q", a, b)
	}
}

type fakeModel struct {
	resp   *genai.GenerateContentResponse
	err    error
	prompt string
}

func (f *fakeModel) GenerateContent(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.prompt = string(parts[0].(genai.Text))
	return f.resp, f.err
}

func textResponse(s ...string) *genai.GenerateContentResponse {
	parts := make([]genai.Part, len(s))
	for i, x := range s {
		parts[i] = genai.Text(x)
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}}}
}

func TestVertexGenerator(t *testing.T) {
	t.Parallel()

	d := sampleDoc()
	fm := &fakeModel{resp: textResponse("  Add an erasure clause.", " Contact the DPO. ")}
	g := &VertexGenerator{model: fm, logger: zerolog.Nop()}
	if s := g.Generate(context.Background(), d, d.ComplianceIssues[0]); s != "Add an erasure clause. Contact the DPO." {
		t.Fatalf("suggestion = %q", s)
	}
	if !strings.Contains(fm.prompt, "We keep records.") {
		t.Fatalf("prompt = %s", fm.prompt)
	}

	g.model = &fakeModel{err: errors.New("quota exceeded")}
	if s := g.Generate(context.Background(), d, d.ComplianceIssues[0]); s != "Error generating suggestion: quota exceeded" {
		t.Fatalf("suggestion = %q", s)
	}
	g.model = &fakeModel{resp: &genai.GenerateContentResponse{}}
	if _, err := g.TryGenerate(context.Background(), d, d.ComplianceIssues[0]); err == nil {
		t.Fatal("empty response must be an error")
	}
}

type memDocs struct {
	doc   *model.Document
	added []string
}

func (m *memDocs) Find(_ context.Context, id uuid.UUID) (*model.Document, error) {
	if m.doc == nil || m.doc.ID != id {
		return nil, store.ErrNotFound
	}
	return m.doc, nil
}

func (m *memDocs) AddSuggestion(_ context.Context, _ uuid.UUID, issueID, text string) (*model.ComplianceIssue, error) {
	is := m.doc.Issue(issueID)
	if is.AddSuggestion(text) {
		m.added = append(m.added, text)
	}
	out := *is
	return &out, nil
}

func TestEnricherStoresSuggestionOnce(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	docs := &memDocs{doc: sampleDoc()}
	e := NewEnricher(docs, TemplateGenerator{}, zerolog.Nop(), m)

	for range 2 {
		text, is, err := e.Suggest(context.Background(), docs.doc.ID, "i-1")
		if err != nil {
			t.Fatalf("suggest: %v", err)
		}
		if len(is.Suggestions) != 1 || is.Suggestions[0] != text {
			t.Fatalf("issue = %+v", is)
		}
	}
	if len(docs.added) != 1 {
		t.Fatalf("added = %q", docs.added)
	}
	if got := testutil.ToFloat64(m.SuggestionsTotal.WithLabelValues("ok")); got != 2 {
		t.Fatalf("ok suggestions = %v", got)
	}
}

func TestEnricherDoesNotPersistFailures(t *testing.T) {
	t.Parallel()

	docs := &memDocs{doc: sampleDoc()}
	g := &VertexGenerator{model: &fakeModel{err: errors.New("unavailable")}, logger: zerolog.Nop()}
	text, _, err := NewEnricher(docs, g, zerolog.Nop(), nil).Suggest(context.Background(), docs.doc.ID, "i-1")
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if text != "Error generating suggestion: unavailable" || len(docs.added) != 0 {
		t.Fatalf("text=%q added=%q", text, docs.added)
	}
}

func TestEnricherNotFound(t *testing.T) {
	t.Parallel()

	docs := &memDocs{doc: sampleDoc()}
	e := NewEnricher(docs, TemplateGenerator{}, zerolog.Nop(), nil)
	if _, _, err := e.Suggest(context.Background(), uuid.New(), "i-1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing document: %v", err)
	}
	if _, _, err := e.Suggest(context.Background(), docs.doc.ID, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("missing issue: %v", err)
	}
}
