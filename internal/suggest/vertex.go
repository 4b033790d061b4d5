package suggest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"github.com/rs/zerolog"

	"example.com/compliance-auditor/internal/model"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// VertexGenerator asks a Gemini model on Vertex AI for a remediation clause.
type VertexGenerator struct {
	model   contentGenerator
	client  *genai.Client
	timeout time.Duration
	logger  zerolog.Logger
}

func NewVertexGenerator(ctx context.Context, projectID, region, modelName string, logger zerolog.Logger) (*VertexGenerator, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("vertex generator: projectID and region cannot be empty")
	}
	client, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	m := client.GenerativeModel(modelName)
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemInstruction)},
	}
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:     genai.Ptr[float32](0.5),
		MaxOutputTokens: genai.Ptr[int32](300),
	}
	return &VertexGenerator{model: m, client: client, timeout: 30 * time.Second, logger: logger}, nil
}

func (g *VertexGenerator) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *VertexGenerator) Generate(ctx context.Context, doc *model.Document, issue model.ComplianceIssue) string {
	s, err := g.TryGenerate(ctx, doc, issue)
	if err != nil {
		return errorText(err)
	}
	return s
}

func (g *VertexGenerator) TryGenerate(ctx context.Context, doc *model.Document, issue model.ComplianceIssue) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	resp, err := g.model.GenerateContent(ctx, genai.Text(BuildPrompt(doc, issue)))
	if err != nil {
		g.logger.Error().Err(err).Str("issue_id", issue.IssueID).Msg("vertex call failed")
		return "", err
	}
	text := responseText(resp)
	if text == "" {
		return "", errors.New("empty response from model")
	}
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(b.String())
}
