// Package suggest produces advisory remediation text for compliance issues.
package suggest

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"example.com/compliance-auditor/internal/model"
)

// Generator returns suggestion text for an issue. It never fails: problems
// are reported as human readable text.
type Generator interface {
	Generate(ctx context.Context, doc *model.Document, issue model.ComplianceIssue) string
}

// FallibleGenerator exposes the underlying error so callers can avoid
// persisting failure text.
type FallibleGenerator interface {
	Generator
	TryGenerate(ctx context.Context, doc *model.Document, issue model.ComplianceIssue) (string, error)
}

const maxContextRunes = 6000

const systemInstruction = "You are a legal and compliance expert specializing in GDPR, HIPAA and other regulatory frameworks."

// BuildPrompt describes the issue and quotes the affected paragraph, or the
// whole document when the paragraph cannot be found.
func BuildPrompt(doc *model.Document, issue model.ComplianceIssue) string {
	excerpt, scope := "", "contains the following paragraph"
	if p, ok := doc.Paragraphs.Find(issue.ParagraphID); ok {
		excerpt = p.Text
	} else {
		excerpt, scope = truncate(doc.Content, maxContextRunes), "has the following content"
	}
	docType := string(doc.DocumentType)
	if docType == "" {
		docType = "document"
	}
	var b strings.Builder
	b.WriteString("You need to suggest a fix for the following compliance issue.\n\n")
	fmt.Fprintf(&b, "Document context: This is a %s that %s:\n\n%q\n\n", docType, scope, excerpt)
	fmt.Fprintf(&b, "The compliance issue is: %s\n\n", issue.Description)
	fmt.Fprintf(&b, "This issue relates to %s compliance.\n\n", issue.ComplianceType)
	b.WriteString("Please provide a specific clause or text that could be added or modified to fix this issue. ")
	b.WriteString("Keep your response concise and focused on the solution.")
	return b.String()
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}

func errorText(err error) string { return "Error generating suggestion: " + err.Error() }
