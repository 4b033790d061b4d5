package suggest

import (
	"context"
	"hash/fnv"
	"strings"

	"example.com/compliance-auditor/internal/model"
)

type phrase struct{ keyword, text string }

var canned = map[model.ComplianceType][]phrase{
	model.GDPR: {
		{"right to access", "You have the right to access and obtain a copy of your personal data that we process. To exercise this right, please contact us at privacy@example.com with your request."},
		{"right to erasure", "You have the right to request the deletion of your personal data in certain circumstances. To exercise your right to erasure, please contact our Data Protection Officer at dpo@example.com."},
		{"data processing", "We collect and process your personal data for the following specific purposes: (1) to provide our services to you, (2) to improve our website functionality, (3) to communicate with you about our products and services, and (4) to comply with legal obligations."},
	},
	model.HIPAA: {
		{"notice of privacy", "This Notice of Privacy Practices describes how we may use and disclose your protected health information to carry out treatment, payment, or healthcare operations and for other purposes permitted or required by law."},
		{"right to amend", "You have the right to request that we amend your health information if you believe it is incorrect or incomplete. To request an amendment, please submit your request in writing to our Privacy Officer at privacy@example.com."},
		{"disclosure accounting", "You have the right to receive an accounting of certain disclosures we have made of your protected health information for purposes other than treatment, payment, healthcare operations, or certain other activities."},
		{"accounting of disclosures", "You have the right to receive an accounting of certain disclosures we have made of your protected health information for purposes other than treatment, payment, healthcare operations, or certain other activities."},
	},
}

var generic = []string{
	"We recommend adding a clear clause addressing this compliance requirement in this section of your document.",
	"This section should include specific language about user rights and data handling procedures to meet regulatory requirements.",
	"Consider adding language that explicitly outlines the processes and protections in place to address this compliance concern.",
}

// TemplateGenerator answers from a fixed phrase table and needs no network.
// The generic fallback is picked by hashing the issue key so repeated calls
// agree.
type TemplateGenerator struct{}

func (TemplateGenerator) Generate(_ context.Context, _ *model.Document, issue model.ComplianceIssue) string {
	desc := strings.ToLower(issue.Description)
	for _, p := range canned[issue.ComplianceType] {
		if strings.Contains(desc, p.keyword) {
			return p.text
		}
	}
	h := fnv.New32a()
	h.Write([]byte(issue.Key()))
	return generic[h.Sum32()%uint32(len(generic))]
}
