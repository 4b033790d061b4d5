package model

import (
	"fmt"
	"strings"
)

type ComplianceType string

const (
	GDPR  ComplianceType = "GDPR"
	HIPAA ComplianceType = "HIPAA"
	CCPA  ComplianceType = "CCPA"
	SOX   ComplianceType = "SOX"
	PCI   ComplianceType = "PCI_DSS"
)

var complianceTypes = []ComplianceType{GDPR, HIPAA, CCPA, SOX, PCI}

func ComplianceTypes() []ComplianceType {
	out := make([]ComplianceType, len(complianceTypes))
	copy(out, complianceTypes)
	return out
}

// ParseComplianceType accepts any casing and the "PCI-DSS" spelling.
func ParseComplianceType(s string) (ComplianceType, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	v = strings.ReplaceAll(v, "-", "_")
	for _, t := range complianceTypes {
		if string(t) == v {
			return t, nil
		}
	}
	return "", &ValidationError{Field: "compliance_type", Reason: fmt.Sprintf("unknown compliance type %q", s)}
}

// ParseComplianceTypes parses a list, dropping duplicates while keeping order.
func ParseComplianceTypes(in []string) ([]ComplianceType, error) {
	out := make([]ComplianceType, 0, len(in))
	seen := map[ComplianceType]bool{}
	for _, s := range in {
		if strings.TrimSpace(s) == "" {
			continue
		}
		t, err := ParseComplianceType(s)
		if err != nil {
			return nil, err
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out, nil
}

type RuleType string

const (
	RuleRegex   RuleType = "regex"
	RuleKeyword RuleType = "keyword"
	// RuleSemantic is accepted by the store but never evaluated.
	RuleSemantic RuleType = "semantic"
)

func (t RuleType) Valid() bool {
	switch t {
	case RuleRegex, RuleKeyword, RuleSemantic:
		return true
	}
	return false
}

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

type ComplianceStatus string

const (
	StatusCompliant          ComplianceStatus = "compliant"
	StatusNonCompliant       ComplianceStatus = "non_compliant"
	StatusPartiallyCompliant ComplianceStatus = "partially_compliant"
	StatusPendingReview      ComplianceStatus = "pending_review"
)

type DocumentType string

const (
	DocContract  DocumentType = "contract"
	DocPolicy    DocumentType = "policy"
	DocAgreement DocumentType = "agreement"
	DocTerms     DocumentType = "terms"
	DocPrivacy   DocumentType = "privacy"
	DocMedical   DocumentType = "medical"
	DocFinancial DocumentType = "financial"
	DocOther     DocumentType = "other"
)

// DocumentTypeForFormat maps a file format (extension without the dot) to
// the document type recorded at ingestion.
func DocumentTypeForFormat(format string) DocumentType {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "pdf":
		return DocContract
	case "docx", "doc":
		return DocAgreement
	default:
		return DocOther
	}
}

func ParseDocumentType(s string) (DocumentType, error) {
	t := DocumentType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case DocContract, DocPolicy, DocAgreement, DocTerms, DocPrivacy, DocMedical, DocFinancial, DocOther:
		return t, nil
	}
	return "", &ValidationError{Field: "document_type", Reason: fmt.Sprintf("unknown document type %q", s)}
}

func ParseComplianceStatus(s string) (ComplianceStatus, error) {
	st := ComplianceStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusCompliant, StatusNonCompliant, StatusPartiallyCompliant, StatusPendingReview:
		return st, nil
	}
	return "", &ValidationError{Field: "compliance_status", Reason: fmt.Sprintf("unknown status %q", s)}
}
