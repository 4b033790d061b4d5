package document

import "strings"

var contentHints = []struct {
	kind     string
	keywords []string
}{
	{"privacy_policy", []string{"privacy policy", "privacy notice", "privacy statement", "personal data", "personal information"}},
	{"medical_record", []string{"patient name", "date of birth", "medical record", "diagnosis"}},
}

// Classify guesses what the text is about from a small keyword table. The
// result is advisory and recorded in metadata only.
func Classify(text string) (kind string, confidence float64) {
	lower := strings.ToLower(text)
	for _, h := range contentHints {
		for _, k := range h.keywords {
			if strings.Contains(lower, k) {
				return h.kind, 0.8
			}
		}
	}
	return "unknown", 0.3
}
