package rule

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	TypeRegex    = "regex"
	TypeKeyword  = "keyword"
	TypeSemantic = "semantic"
)

var ErrNotEvaluated = errors.New("rule type is not evaluated")

// CompilationError is returned when a rule pattern cannot be turned into a
// matcher. Rules that fail to compile never raise issues.
type CompilationError struct {
	RuleType string
	Pattern  string
	Err      error
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("compile %s rule %q: %v", e.RuleType, e.Pattern, e.Err)
}

func (e *CompilationError) Unwrap() error { return e.Err }

// Matcher detects the absence of required content in a paragraph.
type Matcher interface {
	// Absent reports whether text lacks what the rule requires.
	Absent(text string) bool
	Kind() string
}

// Compile builds the matcher for ruleType. Semantic rules report
// ErrNotEvaluated.
func Compile(ruleType, pattern string) (Matcher, error) {
	switch ruleType {
	case TypeRegex:
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, &CompilationError{RuleType: ruleType, Pattern: pattern, Err: err}
		}
		return &RegexMatcher{re: re}, nil
	case TypeKeyword:
		phrases := SplitKeywords(pattern)
		if len(phrases) == 0 {
			return nil, &CompilationError{RuleType: ruleType, Pattern: pattern, Err: errors.New("no keywords")}
		}
		return &KeywordMatcher{phrases: phrases}, nil
	case TypeSemantic:
		return nil, ErrNotEvaluated
	default:
		return nil, &CompilationError{RuleType: ruleType, Pattern: pattern, Err: errors.New("unknown rule type")}
	}
}

type RegexMatcher struct{ re *regexp.Regexp }

func (m *RegexMatcher) Absent(text string) bool { return !m.re.MatchString(text) }
func (m *RegexMatcher) Kind() string            { return TypeRegex }

type KeywordMatcher struct{ phrases []string }

func (m *KeywordMatcher) Absent(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range m.phrases {
		if strings.Contains(lower, p) {
			return false
		}
	}
	return true
}

func (m *KeywordMatcher) Kind() string { return TypeKeyword }

func (m *KeywordMatcher) Phrases() []string { return append([]string(nil), m.phrases...) }

// SplitKeywords splits a comma-delimited keyword list into trimmed,
// lower-cased phrases.
func SplitKeywords(pattern string) []string {
	var out []string
	for _, p := range strings.Split(pattern, ",") {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
