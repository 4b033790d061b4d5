// Package eval scores documents against the active compliance rules.
package eval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"example.com/compliance-auditor/internal/metrics"
	"example.com/compliance-auditor/internal/model"
	"example.com/compliance-auditor/internal/rule"
)

// RuleStore supplies active rules for a set of compliance types.
type RuleStore interface {
	ActiveRules(ctx context.Context, types []model.ComplianceType) ([]model.ComplianceRule, error)
}

// DocumentWriter persists the outcome of a check onto the document record.
type DocumentWriter interface {
	UpdateCompliance(ctx context.Context, id uuid.UUID, issues []model.ComplianceIssue, score float64, status model.ComplianceStatus) error
}

// Auditor records check runs. Failures are logged and otherwise ignored.
type Auditor interface {
	RecordCheck(ctx context.Context, c *model.ComplianceCheck) error
}

type TraceItem struct {
	RuleID  uuid.UUID `json:"rule_id"`
	Applied bool      `json:"applied"`
	Issues  int       `json:"issues"`
	Reason  string    `json:"reason,omitempty"`
	Error   string    `json:"error,omitempty"`
}

type Result struct {
	Issues []model.ComplianceIssue `json:"issues"`
	Score  float64                 `json:"score"`
	Status model.ComplianceStatus  `json:"status"`
	Trace  []TraceItem             `json:"trace,omitempty"`
}

type programEntry struct {
	revision string
	matcher  rule.Matcher
	cond     cel.Program
	err      error
}

type Engine struct {
	rules   RuleStore
	docs    DocumentWriter
	auditor Auditor
	conds   *rule.ConditionEnv
	cache   sync.Map
	logger  zerolog.Logger
	metrics *metrics.Metrics
	newID   func() string
	now     func() time.Time
}

type Option func(*Engine)

func WithLogger(l zerolog.Logger) Option     { return func(e *Engine) { e.logger = l } }
func WithMetrics(m *metrics.Metrics) Option  { return func(e *Engine) { e.metrics = m } }
func WithAuditor(a Auditor) Option           { return func(e *Engine) { e.auditor = a } }
func WithIDGenerator(f func() string) Option { return func(e *Engine) { e.newID = f } }
func WithClock(now func() time.Time) Option  { return func(e *Engine) { e.now = now } }

func NewEngine(rules RuleStore, docs DocumentWriter, opts ...Option) (*Engine, error) {
	conds, err := rule.NewConditionEnv()
	if err != nil {
		return nil, err
	}
	e := &Engine{
		rules:  rules,
		docs:   docs,
		conds:  conds,
		logger: zerolog.Nop(),
		newID:  func() string { return uuid.NewString() },
		now:    time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Evaluate checks doc against the active rules of the given types, persists
// the issues, score and status, and returns them. An empty type list is a
// no-op. Only store failures are returned as errors.
func (e *Engine) Evaluate(ctx context.Context, doc *model.Document, types []model.ComplianceType) (Result, error) {
	if len(types) == 0 {
		return Result{Issues: []model.ComplianceIssue{}, Score: 100, Status: model.StatusCompliant}, nil
	}
	start := e.now()
	rules, err := e.rules.ActiveRules(ctx, types)
	if err != nil {
		return Result{}, fmt.Errorf("load rules: %w", err)
	}

	paragraphs := doc.Paragraphs.WithIDs()
	facts := factsFor(doc)
	prior := make(map[string][]string, len(doc.ComplianceIssues))
	for _, is := range doc.ComplianceIssues {
		if len(is.Suggestions) > 0 {
			prior[is.Key()] = append(prior[is.Key()], is.Suggestions...)
		}
	}

	type active struct {
		rule    model.ComplianceRule
		matcher rule.Matcher
		trace   int
	}
	var (
		applicable []active
		trace      = make([]TraceItem, 0, len(rules))
	)
	for _, r := range rules {
		item, m := e.prepare(r, facts)
		trace = append(trace, item)
		if m != nil {
			applicable = append(applicable, active{rule: r, matcher: m, trace: len(trace) - 1})
		}
	}

	issues := []model.ComplianceIssue{}
	seen := make(map[string]bool)
	flagged := make(map[string]bool)
	for _, p := range paragraphs {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		for _, a := range applicable {
			if !a.matcher.Absent(p.Text) {
				continue
			}
			is := model.ComplianceIssue{
				IssueID:        e.newID(),
				RuleID:         a.rule.ID.String(),
				ParagraphID:    p.ID,
				Description:    a.rule.IssueDescription(),
				Severity:       a.rule.Severity,
				ComplianceType: a.rule.ComplianceType,
				Suggestions:    []string{},
			}
			if seen[is.Key()] {
				continue
			}
			seen[is.Key()] = true
			for _, s := range prior[is.Key()] {
				is.AddSuggestion(s)
			}
			is.AddSuggestion(strings.TrimSpace(a.rule.SuggestionTemplate))
			issues = append(issues, is)
			flagged[p.ID] = true
			trace[a.trace].Issues++
		}
	}

	score := Score(len(paragraphs), len(flagged))
	res := Result{Issues: issues, Score: score, Status: Status(len(issues), score), Trace: trace}

	if err := e.docs.UpdateCompliance(ctx, doc.ID, res.Issues, res.Score, res.Status); err != nil {
		return Result{}, fmt.Errorf("persist compliance: %w", err)
	}
	doc.ComplianceIssues = res.Issues
	doc.ComplianceScore = res.Score
	doc.ComplianceStatus = res.Status

	e.persistAudit(ctx, doc.ID, types, res)
	e.observe(res, e.now().Sub(start))
	e.logger.Info().
		Str("document_id", doc.ID.String()).
		Int("rules", len(rules)).
		Int("issues", len(res.Issues)).
		Float64("score", res.Score).
		Str("status", string(res.Status)).
		Msg("compliance evaluated")
	return res, nil
}

// prepare decides whether r applies to the document and returns its matcher
// when it does.
func (e *Engine) prepare(r model.ComplianceRule, facts rule.Facts) (TraceItem, rule.Matcher) {
	item := TraceItem{RuleID: r.ID}
	entry := e.compileOrGet(r)
	if entry.err != nil {
		item.Reason = "rule failed to compile"
		item.Error = entry.err.Error()
		if errors.Is(entry.err, rule.ErrNotEvaluated) {
			item.Reason = "semantic rules are not evaluated"
			return item, nil
		}
		e.metrics.RuleCompileError()
		e.logger.Error().Err(entry.err).
			Str("rule_id", r.ID.String()).
			Str("pattern", r.Pattern).
			Msg("rule skipped")
		return item, nil
	}

	ok, err := rule.FileMatch(r.FilePattern, facts.Filename)
	if err != nil {
		item.Reason = "file pattern failed to compile"
		item.Error = err.Error()
		return item, nil
	}
	if !ok {
		item.Reason = "file pattern not matched"
		return item, nil
	}
	if entry.cond != nil {
		f := facts
		f.ComplianceType = string(r.ComplianceType)
		ok, err := rule.Applies(entry.cond, f)
		if err != nil {
			item.Reason = "condition evaluation failed"
			item.Error = "runtime: " + err.Error()
			e.logger.Warn().Err(err).Str("rule_id", r.ID.String()).Msg("condition failed")
			return item, nil
		}
		if !ok {
			item.Reason = "condition not met"
			return item, nil
		}
	}
	item.Applied = true
	return item, entry.matcher
}

func (e *Engine) compileOrGet(r model.ComplianceRule) programEntry {
	rev := revision(r)
	if v, ok := e.cache.Load(r.ID); ok {
		if pe := v.(programEntry); pe.revision == rev {
			return pe
		}
	}
	pe := programEntry{revision: rev}
	pe.matcher, pe.err = rule.Compile(string(r.RuleType), r.Pattern)
	if pe.err == nil && strings.TrimSpace(r.Condition) != "" {
		prog, err := e.conds.Compile(r.Condition)
		if err != nil {
			pe.matcher, pe.err = nil, fmt.Errorf("condition: %w", err)
		} else {
			pe.cond = prog
		}
	}
	e.cache.Store(r.ID, pe)
	return pe
}

func revision(r model.ComplianceRule) string {
	return strings.Join([]string{string(r.RuleType), r.Pattern, r.Condition, fmt.Sprint(r.Version)}, "\x00")
}

func (e *Engine) persistAudit(ctx context.Context, docID uuid.UUID, types []model.ComplianceType, res Result) {
	if e.auditor == nil {
		return
	}
	tb, _ := json.Marshal(res.Trace)
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	c := &model.ComplianceCheck{
		DocumentID:      docID,
		ComplianceTypes: names,
		Score:           res.Score,
		Status:          res.Status,
		IssueCount:      len(res.Issues),
		Trace:           tb,
	}
	if err := e.auditor.RecordCheck(ctx, c); err != nil {
		e.logger.Warn().Err(err).Str("document_id", docID.String()).Msg("audit record failed")
	}
}

func (e *Engine) observe(res Result, d time.Duration) {
	if e.metrics == nil {
		return
	}
	counts := make(map[[2]string]int)
	for _, is := range res.Issues {
		counts[[2]string{string(is.ComplianceType), string(is.Severity)}]++
	}
	e.metrics.ObserveEvaluation(string(res.Status), counts, d)
}

func (e *Engine) Invalidate(id uuid.UUID) { e.cache.Delete(id) }

func (e *Engine) InvalidateAll() {
	e.cache.Range(func(k, _ any) bool { e.cache.Delete(k); return true })
}

// Score is the share of paragraphs without issues, as a percentage. A
// document without paragraphs scores 100.
func Score(total, withIssues int) float64 {
	if total == 0 {
		return 100
	}
	return 100 * (1 - float64(withIssues)/float64(total))
}

func Status(issues int, score float64) model.ComplianceStatus {
	switch {
	case issues == 0:
		return model.StatusCompliant
	case score < 50:
		return model.StatusNonCompliant
	default:
		return model.StatusPartiallyCompliant
	}
}

func factsFor(doc *model.Document) rule.Facts {
	f := rule.Facts{
		DocumentType: string(doc.DocumentType),
		Filename:     doc.Filename,
		Metadata:     map[string]any(doc.Metadata),
	}
	if v, ok := doc.Metadata["format"].(string); ok {
		f.Format = v
	}
	switch v := doc.Metadata["word_count"].(type) {
	case int:
		f.WordCount = v
	case int64:
		f.WordCount = int(v)
	case float64:
		f.WordCount = int(v)
	default:
		f.WordCount = len(strings.Fields(doc.Content))
	}
	return f
}
