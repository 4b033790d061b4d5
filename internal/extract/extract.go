// Package extract turns uploaded files into cleaned text, metadata and
// statistics. Extract never fails: decoder errors degrade to a plain-text
// fallback and finally to an empty result carrying the error message.
package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"example.com/compliance-auditor/internal/metrics"
	"example.com/compliance-auditor/internal/model"
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

// DecodingError wraps a failure inside a single decoder.
type DecodingError struct {
	Decoder string
	Format  string
	Err     error
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("decode %s with %s: %v", e.Format, e.Decoder, e.Err)
}

func (e *DecodingError) Unwrap() error { return e.Err }

type Statistics struct {
	CharCount int `json:"char_count"`
	WordCount int `json:"word_count"`
	LineCount int `json:"line_count"`
}

type Result struct {
	Text        string           `json:"text"`
	Format      string           `json:"format"`
	Filename    string           `json:"filename"`
	Size        int64            `json:"file_size"`
	Metadata    map[string]any   `json:"metadata"`
	Paragraphs  model.Paragraphs `json:"paragraphs,omitempty"`
	Structure   map[string]any   `json:"structure,omitempty"`
	Statistics  Statistics       `json:"statistics"`
	ExtractedAt time.Time        `json:"extracted_at"`
	Error       string           `json:"error,omitempty"`
}

// Decoded is what a decoder hands back before cleaning. Paragraphs is set
// only by decoders that know the document's native structure.
type Decoded struct {
	Text       string
	Metadata   map[string]any
	Paragraphs model.Paragraphs
	Structure  map[string]any
}

type Decoder interface {
	// Name identifies the backend, e.g. "pdfcpu" or "pdf-scan".
	Name() string
	Decode(ctx context.Context, data []byte) (*Decoded, error)
}

// Source loads raw bytes for a path when the caller has none.
type Source interface {
	Open(ctx context.Context, path string) ([]byte, error)
}

type Service struct {
	table   *Registry
	source  Source
	logger  zerolog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*Service)

func WithLogger(l zerolog.Logger) Option    { return func(s *Service) { s.logger = l } }
func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }
func WithRegistry(r *Registry) Option       { return func(s *Service) { s.table = r } }
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(src Source, opts ...Option) *Service {
	s := &Service{
		source: src,
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.table == nil {
		s.table = DefaultRegistry()
	}
	return s
}

// Formats lists the extensions with at least one available decoder.
func (s *Service) Formats() []string { return s.table.Extensions() }

// Extract decodes the file at path. When data is nil the bytes are loaded
// from the configured source.
func (s *Service) Extract(ctx context.Context, path string, data []byte) Result {
	ext := strings.ToLower(filepath.Ext(path))
	format := strings.TrimPrefix(ext, ".")
	res := Result{
		Format:      format,
		Filename:    filepath.Base(path),
		Metadata:    map[string]any{},
		ExtractedAt: s.now().UTC(),
	}
	log := s.logger.With().Str("path", path).Str("format", format).Logger()

	if data == nil {
		if s.source == nil {
			return s.fail(res, log, errors.New("no data and no source configured"))
		}
		b, err := s.source.Open(ctx, path)
		if err != nil {
			return s.fail(res, log, fmt.Errorf("read %s: %w", path, err))
		}
		data = b
	}
	res.Size = int64(len(data))

	outcome := "ok"
	decoders := s.table.Lookup(ext)
	var decoded *Decoded
	var lastErr error
	if len(decoders) == 0 {
		res.Metadata["warning"] = fmt.Sprintf("Unsupported file format: %s. Treating as plain text.", ext)
		log.Warn().Err(ErrUnsupportedFormat).Msg("falling back to plain text")
		outcome = "unsupported"
	}
	for _, d := range decoders {
		out, err := safeDecode(ctx, d, data)
		if err == nil {
			decoded = out
			if d.Name() != decoders[0].Name() {
				res.Metadata["decoder_fallback"] = d.Name()
				outcome = "degraded"
			}
			break
		}
		lastErr = &DecodingError{Decoder: d.Name(), Format: format, Err: err}
		log.Warn().Err(lastErr).Str("decoder", d.Name()).Msg("decoder failed")
	}

	if decoded == nil {
		out, err := plainText{}.Decode(ctx, data)
		if err != nil {
			if lastErr == nil {
				lastErr = err
			}
			return s.fail(res, log, lastErr)
		}
		decoded = out
		if lastErr != nil {
			res.Metadata["error"] = lastErr.Error()
			res.Metadata["decoder_fallback"] = plainText{}.Name()
			outcome = "degraded"
		}
	}

	for k, v := range decoded.Metadata {
		res.Metadata[k] = v
	}
	if _, ok := res.Metadata["format"]; !ok {
		res.Metadata["format"] = format
	}
	res.Text = Clean(decoded.Text)
	res.Paragraphs = cleanParagraphs(decoded.Paragraphs)
	res.Structure = decoded.Structure
	res.Statistics = Stats(res.Text)
	s.metrics.ObserveExtraction(format, outcome)
	log.Debug().Int("chars", res.Statistics.CharCount).Str("outcome", outcome).Msg("extracted")
	return res
}

func (s *Service) fail(res Result, log zerolog.Logger, err error) Result {
	res.Error = err.Error()
	res.Text = ""
	res.Statistics = Stats("")
	s.metrics.ObserveExtraction(res.Format, "failed")
	log.Error().Err(err).Msg("extraction failed")
	return res
}

func safeDecode(ctx context.Context, d Decoder, data []byte) (out *Decoded, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("decoder panic: %v", r)
		}
	}()
	out, err = d.Decode(ctx, data)
	if err == nil && out == nil {
		err = errors.New("decoder returned no result")
	}
	return out, err
}

func cleanParagraphs(ps model.Paragraphs) model.Paragraphs {
	if len(ps) == 0 {
		return nil
	}
	out := make(model.Paragraphs, len(ps))
	for i, p := range ps {
		p.Text = Clean(p.Text)
		out[i] = p
	}
	return out
}
