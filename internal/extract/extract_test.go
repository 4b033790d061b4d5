package extract

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestCleanOrder(t *testing.T) {
	t.Parallel()

	in := "  Title\n\n\n\nBody   text\x00 with\x07 bell\r\n\n\n\n"
	got := Clean(in)
	want := "Title\n\nBody text with bell"
	if got != want {
		t.Fatalf("Clean() = %q, want %q", got, want)
	}
	if Clean("") != "" {
		t.Fatal("empty input must stay empty")
	}
}

func TestStats(t *testing.T) {
	t.Parallel()

	s := Stats("héllo world\nsecond line")
	if s.CharCount != 23 || s.WordCount != 4 || s.LineCount != 2 {
		t.Fatalf("unexpected stats: %+v", s)
	}
	if (Stats("") != Statistics{}) {
		t.Fatal("empty text must have zero stats")
	}
}

func TestExtractPlainText(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc := NewService(nil, WithClock(func() time.Time { return fixed }))
	res := svc.Extract(context.Background(), "/tmp/notes.txt", []byte("\xef\xbb\xbfLine one\r\n\r\n\r\n\r\nLine   two"))
	if res.Error != "" {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	if res.Text != "Line one\n\nLine two" {
		t.Fatalf("text = %q", res.Text)
	}
	if res.Format != "txt" || res.Filename != "notes.txt" || res.Metadata["format"] != "txt" {
		t.Fatalf("unexpected format fields: %+v", res)
	}
	if !res.ExtractedAt.Equal(fixed) {
		t.Fatalf("extracted_at = %v", res.ExtractedAt)
	}
	if res.Statistics.WordCount != 4 || res.Statistics.LineCount != 3 {
		t.Fatalf("stats = %+v", res.Statistics)
	}
}

func TestExtractUnknownExtensionFallsBackToText(t *testing.T) {
	t.Parallel()

	res := NewService(nil).Extract(context.Background(), "readme.xyz", []byte("We retain records for seven years."))
	if res.Error != "" || res.Text != "We retain records for seven years." {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Metadata["warning"] != "Unsupported file format: .xyz. Treating as plain text." {
		t.Fatalf("warning = %v", res.Metadata["warning"])
	}
}

func TestExtractBinaryGarbageYieldsError(t *testing.T) {
	t.Parallel()

	garbage := make([]byte, 512)
	for i := range garbage {
		garbage[i] = byte(i % 7)
	}
	res := NewService(nil).Extract(context.Background(), "blob.bin", garbage)
	if res.Error == "" {
		t.Fatal("expected an error for undecodable input")
	}
	if res.Text != "" || (res.Statistics != Statistics{}) {
		t.Fatalf("failed extraction must be empty: %+v", res)
	}
}

type stubDecoder struct {
	name string
	out  *Decoded
	err  error
	boom bool
}

func (d stubDecoder) Name() string { return d.name }

func (d stubDecoder) Decode(context.Context, []byte) (*Decoded, error) {
	if d.boom {
		panic("corrupt input")
	}
	return d.out, d.err
}

func TestExtractFallsBackThroughDecoderChain(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(stubDecoder{name: "primary", err: errors.New("bad xref")}, ".pdf")
	reg.Register(stubDecoder{name: "secondary", out: &Decoded{Text: "from secondary", Metadata: map[string]any{"page_count": 1}}}, ".pdf")
	res := NewService(nil, WithRegistry(reg)).Extract(context.Background(), "a.pdf", []byte("%PDF-1.4"))
	if res.Text != "from secondary" || res.Metadata["decoder_fallback"] != "secondary" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestExtractRecoversDecoderPanic(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(stubDecoder{name: "fragile", boom: true}, ".json")
	res := NewService(nil, WithRegistry(reg)).Extract(context.Background(), "a.json", []byte(`{"a": 1}`))
	if res.Error != "" {
		t.Fatalf("plain text fallback should succeed: %s", res.Error)
	}
	if res.Text != `{"a": 1}` {
		t.Fatalf("text = %q", res.Text)
	}
	if msg, _ := res.Metadata["error"].(string); !strings.Contains(msg, "decoder panic") {
		t.Fatalf("metadata error = %v", res.Metadata["error"])
	}
}

func TestRegistrySkipsDisabledDecoders(t *testing.T) {
	t.Parallel()

	reg := DefaultRegistry("pdfcpu")
	ds := reg.Lookup(".PDF")
	if len(ds) != 1 || ds[0].Name() != "pdf-scan" {
		t.Fatalf("expected only the scan decoder, got %v", ds)
	}
}

type mapSource map[string][]byte

func (m mapSource) Open(_ context.Context, path string) ([]byte, error) {
	b, ok := m[path]
	if !ok {
		return nil, errors.New("no such file")
	}
	return b, nil
}

func TestExtractReadsFromSource(t *testing.T) {
	t.Parallel()

	svc := NewService(mapSource{"gs://b/policy.txt": []byte("Stored text")})
	if res := svc.Extract(context.Background(), "gs://b/policy.txt", nil); res.Text != "Stored text" {
		t.Fatalf("unexpected result: %+v", res)
	}
	res := svc.Extract(context.Background(), "gs://b/missing.txt", nil)
	if res.Error == "" || res.Text != "" {
		t.Fatalf("expected read error, got %+v", res)
	}
}
