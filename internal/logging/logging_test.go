package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewWritesStructuredJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := Component(New("debug", false, &buf), "eval")
	l.Info().Str("document_id", "d1").Msg("evaluated")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if line["component"] != "eval" || line["document_id"] != "d1" || line["service"] != "compliance-auditor" {
		t.Fatalf("unexpected fields: %v", line)
	}
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := New("warn", false, &buf)
	l.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level: %s", buf.String())
	}
	if ParseLevel("bogus") != zerolog.InfoLevel {
		t.Fatal("unknown levels default to info")
	}
}
