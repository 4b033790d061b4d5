package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
)

// minimalPDF assembles a one-page PDF with a correct xref table.
func minimalPDF(content string) []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
		"<< /Title (Data Policy) /Author (Legal) /CreationDate (D:20260301120000Z) >>",
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info 6 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

const pageContent = "BT /F1 12 Tf 72 720 Td (Privacy Notice) Tj 0 -14 Td (We collect data.) Tj ET"

func TestPDFExtraction(t *testing.T) {
	t.Parallel()

	res := extract(t, "contract.pdf", minimalPDF(pageContent))
	if res.Text != "Privacy Notice\nWe collect data." {
		t.Fatalf("text = %q", res.Text)
	}
	if res.Metadata["page_count"] != 1 || res.Metadata["title"] != "Data Policy" || res.Metadata["author"] != "Legal" {
		t.Fatalf("metadata = %v", res.Metadata)
	}
	if created, _ := res.Metadata["creation_date"].(string); !strings.Contains(created, "2026") {
		t.Fatalf("creation_date = %v", res.Metadata["creation_date"])
	}
}

func TestPDFScanDecoder(t *testing.T) {
	t.Parallel()

	out, err := pdfScanDecoder{}.Decode(context.Background(), minimalPDF(pageContent))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Text != "Privacy Notice\nWe collect data." {
		t.Fatalf("text = %q", out.Text)
	}
	if out.Metadata["page_count"] != 1 || out.Metadata["title"] != "Data Policy" {
		t.Fatalf("metadata = %v", out.Metadata)
	}
	if _, err := (pdfScanDecoder{}).Decode(context.Background(), []byte("hello")); err == nil {
		t.Fatal("expected non-PDF input to be rejected")
	}
}

func TestPagedResultQualifiesParagraphs(t *testing.T) {
	t.Parallel()

	out := pagedResult([]string{"Intro\n\nScope", "", "Contact"}, map[string]any{})
	if out.Text != "Intro\n\nScope\n\n\n\nContact" {
		t.Fatalf("text = %q", out.Text)
	}
	ids := []string{"pg1-p1", "pg1-p2", "pg3-p1"}
	if len(out.Paragraphs) != len(ids) {
		t.Fatalf("paragraphs = %#v", out.Paragraphs)
	}
	for i, id := range ids {
		if out.Paragraphs[i].ID != id {
			t.Fatalf("paragraph %d id = %s, want %s", i, out.Paragraphs[i].ID, id)
		}
	}
	pages := out.Structure["pages"].([]map[string]any)
	if pages[0]["text_length"] != 12 || pages[2]["page_num"] != 3 {
		t.Fatalf("pages = %v", pages)
	}
}

func TestContentText(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name, stream, want string
	}{
		{"kerning", `BT [(Hel) -20 (lo) -300 (World)] TJ ET`, "Hello World"},
		{"paragraph gap", `BT (A) Tj 0 -12 Td (B) Tj 0 -30 Td (C) Tj ET`, "A\nB\n\nC"},
		{"escapes", `BT (a \(b\) c\\d \101) Tj ET`, `a (b) c\d A`},
		{"hex", `BT <48656c6c6f> Tj ET`, "Hello"},
		{"quote operator", `BT (one) Tj (two) ' ET`, "one\ntwo"},
		{"skips dicts", `/P <</MCID 0>> BDC BT (x) Tj ET EMC`, "x"},
	}
	for _, c := range cases {
		if got := contentText([]byte(c.stream)); got != c.want {
			t.Fatalf("%s: got %q, want %q", c.name, got, c.want)
		}
	}
}
