// Package segment splits normalized text into identified paragraphs.
package segment

import (
	"fmt"
	"regexp"
	"strings"

	"example.com/compliance-auditor/internal/model"
)

var (
	blankLine  = regexp.MustCompile(`\n\s*\n`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Normalize collapses every whitespace run to one space and trims.
func Normalize(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// Split breaks text on blank lines and returns the non-empty, normalized
// blocks in order.
func Split(text string) []string {
	var out []string
	for _, block := range blankLine.Split(text, -1) {
		if b := Normalize(block); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// Segment returns paragraphs with positional ids p1..pn.
func Segment(text string) model.Paragraphs {
	blocks := Split(text)
	out := make(model.Paragraphs, len(blocks))
	for i, b := range blocks {
		out[i] = model.Paragraph{ID: fmt.Sprintf("p%d", i+1), Text: b}
	}
	return out
}

// SegmentPage segments the text of one page and qualifies ids with the
// page number so they stay unique across the document.
func SegmentPage(page int, text string) model.Paragraphs {
	blocks := Split(text)
	out := make(model.Paragraphs, len(blocks))
	for i, b := range blocks {
		out[i] = model.Paragraph{
			ID:       fmt.Sprintf("pg%d-p%d", page, i+1),
			Text:     b,
			Page:     page,
			Position: i + 1,
		}
	}
	return out
}

// Adopt normalizes paragraphs supplied by a decoder. Supplied ids are kept;
// blank ones get p{n} over the surviving paragraphs and collisions are
// suffixed so every id is unique.
func Adopt(in model.Paragraphs) model.Paragraphs {
	out := make(model.Paragraphs, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, p := range in {
		p.Text = Normalize(p.Text)
		if p.Text == "" {
			continue
		}
		if p.ID == "" {
			p.ID = fmt.Sprintf("p%d", len(out)+1)
		}
		if seen[p.ID] {
			base := p.ID
			for n := 2; seen[p.ID]; n++ {
				p.ID = fmt.Sprintf("%s-%d", base, n)
			}
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}

// Join renders paragraphs back into document content.
func Join(ps model.Paragraphs) string {
	texts := make([]string, len(ps))
	for i, p := range ps {
		texts[i] = p.Text
	}
	return strings.Join(texts, "\n\n")
}
