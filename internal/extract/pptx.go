package extract

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"example.com/compliance-auditor/internal/model"
)

var slidePart = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

type pptxDecoder struct{}

func (pptxDecoder) Name() string { return "pptx" }

func (pptxDecoder) Decode(_ context.Context, data []byte) (*Decoded, error) {
	zr, err := openZip(data)
	if err != nil {
		return nil, err
	}
	type part struct {
		num  int
		name string
	}
	var parts []part
	for _, f := range zr.File {
		if m := slidePart.FindStringSubmatch(f.Name); m != nil {
			n, _ := strconv.Atoi(m[1])
			parts = append(parts, part{num: n, name: f.Name})
		}
	}
	if len(parts) == 0 {
		return nil, errors.New("no slides in presentation")
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].num < parts[j].num })

	var (
		blocks     []string
		paragraphs model.Paragraphs
		echo       []map[string]any
	)
	for i, p := range parts {
		raw, err := readZipFile(zr, p.name)
		if err != nil {
			return nil, err
		}
		shapes, err := slideShapes(raw)
		if err != nil {
			return nil, fmt.Errorf("slide %d: %w", i+1, err)
		}
		slide := i + 1
		blocks = append(blocks, fmt.Sprintf("Slide %d:\n%s", slide, strings.Join(shapes, "\n")))
		for j, s := range shapes {
			paragraphs = append(paragraphs, model.Paragraph{
				ID:       fmt.Sprintf("s%d-p%d", slide, j+1),
				Text:     s,
				Page:     slide,
				Position: j + 1,
			})
		}
		echo = append(echo, map[string]any{"slide_number": slide, "content": shapes})
	}

	md := coreProperties(zr)
	md["slide_count"] = len(parts)
	return &Decoded{
		Text:       strings.Join(blocks, "\n\n"),
		Metadata:   md,
		Paragraphs: paragraphs,
		Structure:  map[string]any{"slides": echo},
	}, nil
}

// slideShapes returns the text of each shape or graphic frame on a slide,
// with the shape's paragraphs joined by newlines.
func slideShapes(raw []byte) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	var (
		shapes []string
		lines  []string
		para   strings.Builder
		depth  int
		inText bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "sp", "graphicFrame":
				depth++
				if depth == 1 {
					lines = nil
				}
			case "p":
				para.Reset()
			case "t":
				inText = true
			case "br":
				para.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if depth > 0 {
					if s := strings.TrimSpace(para.String()); s != "" {
						lines = append(lines, s)
					}
				}
			case "sp", "graphicFrame":
				depth--
				if depth == 0 && len(lines) > 0 {
					shapes = append(shapes, strings.Join(lines, "\n"))
				}
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}
	return shapes, nil
}
