package extract

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"example.com/compliance-auditor/internal/model"
)

// docxDecoder reads word/document.xml. Body paragraphs come first, then
// one paragraph per table row with cells joined by " | ".
type docxDecoder struct{}

func (docxDecoder) Name() string { return "docx" }

func (docxDecoder) Decode(_ context.Context, data []byte) (*Decoded, error) {
	zr, err := openZip(data)
	if err != nil {
		return nil, err
	}
	raw, err := readZipFile(zr, "word/document.xml")
	if err != nil {
		return nil, err
	}
	body, tables, err := parseWordXML(raw)
	if err != nil {
		return nil, err
	}

	var paragraphs model.Paragraphs
	var lines []string
	for _, p := range body {
		if strings.TrimSpace(p) == "" {
			continue
		}
		paragraphs = append(paragraphs, model.Paragraph{Text: p})
		lines = append(lines, p)
	}
	bodyCount := len(paragraphs)
	for _, tbl := range tables {
		for _, row := range tbl {
			line := strings.Join(row, " | ")
			if strings.Trim(line, " |") == "" {
				continue
			}
			paragraphs = append(paragraphs, model.Paragraph{Text: line})
			lines = append(lines, line)
		}
	}

	md := coreProperties(zr)
	md["paragraph_count"] = bodyCount
	md["table_count"] = len(tables)
	return &Decoded{
		Text:       strings.Join(lines, "\n\n"),
		Metadata:   md,
		Paragraphs: paragraphs,
		Structure:  map[string]any{"tables": tables},
	}, nil
}

func parseWordXML(raw []byte) (body []string, tables [][][]string, err error) {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	var (
		para     strings.Builder
		cell     strings.Builder
		row      []string
		table    [][]string
		inText   bool
		tblDepth int
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tblDepth++
				if tblDepth == 1 {
					table = nil
				}
			case "tr":
				if tblDepth == 1 {
					row = nil
				}
			case "tc":
				if tblDepth == 1 {
					cell.Reset()
				}
			case "p":
				para.Reset()
			case "t":
				inText = true
			case "tab":
				para.WriteByte('\t')
			case "br", "cr":
				para.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				text := para.String()
				if tblDepth > 0 {
					if cell.Len() > 0 && text != "" {
						cell.WriteByte(' ')
					}
					cell.WriteString(text)
				} else {
					body = append(body, text)
				}
			case "tc":
				if tblDepth == 1 {
					row = append(row, strings.TrimSpace(cell.String()))
				}
			case "tr":
				if tblDepth == 1 {
					table = append(table, row)
				}
			case "tbl":
				if tblDepth == 1 {
					tables = append(tables, table)
				}
				tblDepth--
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}
	return body, tables, nil
}
