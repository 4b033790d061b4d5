package extract

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// renderTable writes the header line, a blank line, then one
// "header: value, ..." line per row. Blank headers become "Column N".
func renderTable(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		if h = strings.TrimSpace(h); h == "" {
			h = fmt.Sprintf("Column %d", i+1)
		}
		headers[i] = h
	}
	var b strings.Builder
	b.WriteString(strings.Join(headers, ", "))
	b.WriteString("\n\n")
	for _, row := range rows[1:] {
		var cells []string
		for i, v := range row {
			if v = strings.TrimSpace(v); v == "" {
				continue
			}
			h := fmt.Sprintf("Column %d", i+1)
			if i < len(headers) {
				h = headers[i]
			}
			cells = append(cells, h+": "+v)
		}
		if len(cells) > 0 {
			b.WriteString(strings.Join(cells, ", "))
			b.WriteByte('\n')
		}
	}
	return b.String()
}

type csvDecoder struct{}

func (csvDecoder) Name() string { return "csv" }

func (csvDecoder) Decode(_ context.Context, data []byte) (*Decoded, error) {
	r := csv.NewReader(strings.NewReader(decodeUTF8(data)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
	md := map[string]any{"row_count": 0, "column_count": 0}
	if len(rows) == 0 {
		md["warning"] = "Empty CSV file"
		return &Decoded{Metadata: md}, nil
	}
	md["row_count"] = len(rows) - 1
	md["column_count"] = len(rows[0])
	md["headers"] = rows[0]
	return &Decoded{
		Text:      renderTable(rows),
		Metadata:  md,
		Structure: map[string]any{"data": rows},
	}, nil
}

// xlsxDecoder renders every sheet under a "Sheet: name" banner.
type xlsxDecoder struct{}

func (xlsxDecoder) Name() string { return "excelize" }

func (xlsxDecoder) Decode(ctx context.Context, data []byte) (*Decoded, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	var blocks []string
	sheetData := map[string]any{}
	rowCount := 0
	for _, name := range sheets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", name, err)
		}
		sheetData[name] = rows
		if len(rows) > 0 {
			rowCount += len(rows) - 1
		}
		blocks = append(blocks, "Sheet: "+name+"\n\n"+renderTable(rows))
	}

	md := map[string]any{
		"sheets":      sheets,
		"sheet_count": len(sheets),
		"row_count":   rowCount,
	}
	if props, err := f.GetDocProps(); err == nil && props != nil {
		if props.Title != "" {
			md["title"] = props.Title
		}
		if props.Creator != "" {
			md["author"] = props.Creator
		}
	}
	return &Decoded{
		Text:      strings.Join(blocks, "\n\n"),
		Metadata:  md,
		Structure: map[string]any{"sheet_data": sheetData},
	}, nil
}
