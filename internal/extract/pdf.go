package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"example.com/compliance-auditor/internal/model"
	"example.com/compliance-auditor/internal/segment"
)

// pdfcpuDecoder reads the document with pdfcpu and pulls text from each
// page's consolidated content stream.
type pdfcpuDecoder struct{}

func (pdfcpuDecoder) Name() string { return "pdfcpu" }

func (pdfcpuDecoder) Decode(ctx context.Context, data []byte) (*Decoded, error) {
	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed
	pctx, err := api.ReadAndValidate(bytes.NewReader(data), conf)
	if err != nil {
		return nil, err
	}

	pages := make([]string, 0, pctx.PageCount)
	for i := 1; i <= pctx.PageCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := pdfcpu.ExtractPageContent(pctx, i)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		if r == nil {
			pages = append(pages, "")
			continue
		}
		stream, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, contentText(stream))
	}

	md := map[string]any{"page_count": pctx.PageCount}
	for k, v := range map[string]string{
		"title":             pctx.XRefTable.Title,
		"author":            pctx.XRefTable.Author,
		"subject":           pctx.XRefTable.Subject,
		"creator":           pctx.XRefTable.Creator,
		"producer":          pctx.XRefTable.Producer,
		"creation_date":     pctx.XRefTable.CreationDate,
		"modification_date": pctx.XRefTable.ModDate,
	} {
		if v = strings.TrimSpace(v); v != "" {
			md[k] = v
		}
	}
	return pagedResult(pages, md), nil
}

// pagedResult joins page texts and qualifies paragraph ids by page.
func pagedResult(pages []string, md map[string]any) *Decoded {
	var paragraphs model.Paragraphs
	echo := make([]map[string]any, len(pages))
	for i, text := range pages {
		text = Clean(text)
		pages[i] = text
		echo[i] = map[string]any{"page_num": i + 1, "text_length": len([]rune(text))}
		paragraphs = append(paragraphs, segment.SegmentPage(i+1, text)...)
	}
	if strings.TrimSpace(strings.Join(pages, "")) == "" && len(pages) > 0 {
		md["warning"] = "No extractable text found; the PDF may be scanned or image-only."
	}
	return &Decoded{
		Text:       strings.Join(pages, "\n\n"),
		Metadata:   md,
		Paragraphs: paragraphs,
		Structure:  map[string]any{"pages": echo},
	}
}

var errNoPDF = errors.New("not a PDF document")
