package extract

import (
	"bytes"
	"compress/zlib"
	"context"
	"io"
	"regexp"
	"strings"
)

var (
	pdfPageObj  = regexp.MustCompile(`/Type\s*/Page[^s]`)
	pdfInfoText = regexp.MustCompile(`/(Title|Author|Subject|Producer|Creator)\s*\(((?:[^()\\]|\\.)*)\)`)
)

// pdfScanDecoder is the lower-fidelity PDF path: it walks raw stream
// objects, inflates Flate streams and reads their text operators without
// resolving the document structure. It copes with files too damaged for
// pdfcpu to read.
type pdfScanDecoder struct{}

func (pdfScanDecoder) Name() string { return "pdf-scan" }

func (pdfScanDecoder) Decode(ctx context.Context, data []byte) (*Decoded, error) {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	if !bytes.Contains(head, []byte("%PDF-")) {
		return nil, errNoPDF
	}

	var parts []string
	rest := data
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		i := bytes.Index(rest, []byte("stream"))
		if i < 0 {
			break
		}
		// "endstream" also contains the keyword.
		if i >= 3 && bytes.Equal(rest[i-3:i], []byte("end")) {
			rest = rest[i+6:]
			continue
		}
		start := i + 6
		if start < len(rest) && rest[start] == '\r' {
			start++
		}
		if start < len(rest) && rest[start] == '\n' {
			start++
		}
		end := bytes.Index(rest[start:], []byte("endstream"))
		if end < 0 {
			break
		}
		dict := rest[max(0, i-1024):i]
		if d := bytes.LastIndex(dict, []byte("<<")); d >= 0 {
			dict = dict[d:]
		}
		body := rest[start : start+end]
		if text := streamText(dict, body); text != "" {
			parts = append(parts, text)
		}
		rest = rest[start+end+9:]
	}

	md := map[string]any{
		"page_count": len(pdfPageObj.FindAll(data, -1)),
	}
	for _, m := range pdfInfoText.FindAllSubmatch(data, -1) {
		key := strings.ToLower(string(m[1]))
		if _, seen := md[key]; !seen {
			md[key] = decodePDFString(unescapePDFLiteral(m[2]))
		}
	}
	return &Decoded{Text: strings.Join(parts, "\n\n"), Metadata: md}, nil
}

func streamText(dict, body []byte) string {
	if bytes.Contains(dict, []byte("/Image")) || bytes.Contains(dict, []byte("/FontFile")) || bytes.Contains(dict, []byte("/Length1")) {
		return ""
	}
	if bytes.Contains(dict, []byte("/FlateDecode")) {
		zr, err := zlib.NewReader(bytes.NewReader(body))
		if err != nil {
			return ""
		}
		inflated, err := io.ReadAll(io.LimitReader(zr, 32<<20))
		zr.Close()
		if err != nil && len(inflated) == 0 {
			return ""
		}
		body = inflated
	} else if bytes.Contains(dict, []byte("/Filter")) {
		return ""
	}
	if !bytes.Contains(body, []byte("BT")) {
		return ""
	}
	return strings.TrimSpace(contentText(body))
}

func unescapePDFLiteral(b []byte) []byte {
	lx := &pdfLexer{data: append(append([]byte{}, b...), ')')}
	return lx.literal()
}
