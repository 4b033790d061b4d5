package extract

import (
	"sort"
	"strings"
)

// Registry maps extensions to decoders in preference order. Decoders whose
// backend is unavailable are left out when the table is built, so lookup
// only ever sees usable decoders.
type Registry struct {
	byExt    map[string][]Decoder
	disabled map[string]bool
}

func NewRegistry(disabled ...string) *Registry {
	r := &Registry{byExt: map[string][]Decoder{}, disabled: map[string]bool{}}
	for _, name := range disabled {
		r.disabled[strings.ToLower(strings.TrimSpace(name))] = true
	}
	return r
}

// Register appends d to each extension's chain unless it is disabled.
func (r *Registry) Register(d Decoder, exts ...string) {
	if r.disabled[d.Name()] {
		return
	}
	if a, ok := d.(interface{ Available() bool }); ok && !a.Available() {
		return
	}
	for _, ext := range exts {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		r.byExt[ext] = append(r.byExt[ext], d)
	}
}

func (r *Registry) Lookup(ext string) []Decoder {
	return r.byExt[strings.ToLower(ext)]
}

func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// DefaultRegistry wires every decoder this package ships with.
func DefaultRegistry(disabled ...string) *Registry {
	r := NewRegistry(disabled...)
	r.Register(plainText{}, ".txt", ".md", ".log")
	r.Register(pdfcpuDecoder{}, ".pdf")
	r.Register(pdfScanDecoder{}, ".pdf")
	r.Register(docxDecoder{}, ".docx", ".doc")
	r.Register(pptxDecoder{}, ".pptx", ".ppt")
	r.Register(xlsxDecoder{}, ".xlsx", ".xls")
	r.Register(legacyOfficeDecoder{}, ".doc", ".ppt", ".xls")
	r.Register(htmlDecoder{}, ".html", ".htm")
	r.Register(tagStripDecoder{}, ".html", ".htm")
	r.Register(rtfDecoder{}, ".rtf")
	r.Register(csvDecoder{}, ".csv")
	r.Register(emlDecoder{}, ".eml")
	r.Register(jsonDecoder{}, ".json")
	r.Register(xmlDecoder{}, ".xml")
	return r
}
