package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

func openZip(data []byte) (*zip.Reader, error) {
	return zip.NewReader(bytes.NewReader(data), int64(len(data)))
}

func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(io.LimitReader(rc, 64<<20))
	}
	return nil, fmt.Errorf("%s: missing from archive", name)
}

// coreProperties reads docProps/core.xml. Missing or malformed parts
// yield no metadata rather than an error.
func coreProperties(zr *zip.Reader) map[string]any {
	out := map[string]any{}
	raw, err := readZipFile(zr, "docProps/core.xml")
	if err != nil {
		return out
	}
	keys := map[string]string{
		"title":          "title",
		"subject":        "subject",
		"creator":        "author",
		"lastModifiedBy": "last_modified_by",
		"created":        "created",
		"modified":       "modified",
		"keywords":       "keywords",
	}
	dec := xml.NewDecoder(bytes.NewReader(raw))
	var current string
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		switch t := tok.(type) {
		case xml.StartElement:
			current = keys[t.Name.Local]
		case xml.CharData:
			if v := strings.TrimSpace(string(t)); current != "" && v != "" {
				out[current] = v
			}
		case xml.EndElement:
			current = ""
		}
	}
}
