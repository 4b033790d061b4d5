package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
)

// jsonObject keeps object keys in document order.
type jsonObject []jsonField

type jsonField struct {
	key   string
	value any
}

type jsonDecoder struct{}

func (jsonDecoder) Name() string { return "json" }

func (jsonDecoder) Decode(_ context.Context, data []byte) (*Decoded, error) {
	src := []byte(decodeUTF8(data))
	dec := json.NewDecoder(bytes.NewReader(src))
	dec.UseNumber()
	root, err := readJSONValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after JSON value")
	}

	var b strings.Builder
	switch v := root.(type) {
	case jsonObject:
		writeJSONObject(&b, v, "")
	case []any:
		for i, item := range v {
			if obj, ok := item.(jsonObject); ok {
				fmt.Fprintf(&b, "Item %d:\n", i+1)
				writeJSONObject(&b, obj, "")
				b.WriteString("\n\n")
			} else {
				fmt.Fprintf(&b, "Item %d: %s\n", i+1, jsonScalar(item))
			}
		}
	default:
		b.WriteString(jsonScalar(v))
	}

	var compact bytes.Buffer
	_ = json.Compact(&compact, src)
	var plain any
	_ = json.Unmarshal(src, &plain)
	return &Decoded{
		Text: b.String(),
		Metadata: map[string]any{
			"type":      jsonKind(root),
			"data_size": compact.Len(),
		},
		Structure: map[string]any{"data": plain},
	}, nil
}

func readJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			var obj jsonObject
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", kt)
				}
				v, err := readJSONValue(dec)
				if err != nil {
					return nil, err
				}
				obj = append(obj, jsonField{key: key, value: v})
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			if obj == nil {
				obj = jsonObject{}
			}
			return obj, nil
		case '[':
			list := []any{}
			for dec.More() {
				v, err := readJSONValue(dec)
				if err != nil {
					return nil, err
				}
				list = append(list, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return list, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	default:
		return tok, nil
	}
}

func writeJSONObject(b *strings.Builder, obj jsonObject, prefix string) {
	for _, f := range obj {
		switch v := f.value.(type) {
		case jsonObject:
			fmt.Fprintf(b, "%s%s:\n", prefix, f.key)
			writeJSONObject(b, v, prefix+"  ")
		case []any:
			fmt.Fprintf(b, "%s%s:\n", prefix, f.key)
			for i, item := range v {
				if o, ok := item.(jsonObject); ok {
					fmt.Fprintf(b, "%s  Item %d:\n", prefix, i+1)
					writeJSONObject(b, o, prefix+"    ")
				} else {
					fmt.Fprintf(b, "%s  - %s\n", prefix, jsonScalar(item))
				}
			}
		default:
			fmt.Fprintf(b, "%s%s: %s\n", prefix, f.key, jsonScalar(v))
		}
	}
}

func jsonScalar(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = jsonScalar(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case jsonObject:
		parts := make([]string, len(t))
		for i, f := range t {
			parts[i] = f.key + ": " + jsonScalar(f.value)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprint(t)
	}
}

func jsonKind(v any) string {
	switch v.(type) {
	case jsonObject:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	default:
		return "null"
	}
}

type xmlElement struct {
	Path       string            `json:"path"`
	Text       string            `json:"text"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Children   []*xmlElement     `json:"children,omitempty"`

	attrOrder []string
	gotChild  bool
}

// xmlSource keeps the raw bytes when they are valid UTF-8 or the prolog
// names an encoding for the decoder to convert. Otherwise invalid
// sequences are dropped first.
func xmlSource(data []byte) io.Reader {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) || declaresEncoding(data) {
		return bytes.NewReader(data)
	}
	return strings.NewReader(decodeUTF8(data))
}

func declaresEncoding(data []byte) bool {
	if !bytes.HasPrefix(data, []byte("<?xml")) {
		return false
	}
	end := bytes.Index(data, []byte("?>"))
	return end > 0 && bytes.Contains(data[:end], []byte("encoding"))
}

// xmlDecoder renders one indented line per element: its path, attributes
// and leading text.
type xmlDecoder struct{}

func (xmlDecoder) Name() string { return "xml" }

func (xmlDecoder) Decode(_ context.Context, data []byte) (*Decoded, error) {
	dec := xml.NewDecoder(xmlSource(data))
	dec.Strict = false
	dec.CharsetReader = charset.NewReaderLabel
	var (
		root  *xmlElement
		stack []*xmlElement
		count int
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
			count++
			parent := ""
			if n := len(stack); n > 0 {
				parent = stack[n-1].Path
				stack[n-1].gotChild = true
			}
			el := &xmlElement{Path: parent + "/" + t.Name.Local}
			for _, a := range t.Attr {
				if el.Attributes == nil {
					el.Attributes = map[string]string{}
				}
				name := a.Name.Local
				if a.Name.Space == "xmlns" || name == "xmlns" {
					continue
				}
				el.Attributes[name] = a.Value
				el.attrOrder = append(el.attrOrder, name)
			}
			if n := len(stack); n > 0 {
				stack[n-1].Children = append(stack[n-1].Children, el)
			} else if root == nil {
				root = el
			}
			stack = append(stack, el)
		case xml.EndElement:
			if n := len(stack); n > 0 {
				stack[n-1].Text = strings.TrimSpace(stack[n-1].Text)
				stack = stack[:n-1]
			}
		case xml.CharData:
			if n := len(stack); n > 0 && !stack[n-1].gotChild {
				stack[n-1].Text += string(t)
			}
		}
	}
	if root == nil {
		return nil, errors.New("no root element")
	}

	var b strings.Builder
	writeXMLElement(&b, root, 0)
	return &Decoded{
		Text: b.String(),
		Metadata: map[string]any{
			"root_tag":      strings.TrimPrefix(root.Path, "/"),
			"element_count": count,
		},
		Structure: map[string]any{"structure": root},
	}, nil
}

func writeXMLElement(b *strings.Builder, el *xmlElement, indent int) {
	b.WriteString(strings.Repeat(" ", indent))
	b.WriteString(el.Path)
	if len(el.attrOrder) > 0 {
		attrs := make([]string, len(el.attrOrder))
		for i, k := range el.attrOrder {
			attrs[i] = fmt.Sprintf("%s=%q", k, el.Attributes[k])
		}
		b.WriteString(" [" + strings.Join(attrs, " ") + "]")
	}
	if el.Text != "" {
		b.WriteString(": " + el.Text)
	}
	b.WriteByte('\n')
	for _, c := range el.Children {
		writeXMLElement(b, c, indent+2)
	}
}
