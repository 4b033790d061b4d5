package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Paragraph is the unit of rule evaluation. Page and Position are set only
// by decoders that know them.
type Paragraph struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Page     int    `json:"page,omitempty"`
	Position int    `json:"position,omitempty"`
}

type Paragraphs []Paragraph

// WithIDs returns a copy where every paragraph without an id gets the
// positional fallback p{i+1}. Ids are unique in the result: a fallback or
// repeated id that is already taken gets a -N suffix.
func (ps Paragraphs) WithIDs() Paragraphs {
	taken := make(map[string]bool, len(ps))
	for _, p := range ps {
		if p.ID != "" {
			taken[p.ID] = true
		}
	}
	out := make(Paragraphs, len(ps))
	seen := make(map[string]bool, len(ps))
	for i, p := range ps {
		if p.ID == "" {
			p.ID = fmt.Sprintf("p%d", i+1)
			if taken[p.ID] {
				p.ID = suffixed(p.ID, func(id string) bool { return taken[id] || seen[id] })
			}
		}
		if seen[p.ID] {
			p.ID = suffixed(p.ID, func(id string) bool { return taken[id] || seen[id] })
		}
		seen[p.ID] = true
		out[i] = p
	}
	return out
}

func suffixed(base string, inUse func(string) bool) string {
	for n := 2; ; n++ {
		if id := fmt.Sprintf("%s-%d", base, n); !inUse(id) {
			return id
		}
	}
}

// Find returns the paragraph with the given id.
func (ps Paragraphs) Find(id string) (Paragraph, bool) {
	for _, p := range ps {
		if p.ID == id {
			return p, true
		}
	}
	return Paragraph{}, false
}

// UnmarshalJSON tolerates the shapes seen in stored and submitted
// documents: a single string, a list of strings, or a list of objects.
func (ps *Paragraphs) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*ps = nil
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return &ValidationError{Field: "paragraphs", Reason: err.Error()}
		}
		if s == "" {
			*ps = Paragraphs{}
			return nil
		}
		*ps = Paragraphs{{ID: "p1", Text: s}}
		return nil
	case '[':
	default:
		return &ValidationError{Field: "paragraphs", Reason: "expected a string or a list"}
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return &ValidationError{Field: "paragraphs", Reason: err.Error()}
	}
	out := make(Paragraphs, 0, len(raw))
	for i, item := range raw {
		item = bytes.TrimSpace(item)
		var p Paragraph
		switch {
		case len(item) > 0 && item[0] == '"':
			if err := json.Unmarshal(item, &p.Text); err != nil {
				return &ValidationError{Field: fmt.Sprintf("paragraphs[%d]", i), Reason: err.Error()}
			}
		case len(item) > 0 && item[0] == '{':
			var obj struct {
				ID       any    `json:"id"`
				Text     string `json:"text"`
				Page     int    `json:"page"`
				Position int    `json:"position"`
			}
			if err := json.Unmarshal(item, &obj); err != nil {
				return &ValidationError{Field: fmt.Sprintf("paragraphs[%d]", i), Reason: err.Error()}
			}
			switch id := obj.ID.(type) {
			case nil:
			case string:
				p.ID = id
			case float64:
				p.ID = fmt.Sprintf("%g", id)
			default:
				return &ValidationError{Field: fmt.Sprintf("paragraphs[%d].id", i), Reason: "id must be a string"}
			}
			p.Text, p.Page, p.Position = obj.Text, obj.Page, obj.Position
		default:
			return &ValidationError{Field: fmt.Sprintf("paragraphs[%d]", i), Reason: "expected a string or an object"}
		}
		out = append(out, p)
	}
	*ps = out.WithIDs()
	return nil
}

func (ps Paragraphs) Value() (driver.Value, error) {
	if ps == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Paragraph(ps))
}

func (ps *Paragraphs) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*ps = nil
		return nil
	case []byte:
		return ps.UnmarshalJSON(v)
	case string:
		return ps.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("paragraphs: unsupported scan type %T", src)
	}
}

func (Paragraphs) GormDataType() string { return "json" }
