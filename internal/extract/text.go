package extract

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"unicode/utf8"
)

var errBinary = errors.New("content is not text")

// plainText is both the .txt decoder and the fallback for everything else.
type plainText struct{}

func (plainText) Name() string { return "text" }

func (plainText) Decode(_ context.Context, data []byte) (*Decoded, error) {
	if looksBinary(data) {
		return nil, errBinary
	}
	text := decodeUTF8(data)
	return &Decoded{
		Text: text,
		Metadata: map[string]any{
			"encoding": "utf-8",
			"size":     len(text),
		},
	}, nil
}

// decodeUTF8 drops a BOM and invalid sequences and normalizes line endings.
func decodeUTF8(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	s := string(data)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// looksBinary reports whether more than 30% of the leading bytes are NULs,
// control characters or invalid UTF-8.
func looksBinary(data []byte) bool {
	sample := data
	if len(sample) > 8192 {
		sample = sample[:8192]
	}
	if len(sample) == 0 {
		return false
	}
	total, bad := len(sample), 0
	for len(sample) > 0 {
		r, size := utf8.DecodeRune(sample)
		switch {
		case r == utf8.RuneError && size == 1:
			bad++
		case r < 0x20 && r != '\n' && r != '\r' && r != '\t' && r != '\f':
			bad++
		}
		sample = sample[size:]
	}
	return bad*10 > total*3
}
