package extract

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"unicode"
	"unicode/utf16"
)

var oleMagic = []byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1}

const minRun = 8

// legacyOfficeDecoder salvages text runs from pre-2007 binary Office files
// (.doc, .ppt, .xls). It does not parse the compound file; it collects
// UTF-16LE runs and, failing that, 8-bit runs of printable characters.
type legacyOfficeDecoder struct{}

func (legacyOfficeDecoder) Name() string { return "ole-strings" }

func (legacyOfficeDecoder) Decode(_ context.Context, data []byte) (*Decoded, error) {
	if !bytes.HasPrefix(data, oleMagic) {
		return nil, errors.New("not a compound document")
	}
	runs := utf16Runs(data)
	if len(strings.Join(runs, "")) < 4*minRun {
		runs = append(runs, byteRuns(data)...)
	}
	if len(runs) == 0 {
		return nil, errors.New("no text runs found")
	}
	return &Decoded{
		Text:     strings.Join(runs, "\n\n"),
		Metadata: map[string]any{"extraction": "text-runs"},
	}, nil
}

func textual(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
}

func keepRun(r []rune) bool {
	if len(r) < minRun {
		return false
	}
	letters := 0
	for _, c := range r {
		if unicode.IsLetter(c) {
			letters++
		}
	}
	return letters*2 >= len(r)
}

func utf16Runs(data []byte) []string {
	var out []string
	var cur []uint16
	flush := func() {
		r := utf16.Decode(cur)
		if keepRun(r) {
			out = append(out, strings.TrimSpace(string(r)))
		}
		cur = cur[:0]
	}
	for i := 0; i+1 < len(data); i += 2 {
		u := uint16(data[i]) | uint16(data[i+1])<<8
		if u == '\r' {
			u = '\n'
		}
		if u != 0 && textual(rune(u)) && !(u >= 0xd800 && u <= 0xdfff) {
			cur = append(cur, u)
			continue
		}
		flush()
	}
	flush()
	return out
}

func byteRuns(data []byte) []string {
	var out []string
	var cur []rune
	flush := func() {
		if keepRun(cur) {
			out = append(out, strings.TrimSpace(string(cur)))
		}
		cur = cur[:0]
	}
	for _, b := range data {
		if b >= 0x20 && b < 0x7f || b == '\n' || b == '\t' {
			cur = append(cur, rune(b))
			continue
		}
		flush()
	}
	flush()
	return out
}
