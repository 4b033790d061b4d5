package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	extraNewlines = regexp.MustCompile(`\n{3,}`)
	extraSpaces   = regexp.MustCompile(` {2,}`)
	controlChars  = regexp.MustCompile(`[\x01-\x08\x0b\x0c\x0e-\x1f\x7f]`)
)

// Clean applies the normalization every extraction shares. The steps run
// in a fixed order; reordering them changes the output.
func Clean(text string) string {
	if text == "" {
		return ""
	}
	text = extraNewlines.ReplaceAllString(text, "\n\n")
	text = extraSpaces.ReplaceAllString(text, " ")
	text = strings.ReplaceAll(text, "\x00", "")
	text = controlChars.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// Stats counts characters (code points), whitespace-separated words and
// lines of the final text.
func Stats(text string) Statistics {
	if text == "" {
		return Statistics{}
	}
	return Statistics{
		CharCount: utf8.RuneCountInString(text),
		WordCount: len(strings.Fields(text)),
		LineCount: strings.Count(text, "\n") + 1,
	}
}
