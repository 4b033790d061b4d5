package extract

import (
	"encoding/hex"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
)

type pdfTokenKind int

const (
	pdfNumber pdfTokenKind = iota
	pdfString
	pdfName
	pdfArray
	pdfOperator
)

type pdfToken struct {
	kind  pdfTokenKind
	num   float64
	str   string
	items []pdfToken
}

// contentText reads the text-showing operators of a page content stream.
// Glyph positioning is only used to decide where lines and paragraphs
// break; fonts with custom encodings produce no text.
func contentText(stream []byte) string {
	w := &textWriter{}
	lx := &pdfLexer{data: stream}
	var operands []pdfToken
	for {
		tok, ok := lx.next()
		if !ok {
			break
		}
		if tok.kind != pdfOperator {
			operands = append(operands, tok)
			continue
		}
		switch tok.str {
		case "Tj":
			w.show(lastString(operands))
		case "'", `"`:
			w.newline(0)
			w.show(lastString(operands))
		case "TJ":
			if n := len(operands); n > 0 && operands[n-1].kind == pdfArray {
				for _, it := range operands[n-1].items {
					switch it.kind {
					case pdfString:
						w.show(it.str)
					case pdfNumber:
						if it.num < -200 {
							w.space()
						}
					}
				}
			}
		case "Td", "TD":
			if n := len(operands); n >= 2 {
				tx, ty := operands[n-2].num, operands[n-1].num
				if ty != 0 {
					w.newline(math.Abs(ty))
				} else if tx > 0 {
					w.space()
				}
			}
		case "Tm":
			if n := len(operands); n >= 6 {
				y := operands[n-1].num
				if w.hasY && y != w.lastY {
					w.newline(math.Abs(w.lastY - y))
				}
				w.lastY, w.hasY = y, true
			}
		case "T*":
			w.newline(0)
		case "ET":
			w.space()
		case "ID":
			lx.skipInlineImage()
		}
		operands = operands[:0]
	}
	return w.String()
}

func lastString(ops []pdfToken) string {
	for i := len(ops) - 1; i >= 0; i-- {
		if ops[i].kind == pdfString {
			return ops[i].str
		}
	}
	return ""
}

// textWriter turns show/move events into lines. Breaks are held until
// the next visible text so runs of moves collapse. A vertical move much
// larger than the usual line gap starts a new paragraph.
type textWriter struct {
	b       strings.Builder
	pending string
	lineGap float64
	lastY   float64
	hasY    bool
}

func (w *textWriter) show(s string) {
	if s == "" {
		return
	}
	if w.pending != "" && w.b.Len() > 0 {
		w.b.WriteString(w.pending)
	}
	w.pending = ""
	w.b.WriteString(s)
}

func (w *textWriter) space() {
	if w.pending == "" && w.b.Len() > 0 {
		w.pending = " "
	}
}

func (w *textWriter) newline(gap float64) {
	if w.b.Len() == 0 {
		return
	}
	brk := "\n"
	if gap > 0 {
		if w.lineGap > 0 && gap > w.lineGap*1.6 {
			brk = "\n\n"
		}
		if w.lineGap == 0 || gap < w.lineGap {
			w.lineGap = gap
		}
	}
	if w.pending != "\n\n" {
		w.pending = brk
	}
}

func (w *textWriter) String() string { return w.b.String() }

type pdfLexer struct {
	data []byte
	pos  int
}

func isPDFSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func isPDFDelim(c byte) bool {
	return strings.IndexByte("()<>[]{}/%", c) >= 0
}

func (lx *pdfLexer) next() (pdfToken, bool) {
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		switch {
		case isPDFSpace(c):
			lx.pos++
		case c == '%':
			for lx.pos < len(lx.data) && lx.data[lx.pos] != '\n' && lx.data[lx.pos] != '\r' {
				lx.pos++
			}
		case c == '(':
			lx.pos++
			return pdfToken{kind: pdfString, str: decodePDFString(lx.literal())}, true
		case c == '<' && lx.peek(1) == '<':
			lx.skipDict()
		case c == '<':
			lx.pos++
			return pdfToken{kind: pdfString, str: lx.hexString()}, true
		case c == '[':
			lx.pos++
			var items []pdfToken
			for {
				if lx.skipSpace(); lx.pos >= len(lx.data) {
					break
				}
				if lx.data[lx.pos] == ']' {
					lx.pos++
					break
				}
				it, ok := lx.next()
				if !ok {
					break
				}
				items = append(items, it)
			}
			return pdfToken{kind: pdfArray, items: items}, true
		case c == ']' || c == '>' || c == ')' || c == '{' || c == '}':
			lx.pos++
		case c == '/':
			lx.pos++
			return pdfToken{kind: pdfName, str: lx.word()}, true
		default:
			w := lx.word()
			if w == "" {
				lx.pos++
				continue
			}
			if n, err := strconv.ParseFloat(w, 64); err == nil {
				return pdfToken{kind: pdfNumber, num: n}, true
			}
			return pdfToken{kind: pdfOperator, str: w}, true
		}
	}
	return pdfToken{}, false
}

func (lx *pdfLexer) peek(n int) byte {
	if lx.pos+n < len(lx.data) {
		return lx.data[lx.pos+n]
	}
	return 0
}

func (lx *pdfLexer) skipSpace() {
	for lx.pos < len(lx.data) && isPDFSpace(lx.data[lx.pos]) {
		lx.pos++
	}
}

func (lx *pdfLexer) word() string {
	start := lx.pos
	for lx.pos < len(lx.data) && !isPDFSpace(lx.data[lx.pos]) && !isPDFDelim(lx.data[lx.pos]) {
		lx.pos++
	}
	return string(lx.data[start:lx.pos])
}

func (lx *pdfLexer) skipDict() {
	depth := 0
	for lx.pos < len(lx.data) {
		switch {
		case lx.data[lx.pos] == '<' && lx.peek(1) == '<':
			depth++
			lx.pos += 2
		case lx.data[lx.pos] == '>' && lx.peek(1) == '>':
			depth--
			lx.pos += 2
			if depth == 0 {
				return
			}
		case lx.data[lx.pos] == '(':
			lx.pos++
			lx.literal()
		default:
			lx.pos++
		}
	}
}

// skipInlineImage moves past binary image data up to the EI operator.
func (lx *pdfLexer) skipInlineImage() {
	for lx.pos+2 < len(lx.data) {
		if isPDFSpace(lx.data[lx.pos]) && lx.data[lx.pos+1] == 'E' && lx.data[lx.pos+2] == 'I' &&
			(lx.pos+3 >= len(lx.data) || isPDFSpace(lx.data[lx.pos+3])) {
			lx.pos += 3
			return
		}
		lx.pos++
	}
	lx.pos = len(lx.data)
}

func (lx *pdfLexer) literal() []byte {
	var out []byte
	depth := 1
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		lx.pos++
		switch c {
		case '\\':
			if lx.pos >= len(lx.data) {
				return out
			}
			e := lx.data[lx.pos]
			lx.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r':
				if lx.pos < len(lx.data) && lx.data[lx.pos] == '\n' {
					lx.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && lx.pos < len(lx.data) && lx.data[lx.pos] >= '0' && lx.data[lx.pos] <= '7'; i++ {
						v = v*8 + int(lx.data[lx.pos]-'0')
						lx.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return out
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return out
}

func (lx *pdfLexer) hexString() string {
	var digits []byte
	for lx.pos < len(lx.data) && lx.data[lx.pos] != '>' {
		c := lx.data[lx.pos]
		if !isPDFSpace(c) {
			digits = append(digits, c)
		}
		lx.pos++
	}
	lx.pos++
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	raw := make([]byte, len(digits)/2)
	if _, err := hex.Decode(raw, digits); err != nil {
		return ""
	}
	return decodePDFString(raw)
}

// decodePDFString maps string bytes to text: UTF-16BE when a BOM is
// present, otherwise single-byte. Strings that come out mostly
// unprintable are glyph ids of a custom encoding and are dropped.
func decodePDFString(raw []byte) string {
	var s string
	if len(raw) >= 2 && raw[0] == 0xfe && raw[1] == 0xff {
		u := make([]uint16, 0, len(raw)/2)
		for i := 2; i+1 < len(raw); i += 2 {
			u = append(u, uint16(raw[i])<<8|uint16(raw[i+1]))
		}
		s = string(utf16.Decode(u))
	} else {
		r := make([]rune, len(raw))
		for i, b := range raw {
			r[i] = rune(b)
		}
		s = string(r)
	}
	if s == "" {
		return ""
	}
	printable := 0
	total := 0
	for _, r := range s {
		total++
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			printable++
		}
	}
	if printable*2 < total {
		return ""
	}
	return s
}
