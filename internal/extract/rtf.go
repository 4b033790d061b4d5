package extract

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Destinations whose content is never document text.
var rtfSkipDestinations = map[string]bool{
	"fonttbl": true, "colortbl": true, "stylesheet": true, "info": true, "pict": true,
	"header": true, "footer": true, "headerl": true, "headerr": true, "footerl": true,
	"footerr": true, "listtable": true, "listoverridetable": true, "rsidtbl": true,
	"generator": true, "xmlnstbl": true, "themedata": true, "colorschememapping": true,
	"latentstyles": true, "datastore": true, "object": true, "fldinst": true,
}

var rtfInfoFields = map[string]string{"title": "title", "author": "author", "subject": "subject", "operator": "last_modified_by"}

type rtfDecoder struct{}

func (rtfDecoder) Name() string { return "rtf" }

func (rtfDecoder) Decode(_ context.Context, data []byte) (*Decoded, error) {
	if !strings.HasPrefix(strings.TrimSpace(string(data[:min(len(data), 16)])), `{\rtf`) {
		return nil, errors.New("missing RTF header")
	}
	text, info := stripRTF(data)
	md := map[string]any{}
	for k, v := range info {
		md[k] = v
	}
	return &Decoded{Text: text, Metadata: md}, nil
}

type rtfGroup struct {
	skip   bool
	info   string
	ucSkip int
}

// stripRTF removes control words and groups, keeping text, paragraph
// breaks and \u escapes. Values of \title, \author and friends inside the
// info group are returned separately.
func stripRTF(data []byte) (string, map[string]string) {
	var out strings.Builder
	info := map[string]string{}
	var infoBuf strings.Builder
	stack := []rtfGroup{{ucSkip: 1}}
	pendingSkip := 0
	top := func() *rtfGroup { return &stack[len(stack)-1] }
	emit := func(s string) {
		if pendingSkip > 0 {
			n := utf8.RuneCountInString(s)
			if n <= pendingSkip {
				pendingSkip -= n
				return
			}
			s = string([]rune(s)[pendingSkip:])
			pendingSkip = 0
		}
		g := top()
		switch {
		case g.info != "":
			infoBuf.WriteString(s)
		case !g.skip:
			out.WriteString(s)
		}
	}

	for i := 0; i < len(data); i++ {
		c := data[i]
		switch c {
		case '{':
			g := *top()
			g.info = ""
			stack = append(stack, g)
			pendingSkip = 0
		case '}':
			g := top()
			if g.info != "" {
				if v := strings.TrimSpace(infoBuf.String()); v != "" {
					info[rtfInfoFields[g.info]] = v
				}
				infoBuf.Reset()
			}
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case '\\':
			if i+1 >= len(data) {
				break
			}
			n := data[i+1]
			switch {
			case n == '\\' || n == '{' || n == '}':
				emit(string(n))
				i++
			case n == '~':
				emit("\u00a0")
				i++
			case n == '-' || n == '_':
				i++
			case n == '*':
				top().skip = true
				i++
			case n == '\'':
				if i+3 < len(data) {
					if v, err := strconv.ParseUint(string(data[i+2:i+4]), 16, 8); err == nil {
						emit(string(charmap.Windows1252.DecodeByte(byte(v))))
					}
				}
				i += 3
			case n == '\n' || n == '\r':
				emit("\n")
				i++
			case isASCIILetter(n):
				j := i + 1
				for j < len(data) && isASCIILetter(data[j]) {
					j++
				}
				word := string(data[i+1 : j])
				k := j
				if k < len(data) && (data[k] == '-' || isDigit(data[k])) {
					k++
					for k < len(data) && isDigit(data[k]) {
						k++
					}
				}
				param := string(data[j:k])
				if k < len(data) && data[k] == ' ' {
					k++
				}
				i = k - 1
				rtfControl(word, param, top(), emit, &pendingSkip)
			default:
				i++
			}
		case '\r', '\n':
		default:
			if c < utf8.RuneSelf {
				emit(string(rune(c)))
				break
			}
			// Raw high bytes are UTF-8 when they decode as such, cp1252 otherwise.
			if r, size := utf8.DecodeRune(data[i:]); r != utf8.RuneError || size > 1 {
				emit(string(r))
				i += size - 1
				break
			}
			emit(string(charmap.Windows1252.DecodeByte(c)))
		}
	}
	return out.String(), info
}

func rtfControl(word, param string, g *rtfGroup, emit func(string), pendingSkip *int) {
	if rtfSkipDestinations[word] {
		g.skip = true
		return
	}
	if _, ok := rtfInfoFields[word]; ok {
		g.info = word
		return
	}
	switch word {
	case "par", "sect", "page":
		emit("\n\n")
	case "line", "row":
		emit("\n")
	case "tab", "cell":
		emit("\t")
	case "emdash":
		emit("\u2014")
	case "endash":
		emit("\u2013")
	case "bullet":
		emit("\u2022")
	case "lquote":
		emit("\u2018")
	case "rquote":
		emit("\u2019")
	case "ldblquote":
		emit("\u201c")
	case "rdblquote":
		emit("\u201d")
	case "uc":
		if n, err := strconv.Atoi(param); err == nil {
			g.ucSkip = n
		}
	case "u":
		n, err := strconv.Atoi(param)
		if err != nil {
			return
		}
		if n < 0 {
			n += 65536
		}
		emit(string(rune(n)))
		*pendingSkip = g.ucSkip
	}
}

func isASCIILetter(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
func isDigit(c byte) bool       { return c >= '0' && c <= '9' }
