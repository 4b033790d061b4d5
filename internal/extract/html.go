package extract

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "header": true, "footer": true,
	"aside": true, "nav": true, "main": true, "blockquote": true, "pre": true, "table": true,
	"tr": true, "ul": true, "ol": true, "li": true, "dl": true, "dt": true, "dd": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "form": true,
	"address": true, "figure": true, "figcaption": true, "hr": true,
}

// htmlDecoder drops non-content elements and renders block elements as
// paragraphs. Headers, links and meta tags are echoed as structure.
type htmlDecoder struct{}

func (htmlDecoder) Name() string { return "goquery" }

func (htmlDecoder) Decode(_ context.Context, data []byte) (*Decoded, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	meta := map[string]any{}
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		name, ok := s.Attr("name")
		if !ok {
			name, ok = s.Attr("property")
		}
		content, hasContent := s.Attr("content")
		if ok && hasContent && name != "" {
			meta[strings.ToLower(name)] = content
		}
	})

	doc.Find("script, style, noscript, iframe, head, template, svg").Remove()

	var headers []map[string]any
	for level := 1; level <= 6; level++ {
		doc.Find(fmt.Sprintf("h%d", level)).Each(func(_ int, s *goquery.Selection) {
			if text := collapseInline(s.Text()); text != "" {
				headers = append(headers, map[string]any{"level": level, "text": text})
			}
		})
	}
	var links []map[string]any
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		links = append(links, map[string]any{"text": collapseInline(s.Text()), "href": href})
	})

	text := ""
	if body := doc.Find("body"); body.Length() > 0 {
		text = renderBlocks(body.Nodes...)
	} else {
		text = renderBlocks(doc.Nodes...)
	}

	md := map[string]any{
		"header_count": len(headers),
		"link_count":   len(links),
	}
	if title != "" {
		md["title"] = title
	}
	if len(meta) > 0 {
		md["meta_tags"] = meta
	}
	return &Decoded{
		Text:      text,
		Metadata:  md,
		Structure: map[string]any{"headers": headers, "links": links},
	}, nil
}

// renderBlocks walks the node tree, separating block elements with blank
// lines and honoring <br>.
func renderBlocks(nodes ...*html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript", "iframe", "head", "template", "svg":
				return
			case "br":
				b.WriteString("\n")
				return
			case "td", "th":
				b.WriteString(" ")
			}
		}
		block := n.Type == html.ElementNode && blockElements[n.Data]
		if block {
			b.WriteString("\n\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			b.WriteString("\n\n")
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return tidyLines(b.String())
}

var inlineSpace = regexp.MustCompile(`[ \t\f\v\x{a0}]+`)

// tidyLines trims each line and collapses runs of spaces.
func tidyLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(inlineSpace.ReplaceAllString(l, " "))
	}
	return strings.Join(lines, "\n")
}

func collapseInline(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var (
	scriptBlocks = regexp.MustCompile(`(?is)<(script|style|noscript|iframe|head)\b.*?</(script|style|noscript|iframe|head)>`)
	blockTags    = regexp.MustCompile(`(?i)</?(p|div|section|article|li|tr|h[1-6]|table|ul|ol|blockquote)\b[^>]*>`)
	anyTag       = regexp.MustCompile(`(?s)<[^>]+>`)
)

// tagStripDecoder is the fallback when the document cannot be parsed as a
// tree: tags are removed by pattern and entities are unescaped.
type tagStripDecoder struct{}

func (tagStripDecoder) Name() string { return "tag-strip" }

func (tagStripDecoder) Decode(_ context.Context, data []byte) (*Decoded, error) {
	s := decodeUTF8(data)
	s = scriptBlocks.ReplaceAllString(s, " ")
	s = blockTags.ReplaceAllString(s, "\n\n")
	s = anyTag.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return &Decoded{
		Text:     tidyLines(s),
		Metadata: map[string]any{"extraction": "tag-strip"},
	}, nil
}
