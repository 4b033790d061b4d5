package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var emlHeaders = []string{"From", "To", "Cc", "Subject", "Date"}

// emlDecoder prefers text/plain bodies, renders text/html only when no
// plain part exists, and skips attachments.
type emlDecoder struct{}

func (emlDecoder) Name() string { return "eml" }

func (emlDecoder) Decode(_ context.Context, data []byte) (*Decoded, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	dec := new(mime.WordDecoder)
	var head []string
	headers := map[string]any{}
	for _, k := range emlHeaders {
		v := msg.Header.Get(k)
		if v == "" {
			continue
		}
		if d, err := dec.DecodeHeader(v); err == nil {
			v = d
		}
		head = append(head, k+": "+v)
		headers[strings.ToLower(k)] = v
	}

	w := &mailWalker{}
	if err := w.walk(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body, 0); err != nil {
		return nil, err
	}
	body := strings.Join(w.plain, "\n\n")
	if body == "" && len(w.html) > 0 {
		var parts []string
		for _, h := range w.html {
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(h))
			if err != nil {
				continue
			}
			doc.Find("script, style, head").Remove()
			parts = append(parts, renderBlocks(doc.Nodes...))
		}
		body = strings.Join(parts, "\n\n")
	}

	text := strings.Join(head, "\n")
	if body != "" {
		text += "\n\n" + body
	}
	return &Decoded{
		Text: text,
		Metadata: map[string]any{
			"headers":          headers,
			"attachment_count": len(w.attachments),
			"attachments":      w.attachments,
			"has_html":         len(w.html) > 0,
		},
	}, nil
}

type mailWalker struct {
	plain       []string
	html        []string
	attachments []string
}

const maxMIMEDepth = 10

func (w *mailWalker) walk(contentType, encoding string, body io.Reader, depth int) error {
	if depth > maxMIMEDepth {
		return errors.New("mime nesting too deep")
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || contentType == "" {
		mediaType = "text/plain"
	}
	if strings.HasPrefix(mediaType, "multipart/") {
		mr := multipart.NewReader(body, params["boundary"])
		for {
			part, err := mr.NextRawPart()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			if isAttachment(part) {
				name := part.FileName()
				if name == "" {
					name = "unnamed"
				}
				w.attachments = append(w.attachments, name)
				continue
			}
			err = w.walk(part.Header.Get("Content-Type"), part.Header.Get("Content-Transfer-Encoding"), part, depth+1)
			if err != nil {
				return err
			}
		}
	}

	raw, err := io.ReadAll(transferDecoder(encoding, body))
	if err != nil {
		return err
	}
	switch mediaType {
	case "text/plain":
		if s := strings.TrimSpace(decodeUTF8(raw)); s != "" {
			w.plain = append(w.plain, s)
		}
	case "text/html":
		w.html = append(w.html, decodeUTF8(raw))
	}
	return nil
}

func isAttachment(p *multipart.Part) bool {
	disp, _, err := mime.ParseMediaType(p.Header.Get("Content-Disposition"))
	return err == nil && disp == "attachment"
}

func transferDecoder(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}
