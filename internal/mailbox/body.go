package mailbox

import (
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message/mail"
	"golang.org/x/net/html"
)

// extractBody reads a raw RFC 5322 message and returns its plain-text
// content. A text/plain part wins; an HTML-only message is stripped to
// its visible text. An empty result means the message has no
// extractable text part.
func extractBody(r io.Reader) (string, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return "", fmt.Errorf("parse message: %w", err)
	}

	var plain, htmlBody string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// One undecodable part does not invalidate the rest.
			continue
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue // attachments are not proposal text
		}

		contentType, _, err := header.ContentType()
		if err != nil {
			continue
		}
		switch {
		case strings.HasPrefix(contentType, "text/plain") && plain == "":
			data, err := io.ReadAll(part.Body)
			if err == nil {
				plain = string(data)
			}
		case strings.HasPrefix(contentType, "text/html") && htmlBody == "":
			data, err := io.ReadAll(part.Body)
			if err == nil {
				htmlBody = string(data)
			}
		}
	}

	if strings.TrimSpace(plain) != "" {
		return strings.TrimSpace(plain), nil
	}
	if htmlBody != "" {
		return strings.TrimSpace(htmlToText(htmlBody)), nil
	}
	return "", nil
}

// htmlToText extracts the visible text from an HTML body, skipping
// scripts and styles.
func htmlToText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}

	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "head":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)
	return strings.TrimSpace(buf.String())
}
