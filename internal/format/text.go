// Package format extracts readable text from HTML email bodies.
package format

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// elements whose text content is never part of the message body.
var skippedElements = map[string]bool{
	"script": true,
	"style":  true,
	"head":   true,
	"title":  true,
}

// elements that imply a line break around their content.
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "tr": true,
	"li": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "blockquote": true,
}

// Converter turns HTML message bodies into plain text.
type Converter struct{}

// Text extracts the visible text from raw HTML, collapsing runs of
// whitespace and inserting line breaks at block boundaries. Input that
// fails to parse is returned stripped of angle-bracket runs as a best
// effort, never an error.
func (c Converter) Text(raw []byte) string {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return collapseWhitespace(stripTags(string(raw)))
	}

	var buf strings.Builder
	walkText(doc, &buf)

	return collapseWhitespace(buf.String())
}

func walkText(n *html.Node, buf *strings.Builder) {
	if n.Type == html.ElementNode && skippedElements[n.Data] {
		return
	}

	if n.Type == html.TextNode {
		// newlines inside a text node are source formatting, not breaks
		buf.WriteString(strings.Map(func(r rune) rune {
			if r == '\n' || r == '\r' || r == '\t' {
				return ' '
			}
			return r
		}, n.Data))
	}

	if n.Type == html.ElementNode && blockElements[n.Data] {
		buf.WriteByte('\n')
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		walkText(child, buf)
	}

	if n.Type == html.ElementNode && blockElements[n.Data] {
		buf.WriteByte('\n')
	}
}

func stripTags(s string) string {
	var buf strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '<':
			depth++
		case r == '>' && depth > 0:
			depth--
			buf.WriteByte(' ')
		case depth == 0:
			buf.WriteRune(r)
		}
	}
	return buf.String()
}

func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))

	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}

	return strings.Join(out, "\n")
}
