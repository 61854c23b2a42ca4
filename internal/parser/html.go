package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docanchor/internal/doctree"
	"golang.org/x/net/html"
)

// HTMLParser handles HTML files. The parsed DOM is kept as-is apart from
// comments and doctypes, so locations line up with what a browser renders.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	src, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := titleFromName(filename)
	if t := findTitle(src); t != "" {
		title = t
	}
	return doctree.WrapDocument(title, convertHTML(src)), nil
}

// convertHTML copies an x/net/html tree into doctree nodes.
func convertHTML(n *html.Node) *doctree.Node {
	var out *doctree.Node
	switch n.Type {
	case html.DocumentNode:
		out = doctree.NewDocumentNode()
	case html.ElementNode:
		attrs := make([]doctree.Attr, 0, len(n.Attr))
		for _, a := range n.Attr {
			attrs = append(attrs, doctree.Attr{Name: a.Key, Value: a.Val})
		}
		out = doctree.NewElement(n.Data, attrs...)
	case html.TextNode:
		return doctree.NewText(n.Data)
	default:
		return nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if child := convertHTML(c); child != nil {
			out.AppendChild(child)
		}
	}
	return out
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}
