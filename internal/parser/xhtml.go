package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/dgallion1/docanchor/internal/doctree"
)

const xmlNamespace = "http://www.w3.org/XML/1998/namespace"

// XHTMLParser handles well-formed XHTML and generic XML content documents.
// Unlike HTMLParser it performs no tag soup repair, so the element tree
// is exactly what the file declares.
type XHTMLParser struct{}

func (p *XHTMLParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	src, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse xhtml: %w", err)
	}

	title := titleFromName(filename)
	t, err := xmlquery.Query(src, "//*[local-name()='title']")
	if err != nil {
		return nil, fmt.Errorf("query title: %w", err)
	}
	if t != nil {
		if s := strings.TrimSpace(t.InnerText()); s != "" {
			title = s
		}
	}
	return doctree.WrapDocument(title, convertXML(src)), nil
}

// convertXML copies an xmlquery tree into doctree nodes. CDATA becomes
// plain text; comments, declarations and processing instructions are
// dropped.
func convertXML(n *xmlquery.Node) *doctree.Node {
	var out *doctree.Node
	switch n.Type {
	case xmlquery.DocumentNode:
		out = doctree.NewDocumentNode()
	case xmlquery.ElementNode:
		attrs := make([]doctree.Attr, 0, len(n.Attr))
		for _, a := range n.Attr {
			if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
				continue
			}
			name := a.Name.Local
			if a.Name.Space != "" && a.Name.Space != "xml" && a.NamespaceURI != xmlNamespace {
				name = a.Name.Space + ":" + name
			}
			attrs = append(attrs, doctree.Attr{Name: name, Value: a.Value})
		}
		out = doctree.NewElement(n.Data, attrs...)
	case xmlquery.TextNode, xmlquery.CharDataNode:
		return doctree.NewText(n.Data)
	default:
		return nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if child := convertXML(c); child != nil {
			out.AppendChild(child)
		}
	}
	return out
}
