package parser

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dgallion1/docanchor/internal/doctree"
	"github.com/yuin/goldmark"
)

// MarkdownParser renders Markdown to HTML with goldmark and builds the
// tree from that HTML, so locations match the rendered page.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read markdown: %w", err)
	}

	var rendered bytes.Buffer
	if err := goldmark.Convert(src, &rendered); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	doc, err := (&HTMLParser{}).Parse(&rendered, filename)
	if err != nil {
		return nil, fmt.Errorf("parse rendered markdown: %w", err)
	}
	return doc, nil
}
