package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docanchor/internal/doctree"
)

// Parser converts raw document bytes into an element/text tree.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.Document, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".xhtml":    true,
	".xml":      true,
	".pdf":      true,
	".docx":     true,
}

// Options tune parsers that shell out or fall back.
type Options struct {
	PDFFallbackPdftotext bool
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".xhtml", ".xml":
		return &XHTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// titleFromName strips the directory and extension from filename.
func titleFromName(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// block appends <tag>text</tag> to parent and returns the new element.
func block(parent *doctree.Node, tag, text string) *doctree.Node {
	el := parent.AppendChild(doctree.NewElement(tag))
	if text != "" {
		el.AppendChild(doctree.NewText(text))
	}
	return el
}

// headingTag returns h1..h6 for a level, clamped into range.
func headingTag(level int) string {
	return fmt.Sprintf("h%d", min(max(level, 1), 6))
}
