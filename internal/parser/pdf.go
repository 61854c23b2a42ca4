package parser

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/dgallion1/docanchor/internal/doctree"
	pdflib "github.com/ledongthuc/pdf"
)

// PDFParser handles PDF files. Each page becomes <div id="page-N"> holding
// one <p> per paragraph. It tries the Go library first, then falls back to
// pdftotext if enabled.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	// Both extractors read from a path, so the upload is spooled to disk.
	tmp, err := os.CreateTemp("", "docanchor-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	text, err := extractPDFText(tmpPath)
	if err != nil && p.FallbackPdftotext {
		text, err = extractPdftotext(tmpPath)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	doc := doctree.NewDocument(titleFromName(filename))
	body := doc.Body()
	for i, page := range splitPages(text) {
		paras := pageParagraphs(page)
		if len(paras) == 0 {
			continue
		}
		div := body.AppendChild(doctree.NewElement("div",
			doctree.Attr{Name: "id", Value: fmt.Sprintf("page-%d", i+1)},
			doctree.Attr{Name: "class", Value: "page"},
		))
		for _, para := range paras {
			block(div, "p", para)
		}
	}
	return doc, nil
}

// pageParagraphs splits page text on blank lines, dropping empty runs.
func pageParagraphs(page string) []string {
	page = strings.ReplaceAll(page, "\r\n", "\n")
	var out []string
	for _, para := range strings.Split(page, "\n\n") {
		if para = strings.TrimSpace(para); para != "" {
			out = append(out, para)
		}
	}
	return out
}

func extractPDFText(path string) (string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if i > 1 {
			buf.WriteString("\f") // Form feed as page separator.
		}
		buf.WriteString(text)
	}
	return buf.String(), nil
}

func extractPdftotext(path string) (string, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}

func splitPages(text string) []string {
	return strings.Split(text, "\f")
}
