package parser

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dgallion1/docanchor/internal/doctree"
)

// CSVParser renders CSV files as a single <table>. The first record is
// the header row.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	doc := doctree.NewDocument(titleFromName(filename))
	if len(records) == 0 {
		return doc, nil
	}

	table := block(doc.Body(), "table", "")
	for i, row := range records {
		cell := "td"
		if i == 0 {
			cell = "th"
		}
		tr := block(table, "tr", "")
		for _, v := range row {
			block(tr, cell, v)
		}
	}
	return doc, nil
}
