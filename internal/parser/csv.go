package parser

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dgallion1/ultratext/internal/doctree"
)

// CSVParser turns a CSV file into a single table. The first record becomes
// the header row.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.Node, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	root := doctree.NewDoc()
	if len(records) == 0 {
		return ensureBlock(root), nil
	}

	table := doctree.NewBlock("table", nil)
	for i, record := range records {
		cellType := "tableCell"
		if i == 0 {
			cellType = "tableHeader"
		}
		row := doctree.NewBlock("tableRow", nil)
		for _, field := range record {
			row.Content = append(row.Content, doctree.NewBlock(cellType, nil, textParagraph(field)))
		}
		if len(row.Content) > 0 {
			table.Content = append(table.Content, row)
		}
	}
	root.Content = append(root.Content, table)
	return root, nil
}
