package parser

import (
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docsight/internal/doctree"
)

const csvBatchRows = 20

func isCSV(declaredType, filename string) bool {
	if strings.Contains(strings.ToLower(declaredType), "csv") {
		return true
	}
	return strings.EqualFold(filepath.Ext(filename), ".csv")
}

// CSVParser outlines a CSV upload as batches of rows, each row rendered
// as "header: cell" pairs. The first record is the header. Content stays
// the raw text; a file that does not parse as CSV gets the paragraph
// outline instead.
type CSVParser struct{}

func (p *CSVParser) Parse(src, title string) *doctree.DocTree {
	reader := csv.NewReader(strings.NewReader(src))
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return (&TextParser{}).Parse(src, title)
	}

	tree := &doctree.DocTree{Title: title}
	if len(records) == 0 {
		return tree
	}

	headers := records[0]
	rows := records[1:]
	for start := 0; start < len(rows); start += csvBatchRows {
		end := min(start+csvBatchRows, len(rows))

		var text strings.Builder
		text.WriteString("Headers: " + strings.Join(headers, ", ") + "\n\n")
		for _, row := range rows[start:end] {
			writeCSVRow(&text, headers, row)
		}

		// Line numbers are 1-based and count the header.
		tree.Children = append(tree.Children, &doctree.DocNode{
			Title: fmt.Sprintf("Rows %d-%d", start+2, end+1),
			Text:  text.String(),
		})
	}
	return tree
}

func writeCSVRow(sb *strings.Builder, headers, row []string) {
	for j, cell := range row {
		if j > 0 {
			sb.WriteString(", ")
		}
		if j < len(headers) && headers[j] != "" {
			sb.WriteString(headers[j] + ": ")
		}
		sb.WriteString(cell)
	}
	sb.WriteString("\n")
}
